package redact

import "strings"

// Email маскирует локальную часть адреса, домен сохраняется.
func Email(s string) string {
	parts := strings.Split(s, "@")
	if len(parts) != 2 {
		return "***"
	}

	return Username(parts[0]) + "@" + parts[1]
}

// Username оставляет первые две руны имени, остальное скрывает.
func Username(s string) string {
	r := []rune(s)
	if len(r) > 2 {
		return string(r[:2]) + "***"
	}

	return "***"
}

func Token() string    { return "[REDACTED_TOKEN]" }
func Password() string { return "[REDACTED_PASSWORD]" }
