package handlers

import "net/http"

// APIRoot перечисляет корневые ресурсы API с абсолютными ссылками.
func (h *Handlers) APIRoot(w http.ResponseWriter, r *http.Request) {
	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	base := scheme + "://" + r.Host + "/api/"

	writeJSON(w, http.StatusOK, map[string]string{
		"categories": base + "categories/",
		"products":   base + "products/",
	})
}
