package service

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/google/uuid"
)

// bcrypt учитывает только первые 72 байта пароля.
const maxPasswordBytes = 72

const duplicateUsernameMsg = "a user with that username already exists"

var (
	usernameRe = regexp.MustCompile(`^[A-Za-z0-9@.+\-_]+$`)
	slugRe     = regexp.MustCompile(`^[-a-zA-Z0-9_]+$`)
)

// ValidationError перечисляет ошибки по полям запроса.
// errors.Is(err, ErrValidation) истинно; при DuplicateUsername истинно
// и errors.Is(err, ErrDuplicateUsername).
type ValidationError struct {
	Fields            map[string]string
	DuplicateUsername bool
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}

	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation || (e.DuplicateUsername && target == ErrDuplicateUsername)
}

// withDuplicateUsername возвращает копию с ошибкой занятого username.
func (e *ValidationError) withDuplicateUsername() *ValidationError {
	fields := make(map[string]string, len(e.Fields)+1)
	for k, v := range e.Fields {
		fields[k] = v
	}
	fields["username"] = duplicateUsernameMsg

	return &ValidationError{Fields: fields, DuplicateUsername: true}
}

func fieldError(field, msg string) error {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

// toValidationError переводит validation.Errors в *ValidationError.
// Внутренние ошибки ozzo (неверное описание правил) возвращаются как есть.
func toValidationError(err error) error {
	if err == nil {
		return nil
	}

	var errs validation.Errors
	if !errors.As(err, &errs) {
		return err
	}

	fields := make(map[string]string, len(errs))
	for k, v := range errs {
		if v != nil {
			fields[k] = v.Error()
		}
	}

	if len(fields) == 0 {
		return nil
	}

	return &ValidationError{Fields: fields}
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
}

// validateRegistration применяет политику учётных данных из конфига.
func (s *Service) validateRegistration(c *credentials) error {
	err := validation.ValidateStruct(c,
		validation.Field(&c.Username,
			validation.Required,
			validation.Length(1, s.cfg.Auth.UsernameMaxLen),
			validation.Match(usernameRe).Error("may contain only letters, digits and @/./+/-/_"),
		),
		validation.Field(&c.Password,
			validation.Required,
			validation.Length(s.cfg.Auth.PasswordMinLen, 0),
			validation.By(maxBytes(maxPasswordBytes)),
			validation.By(notEntirelyNumeric),
			validation.By(notEqualTo(c.Username, "password is too similar to the username")),
		),
		validation.Field(&c.Email, is.Email),
	)

	return toValidationError(err)
}

func maxBytes(n int) validation.RuleFunc {
	return func(value interface{}) error {
		s, _ := value.(string)
		if len(s) > n {
			return fmt.Errorf("must be at most %d bytes", n)
		}
		return nil
	}
}

func notEntirelyNumeric(value interface{}) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}

	for _, r := range s {
		if r < '0' || r > '9' {
			return nil
		}
	}

	return errors.New("password is entirely numeric")
}

func notEqualTo(other, msg string) validation.RuleFunc {
	return func(value interface{}) error {
		s, _ := value.(string)
		if s != "" && strings.EqualFold(s, other) {
			return errors.New(msg)
		}
		return nil
	}
}

func requiredUUID(value interface{}) error {
	id, _ := value.(uuid.UUID)
	if id == uuid.Nil {
		return errors.New("cannot be blank")
	}
	return nil
}

type categoryFields struct {
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
}

func validateCategory(c *categoryFields) error {
	return toValidationError(validation.ValidateStruct(c,
		validation.Field(&c.Name, validation.Required, validation.Length(1, 100)),
		validation.Field(&c.Slug,
			validation.Required,
			validation.Length(1, 100),
			validation.Match(slugRe).Error("must consist of letters, numbers, underscores or hyphens"),
		),
		validation.Field(&c.Description, validation.Length(0, 2000)),
	))
}

type productFields struct {
	CategoryID  uuid.UUID `json:"category"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	PriceCents  int64     `json:"price_cents"`
	Stock       int32     `json:"stock"`
}

func validateProduct(p *productFields) error {
	return toValidationError(validation.ValidateStruct(p,
		validation.Field(&p.CategoryID, validation.By(requiredUUID)),
		validation.Field(&p.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&p.Description, validation.Length(0, 5000)),
		validation.Field(&p.PriceCents, validation.Min(0)),
		validation.Field(&p.Stock, validation.Min(0)),
	))
}
