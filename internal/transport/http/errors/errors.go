// errors стандартизирует ответы об ошибках HTTP-слоя catalog-service.
// На вход принимает ошибку сервисного слоя, на выход даёт:
//   - корректный HTTP-статус;
//   - краткое безопасное message без утечки деталей;
//   - для ошибок валидации — перечень полей.
//
// Ошибки учётных данных и токенов неразличимы для клиента: один код, одно сообщение.
package errors

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"net/http"

	logctx "github.com/pribylovaa/go-ecommerce-catalog/internal/pkg/log"
	"github.com/pribylovaa/go-ecommerce-catalog/internal/service"
)

// Нестандартный код часто используемый для "клиент закрыл соединение".
const StatusClientClosedRequest = 499

// Ошибки транспортного уровня.
var (
	// ErrBadRequest — тело/параметры запроса не разбираются. HTTP 400.
	ErrBadRequest = stderrors.New("bad request")
	// ErrRateLimited — превышен лимит запросов с адреса. HTTP 429.
	ErrRateLimited = stderrors.New("rate limited")
	// ErrRouteNotFound — маршрут не зарегистрирован. HTTP 404.
	ErrRouteNotFound = stderrors.New("route not found")
	// ErrMethodNotAllowed — метод не поддерживается маршрутом. HTTP 405.
	ErrMethodNotAllowed = stderrors.New("method not allowed")
)

// APIError — единый формат для фронта.
// Code — короткий стабильный код для машиночитаемой обработки на FE.
// Message — безопасное человекочитаемое описание.
// RequestID — прокидывается из X-Request-Id, если есть (для трассировки).
// Fields — ошибки по полям (только для invalid_argument).
type APIError struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	RequestID string            `json:"request_id,omitempty"`
	Fields    map[string]string `json:"fields,omitempty"`
}

// ErrorResponse — корневой объект в ответе.
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// ToHTTP конвертирует ошибку сервисного слоя в HTTP-статус и унифицированный ответ.
//
// Поведение:
//   - err == nil — программная ошибка вызова: 500/internal;
//   - *service.ValidationError — 400 с полями;
//   - ErrDuplicateUsername — 400 (поле username);
//   - ErrInvalidCredentials/ErrUnauthorized — 401 с одинаковым телом;
//   - ErrLogoutFailed/ErrNotFound — 404;
//   - ErrConflict — 409;
//   - ErrInvalidCursor/ErrBadRequest — 400;
//   - context.Canceled — 499, context.DeadlineExceeded — 504;
//   - прочее — 500/internal без деталей.
func ToHTTP(err error) (int, ErrorResponse) {
	status, code, msg := base(err)
	resp := ErrorResponse{Error: APIError{Code: code, Message: msg}}

	var ve *service.ValidationError
	if stderrors.As(err, &ve) {
		resp.Error.Fields = ve.Fields
	}

	// Занятый username дополняет ошибки остальных полей, а не заменяет их.
	if stderrors.Is(err, service.ErrDuplicateUsername) {
		if _, ok := resp.Error.Fields["username"]; !ok {
			fields := make(map[string]string, len(resp.Error.Fields)+1)
			for k, v := range resp.Error.Fields {
				fields[k] = v
			}
			fields["username"] = "a user with that username already exists"
			resp.Error.Fields = fields
		}
	}

	return status, resp
}

// WriteError — хелпер для HTTP-хендлеров.
// Пишет корректный статус/тело, добавляет request_id из заголовка, если он есть.
// Внутренние ошибки логируются с деталями; клиенту уходит только "internal error".
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status, resp := ToHTTP(err)

	if status >= http.StatusInternalServerError {
		logctx.From(r.Context()).Error("http_internal_error",
			slog.String("path", r.URL.Path),
			slog.Any("err", err),
		)
	}

	if rid := r.Header.Get("X-Request-Id"); rid != "" {
		resp.Error.RequestID = rid
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

func base(err error) (int, string, string) {
	switch {
	case err == nil:
		return http.StatusInternalServerError, "internal", "internal error"
	case stderrors.Is(err, service.ErrValidation):
		return http.StatusBadRequest, "invalid_argument", "invalid argument"
	case stderrors.Is(err, service.ErrDuplicateUsername):
		return http.StatusBadRequest, "invalid_argument", "invalid argument"
	case stderrors.Is(err, service.ErrInvalidCredentials), stderrors.Is(err, service.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthenticated", "unauthenticated"
	case stderrors.Is(err, service.ErrLogoutFailed), stderrors.Is(err, service.ErrNotFound), stderrors.Is(err, ErrRouteNotFound):
		return http.StatusNotFound, "not_found", "not found"
	case stderrors.Is(err, service.ErrConflict):
		return http.StatusConflict, "already_exists", "already exists"
	case stderrors.Is(err, service.ErrInvalidCursor), stderrors.Is(err, ErrBadRequest):
		return http.StatusBadRequest, "invalid_argument", "invalid argument"
	case stderrors.Is(err, ErrMethodNotAllowed):
		return http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed"
	case stderrors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, "resource_exhausted", "too many requests"
	case stderrors.Is(err, context.Canceled):
		return StatusClientClosedRequest, "canceled", "canceled"
	case stderrors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "deadline_exceeded", "deadline exceeded"
	default:
		return http.StatusInternalServerError, "internal", "internal error"
	}
}
