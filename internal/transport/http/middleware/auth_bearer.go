package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	logctx "github.com/pribylovaa/go-ecommerce-catalog/internal/pkg/log"
	"github.com/pribylovaa/go-ecommerce-catalog/internal/service"
	apierrors "github.com/pribylovaa/go-ecommerce-catalog/internal/transport/http/errors"
)

// Authenticator проверяет access-токен. Реализуется *service.Service.
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (uuid.UUID, error)
}

// AuthBearer извлекает Bearer-токен из Authorization и кладёт "сырой" токен в контекст.
// Проверку токена выполняет RequireAuth.
func AuthBearer() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")

			if auth != "" {
				const prefix = "Bearer "
				if len(auth) > len(prefix) && strings.EqualFold(auth[:len(prefix)], prefix) {
					token := strings.TrimSpace(auth[len(prefix):])

					if token != "" {
						ctx := context.WithValue(r.Context(), ctxAuthToken, token)
						r = r.WithContext(ctx)
					}
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAuth пропускает запрос только с действительным access-токеном
// и кладёт идентификатор пользователя в контекст (см. UserIDFrom).
func RequireAuth(a Authenticator) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := BearerTokenFrom(r.Context())
			if token == "" {
				apierrors.WriteError(w, r, service.ErrUnauthorized)
				return
			}

			uid, err := a.Authenticate(r.Context(), token)
			if err != nil {
				apierrors.WriteError(w, r, err)
				return
			}

			ctx := context.WithValue(r.Context(), ctxUserID, uid)
			ctx = logctx.With(ctx, slog.String("user_id", uid.String()))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
