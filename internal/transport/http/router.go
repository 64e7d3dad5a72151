package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	apierrors "github.com/pribylovaa/go-ecommerce-catalog/internal/transport/http/errors"
	"github.com/pribylovaa/go-ecommerce-catalog/internal/transport/http/handlers"
	"github.com/pribylovaa/go-ecommerce-catalog/internal/transport/http/middleware"
)

// Service — всё, что роутеру нужно от сервисного слоя.
type Service interface {
	handlers.Service
	middleware.Authenticator
}

// Options — параметры сборки HTTP-роутера.
type Options struct {
	Logger  *slog.Logger
	Timeout time.Duration
	// RateLimitRPS/RateLimitBurst — лимит на эндпойнты учётных данных с одного IP.
	// RPS <= 0 выключает ограничение.
	RateLimitRPS   float64
	RateLimitBurst int
	// TrustProxy — адрес клиента из X-Forwarded-For/X-Real-IP (только за доверенным прокси).
	TrustProxy bool
	// Registerer для HTTP-метрик; nil — prometheus.DefaultRegisterer.
	Registerer prometheus.Registerer
}

// NewRouter собирает http.Handler с chi и подключёнными middleware/роутами.
func NewRouter(svc Service, opts Options) http.Handler {
	root := chi.NewRouter()

	// Middleware (внешний -> внутренний).
	root.Use(
		middleware.Recover(),                // безопасно ловим паники
		middleware.RequestID(),              // формируем/прокидываем X-Request-Id (до логирования!)
		middleware.Logging(opts.Logger),     // кладём request-scoped логгер в контекст и логируем
		middleware.Metrics(opts.Registerer), // счётчики и гистограмма по шаблону маршрута
		chimw.StripSlashes,                  // "/api/login/" и "/api/login" — один маршрут
		middleware.AuthBearer(),             // вынимаем Bearer токен в контекст
		middleware.Timeout(opts.Timeout),    // общий дедлайн запроса
	)

	root.NotFound(func(w http.ResponseWriter, r *http.Request) {
		apierrors.WriteError(w, r, apierrors.ErrRouteNotFound)
	})
	root.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		apierrors.WriteError(w, r, apierrors.ErrMethodNotAllowed)
	})

	h := handlers.New(svc)
	root.Route("/api", func(r chi.Router) {
		registerRoutes(r, h, svc, opts)
	})

	return root
}

// registerRoutes — единая точка регистрации всех REST-эндпойнтов.
func registerRoutes(r chi.Router, h *handlers.Handlers, auth middleware.Authenticator, opts Options) {
	throttle := middleware.RateLimit(middleware.RateLimitOptions{
		RPS:        opts.RateLimitRPS,
		Burst:      opts.RateLimitBurst,
		TrustProxy: opts.TrustProxy,
	})
	requireAuth := middleware.RequireAuth(auth)

	r.Get("/", h.APIRoot)

	// auth
	r.With(throttle).Post("/register", h.Register)
	r.With(throttle).Post("/login", h.Login)
	r.With(throttle).Post("/token/refresh", h.Refresh)
	r.With(requireAuth).Post("/logout", h.Logout)

	// categories: чтение публичное, запись — по access-токену.
	r.Get("/categories", h.ListCategories)
	r.Get("/categories/{id}", h.GetCategory)
	r.Group(func(r chi.Router) {
		r.Use(requireAuth)
		r.Post("/categories", h.CreateCategory)
		r.Put("/categories/{id}", h.UpdateCategory)
		r.Patch("/categories/{id}", h.UpdateCategory)
		r.Delete("/categories/{id}", h.DeleteCategory)
	})

	// products
	r.Get("/products", h.ListProducts)
	r.Get("/products/{id}", h.GetProduct)
	r.Group(func(r chi.Router) {
		r.Use(requireAuth)
		r.Post("/products", h.CreateProduct)
		r.Put("/products/{id}", h.UpdateProduct)
		r.Patch("/products/{id}", h.UpdateProduct)
		r.Delete("/products/{id}", h.DeleteProduct)
	})
}
