package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	logctx "github.com/pribylovaa/go-ecommerce-catalog/internal/pkg/log"
	apierrors "github.com/pribylovaa/go-ecommerce-catalog/internal/transport/http/errors"
)

// DefaultLimiterIdle — через сколько без запросов лимитер клиента удаляется из реестра.
const DefaultLimiterIdle = 10 * time.Minute

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// LimiterRegistry хранит по одному *rate.Limiter на клиентский адрес.
// Простаивающие дольше idle записи вычищаются при обращениях к реестру.
type LimiterRegistry struct {
	mu        sync.Mutex
	limiters  map[string]*limiterEntry
	rps       rate.Limit
	burst     int
	idle      time.Duration
	lastSweep time.Time
	now       func() time.Time
}

// NewLimiterRegistry создаёт реестр лимитеров с заданными rps и burst.
// burst < 1 приводится к 1.
func NewLimiterRegistry(rps float64, burst int) *LimiterRegistry {
	if burst < 1 {
		burst = 1
	}

	return &LimiterRegistry{
		limiters: make(map[string]*limiterEntry),
		rps:      rate.Limit(rps),
		burst:    burst,
		idle:     DefaultLimiterIdle,
		now:      time.Now,
	}
}

// GetOrCreate возвращает лимитер для ключа, создавая его при первом обращении.
func (r *LimiterRegistry) GetOrCreate(key string) *rate.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if now.Sub(r.lastSweep) >= r.idle {
		r.sweepLocked(now)
	}

	e, ok := r.limiters[key]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(r.rps, r.burst)}
		r.limiters[key] = e
	}
	e.lastSeen = now

	return e.limiter
}

// Sweep удаляет лимитеры, к которым не обращались дольше idle. Возвращает число удалённых.
func (r *LimiterRegistry) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.sweepLocked(r.now())
}

func (r *LimiterRegistry) sweepLocked(now time.Time) int {
	r.lastSweep = now

	n := 0
	for k, e := range r.limiters {
		if now.Sub(e.lastSeen) > r.idle {
			delete(r.limiters, k)
			n++
		}
	}

	return n
}

// Len — число известных клиентов.
func (r *LimiterRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.limiters)
}

// RateLimitOptions — параметры ограничения частоты.
type RateLimitOptions struct {
	// RPS <= 0 выключает ограничение.
	RPS   float64
	Burst int
	// TrustProxy — брать адрес клиента из X-Forwarded-For/X-Real-IP.
	// Включать только за доверенным прокси, иначе заголовок подделывается.
	TrustProxy bool
}

// RateLimit ограничивает частоту запросов с одного IP.
// При превышении — 429 с Retry-After.
func RateLimit(opts RateLimitOptions) Middleware {
	if opts.RPS <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}

	// Реестр общий для всех обработчиков, обёрнутых этим мидлваром.
	reg := NewLimiterRegistry(opts.RPS, opts.Burst)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r, opts.TrustProxy)

			if !reg.GetOrCreate(ip).Allow() {
				logctx.From(r.Context()).Warn("rate_limited",
					slog.String("path", r.URL.Path),
					slog.String("ip", ip),
				)

				w.Header().Set("Retry-After", "1")
				apierrors.WriteError(w, r, apierrors.ErrRateLimited)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientIP возвращает хост из RemoteAddr.
// При trustProxy: X-Forwarded-For (первый адрес) -> X-Real-IP -> RemoteAddr.
func clientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			if first = strings.TrimSpace(first); first != "" {
				return first
			}
		}

		if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
			return xri
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}

	return host
}
