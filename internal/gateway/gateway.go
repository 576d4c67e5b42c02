// internal/gateway/gateway.go

// Package gateway is the public edge in front of the circulation service.
package gateway

import (
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/time/rate"

	"libracirc/internal/platform/logger"
)

// Options configures the gateway router.
type Options struct {
	CirculationURL *url.URL
	AllowedOrigins []string
	// RPS caps accepted requests per second across all clients; zero disables limiting.
	RPS   float64
	Burst int
}

// NewRouter proxies /api/v1/circulation/* to the circulation service.
func NewRouter(opt Options) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logger.AccessLog)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: opt.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}))
	if opt.RPS > 0 {
		r.Use(RateLimit(rate.NewLimiter(rate.Limit(opt.RPS), max(opt.Burst, 1))))
	}

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("OK"))
	})

	proxy := httputil.NewSingleHostReverseProxy(opt.CirculationURL)
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		logger.C(r.Context()).Error().Err(err).Str("upstream", opt.CirculationURL.Host).Msg("proxy request failed")
		http.Error(w, "circulation service unavailable", http.StatusBadGateway)
	}
	r.Handle("/api/v1/circulation/*", http.StripPrefix("/api/v1", forwardRequestID(proxy)))
	return r
}

// RateLimit rejects requests with 429 once the limiter runs dry.
func RateLimit(l *rate.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.Allow() {
				w.Header().Set("Retry-After", "1")
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func forwardRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := middleware.GetReqID(r.Context()); id != "" && strings.TrimSpace(r.Header.Get(middleware.RequestIDHeader)) == "" {
			r.Header.Set(middleware.RequestIDHeader, id)
		}
		next.ServeHTTP(w, r)
	})
}
