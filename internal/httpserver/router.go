// Package httpserver exposes the liveness route and the signal webhook.
package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"titan-bot/internal/execution"
	"titan-bot/internal/signal"
)

// Executor runs one decoded signal.
type Executor interface {
	Execute(ctx context.Context, sig signal.Signal) (execution.Outcome, error)
}

// RouterDeps carries what the routes need.
type RouterDeps struct {
	Executor Executor
	Log      zerolog.Logger
	// RateLimit is webhook requests per second per client IP; zero disables it.
	RateLimit    float64
	RateBurst    int
	MaxBodyBytes int64
}

// NewRouter mounts GET / and POST /webhook behind the shared middleware.
func NewRouter(d RouterDeps) http.Handler {
	h := &Handler{exec: d.Executor, maxBody: d.MaxBodyBytes}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(hlog.NewHandler(d.Log))
	r.Use(requestIDLogger)
	r.Use(hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("ip", r.RemoteAddr).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("request")
	}))
	r.Use(Recoverer)
	r.Use(SecurityHeaders)

	r.Get("/", h.Health)
	r.With(RateLimit(d.RateLimit, d.RateBurst)).Post("/webhook", h.Webhook)
	return r
}

// requestIDLogger tags the request logger with chi's request id.
func requestIDLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := middleware.GetReqID(r.Context()); id != "" {
			hlog.FromRequest(r).UpdateContext(func(c zerolog.Context) zerolog.Context {
				return c.Str("req_id", id)
			})
		}
		next.ServeHTTP(w, r)
	})
}
