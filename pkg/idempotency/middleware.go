package idempotency

import (
	"context"
	"log/slog"
	"net/http"
)

const Header = "Idempotency-Key"

type Checker interface {
	Key(scope, key string) string
	Seen(ctx context.Context, key string) (bool, error)
	Forget(ctx context.Context, key string) error
}

// ScopeFunc names the namespace a request's key is claimed in.
type ScopeFunc func(r *http.Request) string

// Scope is a ScopeFunc that puts every request in one namespace.
func Scope(name string) ScopeFunc {
	return func(*http.Request) string { return name }
}

// Middleware rejects a repeated Idempotency-Key within a scope with 409.
// Requests without the header pass through, as do all requests when the
// checker errors. A key whose request failed is released.
func Middleware(log *slog.Logger, c Checker, scope ScopeFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := r.Header.Get(Header)
			if raw == "" {
				next.ServeHTTP(w, r)
				return
			}
			key := c.Key(scope(r), raw)
			seen, err := c.Seen(r.Context(), key)
			if err != nil {
				log.Error("idempotency check failed", "key", key, "err", err)
				next.ServeHTTP(w, r)
				return
			}
			if seen {
				log.Info("duplicate request rejected", "key", key)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusConflict)
				_, _ = w.Write([]byte(`{"error":"duplicate request"}`))
				return
			}

			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			if rec.status >= http.StatusBadRequest {
				if err := c.Forget(r.Context(), key); err != nil {
					log.Error("idempotency release failed", "key", key, "err", err)
				}
			}
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
