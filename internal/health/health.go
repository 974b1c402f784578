// Package health exposes liveness and readiness probes.
package health

import (
	"context"
	"net/http"
	"time"
)

// Pinger reports whether a dependency answers. *redisstore.Client implements
// it.
type Pinger interface {
	Ping(ctx context.Context) error
}

func Liveness() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}

// Readiness answers 200 when every given dependency pings within the timeout.
// A nil Pinger is skipped, so optional dependencies can be passed as-is.
func Readiness(timeout time.Duration, deps ...Pinger) http.HandlerFunc {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		for _, d := range deps {
			if d == nil {
				continue
			}
			if err := d.Ping(ctx); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte("unavailable: " + err.Error()))
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	}
}
