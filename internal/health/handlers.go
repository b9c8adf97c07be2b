// Package health exposes liveness and readiness probes.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// Checker probes the dependencies readiness is gated on.
type Checker interface {
	PingDB(ctx context.Context, timeout time.Duration) error
	PingRedis(ctx context.Context, timeout time.Duration) error
}

// Handler serves the probe endpoints.
type Handler struct {
	Checker      Checker
	DBTimeout    time.Duration
	RedisTimeout time.Duration
}

// Live answers as long as the process is running.
func (h Handler) Live(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Ready probes both stores. The billing counter cannot commit sales without
// Postgres, and loses crash recovery without Redis, so both gate readiness.
func (h Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.Checker == nil {
		http.Error(w, "dependencies unavailable", http.StatusServiceUnavailable)
		return
	}

	probe := func(err error) string {
		if err != nil {
			return err.Error()
		}
		return "ok"
	}
	status := map[string]string{
		"postgres": probe(h.Checker.PingDB(r.Context(), orDefault(h.DBTimeout, 500*time.Millisecond))),
		"redis":    probe(h.Checker.PingRedis(r.Context(), orDefault(h.RedisTimeout, 300*time.Millisecond))),
	}

	code := http.StatusOK
	if status["postgres"] != "ok" || status["redis"] != "ok" {
		code = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(status)
}

func orDefault(d, fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}
	return d
}
