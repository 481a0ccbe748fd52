// Package health serves the liveness endpoint.
package health

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"
)

// Checker verifies that an infrastructure dependency is reachable.
type Checker interface {
	Check(ctx context.Context) error
}

// Gauge reports a live count, e.g. connected clients.
type Gauge func() int

const checkTimeout = 3 * time.Second

type Handler struct {
	checks map[string]Checker
	gauges map[string]Gauge
	logger *slog.Logger
}

func NewHandler(logger *slog.Logger, checks map[string]Checker) *Handler {
	return &Handler{checks: checks, gauges: map[string]Gauge{}, logger: logger}
}

// WithGauge adds a named count to every response.
func (h *Handler) WithGauge(name string, g Gauge) *Handler {
	h.gauges[name] = g
	return h
}

func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.check)
	return r
}

// Response is the body of GET /healthz.
type Response struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
	Gauges map[string]int    `json:"gauges,omitempty"`
}

func (h *Handler) check(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
	defer cancel()

	resp := Response{Status: "ok", Checks: make(map[string]string, len(h.checks))}
	var mu sync.Mutex
	var g errgroup.Group
	for name, c := range h.checks {
		g.Go(func() error {
			status := "ok"
			if err := c.Check(ctx); err != nil {
				h.logger.Error("health check failed", "name", name, "error", err)
				status = "error"
			}
			mu.Lock()
			defer mu.Unlock()
			resp.Checks[name] = status
			if status != "ok" {
				resp.Status = "error"
			}
			return nil
		})
	}
	g.Wait()

	if len(h.gauges) > 0 {
		resp.Gauges = make(map[string]int, len(h.gauges))
		for name, gauge := range h.gauges {
			resp.Gauges[name] = gauge()
		}
	}

	code := http.StatusOK
	if resp.Status != "ok" {
		code = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(resp)
}
