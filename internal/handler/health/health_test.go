package health_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/playperu/harvest/internal/handler/health"
)

type mockChecker struct{ err error }

func (m mockChecker) Check(_ context.Context) error { return m.err }

func TestHandler(t *testing.T) {
	tests := []struct {
		name       string
		checks     map[string]health.Checker
		wantStatus int
		wantChecks map[string]string
	}{
		{
			name:       "store healthy",
			checks:     map[string]health.Checker{"store": mockChecker{}},
			wantStatus: http.StatusOK,
			wantChecks: map[string]string{"store": "ok"},
		},
		{
			name:       "store down",
			checks:     map[string]health.Checker{"store": mockChecker{err: errors.New("refused")}},
			wantStatus: http.StatusServiceUnavailable,
			wantChecks: map[string]string{"store": "error"},
		},
		{
			name: "one of two down",
			checks: map[string]health.Checker{
				"store":  mockChecker{},
				"bucket": mockChecker{err: errors.New("forbidden")},
			},
			wantStatus: http.StatusServiceUnavailable,
			wantChecks: map[string]string{"store": "ok", "bucket": "error"},
		},
		{
			name:       "no checks",
			checks:     map[string]health.Checker{},
			wantStatus: http.StatusOK,
			wantChecks: map[string]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := health.NewHandler(slog.Default(), tt.checks)

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			rec := httptest.NewRecorder()
			h.Routes().ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}

			var body health.Response
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("decoding response: %v", err)
			}
			if len(body.Checks) != len(tt.wantChecks) {
				t.Errorf("checks = %v, want %v", body.Checks, tt.wantChecks)
			}
			for name, want := range tt.wantChecks {
				if got := body.Checks[name]; got != want {
					t.Errorf("%s = %q, want %q", name, got, want)
				}
			}
		})
	}
}

func TestHandlerGauges(t *testing.T) {
	h := health.NewHandler(slog.Default(), nil).WithGauge("subscribers", func() int { return 4 })

	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	var body health.Response
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if body.Gauges["subscribers"] != 4 {
		t.Errorf("gauges = %v", body.Gauges)
	}
}
