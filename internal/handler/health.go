package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

const serviceVersion = "1.0.0"

type pinger interface {
	PingContext(ctx context.Context) error
}

type HealthHandler struct {
	db  pinger
	now func() time.Time
}

func NewHealthHandler(db pinger) *HealthHandler {
	return &HealthHandler{db: db, now: time.Now}
}

type healthResponse struct {
	Status    string            `json:"status"`
	Service   string            `json:"service"`
	Version   string            `json:"version,omitempty"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	RespondJSON(w, http.StatusOK, healthResponse{
		Status:    "ok",
		Service:   "scanpay-api",
		Version:   serviceVersion,
		Timestamp: h.now().UTC().Format(time.RFC3339),
	})
}

// Readiness reports 503 while the database is unreachable.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status, dbStatus, code := "ok", "ok", http.StatusOK
	if err := h.db.PingContext(ctx); err != nil {
		slog.Warn("readiness check failed: database unreachable", "error", err)
		status, dbStatus, code = "down", "down", http.StatusServiceUnavailable
	}

	RespondJSON(w, code, healthResponse{
		Status:    status,
		Service:   "scanpay-api",
		Timestamp: h.now().UTC().Format(time.RFC3339),
		Checks:    map[string]string{"database": dbStatus},
	})
}
