package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves the liveness and readiness probes.
type HealthHandler struct {
	store     Pinger
	storeName string
}

func NewHealthHandler(store Pinger, storeName string) *HealthHandler {
	return &HealthHandler{store: store, storeName: storeName}
}

// Liveness handles GET /health. Returns 200 immediately; confirms the process is alive.
func (h *HealthHandler) Liveness(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}

type dependencyStatus struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type readinessResponse struct {
	Status       string                      `json:"status"`
	Dependencies map[string]dependencyStatus `json:"dependencies"`
}

// Readiness handles GET /health/ready. It pings the identity store.
func (h *HealthHandler) Readiness(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	deps := make(map[string]dependencyStatus, 1)
	status, httpStatus := "ok", http.StatusOK

	if err := h.store.Ping(ctx); err != nil {
		deps[h.storeName] = dependencyStatus{Status: "unhealthy", Error: err.Error()}
		status, httpStatus = "degraded", http.StatusServiceUnavailable
	} else {
		deps[h.storeName] = dependencyStatus{Status: "ok"}
	}

	return c.JSON(httpStatus, readinessResponse{
		Status:       status,
		Dependencies: deps,
	})
}
