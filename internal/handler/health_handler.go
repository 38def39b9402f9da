package handler

import (
	"context"
	"net/http"
	"time"

	"canteen/internal/config"

	"github.com/labstack/echo/v4"
)

// Pinger はストアの疎通確認。
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	store Pinger
}

func NewHealthHandler(store Pinger) *HealthHandler {
	return &HealthHandler{store: store}
}

func (h *HealthHandler) RegisterRoutes(e *echo.Echo, _ config.Config) {
	e.GET("/healthz", h.healthz)
}

func (h *HealthHandler) healthz(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		c.Logger().Warnf("healthz: %v", err)
		return fail(c, http.StatusServiceUnavailable, "store unavailable")
	}
	return respondOK(c, http.StatusOK, "ok", nil)
}
