package server

import (
	"canteen/internal/config"

	"github.com/labstack/echo/v4"
)

// RouteRegistrar は各handlerのRegisterRoutes。
type RouteRegistrar interface {
	RegisterRoutes(e *echo.Echo, cfg config.Config)
}

func RegisterRoutes(e *echo.Echo, cfg config.Config, handlers ...RouteRegistrar) {
	for _, h := range handlers {
		h.RegisterRoutes(e, cfg)
	}
}
