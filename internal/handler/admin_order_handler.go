package handler

import (
	"net/http"

	"canteen/internal/config"
	"canteen/internal/domain/model"
	"canteen/internal/middleware"
	"canteen/internal/usecase"

	"github.com/labstack/echo/v4"
)

type AdminOrderHandler struct {
	uc *usecase.AdminOrderUsecase
}

func NewAdminOrderHandler(uc *usecase.AdminOrderUsecase) *AdminOrderHandler {
	return &AdminOrderHandler{uc: uc}
}

type OrderStatusUpdateRequest struct {
	Status string `json:"status" validate:"required"`
}

func (h *AdminOrderHandler) RegisterRoutes(e *echo.Echo, cfg config.Config) {
	admin := e.Group("/admin")
	admin.Use(middleware.AuthJWT(cfg))
	admin.Use(middleware.AdminRoleGuard())

	admin.GET("/orders/all", h.list)
	admin.PATCH("/orders/:id/status", h.updateStatus)
	admin.GET("/orders/:id/audit", h.audit)
}

func (h *AdminOrderHandler) list(c echo.Context) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}

	page, limit, err := parsePaging(c)
	if err != nil {
		return fail(c, http.StatusBadRequest, err.Error())
	}

	out, err := h.uc.List(c.Request().Context(), actor, usecase.AdminListOrdersInput{
		Page:   page,
		Limit:  limit,
		Status: c.QueryParam("status"),
	})
	if err != nil {
		return writeError(c, err)
	}
	return writeOrderList(c, out)
}

func (h *AdminOrderHandler) updateStatus(c echo.Context) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}

	var req OrderStatusUpdateRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	if err := c.Validate(&req); err != nil {
		return validationFailed(c, err)
	}

	out, err := h.uc.UpdateStatus(c.Request().Context(), actor, model.OrderID(c.Param("id")), usecase.AdminUpdateOrderStatusInput{
		Status: req.Status,
	})
	if err != nil {
		return writeError(c, err)
	}
	return respondOK(c, http.StatusOK, "Order status updated to "+out.Status, out)
}

func (h *AdminOrderHandler) audit(c echo.Context) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}

	out, err := h.uc.AuditTrail(c.Request().Context(), actor, model.OrderID(c.Param("id")))
	if err != nil {
		return writeError(c, err)
	}
	return respondOK(c, http.StatusOK, "", out)
}
