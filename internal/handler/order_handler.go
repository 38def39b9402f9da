package handler

import (
	"net/http"
	"strconv"

	"canteen/internal/config"
	"canteen/internal/domain/model"
	"canteen/internal/middleware"
	"canteen/internal/usecase"
	"canteen/internal/validator"

	"github.com/labstack/echo/v4"
)

type OrderHandler struct {
	uc *usecase.OrderUsecase
}

func NewOrderHandler(uc *usecase.OrderUsecase) *OrderHandler {
	return &OrderHandler{uc: uc}
}

type OrderLineRequest struct {
	MenuItemID string `json:"menuItemId" validate:"required,max=64"`
	Quantity   int64  `json:"quantity" validate:"required,min=1,max=1000"`
}

type OrderCreateRequest struct {
	Items        []OrderLineRequest `json:"items" validate:"required,min=1,dive"`
	PickupTime   string             `json:"pickupTime" validate:"required,utcinstant"`
	SpecialInstr *string            `json:"specialInstr" validate:"omitempty,max=500"`
}

// 省略した項目は変更しない
type OrderUpdateRequest struct {
	Items        []OrderLineRequest `json:"items" validate:"omitempty,min=1,dive"`
	PickupTime   *string            `json:"pickupTime" validate:"omitempty,utcinstant"`
	SpecialInstr *string            `json:"specialInstr" validate:"omitempty,max=500"`
}

func (h *OrderHandler) RegisterRoutes(e *echo.Echo, cfg config.Config) {
	g := e.Group("/orders")
	g.Use(middleware.AuthJWT(cfg))

	studentOnly := middleware.RequireRole(model.RoleStudent)
	g.POST("", h.create, studentOnly)
	g.GET("/user/history", h.history, studentOnly)

	//詳細・編集・キャンセルは学生（自分の注文のみ）と管理者
	g.GET("/:id", h.detail)
	g.PUT("/:id", h.update)
	g.DELETE("/:id", h.cancel)
}

func (h *OrderHandler) create(c echo.Context) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}

	var req OrderCreateRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	if err := c.Validate(&req); err != nil {
		return validationFailed(c, err)
	}

	out, err := h.uc.PlaceOrder(c.Request().Context(), actor, usecase.PlaceOrderInput{
		Items:        toLineInputs(req.Items),
		PickupTime:   req.PickupTime,
		SpecialInstr: req.SpecialInstr,
	})
	if err != nil {
		return writeError(c, err)
	}

	return respondOK(c, http.StatusCreated, "Order placed successfully", out)
}

func (h *OrderHandler) history(c echo.Context) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}

	page, limit, err := parsePaging(c)
	if err != nil {
		return fail(c, http.StatusBadRequest, err.Error())
	}

	out, err := h.uc.ListMyOrders(c.Request().Context(), actor, page, limit)
	if err != nil {
		return writeError(c, err)
	}
	return writeOrderList(c, out)
}

func (h *OrderHandler) detail(c echo.Context) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}

	out, err := h.uc.GetOrder(c.Request().Context(), actor, model.OrderID(c.Param("id")))
	if err != nil {
		return writeError(c, err)
	}
	return respondOK(c, http.StatusOK, "", out)
}

func (h *OrderHandler) update(c echo.Context) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}

	var req OrderUpdateRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	if err := c.Validate(&req); err != nil {
		return validationFailed(c, err)
	}

	out, err := h.uc.UpdateOrder(c.Request().Context(), actor, model.OrderID(c.Param("id")), usecase.UpdateOrderInput{
		Items:        toLineInputs(req.Items),
		PickupTime:   req.PickupTime,
		SpecialInstr: req.SpecialInstr,
	})
	if err != nil {
		return writeError(c, err)
	}
	return respondOK(c, http.StatusOK, "Order updated successfully", out)
}

func (h *OrderHandler) cancel(c echo.Context) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}

	out, err := h.uc.CancelOrder(c.Request().Context(), actor, model.OrderID(c.Param("id")))
	if err != nil {
		return writeError(c, err)
	}
	return respondOK(c, http.StatusOK, "Order canceled successfully", out)
}

func toLineInputs(reqs []OrderLineRequest) []usecase.OrderLineInput {
	if reqs == nil {
		return nil
	}
	lines := make([]usecase.OrderLineInput, 0, len(reqs))
	for _, r := range reqs {
		lines = append(lines, usecase.OrderLineInput{MenuItemID: r.MenuItemID, Quantity: r.Quantity})
	}
	return lines
}

const (
	defaultPage  = 1
	defaultLimit = 10
)

// page/limitの形式だけ見る。範囲チェックはusecase
func parsePaging(c echo.Context) (int, int, error) {
	page := defaultPage
	if v := c.QueryParam("page"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return 0, 0, errInvalidQuery("page")
		}
		page = p
	}

	limit := defaultLimit
	if v := c.QueryParam("limit"); v != "" {
		l, err := strconv.Atoi(v)
		if err != nil {
			return 0, 0, errInvalidQuery("limit")
		}
		limit = l
	}
	return page, limit, nil
}

type errInvalidQuery string

func (e errInvalidQuery) Error() string { return "invalid " + string(e) }

func writeOrderList(c echo.Context, out usecase.OrderListOutput) error {
	return c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    out.Orders,
		Pagination: &Pagination{
			CurrentPage: out.Page,
			TotalPages:  out.TotalPages,
			TotalItems:  out.Total,
		},
	})
}

func validationFailed(c echo.Context, err error) error {
	return c.JSON(http.StatusUnprocessableEntity, Response{
		Success: false,
		Message: "validation failed",
		Error:   usecase.KindInvalidInput.String(),
		Errors:  validator.Messages(err),
	})
}
