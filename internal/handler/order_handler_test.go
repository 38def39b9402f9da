package handler_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"canteen/internal/config"
	"canteen/internal/domain/model"
	"canteen/internal/handler"
	"canteen/internal/infra/memory"
	"canteen/internal/server"
	"canteen/internal/usecase"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =====================
// helper
// =====================

const testSecret = "test-secret"

type uuidGen struct{}

func (uuidGen) NewID() string { return uuid.NewString() }

type wallClock struct{}

func (wallClock) Now() time.Time { return time.Now().UTC() }

type envelope struct {
	Success    bool                `json:"success"`
	Message    string              `json:"message"`
	Data       json.RawMessage     `json:"data"`
	Error      string              `json:"error"`
	Errors     []string            `json:"errors"`
	Pagination *handler.Pagination `json:"pagination"`
}

func newTestServer(t *testing.T) *echo.Echo {
	t.Helper()

	cfg := config.Config{JWTSecret: testSecret, LogLevel: "error"}
	store := memory.NewStore()
	menu := memory.NewMenu(
		model.MenuItem{ID: "M1", Name: "Curry Rice", Price: decimal.RequireFromString("5.00"), Available: true},
		model.MenuItem{ID: "M2", Name: "Kake Udon", Price: decimal.RequireFromString("3.50"), Available: true},
		model.MenuItem{ID: "M3", Name: "Seasonal Soup", Price: decimal.RequireFromString("2.00"), Available: false},
	)

	return server.New(cfg,
		handler.NewHealthHandler(store),
		handler.NewOrderHandler(usecase.NewOrderUsecase(store, menu, uuidGen{}, wallClock{})),
		handler.NewAdminOrderHandler(usecase.NewAdminOrderUsecase(store, wallClock{})),
	)
}

func token(t *testing.T, sub string, role string) string {
	t.Helper()

	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  sub,
		"role": role,
		"exp":  time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return s
}

func do(t *testing.T, e *echo.Echo, method, path, tok, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if tok != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+tok)
	}

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	var env envelope
	_ = json.Unmarshal(rec.Body.Bytes(), &env)
	return rec, env
}

func decodeOrder(t *testing.T, env envelope) usecase.OrderOutput {
	t.Helper()
	var o usecase.OrderOutput
	require.NoError(t, json.Unmarshal(env.Data, &o))
	return o
}

const createBody = `{"items":[{"menuItemId":"M1","quantity":2},{"menuItemId":"M2","quantity":1}],"pickupTime":"2025-11-17T10:30:00Z","specialInstr":"no onions"}`

func createOrder(t *testing.T, e *echo.Echo, tok string) usecase.OrderOutput {
	t.Helper()
	rec, env := do(t, e, http.MethodPost, "/orders", tok, createBody)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decodeOrder(t, env)
}

// =====================
// /orders
// =====================

func TestOrderHandler_Create(t *testing.T) {
	e := newTestServer(t)
	stu := token(t, "stu-1", "student")

	rec, env := do(t, e, http.MethodPost, "/orders", stu, createBody)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.True(t, env.Success)
	assert.Equal(t, "Order placed successfully", env.Message)

	o := decodeOrder(t, env)
	assert.Equal(t, "13.50", o.TotalAmount)
	assert.Equal(t, "placed", o.Status)
	assert.Equal(t, "no onions", o.SpecialInstr)
	assert.Nil(t, o.Items)
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))
}

func TestOrderHandler_Create_Errors(t *testing.T) {
	e := newTestServer(t)
	stu := token(t, "stu-1", "student")

	cases := []struct {
		name   string
		tok    string
		body   string
		status int
	}{
		{"no token", "", createBody, http.StatusUnauthorized},
		{"admin cannot order", token(t, "adm-1", "admin"), createBody, http.StatusForbidden},
		{"malformed json", stu, `{"items":`, http.StatusBadRequest},
		{"missing items", stu, `{"pickupTime":"2025-11-17T10:30:00Z"}`, http.StatusUnprocessableEntity},
		{"zero quantity", stu, `{"items":[{"menuItemId":"M1","quantity":0}],"pickupTime":"2025-11-17T10:30:00Z"}`, http.StatusUnprocessableEntity},
		{"offset pickup", stu, `{"items":[{"menuItemId":"M1","quantity":1}],"pickupTime":"2025-11-17T10:30:00+09:00"}`, http.StatusUnprocessableEntity},
		{"impossible date", stu, `{"items":[{"menuItemId":"M1","quantity":1}],"pickupTime":"2025-02-30T10:30:00Z"}`, http.StatusBadRequest},
		{"unknown item", stu, `{"items":[{"menuItemId":"NOPE","quantity":1}],"pickupTime":"2025-11-17T10:30:00Z"}`, http.StatusNotFound},
		{"unavailable item", stu, `{"items":[{"menuItemId":"M3","quantity":1}],"pickupTime":"2025-11-17T10:30:00Z"}`, http.StatusBadRequest},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec, env := do(t, e, http.MethodPost, "/orders", tc.tok, tc.body)
			assert.Equal(t, tc.status, rec.Code, rec.Body.String())
			assert.False(t, env.Success)
		})
	}
}

// 422ではフィールドごとのメッセージを返す
func TestOrderHandler_Create_ValidationMessages(t *testing.T) {
	e := newTestServer(t)
	stu := token(t, "stu-1", "student")

	rec, env := do(t, e, http.MethodPost, "/orders", stu, `{"items":[{"menuItemId":"","quantity":1}],"pickupTime":"tomorrow"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	joined := strings.Join(env.Errors, "\n")
	assert.Contains(t, joined, "items[0].menuItemId is required")
	assert.Contains(t, joined, "pickupTime must be ISO 8601 UTC")
}

func TestOrderHandler_Detail_Authorization(t *testing.T) {
	e := newTestServer(t)
	o := createOrder(t, e, token(t, "stu-1", "student"))

	rec, env := do(t, e, http.MethodGet, "/orders/"+o.ID, token(t, "stu-2", "student"), "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, env.Data)

	rec, env = do(t, e, http.MethodGet, "/orders/"+o.ID, token(t, "adm-1", "admin"), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeOrder(t, env).Items, 2)

	rec, _ = do(t, e, http.MethodGet, "/orders/"+uuid.NewString(), token(t, "stu-1", "student"), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOrderHandler_History(t *testing.T) {
	e := newTestServer(t)
	stu := token(t, "stu-1", "student")
	createOrder(t, e, stu)
	createOrder(t, e, stu)
	createOrder(t, e, token(t, "stu-2", "student"))

	rec, env := do(t, e, http.MethodGet, "/orders/user/history?page=1&limit=1", stu, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, env.Pagination)
	assert.Equal(t, 1, env.Pagination.CurrentPage)
	assert.Equal(t, 2, env.Pagination.TotalPages)
	assert.Equal(t, int64(2), env.Pagination.TotalItems)

	rec, _ = do(t, e, http.MethodGet, "/orders/user/history?page=abc", stu, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = do(t, e, http.MethodGet, "/orders/user/history", token(t, "adm-1", "admin"), "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestOrderHandler_UpdateAndCancel(t *testing.T) {
	e := newTestServer(t)
	stu := token(t, "stu-1", "student")
	adm := token(t, "adm-1", "admin")
	o := createOrder(t, e, stu)

	rec, env := do(t, e, http.MethodPut, "/orders/"+o.ID, stu, `{"items":[{"menuItemId":"M2","quantity":2}]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "7.00", decodeOrder(t, env).TotalAmount)

	rec, _ = do(t, e, http.MethodPut, "/orders/"+o.ID, stu, `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = do(t, e, http.MethodPut, "/orders/"+o.ID, token(t, "stu-2", "student"), `{"specialInstr":"mine now"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = do(t, e, http.MethodPatch, "/admin/orders/"+o.ID+"/status", adm, `{"status":"preparing"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	//調理開始後の編集は409
	rec, env = do(t, e, http.MethodPut, "/orders/"+o.ID, stu, `{"specialInstr":"too late"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "conflict", env.Error)

	rec, env = do(t, e, http.MethodDelete, "/orders/"+o.ID, stu, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "canceled", decodeOrder(t, env).Status)

	rec, _ = do(t, e, http.MethodDelete, "/orders/"+o.ID, stu, "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

// =====================
// /admin/orders
// =====================

func TestAdminOrderHandler_StatusFlow(t *testing.T) {
	e := newTestServer(t)
	adm := token(t, "adm-1", "admin")
	o := createOrder(t, e, token(t, "stu-1", "student"))
	path := "/admin/orders/" + o.ID + "/status"

	rec, _ := do(t, e, http.MethodPatch, path, token(t, "stu-1", "student"), `{"status":"preparing"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = do(t, e, http.MethodPatch, path, adm, `{}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec, _ = do(t, e, http.MethodPatch, path, adm, `{"status":"shipped"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, env := do(t, e, http.MethodPatch, path, adm, `{"status":"preparing"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotNil(t, decodeOrder(t, env).StartedAt)

	rec, _ = do(t, e, http.MethodPatch, path, adm, `{"status":"preparing"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec, _ = do(t, e, http.MethodPatch, "/admin/orders/"+uuid.NewString()+"/status", adm, `{"status":"ready"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, env = do(t, e, http.MethodGet, "/admin/orders/"+o.ID+"/audit", adm, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var trail []usecase.AuditEntryOutput
	require.NoError(t, json.Unmarshal(env.Data, &trail))
	require.Len(t, trail, 1)
	assert.Equal(t, "UPDATE_ORDER_STATUS", trail[0].Action)
}

func TestAdminOrderHandler_List(t *testing.T) {
	e := newTestServer(t)
	adm := token(t, "adm-1", "admin")
	createOrder(t, e, token(t, "stu-1", "student"))
	o := createOrder(t, e, token(t, "stu-2", "student"))
	do(t, e, http.MethodPatch, "/admin/orders/"+o.ID+"/status", adm, `{"status":"preparing"}`)

	rec, env := do(t, e, http.MethodGet, "/admin/orders/all?status=preparing", adm, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var orders []usecase.OrderOutput
	require.NoError(t, json.Unmarshal(env.Data, &orders))
	require.Len(t, orders, 1)
	assert.Equal(t, o.ID, orders[0].ID)
	assert.Equal(t, int64(1), env.Pagination.TotalItems)

	rec, _ = do(t, e, http.MethodGet, "/admin/orders/all?status=bogus", adm, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthz(t *testing.T) {
	e := newTestServer(t)

	rec, env := do(t, e, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)

	//存在しないルートも同じ形
	rec, env = do(t, e, http.MethodGet, "/nope", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.False(t, env.Success)
}

// =====================
// 入力の上限
// =====================

func TestOrderHandler_History_HugePage(t *testing.T) {
	e := newTestServer(t)
	stu := token(t, "stu-1", "student")
	createOrder(t, e, stu)

	rec, env := do(t, e, http.MethodGet, "/orders/user/history?page=922337203685477582&limit=10", stu, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid page", env.Message)
}

func TestOrderHandler_Create_QuantityTooLarge(t *testing.T) {
	e := newTestServer(t)
	stu := token(t, "stu-1", "student")

	rec, env := do(t, e, http.MethodPost, "/orders", stu,
		`{"items":[{"menuItemId":"M1","quantity":9000000000000000}],"pickupTime":"2025-11-17T10:30:00Z"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())
	assert.Contains(t, env.Errors, "items[0].quantity must be at most 1000")
}

// 特記事項の長さはスキーマ違反（422）
func TestOrderHandler_SpecialInstrTooLong(t *testing.T) {
	e := newTestServer(t)
	stu := token(t, "stu-1", "student")
	long := strings.Repeat("a", 501)

	rec, env := do(t, e, http.MethodPost, "/orders", stu,
		`{"items":[{"menuItemId":"M1","quantity":1}],"pickupTime":"2025-11-17T10:30:00Z","specialInstr":"`+long+`"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, env.Errors, "specialInstr must be at most 500")

	o := createOrder(t, e, stu)
	rec, _ = do(t, e, http.MethodPut, "/orders/"+o.ID, stu, `{"specialInstr":"`+long+`"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	//ちょうど500文字は通る
	rec, _ = do(t, e, http.MethodPut, "/orders/"+o.ID, stu, `{"specialInstr":"`+strings.Repeat("b", 500)+`"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
}
