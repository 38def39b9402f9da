package usecase_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"canteen/internal/domain/model"
	"canteen/internal/infra/memory"
	"canteen/internal/usecase"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =====================
// 時計・ID
// =====================

// 呼ぶたびに1分進む時計（作成順を決定的にする）
type stepClock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now
	c.now = c.now.Add(c.step)
	return t
}

type seqIDs struct {
	mu sync.Mutex
	n  int
}

func (g *seqIDs) NewID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("id-%04d", g.n)
}

// =====================
// fixture
// =====================

var (
	student1 = model.Actor{UserID: "stu-1", Role: model.RoleStudent}
	student2 = model.Actor{UserID: "stu-2", Role: model.RoleStudent}
	admin    = model.Actor{UserID: "adm-1", Role: model.RoleAdmin}
)

const pickup = "2025-11-17T10:30:00Z"

type fixture struct {
	store  *memory.Store
	menu   *memory.Menu
	clock  *stepClock
	orders *usecase.OrderUsecase
	admin  *usecase.AdminOrderUsecase
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	menu := memory.NewMenu(
		model.MenuItem{ID: "M1", Name: "Curry Rice", Price: dec("5.00"), Available: true},
		model.MenuItem{ID: "M2", Name: "Kake Udon", Price: dec("3.50"), Available: true},
		model.MenuItem{ID: "M3", Name: "Seasonal Soup", Price: dec("2.00"), Available: false},
	)
	store := memory.NewStore()
	clock := &stepClock{now: time.Date(2025, 11, 17, 8, 0, 0, 0, time.UTC), step: time.Minute}
	ids := &seqIDs{}

	return &fixture{
		store:  store,
		menu:   menu,
		clock:  clock,
		orders: usecase.NewOrderUsecase(store, menu, ids, clock),
		admin:  usecase.NewAdminOrderUsecase(store, clock),
	}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func line(id string, qty int64) usecase.OrderLineInput {
	return usecase.OrderLineInput{MenuItemID: id, Quantity: qty}
}

func strPtr(s string) *string { return &s }

func (f *fixture) place(t *testing.T, actor model.Actor, lines ...usecase.OrderLineInput) usecase.OrderOutput {
	t.Helper()

	out, err := f.orders.PlaceOrder(context.Background(), actor, usecase.PlaceOrderInput{
		Items:      lines,
		PickupTime: pickup,
	})
	require.NoError(t, err)
	return out
}

// 管理者としてステータスを順に進める
func (f *fixture) advance(t *testing.T, orderID string, statuses ...model.OrderStatus) {
	t.Helper()

	for _, s := range statuses {
		_, err := f.admin.UpdateStatus(context.Background(), admin, model.OrderID(orderID), usecase.AdminUpdateOrderStatusInput{Status: string(s)})
		require.NoError(t, err, "advance to %s", s)
	}
}

func assertKind(t *testing.T, want usecase.ErrorKind, err error) {
	t.Helper()
	if assert.Error(t, err) {
		assert.Equal(t, want, usecase.KindOf(err), "err=%v", err)
	}
}
