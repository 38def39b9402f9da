package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderID string

type OrderStatus string

const (
	OrderStatusPlaced    OrderStatus = "placed"
	OrderStatusPreparing OrderStatus = "preparing"
	OrderStatusReady     OrderStatus = "ready"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusCanceled  OrderStatus = "canceled"
)

// 特記事項の最大文字数
const SpecialInstrMaxLen = 500

// 許可された遷移（completed / canceled は終端）
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPlaced:    {OrderStatusPreparing, OrderStatusCanceled},
	OrderStatusPreparing: {OrderStatusReady, OrderStatusCanceled},
	OrderStatusReady:     {OrderStatusCompleted},
	OrderStatusCompleted: {},
	OrderStatusCanceled:  {},
}

// AllOrderStatuses は定義済みステータスを遷移順に返す。
func AllOrderStatuses() []OrderStatus {
	return []OrderStatus{
		OrderStatusPlaced,
		OrderStatusPreparing,
		OrderStatusReady,
		OrderStatusCompleted,
		OrderStatusCanceled,
	}
}

func ParseOrderStatus(s string) (OrderStatus, bool) {
	st := OrderStatus(s)
	_, ok := orderTransitions[st]
	return st, ok
}

// 同じステータスへの遷移も不可
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, to := range orderTransitions[s] {
		if to == next {
			return true
		}
	}
	return false
}

func (s OrderStatus) IsTerminal() bool {
	return len(orderTransitions[s]) == 0
}

// 編集できるのはplacedのときだけ
func (s OrderStatus) IsEditable() bool {
	return s == OrderStatusPlaced
}

func (s OrderStatus) IsCancelable() bool {
	return s.CanTransitionTo(OrderStatusCanceled)
}

// 学生の注文1件。
// TotalAmountは明細の合計から毎回計算し直す。
type Order struct {
	ID           OrderID         `gorm:"type:uuid;primaryKey"`
	OwnerID      UserID          `gorm:"type:varchar(64);not null;index"`
	TotalAmount  decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	Status       OrderStatus     `gorm:"type:varchar(20);not null;index"`
	PickupTime   time.Time       `gorm:"not null"`
	SpecialInstr string          `gorm:"type:varchar(500);not null"`
	CreatedAt    time.Time       `gorm:"not null;index"`
	UpdatedAt    time.Time       `gorm:"not null"`
	StartedAt    *time.Time
	CompletedAt  *time.Time
}

// Transition は遷移表に従ってステータスを進める。
// 許可されていない遷移なら何も変えずfalseを返す。
func (o *Order) Transition(next OrderStatus, now time.Time) bool {
	if !o.Status.CanTransitionTo(next) {
		return false
	}

	switch next {
	case OrderStatusPreparing:
		//開始時刻は最初の1回だけ
		if o.StartedAt == nil {
			t := now
			o.StartedAt = &t
		}
	case OrderStatusCompleted:
		t := now
		o.CompletedAt = &t
	}

	o.Status = next
	o.UpdatedAt = now
	return true
}
