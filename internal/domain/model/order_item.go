package model

import "github.com/shopspring/decimal"

type OrderItemID string

// 1行あたりの数量上限
const MaxLineQuantity = 1000

// numeric(12,2)に収まる最大金額
var MaxAmount = decimal.RequireFromString("9999999999.99")

// 注文の明細。
// Price/Nameは明細を作った時点のメニューのスナップショット。
type OrderItem struct {
	ID         OrderItemID     `gorm:"type:uuid;primaryKey"`
	OrderID    OrderID         `gorm:"type:uuid;not null;index"`
	Line       int             `gorm:"not null"` // 注文内の行番号（1始まり）
	MenuItemID MenuItemID      `gorm:"type:varchar(64);not null;index"`
	Name       string          `gorm:"type:varchar(255);not null"`
	Quantity   int64           `gorm:"not null"`
	Price      decimal.Decimal `gorm:"type:numeric(12,2);not null"`
}

func (it OrderItem) Subtotal() decimal.Decimal {
	return it.Price.Mul(decimal.NewFromInt(it.Quantity))
}

// SumItems は明細の quantity*price を合計する。
func SumItems(items []OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Subtotal())
	}
	return total
}
