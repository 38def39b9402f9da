package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type MenuItemID string

// メニュー（このサービスからは読み取りのみ）
type MenuItem struct {
	ID        MenuItemID      `gorm:"type:varchar(64);primaryKey"`
	Name      string          `gorm:"type:varchar(255);not null"`
	Price     decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	Available bool            `gorm:"not null"`
	CreatedAt time.Time       `gorm:"not null;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"not null;autoUpdateTime"`
}
