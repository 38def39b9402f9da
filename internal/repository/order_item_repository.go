package repository

import (
	"context"

	"canteen/internal/domain/model"
)

type OrderItemRepository interface {
	CreateBulk(ctx context.Context, orderID model.OrderID, items []model.OrderItem) error
	ListByOrderID(ctx context.Context, orderID model.OrderID) ([]model.OrderItem, error)
	// 明細の総入れ替え用。削除件数を返す
	DeleteByOrderID(ctx context.Context, orderID model.OrderID) (int64, error)
}
