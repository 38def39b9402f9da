package repository

import (
	"context"
	"errors"

	"canteen/internal/domain/model"
)

// 更新時点でステータスが変わっていた（別リクエストが先に進めた）
var ErrStatusChanged = errors.New("order status changed")

// 同時更新でDBが処理を中断した（シリアライズ失敗・デッドロックなど）
var ErrConcurrentUpdate = errors.New("concurrent update")

type OrderListFilter struct {
	Page    int
	Limit   int
	OwnerID *model.UserID
	Status  *model.OrderStatus
}

type OrderRepository interface {
	Create(ctx context.Context, order model.Order) error
	FindByID(ctx context.Context, orderID model.OrderID) (model.Order, error)

	//新しい順（created_at desc, id desc）
	List(ctx context.Context, f OrderListFilter) ([]model.Order, int64, error)

	//現在のステータスがexpectedのときだけ保存する。
	//違っていたらErrStatusChanged、注文自体がなければErrNotFound。
	UpdateIfStatus(ctx context.Context, order model.Order, expected model.OrderStatus) error
}
