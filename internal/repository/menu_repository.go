package repository

import (
	"canteen/internal/domain/model"
	"context"
	"errors"
)

var ErrNotFound = errors.New("not found")

// メニューの参照だけを約束（更新は別サービス）。
type MenuCatalog interface {
	FindByID(ctx context.Context, id model.MenuItemID) (model.MenuItem, error)
}
