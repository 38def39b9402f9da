package repository

import (
	"context"

	"canteen/internal/domain/model"

	"gorm.io/gorm"
)

// メニュー参照（読み取り専用）
type MenuGormRepository struct {
	db *gorm.DB
}

// DI
func NewMenuGormRepository(db *gorm.DB) *MenuGormRepository {
	return &MenuGormRepository{db: db}
}

// IDでメニューを取得
func (r *MenuGormRepository) FindByID(ctx context.Context, id model.MenuItemID) (model.MenuItem, error) {
	var m model.MenuItem
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&m).Error
	if err != nil {
		return model.MenuItem{}, translateError(err)
	}
	return m, nil
}
