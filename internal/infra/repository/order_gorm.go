package repository

import (
	"context"

	"canteen/internal/domain/model"
	repo "canteen/internal/repository"

	"gorm.io/gorm"
)

type OrderGormRepository struct {
	db *gorm.DB
}

func NewOrderGormRepository(db *gorm.DB) *OrderGormRepository {
	return &OrderGormRepository{db: db}
}

func (r *OrderGormRepository) Create(ctx context.Context, order model.Order) error {
	return translateError(r.db.WithContext(ctx).Create(&order).Error)
}

func (r *OrderGormRepository) FindByID(ctx context.Context, orderID model.OrderID) (model.Order, error) {
	var o model.Order
	err := r.db.WithContext(ctx).Where("id = ?", orderID).First(&o).Error
	if err != nil {
		return model.Order{}, translateError(err)
	}
	return o, nil
}

func (r *OrderGormRepository) List(ctx context.Context, f repo.OrderListFilter) ([]model.Order, int64, error) {
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 10
	}

	q := r.db.WithContext(ctx).Model(&model.Order{})

	//所有者で絞り込み（学生）
	if f.OwnerID != nil {
		q = q.Where("owner_id = ?", *f.OwnerID)
	}

	//status 絞り込み
	if f.Status != nil {
		q = q.Where("status = ?", *f.Status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return []model.Order{}, 0, translateError(err)
	}

	var items []model.Order
	offset := (f.Page - 1) * f.Limit
	if offset < 0 {
		//あふれたページは空
		return []model.Order{}, total, nil
	}
	if err := q.Order("created_at desc").Order("id desc").Limit(f.Limit).Offset(offset).Find(&items).Error; err != nil {
		return []model.Order{}, 0, translateError(err)
	}

	return items, total, nil
}

func (r *OrderGormRepository) UpdateIfStatus(ctx context.Context, order model.Order, expected model.OrderStatus) error {
	//statusを条件に入れて、読んでから書くまでの間に進んだ更新を上書きしない
	res := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("id = ? AND status = ?", order.ID, expected).
		Updates(map[string]interface{}{
			"status":        order.Status,
			"total_amount":  order.TotalAmount,
			"pickup_time":   order.PickupTime,
			"special_instr": order.SpecialInstr,
			"updated_at":    order.UpdatedAt,
			"started_at":    order.StartedAt,
			"completed_at":  order.CompletedAt,
		})
	if res.Error != nil {
		return translateError(res.Error)
	}
	if res.RowsAffected > 0 {
		return nil
	}

	//0件なら「ない」のか「ステータスが変わった」のかを区別する
	var n int64
	if err := r.db.WithContext(ctx).Model(&model.Order{}).Where("id = ?", order.ID).Count(&n).Error; err != nil {
		return translateError(err)
	}
	if n == 0 {
		return repo.ErrNotFound
	}
	return repo.ErrStatusChanged
}
