package repository

import (
	"context"

	"gorm.io/gorm"

	"carrental/internal/model"
)

// CartRepository defines persistence operations for cart items.
type CartRepository interface {
	ListByUser(ctx context.Context, userID uint) ([]model.CartItem, error)
	FindByUserAndCar(ctx context.Context, userID, carID uint) (*model.CartItem, error)
	Create(ctx context.Context, item *model.CartItem) error
	Update(ctx context.Context, item *model.CartItem) error
	Delete(ctx context.Context, userID, carID uint) error
	Clear(ctx context.Context, userID uint) error
}

type cartRepository struct {
	db *gorm.DB
}

// NewCartRepository builds a GORM-backed repository.
func NewCartRepository(db *gorm.DB) CartRepository {
	return &cartRepository{db: db}
}

func (r *cartRepository) ListByUser(ctx context.Context, userID uint) ([]model.CartItem, error) {
	var items []model.CartItem
	err := r.db.WithContext(ctx).
		Preload("Car").
		Where("user_id = ?", userID).
		Order("cart_item_id").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *cartRepository) FindByUserAndCar(ctx context.Context, userID, carID uint) (*model.CartItem, error) {
	var item model.CartItem
	err := r.db.WithContext(ctx).
		Preload("Car").
		Where("user_id = ? AND car_id = ?", userID, carID).
		First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *cartRepository) Create(ctx context.Context, item *model.CartItem) error {
	return r.db.WithContext(ctx).Omit("Car").Create(item).Error
}

func (r *cartRepository) Update(ctx context.Context, item *model.CartItem) error {
	return r.db.WithContext(ctx).Omit("Car").Save(item).Error
}

func (r *cartRepository) Delete(ctx context.Context, userID, carID uint) error {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND car_id = ?", userID, carID).
		Delete(&model.CartItem{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *cartRepository) Clear(ctx context.Context, userID uint) error {
	return r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&model.CartItem{}).Error
}
