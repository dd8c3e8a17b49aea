package service

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"carrental/internal/errors"
	"carrental/internal/model"
	"carrental/internal/repository"
)

// CartService owns cart pricing. Subtotals and totals are computed here and
// nowhere else.
type CartService interface {
	Get(ctx context.Context, userID uint) (*model.Cart, error)
	AddItem(ctx context.Context, userID, carID uint, days int) (*model.Cart, error)
	UpdateItem(ctx context.Context, userID, carID uint, days int) (*model.Cart, error)
	RemoveItem(ctx context.Context, userID, carID uint) (*model.Cart, error)
	Clear(ctx context.Context, userID uint) (*model.Cart, error)
}

type cartService struct {
	repo    repository.CartRepository
	carRepo repository.CarRepository
}

// NewCartService creates a new cart service.
func NewCartService(repo repository.CartRepository, carRepo repository.CarRepository) CartService {
	return &cartService{
		repo:    repo,
		carRepo: carRepo,
	}
}

func (s *cartService) Get(ctx context.Context, userID uint) (*model.Cart, error) {
	items, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list cart items: %w", err)
	}
	return priceCart(items), nil
}

// AddItem puts a car in the cart. Adding a car that is already present
// extends its rental by days.
func (s *cartService) AddItem(ctx context.Context, userID, carID uint, days int) (*model.Cart, error) {
	if days < 1 {
		return nil, errors.ErrInvalidDays
	}

	car, err := s.carRepo.FindByID(ctx, carID)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrCarNotFound
		}
		return nil, fmt.Errorf("find car: %w", err)
	}

	existing, err := s.repo.FindByUserAndCar(ctx, userID, carID)
	switch {
	case err == nil:
		existing.Days += days
		if err := s.repo.Update(ctx, existing); err != nil {
			return nil, fmt.Errorf("update cart item: %w", err)
		}
	case stderrors.Is(err, gorm.ErrRecordNotFound):
		item := &model.CartItem{
			UserID:    userID,
			CarID:     car.ID,
			Days:      days,
			DailyRate: car.PricePerDay,
		}
		if err := s.repo.Create(ctx, item); err != nil {
			return nil, fmt.Errorf("create cart item: %w", err)
		}
	default:
		return nil, fmt.Errorf("find cart item: %w", err)
	}

	return s.Get(ctx, userID)
}

func (s *cartService) UpdateItem(ctx context.Context, userID, carID uint, days int) (*model.Cart, error) {
	if days < 1 {
		return nil, errors.ErrInvalidDays
	}

	item, err := s.repo.FindByUserAndCar(ctx, userID, carID)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrCartItemNotFound
		}
		return nil, fmt.Errorf("find cart item: %w", err)
	}

	item.Days = days
	if err := s.repo.Update(ctx, item); err != nil {
		return nil, fmt.Errorf("update cart item: %w", err)
	}
	return s.Get(ctx, userID)
}

func (s *cartService) RemoveItem(ctx context.Context, userID, carID uint) (*model.Cart, error) {
	if err := s.repo.Delete(ctx, userID, carID); err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrCartItemNotFound
		}
		return nil, fmt.Errorf("delete cart item: %w", err)
	}
	return s.Get(ctx, userID)
}

func (s *cartService) Clear(ctx context.Context, userID uint) (*model.Cart, error) {
	if err := s.repo.Clear(ctx, userID); err != nil {
		return nil, fmt.Errorf("clear cart: %w", err)
	}
	return &model.Cart{Items: []model.CartItem{}, TotalAmount: decimal.Zero}, nil
}

func priceCart(items []model.CartItem) *model.Cart {
	cart := &model.Cart{Items: make([]model.CartItem, 0, len(items)), TotalAmount: decimal.Zero}
	for _, item := range items {
		item.Subtotal = item.DailyRate.Mul(decimal.NewFromInt(int64(item.Days)))
		cart.TotalAmount = cart.TotalAmount.Add(item.Subtotal)
		cart.Items = append(cart.Items, item)
	}
	return cart
}
