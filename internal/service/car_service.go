package service

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"carrental/internal/cache"
	"carrental/internal/errors"
	"carrental/internal/model"
	"carrental/internal/repository"
)

const (
	carCacheTTL       = 5 * time.Minute
	carListCacheKey   = "cars:all"
	carCacheKeyPrefix = "car:"
)

// CarInput is the writable part of a car.
type CarInput struct {
	Make        string          `json:"make" validate:"required,max=100"`
	Model       string          `json:"model" validate:"required,max=100"`
	Year        int             `json:"year" validate:"required,gte=1900"`
	PricePerDay decimal.Decimal `json:"price_per_day"`
	Type        string          `json:"type" validate:"max=50"`
	ImageURL    string          `json:"imageUrl" validate:"omitempty,max=512"`
}

// CarService handles the fleet catalog.
type CarService interface {
	List(ctx context.Context) ([]model.Car, error)
	Get(ctx context.Context, id uint) (*model.Car, error)
	Create(ctx context.Context, in CarInput) (*model.Car, error)
	Update(ctx context.Context, id uint, in CarInput) (*model.Car, error)
	Delete(ctx context.Context, id uint) error
	SeedCars(ctx context.Context, cars []model.Car) (int, error)
}

type carService struct {
	repo  repository.CarRepository
	cache *cache.Client
}

// NewCarService creates a new car service.
func NewCarService(repo repository.CarRepository, cache *cache.Client) CarService {
	return &carService{
		repo:  repo,
		cache: cache,
	}
}

func (s *carService) cacheKey(id uint) string {
	return fmt.Sprintf("%s%d", carCacheKeyPrefix, id)
}

// List returns every car, cached as a whole.
func (s *carService) List(ctx context.Context) ([]model.Car, error) {
	if data, _ := s.cache.Get(ctx, carListCacheKey); data != nil {
		var cached []model.Car
		if err := json.Unmarshal(data, &cached); err == nil {
			return cached, nil
		}
	}

	cars, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list cars: %w", err)
	}
	if cars == nil {
		cars = []model.Car{}
	}

	if payload, err := json.Marshal(cars); err == nil {
		_ = s.cache.Set(ctx, carListCacheKey, payload, carCacheTTL)
	}
	return cars, nil
}

// Get retrieves a car by ID with caching.
func (s *carService) Get(ctx context.Context, id uint) (*model.Car, error) {
	if data, _ := s.cache.Get(ctx, s.cacheKey(id)); data != nil {
		var cached model.Car
		if err := json.Unmarshal(data, &cached); err == nil {
			return &cached, nil
		}
	}

	car, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrCarNotFound
		}
		return nil, err
	}

	if payload, err := json.Marshal(car); err == nil {
		_ = s.cache.Set(ctx, s.cacheKey(id), payload, carCacheTTL)
	}
	return car, nil
}

func (s *carService) Create(ctx context.Context, in CarInput) (*model.Car, error) {
	car := &model.Car{}
	applyCarInput(car, in)
	if err := s.repo.Create(ctx, car); err != nil {
		return nil, fmt.Errorf("create car: %w", err)
	}
	s.invalidate(ctx, car.ID)
	return car, nil
}

func (s *carService) Update(ctx context.Context, id uint, in CarInput) (*model.Car, error) {
	car, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrCarNotFound
		}
		return nil, err
	}
	applyCarInput(car, in)
	if err := s.repo.Update(ctx, car); err != nil {
		return nil, fmt.Errorf("update car: %w", err)
	}
	s.invalidate(ctx, id)
	return car, nil
}

func (s *carService) Delete(ctx context.Context, id uint) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return errors.ErrCarNotFound
		}
		return fmt.Errorf("delete car: %w", err)
	}
	s.invalidate(ctx, id)
	return nil
}

// SeedCars inserts the given cars when the catalog is empty.
func (s *carService) SeedCars(ctx context.Context, cars []model.Car) (int, error) {
	n, err := s.repo.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count cars: %w", err)
	}
	if n > 0 {
		return 0, nil
	}
	for i := range cars {
		if err := s.repo.Create(ctx, &cars[i]); err != nil {
			return i, fmt.Errorf("seed car %s %s: %w", cars[i].Make, cars[i].Model, err)
		}
	}
	_ = s.cache.Delete(ctx, carListCacheKey)
	return len(cars), nil
}

func (s *carService) invalidate(ctx context.Context, id uint) {
	_ = s.cache.Delete(ctx, carListCacheKey, s.cacheKey(id))
}

func applyCarInput(car *model.Car, in CarInput) {
	car.Make = strings.TrimSpace(in.Make)
	car.Model = strings.TrimSpace(in.Model)
	car.Year = in.Year
	car.PricePerDay = in.PricePerDay.Round(2)
	car.Type = strings.TrimSpace(in.Type)
	car.ImageURL = strings.TrimSpace(in.ImageURL)
}
