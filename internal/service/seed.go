package service

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/shopspring/decimal"

	"carrental/internal/errors"
	"carrental/internal/model"
)

// DefaultCars is the demo fleet used by the seeder.
func DefaultCars() []model.Car {
	price := decimal.RequireFromString
	return []model.Car{
		{Make: "Toyota", Model: "Corolla", Year: 2022, PricePerDay: price("45.00"), Type: "Sedan"},
		{Make: "Honda", Model: "Civic", Year: 2023, PricePerDay: price("48.50"), Type: "Sedan"},
		{Make: "Ford", Model: "Explorer", Year: 2021, PricePerDay: price("79.99"), Type: "SUV"},
		{Make: "Jeep", Model: "Wrangler", Year: 2022, PricePerDay: price("89.00"), Type: "SUV"},
		{Make: "Tesla", Model: "Model 3", Year: 2023, PricePerDay: price("110.00"), Type: "Electric"},
		{Make: "Chevrolet", Model: "Camaro", Year: 2020, PricePerDay: price("95.00"), Type: "Sports"},
		{Make: "Volkswagen", Model: "Golf", Year: 2021, PricePerDay: price("39.90"), Type: "Hatchback"},
		{Make: "Mercedes-Benz", Model: "Sprinter", Year: 2019, PricePerDay: price("120.00"), Type: "Van"},
	}
}

// EnsureAdmin creates an ADMIN account unless the username or email is taken.
// It reports whether a user was created.
func EnsureAdmin(ctx context.Context, users UserService, in CreateUserInput) (bool, error) {
	in.Role = model.RoleAdmin
	if _, err := users.Create(ctx, in); err != nil {
		if stderrors.Is(err, errors.ErrUserAlreadyExists) {
			return false, nil
		}
		return false, fmt.Errorf("create admin: %w", err)
	}
	return true, nil
}
