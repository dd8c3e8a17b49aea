package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"

	"carrental/internal/model"
	"carrental/internal/resource"
)

// LoginResult is the body of a successful login.
type LoginResult struct {
	Token    string     `json:"token"`
	Username string     `json:"username"`
	UserID   uint       `json:"userId"`
	Role     model.Role `json:"role"`
}

// CarInput is the writable part of a car.
type CarInput struct {
	Make        string          `json:"make"`
	Model       string          `json:"model"`
	Year        int             `json:"year"`
	PricePerDay decimal.Decimal `json:"price_per_day"`
	Type        string          `json:"type"`
	ImageURL    string          `json:"imageUrl,omitempty"`
}

// NewUser is the body of POST /users.
type NewUser struct {
	FirstName string          `json:"first_name"`
	LastName  string          `json:"last_name"`
	UserName  string          `json:"user_name"`
	Email     string          `json:"email"`
	Password  string          `json:"password"`
	Role      model.Role      `json:"role"`
	CreatedAt model.Timestamp `json:"created_at"`
}

// ProfileUpdate is the body of PUT /users/me. An empty password keeps the
// current one.
type ProfileUpdate struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	UserName  string `json:"user_name"`
	Email     string `json:"email"`
	Password  string `json:"password,omitempty"`
}

type cartItemRequest struct {
	CarID uint `json:"carId,omitempty"`
	Days  int  `json:"days"`
}

// Login exchanges credentials for a token.
func (c *Client) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	var res LoginResult
	body := map[string]string{"username": username, "password": password}
	if err := c.do(ctx, "login", http.MethodPost, "/auth/login", "", body, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// ValidateToken asks the backend whether token is still valid.
func (c *Client) ValidateToken(ctx context.Context, token string) error {
	return c.do(ctx, "validate token", http.MethodPost, "/auth/validate", token, map[string]string{"token": token}, nil)
}

// ListCars returns the catalog.
func (c *Client) ListCars(ctx context.Context, token string) ([]model.Car, error) {
	var cars []model.Car
	if err := c.do(ctx, "list cars", http.MethodGet, "/cars", token, nil, &cars); err != nil {
		return nil, err
	}
	return cars, nil
}

// GetCar returns one car.
func (c *Client) GetCar(ctx context.Context, token string, id uint) (*model.Car, error) {
	var car model.Car
	if err := c.do(ctx, "get car", http.MethodGet, fmt.Sprintf("/cars/%d", id), token, nil, &car); err != nil {
		return nil, err
	}
	return &car, nil
}

// CreateCar adds a car to the catalog.
func (c *Client) CreateCar(ctx context.Context, token string, in CarInput) (*model.Car, []resource.Key, error) {
	var car model.Car
	if err := c.do(ctx, "create car", http.MethodPost, "/cars", token, in, &car); err != nil {
		return nil, nil, err
	}
	return &car, []resource.Key{resource.Cars}, nil
}

// UpdateCar replaces a car's fields.
func (c *Client) UpdateCar(ctx context.Context, token string, id uint, in CarInput) (*model.Car, []resource.Key, error) {
	var car model.Car
	if err := c.do(ctx, "update car", http.MethodPut, fmt.Sprintf("/cars/%d", id), token, in, &car); err != nil {
		return nil, nil, err
	}
	return &car, []resource.Key{resource.Cars, resource.CarKey(id)}, nil
}

// DeleteCar removes a car.
func (c *Client) DeleteCar(ctx context.Context, token string, id uint) ([]resource.Key, error) {
	if err := c.do(ctx, "delete car", http.MethodDelete, fmt.Sprintf("/cars/%d", id), token, nil, nil); err != nil {
		return nil, err
	}
	return []resource.Key{resource.Cars, resource.CarKey(id)}, nil
}

// GetCart returns the caller's cart.
func (c *Client) GetCart(ctx context.Context, token string) (*model.Cart, error) {
	var cart model.Cart
	if err := c.do(ctx, "get cart", http.MethodGet, "/cart", token, nil, &cart); err != nil {
		return nil, err
	}
	return &cart, nil
}

// AddToCart puts carID in the cart for days.
func (c *Client) AddToCart(ctx context.Context, token string, carID uint, days int) ([]resource.Key, error) {
	if err := c.do(ctx, "add to cart", http.MethodPost, "/cart/items", token, cartItemRequest{CarID: carID, Days: days}, nil); err != nil {
		return nil, err
	}
	return []resource.Key{resource.Cart}, nil
}

// UpdateCartItem sets the rental days of carID.
func (c *Client) UpdateCartItem(ctx context.Context, token string, carID uint, days int) ([]resource.Key, error) {
	if err := c.do(ctx, "update cart item", http.MethodPut, fmt.Sprintf("/cart/items/%d", carID), token, cartItemRequest{Days: days}, nil); err != nil {
		return nil, err
	}
	return []resource.Key{resource.Cart}, nil
}

// RemoveFromCart deletes carID from the cart.
func (c *Client) RemoveFromCart(ctx context.Context, token string, carID uint) ([]resource.Key, error) {
	if err := c.do(ctx, "remove from cart", http.MethodDelete, fmt.Sprintf("/cart/items/%d", carID), token, nil, nil); err != nil {
		return nil, err
	}
	return []resource.Key{resource.Cart}, nil
}

// ClearCart empties the cart.
func (c *Client) ClearCart(ctx context.Context, token string) ([]resource.Key, error) {
	if err := c.do(ctx, "clear cart", http.MethodDelete, "/cart", token, nil, nil); err != nil {
		return nil, err
	}
	return []resource.Key{resource.Cart}, nil
}

// ListUsers returns every user. Admin only.
func (c *Client) ListUsers(ctx context.Context, token string) ([]model.User, error) {
	var users []model.User
	if err := c.do(ctx, "list users", http.MethodGet, "/users", token, nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// AddUser registers a user.
func (c *Client) AddUser(ctx context.Context, token string, in NewUser) (*model.User, []resource.Key, error) {
	var user model.User
	if err := c.do(ctx, "add user", http.MethodPost, "/users", token, in, &user); err != nil {
		return nil, nil, err
	}
	return &user, []resource.Key{resource.Users}, nil
}

// DeleteUser removes a user. Admin only.
func (c *Client) DeleteUser(ctx context.Context, token string, id uint) ([]resource.Key, error) {
	if err := c.do(ctx, "delete user", http.MethodDelete, fmt.Sprintf("/users/%d", id), token, nil, nil); err != nil {
		return nil, err
	}
	return []resource.Key{resource.Users}, nil
}

// GetProfile returns the caller's own user record.
func (c *Client) GetProfile(ctx context.Context, token string) (*model.User, error) {
	var user model.User
	if err := c.do(ctx, "get profile", http.MethodGet, "/users/me", token, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateProfile changes the caller's own record.
func (c *Client) UpdateProfile(ctx context.Context, token string, in ProfileUpdate) (*model.User, []resource.Key, error) {
	var user model.User
	if err := c.do(ctx, "update profile", http.MethodPut, "/users/me", token, in, &user); err != nil {
		return nil, nil, err
	}
	return &user, []resource.Key{resource.Me}, nil
}

// DeleteProfile deletes the caller's account.
func (c *Client) DeleteProfile(ctx context.Context, token string) ([]resource.Key, error) {
	if err := c.do(ctx, "delete profile", http.MethodDelete, "/users/me", token, nil, nil); err != nil {
		return nil, err
	}
	return []resource.Key{resource.Me, resource.Cart}, nil
}
