package web

import (
	"github.com/shopspring/decimal"

	"carrental/internal/model"
)

const (
	MsgErrorLoadingCars   = "Error loading cars"
	MsgNoCars             = "No cars available"
	MsgNoCarsForType      = "No cars found for the selected type"
	MsgNoManagedCars      = "No cars found. Start by adding your first car."
	MsgCarLoadFailed      = "Failed to load car details. Please try again."
	MsgCarNotFound        = "Car not found."
	MsgCartLoadFailed     = "Failed to load cart"
	MsgCartEmpty          = "Your Cart is Empty"
	MsgCartUpdateFailed   = "Failed to update cart"
	MsgCartRemoveFailed   = "Failed to remove from cart"
	MsgConfirmClear       = "Are you sure you want to clear your entire cart?"
	MsgCheckoutStub       = "Checkout is not available yet."
	MsgLoginFailed        = "Login failed. Please check your credentials and try again."
	MsgRegisterFailed     = "Registration failed. Please try again."
	MsgRegistered         = "Registration successful! Please sign in with your new account."
	MsgProfileLoadFailed  = "Error loading profile"
	MsgProfileUpdated     = "Profile updated successfully!"
	MsgProfileFailed      = "Failed to update profile. Please try again."
	MsgAccountDeleted     = "Account deleted successfully. You will be logged out."
	MsgAccountDeleteError = "Failed to delete account. Please try again."
	MsgAllFieldsRequired  = "All fields are required."
	MsgCarCreateFailed    = "Failed to create car. Please check all fields and try again."
	MsgCarUpdateFailed    = "Failed to update car. Please try again."
	MsgCarsFetchFailed    = "Failed to fetch cars"
	MsgCarDeleteFailed    = "Failed to delete car"
	MsgUsersFetchFailed   = "Failed to fetch users"
	MsgUserCreateFailed   = "Failed to create user. Please check if email/username already exists."
	MsgUserDeleteFailed   = "Failed to delete user"
	MsgGeneric            = "Something went wrong. Please try again."
)

// NavView is the navigation bar.
type NavView struct {
	View          string `json:"view"`
	Authenticated bool   `json:"authenticated"`
	Admin         bool   `json:"admin"`
	DisplayName   string `json:"displayName,omitempty"`
	CartCount     int    `json:"cartCount"`
	Flash         string `json:"flash,omitempty"`
}

// CarListView is the catalog with its type filter.
type CarListView struct {
	View         string      `json:"view"`
	Cars         []model.Car `json:"cars"`
	Types        []string    `json:"types"`
	SelectedType string      `json:"selectedType"`
	Empty        string      `json:"empty,omitempty"`
	Error        string      `json:"error,omitempty"`
	Flash        string      `json:"flash,omitempty"`
}

// CarDetailsView is a single car.
type CarDetailsView struct {
	View    string     `json:"view"`
	Car     *model.Car `json:"car,omitempty"`
	CanEdit bool       `json:"canEdit"`
	Error   string     `json:"error,omitempty"`
	Back    string     `json:"back"`
}

// CartView is the signed-in user's cart. Amounts come from the server.
type CartView struct {
	View        string           `json:"view"`
	Items       []model.CartItem `json:"items"`
	TotalAmount decimal.Decimal  `json:"totalAmount"`
	Count       int              `json:"count"`
	Empty       bool             `json:"empty"`
	EmptyText   string           `json:"emptyText,omitempty"`
	Error       string           `json:"error,omitempty"`
	Flash       string           `json:"flash,omitempty"`
}

// FormView is a form with its values and errors.
type FormView struct {
	View    string            `json:"view"`
	Values  interface{}       `json:"values,omitempty"`
	Errors  map[string]string `json:"errors,omitempty"`
	Error   string            `json:"error,omitempty"`
	Message string            `json:"message,omitempty"`
	From    string            `json:"from,omitempty"`
}

// MessageView is a plain outcome message.
type MessageView struct {
	View    string `json:"view"`
	Message string `json:"message"`
}

// ProfileView is the signed-in user's profile.
type ProfileView struct {
	View    string      `json:"view"`
	User    *model.User `json:"user,omitempty"`
	Message string      `json:"message,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// CarsManagementView lists cars for administration.
type CarsManagementView struct {
	View  string      `json:"view"`
	Cars  []model.Car `json:"cars"`
	Empty string      `json:"empty,omitempty"`
	Error string      `json:"error,omitempty"`
}

// UserManagementView lists users for administration.
type UserManagementView struct {
	View  string       `json:"view"`
	Users []model.User `json:"users"`
	Error string       `json:"error,omitempty"`
}
