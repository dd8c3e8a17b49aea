package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"carrental/internal/service"
)

// CartHandler serves the caller's cart.
type CartHandler struct {
	svc service.CartService
}

// NewCartHandler creates a cart handler.
func NewCartHandler(svc service.CartService) *CartHandler {
	return &CartHandler{svc: svc}
}

// AddCartItemRequest is the body of POST /cart/items.
type AddCartItemRequest struct {
	CarID uint `json:"carId" validate:"required"`
	Days  int  `json:"days" validate:"gte=1"`
}

// UpdateCartItemRequest is the body of PUT /cart/items/{carId}.
type UpdateCartItemRequest struct {
	Days int `json:"days" validate:"gte=1"`
}

// GetCart godoc
// @Summary Get cart
// @Tags cart
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.Cart
// @Failure 401 {object} errors.ErrorResponse
// @Router /cart [get]
func (h *CartHandler) GetCart(c echo.Context) error {
	claims, err := mustClaims(c)
	if err != nil {
		return err
	}
	cart, err := h.svc.Get(c.Request().Context(), claims.UserID)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, cart)
}

// AddItem godoc
// @Summary Add car to cart
// @Tags cart
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body AddCartItemRequest true "Car and days"
// @Success 201 {object} model.Cart
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /cart/items [post]
func (h *CartHandler) AddItem(c echo.Context) error {
	claims, err := mustClaims(c)
	if err != nil {
		return err
	}
	var req AddCartItemRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	cart, err := h.svc.AddItem(c.Request().Context(), claims.UserID, req.CarID, req.Days)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusCreated, cart)
}

// UpdateItem godoc
// @Summary Change rental days of a cart item
// @Tags cart
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param carId path int true "Car ID"
// @Param request body UpdateCartItemRequest true "Days"
// @Success 200 {object} model.Cart
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /cart/items/{carId} [put]
func (h *CartHandler) UpdateItem(c echo.Context) error {
	claims, err := mustClaims(c)
	if err != nil {
		return err
	}
	carID, err := parseID(c, "carId")
	if err != nil {
		return err
	}
	var req UpdateCartItemRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	cart, err := h.svc.UpdateItem(c.Request().Context(), claims.UserID, carID, req.Days)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, cart)
}

// RemoveItem godoc
// @Summary Remove car from cart
// @Tags cart
// @Produce json
// @Security BearerAuth
// @Param carId path int true "Car ID"
// @Success 200 {object} model.Cart
// @Failure 404 {object} errors.ErrorResponse
// @Router /cart/items/{carId} [delete]
func (h *CartHandler) RemoveItem(c echo.Context) error {
	claims, err := mustClaims(c)
	if err != nil {
		return err
	}
	carID, err := parseID(c, "carId")
	if err != nil {
		return err
	}
	cart, err := h.svc.RemoveItem(c.Request().Context(), claims.UserID, carID)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, cart)
}

// ClearCart godoc
// @Summary Clear cart
// @Tags cart
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.Cart
// @Router /cart [delete]
func (h *CartHandler) ClearCart(c echo.Context) error {
	claims, err := mustClaims(c)
	if err != nil {
		return err
	}
	cart, err := h.svc.Clear(c.Request().Context(), claims.UserID)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, cart)
}
