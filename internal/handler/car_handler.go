package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"carrental/internal/service"
)

// CarHandler serves the car catalog.
type CarHandler struct {
	svc service.CarService
}

// NewCarHandler creates a car handler.
func NewCarHandler(svc service.CarService) *CarHandler {
	return &CarHandler{svc: svc}
}

// ListCars godoc
// @Summary List cars
// @Tags cars
// @Produce json
// @Success 200 {array} model.Car
// @Failure 500 {object} errors.ErrorResponse
// @Router /cars [get]
func (h *CarHandler) ListCars(c echo.Context) error {
	cars, err := h.svc.List(c.Request().Context())
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, cars)
}

// GetCar godoc
// @Summary Get car by id
// @Tags cars
// @Produce json
// @Param id path int true "Car ID"
// @Success 200 {object} model.Car
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /cars/{id} [get]
func (h *CarHandler) GetCar(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	car, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, car)
}

// CreateCar godoc
// @Summary Create car
// @Tags cars
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param car body service.CarInput true "Car payload"
// @Success 201 {object} model.Car
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Router /cars [post]
func (h *CarHandler) CreateCar(c echo.Context) error {
	var in service.CarInput
	if err := bindAndValidate(c, &in); err != nil {
		return err
	}
	if in.PricePerDay.IsNegative() {
		return badRequest("price_per_day must not be negative")
	}
	car, err := h.svc.Create(c.Request().Context(), in)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusCreated, car)
}

// UpdateCar godoc
// @Summary Update car
// @Tags cars
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Car ID"
// @Param car body service.CarInput true "Car payload"
// @Success 200 {object} model.Car
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /cars/{id} [put]
func (h *CarHandler) UpdateCar(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var in service.CarInput
	if err := bindAndValidate(c, &in); err != nil {
		return err
	}
	if in.PricePerDay.IsNegative() {
		return badRequest("price_per_day must not be negative")
	}
	car, err := h.svc.Update(c.Request().Context(), id, in)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, car)
}

// DeleteCar godoc
// @Summary Delete car
// @Tags cars
// @Security BearerAuth
// @Param id path int true "Car ID"
// @Success 204
// @Failure 404 {object} errors.ErrorResponse
// @Router /cars/{id} [delete]
func (h *CarHandler) DeleteCar(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		return respondError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
