package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"carrental/internal/service"
)

// SeedHandler handles seed data endpoints.
type SeedHandler struct {
	carService service.CarService
}

// NewSeedHandler creates a new seed handler.
func NewSeedHandler(carService service.CarService) *SeedHandler {
	return &SeedHandler{carService: carService}
}

// SeedResponse represents the seed response.
type SeedResponse struct {
	Message string `json:"message"`
	Count   int    `json:"count"`
}

// SeedCars godoc
// @Summary Seed the demo fleet into an empty catalog
// @Tags seed
// @Produce json
// @Security BearerAuth
// @Success 200 {object} SeedResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /seed/cars [post]
func (h *SeedHandler) SeedCars(c echo.Context) error {
	count, err := h.carService.SeedCars(c.Request().Context(), service.DefaultCars())
	if err != nil {
		c.Logger().Errorf("seed cars: %v", err)
		return respondError(err)
	}

	message := "Cars seeded successfully"
	if count == 0 {
		message = "Catalog already populated"
	}
	return c.JSON(http.StatusOK, SeedResponse{
		Message: message,
		Count:   count,
	})
}
