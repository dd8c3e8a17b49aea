package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"carrental/internal/errors"
	"carrental/internal/model"
	"carrental/internal/service"
)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	authService service.AuthService
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(authService service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// LoginRequest represents a user login request.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse is returned on successful login.
type LoginResponse struct {
	Token    string     `json:"token"`
	Username string     `json:"username"`
	UserID   uint       `json:"userId"`
	Role     model.Role `json:"role"`
}

// ValidateRequest carries the token to check. The bearer header is used
// when the body is empty.
type ValidateRequest struct {
	Token string `json:"token"`
}

// ValidateResponse is returned for a valid token.
type ValidateResponse struct {
	Valid    bool       `json:"valid"`
	UserID   uint       `json:"userId"`
	Username string     `json:"username"`
	Role     model.Role `json:"role"`
}

// Login godoc
// @Summary Login user
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login credentials"
// @Success 200 {object} LoginResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req LoginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	token, user, err := h.authService.Login(c.Request().Context(), strings.TrimSpace(req.Username), req.Password)
	if err != nil {
		return respondError(err)
	}

	return c.JSON(http.StatusOK, LoginResponse{
		Token:    token,
		Username: user.UserName,
		UserID:   user.UserID,
		Role:     user.Role,
	})
}

// Validate godoc
// @Summary Validate a bearer token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body ValidateRequest false "Token to validate"
// @Success 200 {object} ValidateResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /auth/validate [post]
func (h *AuthHandler) Validate(c echo.Context) error {
	var req ValidateRequest
	_ = c.Bind(&req)

	token := strings.TrimSpace(req.Token)
	if token == "" {
		token = bearerToken(c)
	}
	if token == "" {
		return respondError(errors.ErrInvalidToken)
	}

	claims, err := h.authService.Validate(c.Request().Context(), token)
	if err != nil {
		return respondError(err)
	}

	return c.JSON(http.StatusOK, ValidateResponse{
		Valid:    true,
		UserID:   claims.UserID,
		Username: claims.Username,
		Role:     claims.Role,
	})
}

func bearerToken(c echo.Context) string {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}
