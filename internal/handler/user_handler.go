package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"carrental/internal/model"
	"carrental/internal/service"
)

// UserHandler bundles HTTP handlers.
type UserHandler struct {
	svc  service.UserService
	auth service.AuthService
}

// NewUserHandler creates a handler layer.
func NewUserHandler(svc service.UserService, auth service.AuthService) *UserHandler {
	return &UserHandler{svc: svc, auth: auth}
}

// ListUsers godoc
// @Summary List users
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {array} model.User
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Router /users [get]
func (h *UserHandler) ListUsers(c echo.Context) error {
	users, err := h.svc.List(c.Request().Context())
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, users)
}

// CreateUser godoc
// @Summary Create user
// @Description Public for registration. The ADMIN role is only granted when the caller is an admin.
// @Tags users
// @Accept json
// @Produce json
// @Param user body service.CreateUserInput true "User payload"
// @Success 201 {object} model.User
// @Failure 400 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /users [post]
func (h *UserHandler) CreateUser(c echo.Context) error {
	var in service.CreateUserInput
	if err := bindAndValidate(c, &in); err != nil {
		return err
	}

	if in.Role == model.RoleAdmin && !h.callerIsAdmin(c) {
		in.Role = model.RoleUser
	}

	created, err := h.svc.Create(c.Request().Context(), in)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusCreated, created)
}

// DeleteUser godoc
// @Summary Delete user
// @Tags users
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 204
// @Failure 404 {object} errors.ErrorResponse
// @Router /users/{id} [delete]
func (h *UserHandler) DeleteUser(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		return respondError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// GetMe godoc
// @Summary Current user profile
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.User
// @Failure 401 {object} errors.ErrorResponse
// @Router /users/me [get]
func (h *UserHandler) GetMe(c echo.Context) error {
	claims, err := mustClaims(c)
	if err != nil {
		return err
	}
	user, err := h.svc.Get(c.Request().Context(), claims.UserID)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, user)
}

// UpdateMe godoc
// @Summary Update current user profile
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param user body service.UpdateProfileInput true "Profile"
// @Success 200 {object} model.User
// @Failure 400 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /users/me [put]
func (h *UserHandler) UpdateMe(c echo.Context) error {
	claims, err := mustClaims(c)
	if err != nil {
		return err
	}
	var in service.UpdateProfileInput
	if err := bindAndValidate(c, &in); err != nil {
		return err
	}
	user, err := h.svc.UpdateProfile(c.Request().Context(), claims.UserID, in)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, user)
}

// DeleteMe godoc
// @Summary Delete current user account
// @Tags users
// @Security BearerAuth
// @Success 204
// @Failure 401 {object} errors.ErrorResponse
// @Router /users/me [delete]
func (h *UserHandler) DeleteMe(c echo.Context) error {
	claims, err := mustClaims(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	if err := h.svc.Delete(ctx, claims.UserID); err != nil {
		return respondError(err)
	}
	if err := h.auth.Revoke(ctx, claims); err != nil {
		c.Logger().Warnf("revoke token of deleted user %d: %v", claims.UserID, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *UserHandler) callerIsAdmin(c echo.Context) bool {
	token := bearerToken(c)
	if token == "" {
		return false
	}
	claims, err := h.auth.Validate(c.Request().Context(), token)
	return err == nil && claims.Role == model.RoleAdmin
}
