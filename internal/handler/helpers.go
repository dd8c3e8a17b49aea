package handler

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"carrental/internal/auth"
	"carrental/internal/errors"
)

// ContextKeyClaims is where the router's auth middleware stores *auth.Claims.
const ContextKeyClaims = "claims"

// ClaimsFrom returns the verified claims of the caller, if any.
func ClaimsFrom(c echo.Context) (*auth.Claims, bool) {
	claims, ok := c.Get(ContextKeyClaims).(*auth.Claims)
	return claims, ok && claims != nil
}

func mustClaims(c echo.Context) (*auth.Claims, error) {
	claims, ok := ClaimsFrom(c)
	if !ok {
		return nil, respondError(errors.ErrInvalidToken)
	}
	return claims, nil
}

func parseID(c echo.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
			Error:   "invalid " + name,
			Code:    "INVALID_ID",
			Message: "invalid " + name,
		})
	}
	return uint(id), nil
}

func badRequest(message string) *echo.HTTPError {
	return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
		Error:   message,
		Code:    "BAD_REQUEST",
		Message: message,
	})
}

// respondError maps a service error to an HTTP error with the shared body.
func respondError(err error) *echo.HTTPError {
	httpErr := errors.MapErrorToHTTP(err)
	return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
}

// bindAndValidate decodes the body into req and runs struct validation.
// Validation failures come back as a 400 with per-field messages.
func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return badRequest("invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return validationError(err)
	}
	return nil
}

func validationError(err error) *echo.HTTPError {
	var verrs validator.ValidationErrors
	if !stderrors.As(err, &verrs) {
		return badRequest(err.Error())
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = fieldMessage(fe)
	}
	return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
		Error:   "validation failed",
		Code:    "VALIDATION_FAILED",
		Message: "validation failed",
		Fields:  fields,
	})
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "email":
		return "Email is invalid"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}
