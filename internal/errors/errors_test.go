package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapErrorToHTTP(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"car not found", ErrCarNotFound, http.StatusNotFound, "CAR_NOT_FOUND"},
		{"wrapped cart item", fmt.Errorf("remove: %w", ErrCartItemNotFound), http.StatusNotFound, "CART_ITEM_NOT_FOUND"},
		{"invalid days", ErrInvalidDays, http.StatusBadRequest, "INVALID_DAYS"},
		{"duplicate user", ErrUserAlreadyExists, http.StatusConflict, "USER_ALREADY_EXISTS"},
		{"bad credentials", ErrInvalidCredentials, http.StatusUnauthorized, "INVALID_CREDENTIALS"},
		{"revoked token", ErrInvalidToken, http.StatusUnauthorized, "INVALID_TOKEN"},
		{"forbidden", ErrForbidden, http.StatusForbidden, "FORBIDDEN"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			httpErr := MapErrorToHTTP(tt.err)
			assert.Equal(t, tt.wantStatus, httpErr.StatusCode)
			assert.Equal(t, tt.wantCode, httpErr.Code)

			resp := httpErr.ToErrorResponse()
			assert.Equal(t, httpErr.Message, resp.Error)
			assert.Equal(t, httpErr.Message, resp.Message)
		})
	}
}
