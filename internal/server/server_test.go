package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carrental/internal/auth"
	"carrental/internal/config"
	"carrental/internal/db"
	"carrental/internal/errors"
	"carrental/internal/handler"
	"carrental/internal/model"
	"carrental/internal/service"
)

func newTestServer(t *testing.T) (*echo.Echo, Services) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	gormDB, err := db.NewSQLite(dsn)
	require.NoError(t, err)
	require.NoError(t, Migrate(gormDB, false))

	cfg := &config.Backend{JWTSecret: "test-secret", TokenTTL: time.Hour}
	e, svcs := New(cfg, gormDB, nil, auth.NewMemoryTokenStore())

	ctx := context.Background()
	_, err = svcs.Cars.SeedCars(ctx, service.DefaultCars())
	require.NoError(t, err)
	_, err = service.EnsureAdmin(ctx, svcs.Users, service.CreateUserInput{
		FirstName: "Site", LastName: "Admin", UserName: "admin", Email: "admin@example.com", Password: "admin123",
	})
	require.NoError(t, err)
	return e, svcs
}

func do(t *testing.T, e *echo.Echo, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func login(t *testing.T, e *echo.Echo, username, password string) handler.LoginResponse {
	t.Helper()
	rec := do(t, e, http.MethodPost, "/api/auth/login", "", handler.LoginRequest{Username: username, Password: password})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp handler.LoginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func register(t *testing.T, e *echo.Echo, userName string) {
	t.Helper()
	rec := do(t, e, http.MethodPost, "/api/users", "", map[string]string{
		"first_name": "Jane",
		"last_name":  "Doe",
		"user_name":  userName,
		"email":      userName + "@example.com",
		"password":   "secret1",
		"role":       "ADMIN",
		"created_at": "2024-05-01T12:00:00",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func TestHealthz(t *testing.T) {
	e, _ := newTestServer(t)
	rec := do(t, e, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestLoginAndValidate(t *testing.T) {
	e, _ := newTestServer(t)

	resp := login(t, e, "admin", "admin123")
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, model.RoleAdmin, resp.Role)
	assert.Equal(t, "admin", resp.Username)

	rec := do(t, e, http.MethodPost, "/api/auth/validate", "", handler.ValidateRequest{Token: resp.Token})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, e, http.MethodPost, "/api/auth/validate", "", handler.ValidateRequest{Token: "junk"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, e, http.MethodPost, "/api/auth/login", "", handler.LoginRequest{Username: "admin", Password: "wrong-one"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	var body errors.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "INVALID_CREDENTIALS", body.Code)
}

func TestRegistrationCannotGrantAdmin(t *testing.T) {
	e, _ := newTestServer(t)
	register(t, e, "jane")

	resp := login(t, e, "jane", "secret1")
	assert.Equal(t, model.RoleUser, resp.Role)

	rec := do(t, e, http.MethodPost, "/api/users", "", map[string]string{
		"first_name": "Jane", "last_name": "Doe", "user_name": "jane", "email": "other@example.com", "password": "secret1",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestValidationErrorsCarryFields(t *testing.T) {
	e, _ := newTestServer(t)
	rec := do(t, e, http.MethodPost, "/api/users", "", map[string]string{"user_name": "x", "email": "nope"})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body errors.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body.Fields, "email")
	assert.Contains(t, body.Fields, "first_name")
	assert.Contains(t, body.Fields, "password")
}

func TestCartFlow(t *testing.T) {
	e, _ := newTestServer(t)
	register(t, e, "renter")
	token := login(t, e, "renter", "secret1").Token

	rec := do(t, e, http.MethodGet, "/api/cart", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, e, http.MethodPost, "/api/cart/items", token, handler.AddCartItemRequest{CarID: 1, Days: 3})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = do(t, e, http.MethodPost, "/api/cart/items", token, handler.AddCartItemRequest{CarID: 1, Days: 2})
	require.Equal(t, http.StatusCreated, rec.Code)
	var cart model.Cart
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cart))
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 5, cart.Items[0].Days)
	assert.Equal(t, "225.00", cart.Items[0].Subtotal.StringFixed(2))
	assert.Equal(t, "225.00", cart.TotalAmount.StringFixed(2))

	rec = do(t, e, http.MethodPut, "/api/cart/items/1", token, handler.UpdateCartItemRequest{Days: 1})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cart))
	assert.Equal(t, 1, cart.Items[0].Days)

	rec = do(t, e, http.MethodPut, "/api/cart/items/1", token, handler.UpdateCartItemRequest{Days: 0})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, e, http.MethodDelete, "/api/cart/items/1", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cart))
	assert.True(t, cart.IsEmpty())

	rec = do(t, e, http.MethodDelete, "/api/cart/items/1", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, e, http.MethodPost, "/api/cart/items", token, handler.AddCartItemRequest{CarID: 999, Days: 1})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdminRoutes(t *testing.T) {
	e, _ := newTestServer(t)
	register(t, e, "plain")
	userToken := login(t, e, "plain", "secret1").Token
	adminToken := login(t, e, "admin", "admin123").Token

	car := map[string]interface{}{"make": "Kia", "model": "Rio", "year": 2020, "price_per_day": 25.5, "type": "Hatchback"}

	rec := do(t, e, http.MethodPost, "/api/cars", userToken, car)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(t, e, http.MethodPost, "/api/cars", adminToken, car)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created model.Car
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "25.50", created.PricePerDay.StringFixed(2))

	car["price_per_day"] = -1
	rec = do(t, e, http.MethodPut, fmt.Sprintf("/api/cars/%d", created.ID), adminToken, car)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, e, http.MethodDelete, fmt.Sprintf("/api/cars/%d", created.ID), adminToken, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, e, http.MethodGet, fmt.Sprintf("/api/cars/%d", created.ID), "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, e, http.MethodGet, "/api/users", userToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(t, e, http.MethodGet, "/api/users", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var users []model.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &users))
	assert.Len(t, users, 2)
}

func TestDeleteMeRevokesToken(t *testing.T) {
	e, _ := newTestServer(t)
	register(t, e, "leaver")
	token := login(t, e, "leaver", "secret1").Token

	rec := do(t, e, http.MethodPost, "/api/cart/items", token, handler.AddCartItemRequest{CarID: 2, Days: 1})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, e, http.MethodGet, "/api/users/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var me model.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &me))
	assert.Equal(t, "leaver", me.UserName)
	assert.Equal(t, "2024-05-01T12:00:00", me.CreatedAt.String())

	rec = do(t, e, http.MethodDelete, "/api/users/me", token, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, e, http.MethodGet, "/api/users/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, e, http.MethodPost, "/api/auth/validate", token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
