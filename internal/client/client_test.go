package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/gommon/log"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carrental/internal/resource"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	l := log.New("test")
	l.SetOutput(io.Discard)
	return New(srv.URL+"/api/", WithLogger(l))
}

func TestClient_SendsBearerTokenAndDecodes(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/cars/3", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":3,"make":"Ford","model":"Focus","year":2021,"price_per_day":39.5,"type":"Compact"}`))
	})

	car, err := c.GetCar(context.Background(), "tok", 3)
	require.NoError(t, err)
	assert.Equal(t, "Ford", car.Make)
	assert.True(t, decimal.RequireFromString("39.50").Equal(car.PricePerDay))
}

func TestClient_OmitsAuthorizationWithoutToken(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`[]`))
	})

	cars, err := c.ListCars(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, cars)
}

func TestClient_ErrorTaxonomy(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		kind      Kind
		message   string
		rejected  bool
		retryable bool
	}{
		{"unauthorized", http.StatusUnauthorized, `{"message":"invalid or expired token"}`, KindAuthorization, "invalid or expired token", true, false},
		{"forbidden", http.StatusForbidden, `{"message":"forbidden"}`, KindAuthorization, "forbidden", true, false},
		{"validation with error field", http.StatusBadRequest, `{"error":"days must be at least 1","code":"INVALID_DAYS"}`, KindValidation, "days must be at least 1", true, false},
		{"not found", http.StatusNotFound, `{"error":"car not found"}`, KindValidation, "car not found", true, false},
		{"server", http.StatusInternalServerError, `{"error":"internal server error"}`, KindServer, "internal server error", false, true},
		{"server without body", http.StatusBadGateway, ``, KindServer, "", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := c.GetCart(context.Background(), "tok")
			require.Error(t, err)

			var ce *Error
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.kind, ce.Kind)
			assert.Equal(t, tt.status, ce.Status)
			assert.Equal(t, tt.message, ce.Message)
			assert.Equal(t, tt.rejected, ce.Rejected())
			assert.Equal(t, tt.retryable, ce.Retryable())
			assert.Equal(t, tt.status == http.StatusNotFound, IsNotFound(err))
		})
	}
}

func TestClient_FieldErrors(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"validation failed","code":"VALIDATION_FAILED","errors":{"email":"must be a valid email"}}`))
	})

	_, _, err := c.AddUser(context.Background(), "", NewUser{UserName: "x"})
	require.Error(t, err)
	assert.Equal(t, map[string]string{"email": "must be a valid email"}, Fields(err))
	assert.Equal(t, "validation failed", Message(err, "fallback"))
}

func TestClient_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	l := log.New("test")
	l.SetOutput(io.Discard)
	c := New(url, WithLogger(l))

	err := c.ValidateToken(context.Background(), "tok")
	require.Error(t, err)
	assert.True(t, IsKind(err, KindNetwork))
	assert.Equal(t, "fallback", Message(err, "fallback"))

	var ce *Error
	require.ErrorAs(t, err, &ce)
	assert.False(t, ce.Rejected())
	assert.True(t, ce.Retryable())
}

func TestClient_WritesReturnAffectedKeys(t *testing.T) {
	var gotBody map[string]interface{}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotBody = nil
		if r.Body != nil {
			_ = json.NewDecoder(r.Body).Decode(&gotBody)
		}
		switch r.Method {
		case http.MethodDelete:
			w.WriteHeader(http.StatusNoContent)
		default:
			_, _ = w.Write([]byte(`{}`))
		}
	})
	ctx := context.Background()

	keys, err := c.AddToCart(ctx, "tok", 4, 2)
	require.NoError(t, err)
	assert.Equal(t, []resource.Key{resource.Cart}, keys)
	assert.Equal(t, float64(4), gotBody["carId"])
	assert.Equal(t, float64(2), gotBody["days"])

	keys, err = c.UpdateCartItem(ctx, "tok", 4, 5)
	require.NoError(t, err)
	assert.Equal(t, []resource.Key{resource.Cart}, keys)
	assert.NotContains(t, gotBody, "carId")

	_, keys, err = c.UpdateCar(ctx, "tok", 4, CarInput{Make: "Kia"})
	require.NoError(t, err)
	assert.Equal(t, []resource.Key{resource.Cars, resource.CarKey(4)}, keys)

	keys, err = c.DeleteCar(ctx, "tok", 4)
	require.NoError(t, err)
	assert.Equal(t, []resource.Key{resource.Cars, resource.CarKey(4)}, keys)

	keys, err = c.DeleteProfile(ctx, "tok")
	require.NoError(t, err)
	assert.Equal(t, []resource.Key{resource.Me, resource.Cart}, keys)

	keys, err = c.DeleteUser(ctx, "tok", 9)
	require.NoError(t, err)
	assert.Equal(t, []resource.Key{resource.Users}, keys)
}

func TestClient_Login(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/auth/login", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "jdoe", body["username"])
		_, _ = w.Write([]byte(`{"token":"t1","username":"jdoe","userId":7,"role":"ADMIN"}`))
	})

	res, err := c.Login(context.Background(), "jdoe", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "t1", res.Token)
	assert.Equal(t, uint(7), res.UserID)
	assert.Equal(t, "ADMIN", string(res.Role))
}

func TestClient_WithTimeoutLeavesSharedClientAlone(t *testing.T) {
	shared := &http.Client{}
	c := New("http://backend/api", WithHTTPClient(shared), WithTimeout(3*time.Second))

	assert.Equal(t, time.Duration(0), shared.Timeout)
	assert.Equal(t, 3*time.Second, c.http.Timeout)
	assert.Equal(t, "http://backend/api", c.baseURL)

	c = New("http://backend/api/", WithTimeout(2*time.Second))
	assert.Equal(t, 2*time.Second, c.http.Timeout)
	assert.Equal(t, "http://backend/api", c.baseURL)
}
