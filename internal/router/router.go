package router

import (
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	echoSwagger "github.com/swaggo/echo-swagger"

	"carrental/internal/auth"
	"carrental/internal/errors"
	"carrental/internal/handler"
	"carrental/internal/model"
	"carrental/internal/service"
)

// Handlers groups the dev backend's HTTP handlers.
type Handlers struct {
	Auth  *handler.AuthHandler
	Cars  *handler.CarHandler
	Cart  *handler.CartHandler
	Users *handler.UserHandler
	Seed  *handler.SeedHandler
}

// Register wires routes and middleware.
func Register(
	e *echo.Echo,
	jwtService *auth.JWTService,
	authService service.AuthService,
	h Handlers,
) {
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	e.Validator = NewValidator()

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	e.GET("/swagger/*", echoSwagger.WrapHandler)

	api := e.Group("/api")

	// Public routes
	api.POST("/auth/login", h.Auth.Login)
	api.POST("/auth/validate", h.Auth.Validate)
	api.GET("/cars", h.Cars.ListCars)
	api.GET("/cars/:id", h.Cars.GetCar)
	api.POST("/users", h.Users.CreateUser)

	// Secured routes (require JWT authentication)
	secured := api.Group("",
		echojwt.WithConfig(echojwt.Config{
			SigningKey:  jwtService.Secret(),
			TokenLookup: "header:" + echo.HeaderAuthorization + ":Bearer ",
			NewClaimsFunc: func(echo.Context) jwt.Claims {
				return new(auth.Claims)
			},
			ErrorHandler: func(c echo.Context, err error) error {
				return unauthorized()
			},
		}),
		ActiveToken(authService),
	)

	secured.GET("/cart", h.Cart.GetCart)
	secured.DELETE("/cart", h.Cart.ClearCart)
	secured.POST("/cart/items", h.Cart.AddItem)
	secured.PUT("/cart/items/:carId", h.Cart.UpdateItem)
	secured.DELETE("/cart/items/:carId", h.Cart.RemoveItem)

	secured.GET("/users/me", h.Users.GetMe)
	secured.PUT("/users/me", h.Users.UpdateMe)
	secured.DELETE("/users/me", h.Users.DeleteMe)

	admin := secured.Group("", RequireRole(model.RoleAdmin))
	admin.POST("/cars", h.Cars.CreateCar)
	admin.PUT("/cars/:id", h.Cars.UpdateCar)
	admin.DELETE("/cars/:id", h.Cars.DeleteCar)
	admin.GET("/users", h.Users.ListUsers)
	admin.DELETE("/users/:id", h.Users.DeleteUser)
	admin.POST("/seed/cars", h.Seed.SeedCars)
}

// ActiveToken rejects tokens that were revoked or whose user no longer
// exists, and exposes the claims to handlers.
func ActiveToken(authService service.AuthService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, ok := c.Get("user").(*jwt.Token)
			if !ok {
				return unauthorized()
			}
			claims, err := authService.Validate(c.Request().Context(), token.Raw)
			if err != nil {
				httpErr := errors.MapErrorToHTTP(err)
				return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
			}
			c.Set(handler.ContextKeyClaims, claims)
			return next(c)
		}
	}
}

// RequireRole aborts with 403 unless the caller has one of roles.
func RequireRole(roles ...model.Role) echo.MiddlewareFunc {
	allowed := make(map[model.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims, ok := handler.ClaimsFrom(c)
			if !ok || !allowed[claims.Role] {
				httpErr := errors.MapErrorToHTTP(errors.ErrForbidden)
				return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
			}
			return next(c)
		}
	}
}

func unauthorized() error {
	httpErr := errors.MapErrorToHTTP(errors.ErrInvalidToken)
	return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
}

// CustomValidator wraps validator for Echo.
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator returns a validator that reports fields by their JSON name.
func NewValidator() *CustomValidator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return &CustomValidator{validator: v}
}

// Validate implements echo.Validator interface.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}
