// Package web serves the storefront's views as JSON view models. Each browser
// is tracked by a session cookie that maps to its own session store, read
// cache and cart.
package web

import (
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"carrental/internal/client"
	"carrental/internal/guard"
	"carrental/internal/nav"
	"carrental/internal/session"
)

const (
	SessionCookie = "sid"

	ctxSession    = "session"
	cookieMaxAge  = 30 * 24 * 60 * 60
	defaultFrom   = "/"
	healthzStatus = "ok"
)

// Config configures a Server.
type Config struct {
	CookieSecure    bool
	LoginRatePerMin int
	Logger          echo.Logger
	Now             func() time.Time
}

// Server holds the storefront's handlers.
type Server struct {
	registry *Registry
	api      *client.Client
	nav      *nav.Controller
	limiter  *loginLimiter
	validate *validator.Validate
	cfg      Config
	log      echo.Logger
}

// New creates a Server.
func New(registry *Registry, api *client.Client, navCtl *nav.Controller, cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = log.New("web")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Server{
		registry: registry,
		api:      api,
		nav:      navCtl,
		limiter:  newLoginLimiter(cfg.LoginRatePerMin),
		validate: newFormValidator(),
		cfg:      cfg,
		log:      cfg.Logger,
	}
}

// NewEcho creates the echo instance with every storefront route.
func NewEcho(s *Server) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	// The login limiter keys on the peer address, never on X-Forwarded-For.
	e.IPExtractor = echo.ExtractIPDirect()
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	s.Register(e)
	return e
}

// Register mounts the storefront routes on e.
func (s *Server) Register(e *echo.Echo) {
	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, healthzStatus)
	})

	g := e.Group("", s.sessionMiddleware)
	authed := guard.Middleware(guard.Auth, s.resolve)
	admin := guard.Middleware(guard.Admin, s.resolve)

	g.GET("/", s.carList)
	g.GET("/car-details/:carId", s.carDetails)
	g.GET("/nav", s.navBar)

	g.GET("/cart", s.cartView, authed)
	g.POST("/cart/items", s.addToCart)
	g.PUT("/cart/items/:carId", s.setCartDays)
	g.POST("/cart/items/:carId/increment", s.incrementCartItem)
	g.POST("/cart/items/:carId/decrement", s.decrementCartItem)
	g.POST("/cart/items/:carId/remove", s.removeCartItem)
	g.POST("/cart/clear", s.clearCart)
	g.POST("/cart/checkout", s.checkout, authed)

	g.GET("/login", s.loginForm)
	g.POST("/login", s.login, s.limiter.middleware())
	g.POST("/logout", s.logout)
	g.GET("/register", s.registerForm)
	g.POST("/register", s.register)

	g.GET("/profile", s.profile, authed)
	g.POST("/profile", s.updateProfile, authed)
	g.POST("/profile/delete", s.deleteProfile, authed)

	g.GET("/cars-management", s.carsManagement, admin)
	g.POST("/cars-management/:carId/delete", s.deleteCar, admin)
	g.GET("/add-car", s.addCarForm, admin)
	g.POST("/add-car", s.addCar, admin)
	g.GET("/edit-car/:carId", s.editCarForm, admin)
	g.POST("/edit-car/:carId", s.editCar, admin)
	g.GET("/user-management", s.userManagement, admin)
	g.POST("/user-management", s.createUser, admin)
	g.POST("/user-management/:userId/delete", s.deleteUser, admin)
}

func (s *Server) sessionMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		sid := ""
		if ck, err := c.Cookie(SessionCookie); err == nil {
			if _, err := uuid.Parse(ck.Value); err == nil {
				sid = ck.Value
			}
		}
		if sid == "" {
			sid = uuid.NewString()
			c.SetCookie(&http.Cookie{
				Name:     SessionCookie,
				Value:    sid,
				Path:     "/",
				MaxAge:   cookieMaxAge,
				HttpOnly: true,
				Secure:   s.cfg.CookieSecure,
				SameSite: http.SameSiteLaxMode,
			})
		}
		c.Set(ctxSession, s.registry.Open(c.Request().Context(), sid))
		return next(c)
	}
}

func sessionFrom(c echo.Context) *SessionContext {
	sc, _ := c.Get(ctxSession).(*SessionContext)
	return sc
}

func (s *Server) resolve(c echo.Context) (session.Snapshot, error) {
	sc := sessionFrom(c)
	if sc == nil {
		return session.Snapshot{}, echo.NewHTTPError(http.StatusInternalServerError, "session unavailable")
	}
	return sc.Snapshot(), nil
}

func (s *Server) flash(c echo.Context) string {
	if s.nav == nil {
		return ""
	}
	msg, _ := s.nav.TakeFlash(sessionFrom(c).ID())
	return msg
}

// fromOf picks the path to come back to after a login: the explicit value,
// then the Referer, then the root.
func fromOf(c echo.Context, explicit string) string {
	if explicit != "" {
		return guard.SafeFrom(explicit, defaultFrom)
	}
	if ref := c.Request().Referer(); ref != "" {
		if u, err := url.Parse(ref); err == nil {
			return guard.SafeFrom(u.RequestURI(), defaultFrom)
		}
	}
	return defaultFrom
}

// statusOf maps a backend failure to the storefront's response status.
func statusOf(err error) int {
	var ce *client.Error
	if !errors.As(err, &ce) {
		return http.StatusInternalServerError
	}
	switch ce.Kind {
	case client.KindValidation:
		if ce.Status == http.StatusNotFound || ce.Status == http.StatusConflict {
			return ce.Status
		}
		return http.StatusBadRequest
	case client.KindAuthorization:
		return ce.Status
	default:
		return http.StatusBadGateway
	}
}

func seeOther(c echo.Context, location string) error {
	return c.Redirect(http.StatusSeeOther, location)
}
