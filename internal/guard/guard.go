// Package guard decides whether a view may render for the current session.
package guard

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"

	"carrental/internal/session"
)

const (
	LoginPath = "/login"

	MsgLoginRequired = "Please log in to access this page."
	DeniedTitle      = "Access Denied"
	DeniedMessage    = "You need administrator privileges to access this page."
)

// State is the part of a session a guard decision depends on.
type State struct {
	Loading       bool
	Authenticated bool
	Admin         bool
}

// FromSnapshot derives a guard State from a session snapshot.
func FromSnapshot(s session.Snapshot) State {
	return State{Loading: s.Loading, Authenticated: s.IsAuthenticated(), Admin: s.IsAdmin()}
}

// Route describes the access requirements of a view. AdminOnly implies
// RequiresAuth.
type Route struct {
	RequiresAuth bool
	AdminOnly    bool
}

var (
	Public = Route{}
	Auth   = Route{RequiresAuth: true}
	Admin  = Route{RequiresAuth: true, AdminOnly: true}
)

// Outcome is what a guarded view should do.
type Outcome int

const (
	OutcomeRender Outcome = iota
	OutcomeLoading
	OutcomeRedirect
	OutcomeDenied
)

func (o Outcome) String() string {
	switch o {
	case OutcomeRender:
		return "render"
	case OutcomeLoading:
		return "loading"
	case OutcomeRedirect:
		return "redirect"
	case OutcomeDenied:
		return "denied"
	default:
		return "unknown"
	}
}

// Redirect sends the browser to another view, remembering where it came from.
type Redirect struct {
	To      string
	From    string
	Message string
	Replace bool
}

// URL renders the redirect as a location with from and message query
// parameters.
func (r Redirect) URL() string {
	q := url.Values{}
	if r.From != "" {
		q.Set("from", r.From)
	}
	if r.Message != "" {
		q.Set("message", r.Message)
	}
	if len(q) == 0 {
		return r.To
	}
	return r.To + "?" + q.Encode()
}

// LoginRedirect is the redirect to the login view for from.
func LoginRedirect(from, message string) Redirect {
	return Redirect{To: LoginPath, From: from, Message: message, Replace: true}
}

// Denial is the access-denied view.
type Denial struct {
	Title   string
	Message string
}

// Decision is the result of Decide.
type Decision struct {
	Outcome  Outcome
	Redirect *Redirect
	Denial   *Denial
}

// Decide applies route to the session state for a request of path.
func Decide(s State, r Route, path string) Decision {
	if s.Loading {
		return Decision{Outcome: OutcomeLoading}
	}
	needsAuth := r.RequiresAuth || r.AdminOnly
	if needsAuth && !s.Authenticated {
		rd := LoginRedirect(path, MsgLoginRequired)
		return Decision{Outcome: OutcomeRedirect, Redirect: &rd}
	}
	if r.AdminOnly && !s.Admin {
		return Decision{Outcome: OutcomeDenied, Denial: &Denial{Title: DeniedTitle, Message: DeniedMessage}}
	}
	return Decision{Outcome: OutcomeRender}
}

// SafeFrom returns from when it is a local path and fallback otherwise.
func SafeFrom(from, fallback string) string {
	if from == "" || !strings.HasPrefix(from, "/") || strings.HasPrefix(from, "//") || strings.Contains(from, `\`) {
		return fallback
	}
	return from
}

// LoadingView is rendered while the session initializes.
type LoadingView struct {
	View string `json:"view"`
}

// DeniedView is rendered when a non-admin opens an admin view.
type DeniedView struct {
	View    string `json:"view"`
	Title   string `json:"title"`
	Message string `json:"message"`
	Back    string `json:"back"`
}

// Resolver returns the session snapshot of a request.
type Resolver func(c echo.Context) (session.Snapshot, error)

// Middleware guards the wrapped handler with route.
func Middleware(route Route, resolve Resolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			snap, err := resolve(c)
			if err != nil {
				return err
			}
			d := Decide(FromSnapshot(snap), route, c.Request().URL.RequestURI())
			switch d.Outcome {
			case OutcomeLoading:
				return c.JSON(http.StatusOK, LoadingView{View: "loading"})
			case OutcomeRedirect:
				return c.Redirect(http.StatusSeeOther, d.Redirect.URL())
			case OutcomeDenied:
				return c.JSON(http.StatusForbidden, DeniedView{
					View:    "access-denied",
					Title:   d.Denial.Title,
					Message: d.Denial.Message,
					Back:    backLink(c.Request().Referer()),
				})
			default:
				return next(c)
			}
		}
	}
}

func backLink(referer string) string {
	if referer == "" {
		return "/"
	}
	u, err := url.Parse(referer)
	if err != nil || u.Path == "" {
		return "/"
	}
	return SafeFrom(u.RequestURI(), "/")
}
