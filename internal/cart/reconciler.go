// Package cart turns cart intents into backend writes. Each transition issues
// exactly one write and invalidates the keys it returns; the cart shown is
// always the next server read.
package cart

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"

	"carrental/internal/guard"
	"carrental/internal/model"
	"carrental/internal/resource"
	"carrental/internal/session"
)

const (
	MsgLoginToAdd    = "Please log in to add items to your cart."
	MsgLoginToManage = "Please log in to manage your cart."
)

var (
	ErrNotInCart    = errors.New("car is not in the cart")
	ErrNotConfirmed = errors.New("clearing the cart requires confirmation")
	ErrBusy         = errors.New("a request for this control is already in flight")
)

// LoginRequiredError is returned when an anonymous session manipulates the
// cart. No backend call was made.
type LoginRequiredError struct {
	Redirect guard.Redirect
}

func (e *LoginRequiredError) Error() string { return e.Redirect.Message }

// API is the part of the backend client the reconciler drives.
type API interface {
	GetCart(ctx context.Context, token string) (*model.Cart, error)
	AddToCart(ctx context.Context, token string, carID uint, days int) ([]resource.Key, error)
	UpdateCartItem(ctx context.Context, token string, carID uint, days int) ([]resource.Key, error)
	RemoveFromCart(ctx context.Context, token string, carID uint) ([]resource.Key, error)
	ClearCart(ctx context.Context, token string) ([]resource.Key, error)
}

// Session supplies the token snapshot for a transition.
type Session interface {
	Snapshot() session.Snapshot
}

// Reconciler drives one session's cart.
type Reconciler struct {
	api     API
	session Session
	cache   *resource.Cache
	log     echo.Logger

	mu       sync.Mutex
	inflight map[string]struct{}
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithLogger sets the component logger.
func WithLogger(l echo.Logger) Option {
	return func(r *Reconciler) { r.log = l }
}

// New creates a Reconciler.
func New(api API, sess Session, cache *resource.Cache, opts ...Option) *Reconciler {
	r := &Reconciler{
		api:      api,
		session:  sess,
		cache:    cache,
		inflight: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.log == nil {
		r.log = log.New("cart")
	}
	return r
}

// View returns the latest cart read. Anonymous sessions get an empty state.
func (r *Reconciler) View(ctx context.Context) resource.State[*model.Cart] {
	snap := r.session.Snapshot()
	if !snap.IsAuthenticated() {
		return resource.State[*model.Cart]{}
	}
	return r.read(ctx, snap.Token)
}

func (r *Reconciler) read(ctx context.Context, token string) resource.State[*model.Cart] {
	return resource.Query(ctx, r.cache, resource.Cart, func(ctx context.Context) (*model.Cart, error) {
		return r.api.GetCart(ctx, token)
	})
}

// Add puts carID in the cart. days below 1 count as 1.
func (r *Reconciler) Add(ctx context.Context, carID uint, days int, from string) error {
	if days < 1 {
		days = 1
	}
	return r.transition(ctx, fmt.Sprintf("add:%d", carID), MsgLoginToAdd, from, func(token string) ([]resource.Key, error) {
		return r.api.AddToCart(ctx, token, carID, days)
	})
}

// Increment adds one day to carID.
func (r *Reconciler) Increment(ctx context.Context, carID uint, from string) error {
	return r.step(ctx, carID, 1, from)
}

// Decrement removes one day from carID, removing the item at zero.
func (r *Reconciler) Decrement(ctx context.Context, carID uint, from string) error {
	return r.step(ctx, carID, -1, from)
}

func (r *Reconciler) step(ctx context.Context, carID uint, delta int, from string) error {
	return r.transition(ctx, fmt.Sprintf("update:%d", carID), MsgLoginToManage, from, func(token string) ([]resource.Key, error) {
		st := r.read(ctx, token)
		if st.Err != nil && !st.HasData() {
			return nil, st.Err
		}
		item, ok := st.Data.Find(carID)
		if !ok {
			return nil, ErrNotInCart
		}
		return r.setDays(ctx, token, carID, item.Days+delta)
	})
}

// SetDays sets the rental days of carID. days of zero or less removes it.
func (r *Reconciler) SetDays(ctx context.Context, carID uint, days int, from string) error {
	return r.transition(ctx, fmt.Sprintf("update:%d", carID), MsgLoginToManage, from, func(token string) ([]resource.Key, error) {
		return r.setDays(ctx, token, carID, days)
	})
}

func (r *Reconciler) setDays(ctx context.Context, token string, carID uint, days int) ([]resource.Key, error) {
	if days <= 0 {
		return r.api.RemoveFromCart(ctx, token, carID)
	}
	return r.api.UpdateCartItem(ctx, token, carID, days)
}

// Remove deletes carID from the cart.
func (r *Reconciler) Remove(ctx context.Context, carID uint, from string) error {
	return r.transition(ctx, fmt.Sprintf("remove:%d", carID), MsgLoginToManage, from, func(token string) ([]resource.Key, error) {
		return r.api.RemoveFromCart(ctx, token, carID)
	})
}

// Clear empties the cart once the user confirmed.
func (r *Reconciler) Clear(ctx context.Context, confirmed bool, from string) error {
	if !confirmed {
		return ErrNotConfirmed
	}
	return r.transition(ctx, "clear", MsgLoginToManage, from, func(token string) ([]resource.Key, error) {
		return r.api.ClearCart(ctx, token)
	})
}

func (r *Reconciler) transition(ctx context.Context, control, loginMsg, from string, write func(token string) ([]resource.Key, error)) error {
	snap := r.session.Snapshot()
	if !snap.IsAuthenticated() {
		return &LoginRequiredError{Redirect: guard.LoginRedirect(from, loginMsg)}
	}
	if !r.acquire(control) {
		return ErrBusy
	}
	defer r.release(control)

	keys, err := write(snap.Token)
	if err != nil {
		if !errors.Is(err, ErrNotInCart) {
			r.log.Warnf("cart %s: %v", control, err)
		}
		return err
	}
	r.cache.Invalidate(keys...)
	return nil
}

func (r *Reconciler) acquire(control string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, busy := r.inflight[control]; busy {
		return false
	}
	r.inflight[control] = struct{}{}
	return true
}

func (r *Reconciler) release(control string) {
	r.mu.Lock()
	delete(r.inflight, control)
	r.mu.Unlock()
}
