// Package nav is the single consumer of session auth events. It turns token
// invalidations into one-shot flash messages and forwards every event to the
// configured sinks.
package nav

import (
	"context"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"

	"carrental/internal/session"
)

// MsgSessionExpired is flashed after the backend rejects a session's token.
const MsgSessionExpired = "Your session has expired. Please log in again."

const (
	dedupeWindow       = 10 * time.Minute
	defaultSinkTimeout = 5 * time.Second
)

// Sink receives auth events.
type Sink interface {
	Publish(ctx context.Context, ev session.AuthEvent) error
}

// LogSink writes events to a logger.
type LogSink struct {
	Log echo.Logger
}

// Publish implements Sink.
func (s LogSink) Publish(_ context.Context, ev session.AuthEvent) error {
	s.Log.Infof("auth event %s session=%s user=%s token=%s", ev.Kind, ev.SessionID, ev.Username, ev.TokenID)
	return nil
}

type seenKey struct {
	kind    session.EventKind
	session string
	token   string
}

// Controller consumes auth events.
type Controller struct {
	log         echo.Logger
	sinks       []Sink
	sinkTimeout time.Duration
	now         func() time.Time

	mu      sync.Mutex
	flashes map[string]string
	seen    map[seenKey]time.Time
}

// New creates a Controller forwarding to sinks.
func New(logger echo.Logger, sinks ...Sink) *Controller {
	if logger == nil {
		logger = log.New("nav")
	}
	return &Controller{
		log:         logger,
		sinks:       sinks,
		sinkTimeout: defaultSinkTimeout,
		now:         time.Now,
		flashes:     make(map[string]string),
		seen:        make(map[seenKey]time.Time),
	}
}

// Run consumes events until ctx is done or the channel is closed.
func (c *Controller) Run(ctx context.Context, events <-chan session.AuthEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			c.Handle(ctx, ev)
		}
	}
}

// Handle processes one event. Repeats of an event for the same session and
// token are dropped. Each sink gets at most sinkTimeout.
func (c *Controller) Handle(ctx context.Context, ev session.AuthEvent) {
	if !c.firstSeen(ev) {
		return
	}

	c.mu.Lock()
	switch ev.Kind {
	case session.TokenInvalidated:
		c.flashes[ev.SessionID] = MsgSessionExpired
	case session.LoggedIn:
		delete(c.flashes, ev.SessionID)
	}
	c.mu.Unlock()

	for _, sink := range c.sinks {
		pctx, cancel := context.WithTimeout(ctx, c.sinkTimeout)
		err := sink.Publish(pctx, ev)
		cancel()
		if err != nil {
			c.log.Warnf("publish %s event: %v", ev.Kind, err)
		}
	}
}

func (c *Controller) firstSeen(ev session.AuthEvent) bool {
	now := c.now()
	key := seenKey{kind: ev.Kind, session: ev.SessionID, token: ev.TokenID}

	c.mu.Lock()
	defer c.mu.Unlock()
	for k, at := range c.seen {
		if now.Sub(at) > dedupeWindow {
			delete(c.seen, k)
		}
	}
	if _, dup := c.seen[key]; dup {
		return false
	}
	c.seen[key] = now
	return true
}

// Flash stores a one-shot message for sid.
func (c *Controller) Flash(sid, msg string) {
	c.mu.Lock()
	c.flashes[sid] = msg
	c.mu.Unlock()
}

// TakeFlash returns and clears the pending message for sid.
func (c *Controller) TakeFlash(sid string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	msg, ok := c.flashes[sid]
	if ok {
		delete(c.flashes, sid)
	}
	return msg, ok
}
