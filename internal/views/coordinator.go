package views

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/dvloznov/bankx-client/internal/session"
)

// RouteLogin is where unauthenticated users are sent.
const RouteLogin = "/login"

// Navigator moves the user interface to a route.
type Navigator interface {
	Navigate(route string)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(route string)

func (f NavigatorFunc) Navigate(route string) { f(route) }

// Subscriber publishes session changes. *session.Store satisfies it.
type Subscriber interface {
	OnChange(fn func(session.Event)) (unsubscribe func())
}

// Coordinator is the one place that turns "not signed in" into navigation.
// It reacts both to session events and to errors surfaced by views.
type Coordinator struct {
	nav         Navigator
	log         zerolog.Logger
	unsubscribe func()

	mu         sync.Mutex
	redirected bool
}

// NewCoordinator subscribes to sessions and sends sign-outs to nav.
func NewCoordinator(sessions Subscriber, nav Navigator, log zerolog.Logger) *Coordinator {
	c := &Coordinator{nav: nav, log: log.With().Str("component", "coordinator").Logger()}
	c.unsubscribe = sessions.OnChange(c.onSession)
	return c
}

func (c *Coordinator) onSession(e session.Event) {
	switch {
	case e.SignedOut():
		c.log.Debug().Str("reason", string(e.Reason)).Msg("Session ended")
		c.toLogin()
	case e.Reason == session.ReasonLogin || e.Reason == session.ReasonRestored:
		c.mu.Lock()
		c.redirected = false
		c.mu.Unlock()
	}
}

// Handle redirects to login if err means the user is not signed in and
// reports whether it did. Other errors are left to the view.
func (c *Coordinator) Handle(err error) bool {
	if !NeedsLogin(err) {
		return false
	}
	c.toLogin()
	return true
}

// toLogin navigates once per signed-out period so a burst of failing
// requests does not stack redirects.
func (c *Coordinator) toLogin() {
	c.mu.Lock()
	if c.redirected {
		c.mu.Unlock()
		return
	}
	c.redirected = true
	c.mu.Unlock()

	c.nav.Navigate(RouteLogin)
}

// Close stops listening to session events.
func (c *Coordinator) Close() {
	if c.unsubscribe != nil {
		c.unsubscribe()
	}
}
