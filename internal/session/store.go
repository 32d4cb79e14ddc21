// Package session holds the authenticated identity of the client and keeps it
// in step with a Persister so it survives restarts.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/dvloznov/bankx-client/internal/domain"
	"github.com/dvloznov/bankx-client/internal/logger"
)

// State is the authentication state reported by Restore.
type State int

const (
	Unauthenticated State = iota
	Authenticated
)

func (s State) String() string {
	if s == Authenticated {
		return "authenticated"
	}
	return "unauthenticated"
}

// Reason says why a change event fired.
type Reason string

const (
	ReasonLogin    Reason = "login"
	ReasonRestored Reason = "restored"
	ReasonLogout   Reason = "logout"
	ReasonExpired  Reason = "expired"
)

// Event is delivered to subscribers after the session changes.
type Event struct {
	Reason  Reason
	Session *domain.Session
}

// SignedOut reports whether the event left the store without a session.
func (e Event) SignedOut() bool {
	return e.Reason == ReasonLogout || e.Reason == ReasonExpired
}

// Prober performs the liveness check used by Verify.
type Prober interface {
	Me(ctx context.Context) (*domain.Customer, error)
}

// Store is safe for concurrent use.
type Store struct {
	persister Persister
	log       zerolog.Logger
	mask      bool
	now       func() time.Time

	mu      sync.RWMutex
	current *domain.Session

	subMu   sync.Mutex
	subs    map[int]func(Event)
	nextSub int
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used for token expiry checks.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithMasking hides emails in log output.
func WithMasking(enabled bool) Option {
	return func(s *Store) { s.mask = enabled }
}

// New creates an empty store backed by p. Call Restore to load a saved session.
func New(p Persister, log zerolog.Logger, opts ...Option) *Store {
	s := &Store{
		persister: p,
		log:       log.With().Str("component", "session").Logger(),
		now:       time.Now,
		subs:      make(map[int]func(Event)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Restore rehydrates the session from the persister. It never calls the
// network; a token whose exp claim has passed is discarded.
func (s *Store) Restore(ctx context.Context) State {
	snap, err := s.persister.Load()
	if err != nil {
		if !errors.Is(err, ErrNoSession) {
			s.log.Warn().Err(err).Msg("Failed to read persisted session, starting signed out")
			s.clearPersisted()
		}
		return Unauthenticated
	}

	if tokenExpired(snap.Token, s.now()) {
		s.log.Info().Msg("Persisted session token has expired")
		s.clearPersisted()
		return Unauthenticated
	}

	sess := domain.NewSession(snap.User, snap.Token)
	s.mu.Lock()
	s.current = &sess
	s.mu.Unlock()

	s.log.Debug().Str("user_id", sess.UserID).Msg("Session restored")
	s.notify(Event{Reason: ReasonRestored, Session: &sess})
	return Authenticated
}

// Verify asks the server whether the restored token is still accepted and
// refreshes the stored user. A rejected token is cleared by the gateway's
// 401 handling before the error reaches the caller.
func (s *Store) Verify(ctx context.Context, probe Prober) error {
	token := s.Token()
	if token == "" {
		return ErrNoSession
	}
	user, err := probe.Me(ctx)
	if err != nil {
		return fmt.Errorf("verify session: %w", err)
	}
	if user == nil {
		return nil
	}

	s.mu.Lock()
	if s.current == nil || s.current.Token != token {
		// Signed out or replaced while the probe was in flight.
		s.mu.Unlock()
		return nil
	}
	sess := domain.NewSession(user, token)
	s.current = &sess
	s.mu.Unlock()

	s.persist(sess)
	return nil
}

// Login stores the session in memory and in the persister.
func (s *Store) Login(user *domain.Customer, token string) {
	sess := domain.NewSession(user, token)
	s.mu.Lock()
	s.current = &sess
	s.mu.Unlock()

	s.persist(sess)
	email := sess.Email
	if s.mask {
		email = logger.MaskEmail(email)
	}
	s.log.Info().Str("user_id", sess.UserID).Str("email", email).Msg("Signed in")
	s.notify(Event{Reason: ReasonLogin, Session: &sess})
}

// Logout clears memory and the persister and notifies subscribers.
func (s *Store) Logout() {
	s.drop()
	s.log.Info().Msg("Signed out")
	s.notify(Event{Reason: ReasonLogout})
}

// Expire is called when the server rejects the token. Subscribers are only
// notified if a session was actually dropped, so a burst of concurrent 401s
// produces a single event.
func (s *Store) Expire() {
	if !s.drop() {
		return
	}
	s.log.Warn().Msg("Session expired, server rejected the token")
	s.notify(Event{Reason: ReasonExpired})
}

// Token returns the bearer token or "" when signed out.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return ""
	}
	return s.current.Token
}

// Current returns a copy of the active session.
func (s *Store) Current() (domain.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return domain.Session{}, false
	}
	return *s.current, true
}

func (s *Store) Authenticated() bool {
	return s.Token() != ""
}

// OnChange registers fn for session events and returns a function that
// removes it. fn runs on the goroutine that changed the session.
func (s *Store) OnChange(fn func(Event)) (unsubscribe func()) {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

// drop clears the session and reports whether one was present.
func (s *Store) drop() bool {
	s.mu.Lock()
	had := s.current != nil
	s.current = nil
	s.mu.Unlock()

	s.clearPersisted()
	return had
}

func (s *Store) persist(sess domain.Session) {
	if err := s.persister.Save(Snapshot{Token: sess.Token, User: sess.User}); err != nil {
		s.log.Error().Err(err).Msg("Failed to persist session")
	}
}

func (s *Store) clearPersisted() {
	if err := s.persister.Clear(); err != nil {
		s.log.Error().Err(err).Msg("Failed to clear persisted session")
	}
}

func (s *Store) notify(e Event) {
	s.subMu.Lock()
	fns := make([]func(Event), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn(e)
	}
}

// tokenExpired reads the exp claim without verifying the signature. Tokens
// that are not JWTs, or carry no exp, are left for the server to judge.
func tokenExpired(token string, now time.Time) bool {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	return claims.ExpiresAt != nil && !claims.ExpiresAt.Time.After(now)
}
