// Package session keeps per-browser navigation state: one submission
// controller and the last successful payload for each visitor.
package session

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bobmcallan/chartscope-portal/internal/analysis"
	"github.com/bobmcallan/chartscope-portal/internal/common"
	"github.com/bobmcallan/chartscope-portal/internal/submission"
)

// CookieName is the session cookie.
const CookieName = "chartscope_session"

// DefaultIdleTTL is how long an unused session is kept.
const DefaultIdleTTL = 2 * time.Hour

// ControllerFactory builds the controller for a new session. nav receives the
// payload of every successful attempt.
type ControllerFactory func(nav submission.Navigator) *submission.Controller

// State is one visitor's navigation state.
type State struct {
	ID         string
	Controller *submission.Controller

	mu       sync.Mutex
	handoff  *submission.Handoff
	lastSeen time.Time
}

// Navigate stores the hand-off so the results page can render it.
func (s *State) Navigate(_ context.Context, h submission.Handoff) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handoff = &h
}

// Result returns the last successful payload.
func (s *State) Result() (submission.Handoff, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.handoff == nil || s.handoff.Result == nil {
		return submission.Handoff{}, false
	}
	return *s.handoff, true
}

// SetResult replaces the navigation payload, used when re-opening a stored record.
func (s *State) SetResult(symbol, tier string, r *analysis.Result) {
	s.Navigate(context.Background(), submission.Handoff{Symbol: symbol, Tier: tier, Result: r})
}

func (s *State) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *State) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// Registry maps session ids to State.
type Registry struct {
	factory ControllerFactory
	logger  *common.Logger
	ttl     time.Duration
	secure  bool

	mu       sync.Mutex
	sessions map[string]*State
	now      func() time.Time
}

// NewRegistry creates an empty registry.
func NewRegistry(factory ControllerFactory, logger *common.Logger, ttl time.Duration) *Registry {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	if ttl <= 0 {
		ttl = DefaultIdleTTL
	}
	return &Registry{
		factory:  factory,
		logger:   logger,
		ttl:      ttl,
		sessions: make(map[string]*State),
		now:      time.Now,
	}
}

// SetSecureCookies marks issued cookies Secure.
func (r *Registry) SetSecureCookies(secure bool) {
	r.secure = secure
}

// Lookup returns the state for an id without creating one.
func (r *Registry) Lookup(id string) (*State, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if ok {
		s.touch(r.now())
	}
	return s, ok
}

// Get returns the state for id, creating it when unknown.
func (r *Registry) Get(id string) *State {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	if s, ok := r.sessions[id]; ok {
		s.touch(now)
		return s
	}
	if id == "" {
		id = uuid.NewString()
	}
	s := &State{ID: id, lastSeen: now}
	s.Controller = r.factory(s)
	r.sessions[id] = s
	r.logger.Debug().Str("session", id).Int("sessions", len(r.sessions)).Msg("session created")
	return s
}

// FromRequest returns the caller's state, issuing a cookie for new visitors.
func (r *Registry) FromRequest(w http.ResponseWriter, req *http.Request) *State {
	id := ""
	if c, err := req.Cookie(CookieName); err == nil {
		if _, perr := uuid.Parse(c.Value); perr == nil {
			id = c.Value
		}
	}
	s := r.Get(id)
	if s.ID != id {
		http.SetCookie(w, &http.Cookie{
			Name:     CookieName,
			Value:    s.ID,
			Path:     "/",
			HttpOnly: true,
			Secure:   r.secure,
			SameSite: http.SameSiteLaxMode,
		})
	}
	return s
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Prune drops sessions idle longer than the TTL. Sessions with an attempt in
// flight are kept. It returns the number removed.
func (r *Registry) Prune() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	cutoff := r.now().Add(-r.ttl)
	removed := 0
	for id, s := range r.sessions {
		if s.idleSince().Before(cutoff) && !s.Controller.InFlight() {
			delete(r.sessions, id)
			removed++
		}
	}
	if removed > 0 {
		r.logger.Debug().Int("removed", removed).Int("sessions", len(r.sessions)).Msg("pruned idle sessions")
	}
	return removed
}

// StartPruner prunes on interval until ctx is done.
func (r *Registry) StartPruner(ctx context.Context, interval time.Duration) {
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				r.Prune()
			}
		}
	}()
}
