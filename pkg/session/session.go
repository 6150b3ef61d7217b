// Package session holds the one piece of client state that outlives a command: the
// credential token, and what the platform last said about it.
package session

import (
	"context"
	"errors"
	"sync"

	"github.com/sw33tLie/carbonscope/internal/utils"
	"github.com/sw33tLie/carbonscope/pkg/carbon"
)

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

// ErrStale is returned when the session changed (login, logout) while a call was in
// flight. Its result belongs to a session that no longer exists.
var ErrStale = errors.New("session changed while the request was in flight")

// Session is passed explicitly to every component that talks to the platform. It is the
// carbon.TokenSource of its own client, so a logout is seen by the very next request.
type Session struct {
	mu       sync.RWMutex
	store    TokenStore
	token    string
	identity *carbon.Identity
	state    State
	gen      uint64

	client *carbon.Client
}

// New loads any saved token. The session starts Unauthenticated until Check succeeds.
func New(cfg carbon.Config, store TokenStore) (*Session, error) {
	if store == nil {
		store = &MemoryStore{}
	}
	tok, err := store.Load()
	if err != nil {
		return nil, err
	}
	s := &Session{store: store, token: tok}
	s.client = carbon.NewClient(cfg, s)
	return s, nil
}

func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *Session) Client() *carbon.Client { return s.client }

func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Generation increases on every state transition. Async work records it before starting
// and drops its result if it has moved on.
func (s *Session) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gen
}

// Current reports whether gen is still the live generation.
func (s *Session) Current(gen uint64) bool {
	return s.Generation() == gen
}

// Identity returns a copy of the last confirmed identity, or nil.
func (s *Session) Identity() *carbon.Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.identity == nil {
		return nil
	}
	id := *s.identity
	id.Roles = append([]string(nil), s.identity.Roles...)
	return &id
}

// Roles is nil unless Authenticated.
func (s *Session) Roles() []string {
	if id := s.Identity(); id != nil {
		return id.Roles
	}
	return nil
}

// Login exchanges credentials for a token, persists it and confirms it with an identity
// check. A failed login leaves the previous state untouched.
func (s *Session) Login(ctx context.Context, username, password string) (*carbon.Identity, error) {
	res, err := s.client.Login(ctx, username, password)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	if err := s.store.Save(res.Token); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.token = res.Token
	s.identity = nil
	s.state = Unauthenticated
	s.gen++
	s.mu.Unlock()

	utils.Log.Debugf("Logged in as %s", res.Username)
	return s.Check(ctx)
}

// Check asks the platform who the token belongs to. On success the session becomes
// Authenticated with exactly the roles returned. Any failure is an implicit logout: the
// session becomes Unauthenticated, and a token the platform rejected is dropped.
func (s *Session) Check(ctx context.Context) (*carbon.Identity, error) {
	s.mu.RLock()
	gen, tok := s.gen, s.token
	s.mu.RUnlock()

	if tok == "" {
		s.transition(gen, nil, false)
		return nil, carbon.ErrNoToken
	}

	id, err := s.client.Me(ctx)
	if err != nil {
		if !s.transition(gen, nil, carbon.IsAuthFailure(err)) {
			return nil, ErrStale
		}
		return nil, err
	}
	if !s.transition(gen, id, false) {
		return nil, ErrStale
	}
	return s.Identity(), nil
}

// transition applies the outcome of an identity check started at gen. It returns false,
// and changes nothing, if the session moved on in the meantime. The stored token is only
// removed under s.mu, so a token saved by a newer login is never the one removed.
func (s *Session) transition(gen uint64, id *carbon.Identity, dropToken bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		return false
	}
	if dropToken {
		if err := s.store.Clear(); err != nil {
			utils.Log.Warnf("Could not remove rejected token: %v", err)
		}
		s.token = ""
	}
	if id == nil {
		if s.state != Unauthenticated || s.identity != nil {
			s.gen++
		}
		s.identity = nil
		s.state = Unauthenticated
		return true
	}
	if s.state != Authenticated || !sameIdentity(s.identity, id) {
		s.gen++
	}
	s.identity = id
	s.state = Authenticated
	return true
}

func sameIdentity(a, b *carbon.Identity) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Username == b.Username && utils.AreSlicesEqual(a.Roles, b.Roles)
}

// Logout drops the token everywhere and moves to Unauthenticated. It is idempotent.
func (s *Session) Logout() error {
	s.mu.Lock()
	err := s.store.Clear()
	s.token = ""
	s.identity = nil
	s.state = Unauthenticated
	s.gen++
	s.mu.Unlock()
	return err
}

// Reload re-reads the token store, picking up a login or logout done by another process.
// It reports whether the token changed; a changed token needs a new Check.
func (s *Session) Reload() (bool, error) {
	tok, err := s.store.Load()
	if err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if tok == s.token {
		return false, nil
	}
	s.token = tok
	s.identity = nil
	s.state = Unauthenticated
	s.gen++
	return true, nil
}
