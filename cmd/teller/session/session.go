package session

import (
	"sync"
	"time"

	"github.com/tamasbrandstadter/teller/internal/bankapi"
)

type Session struct {
	profile   bankapi.Profile
	token     string
	expiresAt time.Time
	api       *bankapi.Client

	mu    sync.RWMutex
	ended bool
}

func New(profile bankapi.Profile, token string, expiresAt time.Time, api *bankapi.Client) *Session {
	return &Session{
		profile:   profile,
		token:     token,
		expiresAt: expiresAt,
		api:       api.WithToken(token),
	}
}

func (s *Session) Profile() bankapi.Profile {
	return s.profile
}

func (s *Session) OperatorID() string {
	return s.profile.ID
}

func (s *Session) Token() string {
	return s.token
}

func (s *Session) ExpiresAt() time.Time {
	return s.expiresAt
}

func (s *Session) API() *bankapi.Client {
	return s.api
}

func (s *Session) Active() bool {
	if s == nil {
		return false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.ended {
		return false
	}
	return s.expiresAt.IsZero() || time.Now().Before(s.expiresAt)
}

func (s *Session) end() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ended = true
}
