package session

import (
	"context"
	"time"

	"github.com/go-redis/cache/v8"
	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/tamasbrandstadter/teller/internal/bankapi"
)

const (
	Key = "teller:session"

	DefaultTTL = 8 * time.Hour
)

var (
	ErrNoSession = errors.New("no active session")
	ErrExpired   = errors.New("session expired")
)

type Store interface {
	Set(item *cache.Item) error
	Get(ctx context.Context, key string, value interface{}) error
	Delete(ctx context.Context, key string) error
}

type Snapshot struct {
	Profile   bankapi.Profile
	Token     string
	ExpiresAt time.Time
}

type Manager struct {
	api    *bankapi.Client
	store  Store
	maxTTL time.Duration
}

// NewManager caps sessions at maxTTL, or at DefaultTTL when maxTTL is not
// positive.
func NewManager(api *bankapi.Client, store Store, maxTTL time.Duration) *Manager {
	if maxTTL <= 0 {
		maxTTL = DefaultTTL
	}
	return &Manager{api: api, store: store, maxTTL: maxTTL}
}

func (m *Manager) Login(ctx context.Context, username, password string) (*Session, error) {
	res, err := m.api.Login(ctx, bankapi.Credentials{Username: username, Password: password})
	if err != nil {
		return nil, errors.Wrap(err, "login")
	}

	expiresAt := m.expiry(res.Token)
	if !time.Now().Before(expiresAt) {
		return nil, ErrExpired
	}

	snap := Snapshot{Profile: res.User, Token: res.Token, ExpiresAt: expiresAt}
	if err := m.store.Set(&cache.Item{
		Ctx:   ctx,
		Key:   Key,
		Value: snap,
		TTL:   time.Until(expiresAt),
	}); err != nil {
		// the session is still usable, it just won't survive a restart
		log.WithError(err).Warn("failed to store session snapshot")
	}

	log.WithFields(log.Fields{"operator": res.User.ID, "expiresAt": expiresAt.Format(time.RFC3339)}).Info("operator logged in")

	return New(snap.Profile, snap.Token, snap.ExpiresAt, m.api), nil
}

func (m *Manager) Resume(ctx context.Context) (*Session, error) {
	var snap Snapshot
	if err := m.store.Get(ctx, Key, &snap); err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return nil, ErrNoSession
		}
		return nil, errors.Wrap(err, "read session snapshot")
	}

	if !time.Now().Before(snap.ExpiresAt) {
		if err := m.store.Delete(ctx, Key); err != nil && !errors.Is(err, cache.ErrCacheMiss) {
			log.WithError(err).Warn("failed to delete expired session snapshot")
		}
		return nil, ErrExpired
	}

	log.WithField("operator", snap.Profile.ID).Info("resumed session")

	return New(snap.Profile, snap.Token, snap.ExpiresAt, m.api), nil
}

func (m *Manager) Logout(ctx context.Context, s *Session) error {
	if s != nil {
		s.end()
	}

	if err := m.store.Delete(ctx, Key); err != nil && !errors.Is(err, cache.ErrCacheMiss) {
		return errors.Wrap(err, "delete session snapshot")
	}

	log.Info("operator logged out")
	return nil
}

func (m *Manager) expiry(token string) time.Time {
	limit := time.Now().Add(m.maxTTL)

	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		log.WithError(err).Debug("token is not a jwt, using the configured session ttl")
		return limit
	}

	if claims.ExpiresAt == nil || claims.ExpiresAt.Time.After(limit) {
		return limit
	}
	return claims.ExpiresAt.Time
}
