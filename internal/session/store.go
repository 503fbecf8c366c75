package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"auction-console/internal/auctionerrors"
	"auction-console/internal/models"
	"auction-console/internal/repository"
	"auction-console/utils"

	"github.com/golang-jwt/jwt/v5"
)

//go:generate mockgen -source=store.go -destination=mock_store.go -package=session

// Authenticator is the REST auth collaborator.
type Authenticator interface {
	Login(ctx context.Context, creds models.Credentials) (models.AuthResponse, error)
	Register(ctx context.Context, reg models.Registration) (models.AuthResponse, error)
}

// Store is the single source of truth for who is logged in. Login, Register and
// Logout are its only writers; every write goes through the SessionDB first.
type Store struct {
	mu      sync.RWMutex
	repo    repository.SessionDB
	auth    Authenticator
	current *models.Session
}

// NewStore creates an empty store. Call Hydrate to restore a persisted session.
func NewStore(repo repository.SessionDB, auth Authenticator) *Store {
	return &Store{repo: repo, auth: auth}
}

// Hydrate restores the persisted session. An incomplete or unreadable record is
// discarded in full and the store stays logged out.
func (s *Store) Hydrate(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := s.repo.Load(ctx)
	if err != nil {
		utils.Warn("session: discarding unreadable record", map[string]any{"error": err.Error()})
		s.current = nil
		return s.clearLocked(ctx)
	}
	if len(record) == 0 {
		s.current = nil
		return nil
	}

	sess, err := fromRecord(record)
	if err != nil {
		utils.Warn("session: discarding incomplete record", map[string]any{"error": err.Error()})
		s.current = nil
		return s.clearLocked(ctx)
	}

	s.current = &sess
	utils.Info("session: restored", map[string]any{"username": sess.Username, "role": sess.Role})
	return nil
}

// Login authenticates against the backend and activates the returned session.
// On any failure the existing session and storage are left untouched.
func (s *Store) Login(ctx context.Context, creds models.Credentials) (models.Session, error) {
	if err := creds.Validate(); err != nil {
		return models.Session{}, err
	}

	resp, err := s.auth.Login(ctx, creds)
	if err != nil {
		return models.Session{}, fmt.Errorf("login: %w", err)
	}
	return s.activate(ctx, resp)
}

// Register creates an account and activates the returned session, like Login.
func (s *Store) Register(ctx context.Context, reg models.Registration) (models.Session, error) {
	if err := reg.Validate(); err != nil {
		return models.Session{}, err
	}

	resp, err := s.auth.Register(ctx, reg)
	if err != nil {
		return models.Session{}, fmt.Errorf("register: %w", err)
	}
	return s.activate(ctx, resp)
}

func (s *Store) activate(ctx context.Context, resp models.AuthResponse) (models.Session, error) {
	sess, err := fromAuthResponse(resp)
	if err != nil {
		return models.Session{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.repo.Save(ctx, toRecord(sess)); err != nil {
		return models.Session{}, fmt.Errorf("persist session: %w", err)
	}
	s.current = &sess

	utils.Info("session: activated", map[string]any{"username": sess.Username, "role": sess.Role})
	return sess, nil
}

// Logout clears the persisted record and the in-memory session. It always
// leaves the store logged out, even when storage fails.
func (s *Store) Logout(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.current = nil
	if err := s.clearLocked(ctx); err != nil {
		utils.Error("session: failed to clear persisted record", map[string]any{"error": err.Error()})
	}
}

func (s *Store) clearLocked(ctx context.Context) error {
	if err := s.repo.Clear(ctx); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// Current returns a copy of the active session.
func (s *Store) Current() (models.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return models.Session{}, false
	}
	return *s.current, true
}

// Token returns the bearer token of the active session, or "" when logged out.
// Callers read it once per request so an in-flight request keeps its token.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return ""
	}
	return s.current.Token
}

func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current != nil
}

func (s *Store) HasRole(role models.Role) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current != nil && s.current.Role == role
}

// HasAnyRole reports whether the session holds one of roles. It is false for an
// empty set; routes without a role requirement must not gate on it.
func (s *Store) HasAnyRole(roles ...models.Role) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return false
	}
	for _, r := range roles {
		if s.current.Role == r {
			return true
		}
	}
	return false
}

// Expired reports whether the active token is a JWT whose exp claim is before now.
// Opaque tokens never expire on the client side.
func (s *Store) Expired(now time.Time) bool {
	token := s.Token()
	if token == "" {
		return false
	}
	return TokenExpired(token, now)
}

// TokenExpired inspects an unverified JWT. The console holds no signing key, so
// this is only a hint used to send the operator back to login early.
func TokenExpired(token string, now time.Time) bool {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return false
	}
	if claims.ExpiresAt == nil {
		return false
	}
	return !now.Before(claims.ExpiresAt.Time)
}

func fromAuthResponse(resp models.AuthResponse) (models.Session, error) {
	if resp.Token == "" || resp.Username == "" || resp.Role == "" {
		return models.Session{}, fmt.Errorf("%w: auth response missing token, username or role", auctionerrors.ErrAuth)
	}
	role, ok := models.ParseRole(resp.Role)
	if !ok {
		return models.Session{}, fmt.Errorf("%w: unknown role %q", auctionerrors.ErrAuth, resp.Role)
	}
	return models.Session{Token: resp.Token, Username: resp.Username, Role: role, UserID: resp.UserID}, nil
}

func fromRecord(record map[string]string) (models.Session, error) {
	for _, key := range repository.RequiredKeys {
		if record[key] == "" {
			return models.Session{}, fmt.Errorf("%w: missing %s", auctionerrors.ErrMalformedSession, key)
		}
	}
	role, ok := models.ParseRole(record[repository.KeyRole])
	if !ok {
		return models.Session{}, errors.Join(auctionerrors.ErrMalformedSession, fmt.Errorf("unknown role %q", record[repository.KeyRole]))
	}
	return models.Session{
		Token:    record[repository.KeyToken],
		Username: record[repository.KeyUsername],
		Role:     role,
		UserID:   models.ID(record[repository.KeyUserID]),
	}, nil
}

func toRecord(sess models.Session) map[string]string {
	record := map[string]string{
		repository.KeyToken:    sess.Token,
		repository.KeyUsername: sess.Username,
		repository.KeyRole:     string(sess.Role),
	}
	if sess.UserID != "" {
		record[repository.KeyUserID] = string(sess.UserID)
	}
	return record
}
