package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/joseph-ayodele/zero-paper-user/internal/entity"
)

// Storage keys shared by both tiers.
const (
	KeyAuthToken    = "authToken"
	KeyRefreshToken = "refreshToken"
	KeyUserData     = "userData"
)

var authKeys = []string{KeyAuthToken, KeyRefreshToken, KeyUserData}

var (
	// ErrSessionExpired means the token is gone or could not be renewed;
	// the caller has to log in again.
	ErrSessionExpired = errors.New("session expired, please log in again")
	ErrNoRefreshToken = errors.New("no refresh token stored")
)

// Refresher exchanges a refresh token for a new token pair.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (entity.LoginData, error)
}

// Session is the auth state of one caller. Durable survives restarts,
// ephemeral only lasts for the current process or shell session.
type Session struct {
	durable   Store
	ephemeral Store
	refresher Refresher
	now       func() time.Time
	logger    *slog.Logger
}

type Option func(*Session)

// WithClock overrides time.Now for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

func New(durable, ephemeral Store, logger *slog.Logger, opts ...Option) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Session{durable: durable, ephemeral: ephemeral, now: time.Now, logger: logger}
	for _, o := range opts {
		o(s)
	}
	return s
}

// SetRefresher wires the renewal endpoint. The client and the session
// reference each other, so this is set after both exist.
func (s *Session) SetRefresher(r Refresher) { s.refresher = r }

// SetAuthToken stores token (and whatever loginData carries) in the durable
// tier when rememberMe is set, else in the ephemeral tier. Both tiers lose
// their previous auth keys first, so nothing from an earlier login survives.
func (s *Session) SetAuthToken(ctx context.Context, token string, rememberMe bool, login *entity.LoginData) error {
	target := s.ephemeral
	if rememberMe {
		target = s.durable
	}
	if err := s.Clear(ctx); err != nil {
		return err
	}
	return s.write(ctx, target, token, login)
}

func (s *Session) write(ctx context.Context, st Store, token string, login *entity.LoginData) error {
	if err := st.Set(ctx, KeyAuthToken, token); err != nil {
		return fmt.Errorf("store token: %w", err)
	}
	if login == nil {
		return nil
	}
	if login.RefreshToken != "" {
		if err := st.Set(ctx, KeyRefreshToken, login.RefreshToken); err != nil {
			return fmt.Errorf("store refresh token: %w", err)
		}
	}
	if len(login.User) > 0 {
		if err := st.Set(ctx, KeyUserData, string(login.User)); err != nil {
			return fmt.Errorf("store user: %w", err)
		}
	}
	return nil
}

// AuthToken reads the durable tier first, then the ephemeral one.
func (s *Session) AuthToken(ctx context.Context) (string, error) {
	_, token, err := s.lookup(ctx, KeyAuthToken)
	return token, err
}

// RefreshToken follows the same tier order as AuthToken.
func (s *Session) RefreshToken(ctx context.Context) (string, error) {
	_, token, err := s.lookup(ctx, KeyRefreshToken)
	return token, err
}

// User returns the cached profile, or false when none is stored.
func (s *Session) User(ctx context.Context) (entity.User, bool, error) {
	_, raw, err := s.lookup(ctx, KeyUserData)
	if err != nil || raw == "" {
		return entity.User{}, false, err
	}
	if !json.Valid([]byte(raw)) {
		return entity.User{}, false, fmt.Errorf("cached user is not JSON")
	}
	return entity.UserFromJSON([]byte(raw)), true, nil
}

func (s *Session) lookup(ctx context.Context, key string) (Store, string, error) {
	for _, st := range []Store{s.durable, s.ephemeral} {
		v, ok, err := st.Get(ctx, key)
		if err != nil {
			return nil, "", fmt.Errorf("read %s: %w", key, err)
		}
		if ok && v != "" {
			return st, v, nil
		}
	}
	return nil, "", nil
}

// IsAuthTokenValid reports whether a token is stored and not expired.
func (s *Session) IsAuthTokenValid(ctx context.Context) bool {
	token, err := s.AuthToken(ctx)
	if err != nil {
		s.logger.Warn("session.token.read_error", "error", err)
		return false
	}
	return ValidateTokenExpiry(token, s.now())
}

// RefreshIfNeeded returns nil when the stored token is still valid.
// Otherwise it renews the pair in the tier that held it; any failure clears
// every auth key and returns ErrSessionExpired.
func (s *Session) RefreshIfNeeded(ctx context.Context) error {
	if s.IsAuthTokenValid(ctx) {
		return nil
	}

	tier, refresh, err := s.lookup(ctx, KeyRefreshToken)
	if err == nil && refresh == "" {
		err = ErrNoRefreshToken
	}
	if err == nil && s.refresher == nil {
		err = errors.New("no refresher configured")
	}

	var login entity.LoginData
	if err == nil {
		start := time.Now()
		login, err = s.refresher.Refresh(ctx, refresh)
		if err == nil && login.Token == "" {
			err = errors.New("refresh returned no token")
		}
		s.logger.Debug("session.refresh", "ok", err == nil, "elapsed_ms", time.Since(start).Milliseconds())
	}
	if err == nil {
		if login.RefreshToken == "" {
			login.RefreshToken = refresh
		}
		err = s.write(ctx, tier, login.Token, &login)
	}
	if err != nil {
		s.logger.Info("session.expired", "reason", err.Error())
		if cerr := s.Clear(ctx); cerr != nil {
			s.logger.Warn("session.clear_error", "error", cerr)
		}
		return fmt.Errorf("%w: %v", ErrSessionExpired, err)
	}
	return nil
}

// Clear removes the auth keys from both tiers.
func (s *Session) Clear(ctx context.Context) error {
	return errors.Join(clearAuth(ctx, s.durable), clearAuth(ctx, s.ephemeral))
}

func clearAuth(ctx context.Context, st Store) error {
	for _, k := range authKeys {
		if err := st.Delete(ctx, k); err != nil {
			return fmt.Errorf("delete %s: %w", k, err)
		}
	}
	return nil
}

// ValidateTokenExpiry decodes the middle segment of a three-part token
// without looking at the header or the signature and compares its exp claim
// (seconds) with now. Malformed or empty tokens are invalid. A payload
// without exp counts as valid.
func ValidateTokenExpiry(token string, now time.Time) bool {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return false
	}
	payload, err := jwt.NewParser().DecodeSegment(parts[1])
	if err != nil {
		return false
	}
	claims := jwt.MapClaims{}
	if err := json.Unmarshal(payload, &claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil {
		return false
	}
	if exp == nil {
		return true
	}
	return exp.Time.After(now)
}
