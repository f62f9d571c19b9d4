package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"tillpoint.org/internal/ids"
	"tillpoint.org/internal/rbac"
)

const (
	defaultAccessTTL  = 15 * time.Minute
	defaultRefreshTTL = 24 * time.Hour * 14

	// touchWindow bounds write amplification on last_used_at: at most
	// one persisted update per window.
	touchWindow = 5 * time.Minute
)

// Service owns the session lifecycle: issuing, validating, refreshing
// and revoking token pairs, plus the idle-timeout policy.
type Service struct {
	sessions SessionStore
	users    Directory
	signer   *TokenSigner
	now      func() time.Time

	accessTTL   time.Duration
	refreshTTL  time.Duration
	idleTimeout time.Duration
}

// Option configures Service behavior.
type Option func(*Service) error

// WithAccessTTL configures access token lifetime.
func WithAccessTTL(ttl time.Duration) Option {
	return func(s *Service) error {
		if ttl > 0 {
			s.accessTTL = ttl
		}
		return nil
	}
}

// WithRefreshTTL configures refresh token lifetime.
func WithRefreshTTL(ttl time.Duration) Option {
	return func(s *Service) error {
		if ttl > 0 {
			s.refreshTTL = ttl
		}
		return nil
	}
}

// WithIdleTimeout enables the inactivity check. Zero disables it.
func WithIdleTimeout(d time.Duration) Option {
	return func(s *Service) error {
		if d < 0 {
			return errors.New("auth: idle timeout must not be negative")
		}
		s.idleTimeout = d
		return nil
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) Option {
	return func(s *Service) error {
		if fn != nil {
			s.now = fn
		}
		return nil
	}
}

// NewService constructs the session service.
func NewService(sessions SessionStore, users Directory, signer *TokenSigner, opts ...Option) (*Service, error) {
	if sessions == nil || users == nil || signer == nil {
		return nil, errors.New("auth: sessions, users and signer are required")
	}
	svc := &Service{
		sessions:   sessions,
		users:      users,
		signer:     signer,
		now:        time.Now,
		accessTTL:  defaultAccessTTL,
		refreshTTL: defaultRefreshTTL,
	}
	for _, opt := range opts {
		if err := opt(svc); err != nil {
			return nil, err
		}
	}
	svc.signer.now = svc.now
	return svc, nil
}

// AccessTTL returns the configured access token lifetime.
func (s *Service) AccessTTL() time.Duration { return s.accessTTL }

// Login authenticates email/password credentials and issues a session.
func (s *Service) Login(ctx context.Context, email, password, deviceName string) (TokenBundle, *User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return TokenBundle{}, nil, ErrInvalidCredentials
	}
	user, err := s.users.FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return TokenBundle{}, nil, ErrInvalidCredentials
		}
		return TokenBundle{}, nil, err
	}
	if !user.IsActive {
		return TokenBundle{}, nil, ErrInvalidCredentials
	}
	if err := VerifyPassword(user.PasswordHash, password); err != nil {
		return TokenBundle{}, nil, ErrInvalidCredentials
	}
	bundle, err := s.Issue(ctx, user, deviceName)
	if err != nil {
		return TokenBundle{}, nil, err
	}
	if err := s.users.TouchLastLogin(ctx, user.ID, s.now().UTC()); err != nil {
		return TokenBundle{}, nil, err
	}
	return bundle, user, nil
}

// Issue mints a fresh access/refresh pair for the user and persists
// the session record.
func (s *Service) Issue(ctx context.Context, user *User, deviceName string) (TokenBundle, error) {
	now := s.now().UTC()
	tokenID := uuid.NewString()
	accessExpires := now.Add(s.accessTTL)

	accessToken, err := s.signer.Sign(user.ID, tokenID, now, accessExpires)
	if err != nil {
		return TokenBundle{}, err
	}

	refreshToken, refreshHash, err := newRefreshSecret()
	if err != nil {
		return TokenBundle{}, err
	}
	sess := &Session{
		ID:               ids.New(),
		UserID:           user.ID,
		TokenID:          tokenID,
		DeviceName:       strings.TrimSpace(deviceName),
		AccessExpiresAt:  accessExpires,
		RefreshHash:      refreshHash,
		RefreshExpiresAt: now.Add(s.refreshTTL),
		CreatedAt:        now,
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		return TokenBundle{}, err
	}
	return TokenBundle{
		TokenType:        "Bearer",
		AccessToken:      accessToken,
		RefreshToken:     sess.ID + "." + refreshToken,
		ExpiresIn:        int64(s.accessTTL.Seconds()),
		RefreshExpiresIn: int64(s.refreshTTL.Seconds()),
		TokenID:          tokenID,
	}, nil
}

// Validate checks a raw access token end to end: signature and expiry,
// server-side session record, user liveness, idle timeout. On success
// it coalesces a last_used_at touch and returns the resolved principal.
func (s *Service) Validate(ctx context.Context, rawToken string) (Principal, error) {
	if strings.TrimSpace(rawToken) == "" {
		return Principal{}, ErrMissingToken
	}
	claims, err := s.signer.Parse(rawToken)
	if err != nil {
		return Principal{}, err
	}

	sess, err := s.sessions.FindActiveByTokenID(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// Revoked or unknown: presented identically to expiry.
			return Principal{}, ErrTokenExpired
		}
		return Principal{}, err
	}
	now := s.now().UTC()
	// The server-side record is authoritative over the JWT's own exp,
	// which tolerates clock skew between issuer and verifier.
	if now.After(sess.AccessExpiresAt) {
		return Principal{}, ErrTokenExpired
	}

	user, err := s.users.FindUser(ctx, sess.UserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Principal{}, ErrInactiveUser
		}
		return Principal{}, err
	}
	if !user.IsActive {
		return Principal{}, ErrInactiveUser
	}

	if s.idleTimeout > 0 {
		lastActivity := sess.CreatedAt
		if sess.LastUsedAt != nil {
			lastActivity = *sess.LastUsedAt
		}
		if now.Sub(lastActivity) > s.idleTimeout {
			return Principal{}, ErrSessionIdle
		}
	}

	if err := s.sessions.TouchLastUsed(ctx, sess.ID, now, now.Add(-touchWindow)); err != nil {
		return Principal{}, err
	}

	principal, err := s.principal(ctx, user)
	if err != nil {
		return Principal{}, err
	}
	principal.Session = sess
	return principal, nil
}

// Refresh rotates a refresh token: the consumed record is revoked and a
// brand-new pair is issued, so a replayed refresh token fails.
func (s *Service) Refresh(ctx context.Context, rawRefresh string) (TokenBundle, error) {
	recordID, secret, err := splitRefreshToken(rawRefresh)
	if err != nil {
		return TokenBundle{}, ErrInvalidToken
	}
	sess, err := s.sessions.Find(ctx, recordID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return TokenBundle{}, ErrInvalidToken
		}
		return TokenBundle{}, err
	}
	now := s.now().UTC()
	if sess.Revoked || now.After(sess.RefreshExpiresAt) {
		return TokenBundle{}, ErrTokenExpired
	}
	if !secureCompareHash(sess.RefreshHash, secret) {
		// A mismatched secret for a live record smells like replay of a
		// stolen prefix; burn the record.
		_ = s.sessions.Revoke(ctx, sess.ID)
		return TokenBundle{}, ErrInvalidToken
	}

	user, err := s.users.FindUser(ctx, sess.UserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return TokenBundle{}, ErrInactiveUser
		}
		return TokenBundle{}, err
	}
	if !user.IsActive {
		return TokenBundle{}, ErrInactiveUser
	}

	if err := s.sessions.Revoke(ctx, sess.ID); err != nil {
		return TokenBundle{}, err
	}
	return s.Issue(ctx, user, sess.DeviceName)
}

// Revoke marks the session revoked; subsequent validations of its jti
// fail exactly like an expired token.
func (s *Service) Revoke(ctx context.Context, sess *Session) error {
	if sess == nil {
		return errors.New("auth: session is required")
	}
	return s.sessions.Revoke(ctx, sess.ID)
}

// RevokeAllForUser force-logs-out every session of a user. Used on
// password change and administrative lockout.
func (s *Service) RevokeAllForUser(ctx context.Context, userID string) error {
	return s.sessions.RevokeAllForUser(ctx, userID)
}

// Principal resolves a user's role and effective permission set.
func (s *Service) principal(ctx context.Context, user *User) (Principal, error) {
	var role *Role
	if user.RoleID != "" {
		r, err := s.users.FindRole(ctx, user.RoleID)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return Principal{}, err
		}
		role = r
	}
	slugs, err := s.users.EffectivePermissions(ctx, user.ID)
	if err != nil {
		return Principal{}, err
	}
	return Principal{
		User:        user,
		Role:        role,
		Permissions: rbac.NewSlugSet(slugs),
	}, nil
}

// PrincipalForUser exposes principal resolution for callers that hold a
// user but no token, e.g. the gRPC interceptor tests and admin tooling.
func (s *Service) PrincipalForUser(ctx context.Context, userID string) (Principal, error) {
	user, err := s.users.FindUser(ctx, userID)
	if err != nil {
		return Principal{}, err
	}
	return s.principal(ctx, user)
}

func newRefreshSecret() (secret, hash string, err error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", "", err
	}
	secret = base64.RawURLEncoding.EncodeToString(buf)
	sum := sha256.Sum256([]byte(secret))
	return secret, hex.EncodeToString(sum[:]), nil
}

func splitRefreshToken(raw string) (id, secret string, err error) {
	parts := strings.Split(strings.TrimSpace(raw), ".")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", errors.New("invalid refresh token format")
	}
	return parts[0], parts[1], nil
}

func secureCompareHash(expectedHash, secret string) bool {
	sum := sha256.Sum256([]byte(secret))
	actual := hex.EncodeToString(sum[:])
	if len(expectedHash) != len(actual) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expectedHash), []byte(actual)) == 1
}
