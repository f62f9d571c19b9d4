package auth

import (
	"context"
	"time"
)

// SessionStore persists issued token-pair records.
type SessionStore interface {
	Create(ctx context.Context, sess *Session) error
	// FindActiveByTokenID resolves a session by its JWT jti. Revoked
	// records are filtered in the query; access-token expiry is checked
	// by the caller against the record, which is authoritative.
	FindActiveByTokenID(ctx context.Context, tokenID string) (*Session, error)
	Find(ctx context.Context, id string) (*Session, error)
	// TouchLastUsed sets last_used_at to now, but only when the stored
	// value is null or older than staleBefore. A single conditional
	// update, so concurrent requests race harmlessly.
	TouchLastUsed(ctx context.Context, id string, now, staleBefore time.Time) error
	Revoke(ctx context.Context, id string) error
	RevokeAllForUser(ctx context.Context, userID string) error
}

// Directory reads the user/role/permission records the gates consult,
// and writes the few fields the auth flows own.
type Directory interface {
	FindUser(ctx context.Context, id string) (*User, error)
	FindUserByEmail(ctx context.Context, email string) (*User, error)
	TouchLastLogin(ctx context.Context, userID string, at time.Time) error

	FindRole(ctx context.Context, id string) (*Role, error)
	// EffectivePermissions returns the union of role-granted and
	// directly-granted slugs for a user, deduplicated.
	EffectivePermissions(ctx context.Context, userID string) ([]string, error)

	RolePermissions(ctx context.Context, roleID string) ([]string, error)
	SetRolePermissions(ctx context.Context, roleID string, slugs []string) error
}
