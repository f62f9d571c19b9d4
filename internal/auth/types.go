package auth

import (
	"time"

	"tillpoint.org/internal/rbac"
)

// User is a back-office staff account. A user belongs to one tenant,
// holds at most one role and may carry direct permission grants on top
// of the role's.
type User struct {
	ID           string     `json:"id"`
	TenantID     string     `json:"tenant_id"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	RoleID       string     `json:"role_id,omitempty"`
	IsActive     bool       `json:"is_active"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Role groups permission slugs under a stable slug.
type Role struct {
	ID          string    `json:"id"`
	Slug        string    `json:"slug"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	IsDefault   bool      `json:"is_default"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Session is the persisted record of one issued token pair. Records are
// never deleted; revocation flips a flag so the audit trail survives.
type Session struct {
	ID               string
	UserID           string
	TokenID          string
	DeviceName       string
	AccessExpiresAt  time.Time
	RefreshHash      string
	RefreshExpiresAt time.Time
	Revoked          bool
	LastUsedAt       *time.Time
	CreatedAt        time.Time
}

// TokenBundle is what login and refresh hand back to clients.
type TokenBundle struct {
	TokenType        string `json:"token_type"`
	AccessToken      string `json:"access_token"`
	RefreshToken     string `json:"refresh_token"`
	ExpiresIn        int64  `json:"expires_in"`
	RefreshExpiresIn int64  `json:"refresh_expires_in"`
	TokenID          string `json:"token_id"`
}

// Principal is the resolved identity bound to a request after
// authentication: the user, its role (nil when unassigned), the
// effective permission set (role grants united with direct grants) and
// the session the credential belongs to.
type Principal struct {
	User        *User
	Role        *Role
	Permissions rbac.SlugSet
	Session     *Session
}

// HasPermission reports whether the effective set owns the slug.
func (p Principal) HasPermission(slug string) bool {
	return p.Permissions.Contains(slug)
}

// HasAll reports whether the effective set owns every slug.
func (p Principal) HasAll(slugs []string) bool {
	return p.Permissions.ContainsAll(slugs)
}

// IsSuperAdmin reports whether the principal's role is the sentinel
// that bypasses authorization entirely.
func (p Principal) IsSuperAdmin() bool {
	return p.Role != nil && p.Role.Slug == rbac.RoleSuperAdmin
}
