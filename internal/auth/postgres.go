package auth

import (
	"context"
	"database/sql"
	"time"
)

var (
	_ SessionStore = (*PGSessionStore)(nil)
	_ Directory    = (*PGDirectory)(nil)
)

// PGSessionStore implements SessionStore using PostgreSQL.
type PGSessionStore struct {
	db *sql.DB
}

func NewPGSessionStore(db *sql.DB) *PGSessionStore {
	return &PGSessionStore{db: db}
}

const sessionColumns = `id, user_id, token_id, device_name, access_token_expires_at,
	 refresh_token_hash, refresh_token_expires_at, revoked, last_used_at, created_at`

func (s *PGSessionStore) Create(ctx context.Context, sess *Session) error {
	_, err := s.db.ExecContext(ctx,
		`insert into auth_tokens(id, user_id, token_id, device_name, access_token_expires_at,
		 refresh_token_hash, refresh_token_expires_at, created_at)
		 values($1,$2,$3,$4,$5,$6,$7,$8)`,
		sess.ID, sess.UserID, sess.TokenID, sess.DeviceName, sess.AccessExpiresAt,
		sess.RefreshHash, sess.RefreshExpiresAt, sess.CreatedAt,
	)
	return err
}

func (s *PGSessionStore) FindActiveByTokenID(ctx context.Context, tokenID string) (*Session, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+sessionColumns+` from auth_tokens where token_id=$1 and revoked=false`, tokenID)
	return scanSession(row)
}

func (s *PGSessionStore) Find(ctx context.Context, id string) (*Session, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+sessionColumns+` from auth_tokens where id=$1`, id)
	return scanSession(row)
}

// TouchLastUsed is a single conditional update so concurrent requests
// within the coalescing window cost at most one write.
func (s *PGSessionStore) TouchLastUsed(ctx context.Context, id string, now, staleBefore time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`update auth_tokens set last_used_at=$2
		 where id=$1 and (last_used_at is null or last_used_at < $3)`,
		id, now, staleBefore,
	)
	return err
}

func (s *PGSessionStore) Revoke(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx,
		`update auth_tokens set revoked=true where id=$1`, id)
	return err
}

func (s *PGSessionStore) RevokeAllForUser(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx,
		`update auth_tokens set revoked=true where user_id=$1 and revoked=false`, userID)
	return err
}

func scanSession(row *sql.Row) (*Session, error) {
	var (
		sess       Session
		deviceName sql.NullString
		lastUsed   sql.NullTime
	)
	err := row.Scan(&sess.ID, &sess.UserID, &sess.TokenID, &deviceName, &sess.AccessExpiresAt,
		&sess.RefreshHash, &sess.RefreshExpiresAt, &sess.Revoked, &lastUsed, &sess.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	sess.DeviceName = deviceName.String
	if lastUsed.Valid {
		t := lastUsed.Time
		sess.LastUsedAt = &t
	}
	return &sess, nil
}

// PGDirectory implements Directory using PostgreSQL.
type PGDirectory struct {
	db *sql.DB
}

func NewPGDirectory(db *sql.DB) *PGDirectory {
	return &PGDirectory{db: db}
}

const userColumns = `id, tenant_id, email, password_hash, role_id, is_active, last_login_at, created_at, updated_at`

func (d *PGDirectory) FindUser(ctx context.Context, id string) (*User, error) {
	row := d.db.QueryRowContext(ctx,
		`select `+userColumns+` from users where id=$1`, id)
	return scanUser(row)
}

func (d *PGDirectory) FindUserByEmail(ctx context.Context, email string) (*User, error) {
	row := d.db.QueryRowContext(ctx,
		`select `+userColumns+` from users where email=$1`, email)
	return scanUser(row)
}

func (d *PGDirectory) TouchLastLogin(ctx context.Context, userID string, at time.Time) error {
	_, err := d.db.ExecContext(ctx,
		`update users set last_login_at=$2 where id=$1`, userID, at)
	return err
}

func (d *PGDirectory) FindRole(ctx context.Context, id string) (*Role, error) {
	row := d.db.QueryRowContext(ctx,
		`select id, slug, name, description, is_default, created_at, updated_at from roles where id=$1`, id)
	var role Role
	err := row.Scan(&role.ID, &role.Slug, &role.Name, &role.Description,
		&role.IsDefault, &role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &role, nil
}

// EffectivePermissions is the union of role grants and direct grants.
func (d *PGDirectory) EffectivePermissions(ctx context.Context, userID string) ([]string, error) {
	rows, err := d.db.QueryContext(ctx,
		`select rp.permission_slug from role_permissions rp
		 join users u on u.role_id = rp.role_id where u.id=$1
		 union
		 select up.permission_slug from user_permissions up where up.user_id=$1`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var slugs []string
	for rows.Next() {
		var slug string
		if err := rows.Scan(&slug); err != nil {
			return nil, err
		}
		slugs = append(slugs, slug)
	}
	return slugs, rows.Err()
}

func (d *PGDirectory) RolePermissions(ctx context.Context, roleID string) ([]string, error) {
	rows, err := d.db.QueryContext(ctx,
		`select permission_slug from role_permissions where role_id=$1 order by permission_slug`, roleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var slugs []string
	for rows.Next() {
		var slug string
		if err := rows.Scan(&slug); err != nil {
			return nil, err
		}
		slugs = append(slugs, slug)
	}
	return slugs, rows.Err()
}

func (d *PGDirectory) SetRolePermissions(ctx context.Context, roleID string, slugs []string) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`delete from role_permissions where role_id=$1`, roleID); err != nil {
		return err
	}
	for _, slug := range slugs {
		if _, err := tx.ExecContext(ctx,
			`insert into role_permissions(role_id, permission_slug) values($1,$2)`,
			roleID, slug); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func scanUser(row *sql.Row) (*User, error) {
	var (
		u         User
		roleID    sql.NullString
		lastLogin sql.NullTime
	)
	err := row.Scan(&u.ID, &u.TenantID, &u.Email, &u.PasswordHash, &roleID,
		&u.IsActive, &lastLogin, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	u.RoleID = roleID.String
	if lastLogin.Valid {
		t := lastLogin.Time
		u.LastLoginAt = &t
	}
	return &u, nil
}
