package migrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const (
	migrationsTable = "schema_migrations"
	seedsTable      = "schema_seeds"
)

// Runner applies SQL migration and seed files from disk. Each file runs
// inside one transaction and is recorded by base name, so reruns are
// no-ops.
type Runner struct {
	db            *sql.DB
	migrationsDir string
	seedsDir      string
}

// NewRunner constructs a Runner over the given directories.
func NewRunner(db *sql.DB, migrationsDir, seedsDir string) *Runner {
	return &Runner{db: db, migrationsDir: migrationsDir, seedsDir: seedsDir}
}

// Up applies every pending *.up.sql migration in lexical order.
func (r *Runner) Up(ctx context.Context) error {
	return r.applyPending(ctx, migrationsTable, r.migrationsDir, ".up.sql")
}

// Seed applies every pending seed file. Seeds are tracked separately
// from migrations so a fresh environment can replay both.
func (r *Runner) Seed(ctx context.Context) error {
	return r.applyPending(ctx, seedsTable, r.seedsDir, ".sql")
}

// Down rolls back the most recently applied migration using its
// *.down.sql counterpart.
func (r *Runner) Down(ctx context.Context) error {
	if err := r.ensureTable(ctx, migrationsTable); err != nil {
		return err
	}
	applied, err := r.applied(ctx, migrationsTable)
	if err != nil {
		return err
	}
	if len(applied) == 0 {
		return errors.New("no migrations applied")
	}
	last := applied[len(applied)-1]
	downPath := filepath.Join(r.migrationsDir, strings.TrimSuffix(last, ".up.sql")+".down.sql")
	if _, err := os.Stat(downPath); err != nil {
		return fmt.Errorf("missing down migration for %s", last)
	}
	if err := r.execFile(ctx, downPath); err != nil {
		return fmt.Errorf("rollback %s: %w", last, err)
	}
	_, err = r.db.ExecContext(ctx,
		fmt.Sprintf(`delete from %s where name=$1`, migrationsTable), last)
	return err
}

// Status lists applied migrations in application order.
func (r *Runner) Status(ctx context.Context) ([]string, error) {
	if err := r.ensureTable(ctx, migrationsTable); err != nil {
		return nil, err
	}
	return r.applied(ctx, migrationsTable)
}

func (r *Runner) applyPending(ctx context.Context, table, dir, suffix string) error {
	if err := r.ensureTable(ctx, table); err != nil {
		return err
	}
	applied, err := r.applied(ctx, table)
	if err != nil {
		return err
	}
	done := make(map[string]bool, len(applied))
	for _, name := range applied {
		done[name] = true
	}

	files, err := listSQL(dir, suffix)
	if err != nil {
		return err
	}
	for _, path := range files {
		base := filepath.Base(path)
		if done[base] {
			continue
		}
		if err := r.execFile(ctx, path); err != nil {
			return fmt.Errorf("apply %s: %w", base, err)
		}
		if _, err := r.db.ExecContext(ctx,
			fmt.Sprintf(`insert into %s(name, applied_at) values ($1, $2)`, table),
			base, time.Now().UTC()); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) ensureTable(ctx context.Context, table string) error {
	_, err := r.db.ExecContext(ctx, fmt.Sprintf(`
		create table if not exists %s (
			name text primary key,
			applied_at timestamptz not null default now()
		)`, table))
	return err
}

func (r *Runner) applied(ctx context.Context, table string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		fmt.Sprintf(`select name from %s order by applied_at asc, name asc`, table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

func (r *Runner) execFile(ctx context.Context, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	for _, stmt := range splitStatements(string(raw)) {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func listSQL(dir, suffix string) ([]string, error) {
	if dir == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), suffix) {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}

// splitStatements breaks a script on semicolons, ignoring those inside
// single-quoted literals. Good enough for plain DDL and seed inserts.
func splitStatements(script string) []string {
	var (
		out      []string
		current  strings.Builder
		inString bool
	)
	for _, r := range script {
		current.WriteRune(r)
		switch r {
		case '\'':
			inString = !inString
		case ';':
			if !inString {
				out = append(out, current.String())
				current.Reset()
			}
		}
	}
	if strings.TrimSpace(current.String()) != "" {
		out = append(out, current.String())
	}
	return out
}
