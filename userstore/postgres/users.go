package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/sessioncore"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var _ sessioncore.UserProvider = (*UserStore)(nil)

// ErrConflict is returned when an insert collides with an existing email.
var ErrConflict = errors.New("postgres: email already registered")

// Schema creates the table the store reads. Emails are stored lowercased.
const Schema = `
CREATE TABLE IF NOT EXISTS users (
    id            TEXT PRIMARY KEY,
    email         TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    roles         TEXT[] NOT NULL DEFAULT '{}',
    is_active     BOOLEAN NOT NULL DEFAULT TRUE,
    last_login    TIMESTAMPTZ,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`

const (
	qUserColumns = `id, email, password_hash, roles, is_active, last_login`

	qUserInsert = `
INSERT INTO users (id, email, password_hash, roles, is_active, last_login)
VALUES ($1, $2, $3, $4, $5, $6);`

	qUserByID = `
SELECT ` + qUserColumns + `
FROM users
WHERE id = $1;`

	qUserByEmail = `
SELECT ` + qUserColumns + `
FROM users
WHERE email = $1;`

	qUserUpdate = `
UPDATE users
SET email         = $2,
    password_hash = $3,
    roles         = $4,
    is_active     = $5,
    last_login    = $6,
    updated_at    = NOW()
WHERE id = $1;`
)

type UserStore struct {
	db *DB
}

func NewUserStore(db *DB) *UserStore { return &UserStore{db: db} }

// Migrate applies [Schema].
func (s *UserStore) Migrate(ctx context.Context) error {
	ctx, cancel := s.db.withTimeout(ctx)
	defer cancel()

	if _, err := s.db.Pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("users migrate: %w", err)
	}
	return nil
}

func (s *UserStore) Create(ctx context.Context, u sessioncore.UserRecord) error {
	ctx, cancel := s.db.withTimeout(ctx)
	defer cancel()

	_, err := s.db.Pool.Exec(ctx, qUserInsert, u.ID, normalizeEmail(u.Email), u.PasswordHash, rolesOrEmpty(u.Roles), u.Active, u.LastLogin)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrConflict
		}
		return fmt.Errorf("user insert: %w", err)
	}
	return nil
}

func (s *UserStore) GetByID(ctx context.Context, id string) (sessioncore.UserRecord, error) {
	ctx, cancel := s.db.withTimeout(ctx)
	defer cancel()

	return scanUser(s.db.Pool.QueryRow(ctx, qUserByID, id))
}

func (s *UserStore) GetByEmail(ctx context.Context, email string) (sessioncore.UserRecord, error) {
	ctx, cancel := s.db.withTimeout(ctx)
	defer cancel()

	return scanUser(s.db.Pool.QueryRow(ctx, qUserByEmail, normalizeEmail(email)))
}

// Save writes back bookkeeping changes. A missing row is
// [sessioncore.ErrUserNotFound].
func (s *UserStore) Save(ctx context.Context, u sessioncore.UserRecord) error {
	ctx, cancel := s.db.withTimeout(ctx)
	defer cancel()

	tag, err := s.db.Pool.Exec(ctx, qUserUpdate, u.ID, normalizeEmail(u.Email), u.PasswordHash, rolesOrEmpty(u.Roles), u.Active, u.LastLogin)
	if err != nil {
		return fmt.Errorf("user update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sessioncore.ErrUserNotFound
	}
	return nil
}

func scanUser(row pgx.Row) (sessioncore.UserRecord, error) {
	var (
		u         sessioncore.UserRecord
		lastLogin *time.Time
	)
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Roles, &u.Active, &lastLogin); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return sessioncore.UserRecord{}, sessioncore.ErrUserNotFound
		}
		return sessioncore.UserRecord{}, fmt.Errorf("scan user: %w", err)
	}
	u.LastLogin = lastLogin
	return u, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func rolesOrEmpty(roles []string) []string {
	if roles == nil {
		return []string{}
	}
	return roles
}
