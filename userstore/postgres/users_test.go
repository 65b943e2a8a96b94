package postgres

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/MrEthical07/sessioncore"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type fakeRow struct {
	err    error
	values []any
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	for i, d := range dest {
		switch p := d.(type) {
		case *string:
			*p = r.values[i].(string)
		case *[]string:
			*p = r.values[i].([]string)
		case *bool:
			*p = r.values[i].(bool)
		case **time.Time:
			*p = r.values[i].(*time.Time)
		}
	}
	return nil
}

func TestScanUser(t *testing.T) {
	now := time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC)
	u, err := scanUser(fakeRow{values: []any{"u1", "a@example.com", "$argon2id$...", []string{"seller"}, true, &now}})
	if err != nil {
		t.Fatalf("scanUser: %v", err)
	}
	if u.ID != "u1" || !u.Active || len(u.Roles) != 1 || u.LastLogin == nil || !u.LastLogin.Equal(now) {
		t.Fatalf("unexpected record %+v", u)
	}

	if _, err := scanUser(fakeRow{err: pgx.ErrNoRows}); !errors.Is(err, sessioncore.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}

	outage := errors.New("conn reset")
	_, err = scanUser(fakeRow{err: outage})
	if !errors.Is(err, outage) || errors.Is(err, sessioncore.ErrUserNotFound) {
		t.Fatalf("expected wrapped outage, got %v", err)
	}
}

func TestPoolConfig(t *testing.T) {
	pcfg, err := poolConfig(Config{
		URL:             "postgres://user:pw@localhost:5432/app?sslmode=disable",
		MaxConns:        7,
		MaxConnLifetime: time.Minute,
	})
	if err != nil {
		t.Fatalf("poolConfig: %v", err)
	}
	if pcfg.MaxConns != 7 || pcfg.MaxConnLifetime != time.Minute {
		t.Fatalf("overrides not applied: max=%d lifetime=%v", pcfg.MaxConns, pcfg.MaxConnLifetime)
	}

	if _, err := poolConfig(Config{URL: "://nope"}); err == nil {
		t.Fatal("expected parse error")
	}
}

// TestUserStoreRoundTrip runs against a real database when
// SESSIONCORE_TEST_DATABASE_URL is set.
func TestUserStoreRoundTrip(t *testing.T) {
	dsn := os.Getenv("SESSIONCORE_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("SESSIONCORE_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()

	db, err := Open(ctx, Config{URL: dsn, QueryTimeout: 2 * time.Second})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(db.Close)

	store := NewUserStore(db)
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	id := uuid.NewString()
	email := id + "@Example.com"
	if err := store.Create(ctx, sessioncore.UserRecord{ID: id, Email: email, PasswordHash: "h", Active: true}); err != nil {
		t.Fatalf("create: %v", err)
	}
	t.Cleanup(func() { _, _ = db.Pool.Exec(context.Background(), "DELETE FROM users WHERE id = $1", id) })

	if err := store.Create(ctx, sessioncore.UserRecord{ID: uuid.NewString(), Email: email, PasswordHash: "h"}); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	u, err := store.GetByEmail(ctx, email)
	if err != nil {
		t.Fatalf("get by email: %v", err)
	}
	if u.ID != id || len(u.Roles) != 0 || u.LastLogin != nil {
		t.Fatalf("unexpected record %+v", u)
	}

	now := time.Now().UTC().Truncate(time.Millisecond)
	u.LastLogin = &now
	u.Roles = []string{"buyer"}
	if err := store.Save(ctx, u); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := store.GetByID(ctx, id)
	if err != nil {
		t.Fatalf("get by id: %v", err)
	}
	if got.LastLogin == nil || !got.LastLogin.Equal(now) || got.Roles[0] != "buyer" {
		t.Fatalf("save not persisted: %+v", got)
	}

	if err := store.Save(ctx, sessioncore.UserRecord{ID: uuid.NewString()}); !errors.Is(err, sessioncore.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}
