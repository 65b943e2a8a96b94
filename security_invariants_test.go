package sessioncore

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/MrEthical07/sessioncore/jwt"
)

func TestSecurityInvariantReplayAfterRevokeStillDetected(t *testing.T) {
	f := newTestEngine(t, nil)
	ctx := context.Background()
	first := f.login(t)

	if _, err := f.engine.Refresh(ctx, first.RefreshToken); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	if _, err := f.engine.RevokeAll(ctx, "u1"); err != nil {
		t.Fatalf("revoke all failed: %v", err)
	}

	// The consumed-token ledger outlives the family record.
	if _, err := f.engine.Refresh(ctx, first.RefreshToken); !errors.Is(err, ErrRefreshReuse) {
		t.Fatalf("expected ErrRefreshReuse after revoke, got %v", err)
	}
}

func TestSecurityInvariantAccessStatelessAfterLogout(t *testing.T) {
	f := newTestEngine(t, nil)
	ctx := context.Background()
	pair := f.login(t)

	if _, err := f.engine.Logout(ctx, pair.AccessToken); err != nil {
		t.Fatalf("logout failed: %v", err)
	}
	// Access credentials are not revocable before expiry.
	if _, err := f.engine.ValidateAccess(ctx, pair.AccessToken); err != nil {
		t.Fatalf("expected access credential to stay valid until expiry, got %v", err)
	}
	if res := f.engine.Rotate(ctx, pair.RefreshToken); res.Outcome != RotationInvalid {
		t.Fatalf("expected refresh after logout to be invalid, got %s", res.Outcome)
	}
}

func TestSecurityInvariantValidateAvoidsProvider(t *testing.T) {
	f := newTestEngine(t, nil)
	pair := f.login(t)

	f.users.mu.Lock()
	f.users.getByIDCalls, f.users.getByEmailCalls, f.users.saveCalls = 0, 0, 0
	f.users.mu.Unlock()

	if _, err := f.engine.ValidateAccess(context.Background(), pair.AccessToken); err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if f.users.getByIDCalls != 0 || f.users.getByEmailCalls != 0 || f.users.saveCalls != 0 {
		t.Fatalf("validate must not call the user provider: %+v", f.users)
	}
}

func TestSecurityInvariantExpiredCredentialsRejected(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	f := newTestEngine(t, nil, func(b *Builder) { b.WithClock(clock) })
	pair := f.login(t)

	now = now.Add(31 * time.Minute)
	if _, err := f.engine.ValidateAccess(context.Background(), pair.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected expired access credential to fail, got %v", err)
	}
	if _, err := f.engine.Refresh(context.Background(), pair.RefreshToken); err != nil {
		t.Fatalf("refresh within lifetime should succeed: %v", err)
	}
}

func TestSecurityInvariantRefreshCarriesNoRoles(t *testing.T) {
	f := newTestEngine(t, nil)
	pair := f.login(t)

	codec, err := jwt.NewCodec(jwt.Config{Secret: []byte(testSecret), Issuer: "sessioncore-test"})
	if err != nil {
		t.Fatalf("codec: %v", err)
	}
	claims, err := codec.DecodeKind(pair.RefreshToken, jwt.KindRefresh)
	if err != nil {
		t.Fatalf("decode refresh: %v", err)
	}
	if len(claims.Roles) != 0 || claims.Email != "" {
		t.Fatalf("refresh credential leaked principal data: %+v", claims)
	}
	if claims.Family == "" {
		t.Fatal("refresh credential must carry a family")
	}
}

func TestSecurityInvariantStoredRecordHoldsNoPrincipalData(t *testing.T) {
	f := newTestEngine(t, nil)
	f.login(t)

	keys := f.familyKeys(t, "u1")
	if len(keys) != 1 {
		t.Fatalf("expected one record, got %v", keys)
	}
	raw, err := f.rdb.Get(context.Background(), keys[0]).Result()
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if strings.Contains(raw, "alice@example.com") || strings.Contains(raw, "seller") {
		t.Fatalf("record leaked principal data: %s", raw)
	}
}
