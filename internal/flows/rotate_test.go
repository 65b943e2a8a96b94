package flows

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/sessioncore/internal/rate"
	"github.com/MrEthical07/sessioncore/jwt"
	"github.com/MrEthical07/sessioncore/session"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

var errNoUser = errors.New("no such user")

type flowHarness struct {
	mr     *miniredis.Miniredis
	store  *session.Store
	issuer *jwt.Issuer
	codec  *jwt.Codec

	mu    sync.Mutex
	users map[string]UserRecord
}

func newFlowHarness(t *testing.T) *flowHarness {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})

	codec, err := jwt.NewCodec(jwt.Config{Secret: []byte("0123456789abcdef0123456789abcdef")})
	if err != nil {
		t.Fatalf("codec: %v", err)
	}
	issuer, err := jwt.NewIssuer(codec, jwt.IssuerConfig{})
	if err != nil {
		t.Fatalf("issuer: %v", err)
	}
	return &flowHarness{
		mr:     mr,
		store:  session.NewStore(rdb, session.Config{TTL: issuer.RefreshTTL()}),
		issuer: issuer,
		codec:  codec,
		users: map[string]UserRecord{
			"42": {ID: "42", Email: "ann@example.com", Roles: []string{"seller"}, Active: true},
		},
	}
}

func (h *flowHarness) lookup() UserLookup {
	return UserLookup{
		GetByID: func(_ context.Context, id string) (UserRecord, error) {
			h.mu.Lock()
			defer h.mu.Unlock()
			u, ok := h.users[id]
			if !ok {
				return UserRecord{}, errNoUser
			}
			return u, nil
		},
		NotFound: errNoUser,
	}
}

func (h *flowHarness) rotateDeps(action ReplayAction) RotateDeps {
	return RotateDeps{
		DecodeRefresh: func(tok string) (*jwt.Claims, error) {
			return h.codec.DecodeKind(tok, jwt.KindRefresh)
		},
		IssueAccess: h.issuer.IssueAccessToken,
		IssueRefresh: func(subject, family string) (jwt.Issued, error) {
			return h.issuer.IssueRefreshToken(subject, family, nil)
		},
		Users:    h.lookup(),
		Store:    h.store,
		OnReplay: action,
	}
}

func (h *flowHarness) login(t *testing.T, subject string) jwt.Issued {
	t.Helper()
	refresh, err := h.issuer.IssueRefreshToken(subject, "", nil)
	if err != nil {
		t.Fatalf("issue refresh: %v", err)
	}
	if _, err := h.store.Create(context.Background(), subject, refresh.Claims.Family, refresh.Token); err != nil {
		t.Fatalf("create: %v", err)
	}
	return refresh
}

func TestRotateHappyPath(t *testing.T) {
	h := newFlowHarness(t)
	r0 := h.login(t, "42")

	res := RunRotate(context.Background(), r0.Token, h.rotateDeps(ReplayRevokeFamily))
	if res.Outcome != RotateOK {
		t.Fatalf("expected RotateOK, got %v (%s: %v)", res.Outcome, res.Reason, res.Err)
	}
	if res.Refresh.Token == r0.Token {
		t.Fatal("successor must differ from the consumed credential")
	}
	if res.Refresh.Claims.Family != r0.Claims.Family {
		t.Fatal("successor must stay in the same family")
	}
	if len(res.Access.Claims.Roles) != 1 || res.Access.Claims.Roles[0] != "seller" {
		t.Fatalf("access roles must come from the fresh user record, got %v", res.Access.Claims.Roles)
	}

	rec, err := h.store.Get(context.Background(), "42", r0.Claims.Family)
	if err != nil || rec.Token != res.Refresh.Token || rec.Used {
		t.Fatalf("store must hold the unused successor: %+v err=%v", rec, err)
	}
}

func TestRotateReplayOfAncestorRevokesFamily(t *testing.T) {
	h := newFlowHarness(t)
	r0 := h.login(t, "42")
	deps := h.rotateDeps(ReplayRevokeFamily)

	first := RunRotate(context.Background(), r0.Token, deps)
	if first.Outcome != RotateOK {
		t.Fatalf("first rotation: %v %v", first.Outcome, first.Err)
	}

	replay := RunRotate(context.Background(), r0.Token, deps)
	if replay.Outcome != RotateReplay {
		t.Fatalf("expected RotateReplay, got %v (%s)", replay.Outcome, replay.Reason)
	}
	if replay.Revoked != 1 {
		t.Fatalf("expected the family to be revoked, got %d", replay.Revoked)
	}

	// The legitimate successor is dead too.
	after := RunRotate(context.Background(), first.Refresh.Token, deps)
	if after.Outcome != RotateInvalid {
		t.Fatalf("successor must be invalid after reuse, got %v", after.Outcome)
	}
}

func TestRotateReplayRevokeAll(t *testing.T) {
	h := newFlowHarness(t)
	a := h.login(t, "42")
	h.login(t, "42")
	deps := h.rotateDeps(ReplayRevokeAll)

	if res := RunRotate(context.Background(), a.Token, deps); res.Outcome != RotateOK {
		t.Fatalf("rotation: %v", res.Outcome)
	}
	res := RunRotate(context.Background(), a.Token, deps)
	if res.Outcome != RotateReplay || res.Revoked != 2 {
		t.Fatalf("expected replay revoking 2 families, got %v revoked=%d", res.Outcome, res.Revoked)
	}
	infos, err := h.store.List(context.Background(), "42")
	if err != nil || len(infos) != 0 {
		t.Fatalf("expected no sessions left, got %v err=%v", infos, err)
	}
}

func TestRotateConcurrentSingleWinner(t *testing.T) {
	h := newFlowHarness(t)
	r0 := h.login(t, "42")
	deps := h.rotateDeps(ReplayFlagOnly)

	const workers = 16
	results := make([]RotateResult, workers)
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			results[i] = RunRotate(context.Background(), r0.Token, deps)
		}(i)
	}
	close(start)
	wg.Wait()

	var ok, replay int
	for _, r := range results {
		switch r.Outcome {
		case RotateOK:
			ok++
		case RotateReplay:
			replay++
		default:
			t.Fatalf("unexpected outcome %v (%s: %v)", r.Outcome, r.Reason, r.Err)
		}
	}
	if ok != 1 || replay != workers-1 {
		t.Fatalf("expected 1 winner and %d replays, got ok=%d replay=%d", workers-1, ok, replay)
	}
}

func TestRotateRejectsAccessToken(t *testing.T) {
	h := newFlowHarness(t)
	access, err := h.issuer.IssueAccessToken("42", "ann@example.com", []string{"seller"})
	if err != nil {
		t.Fatalf("issue access: %v", err)
	}
	res := RunRotate(context.Background(), access.Token, h.rotateDeps(ReplayRevokeFamily))
	if res.Outcome != RotateInvalid || res.Reason != "decode_failed" {
		t.Fatalf("expected decode failure, got %v %s", res.Outcome, res.Reason)
	}
}

func TestRotateInactiveUserRevokesFamily(t *testing.T) {
	h := newFlowHarness(t)
	r0 := h.login(t, "42")
	h.users["42"] = UserRecord{ID: "42", Active: false}

	res := RunRotate(context.Background(), r0.Token, h.rotateDeps(ReplayRevokeFamily))
	if res.Outcome != RotateInvalid || res.Reason != "user_inactive" {
		t.Fatalf("expected inactive failure, got %v %s", res.Outcome, res.Reason)
	}
	if _, err := h.store.Get(context.Background(), "42", r0.Claims.Family); !errors.Is(err, session.ErrRecordNotFound) {
		t.Fatalf("expected family revoked, got %v", err)
	}
}

func TestRotateUnknownFamilyIsInvalid(t *testing.T) {
	h := newFlowHarness(t)
	orphan, err := h.issuer.IssueRefreshToken("42", "", nil)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	res := RunRotate(context.Background(), orphan.Token, h.rotateDeps(ReplayRevokeFamily))
	if res.Outcome != RotateInvalid || res.Reason != "session_not_found" {
		t.Fatalf("expected session_not_found, got %v %s", res.Outcome, res.Reason)
	}
}

func TestRotateStoreDownIsUnavailable(t *testing.T) {
	h := newFlowHarness(t)
	r0 := h.login(t, "42")
	h.mr.Close()

	res := RunRotate(context.Background(), r0.Token, h.rotateDeps(ReplayRevokeFamily))
	if res.Outcome != RotateUnavailable {
		t.Fatalf("expected RotateUnavailable, got %v (%s)", res.Outcome, res.Reason)
	}
	if !errors.Is(res.Err, session.ErrRedisUnavailable) {
		t.Fatalf("expected wrapped ErrRedisUnavailable, got %v", res.Err)
	}
}

func TestRotateExpiredRecord(t *testing.T) {
	h := newFlowHarness(t)
	r0 := h.login(t, "42")
	h.mr.FastForward(h.issuer.RefreshTTL() + time.Second)

	res := RunRotate(context.Background(), r0.Token, h.rotateDeps(ReplayRevokeFamily))
	if res.Outcome != RotateInvalid {
		t.Fatalf("expected RotateInvalid once the record expired, got %v", res.Outcome)
	}
}

type exhaustedLimiter struct{}

func (exhaustedLimiter) CheckRefresh(context.Context, string) error { return rate.ErrRateLimited }

func TestRotateThrottledReplayStillRevokes(t *testing.T) {
	h := newFlowHarness(t)
	r0 := h.login(t, "42")
	ctx := context.Background()

	first := RunRotate(ctx, r0.Token, h.rotateDeps(ReplayRevokeFamily))
	if first.Outcome != RotateOK {
		t.Fatalf("expected RotateOK, got %v (%s)", first.Outcome, first.Reason)
	}

	deps := h.rotateDeps(ReplayRevokeFamily)
	deps.RateLimiter = exhaustedLimiter{}

	if res := RunRotate(ctx, first.Refresh.Token, deps); res.Outcome != RotateRateLimited {
		t.Fatalf("unused successor must be throttled, got %v (%s)", res.Outcome, res.Reason)
	}
	res := RunRotate(ctx, r0.Token, deps)
	if res.Outcome != RotateReplay || res.Revoked != 1 {
		t.Fatalf("expected replay revoking the family, got %v revoked=%d (%s)", res.Outcome, res.Revoked, res.Reason)
	}
	if _, err := h.store.Get(ctx, "42", r0.Claims.Family); !errors.Is(err, session.ErrRecordNotFound) {
		t.Fatalf("family must be revoked, got %v", err)
	}
}
