package sessioncore

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
)

func TestRefreshConcurrencySingleWinner(t *testing.T) {
	f := newTestEngine(t, func(c *Config) { c.Security.ReplayPolicy = ReplayFlagOnly })
	pair := f.login(t)

	const n = 16
	var wg sync.WaitGroup
	wg.Add(n)

	start := make(chan struct{})
	results := make(chan RotationResult, n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			<-start
			results <- f.engine.Rotate(context.Background(), pair.RefreshToken)
		}()
	}
	close(start)
	wg.Wait()
	close(results)

	success := 0
	replays := 0
	for res := range results {
		switch res.Outcome {
		case RotationOK:
			success++
		case RotationReplay:
			if !errors.Is(res.Err, ErrRefreshReuse) {
				t.Fatalf("replay without ErrRefreshReuse: %v", res.Err)
			}
			replays++
		default:
			t.Fatalf("unexpected outcome %s: %v", res.Outcome, res.Err)
		}
	}

	if success != 1 {
		t.Fatalf("expected exactly one refresh success, got %d", success)
	}
	if replays != n-1 {
		t.Fatalf("expected %d replays, got %d", n-1, replays)
	}
	if keys := f.familyKeys(t, "u1"); len(keys) != 1 {
		t.Fatalf("expected the family to survive under flag-only policy, got %v", keys)
	}
}

func TestRefreshConcurrencyRevokeFamily(t *testing.T) {
	f := newTestEngine(t, nil)
	pair := f.login(t)

	const n = 8
	var wg sync.WaitGroup
	wg.Add(n)

	results := make(chan RotationResult, n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			results <- f.engine.Rotate(context.Background(), pair.RefreshToken)
		}()
	}
	wg.Wait()
	close(results)

	// Exactly one caller consumes the credential. Every other caller is a
	// replay and revokes the family, which may land before the consumer's
	// Advance and turn its rotation into family_revoked.
	var success, replays, revokedWinner int
	for res := range results {
		switch res.Outcome {
		case RotationOK:
			success++
		case RotationReplay:
			replays++
		case RotationInvalid:
			if !errors.Is(res.Err, ErrRefreshInvalid) || !strings.Contains(res.Err.Error(), "family_revoked") {
				t.Fatalf("unexpected invalid outcome: %v", res.Err)
			}
			revokedWinner++
		default:
			t.Fatalf("unexpected outcome %s: %v", res.Outcome, res.Err)
		}
	}
	if replays != n-1 || success+revokedWinner != 1 {
		t.Fatalf("expected one consumer and %d replays, got success=%d revokedWinner=%d replays=%d", n-1, success, revokedWinner, replays)
	}
	if keys := f.familyKeys(t, "u1"); len(keys) != 0 {
		t.Fatalf("replay must leave the family revoked, got %v", keys)
	}
}
