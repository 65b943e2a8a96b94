package session

import (
	"context"
	"net"
	"sync/atomic"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// cmdCounter counts commands sent through a go-redis client.
type cmdCounter struct {
	commands  atomic.Int64
	pipelines atomic.Int64
}

func (h *cmdCounter) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		return next(ctx, network, addr)
	}
}

func (h *cmdCounter) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		h.commands.Add(1)
		return next(ctx, cmd)
	}
}

func (h *cmdCounter) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		h.pipelines.Add(1)
		h.commands.Add(int64(len(cmds)))
		return next(ctx, cmds)
	}
}

func (h *cmdCounter) reset() {
	h.commands.Store(0)
	h.pipelines.Store(0)
}

func newCountedStore(t *testing.T) (*Store, *cmdCounter) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	// Connection setup commands are not part of any budget.
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		t.Fatalf("warmup ping: %v", err)
	}
	counter := &cmdCounter{}
	rdb.AddHook(counter)
	return NewStore(rdb, Config{TTL: testTTL}), counter
}

// The first script run may cost EVALSHA plus an EVAL fallback; later runs are
// a single EVALSHA.
func TestRotationRedisBudget(t *testing.T) {
	store, counter := newCountedStore(t)
	ctx := context.Background()

	if _, err := store.Create(ctx, "7", "famb", "tok-0"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if got := counter.commands.Load(); got != 1 {
		t.Fatalf("Create used %d commands, want 1", got)
	}

	prev := "tok-0"
	for i, next := range []string{"tok-1", "tok-2", "tok-3"} {
		counter.reset()
		if _, err := store.Consume(ctx, "7", "famb", prev); err != nil {
			t.Fatalf("consume %d: %v", i, err)
		}
		if _, err := store.Advance(ctx, "7", "famb", prev, next); err != nil {
			t.Fatalf("advance %d: %v", i, err)
		}
		budget := int64(2)
		if i == 0 {
			budget = 4
		}
		if got := counter.commands.Load(); got > budget {
			t.Fatalf("rotation %d used %d commands, budget %d", i, got, budget)
		}
		if got := counter.pipelines.Load(); got != 0 {
			t.Fatalf("rotation %d used %d pipelines, want 0", i, got)
		}
		prev = next
	}
}

func TestRevokeFamilyRedisBudget(t *testing.T) {
	store, counter := newCountedStore(t)
	ctx := context.Background()

	if _, err := store.Create(ctx, "7", "famr", "tok-0"); err != nil {
		t.Fatalf("create: %v", err)
	}
	counter.reset()
	if _, err := store.RevokeFamily(ctx, "7", "famr"); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if got := counter.commands.Load(); got != 1 {
		t.Fatalf("RevokeFamily used %d commands, want 1", got)
	}
}
