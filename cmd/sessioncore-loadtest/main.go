// Command sessioncore-loadtest measures access validation and refresh
// rotation throughput against a real or in-process Redis.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/sessioncore"
	"github.com/MrEthical07/sessioncore/password"
	"github.com/MrEthical07/sessioncore/userstore/memory"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

const loadtestSecret = "loadtest-secret-loadtest-secret-0"

type familyState struct {
	mu      sync.Mutex
	access  string
	refresh string
}

func main() {
	var (
		families    = flag.Int("families", 1000, "number of token families to open")
		concurrency = flag.Int("concurrency", 64, "number of concurrent workers")
		ops         = flag.Int("ops", 50000, "operations per phase (validate + refresh)")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		namespace   = flag.String("namespace", "loadtest_refresh", "session key namespace")
	)
	flag.Parse()

	if *families <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "families, concurrency, and ops must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		client  redis.UniversalClient
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		addr = mr.Addr()
		client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	engine, err := buildEngine(client, *namespace)
	if err != nil {
		fmt.Fprintf(os.Stderr, "engine build failed: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	states := make([]familyState, *families)
	fmt.Printf("opening %d families...\n", *families)
	startSeed := time.Now()
	for i := range states {
		pair, err := engine.Login(ctx, "load@example.com", "loadtest-password")
		if err != nil {
			fmt.Fprintf(os.Stderr, "login failed: %v\n", err)
			os.Exit(1)
		}
		states[i].access = pair.AccessToken
		states[i].refresh = pair.RefreshToken
	}
	fmt.Printf("opened in %s\n", time.Since(startSeed).Round(time.Millisecond))

	validateStats := runPhase(*ops, *concurrency, 7919, func(r *rand.Rand, _ int) error {
		st := &states[r.Intn(len(states))]
		st.mu.Lock()
		token := st.access
		st.mu.Unlock()
		_, err := engine.ValidateAccess(ctx, token)
		return err
	})

	refreshStats := runPhase(*ops, *concurrency, 6151, func(r *rand.Rand, _ int) error {
		st := &states[r.Intn(len(states))]
		st.mu.Lock()
		defer st.mu.Unlock()
		res := engine.Rotate(ctx, st.refresh)
		if res.Outcome != sessioncore.RotationOK {
			return res.Err
		}
		st.access = res.Tokens.AccessToken
		st.refresh = res.Tokens.RefreshToken
		return nil
	})

	fmt.Println("---- results ----")
	printStats("validate", validateStats)
	printStats("refresh", refreshStats)
}

func buildEngine(client redis.UniversalClient, namespace string) (*sessioncore.Engine, error) {
	pwCfg := password.Config{Memory: 8 * 1024, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}
	hasher, err := password.NewArgon2(pwCfg)
	if err != nil {
		return nil, err
	}
	hash, err := hasher.Hash("loadtest-password")
	if err != nil {
		return nil, err
	}
	users := memory.New(sessioncore.UserRecord{
		ID:           "load-1",
		Email:        "load@example.com",
		PasswordHash: hash,
		Roles:        []string{"seller"},
		Active:       true,
	})

	cfg := sessioncore.DefaultConfig()
	cfg.JWT.Secret = []byte(loadtestSecret)
	cfg.Session.Namespace = namespace
	cfg.Password.Memory = pwCfg.Memory
	cfg.Password.Time = pwCfg.Time
	cfg.Password.Parallelism = pwCfg.Parallelism
	cfg.Security.MaxLoginAttempts = 0
	cfg.Security.EnableRefreshThrottle = false

	return sessioncore.New().
		WithConfig(cfg).
		WithRedis(client).
		WithUserProvider(users).
		WithMetricsEnabled(true).
		WithLatencyHistograms(true).
		Build()
}

func runPhase(ops, concurrency int, seed int64, op func(r *rand.Rand, i int) error) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*seed))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				t0 := time.Now()
				err := op(r, i)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	return computeStats(time.Since(start), latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
