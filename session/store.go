package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/MrEthical07/sessioncore/internal"
	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable wraps every transport-level failure.
var ErrRedisUnavailable = errors.New("redis unavailable")

// ErrRecordNotFound is returned when no record exists for (subject, family).
var ErrRecordNotFound = errors.New("session record not found")

// ErrRecordCorrupt is returned when a stored record cannot be decoded.
var ErrRecordCorrupt = errors.New("session record corrupt")

// ErrTokenMismatch is returned when the presented credential is unknown to the family.
var ErrTokenMismatch = errors.New("refresh token mismatch")

// ErrTokenReplayed is returned when the presented credential was already consumed.
var ErrTokenReplayed = errors.New("refresh token already consumed")

// ErrFamilyExists is returned by Create when the family key is taken.
var ErrFamilyExists = errors.New("token family already exists")

// ErrFamilyRevoked is returned by Advance when the consumed record is gone or replaced.
var ErrFamilyRevoked = errors.New("token family revoked")

// ErrInvalidKey is returned for subjects or families unusable as key segments.
var ErrInvalidKey = errors.New("invalid session key segment")

// DefaultNamespace matches the key prefix used by existing deployments.
const DefaultNamespace = "refresh_tokens"

const scanBatch = 500

// Config controls key namespace and record lifetime.
type Config struct {
	Namespace string
	TTL       time.Duration
	Now       func() time.Time
}

// Store is a Redis-backed store of token family records.
type Store struct {
	redis     redis.UniversalClient
	namespace string
	ttl       time.Duration
	now       func() time.Time
}

// NewStore creates a [Store] backed by the given Redis client.
func NewStore(client redis.UniversalClient, cfg Config) *Store {
	if cfg.Namespace == "" {
		cfg.Namespace = DefaultNamespace
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Store{
		redis:     client,
		namespace: cfg.Namespace,
		ttl:       cfg.TTL,
		now:       cfg.Now,
	}
}

// TTL returns the record lifetime.
func (s *Store) TTL() time.Duration {
	return s.ttl
}

func (s *Store) key(subject, family string) string {
	return s.namespace + ":" + subject + ":" + family
}

func (s *Store) ledgerKey(subject, family string) string {
	return s.namespace + ".consumed:" + subject + ":" + family
}

func (s *Store) subjectPattern(subject string) string {
	return internal.EscapeGlob(s.namespace) + ":" + internal.EscapeGlob(subject) + ":*"
}

func checkKey(subject, family string) error {
	if internal.CheckSubject(subject) != nil || internal.CheckFamily(family) != nil {
		return ErrInvalidKey
	}
	return nil
}

// Create persists a fresh unused record for a new family.
//
//	Performance: 1 Redis SET NX.
func (s *Store) Create(ctx context.Context, subject, family, token string) (*Record, error) {
	if err := checkKey(subject, family); err != nil {
		return nil, err
	}
	rec := &Record{
		Token:     token,
		CreatedAt: s.now().UTC(),
		Family:    family,
	}
	data, err := encodeRecord(rec)
	if err != nil {
		return nil, err
	}

	ok, err := s.redis.SetNX(ctx, s.key(subject, family), data, s.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if !ok {
		return nil, ErrFamilyExists
	}
	return rec, nil
}

// Get fetches a record without mutating it.
func (s *Store) Get(ctx context.Context, subject, family string) (*Record, error) {
	if err := checkKey(subject, family); err != nil {
		return nil, err
	}
	data, err := s.redis.Get(ctx, s.key(subject, family)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return decodeRecord(data)
}

// Consume atomically marks the family record used when it holds token and is
// still unused. It returns the updated record on success; otherwise one of
// ErrRecordNotFound, ErrTokenMismatch, ErrTokenReplayed, ErrRecordCorrupt or a
// wrapped ErrRedisUnavailable.
//
//	Performance: 1 Lua EVALSHA.
func (s *Store) Consume(ctx context.Context, subject, family, token string) (*Record, error) {
	if err := checkKey(subject, family); err != nil {
		return nil, err
	}
	usedAt := s.now().UTC().Format(time.RFC3339Nano)
	result, err := consumeLua.Run(
		ctx,
		s.redis,
		[]string{s.key(subject, family), s.ledgerKey(subject, family)},
		token,
		internal.HashToken(token),
		usedAt,
		s.ttl.Milliseconds(),
	).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	parts, ok := result.([]interface{})
	if !ok || len(parts) == 0 {
		return nil, fmt.Errorf("%w: invalid consume script response", ErrRedisUnavailable)
	}
	code, ok := parts[0].(int64)
	if !ok {
		return nil, fmt.Errorf("%w: invalid consume script status", ErrRedisUnavailable)
	}

	switch code {
	case consumeStatusNotFound:
		return nil, ErrRecordNotFound
	case consumeStatusMismatch:
		return nil, ErrTokenMismatch
	case consumeStatusReplay:
		return nil, ErrTokenReplayed
	case consumeStatusCorrupt:
		return nil, ErrRecordCorrupt
	case consumeStatusConsumed:
		if len(parts) < 2 {
			return nil, fmt.Errorf("%w: missing consumed record", ErrRedisUnavailable)
		}
		raw, ok := parts[1].(string)
		if !ok {
			return nil, ErrRecordCorrupt
		}
		return decodeRecord([]byte(raw))
	default:
		return nil, fmt.Errorf("%w: unknown consume status %d", ErrRedisUnavailable, code)
	}
}

// IsConsumed reports, without mutating anything, whether token was already
// consumed in the family: either the ledger holds its hash or the record
// still carries it marked used.
//
//	Performance: 1 pipelined GET + SISMEMBER.
func (s *Store) IsConsumed(ctx context.Context, subject, family, token string) (bool, error) {
	if err := checkKey(subject, family); err != nil {
		return false, err
	}
	var (
		get    *redis.StringCmd
		member *redis.BoolCmd
	)
	_, err := s.redis.Pipelined(ctx, func(p redis.Pipeliner) error {
		get = p.Get(ctx, s.key(subject, family))
		member = p.SIsMember(ctx, s.ledgerKey(subject, family), internal.HashToken(token))
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if err := member.Err(); err != nil {
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if member.Val() {
		return true, nil
	}
	data, err := get.Bytes()
	if err != nil {
		return false, nil
	}
	rec, err := decodeRecord(data)
	if err != nil {
		return false, nil
	}
	return rec.Used && rec.Token == token, nil
}

// Advance replaces a consumed record with a fresh unused one carrying next.
// It fails with ErrFamilyRevoked if the record was deleted or no longer holds
// the consumed credential.
//
//	Performance: 1 Lua EVALSHA.
func (s *Store) Advance(ctx context.Context, subject, family, consumed, next string) (*Record, error) {
	if err := checkKey(subject, family); err != nil {
		return nil, err
	}
	rec := &Record{
		Token:     next,
		CreatedAt: s.now().UTC(),
		Family:    family,
	}
	data, err := encodeRecord(rec)
	if err != nil {
		return nil, err
	}

	written, err := advanceLua.Run(
		ctx,
		s.redis,
		[]string{s.key(subject, family)},
		consumed,
		data,
		s.ttl.Milliseconds(),
	).Int64()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if written != 1 {
		return nil, ErrFamilyRevoked
	}
	return rec, nil
}

// RevokeFamily deletes one family record. The consumed-credential ledger is
// kept until it expires so later presentations still classify as reuse.
func (s *Store) RevokeFamily(ctx context.Context, subject, family string) (bool, error) {
	if err := checkKey(subject, family); err != nil {
		return false, err
	}
	n, err := s.redis.Del(ctx, s.key(subject, family)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return n == 1, nil
}

// RevokeAll deletes every family record of subject and returns how many were
// removed. Deletion is best-effort: batches that fail are reported through the
// returned error while the count still reflects what was deleted.
//
//	Performance: O(n) SCAN over the subject prefix plus batched DEL.
func (s *Store) RevokeAll(ctx context.Context, subject string) (int, error) {
	if internal.CheckSubject(subject) != nil {
		return 0, ErrInvalidKey
	}

	var (
		cursor  uint64
		deleted int
		errs    []error
	)
	for {
		keys, next, err := s.redis.Scan(ctx, cursor, s.subjectPattern(subject), scanBatch).Result()
		if err != nil {
			errs = append(errs, fmt.Errorf("%w: %v", ErrRedisUnavailable, err))
			break
		}
		if len(keys) > 0 {
			n, err := s.redis.Del(ctx, keys...).Result()
			if err != nil {
				errs = append(errs, fmt.Errorf("%w: %v", ErrRedisUnavailable, err))
			} else {
				deleted += int(n)
			}
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}

	return deleted, errors.Join(errs...)
}

// List returns the subject's family records, newest first. Records that vanish
// or fail to decode between SCAN and GET are skipped.
func (s *Store) List(ctx context.Context, subject string) ([]Info, error) {
	if internal.CheckSubject(subject) != nil {
		return nil, ErrInvalidKey
	}

	keys, err := s.scanSubject(ctx, subject)
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return []Info{}, nil
	}

	pipe := s.redis.Pipeline()
	gets := make([]*redis.StringCmd, len(keys))
	ttls := make([]*redis.DurationCmd, len(keys))
	for i, key := range keys {
		gets[i] = pipe.Get(ctx, key)
		ttls[i] = pipe.PTTL(ctx, key)
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	now := s.now().UTC()
	out := make([]Info, 0, len(keys))
	for i := range keys {
		data, err := gets[i].Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
		rec, err := decodeRecord(data)
		if err != nil {
			continue
		}
		info := Info{
			Family:    rec.Family,
			CreatedAt: rec.CreatedAt,
			Used:      rec.Used,
			UsedAt:    rec.UsedAt,
		}
		if ttl, err := ttls[i].Result(); err == nil && ttl > 0 {
			info.ExpiresAt = now.Add(ttl)
		}
		out = append(out, info)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) scanSubject(ctx context.Context, subject string) ([]string, error) {
	var (
		cursor uint64
		keys   []string
	)
	for {
		batch, next, err := s.redis.Scan(ctx, cursor, s.subjectPattern(subject), scanBatch).Result()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
		keys = append(keys, batch...)
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return keys, nil
}

// Ping returns a point-in-time Redis availability check and latency.
func (s *Store) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return time.Since(start), fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return time.Since(start), nil
}
