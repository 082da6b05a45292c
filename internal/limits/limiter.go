// Package limits enforces the per-tier daily game-start allowance.
//
// The authoritative check is an atomic check-and-increment against a
// shared counter store, keyed by (caller identity, UTC date). Clients
// may keep optimistic local counters as a UX hint, but every game start
// re-runs this check server-side.
package limits

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Tier is a caller class determining the daily game-start allowance.
type Tier string

// Caller tiers.
const (
	TierAnon Tier = "anon"
	TierFree Tier = "free"
	TierPro  Tier = "pro"
)

// Default daily game-start caps.
const (
	DefaultAnonDailyLimit = 3
	DefaultFreeDailyLimit = 6
)

// counterTTL keeps day-scoped counters around long enough to cover
// clock skew across instances before they expire.
const counterTTL = 48 * time.Hour

// Identity describes the caller requesting a game start.
// For anonymous callers UserID is empty and ClientIP is set; the IP is
// hashed before it ever reaches the counter store.
type Identity struct {
	UserID   string
	ClientIP string
	Tier     Tier
}

// Decision is the outcome of a limit check.
type Decision struct {
	Allowed bool
	Tier    Tier
}

// CounterStore is the atomic daily counter backend. CheckAndIncrement
// must perform the compare and the increment as one indivisible
// operation: two concurrent calls at count == limit-1 must not both be
// allowed.
type CounterStore interface {
	CheckAndIncrement(ctx context.Context, key string, limit int, ttl time.Duration) (bool, error)
}

// Limiter decides whether a caller may start a new game today.
type Limiter struct {
	store       CounterStore
	fingerprint []byte
	anonLimit   int
	freeLimit   int
	logger      *slog.Logger
	onFailOpen  func()
}

// Config configures a Limiter.
type Config struct {
	// FingerprintSecret salts the hash of anonymous network origins so
	// raw IPs are never persisted.
	FingerprintSecret string
	AnonDailyLimit    int
	FreeDailyLimit    int
	// OnFailOpen is invoked whenever a store error degrades the check
	// to allowed. Used to feed the fail-open metric.
	OnFailOpen func()
}

// NewLimiter creates a Limiter backed by the given counter store.
func NewLimiter(store CounterStore, cfg Config, logger *slog.Logger) *Limiter {
	if logger == nil {
		logger = slog.Default()
	}
	anonLimit := cfg.AnonDailyLimit
	if anonLimit <= 0 {
		anonLimit = DefaultAnonDailyLimit
	}
	freeLimit := cfg.FreeDailyLimit
	if freeLimit <= 0 {
		freeLimit = DefaultFreeDailyLimit
	}
	return &Limiter{
		store:       store,
		fingerprint: []byte(cfg.FingerprintSecret),
		anonLimit:   anonLimit,
		freeLimit:   freeLimit,
		logger:      logger,
		onFailOpen:  cfg.OnFailOpen,
	}
}

// CheckAndReserve atomically reserves one game start for the caller on
// the given date. Pro callers are always allowed and never touch the
// store. If the store itself is unavailable the check fails open:
// availability is preferred over strict enforcement, and the event is
// logged and counted.
func (l *Limiter) CheckAndReserve(ctx context.Context, id Identity, date time.Time) Decision {
	tier := id.Tier
	if tier == "" {
		tier = TierAnon
	}
	if tier == TierPro {
		return Decision{Allowed: true, Tier: TierPro}
	}

	limit := l.anonLimit
	if tier == TierFree {
		limit = l.freeLimit
	}

	key := l.counterKey(id, tier, date)
	allowed, err := l.store.CheckAndIncrement(ctx, key, limit, counterTTL)
	if err != nil {
		l.logger.WarnContext(ctx, "limit store unavailable, failing open",
			"tier", string(tier), "error", err)
		if l.onFailOpen != nil {
			l.onFailOpen()
		}
		return Decision{Allowed: true, Tier: tier}
	}

	return Decision{Allowed: allowed, Tier: tier}
}

// counterKey builds the day-scoped store key for a caller.
func (l *Limiter) counterKey(id Identity, tier Tier, date time.Time) string {
	day := date.UTC().Format("2006-01-02")
	if tier == TierFree && id.UserID != "" {
		return "games:user:" + id.UserID + ":" + day
	}
	return "games:anon:" + l.FingerprintIP(id.ClientIP) + ":" + day
}

// FingerprintIP returns the salted hash under which an anonymous
// caller's counters are stored. The raw IP never leaves the process.
func (l *Limiter) FingerprintIP(ip string) string {
	h := sha256.New()
	h.Write([]byte(ip))
	h.Write(l.fingerprint)
	return hex.EncodeToString(h.Sum(nil))[:32]
}

// checkAndIncrementScript performs the reserve atomically inside Redis:
// read the counter, refuse at the cap, otherwise increment, stamping a
// TTL on first use so abandoned counters expire on their own.
var checkAndIncrementScript = redis.NewScript(`
local count = tonumber(redis.call('GET', KEYS[1]) or '0')
if count >= tonumber(ARGV[1]) then
  return 0
end
count = redis.call('INCR', KEYS[1])
if count == 1 then
  redis.call('EXPIRE', KEYS[1], ARGV[2])
end
return 1
`)

// RedisCounterStore implements CounterStore on Redis. It is the
// production backend: the Lua script makes the check-then-increment a
// single server-side operation shared by all API instances.
type RedisCounterStore struct {
	client *redis.Client
}

// NewRedisCounterStore creates a Redis-backed counter store.
func NewRedisCounterStore(client *redis.Client) *RedisCounterStore {
	return &RedisCounterStore{client: client}
}

// CheckAndIncrement implements CounterStore.
func (s *RedisCounterStore) CheckAndIncrement(ctx context.Context, key string, limit int, ttl time.Duration) (bool, error) {
	res, err := checkAndIncrementScript.Run(ctx, s.client, []string{key}, limit, int(ttl.Seconds())).Int()
	if err != nil {
		return false, err
	}
	return res == 1, nil
}

// InMemoryCounterStore implements CounterStore with a mutex-guarded
// map. Suitable for development and tests; counters are per-process, so
// it must not back a horizontally scaled deployment.
type InMemoryCounterStore struct {
	mu       sync.Mutex
	counters map[string]*counter
}

type counter struct {
	count     int
	expiresAt time.Time
}

// NewInMemoryCounterStore creates an in-memory counter store.
func NewInMemoryCounterStore() *InMemoryCounterStore {
	return &InMemoryCounterStore{
		counters: make(map[string]*counter),
	}
}

// CheckAndIncrement implements CounterStore.
func (s *InMemoryCounterStore) CheckAndIncrement(ctx context.Context, key string, limit int, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	c, ok := s.counters[key]
	if !ok || now.After(c.expiresAt) {
		if limit < 1 {
			return false, nil
		}
		s.counters[key] = &counter{count: 1, expiresAt: now.Add(ttl)}
		return true, nil
	}

	if c.count >= limit {
		return false, nil
	}
	c.count++
	return true, nil
}
