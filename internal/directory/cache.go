package directory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/medicare-hms/portal-booking/pkg/logging"
)

// ErrRosterEmpty is returned when the cache has not been populated yet.
var ErrRosterEmpty = errors.New("directory: roster not loaded")

// Cache stores the roster fetched from the HMS. Implementations must hand
// out copies; callers never observe in-place mutation.
type Cache interface {
	Roster(ctx context.Context) ([]Doctor, error)
	Store(ctx context.Context, roster []Doctor) error
}

// MemoryCache is the default single-process roster cache.
type MemoryCache struct {
	mu     sync.RWMutex
	roster []Doctor
}

// NewMemoryCache creates an empty in-memory roster cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{}
}

// Roster returns a copy of the cached roster.
func (c *MemoryCache) Roster(ctx context.Context) ([]Doctor, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.roster == nil {
		return nil, ErrRosterEmpty
	}
	out := make([]Doctor, len(c.roster))
	copy(out, c.roster)
	return out, nil
}

// Store replaces the cached roster.
func (c *MemoryCache) Store(ctx context.Context, roster []Doctor) error {
	cp := make([]Doctor, len(roster))
	copy(cp, roster)
	c.mu.Lock()
	c.roster = cp
	c.mu.Unlock()
	return nil
}

const redisRosterKey = "portal:directory:roster"

// RedisCache shares one roster across portal replicas.
type RedisCache struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewRedisCache creates a Redis-backed roster cache. A zero ttl stores the
// roster without expiry.
func NewRedisCache(redisClient *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{redis: redisClient, ttl: ttl}
}

// Roster retrieves the shared roster.
func (c *RedisCache) Roster(ctx context.Context) ([]Doctor, error) {
	data, err := c.redis.Get(ctx, redisRosterKey).Bytes()
	if err == redis.Nil {
		return nil, ErrRosterEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("directory: get roster: %w", err)
	}
	var roster []Doctor
	if err := json.Unmarshal(data, &roster); err != nil {
		return nil, fmt.Errorf("directory: unmarshal roster: %w", err)
	}
	return roster, nil
}

// Store saves the shared roster.
func (c *RedisCache) Store(ctx context.Context, roster []Doctor) error {
	data, err := json.Marshal(roster)
	if err != nil {
		return fmt.Errorf("directory: marshal roster: %w", err)
	}
	if err := c.redis.Set(ctx, redisRosterKey, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("directory: set roster: %w", err)
	}
	return nil
}

// RosterSource fetches the active roster from the HMS.
type RosterSource interface {
	ActiveDoctors(ctx context.Context) ([]Doctor, error)
}

// Directory keeps the cached roster in sync with the HMS.
type Directory struct {
	source RosterSource
	cache  Cache
	logger *logging.Logger
}

// New creates a Directory over the given source and cache.
func New(source RosterSource, cache Cache, logger *logging.Logger) *Directory {
	if logger == nil {
		logger = logging.Default()
	}
	if cache == nil {
		cache = NewMemoryCache()
	}
	return &Directory{source: source, cache: cache, logger: logger}
}

// Roster returns the cached roster, refreshing it first if the cache is
// still empty.
func (d *Directory) Roster(ctx context.Context) ([]Doctor, error) {
	roster, err := d.cache.Roster(ctx)
	if err == nil {
		return roster, nil
	}
	if !errors.Is(err, ErrRosterEmpty) {
		return nil, err
	}
	if err := d.Refresh(ctx); err != nil {
		return nil, err
	}
	return d.cache.Roster(ctx)
}

// Refresh pulls the active roster from the HMS and replaces the cache.
// Inactive entries are dropped defensively; the active endpoint should not
// return them, but a stale flag must not surface as a bookable doctor.
func (d *Directory) Refresh(ctx context.Context) error {
	doctors, err := d.source.ActiveDoctors(ctx)
	if err != nil {
		return fmt.Errorf("directory: refresh roster: %w", err)
	}
	active := make([]Doctor, 0, len(doctors))
	for _, doc := range doctors {
		if doc.Active {
			active = append(active, doc)
		}
	}
	if err := d.cache.Store(ctx, active); err != nil {
		return err
	}
	d.logger.Info("roster refreshed", "doctors", len(active))
	return nil
}

// Run refreshes the roster on the given interval until ctx is cancelled.
// Refresh failures are logged and retried on the next tick; the cached
// roster keeps serving in the meantime.
func (d *Directory) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := d.Refresh(ctx); err != nil {
				d.logger.Error("roster refresh failed", "error", err)
			}
		}
	}
}
