// Package presence tracks which connections belong to which user. The local
// map is always the synchronous fast path; when a shared Redis backend is
// configured every mutation is written through it so presence stays
// consistent across horizontally scaled processes.
package presence

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"kinmel/pkg/logger"
)

type Registry interface {
	Register(ctx context.Context, userID, connID string)
	Unregister(ctx context.Context, userID, connID string)
	IsOnline(ctx context.Context, userID string) bool
	ConnectionsOf(ctx context.Context, userID string) []string
}

const (
	keyPrefix = "presence:"
	keyTTL    = 24 * time.Hour
	opTimeout = 2 * time.Second
)

type registry struct {
	mu    sync.RWMutex
	local map[string]map[string]struct{}
	rdb   *redis.Client
}

// NewLocal returns a process-local registry, the default backend.
func NewLocal() Registry {
	return &registry{
		local: make(map[string]map[string]struct{}),
	}
}

// NewShared returns a registry that writes through the given Redis client.
// Backend errors degrade to local-only behaviour; they are never fatal to the
// connection handler.
func NewShared(rdb *redis.Client) Registry {
	return &registry{
		local: make(map[string]map[string]struct{}),
		rdb:   rdb,
	}
}

func (r *registry) Register(ctx context.Context, userID, connID string) {
	r.mu.Lock()
	conns, ok := r.local[userID]
	if !ok {
		conns = make(map[string]struct{})
		r.local[userID] = conns
	}
	conns[connID] = struct{}{}
	r.mu.Unlock()

	if r.rdb == nil {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	key := keyPrefix + userID
	if err := r.rdb.SAdd(ctx, key, connID).Err(); err != nil {
		logger.Warn("presence: shared register failed for user %s: %v", userID, err)
		return
	}
	if err := r.rdb.Expire(ctx, key, keyTTL).Err(); err != nil {
		logger.Warn("presence: failed to refresh TTL for user %s: %v", userID, err)
	}
}

func (r *registry) Unregister(ctx context.Context, userID, connID string) {
	r.mu.Lock()
	if conns, ok := r.local[userID]; ok {
		delete(conns, connID)
		if len(conns) == 0 {
			delete(r.local, userID)
		}
	}
	r.mu.Unlock()

	if r.rdb == nil {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if err := r.rdb.SRem(ctx, keyPrefix+userID, connID).Err(); err != nil {
		logger.Warn("presence: shared unregister failed for user %s: %v", userID, err)
	}
}

func (r *registry) IsOnline(ctx context.Context, userID string) bool {
	if r.rdb != nil {
		ctx, cancel := context.WithTimeout(ctx, opTimeout)
		defer cancel()

		count, err := r.rdb.SCard(ctx, keyPrefix+userID).Result()
		if err == nil {
			return count > 0
		}
		logger.Warn("presence: shared lookup failed for user %s, falling back to local: %v", userID, err)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.local[userID]) > 0
}

func (r *registry) ConnectionsOf(ctx context.Context, userID string) []string {
	if r.rdb != nil {
		ctx, cancel := context.WithTimeout(ctx, opTimeout)
		defer cancel()

		conns, err := r.rdb.SMembers(ctx, keyPrefix+userID).Result()
		if err == nil {
			return conns
		}
		logger.Warn("presence: shared members lookup failed for user %s, falling back to local: %v", userID, err)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := make([]string, 0, len(r.local[userID]))
	for connID := range r.local[userID] {
		conns = append(conns, connID)
	}
	return conns
}
