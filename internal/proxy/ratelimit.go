package proxy

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const limiterShardCount = 32

// clientWindow tracks one client's request timestamps inside the sliding
// window. Limits are small enough that keeping the raw timestamps is cheaper
// than an approximation.
type clientWindow struct {
	stamps   []time.Time
	lastSeen time.Time
}

type limiterShard struct {
	mu      sync.Mutex
	clients map[string]*clientWindow
}

// SlidingLimiter enforces a per-client sliding-window limit plus a global
// QPS guard. State is in-process; the shard layout keeps a single hot
// client from serializing everyone else. A shared store can replace it
// behind the same Allow signature for multi-instance deployments.
type SlidingLimiter struct {
	shards [limiterShardCount]*limiterShard
	global *rate.Limiter
	limit  int
	window time.Duration
	now    func() time.Time
}

// NewSlidingLimiter creates a limiter allowing `limit` requests per client
// per window, and `globalQPS` requests per second across all clients.
func NewSlidingLimiter(limit int, window time.Duration, globalQPS float64) *SlidingLimiter {
	if limit <= 0 {
		limit = 30
	}
	if window <= 0 {
		window = time.Hour
	}
	if globalQPS <= 0 {
		globalQPS = 50
	}

	l := &SlidingLimiter{
		global: rate.NewLimiter(rate.Limit(globalQPS), int(globalQPS)),
		limit:  limit,
		window: window,
		now:    time.Now,
	}
	for i := range l.shards {
		l.shards[i] = &limiterShard{clients: make(map[string]*clientWindow)}
	}
	return l
}

// Allow records a request for the client if permitted. When denied, resetAt
// is the time the oldest in-window request expires.
func (l *SlidingLimiter) Allow(clientID string) (allowed bool, resetAt time.Time) {
	now := l.now()

	if !l.global.Allow() {
		return false, now.Add(time.Second)
	}

	shard := l.shards[shardIndex(clientID)]
	shard.mu.Lock()
	defer shard.mu.Unlock()

	cw, ok := shard.clients[clientID]
	if !ok {
		cw = &clientWindow{}
		shard.clients[clientID] = cw
	}
	cw.lastSeen = now

	cutoff := now.Add(-l.window)
	kept := cw.stamps[:0]
	for _, ts := range cw.stamps {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	cw.stamps = kept

	if len(cw.stamps) >= l.limit {
		return false, cw.stamps[0].Add(l.window)
	}

	cw.stamps = append(cw.stamps, now)
	return true, time.Time{}
}

// StartCleanup evicts idle clients until the context is canceled.
func (l *SlidingLimiter) StartCleanup(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed := l.evictIdle()
			if removed > 0 {
				slog.Debug("evicted idle rate-limit clients", "count", removed)
			}
		}
	}
}

func (l *SlidingLimiter) evictIdle() int {
	cutoff := l.now().Add(-2 * l.window)
	removed := 0
	for _, shard := range l.shards {
		shard.mu.Lock()
		for id, cw := range shard.clients {
			if cw.lastSeen.Before(cutoff) {
				delete(shard.clients, id)
				removed++
			}
		}
		shard.mu.Unlock()
	}
	return removed
}

func shardIndex(clientID string) int {
	// FNV-1a, inlined; clientID is a short opaque token.
	var h uint32 = 2166136261
	for i := 0; i < len(clientID); i++ {
		h ^= uint32(clientID[i])
		h *= 16777619
	}
	return int(h % limiterShardCount)
}
