package realtime

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Presence is the registry of which profiles have a live session joined to
// a room. Entries are keyed by connection, so a profile with several
// sessions stays present until the last one leaves.
type Presence interface {
	Join(ctx context.Context, roomID string, profileID int64, connID string) error
	Leave(ctx context.Context, roomID string, profileID int64, connID string) error
	// Refresh extends the lease of a joined connection. It never re-adds a
	// connection that already left.
	Refresh(ctx context.Context, roomID string, profileID int64, connID string) error
	IsPresent(ctx context.Context, roomID string, profileID int64) (bool, error)
	Members(ctx context.Context, roomID string) ([]int64, error)
}

// MemoryPresence lives and dies with the process, so its entries need no
// lease.
type MemoryPresence struct {
	mu    sync.RWMutex
	rooms map[string]map[int64]map[string]struct{}
}

func NewMemoryPresence() *MemoryPresence {
	return &MemoryPresence{rooms: make(map[string]map[int64]map[string]struct{})}
}

func (p *MemoryPresence) Join(_ context.Context, roomID string, profileID int64, connID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	members := p.rooms[roomID]
	if members == nil {
		members = make(map[int64]map[string]struct{})
		p.rooms[roomID] = members
	}
	if members[profileID] == nil {
		members[profileID] = make(map[string]struct{})
	}
	members[profileID][connID] = struct{}{}
	return nil
}

func (p *MemoryPresence) Leave(_ context.Context, roomID string, profileID int64, connID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	members := p.rooms[roomID]
	if members == nil {
		return nil
	}
	delete(members[profileID], connID)
	if len(members[profileID]) == 0 {
		delete(members, profileID)
	}
	if len(members) == 0 {
		delete(p.rooms, roomID)
	}
	return nil
}

func (p *MemoryPresence) Refresh(context.Context, string, int64, string) error { return nil }

func (p *MemoryPresence) IsPresent(_ context.Context, roomID string, profileID int64) (bool, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.rooms[roomID][profileID]) > 0, nil
}

func (p *MemoryPresence) Members(_ context.Context, roomID string) ([]int64, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]int64, 0, len(p.rooms[roomID]))
	for id := range p.rooms[roomID] {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

// RedisPresence keeps one sorted set per room. Each member is
// "<profileID>:<connID>" scored by its lease expiry in unix milliseconds.
// A connection that dies without leaving drops out once its lease runs
// out; live connections renew theirs on every pong.
type RedisPresence struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	now    func() time.Time
}

const defaultPresenceTTL = 2 * time.Minute

func NewRedisPresence(client *redis.Client, prefix string, ttl time.Duration) *RedisPresence {
	if prefix == "" {
		prefix = "soundmatch:presence:"
	}
	if ttl <= 0 {
		ttl = defaultPresenceTTL
	}
	return &RedisPresence{client: client, prefix: prefix, ttl: ttl, now: time.Now}
}

func (p *RedisPresence) key(roomID string) string {
	return p.prefix + roomID
}

func member(profileID int64, connID string) string {
	return strconv.FormatInt(profileID, 10) + ":" + connID
}

func (p *RedisPresence) lease() redis.Z {
	return redis.Z{Score: float64(p.now().Add(p.ttl).UnixMilli())}
}

func (p *RedisPresence) Join(ctx context.Context, roomID string, profileID int64, connID string) error {
	key := p.key(roomID)
	z := p.lease()
	z.Member = member(profileID, connID)

	pipe := p.client.TxPipeline()
	pipe.ZAdd(ctx, key, z)
	pipe.Expire(ctx, key, p.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("presence join: %w", err)
	}
	return nil
}

func (p *RedisPresence) Refresh(ctx context.Context, roomID string, profileID int64, connID string) error {
	key := p.key(roomID)
	z := p.lease()
	z.Member = member(profileID, connID)

	pipe := p.client.TxPipeline()
	added := pipe.ZAddXX(ctx, key, z)
	pipe.Expire(ctx, key, p.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("presence refresh: %w", err)
	}
	return added.Err()
}

func (p *RedisPresence) Leave(ctx context.Context, roomID string, profileID int64, connID string) error {
	if err := p.client.ZRem(ctx, p.key(roomID), member(profileID, connID)).Err(); err != nil {
		return fmt.Errorf("presence leave: %w", err)
	}
	return nil
}

// live prunes expired leases and returns the profiles still holding one.
func (p *RedisPresence) live(ctx context.Context, roomID string) (map[int64]bool, error) {
	key := p.key(roomID)
	now := strconv.FormatInt(p.now().UnixMilli(), 10)

	pipe := p.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, key, "-inf", now)
	members := pipe.ZRangeByScore(ctx, key, &redis.ZRangeBy{Min: "(" + now, Max: "+inf"})
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("presence lookup: %w", err)
	}

	out := make(map[int64]bool)
	for _, m := range members.Val() {
		raw, _, ok := strings.Cut(m, ":")
		if !ok {
			continue
		}
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			continue
		}
		out[id] = true
	}
	return out, nil
}

func (p *RedisPresence) IsPresent(ctx context.Context, roomID string, profileID int64) (bool, error) {
	live, err := p.live(ctx, roomID)
	if err != nil {
		return false, err
	}
	return live[profileID], nil
}

func (p *RedisPresence) Members(ctx context.Context, roomID string) ([]int64, error) {
	live, err := p.live(ctx, roomID)
	if err != nil {
		return nil, err
	}
	out := make([]int64, 0, len(live))
	for id := range live {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}
