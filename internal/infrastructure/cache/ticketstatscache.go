package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	vo "github.com/servora/servora/internal/domain/ticket/valueobjects"
)

const (
	ticketStatsPrefix     = "servora:ticket_stats:"
	ticketStatsGenSuffix  = ":gen"
	defaultTicketStatsTTL = 60 * time.Second

	// ticketStatsMarker is always written so an all-zero entry still reads as a hit.
	ticketStatsMarker = "_cached"
)

var errStaleGeneration = errors.New("ticket stats generation moved")

// TicketStatsCache keeps per-type status counts in a Redis hash.
// Every lifecycle write invalidates the entry of its type and advances a
// generation counter; counts taken under an older generation are never
// stored. The TTL bounds staleness when an invalidation is lost.
type TicketStatsCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewTicketStatsCache creates a cache; a non-positive ttl selects the default.
func NewTicketStatsCache(client *redis.Client, ttl time.Duration) *TicketStatsCache {
	if ttl <= 0 {
		ttl = defaultTicketStatsTTL
	}
	return &TicketStatsCache{client: client, ttl: ttl}
}

func (c *TicketStatsCache) key(ticketType vo.TicketType) string {
	return ticketStatsPrefix + ticketType.String()
}

func (c *TicketStatsCache) genKey(ticketType vo.TicketType) string {
	return c.key(ticketType) + ticketStatsGenSuffix
}

// Generation returns the invalidation counter of a type, 0 before the first
// invalidation. Read it before counting and hand it to Set.
func (c *TicketStatsCache) Generation(ctx context.Context, ticketType vo.TicketType) (int64, error) {
	gen, err := c.client.Get(ctx, c.genKey(ticketType)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read ticket stats generation: %w", err)
	}
	return gen, nil
}

// Get returns the cached counts; ok is false on a miss.
func (c *TicketStatsCache) Get(ctx context.Context, ticketType vo.TicketType) (map[vo.TicketStatus]int64, bool, error) {
	values, err := c.client.HGetAll(ctx, c.key(ticketType)).Result()
	if err != nil {
		return nil, false, fmt.Errorf("failed to read ticket stats: %w", err)
	}
	if _, ok := values[ticketStatsMarker]; !ok {
		return nil, false, nil
	}

	counts := make(map[vo.TicketStatus]int64, len(values))
	for field, raw := range values {
		if field == ticketStatsMarker {
			continue
		}
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, false, fmt.Errorf("corrupt ticket stats entry %s=%q: %w", field, raw, err)
		}
		counts[vo.TicketStatus(field)] = n
	}
	return counts, true, nil
}

// Set replaces the cached counts of a type if no invalidation happened since
// generation was read. stored is false when the counts were discarded.
func (c *TicketStatsCache) Set(ctx context.Context, ticketType vo.TicketType, generation int64, counts map[vo.TicketStatus]int64) (bool, error) {
	fields := make(map[string]any, len(counts)+1)
	fields[ticketStatsMarker] = 1
	for status, n := range counts {
		fields[status.String()] = n
	}

	key, genKey := c.key(ticketType), c.genKey(ticketType)
	err := c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, genKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != generation {
			return errStaleGeneration
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			pipe.HSet(ctx, key, fields)
			pipe.Expire(ctx, key, c.ttl)
			return nil
		})
		return err
	}, genKey)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, errStaleGeneration), errors.Is(err, redis.TxFailedErr):
		return false, nil
	default:
		return false, fmt.Errorf("failed to store ticket stats: %w", err)
	}
}

func (c *TicketStatsCache) Invalidate(ctx context.Context, ticketType vo.TicketType) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, c.genKey(ticketType))
		pipe.Del(ctx, c.key(ticketType))
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to invalidate ticket stats: %w", err)
	}
	return nil
}
