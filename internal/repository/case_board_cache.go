package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/case-routing-service/internal/domain"
	"github.com/spec-kit/case-routing-service/internal/events"
	"github.com/spec-kit/case-routing-service/internal/persistence"
)

const caseBoardKey = "case_board:open"

// CaseBoardCache caches the OPEN case listing ahead of tier filtering.
// Visibility is always recomputed per request from the cached rows, so the
// cache never affects exclusivity correctness; it only saves board reads.
// Degrades to a no-op when Redis is unreachable.
type CaseBoardCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewCaseBoardCache builds the cache wrapper.
func NewCaseBoardCache(r *persistence.Redis, ttl time.Duration, logger *zap.Logger) *CaseBoardCache {
	return &CaseBoardCache{client: r.Handle(), ttl: ttl, logger: logger}
}

// GetOpen returns the cached OPEN case board, reporting a hit.
func (c *CaseBoardCache) GetOpen(ctx context.Context) ([]domain.Case, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}
	raw, err := c.client.Get(ctx, caseBoardKey).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Debug("case board cache read failed", zap.Error(err))
		}
		return nil, false
	}
	var cases []domain.Case
	if err := json.Unmarshal(raw, &cases); err != nil {
		c.logger.Warn("case board cache payload invalid; dropping", zap.Error(err))
		_ = c.client.Del(ctx, caseBoardKey).Err()
		return nil, false
	}
	return cases, true
}

// SetOpen stores the OPEN case board with the configured TTL.
func (c *CaseBoardCache) SetOpen(ctx context.Context, cases []domain.Case) {
	if c == nil || c.client == nil {
		return
	}
	raw, err := json.Marshal(cases)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, caseBoardKey, raw, c.ttl).Err(); err != nil {
		c.logger.Debug("case board cache write failed", zap.Error(err))
	}
}

// Invalidate drops the cached board.
func (c *CaseBoardCache) Invalidate(ctx context.Context) {
	if c == nil || c.client == nil {
		return
	}
	if err := c.client.Del(ctx, caseBoardKey).Err(); err != nil {
		c.logger.Debug("case board cache invalidation failed", zap.Error(err))
	}
}

// RegisterInvalidation subscribes the cache to every event that mutates
// case status or board composition.
func (c *CaseBoardCache) RegisterInvalidation(dispatcher events.Dispatcher) {
	if c == nil || dispatcher == nil {
		return
	}
	invalidate := func(ctx context.Context, _ events.Event) error {
		c.Invalidate(ctx)
		return nil
	}
	for _, eventType := range []events.EventType{
		events.EventCaseClassified,
		events.EventCaseRoutedInternational,
		events.EventPriorityResponse,
		events.EventPanelResponse,
		events.EventAuctionWinnerSelected,
		events.EventAuctionExpired,
	} {
		dispatcher.Subscribe(eventType, invalidate)
	}
}
