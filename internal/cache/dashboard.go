// Package cache holds the Redis-backed cache-aside stores. Every store
// treats Redis as optional: a nil client or an open breaker turns reads
// into misses and writes into no-ops.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"subhlabh/internal/dto"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// DashboardKey is the Redis key of an owner's metrics for a shop-local day.
func DashboardKey(owner uuid.UUID, day string) string {
	return fmt.Sprintf("dashboard:%s:%s", owner, day)
}

// DashboardStore caches dto.DashboardMetrics per owner and day.
type DashboardStore struct {
	rdb     *redis.Client
	ttl     time.Duration
	breaker *Breaker
}

func NewDashboardStore(rdb *redis.Client, ttl time.Duration, breaker *Breaker) *DashboardStore {
	return &DashboardStore{rdb: rdb, ttl: ttl, breaker: breaker}
}

func (s *DashboardStore) Get(ctx context.Context, owner uuid.UUID, day string) (*dto.DashboardMetrics, bool) {
	if s.rdb == nil {
		return nil, false
	}
	var raw []byte
	err := s.breaker.Do(func() error {
		var err error
		raw, err = s.rdb.Get(ctx, DashboardKey(owner, day)).Bytes()
		return err
	}, redis.Nil)
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Warn().Err(err).Str("owner", owner.String()).Msg("dashboard cache: get failed")
		}
		return nil, false
	}
	var m dto.DashboardMetrics
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, false
	}
	return &m, true
}

// Set stores m; failures are logged and otherwise ignored.
func (s *DashboardStore) Set(ctx context.Context, owner uuid.UUID, day string, m *dto.DashboardMetrics) {
	if s.rdb == nil {
		return
	}
	b, err := json.Marshal(m)
	if err != nil {
		return
	}
	if err := s.breaker.Do(func() error {
		return s.rdb.Set(ctx, DashboardKey(owner, day), b, s.ttl).Err()
	}); err != nil {
		log.Warn().Err(err).Str("owner", owner.String()).Msg("dashboard cache: set failed")
	}
}

func (s *DashboardStore) Invalidate(ctx context.Context, owner uuid.UUID, day string) error {
	if s.rdb == nil {
		return nil
	}
	return s.breaker.Do(func() error {
		return s.rdb.Del(ctx, DashboardKey(owner, day)).Err()
	})
}
