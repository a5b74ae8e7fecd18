package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"subhlabh/internal/dto"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

func ActiveOffersKey(owner uuid.UUID) string { return "offers:active:" + owner.String() }

// OfferStore caches an owner's currently valid offers.
type OfferStore struct {
	rdb     *redis.Client
	ttl     time.Duration
	breaker *Breaker
}

func NewOfferStore(rdb *redis.Client, ttl time.Duration, breaker *Breaker) *OfferStore {
	return &OfferStore{rdb: rdb, ttl: ttl, breaker: breaker}
}

func (s *OfferStore) Get(ctx context.Context, owner uuid.UUID) ([]dto.OfferResponse, bool) {
	if s.rdb == nil {
		return nil, false
	}
	var raw []byte
	err := s.breaker.Do(func() error {
		var err error
		raw, err = s.rdb.Get(ctx, ActiveOffersKey(owner)).Bytes()
		return err
	}, redis.Nil)
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Warn().Err(err).Str("owner", owner.String()).Msg("offer cache: get failed")
		}
		return nil, false
	}
	var offers []dto.OfferResponse
	if err := json.Unmarshal(raw, &offers); err != nil {
		return nil, false
	}
	return offers, true
}

func (s *OfferStore) Set(ctx context.Context, owner uuid.UUID, offers []dto.OfferResponse) {
	if s.rdb == nil {
		return
	}
	b, err := json.Marshal(offers)
	if err != nil {
		return
	}
	if err := s.breaker.Do(func() error {
		return s.rdb.Set(ctx, ActiveOffersKey(owner), b, s.ttl).Err()
	}); err != nil {
		log.Warn().Err(err).Str("owner", owner.String()).Msg("offer cache: set failed")
	}
}

func (s *OfferStore) Invalidate(ctx context.Context, owner uuid.UUID) error {
	if s.rdb == nil {
		return nil
	}
	return s.breaker.Do(func() error {
		return s.rdb.Del(ctx, ActiveOffersKey(owner)).Err()
	})
}
