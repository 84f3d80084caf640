package service

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"pulseboard.app/ingest/internal/cache"
	"pulseboard.app/ingest/internal/model"
	"pulseboard.app/ingest/internal/store"
)

// IdentityService maps source accounts onto cross-source identities.
// Matching is deterministic exact-match; accounts with no identity go to a
// per-feed review queue for manual curation.
type IdentityService interface {
	// Warm prefetches the customer's identity map into the cache.
	Warm(ctx context.Context, customerID int64) error
	// Resolve returns the identity id owning the account, if any. An
	// unresolved account is queued for review before returning.
	Resolve(ctx context.Context, customerID int64, feedID int, account model.Account) (string, bool, error)
}

type identityService struct {
	identities store.IdentityStore
	reviews    store.ReviewStore
	cache      *cache.TTL[model.IdentityMap]
	logger     *slog.Logger
}

func NewIdentityService(identities store.IdentityStore, reviews store.ReviewStore, ttl time.Duration, clock cache.Clock, logger *slog.Logger) IdentityService {
	if logger == nil {
		logger = slog.Default()
	}
	return &identityService{
		identities: identities,
		reviews:    reviews,
		cache:      cache.NewTTL[model.IdentityMap](ttl, clock),
		logger:     logger,
	}
}

func (s *identityService) Warm(ctx context.Context, customerID int64) error {
	_, err := s.fetch(ctx, customerID, false)
	return err
}

func (s *identityService) Resolve(ctx context.Context, customerID int64, feedID int, account model.Account) (string, bool, error) {
	identities, err := s.fetch(ctx, customerID, false)
	if err != nil {
		return "", false, err
	}

	if id, ok := model.FindIdentity(identities, feedID, account.ID, account.AccountName); ok {
		return id, true, nil
	}

	// The identity may have been created after the cache was warmed;
	// force one authoritative refetch before concluding unknown.
	identities, err = s.fetch(ctx, customerID, true)
	if err != nil {
		return "", false, err
	}
	if id, ok := model.FindIdentity(identities, feedID, account.ID, account.AccountName); ok {
		return id, true, nil
	}

	if err := s.reviews.Add(ctx, customerID, feedID, account); err != nil {
		return "", false, fmt.Errorf("queueing account for review: %w", err)
	}
	s.logger.InfoContext(ctx, "account queued for identity review",
		"customer_id", customerID,
		"feed_id", feedID,
		"account_id", account.ID)
	return "", false, nil
}

func (s *identityService) fetch(ctx context.Context, customerID int64, uncached bool) (model.IdentityMap, error) {
	key := strconv.FormatInt(customerID, 10)
	if !uncached {
		if identities, ok := s.cache.Get(key); ok {
			return identities, nil
		}
	}

	identities, err := s.identities.GetAll(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("fetching identities: %w", err)
	}
	s.cache.Set(key, identities)
	return identities, nil
}
