package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"pulseboard.app/ingest/internal/adapter"
	"pulseboard.app/ingest/internal/cache"
	"pulseboard.app/ingest/internal/model"
	"pulseboard.app/ingest/internal/store"
)

// FilterService decides whether an event is banned for its customer/feed.
// Fetch failures are fatal for the request: defaulting to "not banned"
// would leak known-noisy events downstream.
type FilterService interface {
	Check(ctx context.Context, src adapter.Source, event *model.Event) (bool, error)
	// BannedEvents bypasses the cache when uncached is set; replay uses
	// this to see ban changes made after the cache was warmed.
	BannedEvents(ctx context.Context, customerID int64, feedID int, uncached bool) (map[string]bool, error)
}

type filterService struct {
	feeds    store.FeedStore
	events   *cache.TTL[map[string]bool]
	accounts *cache.TTL[map[string]bool]
	logger   *slog.Logger
}

func NewFilterService(feeds store.FeedStore, ttl time.Duration, clock cache.Clock, logger *slog.Logger) FilterService {
	if logger == nil {
		logger = slog.Default()
	}
	return &filterService{
		feeds:    feeds,
		events:   cache.NewTTL[map[string]bool](ttl, clock),
		accounts: cache.NewTTL[map[string]bool](ttl, clock),
		logger:   logger,
	}
}

func filterKey(customerID int64, feedID int) string {
	return fmt.Sprintf("%d-%d", customerID, feedID)
}

func (s *filterService) Check(ctx context.Context, src adapter.Source, event *model.Event) (bool, error) {
	var (
		wg                           sync.WaitGroup
		bannedEvents, bannedAccounts map[string]bool
		eventsErr, accountsErr       error
	)

	// Both maps are independent reads, fetched concurrently.
	wg.Add(2)
	go func() {
		defer wg.Done()
		bannedEvents, eventsErr = s.BannedEvents(ctx, event.CustomerID, event.FeedID, false)
	}()
	go func() {
		defer wg.Done()
		bannedAccounts, accountsErr = s.bannedAccounts(ctx, event.CustomerID, event.FeedID)
	}()
	wg.Wait()

	if eventsErr != nil {
		return false, eventsErr
	}
	if accountsErr != nil {
		return false, accountsErr
	}

	banned := false
	foundSetting := false

	// simple entry, e.g. pull_request: false
	if flag, ok := bannedEvents[event.Name]; ok {
		foundSetting = true
		banned = flag
	}

	// composite entry, e.g. pull_request[action=synchronize]: true
	if !banned {
		if action := event.Action(); action != "" {
			if bannedEvents[fmt.Sprintf("%s[action=%s]", event.Name, action)] {
				banned = true
			}
		}
	}

	// First sight of this event name: register it as unbanned without
	// blocking the request.
	if !foundSetting {
		go s.registerEventType(context.WithoutCancel(ctx), event.CustomerID, event.FeedID, event.Name)
	}

	if !banned && src.IsNoise(event) {
		banned = true
	}

	if !banned && event.SenderAccount != "" && bannedAccounts[event.SenderAccount] {
		banned = true
	}

	return banned, nil
}

func (s *filterService) BannedEvents(ctx context.Context, customerID int64, feedID int, uncached bool) (map[string]bool, error) {
	key := filterKey(customerID, feedID)
	if !uncached {
		if banned, ok := s.events.Get(key); ok {
			return banned, nil
		}
	}

	banned, err := s.feeds.GetBannedEvents(ctx, customerID, feedID)
	if err != nil {
		return nil, fmt.Errorf("fetching banned events: %w", err)
	}
	s.events.Set(key, banned)
	return banned, nil
}

func (s *filterService) bannedAccounts(ctx context.Context, customerID int64, feedID int) (map[string]bool, error) {
	key := filterKey(customerID, feedID)
	if banned, ok := s.accounts.Get(key); ok {
		return banned, nil
	}

	banned, err := s.feeds.GetBannedAccounts(ctx, customerID, feedID)
	if err != nil {
		return nil, fmt.Errorf("fetching banned accounts: %w", err)
	}
	s.accounts.Set(key, banned)
	return banned, nil
}

func (s *filterService) registerEventType(ctx context.Context, customerID int64, feedID int, eventName string) {
	if err := s.feeds.RegisterEventType(ctx, customerID, feedID, eventName); err != nil {
		s.logger.WarnContext(ctx, "failed to register event type",
			"customer_id", customerID,
			"feed_id", feedID,
			"event_name", eventName,
			"error", err)
	}
}
