package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"pulseboard.app/ingest/internal/adapter"
	"pulseboard.app/ingest/internal/model"
	"pulseboard.app/ingest/internal/rawstore"
	"pulseboard.app/ingest/internal/store"
)

// ReplayRequest selects which stored raw events to re-derive. Bounds are
// hour-bucket strings, inclusive on both ends.
type ReplayRequest struct {
	Events    []string `json:"events"`
	DateStart string   `json:"dateStart"`
	DateEnd   string   `json:"dateEnd"`
}

var ErrEmptyReplay = errors.New("replay requires at least one event name")

// ReplayService re-derives activities from stored raw events. Each derived
// activity overwrites the activity with the same object id, so a replay is
// idempotent and also self-heals historical duplicates.
type ReplayService interface {
	Replay(ctx context.Context, customerID int64, req ReplayRequest) ([]string, error)
}

type replayService struct {
	registry   *adapter.Registry
	filter     FilterService
	raw        RawStore
	activities store.ActivityStore
	workers    int
	logger     *slog.Logger
}

func NewReplayService(registry *adapter.Registry, filter FilterService, raw RawStore, activities store.ActivityStore, workers int, logger *slog.Logger) ReplayService {
	if workers <= 0 {
		workers = 8
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &replayService{
		registry:   registry,
		filter:     filter,
		raw:        raw,
		activities: activities,
		workers:    workers,
		logger:     logger,
	}
}

func (s *replayService) Replay(ctx context.Context, customerID int64, req ReplayRequest) ([]string, error) {
	if len(req.Events) == 0 {
		return nil, ErrEmptyReplay
	}
	buckets, err := model.HourBuckets(req.DateStart, req.DateEnd)
	if err != nil {
		return nil, err
	}

	prefixes, err := s.collectPrefixes(ctx, customerID, req.Events, buckets)
	if err != nil {
		return nil, err
	}

	var (
		wg         sync.WaitGroup
		mu         sync.Mutex
		activityID []string
		errs       []error
	)
	work := make(chan string)

	for range s.workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for prefix := range work {
				ids, workerErr := s.replayPrefix(ctx, prefix)
				mu.Lock()
				activityID = append(activityID, ids...)
				if workerErr != nil {
					errs = append(errs, workerErr)
				}
				mu.Unlock()
			}
		}()
	}

	for _, prefix := range prefixes {
		work <- prefix
	}
	close(work)
	wg.Wait()

	if err := errors.Join(errs...); err != nil {
		return activityID, err
	}

	s.logger.InfoContext(ctx, "replay finished",
		"customer_id", customerID,
		"prefixes", len(prefixes),
		"activities", len(activityID))
	return activityID, nil
}

// collectPrefixes expands the request into one storage directory per
// feed/bucket/event combination, dropping event names currently banned for
// the feed. Ban settings are read uncached so a ban flipped right before
// the replay is honored.
func (s *replayService) collectPrefixes(ctx context.Context, customerID int64, events, buckets []string) ([]string, error) {
	var prefixes []string
	for _, feed := range model.Feeds {
		banned, err := s.filter.BannedEvents(ctx, customerID, feed.ID, true)
		if err != nil {
			return nil, err
		}
		for _, event := range events {
			if banned[event] {
				continue
			}
			for _, bucket := range buckets {
				prefixes = append(prefixes, rawstore.DirPrefix(customerID, feed.ID, bucket, event))
			}
		}
	}
	return prefixes, nil
}

func (s *replayService) replayPrefix(ctx context.Context, prefix string) ([]string, error) {
	instances, err := s.raw.ListByPrefix(ctx, prefix)
	if err != nil {
		return nil, err
	}

	// Instances stored while their name was banned are replayed too: the
	// ban filter already dropped currently banned names at the prefix
	// level, so reaching one here means the ban was lifted and its
	// suppressed history should be recovered.
	var ids []string
	for _, instance := range instances {
		src, err := s.registry.For(instance.Event.PluginName)
		if err != nil {
			return ids, err
		}

		derived, err := src.ToActivity(&instance.Event, instance.StorageID)
		if err != nil {
			// A payload that no longer matches the source schema is a
			// legacy row, not a reason to abort the whole backfill.
			if errors.Is(err, adapter.ErrSchemaValidation) {
				s.logger.WarnContext(ctx, "skipping unparseable raw event", "storage_id", instance.StorageID, "error", err)
				continue
			}
			return ids, err
		}
		if derived.Activity == nil {
			continue
		}

		id, err := s.activities.OverwriteByObjectID(ctx, derived.Activity)
		if err != nil {
			return ids, fmt.Errorf("overwriting activity for %s: %w", instance.StorageID, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
