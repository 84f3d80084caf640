package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"pulseboard.app/ingest/internal/adapter"
	"pulseboard.app/ingest/internal/clientid"
	"pulseboard.app/ingest/internal/model"
	"pulseboard.app/ingest/internal/queue"
	"pulseboard.app/ingest/internal/rawstore"
	"pulseboard.app/ingest/internal/store"
)

// RawStore is the slice of the authoritative raw-event store the service
// layer needs. Satisfied by rawstore.Store.
type RawStore interface {
	Save(ctx context.Context, event model.Event) (string, error)
	ListByPrefix(ctx context.Context, prefix string) ([]rawstore.Instance, error)
}

// IngestResult reports what the pipeline did with one delivery.
type IngestResult struct {
	Banned     bool
	StorageID  string
	ActivityID string
}

// IngestService runs the full pipeline for one webhook delivery:
// normalize, filter, persist the raw event, derive and persist the
// activity, then announce it.
type IngestService interface {
	Ingest(ctx context.Context, source model.Source, client clientid.ClientID, headers http.Header, body []byte) (*IngestResult, error)
}

type ingestService struct {
	registry   *adapter.Registry
	filter     FilterService
	identity   IdentityService
	raw        RawStore
	activities store.ActivityStore
	accounts   store.AccountStore
	tickets    store.TicketStore
	mirror     store.EventMirrorStore
	producer   queue.Producer
	now        func() time.Time
	logger     *slog.Logger
}

func NewIngestService(
	registry *adapter.Registry,
	filter FilterService,
	identity IdentityService,
	raw RawStore,
	activities store.ActivityStore,
	accounts store.AccountStore,
	tickets store.TicketStore,
	mirror store.EventMirrorStore,
	producer queue.Producer,
	now func() time.Time,
	logger *slog.Logger,
) IngestService {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ingestService{
		registry:   registry,
		filter:     filter,
		identity:   identity,
		raw:        raw,
		activities: activities,
		accounts:   accounts,
		tickets:    tickets,
		mirror:     mirror,
		producer:   producer,
		now:        now,
		logger:     logger,
	}
}

func (s *ingestService) Ingest(ctx context.Context, source model.Source, client clientid.ClientID, headers http.Header, body []byte) (*IngestResult, error) {
	src, err := s.registry.For(source)
	if err != nil {
		return nil, err
	}

	event, err := src.Normalize(headers, body, client, s.now())
	if err != nil {
		return nil, err
	}

	// The ban check and the identity-map warmup hit different stores and
	// have no ordering between them.
	var (
		wg        sync.WaitGroup
		banned    bool
		filterErr error
		warmErr   error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		banned, filterErr = s.filter.Check(ctx, src, &event)
	}()
	go func() {
		defer wg.Done()
		warmErr = s.identity.Warm(ctx, event.CustomerID)
	}()
	wg.Wait()
	if err := errors.Join(filterErr, warmErr); err != nil {
		return nil, err
	}

	event.Banned = banned

	// The raw copy is authoritative. A failed save is fatal so the sender
	// redelivers; everything after it can be rebuilt from this row.
	storageID, err := s.raw.Save(ctx, event)
	if err != nil {
		return nil, err
	}

	// The mirror store drops oversized payloads itself; any other mirror
	// failure is fatal like the rest of the document writes.
	if err := s.mirror.Save(ctx, event, storageID); err != nil {
		return nil, fmt.Errorf("mirroring event %s: %w", storageID, err)
	}

	if banned {
		s.logger.InfoContext(ctx, "event banned",
			"customer_id", event.CustomerID,
			"feed_id", event.FeedID,
			"event_name", event.Name)
		return &IngestResult{Banned: true, StorageID: storageID}, nil
	}

	derived, err := src.ToActivity(&event, storageID)
	if err != nil {
		return nil, err
	}

	if derived.Account != nil {
		if _, _, err := s.identity.Resolve(ctx, event.CustomerID, event.FeedID, *derived.Account); err != nil {
			return nil, err
		}
	}

	activityID, err := s.persist(ctx, event, derived)
	if err != nil {
		return nil, fmt.Errorf("persisting activity for %s: %w", storageID, err)
	}

	if derived.Activity != nil {
		msg := queue.ActivityMessage{
			ActivityID: activityID,
			CustomerID: event.CustomerID,
			Source:     event.PluginName,
			EventName:  event.Name,
			Artifact:   derived.Activity.Artifact,
			Action:     derived.Activity.Action,
		}
		if pubErr := s.producer.Publish(ctx, msg); pubErr != nil {
			s.logger.WarnContext(ctx, "failed to publish activity", "activity_id", activityID, "error", pubErr)
		}
	}

	return &IngestResult{StorageID: storageID, ActivityID: activityID}, nil
}

// persist writes the activity, account and ticket concurrently. Any write
// failure fails the request; the raw copy already exists and replay will
// re-derive everything from it.
func (s *ingestService) persist(ctx context.Context, event model.Event, derived adapter.Result) (string, error) {
	var (
		wg                                 sync.WaitGroup
		activityID                         string
		activityErr, accountErr, ticketErr error
	)

	if derived.Activity != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			activityID, activityErr = s.activities.Save(ctx, derived.Activity)
		}()
	}
	if derived.Account != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			accountErr = s.accounts.Upsert(ctx, event.CustomerID, event.FeedID, *derived.Account)
		}()
	}
	if derived.Ticket != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ticketErr = s.tickets.Upsert(ctx, event.CustomerID, *derived.Ticket)
		}()
	}
	wg.Wait()

	if err := errors.Join(activityErr, accountErr, ticketErr); err != nil {
		return "", err
	}
	return activityID, nil
}
