package service

import (
	"log/slog"
	"time"

	"pulseboard.app/ingest/internal/adapter"
	"pulseboard.app/ingest/internal/cache"
	"pulseboard.app/ingest/internal/queue"
	"pulseboard.app/ingest/internal/store"
)

// Config carries the service-layer tunables.
type Config struct {
	FilterTTL     time.Duration
	IdentityTTL   time.Duration
	ReplayWorkers int
}

// Services bundles the service layer. Filter and Identity are built once
// and shared: their caches are process-wide, and ingest and replay must
// see the same state.
type Services struct {
	Filter   FilterService
	Identity IdentityService
	Ingest   IngestService
	Replay   ReplayService
}

func NewServices(
	stores *store.Stores,
	raw RawStore,
	registry *adapter.Registry,
	producer queue.Producer,
	cfg Config,
	clock cache.Clock,
	logger *slog.Logger,
) *Services {
	if clock == nil {
		clock = cache.SystemClock
	}
	if logger == nil {
		logger = slog.Default()
	}

	filter := NewFilterService(stores.Feeds(), cfg.FilterTTL, clock, logger)
	identity := NewIdentityService(stores.Identities(), stores.Reviews(), cfg.IdentityTTL, clock, logger)
	activities := stores.Activities()

	return &Services{
		Filter:   filter,
		Identity: identity,
		Ingest: NewIngestService(
			registry,
			filter,
			identity,
			raw,
			activities,
			stores.Accounts(),
			stores.Tickets(),
			stores.EventMirror(),
			producer,
			nil,
			logger,
		),
		Replay: NewReplayService(registry, filter, raw, activities, cfg.ReplayWorkers, logger),
	}
}
