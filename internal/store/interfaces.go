package store

import (
	"context"
	"errors"

	"pulseboard.app/ingest/internal/model"
)

// ErrNotFound is returned when a requested document does not exist
var ErrNotFound = errors.New("not found")

// FeedStore defines the contract for per-feed filter configuration
type FeedStore interface {
	GetBannedEvents(ctx context.Context, customerID int64, feedID int) (map[string]bool, error)
	GetBannedAccounts(ctx context.Context, customerID int64, feedID int) (map[string]bool, error)
	// RegisterEventType records a newly observed event name as unbanned.
	// Names already present keep their current flag.
	RegisterEventType(ctx context.Context, customerID int64, feedID int, eventName string) error
}

// ActivityStore defines the contract for normalized activity documents
type ActivityStore interface {
	Save(ctx context.Context, activity *model.Activity) (string, error)
	// OverwriteByObjectID replaces the activity derived from the same stored
	// event, collapsing duplicates down to a single document.
	OverwriteByObjectID(ctx context.Context, activity *model.Activity) (string, error)
	CountByObjectID(ctx context.Context, customerID int64, objectID string) (int, error)
}

// AccountStore defines the contract for contributor account documents
type AccountStore interface {
	Upsert(ctx context.Context, customerID int64, feedID int, account model.Account) error
}

// TicketStore defines the contract for issue-tracker ticket documents
type TicketStore interface {
	Upsert(ctx context.Context, customerID int64, ticket model.Ticket) error
}

// IdentityStore defines the contract for cross-source identity documents
type IdentityStore interface {
	GetAll(ctx context.Context, customerID int64) (model.IdentityMap, error)
}

// ReviewStore defines the contract for the unmatched-account review queue
type ReviewStore interface {
	Add(ctx context.Context, customerID int64, feedID int, account model.Account) error
}

// EventMirrorStore defines the contract for the best-effort event mirror
type EventMirrorStore interface {
	Save(ctx context.Context, event model.Event, storageID string) error
}
