package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/arangodb/go-driver/v2/arangodb"
	"github.com/sethvargo/go-retry"

	"pulseboard.app/ingest/internal/model"
)

type eventMirrorStore struct {
	db       arangodb.Database
	maxBytes int
}

func newEventMirrorStore(db arangodb.Database, maxBytes int) EventMirrorStore {
	return &eventMirrorStore{db: db, maxBytes: maxBytes}
}

// Save mirrors a raw event next to the documents derived from it. Payloads
// over the size cap are logged and skipped, the authoritative copy already
// lives in the raw store.
func (s *eventMirrorStore) Save(ctx context.Context, event model.Event, storageID string) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	if s.maxBytes > 0 && len(body) > s.maxBytes {
		slog.WarnContext(ctx, "event too large to mirror, skipping",
			"storage_id", storageID,
			"size_bytes", len(body),
			"max_bytes", s.maxBytes)
		return nil
	}

	query := `
		UPSERT { _key: @key }
		INSERT { _key: @key, storageId: @storageId, event: @event, updatedTimestamp: @now }
		UPDATE { event: @event, updatedTimestamp: @now }
		IN ` + colEvents

	var raw json.RawMessage = body
	return retry.Do(ctx, backoff(), func(ctx context.Context) error {
		cursor, err := s.db.Query(ctx, query, &arangodb.QueryOptions{
			BindVars: map[string]any{
				"key":       escapeKeyPart(storageID),
				"storageId": storageID,
				"event":     raw,
				"now":       time.Now().UnixMilli(),
			},
		})
		if err != nil {
			return retry.RetryableError(fmt.Errorf("mirror event: %w", err))
		}
		return cursor.Close()
	})
}
