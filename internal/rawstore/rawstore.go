// Package rawstore persists the authoritative copy of every inbound
// webhook event. Rows are content-addressed: the key encodes customer,
// feed, hour bucket, event name and delivery instance, so a redelivery
// overwrites the previous copy instead of duplicating it.
package rawstore

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sethvargo/go-retry"

	"pulseboard.app/ingest/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS raw_events (
	key         TEXT PRIMARY KEY,
	customer_id BIGINT NOT NULL,
	feed_id     INT NOT NULL,
	hour_bucket TEXT NOT NULL,
	event_name  TEXT NOT NULL,
	instance_id TEXT NOT NULL,
	body        JSONB NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS raw_events_scope_idx
	ON raw_events (customer_id, feed_id, hour_bucket, event_name);
`

// Instance is one stored raw event together with its storage id.
type Instance struct {
	StorageID string
	Event     model.Event
}

type Store struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// EnsureSchema creates the raw_events table if it does not exist yet.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensuring raw_events schema: %w", err)
	}
	return nil
}

// Save upserts the event at its content-addressed key and returns the
// storage id. Transient failures are retried with exponential backoff;
// a failure after the retries is fatal for the request, on the assumption
// that the sender redelivers on a non-2xx response.
func (s *Store) Save(ctx context.Context, event model.Event) (string, error) {
	body, err := json.Marshal(event)
	if err != nil {
		return "", fmt.Errorf("marshaling event: %w", err)
	}

	key := EventKey(event)
	bucket := model.HourBucket(event.EventTimestamp)

	err = retry.Do(ctx, backoff(), func(ctx context.Context) error {
		_, execErr := s.pool.Exec(ctx, `
			INSERT INTO raw_events (key, customer_id, feed_id, hour_bucket, event_name, instance_id, body, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, now())
			ON CONFLICT (key) DO UPDATE
			SET body = EXCLUDED.body, updated_at = now()`,
			key, event.CustomerID, event.FeedID, bucket, event.Name, event.InstanceID, body)
		if execErr != nil {
			slog.WarnContext(ctx, "retrying raw event save", "error", execErr, "key", key)
			return retry.RetryableError(execErr)
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("saving raw event %s: %w", key, err)
	}

	return key, nil
}

// ListByPrefix returns every stored instance whose key starts with the
// given directory prefix, used by replay to enumerate one bucket/event
// directory.
func (s *Store) ListByPrefix(ctx context.Context, prefix string) ([]Instance, error) {
	var instances []Instance

	err := retry.Do(ctx, backoff(), func(ctx context.Context) error {
		rows, queryErr := s.pool.Query(ctx,
			`SELECT key, body FROM raw_events WHERE key LIKE $1 ESCAPE '\' ORDER BY key`, LikePattern(prefix))
		if queryErr != nil {
			return retry.RetryableError(queryErr)
		}
		defer rows.Close()

		instances = instances[:0]
		for rows.Next() {
			var (
				key  string
				body []byte
			)
			if scanErr := rows.Scan(&key, &body); scanErr != nil {
				return scanErr
			}
			var event model.Event
			if unmarshalErr := json.Unmarshal(body, &event); unmarshalErr != nil {
				return fmt.Errorf("unmarshaling raw event %s: %w", key, unmarshalErr)
			}
			instances = append(instances, Instance{StorageID: key, Event: event})
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("listing raw events under %s: %w", prefix, err)
	}

	return instances, nil
}

// EventKey builds the content-addressed key for an event. Event name and
// instance id are attacker-controlled, so path-structural characters in
// them are percent-escaped.
func EventKey(event model.Event) string {
	return DirPrefix(event.CustomerID, event.FeedID, model.HourBucket(event.EventTimestamp), event.Name) +
		"/i/" + EscapePart(event.InstanceID)
}

// DirPrefix builds the directory prefix shared by every instance of one
// customer/feed/bucket/event-name combination.
func DirPrefix(customerID int64, feedID int, bucket, eventName string) string {
	return fmt.Sprintf("v1/c/%d/f/%d/h/%s/e/%s", customerID, feedID, bucket, EscapePart(eventName))
}

// EscapePart escapes '%' and '/' in a path component so injected
// separators cannot break out of the directory layout.
func EscapePart(part string) string {
	part = strings.ReplaceAll(part, "%", "%25")
	return strings.ReplaceAll(part, "/", "%2F")
}

// LikePattern turns a key prefix into a LIKE pattern matching exactly the
// keys under it. '_' and '%' are LIKE wildcards and both occur in real
// prefixes (underscore event names, percent-escaped parts), so they are
// escaped before the trailing wildcard is appended.
func LikePattern(prefix string) string {
	return likeEscaper.Replace(prefix) + "%"
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func backoff() retry.Backoff {
	return retry.WithMaxRetries(2, retry.NewExponential(500*time.Millisecond))
}
