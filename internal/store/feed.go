package store

import (
	"context"
	"fmt"

	"github.com/arangodb/go-driver/v2/arangodb"
	"github.com/sethvargo/go-retry"
)

type feedStore struct {
	db arangodb.Database
}

func newFeedStore(db arangodb.Database) FeedStore {
	return &feedStore{db: db}
}

func feedKey(customerID int64, feedID int) string {
	return fmt.Sprintf("%d-%d", customerID, feedID)
}

func (s *feedStore) GetBannedEvents(ctx context.Context, customerID int64, feedID int) (map[string]bool, error) {
	return s.bannedField(ctx, customerID, feedID, "bannedEvents")
}

func (s *feedStore) GetBannedAccounts(ctx context.Context, customerID int64, feedID int) (map[string]bool, error) {
	return s.bannedField(ctx, customerID, feedID, "bannedAccounts")
}

// bannedField reads one of the ban maps off the feed document. A missing
// feed document means nothing is banned yet.
func (s *feedStore) bannedField(ctx context.Context, customerID int64, feedID int, field string) (map[string]bool, error) {
	query := fmt.Sprintf(`RETURN DOCUMENT("%s", @key).%s`, colFeeds, field)

	var banned map[string]bool
	err := retry.Do(ctx, backoff(), func(ctx context.Context) error {
		cursor, err := s.db.Query(ctx, query, &arangodb.QueryOptions{
			BindVars: map[string]any{"key": feedKey(customerID, feedID)},
		})
		if err != nil {
			return retry.RetryableError(fmt.Errorf("query %s: %w", field, err))
		}
		defer cursor.Close()

		banned = nil
		if cursor.HasMore() {
			if _, err := cursor.ReadDocument(ctx, &banned); err != nil {
				return retry.RetryableError(fmt.Errorf("read %s: %w", field, err))
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if banned == nil {
		banned = map[string]bool{}
	}
	return banned, nil
}

func (s *feedStore) RegisterEventType(ctx context.Context, customerID int64, feedID int, eventName string) error {
	query := `
		UPSERT { _key: @key }
		INSERT { _key: @key, customerId: @customerId, feedId: @feedId, bannedEvents: { [@name]: false }, bannedAccounts: {} }
		UPDATE { bannedEvents: HAS(OLD.bannedEvents, @name) ? OLD.bannedEvents : MERGE(OLD.bannedEvents, { [@name]: false }) }
		IN ` + colFeeds

	return retry.Do(ctx, backoff(), func(ctx context.Context) error {
		cursor, err := s.db.Query(ctx, query, &arangodb.QueryOptions{
			BindVars: map[string]any{
				"key":        feedKey(customerID, feedID),
				"customerId": customerID,
				"feedId":     feedID,
				"name":       eventName,
			},
		})
		if err != nil {
			return retry.RetryableError(fmt.Errorf("register event type: %w", err))
		}
		return cursor.Close()
	})
}
