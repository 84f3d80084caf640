package store

import (
	"context"
	"fmt"
	"time"

	"github.com/arangodb/go-driver/v2/arangodb"
	"github.com/sethvargo/go-retry"

	"pulseboard.app/ingest/internal/model"
)

type reviewStore struct {
	db arangodb.Database
}

func newReviewStore(db arangodb.Database) ReviewStore {
	return &reviewStore{db: db}
}

// Add queues an account with no matching identity for manual review. Adding
// the same account again is a no-op.
func (s *reviewStore) Add(ctx context.Context, customerID int64, feedID int, account model.Account) error {
	query := `
		UPSERT { _key: @key }
		INSERT {
			_key: @key,
			customerId: @customerId,
			feedId: @feedId,
			accountId: @accountId,
			accountName: @accountName,
			createdTimestamp: @now
		}
		UPDATE {}
		IN ` + colAccountsToReview

	return retry.Do(ctx, backoff(), func(ctx context.Context) error {
		cursor, err := s.db.Query(ctx, query, &arangodb.QueryOptions{
			BindVars: map[string]any{
				"key":         accountKey(customerID, feedID, account.ID),
				"customerId":  customerID,
				"feedId":      feedID,
				"accountId":   account.ID,
				"accountName": account.AccountName,
				"now":         time.Now().UnixMilli(),
			},
		})
		if err != nil {
			return retry.RetryableError(fmt.Errorf("queue account for review: %w", err))
		}
		return cursor.Close()
	})
}
