package store

import (
	"context"
	"fmt"
	"time"

	"github.com/arangodb/go-driver/v2/arangodb"
	"github.com/sethvargo/go-retry"

	"pulseboard.app/ingest/internal/model"
)

// accountRefreshInterval throttles lastUpdatedTimestamp churn on hot accounts.
const accountRefreshInterval = 24 * time.Hour

type accountStore struct {
	db arangodb.Database
}

func newAccountStore(db arangodb.Database) AccountStore {
	return &accountStore{db: db}
}

func accountKey(customerID int64, feedID int, accountID string) string {
	return fmt.Sprintf("%d-%d-%s", customerID, feedID, escapeKeyPart(accountID))
}

// Upsert merges account fields without clobbering richer data already stored.
// createdTimestamp is written once, and lastUpdatedTimestamp only moves
// forward when the stored value has gone stale.
func (s *accountStore) Upsert(ctx context.Context, customerID int64, feedID int, account model.Account) error {
	query := `
		UPSERT { _key: @key }
		INSERT {
			_key: @key,
			customerId: @customerId,
			feedId: @feedId,
			accountId: @accountId,
			accountName: @accountName,
			accountUri: @accountUri,
			timeZone: @timeZone,
			createdTimestamp: @now,
			lastUpdatedTimestamp: @now
		}
		UPDATE {
			accountName: @accountName != "" ? @accountName : OLD.accountName,
			accountUri: @accountUri != "" ? @accountUri : OLD.accountUri,
			timeZone: @timeZone != "" ? @timeZone : OLD.timeZone,
			lastUpdatedTimestamp: @now - OLD.lastUpdatedTimestamp > @staleAfter ? @now : OLD.lastUpdatedTimestamp
		}
		IN ` + colAccounts

	return retry.Do(ctx, backoff(), func(ctx context.Context) error {
		cursor, err := s.db.Query(ctx, query, &arangodb.QueryOptions{
			BindVars: map[string]any{
				"key":         accountKey(customerID, feedID, account.ID),
				"customerId":  customerID,
				"feedId":      feedID,
				"accountId":   account.ID,
				"accountName": account.AccountName,
				"accountUri":  account.AccountURI,
				"timeZone":    account.TimeZone,
				"now":         time.Now().UnixMilli(),
				"staleAfter":  accountRefreshInterval.Milliseconds(),
			},
		})
		if err != nil {
			return retry.RetryableError(fmt.Errorf("upsert account: %w", err))
		}
		return cursor.Close()
	})
}
