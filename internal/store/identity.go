package store

import (
	"context"
	"fmt"

	"github.com/arangodb/go-driver/v2/arangodb"
	"github.com/sethvargo/go-retry"

	"pulseboard.app/ingest/internal/model"
)

type identityStore struct {
	db arangodb.Database
}

func newIdentityStore(db arangodb.Database) IdentityStore {
	return &identityStore{db: db}
}

func (s *identityStore) GetAll(ctx context.Context, customerID int64) (model.IdentityMap, error) {
	query := `
		FOR i IN ` + colIdentities + `
			FILTER i.customerId == @customerId
			RETURN i`

	var identities model.IdentityMap
	err := retry.Do(ctx, backoff(), func(ctx context.Context) error {
		cursor, err := s.db.Query(ctx, query, &arangodb.QueryOptions{
			BindVars: map[string]any{"customerId": customerID},
		})
		if err != nil {
			return retry.RetryableError(fmt.Errorf("query identities: %w", err))
		}
		defer cursor.Close()

		identities = model.IdentityMap{}
		for cursor.HasMore() {
			var doc struct {
				Key string `json:"_key"`
				model.Identity
			}
			if _, err := cursor.ReadDocument(ctx, &doc); err != nil {
				return retry.RetryableError(fmt.Errorf("read identity: %w", err))
			}
			identities[doc.Key] = doc.Identity
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return identities, nil
}
