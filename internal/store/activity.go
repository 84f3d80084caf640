package store

import (
	"context"
	"fmt"

	"github.com/arangodb/go-driver/v2/arangodb"
	"github.com/arangodb/go-driver/v2/arangodb/shared"
	"github.com/sethvargo/go-retry"

	"pulseboard.app/ingest/common/id"
	"pulseboard.app/ingest/internal/model"
)

type activityStore struct {
	db arangodb.Database
}

func newActivityStore(db arangodb.Database) ActivityStore {
	return &activityStore{db: db}
}

type activityDoc struct {
	Key string `json:"_key"`
	model.Activity
}

func (s *activityStore) Save(ctx context.Context, activity *model.Activity) (string, error) {
	key := id.NewString()
	doc := activityDoc{Key: key, Activity: *activity}

	err := retry.Do(ctx, backoff(), func(ctx context.Context) error {
		col, err := s.db.GetCollection(ctx, colActivities, nil)
		if err != nil {
			return retry.RetryableError(fmt.Errorf("get collection: %w", err))
		}
		if _, err := col.CreateDocument(ctx, doc); err != nil {
			return retry.RetryableError(fmt.Errorf("create activity: %w", err))
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return key, nil
}

// OverwriteByObjectID replaces the activity derived from the same stored event.
// When earlier deliveries left duplicates behind, the oldest document wins and
// the rest are removed.
func (s *activityStore) OverwriteByObjectID(ctx context.Context, activity *model.Activity) (string, error) {
	keys, err := s.keysByObjectID(ctx, activity.CustomerID, activity.ObjectID)
	if err != nil {
		return "", err
	}

	if len(keys) == 0 {
		return s.Save(ctx, activity)
	}

	key := keys[0]
	doc := activityDoc{Key: key, Activity: *activity}

	err = retry.Do(ctx, backoff(), func(ctx context.Context) error {
		col, err := s.db.GetCollection(ctx, colActivities, nil)
		if err != nil {
			return retry.RetryableError(fmt.Errorf("get collection: %w", err))
		}
		for _, extra := range keys[1:] {
			if _, err := col.DeleteDocument(ctx, extra); err != nil && !shared.IsNotFound(err) {
				return retry.RetryableError(fmt.Errorf("delete duplicate activity %s: %w", extra, err))
			}
		}
		if _, err := col.ReplaceDocument(ctx, key, doc); err != nil {
			return retry.RetryableError(fmt.Errorf("replace activity %s: %w", key, err))
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return key, nil
}

func (s *activityStore) CountByObjectID(ctx context.Context, customerID int64, objectID string) (int, error) {
	keys, err := s.keysByObjectID(ctx, customerID, objectID)
	if err != nil {
		return 0, err
	}
	return len(keys), nil
}

func (s *activityStore) keysByObjectID(ctx context.Context, customerID int64, objectID string) ([]string, error) {
	query := `
		FOR a IN ` + colActivities + `
			FILTER a.customerId == @customerId AND a.objectId == @objectId
			SORT a._key
			RETURN a._key`

	var keys []string
	err := retry.Do(ctx, backoff(), func(ctx context.Context) error {
		cursor, err := s.db.Query(ctx, query, &arangodb.QueryOptions{
			BindVars: map[string]any{
				"customerId": customerID,
				"objectId":   objectID,
			},
		})
		if err != nil {
			return retry.RetryableError(fmt.Errorf("query activities by object id: %w", err))
		}
		defer cursor.Close()

		keys = keys[:0]
		for cursor.HasMore() {
			var key string
			if _, err := cursor.ReadDocument(ctx, &key); err != nil {
				return retry.RetryableError(fmt.Errorf("read activity key: %w", err))
			}
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return keys, nil
}
