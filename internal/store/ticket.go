package store

import (
	"context"
	"fmt"
	"time"

	"github.com/arangodb/go-driver/v2/arangodb"
	"github.com/sethvargo/go-retry"

	"pulseboard.app/ingest/internal/model"
)

type ticketStore struct {
	db arangodb.Database
}

func newTicketStore(db arangodb.Database) TicketStore {
	return &ticketStore{db: db}
}

func ticketKey(customerID int64, key string) string {
	return fmt.Sprintf("%d-%s", customerID, escapeKeyPart(key))
}

func (s *ticketStore) Upsert(ctx context.Context, customerID int64, ticket model.Ticket) error {
	query := `
		UPSERT { _key: @key }
		INSERT {
			_key: @key,
			customerId: @customerId,
			ticketId: @ticketId,
			ticketKey: @ticketKey,
			summary: @summary,
			uri: @uri,
			priority: @priority,
			project: @project,
			lastUpdatedTimestamp: @now
		}
		UPDATE {
			summary: @summary != "" ? @summary : OLD.summary,
			uri: @uri != "" ? @uri : OLD.uri,
			priority: @priority != null ? @priority : OLD.priority,
			project: @project != "" ? @project : OLD.project,
			lastUpdatedTimestamp: @now
		}
		IN ` + colTickets

	return retry.Do(ctx, backoff(), func(ctx context.Context) error {
		cursor, err := s.db.Query(ctx, query, &arangodb.QueryOptions{
			BindVars: map[string]any{
				"key":        ticketKey(customerID, ticket.Key),
				"customerId": customerID,
				"ticketId":   ticket.ID,
				"ticketKey":  ticket.Key,
				"summary":    ticket.Summary,
				"uri":        ticket.URI,
				"priority":   ticket.Priority,
				"project":    ticket.Project,
				"now":        time.Now().UnixMilli(),
			},
		})
		if err != nil {
			return retry.RetryableError(fmt.Errorf("upsert ticket: %w", err))
		}
		return cursor.Close()
	})
}
