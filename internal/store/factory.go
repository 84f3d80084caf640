package store

import (
	"time"

	"github.com/arangodb/go-driver/v2/arangodb"
	"github.com/sethvargo/go-retry"
)

type Stores struct {
	db             arangodb.Database
	mirrorMaxBytes int
}

func NewStores(db arangodb.Database, mirrorMaxBytes int) *Stores {
	return &Stores{db: db, mirrorMaxBytes: mirrorMaxBytes}
}

func (s *Stores) Feeds() FeedStore {
	return newFeedStore(s.db)
}

func (s *Stores) Activities() ActivityStore {
	return newActivityStore(s.db)
}

func (s *Stores) Accounts() AccountStore {
	return newAccountStore(s.db)
}

func (s *Stores) Tickets() TicketStore {
	return newTicketStore(s.db)
}

func (s *Stores) Identities() IdentityStore {
	return newIdentityStore(s.db)
}

func (s *Stores) Reviews() ReviewStore {
	return newReviewStore(s.db)
}

func (s *Stores) EventMirror() EventMirrorStore {
	return newEventMirrorStore(s.db, s.mirrorMaxBytes)
}

// backoff bounds transient ArangoDB failures to three attempts total.
func backoff() retry.Backoff {
	return retry.WithMaxRetries(2, retry.NewExponential(500*time.Millisecond))
}
