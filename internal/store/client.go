package store

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/arangodb/go-driver/v2/arangodb"
	"github.com/arangodb/go-driver/v2/connection"
)

const (
	colFeeds            = "feeds"
	colEvents           = "events"
	colActivities       = "activities"
	colAccounts         = "accounts"
	colTickets          = "tickets"
	colIdentities       = "identities"
	colAccountsToReview = "accounts_to_review"
)

var collections = []string{
	colFeeds, colEvents, colActivities, colAccounts,
	colTickets, colIdentities, colAccountsToReview,
}

type Config struct {
	URL      string
	Username string
	Password string
	Database string
}

func (c Config) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("arangodb URL is required")
	}
	if c.Username == "" {
		return fmt.Errorf("arangodb username is required")
	}
	if c.Database == "" {
		return fmt.Errorf("arangodb database name is required")
	}
	return nil
}

// Client owns the ArangoDB connection and database handle shared by all stores.
type Client struct {
	arango arangodb.Client
	db     arangodb.Database
	cfg    Config
}

func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("arangodb config: %w", err)
	}

	endpoint := connection.NewRoundRobinEndpoints([]string{cfg.URL}) // round robins from the urls. we just have one for now
	conn := connection.NewHttp2Connection(connection.DefaultHTTP2ConfigurationWrapper(endpoint, true))

	auth := connection.NewBasicAuth(cfg.Username, cfg.Password)
	if err := conn.SetAuthentication(auth); err != nil {
		return nil, fmt.Errorf("arangodb auth: %w", err)
	}

	return &Client{
		arango: arangodb.NewClient(conn),
		cfg:    cfg,
	}, nil
}

func (c *Client) Database() arangodb.Database {
	return c.db
}

func (c *Client) EnsureDatabase(ctx context.Context) error {
	start := time.Now()

	exists, err := c.arango.DatabaseExists(ctx, c.cfg.Database)
	if err != nil {
		return fmt.Errorf("check database exists: %w", err)
	}

	if !exists {
		_, err = c.arango.CreateDatabase(ctx, c.cfg.Database, nil)
		if err != nil {
			return fmt.Errorf("create database: %w", err)
		}
		slog.InfoContext(ctx, "arangodb database created",
			"database", c.cfg.Database,
			"duration_ms", time.Since(start).Milliseconds())
	}

	db, err := c.arango.GetDatabase(ctx, c.cfg.Database, nil)
	if err != nil {
		return fmt.Errorf("get database: %w", err)
	}
	c.db = db

	return nil
}

func (c *Client) EnsureCollections(ctx context.Context) error {
	if c.db == nil {
		return fmt.Errorf("database not initialized, call EnsureDatabase first")
	}

	for _, name := range collections {
		if err := c.ensureCollection(ctx, name); err != nil {
			return err
		}
	}

	return c.ensureIndexes(ctx)
}

func (c *Client) ensureCollection(ctx context.Context, name string) error {
	exists, err := c.db.CollectionExists(ctx, name)
	if err != nil {
		return fmt.Errorf("check collection %s exists: %w", name, err)
	}

	if !exists {
		colType := arangodb.CollectionTypeDocument
		props := &arangodb.CreateCollectionPropertiesV2{Type: &colType}

		_, err = c.db.CreateCollectionV2(ctx, name, props)
		if err != nil {
			return fmt.Errorf("create collection %s: %w", name, err)
		}
		slog.InfoContext(ctx, "arangodb collection created", "collection", name)
	}

	return nil
}

func (c *Client) ensureIndexes(ctx context.Context) error {
	activities, err := c.db.GetCollection(ctx, colActivities, nil)
	if err != nil {
		return fmt.Errorf("get collection %s: %w", colActivities, err)
	}

	indexName := "idx_activities_object_id"
	_, _, err = activities.EnsurePersistentIndex(ctx,
		[]string{"customerId", "objectId"},
		&arangodb.CreatePersistentIndexOptions{Name: indexName})
	if err != nil {
		return fmt.Errorf("ensure index %s: %w", indexName, err)
	}

	identities, err := c.db.GetCollection(ctx, colIdentities, nil)
	if err != nil {
		return fmt.Errorf("get collection %s: %w", colIdentities, err)
	}

	indexName = "idx_identities_customer_id"
	_, _, err = identities.EnsurePersistentIndex(ctx,
		[]string{"customerId"},
		&arangodb.CreatePersistentIndexOptions{Name: indexName})
	if err != nil {
		return fmt.Errorf("ensure index %s: %w", indexName, err)
	}

	return nil
}

func (c *Client) Close() error {
	return nil
}

// escapeKeyPart makes an externally supplied value safe for use inside an
// ArangoDB document key. Percent first so escaped slashes survive.
func escapeKeyPart(part string) string {
	part = strings.ReplaceAll(part, "%", "%25")
	return strings.ReplaceAll(part, "/", "%2F")
}
