package notion

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"strava-notion-sync/internal/logging"
)

// Schema is the set of property names a database defines. An unknown
// schema disables filtering so writes are validated by Notion instead.
type Schema struct {
	known bool
	props map[string]bool
}

// UnknownSchema returns a schema that filters nothing
func UnknownSchema() Schema {
	return Schema{}
}

// NewSchema returns a known schema holding names
func NewSchema(names ...string) Schema {
	s := Schema{known: true, props: make(map[string]bool, len(names))}
	for _, n := range names {
		s.props[n] = true
	}
	return s
}

// Known reports whether the property set was loaded
func (s Schema) Known() bool { return s.known }

// Has reports whether the schema defines name. It is false for an
// unknown schema.
func (s Schema) Has(name string) bool { return s.known && s.props[name] }

// Allows reports whether name may be written
func (s Schema) Allows(name string) bool { return !s.known || s.props[name] }

// Len returns the number of known properties
func (s Schema) Len() int { return len(s.props) }

// SchemaCache loads each database schema at most once per run. It is
// shared between tables; Reset starts a new run.
type SchemaCache struct {
	client *Client
	log    zerolog.Logger

	mu      sync.Mutex
	schemas map[string]Schema
}

// NewSchemaCache creates an empty cache
func NewSchemaCache(client *Client) *SchemaCache {
	return &SchemaCache{
		client:  client,
		log:     logging.Component("notion"),
		schemas: make(map[string]Schema),
	}
}

// Get returns the schema for databaseID, fetching it on first use. A fetch
// error or an empty property set is cached as an unknown schema.
func (c *SchemaCache) Get(ctx context.Context, databaseID string) Schema {
	c.mu.Lock()
	defer c.mu.Unlock()

	if s, ok := c.schemas[databaseID]; ok {
		return s
	}

	s := c.load(ctx, databaseID)
	c.schemas[databaseID] = s
	return s
}

// Reset drops every cached schema so the next Get fetches again
func (c *SchemaCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.schemas)
}

func (c *SchemaCache) load(ctx context.Context, databaseID string) Schema {
	log := c.log.With().Str("database", shortID(databaseID)).Logger()

	db, err := c.client.RetrieveDatabase(ctx, databaseID)
	if err != nil {
		log.Warn().Err(err).Msg("Could not load database schema; writing without property filtering")
		return UnknownSchema()
	}
	if len(db.Properties) == 0 {
		log.Warn().Msg("Database schema has no properties; writing without property filtering")
		return UnknownSchema()
	}

	names := make([]string, 0, len(db.Properties))
	for name := range db.Properties {
		names = append(names, name)
	}
	log.Info().Int("properties", len(names)).Msg("Loaded database schema")
	return NewSchema(names...)
}
