// Package store is the Postgres implementation of db.Store. Entities are JSONB
// documents keyed by (collection, id).
package store

import (
	"context"
	"fmt"

	"github.com/canopy-network/course-indexer/pkg/db"
	"github.com/canopy-network/course-indexer/pkg/db/postgres"
	"go.uber.org/zap"
)

// DB represents the entity database of the indexer.
type DB struct {
	postgres.Client
	Schema string
}

var _ db.Store = (*DB)(nil)

// New opens the database and ensures its tables exist.
func New(ctx context.Context, logger *zap.Logger, url, schema string, poolConfig postgres.PoolConfig) (*DB, error) {
	if schema == "" {
		schema = "public"
	}
	client, err := postgres.New(ctx, logger.With(
		zap.String("schema", schema),
		zap.String("component", poolConfig.Component),
	), url, &poolConfig)
	if err != nil {
		return nil, err
	}

	store := &DB{Client: client, Schema: postgres.SanitizeName(schema)}
	if err := store.InitializeDB(ctx); err != nil {
		client.Close()
		return nil, err
	}
	return store, nil
}

// SchemaTable returns a schema-qualified table name.
func (s *DB) SchemaTable(tableName string) string {
	return fmt.Sprintf("%s.%s", s.Schema, tableName)
}

// InitializeDB ensures the schema and tables exist.
func (s *DB) InitializeDB(ctx context.Context) error {
	s.Logger.Info("Initializing entity database", zap.String("schema", s.Schema))

	if err := s.CreateSchemaIfNotExists(ctx, s.Schema); err != nil {
		return fmt.Errorf("failed to create schema %s: %w", s.Schema, err)
	}

	s.Logger.Debug("Initialize entities table")
	if err := s.initEntities(ctx); err != nil {
		return fmt.Errorf("init entities: %w", err)
	}

	s.Logger.Debug("Initialize processed_events table")
	if err := s.initProcessedEvents(ctx); err != nil {
		return fmt.Errorf("init processed_events: %w", err)
	}

	s.Logger.Debug("Initialize index_progress table")
	if err := s.initIndexProgress(ctx); err != nil {
		return fmt.Errorf("init index_progress: %w", err)
	}

	return nil
}
