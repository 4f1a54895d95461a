package db

import (
	"context"
	"fmt"

	"github.com/canopy-network/course-indexer/pkg/db"
	"github.com/canopy-network/course-indexer/pkg/db/memory"
	"github.com/canopy-network/course-indexer/pkg/db/postgres"
	"github.com/canopy-network/course-indexer/pkg/db/postgres/store"
	"go.uber.org/zap"
)

// Connect opens the entity store. An empty url selects the in-memory store,
// which does not survive a restart. The returned func releases the store.
func Connect(ctx context.Context, logger *zap.Logger, url, schema, component string) (db.Store, func(), error) {
	if url == "" {
		logger.Warn("POSTGRES_URL not set, using in-memory store")
		return memory.New(), func() {}, nil
	}

	pg, err := store.New(ctx, logger, url, schema, postgres.DefaultPoolConfig(component))
	if err != nil {
		return nil, nil, fmt.Errorf("connect postgres: %w", err)
	}
	return pg, pg.Close, nil
}
