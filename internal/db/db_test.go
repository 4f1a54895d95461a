package db

import (
	"context"
	"testing"

	"github.com/canopy-network/course-indexer/pkg/db/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestConnectWithoutURLUsesMemory(t *testing.T) {
	store, closeFn, err := Connect(context.Background(), zap.NewNop(), "", "public", "test")
	require.NoError(t, err)
	defer closeFn()
	assert.IsType(t, &memory.Store{}, store)
}

func TestConnectBadURL(t *testing.T) {
	_, _, err := Connect(context.Background(), zap.NewNop(), "::not a url::", "public", "test")
	assert.Error(t, err)
}
