package service

import (
	"context"
	"testing"

	"sheetwatch/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStatusStoreDefaults(t *testing.T) {
	store := NewMemoryStatusStore()
	ctx := context.Background()

	status, err := store.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSuccess, status)

	text, err := store.LatestResponse(ctx)
	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestMemoryStatusStoreLastWriterWins(t *testing.T) {
	store := NewMemoryStatusStore()
	ctx := context.Background()

	require.NoError(t, store.SetStatus(ctx, models.StatusError))
	require.NoError(t, store.SetStatus(ctx, models.StatusSuccess))

	status, err := store.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSuccess, status)

	require.NoError(t, store.Forward(ctx, "first explanation"))
	require.NoError(t, store.Forward(ctx, "second explanation"))

	text, err := store.LatestResponse(ctx)
	require.NoError(t, err)
	assert.Equal(t, "second explanation", text)
}
