package storage_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"core-indexer/internal/storage"
	"core-indexer/internal/storage/memory"
)

type brokenStore struct{ *memory.EntityStore }

func (brokenStore) Commit(context.Context, *storage.Changeset) error {
	return storage.ErrUnavailable
}

func changeset(block uint64) *storage.Changeset {
	return &storage.Changeset{
		Documents: []storage.Document{{Kind: "Vault", ID: "0xa", Data: []byte(`{"id":"0xa"}`)}},
		Cursor:    &storage.Cursor{Block: block},
	}
}

func TestMirror_CommitsToBoth(t *testing.T) {
	ctx := context.Background()
	primary, secondary := memory.NewEntityStore(), memory.NewEntityStore()
	m := storage.NewMirror(primary, secondary, zaptest.NewLogger(t))

	require.NoError(t, m.Commit(ctx, changeset(5)))

	for _, s := range []*memory.EntityStore{primary, secondary} {
		data, err := s.Get(ctx, "Vault", "0xa")
		require.NoError(t, err)
		assert.JSONEq(t, `{"id":"0xa"}`, string(data))
	}
	c, err := m.GetCursor(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), c.Block)
}

func TestMirror_SecondaryFailureIsNotFatal(t *testing.T) {
	ctx := context.Background()
	primary := memory.NewEntityStore()
	m := storage.NewMirror(primary, brokenStore{memory.NewEntityStore()}, zaptest.NewLogger(t))

	require.NoError(t, m.Commit(ctx, changeset(6)))
	assert.Equal(t, 1, primary.Commits())
}

func TestMirror_PrimaryFailureIsReturned(t *testing.T) {
	secondary := memory.NewEntityStore()
	m := storage.NewMirror(brokenStore{memory.NewEntityStore()}, secondary, nil)

	err := m.Commit(context.Background(), changeset(7))
	assert.ErrorIs(t, err, storage.ErrUnavailable)
	assert.Zero(t, secondary.Commits())
}

func TestInstrumented_PassesThrough(t *testing.T) {
	ctx := context.Background()
	s := storage.NewInstrumented(memory.NewEntityStore(), "memory")

	_, err := s.Get(ctx, "Vault", "0xa")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, s.Commit(ctx, changeset(9)))
	docs, err := s.List(ctx, "Vault")
	require.NoError(t, err)
	assert.Len(t, docs, 1)

	c, err := s.GetCursor(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(9), c.Block)

	tracked, err := s.LoadTrackedAddresses(ctx)
	require.NoError(t, err)
	assert.Empty(t, tracked)
}
