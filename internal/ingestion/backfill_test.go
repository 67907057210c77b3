package ingestion

import (
	"bytes"
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"core-indexer/internal/chain"
	"core-indexer/internal/domain"
	"core-indexer/internal/ids"
	"core-indexer/internal/mappings"
	"core-indexer/internal/storage"
)

func staked(t *testing.T, e *env, vault string) decimal.Decimal {
	t.Helper()
	var vub domain.VaultUserBalance
	found, err := storage.LoadEntity(context.Background(), e.store, ids.VaultUserBalance(vault, ids.Address(alice)), &vub)
	require.NoError(t, err)
	if !found {
		return decimal.Zero
	}
	return vub.Staked
}

func TestBackfiller_MergesLogsOfNewVault(t *testing.T) {
	e := newEnv(t)
	e.source.add(
		deposit(t, vaultA, 10, 0, 0, 7), // emitted before the vault is tracked
		createVault(t, vaultA, 10, 1, 1),
		deposit(t, vaultA, 10, 2, 2, 2),
		deposit(t, vaultA, 30, 0, 0, 3),
		deposit(t, vaultA, 60, 0, 0, 4), // outside the range
	)
	b := NewBackfiller(BackfillOptions{
		Source:    e.source,
		Indexer:   e.ix,
		ChunkSize: 100,
		Logger:    zaptest.NewLogger(t),
	})

	result, err := b.Run(context.Background(), 1, 50)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Chunks)
	assert.Equal(t, 3, result.Logs)
	assert.Equal(t, 3, result.Applied)
	assert.Equal(t, 1, result.Tracked)
	assert.True(t, staked(t, e, ids.Address(vaultA)).Equal(decimal.NewFromInt(5)))

	cursor, err := e.store.GetCursor(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(50), cursor.Block)

	tpl, ok := e.ix.Book().Template(vaultA)
	assert.True(t, ok)
	assert.Equal(t, mappings.TemplateVault, tpl)
}

func TestBackfiller_ChunksCommitSeparately(t *testing.T) {
	e := newEnv(t)
	e.source.add(
		createVault(t, vaultA, 3, 0, 0),
		createVault(t, vaultB, 12, 0, 0),
		deposit(t, vaultA, 25, 0, 0, 1),
		deposit(t, vaultB, 25, 1, 1, 2),
		deposit(t, vaultA, 33, 0, 0, 4),
	)
	b := NewBackfiller(BackfillOptions{Source: e.source, Indexer: e.ix, ChunkSize: 10})

	result, err := b.Run(context.Background(), 1, 35)
	require.NoError(t, err)

	assert.Equal(t, 4, result.Chunks)
	assert.Equal(t, 4, e.store.Commits())
	assert.Equal(t, 5, result.Applied)
	assert.True(t, staked(t, e, ids.Address(vaultA)).Equal(decimal.NewFromInt(5)))
	assert.True(t, staked(t, e, ids.Address(vaultB)).Equal(decimal.NewFromInt(2)))

	cursor, err := e.store.GetCursor(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(35), cursor.Block)
}

func TestBackfiller_EmptyRange(t *testing.T) {
	e := newEnv(t)
	b := NewBackfiller(BackfillOptions{Source: e.source, Indexer: e.ix})

	result, err := b.Run(context.Background(), 10, 9)
	require.NoError(t, err)
	assert.Zero(t, result.Chunks)
	assert.Zero(t, e.source.fetches)
}

func TestBackfiller_Archive(t *testing.T) {
	e := newEnv(t)
	e.source.add(
		createVault(t, vaultA, 5, 0, 0),
		deposit(t, vaultA, 6, 0, 0, 1),
		deposit(t, vaultA, 7, 0, 0, 1),
	)
	var buf bytes.Buffer
	b := NewBackfiller(BackfillOptions{
		Source:    e.source,
		Indexer:   e.ix,
		Archive:   NewArchiveWriter(&buf),
		ChunkSize: 5,
	})
	_, err := b.Run(context.Background(), 1, 10)
	require.NoError(t, err)

	var archived []chain.Log
	err = ReadArchive(context.Background(), &buf, func(l chain.Log) error {
		archived = append(archived, l)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, archived, 3)
	assert.NoError(t, ValidateLogOrdering(archived))
	assert.Equal(t, vaultA, archived[1].Raw.Address)
	assert.Equal(t, uint64(1_700_000_000+6*12), archived[1].Timestamp)
}

func TestReadArchive_Corrupt(t *testing.T) {
	err := ReadArchive(context.Background(), bytes.NewBufferString("{not json}\n"), func(chain.Log) error {
		return nil
	})
	assert.Error(t, err)
}
