package replay

import (
	"bytes"
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"core-indexer/internal/chain"
	"core-indexer/internal/contracts"
	"core-indexer/internal/contracts/contractstest"
	"core-indexer/internal/domain"
	"core-indexer/internal/indexer"
	"core-indexer/internal/ingestion"
	"core-indexer/internal/mappings"
	"core-indexer/internal/prices"
	"core-indexer/internal/storage/memory"
)

var (
	opsManager = common.HexToAddress("0x0000000000000000000000000000000000000f00")
	feed       = common.HexToAddress("0x0000000000000000000000000000000000000fee")
	vaultA     = common.HexToAddress("0x000000000000000000000000000000000000a001")
	alice      = common.HexToAddress("0x000000000000000000000000000000000000b001")
)

func newIndexer(t *testing.T, store *memory.EntityStore) *indexer.Indexer {
	t.Helper()
	reader := contractstest.NewReader()
	reader.SetAnswer(feed, big.NewInt(150_000_000))
	reader.AddVault(vaultA, "1m-core", contractstest.TokenAmount(10))
	h := mappings.New(reader, prices.NewOracle(reader, feed), nil, mappings.Options{ProtocolToken: contractstest.TempleToken})

	book := indexer.NewAddressBook()
	book.Add(opsManager, mappings.TemplateOpsManager)
	return indexer.New(indexer.Options{
		Store:  store,
		Routes: h.Routes(),
		Book:   book,
		Logger: zaptest.NewLogger(t),
	})
}

func packed(t *testing.T, contract abi.ABI, event string, emitter common.Address, block uint64, index uint, args ...interface{}) chain.Log {
	t.Helper()
	data, err := contract.Events[event].Inputs.NonIndexed().Pack(args...)
	require.NoError(t, err)
	return chain.Log{
		Raw: types.Log{
			Address:     emitter,
			Topics:      []common.Hash{contract.Events[event].ID},
			Data:        data,
			BlockNumber: block,
			TxHash:      common.BigToHash(new(big.Int).SetUint64(block*1000 + uint64(index))),
			Index:       index,
		},
		Timestamp: 1_700_000_000 + block*12,
	}
}

func history(t *testing.T) []chain.Log {
	amt := func(n int64) *big.Int { return contractstest.TokenAmount(n) }
	return []chain.Log{
		packed(t, contracts.OpsManagerABI, "CreateVaultInstance", opsManager, 10, 0, vaultA),
		packed(t, contracts.VaultABI, "Deposit", vaultA, 10, 1, alice, amt(4), amt(4)),
		packed(t, contracts.VaultABI, "Deposit", vaultA, 1500, 0, alice, amt(1), amt(1)),
		packed(t, contracts.VaultABI, "Withdraw", vaultA, 2600, 0, alice, amt(2)),
	}
}

func archive(t *testing.T, logs []chain.Log) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, ingestion.NewArchiveWriter(&buf).Write(logs))
	return &buf
}

func TestRunner_ReplaysIntoFreshStore(t *testing.T) {
	store := memory.NewEntityStore()
	r := NewRunner(Options{Indexer: newIndexer(t, store), Logger: zaptest.NewLogger(t)})

	result, err := r.Run(context.Background(), archive(t, history(t)))
	require.NoError(t, err)

	assert.Equal(t, 4, result.Logs)
	assert.Equal(t, 4, result.Applied)
	assert.Equal(t, 3, result.Batches)
	assert.Equal(t, uint64(2600), result.LastBlock)

	cursor, err := store.GetCursor(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(2600), cursor.Block)
	assert.Equal(t, 3, store.Commits())

	tracked, err := store.LoadTrackedAddresses(context.Background())
	require.NoError(t, err)
	require.Len(t, tracked, 1)
}

func TestRunner_MatchesBackfill(t *testing.T) {
	ctx := context.Background()
	live := memory.NewEntityStore()
	source := &staticSource{logs: history(t)}
	var buf bytes.Buffer
	_, err := ingestion.NewBackfiller(ingestion.BackfillOptions{
		Source:    source,
		Indexer:   newIndexer(t, live),
		Archive:   ingestion.NewArchiveWriter(&buf),
		ChunkSize: 700,
	}).Run(ctx, 1, 3000)
	require.NoError(t, err)

	replayed := memory.NewEntityStore()
	_, err = NewRunner(Options{Indexer: newIndexer(t, replayed)}).Run(ctx, &buf)
	require.NoError(t, err)

	for _, kind := range domain.Kinds() {
		want, err := live.List(ctx, kind)
		require.NoError(t, err)
		got, err := replayed.List(ctx, kind)
		require.NoError(t, err)
		assert.Equal(t, want, got, kind)
	}
}

func TestRunner_FromBlock(t *testing.T) {
	store := memory.NewEntityStore()
	ix := newIndexer(t, store)
	ix.Book().Add(vaultA, mappings.TemplateVault)

	result, err := NewRunner(Options{Indexer: ix, FromBlock: 2000}).Run(context.Background(), archive(t, history(t)))
	require.NoError(t, err)
	assert.Equal(t, 1, result.Logs)
}

func TestRunner_RejectsMisorderedArchive(t *testing.T) {
	logs := history(t)
	logs[1], logs[2] = logs[2], logs[1]

	_, err := NewRunner(Options{Indexer: newIndexer(t, memory.NewEntityStore())}).Run(context.Background(), archive(t, logs))
	assert.ErrorIs(t, err, ErrInvalidOrdering)
}

// staticSource serves a fixed history.
type staticSource struct {
	logs []chain.Log
}

func (s *staticSource) FetchLogs(_ context.Context, from, to uint64, addresses []common.Address, _ []common.Hash) ([]chain.Log, error) {
	var out []chain.Log
	for _, l := range s.logs {
		if l.Raw.BlockNumber < from || l.Raw.BlockNumber > to {
			continue
		}
		for _, a := range addresses {
			if a == l.Raw.Address {
				out = append(out, l)
				break
			}
		}
	}
	return out, nil
}

func (s *staticSource) LatestBlock(context.Context) (uint64, error) {
	return 3000, nil
}
