package ingestion

import (
	"context"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"core-indexer/internal/chain"
	"core-indexer/internal/contracts"
	"core-indexer/internal/contracts/contractstest"
	"core-indexer/internal/indexer"
	"core-indexer/internal/mappings"
	"core-indexer/internal/prices"
	"core-indexer/internal/storage/memory"
)

var (
	opsManager = common.HexToAddress("0x0000000000000000000000000000000000000f00")
	feed       = common.HexToAddress("0x0000000000000000000000000000000000000fee")
	vaultA     = common.HexToAddress("0x000000000000000000000000000000000000a001")
	vaultB     = common.HexToAddress("0x000000000000000000000000000000000000a002")
	alice      = common.HexToAddress("0x000000000000000000000000000000000000b001")
)

// fakeSource serves logs from memory, filtered the way eth_getLogs filters.
type fakeSource struct {
	mu      sync.Mutex
	logs    []chain.Log
	head    uint64
	fetches int
}

func (s *fakeSource) add(logs ...chain.Log) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = append(s.logs, logs...)
}

func (s *fakeSource) setHead(n uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.head = n
}

func (s *fakeSource) FetchLogs(_ context.Context, from, to uint64, addresses []common.Address, topics []common.Hash) ([]chain.Log, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetches++
	want := make(map[common.Address]bool, len(addresses))
	for _, a := range addresses {
		want[a] = true
	}
	var out []chain.Log
	for i := len(s.logs) - 1; i >= 0; i-- { // reversed to exercise sorting
		l := s.logs[i]
		if l.Raw.BlockNumber < from || l.Raw.BlockNumber > to || !want[l.Raw.Address] {
			continue
		}
		if !hasTopic(topics, l.Raw.Topics[0]) {
			continue
		}
		out = append(out, l)
	}
	return out, nil
}

func (s *fakeSource) LatestBlock(context.Context) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.head, nil
}

func hasTopic(topics []common.Hash, topic common.Hash) bool {
	for _, t := range topics {
		if t == topic {
			return true
		}
	}
	return false
}

type env struct {
	source *fakeSource
	reader *contractstest.Reader
	store  *memory.EntityStore
	ix     *indexer.Indexer
}

func newEnv(t *testing.T) *env {
	t.Helper()
	reader := contractstest.NewReader()
	reader.SetAnswer(feed, big.NewInt(150_000_000))
	reader.AddVault(vaultA, "1m-core", contractstest.TokenAmount(10))
	reader.AddVault(vaultB, "1m-core", contractstest.TokenAmount(10))

	handlers := mappings.New(reader, prices.NewOracle(reader, feed), nil, mappings.Options{
		ProtocolToken: contractstest.TempleToken,
	})
	store := memory.NewEntityStore()
	book := indexer.NewAddressBook()
	book.Add(opsManager, mappings.TemplateOpsManager)
	return &env{
		source: &fakeSource{},
		reader: reader,
		store:  store,
		ix: indexer.New(indexer.Options{
			Store:  store,
			Routes: handlers.Routes(),
			Book:   book,
			Logger: zaptest.NewLogger(t),
		}),
	}
}

func packed(t *testing.T, contract abi.ABI, event string, emitter common.Address, block uint64, tx, index uint, args ...interface{}) chain.Log {
	t.Helper()
	data, err := contract.Events[event].Inputs.NonIndexed().Pack(args...)
	require.NoError(t, err)
	return chain.Log{
		Raw: types.Log{
			Address:     emitter,
			Topics:      []common.Hash{contract.Events[event].ID},
			Data:        data,
			BlockNumber: block,
			TxHash:      common.BigToHash(new(big.Int).SetUint64(block*1000 + uint64(tx))),
			TxIndex:     tx,
			Index:       index,
		},
		Timestamp: 1_700_000_000 + block*12,
	}
}

func createVault(t *testing.T, vault common.Address, block uint64, tx, index uint) chain.Log {
	return packed(t, contracts.OpsManagerABI, "CreateVaultInstance", opsManager, block, tx, index, vault)
}

func deposit(t *testing.T, vault common.Address, block uint64, tx, index uint, amount int64) chain.Log {
	v := contractstest.TokenAmount(amount)
	return packed(t, contracts.VaultABI, "Deposit", vault, block, tx, index, alice, v, v)
}
