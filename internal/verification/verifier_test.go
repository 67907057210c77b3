package verification

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"core-indexer/internal/contracts"
	"core-indexer/internal/contracts/contractstest"
	"core-indexer/internal/domain"
	"core-indexer/internal/ids"
	"core-indexer/internal/mappings"
	"core-indexer/internal/prices"
	"core-indexer/internal/storage"
	"core-indexer/internal/storage/memory"
)

var (
	feed   = common.HexToAddress("0x0000000000000000000000000000000000000fee")
	vaultA = common.HexToAddress("0x000000000000000000000000000000000000a001")
	vaultB = common.HexToAddress("0x000000000000000000000000000000000000a002")
	alice  = common.HexToAddress("0x000000000000000000000000000000000000b001")
	bob    = common.HexToAddress("0x000000000000000000000000000000000000b002")
)

type nopRegistrar struct{}

func (nopRegistrar) Track(common.Address, string) {}

// indexed builds a store by running real handlers over a few events.
func indexed(t *testing.T) *memory.EntityStore {
	t.Helper()
	ctx := context.Background()
	reader := contractstest.NewReader()
	reader.SetAnswer(feed, big.NewInt(150_000_000))
	reader.AddVault(vaultA, "1m-core", contractstest.TokenAmount(10))
	reader.AddVault(vaultB, "1m-core", contractstest.TokenAmount(20))
	h := mappings.New(reader, prices.NewOracle(reader, feed), nil, mappings.Options{ProtocolToken: contractstest.TempleToken})

	store := memory.NewEntityStore()
	overlay := storage.NewOverlay(store)
	scope := mappings.Scope{Store: overlay, Registrar: nopRegistrar{}}

	var seq int64
	meta := func(addr common.Address) contracts.Meta {
		seq++
		return contracts.Meta{Address: addr, Block: uint64(100 + seq), Timestamp: uint64(1_700_000_000 + seq*60), TxHash: common.BigToHash(big.NewInt(seq))}
	}
	for _, v := range []common.Address{vaultA, vaultB} {
		_, err := h.HandleCreateVaultInstance(ctx, scope, &contracts.CreateVaultInstance{Meta: meta(common.Address{}), Vault: v})
		require.NoError(t, err)
	}
	deposit := func(v, u common.Address, n int64) {
		amt := contractstest.TokenAmount(n)
		_, err := h.HandleDeposit(ctx, scope, &contracts.Deposit{Meta: meta(v), Account: u, Amount: amt, AmountStaked: amt})
		require.NoError(t, err)
	}
	deposit(vaultA, alice, 3)
	deposit(vaultB, alice, 2)
	deposit(vaultA, bob, 1)
	_, err := h.HandleWithdraw(ctx, scope, &contracts.Withdraw{Meta: meta(vaultA), Account: bob, Amount: contractstest.TokenAmount(1)})
	require.NoError(t, err)

	require.NoError(t, store.Commit(ctx, &storage.Changeset{
		Documents: overlay.Documents(),
		Cursor:    &storage.Cursor{Block: 200},
	}))
	return store
}

func put(t *testing.T, store *memory.EntityStore, e domain.Entity) {
	t.Helper()
	doc, err := storage.EncodeEntity(e)
	require.NoError(t, err)
	require.NoError(t, store.Commit(context.Background(), &storage.Changeset{Documents: []storage.Document{doc}}))
}

func load[T any, P interface {
	*T
	domain.Entity
}](t *testing.T, store *memory.EntityStore, id string) P {
	t.Helper()
	e := P(new(T))
	found, err := storage.LoadEntity(context.Background(), store, id, e)
	require.NoError(t, err)
	require.True(t, found)
	return e
}

func TestVerify_IndexedStoreIsConsistent(t *testing.T) {
	store := indexed(t)
	v := New(store, Options{Workers: 2, Logger: zaptest.NewLogger(t)})

	report, err := v.Verify(context.Background())
	require.NoError(t, err)

	assert.True(t, report.OK(), "violations: %+v", report.Violations)
	assert.Equal(t, uint64(200), report.Cursor)
	assert.Equal(t, 2, report.Entities[domain.KindVault])
	assert.Equal(t, 2, report.Entities[domain.KindUser])
	assert.Equal(t, 2, report.Checks[CheckVaultTVL])
}

func TestVerify_DetectsViolations(t *testing.T) {
	store := indexed(t)

	user := load[domain.User](t, store, ids.Address(alice))
	user.TotalBalance = user.TotalBalance.Add(decimal.NewFromInt(1))
	put(t, store, user)

	vault := load[domain.Vault](t, store, ids.Address(vaultA))
	vault.UserCount = domain.Inc(vault.UserCount)
	vault.TVL = decimal.NewFromInt(1)
	put(t, store, vault)

	metric := load[domain.Metric](t, store, domain.MetricID)
	metric.TokenCount = domain.Inc(metric.TokenCount)
	put(t, store, metric)

	report, err := New(store, Options{}).Verify(context.Background())
	require.NoError(t, err)

	assert.False(t, report.OK())
	assert.Equal(t, map[string]int{
		CheckUserBalance:    1,
		CheckVaultUserCount: 1,
		CheckVaultTVL:       1,
		CheckGroupTVL:       1,
		CheckMetricCounts:   1,
	}, report.ViolationsByCheck())

	for _, viol := range report.Violations {
		if viol.Check == CheckMetricCounts {
			assert.Equal(t, "tokenCount", viol.Field)
			assert.Equal(t, "1", viol.Expected)
			assert.Equal(t, "2", viol.Actual)
		}
	}
}

func TestVerify_EmptyStore(t *testing.T) {
	report, err := New(memory.NewEntityStore(), Options{}).Verify(context.Background())
	require.NoError(t, err)
	assert.True(t, report.OK())
	assert.Zero(t, report.Cursor)
}

type failingStore struct{ *memory.EntityStore }

func (failingStore) List(context.Context, string) ([]storage.Document, error) {
	return nil, storage.ErrUnavailable
}

func TestVerify_ListError(t *testing.T) {
	_, err := New(failingStore{memory.NewEntityStore()}, Options{}).Verify(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, storage.ErrUnavailable))
}
