package mappings

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"core-indexer/internal/chain"
	"core-indexer/internal/contracts"
	"core-indexer/internal/contracts/contractstest"
	"core-indexer/internal/domain"
	"core-indexer/internal/ids"
	"core-indexer/internal/prices"
	"core-indexer/internal/storage"
	"core-indexer/internal/storage/memory"
)

const baseTS = uint64(1_700_000_000)

var (
	opsManagerAddr = common.HexToAddress("0x0000000000000000000000000000000000000f00")
	earlyAddr      = common.HexToAddress("0x0000000000000000000000000000000000000e00")
	feedAddr       = common.HexToAddress("0x0000000000000000000000000000000000000fee")
	pairAddr       = common.HexToAddress("0x0000000000000000000000000000000000000a11")
	vaultA         = common.HexToAddress("0x000000000000000000000000000000000000a001")
	vaultB         = common.HexToAddress("0x000000000000000000000000000000000000a002")
	alice          = common.HexToAddress("0x000000000000000000000000000000000000b001")
	bob            = common.HexToAddress("0x000000000000000000000000000000000000b002")
	carol          = common.HexToAddress("0x000000000000000000000000000000000000b003")
)

type tracked struct {
	addr     common.Address
	template string
}

type recordingRegistrar struct {
	tracked []tracked
}

func (r *recordingRegistrar) Track(addr common.Address, template string) {
	r.tracked = append(r.tracked, tracked{addr: addr, template: template})
}

type fakeTxs struct {
	txs      map[common.Hash]*chain.Transaction
	receipts map[common.Hash]*chain.Receipt
}

func newFakeTxs() *fakeTxs {
	return &fakeTxs{
		txs:      make(map[common.Hash]*chain.Transaction),
		receipts: make(map[common.Hash]*chain.Receipt),
	}
}

func (f *fakeTxs) TransactionByHash(_ context.Context, hash common.Hash) (*chain.Transaction, error) {
	tx, ok := f.txs[hash]
	if !ok {
		return nil, chain.ErrNotFound
	}
	return tx, nil
}

func (f *fakeTxs) TransactionReceipt(_ context.Context, hash common.Hash) (*chain.Receipt, error) {
	r, ok := f.receipts[hash]
	if !ok {
		return nil, chain.ErrNotFound
	}
	return r, nil
}

type failingPrices struct{}

func (failingPrices) GetPrice(context.Context, *big.Int) (decimal.Decimal, error) {
	return decimal.Zero, &chain.RPCError{Code: 3, Message: "execution reverted"}
}

type harness struct {
	t        *testing.T
	ctx      context.Context
	reader   *contractstest.Reader
	txs      *fakeTxs
	reg      *recordingRegistrar
	overlay  *storage.Overlay
	handlers *Handlers
	block    uint64
	txSeq    int64
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	reader := contractstest.NewReader()
	reader.SetAnswer(feedAddr, big.NewInt(150_000_000))
	txs := newFakeTxs()
	h := &harness{
		t:       t,
		ctx:     context.Background(),
		reader:  reader,
		txs:     txs,
		reg:     &recordingRegistrar{},
		overlay: storage.NewOverlay(memory.NewEntityStore()),
		block:   100,
	}
	h.handlers = New(reader, prices.NewOracle(reader, feedAddr), txs, Options{
		ProtocolToken: contractstest.TempleToken,
		Logger:        zaptest.NewLogger(t),
	})
	return h
}

func (h *harness) scope() Scope {
	return Scope{Store: h.overlay, Registrar: h.reg}
}

func (h *harness) meta(emitter common.Address, ts uint64) contracts.Meta {
	h.block++
	h.txSeq++
	return contracts.Meta{
		Address:   emitter,
		Block:     h.block,
		Timestamp: ts,
		TxHash:    common.BigToHash(big.NewInt(h.txSeq)),
	}
}

func (h *harness) createVault(addr common.Address, name string, totalShares int64) *domain.Vault {
	h.t.Helper()
	h.reader.AddVault(addr, name, contractstest.TokenAmount(totalShares))
	v, err := h.handlers.HandleCreateVaultInstance(h.ctx, h.scope(), &contracts.CreateVaultInstance{
		Meta:  h.meta(opsManagerAddr, baseTS),
		Vault: addr,
	})
	require.NoError(h.t, err)
	return v
}

func (h *harness) deposit(vault, user common.Address, amount, staked *big.Int, ts uint64) *domain.Deposit {
	h.t.Helper()
	d, err := h.handlers.HandleDeposit(h.ctx, h.scope(), &contracts.Deposit{
		Meta:         h.meta(vault, ts),
		Account:      user,
		Amount:       amount,
		AmountStaked: staked,
	})
	require.NoError(h.t, err)
	return d
}

func (h *harness) withdraw(vault, user common.Address, amount *big.Int, ts uint64) *domain.Withdraw {
	h.t.Helper()
	w, err := h.handlers.HandleWithdraw(h.ctx, h.scope(), &contracts.Withdraw{
		Meta:    h.meta(vault, ts),
		Account: user,
		Amount:  amount,
	})
	require.NoError(h.t, err)
	return w
}

func (h *harness) load(id string, dst domain.Entity) {
	h.t.Helper()
	found, err := storage.LoadEntity(h.ctx, h.overlay, id, dst)
	require.NoError(h.t, err)
	require.True(h.t, found, "%s %s not found", dst.Kind(), id)
}

func (h *harness) vault(addr common.Address) *domain.Vault {
	v := &domain.Vault{}
	h.load(ids.Address(addr), v)
	return v
}

func (h *harness) user(addr common.Address) *domain.User {
	u := &domain.User{}
	h.load(ids.Address(addr), u)
	return u
}

func (h *harness) vub(vault, user common.Address) *domain.VaultUserBalance {
	b := &domain.VaultUserBalance{}
	h.load(ids.VaultUserBalance(ids.Address(vault), ids.Address(user)), b)
	return b
}

func (h *harness) metric() *domain.Metric {
	m := domain.NewMetric()
	h.load(domain.MetricID, m)
	return m
}

func (h *harness) countKind(kind string) int {
	n := 0
	for _, doc := range h.overlay.Documents() {
		if doc.Kind == kind {
			n++
		}
	}
	return n
}

func tokens(s string) *big.Int {
	return decimal.RequireFromString(s).Shift(18).BigInt()
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal, msg string) {
	t.Helper()
	assert.True(t, got.Equal(decimal.RequireFromString(want)), "%s: got %s, want %s", msg, got, want)
}

func loadIfExists(h *harness, id string, dst domain.Entity) (bool, error) {
	return storage.LoadEntity(h.ctx, h.overlay, id, dst)
}
