package contracts

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"core-indexer/internal/chain"
)

// fakeCaller answers calls by method selector.
type fakeCaller struct {
	outputs map[[4]byte][]byte
	errs    map[[4]byte]error
	blocks  []*big.Int
}

func newFakeCaller() *fakeCaller {
	return &fakeCaller{outputs: map[[4]byte][]byte{}, errs: map[[4]byte]error{}}
}

func (f *fakeCaller) set(t *testing.T, contract abi.ABI, method string, values ...interface{}) {
	t.Helper()
	m := contract.Methods[method]
	out, err := m.Outputs.Pack(values...)
	require.NoError(t, err)
	var sel [4]byte
	copy(sel[:], m.ID)
	f.outputs[sel] = out
}

func (f *fakeCaller) fail(contract abi.ABI, method string, err error) {
	var sel [4]byte
	copy(sel[:], contract.Methods[method].ID)
	f.errs[sel] = err
}

func (f *fakeCaller) CallContract(_ context.Context, call ethereum.CallMsg, block *big.Int) ([]byte, error) {
	f.blocks = append(f.blocks, block)
	var sel [4]byte
	copy(sel[:], call.Data[:4])
	if err, ok := f.errs[sel]; ok {
		return nil, err
	}
	return f.outputs[sel], nil
}

func TestReader_VaultMetadata(t *testing.T) {
	token := common.HexToAddress("0x0000000000000000000000000000000000000011")
	fee := common.HexToAddress("0x0000000000000000000000000000000000000022")
	f := newFakeCaller()
	f.set(t, VaultABI, "name", "1m-core-a")
	f.set(t, VaultABI, "symbol", "CORE-A")
	f.set(t, VaultABI, "templeToken", token)
	f.set(t, VaultABI, "periodDuration", big.NewInt(2_592_000))
	f.set(t, VaultABI, "enterExitWindowDuration", big.NewInt(86_400))
	f.set(t, VaultABI, "joiningFee", fee)
	f.set(t, VaultABI, "firstPeriodStartTimestamp", big.NewInt(1_650_000_000))

	r := NewReader(f)
	m, err := r.VaultMetadata(context.Background(), vaultAddr, big.NewInt(100))
	require.NoError(t, err)
	assert.Equal(t, "1m-core-a", m.Name)
	assert.Equal(t, "CORE-A", m.Symbol)
	assert.Equal(t, token, m.TempleToken)
	assert.Equal(t, fee, m.JoiningFee)
	assert.Equal(t, int64(2_592_000), m.PeriodDuration.Int64())
	assert.Equal(t, int64(86_400), m.EnterExitWindowDuration.Int64())
	assert.Equal(t, int64(1_650_000_000), m.FirstPeriodStartTimestamp.Int64())

	for _, b := range f.blocks {
		assert.Equal(t, int64(100), b.Int64())
	}
}

func TestReader_VaultShares(t *testing.T) {
	f := newFakeCaller()
	f.set(t, VaultABI, "totalShares", big.NewInt(500))
	f.set(t, VaultABI, "shareBoostFactor", big.NewInt(3), big.NewInt(2))
	f.set(t, VaultABI, "amountPerShare", big.NewInt(1), big.NewInt(1))

	s, err := NewReader(f).VaultShares(context.Background(), vaultAddr, big.NewInt(1))
	require.NoError(t, err)
	assert.Equal(t, int64(500), s.TotalShares.Int64())
	assert.Equal(t, int64(3), s.ShareBoostFactor.P.Int64())
	assert.Equal(t, int64(2), s.ShareBoostFactor.Q.Int64())
	assert.Equal(t, int64(1), s.AmountPerShare.Q.Int64())
}

func TestReader_EmptyReturnIsNoData(t *testing.T) {
	f := newFakeCaller()
	_, err := NewReader(f).FarmingRevenueTotalShares(context.Background(), vaultAddr, nil)
	require.ErrorIs(t, err, ErrNoData)
	assert.True(t, IsCallFailure(err))
}

func TestReader_TryLifetimeAccRevenue(t *testing.T) {
	ctx := context.Background()

	t.Run("value", func(t *testing.T) {
		f := newFakeCaller()
		f.set(t, FarmingRevenueABI, "lifetimeAccRevenueScaledByShare", big.NewInt(77))
		v, ok, err := NewReader(f).TryLifetimeAccRevenueScaledByShare(ctx, vaultAddr, nil)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, int64(77), v.Int64())
	})

	t.Run("revert", func(t *testing.T) {
		f := newFakeCaller()
		f.fail(FarmingRevenueABI, "lifetimeAccRevenueScaledByShare", &chain.RPCError{Code: 3, Message: "execution reverted"})
		v, ok, err := NewReader(f).TryLifetimeAccRevenueScaledByShare(ctx, vaultAddr, nil)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Nil(t, v)
	})

	t.Run("transport failure propagates", func(t *testing.T) {
		f := newFakeCaller()
		f.fail(FarmingRevenueABI, "lifetimeAccRevenueScaledByShare", chain.ErrUnavailable)
		_, ok, err := NewReader(f).TryLifetimeAccRevenueScaledByShare(ctx, vaultAddr, nil)
		assert.False(t, ok)
		assert.True(t, errors.Is(err, chain.ErrUnavailable))
	})
}

func TestReader_PriceFeed(t *testing.T) {
	f := newFakeCaller()
	f.set(t, PriceFeedABI, "latestAnswer", big.NewInt(150_000_000))
	f.set(t, PriceFeedABI, "decimals", uint8(8))
	r := NewReader(f)

	answer, err := r.LatestAnswer(context.Background(), vaultAddr, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(150_000_000), answer.Int64())

	d, err := r.FeedDecimals(context.Background(), vaultAddr, nil)
	require.NoError(t, err)
	assert.Equal(t, uint8(8), d)
}
