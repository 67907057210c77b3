package contracts

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"core-indexer/internal/chain"
)

// ErrNoData is returned when a call succeeds but returns nothing, which is
// what a call to an address without code looks like.
var ErrNoData = errors.New("call returned no data")

// Caller executes read-only contract calls. chain.HTTPClient satisfies it.
type Caller interface {
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// IsCallFailure reports whether err means the contract refused the call,
// as opposed to a transport failure.
func IsCallFailure(err error) bool {
	return chain.IsReverted(err) || errors.Is(err, ErrNoData)
}

// Ratio is a numerator/denominator pair as returned by the vault contracts.
type Ratio struct {
	P *big.Int
	Q *big.Int
}

// VaultMetadata are the vault properties fixed at construction.
type VaultMetadata struct {
	Name                      string
	Symbol                    string
	TempleToken               common.Address
	PeriodDuration            *big.Int
	EnterExitWindowDuration   *big.Int
	JoiningFee                common.Address
	FirstPeriodStartTimestamp *big.Int
}

// VaultShares are the vault properties that move with deposits and revaluation.
type VaultShares struct {
	TotalShares      *big.Int
	ShareBoostFactor Ratio
	AmountPerShare   Ratio
}

// ExposureMetadata are the properties read when an exposure is created.
type ExposureMetadata struct {
	Name       string
	Symbol     string
	RevalToken common.Address
	Reval      *big.Int
	Liquidator common.Address
}

// Reader performs static contract reads pinned to a block.
type Reader struct {
	caller Caller
}

// NewReader creates a Reader over caller.
func NewReader(caller Caller) *Reader {
	return &Reader{caller: caller}
}

// VaultMetadata reads a vault's construction-time properties.
func (r *Reader) VaultMetadata(ctx context.Context, vault common.Address, block *big.Int) (*VaultMetadata, error) {
	var (
		m   VaultMetadata
		err error
	)
	if m.Name, err = r.readString(ctx, VaultABI, vault, block, "name"); err != nil {
		return nil, err
	}
	if m.Symbol, err = r.readString(ctx, VaultABI, vault, block, "symbol"); err != nil {
		return nil, err
	}
	if m.TempleToken, err = r.readAddress(ctx, VaultABI, vault, block, "templeToken"); err != nil {
		return nil, err
	}
	if m.PeriodDuration, err = r.readBig(ctx, VaultABI, vault, block, "periodDuration"); err != nil {
		return nil, err
	}
	if m.EnterExitWindowDuration, err = r.readBig(ctx, VaultABI, vault, block, "enterExitWindowDuration"); err != nil {
		return nil, err
	}
	if m.JoiningFee, err = r.readAddress(ctx, VaultABI, vault, block, "joiningFee"); err != nil {
		return nil, err
	}
	if m.FirstPeriodStartTimestamp, err = r.readBig(ctx, VaultABI, vault, block, "firstPeriodStartTimestamp"); err != nil {
		return nil, err
	}
	return &m, nil
}

// VaultShares reads a vault's share supply and conversion ratios.
func (r *Reader) VaultShares(ctx context.Context, vault common.Address, block *big.Int) (*VaultShares, error) {
	var (
		s   VaultShares
		err error
	)
	if s.TotalShares, err = r.readBig(ctx, VaultABI, vault, block, "totalShares"); err != nil {
		return nil, err
	}
	if s.ShareBoostFactor, err = r.readRatio(ctx, VaultABI, vault, block, "shareBoostFactor"); err != nil {
		return nil, err
	}
	if s.AmountPerShare, err = r.readRatio(ctx, VaultABI, vault, block, "amountPerShare"); err != nil {
		return nil, err
	}
	return &s, nil
}

// ExposureMetadata reads an exposure's properties.
func (r *Reader) ExposureMetadata(ctx context.Context, exposure common.Address, block *big.Int) (*ExposureMetadata, error) {
	var (
		m   ExposureMetadata
		err error
	)
	if m.Name, err = r.readString(ctx, ExposureABI, exposure, block, "name"); err != nil {
		return nil, err
	}
	if m.Symbol, err = r.readString(ctx, ExposureABI, exposure, block, "symbol"); err != nil {
		return nil, err
	}
	if m.RevalToken, err = r.readAddress(ctx, ExposureABI, exposure, block, "revalToken"); err != nil {
		return nil, err
	}
	if m.Reval, err = r.readBig(ctx, ExposureABI, exposure, block, "reval"); err != nil {
		return nil, err
	}
	if m.Liquidator, err = r.readAddress(ctx, ExposureABI, exposure, block, "liquidator"); err != nil {
		return nil, err
	}
	return &m, nil
}

// FarmingRevenueTotalShares reads totalShares of a revenue contract.
func (r *Reader) FarmingRevenueTotalShares(ctx context.Context, revenue common.Address, block *big.Int) (*big.Int, error) {
	return r.readBig(ctx, FarmingRevenueABI, revenue, block, "totalShares")
}

// TryLifetimeAccRevenueScaledByShare reads lifetimeAccRevenueScaledByShare.
// ok is false when the contract refuses the call; transport errors are
// still returned.
func (r *Reader) TryLifetimeAccRevenueScaledByShare(ctx context.Context, revenue common.Address, block *big.Int) (value *big.Int, ok bool, err error) {
	value, err = r.readBig(ctx, FarmingRevenueABI, revenue, block, "lifetimeAccRevenueScaledByShare")
	if err != nil {
		if IsCallFailure(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return value, true, nil
}

// LatestAnswer reads the aggregator's latest raw answer.
func (r *Reader) LatestAnswer(ctx context.Context, feed common.Address, block *big.Int) (*big.Int, error) {
	return r.readBig(ctx, PriceFeedABI, feed, block, "latestAnswer")
}

// FeedDecimals reads the aggregator's answer scale.
func (r *Reader) FeedDecimals(ctx context.Context, feed common.Address, block *big.Int) (uint8, error) {
	out, err := r.call(ctx, PriceFeedABI, feed, block, "decimals")
	if err != nil {
		return 0, err
	}
	d, ok := out[0].(uint8)
	if !ok {
		return 0, fmt.Errorf("%w: decimals returned %T", ErrDecode, out[0])
	}
	return d, nil
}

func (r *Reader) call(ctx context.Context, contract abi.ABI, to common.Address, block *big.Int, method string) ([]interface{}, error) {
	input, err := contract.Pack(method)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	output, err := r.caller.CallContract(ctx, ethereum.CallMsg{To: &to, Data: input}, block)
	if err != nil {
		return nil, fmt.Errorf("call %s on %s: %w", method, to.Hex(), err)
	}
	if len(output) == 0 {
		return nil, fmt.Errorf("call %s on %s: %w", method, to.Hex(), ErrNoData)
	}
	values, err := contract.Unpack(method, output)
	if err != nil {
		return nil, fmt.Errorf("%w: %s output: %v", ErrDecode, method, err)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("%w: %s returned no values", ErrDecode, method)
	}
	return values, nil
}

func (r *Reader) readString(ctx context.Context, contract abi.ABI, to common.Address, block *big.Int, method string) (string, error) {
	out, err := r.call(ctx, contract, to, block, method)
	if err != nil {
		return "", err
	}
	s, ok := out[0].(string)
	if !ok {
		return "", fmt.Errorf("%w: %s returned %T", ErrDecode, method, out[0])
	}
	return s, nil
}

func (r *Reader) readAddress(ctx context.Context, contract abi.ABI, to common.Address, block *big.Int, method string) (common.Address, error) {
	out, err := r.call(ctx, contract, to, block, method)
	if err != nil {
		return common.Address{}, err
	}
	a, ok := out[0].(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("%w: %s returned %T", ErrDecode, method, out[0])
	}
	return a, nil
}

func (r *Reader) readBig(ctx context.Context, contract abi.ABI, to common.Address, block *big.Int, method string) (*big.Int, error) {
	out, err := r.call(ctx, contract, to, block, method)
	if err != nil {
		return nil, err
	}
	n, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("%w: %s returned %T", ErrDecode, method, out[0])
	}
	return n, nil
}

func (r *Reader) readRatio(ctx context.Context, contract abi.ABI, to common.Address, block *big.Int, method string) (Ratio, error) {
	out, err := r.call(ctx, contract, to, block, method)
	if err != nil {
		return Ratio{}, err
	}
	if len(out) != 2 {
		return Ratio{}, fmt.Errorf("%w: %s returned %d values", ErrDecode, method, len(out))
	}
	p, okP := out[0].(*big.Int)
	q, okQ := out[1].(*big.Int)
	if !okP || !okQ {
		return Ratio{}, fmt.Errorf("%w: %s returned %T, %T", ErrDecode, method, out[0], out[1])
	}
	return Ratio{P: p, Q: q}, nil
}
