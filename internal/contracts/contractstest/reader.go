// Package contractstest provides an in-memory contract reader for tests.
package contractstest

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"core-indexer/internal/chain"
	"core-indexer/internal/contracts"
)

// TempleToken is the token every vault added with AddVault reports.
var TempleToken = common.HexToAddress("0x00000000000000000000000000000000000070e1")

// Reader answers static reads from maps. Addresses without an entry revert.
type Reader struct {
	mu        sync.Mutex
	vaults    map[common.Address]*contracts.VaultMetadata
	shares    map[common.Address]*contracts.VaultShares
	exposures map[common.Address]*contracts.ExposureMetadata
	revShares map[common.Address]*big.Int
	revAccrue map[common.Address]*big.Int
	answers   map[common.Address]*big.Int
	calls     int
}

// NewReader creates an empty Reader.
func NewReader() *Reader {
	return &Reader{
		vaults:    make(map[common.Address]*contracts.VaultMetadata),
		shares:    make(map[common.Address]*contracts.VaultShares),
		exposures: make(map[common.Address]*contracts.ExposureMetadata),
		revShares: make(map[common.Address]*big.Int),
		revAccrue: make(map[common.Address]*big.Int),
		answers:   make(map[common.Address]*big.Int),
	}
}

// TokenAmount returns n whole 18-decimal tokens.
func TokenAmount(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))
}

// AddVault registers a vault named name with unit ratios and totalShares.
func (r *Reader) AddVault(addr common.Address, name string, totalShares *big.Int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.vaults[addr] = &contracts.VaultMetadata{
		Name:                      name,
		Symbol:                    name,
		TempleToken:               TempleToken,
		PeriodDuration:            big.NewInt(2_592_000),
		EnterExitWindowDuration:   big.NewInt(86_400),
		JoiningFee:                common.Address{},
		FirstPeriodStartTimestamp: big.NewInt(1_650_000_000),
	}
	r.shares[addr] = &contracts.VaultShares{
		TotalShares:      totalShares,
		ShareBoostFactor: contracts.Ratio{P: big.NewInt(1), Q: big.NewInt(1)},
		AmountPerShare:   contracts.Ratio{P: big.NewInt(1), Q: big.NewInt(1)},
	}
}

// SetShares replaces a vault's share state.
func (r *Reader) SetShares(addr common.Address, s *contracts.VaultShares) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.shares[addr] = s
}

// AddExposure registers an exposure.
func (r *Reader) AddExposure(addr common.Address, m *contracts.ExposureMetadata) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.exposures[addr] = m
}

// AddRevenue registers a revenue contract. A nil accrued makes
// lifetimeAccRevenueScaledByShare revert.
func (r *Reader) AddRevenue(addr common.Address, totalShares, accrued *big.Int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.revShares[addr] = totalShares
	if accrued != nil {
		r.revAccrue[addr] = accrued
	}
}

// SetAnswer sets a price feed's latest answer.
func (r *Reader) SetAnswer(feed common.Address, answer *big.Int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.answers[feed] = answer
}

// Calls returns the number of reads served.
func (r *Reader) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func (r *Reader) VaultMetadata(_ context.Context, vault common.Address, _ *big.Int) (*contracts.VaultMetadata, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	m, ok := r.vaults[vault]
	if !ok {
		return nil, reverted("vault", vault)
	}
	cp := *m
	return &cp, nil
}

func (r *Reader) VaultShares(_ context.Context, vault common.Address, _ *big.Int) (*contracts.VaultShares, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	s, ok := r.shares[vault]
	if !ok {
		return nil, reverted("vault", vault)
	}
	cp := *s
	return &cp, nil
}

func (r *Reader) ExposureMetadata(_ context.Context, exposure common.Address, _ *big.Int) (*contracts.ExposureMetadata, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	m, ok := r.exposures[exposure]
	if !ok {
		return nil, reverted("exposure", exposure)
	}
	cp := *m
	return &cp, nil
}

func (r *Reader) FarmingRevenueTotalShares(_ context.Context, revenue common.Address, _ *big.Int) (*big.Int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	v, ok := r.revShares[revenue]
	if !ok {
		return nil, reverted("revenue", revenue)
	}
	return new(big.Int).Set(v), nil
}

func (r *Reader) TryLifetimeAccRevenueScaledByShare(_ context.Context, revenue common.Address, _ *big.Int) (*big.Int, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	v, ok := r.revAccrue[revenue]
	if !ok {
		return nil, false, nil
	}
	return new(big.Int).Set(v), true, nil
}

func (r *Reader) LatestAnswer(_ context.Context, feed common.Address, _ *big.Int) (*big.Int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	v, ok := r.answers[feed]
	if !ok {
		return nil, reverted("feed", feed)
	}
	return new(big.Int).Set(v), nil
}

func reverted(what string, addr common.Address) error {
	return fmt.Errorf("%s %s: %w", what, addr.Hex(), &chain.RPCError{Code: 3, Message: "execution reverted"})
}
