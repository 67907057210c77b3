package entities

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"core-indexer/internal/contracts"
	"core-indexer/internal/dates"
	"core-indexer/internal/decimals"
	"core-indexer/internal/domain"
	"core-indexer/internal/ids"
)

// VaultTVL is totalShares × shareBoostFactor × amountPerShare.
func VaultTVL(totalShares, shareBoostFactor, amountPerShare decimal.Decimal) decimal.Decimal {
	return totalShares.Mul(shareBoostFactor).Mul(amountPerShare)
}

// GetOrCreateVault loads the vault at addr, creating it from static reads on
// first reference. created reports whether this call created it.
func (r *Repo) GetOrCreateVault(ctx context.Context, addr common.Address, ts uint64) (v *domain.Vault, created bool, err error) {
	id := ids.Address(addr)
	v = &domain.Vault{}
	found, err := r.load(ctx, id, v)
	if err != nil {
		return nil, false, err
	}
	if found {
		return v, false, nil
	}

	meta, err := r.reader.VaultMetadata(ctx, addr, r.block)
	if err != nil {
		return nil, false, fmt.Errorf("vault %s metadata: %w", id, err)
	}
	shares, err := r.reader.VaultShares(ctx, addr, r.block)
	if err != nil {
		return nil, false, fmt.Errorf("vault %s shares: %w", id, err)
	}

	v = &domain.Vault{
		ID:                        id,
		Name:                      meta.Name,
		Symbol:                    meta.Symbol,
		TempleToken:               ids.Address(meta.TempleToken),
		PeriodDuration:            copyCount(meta.PeriodDuration),
		EnterExitWindowDuration:   copyCount(meta.EnterExitWindowDuration),
		JoiningFee:                ids.Address(meta.JoiningFee),
		FirstPeriodStartTimestamp: copyCount(meta.FirstPeriodStartTimestamp),
		Users:                     []string{},
		TVLUSD:                    decimal.Zero,
		UserCount:                 domain.NewCount(),
		VaultGroup:                meta.Name,
		Timestamp:                 ts,
	}
	applyShares(v, shares)

	if _, err := r.GetOrCreateToken(ctx, v.TempleToken, ts); err != nil {
		return nil, false, err
	}

	group, err := r.GetOrCreateVaultGroup(ctx, meta.Name, ts)
	if err != nil {
		return nil, false, err
	}
	group.Vaults = domain.AppendUnique(group.Vaults, v.ID)

	if err := r.bumpMetric(ctx, ts, func(m *domain.Metric) {
		m.VaultCount = domain.Inc(m.VaultCount)
		m.Vaults = domain.AppendUnique(m.Vaults, v.ID)
	}); err != nil {
		return nil, false, err
	}

	if err := r.UpdateVault(ctx, v, ts); err != nil {
		return nil, false, err
	}
	if err := r.recomputeGroupTVL(ctx, group, v); err != nil {
		return nil, false, err
	}
	if err := r.UpdateVaultGroup(ctx, group, ts); err != nil {
		return nil, false, err
	}
	return v, true, nil
}

// LoadVault returns the stored vault without touching the chain or the store.
func (r *Repo) LoadVault(ctx context.Context, id string) (*domain.Vault, error) {
	v := &domain.Vault{}
	if err := r.mustLoad(ctx, id, v); err != nil {
		return nil, err
	}
	return v, nil
}

// RefreshVault loads the vault, re-reads its share state, recomputes TVL and
// persists it, then recomputes the owning group's TVL.
func (r *Repo) RefreshVault(ctx context.Context, id string) (*domain.Vault, error) {
	v, err := r.LoadVault(ctx, id)
	if err != nil {
		return nil, err
	}
	shares, err := r.reader.VaultShares(ctx, common.HexToAddress(id), r.block)
	if err != nil {
		return nil, fmt.Errorf("vault %s shares: %w", id, err)
	}
	applyShares(v, shares)
	if err := r.save(ctx, v); err != nil {
		return nil, err
	}

	if v.VaultGroup == "" {
		return v, nil
	}
	group := &domain.VaultGroup{}
	if err := r.mustLoad(ctx, v.VaultGroup, group); err != nil {
		return nil, err
	}
	if err := r.recomputeGroupTVL(ctx, group, v); err != nil {
		return nil, err
	}
	if err := r.save(ctx, group); err != nil {
		return nil, err
	}
	return v, nil
}

// UpdateVault persists v and overwrites its hour snapshot.
func (r *Repo) UpdateVault(ctx context.Context, v *domain.Vault, ts uint64) error {
	v.Timestamp = ts
	if err := r.save(ctx, v); err != nil {
		return err
	}

	hour := &domain.VaultHourData{}
	id := ids.Bucketed(dates.HourFromTimestamp(ts), v.ID)
	if _, err := r.load(ctx, id, hour); err != nil {
		return err
	}
	hour.ID = id
	hour.Vault = v.ID
	hour.TVL = v.TVL
	hour.TVLUSD = v.TVLUSD
	hour.UserCount = copyCount(v.UserCount)
	hour.Timestamp = ts
	return r.save(ctx, hour)
}

func applyShares(v *domain.Vault, s *contracts.VaultShares) {
	v.TotalShares = decimals.FromTokenAmount(s.TotalShares)
	v.ShareBoostFactor = decimals.Ratio(s.ShareBoostFactor.P, s.ShareBoostFactor.Q)
	v.AmountPerShare = decimals.Ratio(s.AmountPerShare.P, s.AmountPerShare.Q)
	v.TVL = VaultTVL(v.TotalShares, v.ShareBoostFactor, v.AmountPerShare)
}
