package entities

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"core-indexer/internal/decimals"
	"core-indexer/internal/domain"
	"core-indexer/internal/ids"
)

// GetOrCreateExposure loads the exposure at addr, creating it from static
// reads on first reference. Creation counts the exposure, registers it with
// the OpsManager and creates its revaluation token.
func (r *Repo) GetOrCreateExposure(ctx context.Context, addr common.Address, ts uint64) (*domain.Exposure, error) {
	id := ids.Address(addr)
	e := &domain.Exposure{}
	found, err := r.load(ctx, id, e)
	if err != nil {
		return nil, err
	}
	if found {
		return e, nil
	}

	meta, err := r.reader.ExposureMetadata(ctx, addr, r.block)
	if err != nil {
		return nil, fmt.Errorf("exposure %s metadata: %w", id, err)
	}
	e = &domain.Exposure{
		ID:         id,
		Name:       meta.Name,
		Symbol:     meta.Symbol,
		RevalToken: ids.Address(meta.RevalToken),
		Reval:      decimals.FromTokenAmount(meta.Reval),
		Liquidator: ids.Address(meta.Liquidator),
		Timestamp:  ts,
	}

	if _, err := r.GetOrCreateToken(ctx, e.RevalToken, ts); err != nil {
		return nil, err
	}
	if err := r.bumpMetric(ctx, ts, func(m *domain.Metric) {
		m.ExposureCount = domain.Inc(m.ExposureCount)
	}); err != nil {
		return nil, err
	}
	if err := r.registerOps(ctx, ts, func(o *domain.OpsManager) {
		o.Exposures = domain.AppendUnique(o.Exposures, id)
	}); err != nil {
		return nil, err
	}
	if err := r.save(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// GetOrCreateTreasuryFarmingRevenue loads the revenue entity at addr,
// creating it linked to exposureID on first reference. totalShares must be
// readable; lifetimeAccRevenueScaledByShare defaults to zero when the
// contract refuses the call.
func (r *Repo) GetOrCreateTreasuryFarmingRevenue(ctx context.Context, addr common.Address, exposureID string, ts uint64) (*domain.TreasuryFarmingRevenue, error) {
	id := ids.Address(addr)
	t := &domain.TreasuryFarmingRevenue{}
	found, err := r.load(ctx, id, t)
	if err != nil {
		return nil, err
	}
	if found {
		return t, nil
	}

	totalShares, err := r.reader.FarmingRevenueTotalShares(ctx, addr, r.block)
	if err != nil {
		return nil, fmt.Errorf("revenue %s totalShares: %w", id, err)
	}
	accrued, _, err := r.reader.TryLifetimeAccRevenueScaledByShare(ctx, addr, r.block)
	if err != nil {
		return nil, fmt.Errorf("revenue %s lifetimeAccRevenueScaledByShare: %w", id, err)
	}

	t = &domain.TreasuryFarmingRevenue{
		ID:                              id,
		Exposure:                        exposureID,
		TotalShares:                     decimals.FromTokenAmount(totalShares),
		LifetimeAccRevenueScaledByShare: decimals.FromTokenAmount(accrued),
		Timestamp:                       ts,
	}
	if err := r.bumpMetric(ctx, ts, func(m *domain.Metric) {
		m.TFRCount = domain.Inc(m.TFRCount)
	}); err != nil {
		return nil, err
	}
	if err := r.registerOps(ctx, ts, func(o *domain.OpsManager) {
		o.TreasuryFarmingRevenues = domain.AppendUnique(o.TreasuryFarmingRevenues, id)
	}); err != nil {
		return nil, err
	}
	if err := r.save(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}
