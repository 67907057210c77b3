package entities

import (
	"context"

	"github.com/shopspring/decimal"

	"core-indexer/internal/dates"
	"core-indexer/internal/domain"
	"core-indexer/internal/ids"
)

// GetOrCreateVaultGroup loads the group named id. On creation the group is
// counted and registered with the OpsManager.
func (r *Repo) GetOrCreateVaultGroup(ctx context.Context, id string, ts uint64) (*domain.VaultGroup, error) {
	g := &domain.VaultGroup{}
	found, err := r.load(ctx, id, g)
	if err != nil {
		return nil, err
	}
	if found {
		return g, nil
	}

	if err := r.bumpMetric(ctx, ts, func(m *domain.Metric) {
		m.VaultGroupCount = domain.Inc(m.VaultGroupCount)
	}); err != nil {
		return nil, err
	}

	g = &domain.VaultGroup{
		ID:        id,
		Vaults:    []string{},
		TVL:       decimal.Zero,
		TVLUSD:    decimal.Zero,
		Volume:    decimal.Zero,
		VolumeUSD: decimal.Zero,
		Timestamp: ts,
	}
	if err := r.registerOps(ctx, ts, func(o *domain.OpsManager) {
		o.VaultGroups = domain.AppendUnique(o.VaultGroups, id)
	}); err != nil {
		return nil, err
	}
	if err := r.save(ctx, g); err != nil {
		return nil, err
	}
	return g, nil
}

// LoadVaultGroup returns the stored group.
func (r *Repo) LoadVaultGroup(ctx context.Context, id string) (*domain.VaultGroup, error) {
	g := &domain.VaultGroup{}
	if err := r.mustLoad(ctx, id, g); err != nil {
		return nil, err
	}
	return g, nil
}

// UpdateVaultGroup persists g and overwrites its day and hour snapshots.
// Snapshots carry every field, so they are written without a prior load.
func (r *Repo) UpdateVaultGroup(ctx context.Context, g *domain.VaultGroup, ts uint64) error {
	g.Timestamp = ts
	if err := r.save(ctx, g); err != nil {
		return err
	}

	dayID := ids.Bucketed(dates.DayFromTimestamp(ts), g.ID)
	day := &domain.VaultGroupDayData{
		ID:         dayID,
		VaultGroup: g.ID,
		TVL:        g.TVL,
		TVLUSD:     g.TVLUSD,
		Volume:     g.Volume,
		VolumeUSD:  g.VolumeUSD,
		Timestamp:  ts,
	}
	if err := r.save(ctx, day); err != nil {
		return err
	}

	hourID := ids.Bucketed(dates.HourFromTimestamp(ts), g.ID)
	hour := &domain.VaultGroupHourData{
		ID:         hourID,
		VaultGroup: g.ID,
		TVL:        g.TVL,
		TVLUSD:     g.TVLUSD,
		Volume:     g.Volume,
		VolumeUSD:  g.VolumeUSD,
		Timestamp:  ts,
	}
	return r.save(ctx, hour)
}

// recomputeGroupTVL sets g.TVL to the sum of its member vault TVLs.
// current replaces its stored version in the sum.
func (r *Repo) recomputeGroupTVL(ctx context.Context, g *domain.VaultGroup, current *domain.Vault) error {
	total := decimal.Zero
	for _, id := range g.Vaults {
		if current != nil && id == current.ID {
			total = total.Add(current.TVL)
			continue
		}
		v, err := r.LoadVault(ctx, id)
		if err != nil {
			return err
		}
		total = total.Add(v.TVL)
	}
	g.TVL = total
	return nil
}
