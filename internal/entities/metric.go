package entities

import (
	"context"
	"math/big"

	"core-indexer/internal/dates"
	"core-indexer/internal/domain"
	"core-indexer/internal/ids"
)

// GetMetric loads the protocol singleton, or returns a zero-valued one.
func (r *Repo) GetMetric(ctx context.Context) (*domain.Metric, error) {
	m := domain.NewMetric()
	if _, err := r.load(ctx, domain.MetricID, m); err != nil {
		return nil, err
	}
	return m, nil
}

// UpdateMetric persists m and overwrites the day snapshot.
func (r *Repo) UpdateMetric(ctx context.Context, m *domain.Metric, ts uint64) error {
	m.Timestamp = ts
	if err := r.save(ctx, m); err != nil {
		return err
	}

	day := &domain.MetricDayData{}
	id := ids.Bucketed(dates.DayFromTimestamp(ts), m.ID)
	if _, err := r.load(ctx, id, day); err != nil {
		return err
	}
	day.ID = id
	day.Metric = m.ID
	day.Volume = m.Volume
	day.VolumeUSD = m.VolumeUSD
	day.TVL = m.TVL
	day.TVLUSD = m.TVLUSD
	day.VaultCount = copyCount(m.VaultCount)
	day.ExposureCount = copyCount(m.ExposureCount)
	day.TFRCount = copyCount(m.TFRCount)
	day.TokenCount = copyCount(m.TokenCount)
	day.UserCount = copyCount(m.UserCount)
	day.VaultGroupCount = copyCount(m.VaultGroupCount)
	day.PairCount = copyCount(m.PairCount)
	day.Timestamp = ts
	return r.save(ctx, day)
}

// bumpMetric applies fn to the singleton and persists it.
func (r *Repo) bumpMetric(ctx context.Context, ts uint64, fn func(*domain.Metric)) error {
	m, err := r.GetMetric(ctx)
	if err != nil {
		return err
	}
	fn(m)
	return r.UpdateMetric(ctx, m, ts)
}

func copyCount(n *big.Int) *big.Int {
	if n == nil {
		return domain.NewCount()
	}
	return new(big.Int).Set(n)
}
