package entities

import (
	"context"

	"core-indexer/internal/domain"
)

// GetOrCreatePair loads the pair, creating it and counting it on first
// reference.
func (r *Repo) GetOrCreatePair(ctx context.Context, id string, ts uint64) (*domain.Pair, error) {
	p := &domain.Pair{}
	found, err := r.load(ctx, id, p)
	if err != nil {
		return nil, err
	}
	if found {
		return p, nil
	}

	p = &domain.Pair{ID: id, Timestamp: ts}
	if err := r.bumpMetric(ctx, ts, func(m *domain.Metric) {
		m.PairCount = domain.Inc(m.PairCount)
	}); err != nil {
		return nil, err
	}
	if err := r.save(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// UpdatePair persists p.
func (r *Repo) UpdatePair(ctx context.Context, p *domain.Pair, ts uint64) error {
	p.Timestamp = ts
	return r.save(ctx, p)
}
