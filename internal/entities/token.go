package entities

import (
	"context"

	"core-indexer/internal/domain"
)

// GetOrCreateToken loads the token, creating it and counting it on first
// reference.
func (r *Repo) GetOrCreateToken(ctx context.Context, id string, ts uint64) (*domain.Token, error) {
	t := &domain.Token{}
	found, err := r.load(ctx, id, t)
	if err != nil {
		return nil, err
	}
	if found {
		return t, nil
	}

	t = &domain.Token{ID: id, Timestamp: ts}
	if err := r.bumpMetric(ctx, ts, func(m *domain.Metric) {
		m.TokenCount = domain.Inc(m.TokenCount)
	}); err != nil {
		return nil, err
	}
	if err := r.save(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}
