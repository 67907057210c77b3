package entities

import (
	"context"

	"core-indexer/internal/domain"
)

// GetOpsManager loads the registry singleton, or returns an empty one.
func (r *Repo) GetOpsManager(ctx context.Context) (*domain.OpsManager, error) {
	o := domain.NewOpsManager()
	if _, err := r.load(ctx, domain.OpsManagerID, o); err != nil {
		return nil, err
	}
	return o, nil
}

// UpdateOpsManager persists o.
func (r *Repo) UpdateOpsManager(ctx context.Context, o *domain.OpsManager, ts uint64) error {
	o.Timestamp = ts
	return r.save(ctx, o)
}

func (r *Repo) registerOps(ctx context.Context, ts uint64, fn func(*domain.OpsManager)) error {
	o, err := r.GetOpsManager(ctx)
	if err != nil {
		return err
	}
	fn(o)
	return r.UpdateOpsManager(ctx, o, ts)
}
