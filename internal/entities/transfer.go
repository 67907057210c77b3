package entities

import (
	"context"

	"core-indexer/internal/domain"
)

// SaveDeposit persists a deposit record.
func (r *Repo) SaveDeposit(ctx context.Context, d *domain.Deposit) error {
	return r.save(ctx, d)
}

// SaveWithdraw persists a withdrawal record.
func (r *Repo) SaveWithdraw(ctx context.Context, w *domain.Withdraw) error {
	return r.save(ctx, w)
}
