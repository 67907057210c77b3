package mappings

import (
	"context"

	"core-indexer/internal/contracts"
	"core-indexer/internal/decimals"
	"core-indexer/internal/domain"
	"core-indexer/internal/ids"
)

// HandleSync records an AMM pair's reserves.
func (h *Handlers) HandleSync(ctx context.Context, scope Scope, ev *contracts.Sync) (*domain.Pair, error) {
	repo := h.repo(scope, ev.Meta)
	pair, err := repo.GetOrCreatePair(ctx, ids.Address(ev.Address), ev.Timestamp)
	if err != nil {
		return nil, err
	}
	pair.Reserve0 = decimals.FromTokenAmount(ev.Reserve0)
	pair.Reserve1 = decimals.FromTokenAmount(ev.Reserve1)
	if err := repo.UpdatePair(ctx, pair, ev.Timestamp); err != nil {
		return nil, err
	}
	return pair, nil
}
