package mappings

import (
	"context"

	"github.com/shopspring/decimal"

	"core-indexer/internal/contracts"
)

// HandleAnswerUpdated reprices every vault group and sets the protocol TVL
// to the sum over groups.
func (h *Handlers) HandleAnswerUpdated(ctx context.Context, scope Scope, ev *contracts.AnswerUpdated) error {
	repo := h.repo(scope, ev.Meta)
	ts := ev.Timestamp

	price, err := h.prices.GetPrice(ctx, repo.Block())
	if err != nil {
		return err
	}

	ops, err := repo.GetOpsManager(ctx)
	if err != nil {
		return err
	}

	tvl, tvlUSD := decimal.Zero, decimal.Zero
	for _, id := range ops.VaultGroups {
		group, err := repo.LoadVaultGroup(ctx, id)
		if err != nil {
			return err
		}
		group.TVLUSD = group.TVL.Mul(price)
		if err := repo.UpdateVaultGroup(ctx, group, ts); err != nil {
			return err
		}
		tvl = tvl.Add(group.TVL)
		tvlUSD = tvlUSD.Add(group.TVLUSD)
	}

	metric, err := repo.GetMetric(ctx)
	if err != nil {
		return err
	}
	metric.TVL = tvl
	metric.TVLUSD = tvlUSD
	return repo.UpdateMetric(ctx, metric, ts)
}
