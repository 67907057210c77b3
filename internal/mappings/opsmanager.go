package mappings

import (
	"context"

	"go.uber.org/zap"

	"core-indexer/internal/contracts"
	"core-indexer/internal/domain"
)

// HandleCreateVaultInstance creates the vault and starts tracking its events.
func (h *Handlers) HandleCreateVaultInstance(ctx context.Context, scope Scope, ev *contracts.CreateVaultInstance) (*domain.Vault, error) {
	repo := h.repo(scope, ev.Meta)
	vault, created, err := repo.GetOrCreateVault(ctx, ev.Vault, ev.Timestamp)
	if err != nil {
		return nil, err
	}
	scope.Registrar.Track(ev.Vault, TemplateVault)

	h.logger.Info("vault instance",
		zap.String("vault", vault.ID),
		zap.String("group", vault.VaultGroup),
		zap.Bool("created", created),
		zap.Uint64("block", ev.Block),
	)
	return vault, nil
}

// HandleCreateExposure creates the exposure and the revenue entity linked
// to it.
func (h *Handlers) HandleCreateExposure(ctx context.Context, scope Scope, ev *contracts.CreateExposure) (*domain.Exposure, *domain.TreasuryFarmingRevenue, error) {
	repo := h.repo(scope, ev.Meta)
	exposure, err := repo.GetOrCreateExposure(ctx, ev.Exposure, ev.Timestamp)
	if err != nil {
		return nil, nil, err
	}
	tfr, err := repo.GetOrCreateTreasuryFarmingRevenue(ctx, ev.PrimaryRevenue, exposure.ID, ev.Timestamp)
	if err != nil {
		return nil, nil, err
	}

	h.logger.Info("exposure created",
		zap.String("exposure", exposure.ID),
		zap.String("revenue", tfr.ID),
		zap.Uint64("block", ev.Block),
	)
	return exposure, tfr, nil
}
