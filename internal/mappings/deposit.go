package mappings

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"core-indexer/internal/contracts"
	"core-indexer/internal/decimals"
	"core-indexer/internal/domain"
	"core-indexer/internal/entities"
	"core-indexer/internal/ids"
)

// HandleDeposit applies a vault Deposit event.
func (h *Handlers) HandleDeposit(ctx context.Context, scope Scope, ev *contracts.Deposit) (*domain.Deposit, error) {
	repo := h.repo(scope, ev.Meta)
	ts := ev.Timestamp
	vaultID := ids.Address(ev.Address)

	amount := decimals.FromTokenAmount(ev.Amount)
	amountStaked := decimals.FromTokenAmount(ev.AmountStaked)

	price, err := h.prices.GetPrice(ctx, repo.Block())
	if err != nil {
		return nil, err
	}

	token, err := h.stakedToken(ctx, repo, vaultID, ts)
	if err != nil {
		return nil, err
	}

	vault, err := repo.RefreshVault(ctx, vaultID)
	if err != nil {
		return nil, err
	}

	user, err := repo.GetOrCreateUser(ctx, ids.Address(ev.Account), ts)
	if err != nil {
		return nil, err
	}
	user.DepositsBalance = user.DepositsBalance.Add(amountStaked)
	user.TotalBalance = user.TotalBalance.Add(amountStaked)
	if err := repo.UpdateUser(ctx, user, ts); err != nil {
		return nil, err
	}

	vub, err := repo.GetOrCreateVaultUserBalance(ctx, vault, user, token.ID, ts)
	if err != nil {
		return nil, err
	}
	oldStaked := vub.Staked
	vub.Staked = vub.Staked.Add(amountStaked)
	vub.Amount = vub.Amount.Add(amount)
	vub.Value = vub.Value.Add(amountStaked.Mul(price))
	if err := repo.UpdateVaultUserBalance(ctx, vub, ts); err != nil {
		return nil, err
	}

	vault.TVLUSD = vault.TVL.Mul(price)
	if oldStaked.IsZero() && !vub.Staked.IsZero() {
		vault.UserCount = domain.Inc(vault.UserCount)
	}
	if err := repo.UpdateVault(ctx, vault, ts); err != nil {
		return nil, err
	}

	if err := recordVolume(ctx, repo, vault.VaultGroup, amount, price, ts); err != nil {
		return nil, err
	}

	deposit := &domain.Deposit{
		ID:        ids.Tx(ev.TxHash),
		Vault:     vault.ID,
		User:      user.ID,
		Amount:    amount,
		Staked:    amountStaked,
		Value:     amountStaked.Mul(price),
		Timestamp: ts,
	}
	if err := repo.SaveDeposit(ctx, deposit); err != nil {
		return nil, err
	}

	h.logger.Debug("deposit applied",
		zap.String("vault", vault.ID),
		zap.String("user", user.ID),
		zap.String("amount", amount.String()),
		zap.Uint64("block", ev.Block),
	)
	return deposit, nil
}

// stakedToken gets or creates the token recorded on positions.
func (h *Handlers) stakedToken(ctx context.Context, repo *entities.Repo, vaultID string, ts uint64) (*domain.Token, error) {
	id := h.protocolToken
	if id == "" {
		vault, err := repo.LoadVault(ctx, vaultID)
		if err != nil {
			return nil, err
		}
		id = vault.TempleToken
	}
	return repo.GetOrCreateToken(ctx, id, ts)
}

// recordVolume adds a deposit or withdrawal to its group's volume, reprices
// the group and copies the group's TVL into the protocol Metric.
func recordVolume(ctx context.Context, repo *entities.Repo, groupID string, amount, price decimal.Decimal, ts uint64) error {
	group, err := repo.LoadVaultGroup(ctx, groupID)
	if err != nil {
		return fmt.Errorf("vault group %q: %w", groupID, err)
	}
	volumeUSD := amount.Mul(price)
	group.TVLUSD = group.TVL.Mul(price)
	group.Volume = group.Volume.Add(amount)
	group.VolumeUSD = group.VolumeUSD.Add(volumeUSD)
	if err := repo.UpdateVaultGroup(ctx, group, ts); err != nil {
		return err
	}

	metric, err := repo.GetMetric(ctx)
	if err != nil {
		return err
	}
	metric.TVL = group.TVL
	metric.TVLUSD = group.TVLUSD
	metric.Volume = metric.Volume.Add(amount)
	metric.VolumeUSD = metric.VolumeUSD.Add(volumeUSD)
	return repo.UpdateMetric(ctx, metric, ts)
}
