package entities

import (
	"context"

	"github.com/shopspring/decimal"

	"core-indexer/internal/domain"
	"core-indexer/internal/ids"
)

// GetOrCreateVaultUserBalance loads the user's position in vault. On
// creation the user is added to vault.Users and the position to
// user.VaultUserBalances; both are updated in place and persisted.
func (r *Repo) GetOrCreateVaultUserBalance(ctx context.Context, vault *domain.Vault, user *domain.User, tokenID string, ts uint64) (*domain.VaultUserBalance, error) {
	id := ids.VaultUserBalance(vault.ID, user.ID)
	b := &domain.VaultUserBalance{}
	found, err := r.load(ctx, id, b)
	if err != nil {
		return nil, err
	}
	if found {
		return b, nil
	}

	b = &domain.VaultUserBalance{
		ID:        id,
		Vault:     vault.ID,
		User:      user.ID,
		Token:     tokenID,
		Staked:    decimal.Zero,
		Amount:    decimal.Zero,
		Value:     decimal.Zero,
		Earned:    decimal.Zero,
		EarnedUSD: decimal.Zero,
		Timestamp: ts,
	}
	if err := r.save(ctx, b); err != nil {
		return nil, err
	}

	vault.Users = domain.AppendUnique(vault.Users, user.ID)
	if err := r.UpdateVault(ctx, vault, ts); err != nil {
		return nil, err
	}
	user.VaultUserBalances = domain.AppendUnique(user.VaultUserBalances, id)
	if err := r.UpdateUser(ctx, user, ts); err != nil {
		return nil, err
	}
	return b, nil
}

// UpdateVaultUserBalance persists b.
func (r *Repo) UpdateVaultUserBalance(ctx context.Context, b *domain.VaultUserBalance, ts uint64) error {
	b.Timestamp = ts
	return r.save(ctx, b)
}

// TotalStaked sums Staked over every position of user. current, if it is
// one of them, is used in place of its stored version.
func (r *Repo) TotalStaked(ctx context.Context, user *domain.User, current *domain.VaultUserBalance) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, id := range user.VaultUserBalances {
		if current != nil && id == current.ID {
			total = total.Add(current.Staked)
			continue
		}
		b := &domain.VaultUserBalance{}
		if err := r.mustLoad(ctx, id, b); err != nil {
			return decimal.Zero, err
		}
		total = total.Add(b.Staked)
	}
	return total, nil
}
