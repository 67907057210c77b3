package mappings

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"core-indexer/internal/contracts"
	"core-indexer/internal/decimals"
	"core-indexer/internal/domain"
	"core-indexer/internal/entities"
	"core-indexer/internal/ids"
)

// withdrawal is what both withdraw triggers reduce to.
type withdrawal struct {
	meta   contracts.Meta
	vault  common.Address
	user   common.Address
	amount *big.Int
	early  bool
}

// HandleWithdraw applies a vault Withdraw event. The vault is the emitter.
func (h *Handlers) HandleWithdraw(ctx context.Context, scope Scope, ev *contracts.Withdraw) (*domain.Withdraw, error) {
	return h.withdraw(ctx, scope, withdrawal{
		meta:   ev.Meta,
		vault:  ev.Address,
		user:   ev.Account,
		amount: ev.Amount,
	})
}

// ErrEarlyWithdrawVault is returned when the vault an EarlyWithdraw drew
// from cannot be identified.
var ErrEarlyWithdrawVault = errors.New("early withdraw vault not found")

// HandleEarlyWithdraw applies an EarlyWithdraw event. The user and amount
// are the event's own; the vault comes from the transaction.
func (h *Handlers) HandleEarlyWithdraw(ctx context.Context, scope Scope, ev *contracts.EarlyWithdraw) (*domain.Withdraw, error) {
	vault, err := h.earlyWithdrawVault(ctx, h.repo(scope, ev.Meta), ev)
	if err != nil {
		return nil, fmt.Errorf("early withdraw transaction %s: %w", ev.TxHash.Hex(), err)
	}
	return h.withdraw(ctx, scope, withdrawal{
		meta:   ev.Meta,
		vault:  vault,
		user:   ev.Account,
		amount: ev.Amount,
		early:  true,
	})
}

// earlyWithdrawVault reads the vault from a direct withdraw(address,uint256)
// call to the emitter. Calls wrapped by a wallet, router or multicall are
// resolved from the receipt: the early withdraw contract pulls the account's
// shares from exactly one indexed vault.
func (h *Handlers) earlyWithdrawVault(ctx context.Context, repo *entities.Repo, ev *contracts.EarlyWithdraw) (common.Address, error) {
	tx, err := h.txs.TransactionByHash(ctx, ev.TxHash)
	if err != nil {
		return common.Address{}, err
	}
	if tx.To != nil && *tx.To == ev.Address {
		call, err := contracts.DecodeWithdrawCall(tx.Input)
		if err == nil {
			return call.Vault, nil
		}
		h.logger.Debug("early withdraw calldata not decodable, reading receipt",
			zap.String("tx", ev.TxHash.Hex()), zap.Error(err))
	}

	receipt, err := h.txs.TransactionReceipt(ctx, ev.TxHash)
	if err != nil {
		return common.Address{}, err
	}
	for _, l := range receipt.Logs {
		if len(l.Topics) == 0 || l.Topics[0] != contracts.TransferEvent {
			continue
		}
		tr, err := contracts.DecodeShareTransfer(l)
		if err != nil || tr.From != ev.Account || tr.To != ev.Address {
			continue
		}
		_, err = repo.LoadVault(ctx, ids.Address(tr.Vault))
		switch {
		case err == nil:
			return tr.Vault, nil
		case !errors.Is(err, entities.ErrMissing):
			return common.Address{}, err
		}
	}
	return common.Address{}, ErrEarlyWithdrawVault
}

func (h *Handlers) withdraw(ctx context.Context, scope Scope, w withdrawal) (*domain.Withdraw, error) {
	repo := h.repo(scope, w.meta)
	ts := w.meta.Timestamp
	vaultID := ids.Address(w.vault)
	amount := decimals.FromTokenAmount(w.amount)

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

	user, err := repo.GetOrCreateUser(ctx, ids.Address(w.user), ts)
	if err != nil {
		return nil, err
	}

	vub, err := repo.GetOrCreateVaultUserBalance(ctx, vault, user, token.ID, ts)
	if err != nil {
		return nil, err
	}
	oldStaked := vub.Staked
	staked := vub.Staked.Sub(amount)
	user.WithdrawsBalance = user.WithdrawsBalance.Add(amount)

	if staked.LessThanOrEqual(decimal.Zero) {
		// Withdrawing beyond the stake pays out yield.
		earned := staked.Neg()
		vub.Earned = vub.Earned.Add(earned)
		vub.EarnedUSD = vub.EarnedUSD.Add(earned.Mul(price))
		vub.Staked = decimal.Zero
		vub.Amount = decimal.Zero
		vub.Value = decimal.Zero
		if err := repo.UpdateVaultUserBalance(ctx, vub, ts); err != nil {
			return nil, err
		}

		total, err := repo.TotalStaked(ctx, user, vub)
		if err != nil {
			return nil, err
		}
		user.TotalBalance = total
		if oldStaked.IsPositive() {
			vault.UserCount = domain.Dec(vault.UserCount)
		}
	} else {
		// Value is the USD cost basis of the stake; the withdrawn share of
		// it is retired at the basis, not at the current price.
		vub.Staked = staked
		vub.Amount = decimal.Max(vub.Amount.Sub(amount), decimal.Zero)
		vub.Value = vub.Value.Mul(staked).Div(oldStaked)
		if err := repo.UpdateVaultUserBalance(ctx, vub, ts); err != nil {
			return nil, err
		}
		user.TotalBalance = user.TotalBalance.Sub(amount)
	}
	if err := repo.UpdateUser(ctx, user, ts); err != nil {
		return nil, err
	}

	vault.TVLUSD = vault.TVL.Mul(price)
	if err := repo.UpdateVault(ctx, vault, ts); err != nil {
		return nil, err
	}

	if err := recordVolume(ctx, repo, vault.VaultGroup, amount, price, ts); err != nil {
		return nil, err
	}

	record := &domain.Withdraw{
		ID:        ids.Tx(w.meta.TxHash),
		Vault:     vault.ID,
		User:      user.ID,
		Amount:    amount,
		Value:     amount.Mul(price),
		Early:     w.early,
		Timestamp: ts,
	}
	if err := repo.SaveWithdraw(ctx, record); err != nil {
		return nil, err
	}

	h.logger.Debug("withdraw applied",
		zap.String("vault", vault.ID),
		zap.String("user", user.ID),
		zap.String("amount", amount.String()),
		zap.Bool("early", w.early),
		zap.Bool("exit", vub.Staked.IsZero()),
		zap.Uint64("block", w.meta.Block),
	)
	return record, nil
}
