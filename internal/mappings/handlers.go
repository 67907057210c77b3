// Package mappings holds the event handlers that project contract events
// into entities.
package mappings

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"core-indexer/internal/chain"
	"core-indexer/internal/contracts"
	"core-indexer/internal/entities"
	"core-indexer/internal/ids"
	"core-indexer/internal/storage"
)

// Address templates. Every tracked address is bound to one template, which
// selects the events routed from it.
const (
	TemplateOpsManager    = "OpsManager"
	TemplateVault         = "Vault"
	TemplateEarlyWithdraw = "EarlyWithdraw"
	TemplatePriceFeed     = "PriceFeed"
	TemplatePair          = "Pair"
)

// Registrar starts routing logs of a newly discovered contract.
type Registrar interface {
	Track(addr common.Address, template string)
}

// PriceSource returns the protocol token price at a block.
type PriceSource interface {
	GetPrice(ctx context.Context, block *big.Int) (decimal.Decimal, error)
}

// TransactionFetcher loads the transaction that emitted a log and its
// receipt.
type TransactionFetcher interface {
	TransactionByHash(ctx context.Context, hash common.Hash) (*chain.Transaction, error)
	TransactionReceipt(ctx context.Context, hash common.Hash) (*chain.Receipt, error)
}

// Scope is what a handler may touch while applying one event.
type Scope struct {
	Store     storage.ReadWriter
	Registrar Registrar
}

// Options configures Handlers.
type Options struct {
	// ProtocolToken is the staked token recorded on every position. When
	// unset the vault's own token is used.
	ProtocolToken common.Address
	Logger        *zap.Logger
}

// Handlers applies decoded events.
type Handlers struct {
	reader        entities.ContractReader
	prices        PriceSource
	txs           TransactionFetcher
	protocolToken string
	logger        *zap.Logger
}

// New creates Handlers.
func New(reader entities.ContractReader, prices PriceSource, txs TransactionFetcher, opts Options) *Handlers {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Handlers{
		reader: reader,
		prices: prices,
		txs:    txs,
		logger: logger,
	}
	if opts.ProtocolToken != (common.Address{}) {
		h.protocolToken = ids.Address(opts.ProtocolToken)
	}
	return h
}

func (h *Handlers) repo(scope Scope, meta contracts.Meta) *entities.Repo {
	return entities.NewRepo(scope.Store, h.reader, meta.Block)
}

// Route binds an event of a template to its handler.
type Route struct {
	Template string
	Topic    common.Hash
	Name     string
	Handle   func(ctx context.Context, scope Scope, log chain.Log) error
}

// Routes returns every event route.
func (h *Handlers) Routes() []Route {
	return []Route{
		{Template: TemplateOpsManager, Topic: contracts.CreateVaultInstanceEvent, Name: "CreateVaultInstance",
			Handle: func(ctx context.Context, scope Scope, l chain.Log) error {
				ev, err := contracts.DecodeCreateVaultInstance(l)
				if err != nil {
					return err
				}
				_, err = h.HandleCreateVaultInstance(ctx, scope, ev)
				return err
			}},
		{Template: TemplateOpsManager, Topic: contracts.CreateExposureEvent, Name: "CreateExposure",
			Handle: func(ctx context.Context, scope Scope, l chain.Log) error {
				ev, err := contracts.DecodeCreateExposure(l)
				if err != nil {
					return err
				}
				_, _, err = h.HandleCreateExposure(ctx, scope, ev)
				return err
			}},
		{Template: TemplateVault, Topic: contracts.DepositEvent, Name: "Deposit",
			Handle: func(ctx context.Context, scope Scope, l chain.Log) error {
				ev, err := contracts.DecodeDeposit(l)
				if err != nil {
					return err
				}
				_, err = h.HandleDeposit(ctx, scope, ev)
				return err
			}},
		{Template: TemplateVault, Topic: contracts.WithdrawEvent, Name: "Withdraw",
			Handle: func(ctx context.Context, scope Scope, l chain.Log) error {
				ev, err := contracts.DecodeWithdraw(l)
				if err != nil {
					return err
				}
				_, err = h.HandleWithdraw(ctx, scope, ev)
				return err
			}},
		{Template: TemplateEarlyWithdraw, Topic: contracts.EarlyWithdrawEvent, Name: "EarlyWithdraw",
			Handle: func(ctx context.Context, scope Scope, l chain.Log) error {
				ev, err := contracts.DecodeEarlyWithdraw(l)
				if err != nil {
					return err
				}
				_, err = h.HandleEarlyWithdraw(ctx, scope, ev)
				return err
			}},
		{Template: TemplatePriceFeed, Topic: contracts.AnswerUpdatedEvent, Name: "AnswerUpdated",
			Handle: func(ctx context.Context, scope Scope, l chain.Log) error {
				ev, err := contracts.DecodeAnswerUpdated(l)
				if err != nil {
					return err
				}
				return h.HandleAnswerUpdated(ctx, scope, ev)
			}},
		{Template: TemplatePair, Topic: contracts.SyncEvent, Name: "Sync",
			Handle: func(ctx context.Context, scope Scope, l chain.Log) error {
				ev, err := contracts.DecodeSync(l)
				if err != nil {
					return err
				}
				_, err = h.HandleSync(ctx, scope, ev)
				return err
			}},
	}
}
