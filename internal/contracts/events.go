package contracts

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"core-indexer/internal/chain"
)

var (
	// ErrUnexpectedEvent is returned when a log's topic does not match the
	// decoder it was given.
	ErrUnexpectedEvent = errors.New("unexpected event")

	// ErrDecode wraps ABI decoding failures of logs and calldata.
	ErrDecode = errors.New("abi decode")
)

// Meta is the provenance every decoded event carries.
type Meta struct {
	Address   common.Address // emitting contract
	Block     uint64
	Timestamp uint64 // block timestamp, seconds
	TxHash    common.Hash
	TxIndex   uint
	LogIndex  uint
}

// MetaOf extracts provenance from a log.
func MetaOf(l chain.Log) Meta {
	return Meta{
		Address:   l.Raw.Address,
		Block:     l.Raw.BlockNumber,
		Timestamp: l.Timestamp,
		TxHash:    l.Raw.TxHash,
		TxIndex:   l.Raw.TxIndex,
		LogIndex:  l.Raw.Index,
	}
}

// BlockNumber returns the block as a *big.Int for pinned contract reads.
func (m Meta) BlockNumber() *big.Int {
	return new(big.Int).SetUint64(m.Block)
}

// CreateVaultInstance is emitted by the OpsManager for each new vault.
type CreateVaultInstance struct {
	Meta
	Vault common.Address
}

// CreateExposure is emitted by the OpsManager for each new exposure.
type CreateExposure struct {
	Meta
	Exposure       common.Address
	PrimaryRevenue common.Address
}

// Deposit is emitted by a vault. Amount and AmountStaked are 18-decimal raw.
type Deposit struct {
	Meta
	Account      common.Address
	Amount       *big.Int
	AmountStaked *big.Int
}

// Withdraw is emitted by a vault.
type Withdraw struct {
	Meta
	Account common.Address
	Amount  *big.Int
}

// EarlyWithdraw is emitted by the early-withdraw contract. The vault is only
// known from the calling transaction.
type EarlyWithdraw struct {
	Meta
	Account common.Address
	Amount  *big.Int
}

// AnswerUpdated is emitted by the price feed aggregator.
type AnswerUpdated struct {
	Meta
	Current   *big.Int
	RoundID   *big.Int
	UpdatedAt *big.Int
}

// Sync is emitted by an AMM pair after every reserve change.
type Sync struct {
	Meta
	Reserve0 *big.Int
	Reserve1 *big.Int
}

// DecodeCreateVaultInstance decodes an OpsManager CreateVaultInstance log.
func DecodeCreateVaultInstance(l chain.Log) (*CreateVaultInstance, error) {
	var raw struct{ Vault common.Address }
	if err := unpackLog(OpsManagerABI, "CreateVaultInstance", &raw, l.Raw); err != nil {
		return nil, err
	}
	return &CreateVaultInstance{Meta: MetaOf(l), Vault: raw.Vault}, nil
}

// DecodeCreateExposure decodes an OpsManager CreateExposure log.
func DecodeCreateExposure(l chain.Log) (*CreateExposure, error) {
	var raw struct {
		Exposure       common.Address
		PrimaryRevenue common.Address
	}
	if err := unpackLog(OpsManagerABI, "CreateExposure", &raw, l.Raw); err != nil {
		return nil, err
	}
	return &CreateExposure{Meta: MetaOf(l), Exposure: raw.Exposure, PrimaryRevenue: raw.PrimaryRevenue}, nil
}

// DecodeDeposit decodes a vault Deposit log.
func DecodeDeposit(l chain.Log) (*Deposit, error) {
	var raw struct {
		Account      common.Address
		Amount       *big.Int
		AmountStaked *big.Int
	}
	if err := unpackLog(VaultABI, "Deposit", &raw, l.Raw); err != nil {
		return nil, err
	}
	return &Deposit{Meta: MetaOf(l), Account: raw.Account, Amount: raw.Amount, AmountStaked: raw.AmountStaked}, nil
}

// DecodeWithdraw decodes a vault Withdraw log.
func DecodeWithdraw(l chain.Log) (*Withdraw, error) {
	var raw struct {
		Account common.Address
		Amount  *big.Int
	}
	if err := unpackLog(VaultABI, "Withdraw", &raw, l.Raw); err != nil {
		return nil, err
	}
	return &Withdraw{Meta: MetaOf(l), Account: raw.Account, Amount: raw.Amount}, nil
}

// DecodeEarlyWithdraw decodes an EarlyWithdraw log.
func DecodeEarlyWithdraw(l chain.Log) (*EarlyWithdraw, error) {
	var raw struct {
		Addr   common.Address
		Amount *big.Int
	}
	if err := unpackLog(EarlyWithdrawABI, "EarlyWithdraw", &raw, l.Raw); err != nil {
		return nil, err
	}
	return &EarlyWithdraw{Meta: MetaOf(l), Account: raw.Addr, Amount: raw.Amount}, nil
}

// DecodeAnswerUpdated decodes a price feed AnswerUpdated log.
func DecodeAnswerUpdated(l chain.Log) (*AnswerUpdated, error) {
	var raw struct {
		Current   *big.Int
		RoundId   *big.Int
		UpdatedAt *big.Int
	}
	if err := unpackLog(PriceFeedABI, "AnswerUpdated", &raw, l.Raw); err != nil {
		return nil, err
	}
	return &AnswerUpdated{Meta: MetaOf(l), Current: raw.Current, RoundID: raw.RoundId, UpdatedAt: raw.UpdatedAt}, nil
}

// DecodeSync decodes an AMM pair Sync log.
func DecodeSync(l chain.Log) (*Sync, error) {
	var raw struct {
		Reserve0 *big.Int
		Reserve1 *big.Int
	}
	if err := unpackLog(PairABI, "Sync", &raw, l.Raw); err != nil {
		return nil, err
	}
	return &Sync{Meta: MetaOf(l), Reserve0: raw.Reserve0, Reserve1: raw.Reserve1}, nil
}

// ShareTransfer is an ERC-20 Transfer of vault shares, read from receipts.
type ShareTransfer struct {
	Vault common.Address
	From  common.Address
	To    common.Address
	Value *big.Int
}

// DecodeShareTransfer decodes a vault share Transfer log.
func DecodeShareTransfer(l types.Log) (*ShareTransfer, error) {
	var raw struct {
		From  common.Address
		To    common.Address
		Value *big.Int
	}
	if err := unpackLog(VaultABI, "Transfer", &raw, l); err != nil {
		return nil, err
	}
	return &ShareTransfer{Vault: l.Address, From: raw.From, To: raw.To, Value: raw.Value}, nil
}

// WithdrawCall is the decoded input of withdraw(address vault, uint256 amount).
type WithdrawCall struct {
	Vault  common.Address
	Amount *big.Int
}

// DecodeWithdrawCall decodes early-withdraw transaction calldata.
func DecodeWithdrawCall(input []byte) (*WithdrawCall, error) {
	if len(input) < 4 {
		return nil, fmt.Errorf("%w: calldata too short (%d bytes)", ErrDecode, len(input))
	}
	method, err := EarlyWithdrawABI.MethodById(input[:4])
	if err != nil || method.Name != "withdraw" {
		return nil, fmt.Errorf("%w: calldata selector %x is not withdraw(address,uint256)", ErrDecode, input[:4])
	}
	values, err := method.Inputs.Unpack(input[4:])
	if err != nil {
		return nil, fmt.Errorf("%w: withdraw calldata: %v", ErrDecode, err)
	}
	vault, ok := values[0].(common.Address)
	if !ok {
		return nil, fmt.Errorf("%w: withdraw vault argument", ErrDecode)
	}
	amount, ok := values[1].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("%w: withdraw amount argument", ErrDecode)
	}
	return &WithdrawCall{Vault: vault, Amount: amount}, nil
}

// unpackLog decodes both the data and the indexed topics of log into out.
func unpackLog(contract abi.ABI, event string, out interface{}, log types.Log) error {
	ev, ok := contract.Events[event]
	if !ok {
		return fmt.Errorf("%w: %s not in abi", ErrUnexpectedEvent, event)
	}
	if len(log.Topics) == 0 || log.Topics[0] != ev.ID {
		return fmt.Errorf("%w: want %s", ErrUnexpectedEvent, event)
	}
	if len(log.Data) > 0 {
		if err := contract.UnpackIntoInterface(out, event, log.Data); err != nil {
			return fmt.Errorf("%w: %s data: %v", ErrDecode, event, err)
		}
	}
	var indexed abi.Arguments
	for _, arg := range ev.Inputs {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	if len(indexed) > 0 {
		if err := abi.ParseTopics(out, indexed, log.Topics[1:]); err != nil {
			return fmt.Errorf("%w: %s topics: %v", ErrDecode, event, err)
		}
	}
	return nil
}
