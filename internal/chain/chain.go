package chain

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
)

// Client defines the EVM JSON-RPC surface the indexer uses.
type Client interface {
	// BlockNumber returns the latest block number.
	BlockNumber(ctx context.Context) (uint64, error)

	// BlockByNumber returns the header fields of a block. Returns ErrNotFound
	// if the node does not know the block.
	BlockByNumber(ctx context.Context, number uint64) (*Block, error)

	// FilterLogs returns logs matching the query.
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)

	// CallContract executes a read-only call at blockNumber (nil for latest).
	// Returns an error wrapping ErrExecutionReverted on revert.
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)

	// TransactionByHash returns a mined transaction. Returns ErrNotFound if unknown.
	TransactionByHash(ctx context.Context, hash common.Hash) (*Transaction, error)
}

// Block is the subset of a block header the indexer reads.
type Block struct {
	Number     hexutil.Uint64 `json:"number"`
	Hash       common.Hash    `json:"hash"`
	ParentHash common.Hash    `json:"parentHash"`
	Timestamp  hexutil.Uint64 `json:"timestamp"`
}

// Transaction is the subset of a transaction the indexer reads.
type Transaction struct {
	Hash        common.Hash     `json:"hash"`
	From        common.Address  `json:"from"`
	To          *common.Address `json:"to"`
	Input       hexutil.Bytes   `json:"input"`
	BlockNumber *hexutil.Big    `json:"blockNumber"`
}

// Receipt is the subset of a transaction receipt the indexer reads.
type Receipt struct {
	TxHash common.Hash    `json:"transactionHash"`
	Status hexutil.Uint64 `json:"status"`
	Logs   []types.Log    `json:"logs"`
}

// Log is a raw log with the timestamp of its block attached.
type Log struct {
	Raw       types.Log `json:"log"`
	Timestamp uint64    `json:"timestamp"`
}

// Less orders logs by (block, tx index, log index).
func (l Log) Less(o Log) bool {
	if l.Raw.BlockNumber != o.Raw.BlockNumber {
		return l.Raw.BlockNumber < o.Raw.BlockNumber
	}
	if l.Raw.TxIndex != o.Raw.TxIndex {
		return l.Raw.TxIndex < o.Raw.TxIndex
	}
	return l.Raw.Index < o.Raw.Index
}

// Position identifies a log within the chain.
type Position struct {
	Block    uint64
	TxIndex  uint
	LogIndex uint
}

// Position returns the ordering key of l.
func (l Log) Position() Position {
	return Position{Block: l.Raw.BlockNumber, TxIndex: l.Raw.TxIndex, LogIndex: l.Raw.Index}
}
