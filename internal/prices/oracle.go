// Package prices reads the protocol token price from an on-chain feed.
package prices

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"core-indexer/internal/decimals"
)

// FeedDecimals is the answer scale of the protocol's price feed.
const FeedDecimals int32 = 8

// AnswerReader reads an aggregator's latest answer.
type AnswerReader interface {
	LatestAnswer(ctx context.Context, feed common.Address, block *big.Int) (*big.Int, error)
}

// Oracle converts the feed's latest answer into a decimal price.
// It does not cache: every call is a fresh read at the given block.
type Oracle struct {
	reader   AnswerReader
	feed     common.Address
	decimals int32
}

// NewOracle creates an Oracle over feed with the default scale.
func NewOracle(reader AnswerReader, feed common.Address) *Oracle {
	return &Oracle{reader: reader, feed: feed, decimals: FeedDecimals}
}

// WithDecimals returns a copy of o that scales answers by d.
func (o *Oracle) WithDecimals(d int32) *Oracle {
	cp := *o
	cp.decimals = d
	return &cp
}

// Feed returns the feed address.
func (o *Oracle) Feed() common.Address {
	return o.feed
}

// GetPrice returns latestAnswer / 10^decimals at block.
func (o *Oracle) GetPrice(ctx context.Context, block *big.Int) (decimal.Decimal, error) {
	answer, err := o.reader.LatestAnswer(ctx, o.feed, block)
	if err != nil {
		return decimal.Zero, fmt.Errorf("read price feed %s: %w", o.feed.Hex(), err)
	}
	return decimals.ToDecimal(answer, o.decimals), nil
}
