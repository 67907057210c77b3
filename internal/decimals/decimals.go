// Package decimals converts fixed-point on-chain integers to exact decimals.
package decimals

import (
	"math/big"

	"github.com/shopspring/decimal"
)

const (
	// TokenDecimals is the scale of every ERC-20 amount the protocol handles.
	TokenDecimals int32 = 18

	// DivisionPrecision is the number of fractional digits kept by Ratio.
	DivisionPrecision int32 = 18
)

// ToDecimal returns raw / 10^decimals without rounding.
// A nil raw converts to zero.
func ToDecimal(raw *big.Int, decimals int32) decimal.Decimal {
	if raw == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(raw, -decimals)
}

// FromTokenAmount converts an 18-decimal token amount.
func FromTokenAmount(raw *big.Int) decimal.Decimal {
	return ToDecimal(raw, TokenDecimals)
}

// FromDecimal scales d back up by 10^decimals, truncating any digits beyond
// that scale.
func FromDecimal(d decimal.Decimal, decimals int32) *big.Int {
	return d.Shift(decimals).BigInt()
}

// Ratio divides a (p, q) pair as returned by the vault contracts.
// A zero or nil denominator yields zero.
func Ratio(p, q *big.Int) decimal.Decimal {
	if q == nil || q.Sign() == 0 || p == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(p, 0).DivRound(decimal.NewFromBigInt(q, 0), DivisionPrecision)
}
