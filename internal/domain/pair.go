package domain

import "github.com/shopspring/decimal"

// Pair is an AMM pair whose reserves are tracked from Sync events.
type Pair struct {
	ID        string          `json:"id"`
	Reserve0  decimal.Decimal `json:"reserve0"`
	Reserve1  decimal.Decimal `json:"reserve1"`
	Timestamp uint64          `json:"timestamp"`
}

func (*Pair) Kind() string       { return KindPair }
func (p *Pair) EntityID() string { return p.ID }
