package domain

import "github.com/shopspring/decimal"

// Exposure is a revaluable position contract, keyed by address.
type Exposure struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Symbol     string          `json:"symbol"`
	RevalToken string          `json:"revalToken"`
	Reval      decimal.Decimal `json:"reval"`
	Liquidator string          `json:"liquidator"`
	Timestamp  uint64          `json:"timestamp"`
}

func (*Exposure) Kind() string       { return KindExposure }
func (e *Exposure) EntityID() string { return e.ID }

// TreasuryFarmingRevenue tracks a revenue-share contract attached to an
// Exposure, keyed by the revenue contract address.
type TreasuryFarmingRevenue struct {
	ID                              string          `json:"id"`
	Exposure                        string          `json:"exposure"`
	TotalShares                     decimal.Decimal `json:"totalShares"`
	LifetimeAccRevenueScaledByShare decimal.Decimal `json:"lifetimeAccRevenueScaledByShare"`
	Timestamp                       uint64          `json:"timestamp"`
}

func (*TreasuryFarmingRevenue) Kind() string       { return KindTreasuryFarmingRevenue }
func (t *TreasuryFarmingRevenue) EntityID() string { return t.ID }
