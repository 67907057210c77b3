package domain

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// Metric is the protocol-wide aggregate. There is exactly one, keyed MetricID.
type Metric struct {
	ID              string          `json:"id"`
	Volume          decimal.Decimal `json:"volume"`
	VolumeUSD       decimal.Decimal `json:"volumeUSD"`
	TVL             decimal.Decimal `json:"tvl"`
	TVLUSD          decimal.Decimal `json:"tvlUSD"`
	VaultCount      *big.Int        `json:"vaultCount"`
	ExposureCount   *big.Int        `json:"exposureCount"`
	TFRCount        *big.Int        `json:"treasuryFarmingRevenueCount"`
	TokenCount      *big.Int        `json:"tokenCount"`
	UserCount       *big.Int        `json:"userCount"`
	VaultGroupCount *big.Int        `json:"vaultGroupCount"`
	PairCount       *big.Int        `json:"pairCount"`
	Vaults          []string        `json:"vaults"`
	Timestamp       uint64          `json:"timestamp"`
}

// NewMetric returns the zero-valued singleton.
func NewMetric() *Metric {
	return &Metric{
		ID:              MetricID,
		VaultCount:      NewCount(),
		ExposureCount:   NewCount(),
		TFRCount:        NewCount(),
		TokenCount:      NewCount(),
		UserCount:       NewCount(),
		VaultGroupCount: NewCount(),
		PairCount:       NewCount(),
		Vaults:          []string{},
	}
}

func (*Metric) Kind() string       { return KindMetric }
func (m *Metric) EntityID() string { return m.ID }

// MetricDayData is the last Metric state written within a UTC day.
type MetricDayData struct {
	ID              string          `json:"id"`
	Metric          string          `json:"metric"`
	Volume          decimal.Decimal `json:"volume"`
	VolumeUSD       decimal.Decimal `json:"volumeUSD"`
	TVL             decimal.Decimal `json:"tvl"`
	TVLUSD          decimal.Decimal `json:"tvlUSD"`
	VaultCount      *big.Int        `json:"vaultCount"`
	ExposureCount   *big.Int        `json:"exposureCount"`
	TFRCount        *big.Int        `json:"treasuryFarmingRevenueCount"`
	TokenCount      *big.Int        `json:"tokenCount"`
	UserCount       *big.Int        `json:"userCount"`
	VaultGroupCount *big.Int        `json:"vaultGroupCount"`
	PairCount       *big.Int        `json:"pairCount"`
	Timestamp       uint64          `json:"timestamp"`
}

func (*MetricDayData) Kind() string       { return KindMetricDayData }
func (d *MetricDayData) EntityID() string { return d.ID }
