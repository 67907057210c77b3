package domain

import "github.com/shopspring/decimal"

// VaultGroup collects vaults that share a name, keyed by that name.
type VaultGroup struct {
	ID        string          `json:"id"`
	Vaults    []string        `json:"vaults"`
	TVL       decimal.Decimal `json:"tvl"`
	TVLUSD    decimal.Decimal `json:"tvlUSD"`
	Volume    decimal.Decimal `json:"volume"`
	VolumeUSD decimal.Decimal `json:"volumeUSD"`
	Timestamp uint64          `json:"timestamp"`
}

func (*VaultGroup) Kind() string       { return KindVaultGroup }
func (g *VaultGroup) EntityID() string { return g.ID }

// VaultGroupDayData is the last VaultGroup state written within a UTC day.
type VaultGroupDayData struct {
	ID         string          `json:"id"`
	VaultGroup string          `json:"vaultGroup"`
	TVL        decimal.Decimal `json:"tvl"`
	TVLUSD     decimal.Decimal `json:"tvlUSD"`
	Volume     decimal.Decimal `json:"volume"`
	VolumeUSD  decimal.Decimal `json:"volumeUSD"`
	Timestamp  uint64          `json:"timestamp"`
}

func (*VaultGroupDayData) Kind() string       { return KindVaultGroupDayData }
func (d *VaultGroupDayData) EntityID() string { return d.ID }

// VaultGroupHourData is the last VaultGroup state written within a UTC hour.
type VaultGroupHourData struct {
	ID         string          `json:"id"`
	VaultGroup string          `json:"vaultGroup"`
	TVL        decimal.Decimal `json:"tvl"`
	TVLUSD     decimal.Decimal `json:"tvlUSD"`
	Volume     decimal.Decimal `json:"volume"`
	VolumeUSD  decimal.Decimal `json:"volumeUSD"`
	Timestamp  uint64          `json:"timestamp"`
}

func (*VaultGroupHourData) Kind() string       { return KindVaultGroupHourData }
func (d *VaultGroupHourData) EntityID() string { return d.ID }
