package domain

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// Vault is a time-locked staking vault, keyed by address.
type Vault struct {
	ID                        string          `json:"id"`
	Name                      string          `json:"name"`
	Symbol                    string          `json:"symbol"`
	TempleToken               string          `json:"templeToken"`
	PeriodDuration            *big.Int        `json:"periodDuration"`
	EnterExitWindowDuration   *big.Int        `json:"enterExitWindowDuration"`
	AmountPerShare            decimal.Decimal `json:"amountPerShare"`
	ShareBoostFactor          decimal.Decimal `json:"shareBoostFactor"`
	JoiningFee                string          `json:"joiningFee"`
	FirstPeriodStartTimestamp *big.Int        `json:"firstPeriodStartTimestamp"`
	TotalShares               decimal.Decimal `json:"totalShares"`
	Users                     []string        `json:"users"`
	TVL                       decimal.Decimal `json:"tvl"`
	TVLUSD                    decimal.Decimal `json:"tvlUSD"`
	UserCount                 *big.Int        `json:"userCount"`
	VaultGroup                string          `json:"vaultGroup"`
	Timestamp                 uint64          `json:"timestamp"`
}

func (*Vault) Kind() string       { return KindVault }
func (v *Vault) EntityID() string { return v.ID }

// VaultHourData is the last Vault state written within a UTC hour.
type VaultHourData struct {
	ID        string          `json:"id"`
	Vault     string          `json:"vault"`
	TVL       decimal.Decimal `json:"tvl"`
	TVLUSD    decimal.Decimal `json:"tvlUSD"`
	UserCount *big.Int        `json:"userCount"`
	Timestamp uint64          `json:"timestamp"`
}

func (*VaultHourData) Kind() string       { return KindVaultHourData }
func (d *VaultHourData) EntityID() string { return d.ID }
