package domain

import "github.com/shopspring/decimal"

// User is a depositor, keyed by address.
type User struct {
	ID                string          `json:"id"`
	DepositsBalance   decimal.Decimal `json:"depositsBalance"`
	WithdrawsBalance  decimal.Decimal `json:"withdrawsBalance"`
	TotalBalance      decimal.Decimal `json:"totalBalance"`
	VaultUserBalances []string        `json:"vaultUserBalances"`
	Timestamp         uint64          `json:"timestamp"`
}

func (*User) Kind() string       { return KindUser }
func (u *User) EntityID() string { return u.ID }

// UserDayData is the last User state written within a UTC day.
type UserDayData struct {
	ID               string          `json:"id"`
	User             string          `json:"user"`
	DepositsBalance  decimal.Decimal `json:"depositsBalance"`
	WithdrawsBalance decimal.Decimal `json:"withdrawsBalance"`
	TotalBalance     decimal.Decimal `json:"totalBalance"`
	Timestamp        uint64          `json:"timestamp"`
}

func (*UserDayData) Kind() string       { return KindUserDayData }
func (d *UserDayData) EntityID() string { return d.ID }

// VaultUserBalance is one user's position in one vault, keyed "<vault><user>".
type VaultUserBalance struct {
	ID        string          `json:"id"`
	Vault     string          `json:"vault"`
	User      string          `json:"user"`
	Token     string          `json:"token"`
	Staked    decimal.Decimal `json:"staked"`
	Amount    decimal.Decimal `json:"amount"`
	Value     decimal.Decimal `json:"value"`
	Earned    decimal.Decimal `json:"earned"`
	EarnedUSD decimal.Decimal `json:"earnedUSD"`
	Timestamp uint64          `json:"timestamp"`
}

func (*VaultUserBalance) Kind() string       { return KindVaultUserBalance }
func (b *VaultUserBalance) EntityID() string { return b.ID }
