package domain

import "github.com/shopspring/decimal"

// Deposit records a single deposit, keyed by transaction hash.
type Deposit struct {
	ID        string          `json:"id"`
	Vault     string          `json:"vault"`
	User      string          `json:"user"`
	Amount    decimal.Decimal `json:"amount"`
	Staked    decimal.Decimal `json:"staked"`
	Value     decimal.Decimal `json:"value"`
	Timestamp uint64          `json:"timestamp"`
}

func (*Deposit) Kind() string       { return KindDeposit }
func (d *Deposit) EntityID() string { return d.ID }

// Withdraw records a single withdrawal, keyed by transaction hash.
// Early is set for withdrawals made through the early-withdraw contract.
type Withdraw struct {
	ID        string          `json:"id"`
	Vault     string          `json:"vault"`
	User      string          `json:"user"`
	Amount    decimal.Decimal `json:"amount"`
	Value     decimal.Decimal `json:"value"`
	Early     bool            `json:"early"`
	Timestamp uint64          `json:"timestamp"`
}

func (*Withdraw) Kind() string       { return KindWithdraw }
func (w *Withdraw) EntityID() string { return w.ID }
