// Package contracts holds the ABI bindings of the indexed protocol contracts:
// event decoders and the static reads handlers perform.
package contracts

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const opsManagerJSON = `[
	{"type":"event","name":"CreateVaultInstance","anonymous":false,"inputs":[
		{"name":"vault","type":"address","indexed":false}]},
	{"type":"event","name":"CreateExposure","anonymous":false,"inputs":[
		{"name":"exposure","type":"address","indexed":false},
		{"name":"primaryRevenue","type":"address","indexed":false}]}
]`

const vaultJSON = `[
	{"type":"event","name":"Deposit","anonymous":false,"inputs":[
		{"name":"account","type":"address","indexed":false},
		{"name":"amount","type":"uint256","indexed":false},
		{"name":"amountStaked","type":"uint256","indexed":false}]},
	{"type":"event","name":"Withdraw","anonymous":false,"inputs":[
		{"name":"account","type":"address","indexed":false},
		{"name":"amount","type":"uint256","indexed":false}]},
	{"type":"event","name":"Transfer","anonymous":false,"inputs":[
		{"name":"from","type":"address","indexed":true},
		{"name":"to","type":"address","indexed":true},
		{"name":"value","type":"uint256","indexed":false}]},
	{"type":"function","name":"name","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]},
	{"type":"function","name":"symbol","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]},
	{"type":"function","name":"templeToken","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
	{"type":"function","name":"periodDuration","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"enterExitWindowDuration","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"joiningFee","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
	{"type":"function","name":"firstPeriodStartTimestamp","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"totalShares","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"shareBoostFactor","stateMutability":"view","inputs":[],"outputs":[
		{"name":"p","type":"uint256"},{"name":"q","type":"uint256"}]},
	{"type":"function","name":"amountPerShare","stateMutability":"view","inputs":[],"outputs":[
		{"name":"p","type":"uint256"},{"name":"q","type":"uint256"}]}
]`

const exposureJSON = `[
	{"type":"function","name":"name","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]},
	{"type":"function","name":"symbol","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]},
	{"type":"function","name":"revalToken","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
	{"type":"function","name":"reval","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"liquidator","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]}
]`

const farmingRevenueJSON = `[
	{"type":"function","name":"totalShares","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"lifetimeAccRevenueScaledByShare","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]}
]`

const priceFeedJSON = `[
	{"type":"event","name":"AnswerUpdated","anonymous":false,"inputs":[
		{"name":"current","type":"int256","indexed":true},
		{"name":"roundId","type":"uint256","indexed":true},
		{"name":"updatedAt","type":"uint256","indexed":false}]},
	{"type":"function","name":"latestAnswer","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"int256"}]},
	{"type":"function","name":"decimals","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint8"}]}
]`

const earlyWithdrawJSON = `[
	{"type":"event","name":"EarlyWithdraw","anonymous":false,"inputs":[
		{"name":"addr","type":"address","indexed":false},
		{"name":"amount","type":"uint256","indexed":false}]},
	{"type":"function","name":"withdraw","stateMutability":"nonpayable","inputs":[
		{"name":"vault","type":"address"},
		{"name":"amount","type":"uint256"}],"outputs":[]}
]`

const pairJSON = `[
	{"type":"event","name":"Sync","anonymous":false,"inputs":[
		{"name":"reserve0","type":"uint112","indexed":false},
		{"name":"reserve1","type":"uint112","indexed":false}]}
]`

// Parsed ABIs.
var (
	OpsManagerABI     = mustParse(opsManagerJSON)
	VaultABI          = mustParse(vaultJSON)
	ExposureABI       = mustParse(exposureJSON)
	FarmingRevenueABI = mustParse(farmingRevenueJSON)
	PriceFeedABI      = mustParse(priceFeedJSON)
	EarlyWithdrawABI  = mustParse(earlyWithdrawJSON)
	PairABI           = mustParse(pairJSON)
)

// Event topics.
var (
	CreateVaultInstanceEvent = OpsManagerABI.Events["CreateVaultInstance"].ID
	CreateExposureEvent      = OpsManagerABI.Events["CreateExposure"].ID
	DepositEvent             = VaultABI.Events["Deposit"].ID
	WithdrawEvent            = VaultABI.Events["Withdraw"].ID
	TransferEvent            = VaultABI.Events["Transfer"].ID
	AnswerUpdatedEvent       = PriceFeedABI.Events["AnswerUpdated"].ID
	EarlyWithdrawEvent       = EarlyWithdrawABI.Events["EarlyWithdraw"].ID
	SyncEvent                = PairABI.Events["Sync"].ID
)

func mustParse(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic("contracts: invalid abi: " + err.Error())
	}
	return parsed
}
