package domain

import "github.com/shopspring/decimal"

// SettlementDecimals is the number of decimals of the settlement token.
const SettlementDecimals = 6

// FormatAmount renders an amount in smallest units as a decimal string.
func FormatAmount(amount uint64) string {
	return decimal.NewFromUint64(amount).Shift(-SettlementDecimals).StringFixed(SettlementDecimals)
}
