package broker

import "github.com/shopspring/decimal"

var (
	minCommission      = decimal.NewFromFloat(1.00)
	perShareCommission = decimal.NewFromFloat(0.005)
)

// Commission models an IBKR-style fee: half a cent per share with a one
// dollar minimum. Alpaca itself charges nothing; the fee is simulated so the
// paper ledger does not overstate performance.
func Commission(qty decimal.Decimal) decimal.Decimal {
	fee := qty.Abs().Mul(perShareCommission)
	if fee.LessThan(minCommission) {
		return minCommission
	}
	return fee
}
