package fundamental

// piotroskiFScore computes the nine-point Piotroski score from the two most
// recent annual statements (index 0 is the latest year). Returns ok=false
// when a second year is missing, which callers must treat as "no data"
// rather than a zero score.
func piotroskiFScore(income []incomeRow, balance []balanceRow, cashflow []cashflowRow) (int, bool) {
	if len(income) < 2 || len(balance) < 2 || len(cashflow) < 2 {
		return 0, false
	}
	cur, prev := 0, 1
	if balance[cur].TotalAssets <= 0 || balance[prev].TotalAssets <= 0 {
		return 0, false
	}

	score := 0

	// Profitability.
	roaCur := income[cur].NetIncome / balance[cur].TotalAssets
	roaPrev := income[prev].NetIncome / balance[prev].TotalAssets
	if roaCur > 0 {
		score++
	}
	if cashflow[cur].OperatingCashFlow > 0 {
		score++
	}
	if roaCur > roaPrev {
		score++
	}
	if cashflow[cur].OperatingCashFlow > income[cur].NetIncome {
		score++
	}

	// Leverage and liquidity.
	if balance[cur].LongTermDebt/balance[cur].TotalAssets < balance[prev].LongTermDebt/balance[prev].TotalAssets {
		score++
	}
	if balance[cur].CurrentLiabilities > 0 && balance[prev].CurrentLiabilities > 0 {
		crCur := balance[cur].CurrentAssets / balance[cur].CurrentLiabilities
		crPrev := balance[prev].CurrentAssets / balance[prev].CurrentLiabilities
		if crCur > crPrev {
			score++
		}
	}
	if income[cur].SharesOut > 0 && income[cur].SharesOut <= income[prev].SharesOut {
		score++
	}

	// Operating efficiency.
	if income[cur].Revenue > 0 && income[prev].Revenue > 0 {
		gmCur := income[cur].GrossProfit / income[cur].Revenue
		gmPrev := income[prev].GrossProfit / income[prev].Revenue
		if gmCur > gmPrev {
			score++
		}
		if income[cur].Revenue/balance[cur].TotalAssets > income[prev].Revenue/balance[prev].TotalAssets {
			score++
		}
	}

	return score, true
}
