package fundamental

import "testing"

// strongYears is a company improving on all nine Piotroski checks.
func strongYears() ([]incomeRow, []balanceRow, []cashflowRow) {
	income := []incomeRow{
		{Revenue: 1200, GrossProfit: 600, NetIncome: 150, SharesOut: 100},
		{Revenue: 1000, GrossProfit: 450, NetIncome: 80, SharesOut: 100},
	}
	balance := []balanceRow{
		{TotalAssets: 1000, CurrentAssets: 500, CurrentLiabilities: 200, LongTermDebt: 100},
		{TotalAssets: 950, CurrentAssets: 400, CurrentLiabilities: 250, LongTermDebt: 200},
	}
	cashflow := []cashflowRow{
		{OperatingCashFlow: 200},
		{OperatingCashFlow: 100},
	}
	return income, balance, cashflow
}

func TestFScorePerfectCompany(t *testing.T) {
	score, ok := piotroskiFScore(strongYears())
	if !ok {
		t.Fatal("two full years of data should be scorable")
	}
	if score != 9 {
		t.Fatalf("score = %d, want 9", score)
	}
}

func TestFScoreDeterioratingCompany(t *testing.T) {
	income, balance, cashflow := strongYears()

	income[0].NetIncome = -50            // negative ROA, worse than last year
	income[0].GrossProfit = 300          // margin collapse
	income[0].Revenue = 900              // turnover down
	income[0].SharesOut = 120            // dilution
	balance[0].LongTermDebt = 400        // leverage up
	balance[0].CurrentAssets = 150       // current ratio down
	cashflow[0].OperatingCashFlow = -100 // burning cash, and below net income

	score, ok := piotroskiFScore(income, balance, cashflow)
	if !ok {
		t.Fatal("expected a scorable result")
	}
	if score != 0 {
		t.Fatalf("score = %d, want 0", score)
	}
}

func TestFScoreNeedsTwoYears(t *testing.T) {
	income, balance, cashflow := strongYears()
	if _, ok := piotroskiFScore(income[:1], balance, cashflow); ok {
		t.Fatal("one year of income data must not be scorable")
	}
	if _, ok := piotroskiFScore(income, balance, cashflow[:1]); ok {
		t.Fatal("one year of cash flow data must not be scorable")
	}
}

func TestFScoreRejectsDegenerateBalanceSheet(t *testing.T) {
	income, balance, cashflow := strongYears()
	balance[0].TotalAssets = 0
	if _, ok := piotroskiFScore(income, balance, cashflow); ok {
		t.Fatal("zero total assets must not be scorable")
	}
}

func TestDeepHealthThreshold(t *testing.T) {
	cases := []struct {
		fscore  int
		healthy bool
	}{
		{0, false},
		{4, false}, // mixed signals still fail the screen
		{5, true},
		{9, true},
	}
	for _, tc := range cases {
		if got := deepHealthy(tc.fscore); got != tc.healthy {
			t.Fatalf("deepHealthy(%d) = %v, want %v", tc.fscore, got, tc.healthy)
		}
	}
}

func TestQualityScoreBounds(t *testing.T) {
	nine := 9
	high := qualityScore(&ratiosTTM{
		ReturnOnEquity:  0.30,
		GrossMargin:     0.55,
		NetProfitMargin: 0.20,
		DebtEquity:      0.5,
	}, &nine)
	if high != 90 {
		t.Fatalf("high quality score = %d, want 90", high)
	}

	low := qualityScore(&ratiosTTM{DebtEquity: 3.0}, nil)
	if low != 30 {
		t.Fatalf("leveraged laggard score = %d, want 30", low)
	}
}
