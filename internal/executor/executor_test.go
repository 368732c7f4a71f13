package executor

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/shopspring/decimal"

	"github.com/fuggle07/paper-trader/internal/config"
	"github.com/fuggle07/paper-trader/internal/ledger"
	"github.com/fuggle07/paper-trader/internal/logger"
	"github.com/fuggle07/paper-trader/internal/signal"
	"github.com/fuggle07/paper-trader/internal/storage"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

type bracketCall struct {
	symbol     string
	qty        decimal.Decimal
	entry      decimal.Decimal
	stop       decimal.Decimal
	takeProfit decimal.Decimal
}

type sellCall struct {
	symbol     string
	qty, limit decimal.Decimal
}

type fakePlacer struct {
	brackets []bracketCall
	sells    []sellCall
	fail     error
}

func (f *fakePlacer) BracketOrder(symbol string, qty, entryLimit, stopPrice, takeProfit decimal.Decimal) (*alpaca.Order, error) {
	if f.fail != nil {
		return nil, f.fail
	}
	f.brackets = append(f.brackets, bracketCall{symbol, qty, entryLimit, stopPrice, takeProfit})
	return &alpaca.Order{ID: "order-1"}, nil
}

func (f *fakePlacer) LimitSell(symbol string, qty, limitPrice decimal.Decimal) (*alpaca.Order, error) {
	if f.fail != nil {
		return nil, f.fail
	}
	f.sells = append(f.sells, sellCall{symbol, qty, limitPrice})
	return &alpaca.Order{ID: "order-2"}, nil
}

type fakeLedger struct {
	state ledger.State
}

func (f *fakeLedger) GetState(string) (ledger.State, error) { return f.state, nil }

func newTestExecutor(t *testing.T, placer *fakePlacer, state ledger.State) (*Executor, *storage.Repository) {
	t.Helper()
	db, err := storage.NewDatabase(filepath.Join(t.TempDir(), "executor_test.db"))
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	repo := storage.NewRepository(db)

	cfg := &config.Config{Trading: config.TradingConfig{
		EntryLimitPct:        0.001,
		BracketStopPct:       0.12,
		BracketTakeProfitPct: 0.10,
		SellLimitPct:         0.005,
	}}
	return New(cfg, placer, &fakeLedger{state: state}, repo, nil, logger.New("error")), repo
}

func buyDecision(price string) signal.Decision {
	return signal.Decision{
		Ticker: "AAPL",
		Action: signal.ActionBuy,
		Price:  dec(price),
		Reason: signal.ReasonBullishCrossover,
	}
}

func TestHoldPassesThrough(t *testing.T) {
	placer := &fakePlacer{}
	e, repo := newTestExecutor(t, placer, ledger.State{CashBalance: dec("1000")})

	out, err := e.Execute(signal.Decision{
		Ticker: "AAPL", Action: signal.ActionHold,
		Reason: signal.ReasonVolatileIgnore, Price: dec("100"),
	})
	if err != nil {
		t.Fatal(err)
	}
	if out.Status != "SKIPPED" {
		t.Fatalf("status = %s, want SKIPPED", out.Status)
	}
	if len(placer.brackets)+len(placer.sells) != 0 {
		t.Fatal("HOLD must not touch the brokerage")
	}

	recs, _ := repo.RecentExecutions(10)
	if len(recs) != 0 {
		t.Fatal("HOLD must not write an execution record")
	}
}

func TestBuySizesToAvailableCash(t *testing.T) {
	placer := &fakePlacer{}
	e, repo := newTestExecutor(t, placer, ledger.State{CashBalance: dec("1000")})

	out, err := e.Execute(buyDecision("10"))
	if err != nil {
		t.Fatal(err)
	}
	if out.Status != storage.StatusFilled {
		t.Fatalf("status = %s (%s), want FILLED", out.Status, out.Detail)
	}
	if len(placer.brackets) != 1 {
		t.Fatalf("bracket calls = %d, want 1", len(placer.brackets))
	}

	call := placer.brackets[0]
	// Entry padded 0.1% above signal price; 1000 / 10.01 floors to 99.
	if !call.entry.Equal(dec("10.01")) {
		t.Fatalf("entry = %s, want 10.01", call.entry)
	}
	if !call.qty.Equal(dec("99")) {
		t.Fatalf("qty = %s, want 99", call.qty)
	}
	if !call.stop.Equal(dec("8.80")) {
		t.Fatalf("stop = %s, want 8.80", call.stop)
	}
	if !call.takeProfit.Equal(dec("11.00")) {
		t.Fatalf("take profit = %s, want 11.00", call.takeProfit)
	}

	recs, err := repo.RecentExecutions(10)
	if err != nil || len(recs) != 1 {
		t.Fatalf("executions = %d (%v), want 1", len(recs), err)
	}
	rec := recs[0]
	if rec.Status != storage.StatusFilled || rec.BrokerOrderID != "order-1" {
		t.Fatalf("record = %s/%s, want FILLED/order-1", rec.Status, rec.BrokerOrderID)
	}
	if rec.Reason != string(signal.ReasonBullishCrossover) {
		t.Fatalf("record reason = %s, want BULLISH_CROSSOVER", rec.Reason)
	}
}

func TestBuyRejectsInvalidPrice(t *testing.T) {
	placer := &fakePlacer{}
	e, repo := newTestExecutor(t, placer, ledger.State{CashBalance: dec("1000")})

	out, err := e.Execute(buyDecision("0"))
	if err != nil {
		t.Fatal(err)
	}
	if out.Status != storage.StatusRejected || out.Reason != RejectInvalidPrice {
		t.Fatalf("got %s/%s, want REJECTED/INVALID_PRICE", out.Status, out.Reason)
	}

	recs, _ := repo.RecentExecutions(10)
	if len(recs) != 1 || recs[0].Reason != RejectInvalidPrice {
		t.Fatal("rejection must be recorded with its code")
	}
}

func TestBuyRejectsZeroQuantity(t *testing.T) {
	placer := &fakePlacer{}
	e, _ := newTestExecutor(t, placer, ledger.State{CashBalance: dec("5")})

	out, err := e.Execute(buyDecision("10"))
	if err != nil {
		t.Fatal(err)
	}
	if out.Reason != RejectZeroQuantity {
		t.Fatalf("reason = %s, want ZERO_QUANTITY", out.Reason)
	}
	if len(placer.brackets) != 0 {
		t.Fatal("rejected order must not reach the brokerage")
	}
}

func TestBuyRejectsWhenCommissionBreaksTheBudget(t *testing.T) {
	placer := &fakePlacer{}
	// Exactly one share of headroom, but the $1 minimum commission kills it.
	e, _ := newTestExecutor(t, placer, ledger.State{CashBalance: dec("20.02")})

	out, err := e.Execute(buyDecision("20"))
	if err != nil {
		t.Fatal(err)
	}
	if out.Reason != RejectInsufficientFunds {
		t.Fatalf("reason = %s, want INSUFFICIENT_FUNDS", out.Reason)
	}
}

func TestSellLiquidatesFullPosition(t *testing.T) {
	placer := &fakePlacer{}
	e, _ := newTestExecutor(t, placer, ledger.State{
		Holdings: dec("10"), CashBalance: dec("0"), AvgPrice: dec("90"),
	})

	out, err := e.Execute(signal.Decision{
		Ticker: "AAPL", Action: signal.ActionSell,
		Price: dec("100"), Reason: signal.ReasonStopLossHit,
	})
	if err != nil {
		t.Fatal(err)
	}
	if out.Status != storage.StatusFilled {
		t.Fatalf("status = %s, want FILLED", out.Status)
	}
	if len(placer.sells) != 1 {
		t.Fatalf("sell calls = %d, want 1", len(placer.sells))
	}
	call := placer.sells[0]
	if !call.qty.Equal(dec("10")) {
		t.Fatalf("qty = %s, want full position of 10", call.qty)
	}
	if !call.limit.Equal(dec("99.50")) {
		t.Fatalf("limit = %s, want 99.50", call.limit)
	}
}

func TestSellRejectsWithoutHoldings(t *testing.T) {
	placer := &fakePlacer{}
	e, _ := newTestExecutor(t, placer, ledger.State{CashBalance: dec("1000")})

	out, err := e.Execute(signal.Decision{
		Ticker: "AAPL", Action: signal.ActionSell,
		Price: dec("100"), Reason: signal.ReasonBearishCrossover,
	})
	if err != nil {
		t.Fatal(err)
	}
	if out.Reason != RejectInsufficientHoldings {
		t.Fatalf("reason = %s, want INSUFFICIENT_HOLDINGS", out.Reason)
	}
}

func TestBrokerageErrorBecomesFailed(t *testing.T) {
	placer := &fakePlacer{fail: errors.New("api down")}
	e, repo := newTestExecutor(t, placer, ledger.State{CashBalance: dec("1000")})

	out, err := e.Execute(buyDecision("10"))
	if err != nil {
		t.Fatal(err)
	}
	if out.Status != storage.StatusFailed {
		t.Fatalf("status = %s, want FAILED", out.Status)
	}

	recs, _ := repo.RecentExecutions(10)
	if len(recs) != 1 || recs[0].Status != storage.StatusFailed {
		t.Fatal("failed submission must be recorded")
	}
}
