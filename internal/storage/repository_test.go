package storage

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	db, err := NewDatabase(filepath.Join(t.TempDir(), "storage_test.db"))
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	return NewRepository(db)
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestLedgerEntryRoundTrip(t *testing.T) {
	repo := newTestRepo(t)

	if _, err := repo.GetLedgerEntry("AAPL"); !IsNotFound(err) {
		t.Fatalf("expected not-found, got %v", err)
	}

	err := repo.CreateLedgerEntry(&LedgerEntry{
		AssetName: "AAPL", Holdings: dec("5"), CashBalance: dec("0"), AvgPrice: dec("101.50"),
	})
	if err != nil {
		t.Fatal(err)
	}

	entry, err := repo.GetLedgerEntry("AAPL")
	if err != nil {
		t.Fatal(err)
	}
	if !entry.Holdings.Equal(dec("5")) || !entry.AvgPrice.Equal(dec("101.50")) {
		t.Fatalf("round trip lost precision: %s @ %s", entry.Holdings, entry.AvgPrice)
	}
	if entry.LastUpdated.IsZero() {
		t.Fatal("LastUpdated not stamped")
	}
}

func TestZeroHoldingsExcept(t *testing.T) {
	repo := newTestRepo(t)
	for _, name := range []string{"USD", "AAPL", "MSFT"} {
		err := repo.CreateLedgerEntry(&LedgerEntry{
			AssetName: name, Holdings: dec("3"), AvgPrice: dec("10"), CashBalance: dec("100"),
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	if err := repo.ZeroHoldingsExcept([]string{"USD", "AAPL"}); err != nil {
		t.Fatal(err)
	}

	msft, err := repo.GetLedgerEntry("MSFT")
	if err != nil {
		t.Fatal(err)
	}
	if !msft.Holdings.IsZero() || !msft.AvgPrice.IsZero() {
		t.Fatalf("MSFT not flattened: %s @ %s", msft.Holdings, msft.AvgPrice)
	}
	if !msft.CashBalance.Equal(dec("100")) {
		t.Fatal("flattening must not touch cash balances")
	}

	aapl, _ := repo.GetLedgerEntry("AAPL")
	if !aapl.Holdings.Equal(dec("3")) {
		t.Fatal("kept ticker was flattened")
	}
}

func TestConfirmExecution(t *testing.T) {
	repo := newTestRepo(t)
	err := repo.SaveExecution(&ExecutionRecord{
		Ticker: "AAPL", Action: "BUY",
		RequestedPrice: dec("100"), FillPrice: dec("100.10"),
		Quantity: dec("10"), Commission: dec("1"),
		BrokerOrderID: "ord-1", Status: StatusFilled, Reason: "BULLISH_CROSSOVER",
	})
	if err != nil {
		t.Fatal(err)
	}

	n, err := repo.ConfirmExecution("ord-1", dec("100.05"), dec("10"))
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("confirmed %d rows, want 1", n)
	}

	recs, err := repo.RecentExecutions(10)
	if err != nil || len(recs) != 1 {
		t.Fatalf("executions = %d (%v)", len(recs), err)
	}
	rec := recs[0]
	if rec.Status != StatusFilledConfirmed {
		t.Fatalf("status = %s, want FILLED_CONFIRMED", rec.Status)
	}
	if !rec.FillPrice.Equal(dec("100.05")) {
		t.Fatalf("fill price = %s, want the brokerage's 100.05", rec.FillPrice)
	}

	// Confirming again is a no-op, not a duplicate.
	n, err = repo.ConfirmExecution("ord-1", dec("100.05"), dec("10"))
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Fatalf("re-confirmation touched %d rows, want 0", n)
	}

	// Unknown order IDs confirm nothing.
	n, err = repo.ConfirmExecution("ghost", dec("1"), dec("1"))
	if err != nil || n != 0 {
		t.Fatalf("ghost confirmation: n=%d err=%v", n, err)
	}
}

func TestFundamentalCachePerDay(t *testing.T) {
	repo := newTestRepo(t)

	if _, err := repo.GetFundamentalCache("AAPL", "2026-08-24"); !IsNotFound(err) {
		t.Fatalf("expected not-found, got %v", err)
	}

	err := repo.SaveFundamentalCache(&FundamentalCache{
		Ticker: "AAPL", Date: "2026-08-24", Payload: `{"is_healthy":true}`,
	})
	if err != nil {
		t.Fatal(err)
	}

	cached, err := repo.GetFundamentalCache("AAPL", "2026-08-24")
	if err != nil {
		t.Fatal(err)
	}
	if cached.Payload != `{"is_healthy":true}` {
		t.Fatalf("payload = %s", cached.Payload)
	}

	// A new day misses the cache.
	if _, err := repo.GetFundamentalCache("AAPL", "2026-08-25"); !IsNotFound(err) {
		t.Fatalf("expected not-found for the next day, got %v", err)
	}
}

func TestGetOrComputeReadThrough(t *testing.T) {
	repo := newTestRepo(t)

	calls := 0
	compute := func() (string, error) {
		calls++
		return `{"f_score":7}`, nil
	}

	// Miss: compute runs and the result is stored for the day.
	payload, err := repo.GetOrCompute("AAPL", "2026-08-24", compute)
	if err != nil {
		t.Fatal(err)
	}
	if payload != `{"f_score":7}` || calls != 1 {
		t.Fatalf("payload = %s, calls = %d", payload, calls)
	}

	// Hit: served from the cache without recomputing.
	payload, err = repo.GetOrCompute("AAPL", "2026-08-24", compute)
	if err != nil {
		t.Fatal(err)
	}
	if payload != `{"f_score":7}` || calls != 1 {
		t.Fatalf("cache hit recomputed: payload = %s, calls = %d", payload, calls)
	}

	// A new day misses again.
	if _, err := repo.GetOrCompute("AAPL", "2026-08-25", compute); err != nil {
		t.Fatal(err)
	}
	if calls != 2 {
		t.Fatalf("calls = %d, want 2 after the date rolled", calls)
	}
}

func TestGetOrComputeDoesNotCacheErrors(t *testing.T) {
	repo := newTestRepo(t)

	calls := 0
	failing := func() (string, error) {
		calls++
		return "", errors.New("upstream down")
	}

	if _, err := repo.GetOrCompute("MSFT", "2026-08-24", failing); err == nil {
		t.Fatal("expected the compute error to surface")
	}

	// The failure was not stored; the next call computes again.
	payload, err := repo.GetOrCompute("MSFT", "2026-08-24", func() (string, error) {
		calls++
		return "ok", nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if payload != "ok" || calls != 2 {
		t.Fatalf("payload = %s, calls = %d", payload, calls)
	}
}

func TestLatestSnapshot(t *testing.T) {
	repo := newTestRepo(t)

	if _, err := repo.LatestSnapshot(); !IsNotFound(err) {
		t.Fatalf("expected not-found on empty table, got %v", err)
	}

	for _, equity := range []string{"1000", "1100", "1050"} {
		err := repo.SavePerformanceSnapshot(&PerformanceSnapshot{
			Equity: dec(equity), Cash: dec("500"), PositionsCount: 2,
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	snap, err := repo.LatestSnapshot()
	if err != nil {
		t.Fatal(err)
	}
	if !snap.Equity.Equal(dec("1050")) {
		t.Fatalf("latest equity = %s, want 1050", snap.Equity)
	}
}
