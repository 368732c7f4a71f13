// Package ledger maintains the cash/holdings ledger that is the system's
// record of position state. All mutations go through Manager, which
// serializes read-modify-write sequences so concurrent fill notifications
// for the same ticker cannot interleave.
package ledger

import (
	"errors"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/fuggle07/paper-trader/internal/logger"
	"github.com/fuggle07/paper-trader/internal/storage"
)

// CashAsset is the single row carrying the unified cash pool.
const CashAsset = "USD"

// ErrNotSeeded is returned when a ticker has never been seeded. Callers must
// seed first; real capital is never defaulted silently.
var ErrNotSeeded = errors.New("ledger: ticker not seeded")

type Manager struct {
	repo *storage.Repository
	log  *logger.Logger
	mu   sync.Mutex
}

// State is the per-ticker view: holdings and cost basis from the ticker row,
// cash from the shared pool.
type State struct {
	Holdings    decimal.Decimal
	CashBalance decimal.Decimal
	AvgPrice    decimal.Decimal
}

// Truth is the brokerage's account state used by Reconcile.
type Truth struct {
	Cash      decimal.Decimal
	Positions []TruthPosition
}

type TruthPosition struct {
	Ticker        string
	Qty           decimal.Decimal
	AvgEntryPrice decimal.Decimal
}

func NewManager(repo *storage.Repository, log *logger.Logger) *Manager {
	return &Manager{repo: repo, log: log}
}

func (m *Manager) GetState(ticker string) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getStateLocked(ticker)
}

func (m *Manager) getStateLocked(ticker string) (State, error) {
	entry, err := m.repo.GetLedgerEntry(ticker)
	if storage.IsNotFound(err) {
		return State{}, fmt.Errorf("%w: %s", ErrNotSeeded, ticker)
	}
	if err != nil {
		return State{}, fmt.Errorf("read ledger row %s: %w", ticker, err)
	}

	cash, err := m.repo.GetLedgerEntry(CashAsset)
	if storage.IsNotFound(err) {
		return State{}, fmt.Errorf("%w: %s", ErrNotSeeded, CashAsset)
	}
	if err != nil {
		return State{}, fmt.Errorf("read cash row: %w", err)
	}

	return State{
		Holdings:    entry.Holdings,
		CashBalance: cash.CashBalance,
		AvgPrice:    entry.AvgPrice,
	}, nil
}

// EnsureSeeded inserts a zero-holdings row for ticker and, if the cash pool
// does not exist yet, a USD row funded with defaultCash. Idempotent.
func (m *Manager) EnsureSeeded(ticker string, defaultCash decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := m.repo.GetLedgerEntry(CashAsset); storage.IsNotFound(err) {
		err = m.repo.CreateLedgerEntry(&storage.LedgerEntry{
			AssetName:   CashAsset,
			Holdings:    decimal.Zero,
			CashBalance: defaultCash,
			AvgPrice:    decimal.Zero,
		})
		if err != nil {
			return fmt.Errorf("seed cash pool: %w", err)
		}
		m.log.Info("ledger cash pool seeded", "cash", defaultCash.StringFixed(2))
	} else if err != nil {
		return fmt.Errorf("read cash row: %w", err)
	}

	if _, err := m.repo.GetLedgerEntry(ticker); storage.IsNotFound(err) {
		err = m.repo.CreateLedgerEntry(&storage.LedgerEntry{
			AssetName:   ticker,
			Holdings:    decimal.Zero,
			CashBalance: decimal.Zero,
			AvgPrice:    decimal.Zero,
		})
		if err != nil {
			return fmt.Errorf("seed ledger row %s: %w", ticker, err)
		}
		m.log.Info("ledger row seeded", "ticker", ticker)
	} else if err != nil {
		return fmt.Errorf("read ledger row %s: %w", ticker, err)
	}

	return nil
}

// UpdateLedger applies cash and holdings deltas for a fill. On BUY the cost
// basis becomes the weighted average of the old position and the new shares;
// on SELL it is unchanged. avg_price is forced to zero when the position
// closes. A storage failure here means the recorded ledger has drifted from
// reality, so it is surfaced to the caller rather than retried.
func (m *Manager) UpdateLedger(ticker string, cashDelta, holdingsDelta, fillPrice decimal.Decimal, action string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, err := m.repo.GetLedgerEntry(ticker)
	if storage.IsNotFound(err) {
		return fmt.Errorf("%w: %s", ErrNotSeeded, ticker)
	}
	if err != nil {
		return fmt.Errorf("read ledger row %s: %w", ticker, err)
	}

	cash, err := m.repo.GetLedgerEntry(CashAsset)
	if storage.IsNotFound(err) {
		return fmt.Errorf("%w: %s", ErrNotSeeded, CashAsset)
	}
	if err != nil {
		return fmt.Errorf("read cash row: %w", err)
	}

	newHoldings := entry.Holdings.Add(holdingsDelta)
	if newHoldings.IsNegative() {
		return fmt.Errorf("ledger %s: holdings would go negative (%s + %s)",
			ticker, entry.Holdings, holdingsDelta)
	}

	newAvg := entry.AvgPrice
	if action == "BUY" && holdingsDelta.IsPositive() && fillPrice.IsPositive() && newHoldings.IsPositive() {
		oldCost := entry.Holdings.Mul(entry.AvgPrice)
		addedCost := holdingsDelta.Mul(fillPrice)
		newAvg = oldCost.Add(addedCost).Div(newHoldings)
	}
	if newHoldings.IsZero() {
		newAvg = decimal.Zero
	}

	entry.Holdings = newHoldings
	entry.AvgPrice = newAvg
	cash.CashBalance = cash.CashBalance.Add(cashDelta)

	err = m.repo.WithTx(func(tx *storage.Repository) error {
		if err := tx.SaveLedgerEntry(entry); err != nil {
			return err
		}
		return tx.SaveLedgerEntry(cash)
	})
	if err != nil {
		m.log.Critical("ledger update failed, recorded state is now inconsistent",
			"ticker", ticker, "error", err)
		return fmt.Errorf("persist ledger update %s: %w", ticker, err)
	}

	m.log.Info("ledger updated",
		"ticker", ticker,
		"holdings", newHoldings.String(),
		"avg_price", newAvg.StringFixed(2),
		"cash", cash.CashBalance.StringFixed(2))
	return nil
}

// Reconcile overwrites the ledger with the brokerage's account state. Tickers
// known locally but absent from truth are flattened to zero.
func (m *Manager) Reconcile(truth Truth) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	keep := make([]string, 0, len(truth.Positions)+1)
	keep = append(keep, CashAsset)
	for _, pos := range truth.Positions {
		keep = append(keep, pos.Ticker)
	}

	err := m.repo.WithTx(func(tx *storage.Repository) error {
		if err := tx.ZeroHoldingsExcept(keep); err != nil {
			return err
		}
		if err := tx.UpsertLedgerEntry(&storage.LedgerEntry{
			AssetName:   CashAsset,
			Holdings:    decimal.Zero,
			CashBalance: truth.Cash,
			AvgPrice:    decimal.Zero,
		}); err != nil {
			return err
		}
		for _, pos := range truth.Positions {
			if err := tx.UpsertLedgerEntry(&storage.LedgerEntry{
				AssetName:   pos.Ticker,
				Holdings:    pos.Qty,
				CashBalance: decimal.Zero,
				AvgPrice:    pos.AvgEntryPrice,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		m.log.Critical("ledger reconciliation failed", "error", err)
		return fmt.Errorf("reconcile ledger: %w", err)
	}

	m.log.Info("ledger reconciled",
		"cash", truth.Cash.StringFixed(2), "positions", len(truth.Positions))
	return nil
}

// TotalEquity sums cash plus the market value of every position. Tickers
// without a supplied price contribute zero, which understates rather than
// overstates equity.
func (m *Manager) TotalEquity(prices map[string]decimal.Decimal) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entries, err := m.repo.ListLedgerEntries()
	if err != nil {
		return decimal.Zero, fmt.Errorf("list ledger rows: %w", err)
	}

	total := decimal.Zero
	for _, entry := range entries {
		total = total.Add(entry.CashBalance)
		if entry.AssetName == CashAsset || entry.Holdings.IsZero() {
			continue
		}
		if price, ok := prices[entry.AssetName]; ok {
			total = total.Add(entry.Holdings.Mul(price))
		}
	}
	return total, nil
}
