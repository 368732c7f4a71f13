package storage

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx runs fn against a transactional repository.
func (r *Repository) WithTx(fn func(*Repository) error) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return fn(&Repository{db: tx})
	})
}

// Ledger

func (r *Repository) GetLedgerEntry(asset string) (*LedgerEntry, error) {
	var entry LedgerEntry
	err := r.db.Where("asset_name = ?", asset).First(&entry).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *Repository) CreateLedgerEntry(entry *LedgerEntry) error {
	entry.LastUpdated = time.Now().UTC()
	return r.db.Create(entry).Error
}

func (r *Repository) SaveLedgerEntry(entry *LedgerEntry) error {
	entry.LastUpdated = time.Now().UTC()
	return r.db.Save(entry).Error
}

func (r *Repository) ListLedgerEntries() ([]LedgerEntry, error) {
	var entries []LedgerEntry
	err := r.db.Order("asset_name").Find(&entries).Error
	return entries, err
}

// ZeroHoldingsExcept zeroes holdings and avg_price for every asset row not
// named in keep. The reconciliation pass uses it to flatten positions the
// brokerage no longer reports.
func (r *Repository) ZeroHoldingsExcept(keep []string) error {
	return r.db.Model(&LedgerEntry{}).
		Where("asset_name NOT IN ?", keep).
		Updates(map[string]interface{}{
			"holdings":     decimal.Zero,
			"avg_price":    decimal.Zero,
			"last_updated": time.Now().UTC(),
		}).Error
}

func (r *Repository) UpsertLedgerEntry(entry *LedgerEntry) error {
	existing, err := r.GetLedgerEntry(entry.AssetName)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return r.CreateLedgerEntry(entry)
	}
	if err != nil {
		return err
	}
	existing.Holdings = entry.Holdings
	existing.CashBalance = entry.CashBalance
	existing.AvgPrice = entry.AvgPrice
	return r.SaveLedgerEntry(existing)
}

// Executions

func (r *Repository) SaveExecution(rec *ExecutionRecord) error {
	return r.db.Create(rec).Error
}

// ConfirmExecution upgrades a provisional FILLED record with the brokerage's
// true fill price and quantity. Commission is zeroed: the paper broker
// charges none, and the simulated fee only applies to ledger deltas.
func (r *Repository) ConfirmExecution(orderID string, fillPrice, qty decimal.Decimal) (int64, error) {
	res := r.db.Model(&ExecutionRecord{}).
		Where("broker_order_id = ? AND status <> ?", orderID, StatusFilledConfirmed).
		Updates(map[string]interface{}{
			"status":     StatusFilledConfirmed,
			"fill_price": fillPrice,
			"quantity":   qty,
			"commission": decimal.Zero,
		})
	return res.RowsAffected, res.Error
}

func (r *Repository) RecentExecutions(limit int) ([]ExecutionRecord, error) {
	var recs []ExecutionRecord
	err := r.db.Order("created_at DESC").Limit(limit).Find(&recs).Error
	return recs, err
}

// Decision logs

func (r *Repository) SaveDecision(log *DecisionLog) error {
	return r.db.Create(log).Error
}

// Fundamental cache

func (r *Repository) GetFundamentalCache(ticker, date string) (*FundamentalCache, error) {
	var entry FundamentalCache
	err := r.db.Where("ticker = ? AND date = ?", ticker, date).First(&entry).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *Repository) SaveFundamentalCache(entry *FundamentalCache) error {
	return r.db.Create(entry).Error
}

// GetOrCompute is a read-through over the day-keyed fundamental cache: it
// returns the payload stored under (ticker, date), otherwise calls compute
// and persists the result for the rest of the day. Compute errors are
// returned without caching; cache read and write failures degrade to plain
// computation so a broken cache never blocks a cycle.
func (r *Repository) GetOrCompute(ticker, date string, compute func() (string, error)) (string, error) {
	if cached, err := r.GetFundamentalCache(ticker, date); err == nil {
		return cached.Payload, nil
	}

	payload, err := compute()
	if err != nil {
		return "", err
	}
	_ = r.SaveFundamentalCache(&FundamentalCache{Ticker: ticker, Date: date, Payload: payload})
	return payload, nil
}

// Performance snapshots

func (r *Repository) SavePerformanceSnapshot(snapshot *PerformanceSnapshot) error {
	return r.db.Create(snapshot).Error
}

func (r *Repository) LatestSnapshot() (*PerformanceSnapshot, error) {
	var snapshot PerformanceSnapshot
	err := r.db.Order("created_at DESC").First(&snapshot).Error
	if err != nil {
		return nil, err
	}
	return &snapshot, nil
}

// Sentiment history

func (r *Repository) SaveSentimentRecord(rec *SentimentRecord) error {
	return r.db.Create(rec).Error
}

// IsNotFound reports whether err is the store's missing-row error.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
