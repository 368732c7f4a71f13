package storage

import (
	"time"

	"github.com/shopspring/decimal"
)

// Execution statuses. FILLED is a provisional marker written at submission
// time; the reconciliation pass upgrades it to FILLED_CONFIRMED once the
// brokerage reports the true fill.
const (
	StatusRejected        = "REJECTED"
	StatusFailed          = "FAILED"
	StatusFilled          = "FILLED"
	StatusFilledConfirmed = "FILLED_CONFIRMED"
)

// LedgerEntry is one row per ticker plus a single "USD" row carrying the
// unified cash pool. Invariant: avg_price is zero whenever holdings is zero.
type LedgerEntry struct {
	ID          uint            `gorm:"primarykey" json:"id"`
	AssetName   string          `gorm:"uniqueIndex;not null" json:"asset_name"`
	Holdings    decimal.Decimal `gorm:"type:numeric;not null" json:"holdings"`
	CashBalance decimal.Decimal `gorm:"type:numeric;not null" json:"cash_balance"`
	AvgPrice    decimal.Decimal `gorm:"type:numeric;not null" json:"avg_price"`
	LastUpdated time.Time       `json:"last_updated"`
}

// ExecutionRecord is an append-only log of order attempts.
type ExecutionRecord struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	Ticker         string          `gorm:"index;not null" json:"ticker"`
	Action         string          `gorm:"not null" json:"action"`
	RequestedPrice decimal.Decimal `gorm:"type:numeric" json:"requested_price"`
	FillPrice      decimal.Decimal `gorm:"type:numeric" json:"fill_price"`
	Quantity       decimal.Decimal `gorm:"type:numeric" json:"quantity"`
	Commission     decimal.Decimal `gorm:"type:numeric" json:"commission"`
	BrokerOrderID  string          `gorm:"index" json:"broker_order_id"`
	Status         string          `gorm:"not null" json:"status"`
	Reason         string          `json:"reason"`
}

// DecisionLog records every engine decision, including holds and skips,
// for audit trails.
type DecisionLog struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	Ticker string          `gorm:"index;not null" json:"ticker"`
	Action string          `gorm:"not null" json:"action"`
	Reason string          `json:"reason"`
	Detail string          `gorm:"type:text" json:"detail"`
	Price  decimal.Decimal `gorm:"type:numeric" json:"price"`
}

// FundamentalCache holds one evaluated fundamental payload per ticker per
// calendar day.
type FundamentalCache struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	Ticker  string `gorm:"index:idx_fund_ticker_date,unique;not null" json:"ticker"`
	Date    string `gorm:"index:idx_fund_ticker_date,unique;not null" json:"date"`
	Payload string `gorm:"type:text" json:"payload"`
}

// PerformanceSnapshot captures the portfolio at the end of an audit cycle.
type PerformanceSnapshot struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	Equity         decimal.Decimal `gorm:"type:numeric" json:"equity"`
	Cash           decimal.Decimal `gorm:"type:numeric" json:"cash"`
	PositionsCount int             `json:"positions_count"`
	ResultsJSON    string          `gorm:"type:text" json:"results_json"`
}

// SentimentRecord is the per-cycle sentiment history for a ticker.
type SentimentRecord struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	Ticker     string  `gorm:"index;not null" json:"ticker"`
	Score      float64 `json:"score"`
	Confidence int     `json:"confidence"`
	Reasoning  string  `gorm:"type:text" json:"reasoning"`
}
