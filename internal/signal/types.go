package signal

import "github.com/shopspring/decimal"

type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
	ActionHold Action = "HOLD"
)

// Reason identifies which rule produced a decision. Stable strings: they are
// written to the decision log and asserted in tests.
type Reason string

const (
	ReasonBullishCrossover        Reason = "BULLISH_CROSSOVER"
	ReasonBearishCrossover        Reason = "BEARISH_CROSSOVER"
	ReasonStopLossHit             Reason = "STOP_LOSS_HIT"
	ReasonProfitTarget            Reason = "EXIT_PROFIT_TARGET"
	ReasonExtremeBearishSentiment Reason = "EXTREME_BEARISH_SENTIMENT"
	ReasonRSIOverboughtExit       Reason = "RSI_OVERBOUGHT_EXIT"
	ReasonVolatileIgnore          Reason = "VOLATILE_IGNORE"
	ReasonSentimentBelowFloor     Reason = "SENTIMENT_BELOW_FLOOR"
	ReasonRejectUnhealthy         Reason = "REJECT_UNHEALTHY"
	ReasonRejectDeepUnhealthy     Reason = "REJECT_DEEP_UNHEALTHY"
	ReasonLowConfidence           Reason = "LOW_CONFIDENCE"
	ReasonNoSignal                Reason = "NO_SIGNAL"
)

// Snapshot is the per-ticker market view the engine decides on. Optional
// fields are pointers; nil means the data point was unavailable this cycle.
// Health flags default to true when fundamental data is missing (innocent
// until proven guilty), so builders must set them explicitly.
type Snapshot struct {
	Ticker string

	CurrentPrice decimal.Decimal
	SMA20        decimal.Decimal
	SMA50        decimal.Decimal
	BBUpper      decimal.Decimal
	BBLower      decimal.Decimal

	Sentiment  *decimal.Decimal // [-1, 1]
	RSI        *decimal.Decimal // [0, 100]
	Confidence *int             // [0, 100]
	FScore     *int             // [0, 9], nil = insufficient data, must not block

	IsHealthy     bool
	IsDeepHealthy bool

	AvgPrice      decimal.Decimal // 0 = no open position
	IsLowExposure bool
}

// HasPosition reports whether the snapshot carries an open position.
func (s Snapshot) HasPosition() bool {
	return s.AvgPrice.IsPositive()
}

// Decision is the engine's verdict for one ticker.
type Decision struct {
	Ticker string
	Action Action
	Price  decimal.Decimal
	Reason Reason
	Detail string
}

// DecisionLogger receives every decision the engine emits. The storage
// repository backs it in production; tests pass nil.
type DecisionLogger interface {
	LogDecision(d Decision)
}
