// Package signal holds the trade decision engine: a fixed pipeline of
// technical, sentiment, fundamental and safety gates producing one
// BUY/SELL/HOLD verdict per ticker, plus the independent macro hedge channel.
package signal

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fuggle07/paper-trader/internal/logger"
)

// 2026 US NASDAQ holidays.
var defaultHolidays = []string{
	"2026-01-01", // New Year's Day
	"2026-01-19", // Martin Luther King, Jr. Day
	"2026-02-16", // Washington's Birthday
	"2026-04-03", // Good Friday
	"2026-05-25", // Memorial Day
	"2026-06-19", // Juneteenth
	"2026-07-03", // Independence Day (Observed)
	"2026-09-07", // Labor Day
	"2026-11-26", // Thanksgiving Day
	"2026-12-25", // Christmas Day
}

// Config carries the engine's thresholds. Zero values are replaced with the
// documented defaults by NewEngine.
type Config struct {
	VolThreshold         decimal.Decimal // band width above this is untradable noise
	LowExposureVolFactor decimal.Decimal // relaxation multiplier for small positions
	SentimentFloor       decimal.Decimal // BUY floor in conviction mode; seeding mode floor is zero
	ExtremeSentiment     decimal.Decimal // at or below forces an exit
	MinConfidence        int
	StopLossPct          decimal.Decimal // drop below avg price that forces an exit
	ProfitTargetPct      decimal.Decimal // gain over avg price that locks in the win
	RSIOverbought        decimal.Decimal

	Location *time.Location
	Holidays []string
	Now      func() time.Time
}

type Engine struct {
	cfg Config
	dl  DecisionLogger
	log *logger.Logger
}

func NewEngine(cfg Config, dl DecisionLogger, log *logger.Logger) *Engine {
	if cfg.VolThreshold.IsZero() {
		cfg.VolThreshold = decimal.NewFromFloat(0.35)
	}
	if cfg.LowExposureVolFactor.IsZero() {
		cfg.LowExposureVolFactor = decimal.NewFromFloat(1.5)
	}
	if cfg.SentimentFloor.IsZero() {
		cfg.SentimentFloor = decimal.NewFromFloat(0.2)
	}
	if cfg.ExtremeSentiment.IsZero() {
		cfg.ExtremeSentiment = decimal.NewFromFloat(-0.6)
	}
	if cfg.MinConfidence == 0 {
		cfg.MinConfidence = 65
	}
	if cfg.StopLossPct.IsZero() {
		cfg.StopLossPct = decimal.NewFromFloat(0.10)
	}
	if cfg.ProfitTargetPct.IsZero() {
		cfg.ProfitTargetPct = decimal.NewFromFloat(0.05)
	}
	if cfg.RSIOverbought.IsZero() {
		cfg.RSIOverbought = decimal.NewFromInt(80)
	}
	if cfg.Location == nil {
		loc, err := time.LoadLocation("America/New_York")
		if err != nil {
			loc = time.FixedZone("EST", -5*60*60)
		}
		cfg.Location = loc
	}
	if cfg.Holidays == nil {
		cfg.Holidays = defaultHolidays
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Engine{cfg: cfg, dl: dl, log: log}
}

// MarketOpen reports whether the exchange is in its regular session:
// weekdays 09:30-16:00 local, excluding the holiday calendar.
func (e *Engine) MarketOpen() bool {
	now := e.cfg.Now().In(e.cfg.Location)

	if wd := now.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return false
	}

	date := now.Format("2006-01-02")
	for _, h := range e.cfg.Holidays {
		if h == date {
			return false
		}
	}

	minutes := now.Hour()*60 + now.Minute()
	return minutes >= 9*60+30 && minutes <= 16*60
}

// Decide runs the evaluation pipeline. It returns nil when the market is
// closed and force is false: no opinion, skip entirely. Gate order:
//
//  1. safety exits (stop loss, profit target, extreme sentiment, RSI
//     overbought); these
//     fire even in noisy markets and are exempt from the confidence gate
//  2. volatility gate
//  3. SMA crossover baseline
//  4. BUY hurdles: sentiment floor, health, deep health
//  5. confidence gate
//
// Missing optional data fails open for the BUY hurdles and the confidence
// gate; the safety exits depend only on fields that are always supplied.
func (e *Engine) Decide(snap Snapshot, marketOpen, force bool) *Decision {
	if !marketOpen && !force {
		return nil
	}

	d := e.evaluate(snap)
	if e.dl != nil {
		e.dl.LogDecision(*d)
	}
	if e.log != nil {
		e.log.Debug("decision",
			"ticker", d.Ticker, "action", string(d.Action),
			"reason", string(d.Reason), "detail", d.Detail)
	}
	return d
}

func (e *Engine) evaluate(snap Snapshot) *Decision {
	price := snap.CurrentPrice

	// Safety net: a breached stop level or a hit profit target forces an
	// exit no matter what any other gate says about this ticker.
	if snap.HasPosition() {
		stopLevel := snap.AvgPrice.Mul(decimal.NewFromInt(1).Sub(e.cfg.StopLossPct))
		if price.LessThan(stopLevel) {
			return e.decision(snap, ActionSell, ReasonStopLossHit,
				fmt.Sprintf("Price (%s) < Stop Level (%s = %s of Avg %s)",
					price.StringFixed(2), stopLevel.StringFixed(2),
					decimal.NewFromInt(1).Sub(e.cfg.StopLossPct).String(),
					snap.AvgPrice.StringFixed(2)))
		}

		targetLevel := snap.AvgPrice.Mul(decimal.NewFromInt(1).Add(e.cfg.ProfitTargetPct))
		if price.GreaterThanOrEqual(targetLevel) {
			return e.decision(snap, ActionSell, ReasonProfitTarget,
				fmt.Sprintf("Price (%s) >= Profit Target (%s = Avg %s +%s%%)",
					price.StringFixed(2), targetLevel.StringFixed(2),
					snap.AvgPrice.StringFixed(2),
					e.cfg.ProfitTargetPct.Mul(decimal.NewFromInt(100)).StringFixed(0)))
		}
	}

	if snap.Sentiment != nil && snap.Sentiment.LessThan(e.cfg.ExtremeSentiment) {
		return e.decision(snap, ActionSell, ReasonExtremeBearishSentiment,
			fmt.Sprintf("Sentiment (%s) < Panic Threshold (%s)",
				snap.Sentiment.StringFixed(2), e.cfg.ExtremeSentiment.StringFixed(2)))
	}

	if snap.HasPosition() && snap.RSI != nil && snap.RSI.GreaterThanOrEqual(e.cfg.RSIOverbought) {
		return e.decision(snap, ActionSell, ReasonRSIOverboughtExit,
			fmt.Sprintf("RSI (%s) >= Overbought Threshold (%s)",
				snap.RSI.StringFixed(1), e.cfg.RSIOverbought.StringFixed(0)))
	}

	// Volatility gate: when the bands are this far apart the edge is lost
	// in noise. Low-exposure positions get a relaxed threshold.
	bandWidth := snap.BBUpper.Sub(snap.BBLower).Div(price)
	volThreshold := e.cfg.VolThreshold
	if snap.IsLowExposure {
		volThreshold = volThreshold.Mul(e.cfg.LowExposureVolFactor)
	}
	if bandWidth.GreaterThan(volThreshold) {
		return e.decision(snap, ActionHold, ReasonVolatileIgnore,
			fmt.Sprintf("Band Width (%s) > Volatility Cap (%s)",
				bandWidth.StringFixed(4), volThreshold.StringFixed(4)))
	}

	// Baseline trend signal.
	switch snap.SMA20.Cmp(snap.SMA50) {
	case 1:
		return e.gateBuy(snap)
	case -1:
		return e.gateSell(snap, ReasonBearishCrossover,
			fmt.Sprintf("SMA20 (%s) < SMA50 (%s)",
				snap.SMA20.StringFixed(2), snap.SMA50.StringFixed(2)))
	default:
		return e.decision(snap, ActionHold, ReasonNoSignal, "SMA20 == SMA50, no trend")
	}
}

// gateBuy applies the BUY-only hurdles to a bullish crossover candidate.
func (e *Engine) gateBuy(snap Snapshot) *Decision {
	// Sentiment floor: zero in seeding mode (low exposure), the configured
	// floor in conviction mode. Missing sentiment does not block.
	if snap.Sentiment != nil {
		floor := e.cfg.SentimentFloor
		if snap.IsLowExposure {
			floor = decimal.Zero
		}
		if snap.Sentiment.LessThan(floor) {
			return e.decision(snap, ActionHold, ReasonSentimentBelowFloor,
				fmt.Sprintf("Sentiment (%s) < Hurdle-Adjusted Floor (%s)",
					snap.Sentiment.StringFixed(2), floor.StringFixed(2)))
		}
	}

	if !snap.IsHealthy {
		return e.decision(snap, ActionHold, ReasonRejectUnhealthy,
			"Fundamental health check failed")
	}

	if !snap.IsDeepHealthy {
		return e.decision(snap, ActionHold, ReasonRejectDeepUnhealthy,
			"Deep financial health check failed")
	}

	if d := e.gateConfidence(snap); d != nil {
		return d
	}

	return e.decision(snap, ActionBuy, ReasonBullishCrossover,
		fmt.Sprintf("SMA20 (%s) > SMA50 (%s)",
			snap.SMA20.StringFixed(2), snap.SMA50.StringFixed(2)))
}

func (e *Engine) gateSell(snap Snapshot, reason Reason, detail string) *Decision {
	if d := e.gateConfidence(snap); d != nil {
		return d
	}
	return e.decision(snap, ActionSell, reason, detail)
}

// gateConfidence downgrades a technical signal to a skip when the prediction
// confidence is present and below the bar. Safety exits never reach here.
func (e *Engine) gateConfidence(snap Snapshot) *Decision {
	if snap.Confidence != nil && *snap.Confidence < e.cfg.MinConfidence {
		return e.decision(snap, ActionHold, ReasonLowConfidence,
			fmt.Sprintf("Confidence (%d) < Minimum (%d)",
				*snap.Confidence, e.cfg.MinConfidence))
	}
	return nil
}

func (e *Engine) decision(snap Snapshot, action Action, reason Reason, detail string) *Decision {
	return &Decision{
		Ticker: snap.Ticker,
		Action: action,
		Price:  snap.CurrentPrice,
		Reason: reason,
		Detail: detail,
	}
}
