package signal

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// HedgeStatus is the macro hedge channel's verdict. It is layered on top of
// the per-ticker decisions, not a replacement for them.
type HedgeStatus string

const (
	HedgeEnter HedgeStatus = "ENTER_HEDGE"
	HedgeExit  HedgeStatus = "EXIT_HEDGE"
	HedgeHold  HedgeStatus = "HOLD_HEDGE"
)

// MacroState is the market-wide context the hedge decision consumes.
type MacroState struct {
	VIX        decimal.Decimal
	IndexPrice decimal.Decimal // broad index (e.g. QQQ) last price
	IndexSMA50 decimal.Decimal
}

type HedgeDecision struct {
	Status     HedgeStatus
	Allocation decimal.Decimal // fraction of equity to park in the hedge
	Detail     string
}

// HedgeConfig holds the hysteresis band and the allocation scale.
type HedgeConfig struct {
	EnterVIX      decimal.Decimal // at or above: enter/extend the hedge
	ExitVIX       decimal.Decimal // at or below: unwind; must sit below EnterVIX
	MaxVIX        decimal.Decimal // VIX level mapping to the full allocation
	MaxAllocation decimal.Decimal
}

func DefaultHedgeConfig() HedgeConfig {
	return HedgeConfig{
		EnterVIX:      decimal.NewFromInt(28),
		ExitVIX:       decimal.NewFromInt(25),
		MaxVIX:        decimal.NewFromInt(50),
		MaxAllocation: decimal.NewFromFloat(0.10),
	}
}

var (
	minHedgeAllocation     = decimal.NewFromFloat(0.02)
	bearishHedgeAllocation = decimal.NewFromFloat(0.05)
	panicVIXFraction       = decimal.NewFromFloat(0.9)
)

// EvaluateHedge maps VIX and the index trend to a hedge allocation with
// hysteresis: entries at EnterVIX, exits only once VIX falls back through
// ExitVIX, HOLD in the band between so the hedge does not flap.
func EvaluateHedge(cfg HedgeConfig, m MacroState) HedgeDecision {
	bearish := m.IndexSMA50.IsPositive() && m.IndexPrice.LessThan(m.IndexSMA50)

	if m.VIX.GreaterThanOrEqual(cfg.EnterVIX) {
		alloc := scaleAllocation(cfg, m.VIX)
		if bearish && alloc.LessThan(bearishHedgeAllocation) {
			alloc = bearishHedgeAllocation
		}
		return HedgeDecision{
			Status:     HedgeEnter,
			Allocation: alloc,
			Detail: fmt.Sprintf("VIX %s >= enter %s (bearish_trend=%v)",
				m.VIX.StringFixed(1), cfg.EnterVIX.StringFixed(1), bearish),
		}
	}

	if m.VIX.LessThanOrEqual(cfg.ExitVIX) {
		if bearish {
			// Trend-driven hedge: calm VIX but the index is under its SMA-50.
			// Minimum size only; the larger bearish floor needs elevated VIX too.
			return HedgeDecision{
				Status:     HedgeEnter,
				Allocation: minHedgeAllocation,
				Detail: fmt.Sprintf("Index %s < SMA50 %s with calm VIX %s",
					m.IndexPrice.StringFixed(2), m.IndexSMA50.StringFixed(2),
					m.VIX.StringFixed(1)),
			}
		}
		return HedgeDecision{
			Status:     HedgeExit,
			Allocation: decimal.Zero,
			Detail: fmt.Sprintf("VIX %s <= exit %s, market healthy",
				m.VIX.StringFixed(1), cfg.ExitVIX.StringFixed(1)),
		}
	}

	return HedgeDecision{
		Status:     HedgeHold,
		Allocation: decimal.Zero,
		Detail: fmt.Sprintf("VIX %s inside hysteresis band (%s, %s)",
			m.VIX.StringFixed(1), cfg.ExitVIX.StringFixed(1), cfg.EnterVIX.StringFixed(1)),
	}
}

// scaleAllocation slides from the minimum allocation at EnterVIX toward the
// cap at MaxVIX. Anything past 90% of MaxVIX is treated as panic and gets
// the full cap.
func scaleAllocation(cfg HedgeConfig, vix decimal.Decimal) decimal.Decimal {
	if vix.GreaterThanOrEqual(cfg.MaxVIX.Mul(panicVIXFraction)) {
		return cfg.MaxAllocation
	}

	span := cfg.MaxVIX.Sub(cfg.EnterVIX)
	if !span.IsPositive() {
		return cfg.MaxAllocation
	}

	alloc := vix.Sub(cfg.EnterVIX).Div(span).Mul(cfg.MaxAllocation)
	if alloc.LessThan(minHedgeAllocation) {
		return minHedgeAllocation
	}
	if alloc.GreaterThan(cfg.MaxAllocation) {
		return cfg.MaxAllocation
	}
	return alloc
}
