// Package executor turns engine decisions into brokerage orders. It sizes
// and validates each order against the ledger, submits it, and records a
// provisional execution row. It never mutates cash or holdings itself; the
// fill stream does that once the brokerage confirms.
package executor

import (
	"fmt"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/shopspring/decimal"

	"github.com/fuggle07/paper-trader/internal/broker"
	"github.com/fuggle07/paper-trader/internal/config"
	"github.com/fuggle07/paper-trader/internal/events"
	"github.com/fuggle07/paper-trader/internal/ledger"
	"github.com/fuggle07/paper-trader/internal/logger"
	"github.com/fuggle07/paper-trader/internal/signal"
	"github.com/fuggle07/paper-trader/internal/storage"
)

// Rejection reason codes written to the execution log.
const (
	RejectInvalidPrice         = "INVALID_PRICE"
	RejectZeroQuantity         = "ZERO_QUANTITY"
	RejectInsufficientFunds    = "INSUFFICIENT_FUNDS"
	RejectInsufficientHoldings = "INSUFFICIENT_HOLDINGS"
)

// OrderPlacer is the slice of the brokerage client the executor needs.
// *broker.Client satisfies it; tests substitute a fake.
type OrderPlacer interface {
	BracketOrder(symbol string, qty, entryLimit, stopPrice, takeProfit decimal.Decimal) (*alpaca.Order, error)
	LimitSell(symbol string, qty, limitPrice decimal.Decimal) (*alpaca.Order, error)
}

// LedgerReader supplies the position state orders are validated against.
type LedgerReader interface {
	GetState(ticker string) (ledger.State, error)
}

// Outcome summarizes what happened to one decision, for logs and the audit
// response.
type Outcome struct {
	Ticker  string          `json:"ticker"`
	Action  string          `json:"action"`
	Status  string          `json:"status"`
	Reason  string          `json:"reason"`
	Detail  string          `json:"detail,omitempty"`
	Qty     decimal.Decimal `json:"qty"`
	Price   decimal.Decimal `json:"price"`
	OrderID string          `json:"order_id,omitempty"`
}

type Executor struct {
	placer OrderPlacer
	ldg    LedgerReader
	repo   *storage.Repository
	bus    *events.Bus
	log    *logger.Logger

	entryLimitPct decimal.Decimal
	stopPct       decimal.Decimal
	takeProfitPct decimal.Decimal
	sellLimitPct  decimal.Decimal
}

func New(cfg *config.Config, placer OrderPlacer, ldg LedgerReader, repo *storage.Repository, bus *events.Bus, log *logger.Logger) *Executor {
	return &Executor{
		placer:        placer,
		ldg:           ldg,
		repo:          repo,
		bus:           bus,
		log:           log,
		entryLimitPct: decimal.NewFromFloat(cfg.Trading.EntryLimitPct),
		stopPct:       decimal.NewFromFloat(cfg.Trading.BracketStopPct),
		takeProfitPct: decimal.NewFromFloat(cfg.Trading.BracketTakeProfitPct),
		sellLimitPct:  decimal.NewFromFloat(cfg.Trading.SellLimitPct),
	}
}

var one = decimal.NewFromInt(1)

// Execute carries out a BUY or SELL decision. HOLD decisions return a
// pass-through outcome without touching the brokerage. The returned error is
// non-nil only for ledger/storage faults; rejections and brokerage refusals
// are reported in the outcome.
func (e *Executor) Execute(d signal.Decision) (*Outcome, error) {
	if d.Action == signal.ActionHold {
		return &Outcome{
			Ticker: d.Ticker, Action: string(d.Action),
			Status: "SKIPPED", Reason: string(d.Reason), Detail: d.Detail,
		}, nil
	}

	state, err := e.ldg.GetState(d.Ticker)
	if err != nil {
		return nil, fmt.Errorf("executor: read state %s: %w", d.Ticker, err)
	}

	if !d.Price.IsPositive() {
		return e.reject(d, RejectInvalidPrice,
			fmt.Sprintf("price %s is not positive", d.Price))
	}

	switch d.Action {
	case signal.ActionBuy:
		return e.executeBuy(d, state)
	case signal.ActionSell:
		return e.executeSell(d, state)
	default:
		return nil, fmt.Errorf("executor: unknown action %q", d.Action)
	}
}

// executeBuy sizes the order to all available cash and submits a bracket:
// a slightly padded limit entry with server-side stop-loss and take-profit
// legs.
func (e *Executor) executeBuy(d signal.Decision, state ledger.State) (*Outcome, error) {
	entryLimit := d.Price.Mul(one.Add(e.entryLimitPct)).Round(2)

	qty := state.CashBalance.Div(entryLimit).Floor()
	if !qty.IsPositive() {
		return e.reject(d, RejectZeroQuantity,
			fmt.Sprintf("cash %s buys zero shares at %s",
				state.CashBalance.StringFixed(2), entryLimit.StringFixed(2)))
	}

	cost := qty.Mul(entryLimit).Add(broker.Commission(qty))
	if cost.GreaterThan(state.CashBalance) {
		qty = qty.Sub(one)
		if !qty.IsPositive() {
			return e.reject(d, RejectInsufficientFunds,
				fmt.Sprintf("cost %s exceeds cash %s",
					cost.StringFixed(2), state.CashBalance.StringFixed(2)))
		}
		cost = qty.Mul(entryLimit).Add(broker.Commission(qty))
		if cost.GreaterThan(state.CashBalance) {
			return e.reject(d, RejectInsufficientFunds,
				fmt.Sprintf("cost %s exceeds cash %s",
					cost.StringFixed(2), state.CashBalance.StringFixed(2)))
		}
	}

	stopPrice := d.Price.Mul(one.Sub(e.stopPct)).Round(2)
	takeProfit := d.Price.Mul(one.Add(e.takeProfitPct)).Round(2)

	order, err := e.placer.BracketOrder(d.Ticker, qty, entryLimit, stopPrice, takeProfit)
	if err != nil {
		return e.failed(d, qty, err)
	}
	return e.submitted(d, qty, entryLimit, order)
}

// executeSell liquidates the full position with a limit slightly below
// market so the order fills without crossing at any price.
func (e *Executor) executeSell(d signal.Decision, state ledger.State) (*Outcome, error) {
	if !state.Holdings.IsPositive() {
		return e.reject(d, RejectInsufficientHoldings,
			fmt.Sprintf("no holdings in %s to sell", d.Ticker))
	}

	limit := d.Price.Mul(one.Sub(e.sellLimitPct)).Round(2)
	order, err := e.placer.LimitSell(d.Ticker, state.Holdings, limit)
	if err != nil {
		return e.failed(d, state.Holdings, err)
	}
	return e.submitted(d, state.Holdings, limit, order)
}

// submitted records the provisional execution. Status FILLED is optimistic;
// the reconciler upgrades it to FILLED_CONFIRMED once the brokerage agrees.
func (e *Executor) submitted(d signal.Decision, qty, limitPrice decimal.Decimal, order *alpaca.Order) (*Outcome, error) {
	rec := &storage.ExecutionRecord{
		Ticker:         d.Ticker,
		Action:         string(d.Action),
		RequestedPrice: d.Price,
		FillPrice:      limitPrice,
		Quantity:       qty,
		Commission:     broker.Commission(qty),
		BrokerOrderID:  order.ID,
		Status:         storage.StatusFilled,
		Reason:         string(d.Reason),
	}
	if err := e.repo.SaveExecution(rec); err != nil {
		e.log.Critical("order submitted but execution record not persisted",
			"ticker", d.Ticker, "order_id", order.ID, "error", err)
		return nil, fmt.Errorf("executor: persist execution %s: %w", d.Ticker, err)
	}

	e.log.Info("order submitted",
		"ticker", d.Ticker, "action", string(d.Action),
		"qty", qty.String(), "limit", limitPrice.StringFixed(2),
		"reason", string(d.Reason), "order_id", order.ID)

	if e.bus != nil {
		e.bus.Publish(events.Event{
			Type:   events.TypeOrderPlaced,
			Ticker: d.Ticker,
			Action: string(d.Action),
			Qty:    qty,
			Price:  limitPrice,
			Detail: string(d.Reason),
		})
	}

	return &Outcome{
		Ticker: d.Ticker, Action: string(d.Action),
		Status: storage.StatusFilled, Reason: string(d.Reason),
		Qty: qty, Price: limitPrice, OrderID: order.ID,
	}, nil
}

func (e *Executor) reject(d signal.Decision, code, detail string) (*Outcome, error) {
	rec := &storage.ExecutionRecord{
		Ticker:         d.Ticker,
		Action:         string(d.Action),
		RequestedPrice: d.Price,
		Quantity:       decimal.Zero,
		Status:         storage.StatusRejected,
		Reason:         code,
	}
	if err := e.repo.SaveExecution(rec); err != nil {
		e.log.Error("rejection record not persisted", "ticker", d.Ticker, "error", err)
	}

	e.log.Info("order rejected",
		"ticker", d.Ticker, "action", string(d.Action), "code", code, "detail", detail)

	if e.bus != nil {
		e.bus.Publish(events.Event{
			Type:   events.TypeRejected,
			Ticker: d.Ticker,
			Action: string(d.Action),
			Detail: code + ": " + detail,
		})
	}

	return &Outcome{
		Ticker: d.Ticker, Action: string(d.Action),
		Status: storage.StatusRejected, Reason: code, Detail: detail,
		Price: d.Price,
	}, nil
}

func (e *Executor) failed(d signal.Decision, qty decimal.Decimal, cause error) (*Outcome, error) {
	rec := &storage.ExecutionRecord{
		Ticker:         d.Ticker,
		Action:         string(d.Action),
		RequestedPrice: d.Price,
		Quantity:       qty,
		Status:         storage.StatusFailed,
		Reason:         string(d.Reason),
	}
	if err := e.repo.SaveExecution(rec); err != nil {
		e.log.Error("failure record not persisted", "ticker", d.Ticker, "error", err)
	}

	e.log.Error("order submission failed",
		"ticker", d.Ticker, "action", string(d.Action), "error", cause)

	return &Outcome{
		Ticker: d.Ticker, Action: string(d.Action),
		Status: storage.StatusFailed, Reason: string(d.Reason),
		Detail: cause.Error(), Qty: qty, Price: d.Price,
	}, nil
}
