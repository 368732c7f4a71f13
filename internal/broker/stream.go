package broker

import (
	"context"
	"strings"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/shopspring/decimal"

	"github.com/fuggle07/paper-trader/internal/events"
)

// FillLedger is the slice of the ledger the fill stream mutates.
type FillLedger interface {
	UpdateLedger(ticker string, cashDelta, holdingsDelta, fillPrice decimal.Decimal, action string) error
}

// StreamFills consumes the trade-update websocket and applies confirmed
// fills to the ledger. This is the only path that mutates cash and holdings
// during normal operation; order submission records intent, fills move money.
// Runs until ctx is cancelled.
func (c *Client) StreamFills(ctx context.Context, ldg FillLedger, bus *events.Bus) {
	c.trade.StreamTradeUpdatesInBackground(ctx, func(tu alpaca.TradeUpdate) {
		switch tu.Event {
		case "fill", "partial_fill":
		default:
			c.log.Debug("trade update ignored", "event", tu.Event, "symbol", tu.Order.Symbol)
			return
		}

		qty := decimal.Zero
		if tu.Qty != nil {
			qty = *tu.Qty
		} else {
			qty = tu.Order.FilledQty
		}
		price := decimal.Zero
		if tu.Price != nil {
			price = *tu.Price
		} else if tu.Order.FilledAvgPrice != nil {
			price = *tu.Order.FilledAvgPrice
		}
		if !qty.IsPositive() || !price.IsPositive() {
			c.log.Error("fill event missing qty or price, skipping",
				"symbol", tu.Order.Symbol, "event", tu.Event, "order_id", tu.Order.ID)
			return
		}

		action := strings.ToUpper(string(tu.Order.Side))
		gross := qty.Mul(price)
		fee := Commission(qty)

		var cashDelta, holdingsDelta decimal.Decimal
		if action == "BUY" {
			cashDelta = gross.Add(fee).Neg()
			holdingsDelta = qty
		} else {
			cashDelta = gross.Sub(fee)
			holdingsDelta = qty.Neg()
		}

		if err := ldg.UpdateLedger(tu.Order.Symbol, cashDelta, holdingsDelta, price, action); err != nil {
			c.log.Critical("fill received but ledger update failed",
				"symbol", tu.Order.Symbol, "order_id", tu.Order.ID, "error", err)
			if bus != nil {
				bus.Publish(events.Event{
					Type:   events.TypeCritical,
					Ticker: tu.Order.Symbol,
					Detail: "fill not applied to ledger: " + err.Error(),
				})
			}
			return
		}

		c.log.Info("fill applied",
			"symbol", tu.Order.Symbol, "side", action,
			"qty", qty.String(), "price", price.StringFixed(2),
			"commission", fee.StringFixed(2), "event", tu.Event)

		if bus != nil {
			bus.Publish(events.Event{
				Type:   events.TypeFill,
				Ticker: tu.Order.Symbol,
				Action: action,
				Qty:    qty,
				Price:  price,
				Detail: tu.Event,
			})
		}
	})

	c.log.Info("trade update stream started")
}
