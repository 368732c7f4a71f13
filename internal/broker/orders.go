package broker

import (
	"fmt"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/shopspring/decimal"
)

// BracketOrder submits a BUY limit entry with an attached stop-loss and
// take-profit leg. The brokerage manages the exit legs server-side, so a
// crashed bot still has its downside covered.
func (c *Client) BracketOrder(symbol string, qty, entryLimit, stopPrice, takeProfit decimal.Decimal) (*alpaca.Order, error) {
	order, err := c.trade.PlaceOrder(alpaca.PlaceOrderRequest{
		Symbol:      symbol,
		Qty:         &qty,
		Side:        alpaca.Buy,
		Type:        alpaca.Limit,
		TimeInForce: alpaca.Day,
		LimitPrice:  &entryLimit,
		OrderClass:  alpaca.Bracket,
		TakeProfit:  &alpaca.TakeProfit{LimitPrice: &takeProfit},
		StopLoss:    &alpaca.StopLoss{StopPrice: &stopPrice},
	})
	if err != nil {
		return nil, fmt.Errorf("bracket order %s: %w", symbol, err)
	}

	c.log.Info("bracket order submitted",
		"symbol", symbol, "qty", qty.String(),
		"entry", entryLimit.StringFixed(2),
		"stop", stopPrice.StringFixed(2),
		"take_profit", takeProfit.StringFixed(2),
		"order_id", order.ID)
	return order, nil
}

// LimitBuy submits a plain day limit buy, used for hedge entries that do
// not want bracket legs attached.
func (c *Client) LimitBuy(symbol string, qty, limitPrice decimal.Decimal) (*alpaca.Order, error) {
	order, err := c.trade.PlaceOrder(alpaca.PlaceOrderRequest{
		Symbol:      symbol,
		Qty:         &qty,
		Side:        alpaca.Buy,
		Type:        alpaca.Limit,
		TimeInForce: alpaca.Day,
		LimitPrice:  &limitPrice,
	})
	if err != nil {
		return nil, fmt.Errorf("limit buy %s: %w", symbol, err)
	}

	c.log.Info("limit buy submitted",
		"symbol", symbol, "qty", qty.String(),
		"limit", limitPrice.StringFixed(2), "order_id", order.ID)
	return order, nil
}

// LimitSell submits a plain day limit sell.
func (c *Client) LimitSell(symbol string, qty, limitPrice decimal.Decimal) (*alpaca.Order, error) {
	order, err := c.trade.PlaceOrder(alpaca.PlaceOrderRequest{
		Symbol:      symbol,
		Qty:         &qty,
		Side:        alpaca.Sell,
		Type:        alpaca.Limit,
		TimeInForce: alpaca.Day,
		LimitPrice:  &limitPrice,
	})
	if err != nil {
		return nil, fmt.Errorf("limit sell %s: %w", symbol, err)
	}

	c.log.Info("limit sell submitted",
		"symbol", symbol, "qty", qty.String(),
		"limit", limitPrice.StringFixed(2), "order_id", order.ID)
	return order, nil
}

// MarketSell closes qty shares immediately. Used by the liquidation tool.
func (c *Client) MarketSell(symbol string, qty decimal.Decimal) (*alpaca.Order, error) {
	order, err := c.trade.PlaceOrder(alpaca.PlaceOrderRequest{
		Symbol:      symbol,
		Qty:         &qty,
		Side:        alpaca.Sell,
		Type:        alpaca.Market,
		TimeInForce: alpaca.Day,
	})
	if err != nil {
		return nil, fmt.Errorf("market sell %s: %w", symbol, err)
	}
	return order, nil
}

// CancelOpenOrders cancels every open order, returning how many were hit.
func (c *Client) CancelOpenOrders() (int, error) {
	orders, err := c.GetOrders("open", 500)
	if err != nil {
		return 0, err
	}
	cancelled := 0
	for _, o := range orders {
		if err := c.trade.CancelOrder(o.ID); err != nil {
			c.log.Error("cancel order failed", "order_id", o.ID, "error", err)
			continue
		}
		cancelled++
	}
	return cancelled, nil
}
