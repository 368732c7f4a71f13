// Package broker wraps the Alpaca paper-trading API: account state, order
// submission and the trade-update stream that feeds confirmed fills back
// into the ledger.
package broker

import (
	"fmt"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/shopspring/decimal"

	"github.com/fuggle07/paper-trader/internal/config"
	"github.com/fuggle07/paper-trader/internal/logger"
)

const (
	paperEndpoint = "https://paper-api.alpaca.markets"
	liveEndpoint  = "https://api.alpaca.markets"
)

type Client struct {
	trade *alpaca.Client
	cfg   *config.Config
	log   *logger.Logger
}

func NewClient(cfg *config.Config, log *logger.Logger) *Client {
	endpoint := liveEndpoint
	if cfg.Alpaca.Paper {
		endpoint = paperEndpoint
	}

	return &Client{
		trade: alpaca.NewClient(alpaca.ClientOpts{
			APIKey:    cfg.Alpaca.APIKey,
			APISecret: cfg.Alpaca.APISecret,
			BaseURL:   endpoint,
		}),
		cfg: cfg,
		log: log,
	}
}

// AccountInfo is the slice of the brokerage account the bot cares about.
type AccountInfo struct {
	Cash   decimal.Decimal
	Equity decimal.Decimal
}

// Position is a position held at the brokerage.
type Position struct {
	Symbol        string
	Qty           decimal.Decimal
	AvgEntryPrice decimal.Decimal
	CurrentPrice  decimal.Decimal
}

func (c *Client) GetAccount() (*AccountInfo, error) {
	acct, err := c.trade.GetAccount()
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	return &AccountInfo{Cash: acct.Cash, Equity: acct.Equity}, nil
}

func (c *Client) GetPositions() ([]Position, error) {
	positions, err := c.trade.GetPositions()
	if err != nil {
		return nil, fmt.Errorf("get positions: %w", err)
	}

	result := make([]Position, 0, len(positions))
	for _, p := range positions {
		pos := Position{
			Symbol:        p.Symbol,
			Qty:           p.Qty,
			AvgEntryPrice: p.AvgEntryPrice,
		}
		if p.CurrentPrice != nil {
			pos.CurrentPrice = *p.CurrentPrice
		}
		result = append(result, pos)
	}
	return result, nil
}

func (c *Client) GetOrders(status string, limit int) ([]alpaca.Order, error) {
	return c.trade.GetOrders(alpaca.GetOrdersRequest{
		Status: status,
		Limit:  limit,
		Nested: true,
	})
}
