package marketdata

import (
	"context"
	"fmt"

	mdstream "github.com/alpacahq/alpaca-trade-api-go/v3/marketdata/stream"
)

// StreamPrices subscribes to the live trade feed for symbols and keeps the
// price cache warm, sparing the pollers a REST round trip. Blocks until the
// stream terminates or ctx is cancelled.
func (s *Service) StreamPrices(ctx context.Context, symbols []string) error {
	client := mdstream.NewStocksClient("iex",
		mdstream.WithCredentials(s.apiKey, s.apiSecret))

	if err := client.Connect(ctx); err != nil {
		return fmt.Errorf("connect price stream: %w", err)
	}

	err := client.SubscribeToTrades(func(t mdstream.Trade) {
		s.cache.Set(t.Symbol, t.Price)
	}, symbols...)
	if err != nil {
		return fmt.Errorf("subscribe trades: %w", err)
	}

	s.log.Info("price stream connected", "symbols", symbols)
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-client.Terminated():
		return fmt.Errorf("price stream terminated: %w", err)
	}
}
