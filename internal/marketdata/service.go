// Package marketdata fetches quotes, bars and headlines, and computes the
// technical indicators for the decision engine.
package marketdata

import (
	"context"
	"fmt"
	"time"

	md "github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/piquette/finance-go/quote"
	"github.com/shopspring/decimal"

	"github.com/fuggle07/paper-trader/internal/backoff"
	"github.com/fuggle07/paper-trader/internal/config"
	"github.com/fuggle07/paper-trader/internal/logger"
)

const vixSymbol = "^VIX"

type Service struct {
	md        *md.Client
	cache     *PriceCache
	retry     backoff.Config
	apiKey    string
	apiSecret string
	log       *logger.Logger
}

func NewService(cfg *config.Config, cache *PriceCache, log *logger.Logger) *Service {
	return &Service{
		md: md.NewClient(md.ClientOpts{
			APIKey:    cfg.Alpaca.APIKey,
			APISecret: cfg.Alpaca.APISecret,
		}),
		cache:     cache,
		retry:     backoff.DefaultConfig(),
		apiKey:    cfg.Alpaca.APIKey,
		apiSecret: cfg.Alpaca.APISecret,
		log:       log,
	}
}

// DailyCloses returns the last `days` daily closing prices, oldest first.
func (s *Service) DailyCloses(ctx context.Context, symbol string, days int) ([]float64, error) {
	var bars []md.Bar
	err := backoff.Retry(ctx, s.retry, func() error {
		var err error
		// Weekends and holidays thin the calendar out, so over-fetch.
		bars, err = s.md.GetBars(symbol, md.GetBarsRequest{
			TimeFrame: md.OneDay,
			Start:     time.Now().AddDate(0, 0, -days*2),
			End:       time.Now(),
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get bars %s: %w", symbol, err)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("no bars returned for %s", symbol)
	}

	if len(bars) > days {
		bars = bars[len(bars)-days:]
	}
	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}
	return closes, nil
}

// Technicals fetches enough daily history for the full indicator set.
func (s *Service) Technicals(ctx context.Context, symbol string) (*Technicals, error) {
	closes, err := s.DailyCloses(ctx, symbol, smaLongWindow+rsiWindow)
	if err != nil {
		return nil, err
	}
	return ComputeTechnicals(closes)
}

// CurrentPrice prefers the streaming cache, then the Alpaca latest trade,
// then Yahoo Finance as a last resort.
func (s *Service) CurrentPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	if s.cache != nil {
		if p, ok := s.cache.Get(symbol); ok {
			return decimal.NewFromFloat(p), nil
		}
	}

	trade, err := s.md.GetLatestTrade(symbol, md.GetLatestTradeRequest{})
	if err == nil && trade != nil && trade.Price > 0 {
		if s.cache != nil {
			s.cache.Set(symbol, trade.Price)
		}
		return decimal.NewFromFloat(trade.Price), nil
	}
	if err != nil {
		s.log.Debug("latest trade lookup failed, falling back", "symbol", symbol, "error", err)
	}

	q, qerr := quote.Get(symbol)
	if qerr != nil || q == nil {
		return decimal.Zero, fmt.Errorf("price unavailable for %s: %v", symbol, qerr)
	}
	if s.cache != nil {
		s.cache.Set(symbol, q.RegularMarketPrice)
	}
	return decimal.NewFromFloat(q.RegularMarketPrice), nil
}

// VIX returns the current CBOE volatility index level for the hedge channel.
func (s *Service) VIX() (decimal.Decimal, error) {
	q, err := quote.Get(vixSymbol)
	if err != nil || q == nil {
		return decimal.Zero, fmt.Errorf("vix quote: %v", err)
	}
	return decimal.NewFromFloat(q.RegularMarketPrice), nil
}
