package scheduler

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fuggle07/paper-trader/internal/events"
	"github.com/fuggle07/paper-trader/internal/executor"
	"github.com/fuggle07/paper-trader/internal/ledger"
	"github.com/fuggle07/paper-trader/internal/sentiment"
	"github.com/fuggle07/paper-trader/internal/signal"
	"github.com/fuggle07/paper-trader/internal/storage"
)

// TickerResult is the audit outcome for one watchlist entry.
type TickerResult struct {
	Ticker   string            `json:"ticker"`
	Status   string            `json:"status"` // audited, tracking_only, error
	Decision string            `json:"decision,omitempty"`
	Reason   string            `json:"reason,omitempty"`
	Detail   string            `json:"detail,omitempty"`
	Outcome  *executor.Outcome `json:"outcome,omitempty"`
	Error    string            `json:"error,omitempty"`
}

// Performance is the equity summary appended to every full cycle.
type Performance struct {
	Equity    decimal.Decimal `json:"equity"`
	Cash      decimal.Decimal `json:"cash"`
	Positions int             `json:"positions"`
}

// CycleResult is what one audit cycle produced, also serialized as the
// /run-audit response.
type CycleResult struct {
	StartedAt   time.Time             `json:"started_at"`
	MarketOpen  bool                  `json:"market_open"`
	Forced      bool                  `json:"forced"`
	Results     []TickerResult        `json:"results"`
	Performance *Performance          `json:"performance,omitempty"`
	Hedge       *signal.HedgeDecision `json:"hedge,omitempty"`
}

// RunCycle audits the whole watchlist sequentially. When the market is
// closed and force is false, the cycle is a no-op; forced cycles always run.
// One sick ticker never aborts the rest of the list.
func (s *Scheduler) RunCycle(ctx context.Context, force bool) (*CycleResult, error) {
	result := &CycleResult{
		StartedAt:  time.Now(),
		MarketOpen: s.engine.MarketOpen(),
		Forced:     force,
	}

	if !result.MarketOpen && !force {
		s.log.Info("market closed, skipping audit cycle")
		return result, nil
	}

	s.log.Info("audit cycle started",
		"tickers", len(s.cfg.Trading.Watchlist), "forced", force)

	prices := make(map[string]decimal.Decimal)
	delay := s.cfg.TickerDelay()
	for i, raw := range s.cfg.Trading.Watchlist {
		ticker := strings.ToUpper(raw)
		tr := s.auditTicker(ctx, ticker, result.MarketOpen, force, prices)
		result.Results = append(result.Results, tr)

		// Rate-limit spacing between upstream API bursts.
		if i < len(s.cfg.Trading.Watchlist)-1 && delay > 0 {
			select {
			case <-ctx.Done():
				return result, ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	if hedge := s.evaluateHedge(ctx, result.MarketOpen, force, prices); hedge != nil {
		result.Hedge = hedge
	}

	result.Performance = s.recordPerformance(result.Results, prices)

	if s.bus != nil {
		s.bus.Publish(events.Event{
			Type:   events.TypeHeartbeat,
			Detail: "audit cycle complete",
		})
	}
	s.log.Info("audit cycle finished", "tickers", len(result.Results))
	return result, nil
}

// auditTicker runs the full pipeline for one ticker. A panic here is
// contained: the ticker is reported as errored and the cycle moves on.
func (s *Scheduler) auditTicker(ctx context.Context, ticker string, marketOpen, force bool, prices map[string]decimal.Decimal) (tr TickerResult) {
	tr = TickerResult{Ticker: ticker, Status: "audited"}
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("ticker audit panicked", "ticker", ticker, "panic", r)
			tr.Status = "error"
			tr.Error = "internal error during audit"
		}
	}()

	snap, err := s.buildSnapshot(ctx, ticker)
	if err != nil {
		s.log.Error("snapshot unavailable, tracking only", "ticker", ticker, "error", err)
		tr.Status = "tracking_only"
		tr.Error = err.Error()
		return tr
	}
	prices[ticker] = snap.CurrentPrice

	decision := s.engine.Decide(*snap, marketOpen, force)
	if decision == nil {
		tr.Status = "tracking_only"
		return tr
	}
	tr.Decision = string(decision.Action)
	tr.Reason = string(decision.Reason)
	tr.Detail = decision.Detail

	outcome, err := s.exec.Execute(*decision)
	if err != nil {
		tr.Status = "error"
		tr.Error = err.Error()
		return tr
	}
	tr.Outcome = outcome
	return tr
}

// buildSnapshot assembles the engine's view of one ticker: indicators from
// daily bars, ledger position state, LLM sentiment over recent headlines,
// and the fundamental screen. Sentiment and fundamentals degrade gracefully;
// indicators and ledger state are mandatory.
func (s *Scheduler) buildSnapshot(ctx context.Context, ticker string) (*signal.Snapshot, error) {
	tech, err := s.market.Technicals(ctx, ticker)
	if err != nil {
		return nil, err
	}

	state, err := s.ldg.GetState(ticker)
	if err != nil {
		return nil, err
	}

	snap := &signal.Snapshot{
		Ticker:        ticker,
		CurrentPrice:  tech.CurrentPrice,
		SMA20:         tech.SMA20,
		SMA50:         tech.SMA50,
		BBUpper:       tech.BBUpper,
		BBLower:       tech.BBLower,
		RSI:           tech.RSI,
		IsHealthy:     true,
		IsDeepHealthy: true,
		AvgPrice:      state.AvgPrice,
	}

	posValue := state.Holdings.Mul(tech.CurrentPrice)
	snap.IsLowExposure = posValue.LessThan(decimal.NewFromFloat(s.cfg.Trading.LowExposureValue))

	if senti, ok := s.scoreSentiment(ctx, ticker); ok {
		snap.Sentiment = &senti.Score
		conf := senti.Confidence
		snap.Confidence = &conf
	}

	report, err := s.funds.GetReport(ctx, ticker)
	if err == nil && report != nil {
		snap.IsHealthy = report.IsHealthy
		snap.IsDeepHealthy = report.IsDeepHealthy
		snap.FScore = report.FScore
	}

	return snap, nil
}

// scoreSentiment fetches headlines and asks the LLM for a verdict. Returns
// ok=false when there is nothing to score or the model failed, so the
// engine sees "no data" instead of a fake neutral opinion.
func (s *Scheduler) scoreSentiment(ctx context.Context, ticker string) (sentiment.Result, bool) {
	headlines, err := s.news.CompanyNews(ctx, ticker)
	if err != nil {
		s.log.Error("news fetch failed", "ticker", ticker, "error", err)
		return sentiment.Neutral(), false
	}
	if len(headlines) == 0 {
		return sentiment.Neutral(), false
	}

	result, err := s.llm.Analyze(ctx, ticker, headlines)
	if err != nil {
		s.log.Error("sentiment analysis failed, treating as missing", "ticker", ticker, "error", err)
		return sentiment.Neutral(), false
	}

	if err := s.repo.SaveSentimentRecord(&storage.SentimentRecord{
		Ticker:     ticker,
		Score:      result.Score.InexactFloat64(),
		Confidence: result.Confidence,
		Reasoning:  result.Reasoning,
	}); err != nil {
		s.log.Error("sentiment record not persisted", "ticker", ticker, "error", err)
	}
	return result, true
}

// evaluateHedge runs the macro channel: VIX level plus the index trend
// decide whether to carry an inverse-ETF hedge. Failures here are logged
// and skipped; the hedge is protective, not critical-path.
func (s *Scheduler) evaluateHedge(ctx context.Context, marketOpen, force bool, prices map[string]decimal.Decimal) *signal.HedgeDecision {
	if !marketOpen && !force {
		return nil
	}

	vix, err := s.market.VIX()
	if err != nil {
		s.log.Error("vix unavailable, hedge check skipped", "error", err)
		return nil
	}
	indexTech, err := s.market.Technicals(ctx, "QQQ")
	if err != nil {
		s.log.Error("index data unavailable, hedge check skipped", "error", err)
		return nil
	}

	hcfg := signal.HedgeConfig{
		EnterVIX:      decimal.NewFromFloat(s.cfg.Hedge.EnterVIX),
		ExitVIX:       decimal.NewFromFloat(s.cfg.Hedge.ExitVIX),
		MaxVIX:        decimal.NewFromFloat(s.cfg.Hedge.MaxVIX),
		MaxAllocation: decimal.NewFromFloat(s.cfg.Hedge.MaxAllocation),
	}
	decision := signal.EvaluateHedge(hcfg, signal.MacroState{
		VIX:        vix,
		IndexPrice: indexTech.CurrentPrice,
		IndexSMA50: indexTech.SMA50,
	})

	symbol := s.cfg.Hedge.Symbol
	if err := s.repo.SaveDecision(&storage.DecisionLog{
		Ticker: symbol,
		Action: string(decision.Status),
		Reason: "MACRO_HEDGE",
		Detail: decision.Detail,
	}); err != nil {
		s.log.Error("hedge decision not persisted", "error", err)
	}

	switch decision.Status {
	case signal.HedgeEnter:
		s.adjustHedge(ctx, symbol, decision, prices)
	case signal.HedgeExit:
		s.unwindHedge(ctx, symbol, prices)
	}

	if s.bus != nil {
		s.bus.Publish(events.Event{
			Type:   events.TypeHedge,
			Ticker: symbol,
			Action: string(decision.Status),
			Detail: decision.Detail,
		})
	}
	return &decision
}

// adjustHedge tops the hedge position up to the target allocation of
// account equity. Already at or above target means nothing to do.
func (s *Scheduler) adjustHedge(ctx context.Context, symbol string, decision signal.HedgeDecision, prices map[string]decimal.Decimal) {
	acct, err := s.brk.GetAccount()
	if err != nil {
		s.log.Error("account unavailable, hedge not adjusted", "error", err)
		return
	}
	price, err := s.market.CurrentPrice(ctx, symbol)
	if err != nil {
		s.log.Error("hedge price unavailable", "symbol", symbol, "error", err)
		return
	}
	prices[symbol] = price

	state, err := s.ldg.GetState(symbol)
	if err != nil {
		s.log.Error("hedge ledger state unavailable", "symbol", symbol, "error", err)
		return
	}

	target := acct.Equity.Mul(decision.Allocation)
	current := state.Holdings.Mul(price)
	gap := target.Sub(current)
	if !gap.IsPositive() {
		return
	}

	limit := price.Mul(decimal.NewFromFloat(1.001)).Round(2)
	qty := gap.Div(limit).Floor()
	if !qty.IsPositive() {
		return
	}

	if _, err := s.brk.LimitBuy(symbol, qty, limit); err != nil {
		s.log.Error("hedge entry failed", "symbol", symbol, "error", err)
		return
	}
	s.log.Info("hedge extended",
		"symbol", symbol, "qty", qty.String(),
		"target", target.StringFixed(2), "detail", decision.Detail)
}

func (s *Scheduler) unwindHedge(ctx context.Context, symbol string, prices map[string]decimal.Decimal) {
	state, err := s.ldg.GetState(symbol)
	if err != nil {
		s.log.Error("hedge ledger state unavailable", "symbol", symbol, "error", err)
		return
	}
	if !state.Holdings.IsPositive() {
		return
	}

	price, err := s.market.CurrentPrice(ctx, symbol)
	if err != nil {
		s.log.Error("hedge price unavailable", "symbol", symbol, "error", err)
		return
	}
	prices[symbol] = price

	limit := price.Mul(decimal.NewFromFloat(0.995)).Round(2)
	if _, err := s.brk.LimitSell(symbol, state.Holdings, limit); err != nil {
		s.log.Error("hedge unwind failed", "symbol", symbol, "error", err)
		return
	}
	s.log.Info("hedge unwound", "symbol", symbol, "qty", state.Holdings.String())
}

// recordPerformance computes and persists the equity snapshot for this
// cycle using the prices gathered while auditing.
func (s *Scheduler) recordPerformance(results []TickerResult, prices map[string]decimal.Decimal) *Performance {
	equity, err := s.ldg.TotalEquity(prices)
	if err != nil {
		s.log.Error("equity computation failed", "error", err)
		return nil
	}

	entries, err := s.repo.ListLedgerEntries()
	if err != nil {
		s.log.Error("ledger listing failed", "error", err)
		return nil
	}
	perf := &Performance{Equity: equity}
	for _, e := range entries {
		if e.AssetName == ledger.CashAsset {
			perf.Cash = e.CashBalance
			continue
		}
		if e.Holdings.IsPositive() {
			perf.Positions++
		}
	}

	resultsJSON, _ := json.Marshal(results)
	if err := s.repo.SavePerformanceSnapshot(&storage.PerformanceSnapshot{
		Equity:         perf.Equity,
		Cash:           perf.Cash,
		PositionsCount: perf.Positions,
		ResultsJSON:    string(resultsJSON),
	}); err != nil {
		s.log.Error("performance snapshot not persisted", "error", err)
	}
	return perf
}

// DecisionSink adapts the storage repository to the engine's decision log.
type DecisionSink struct {
	Repo *storage.Repository
	Log  interface{ Error(msg string, args ...any) }
}

func (d *DecisionSink) LogDecision(dec signal.Decision) {
	err := d.Repo.SaveDecision(&storage.DecisionLog{
		Ticker: dec.Ticker,
		Action: string(dec.Action),
		Reason: string(dec.Reason),
		Detail: dec.Detail,
		Price:  dec.Price,
	})
	if err != nil && d.Log != nil {
		d.Log.Error("decision not persisted", "ticker", dec.Ticker, "error", err)
	}
}
