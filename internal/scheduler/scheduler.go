// Package scheduler drives the bot: the periodic audit cycle over the
// watchlist, the macro hedge check, and the reconciliation job that keeps
// the local ledger honest against the brokerage.
package scheduler

import (
	"context"
	"strings"
	"time"

	"github.com/fuggle07/paper-trader/internal/broker"
	"github.com/fuggle07/paper-trader/internal/config"
	"github.com/fuggle07/paper-trader/internal/events"
	"github.com/fuggle07/paper-trader/internal/executor"
	"github.com/fuggle07/paper-trader/internal/fundamental"
	"github.com/fuggle07/paper-trader/internal/ledger"
	"github.com/fuggle07/paper-trader/internal/logger"
	"github.com/fuggle07/paper-trader/internal/marketdata"
	"github.com/fuggle07/paper-trader/internal/sentiment"
	"github.com/fuggle07/paper-trader/internal/signal"
	"github.com/fuggle07/paper-trader/internal/storage"
)

type Scheduler struct {
	cfg    *config.Config
	log    *logger.Logger
	repo   *storage.Repository
	ldg    *ledger.Manager
	engine *signal.Engine
	exec   *executor.Executor
	market *marketdata.Service
	news   *marketdata.NewsClient
	llm    *sentiment.Analyzer
	funds  *fundamental.Service
	brk    *broker.Client
	bus    *events.Bus
}

func New(
	cfg *config.Config,
	log *logger.Logger,
	repo *storage.Repository,
	ldg *ledger.Manager,
	engine *signal.Engine,
	exec *executor.Executor,
	market *marketdata.Service,
	news *marketdata.NewsClient,
	llm *sentiment.Analyzer,
	funds *fundamental.Service,
	brk *broker.Client,
	bus *events.Bus,
) *Scheduler {
	return &Scheduler{
		cfg: cfg, log: log, repo: repo, ldg: ldg, engine: engine,
		exec: exec, market: market, news: news, llm: llm, funds: funds,
		brk: brk, bus: bus,
	}
}

// Seed makes sure every watchlist ticker and the hedge symbol have ledger
// rows before the first cycle runs.
func (s *Scheduler) Seed() error {
	defaultCash := s.cfg.DefaultCashDec()
	for _, ticker := range s.cfg.Trading.Watchlist {
		if err := s.ldg.EnsureSeeded(strings.ToUpper(ticker), defaultCash); err != nil {
			return err
		}
	}
	return s.ldg.EnsureSeeded(s.cfg.Hedge.Symbol, defaultCash)
}

// Run blocks until ctx is cancelled, firing the audit cycle on the trading
// interval and reconciliation on its own interval. An immediate cycle runs
// at startup so a restart mid-session does not wait half an hour to act.
func (s *Scheduler) Run(ctx context.Context) {
	auditTicker := time.NewTicker(s.cfg.TradingInterval())
	defer auditTicker.Stop()
	reconcileTicker := time.NewTicker(s.cfg.ReconcileInterval())
	defer reconcileTicker.Stop()

	s.safeCycle(ctx)

	for {
		select {
		case <-ctx.Done():
			s.log.Info("scheduler stopped")
			return
		case <-auditTicker.C:
			s.safeCycle(ctx)
		case <-reconcileTicker.C:
			s.safeReconcile(ctx)
		}
	}
}

// safeCycle runs one audit cycle, converting a panic anywhere in the cycle
// into a logged error so the loop keeps running.
func (s *Scheduler) safeCycle(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("audit cycle panicked", "panic", r)
		}
	}()

	if _, err := s.RunCycle(ctx, false); err != nil {
		s.log.Error("audit cycle failed", "error", err)
	}
}

func (s *Scheduler) safeReconcile(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("reconciliation panicked", "panic", r)
		}
	}()

	if err := s.Reconcile(ctx); err != nil {
		s.log.Error("reconciliation failed", "error", err)
	}
}

// Reconcile overwrites the local ledger with the brokerage's account state
// and upgrades execution rows whose orders the brokerage reports as filled.
// The brokerage is the source of truth; local records only ever yield.
func (s *Scheduler) Reconcile(ctx context.Context) error {
	acct, err := s.brk.GetAccount()
	if err != nil {
		return err
	}
	positions, err := s.brk.GetPositions()
	if err != nil {
		return err
	}

	truth := ledger.Truth{Cash: acct.Cash}
	for _, p := range positions {
		truth.Positions = append(truth.Positions, ledger.TruthPosition{
			Ticker:        p.Symbol,
			Qty:           p.Qty,
			AvgEntryPrice: p.AvgEntryPrice,
		})
	}
	if err := s.ldg.Reconcile(truth); err != nil {
		return err
	}

	orders, err := s.brk.GetOrders("closed", 200)
	if err != nil {
		s.log.Error("closed order fetch failed, confirmations deferred", "error", err)
		return nil
	}

	confirmed := 0
	for _, o := range orders {
		if o.Status != "filled" || o.FilledAvgPrice == nil {
			continue
		}
		n, err := s.repo.ConfirmExecution(o.ID, *o.FilledAvgPrice, o.FilledQty)
		if err != nil {
			s.log.Error("execution confirmation failed", "order_id", o.ID, "error", err)
			continue
		}
		confirmed += int(n)
	}
	if confirmed > 0 {
		s.log.Info("executions confirmed against brokerage", "count", confirmed)
	}
	return nil
}
