package main

import (
	"context"
	"flag"
	"os"
	osignal "os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/fuggle07/paper-trader/internal/broker"
	"github.com/fuggle07/paper-trader/internal/config"
	"github.com/fuggle07/paper-trader/internal/events"
	"github.com/fuggle07/paper-trader/internal/executor"
	"github.com/fuggle07/paper-trader/internal/fundamental"
	"github.com/fuggle07/paper-trader/internal/ledger"
	"github.com/fuggle07/paper-trader/internal/logger"
	"github.com/fuggle07/paper-trader/internal/marketdata"
	"github.com/fuggle07/paper-trader/internal/scheduler"
	"github.com/fuggle07/paper-trader/internal/sentiment"
	"github.com/fuggle07/paper-trader/internal/signal"
	"github.com/fuggle07/paper-trader/internal/storage"
	"github.com/fuggle07/paper-trader/internal/telegram"
	"github.com/fuggle07/paper-trader/internal/web"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	dbPath := flag.String("db", "trader.db", "path to sqlite database")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level)
	log.Info("starting trading bot",
		"watchlist", cfg.Trading.Watchlist, "paper", cfg.Alpaca.Paper)

	db, err := storage.NewDatabase(*dbPath)
	if err != nil {
		log.Error("database init failed", "error", err)
		os.Exit(1)
	}
	repo := storage.NewRepository(db)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := events.NewBus()
	ldg := ledger.NewManager(repo, log)
	brk := broker.NewClient(cfg, log)

	priceCache := marketdata.NewPriceCache(time.Minute)
	market := marketdata.NewService(cfg, priceCache, log)
	news := marketdata.NewNewsClient(cfg, log)
	llm := sentiment.NewAnalyzer(cfg, log)
	funds := fundamental.NewService(fundamental.NewClient(cfg, log), repo, log)

	engine := signal.NewEngine(signal.Config{
		VolThreshold:    cfg.VolThresholdDec(),
		SentimentFloor:  cfg.SentimentFloorDec(),
		MinConfidence:   cfg.Trading.MinConfidence,
		StopLossPct:     decimal.NewFromFloat(cfg.Trading.StopLossPct),
		ProfitTargetPct: decimal.NewFromFloat(cfg.Trading.ProfitTargetPct),
		Location:        cfg.ExchangeLocation(),
	}, &scheduler.DecisionSink{Repo: repo, Log: log}, log)

	exec := executor.New(cfg, brk, ldg, repo, bus, log)
	sched := scheduler.New(cfg, log, repo, ldg, engine, exec, market, news, llm, funds, brk, bus)

	if err := sched.Seed(); err != nil {
		log.Error("ledger seeding failed", "error", err)
		os.Exit(1)
	}

	// Reconcile against the brokerage before trading on local state.
	if err := sched.Reconcile(ctx); err != nil {
		log.Error("startup reconciliation failed, continuing on local state", "error", err)
	}

	brk.StreamFills(ctx, ldg, bus)
	go func() {
		if err := market.StreamPrices(ctx, cfg.Trading.Watchlist); err != nil && ctx.Err() == nil {
			log.Error("price stream down, polling only", "error", err)
		}
	}()

	notifier, err := telegram.NewNotifier(cfg, log)
	if err != nil {
		log.Error("telegram unavailable, notifications disabled", "error", err)
	}
	if notifier != nil {
		go notifier.Consume(ctx, bus.Subscribe())
	}

	go sched.Run(ctx)

	srv := web.NewServer(cfg, sched, repo, log)
	go func() {
		if err := srv.Start(); err != nil {
			log.Error("web server stopped", "error", err)
			cancel()
		}
	}()

	sigCh := make(chan os.Signal, 1)
	osignal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		log.Info("shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
	}

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("web server shutdown failed", "error", err)
	}
	log.Info("trading bot stopped")
}
