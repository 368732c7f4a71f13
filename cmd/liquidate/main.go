// Command liquidate cancels every open order and market-sells every
// position at the brokerage, then reconciles the local ledger. Emergency
// use only.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/fuggle07/paper-trader/internal/broker"
	"github.com/fuggle07/paper-trader/internal/config"
	"github.com/fuggle07/paper-trader/internal/ledger"
	"github.com/fuggle07/paper-trader/internal/logger"
	"github.com/fuggle07/paper-trader/internal/storage"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	dbPath := flag.String("db", "trader.db", "path to sqlite database")
	confirm := flag.Bool("yes", false, "actually liquidate; without it, dry run")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Logging.Level)

	brk := broker.NewClient(cfg, log)
	positions, err := brk.GetPositions()
	if err != nil {
		log.Error("position fetch failed", "error", err)
		os.Exit(1)
	}

	if len(positions) == 0 {
		log.Info("no positions to liquidate")
	}
	for _, p := range positions {
		log.Info("position", "symbol", p.Symbol, "qty", p.Qty.String(),
			"avg_entry", p.AvgEntryPrice.StringFixed(2))
	}

	if !*confirm {
		log.Info("dry run; pass -yes to cancel orders and sell everything")
		return
	}

	cancelled, err := brk.CancelOpenOrders()
	if err != nil {
		log.Error("order cancellation failed", "error", err)
		os.Exit(1)
	}
	log.Info("open orders cancelled", "count", cancelled)

	for _, p := range positions {
		if _, err := brk.MarketSell(p.Symbol, p.Qty); err != nil {
			log.Error("liquidation sell failed", "symbol", p.Symbol, "error", err)
			continue
		}
		log.Info("liquidation sell submitted", "symbol", p.Symbol, "qty", p.Qty.String())
	}

	// Pull the post-liquidation account state into the local ledger.
	db, err := storage.NewDatabase(*dbPath)
	if err != nil {
		log.Error("database init failed, ledger not reconciled", "error", err)
		os.Exit(1)
	}
	repo := storage.NewRepository(db)
	ldg := ledger.NewManager(repo, log)

	acct, err := brk.GetAccount()
	if err != nil {
		log.Error("account fetch failed, ledger not reconciled", "error", err)
		os.Exit(1)
	}

	remaining, err := brk.GetPositions()
	if err != nil {
		log.Error("position refetch failed, ledger not reconciled", "error", err)
		os.Exit(1)
	}
	truth := ledger.Truth{Cash: acct.Cash}
	for _, p := range remaining {
		truth.Positions = append(truth.Positions, ledger.TruthPosition{
			Ticker:        p.Symbol,
			Qty:           p.Qty,
			AvgEntryPrice: p.AvgEntryPrice,
		})
	}
	if err := ldg.Reconcile(truth); err != nil {
		log.Error("ledger reconciliation failed", "error", err)
		os.Exit(1)
	}

	log.Info("liquidation complete")
}
