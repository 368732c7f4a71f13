package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const minimalConfig = `
alpaca:
  api_key: test-key
  api_secret: test-secret
  paper: true
trading:
  watchlist: [AAPL, MSFT]
`

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Trading.Interval != "30m" {
		t.Fatalf("interval = %q, want 30m", cfg.Trading.Interval)
	}
	if cfg.Trading.VolThreshold != 0.35 {
		t.Fatalf("vol threshold = %v, want 0.35", cfg.Trading.VolThreshold)
	}
	if cfg.Trading.MinConfidence != 65 {
		t.Fatalf("min confidence = %v, want 65", cfg.Trading.MinConfidence)
	}
	if cfg.Hedge.Symbol != "PSQ" || cfg.Hedge.EnterVIX != 28 || cfg.Hedge.ExitVIX != 25 {
		t.Fatalf("hedge defaults wrong: %+v", cfg.Hedge)
	}
	if cfg.LLM.TimeoutSeconds != 30 {
		t.Fatalf("llm timeout = %d, want 30", cfg.LLM.TimeoutSeconds)
	}
	if cfg.Web.Port != 8080 {
		t.Fatalf("port = %d, want 8080", cfg.Web.Port)
	}
	if got := cfg.TradingInterval(); got != 30*time.Minute {
		t.Fatalf("TradingInterval() = %v, want 30m", got)
	}
}

func TestLoadRequiresCredentials(t *testing.T) {
	// Make sure ambient credentials cannot satisfy validation.
	t.Setenv("APCA_API_KEY_ID", "")
	t.Setenv("APCA_API_SECRET_KEY", "")

	_, err := Load(writeConfig(t, "trading:\n  watchlist: [AAPL]\n"))
	if err == nil {
		t.Fatal("missing alpaca credentials must fail validation")
	}
}

func TestLoadRequiresWatchlist(t *testing.T) {
	_, err := Load(writeConfig(t, "alpaca:\n  api_key: k\n  api_secret: s\n"))
	if err == nil {
		t.Fatal("empty watchlist must fail validation")
	}
}

func TestEnvFillsSecrets(t *testing.T) {
	t.Setenv("APCA_API_KEY_ID", "env-key")
	t.Setenv("APCA_API_SECRET_KEY", "env-secret")
	t.Setenv("LLM_API_KEY", "env-llm")

	cfg, err := Load(writeConfig(t, "trading:\n  watchlist: [AAPL]\n"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Alpaca.APIKey != "env-key" || cfg.Alpaca.APISecret != "env-secret" {
		t.Fatal("alpaca credentials should come from the environment")
	}
	if cfg.LLM.APIKey != "env-llm" {
		t.Fatal("llm key should come from the environment")
	}
}

func TestFileBeatsEnvForSecrets(t *testing.T) {
	t.Setenv("APCA_API_KEY_ID", "env-key")
	cfg, err := Load(writeConfig(t, minimalConfig))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Alpaca.APIKey != "test-key" {
		t.Fatalf("api key = %q, want the file value", cfg.Alpaca.APIKey)
	}
}

func TestHedgeBandMustBeOrdered(t *testing.T) {
	body := minimalConfig + `
hedge:
  enter_vix: 25
  exit_vix: 28
`
	if _, err := Load(writeConfig(t, body)); err == nil {
		t.Fatal("exit above enter must fail validation")
	}
}

func TestBadIntervalRejected(t *testing.T) {
	body := minimalConfig + `
  interval: soon
`
	// YAML indentation folds "interval" under trading.
	if _, err := Load(writeConfig(t, body)); err == nil {
		t.Fatal("unparseable interval must fail validation")
	}
}

func TestTelegramValidation(t *testing.T) {
	body := minimalConfig + `
telegram:
  enabled: true
`
	if _, err := Load(writeConfig(t, body)); err == nil {
		t.Fatal("enabled telegram without a token must fail validation")
	}
}
