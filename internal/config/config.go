package config

import (
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Alpaca       AlpacaConfig       `yaml:"alpaca"`
	LLM          LLMConfig          `yaml:"llm"`
	Fundamentals FundamentalsConfig `yaml:"fundamentals"`
	News         NewsConfig         `yaml:"news"`
	Trading      TradingConfig      `yaml:"trading"`
	Hedge        HedgeConfig        `yaml:"hedge"`
	Telegram     TelegramConfig     `yaml:"telegram"`
	Web          WebConfig          `yaml:"web"`
	Logging      LoggingConfig      `yaml:"logging"`
}

type AlpacaConfig struct {
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
	Paper     bool   `yaml:"paper"`
}

type LLMConfig struct {
	APIKey         string `yaml:"api_key"`
	BaseURL        string `yaml:"base_url"`
	Model          string `yaml:"model"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

type FundamentalsConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

type NewsConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

type TradingConfig struct {
	Watchlist            []string `yaml:"watchlist"`
	Interval             string   `yaml:"interval"`
	TickerDelayMs        int      `yaml:"ticker_delay_ms"`
	ReconcileInterval    string   `yaml:"reconcile_interval"`
	DefaultCash          float64  `yaml:"default_cash"`
	VolThreshold         float64  `yaml:"vol_threshold"`
	LowExposureVolFactor float64  `yaml:"low_exposure_vol_factor"`
	SentimentFloor       float64  `yaml:"sentiment_floor"`
	MinConfidence        int      `yaml:"min_confidence"`
	StopLossPct          float64  `yaml:"stop_loss_pct"`
	ProfitTargetPct      float64  `yaml:"profit_target_pct"`
	EntryLimitPct        float64  `yaml:"entry_limit_pct"`
	BracketStopPct       float64  `yaml:"bracket_stop_pct"`
	BracketTakeProfitPct float64  `yaml:"bracket_take_profit_pct"`
	SellLimitPct         float64  `yaml:"sell_limit_pct"`
	LowExposureValue     float64  `yaml:"low_exposure_value"`
}

type HedgeConfig struct {
	Symbol        string  `yaml:"symbol"`
	EnterVIX      float64 `yaml:"enter_vix"`
	ExitVIX       float64 `yaml:"exit_vix"`
	MaxVIX        float64 `yaml:"max_vix"`
	MaxAllocation float64 `yaml:"max_allocation"`
}

type TelegramConfig struct {
	Enabled  bool   `yaml:"enabled"`
	BotToken string `yaml:"bot_token"`
	ChatID   int64  `yaml:"chat_id"`
}

type WebConfig struct {
	Port int `yaml:"port"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyEnv(cfg)
	setDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// applyEnv lets secrets come from the environment instead of the YAML file.
func applyEnv(cfg *Config) {
	if v := os.Getenv("APCA_API_KEY_ID"); v != "" && cfg.Alpaca.APIKey == "" {
		cfg.Alpaca.APIKey = v
	}
	if v := os.Getenv("APCA_API_SECRET_KEY"); v != "" && cfg.Alpaca.APISecret == "" {
		cfg.Alpaca.APISecret = v
	}
	if v := os.Getenv("LLM_API_KEY"); v != "" && cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("FUNDAMENTALS_API_KEY"); v != "" && cfg.Fundamentals.APIKey == "" {
		cfg.Fundamentals.APIKey = v
	}
	if v := os.Getenv("NEWS_API_KEY"); v != "" && cfg.News.APIKey == "" {
		cfg.News.APIKey = v
	}
}

func setDefaults(cfg *Config) {
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = "gpt-4o-mini"
	}
	if cfg.LLM.TimeoutSeconds == 0 {
		cfg.LLM.TimeoutSeconds = 30
	}
	if cfg.Fundamentals.BaseURL == "" {
		cfg.Fundamentals.BaseURL = "https://financialmodelingprep.com/api/v3"
	}
	if cfg.News.BaseURL == "" {
		cfg.News.BaseURL = "https://finnhub.io/api/v1"
	}
	if cfg.Trading.Interval == "" {
		cfg.Trading.Interval = "30m"
	}
	if cfg.Trading.TickerDelayMs == 0 {
		cfg.Trading.TickerDelayMs = 2000
	}
	if cfg.Trading.ReconcileInterval == "" {
		cfg.Trading.ReconcileInterval = "15m"
	}
	if cfg.Trading.DefaultCash == 0 {
		cfg.Trading.DefaultCash = 50000
	}
	if cfg.Trading.VolThreshold == 0 {
		cfg.Trading.VolThreshold = 0.35
	}
	if cfg.Trading.LowExposureVolFactor == 0 {
		cfg.Trading.LowExposureVolFactor = 1.5
	}
	if cfg.Trading.SentimentFloor == 0 {
		cfg.Trading.SentimentFloor = 0.2
	}
	if cfg.Trading.MinConfidence == 0 {
		cfg.Trading.MinConfidence = 65
	}
	if cfg.Trading.StopLossPct == 0 {
		cfg.Trading.StopLossPct = 0.10
	}
	if cfg.Trading.ProfitTargetPct == 0 {
		cfg.Trading.ProfitTargetPct = 0.05
	}
	if cfg.Trading.EntryLimitPct == 0 {
		cfg.Trading.EntryLimitPct = 0.001
	}
	if cfg.Trading.BracketStopPct == 0 {
		cfg.Trading.BracketStopPct = 0.12
	}
	if cfg.Trading.BracketTakeProfitPct == 0 {
		cfg.Trading.BracketTakeProfitPct = 0.10
	}
	if cfg.Trading.SellLimitPct == 0 {
		cfg.Trading.SellLimitPct = 0.005
	}
	if cfg.Trading.LowExposureValue == 0 {
		cfg.Trading.LowExposureValue = 1000
	}
	if cfg.Hedge.Symbol == "" {
		cfg.Hedge.Symbol = "PSQ"
	}
	if cfg.Hedge.EnterVIX == 0 {
		cfg.Hedge.EnterVIX = 28
	}
	if cfg.Hedge.ExitVIX == 0 {
		cfg.Hedge.ExitVIX = 25
	}
	if cfg.Hedge.MaxVIX == 0 {
		cfg.Hedge.MaxVIX = 50
	}
	if cfg.Hedge.MaxAllocation == 0 {
		cfg.Hedge.MaxAllocation = 0.10
	}
	if cfg.Web.Port == 0 {
		cfg.Web.Port = 8080
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
}

func (c *Config) Validate() error {
	if c.Alpaca.APIKey == "" || c.Alpaca.APISecret == "" {
		return fmt.Errorf("alpaca.api_key and alpaca.api_secret are required")
	}
	if len(c.Trading.Watchlist) == 0 {
		return fmt.Errorf("trading.watchlist must not be empty")
	}
	if _, err := time.ParseDuration(c.Trading.Interval); err != nil {
		return fmt.Errorf("invalid trading.interval %q: %w", c.Trading.Interval, err)
	}
	if _, err := time.ParseDuration(c.Trading.ReconcileInterval); err != nil {
		return fmt.Errorf("invalid trading.reconcile_interval %q: %w", c.Trading.ReconcileInterval, err)
	}
	if c.Hedge.ExitVIX >= c.Hedge.EnterVIX {
		return fmt.Errorf("hedge.exit_vix (%v) must be below hedge.enter_vix (%v)", c.Hedge.ExitVIX, c.Hedge.EnterVIX)
	}
	if c.Telegram.Enabled {
		if c.Telegram.BotToken == "" {
			return fmt.Errorf("telegram.bot_token is required when telegram is enabled")
		}
		if c.Telegram.ChatID == 0 {
			return fmt.Errorf("telegram.chat_id is required when telegram is enabled")
		}
	}
	return nil
}

// ExchangeLocation is the exchange's local time zone for market-hours checks.
func (c *Config) ExchangeLocation() *time.Location {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		loc = time.FixedZone("EST", -5*60*60)
	}
	return loc
}

func (c *Config) TradingInterval() time.Duration {
	d, _ := time.ParseDuration(c.Trading.Interval)
	return d
}

func (c *Config) ReconcileInterval() time.Duration {
	d, _ := time.ParseDuration(c.Trading.ReconcileInterval)
	return d
}

func (c *Config) TickerDelay() time.Duration {
	return time.Duration(c.Trading.TickerDelayMs) * time.Millisecond
}

func (c *Config) LLMTimeout() time.Duration {
	return time.Duration(c.LLM.TimeoutSeconds) * time.Second
}

func (c *Config) VolThresholdDec() decimal.Decimal {
	return decimal.NewFromFloat(c.Trading.VolThreshold)
}

func (c *Config) SentimentFloorDec() decimal.Decimal {
	return decimal.NewFromFloat(c.Trading.SentimentFloor)
}

func (c *Config) DefaultCashDec() decimal.Decimal {
	return decimal.NewFromFloat(c.Trading.DefaultCash)
}
