// Package sentiment scores recent headlines for a ticker with an LLM.
// The analyzer is advisory: any failure degrades to a neutral score so a
// flaky or slow model can never stall the trading cycle.
package sentiment

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"github.com/shopspring/decimal"

	"github.com/fuggle07/paper-trader/internal/config"
	"github.com/fuggle07/paper-trader/internal/logger"
	"github.com/fuggle07/paper-trader/internal/marketdata"
)

const systemPrompt = `You are a financial news analyst. Given recent headlines about a company, respond with a single JSON object and nothing else:
{"score": <float in [-1.0, 1.0], -1 = extremely bearish, 1 = extremely bullish>, "confidence": <int in [0, 100]>, "reasoning": "<one sentence>"}
If the headlines are mixed or uninformative, use a score near 0 with low confidence.`

// Result is the analyzer's verdict for one ticker.
type Result struct {
	Score      decimal.Decimal
	Confidence int
	Reasoning  string
}

// Neutral is the fallback used when analysis fails or is unavailable.
func Neutral() Result {
	return Result{Score: decimal.Zero, Confidence: 0, Reasoning: "sentiment unavailable, defaulting to neutral"}
}

type Analyzer struct {
	client  *openai.Client
	model   string
	timeout func(context.Context) (context.Context, context.CancelFunc)
	log     *logger.Logger
}

func NewAnalyzer(cfg *config.Config, log *logger.Logger) *Analyzer {
	clientCfg := openai.DefaultConfig(cfg.LLM.APIKey)
	if cfg.LLM.BaseURL != "" {
		clientCfg.BaseURL = cfg.LLM.BaseURL
	}

	timeout := cfg.LLMTimeout()
	return &Analyzer{
		client: openai.NewClientWithConfig(clientCfg),
		model:  cfg.LLM.Model,
		timeout: func(ctx context.Context) (context.Context, context.CancelFunc) {
			return context.WithTimeout(ctx, timeout)
		},
		log: log,
	}
}

// Analyze scores the headlines for ticker. Errors are returned for logging;
// callers should substitute Neutral() and continue.
func (a *Analyzer) Analyze(ctx context.Context, ticker string, headlines []marketdata.Headline) (Result, error) {
	if len(headlines) == 0 {
		return Neutral(), nil
	}

	ctx, cancel := a.timeout(ctx)
	defer cancel()

	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       a.model,
		Temperature: 0.2,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildPrompt(ticker, headlines)},
		},
	})
	if err != nil {
		return Neutral(), fmt.Errorf("sentiment request %s: %w", ticker, err)
	}
	if len(resp.Choices) == 0 {
		return Neutral(), fmt.Errorf("sentiment request %s: empty response", ticker)
	}

	result, err := parseResponse(resp.Choices[0].Message.Content)
	if err != nil {
		return Neutral(), fmt.Errorf("sentiment parse %s: %w", ticker, err)
	}

	a.log.Debug("sentiment scored",
		"ticker", ticker, "score", result.Score.StringFixed(2),
		"confidence", result.Confidence)
	return result, nil
}

func buildPrompt(ticker string, headlines []marketdata.Headline) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Company: %s\nRecent headlines:\n", ticker)
	for i, h := range headlines {
		fmt.Fprintf(&sb, "%d. %s", i+1, h.Title)
		if h.Summary != "" {
			fmt.Fprintf(&sb, " - %s", h.Summary)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
