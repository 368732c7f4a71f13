package marketdata

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/fuggle07/paper-trader/internal/config"
	"github.com/fuggle07/paper-trader/internal/logger"
)

const maxHeadlines = 10

// Headline is one news item fed into the sentiment prompt.
type Headline struct {
	Title       string
	Summary     string
	PublishedAt time.Time
}

// NewsClient pulls recent company headlines from a Finnhub-compatible API.
type NewsClient struct {
	http   *resty.Client
	apiKey string
	log    *logger.Logger
}

func NewNewsClient(cfg *config.Config, log *logger.Logger) *NewsClient {
	return &NewsClient{
		http: resty.New().
			SetBaseURL(cfg.News.BaseURL).
			SetTimeout(10 * time.Second).
			SetRetryCount(2).
			SetRetryWaitTime(1 * time.Second),
		apiKey: cfg.News.APIKey,
		log:    log,
	}
}

type newsItem struct {
	Headline string `json:"headline"`
	Summary  string `json:"summary"`
	Datetime int64  `json:"datetime"`
}

// CompanyNews returns up to 10 headlines from the past week. An unset API
// key yields an empty slice, not an error: sentiment simply runs without
// news context.
func (c *NewsClient) CompanyNews(ctx context.Context, symbol string) ([]Headline, error) {
	if c.apiKey == "" {
		return nil, nil
	}

	var items []newsItem
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"symbol": symbol,
			"from":   time.Now().AddDate(0, 0, -7).Format("2006-01-02"),
			"to":     time.Now().Format("2006-01-02"),
			"token":  c.apiKey,
		}).
		SetResult(&items).
		Get("/company-news")
	if err != nil {
		return nil, fmt.Errorf("fetch news %s: %w", symbol, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("news API %s: status %d", symbol, resp.StatusCode())
	}

	if len(items) > maxHeadlines {
		items = items[:maxHeadlines]
	}
	headlines := make([]Headline, 0, len(items))
	for _, it := range items {
		headlines = append(headlines, Headline{
			Title:       it.Headline,
			Summary:     it.Summary,
			PublishedAt: time.Unix(it.Datetime, 0),
		})
	}
	return headlines, nil
}
