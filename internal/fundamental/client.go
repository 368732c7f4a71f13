// Package fundamental screens tickers on financial health: quick ratio
// checks, a Piotroski F-Score, a DCF fair value and a composite quality
// score. Data comes from a Financial Modeling Prep compatible API and is
// cached per ticker per day since statements do not change intraday.
package fundamental

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/fuggle07/paper-trader/internal/config"
	"github.com/fuggle07/paper-trader/internal/logger"
)

// ErrForbidden marks a plan-limit rejection from the API. Treated as
// "no data", never as an unhealthy ticker.
var ErrForbidden = fmt.Errorf("fundamentals API: access forbidden")

type Client struct {
	http   *resty.Client
	apiKey string
	log    *logger.Logger
}

func NewClient(cfg *config.Config, log *logger.Logger) *Client {
	return &Client{
		http: resty.New().
			SetBaseURL(cfg.Fundamentals.BaseURL).
			SetTimeout(15 * time.Second).
			SetRetryCount(2).
			SetRetryWaitTime(1 * time.Second),
		apiKey: cfg.Fundamentals.APIKey,
		log:    log,
	}
}

type ratiosTTM struct {
	CurrentRatio    float64 `json:"currentRatioTTM"`
	DebtEquity      float64 `json:"debtEquityRatioTTM"`
	NetProfitMargin float64 `json:"netProfitMarginTTM"`
	ReturnOnEquity  float64 `json:"returnOnEquityTTM"`
	GrossMargin     float64 `json:"grossProfitMarginTTM"`
}

type incomeRow struct {
	Revenue     float64 `json:"revenue"`
	GrossProfit float64 `json:"grossProfit"`
	NetIncome   float64 `json:"netIncome"`
	SharesOut   float64 `json:"weightedAverageShsOut"`
}

type balanceRow struct {
	TotalAssets        float64 `json:"totalAssets"`
	CurrentAssets      float64 `json:"totalCurrentAssets"`
	CurrentLiabilities float64 `json:"totalCurrentLiabilities"`
	LongTermDebt       float64 `json:"longTermDebt"`
}

type cashflowRow struct {
	OperatingCashFlow float64 `json:"operatingCashFlow"`
}

type dcfRow struct {
	DCF        float64 `json:"dcf"`
	StockPrice float64 `json:"Stock Price"`
}

func get[T any](ctx context.Context, c *Client, path string, params map[string]string) ([]T, error) {
	if params == nil {
		params = map[string]string{}
	}
	params["apikey"] = c.apiKey

	var out []T
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(params).
		SetResult(&out).
		Get(path)
	if err != nil {
		return nil, fmt.Errorf("fundamentals GET %s: %w", path, err)
	}
	if resp.StatusCode() == http.StatusForbidden {
		return nil, ErrForbidden
	}
	if resp.IsError() {
		return nil, fmt.Errorf("fundamentals GET %s: status %d", path, resp.StatusCode())
	}
	return out, nil
}

func (c *Client) ratios(ctx context.Context, ticker string) (*ratiosTTM, error) {
	rows, err := get[ratiosTTM](ctx, c, "/ratios-ttm/"+ticker, nil)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("no ratio data for %s", ticker)
	}
	return &rows[0], nil
}

// statements fetches the two most recent annual statements, newest first.
func (c *Client) statements(ctx context.Context, ticker string) ([]incomeRow, []balanceRow, []cashflowRow, error) {
	limit := map[string]string{"limit": "2"}

	income, err := get[incomeRow](ctx, c, "/income-statement/"+ticker, limit)
	if err != nil {
		return nil, nil, nil, err
	}
	balance, err := get[balanceRow](ctx, c, "/balance-sheet-statement/"+ticker, limit)
	if err != nil {
		return nil, nil, nil, err
	}
	cashflow, err := get[cashflowRow](ctx, c, "/cash-flow-statement/"+ticker, limit)
	if err != nil {
		return nil, nil, nil, err
	}
	return income, balance, cashflow, nil
}

func (c *Client) dcf(ctx context.Context, ticker string) (*dcfRow, error) {
	rows, err := get[dcfRow](ctx, c, "/discounted-cash-flow/"+ticker, nil)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("no DCF data for %s", ticker)
	}
	return &rows[0], nil
}
