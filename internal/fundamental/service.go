package fundamental

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fuggle07/paper-trader/internal/logger"
	"github.com/fuggle07/paper-trader/internal/storage"
)

const (
	minCurrentRatio = 1.0
	maxDebtEquity   = 2.0
	minDeepFScore   = 5
)

// Report is the screening verdict for one ticker. Nil pointer fields mean
// the underlying data was unavailable; missing data never blocks a trade,
// so the health flags default to true on API failure.
type Report struct {
	Ticker        string           `json:"ticker"`
	IsHealthy     bool             `json:"is_healthy"`
	IsDeepHealthy bool             `json:"is_deep_healthy"`
	FScore        *int             `json:"f_score,omitempty"`
	QualityScore  *int             `json:"quality_score,omitempty"`
	FairValue     *decimal.Decimal `json:"fair_value,omitempty"`
	Undervalued   *bool            `json:"undervalued,omitempty"`
}

func permissiveReport(ticker string) *Report {
	return &Report{Ticker: ticker, IsHealthy: true, IsDeepHealthy: true}
}

type Service struct {
	client *Client
	repo   *storage.Repository
	now    func() time.Time
	log    *logger.Logger
}

func NewService(client *Client, repo *storage.Repository, log *logger.Logger) *Service {
	return &Service{client: client, repo: repo, now: time.Now, log: log}
}

// GetReport returns the screening report for ticker, computing it at most
// once per calendar day. API failures and plan limits degrade to a
// permissive report; the screen exists to veto clearly sick companies, not
// to punish missing data.
func (s *Service) GetReport(ctx context.Context, ticker string) (*Report, error) {
	date := s.now().Format("2006-01-02")

	payload, err := s.repo.GetOrCompute(ticker, date, func() (string, error) {
		report, err := s.compute(ctx, ticker)
		if err != nil {
			return "", err
		}
		raw, err := json.Marshal(report)
		if err != nil {
			return "", err
		}
		return string(raw), nil
	})
	if err != nil {
		if errors.Is(err, ErrForbidden) {
			s.log.Debug("fundamentals not available on this plan, skipping screen", "ticker", ticker)
		} else {
			s.log.Error("fundamental screen failed, failing open", "ticker", ticker, "error", err)
		}
		return permissiveReport(ticker), nil
	}

	var report Report
	if err := json.Unmarshal([]byte(payload), &report); err != nil {
		s.log.Error("corrupt fundamental cache entry, failing open", "ticker", ticker, "date", date)
		return permissiveReport(ticker), nil
	}
	return &report, nil
}

func (s *Service) compute(ctx context.Context, ticker string) (*Report, error) {
	ratios, err := s.client.ratios(ctx, ticker)
	if err != nil {
		return nil, err
	}

	report := &Report{
		Ticker:        ticker,
		IsHealthy:     ratios.CurrentRatio >= minCurrentRatio && ratios.DebtEquity < maxDebtEquity,
		IsDeepHealthy: true,
	}

	income, balance, cashflow, err := s.client.statements(ctx, ticker)
	if err != nil {
		s.log.Debug("statement fetch failed, skipping deep screen", "ticker", ticker, "error", err)
	} else if fscore, ok := piotroskiFScore(income, balance, cashflow); ok {
		report.FScore = &fscore
		report.IsDeepHealthy = deepHealthy(fscore)
	}

	quality := qualityScore(ratios, report.FScore)
	report.QualityScore = &quality

	if dcf, err := s.client.dcf(ctx, ticker); err == nil && dcf.DCF > 0 {
		fv := decimal.NewFromFloat(dcf.DCF)
		report.FairValue = &fv
		if dcf.StockPrice > 0 {
			under := dcf.StockPrice < dcf.DCF
			report.Undervalued = &under
		}
	}

	return report, nil
}

// deepHealthy gates on the Piotroski composite. Scores run 0-9; below five
// the signals are mixed at best.
func deepHealthy(fscore int) bool {
	return fscore >= minDeepFScore
}

// qualityScore folds the ratio profile and F-Score into a 0-100 composite.
// It is informational; only the health flags gate trades.
func qualityScore(r *ratiosTTM, fscore *int) int {
	score := 50
	if r.ReturnOnEquity > 0.15 {
		score += 10
	}
	if r.GrossMargin > 0.40 {
		score += 10
	}
	if r.NetProfitMargin > 0.10 {
		score += 10
	}
	if fscore != nil && *fscore >= 7 {
		score += 10
	}
	if r.DebtEquity > maxDebtEquity {
		score -= 20
	}
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return score
}
