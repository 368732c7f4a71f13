package marketdata

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

const (
	smaShortWindow  = 20
	smaLongWindow   = 50
	bollingerWindow = 20
	rsiWindow       = 14
)

// Technicals is the indicator set the decision engine consumes, computed
// over daily closes. RSI is nil when there is not enough history for it.
type Technicals struct {
	CurrentPrice decimal.Decimal
	SMA20        decimal.Decimal
	SMA50        decimal.Decimal
	BBUpper      decimal.Decimal
	BBLower      decimal.Decimal
	RSI          *decimal.Decimal
}

// ComputeTechnicals derives the indicator set from daily closes ordered
// oldest first. At least 50 closes are required.
func ComputeTechnicals(closes []float64) (*Technicals, error) {
	if len(closes) < smaLongWindow {
		return nil, fmt.Errorf("need %d closes, have %d", smaLongWindow, len(closes))
	}

	last := closes[len(closes)-1]
	mean20 := mean(closes[len(closes)-bollingerWindow:])
	sigma := stddev(closes[len(closes)-bollingerWindow:], mean20)

	t := &Technicals{
		CurrentPrice: decimal.NewFromFloat(last),
		SMA20:        decimal.NewFromFloat(mean(closes[len(closes)-smaShortWindow:])),
		SMA50:        decimal.NewFromFloat(mean(closes[len(closes)-smaLongWindow:])),
		BBUpper:      decimal.NewFromFloat(mean20 + 2*sigma),
		BBLower:      decimal.NewFromFloat(mean20 - 2*sigma),
	}

	if rsi, ok := computeRSI(closes, rsiWindow); ok {
		v := decimal.NewFromFloat(rsi)
		t.RSI = &v
	}
	return t, nil
}

func mean(xs []float64) float64 {
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func stddev(xs []float64, mu float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		d := x - mu
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(xs)))
}

// computeRSI is Wilder's smoothed RSI over the given period.
func computeRSI(closes []float64, period int) (float64, bool) {
	if len(closes) < period+1 {
		return 0, false
	}

	gains, losses := 0.0, 0.0
	for i := 1; i <= period; i++ {
		delta := closes[i] - closes[i-1]
		if delta > 0 {
			gains += delta
		} else {
			losses -= delta
		}
	}
	avgGain := gains / float64(period)
	avgLoss := losses / float64(period)

	for i := period + 1; i < len(closes); i++ {
		delta := closes[i] - closes[i-1]
		gain, loss := 0.0, 0.0
		if delta > 0 {
			gain = delta
		} else {
			loss = -delta
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
	}

	if avgLoss == 0 {
		return 100, true
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs), true
}
