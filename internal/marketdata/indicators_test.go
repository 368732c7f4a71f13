package marketdata

import (
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func ramp(n int) []float64 {
	xs := make([]float64, n)
	for i := range xs {
		xs[i] = float64(i + 1)
	}
	return xs
}

func approxEqual(t *testing.T, name string, got decimal.Decimal, want float64) {
	t.Helper()
	g, _ := got.Float64()
	if math.Abs(g-want) > 1e-9 {
		t.Fatalf("%s = %v, want %v", name, g, want)
	}
}

func TestComputeTechnicalsRequiresHistory(t *testing.T) {
	if _, err := ComputeTechnicals(ramp(49)); err == nil {
		t.Fatal("49 closes must not be enough for the 50-day SMA")
	}
}

func TestComputeTechnicalsOnRamp(t *testing.T) {
	tech, err := ComputeTechnicals(ramp(50))
	if err != nil {
		t.Fatal(err)
	}

	approxEqual(t, "current", tech.CurrentPrice, 50)
	approxEqual(t, "sma20", tech.SMA20, 40.5)
	approxEqual(t, "sma50", tech.SMA50, 25.5)

	// Bollinger over the last 20 closes (31..50): mean 40.5, variance 33.25.
	sigma := math.Sqrt(33.25)
	approxEqual(t, "bb upper", tech.BBUpper, 40.5+2*sigma)
	approxEqual(t, "bb lower", tech.BBLower, 40.5-2*sigma)

	if tech.RSI == nil {
		t.Fatal("50 closes should be enough history for RSI")
	}
	// A monotonic ramp has no down days.
	approxEqual(t, "rsi", *tech.RSI, 100)
}

func TestRSIExtremes(t *testing.T) {
	down := make([]float64, 30)
	for i := range down {
		down[i] = float64(100 - i)
	}
	rsi, ok := computeRSI(down, 14)
	if !ok {
		t.Fatal("expected RSI to be computable")
	}
	if rsi != 0 {
		t.Fatalf("pure downtrend RSI = %v, want 0", rsi)
	}

	if _, ok := computeRSI(ramp(10), 14); ok {
		t.Fatal("10 closes must not be enough for a 14-period RSI")
	}
}

func TestRSIMidrange(t *testing.T) {
	// Alternate +2/-1 moves: more gain than loss, RSI firmly above 50
	// without pegging at 100.
	closes := []float64{100}
	for i := 0; i < 30; i++ {
		last := closes[len(closes)-1]
		if i%2 == 0 {
			closes = append(closes, last+2)
		} else {
			closes = append(closes, last-1)
		}
	}
	rsi, ok := computeRSI(closes, 14)
	if !ok {
		t.Fatal("expected RSI to be computable")
	}
	if rsi <= 50 || rsi >= 100 {
		t.Fatalf("RSI = %v, want strictly between 50 and 100", rsi)
	}
}

func TestPriceCacheTTL(t *testing.T) {
	c := NewPriceCache(20 * time.Millisecond)

	if _, ok := c.Get("AAPL"); ok {
		t.Fatal("empty cache must miss")
	}

	c.Set("AAPL", 123.45)
	if p, ok := c.Get("AAPL"); !ok || p != 123.45 {
		t.Fatalf("got %v/%v, want 123.45 hit", p, ok)
	}

	time.Sleep(30 * time.Millisecond)
	if _, ok := c.Get("AAPL"); ok {
		t.Fatal("stale entry must miss after the TTL")
	}
}
