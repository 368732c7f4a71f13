package sentiment

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

type rawResult struct {
	Score      float64 `json:"score"`
	Confidence int     `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

// parseResponse extracts the JSON verdict from the model output. Models
// often wrap JSON in markdown fences despite instructions, so those are
// stripped first. Out-of-range values are clamped, not rejected.
func parseResponse(raw string) (Result, error) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	var parsed rawResult
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		return Result{}, fmt.Errorf("unmarshal %q: %w", truncate(cleaned, 120), err)
	}

	if parsed.Score > 1 {
		parsed.Score = 1
	}
	if parsed.Score < -1 {
		parsed.Score = -1
	}
	if parsed.Confidence < 0 {
		parsed.Confidence = 0
	}
	if parsed.Confidence > 100 {
		parsed.Confidence = 100
	}

	return Result{
		Score:      decimal.NewFromFloat(parsed.Score),
		Confidence: parsed.Confidence,
		Reasoning:  parsed.Reasoning,
	}, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
