package sentiment

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseBareJSON(t *testing.T) {
	r, err := parseResponse(`{"score": 0.7, "confidence": 85, "reasoning": "strong earnings beat"}`)
	if err != nil {
		t.Fatal(err)
	}
	if !r.Score.Equal(decimal.NewFromFloat(0.7)) {
		t.Fatalf("score = %s, want 0.7", r.Score)
	}
	if r.Confidence != 85 {
		t.Fatalf("confidence = %d, want 85", r.Confidence)
	}
	if r.Reasoning != "strong earnings beat" {
		t.Fatalf("reasoning = %q", r.Reasoning)
	}
}

func TestParseStripsMarkdownFences(t *testing.T) {
	raw := "```json\n{\"score\": -0.4, \"confidence\": 60, \"reasoning\": \"guidance cut\"}\n```"
	r, err := parseResponse(raw)
	if err != nil {
		t.Fatal(err)
	}
	if !r.Score.Equal(decimal.NewFromFloat(-0.4)) {
		t.Fatalf("score = %s, want -0.4", r.Score)
	}

	// Plain fence without the language tag.
	raw = "```\n{\"score\": 0.1, \"confidence\": 30, \"reasoning\": \"mixed\"}\n```"
	if _, err := parseResponse(raw); err != nil {
		t.Fatal(err)
	}
}

func TestParseClampsOutOfRangeValues(t *testing.T) {
	r, err := parseResponse(`{"score": 3.5, "confidence": 140, "reasoning": "overexcited model"}`)
	if err != nil {
		t.Fatal(err)
	}
	if !r.Score.Equal(decimal.NewFromInt(1)) {
		t.Fatalf("score = %s, want clamped to 1", r.Score)
	}
	if r.Confidence != 100 {
		t.Fatalf("confidence = %d, want clamped to 100", r.Confidence)
	}

	r, err = parseResponse(`{"score": -2, "confidence": -5, "reasoning": "doom"}`)
	if err != nil {
		t.Fatal(err)
	}
	if !r.Score.Equal(decimal.NewFromInt(-1)) {
		t.Fatalf("score = %s, want clamped to -1", r.Score)
	}
	if r.Confidence != 0 {
		t.Fatalf("confidence = %d, want clamped to 0", r.Confidence)
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	for _, raw := range []string{"", "not json at all", "{\"score\": \"high\"}"} {
		if _, err := parseResponse(raw); err == nil {
			t.Fatalf("expected parse error for %q", raw)
		}
	}
}
