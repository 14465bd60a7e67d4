package engine

import (
	"math"
	"testing"
)

func TestTitleSimilarityIdentical(t *testing.T) {
	if got := TitleSimilarity("fastest mile run", "fastest mile run"); got != 1.0 {
		t.Errorf("expected 1.0 for identical titles, got %v", got)
	}
}

func TestTitleSimilarityCaseInsensitive(t *testing.T) {
	if got := TitleSimilarity("Fastest Mile Run", "fastest mile RUN"); got != 1.0 {
		t.Errorf("expected 1.0 ignoring case, got %v", got)
	}
}

func TestTitleSimilarityEmpty(t *testing.T) {
	if got := TitleSimilarity("", "fastest mile run"); got != 0 {
		t.Errorf("expected 0 for empty title, got %v", got)
	}
	if got := TitleSimilarity("fastest mile run", "   "); got != 0 {
		t.Errorf("expected 0 for blank title, got %v", got)
	}
	if got := TitleSimilarity("", ""); got != 0 {
		t.Errorf("expected 0 for two empty titles, got %v", got)
	}
}

func TestTitleSimilarityPartialOverlap(t *testing.T) {
	// 2 of 3 tokens match
	got := TitleSimilarity("fastest mile run", "fastest mile walk")
	want := 2.0 / 3.0
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestTitleSimilarityDenominatorIsLongerTitle(t *testing.T) {
	// All 2 tokens of a match, but b has 4 tokens: 2/4.
	got := TitleSimilarity("fastest mile", "fastest mile run ever")
	if got != 0.5 {
		t.Errorf("expected 0.5, got %v", got)
	}
}

func TestTitleSimilarityNoOverlap(t *testing.T) {
	if got := TitleSimilarity("longest handstand", "fastest mile run"); got != 0 {
		t.Errorf("expected 0 for disjoint titles, got %v", got)
	}
}

func TestTitleSimilarityRepeatedTokens(t *testing.T) {
	// Each occurrence in a counts if the token appears anywhere in b.
	got := TitleSimilarity("run run run", "run walk jog")
	if got != 1.0 {
		t.Errorf("expected 1.0 for repeated matching tokens, got %v", got)
	}
}
