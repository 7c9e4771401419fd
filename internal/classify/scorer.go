package classify

import (
	"context"
	"math"
)

// Scores is the raw output of a sentiment model.
type Scores struct {
	Polarity     float64
	Subjectivity float64
}

// Scorer rates the sentiment of free text.
type Scorer interface {
	Score(ctx context.Context, text string) (Scores, error)
}

// ScorerFunc adapts a function to the Scorer interface.
type ScorerFunc func(ctx context.Context, text string) (Scores, error)

func (f ScorerFunc) Score(ctx context.Context, text string) (Scores, error) {
	return f(ctx, text)
}

// normalize clamps both scores into range and rounds them to three decimals.
func (s Scores) normalize() Scores {
	return Scores{
		Polarity:     round3(clamp(s.Polarity, -1, 1)),
		Subjectivity: round3(clamp(s.Subjectivity, 0, 1)),
	}
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(lo, math.Min(hi, v))
}

func round3(v float64) float64 {
	r := math.Round(v*1000) / 1000
	if r == 0 {
		// Avoid rendering -0.
		return 0
	}
	return r
}
