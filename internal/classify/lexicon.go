package classify

import (
	"context"
	"sync"

	"github.com/jonreiter/govader"
)

// sharedAnalyzer parses the VADER lexicon once per process; the analyzer only
// reads its tables after construction.
var sharedAnalyzer = sync.OnceValue(govader.NewSentimentIntensityAnalyzer)

// LexiconScorer is the default offline model, backed by the VADER lexicon.
// Polarity is VADER's compound score. Subjectivity is the share of the text's
// valence carried by opinion words, so text with none scores 0.
type LexiconScorer struct {
	analyzer *govader.SentimentIntensityAnalyzer
}

// NewLexiconScorer returns the default offline scorer.
func NewLexiconScorer() *LexiconScorer {
	return &LexiconScorer{analyzer: sharedAnalyzer()}
}

func (s *LexiconScorer) Score(_ context.Context, text string) (Scores, error) {
	v := s.analyzer.PolarityScores(text)
	return Scores{Polarity: v.Compound, Subjectivity: v.Positive + v.Negative}, nil
}
