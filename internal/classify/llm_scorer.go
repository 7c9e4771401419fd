package classify

import (
	"context"
	"fmt"
	"strings"

	"reddittrack/internal/llm"
)

const sentimentPrompt = `You rate the sentiment of forum posts.
Respond with JSON only: {"polarity": number, "subjectivity": number}.
polarity is between -1 (very negative) and 1 (very positive); 0 is neutral.
subjectivity is between 0 (purely factual) and 1 (purely opinion).`

// maxPromptRunes bounds the post text sent to the model.
const maxPromptRunes = 4000

// Completer is the subset of llm.Client the scorer needs.
type Completer interface {
	CompleteJSON(ctx context.Context, system, user string) (string, error)
}

// LLMScorer asks a chat model for polarity and subjectivity.
type LLMScorer struct {
	client Completer
}

// NewLLMScorer wraps a completion client.
func NewLLMScorer(client Completer) *LLMScorer {
	return &LLMScorer{client: client}
}

func (s *LLMScorer) Score(ctx context.Context, text string) (Scores, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Scores{}, nil
	}
	if runes := []rune(text); len(runes) > maxPromptRunes {
		text = string(runes[:maxPromptRunes])
	}
	content, err := s.client.CompleteJSON(ctx, sentimentPrompt, text)
	if err != nil {
		return Scores{}, fmt.Errorf("llm sentiment: %w", err)
	}
	var parsed struct {
		Polarity     *float64 `json:"polarity"`
		Subjectivity *float64 `json:"subjectivity"`
	}
	if err := llm.DecodeJSON(content, &parsed); err != nil {
		return Scores{}, fmt.Errorf("llm sentiment: parse: %w", err)
	}
	if parsed.Polarity == nil {
		return Scores{}, fmt.Errorf("llm sentiment: polarity missing from %q", content)
	}
	scores := Scores{Polarity: *parsed.Polarity}
	if parsed.Subjectivity != nil {
		scores.Subjectivity = *parsed.Subjectivity
	}
	return scores, nil
}
