package classify

import (
	"context"
	"fmt"
	"log/slog"

	"reddittrack/internal/config"
	"reddittrack/internal/llm"
	"reddittrack/internal/logging"
	"reddittrack/internal/post"
)

// Engine turns collected records into enriched records.
type Engine struct {
	scorer   Scorer
	taxonomy *Taxonomy
	logger   *slog.Logger
}

// Option customizes an Engine.
type Option func(*Engine)

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// New builds an engine. A nil scorer selects the lexicon scorer and a nil
// taxonomy the default categories.
func New(scorer Scorer, taxonomy *Taxonomy, opts ...Option) *Engine {
	if scorer == nil {
		scorer = NewLexiconScorer()
	}
	if taxonomy == nil {
		taxonomy = NewTaxonomy(nil)
	}
	e := &Engine{scorer: scorer, taxonomy: taxonomy, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// FromConfig selects the scorer and taxonomy from the [classification] and
// [llm] sections.
func FromConfig(cfg *config.Config, logger *slog.Logger) (*Engine, error) {
	var scorer Scorer
	switch cfg.Classification.Scorer {
	case config.ScorerLexicon, "":
		scorer = NewLexiconScorer()
	case config.ScorerLLM:
		scorer = NewLLMScorer(llm.NewClient(llm.ConfigFromApp(cfg.LLM)))
	default:
		return nil, fmt.Errorf("classify: unsupported scorer %q", cfg.Classification.Scorer)
	}
	return New(scorer, NewTaxonomy(cfg.Classification.Categories),
		WithLogger(logging.NewComponentLogger(logger, "classify"))), nil
}

// Classify scores one record. Priority uses the rounded polarity.
func (e *Engine) Classify(ctx context.Context, rec post.Record) (post.Enriched, error) {
	raw, err := e.scorer.Score(ctx, rec.Title+" "+rec.Body)
	if err != nil {
		return post.Enriched{}, fmt.Errorf("classify %s: %w", rec.ID, err)
	}
	scores := raw.normalize()
	return post.Enriched{
		Record:       rec,
		Sentiment:    Label(scores.Polarity),
		Polarity:     scores.Polarity,
		Subjectivity: scores.Subjectivity,
		Categories:   e.taxonomy.Categorize(rec),
		Priority:     Prioritize(rec.Score, rec.CommentCount, scores.Polarity),
	}, nil
}

// ClassifyAll classifies records in order. A record whose scoring fails is
// logged and left out; the number left out is returned. The error is non-nil
// only when ctx ends, alongside whatever was classified before.
func (e *Engine) ClassifyAll(ctx context.Context, records []post.Record) ([]post.Enriched, int, error) {
	out := make([]post.Enriched, 0, len(records))
	failed := 0
	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return out, failed, err
		}
		enriched, err := e.Classify(ctx, rec)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return out, failed, ctxErr
			}
			failed++
			logging.WarnWithContext(e.logger, "post classification failed", "classification_failed",
				logging.PostID(rec.ID),
				logging.String(logging.FieldCommunity, rec.Community),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check the llm settings or switch classification.scorer to lexicon"),
				logging.String(logging.FieldImpact, "post left out of this run and retried next run"),
			)
			continue
		}
		out = append(out, enriched)
	}
	return out, failed, nil
}
