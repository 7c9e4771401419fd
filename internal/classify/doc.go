// Package classify scores collected posts for sentiment, assigns taxonomy
// categories, and derives a triage priority.
//
// Sentiment comes from a Scorer. The default LexiconScorer uses the VADER
// lexicon; LLMScorer asks a chat model instead. Polarity and subjectivity are
// clamped and rounded to three decimals before the label and priority are
// derived, so the stored values and the decisions made from them always agree.
package classify
