package classify

import "reddittrack/internal/post"

// Prioritize applies the triage table to an engagement snapshot and a rounded
// polarity. Rules are checked in order and the first match wins:
//
//	negative (< -0.3) with score > 50 or comments > 20   High
//	score > 100 or comments > 50                         High
//	score > 20 or comments > 10 or polarity < -0.1        Medium
//	otherwise                                            Low
func Prioritize(score, comments int, polarity float64) post.Priority {
	switch {
	case polarity < -0.3 && (score > 50 || comments > 20):
		return post.High
	case score > 100 || comments > 50:
		return post.High
	case score > 20 || comments > 10 || polarity < -0.1:
		return post.Medium
	default:
		return post.Low
	}
}

// Label maps a rounded polarity to a sentiment label.
func Label(polarity float64) post.Sentiment {
	switch {
	case polarity > 0.1:
		return post.Positive
	case polarity < -0.1:
		return post.Negative
	default:
		return post.Neutral
	}
}
