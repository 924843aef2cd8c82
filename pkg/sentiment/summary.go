// Package sentiment derives conversation-level sentiment summaries from
// message lists.
package sentiment

import "tibyan/models"

// Summarize counts labeled messages per sentiment and picks the dominant
// label. TotalMessages counts every message, labeled or not, so the
// three counts can sum to less than the total. Pure function: safe to
// call repeatedly on the same input.
func Summarize(msgs []models.Message) models.SentimentSummary {
	s := models.SentimentSummary{TotalMessages: len(msgs)}
	for i := range msgs {
		switch msgs[i].Sentiment.Label {
		case models.SentimentPositive:
			s.Positive++
		case models.SentimentNegative:
			s.Negative++
		case models.SentimentNeutral:
			s.Neutral++
		}
	}
	s.Dominant = dominant(s)
	return s
}

// dominant selects the label with the strictly greatest count. Ties are
// broken by the fixed order negative > neutral > positive, so ambiguous
// conversations escalate. With no labeled messages at all the dominant
// is neutral.
func dominant(s models.SentimentSummary) string {
	if s.Positive == 0 && s.Negative == 0 && s.Neutral == 0 {
		return models.SentimentNeutral
	}
	label, best := models.SentimentNegative, s.Negative
	if s.Neutral > best {
		label, best = models.SentimentNeutral, s.Neutral
	}
	if s.Positive > best {
		label = models.SentimentPositive
	}
	return label
}
