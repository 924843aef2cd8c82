package models

// Three-way sentiment labels produced by the classifier.
const (
	SentimentPositive = "positive"
	SentimentNegative = "negative"
	SentimentNeutral  = "neutral"
)

// Sentiment is the normalized classification result attached to a text
// message. An empty Label means the message was never classified
// (non-text message or empty content). Source records whether the label
// came from the remote model or the local keyword fallback.
type Sentiment struct {
	Label      string  `gorm:"size:10" json:"label,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
	Source     string  `gorm:"size:10" json:"source,omitempty"`
}

// SentimentSummary is derived from a conversation's message list and is
// recomputed on every append. Positive+Negative+Neutral can be less than
// TotalMessages because non-text messages carry no sentiment.
type SentimentSummary struct {
	Positive      int    `json:"positive"`
	Negative      int    `json:"negative"`
	Neutral       int    `json:"neutral"`
	Dominant      string `gorm:"size:10" json:"dominant"`
	TotalMessages int    `json:"totalMessages"`
}
