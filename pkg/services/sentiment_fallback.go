package services

import (
	"strings"

	"tibyan/models"
)

// Lexical fallback used when the remote classifier is unreachable or
// returns garbage. Markers cover the Arabic support traffic this system
// was built for plus common English phrases. Negative markers are
// checked first: a mixed message escalates rather than placates.
var negativeMarkers = []string{
	"مشكلة", "لا يعمل", "سيء", "خطأ", "معطل", "شكوى", "زعلان", "بطيء",
	"problem", "error", "broken", "not working", "bad", "complaint", "terrible", "slow",
}

var positiveMarkers = []string{
	"ممتاز", "شكرا", "رائع", "جيد", "احسنت", "سعيد",
	"great", "thanks", "thank you", "excellent", "good", "awesome", "perfect",
}

func fallbackClassify(text string) SentimentResult {
	t := strings.ToLower(text)
	label := models.SentimentNeutral
	for _, m := range negativeMarkers {
		if strings.Contains(t, m) {
			label = models.SentimentNegative
			break
		}
	}
	if label == models.SentimentNeutral {
		for _, m := range positiveMarkers {
			if strings.Contains(t, m) {
				label = models.SentimentPositive
				break
			}
		}
	}
	return SentimentResult{
		Label:      label,
		Confidence: fallbackConfidence,
		Scores:     SentimentScores{Positive: 0.33, Negative: 0.33, Neutral: 0.34},
		Source:     SourceFallback,
	}
}
