// Package analytics computes time-windowed reports over stored
// conversations: totals, breakdowns, message-level sentiment sums,
// response-time statistics and a daily trend series. Read-only.
package analytics

import (
	"context"
	"fmt"
	"math"
	"time"

	"tibyan/models"
	"tibyan/pkg/cache"
	"tibyan/pkg/store"
)

// Supported lookback windows.
const (
	Range7d  = "7d"
	Range30d = "30d"
	Range90d = "90d"
)

// Scope restricts a report to an owner and optionally one channel.
// OwnerID 0 aggregates across all owners (elevated callers only).
type Scope struct {
	OwnerID uint
	Channel string
}

type SentimentTotals struct {
	Positive int `json:"positive"`
	Negative int `json:"negative"`
	Neutral  int `json:"neutral"`
}

// ResponseTimeStats are in minutes. All zero when no customer message
// in the window ever received an agent reply.
type ResponseTimeStats struct {
	Average float64 `json:"average"`
	Fastest float64 `json:"fastest"`
	Slowest float64 `json:"slowest"`
}

type DailyStat struct {
	Date          string          `json:"date"`
	Conversations int             `json:"conversations"`
	Messages      int             `json:"messages"`
	Sentiment     SentimentTotals `json:"sentiment"`
}

type Report struct {
	TotalConversations             int               `json:"totalConversations"`
	Channels                       map[string]int    `json:"channels"`
	Statuses                       map[string]int    `json:"statuses"`
	Sentiment                      SentimentTotals   `json:"sentiment"`
	TotalMessages                  int               `json:"totalMessages"`
	AverageMessagesPerConversation int               `json:"averageMessagesPerConversation"`
	ResponseTimes                  ResponseTimeStats `json:"responseTimeStats"`
	DailyStats                     []DailyStat       `json:"dailyStats"`
}

type Engine struct {
	store    store.Store
	cache    *cache.Cache
	cacheTTL time.Duration
	now      func() time.Time
}

func NewEngine(st store.Store) *Engine {
	return &Engine{store: st, now: time.Now}
}

// WithCache enables short-lived report caching; dashboards poll these
// queries far more often than the data changes meaningfully.
func (e *Engine) WithCache(c *cache.Cache, ttl time.Duration) *Engine {
	e.cache = c
	e.cacheTTL = ttl
	return e
}

// Report loads all conversations in scope started within the lookback
// window and aggregates them. Unknown timeRange values fall back to the
// widest window; callers validate at the HTTP boundary.
func (e *Engine) Report(ctx context.Context, scope Scope, timeRange string) (*Report, error) {
	days := lookbackDays(timeRange)

	key := cache.KeyFromStrings(fmt.Sprint(scope.OwnerID), scope.Channel, fmt.Sprint(days))
	if e.cache != nil {
		if v, ok := e.cache.Get(key); ok {
			return v.(*Report), nil
		}
	}

	now := e.now()
	since := now.Add(-time.Duration(days) * 24 * time.Hour)
	convs, err := e.store.QueryByScopeAndTimeRange(ctx, store.Scope{OwnerID: scope.OwnerID, Channel: scope.Channel}, since)
	if err != nil {
		return nil, fmt.Errorf("analytics: load conversations since %s: %w", since.Format(time.RFC3339), err)
	}

	rep := build(convs, now, days)
	if e.cache != nil {
		e.cache.Set(key, rep, e.cacheTTL)
	}
	return rep, nil
}

func lookbackDays(timeRange string) int {
	switch timeRange {
	case Range7d:
		return 7
	case Range30d:
		return 30
	default:
		return 90
	}
}

// build aggregates the loaded rows. The load cutoff is a clock instant
// (now minus days*24h) while the daily buckets are calendar days, so
// the window's first day is partial: a conversation started on that
// date but before the cutoff's clock time counts in the totals yet
// lands in no DailyStats bucket.
func build(convs []models.Conversation, now time.Time, days int) *Report {
	rep := &Report{
		TotalConversations: len(convs),
		Channels:           map[string]int{},
		Statuses:           map[string]int{},
	}

	// The daily series always spans the full window, oldest first, with
	// zero-filled entries for quiet days.
	rep.DailyStats = make([]DailyStat, days)
	dayIndex := make(map[string]int, days)
	for i := 0; i < days; i++ {
		d := now.UTC().AddDate(0, 0, -(days - 1 - i))
		ds := d.Format("2006-01-02")
		rep.DailyStats[i] = DailyStat{Date: ds}
		dayIndex[ds] = i
	}

	var gaps []float64
	for i := range convs {
		c := &convs[i]
		rep.Channels[c.Channel]++
		rep.Statuses[c.Status]++
		rep.TotalMessages += len(c.Messages)

		// Message-level sums: the unit of analysis is the message, so a
		// long conversation weighs more than a short one.
		var day SentimentTotals
		for j := range c.Messages {
			switch c.Messages[j].Sentiment.Label {
			case models.SentimentPositive:
				rep.Sentiment.Positive++
				day.Positive++
			case models.SentimentNegative:
				rep.Sentiment.Negative++
				day.Negative++
			case models.SentimentNeutral:
				rep.Sentiment.Neutral++
				day.Neutral++
			}
		}

		if idx, ok := dayIndex[c.StartTime.UTC().Format("2006-01-02")]; ok {
			rep.DailyStats[idx].Conversations++
			rep.DailyStats[idx].Messages += len(c.Messages)
			rep.DailyStats[idx].Sentiment.Positive += day.Positive
			rep.DailyStats[idx].Sentiment.Negative += day.Negative
			rep.DailyStats[idx].Sentiment.Neutral += day.Neutral
		}

		gaps = append(gaps, responseGaps(c.Messages)...)
	}

	if len(convs) > 0 {
		avg := float64(rep.TotalMessages) / float64(len(convs))
		rep.AverageMessagesPerConversation = int(math.Floor(avg + 0.5)) // round half up
	}

	if len(gaps) > 0 {
		var sum float64
		fastest, slowest := gaps[0], gaps[0]
		for _, g := range gaps {
			sum += g
			if g < fastest {
				fastest = g
			}
			if g > slowest {
				slowest = g
			}
		}
		rep.ResponseTimes = ResponseTimeStats{
			Average: sum / float64(len(gaps)),
			Fastest: fastest,
			Slowest: slowest,
		}
	}
	return rep
}

// responseGaps pairs every customer message with the earliest agent
// message strictly after it and returns the gaps in minutes. One agent
// message may answer several queued customer messages; that reuse is
// intentional. Messages are scanned in full because arrival order is
// not timestamp order.
func responseGaps(msgs []models.Message) []float64 {
	var gaps []float64
	for i := range msgs {
		if msgs[i].Sender != models.SenderCustomer {
			continue
		}
		var best time.Time
		found := false
		for j := range msgs {
			if msgs[j].Sender != models.SenderAgent {
				continue
			}
			if !msgs[j].Timestamp.After(msgs[i].Timestamp) {
				continue
			}
			if !found || msgs[j].Timestamp.Before(best) {
				best = msgs[j].Timestamp
				found = true
			}
		}
		if found {
			gaps = append(gaps, best.Sub(msgs[i].Timestamp).Minutes())
		}
	}
	return gaps
}
