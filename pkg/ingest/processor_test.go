package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"tibyan/models"
	"tibyan/pkg/services"
	"tibyan/pkg/store"
)

// stubClassifier mimics the gateway contract: it always returns a
// result, marking keyword hits the way the fallback lexicon would.
type stubClassifier struct {
	mu    sync.Mutex
	calls int
}

func (c *stubClassifier) Classify(ctx context.Context, text string) services.SentimentResult {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	label := models.SentimentNeutral
	if strings.Contains(text, "شكرا") {
		label = models.SentimentPositive
	}
	if strings.Contains(text, "مشكلة") {
		label = models.SentimentNegative
	}
	return services.SentimentResult{Label: label, Confidence: 0.6, Source: services.SourceFallback}
}

func baseEvent(id string, ts time.Time) Event {
	return Event{
		OwnerID:     1,
		Channel:     models.ChannelWhatsApp,
		MessageID:   id,
		CustomerID:  "cust-1",
		Content:     "مرحبا",
		MessageType: models.MessageTypeText,
		Timestamp:   ts,
		Sender:      models.SenderCustomer,
	}
}

func TestIngestCreatesThenAppends(t *testing.T) {
	st := store.NewMemoryStore()
	p := NewProcessor(st, &stubClassifier{})
	t0 := time.Now()

	conv, err := p.Ingest(context.Background(), baseEvent("m1", t0))
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if conv.Status != models.StatusActive || len(conv.Messages) != 1 {
		t.Fatalf("unexpected new conversation: %+v", conv)
	}
	if conv.PublicID == "" {
		t.Fatalf("expected public id")
	}
	if !conv.StartTime.Equal(t0) || !conv.EndTime.Equal(t0) {
		t.Fatalf("start/end not seeded from event timestamp")
	}

	conv2, err := p.Ingest(context.Background(), baseEvent("m2", t0.Add(time.Minute)))
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if conv2.ID != conv.ID {
		t.Fatalf("second event created a new conversation")
	}
	if len(conv2.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(conv2.Messages))
	}
	if !conv2.EndTime.Equal(t0.Add(time.Minute)) {
		t.Fatalf("endTime not bumped")
	}
	if conv2.Summary.TotalMessages != 2 {
		t.Fatalf("summary not recomputed: %+v", conv2.Summary)
	}
}

func TestIngestTextMessageAlwaysGetsSentiment(t *testing.T) {
	st := store.NewMemoryStore()
	cls := &stubClassifier{}
	p := NewProcessor(st, cls)

	conv, err := p.Ingest(context.Background(), baseEvent("m1", time.Now()))
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	m := conv.Messages[0]
	if !m.HasSentiment() {
		t.Fatalf("text message missing sentiment")
	}
	if m.Sentiment.Confidence < 0 || m.Sentiment.Confidence > 1 {
		t.Fatalf("confidence out of range: %v", m.Sentiment.Confidence)
	}

	// Non-text and empty-content messages skip classification entirely.
	ev := baseEvent("m2", time.Now())
	ev.MessageType = models.MessageTypeImage
	ev.Content = ""
	conv, err = p.Ingest(context.Background(), ev)
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if conv.Messages[1].HasSentiment() {
		t.Fatalf("non-text message should not carry sentiment")
	}
	if cls.calls != 1 {
		t.Fatalf("classifier called %d times, want 1", cls.calls)
	}
	if conv.Summary.TotalMessages != 2 || conv.Summary.Positive+conv.Summary.Negative+conv.Summary.Neutral != 1 {
		t.Fatalf("summary should count unlabeled messages only in total: %+v", conv.Summary)
	}
}

func TestIngestDuplicateMessageIDIsNoOp(t *testing.T) {
	st := store.NewMemoryStore()
	p := NewProcessor(st, &stubClassifier{})
	now := time.Now()

	if _, err := p.Ingest(context.Background(), baseEvent("m1", now)); err != nil {
		t.Fatalf("ingest: %v", err)
	}
	conv, err := p.Ingest(context.Background(), baseEvent("m1", now.Add(time.Hour)))
	if err != nil {
		t.Fatalf("duplicate ingest should not error: %v", err)
	}
	if len(conv.Messages) != 1 {
		t.Fatalf("duplicate id created a message: %d", len(conv.Messages))
	}
	if conv.EndTime.After(now.Add(time.Minute)) {
		t.Fatalf("duplicate ingest should not bump endTime")
	}
}

func TestIngestBackfillFirstWriteWins(t *testing.T) {
	st := store.NewMemoryStore()
	p := NewProcessor(st, &stubClassifier{})
	now := time.Now()

	ev := baseEvent("m1", now)
	if _, err := p.Ingest(context.Background(), ev); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	ev2 := baseEvent("m2", now.Add(time.Minute))
	ev2.CustomerName = "Omar"
	ev2.CustomerPhone = "+201000000000"
	conv, err := p.Ingest(context.Background(), ev2)
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if conv.CustomerName != "Omar" || conv.CustomerPhone != "+201000000000" {
		t.Fatalf("backfill missing: %+v", conv)
	}

	ev3 := baseEvent("m3", now.Add(2*time.Minute))
	ev3.CustomerName = "Impostor"
	conv, err = p.Ingest(context.Background(), ev3)
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if conv.CustomerName != "Omar" {
		t.Fatalf("backfill overwritten: %q", conv.CustomerName)
	}
}

func TestIngestRejectsMalformedEvents(t *testing.T) {
	st := store.NewMemoryStore()
	p := NewProcessor(st, &stubClassifier{})
	now := time.Now()

	bad := []func(*Event){
		func(ev *Event) { ev.OwnerID = 0 },
		func(ev *Event) { ev.Channel = "telegram" },
		func(ev *Event) { ev.MessageID = " " },
		func(ev *Event) { ev.CustomerID = "" },
		func(ev *Event) { ev.Sender = "bot" },
		func(ev *Event) { ev.MessageType = "video" },
		func(ev *Event) { ev.Timestamp = time.Time{} },
	}
	for i, mutate := range bad {
		ev := baseEvent(fmt.Sprintf("m%d", i), now)
		mutate(&ev)
		if _, err := p.Ingest(context.Background(), ev); !errors.Is(err, ErrInvalidEvent) {
			t.Fatalf("case %d: expected ErrInvalidEvent, got %v", i, err)
		}
	}

	// Nothing may have been persisted.
	convs, err := st.ListConversations(context.Background(), store.ListFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(convs) != 0 {
		t.Fatalf("rejected events left state behind: %d conversations", len(convs))
	}
}

func TestConcurrentIngestOneActiveConversation(t *testing.T) {
	st := store.NewMemoryStore()
	p := NewProcessor(st, &stubClassifier{})
	now := time.Now()

	const n = 25
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ev := baseEvent(fmt.Sprintf("m%d", i), now.Add(time.Duration(i)*time.Second))
			if _, err := p.Ingest(context.Background(), ev); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent ingest failed: %v", err)
	}

	convs, err := st.ListConversations(context.Background(), store.ListFilter{Scope: store.Scope{OwnerID: 1}, Status: models.StatusActive, Limit: 100})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(convs) != 1 {
		t.Fatalf("race created %d active conversations for one tuple", len(convs))
	}
	if len(convs[0].Messages) != n {
		t.Fatalf("expected %d messages, got %d", n, len(convs[0].Messages))
	}
}

func TestIngestOutOfOrderArrivalKeptInArrivalOrder(t *testing.T) {
	st := store.NewMemoryStore()
	p := NewProcessor(st, &stubClassifier{})
	now := time.Now()

	if _, err := p.Ingest(context.Background(), baseEvent("late", now.Add(time.Hour))); err != nil {
		t.Fatalf("ingest: %v", err)
	}
	conv, err := p.Ingest(context.Background(), baseEvent("early", now))
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if conv.Messages[0].ChannelMsgID != "late" || conv.Messages[1].ChannelMsgID != "early" {
		t.Fatalf("messages reordered: %+v", conv.Messages)
	}
}
