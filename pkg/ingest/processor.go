// Package ingest turns normalized inbound channel events into persisted
// conversation state: it classifies text messages, threads each message
// into the single active conversation for its (owner, channel, customer)
// tuple and keeps the conversation sentiment summary current.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"tibyan/models"
	"tibyan/pkg/sentiment"
	"tibyan/pkg/services"
	"tibyan/pkg/store"
)

// ErrInvalidEvent marks events rejected before any classifier or store
// call. Ingestion is all-or-nothing per event.
var ErrInvalidEvent = errors.New("ingest: invalid event")

// Event is the normalized inbound message produced by a channel adapter.
type Event struct {
	OwnerID       uint      `json:"ownerId"`
	Channel       string    `json:"channel"`
	MessageID     string    `json:"messageId"`
	CustomerID    string    `json:"customerId"`
	CustomerName  string    `json:"customerName,omitempty"`
	CustomerPhone string    `json:"customerPhone,omitempty"`
	Content       string    `json:"content"`
	MessageType   string    `json:"messageType"`
	Timestamp     time.Time `json:"timestamp"`
	Sender        string    `json:"sender"`
}

// Validate applies the required-field checks. MessageType defaults to
// text when the adapter omits it.
func (ev *Event) Validate() error {
	if ev.OwnerID == 0 {
		return fmt.Errorf("%w: missing ownerId", ErrInvalidEvent)
	}
	if !models.ValidChannel(ev.Channel) {
		return fmt.Errorf("%w: unknown channel %q", ErrInvalidEvent, ev.Channel)
	}
	if strings.TrimSpace(ev.MessageID) == "" {
		return fmt.Errorf("%w: missing messageId", ErrInvalidEvent)
	}
	if strings.TrimSpace(ev.CustomerID) == "" {
		return fmt.Errorf("%w: missing customerId", ErrInvalidEvent)
	}
	if !models.ValidSender(ev.Sender) {
		return fmt.Errorf("%w: unknown sender %q", ErrInvalidEvent, ev.Sender)
	}
	if ev.MessageType == "" {
		ev.MessageType = models.MessageTypeText
	}
	if !models.ValidMessageType(ev.MessageType) {
		return fmt.Errorf("%w: unknown messageType %q", ErrInvalidEvent, ev.MessageType)
	}
	if ev.Timestamp.IsZero() {
		return fmt.Errorf("%w: missing timestamp", ErrInvalidEvent)
	}
	return nil
}

// Classifier is the slice of the sentiment gateway the processor needs.
type Classifier interface {
	Classify(ctx context.Context, text string) services.SentimentResult
}

type Processor struct {
	store      store.Store
	classifier Classifier
	locks      *tupleLocks
}

func NewProcessor(st store.Store, cls Classifier) *Processor {
	return &Processor{store: st, classifier: cls, locks: newTupleLocks()}
}

// Ingest processes one inbound event and returns the updated
// conversation. Classification failures never surface here (the gateway
// resolves them to a fallback result); persistence failures do.
func (p *Processor) Ingest(ctx context.Context, ev Event) (*models.Conversation, error) {
	if err := ev.Validate(); err != nil {
		return nil, err
	}

	msg := models.Message{
		ChannelMsgID: ev.MessageID,
		Content:      ev.Content,
		Sender:       ev.Sender,
		MessageType:  ev.MessageType,
		Timestamp:    ev.Timestamp,
	}
	// Classification runs before the tuple lock is taken: it is the
	// slow path and needs no conversation state. At most one attempt
	// per message; the result is immutable afterwards.
	if ev.MessageType == models.MessageTypeText && strings.TrimSpace(ev.Content) != "" {
		res := p.classifier.Classify(ctx, ev.Content)
		msg.Sentiment = models.Sentiment{Label: res.Label, Confidence: res.Confidence, Source: res.Source}
	}

	// The find-or-create decision is the critical section: without the
	// tuple lock two concurrent events could both see "no active
	// conversation" and create two.
	unlock := p.locks.lock(ev.OwnerID, ev.Channel, ev.CustomerID)
	defer unlock()

	conv, err := p.store.FindActiveByTuple(ctx, ev.OwnerID, ev.Channel, ev.CustomerID)
	if err != nil {
		return nil, fmt.Errorf("ingest: find active conversation for customer %s on %s: %w", ev.CustomerID, ev.Channel, err)
	}

	if conv == nil {
		conv = &models.Conversation{
			PublicID:      uuid.NewString(),
			OwnerID:       ev.OwnerID,
			Channel:       ev.Channel,
			CustomerID:    ev.CustomerID,
			CustomerName:  ev.CustomerName,
			CustomerPhone: ev.CustomerPhone,
			Messages:      []models.Message{msg},
			StartTime:     ev.Timestamp,
			EndTime:       ev.Timestamp,
			Status:        models.StatusActive,
		}
		conv.Summary = sentiment.Summarize(conv.Messages)
		if err := p.store.CreateConversation(ctx, conv); err != nil {
			return nil, fmt.Errorf("ingest: create conversation for customer %s on %s: %w", ev.CustomerID, ev.Channel, err)
		}
		log.Printf("[ingest] new conversation %s (owner=%d channel=%s customer=%s)", conv.PublicID, ev.OwnerID, ev.Channel, ev.CustomerID)
		return conv, nil
	}

	for i := range conv.Messages {
		if conv.Messages[i].ChannelMsgID == ev.MessageID {
			log.Printf("[ingest] duplicate message %s on conversation %s, skipping", ev.MessageID, conv.PublicID)
			return conv, nil
		}
	}

	// Arrival order, not timestamp order: out-of-order delivery is
	// stored as received.
	conv.Messages = append(conv.Messages, msg)
	conv.EndTime = ev.Timestamp

	upd := store.AppendUpdate{EndTime: ev.Timestamp}
	if ev.CustomerName != "" && conv.CustomerName == "" {
		conv.CustomerName = ev.CustomerName
		upd.CustomerName = ev.CustomerName
	}
	if ev.CustomerPhone != "" && conv.CustomerPhone == "" {
		conv.CustomerPhone = ev.CustomerPhone
		upd.CustomerPhone = ev.CustomerPhone
	}
	conv.Summary = sentiment.Summarize(conv.Messages)
	upd.Summary = conv.Summary

	if err := p.store.AppendMessageAndUpdate(ctx, conv.ID, msg, upd); err != nil {
		return nil, fmt.Errorf("ingest: append message %s to conversation %s: %w", ev.MessageID, conv.PublicID, err)
	}
	return conv, nil
}
