// Package store provides durable keyed storage for conversations and
// their messages behind a narrow interface, with a MySQL/gorm backend
// for real deployments and an in-memory backend for development and
// tests.
package store

import (
	"context"
	"errors"
	"time"

	"tibyan/models"
)

// ErrNotFound is returned when a conversation id does not exist or is
// outside the caller's scope.
var ErrNotFound = errors.New("store: conversation not found")

// Scope restricts reads to an owner and optionally a single channel.
// OwnerID 0 means all owners; only elevated callers should pass it.
type Scope struct {
	OwnerID uint
	Channel string
}

// ListFilter narrows conversation listings.
type ListFilter struct {
	Scope
	Status string
	Limit  int // 0 = default 50
}

// AppendUpdate carries the conversation fields updated together with a
// message append. CustomerName/CustomerPhone are set only when the
// processor backfills them (first write wins); empty means leave as is.
type AppendUpdate struct {
	Summary       models.SentimentSummary
	EndTime       time.Time
	CustomerName  string
	CustomerPhone string
}

type Store interface {
	// FindActiveByTuple returns the most recent active conversation for
	// the (owner, channel, customer) tuple with messages loaded, or
	// (nil, nil) when none exists.
	FindActiveByTuple(ctx context.Context, ownerID uint, channel, customerID string) (*models.Conversation, error)

	CreateConversation(ctx context.Context, conv *models.Conversation) error

	// AppendMessageAndUpdate persists the message plus the recomputed
	// summary and endTime atomically. Appending a message id that
	// already exists in the conversation is a no-op for the message row.
	AppendMessageAndUpdate(ctx context.Context, convID uint, msg models.Message, upd AppendUpdate) error

	// GetConversation loads one conversation with messages. ownerID 0
	// skips the owner check (elevated callers).
	GetConversation(ctx context.Context, id uint, ownerID uint) (*models.Conversation, error)

	ListConversations(ctx context.Context, f ListFilter) ([]models.Conversation, error)

	// SearchConversations matches customer id, name or phone
	// case-insensitively.
	SearchConversations(ctx context.Context, scope Scope, query string, limit int) ([]models.Conversation, error)

	// QueryByScopeAndTimeRange returns conversations with
	// startTime >= since, messages loaded, for the analytics engine.
	QueryByScopeAndTimeRange(ctx context.Context, scope Scope, since time.Time) ([]models.Conversation, error)

	SetStatus(ctx context.Context, id uint, status string) error

	SetHandled(ctx context.Context, id uint, handled bool, byWhom string, at time.Time) error
}
