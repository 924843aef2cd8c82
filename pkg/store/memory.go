package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"tibyan/models"
)

// MemoryStore keeps conversations in process memory. Used by tests and
// as the dev-mode backend when no database DSN is configured.
type MemoryStore struct {
	mu     sync.Mutex
	convs  map[uint]*models.Conversation
	nextID uint
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{convs: make(map[uint]*models.Conversation), nextID: 1}
}

func (s *MemoryStore) FindActiveByTuple(ctx context.Context, ownerID uint, channel, customerID string) (*models.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var best *models.Conversation
	for _, c := range s.convs {
		if c.OwnerID == ownerID && c.Channel == channel && c.CustomerID == customerID && c.Status == models.StatusActive {
			if best == nil || c.StartTime.After(best.StartTime) {
				best = c
			}
		}
	}
	if best == nil {
		return nil, nil
	}
	return copyConv(best), nil
}

func (s *MemoryStore) CreateConversation(ctx context.Context, conv *models.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv.ID = s.nextID
	s.nextID++
	for i := range conv.Messages {
		conv.Messages[i].ConversationID = conv.ID
	}
	s.convs[conv.ID] = copyConv(conv)
	return nil
}

func (s *MemoryStore) AppendMessageAndUpdate(ctx context.Context, convID uint, msg models.Message, upd AppendUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.convs[convID]
	if !ok {
		return ErrNotFound
	}
	dup := false
	for i := range c.Messages {
		if c.Messages[i].ChannelMsgID == msg.ChannelMsgID {
			dup = true
			break
		}
	}
	if !dup {
		msg.ConversationID = convID
		c.Messages = append(c.Messages, msg)
	}
	c.Summary = upd.Summary
	c.EndTime = upd.EndTime
	if upd.CustomerName != "" && c.CustomerName == "" {
		c.CustomerName = upd.CustomerName
	}
	if upd.CustomerPhone != "" && c.CustomerPhone == "" {
		c.CustomerPhone = upd.CustomerPhone
	}
	return nil
}

func (s *MemoryStore) GetConversation(ctx context.Context, id uint, ownerID uint) (*models.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.convs[id]
	if !ok || (ownerID != 0 && c.OwnerID != ownerID) {
		return nil, ErrNotFound
	}
	return copyConv(c), nil
}

func (s *MemoryStore) ListConversations(ctx context.Context, f ListFilter) ([]models.Conversation, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Conversation
	for _, c := range s.convs {
		if !matchScope(c, f.Scope) {
			continue
		}
		if f.Status != "" && c.Status != f.Status {
			continue
		}
		out = append(out, *copyConv(c))
	}
	sortByEndTimeDesc(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) SearchConversations(ctx context.Context, scope Scope, query string, limit int) ([]models.Conversation, error) {
	if limit <= 0 {
		limit = 20
	}
	q := strings.ToLower(query)
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Conversation
	for _, c := range s.convs {
		if !matchScope(c, scope) {
			continue
		}
		if strings.Contains(strings.ToLower(c.CustomerID), q) ||
			strings.Contains(strings.ToLower(c.CustomerName), q) ||
			strings.Contains(strings.ToLower(c.CustomerPhone), q) {
			out = append(out, *copyConv(c))
		}
	}
	sortByEndTimeDesc(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) QueryByScopeAndTimeRange(ctx context.Context, scope Scope, since time.Time) ([]models.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Conversation
	for _, c := range s.convs {
		if !matchScope(c, scope) || c.StartTime.Before(since) {
			continue
		}
		out = append(out, *copyConv(c))
	}
	return out, nil
}

func (s *MemoryStore) SetStatus(ctx context.Context, id uint, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.convs[id]
	if !ok {
		return ErrNotFound
	}
	c.Status = status
	if status == models.StatusResolved {
		c.EndTime = time.Now()
	}
	return nil
}

func (s *MemoryStore) SetHandled(ctx context.Context, id uint, handled bool, byWhom string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.convs[id]
	if !ok {
		return ErrNotFound
	}
	c.Handled = handled
	if handled {
		t := at
		c.HandledAt = &t
		c.HandledBy = byWhom
	} else {
		c.HandledAt = nil
		c.HandledBy = ""
	}
	return nil
}

func matchScope(c *models.Conversation, scope Scope) bool {
	if scope.OwnerID != 0 && c.OwnerID != scope.OwnerID {
		return false
	}
	if scope.Channel != "" && c.Channel != scope.Channel {
		return false
	}
	return true
}

func sortByEndTimeDesc(convs []models.Conversation) {
	sort.SliceStable(convs, func(i, j int) bool {
		return convs[j].EndTime.Before(convs[i].EndTime)
	})
}

// copyConv detaches the returned conversation from store-held state so
// callers can mutate it freely.
func copyConv(c *models.Conversation) *models.Conversation {
	out := *c
	out.Messages = append([]models.Message(nil), c.Messages...)
	if c.HandledAt != nil {
		t := *c.HandledAt
		out.HandledAt = &t
	}
	return &out
}
