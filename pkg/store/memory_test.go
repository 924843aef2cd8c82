package store

import (
	"context"
	"testing"
	"time"

	"tibyan/models"
)

func seedConv(t *testing.T, s *MemoryStore, owner uint, channel, customer, status string, start time.Time) *models.Conversation {
	t.Helper()
	conv := &models.Conversation{
		OwnerID:    owner,
		Channel:    channel,
		CustomerID: customer,
		Status:     status,
		StartTime:  start,
		EndTime:    start,
	}
	if err := s.CreateConversation(context.Background(), conv); err != nil {
		t.Fatalf("create: %v", err)
	}
	return conv
}

func TestFindActiveByTuple(t *testing.T) {
	s := NewMemoryStore()
	now := time.Now()
	seedConv(t, s, 1, models.ChannelWhatsApp, "c1", models.StatusResolved, now.Add(-2*time.Hour))
	active := seedConv(t, s, 1, models.ChannelWhatsApp, "c1", models.StatusActive, now.Add(-time.Hour))
	seedConv(t, s, 1, models.ChannelMessenger, "c1", models.StatusActive, now)

	got, err := s.FindActiveByTuple(context.Background(), 1, models.ChannelWhatsApp, "c1")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got == nil || got.ID != active.ID {
		t.Fatalf("expected conversation %d, got %+v", active.ID, got)
	}

	got, err = s.FindActiveByTuple(context.Background(), 2, models.ChannelWhatsApp, "c1")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got != nil {
		t.Fatalf("expected no active conversation for other owner, got %+v", got)
	}
}

func TestAppendMessageDuplicateIsNoOp(t *testing.T) {
	s := NewMemoryStore()
	now := time.Now()
	conv := seedConv(t, s, 1, models.ChannelWhatsApp, "c1", models.StatusActive, now)

	msg := models.Message{ChannelMsgID: "m1", Content: "hi", Sender: models.SenderCustomer, MessageType: models.MessageTypeText, Timestamp: now}
	upd := AppendUpdate{Summary: models.SentimentSummary{TotalMessages: 1, Dominant: models.SentimentNeutral}, EndTime: now}
	if err := s.AppendMessageAndUpdate(context.Background(), conv.ID, msg, upd); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := s.AppendMessageAndUpdate(context.Background(), conv.ID, msg, upd); err != nil {
		t.Fatalf("duplicate append should be a no-op, got %v", err)
	}
	got, err := s.GetConversation(context.Background(), conv.ID, 1)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got.Messages) != 1 {
		t.Fatalf("expected 1 message after duplicate append, got %d", len(got.Messages))
	}
}

func TestAppendBackfillFirstWriteWins(t *testing.T) {
	s := NewMemoryStore()
	now := time.Now()
	conv := seedConv(t, s, 1, models.ChannelWhatsApp, "c1", models.StatusActive, now)

	upd := AppendUpdate{EndTime: now, CustomerName: "Ahmed", CustomerPhone: "+100"}
	if err := s.AppendMessageAndUpdate(context.Background(), conv.ID, models.Message{ChannelMsgID: "m1"}, upd); err != nil {
		t.Fatalf("append: %v", err)
	}
	upd2 := AppendUpdate{EndTime: now, CustomerName: "Someone Else"}
	if err := s.AppendMessageAndUpdate(context.Background(), conv.ID, models.Message{ChannelMsgID: "m2"}, upd2); err != nil {
		t.Fatalf("append: %v", err)
	}
	got, _ := s.GetConversation(context.Background(), conv.ID, 0)
	if got.CustomerName != "Ahmed" || got.CustomerPhone != "+100" {
		t.Fatalf("backfill overwritten: %+v", got)
	}
}

func TestListAndSearchScoping(t *testing.T) {
	s := NewMemoryStore()
	now := time.Now()
	a := seedConv(t, s, 1, models.ChannelWhatsApp, "cust-omar", models.StatusActive, now.Add(-time.Minute))
	a.CustomerName = "Omar"
	_ = s.AppendMessageAndUpdate(context.Background(), a.ID, models.Message{ChannelMsgID: "m1"}, AppendUpdate{EndTime: now, CustomerName: "Omar"})
	seedConv(t, s, 2, models.ChannelWhatsApp, "cust-lina", models.StatusActive, now)

	got, err := s.ListConversations(context.Background(), ListFilter{Scope: Scope{OwnerID: 1}})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 || got[0].CustomerID != "cust-omar" {
		t.Fatalf("scoped list wrong: %+v", got)
	}

	found, err := s.SearchConversations(context.Background(), Scope{OwnerID: 1}, "OMAR", 0)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(found) != 1 {
		t.Fatalf("expected case-insensitive match, got %d results", len(found))
	}
	none, _ := s.SearchConversations(context.Background(), Scope{OwnerID: 2}, "omar", 0)
	if len(none) != 0 {
		t.Fatalf("search leaked across owners: %+v", none)
	}
}

func TestSetStatusAndHandled(t *testing.T) {
	s := NewMemoryStore()
	conv := seedConv(t, s, 1, models.ChannelMessenger, "c9", models.StatusActive, time.Now().Add(-time.Hour))

	if err := s.SetStatus(context.Background(), conv.ID, models.StatusResolved); err != nil {
		t.Fatalf("set status: %v", err)
	}
	got, _ := s.GetConversation(context.Background(), conv.ID, 0)
	if got.Status != models.StatusResolved {
		t.Fatalf("status not updated: %+v", got)
	}
	if !got.EndTime.After(got.StartTime) {
		t.Fatalf("resolve should bump endTime")
	}

	at := time.Now()
	if err := s.SetHandled(context.Background(), conv.ID, true, "agent-7", at); err != nil {
		t.Fatalf("set handled: %v", err)
	}
	got, _ = s.GetConversation(context.Background(), conv.ID, 0)
	if !got.Handled || got.HandledBy != "agent-7" || got.HandledAt == nil {
		t.Fatalf("handled not recorded: %+v", got)
	}

	if err := s.SetStatus(context.Background(), 999, models.StatusArchived); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
