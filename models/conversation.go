package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// Channels a conversation can originate from.
const (
	ChannelWhatsApp  = "whatsapp"
	ChannelMessenger = "messenger"
)

// Conversation lifecycle states. Transitions out of "active" only happen
// through an explicit status update, never during ingestion.
const (
	StatusActive    = "active"
	StatusResolved  = "resolved"
	StatusArchived  = "archived"
	StatusEscalated = "escalated"
)

// Conversation is an ordered thread of messages for one customer on one
// channel. At most one conversation per (owner, channel, customer) tuple
// is "active" at any time; inbound messages append to it. Messages are
// kept in arrival order, which is not necessarily timestamp order.
type Conversation struct {
	gorm.Model
	PublicID      string           `gorm:"size:36;uniqueIndex" json:"publicId"`
	OwnerID       uint             `gorm:"not null;index:idx_tuple_active" json:"ownerId"`
	Channel       string           `gorm:"size:20;not null;index:idx_tuple_active" json:"channel"`
	CustomerID    string           `gorm:"size:128;not null;index:idx_tuple_active" json:"customerId"`
	CustomerName  string           `gorm:"size:200" json:"customerName,omitempty"`
	CustomerPhone string           `gorm:"size:40" json:"customerPhone,omitempty"`
	Messages      []Message        `gorm:"constraint:OnDelete:CASCADE" json:"messages"`
	Summary       SentimentSummary `gorm:"embedded;embeddedPrefix:summary_" json:"summary"`
	StartTime     time.Time        `gorm:"index" json:"startTime"`
	EndTime       time.Time        `gorm:"index" json:"endTime"`
	Status        string           `gorm:"size:20;not null;default:active;index:idx_tuple_active" json:"status"`
	Tags          string           `gorm:"size:500" json:"-"` // comma-separated
	Handled       bool             `json:"handled"`
	HandledAt     *time.Time       `json:"handledAt,omitempty"`
	HandledBy     string           `gorm:"size:128" json:"handledBy,omitempty"`
}

// TagList splits the stored tag string into a slice, dropping empties.
func (c *Conversation) TagList() []string {
	if strings.TrimSpace(c.Tags) == "" {
		return nil
	}
	parts := strings.Split(c.Tags, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func ValidChannel(ch string) bool {
	return ch == ChannelWhatsApp || ch == ChannelMessenger
}

func ValidStatus(s string) bool {
	switch s {
	case StatusActive, StatusResolved, StatusArchived, StatusEscalated:
		return true
	}
	return false
}
