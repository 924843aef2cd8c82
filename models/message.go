package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	SenderCustomer = "customer"
	SenderAgent    = "agent"
)

const (
	MessageTypeText     = "text"
	MessageTypeImage    = "image"
	MessageTypeAudio    = "audio"
	MessageTypeDocument = "document"
)

type Message struct {
	gorm.Model
	ConversationID uint      `gorm:"not null;index;uniqueIndex:uniq_conv_channel_msg" json:"-"`
	ChannelMsgID   string    `gorm:"size:128;not null;uniqueIndex:uniq_conv_channel_msg" json:"id"`
	Content        string    `gorm:"type:text" json:"content"`
	Sender         string    `gorm:"size:20;not null" json:"sender"` // "customer" or "agent"
	MessageType    string    `gorm:"size:20;not null;default:text" json:"messageType"`
	Timestamp      time.Time `gorm:"index" json:"timestamp"`
	Sentiment      Sentiment `gorm:"embedded;embeddedPrefix:sentiment_" json:"sentiment"`
}

// HasSentiment reports whether a classification was attached at ingestion.
func (m *Message) HasSentiment() bool {
	return m.Sentiment.Label != ""
}

func ValidSender(s string) bool {
	return s == SenderCustomer || s == SenderAgent
}

func ValidMessageType(t string) bool {
	switch t {
	case MessageTypeText, MessageTypeImage, MessageTypeAudio, MessageTypeDocument:
		return true
	}
	return false
}
