package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Message senders. Agent and system messages travel the same append
// path as everything else; they are distinguished by sender only.
const (
	SenderUser   = "user"
	SenderAI     = "ai"
	SenderAgent  = "agent"
	SenderSystem = "system"
)

// ChatSession is one visitor conversation scoped to (business,
// session). It is created implicitly on the first append. AgentJoined
// is a one-way flag: once a human takes over, the AI never replies in
// this session again.
type ChatSession struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key" json:"-"`
	BusinessID string    `gorm:"type:text;not null;uniqueIndex:idx_business_session" json:"business_id"`
	SessionID  string    `gorm:"type:text;not null;uniqueIndex:idx_business_session" json:"session_id"`

	StartTime       time.Time `json:"start_time"`
	LastMessageTime time.Time `gorm:"index" json:"last_message_time"`
	AgentJoined     bool      `gorm:"not null;default:false" json:"agent_joined"`

	// Seq is bumped on every append. Feed consumers compare it against
	// their previous snapshot instead of guessing from message counts.
	Seq int64 `gorm:"not null;default:0" json:"seq"`

	Messages []ChatMessage `gorm:"foreignKey:ChatSessionID;references:ID" json:"messages,omitempty"`
}

func (ChatSession) TableName() string {
	return "chat_sessions"
}

// BeforeCreate sets UUID before creating
func (s *ChatSession) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// ChatMessage is an immutable log entry. Ordering within a session is
// by Seq, assigned by the store at append time, never by client clocks.
type ChatMessage struct {
	ID            uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	ChatSessionID uuid.UUID `gorm:"type:uuid;not null;index" json:"-"`

	Seq       int64     `gorm:"not null" json:"seq"`
	Text      string    `gorm:"type:text" json:"text"`
	Sender    string    `gorm:"type:text;not null" json:"sender"`
	ImageURL  string    `gorm:"type:text" json:"image_url,omitempty"`
	Timestamp time.Time `gorm:"index" json:"timestamp"`
}

func (ChatMessage) TableName() string {
	return "chat_messages"
}

// BeforeCreate sets UUID before creating
func (m *ChatMessage) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// SessionPreview is the live-dashboard projection: session metadata
// plus only the single most recent message.
type SessionPreview struct {
	SessionID       string       `json:"session_id"`
	StartTime       time.Time    `json:"start_time"`
	LastMessageTime time.Time    `json:"last_message_time"`
	AgentJoined     bool         `json:"agent_joined"`
	Seq             int64        `json:"seq"`
	LastMessage     *ChatMessage `json:"last_message,omitempty"`
}
