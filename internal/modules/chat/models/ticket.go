package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	TicketStatusOpen   = "open"
	TicketStatusClosed = "closed"
)

// Ticket is an agency-facing support record. Append plus status toggle
// only; no edits.
type Ticket struct {
	ID           uuid.UUID      `gorm:"type:uuid;primary_key" json:"id"`
	BusinessID   string         `gorm:"type:text;not null;index" json:"business_id"`
	BusinessName string         `gorm:"type:text" json:"business_name"`
	Issue        string         `gorm:"type:text;not null" json:"issue"`
	Details      string         `gorm:"type:text" json:"details"`
	Logs         datatypes.JSON `json:"logs,omitempty"`
	Status       string         `gorm:"type:text;not null;default:'open'" json:"status"`
	CreatedAt    time.Time      `gorm:"autoCreateTime;index" json:"created_at"`
}

func (Ticket) TableName() string {
	return "support_tickets"
}

// BeforeCreate sets UUID before creating
func (t *Ticket) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// SubmitTicketRequest represents a support ticket submission
type SubmitTicketRequest struct {
	BusinessID   string         `json:"business_id" validate:"required"`
	BusinessName string         `json:"business_name" validate:"required"`
	Issue        string         `json:"issue" validate:"required,max=120"`
	Details      string         `json:"details" validate:"required,max=4000"`
	Logs         datatypes.JSON `json:"logs,omitempty"`
}
