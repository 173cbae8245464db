package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ProductTypeProduct = "product"
	ProductTypeService = "service"
)

// Product is a catalogue entry owned by a Business. A "service" entry
// has no meaningful stock figure.
type Product struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	BusinessID string    `gorm:"type:text;not null;index" json:"business_id"`

	Name        string  `gorm:"type:text;not null" json:"name"`
	Description string  `gorm:"type:text" json:"description,omitempty"`
	Price       float64 `gorm:"type:decimal(12,2);not null;default:0" json:"price"`
	Stock       int     `gorm:"type:integer;not null;default:0" json:"stock"`
	ImageURL    string  `gorm:"type:text" json:"image_url,omitempty"`
	Type        string  `gorm:"type:text;not null;default:'product'" json:"type"`

	// Time-boxed discounted price. Both fields set together or not at
	// all.
	OfferPrice  *float64   `gorm:"type:decimal(12,2)" json:"offer_price,omitempty"`
	OfferExpiry *time.Time `json:"offer_expiry,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Product) TableName() string {
	return "products"
}

// BeforeCreate sets UUID before creating
func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// HasOffer reports whether an offer is attached, valid or not.
func (p *Product) HasOffer() bool {
	return p.OfferPrice != nil && p.OfferExpiry != nil
}

// OfferValidAt reports whether the product carries an offer that has
// not yet expired at the given instant.
func (p *Product) OfferValidAt(now time.Time) bool {
	return p.HasOffer() && now.Before(*p.OfferExpiry)
}

// CreateProductRequest represents a catalogue entry submission
type CreateProductRequest struct {
	Name        string     `json:"name" validate:"required,min=1,max=200"`
	Description string     `json:"description,omitempty" validate:"max=1000"`
	Price       float64    `json:"price" validate:"required,gte=0"`
	Stock       int        `json:"stock" validate:"gte=0"`
	ImageURL    string     `json:"image_url,omitempty" validate:"omitempty,url"`
	Type        string     `json:"type" validate:"required,oneof=product service"`
	OfferPrice  *float64   `json:"offer_price,omitempty" validate:"omitempty,gte=0"`
	OfferExpiry *time.Time `json:"offer_expiry,omitempty"`
}
