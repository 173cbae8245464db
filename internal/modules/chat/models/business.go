package models

import (
	"strings"
	"time"
)

// Business is one onboarded tenant: its chat persona, branding and
// product catalogue. The record is owned by the agency; clients read it
// and authenticate against DashboardPin.
type Business struct {
	BusinessID    string `gorm:"type:text;primary_key" json:"business_id"`
	BusinessName  string `gorm:"type:text;not null" json:"business_name"`
	BusinessEmail string `gorm:"type:text" json:"business_email"`
	City          string `gorm:"type:text;not null" json:"city"`
	Category      string `gorm:"type:text" json:"category"`

	// AI persona
	BusinessInfo  string `gorm:"type:text" json:"business_info"`
	CharacterName string `gorm:"type:text" json:"character_name"`

	// Contact & branding
	WhatsAppNumber    string `gorm:"column:whatsapp_number;type:text" json:"whatsapp_number"`
	ProfileImageURL   string `gorm:"type:text" json:"profile_image_url,omitempty"`
	ShareImageURL     string `gorm:"type:text" json:"share_image_url,omitempty"`
	WebsiteURL        string `gorm:"type:text" json:"website_url,omitempty"`
	GoogleBusinessURL string `gorm:"type:text" json:"google_business_url,omitempty"`

	// Catalogue metadata
	CatalogueTitle    string `gorm:"type:text" json:"catalogue_title"`
	CatalogueSubtitle string `gorm:"type:text" json:"catalogue_subtitle"`
	Currency          string `gorm:"type:text;default:'USD'" json:"currency"`

	SubscriptionExpiry time.Time `json:"subscription_expiry"`
	DashboardPin       string    `gorm:"type:text" json:"-"`
	AnnouncementText   string    `gorm:"type:text" json:"announcement_text,omitempty"`

	// Per-tenant credential override. When set it is used in place of
	// the shared default key for every LLM call on this tenant's behalf.
	GeminiAPIKey string `gorm:"type:text" json:"-"`

	Products []Product `gorm:"foreignKey:BusinessID;references:BusinessID" json:"products"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Business) TableName() string {
	return "businesses"
}

// SubscriptionActive reports whether the tenant's subscription has not
// yet lapsed. There is no hard delete in visible flows; expiry is the
// only deactivation mechanism.
func (b *Business) SubscriptionActive() bool {
	return b.SubscriptionExpiry.After(time.Now())
}

// ValidOffers returns the catalogue subset with an offer whose expiry
// is still in the future. Lapsed offers stay in the catalogue but must
// never be surfaced to chat users as active.
func (b *Business) ValidOffers() []Product {
	var offers []Product
	now := time.Now()
	for _, p := range b.Products {
		if p.OfferValidAt(now) {
			offers = append(offers, p)
		}
	}
	return offers
}

// SlugID derives the business document ID from name and city, e.g.
// ("Green Dental", "Pune") -> "green-dental-pune".
func SlugID(businessName, city string) string {
	kebab := func(s string) string {
		return strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(s))), "-")
	}
	return kebab(businessName) + "-" + kebab(city)
}

// CreateBusinessRequest represents business onboarding input
type CreateBusinessRequest struct {
	BusinessName   string `json:"business_name" validate:"required,min=2,max=120"`
	BusinessEmail  string `json:"business_email" validate:"required,email"`
	City           string `json:"city" validate:"required,min=1,max=80"`
	Category       string `json:"category" validate:"max=80"`
	BusinessInfo   string `json:"business_info" validate:"required"`
	CharacterName  string `json:"character_name" validate:"required,min=1,max=60"`
	WhatsAppNumber string `json:"whatsapp_number" validate:"required,min=6,max=20"`
	CatalogueTitle string `json:"catalogue_title" validate:"max=120"`
	Currency       string `json:"currency" validate:"omitempty,oneof=USD INR EUR GBP"`
	DashboardPin   string `json:"dashboard_pin" validate:"required,numeric,min=4,max=8"`
}

// UpdateBusinessRequest carries merge-style edits; nil fields are left
// untouched.
type UpdateBusinessRequest struct {
	BusinessName       *string    `json:"business_name,omitempty" validate:"omitempty,min=2,max=120"`
	BusinessEmail      *string    `json:"business_email,omitempty" validate:"omitempty,email"`
	Category           *string    `json:"category,omitempty" validate:"omitempty,max=80"`
	BusinessInfo       *string    `json:"business_info,omitempty"`
	CharacterName      *string    `json:"character_name,omitempty" validate:"omitempty,min=1,max=60"`
	WhatsAppNumber     *string    `json:"whatsapp_number,omitempty" validate:"omitempty,min=6,max=20"`
	ProfileImageURL    *string    `json:"profile_image_url,omitempty" validate:"omitempty,url"`
	ShareImageURL      *string    `json:"share_image_url,omitempty" validate:"omitempty,url"`
	WebsiteURL         *string    `json:"website_url,omitempty" validate:"omitempty,url"`
	GoogleBusinessURL  *string    `json:"google_business_url,omitempty" validate:"omitempty,url"`
	CatalogueTitle     *string    `json:"catalogue_title,omitempty" validate:"omitempty,max=120"`
	CatalogueSubtitle  *string    `json:"catalogue_subtitle,omitempty" validate:"omitempty,max=200"`
	Currency           *string    `json:"currency,omitempty" validate:"omitempty,oneof=USD INR EUR GBP"`
	SubscriptionExpiry *time.Time `json:"subscription_expiry,omitempty"`
	DashboardPin       *string    `json:"dashboard_pin,omitempty" validate:"omitempty,numeric,min=4,max=8"`
	AnnouncementText   *string    `json:"announcement_text,omitempty"`
	GeminiAPIKey       *string    `json:"gemini_api_key,omitempty"`
}
