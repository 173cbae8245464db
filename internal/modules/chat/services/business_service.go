package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chatfront/chatfront-backend/internal/modules/chat/models"
	"github.com/chatfront/chatfront-backend/internal/modules/chat/repositories"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	qrcode "github.com/skip2/go-qrcode"
)

var (
	ErrBusinessExists = errors.New("business already exists")
	ErrInvalidPin     = errors.New("invalid dashboard PIN")
)

// defaultSubscriptionDays is the trial period granted on onboarding.
const defaultSubscriptionDays = 30

// DashboardMetrics is the agency overview card.
type DashboardMetrics struct {
	TotalBusinesses     int64 `json:"total_businesses"`
	ActiveSubscriptions int64 `json:"active_subscriptions"`
	TotalMessages       int64 `json:"total_messages"`
}

// BusinessService manages tenant onboarding, catalogue edits and the
// client dashboard login.
type BusinessService struct {
	businessRepo repositories.BusinessRepo
	sessionRepo  repositories.SessionRepo
	usageRepo    repositories.UsageRepo
	validate     *validator.Validate
	publicBase   string
}

func NewBusinessService(
	businessRepo repositories.BusinessRepo,
	sessionRepo repositories.SessionRepo,
	usageRepo repositories.UsageRepo,
	publicBase string,
) *BusinessService {
	return &BusinessService{
		businessRepo: businessRepo,
		sessionRepo:  sessionRepo,
		usageRepo:    usageRepo,
		validate:     validator.New(),
		publicBase:   publicBase,
	}
}

// Create onboards a tenant. The document ID is derived from name and
// city so widget embed URLs stay human readable.
func (s *BusinessService) Create(ctx context.Context, req *models.CreateBusinessRequest) (*models.Business, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, err
	}

	businessID := models.SlugID(req.BusinessName, req.City)
	if _, err := s.businessRepo.GetByID(ctx, businessID); err == nil {
		return nil, ErrBusinessExists
	} else if !errors.Is(err, repositories.ErrNotFound) {
		return nil, err
	}

	currency := req.Currency
	if currency == "" {
		currency = "USD"
	}

	business := &models.Business{
		BusinessID:         businessID,
		BusinessName:       req.BusinessName,
		BusinessEmail:      req.BusinessEmail,
		City:               req.City,
		Category:           req.Category,
		BusinessInfo:       req.BusinessInfo,
		CharacterName:      req.CharacterName,
		WhatsAppNumber:     req.WhatsAppNumber,
		CatalogueTitle:     req.CatalogueTitle,
		Currency:           currency,
		DashboardPin:       req.DashboardPin,
		SubscriptionExpiry: time.Now().AddDate(0, 0, defaultSubscriptionDays),
	}
	if err := s.businessRepo.Create(ctx, business); err != nil {
		return nil, err
	}
	return business, nil
}

func (s *BusinessService) Get(ctx context.Context, businessID string) (*models.Business, error) {
	business, err := s.businessRepo.GetByID(ctx, businessID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrBusinessNotFound
	}
	return business, err
}

func (s *BusinessService) List(ctx context.Context) ([]models.Business, error) {
	return s.businessRepo.List(ctx)
}

// Update applies merge-style edits; unset fields stay as they are. Set
// fields are written even when the new value is empty, so a tenant can
// clear announcement text or a stored API key.
func (s *BusinessService) Update(ctx context.Context, businessID string, req *models.UpdateBusinessRequest) (*models.Business, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, err
	}

	fields := businessUpdateFields(req)
	if len(fields) == 0 {
		return s.Get(ctx, businessID)
	}

	if err := s.businessRepo.Update(ctx, businessID, fields); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrBusinessNotFound
		}
		return nil, err
	}
	return s.Get(ctx, businessID)
}

// VerifyClientLogin checks the dashboard PIN for a tenant.
func (s *BusinessService) VerifyClientLogin(ctx context.Context, businessID, pin string) (*models.Business, error) {
	business, err := s.Get(ctx, businessID)
	if err != nil {
		return nil, err
	}
	if pin == "" || business.DashboardPin != pin {
		return nil, ErrInvalidPin
	}
	return business, nil
}

// ValidOffers returns the tenant's currently valid offers.
func (s *BusinessService) ValidOffers(ctx context.Context, businessID string) ([]models.Product, error) {
	business, err := s.Get(ctx, businessID)
	if err != nil {
		return nil, err
	}
	return business.ValidOffers(), nil
}

// WidgetQR renders a QR code pointing at the tenant's public chat page.
func (s *BusinessService) WidgetQR(ctx context.Context, businessID string, size int) ([]byte, error) {
	if _, err := s.Get(ctx, businessID); err != nil {
		return nil, err
	}
	if size <= 0 {
		size = 256
	}
	url := fmt.Sprintf("%s/chat/%s", s.publicBase, businessID)
	png, err := qrcode.Encode(url, qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("failed to render widget QR: %w", err)
	}
	return png, nil
}

// Metrics aggregates the agency dashboard counters.
func (s *BusinessService) Metrics(ctx context.Context) (*DashboardMetrics, error) {
	total, err := s.businessRepo.CountBusinesses(ctx)
	if err != nil {
		return nil, err
	}
	active, err := s.businessRepo.CountActiveSubscriptions(ctx)
	if err != nil {
		return nil, err
	}
	messages, err := s.sessionRepo.CountMessages(ctx)
	if err != nil {
		return nil, err
	}
	return &DashboardMetrics{
		TotalBusinesses:     total,
		ActiveSubscriptions: active,
		TotalMessages:       messages,
	}, nil
}

// Usage returns the tenant's rolling usage totals and daily breakdown.
func (s *BusinessService) Usage(ctx context.Context, businessID string) (models.UsageTotals, []models.UsageMetric, error) {
	if _, err := s.Get(ctx, businessID); err != nil {
		return models.UsageTotals{}, nil, err
	}
	totals, err := s.usageRepo.Aggregate(ctx, businessID)
	if err != nil {
		return models.UsageTotals{}, nil, err
	}
	daily, err := s.usageRepo.Daily(ctx, businessID, repositories.AggregateWindowDays)
	if err != nil {
		return totals, nil, err
	}
	return totals, daily, nil
}

func (s *BusinessService) AddProduct(ctx context.Context, businessID string, p *models.Product) error {
	if _, err := s.Get(ctx, businessID); err != nil {
		return err
	}
	p.BusinessID = businessID
	return s.businessRepo.CreateProduct(ctx, p)
}

func (s *BusinessService) UpdateProduct(ctx context.Context, businessID string, p *models.Product) error {
	p.BusinessID = businessID
	err := s.businessRepo.UpdateProduct(ctx, p)
	if errors.Is(err, repositories.ErrNotFound) {
		return ErrBusinessNotFound
	}
	return err
}

func (s *BusinessService) DeleteProduct(ctx context.Context, businessID string, productID uuid.UUID) error {
	err := s.businessRepo.DeleteProduct(ctx, businessID, productID)
	if errors.Is(err, repositories.ErrNotFound) {
		return ErrBusinessNotFound
	}
	return err
}

// businessUpdateFields maps set request fields to their columns.
func businessUpdateFields(req *models.UpdateBusinessRequest) map[string]interface{} {
	fields := map[string]interface{}{}
	if req.BusinessName != nil {
		fields["business_name"] = *req.BusinessName
	}
	if req.BusinessEmail != nil {
		fields["business_email"] = *req.BusinessEmail
	}
	if req.Category != nil {
		fields["category"] = *req.Category
	}
	if req.BusinessInfo != nil {
		fields["business_info"] = *req.BusinessInfo
	}
	if req.CharacterName != nil {
		fields["character_name"] = *req.CharacterName
	}
	if req.WhatsAppNumber != nil {
		fields["whatsapp_number"] = *req.WhatsAppNumber
	}
	if req.ProfileImageURL != nil {
		fields["profile_image_url"] = *req.ProfileImageURL
	}
	if req.ShareImageURL != nil {
		fields["share_image_url"] = *req.ShareImageURL
	}
	if req.WebsiteURL != nil {
		fields["website_url"] = *req.WebsiteURL
	}
	if req.GoogleBusinessURL != nil {
		fields["google_business_url"] = *req.GoogleBusinessURL
	}
	if req.CatalogueTitle != nil {
		fields["catalogue_title"] = *req.CatalogueTitle
	}
	if req.CatalogueSubtitle != nil {
		fields["catalogue_subtitle"] = *req.CatalogueSubtitle
	}
	if req.Currency != nil {
		fields["currency"] = *req.Currency
	}
	if req.SubscriptionExpiry != nil {
		fields["subscription_expiry"] = *req.SubscriptionExpiry
	}
	if req.DashboardPin != nil {
		fields["dashboard_pin"] = *req.DashboardPin
	}
	if req.AnnouncementText != nil {
		fields["announcement_text"] = *req.AnnouncementText
	}
	if req.GeminiAPIKey != nil {
		fields["gemini_api_key"] = *req.GeminiAPIKey
	}
	return fields
}
