package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chatfront/chatfront-backend/internal/modules/chat/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BusinessRepo interface {
	Create(ctx context.Context, b *models.Business) error
	GetByID(ctx context.Context, businessID string) (*models.Business, error)
	List(ctx context.Context) ([]models.Business, error)
	// Update writes the given columns. A field map is used instead of a
	// struct so zero values, such as clearing announcement text to "",
	// are persisted rather than skipped.
	Update(ctx context.Context, businessID string, fields map[string]interface{}) error

	CreateProduct(ctx context.Context, p *models.Product) error
	UpdateProduct(ctx context.Context, p *models.Product) error
	DeleteProduct(ctx context.Context, businessID string, productID uuid.UUID) error

	CountBusinesses(ctx context.Context) (int64, error)
	CountActiveSubscriptions(ctx context.Context) (int64, error)
}

type businessRepo struct {
	db    *gorm.DB
	usage UsageRepo
}

func NewBusinessRepo(db *gorm.DB, usage UsageRepo) BusinessRepo {
	return &businessRepo{db: db, usage: usage}
}

func (r *businessRepo) Create(ctx context.Context, b *models.Business) error {
	if err := r.db.WithContext(ctx).Create(b).Error; err != nil {
		return fmt.Errorf("failed to create business: %w", err)
	}
	r.usage.Record(b.BusinessID, models.UsageDelta{Writes: 1})
	return nil
}

func (r *businessRepo) GetByID(ctx context.Context, businessID string) (*models.Business, error) {
	var b models.Business
	err := r.db.WithContext(ctx).
		Preload("Products").
		Where("business_id = ?", businessID).
		First(&b).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	r.usage.Record(businessID, models.UsageDelta{Reads: 1})
	return &b, nil
}

func (r *businessRepo) List(ctx context.Context) ([]models.Business, error) {
	var businesses []models.Business
	err := r.db.WithContext(ctx).
		Preload("Products").
		Order("business_name ASC").
		Find(&businesses).Error
	return businesses, err
}

func (r *businessRepo) Update(ctx context.Context, businessID string, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	res := r.db.WithContext(ctx).
		Model(&models.Business{}).
		Where("business_id = ?", businessID).
		Updates(fields)
	if res.Error != nil {
		return fmt.Errorf("failed to update business: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}

	r.usage.Record(businessID, models.UsageDelta{Writes: 1})
	return nil
}

func (r *businessRepo) CreateProduct(ctx context.Context, p *models.Product) error {
	if err := r.db.WithContext(ctx).Create(p).Error; err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}
	r.usage.Record(p.BusinessID, models.UsageDelta{Writes: 1})
	return nil
}

func (r *businessRepo) UpdateProduct(ctx context.Context, p *models.Product) error {
	res := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ? AND business_id = ?", p.ID, p.BusinessID).
		Updates(p)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}

	r.usage.Record(p.BusinessID, models.UsageDelta{Writes: 1})
	return nil
}

func (r *businessRepo) DeleteProduct(ctx context.Context, businessID string, productID uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Where("id = ? AND business_id = ?", productID, businessID).
		Delete(&models.Product{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}

	r.usage.Record(businessID, models.UsageDelta{Writes: 1})
	return nil
}

func (r *businessRepo) CountBusinesses(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Business{}).Count(&count).Error
	return count, err
}

func (r *businessRepo) CountActiveSubscriptions(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Business{}).
		Where("subscription_expiry > ?", time.Now()).
		Count(&count).Error
	return count, err
}
