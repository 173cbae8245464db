package repositories

import (
	"context"
	"errors"

	"github.com/chatfront/chatfront-backend/internal/modules/chat/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TicketRepo interface {
	Create(ctx context.Context, t *models.Ticket) error
	List(ctx context.Context) ([]models.Ticket, error)
	UpdateStatus(ctx context.Context, ticketID uuid.UUID, status string) error
}

type ticketRepo struct {
	db *gorm.DB
}

func NewTicketRepo(db *gorm.DB) TicketRepo {
	return &ticketRepo{db: db}
}

func (r *ticketRepo) Create(ctx context.Context, t *models.Ticket) error {
	return r.db.WithContext(ctx).Create(t).Error
}

func (r *ticketRepo) List(ctx context.Context) ([]models.Ticket, error) {
	var tickets []models.Ticket
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Find(&tickets).Error
	return tickets, err
}

func (r *ticketRepo) UpdateStatus(ctx context.Context, ticketID uuid.UUID, status string) error {
	if status != models.TicketStatusOpen && status != models.TicketStatusClosed {
		return errors.New("invalid ticket status")
	}

	res := r.db.WithContext(ctx).Model(&models.Ticket{}).
		Where("id = ?", ticketID).
		Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
