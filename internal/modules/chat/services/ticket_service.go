package services

import (
	"context"
	"errors"

	"github.com/chatfront/chatfront-backend/internal/modules/chat/models"
	"github.com/chatfront/chatfront-backend/internal/modules/chat/repositories"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var ErrTicketNotFound = errors.New("ticket not found")

// TicketService handles client support tickets submitted from the
// dashboard. Diagnostic logs are stored alongside the ticket as JSON.
type TicketService struct {
	ticketRepo repositories.TicketRepo
	validate   *validator.Validate
}

func NewTicketService(ticketRepo repositories.TicketRepo) *TicketService {
	return &TicketService{ticketRepo: ticketRepo, validate: validator.New()}
}

func (s *TicketService) Submit(ctx context.Context, req *models.SubmitTicketRequest) (*models.Ticket, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, err
	}

	ticket := &models.Ticket{
		BusinessID:   req.BusinessID,
		BusinessName: req.BusinessName,
		Issue:        req.Issue,
		Details:      req.Details,
		Logs:         req.Logs,
		Status:       models.TicketStatusOpen,
	}
	if err := s.ticketRepo.Create(ctx, ticket); err != nil {
		return nil, err
	}
	return ticket, nil
}

func (s *TicketService) List(ctx context.Context) ([]models.Ticket, error) {
	return s.ticketRepo.List(ctx)
}

func (s *TicketService) UpdateStatus(ctx context.Context, ticketID uuid.UUID, status string) error {
	err := s.ticketRepo.UpdateStatus(ctx, ticketID, status)
	if errors.Is(err, repositories.ErrNotFound) {
		return ErrTicketNotFound
	}
	return err
}
