package handlers

import (
	"errors"

	"github.com/chatfront/chatfront-backend/internal/modules/chat/models"
	"github.com/chatfront/chatfront-backend/internal/modules/chat/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type TicketHandler struct {
	ticketService *services.TicketService
}

func NewTicketHandler(ticketService *services.TicketService) *TicketHandler {
	return &TicketHandler{ticketService: ticketService}
}

func (h *TicketHandler) Submit(c *fiber.Ctx) error {
	var req models.SubmitTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	ticket, err := h.ticketService.Submit(c.Context(), &req)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.Status(fiber.StatusCreated).JSON(ticket)
}

func (h *TicketHandler) List(c *fiber.Ctx) error {
	tickets, err := h.ticketService.List(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(fiber.Map{"tickets": tickets})
}

func (h *TicketHandler) UpdateStatus(c *fiber.Ctx) error {
	ticketID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid ticket id",
		})
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if err := h.ticketService.UpdateStatus(c.Context(), ticketID, req.Status); err != nil {
		if errors.Is(err, services.ErrTicketNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Ticket not found",
			})
		}
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(fiber.Map{"updated": true})
}
