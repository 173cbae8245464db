package handlers

import (
	"errors"
	"strconv"

	"github.com/chatfront/chatfront-backend/internal/modules/chat/models"
	"github.com/chatfront/chatfront-backend/internal/modules/chat/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type BusinessHandler struct {
	businessService *services.BusinessService
	chatService     *services.ChatService
}

func NewBusinessHandler(businessService *services.BusinessService, chatService *services.ChatService) *BusinessHandler {
	return &BusinessHandler{
		businessService: businessService,
		chatService:     chatService,
	}
}

func (h *BusinessHandler) Create(c *fiber.Ctx) error {
	var req models.CreateBusinessRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	business, err := h.businessService.Create(c.Context(), &req)
	if errors.Is(err, services.ErrBusinessExists) {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "A business with this name and city already exists",
		})
	}
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.Status(fiber.StatusCreated).JSON(business)
}

func (h *BusinessHandler) List(c *fiber.Ctx) error {
	businesses, err := h.businessService.List(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(fiber.Map{"businesses": businesses})
}

func (h *BusinessHandler) Get(c *fiber.Ctx) error {
	business, err := h.businessService.Get(c.Context(), c.Params("id"))
	if err != nil {
		return notFoundOr500(c, err)
	}
	return c.JSON(business)
}

func (h *BusinessHandler) Update(c *fiber.Ctx) error {
	var req models.UpdateBusinessRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	business, err := h.businessService.Update(c.Context(), c.Params("id"), &req)
	if errors.Is(err, services.ErrBusinessNotFound) {
		return notFoundOr500(c, err)
	}
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(business)
}

// Login verifies the client dashboard PIN for a business.
func (h *BusinessHandler) Login(c *fiber.Ctx) error {
	var req struct {
		Pin string `json:"pin"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	business, err := h.businessService.VerifyClientLogin(c.Context(), c.Params("id"), req.Pin)
	if errors.Is(err, services.ErrInvalidPin) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid PIN",
		})
	}
	if err != nil {
		return notFoundOr500(c, err)
	}
	return c.JSON(business)
}

// WidgetQR returns a PNG QR code linking to the hosted chat page.
func (h *BusinessHandler) WidgetQR(c *fiber.Ctx) error {
	size, _ := strconv.Atoi(c.Query("size", "256"))
	png, err := h.businessService.WidgetQR(c.Context(), c.Params("id"), size)
	if err != nil {
		return notFoundOr500(c, err)
	}
	c.Set(fiber.HeaderContentType, "image/png")
	return c.Send(png)
}

// Offers returns the currently valid offers for a business.
func (h *BusinessHandler) Offers(c *fiber.Ctx) error {
	offers, err := h.businessService.ValidOffers(c.Context(), c.Params("id"))
	if err != nil {
		return notFoundOr500(c, err)
	}
	return c.JSON(fiber.Map{"offers": offers})
}

// Sessions returns the recent chat history with full transcripts.
func (h *BusinessHandler) Sessions(c *fiber.Ctx) error {
	sessions, err := h.chatService.RecentSessions(c.Context(), c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(fiber.Map{"sessions": sessions})
}

// Usage returns the rolling 30-day usage totals.
func (h *BusinessHandler) Usage(c *fiber.Ctx) error {
	totals, _, err := h.businessService.Usage(c.Context(), c.Params("id"))
	if err != nil {
		return notFoundOr500(c, err)
	}
	return c.JSON(totals)
}

// UsageDaily returns the per-day usage breakdown.
func (h *BusinessHandler) UsageDaily(c *fiber.Ctx) error {
	_, daily, err := h.businessService.Usage(c.Context(), c.Params("id"))
	if err != nil {
		return notFoundOr500(c, err)
	}
	return c.JSON(fiber.Map{"daily": daily})
}

// Summary generates a business-intelligence summary of recent chats.
func (h *BusinessHandler) Summary(c *fiber.Ctx) error {
	cc, err := h.chatService.NewChatContext(c.Context(), c.Params("id"))
	if err != nil {
		return notFoundOr500(c, err)
	}
	summary, err := h.chatService.GenerateSummary(c.Context(), cc)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(fiber.Map{"summary": summary})
}

// Metrics serves the agency dashboard overview counters.
func (h *BusinessHandler) Metrics(c *fiber.Ctx) error {
	metrics, err := h.businessService.Metrics(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(metrics)
}

func (h *BusinessHandler) AddProduct(c *fiber.Ctx) error {
	var product models.Product
	if err := c.BodyParser(&product); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if product.Name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Product name is required",
		})
	}

	if err := h.businessService.AddProduct(c.Context(), c.Params("id"), &product); err != nil {
		return notFoundOr500(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(product)
}

func (h *BusinessHandler) UpdateProduct(c *fiber.Ctx) error {
	productID, err := uuid.Parse(c.Params("productId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid product id",
		})
	}

	var product models.Product
	if err := c.BodyParser(&product); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	product.ID = productID

	if err := h.businessService.UpdateProduct(c.Context(), c.Params("id"), &product); err != nil {
		return notFoundOr500(c, err)
	}
	return c.JSON(product)
}

func (h *BusinessHandler) DeleteProduct(c *fiber.Ctx) error {
	productID, err := uuid.Parse(c.Params("productId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid product id",
		})
	}

	if err := h.businessService.DeleteProduct(c.Context(), c.Params("id"), productID); err != nil {
		return notFoundOr500(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func notFoundOr500(c *fiber.Ctx, err error) error {
	if errors.Is(err, services.ErrBusinessNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Business not found",
		})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": err.Error(),
	})
}
