package main

import (
	"context"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"

	"github.com/chatfront/chatfront-backend/internal/core/feed"
	"github.com/chatfront/chatfront-backend/internal/core/llm"
	"github.com/chatfront/chatfront-backend/internal/modules/chat/handlers"
	"github.com/chatfront/chatfront-backend/internal/modules/chat/repositories"
	"github.com/chatfront/chatfront-backend/internal/modules/chat/services"
	"github.com/chatfront/chatfront-backend/internal/shared/config"
	"github.com/chatfront/chatfront-backend/internal/shared/database"
	"github.com/chatfront/chatfront-backend/internal/shared/utils"
)

func main() {
	// Load config
	cfg := config.LoadConfig()
	utils.InitLogger()
	log.Printf("🚀 Starting chatfront api on port %s", cfg.Port)

	// Init database
	db := database.NewDB(cfg.DatabaseURL)
	defer db.Close()

	// Init repositories
	usageRepo := repositories.NewUsageRepo(db.GORM)
	sessionRepo := repositories.NewSessionRepo(db.GORM, usageRepo)
	businessRepo := repositories.NewBusinessRepo(db.GORM, usageRepo)
	ticketRepo := repositories.NewTicketRepo(db.GORM)

	// Init LLM service
	llmService, err := llm.NewService(&llm.ProviderConfig{
		Type:      llm.ProviderType(cfg.LLMProvider),
		GeminiKey: cfg.GeminiKey,
		OpenAIKey: cfg.OpenAIKey,
		Model:     cfg.LLMModel,
	})
	if err != nil {
		log.Fatalf("❌ Failed to init LLM service: %v", err)
	}

	// Init live feed hub
	hub := feed.NewHub()
	go hub.Run()

	// Init services
	feedService := services.NewFeedService(sessionRepo, businessRepo, usageRepo, llmService, hub)
	chatService := services.NewChatService(businessRepo, sessionRepo, usageRepo, llmService, feedService)
	handoffService := services.NewHandoffService(sessionRepo, feedService)
	businessService := services.NewBusinessService(businessRepo, sessionRepo, usageRepo, cfg.PublicBaseURL)
	ticketService := services.NewTicketService(ticketRepo)

	// Init handlers
	chatHandler := handlers.NewChatHandler(chatService, handoffService)
	businessHandler := handlers.NewBusinessHandler(businessService, chatService)
	ticketHandler := handlers.NewTicketHandler(ticketService)
	feedHandler := handlers.NewFeedHandler(feedService)

	// Nightly usage bucket retention sweep
	scheduler := cron.New()
	if _, err := scheduler.AddFunc("@daily", func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		deleted, err := usageRepo.Prune(ctx, repositories.AggregateWindowDays)
		if err != nil {
			utils.LogError("usage prune failed", err, nil)
			return
		}
		utils.LogInfo("usage buckets pruned", map[string]interface{}{"deleted": deleted})
	}); err != nil {
		log.Fatalf("❌ Failed to schedule usage prune: %v", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	// Init Fiber app
	app := fiber.New(fiber.Config{
		AppName: "Chatfront API",
	})

	// Middleware
	app.Use(cors.New())

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "chatfront-api",
		})
	})

	// Prometheus metrics
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// Business routes
	app.Post("/businesses", businessHandler.Create)
	app.Get("/businesses", businessHandler.List)
	app.Get("/businesses/:id", businessHandler.Get)
	app.Put("/businesses/:id", businessHandler.Update)
	app.Post("/businesses/:id/login", businessHandler.Login)
	app.Get("/businesses/:id/qr", businessHandler.WidgetQR)
	app.Get("/businesses/:id/offers", businessHandler.Offers)
	app.Get("/businesses/:id/sessions", businessHandler.Sessions)
	app.Get("/businesses/:id/usage", businessHandler.Usage)
	app.Get("/businesses/:id/usage/daily", businessHandler.UsageDaily)
	app.Get("/businesses/:id/summary", businessHandler.Summary)

	// Catalogue routes
	app.Post("/businesses/:id/products", businessHandler.AddProduct)
	app.Put("/businesses/:id/products/:productId", businessHandler.UpdateProduct)
	app.Delete("/businesses/:id/products/:productId", businessHandler.DeleteProduct)

	// Chat widget routes
	app.Post("/chat/:businessId/sessions/:sessionId/messages", chatHandler.SubmitTurn)
	app.Post("/chat/:businessId/sessions/:sessionId/start", chatHandler.StartSession)
	app.Get("/chat/:businessId/sessions/:sessionId/messages", chatHandler.ListMessages)

	// Agent handoff routes
	app.Post("/chat/:businessId/sessions/:sessionId/join", chatHandler.JoinSession)
	app.Post("/chat/:businessId/sessions/:sessionId/agent-messages", chatHandler.AgentMessage)

	// Live feed websocket
	app.Use("/ws/feed/:businessId", feedHandler.Upgrade)
	app.Get("/ws/feed/:businessId", feedHandler.Stream())

	// Agency dashboard
	app.Get("/dashboard/metrics", businessHandler.Metrics)

	// Ticket routes
	app.Post("/tickets", ticketHandler.Submit)
	app.Get("/tickets", ticketHandler.List)
	app.Put("/tickets/:id/status", ticketHandler.UpdateStatus)

	log.Printf("✅ chatfront api running at :%s", cfg.Port)
	log.Fatal(app.Listen(":" + cfg.Port))
}
