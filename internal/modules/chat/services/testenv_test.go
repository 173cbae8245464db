package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/chatfront/chatfront-backend/internal/core/llm"
	"github.com/chatfront/chatfront-backend/internal/modules/chat/models"
	"github.com/chatfront/chatfront-backend/internal/modules/chat/repositories"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// fakeProvider scripts the model: a fixed reply or a fixed error.
type fakeProvider struct {
	mu    sync.Mutex
	reply string
	err   error
	calls []*llm.ChatRequest
}

func (f *fakeProvider) GenerateChat(ctx context.Context, req *llm.ChatRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, req)
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func (f *fakeProvider) GetProviderName() string { return "fake" }

func (f *fakeProvider) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type testEnv struct {
	db           *gorm.DB
	provider     *fakeProvider
	usageRepo    repositories.UsageRepo
	sessionRepo  repositories.SessionRepo
	businessRepo repositories.BusinessRepo
	chat         *ChatService
	handoff      *HandoffService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// Pin the pool to one connection: a pooled in-memory SQLite handle
	// is otherwise a separate database per connection.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.Business{},
		&models.Product{},
		&models.ChatSession{},
		&models.ChatMessage{},
		&models.UsageMetric{},
		&models.Ticket{},
	))

	provider := &fakeProvider{reply: "Happy to help!"}
	llmService := llm.NewServiceWithProvider(provider)

	usageRepo := repositories.NewUsageRepo(db)
	sessionRepo := repositories.NewSessionRepo(db, usageRepo)
	businessRepo := repositories.NewBusinessRepo(db, usageRepo)

	return &testEnv{
		db:           db,
		provider:     provider,
		usageRepo:    usageRepo,
		sessionRepo:  sessionRepo,
		businessRepo: businessRepo,
		chat:         NewChatService(businessRepo, sessionRepo, usageRepo, llmService, nil),
		handoff:      NewHandoffService(sessionRepo, nil),
	}
}

func (e *testEnv) seedBusiness(t *testing.T) *models.Business {
	t.Helper()

	offerPrice := 80.0
	offerExpiry := time.Now().Add(48 * time.Hour)
	business := &models.Business{
		BusinessID:    "green-dental-pune",
		BusinessName:  "Green Dental",
		City:          "Pune",
		BusinessInfo:  "Family dental clinic.",
		CharacterName: "Asha",
	}
	require.NoError(t, e.businessRepo.Create(context.Background(), business))
	require.NoError(t, e.businessRepo.CreateProduct(context.Background(), &models.Product{
		BusinessID:  business.BusinessID,
		Name:        "Teeth Whitening",
		Type:        models.ProductTypeService,
		Price:       100,
		OfferPrice:  &offerPrice,
		OfferExpiry: &offerExpiry,
	}))
	return business
}

func (e *testEnv) tokensRecorded(t *testing.T, businessID string) int64 {
	t.Helper()
	totals, err := e.usageRepo.Aggregate(context.Background(), businessID)
	require.NoError(t, err)
	return totals.GeminiTokens
}
