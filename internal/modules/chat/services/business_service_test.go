package services

import (
	"bytes"
	"context"
	"testing"

	"github.com/chatfront/chatfront-backend/internal/modules/chat/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBusinessService(env *testEnv) *BusinessService {
	return NewBusinessService(env.businessRepo, env.sessionRepo, env.usageRepo, "https://chatfront.example")
}

func validCreateRequest() *models.CreateBusinessRequest {
	return &models.CreateBusinessRequest{
		BusinessName:   "Green Dental",
		BusinessEmail:  "hello@greendental.example",
		City:           "Pune",
		BusinessInfo:   "Family dental clinic.",
		CharacterName:  "Asha",
		WhatsAppNumber: "+911234567890",
		DashboardPin:   "4321",
	}
}

func TestBusinessCreateDerivesSlug(t *testing.T) {
	env := newTestEnv(t)
	svc := newBusinessService(env)
	ctx := context.Background()

	business, err := svc.Create(ctx, validCreateRequest())
	require.NoError(t, err)
	assert.Equal(t, "green-dental-pune", business.BusinessID)
	assert.Equal(t, "USD", business.Currency)
	assert.True(t, business.SubscriptionActive(), "onboarding grants a trial period")

	_, err = svc.Create(ctx, validCreateRequest())
	assert.ErrorIs(t, err, ErrBusinessExists)
}

func TestBusinessCreateValidation(t *testing.T) {
	env := newTestEnv(t)
	svc := newBusinessService(env)

	req := validCreateRequest()
	req.BusinessEmail = "not-an-email"
	_, err := svc.Create(context.Background(), req)
	assert.Error(t, err)
}

func TestBusinessUpdateMerges(t *testing.T) {
	env := newTestEnv(t)
	svc := newBusinessService(env)
	ctx := context.Background()

	created, err := svc.Create(ctx, validCreateRequest())
	require.NoError(t, err)

	newInfo := "Family dental clinic, now open Sundays."
	updated, err := svc.Update(ctx, created.BusinessID, &models.UpdateBusinessRequest{
		BusinessInfo: &newInfo,
	})
	require.NoError(t, err)
	assert.Equal(t, newInfo, updated.BusinessInfo)
	assert.Equal(t, "Green Dental", updated.BusinessName, "unset fields stay untouched")
	assert.Equal(t, "Asha", updated.CharacterName)
}

func TestBusinessUpdateClearsToEmpty(t *testing.T) {
	env := newTestEnv(t)
	svc := newBusinessService(env)
	ctx := context.Background()

	created, err := svc.Create(ctx, validCreateRequest())
	require.NoError(t, err)

	announcement := "Closed for Diwali"
	updated, err := svc.Update(ctx, created.BusinessID, &models.UpdateBusinessRequest{
		AnnouncementText: &announcement,
	})
	require.NoError(t, err)
	assert.Equal(t, announcement, updated.AnnouncementText)

	// setting a field to its zero value must stick
	empty := ""
	updated, err = svc.Update(ctx, created.BusinessID, &models.UpdateBusinessRequest{
		AnnouncementText: &empty,
	})
	require.NoError(t, err)
	assert.Empty(t, updated.AnnouncementText)
	assert.Equal(t, "Green Dental", updated.BusinessName)
}

func TestVerifyClientLogin(t *testing.T) {
	env := newTestEnv(t)
	svc := newBusinessService(env)
	ctx := context.Background()

	created, err := svc.Create(ctx, validCreateRequest())
	require.NoError(t, err)

	business, err := svc.VerifyClientLogin(ctx, created.BusinessID, "4321")
	require.NoError(t, err)
	assert.Equal(t, created.BusinessID, business.BusinessID)

	_, err = svc.VerifyClientLogin(ctx, created.BusinessID, "0000")
	assert.ErrorIs(t, err, ErrInvalidPin)

	_, err = svc.VerifyClientLogin(ctx, created.BusinessID, "")
	assert.ErrorIs(t, err, ErrInvalidPin)

	_, err = svc.VerifyClientLogin(ctx, "ghost", "4321")
	assert.ErrorIs(t, err, ErrBusinessNotFound)
}

func TestWidgetQR(t *testing.T) {
	env := newTestEnv(t)
	svc := newBusinessService(env)
	ctx := context.Background()

	created, err := svc.Create(ctx, validCreateRequest())
	require.NoError(t, err)

	png, err := svc.WidgetQR(ctx, created.BusinessID, 0)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")), "expected a PNG payload")

	_, err = svc.WidgetQR(ctx, "ghost", 256)
	assert.ErrorIs(t, err, ErrBusinessNotFound)
}

func TestDashboardMetrics(t *testing.T) {
	env := newTestEnv(t)
	svc := newBusinessService(env)
	ctx := context.Background()

	created, err := svc.Create(ctx, validCreateRequest())
	require.NoError(t, err)
	require.NoError(t, env.sessionRepo.AppendMessage(ctx, created.BusinessID, "sess-1",
		&models.ChatMessage{Text: "hi", Sender: models.SenderUser}))

	metrics, err := svc.Metrics(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), metrics.TotalBusinesses)
	assert.Equal(t, int64(1), metrics.ActiveSubscriptions)
	assert.Equal(t, int64(1), metrics.TotalMessages)
}

func TestUsageSurface(t *testing.T) {
	env := newTestEnv(t)
	svc := newBusinessService(env)
	ctx := context.Background()

	created, err := svc.Create(ctx, validCreateRequest())
	require.NoError(t, err)
	env.usageRepo.Record(created.BusinessID, models.UsageDelta{Tokens: 42, Reads: 3, Writes: 2})

	totals, daily, err := svc.Usage(ctx, created.BusinessID)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, totals.GeminiTokens, int64(42))
	assert.NotEmpty(t, daily)
}
