package services

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/chatfront/chatfront-backend/internal/core/feed"
	"github.com/chatfront/chatfront-backend/internal/core/llm"
	"github.com/chatfront/chatfront-backend/internal/modules/chat/models"
	"github.com/chatfront/chatfront-backend/internal/modules/chat/repositories"
	"github.com/chatfront/chatfront-backend/internal/shared/utils"
)

const (
	feedQueryTimeout = 10 * time.Second

	// suggestionHistoryLimit caps the trailing context sent to the
	// model for reply suggestions.
	suggestionHistoryLimit = 6
)

// SuggestionEvent is pushed to dashboard subscribers when fresh reply
// suggestions are available for a session.
type SuggestionEvent struct {
	SessionID   string   `json:"session_id"`
	Suggestions []string `json:"suggestions"`
}

// FeedService feeds live dashboards: on every append it rebroadcasts a
// bounded session snapshot per tenant, and when a session's newest
// message came from the visitor it kicks off best-effort reply
// suggestion generation.
type FeedService struct {
	sessionRepo  repositories.SessionRepo
	businessRepo repositories.BusinessRepo
	usageRepo    repositories.UsageRepo
	llmService   *llm.Service
	hub          *feed.Hub

	mu      sync.Mutex
	lastSeq map[string]map[string]int64
}

func NewFeedService(
	sessionRepo repositories.SessionRepo,
	businessRepo repositories.BusinessRepo,
	usageRepo repositories.UsageRepo,
	llmService *llm.Service,
	hub *feed.Hub,
) *FeedService {
	return &FeedService{
		sessionRepo:  sessionRepo,
		businessRepo: businessRepo,
		usageRepo:    usageRepo,
		llmService:   llmService,
		hub:          hub,
		lastSeq:      make(map[string]map[string]int64),
	}
}

// Subscribe attaches a dashboard client to the tenant's feed and sends
// it an initial snapshot.
func (s *FeedService) Subscribe(businessID string) *feed.Subscriber {
	sub := s.hub.Subscribe(businessID)
	go s.Notify(businessID)
	return sub
}

func (s *FeedService) Unsubscribe(sub *feed.Subscriber) {
	s.hub.Unsubscribe(sub)
}

// Notify recomputes the tenant's session snapshot and broadcasts it.
// Sessions whose newest message is a fresh visitor message also get
// suggestion generation scheduled.
func (s *FeedService) Notify(businessID string) {
	ctx, cancel := context.WithTimeout(context.Background(), feedQueryTimeout)
	defer cancel()

	previews, err := s.sessionRepo.ListSessionPreviews(ctx, businessID)
	if err != nil {
		utils.LogWarn("feed snapshot query failed", map[string]interface{}{
			"business_id": businessID,
			"error":       err.Error(),
		})
		return
	}

	s.hub.Broadcast(businessID, &feed.Event{Type: feed.EventSnapshot, Payload: previews})

	for _, sessionID := range s.advanceCursors(businessID, previews) {
		go s.generateSuggestions(businessID, sessionID)
	}
}

// advanceCursors compares the snapshot against the per-session sequence
// cursors and returns the sessions needing suggestions. Cursors advance
// on every message so each visitor message triggers at most one run.
func (s *FeedService) advanceCursors(businessID string, previews []models.SessionPreview) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.lastSeq[businessID]
	cur := make(map[string]int64, len(previews))

	var candidates []string
	for _, p := range previews {
		cur[p.SessionID] = p.Seq
		if p.Seq <= prev[p.SessionID] {
			continue
		}
		if p.LastMessage != nil && p.LastMessage.Sender == models.SenderUser {
			candidates = append(candidates, p.SessionID)
		}
	}

	s.lastSeq[businessID] = cur
	return candidates
}

// generateSuggestions asks the model for short reply suggestions and
// broadcasts them. Strictly best effort: any failure is logged and
// swallowed, the snapshot already went out.
func (s *FeedService) generateSuggestions(businessID, sessionID string) {
	ctx, cancel := context.WithTimeout(context.Background(), llmCallTimeout)
	defer cancel()

	messages, err := s.sessionRepo.ListMessages(ctx, businessID, sessionID)
	if err != nil || len(messages) == 0 {
		return
	}
	if len(messages) > suggestionHistoryLimit {
		messages = messages[len(messages)-suggestionHistoryLimit:]
	}

	var lastUser string
	var recent []string
	for _, msg := range messages {
		recent = append(recent, msg.Sender+": "+msg.Text)
		if msg.Sender == models.SenderUser {
			lastUser = msg.Text
		}
	}
	if lastUser == "" {
		return
	}

	var tenantKey string
	if business, err := s.businessRepo.GetByID(ctx, businessID); err == nil {
		tenantKey = business.GeminiAPIKey
	}
	provider := s.llmService.ProviderFor(tenantKey)

	prompt := llm.BuildSuggestionPrompt(strings.Join(recent, "\n"), lastUser)
	raw, err := provider.GenerateChat(ctx, &llm.ChatRequest{
		Parts:          []llm.Part{{Text: prompt}},
		ResponseSchema: llm.SuggestionSchema,
	})
	if err != nil {
		utils.LogWarn("suggestion generation failed", map[string]interface{}{
			"business_id": businessID,
			"session_id":  sessionID,
			"error":       err.Error(),
		})
		return
	}

	s.usageRepo.Record(businessID, models.UsageDelta{
		Tokens: llm.EstimateTokens(prompt) + llm.EstimateTokens(raw),
	})

	suggestions, err := llm.ParseSuggestions(raw)
	if err != nil || len(suggestions) == 0 {
		return
	}

	feed.IncSuggestionRuns()
	s.hub.Broadcast(businessID, &feed.Event{
		Type:    feed.EventSuggestions,
		Payload: &SuggestionEvent{SessionID: sessionID, Suggestions: suggestions},
	})
}
