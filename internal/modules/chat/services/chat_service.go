package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chatfront/chatfront-backend/internal/core/llm"
	"github.com/chatfront/chatfront-backend/internal/modules/chat/models"
	"github.com/chatfront/chatfront-backend/internal/modules/chat/repositories"
	"github.com/chatfront/chatfront-backend/internal/shared/utils"
)

// FallbackReply is appended when the model call fails or times out so
// the turn is never left unanswered.
const FallbackReply = "I'm sorry, I'm having a bit of trouble connecting right now. Please try again in a moment."

// GreetingPrompt seeds a brand-new session: the greeting comes from the
// business persona, not a hardcoded string.
const GreetingPrompt = "Hello"

const (
	llmCallTimeout = 20 * time.Second

	// maxFailureTokenCharge bounds the synthetic charge applied on the
	// error path so metering is not starved by failures.
	maxFailureTokenCharge = 512

	// historyTurnLimit caps prior turns sent as model context.
	historyTurnLimit = 20

	// summarySessionLimit caps transcripts fed to summary generation.
	summarySessionLimit = 10
)

var (
	ErrBusinessNotFound = errors.New("business not found")
	ErrSessionNotFound  = errors.New("chat session not found")
)

// FeedNotifier is poked after every append so live dashboards can
// recompute their snapshot. May be nil when no feed is attached.
type FeedNotifier interface {
	Notify(businessID string)
}

// ChatContext is the per-conversation tenant context: resolved business,
// persona prompt and the provider honoring the tenant's credential
// override. It is built once per conversation and threaded through the
// turn operations instead of held in ambient state.
type ChatContext struct {
	Business *models.Business
	provider llm.Provider
	system   string
}

// TurnResult is one completed user turn. Offers is a read-side surface:
// populated when the reply mentions offers, without changing chat state.
type TurnResult struct {
	UserMessage *models.ChatMessage `json:"user_message"`
	Reply       *models.ChatMessage `json:"reply,omitempty"`
	AgentOwned  bool                `json:"agent_owned"`
	Offers      []models.Product    `json:"offers,omitempty"`
}

// ChatService orchestrates chat turns: persist the user message, decide
// whether the AI or a human agent owns the reply, optionally call the
// model, persist the reply.
type ChatService struct {
	businessRepo repositories.BusinessRepo
	sessionRepo  repositories.SessionRepo
	usageRepo    repositories.UsageRepo
	llmService   *llm.Service
	feed         FeedNotifier
}

func NewChatService(
	businessRepo repositories.BusinessRepo,
	sessionRepo repositories.SessionRepo,
	usageRepo repositories.UsageRepo,
	llmService *llm.Service,
	feed FeedNotifier,
) *ChatService {
	return &ChatService{
		businessRepo: businessRepo,
		sessionRepo:  sessionRepo,
		usageRepo:    usageRepo,
		llmService:   llmService,
		feed:         feed,
	}
}

// NewChatContext resolves the tenant context for a conversation.
func (s *ChatService) NewChatContext(ctx context.Context, businessID string) (*ChatContext, error) {
	business, err := s.businessRepo.GetByID(ctx, businessID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrBusinessNotFound
	}
	if err != nil {
		return nil, err
	}

	persona := personaFor(business)
	return &ChatContext{
		Business: business,
		provider: s.llmService.ProviderFor(business.GeminiAPIKey),
		system:   llm.BuildSystemPrompt(persona),
	}, nil
}

// SubmitUserTurn handles one user turn. The user message is always
// appended; the AI reply only when no agent owns the session.
func (s *ChatService) SubmitUserTurn(ctx context.Context, cc *ChatContext, sessionID, text, imageURL string) (*TurnResult, error) {
	businessID := cc.Business.BusinessID

	userMsg := &models.ChatMessage{
		Text:     text,
		Sender:   models.SenderUser,
		ImageURL: imageURL,
	}
	if err := s.sessionRepo.AppendMessage(ctx, businessID, sessionID, userMsg); err != nil {
		return nil, fmt.Errorf("failed to log user message: %w", err)
	}
	s.notify(businessID)

	result := &TurnResult{UserMessage: userMsg}

	req := &llm.ChatRequest{
		System:  cc.system,
		History: s.historyFor(ctx, businessID, sessionID, userMsg.ID.String()),
		Parts:   buildParts(text, imageURL),
	}

	// Re-check ownership as late as possible, after the prompt is built:
	// an agent may have joined while history was loading. A residual
	// race (reply appended just after a join) is accepted.
	if sess, err := s.sessionRepo.GetSession(ctx, businessID, sessionID); err == nil && sess.AgentJoined {
		result.AgentOwned = true
		return result, nil
	}

	replyText := s.generate(ctx, cc, businessID, req)

	replyMsg := &models.ChatMessage{Text: replyText, Sender: models.SenderAI}
	if err := s.sessionRepo.AppendMessage(ctx, businessID, sessionID, replyMsg); err != nil {
		return nil, fmt.Errorf("failed to log reply: %w", err)
	}
	s.notify(businessID)

	result.Reply = replyMsg
	if strings.Contains(strings.ToLower(replyText), "offer") {
		result.Offers = cc.Business.ValidOffers()
	}
	return result, nil
}

// StartSession seeds an empty session with a persona-driven greeting.
// Sessions that already have messages, or where an agent has joined,
// are left alone.
func (s *ChatService) StartSession(ctx context.Context, cc *ChatContext, sessionID string) (*models.ChatMessage, error) {
	businessID := cc.Business.BusinessID

	sess, err := s.sessionRepo.GetSession(ctx, businessID, sessionID)
	if err != nil && !errors.Is(err, repositories.ErrNotFound) {
		return nil, err
	}
	if sess != nil && (sess.Seq > 0 || sess.AgentJoined) {
		return nil, nil
	}

	req := &llm.ChatRequest{
		System: cc.system,
		Parts:  []llm.Part{{Text: GreetingPrompt}},
	}
	greeting := s.generate(ctx, cc, businessID, req)

	msg := &models.ChatMessage{Text: greeting, Sender: models.SenderAI}
	if err := s.sessionRepo.AppendMessage(ctx, businessID, sessionID, msg); err != nil {
		return nil, fmt.Errorf("failed to log greeting: %w", err)
	}
	s.notify(businessID)
	return msg, nil
}

// GenerateSummary produces a markdown business-intelligence summary of
// recent sessions. Failures degrade to a fixed string; the dashboard
// must keep working without it.
func (s *ChatService) GenerateSummary(ctx context.Context, cc *ChatContext) (string, error) {
	sessions, err := s.sessionRepo.ListRecentSessions(ctx, cc.Business.BusinessID)
	if err != nil {
		return "", err
	}
	if len(sessions) == 0 {
		return "No chat data available to generate a summary.", nil
	}
	if len(sessions) > summarySessionLimit {
		sessions = sessions[:summarySessionLimit]
	}

	var transcripts []string
	for _, sess := range sessions {
		var lines []string
		for _, msg := range sess.Messages {
			lines = append(lines, fmt.Sprintf("%s: %s", msg.Sender, msg.Text))
		}
		transcripts = append(transcripts, fmt.Sprintf("Session ID: %s\n%s", sess.SessionID, strings.Join(lines, "\n")))
	}

	prompt := llm.BuildSummaryPrompt(strings.Join(transcripts, "\n\n---\n\n"))
	req := &llm.ChatRequest{Parts: []llm.Part{{Text: prompt}}}

	llmCtx, cancel := context.WithTimeout(ctx, llmCallTimeout)
	defer cancel()

	text, err := cc.provider.GenerateChat(llmCtx, req)
	if err != nil {
		utils.LogWarn("summary generation failed", map[string]interface{}{
			"business_id": cc.Business.BusinessID,
			"error":       err.Error(),
		})
		return "Could not generate summary due to an error.", nil
	}

	s.usageRepo.Record(cc.Business.BusinessID, models.UsageDelta{
		Tokens: llm.EstimateTokens(prompt) + llm.EstimateTokens(text),
	})
	return text, nil
}

// History returns a session's messages in append order.
func (s *ChatService) History(ctx context.Context, businessID, sessionID string) ([]models.ChatMessage, error) {
	return s.sessionRepo.ListMessages(ctx, businessID, sessionID)
}

// RecentSessions returns the windowed, capped session history with full
// message logs, newest activity first.
func (s *ChatService) RecentSessions(ctx context.Context, businessID string) ([]models.ChatSession, error) {
	return s.sessionRepo.ListRecentSessions(ctx, businessID)
}

// generate runs the model call with a bounded timeout, metering token
// usage on both the success and failure paths. A failed or timed-out
// call resolves to the fallback apology with a bounded synthetic charge.
func (s *ChatService) generate(ctx context.Context, cc *ChatContext, businessID string, req *llm.ChatRequest) string {
	promptTokens := llm.EstimateTokens(req.PromptText())

	llmCtx, cancel := context.WithTimeout(ctx, llmCallTimeout)
	defer cancel()

	text, err := cc.provider.GenerateChat(llmCtx, req)
	if err != nil {
		utils.LogError("LLM call failed", err, map[string]interface{}{
			"business_id": businessID,
			"provider":    cc.provider.GetProviderName(),
		})

		charge := promptTokens + llm.EstimateTokens(FallbackReply)
		if charge > maxFailureTokenCharge {
			charge = maxFailureTokenCharge
		}
		s.usageRepo.Record(businessID, models.UsageDelta{Tokens: charge})
		return FallbackReply
	}

	s.usageRepo.Record(businessID, models.UsageDelta{
		Tokens: promptTokens + llm.EstimateTokens(text),
	})
	return text
}

// historyFor loads prior turns as model context, excluding the message
// just appended. Best effort: a history read failure degrades to an
// empty context rather than failing the turn.
func (s *ChatService) historyFor(ctx context.Context, businessID, sessionID, excludeID string) []llm.Turn {
	messages, err := s.sessionRepo.ListMessages(ctx, businessID, sessionID)
	if err != nil {
		utils.LogWarn("failed to load turn history", map[string]interface{}{
			"business_id": businessID,
			"session_id":  sessionID,
			"error":       err.Error(),
		})
		return nil
	}

	var turns []llm.Turn
	for _, msg := range messages {
		if msg.ID.String() == excludeID {
			continue
		}
		role := llm.RoleModel
		if msg.Sender == models.SenderUser {
			role = llm.RoleUser
		}
		turns = append(turns, llm.Turn{Role: role, Text: msg.Text})
	}
	if len(turns) > historyTurnLimit {
		turns = turns[len(turns)-historyTurnLimit:]
	}
	return turns
}

func (s *ChatService) notify(businessID string) {
	if s.feed != nil {
		s.feed.Notify(businessID)
	}
}

func personaFor(b *models.Business) *llm.Persona {
	persona := &llm.Persona{
		CharacterName: b.CharacterName,
		BusinessName:  b.BusinessName,
		BusinessInfo:  b.BusinessInfo,
	}
	for _, p := range b.Products {
		persona.Products = append(persona.Products, llm.CatalogueItem{
			Name:        p.Name,
			Type:        p.Type,
			Description: p.Description,
			Price:       p.Price,
			Stock:       p.Stock,
			OfferPrice:  p.OfferPrice,
			OfferExpiry: p.OfferExpiry,
		})
	}
	return persona
}

// buildParts assembles the new turn's parts. Images arrive as data URLs
// from the widget; the base64 payload and mime type are split out for
// the provider.
func buildParts(text, imageURL string) []llm.Part {
	var parts []llm.Part
	if mime, data, ok := splitDataURL(imageURL); ok {
		parts = append(parts, llm.Part{ImageData: data, ImageMIME: mime})
	}
	if text != "" {
		parts = append(parts, llm.Part{Text: text})
	}
	return parts
}

// splitDataURL decomposes "data:<mime>;base64,<data>".
func splitDataURL(url string) (mime, data string, ok bool) {
	if !strings.HasPrefix(url, "data:") {
		return "", "", false
	}
	rest := strings.TrimPrefix(url, "data:")
	head, payload, found := strings.Cut(rest, ",")
	if !found {
		return "", "", false
	}
	mime = strings.TrimSuffix(head, ";base64")
	return mime, payload, true
}
