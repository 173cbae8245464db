package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/chatfront/chatfront-backend/internal/modules/chat/models"
	"github.com/chatfront/chatfront-backend/internal/modules/chat/repositories"
)

// HandoffService moves a session from AI ownership to human ownership.
// The transition is one way: there is no release back to the AI, a new
// conversation starts under a fresh session ID.
type HandoffService struct {
	sessionRepo repositories.SessionRepo
	feed        FeedNotifier
}

func NewHandoffService(sessionRepo repositories.SessionRepo, feed FeedNotifier) *HandoffService {
	return &HandoffService{sessionRepo: sessionRepo, feed: feed}
}

// JoinSession marks the session agent-owned and announces the agent to
// the visitor. The announcement is gated on the conditional flag write,
// so racing joins announce exactly once and repeats are no-ops.
func (s *HandoffService) JoinSession(ctx context.Context, businessID, sessionID, agentName, genderHint string) (*models.ChatMessage, error) {
	joined, err := s.sessionRepo.SetAgentJoined(ctx, businessID, sessionID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to mark agent joined: %w", err)
	}
	if !joined {
		return nil, nil
	}

	honorific := "Mr."
	if strings.EqualFold(genderHint, "female") {
		honorific = "Ms."
	}
	announcement := &models.ChatMessage{
		Text:   fmt.Sprintf("%s %s has joined the chat to assist you.", honorific, agentName),
		Sender: models.SenderSystem,
	}
	if err := s.sessionRepo.AppendMessage(ctx, businessID, sessionID, announcement); err != nil {
		return nil, fmt.Errorf("failed to log join announcement: %w", err)
	}
	s.notify(businessID)
	return announcement, nil
}

// AgentReply appends a human agent's message to the session.
func (s *HandoffService) AgentReply(ctx context.Context, businessID, sessionID, text string) (*models.ChatMessage, error) {
	msg := &models.ChatMessage{Text: text, Sender: models.SenderAgent}
	if err := s.sessionRepo.AppendMessage(ctx, businessID, sessionID, msg); err != nil {
		return nil, fmt.Errorf("failed to log agent reply: %w", err)
	}
	s.notify(businessID)
	return msg, nil
}

func (s *HandoffService) notify(businessID string) {
	if s.feed != nil {
		s.feed.Notify(businessID)
	}
}
