package llm

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

type OpenAIProvider struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
}

func NewOpenAIProvider(apiKey string, model string, temperature float32, maxTokens int) *OpenAIProvider {
	if model == "" {
		model = "gpt-4o-mini"
	}
	if temperature == 0 {
		temperature = 0.7
	}
	if maxTokens == 0 {
		maxTokens = 1024
	}

	return &OpenAIProvider{
		client:      openai.NewClient(apiKey),
		model:       model,
		temperature: temperature,
		maxTokens:   maxTokens,
	}
}

func (p *OpenAIProvider) GetProviderName() string {
	return "OpenAI"
}

func (p *OpenAIProvider) GenerateChat(ctx context.Context, chatReq *ChatRequest) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(chatReq.History)+2)

	if chatReq.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: chatReq.System,
		})
	}

	for _, turn := range chatReq.History {
		role := openai.ChatMessageRoleUser
		if turn.Role == RoleModel {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    role,
			Content: turn.Text,
		})
	}

	// New turn: text-only turns go in Content, mixed turns use the
	// multi-part form with data-URL images.
	var multiParts []openai.ChatMessagePart
	text := ""
	hasImage := false
	for _, part := range chatReq.Parts {
		if part.ImageData != "" {
			hasImage = true
			multiParts = append(multiParts, openai.ChatMessagePart{
				Type: openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{
					URL: fmt.Sprintf("data:%s;base64,%s", part.ImageMIME, part.ImageData),
				},
			})
		}
		if part.Text != "" {
			text += part.Text
			multiParts = append(multiParts, openai.ChatMessagePart{
				Type: openai.ChatMessagePartTypeText,
				Text: part.Text,
			})
		}
	}
	if hasImage {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:         openai.ChatMessageRoleUser,
			MultiContent: multiParts,
		})
	} else {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleUser,
			Content: text,
		})
	}

	req := openai.ChatCompletionRequest{
		Model:       p.model,
		Messages:    messages,
		Temperature: p.temperature,
		MaxTokens:   p.maxTokens,
	}
	if len(chatReq.ResponseSchema) > 0 {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("openai error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from OpenAI")
	}

	return resp.Choices[0].Message.Content, nil
}
