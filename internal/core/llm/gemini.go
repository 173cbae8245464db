package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

type GeminiProvider struct {
	apiKey      string
	model       string
	temperature float32
	maxTokens   int
	client      *http.Client
}

func NewGeminiProvider(apiKey string, model string, temperature float32, maxTokens int) *GeminiProvider {
	if model == "" {
		model = "gemini-2.5-flash"
	}
	if temperature == 0 {
		temperature = 0.7
	}
	if maxTokens == 0 {
		maxTokens = 1024
	}

	return &GeminiProvider{
		apiKey:      apiKey,
		model:       model,
		temperature: temperature,
		maxTokens:   maxTokens,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

func (p *GeminiProvider) GetProviderName() string {
	return "Google Gemini"
}

// Gemini REST API request/response structures
type geminiRequest struct {
	SystemInstruction *geminiContent         `json:"systemInstruction,omitempty"`
	Contents          []geminiContent        `json:"contents"`
	GenerationConfig  geminiGenerationConfig `json:"generationConfig"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
	Role  string       `json:"role,omitempty"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inlineData,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type geminiGenerationConfig struct {
	Temperature      float32         `json:"temperature"`
	MaxOutputTokens  int             `json:"maxOutputTokens"`
	ResponseMimeType string          `json:"responseMimeType,omitempty"`
	ResponseSchema   json.RawMessage `json:"responseSchema,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

func (p *GeminiProvider) GenerateChat(ctx context.Context, chatReq *ChatRequest) (string, error) {
	url := fmt.Sprintf("https://generativelanguage.googleapis.com/v1beta/models/%s:generateContent?key=%s",
		p.model, p.apiKey)

	var contents []geminiContent
	for _, turn := range chatReq.History {
		contents = append(contents, geminiContent{
			Parts: []geminiPart{{Text: turn.Text}},
			Role:  turn.Role,
		})
	}

	var newParts []geminiPart
	for _, part := range chatReq.Parts {
		if part.ImageData != "" {
			newParts = append(newParts, geminiPart{
				InlineData: &geminiInlineData{MimeType: part.ImageMIME, Data: part.ImageData},
			})
		}
		if part.Text != "" {
			newParts = append(newParts, geminiPart{Text: part.Text})
		}
	}
	contents = append(contents, geminiContent{Parts: newParts, Role: "user"})

	reqBody := geminiRequest{
		Contents: contents,
		GenerationConfig: geminiGenerationConfig{
			Temperature:     p.temperature,
			MaxOutputTokens: p.maxTokens,
		},
	}
	if chatReq.System != "" {
		reqBody.SystemInstruction = &geminiContent{
			Parts: []geminiPart{{Text: chatReq.System}},
		}
	}
	if len(chatReq.ResponseSchema) > 0 {
		reqBody.GenerationConfig.ResponseMimeType = "application/json"
		reqBody.GenerationConfig.ResponseSchema = chatReq.ResponseSchema
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("gemini request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("gemini error (model: %s, status: %d): %s", p.model, resp.StatusCode, string(body))
	}

	var geminiResp geminiResponse
	if err := json.Unmarshal(body, &geminiResp); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	if len(geminiResp.Candidates) == 0 || len(geminiResp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no response from Gemini (candidates: %d)", len(geminiResp.Candidates))
	}

	return geminiResp.Candidates[0].Content.Parts[0].Text, nil
}
