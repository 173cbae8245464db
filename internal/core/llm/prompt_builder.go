package llm

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Persona carries everything the system prompt needs about a tenant.
// Built by the chat service from the business record so this package
// stays independent of the domain models.
type Persona struct {
	CharacterName string
	BusinessName  string
	BusinessInfo  string
	Products      []CatalogueItem
}

// CatalogueItem is one renderable catalogue entry.
type CatalogueItem struct {
	Name        string
	Type        string // "product" or "service"
	Description string
	Price       float64
	Stock       int
	OfferPrice  *float64
	OfferExpiry *time.Time
}

// BuildSystemPrompt renders the per-tenant persona instructions.
func BuildSystemPrompt(p *Persona) string {
	productInfo := "This business does not have a product catalogue listed."
	if len(p.Products) > 0 {
		var entries []string
		for _, item := range p.Products {
			offerString := ""
			if item.OfferPrice != nil && item.OfferExpiry != nil {
				offerString = fmt.Sprintf(" Offer Price: %g (expires %s)", *item.OfferPrice, item.OfferExpiry.Format(time.RFC3339))
			}
			stock := "N/A"
			if item.Type == "product" {
				stock = fmt.Sprintf("%d", item.Stock)
			}
			entries = append(entries, fmt.Sprintf(
				"- Product Name: %s\n  Type: %s\n  Description: %s\n  Price: %g%s\n  Stock: %s",
				item.Name, item.Type, item.Description, item.Price, offerString, stock))
		}
		productInfo = "Here is the product catalogue. You can answer questions based on this.\n\n" + strings.Join(entries, "\n\n")
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("You are %s, a warm, empathetic, and professional AI assistant for %s. ", p.CharacterName, p.BusinessName))
	sb.WriteString("Your primary role is to assist potential clients by providing helpful information and guiding them to connect with the business.\n\n")

	sb.WriteString("Your personality and tone:\n")
	sb.WriteString("- Be friendly and conversational. Keep answers short, meaningful, and to the point.\n")
	sb.WriteString("- Pay attention to the flow of the conversation and refer back to earlier questions where it feels natural.\n")
	sb.WriteString("- Vary your initial greeting instead of always opening with \"Hello\".\n\n")

	sb.WriteString("Your core task:\n")
	sb.WriteString("1. Answer the query using only the information in the Business Information and Product Catalogue sections below.\n")
	sb.WriteString("2. Do not invent any details, prices, or services.\n")
	sb.WriteString(fmt.Sprintf("3. Do not provide medical, legal, or financial advice; explain what %s offers for the situation and recommend contacting the professional directly.\n", p.BusinessName))
	sb.WriteString("4. For products and services use the catalogue, note the type field to distinguish a product with stock from a service, and mention any special offers if they exist.\n")
	sb.WriteString("5. If you cannot find relevant information, say so politely and point the visitor at the business's contact details.\n\n")

	sb.WriteString("Business Information:\n---\n")
	sb.WriteString(p.BusinessInfo)
	sb.WriteString("\n---\n\nProduct Catalogue:\n---\n")
	sb.WriteString(productInfo)
	sb.WriteString("\n---\n")

	return sb.String()
}

// BuildSummaryPrompt renders the business-intelligence summary request
// over a batch of session transcripts.
func BuildSummaryPrompt(transcripts string) string {
	var sb strings.Builder
	sb.WriteString("As a business intelligence analyst, review the following chat session transcripts between an AI assistant and potential customers for a business. ")
	sb.WriteString("Provide a concise summary that will help the business owner understand customer interactions.\n\n")
	sb.WriteString("Chat Transcripts:\n")
	sb.WriteString(transcripts)
	sb.WriteString("\n\nBased on the transcripts, generate a summary in Markdown format covering:\n")
	sb.WriteString("1. Top 3 most common topics customers ask about.\n")
	sb.WriteString("2. Key customer interests: products or services that generated significant interest.\n")
	sb.WriteString("3. One actionable insight for the business owner.\n")
	return sb.String()
}

// BuildSuggestionPrompt renders the agent-assist request: short reply
// suggestions grounded in the last few turns.
func BuildSuggestionPrompt(recentHistory, lastUserMessage string) string {
	var sb strings.Builder
	sb.WriteString("You are an AI assistant for a customer support agent. Based on the recent conversation history and specifically the last user message, ")
	sb.WriteString("generate 3 concise, helpful, and professional replies that the agent can use.\n\n")
	sb.WriteString("Conversation History:\n")
	sb.WriteString(recentHistory)
	sb.WriteString("\n\nLast User Message:\n\"")
	sb.WriteString(lastUserMessage)
	sb.WriteString("\"\n\nProvide 3 short, distinct reply suggestions for the agent.")
	return sb.String()
}

// SuggestionSchema constrains the suggestion response to a JSON object
// with a string-array "suggestions" field.
var SuggestionSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"suggestions": {
			"type": "array",
			"items": {"type": "string"}
		}
	}
}`)

// ParseSuggestions decodes a schema-constrained suggestion response.
func ParseSuggestions(raw string) ([]string, error) {
	var parsed struct {
		Suggestions []string `json:"suggestions"`
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse suggestions: %w", err)
	}
	return parsed.Suggestions, nil
}
