package llm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildSystemPrompt(t *testing.T) {
	offer := 80.0
	expiry := time.Now().Add(48 * time.Hour)

	prompt := BuildSystemPrompt(&Persona{
		CharacterName: "Asha",
		BusinessName:  "Green Dental",
		BusinessInfo:  "Family dental clinic open Mon-Sat.",
		Products: []CatalogueItem{
			{Name: "Teeth Whitening", Type: "service", Price: 100, OfferPrice: &offer, OfferExpiry: &expiry},
			{Name: "Electric Toothbrush", Type: "product", Price: 40, Stock: 12},
		},
	})

	assert.Contains(t, prompt, "You are Asha")
	assert.Contains(t, prompt, "Green Dental")
	assert.Contains(t, prompt, "Family dental clinic open Mon-Sat.")
	assert.Contains(t, prompt, "Teeth Whitening")
	assert.Contains(t, prompt, "Offer Price: 80")
	assert.Contains(t, prompt, "Stock: N/A", "services carry no stock figure")
	assert.Contains(t, prompt, "Stock: 12")
}

func TestBuildSystemPromptEmptyCatalogue(t *testing.T) {
	prompt := BuildSystemPrompt(&Persona{CharacterName: "Asha", BusinessName: "Green Dental"})
	assert.Contains(t, prompt, "does not have a product catalogue")
}

func TestParseSuggestions(t *testing.T) {
	got, err := ParseSuggestions(`{"suggestions": ["Yes, we are open.", "Can I book you in?", "Anything else?"]}`)
	require.NoError(t, err)
	assert.Len(t, got, 3)
	assert.Equal(t, "Yes, we are open.", got[0])

	_, err = ParseSuggestions("not json")
	assert.Error(t, err)
}
