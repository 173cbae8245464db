package llm

// EstimateTokens approximates token count as ceil(len/4). This is a
// character-length heuristic, not a provider-reported figure, and must
// not be treated as billing-grade.
func EstimateTokens(text string) int64 {
	if text == "" {
		return 0
	}
	return int64((len(text) + 3) / 4)
}
