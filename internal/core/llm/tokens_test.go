package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, int64(0), EstimateTokens(""))
	assert.Equal(t, int64(1), EstimateTokens("a"))
	assert.Equal(t, int64(1), EstimateTokens("abcd"))
	assert.Equal(t, int64(2), EstimateTokens("abcde"))
	assert.Equal(t, int64(3), EstimateTokens("hello world!"))
}
