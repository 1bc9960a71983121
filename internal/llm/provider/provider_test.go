package provider

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/orders-intake/internal/common"
	"github.com/joseph-ayodele/orders-intake/internal/llm/anthropic"
	"github.com/joseph-ayodele/orders-intake/internal/llm/openai"
)

func TestNew(t *testing.T) {
	c, err := New(common.LLMConfig{Provider: "openai", APIKey: "k", DefaultModel: "gpt-4o-mini"}, nil)
	require.NoError(t, err)
	assert.IsType(t, &openai.Client{}, c)

	c, err = New(common.LLMConfig{Provider: "Anthropic", APIKey: "k"}, nil)
	require.NoError(t, err)
	assert.IsType(t, &anthropic.Client{}, c)

	_, err = New(common.LLMConfig{Provider: "gemini"}, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrInvalidInput))
}

func TestNewCaller(t *testing.T) {
	c, err := NewCaller(common.LLMConfig{Provider: "openai", APIKey: "k", RatePerSecond: 2, Burst: 1, MaxAttempts: 2}, nil)
	require.NoError(t, err)
	assert.NotNil(t, c)
}
