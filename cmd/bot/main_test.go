package main

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"calorie-bot/config"
	"calorie-bot/internal/gpt"
)

func TestNewCompleter(t *testing.T) {
	ctx := context.Background()

	c, err := newCompleter(ctx, config.GPTConfig{Provider: "openai", APIKey: "k"})
	require.NoError(t, err)
	assert.IsType(t, &gpt.Client{}, c)

	c, err = newCompleter(ctx, config.GPTConfig{Provider: "gemini", APIKey: "k"})
	require.NoError(t, err)
	assert.IsType(t, &gpt.GeminiClient{}, c)

	c, err = newCompleter(ctx, config.GPTConfig{Provider: "none"})
	require.NoError(t, err)
	assert.Nil(t, c)

	_, err = newCompleter(ctx, config.GPTConfig{Provider: "llama"})
	assert.Error(t, err)
}

func TestEstimateCommand(t *testing.T) {
	t.Setenv("GPT_PROVIDER", "none")
	t.Setenv("LOG_LEVEL", "error")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"estimate", "--offline", "--locale", "en", "breakfast 350 kcal"})
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	require.NoError(t, rootCmd.Execute())

	var got struct {
		Kcal   int
		Source string
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, 350, got.Kcal)
	assert.Equal(t, "direct", got.Source)
}
