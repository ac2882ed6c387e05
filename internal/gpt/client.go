// internal/gpt/client.go
package gpt

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"
)

const (
	defaultModel     = "gpt-4o-mini"
	defaultMaxTokens = 800
)

// Client completes prompts with the OpenAI chat API.
type Client struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float32
}

func NewClient(apiKey string) *Client {
	return newClient(openai.DefaultConfig(apiKey))
}

// NewClientWithBaseURL points the client at an OpenAI-compatible endpoint.
func NewClientWithBaseURL(apiKey, baseURL string) *Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return newClient(cfg)
}

func newClient(cfg openai.ClientConfig) *Client {
	return &Client{
		client:      openai.NewClientWithConfig(cfg),
		model:       defaultModel,
		maxTokens:   defaultMaxTokens,
		temperature: 0.2,
	}
}

func (c *Client) WithModel(model string) *Client {
	if model != "" {
		c.model = model
	}
	return c
}

func (c *Client) Complete(ctx context.Context, systemPrompt, userPrompt string, wantJSON bool) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: systemPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: userPrompt,
			},
		},
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	}
	if wantJSON {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from GPT API")
	}

	return resp.Choices[0].Message.Content, nil
}
