// internal/gpt/gemini.go
package gpt

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

const defaultGeminiModel = "gemini-2.0-flash"

// GeminiClient completes prompts with the Gemini API.
type GeminiClient struct {
	client      *genai.Client
	model       string
	temperature float32
}

func NewGeminiClient(ctx context.Context, apiKey, model, baseURL string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GenAI API key is required")
	}
	if model == "" {
		model = defaultGeminiModel
	}

	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &GeminiClient{client: client, model: model, temperature: 0.2}, nil
}

func (c *GeminiClient) Complete(ctx context.Context, systemPrompt, userPrompt string, wantJSON bool) (string, error) {
	temperature := c.temperature
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
		Temperature:       &temperature,
	}
	if wantJSON {
		config.ResponseMIMEType = "application/json"
	}

	contents := []*genai.Content{
		genai.NewContentFromText(userPrompt, genai.RoleUser),
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, config)
	if err != nil {
		return "", fmt.Errorf("gemini request failed: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", errors.New("no response from Gemini API")
	}
	return text, nil
}
