// Package gemini implements agent.LLMClient with Google's Gemini models.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/sweetpotato0/kgpgpt/agent"
)

// Config holds Gemini provider configuration
type Config struct {
	APIKey      string
	Model       string
	MaxTokens   int32
	Temperature float32
}

// DefaultConfig returns default Gemini configuration
func DefaultConfig(apiKey string) *Config {
	return &Config{
		APIKey:      apiKey,
		Model:       "gemini-2.5-flash",
		MaxTokens:   2048,
		Temperature: 0.7,
	}
}

// Provider implements agent.LLMClient.
type Provider struct {
	config *Config
	client *genai.Client
	model  *genai.GenerativeModel
}

var _ agent.LLMClient = (*Provider)(nil)

// New creates a Gemini provider.
func New(ctx context.Context, config *Config) (*Provider, error) {
	if config == nil {
		return nil, errors.New("gemini config is required")
	}
	if config.APIKey == "" {
		return nil, errors.New("gemini API key not configured")
	}
	if config.Model == "" {
		config.Model = "gemini-2.5-flash"
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(config.APIKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	model := client.GenerativeModel(config.Model)
	if config.MaxTokens > 0 {
		model.SetMaxOutputTokens(config.MaxTokens)
	}
	if config.Temperature > 0 {
		model.SetTemperature(config.Temperature)
	}
	return &Provider{config: config, client: client, model: model}, nil
}

// Model returns the configured model name.
func (p *Provider) Model() string { return p.config.Model }

// Generate sends prompt as a single user turn and joins the text parts of the
// first candidate.
func (p *Provider) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := p.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	return textOf(resp)
}

// Close releases the underlying client.
func (p *Provider) Close() error {
	return p.client.Close()
}

func textOf(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", errors.New("no candidates in response")
	}
	cand := resp.Candidates[0]
	if cand.Content == nil || len(cand.Content.Parts) == 0 {
		return "", fmt.Errorf("no content parts in candidate (finish reason %v)", cand.FinishReason)
	}
	var b strings.Builder
	for _, part := range cand.Content.Parts {
		if t, ok := part.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	return b.String(), nil
}
