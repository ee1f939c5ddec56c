// Package claude implements agent.LLMClient with Anthropic's Messages API.
package claude

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/param"

	"github.com/sweetpotato0/kgpgpt/agent"
)

// Config holds Claude provider configuration
type Config struct {
	APIKey       string
	Model        string
	BaseURL      string
	MaxTokens    int64
	Temperature  float64
	SystemPrompt string
}

// DefaultConfig returns default Claude configuration
func DefaultConfig(apiKey string) *Config {
	return &Config{
		APIKey:      apiKey,
		Model:       "claude-sonnet-4-5-20250929",
		MaxTokens:   2048,
		Temperature: 0.7,
	}
}

// Provider implements agent.LLMClient.
type Provider struct {
	config *Config
	client anthropic.Client
}

var _ agent.LLMClient = (*Provider)(nil)

// New creates a Claude provider using the official SDK.
func New(config *Config) *Provider {
	if config.Model == "" {
		config.Model = "claude-sonnet-4-5-20250929"
	}
	if config.MaxTokens <= 0 {
		config.MaxTokens = 2048
	}

	options := []option.RequestOption{option.WithAPIKey(config.APIKey)}
	if config.BaseURL != "" {
		options = append(options, option.WithBaseURL(config.BaseURL))
	}
	return &Provider{config: config, client: anthropic.NewClient(options...)}
}

// Model returns the configured model name.
func (p *Provider) Model() string { return p.config.Model }

// Generate sends prompt as one user message and joins the text blocks of the
// reply.
func (p *Provider) Generate(ctx context.Context, prompt string) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(p.config.Model),
		MaxTokens: p.config.MaxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}
	if p.config.SystemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: p.config.SystemPrompt}}
	}
	if p.config.Temperature > 0 {
		params.Temperature = param.NewOpt(p.config.Temperature)
	}

	msg, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("claude messages: %w", err)
	}

	var b strings.Builder
	for _, content := range msg.Content {
		if content.Type == "text" {
			b.WriteString(content.Text)
		}
	}
	if b.Len() == 0 {
		return "", errors.New("no text content in response")
	}
	return b.String(), nil
}
