package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/kyotaro/personasim/internal/config"
)

var claudeModels = map[string]string{
	"haiku":  "claude-haiku-4-5-20251001",
	"sonnet": "claude-sonnet-4-5-20250929",
}

const claudeMaxTokens = 4096

// ClaudeClient is a hosted backend using the Anthropic Messages API.
type ClaudeClient struct {
	client      anthropic.Client
	modelID     string
	temperature float64
}

func NewClaudeClient(cfg *config.Config) *ClaudeClient {
	modelID := claudeModels[cfg.ClaudeModel]
	if modelID == "" {
		modelID = claudeModels["haiku"]
	}
	return &ClaudeClient{
		client:      anthropic.NewClient(option.WithAPIKey(cfg.AnthropicAPIKey)),
		modelID:     modelID,
		temperature: cfg.Temperature,
	}
}

func (c *ClaudeClient) Name() string { return "claude:" + c.modelID }

func (c *ClaudeClient) Complete(ctx context.Context, prompt string) (string, error) {
	message, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(c.modelID),
		MaxTokens:   claudeMaxTokens,
		Temperature: anthropic.Float(c.temperature),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("Claude API error: %w", err)
	}

	var parts []string
	for _, block := range message.Content {
		if tb, ok := block.AsAny().(anthropic.TextBlock); ok {
			parts = append(parts, tb.Text)
		}
	}
	text := strings.Join(parts, "")
	if text == "" {
		return "", fmt.Errorf("response contained no text")
	}
	return text, nil
}
