package llm

import (
	"context"
	"fmt"

	"github.com/kyotaro/personasim/internal/config"
)

// Client is a text-completion backend. Implementations route a rendered
// prompt to one model service and return its raw text response. No retries
// happen at this layer; transport and model failures propagate unchanged.
type Client interface {
	Complete(ctx context.Context, prompt string) (string, error)
	Name() string
}

// New constructs the backend selected by cfg.Backend. All backends are
// functionally interchangeable; the choice never alters prompt content.
func New(ctx context.Context, cfg *config.Config) (Client, error) {
	switch cfg.Backend {
	case config.BackendGemini:
		return NewGeminiClient(ctx, cfg)
	case config.BackendClaude:
		return NewClaudeClient(cfg), nil
	case config.BackendNova:
		return NewNovaClient(ctx, cfg)
	case config.BackendOllama:
		return NewOllamaClient(cfg), nil
	}
	return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
}

// EstimateTokens gives a rough token count for a prompt, for diagnostic
// logging only. Roughly four bytes per token for English text; it has no
// behavioral effect on any call.
func EstimateTokens(prompt string) int {
	return len(prompt)/4 + 1
}
