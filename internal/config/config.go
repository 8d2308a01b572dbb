package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// Backend names accepted by the generation layer.
const (
	BackendGemini = "gemini"
	BackendClaude = "claude"
	BackendNova   = "nova"
	BackendOllama = "ollama"
)

// Config holds every externally sourced setting for a run. It is built once
// at process start and passed by reference; nothing in this codebase reads
// environment variables after Load returns.
type Config struct {
	Backend string

	GeminiAPIKey    string
	AnthropicAPIKey string

	GeminiModel string
	ClaudeModel string
	NovaModel   string
	OllamaModel string
	OllamaHost  string

	// Temperature applies to all backends. The persona prompts rely on a
	// high temperature for variety across repeated calls.
	Temperature float64
}

// Load reads configuration from the environment, with an optional .env file
// in the working directory. A missing .env is not an error.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{
		Backend:         envOr("PERSONASIM_BACKEND", BackendGemini),
		GeminiAPIKey:    os.Getenv("GEMINI_API_KEY"),
		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
		GeminiModel:     envOr("PERSONASIM_GEMINI_MODEL", "gemini-2.0-flash"),
		ClaudeModel:     envOr("PERSONASIM_CLAUDE_MODEL", "haiku"),
		NovaModel:       envOr("PERSONASIM_NOVA_MODEL", "nova-lite"),
		OllamaModel:     envOr("PERSONASIM_OLLAMA_MODEL", "qwen2.5:72b"),
		OllamaHost:      envOr("OLLAMA_HOST", "http://localhost:11434"),
		Temperature:     1.0,
	}
	return cfg, nil
}

// Validate checks that the credentials required by the selected backend are
// present. Local backends need no credentials.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendGemini:
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("missing required environment variable GEMINI_API_KEY")
		}
	case BackendClaude:
		if c.AnthropicAPIKey == "" {
			return fmt.Errorf("missing required environment variable ANTHROPIC_API_KEY")
		}
	case BackendNova:
		// Credentials come from the AWS SDK default chain.
	case BackendOllama:
		if c.OllamaHost == "" {
			return fmt.Errorf("OLLAMA_HOST must not be empty")
		}
	default:
		return fmt.Errorf("unknown backend %q: must be %s, %s, %s, or %s",
			c.Backend, BackendGemini, BackendClaude, BackendNova, BackendOllama)
	}
	return nil
}

// Hosted reports whether the selected backend is a remote hosted service.
// Hosted backends get a pacing delay between personas to stay under rate
// limits; local backends do not.
func (c *Config) Hosted() bool {
	return c.Backend != BackendOllama
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
