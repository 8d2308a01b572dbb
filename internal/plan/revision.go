package plan

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kyotaro/personasim/internal/llm"
)

const summarizePrompt = `Condense the following user opinions into a summary of about 500 characters.
User opinions: %s`

const revisePrompt = `Using the summary of user opinions below, improve the service plan to address the feedback.
Strictly preserve the format of the original service requirements. Output only the required wording.
User opinions: %s
Service requirements: %s`

const changeLogDirective = `
After the revised plan, append a bullet list naming each change you made and why.`

// Engine aggregates persona opinions into a summary and rewrites the
// service description against it. Two unstructured calls, neither retried:
// summarizing first keeps the revision prompt bounded regardless of
// persona count and forces the model to justify changes against a digested
// signal rather than raw transcripts.
type Engine struct {
	client llm.Client
	logger *slog.Logger

	// AppendChangeLog asks the revision to end with a bullet list of what
	// changed.
	AppendChangeLog bool
}

func NewEngine(client llm.Client, logger *slog.Logger) *Engine {
	return &Engine{client: client, logger: logger}
}

// Revise summarizes opinions (joined in generation order) and rewrites the
// service description. Any backend failure aborts the revision.
func (e *Engine) Revise(ctx context.Context, svc *ServiceDescription, opinions []string) (string, error) {
	joined := strings.Join(opinions, "\n")

	e.logger.Debug("summarizing opinions",
		slog.Int("count", len(opinions)),
		slog.Int("prompt_tokens_est", llm.EstimateTokens(joined)))

	summary, err := e.client.Complete(ctx, fmt.Sprintf(summarizePrompt, joined))
	if err != nil {
		return "", fmt.Errorf("summarize opinions: %w", err)
	}

	prompt := fmt.Sprintf(revisePrompt, summary, svc.Render())
	if e.AppendChangeLog {
		prompt += changeLogDirective
	}

	revised, err := e.client.Complete(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("revise plan: %w", err)
	}

	return strings.TrimSpace(revised), nil
}
