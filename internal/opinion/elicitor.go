package opinion

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kyotaro/personasim/internal/llm"
	"github.com/kyotaro/personasim/internal/persona"
	"github.com/kyotaro/personasim/internal/plan"
)

const (
	// Character targets are advisory prompt-level bounds, not validated.
	draftChars = 200
	finalChars = 500
)

const positivePrompt = `%s
You are a user of %s. Share your impressions of the service in your own
voice, tone and all. Be as positive as you possibly can, in about %d
characters. Do not comment on anything beyond the stated requirements.
Requirements of %s: %s`

const negativePrompt = `%s
You are a user of %s. Share your impressions of the service in your own
voice, tone and all. Be as negative as you possibly can, in about %d
characters. Do not comment on anything beyond the stated requirements.
Requirements of %s: %s`

const synthesisPrompt = `%s
You formed two deliberately one-sided impressions of %s. Merge them into a
single, more persuasive opinion of about %d characters. Keep it first
person and subjective, grounded in your profile. The result may lean
positive or negative; do not force balance.
Positive impression: %s
Negative impression: %s`

// Elicitor produces a persona's synthesized opinion of a service through
// three sequential passes: an as-positive-as-possible draft, an
// as-negative-as-possible draft, and a synthesis that fuses both.
// Polarizing first and fusing after yields a more textured opinion than
// asking directly for a moderate one. No pass is retried; the first
// failure aborts the elicitation with no partial result.
type Elicitor struct {
	client llm.Client
	logger *slog.Logger
}

func NewElicitor(client llm.Client, logger *slog.Logger) *Elicitor {
	return &Elicitor{client: client, logger: logger}
}

// Elicit runs the three passes in order and returns the synthesized
// opinion text.
func (e *Elicitor) Elicit(ctx context.Context, svc *plan.ServiceDescription, p *persona.Profile) (string, error) {
	block := persona.RenderBlock(p)
	requirements := svc.Render()

	positive, err := e.client.Complete(ctx, fmt.Sprintf(positivePrompt,
		block, svc.Title, draftChars, svc.Title, requirements))
	if err != nil {
		return "", fmt.Errorf("positive pass: %w", err)
	}

	negative, err := e.client.Complete(ctx, fmt.Sprintf(negativePrompt,
		block, svc.Title, draftChars, svc.Title, requirements))
	if err != nil {
		return "", fmt.Errorf("negative pass: %w", err)
	}

	e.logger.Debug("polarized drafts complete", slog.String("persona", p.Name))

	synthesized, err := e.client.Complete(ctx, fmt.Sprintf(synthesisPrompt,
		block, svc.Title, finalChars, positive, negative))
	if err != nil {
		return "", fmt.Errorf("synthesis pass: %w", err)
	}

	return synthesized, nil
}
