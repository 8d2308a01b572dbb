package opinion

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kyotaro/personasim/internal/extract"
	"github.com/kyotaro/personasim/internal/llm"
	"github.com/kyotaro/personasim/internal/persona"
)

const quantifyPrompt = `%s
You hold the following impression of the service %s. Based on that
impression, produce an assessment that satisfies the requirements below.
Impression: %s`

// Quantifier reduces a free-text opinion into the fixed Opinion schema,
// still in the persona's voice. Retries and the soft-failure outcome come
// from the extraction layer; an exhausted outcome means this persona's
// record is unusable.
type Quantifier struct {
	Extractor *extract.Extractor[Opinion]
}

func NewQuantifier(client llm.Client, logger *slog.Logger) *Quantifier {
	return &Quantifier{
		Extractor: extract.NewExtractor[Opinion](client, logger),
	}
}

// Quantify converts opinionText into a rating plus short justification.
func (q *Quantifier) Quantify(ctx context.Context, serviceTitle string, p *persona.Profile, opinionText string) extract.Outcome[Opinion] {
	prompt := fmt.Sprintf(quantifyPrompt, persona.RenderBlock(p), serviceTitle, opinionText)
	return q.Extractor.Invoke(ctx, prompt)
}
