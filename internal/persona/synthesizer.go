package persona

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kyotaro/personasim/internal/extract"
	"github.com/kyotaro/personasim/internal/llm"
)

const synthesisPrompt = `You are a transcendent being with the power to create human beings. Invent exactly one fictitious, internally consistent person who satisfies the conditions below. Across repeated requests, vary names, occupations, family structures, and social standing as widely as you can while staying within the conditions.

Age: %s
Gender: %s`

// Synthesizer produces one Profile per request via structured extraction.
// No state is shared between calls; variety across personas is asked for in
// the prompt, not enforced.
type Synthesizer struct {
	Extractor *extract.Extractor[Profile]
	logger    *slog.Logger
}

func NewSynthesizer(client llm.Client, logger *slog.Logger) *Synthesizer {
	return &Synthesizer{
		Extractor: extract.NewExtractor[Profile](client, logger),
		logger:    logger,
	}
}

// Synthesize asks the backend to invent one person matching the filters.
// ageStart and ageEnd are decade values (20 means "in their 20s"). An
// exhausted outcome means the caller must abort its persona loop: every
// downstream stage requires a valid profile.
func (s *Synthesizer) Synthesize(ctx context.Context, gender GenderFilter, ageStart, ageEnd int) extract.Outcome[Profile] {
	prompt := fmt.Sprintf(synthesisPrompt, renderAgeRange(ageStart, ageEnd), gender.promptLabel())

	outcome := s.Extractor.Invoke(ctx, prompt)
	if outcome.Ok() {
		s.logger.Info("persona synthesized",
			slog.String("name", outcome.Value.Name),
			slog.Int("age", outcome.Value.Age))
	}
	return outcome
}

func renderAgeRange(start, end int) string {
	if start == end {
		return fmt.Sprintf("in their %ds", start)
	}
	return fmt.Sprintf("in their %ds to %ds", start, end)
}
