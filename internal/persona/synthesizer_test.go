package persona

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kyotaro/personasim/internal/llm/llmtest"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func profileJSON(t *testing.T) string {
	t.Helper()
	p := validProfile()
	b, err := json.Marshal(p)
	require.NoError(t, err)
	return string(b)
}

func TestSynthesizeReturnsProfile(t *testing.T) {
	backend := llmtest.NewScripted(llmtest.Text(profileJSON(t)))
	s := NewSynthesizer(backend, discardLogger())

	outcome := s.Synthesize(context.Background(), GenderFemale, 30, 30)
	require.True(t, outcome.Ok())
	assert.Equal(t, "Aiko Tanaka", outcome.Value.Name)
	assert.Equal(t, 34, outcome.Value.Age)
}

func TestSynthesizePromptCarriesFilters(t *testing.T) {
	backend := llmtest.NewScripted(llmtest.Text(profileJSON(t)))
	s := NewSynthesizer(backend, discardLogger())

	s.Synthesize(context.Background(), GenderFemale, 20, 40)

	prompt := backend.Prompt(0)
	assert.Contains(t, prompt, "in their 20s to 40s")
	assert.Contains(t, prompt, "Gender: female")
	assert.Contains(t, prompt, "exactly one fictitious")
}

func TestSynthesizePromptForEitherGender(t *testing.T) {
	backend := llmtest.NewScripted(llmtest.Text(profileJSON(t)))
	s := NewSynthesizer(backend, discardLogger())

	s.Synthesize(context.Background(), GenderEither, 30, 30)

	prompt := backend.Prompt(0)
	assert.Contains(t, prompt, "in their 30s")
	assert.Contains(t, prompt, "Gender: any gender")
}

func TestSynthesizeRetriesIncompleteProfile(t *testing.T) {
	// A profile with a missing field fails validation and burns an attempt.
	incomplete := validProfile()
	incomplete.Needs = ""
	bad, err := json.Marshal(incomplete)
	require.NoError(t, err)

	backend := llmtest.NewScripted(
		llmtest.Text(string(bad)),
		llmtest.Text(profileJSON(t)),
	)
	s := NewSynthesizer(backend, discardLogger())
	s.Extractor.Sleep = func(ctx context.Context, d time.Duration) error { return nil }

	outcome := s.Synthesize(context.Background(), GenderEither, 30, 30)
	require.True(t, outcome.Ok())
	assert.Equal(t, 2, backend.Calls())
}

func TestSynthesizeExhaustsAfterThreeAttempts(t *testing.T) {
	backend := llmtest.NewScripted(
		llmtest.Text("no json here"),
		llmtest.Text("still no json"),
		llmtest.Text("nothing"),
	)
	s := NewSynthesizer(backend, discardLogger())
	s.Extractor.Sleep = func(ctx context.Context, d time.Duration) error { return nil }

	outcome := s.Synthesize(context.Background(), GenderEither, 30, 30)
	assert.False(t, outcome.Ok())
	assert.True(t, outcome.Exhausted)
	assert.Equal(t, 3, backend.Calls())
}
