package opinion

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kyotaro/personasim/internal/llm/llmtest"
	"github.com/kyotaro/personasim/internal/persona"
	"github.com/kyotaro/personasim/internal/plan"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testProfile() *persona.Profile {
	return &persona.Profile{
		Name:   "Kenji Mori",
		Age:    47,
		Gender: "male",
		Job:    "Logistics manager",
		Needs:  "Less time spent on paperwork",
	}
}

func testService() *plan.ServiceDescription {
	return &plan.ServiceDescription{
		Title:    "FreightFlow",
		FreeText: "FreightFlow\nA dispatch board that auto-files shipping paperwork.",
	}
}

func TestElicitRunsThreePassesInOrder(t *testing.T) {
	backend := llmtest.NewScripted(
		llmtest.Text("This would save my mornings."),
		llmtest.Text("Another subscription I do not need."),
		llmtest.Text("Promising, if the price stays sane."),
	)
	e := NewElicitor(backend, discardLogger())

	got, err := e.Elicit(context.Background(), testService(), testProfile())
	require.NoError(t, err)
	assert.Equal(t, "Promising, if the price stays sane.", got)
	require.Equal(t, 3, backend.Calls())

	assert.Contains(t, backend.Prompt(0), "as positive as you possibly can")
	assert.Contains(t, backend.Prompt(1), "as negative as you possibly can")
}

func TestElicitEveryPassCarriesTheProfile(t *testing.T) {
	backend := llmtest.NewScripted(
		llmtest.Text("pos"), llmtest.Text("neg"), llmtest.Text("final"),
	)
	e := NewElicitor(backend, discardLogger())

	_, err := e.Elicit(context.Background(), testService(), testProfile())
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		assert.Contains(t, backend.Prompt(i), "You are Kenji Mori", "pass %d", i)
		assert.Contains(t, backend.Prompt(i), "FreightFlow", "pass %d", i)
	}
}

func TestElicitSynthesisEmbedsBothDrafts(t *testing.T) {
	backend := llmtest.NewScripted(
		llmtest.Text("This would save my mornings."),
		llmtest.Text("Another subscription I do not need."),
		llmtest.Text("final"),
	)
	e := NewElicitor(backend, discardLogger())

	_, err := e.Elicit(context.Background(), testService(), testProfile())
	require.NoError(t, err)

	synth := backend.Prompt(2)
	assert.Contains(t, synth, "Positive impression: This would save my mornings.")
	assert.Contains(t, synth, "Negative impression: Another subscription I do not need.")
}

func TestElicitAbortsOnPassFailure(t *testing.T) {
	backend := llmtest.NewScripted(
		llmtest.Text("pos"),
		llmtest.Err(errors.New("backend down")),
	)
	e := NewElicitor(backend, discardLogger())

	_, err := e.Elicit(context.Background(), testService(), testProfile())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "negative pass")
	// No third call after the failed pass.
	assert.Equal(t, 2, backend.Calls())
}
