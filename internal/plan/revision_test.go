package plan

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kyotaro/personasim/internal/llm/llmtest"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func freightFlow() *ServiceDescription {
	return &ServiceDescription{
		Title:    "FreightFlow",
		FreeText: "FreightFlow\nA dispatch board that files shipping paperwork.",
	}
}

func TestReviseSummarizesThenRewrites(t *testing.T) {
	backend := llmtest.NewScripted(
		llmtest.Text("Users like the time savings but fear the price."),
		llmtest.Text("  FreightFlow\nA dispatch board with a free tier for small fleets.\n"),
	)
	e := NewEngine(backend, discardLogger())

	revised, err := e.Revise(context.Background(), freightFlow(), []string{"saves me an hour", "too pricey for us"})
	require.NoError(t, err)
	assert.Equal(t, "FreightFlow\nA dispatch board with a free tier for small fleets.", revised)
	require.Equal(t, 2, backend.Calls())

	// First call gets the opinions joined in generation order.
	assert.Contains(t, backend.Prompt(0), "User opinions: saves me an hour\ntoo pricey for us")
	assert.Contains(t, backend.Prompt(0), "about 500 characters")
}

func TestReviseEmbedsSummaryVerbatim(t *testing.T) {
	backend := llmtest.NewScripted(
		llmtest.Text("Users like the time savings but fear the price."),
		llmtest.Text("revised"),
	)
	e := NewEngine(backend, discardLogger())

	_, err := e.Revise(context.Background(), freightFlow(), []string{"fine"})
	require.NoError(t, err)

	second := backend.Prompt(1)
	assert.Contains(t, second, "User opinions: Users like the time savings but fear the price.")
	assert.Contains(t, second, "Service requirements: FreightFlow")
	assert.Contains(t, second, "Strictly preserve the format")
}

func TestReviseChangeLogDirective(t *testing.T) {
	backend := llmtest.NewScripted(
		llmtest.Text("summary"),
		llmtest.Text("revised"),
	)
	e := NewEngine(backend, discardLogger())
	e.AppendChangeLog = true

	_, err := e.Revise(context.Background(), freightFlow(), []string{"fine"})
	require.NoError(t, err)
	assert.Contains(t, backend.Prompt(1), "bullet list naming each change")
}

func TestReviseAbortsWhenSummarizeFails(t *testing.T) {
	backend := llmtest.NewScripted(llmtest.Err(errors.New("backend down")))
	e := NewEngine(backend, discardLogger())

	_, err := e.Revise(context.Background(), freightFlow(), []string{"fine"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "summarize opinions")
	assert.Equal(t, 1, backend.Calls())
}
