package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kyotaro/personasim/internal/llm/llmtest"
)

// inventoryItem is a small target record for extraction tests. Domain
// records live in their own packages and cannot be imported here.
type inventoryItem struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func (i *inventoryItem) Validate() error {
	if i.Count < 0 {
		return fmt.Errorf("count must not be negative, got %d", i.Count)
	}
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// noSleep records requested backoff waits without actually waiting.
func noSleep(waits *[]time.Duration) SleepFunc {
	return func(ctx context.Context, d time.Duration) error {
		*waits = append(*waits, d)
		return nil
	}
}

func TestParsePlainJSON(t *testing.T) {
	v, err := Parse[inventoryItem](`{"name": "apple", "count": 3}`)
	require.NoError(t, err)
	assert.Equal(t, "apple", v.Name)
	assert.Equal(t, 3, v.Count)
}

func TestParseStripsMarkdownFences(t *testing.T) {
	raw := "```json\n{\"name\": \"pear\", \"count\": 1}\n```"
	v, err := Parse[inventoryItem](raw)
	require.NoError(t, err)
	assert.Equal(t, "pear", v.Name)
}

func TestParseExtractsObjectFromProse(t *testing.T) {
	raw := "Sure, here is the record you asked for:\n{\"name\": \"plum\", \"count\": 7}\nHope that helps!"
	v, err := Parse[inventoryItem](raw)
	require.NoError(t, err)
	assert.Equal(t, "plum", v.Name)
	assert.Equal(t, 7, v.Count)
}

func TestParseRejectsEmptyResponse(t *testing.T) {
	_, err := Parse[inventoryItem]("   \n  ")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no JSON content")
}

func TestParseRejectsMalformedJSON(t *testing.T) {
	_, err := Parse[inventoryItem](`{"name": "apple", "count":`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid JSON")
}

func TestParseRunsValidator(t *testing.T) {
	_, err := Parse[inventoryItem](`{"name": "apple", "count": -2}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid record")
	assert.Contains(t, err.Error(), "must not be negative")
}

func TestFormatInstructionsEmbedSchema(t *testing.T) {
	instr := FormatInstructions[inventoryItem]()
	assert.Contains(t, instr, "JSON Schema")
	assert.Contains(t, instr, `"name"`)
	assert.Contains(t, instr, `"count"`)
	assert.Contains(t, instr, "raw JSON only")
}

func TestRetrySucceedsFirstAttempt(t *testing.T) {
	var waits []time.Duration
	calls := 0
	v, err := Retry(context.Background(), 3, time.Second, noSleep(&waits), discardLogger(), func() (int, error) {
		calls++
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.Equal(t, 1, calls)
	assert.Empty(t, waits)
}

func TestRetryRecoversAfterFailures(t *testing.T) {
	var waits []time.Duration
	calls := 0
	v, err := Retry(context.Background(), 3, 5*time.Second, noSleep(&waits), discardLogger(), func() (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("transient")
		}
		return "done", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "done", v)
	assert.Equal(t, 3, calls)
	// One wait between each pair of attempts, each the fixed backoff.
	require.Len(t, waits, 2)
	assert.Equal(t, 5*time.Second, waits[0])
	assert.Equal(t, 5*time.Second, waits[1])
}

func TestRetryExhaustionReturnsLastError(t *testing.T) {
	var waits []time.Duration
	calls := 0
	_, err := Retry(context.Background(), 3, time.Second, noSleep(&waits), discardLogger(), func() (int, error) {
		calls++
		return 0, fmt.Errorf("failure %d", calls)
	})
	require.Error(t, err)
	assert.Equal(t, "failure 3", err.Error())
	assert.Equal(t, 3, calls)
	// No wait after the final attempt.
	assert.Len(t, waits, 2)
}

func TestRetryAbortsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	_, err := Retry(ctx, 3, time.Second, Wait, discardLogger(), func() (int, error) {
		calls++
		return 0, errors.New("should not run")
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, calls)
}

func TestRetryLogsExhaustionOnFinalAttempt(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	var waits []time.Duration
	_, err := Retry(context.Background(), 3, time.Second, noSleep(&waits), logger, func() (int, error) {
		return 0, errors.New("boom")
	})
	require.Error(t, err)

	out := logs.String()
	assert.Equal(t, 2, strings.Count(out, "attempt failed, retrying"))
	assert.Equal(t, 1, strings.Count(out, "retry budget exhausted"))
}

func TestInvokeAppendsFormatInstructions(t *testing.T) {
	backend := llmtest.NewScripted(llmtest.Text(`{"name": "apple", "count": 3}`))
	e := NewExtractor[inventoryItem](backend, discardLogger())

	outcome := e.Invoke(context.Background(), "List one fruit.")
	require.True(t, outcome.Ok())

	prompt := backend.Prompt(0)
	assert.Contains(t, prompt, "List one fruit.")
	assert.Contains(t, prompt, "JSON Schema")
}

func TestInvokeRetriesParseFailures(t *testing.T) {
	backend := llmtest.NewScripted(
		llmtest.Text("not json at all"),
		llmtest.Text(`{"name": "apple", "count": -1}`),
		llmtest.Text(`{"name": "apple", "count": 2}`),
	)
	var waits []time.Duration
	e := NewExtractor[inventoryItem](backend, discardLogger())
	e.Sleep = noSleep(&waits)

	outcome := e.Invoke(context.Background(), "List one fruit.")
	require.True(t, outcome.Ok())
	assert.Equal(t, 2, outcome.Value.Count)
	assert.Equal(t, 3, backend.Calls())
	assert.Len(t, waits, 2)
}

func TestInvokeExhaustionIsTagged(t *testing.T) {
	backend := llmtest.NewScripted(
		llmtest.Err(errors.New("503")),
		llmtest.Err(errors.New("503")),
		llmtest.Err(errors.New("503")),
	)
	var waits []time.Duration
	e := NewExtractor[inventoryItem](backend, discardLogger())
	e.Sleep = noSleep(&waits)

	outcome := e.Invoke(context.Background(), "List one fruit.")
	assert.False(t, outcome.Ok())
	assert.True(t, outcome.Exhausted)
	assert.False(t, outcome.Cancelled())
	require.Error(t, outcome.Err)
	// The budget is three attempts, never a fourth.
	assert.Equal(t, 3, backend.Calls())
}

func TestInvokeCancellationIsNotExhaustion(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	backend := llmtest.NewScripted(llmtest.Err(errors.New("503")))
	e := NewExtractor[inventoryItem](backend, discardLogger())

	outcome := e.Invoke(ctx, "List one fruit.")
	assert.False(t, outcome.Ok())
	assert.False(t, outcome.Exhausted)
	assert.True(t, outcome.Cancelled())
	require.ErrorIs(t, outcome.Err, context.Canceled)
	assert.Equal(t, 0, backend.Calls())
}
