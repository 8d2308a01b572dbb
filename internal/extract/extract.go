// Package extract wraps a generation backend call with a target schema: it
// appends machine-readable format instructions to the prompt, parses the
// raw response into a typed record, and retries recoverable failures with a
// fixed backoff. Exhaustion yields an explicit tagged outcome rather than
// an error, so a long multi-persona run can decide its own abort policy.
package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/invopop/jsonschema"

	"github.com/kyotaro/personasim/internal/llm"
)

const (
	// DefaultAttempts and DefaultBackoff match the observed retry budget:
	// three attempts total, five seconds between them.
	DefaultAttempts = 3
	DefaultBackoff  = 5 * time.Second
)

// Validator is implemented by target records that carry their own
// field-level constraints. A Validate error is a recoverable parse failure.
type Validator interface {
	Validate() error
}

// Outcome is the tagged result of a structured extraction. A non-nil Value
// means success. A nil Value with Exhausted set means the retry budget ran
// out, and Err holds the last underlying failure. A nil Value without
// Exhausted means the context was cancelled before a result was produced;
// Err carries the cancellation.
type Outcome[T any] struct {
	Value     *T
	Exhausted bool
	Err       error
}

// Ok reports whether the extraction produced a value.
func (o Outcome[T]) Ok() bool { return o.Value != nil }

// Cancelled reports whether the extraction stopped on a context error
// rather than by exhausting its retry budget.
func (o Outcome[T]) Cancelled() bool { return o.Value == nil && !o.Exhausted }

// Extractor invokes a backend with format instructions for T and parses
// the response. Fields are set once at construction; tests override Sleep
// and Backoff.
type Extractor[T any] struct {
	Client   llm.Client
	Attempts int
	Backoff  time.Duration
	Sleep    SleepFunc
	Logger   *slog.Logger
}

// NewExtractor builds an Extractor with the default retry budget.
func NewExtractor[T any](client llm.Client, logger *slog.Logger) *Extractor[T] {
	return &Extractor[T]{
		Client:   client,
		Attempts: DefaultAttempts,
		Backoff:  DefaultBackoff,
		Sleep:    Wait,
		Logger:   logger,
	}
}

// Invoke renders the final prompt (caller's prompt plus format
// instructions for T), calls the backend, and parses the response.
// Parse and validation failures, like transport failures, are retried up
// to the attempt budget; exhaustion fails soft.
func (e *Extractor[T]) Invoke(ctx context.Context, prompt string) Outcome[T] {
	full := prompt + "\n\n" + FormatInstructions[T]()

	e.Logger.Debug("structured extraction call",
		slog.String("backend", e.Client.Name()),
		slog.Int("prompt_tokens_est", llm.EstimateTokens(full)))

	value, err := Retry(ctx, e.Attempts, e.Backoff, e.Sleep, e.Logger, func() (*T, error) {
		text, err := e.Client.Complete(ctx, full)
		if err != nil {
			return nil, err
		}
		return Parse[T](text)
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return Outcome[T]{Err: err}
		}
		return Outcome[T]{Exhausted: true, Err: err}
	}
	return Outcome[T]{Value: value}
}

// FormatInstructions reflects T into a JSON Schema and wraps it in the
// instruction block appended to every structured prompt.
func FormatInstructions[T any]() string {
	r := &jsonschema.Reflector{
		DoNotReference: true,
		Anonymous:      true,
	}
	var v T
	schema := r.Reflect(&v)

	b, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		// Reflection over our own structs cannot fail to marshal.
		panic(fmt.Sprintf("marshal schema: %v", err))
	}

	return fmt.Sprintf(`The output must be a single JSON object conforming to the JSON Schema below.
Output raw JSON only. No markdown code fences. No text before or after the JSON.

JSON Schema:
%s`, b)
}

// Parse converts raw backend output into a *T, stripping markdown fences
// and surrounding prose before unmarshaling. If T implements Validator its
// constraints are checked too.
func Parse[T any](text string) (*T, error) {
	text = stripMarkdownFences(text)
	text = extractJSON(text)
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("no JSON content found in response")
	}

	var v T
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w\nRaw text (first 500 chars): %s", err, truncate(text, 500))
	}

	if val, ok := any(&v).(Validator); ok {
		if err := val.Validate(); err != nil {
			return nil, fmt.Errorf("invalid record: %w", err)
		}
	}

	return &v, nil
}

var fenceRe = regexp.MustCompile("(?s)```(?:json)?\\s*\n?(.*?)\n?```")

func stripMarkdownFences(text string) string {
	if matches := fenceRe.FindStringSubmatch(text); len(matches) > 1 {
		return matches[1]
	}
	return text
}

func extractJSON(text string) string {
	// First { to last } bounds the JSON object when the model adds prose.
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		return text[start : end+1]
	}
	return text
}

func truncate(s string, maxLen int) string {
	if len(s) > maxLen {
		return s[:maxLen] + "..."
	}
	return s
}
