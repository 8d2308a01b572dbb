// Package pipeline drives one generation session: N sequential persona
// iterations (synthesize, elicit, quantify) followed by a single plan
// revision over the accumulated opinions.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/kyotaro/personasim/internal/extract"
	"github.com/kyotaro/personasim/internal/llm"
	"github.com/kyotaro/personasim/internal/opinion"
	"github.com/kyotaro/personasim/internal/persona"
	"github.com/kyotaro/personasim/internal/plan"
	"github.com/kyotaro/personasim/internal/progress"
)

// Policy decides what happens when one persona's quantification exhausts
// its retry budget mid-run.
type Policy string

const (
	// PolicyAbort stops the run at the first exhausted persona. Personas
	// already completed remain available for export.
	PolicyAbort Policy = "abort"
	// PolicySkip drops the failed persona and continues with the rest.
	PolicySkip Policy = "skip"
)

// PolicyNames returns all valid failure policy values.
func PolicyNames() []string {
	return []string{string(PolicyAbort), string(PolicySkip)}
}

// ParsePolicy validates a user-supplied policy name.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case PolicyAbort, PolicySkip:
		return Policy(s), nil
	}
	return "", fmt.Errorf("invalid policy %q: must be abort or skip", s)
}

// Options configures one run.
type Options struct {
	Client  llm.Client
	Service *plan.ServiceDescription

	Gender   persona.GenderFilter
	AgeStart int // decade value, 10-100
	AgeEnd   int
	Count    int

	// Hosted enables the pacing delay between personas, needed on remote
	// backends to stay under rate limits.
	Hosted      bool
	PacingDelay time.Duration

	Policy          Policy
	ValidateFilters bool
	AppendChangeLog bool

	Logger     *slog.Logger
	OnProgress progress.Callback

	// Sleep is injectable for tests; defaults to extract.Wait.
	Sleep extract.SleepFunc
}

// Entry is one completed persona iteration. Entries accumulate in
// generation order; the order fixes the opinion join passed to revision.
type Entry struct {
	Profile     persona.Profile
	OpinionText string
	Opinion     opinion.Opinion
}

// ScorePoint is one bar in the chart-ready desire-level series.
type ScorePoint struct {
	Name  string
	Level int
}

// Result is the outcome of a run. On a terminal failure the partial
// Result is still returned alongside the error so completed personas can
// be exported.
type Result struct {
	Entries     []Entry
	RevisedPlan string
}

// Series returns (persona name, desire level) pairs in generation order.
func (r *Result) Series() []ScorePoint {
	points := make([]ScorePoint, len(r.Entries))
	for i, e := range r.Entries {
		points[i] = ScorePoint{Name: e.Profile.Name, Level: e.Opinion.DesireLevel}
	}
	return points
}

// OpinionTexts returns the free-text opinions in generation order.
func (r *Result) OpinionTexts() []string {
	texts := make([]string, len(r.Entries))
	for i, e := range r.Entries {
		texts[i] = e.OpinionText
	}
	return texts
}

// PipelineError tags a failure with the stage it happened in.
type PipelineError struct {
	Stage   string
	Message string
	Err     error
}

func (e *PipelineError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Stage, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Stage, e.Message)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

const defaultPacingDelay = 5 * time.Second

// Run executes the full session: fully sequential, blocking, one persona's
// pipeline completing before the next begins. It returns the partial
// Result together with any terminal error.
func Run(ctx context.Context, opts Options) (*Result, error) {
	start := time.Now()

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if opts.OnProgress == nil {
		opts.OnProgress = progress.NopCallback
	}
	if opts.Sleep == nil {
		opts.Sleep = extract.Wait
	}
	if opts.Policy == "" {
		opts.Policy = PolicyAbort
	}
	if opts.PacingDelay == 0 {
		opts.PacingDelay = defaultPacingDelay
	}

	tracer := otel.Tracer("personasim/pipeline")

	synthesizer := persona.NewSynthesizer(opts.Client, opts.Logger)
	synthesizer.Extractor.Sleep = opts.Sleep
	elicitor := opinion.NewElicitor(opts.Client, opts.Logger)
	quantifier := opinion.NewQuantifier(opts.Client, opts.Logger)
	quantifier.Extractor.Sleep = opts.Sleep
	engine := plan.NewEngine(opts.Client, opts.Logger)
	engine.AppendChangeLog = opts.AppendChangeLog

	result := &Result{}

	// Three persona stages per iteration plus summarize and revise.
	totalSteps := opts.Count*3 + 2
	step := 0
	emit := func(stage progress.Stage, msg string, num int, name string) {
		e := progress.NewEvent(stage, msg, float64(step)/float64(totalSteps), start)
		e.PersonaNum = num
		e.PersonaTotal = opts.Count
		e.PersonaName = name
		opts.OnProgress(e)
	}

	for i := 1; i <= opts.Count; i++ {
		if i > 1 && opts.Hosted {
			// Pacing between personas; hosted backends rate-limit.
			if err := opts.Sleep(ctx, opts.PacingDelay); err != nil {
				return result, &PipelineError{Stage: "synthesize", Message: "run cancelled", Err: err}
			}
		}

		emit(progress.StageSynthesize, "Synthesizing persona...", i, "")

		sctx, span := tracer.Start(ctx, "synthesize")
		profile, err := synthesizePersona(sctx, synthesizer, opts)
		span.End()
		if err != nil {
			reportFailure(opts.OnProgress, result, start, err)
			return result, err
		}
		step++

		emit(progress.StageElicit, fmt.Sprintf("Eliciting opinion from %s...", profile.Name), i, profile.Name)

		ectx, span := tracer.Start(ctx, "elicit")
		opinionText, err := elicitor.Elicit(ectx, opts.Service, profile)
		span.End()
		if err != nil {
			perr := &PipelineError{Stage: "elicit", Message: "failed to elicit opinion", Err: err}
			reportFailure(opts.OnProgress, result, start, perr)
			return result, perr
		}
		step++

		emit(progress.StageQuantify, fmt.Sprintf("Quantifying %s's opinion...", profile.Name), i, profile.Name)

		qctx, span := tracer.Start(ctx, "quantify")
		outcome := quantifier.Quantify(qctx, opts.Service.Title, profile, opinionText)
		span.End()
		if !outcome.Ok() {
			// Only exhaustion is skippable; a cancelled run always stops.
			if outcome.Exhausted && opts.Policy == PolicySkip {
				opts.Logger.Warn("quantification exhausted, skipping persona",
					slog.String("persona", profile.Name),
					slog.String("error", errString(outcome.Err)))
				step++
				continue
			}
			perr := &PipelineError{Stage: "quantify", Message: failureMessage(outcome.Exhausted), Err: outcome.Err}
			reportFailure(opts.OnProgress, result, start, perr)
			return result, perr
		}
		step++

		result.Entries = append(result.Entries, Entry{
			Profile:     *profile,
			OpinionText: opinionText,
			Opinion:     *outcome.Value,
		})
	}

	if len(result.Entries) == 0 {
		perr := &PipelineError{Stage: "revise", Message: "no personas completed, nothing to revise"}
		reportFailure(opts.OnProgress, result, start, perr)
		return result, perr
	}

	emit(progress.StageRevise, "Revising plan against feedback...", opts.Count, "")

	rctx, span := tracer.Start(ctx, "revise")
	revised, err := engine.Revise(rctx, opts.Service, result.OpinionTexts())
	span.End()
	if err != nil {
		perr := &PipelineError{Stage: "revise", Message: "failed to revise plan", Err: err}
		reportFailure(opts.OnProgress, result, start, perr)
		return result, perr
	}
	result.RevisedPlan = revised

	done := progress.NewEvent(progress.StageComplete,
		fmt.Sprintf("Run complete: %d persona(s), plan revised", len(result.Entries)), 1.0, start)
	done.Completed = len(result.Entries)
	opts.OnProgress(done)

	return result, nil
}

// synthesizePersona wraps the synthesizer outcome handling, including the
// optional filter-validation regeneration pass.
func synthesizePersona(ctx context.Context, s *persona.Synthesizer, opts Options) (*persona.Profile, error) {
	outcome := s.Synthesize(ctx, opts.Gender, opts.AgeStart, opts.AgeEnd)
	if !outcome.Ok() {
		// A missing profile aborts the whole loop: downstream stages
		// cannot run without one.
		return nil, &PipelineError{Stage: "synthesize", Message: failureMessage(outcome.Exhausted), Err: outcome.Err}
	}

	if opts.ValidateFilters && !outcome.Value.MatchesFilters(opts.Gender, opts.AgeStart, opts.AgeEnd) {
		opts.Logger.Warn("persona missed requested filters, regenerating once",
			slog.String("persona", outcome.Value.Name),
			slog.Int("age", outcome.Value.Age))
		outcome = s.Synthesize(ctx, opts.Gender, opts.AgeStart, opts.AgeEnd)
		if !outcome.Ok() {
			return nil, &PipelineError{Stage: "synthesize", Message: failureMessage(outcome.Exhausted), Err: outcome.Err}
		}
	}

	return outcome.Value, nil
}

// failureMessage labels an extraction failure for the staged error.
func failureMessage(exhausted bool) string {
	if exhausted {
		return "retry budget exhausted"
	}
	return "run cancelled"
}

func reportFailure(cb progress.Callback, result *Result, start time.Time, err error) {
	e := progress.NewEvent(progress.StageComplete, "Run failed", 1.0, start)
	e.Error = err
	e.Completed = len(result.Entries)
	cb(e)
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
