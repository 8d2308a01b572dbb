package progress

import "time"

// Stage identifies which pipeline stage is active.
type Stage string

const (
	StageSynthesize Stage = "synthesize"
	StageElicit     Stage = "elicit"
	StageQuantify   Stage = "quantify"
	StageRevise     Stage = "revise"
	StageComplete   Stage = "complete"
)

// Event carries progress information from the pipeline to the renderer.
type Event struct {
	Stage        Stage
	Message      string
	Percent      float64 // 0.0–1.0
	PersonaNum   int
	PersonaTotal int
	PersonaName  string
	Elapsed      time.Duration
	Error        error
	// Completed is the number of personas that finished every stage, set
	// on StageComplete.
	Completed int
}

// Callback is the function signature for progress event handlers.
type Callback func(Event)

// NopCallback is a no-op progress callback for tests and silent mode.
func NopCallback(Event) {}

// NewEvent creates an Event with common fields populated.
func NewEvent(stage Stage, msg string, pct float64, start time.Time) Event {
	return Event{
		Stage:   stage,
		Message: msg,
		Percent: pct,
		Elapsed: time.Since(start),
	}
}
