// Package opinion elicits a persona's reaction to a service plan and
// reduces it to a numeric appeal rating.
package opinion

import "fmt"

// Opinion is the quantified output derived from a persona's free-text
// reaction. Immutable once created; it feeds aggregation and export only.
type Opinion struct {
	DesireLevel int    `json:"desire_level" jsonschema:"description=Appeal level of the service. An integer between 0 and 10."`
	Reason      string `json:"reason" jsonschema:"description=The reason. Around 100 characters."`
}

// Validate enforces the rating bounds. The reason length is advisory: a
// long reason is never rejected, only an out-of-range level or a missing
// reason.
func (o *Opinion) Validate() error {
	if o.DesireLevel < 0 || o.DesireLevel > 10 {
		return fmt.Errorf("desire_level must be between 0 and 10, got %d", o.DesireLevel)
	}
	if o.Reason == "" {
		return fmt.Errorf("reason is empty")
	}
	return nil
}
