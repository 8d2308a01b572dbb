// Package export writes run results as CSV for spreadsheet review.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/kyotaro/personasim/internal/persona"
	"github.com/kyotaro/personasim/internal/pipeline"
)

// utf8BOM keeps Excel from misreading multibyte text in exported files.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// WriteResults writes one row per completed persona: every profile field
// followed by the free-text opinion, desire level, and reason. Column
// order is fixed by the profile field order.
func WriteResults(w io.Writer, entries []pipeline.Entry) error {
	if _, err := w.Write(utf8BOM); err != nil {
		return fmt.Errorf("failed to write BOM: %w", err)
	}

	cw := csv.NewWriter(w)

	header := append(persona.FieldLabels(), "Opinion", "Desire Level", "Reason")
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, e := range entries {
		row := append(e.Profile.FieldValues(),
			e.OpinionText,
			strconv.Itoa(e.Opinion.DesireLevel),
			e.Opinion.Reason)
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write row for %s: %w", e.Profile.Name, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteProfiles writes profile-only rows, used by the bulk sweep mode
// which synthesizes personas without eliciting opinions.
func WriteProfiles(w io.Writer, profiles []persona.Profile) error {
	if _, err := w.Write(utf8BOM); err != nil {
		return fmt.Errorf("failed to write BOM: %w", err)
	}

	cw := csv.NewWriter(w)

	if err := cw.Write(persona.FieldLabels()); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i := range profiles {
		if err := cw.Write(profiles[i].FieldValues()); err != nil {
			return fmt.Errorf("failed to write row for %s: %w", profiles[i].Name, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// ResultsToFile writes entries to path, creating or truncating it.
func ResultsToFile(path string, entries []pipeline.Entry) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	return WriteResults(f, entries)
}

// ProfilesToFile writes profile-only rows to path.
func ProfilesToFile(path string, profiles []persona.Profile) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	return WriteProfiles(f, profiles)
}
