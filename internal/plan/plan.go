// Package plan models the service description under evaluation and the
// engine that rewrites it against aggregated persona feedback.
package plan

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ServiceDescription is the plan being evaluated. It is either a single
// free-form blob or the structured five-field record; the revision engine
// treats both as opaque text whose format must survive revision.
type ServiceDescription struct {
	Title          string `json:"title"`
	Concept        string `json:"concept,omitempty"`
	TargetCustomer string `json:"target_customer,omitempty"`
	Description    string `json:"description,omitempty"`
	RevenueModel   string `json:"revenue_model,omitempty"`

	// FreeText, when set, is the whole description and the structured
	// fields other than Title are ignored.
	FreeText string `json:"-"`
}

// Render flattens the description into the text passed to prompts.
func (s *ServiceDescription) Render() string {
	if s.FreeText != "" {
		return s.FreeText
	}
	var b strings.Builder
	write := func(label, value string) {
		if value != "" {
			fmt.Fprintf(&b, "%s: %s\n", label, value)
		}
	}
	write("Title", s.Title)
	write("Concept", s.Concept)
	write("Target customer", s.TargetCustomer)
	write("Description", s.Description)
	write("Revenue model", s.RevenueModel)
	return b.String()
}

// Load reads a service description from a file. A .json file is parsed as
// the structured record; anything else is taken as free text whose first
// non-empty line seeds the title when one was not provided elsewhere.
func Load(path string) (*ServiceDescription, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read service description from %s: %w", path, err)
	}

	if strings.EqualFold(filepath.Ext(path), ".json") {
		var s ServiceDescription
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, fmt.Errorf("parse service description from %s: %w", path, err)
		}
		if s.Title == "" {
			return nil, fmt.Errorf("service description %s has no title", path)
		}
		return &s, nil
	}

	text := strings.TrimSpace(string(data))
	if text == "" {
		return nil, fmt.Errorf("service description %s is empty", path)
	}
	s := &ServiceDescription{FreeText: text}
	for _, line := range strings.Split(text, "\n") {
		if l := strings.TrimSpace(line); l != "" {
			s.Title = l
			break
		}
	}
	return s, nil
}
