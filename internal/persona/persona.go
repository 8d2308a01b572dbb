// Package persona synthesizes fictitious consumer profiles via structured
// extraction and renders them into the role-play block shared by every
// downstream prompt.
package persona

import (
	"fmt"
	"strconv"
	"strings"
)

// Profile is one synthesized individual. It is created once by the
// synthesizer and never mutated; downstream stages only read it.
type Profile struct {
	// Demographic
	Name        string `json:"name" jsonschema:"description=Full name"`
	Age         int    `json:"age" jsonschema:"description=Age in years"`
	Gender      string `json:"gender" jsonschema:"description=Gender"`
	Residence   string `json:"residence" jsonschema:"description=Place of residence"`
	Housing     string `json:"housing" jsonschema:"description=Housing situation"`
	Job         string `json:"job" jsonschema:"description=Occupation and title"`
	CompanySize string `json:"company_size" jsonschema:"description=Size of employer"`
	Income      string `json:"income" jsonschema:"description=Annual income"`
	Education   string `json:"education" jsonschema:"description=Educational background"`
	Household   string `json:"household" jsonschema:"description=Family structure"`

	// Psychographic
	Values    string `json:"values" jsonschema:"description=Values and outlook on life"`
	Lifestyle string `json:"lifestyle" jsonschema:"description=Lifestyle"`
	Hobbies   string `json:"hobbies" jsonschema:"description=Hobbies and tastes"`
	Goals     string `json:"goals" jsonschema:"description=Goals and aspirations"`

	// Behavioral
	PurchasingBehavior string `json:"purchasing_behavior" jsonschema:"description=Purchasing behavior"`
	InformationSources string `json:"information_sources" jsonschema:"description=How they gather information"`
	Devices            string `json:"devices" jsonschema:"description=Devices they use"`
	SocialMedia        string `json:"social_media" jsonschema:"description=Social media usage"`
	DailySchedule      string `json:"daily_schedule" jsonschema:"description=Daily routine and schedule"`

	// Situational
	Concerns       string `json:"concerns" jsonschema:"description=Current worries"`
	Needs          string `json:"needs" jsonschema:"description=Problems they want solved"`
	FavoriteBrands string `json:"favorite_brands" jsonschema:"description=Favorite brands and products"`
	FavoriteMedia  string `json:"favorite_media" jsonschema:"description=Films and channels they watch"`
	Relationships  string `json:"relationships" jsonschema:"description=Personal relationships"`
	RecentEvents   string `json:"recent_events" jsonschema:"description=Recent events and episodes in their life"`
}

// field pairs a display label with a profile value. The order here is the
// canonical field order for prompts, display, and CSV export alike.
type field struct {
	Label string
	Value string
}

func (p *Profile) fields() []field {
	return []field{
		{"Name", p.Name},
		{"Age", strconv.Itoa(p.Age)},
		{"Gender", p.Gender},
		{"Residence", p.Residence},
		{"Housing", p.Housing},
		{"Job", p.Job},
		{"Company size", p.CompanySize},
		{"Income", p.Income},
		{"Education", p.Education},
		{"Household", p.Household},
		{"Values", p.Values},
		{"Lifestyle", p.Lifestyle},
		{"Hobbies", p.Hobbies},
		{"Goals", p.Goals},
		{"Purchasing behavior", p.PurchasingBehavior},
		{"Information sources", p.InformationSources},
		{"Devices", p.Devices},
		{"Social media", p.SocialMedia},
		{"Daily schedule", p.DailySchedule},
		{"Concerns", p.Concerns},
		{"Needs", p.Needs},
		{"Favorite brands", p.FavoriteBrands},
		{"Favorite media", p.FavoriteMedia},
		{"Relationships", p.Relationships},
		{"Recent events", p.RecentEvents},
	}
}

// FieldLabels returns the canonical field order, used as the CSV header.
func FieldLabels() []string {
	var p Profile
	fs := p.fields()
	labels := make([]string, len(fs))
	for i, f := range fs {
		labels[i] = f.Label
	}
	return labels
}

// FieldValues returns the profile's values in canonical field order.
func (p *Profile) FieldValues() []string {
	fs := p.fields()
	values := make([]string, len(fs))
	for i, f := range fs {
		values[i] = f.Value
	}
	return values
}

// Validate checks that every field was populated. A missing field means the
// backend ignored the schema and the extraction should retry.
func (p *Profile) Validate() error {
	if p.Age <= 0 {
		return fmt.Errorf("age must be a positive integer, got %d", p.Age)
	}
	for _, f := range p.fields() {
		if strings.TrimSpace(f.Value) == "" {
			return fmt.Errorf("field %q is empty", f.Label)
		}
	}
	return nil
}

// RenderBlock renders the profile as the "You are {name}" role-play header
// used by every prompt that restates a profile. All call sites share this
// one renderer so the field list cannot drift.
func RenderBlock(p *Profile) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are %s. Your profile is as follows.\n", p.Name)
	for _, f := range p.fields() {
		fmt.Fprintf(&b, "%s: %s\n", f.Label, f.Value)
	}
	return b.String()
}

// MatchesFilters reports whether the profile honors the requested filters.
// Age must fall inside the decade range; gender must echo the filter unless
// the filter accepts either. The backend is instructed to honor the
// filters, so this is an optional caller-side check, not a guarantee.
func (p *Profile) MatchesFilters(gender GenderFilter, ageStart, ageEnd int) bool {
	if p.Age < ageStart || p.Age > ageEnd+9 {
		return false
	}
	if gender == GenderEither {
		return true
	}
	return strings.EqualFold(strings.TrimSpace(p.Gender), string(gender))
}
