package persona

import (
	"fmt"
	"strings"
)

// GenderFilter narrows who the synthesizer may invent.
type GenderFilter string

const (
	GenderMale   GenderFilter = "male"
	GenderFemale GenderFilter = "female"
	GenderOther  GenderFilter = "other"
	GenderEither GenderFilter = "either"
)

// GenderNames returns all valid gender filter values.
func GenderNames() []string {
	return []string{
		string(GenderMale),
		string(GenderFemale),
		string(GenderOther),
		string(GenderEither),
	}
}

// ParseGender validates a user-supplied gender filter.
func ParseGender(s string) (GenderFilter, error) {
	g := GenderFilter(strings.ToLower(strings.TrimSpace(s)))
	switch g {
	case GenderMale, GenderFemale, GenderOther, GenderEither:
		return g, nil
	}
	return "", fmt.Errorf("invalid gender %q: must be one of %s", s, strings.Join(GenderNames(), ", "))
}

// promptLabel is the wording used inside the synthesis prompt.
func (g GenderFilter) promptLabel() string {
	if g == GenderEither {
		return "any gender"
	}
	return string(g)
}
