package persona

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validProfile() Profile {
	return Profile{
		Name:               "Aiko Tanaka",
		Age:                34,
		Gender:             "female",
		Residence:          "Yokohama",
		Housing:            "Rented apartment",
		Job:                "UX designer at a software firm",
		CompanySize:        "About 200 employees",
		Income:             "6.5 million yen",
		Education:          "Bachelor of design",
		Household:          "Married, one child",
		Values:             "Values craft and quiet evenings",
		Lifestyle:          "Urban, commutes by train",
		Hobbies:            "Ceramics and trail running",
		Goals:              "Lead a design team within five years",
		PurchasingBehavior: "Researches reviews before buying",
		InformationSources: "Design blogs and podcasts",
		Devices:            "MacBook and Android phone",
		SocialMedia:        "Instagram daily, X rarely",
		DailySchedule:      "Up at six, home by seven",
		Concerns:           "Childcare costs",
		Needs:              "More time for side projects",
		FavoriteBrands:     "Muji, Patagonia",
		FavoriteMedia:      "Documentaries, NHK",
		Relationships:      "Close to two college friends",
		RecentEvents:       "Moved to a new team last month",
	}
}

func TestFieldOrderIsStable(t *testing.T) {
	labels := FieldLabels()
	require.Len(t, labels, 25)
	assert.Equal(t, "Name", labels[0])
	assert.Equal(t, "Age", labels[1])
	assert.Equal(t, "Recent events", labels[24])

	p := validProfile()
	values := p.FieldValues()
	require.Len(t, values, len(labels))
	assert.Equal(t, "Aiko Tanaka", values[0])
	assert.Equal(t, "34", values[1])
}

func TestValidateAcceptsCompleteProfile(t *testing.T) {
	p := validProfile()
	assert.NoError(t, p.Validate())
}

func TestValidateRejectsEmptyField(t *testing.T) {
	p := validProfile()
	p.Hobbies = ""
	err := p.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Hobbies")
}

func TestValidateRejectsNonPositiveAge(t *testing.T) {
	p := validProfile()
	p.Age = 0
	err := p.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "age")
}

func TestRenderBlockOpensWithRolePlayHeader(t *testing.T) {
	p := validProfile()
	block := RenderBlock(&p)
	assert.Contains(t, block, "You are Aiko Tanaka. Your profile is as follows.")
	for _, label := range FieldLabels() {
		assert.Contains(t, block, label+": ")
	}
	assert.Contains(t, block, "Age: 34")
}

func TestMatchesFilters(t *testing.T) {
	p := validProfile() // 34, female

	assert.True(t, p.MatchesFilters(GenderFemale, 30, 30))
	assert.True(t, p.MatchesFilters(GenderEither, 20, 30))
	// 34 is inside "30s" because the decade spans 30-39.
	assert.True(t, p.MatchesFilters(GenderFemale, 30, 30))
	assert.False(t, p.MatchesFilters(GenderFemale, 40, 50))
	assert.False(t, p.MatchesFilters(GenderMale, 30, 30))

	p.Gender = "Female" // case and padding from the backend vary
	assert.True(t, p.MatchesFilters(GenderFemale, 30, 30))
}

func TestParseGender(t *testing.T) {
	g, err := ParseGender(" Female ")
	require.NoError(t, err)
	assert.Equal(t, GenderFemale, g)

	_, err = ParseGender("unknown")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid gender")
}
