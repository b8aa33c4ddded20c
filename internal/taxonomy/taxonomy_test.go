package taxonomy

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMap(t *testing.T) {
	tests := []struct {
		category string
		want     Key
	}{
		{"", Default},
		{"   ", Default},
		{"Education", Education},
		{"Liberal arts college", Education},
		{"Public Schools", Education},
		{"Construction", Construction},
		{"Commercial construction", Construction},
		{"HVAC contractor", Construction},
		{"Technology", Technology},
		{"Software startup", Technology},
		{"IT services", Technology},
		{"Manufacturing", Manufacturing},
		{"Manufacturing plant", Manufacturing},
		{"Residential", Residential},
		{"Apartment complex", Residential},
		{"Professional Services", ProfessionalServices},
		{"Management consulting", ProfessionalServices},
		{"Insurance agency", ProfessionalServices},
		{"Office", Office},
		{"Multi-tenant office building", Construction},
		{"Coworking space", Office},
		{"Coffee roaster", FoodBeverage},
		{"Restaurant", FoodBeverage},
		{"Retail", Retail},
		{"Clothing boutique", Retail},
		{"Facilities", Default},
		{"Pest control", Default},
	}
	for _, tt := range tests {
		t.Run(tt.category, func(t *testing.T) {
			assert.Equal(t, tt.want, Map(tt.category))
		})
	}
}

// Several categories match more than one rule; the rule order decides.
func TestMap_PriorityOrder(t *testing.T) {
	tests := []struct {
		category string
		want     Key
	}{
		{"Tech school", Education},
		{"Construction software", Construction},
		{"Software for manufacturing", Technology},
		{"Residential construction", Construction},
		{"Home office furniture factory", Manufacturing},
		{"Professional services office", ProfessionalServices},
		{"Office coffee service", Office},
		{"Food retail store", FoodBeverage},
	}
	for _, tt := range tests {
		t.Run(tt.category, func(t *testing.T) {
			assert.Equal(t, tt.want, Map(tt.category))
		})
	}
}

func TestMap_CaseInsensitive(t *testing.T) {
	assert.Equal(t, Technology, Map("SOFTWARE STARTUP"))
	assert.Equal(t, Technology, Map("software startup"))
	assert.Equal(t, Technology, Map("SoFtWaRe"))
}

func TestMap_WholeWordsOnly(t *testing.T) {
	// "it" must not match inside "facility" or "city".
	assert.Equal(t, Default, Map("City facility"))
	// "bar" must not match "barber".
	assert.Equal(t, Default, Map("Barber"))
}

func TestMap_AlwaysReturnsLibraryKey(t *testing.T) {
	inputs := []string{"", "x", "!!!", "Software startup", "Construction", "日本語", "a\nb\tc", strings.Repeat("tech ", 100)}
	for _, in := range inputs {
		_, ok := Lookup(Map(in))
		assert.True(t, ok, "key for %q missing from library", in)
	}
}

func TestLibraryCoversEveryRule(t *testing.T) {
	for _, k := range Keys() {
		e, ok := Lookup(k)
		require.True(t, ok, "missing entry for %s", k)
		assert.Equal(t, k, e.Key)
		assert.GreaterOrEqual(t, len(e.Services), 4, "%s needs at least four services", k)
		assert.NotEmpty(t, e.Benefits)
		assert.NotEmpty(t, e.IndustryType)
		assert.NotEmpty(t, e.FallbackOpening)
		assert.NotEmpty(t, e.FallbackBenefit)
		assert.NotEmpty(t, e.FallbackAction)
	}
	assert.Len(t, Keys(), 10)
}

func TestMustLookup_PanicsOnMiss(t *testing.T) {
	assert.Panics(t, func() { MustLookup(Key("unknown")) })
	assert.NotPanics(t, func() { MustLookup(Default) })
}

func TestFallback_SubstitutesCompanyOnce(t *testing.T) {
	const company = "Zephyr Widgets LLC"
	for _, k := range Keys() {
		t.Run(string(k), func(t *testing.T) {
			e := MustLookup(k)
			opening, benefit, action := e.Fallback(company)
			joined := opening + "\n" + benefit + "\n" + action
			assert.Equal(t, 1, strings.Count(joined, company))
			assert.NotContains(t, joined, CompanyPlaceholder)

			o2, b2, a2 := e.Fallback(company)
			assert.Equal(t, opening, o2)
			assert.Equal(t, benefit, b2)
			assert.Equal(t, action, a2)
		})
	}
}

func TestFallback_TechnologyScenario(t *testing.T) {
	e := ForCategory("Software startup")
	require.Equal(t, Technology, e.Key)

	opening, _, _ := e.Fallback("Acme Corp")
	assert.Equal(t, "Hope your team at Acme Corp is having a productive week.", opening)
}

func TestTopServices(t *testing.T) {
	e := MustLookup(Technology)
	assert.Equal(t, e.Services[:4], e.TopServices(4))
	assert.Len(t, e.TopServices(100), len(e.Services))
}
