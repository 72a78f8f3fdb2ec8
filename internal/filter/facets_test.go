package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOperators(t *testing.T) {
	assert.Equal(t, []string{"Air France", "KLM", "Pan Am", "US Airways"}, Operators(sampleAccidents()))
}

func TestAircraftTypes(t *testing.T) {
	assert.Equal(t, []string{
		"Airbus A320-214",
		"Airbus A330-203",
		"Boeing 747-121",
		"Boeing 747-206B",
		"McDonnell Douglas DC-8",
	}, AircraftTypes(sampleAccidents()))
}

func TestCategories(t *testing.T) {
	assert.Equal(t, []string{"Bird strike", "CFIT", "Loss of control", "Runway incursion"}, Categories(sampleAccidents()))
}

func TestFacets_Empty(t *testing.T) {
	assert.Empty(t, Operators(nil))
	assert.Empty(t, AircraftTypes(nil))
	assert.Empty(t, Categories(nil))
}

func TestParseFacet(t *testing.T) {
	for input, want := range map[string]Facet{
		"operator":       FacetOperator,
		"operators":      FacetOperator,
		"aircraft-types": FacetAircraftType,
		"aircraftType":   FacetAircraftType,
		"categories":     FacetCategory,
	} {
		got, err := ParseFacet(input)
		require.NoError(t, err, input)
		assert.Equal(t, want, got, input)
	}

	_, err := ParseFacet("country")
	assert.Error(t, err)
}

func TestFacet_Criteria(t *testing.T) {
	accidents := sampleAccidents()

	for _, facet := range []Facet{FacetOperator, FacetAircraftType, FacetCategory} {
		for _, value := range Values(accidents, facet) {
			got := Filter(accidents, facet.Criteria(value))
			assert.NotEmpty(t, got, "%s=%s should select at least one accident", facet, value)
		}
	}
}
