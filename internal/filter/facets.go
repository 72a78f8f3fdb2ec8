package filter

import (
	"fmt"

	"github.com/ppiankov/acmap/internal/model"
	"github.com/ppiankov/acmap/internal/util"
)

// Facet names a field the search form offers a pick list for
type Facet string

const (
	FacetOperator     Facet = "operator"
	FacetAircraftType Facet = "aircraft-type"
	FacetCategory     Facet = "category"
)

// ParseFacet accepts the facet names used on the command line and in URLs
func ParseFacet(s string) (Facet, error) {
	switch s {
	case "operator", "operators":
		return FacetOperator, nil
	case "aircraft-type", "aircraft-types", "aircraftType":
		return FacetAircraftType, nil
	case "category", "categories":
		return FacetCategory, nil
	default:
		return "", fmt.Errorf("unknown facet %q (supported: operator, aircraft-type, category)", s)
	}
}

// Values returns the distinct values of a facet in collation order
func Values(accidents []model.Accident, facet Facet) []string {
	switch facet {
	case FacetOperator:
		return Operators(accidents)
	case FacetAircraftType:
		return AircraftTypes(accidents)
	case FacetCategory:
		return Categories(accidents)
	default:
		return []string{}
	}
}

// Criteria returns the criteria selecting accidents with the given facet value
func (f Facet) Criteria(value string) model.Criteria {
	switch f {
	case FacetOperator:
		return model.Criteria{Operator: value}
	case FacetAircraftType:
		return model.Criteria{AircraftType: value}
	case FacetCategory:
		return model.Criteria{Category: value}
	default:
		return model.Criteria{}
	}
}

// Operators returns the distinct operators
func Operators(accidents []model.Accident) []string {
	values := make([]string, 0, len(accidents))
	for _, a := range accidents {
		values = append(values, a.Operator)
	}
	return util.UniqueSorted(values)
}

// AircraftTypes returns the distinct aircraft types
func AircraftTypes(accidents []model.Accident) []string {
	values := make([]string, 0, len(accidents))
	for _, a := range accidents {
		values = append(values, a.AircraftType)
	}
	return util.UniqueSorted(values)
}

// Categories returns the distinct categories across all accidents
func Categories(accidents []model.Accident) []string {
	var values []string
	for _, a := range accidents {
		values = append(values, a.Categories...)
	}
	return util.UniqueSorted(values)
}
