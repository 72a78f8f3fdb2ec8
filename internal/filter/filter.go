// Package filter narrows an accident list down to the entries matching
// the search form criteria.
package filter

import (
	"strings"

	"github.com/ppiankov/acmap/internal/model"
)

// Filter returns the accidents matching every set criterion, in input order.
// The input slice is never modified; an empty criteria value returns a copy
// of the full input.
func Filter(accidents []model.Accident, criteria model.Criteria) []model.Accident {
	result := make([]model.Accident, 0, len(accidents))
	for i := range accidents {
		if Matches(&accidents[i], criteria) {
			result = append(result, accidents[i])
		}
	}
	return result
}

// Matches reports whether a single accident satisfies all set criteria
func Matches(a *model.Accident, criteria model.Criteria) bool {
	if criteria.MinFatalities > 0 && a.Fatalities < criteria.MinFatalities {
		return false
	}
	if criteria.Operator != "" && a.Operator != criteria.Operator {
		return false
	}
	// Substring match is case-sensitive
	if criteria.AircraftType != "" && !strings.Contains(a.AircraftType, criteria.AircraftType) {
		return false
	}
	if criteria.Category != "" && !a.HasCategory(criteria.Category) {
		return false
	}
	return true
}
