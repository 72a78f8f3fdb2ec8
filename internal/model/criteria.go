package model

// Criteria holds the search form values used to narrow the accident list.
// Zero values mean "no constraint".
type Criteria struct {
	MinFatalities int    `json:"minFatalities,omitempty" yaml:"min_fatalities,omitempty" form:"minFatalities"`
	Operator      string `json:"operator,omitempty" yaml:"operator,omitempty" form:"operator"`
	AircraftType  string `json:"aircraftType,omitempty" yaml:"aircraft_type,omitempty" form:"aircraftType"`
	Category      string `json:"category,omitempty" yaml:"category,omitempty" form:"category"`
}

// IsEmpty reports whether no criterion is set
func (c Criteria) IsEmpty() bool {
	return c.MinFatalities <= 0 && c.Operator == "" && c.AircraftType == "" && c.Category == ""
}
