package model

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the wire format of accident dates
const DateLayout = "2006-01-02"

// Accident is a single aviation accident as served by the accidents API
type Accident struct {
	Date                 Date       `json:"date" yaml:"date"`
	Operator             string     `json:"operator" yaml:"operator"`
	FlightNumber         string     `json:"flightNumber,omitempty" yaml:"flight_number,omitempty"`
	AircraftType         string     `json:"aircraftType" yaml:"aircraft_type"`
	AircraftRegistration string     `json:"aircraftRegistration,omitempty" yaml:"aircraft_registration,omitempty"`
	Occupants            int        `json:"occupants" yaml:"occupants"`
	Fatalities           int        `json:"fatalities" yaml:"fatalities"` // Expected <= Occupants, not enforced
	Location             string     `json:"location" yaml:"location"`
	Country              string     `json:"country" yaml:"country"`
	Latitude             float64    `json:"latitude" yaml:"latitude"`
	Longitude            float64    `json:"longitude" yaml:"longitude"`
	DepartureAirport     Airport    `json:"departureAirport" yaml:"departure_airport"`
	DestinationAirport   Airport    `json:"destinationAirport" yaml:"destination_airport"`
	Stopovers            []Stopover `json:"stopovers,omitempty" yaml:"stopovers,omitempty"` // Ordered
	FlightPhase          string     `json:"flightPhase,omitempty" yaml:"flight_phase,omitempty"`
	Description          string     `json:"description,omitempty" yaml:"description,omitempty"`
	IsDisputed           bool       `json:"isDisputed" yaml:"is_disputed"`
	Categories           []string   `json:"categories" yaml:"categories"` // Unordered at rest
	Resources            []Resource `json:"resources,omitempty" yaml:"resources,omitempty"`
}

// Airport identifies an airport on an accident route
type Airport struct {
	IATACode string `json:"iataCode" yaml:"iata_code"`
	ICAOCode string `json:"icaoCode" yaml:"icao_code"`
	City     string `json:"city" yaml:"city"`
	Country  string `json:"country,omitempty" yaml:"country,omitempty"`
}

// Stopover is an intermediate airport between departure and destination
type Stopover struct {
	Airport Airport `json:"airport" yaml:"airport"`
}

// Resource is an external reference about an accident
type Resource struct {
	URL         string `json:"url" yaml:"url"`
	Description string `json:"description" yaml:"description"`
}

// HasCategory reports whether the accident is tagged with category
func (a *Accident) HasCategory(category string) bool {
	for _, c := range a.Categories {
		if c == category {
			return true
		}
	}
	return false
}

// Coordinates returns the accident position as [longitude, latitude]
func (a *Accident) Coordinates() [2]float64 {
	return [2]float64{a.Longitude, a.Latitude}
}

// Date is a calendar date without time of day or zone
type Date struct {
	time.Time
}

// NewDate returns the date for the given year, month and day
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD date
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return Date{Time: t}, nil
}

// String returns the date in wire format
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

// MarshalJSON encodes the date as "YYYY-MM-DD"
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.String() + `"`), nil
}

// UnmarshalJSON accepts "YYYY-MM-DD" and null
func (d *Date) UnmarshalJSON(data []byte) error {
	s := string(data)
	if s == "null" || s == `""` {
		*d = Date{}
		return nil
	}
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return fmt.Errorf("date must be a string, got %s", s)
	}
	parsed, err := ParseDate(s[1 : len(s)-1])
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// MarshalYAML encodes the date as a plain string
func (d Date) MarshalYAML() (interface{}, error) {
	return d.String(), nil
}
