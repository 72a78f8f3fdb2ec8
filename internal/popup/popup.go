// Package popup renders the HTML shown when hovering an accident marker.
package popup

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ppiankov/acmap/internal/model"
	"github.com/ppiankov/acmap/internal/util"
	"golang.org/x/net/html"
)

const (
	airlinersURL   = "https://www.airliners.net/search?keywords="
	flightradarURL = "https://www.flightradar24.com/data/airports/"

	// displayDateLayout renders dates as "March 27, 1977"
	displayDateLayout = "January 2, 2006"

	routeSeparator = " -> "
)

var flightNumberDigits = regexp.MustCompile(`\d+`)

// Builder renders marker popups
type Builder struct{}

// NewBuilder creates a new popup builder
func NewBuilder() *Builder {
	return &Builder{}
}

// Build returns the popup HTML for an accident. All accident values are escaped.
func (b *Builder) Build(a *model.Accident) string {
	registration := html.EscapeString(a.AircraftRegistration)
	registrationURL := html.EscapeString(airlinersURL + a.AircraftRegistration)

	var sb strings.Builder
	sb.WriteString(`<div class="popup-content">`)
	fmt.Fprintf(&sb, `<p class="popup-title">%s</p>`, html.EscapeString(Title(a)))
	fmt.Fprintf(&sb, `<p><strong>Date:</strong> %s</p>`, FormatDate(a.Date))
	fmt.Fprintf(&sb, `<p><strong>Location:</strong> %s (%s)</p>`, html.EscapeString(a.Location), html.EscapeString(a.Country))
	fmt.Fprintf(&sb, `<p><strong>Occupants:</strong> %d</p>`, a.Occupants)
	fmt.Fprintf(&sb, `<p><strong>Fatalities:</strong> %d</p>`, a.Fatalities)
	fmt.Fprintf(&sb, `<p><strong>Aircraft:</strong> %s (%s)</p>`, html.EscapeString(a.AircraftType), link(registrationURL, registration))
	fmt.Fprintf(&sb, `<p><strong>Route:</strong> %s</p>`, Route(a))
	fmt.Fprintf(&sb, `<p><strong>Flight Phase:</strong> %s</p>`, html.EscapeString(a.FlightPhase))
	fmt.Fprintf(&sb, `<p><strong>Summary:</strong> %s%s</p>`, html.EscapeString(Summary(a.Categories)), disputed(a.IsDisputed))
	fmt.Fprintf(&sb, `<p><strong>Description:</strong> %s</p>`, html.EscapeString(a.Description))
	fmt.Fprintf(&sb, `<p><strong>Explore:</strong><br>%s</p>`, resourceLinks(a.Resources))
	sb.WriteString(`</div>`)

	return sb.String()
}

// Title returns "<operator> Flight <number>" using the first run of digits
// in the flight number, or just the operator when there is none.
func Title(a *model.Accident) string {
	number := flightNumberDigits.FindString(a.FlightNumber)
	if number == "" {
		return a.Operator
	}
	return a.Operator + " Flight " + number
}

// FormatDate renders a date as "January 2, 2006"
func FormatDate(d model.Date) string {
	if d.IsZero() {
		return ""
	}
	return d.Format(displayDateLayout)
}

// Summary joins the categories in collation order; only the first keeps
// its capitalisation, the rest are lowercased. The input is not modified.
func Summary(categories []string) string {
	sorted := make([]string, len(categories))
	copy(sorted, categories)
	util.SortLocale(sorted)

	for i := 1; i < len(sorted); i++ {
		sorted[i] = strings.ToLower(sorted[i])
	}
	return strings.Join(sorted, ", ")
}

// Route renders departure, stopovers and destination joined by " -> "
func Route(a *model.Accident) string {
	parts := make([]string, 0, len(a.Stopovers)+2)
	parts = append(parts, airport(a.DepartureAirport))
	for _, s := range a.Stopovers {
		parts = append(parts, airport(s.Airport))
	}
	parts = append(parts, airport(a.DestinationAirport))

	return strings.Join(parts, routeSeparator)
}

func airport(ap model.Airport) string {
	href := html.EscapeString(flightradarURL + strings.ToLower(ap.IATACode))
	return fmt.Sprintf("%s (%s)", html.EscapeString(ap.City), link(href, html.EscapeString(ap.ICAOCode)))
}

func resourceLinks(resources []model.Resource) string {
	links := make([]string, 0, len(resources))
	for _, r := range resources {
		links = append(links, link(html.EscapeString(r.URL), html.EscapeString(r.Description)))
	}
	return strings.Join(links, "<br>")
}

// link expects already escaped arguments
func link(href, text string) string {
	return fmt.Sprintf(`<a href="%s" target="_blank" class="popup-link">%s</a>`, href, text)
}

func disputed(isDisputed bool) string {
	if isDisputed {
		return " (disputed)"
	}
	return ""
}
