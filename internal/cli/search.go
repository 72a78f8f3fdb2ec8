package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/ppiankov/acmap/internal/filter"
	"github.com/ppiankov/acmap/internal/model"
	"github.com/ppiankov/acmap/internal/popup"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	searchCriteria model.Criteria
	outputFormat   string
	searchTimeout  time.Duration
)

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
var cellStyle = lipgloss.NewStyle().Padding(0, 1)

// searchCmd represents the search command
var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search the accident list",
	Long: `Search fetches the accident list and prints the accidents matching all
given criteria. Criteria left empty do not narrow the result.

Example:
  acmap search --min-fatalities 100
  acmap search --operator "Air France" --format json
  acmap search --aircraft-type Boeing --category Weather --format yaml`,
	Args: cobra.NoArgs,
	RunE: runSearch,
}

// facetsCmd represents the facets command
var facetsCmd = &cobra.Command{
	Use:   "facets <operator|aircraft-type|category>",
	Short: "List the distinct operators, aircraft types or categories",
	Long: `Facets prints the distinct values of one accident field in alphabetical
order. These are the values offered by the search form pick lists.

Example:
  acmap facets operator
  acmap facets category --format json`,
	Args: cobra.ExactArgs(1),
	RunE: runFacets,
}

func init() {
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(facetsCmd)

	searchCmd.Flags().IntVar(&searchCriteria.MinFatalities, "min-fatalities", 0, "minimum number of fatalities")
	searchCmd.Flags().StringVar(&searchCriteria.Operator, "operator", "", "exact operator name")
	searchCmd.Flags().StringVar(&searchCriteria.AircraftType, "aircraft-type", "", "aircraft type substring (case-sensitive)")
	searchCmd.Flags().StringVar(&searchCriteria.Category, "category", "", "accident category")

	for _, c := range []*cobra.Command{searchCmd, facetsCmd} {
		c.Flags().StringVarP(&outputFormat, "format", "o", "table", "output format: table, json, yaml")
		c.Flags().DurationVar(&searchTimeout, "timeout", 2*time.Minute, "overall fetch timeout")
	}
}

func runSearch(cmd *cobra.Command, args []string) error {
	accidents, err := loadAccidents(cmd.Context())
	if err != nil {
		return err
	}

	matched := filter.Filter(accidents, searchCriteria)
	if verbose {
		fmt.Fprintf(os.Stderr, "✓ %d of %d accidents match\n", len(matched), len(accidents))
	}

	return writeAccidents(cmd.OutOrStdout(), matched, outputFormat)
}

func runFacets(cmd *cobra.Command, args []string) error {
	facet, err := filter.ParseFacet(args[0])
	if err != nil {
		return err
	}

	accidents, err := loadAccidents(cmd.Context())
	if err != nil {
		return err
	}

	return writeValues(cmd.OutOrStdout(), string(facet), filter.Values(accidents, facet), outputFormat)
}

// loadAccidents fetches the list through the configured store
func loadAccidents(parent context.Context) ([]model.Accident, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	st, closeStore, err := newStore(cfg, logger)
	if err != nil {
		return nil, err
	}
	defer closeStore()

	ctx, cancel := context.WithTimeout(parent, searchTimeout)
	defer cancel()

	if verbose {
		fmt.Fprintf(os.Stderr, "⚙️  Fetching accidents from %s...\n", cfg.API.BaseURL)
	}

	accidents, err := st.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch failed: %w", err)
	}
	return accidents, nil
}

// writeAccidents renders accidents as a table, JSON or YAML
func writeAccidents(w io.Writer, accidents []model.Accident, format string) error {
	switch format {
	case "json":
		return writeJSON(w, accidents)
	case "yaml":
		return writeYAML(w, accidents)
	case "table", "":
		t := newTable("DATE", "OPERATOR", "FLIGHT", "AIRCRAFT", "FATALITIES", "LOCATION", "CATEGORIES")
		for i := range accidents {
			a := &accidents[i]
			t.Row(
				a.Date.String(),
				a.Operator,
				a.FlightNumber,
				a.AircraftType,
				strconv.Itoa(a.Fatalities),
				location(a),
				popup.Summary(a.Categories),
			)
		}
		_, err := fmt.Fprintln(w, t.Render())
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(w, "%d accidents\n", len(accidents))
		return err
	default:
		return fmt.Errorf("unknown format %q (want table, json or yaml)", format)
	}
}

// writeValues renders a facet value list
func writeValues(w io.Writer, header string, values []string, format string) error {
	switch format {
	case "json":
		return writeJSON(w, values)
	case "yaml":
		return writeYAML(w, values)
	case "table", "":
		t := newTable(header)
		for _, v := range values {
			t.Row(v)
		}
		_, err := fmt.Fprintln(w, t.Render())
		return err
	default:
		return fmt.Errorf("unknown format %q (want table, json or yaml)", format)
	}
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	return enc.Close()
}

func location(a *model.Accident) string {
	switch {
	case a.Location == "":
		return a.Country
	case a.Country == "":
		return a.Location
	default:
		return a.Location + ", " + a.Country
	}
}
