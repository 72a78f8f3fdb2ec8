package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/ppiankov/acmap/internal/filter"
	"github.com/ppiankov/acmap/internal/worker"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	exportBy      string
	exportTimeout time.Duration
)

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export one GeoJSON marker file per operator, aircraft type or category",
	Long: `Export splits the accident list by one field and writes a GeoJSON
feature collection per distinct value, in parallel:
- Fetch the accident list once
- Filter it for each operator, aircraft type or category
- Write <output-dir>/<value>.geojson with popup HTML attached

Example:
  acmap export --by category
  acmap export --by operator --output-dir ./markers --concurrency 8`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVar(&exportBy, "by", "category", "split field: operator, aircraft-type, category")
	exportCmd.Flags().String("output-dir", "", "output directory (default from config, ./acmap-export)")
	exportCmd.Flags().Int("concurrency", 0, "number of concurrent workers (default from config)")
	exportCmd.Flags().DurationVar(&exportTimeout, "timeout", 10*time.Minute, "total timeout for the export")
	_ = viper.BindPFlag("export.output_dir", exportCmd.Flags().Lookup("output-dir"))
	_ = viper.BindPFlag("export.workers", exportCmd.Flags().Lookup("concurrency"))
}

func runExport(cmd *cobra.Command, args []string) error {
	facet, err := filter.ParseFacet(exportBy)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), exportTimeout)
	defer cancel()

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  acmap GeoJSON Export\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Split by:     %s\n", facet)
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", cfg.Export.Workers)
	fmt.Fprintf(os.Stderr, "  Output dir:   %s\n", cfg.Export.OutputDir)
	fmt.Fprintf(os.Stderr, "  Timeout:      %v\n", exportTimeout)
	fmt.Fprintf(os.Stderr, "\n")

	searchTimeout = exportTimeout
	accidents, err := loadAccidents(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "✓ Loaded %d accidents\n\n", len(accidents))

	exporter := worker.NewExporter(cfg.Export.Workers)
	results, err := exporter.Export(ctx, accidents, facet, cfg.Export.OutputDir)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}

	successCount := 0
	failureCount := 0
	for _, result := range results {
		if result.Error != nil {
			failureCount++
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", result.Value, result.Error)
			continue
		}
		successCount++
		if verbose {
			fmt.Fprintf(os.Stderr, "✓ %s (%d accidents) -> %s\n", result.Value, result.Count, result.Path)
		}
	}

	// Summary
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Export Complete\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Files:     %d\n", len(results))
	fmt.Fprintf(os.Stderr, "  Success:   %d\n", successCount)
	fmt.Fprintf(os.Stderr, "  Failures:  %d\n", failureCount)
	fmt.Fprintf(os.Stderr, "  Output:    %s\n", cfg.Export.OutputDir)
	fmt.Fprintf(os.Stderr, "\n")

	if failureCount > 0 {
		return fmt.Errorf("%d of %d files failed", failureCount, len(results))
	}
	return nil
}
