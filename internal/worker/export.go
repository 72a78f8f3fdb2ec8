package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ppiankov/acmap/internal/filter"
	"github.com/ppiankov/acmap/internal/mapview"
	"github.com/ppiankov/acmap/internal/model"
)

// ExportJob writes the markers of one facet value to a GeoJSON file
type ExportJob struct {
	Value     string
	Criteria  model.Criteria
	Accidents []model.Accident
	Path      string
	Builder   *mapview.Builder
}

// Execute filters, renders and writes the job's file
func (j *ExportJob) Execute(ctx context.Context) Result {
	res := &ExportResult{Value: j.Value, Path: j.Path}

	if err := ctx.Err(); err != nil {
		res.Error = err
		return res
	}

	selected := filter.Filter(j.Accidents, j.Criteria)
	res.Count = len(selected)

	data, err := json.MarshalIndent(j.Builder.Build(selected), "", "  ")
	if err != nil {
		res.Error = fmt.Errorf("marshal %s: %w", j.Value, err)
		return res
	}

	if err := os.WriteFile(j.Path, data, 0644); err != nil {
		res.Error = fmt.Errorf("write %s: %w", j.Path, err)
		return res
	}

	return res
}

// ExportResult reports one written file
type ExportResult struct {
	Value string
	Path  string
	Count int
	Error error
}

// GetError returns the export error, if any
func (r *ExportResult) GetError() error {
	return r.Error
}

// Exporter splits an accident list by facet and writes one file per value concurrently
type Exporter struct {
	builder     *mapview.Builder
	concurrency int
}

// NewExporter creates an exporter using the given number of workers
func NewExporter(concurrency int) *Exporter {
	return &Exporter{
		builder:     mapview.NewBuilder(),
		concurrency: concurrency,
	}
}

// Export writes <outputDir>/<value>.geojson for every value of facet.
// Results are returned in facet value order.
func (e *Exporter) Export(ctx context.Context, accidents []model.Accident, facet filter.Facet, outputDir string) ([]*ExportResult, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	values := filter.Values(accidents, facet)
	if len(values) == 0 {
		return []*ExportResult{}, nil
	}

	pool := NewPool(ctx, e.concurrency)
	pool.Start()

	used := make(map[string]int, len(values))
	for _, value := range values {
		job := &ExportJob{
			Value:     value,
			Criteria:  facet.Criteria(value),
			Accidents: accidents,
			Path:      filepath.Join(outputDir, uniqueName(used, SanitizeFilename(value))+".geojson"),
			Builder:   e.builder,
		}
		if err := pool.Submit(job); err != nil {
			pool.Shutdown()
			return nil, fmt.Errorf("submit %s: %w", value, err)
		}
	}

	results := pool.Wait()

	exportResults := make([]*ExportResult, len(results))
	for i, r := range results {
		if r == nil {
			exportResults[i] = &ExportResult{Value: values[i], Error: ErrPoolClosed}
			continue
		}
		exportResults[i] = r.(*ExportResult)
	}

	return exportResults, nil
}

var filenameReplacer = strings.NewReplacer(
	"/", "_",
	"\\", "_",
	":", "_",
	"*", "_",
	"?", "_",
	"\"", "_",
	"<", "_",
	">", "_",
	"|", "_",
	" ", "-",
)

// maxFilenameBytes keeps names well under common file system limits
const maxFilenameBytes = 100

// SanitizeFilename turns a facet value into a portable file name
func SanitizeFilename(s string) string {
	s = filenameReplacer.Replace(strings.TrimSpace(s))
	s = strings.Trim(s, ".")

	if len(s) > maxFilenameBytes {
		cut := maxFilenameBytes
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		s = s[:cut]
	}
	if s == "" {
		s = "unnamed"
	}

	return s
}

// uniqueName suffixes names that collide after sanitizing ("A/B" and "A:B")
func uniqueName(used map[string]int, name string) string {
	key := strings.ToLower(name)
	n := used[key]
	used[key] = n + 1
	if n == 0 {
		return name
	}
	return fmt.Sprintf("%s-%d", name, n+1)
}
