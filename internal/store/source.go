package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/ppiankov/acmap/internal/model"
	"go.uber.org/zap"
)

// NamedSource labels a source in logs and errors
type NamedSource struct {
	Name   string
	Source Source
}

// FallbackSource tries each source in order and returns the first list fetched
type FallbackSource struct {
	sources []NamedSource
	log     *zap.Logger
}

// NewFallbackSource chains sources, typically the API followed by the offline snapshot
func NewFallbackSource(log *zap.Logger, sources ...NamedSource) *FallbackSource {
	if log == nil {
		log = zap.NewNop()
	}
	return &FallbackSource{sources: sources, log: log}
}

// FetchAccidents returns the list from the first source that succeeds
func (f *FallbackSource) FetchAccidents(ctx context.Context) ([]model.Accident, error) {
	if len(f.sources) == 0 {
		return nil, errors.New("no accident source configured")
	}

	var errs []error
	for i, s := range f.sources {
		accidents, err := s.Source.FetchAccidents(ctx)
		if err == nil {
			if i > 0 {
				f.log.Warn("Serving accidents from fallback source", zap.String("source", s.Name), zap.Int("count", len(accidents)))
			}
			return accidents, nil
		}

		f.log.Warn("Accident source failed", zap.String("source", s.Name), zap.Error(err))
		errs = append(errs, fmt.Errorf("%s: %w", s.Name, err))

		if ctx.Err() != nil {
			break
		}
	}

	return nil, errors.Join(errs...)
}

// SourceFunc adapts a function to Source
type SourceFunc func(ctx context.Context) ([]model.Accident, error)

// FetchAccidents calls f
func (f SourceFunc) FetchAccidents(ctx context.Context) ([]model.Accident, error) {
	return f(ctx)
}
