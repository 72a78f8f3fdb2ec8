// Package store holds the accident list fetched once per session and
// answers search and pick-list queries from memory.
package store

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/ppiankov/acmap/internal/filter"
	"github.com/ppiankov/acmap/internal/model"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// ErrNotLoaded is returned by queries issued before Load succeeded
var ErrNotLoaded = errors.New("accidents not loaded")

// Source provides the full accident list
type Source interface {
	FetchAccidents(ctx context.Context) ([]model.Accident, error)
}

// Store caches the accident list. The list is never modified after loading.
type Store struct {
	source      Source
	log         *zap.Logger
	group       singleflight.Group
	loadTimeout time.Duration

	mu        sync.RWMutex
	loaded    bool
	accidents []model.Accident
	operators []string
	aircraft  []string
	category  []string
}

// DefaultLoadTimeout bounds the shared fetch started by Load
const DefaultLoadTimeout = 2 * time.Minute

// New creates a store reading from source
func New(source Source, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{source: source, log: log, loadTimeout: DefaultLoadTimeout}
}

// SetLoadTimeout changes the shared fetch timeout
func (s *Store) SetLoadTimeout(d time.Duration) {
	if d > 0 {
		s.loadTimeout = d
	}
}

// Load fetches the accident list on first use and returns it.
// Concurrent callers share a single fetch; later calls are served from memory.
// The shared fetch outlives a cancelled caller, so callers that joined it
// still get the list.
func (s *Store) Load(ctx context.Context) ([]model.Accident, error) {
	if accidents, err := s.All(); err == nil {
		return accidents, nil
	}

	fetchCtx := context.WithoutCancel(ctx)
	ch := s.group.DoChan("load", func() (interface{}, error) {
		if s.Loaded() {
			return nil, nil
		}

		loadCtx, cancel := context.WithTimeout(fetchCtx, s.loadTimeout)
		defer cancel()

		accidents, err := s.source.FetchAccidents(loadCtx)
		if err != nil {
			return nil, err
		}
		s.set(accidents)
		return nil, nil
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("load accidents: %w", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, fmt.Errorf("load accidents: %w", res.Err)
		}
		if res.Shared {
			s.log.Debug("Joined in-flight accident load")
		}
	}

	return s.All()
}

func (s *Store) set(accidents []model.Accident) {
	operators := filter.Operators(accidents)
	aircraft := filter.AircraftTypes(accidents)
	categories := filter.Categories(accidents)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.accidents = accidents
	s.operators = operators
	s.aircraft = aircraft
	s.category = categories
	s.loaded = true

	s.log.Info("Accident store loaded",
		zap.Int("accidents", len(accidents)),
		zap.Int("operators", len(operators)),
		zap.Int("categories", len(categories)),
	)
}

// Loaded reports whether the list is in memory
func (s *Store) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// All returns the full list
func (s *Store) All() ([]model.Accident, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.loaded {
		return nil, ErrNotLoaded
	}
	return slices.Clone(s.accidents), nil
}

// Filter returns the accidents matching criteria, in list order
func (s *Store) Filter(criteria model.Criteria) ([]model.Accident, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.loaded {
		return nil, ErrNotLoaded
	}
	return filter.Filter(s.accidents, criteria), nil
}

// Operators returns the distinct operators in collation order
func (s *Store) Operators() ([]string, error) {
	return s.facet(func() []string { return s.operators })
}

// AircraftTypes returns the distinct aircraft types in collation order
func (s *Store) AircraftTypes() ([]string, error) {
	return s.facet(func() []string { return s.aircraft })
}

// Categories returns the distinct categories in collation order
func (s *Store) Categories() ([]string, error) {
	return s.facet(func() []string { return s.category })
}

// Facet returns the values of the named facet
func (s *Store) Facet(f filter.Facet) ([]string, error) {
	switch f {
	case filter.FacetOperator:
		return s.Operators()
	case filter.FacetAircraftType:
		return s.AircraftTypes()
	case filter.FacetCategory:
		return s.Categories()
	default:
		return nil, fmt.Errorf("unknown facet %q", f)
	}
}

func (s *Store) facet(get func() []string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.loaded {
		return nil, ErrNotLoaded
	}
	return slices.Clone(get()), nil
}
