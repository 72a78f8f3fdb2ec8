package store

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ppiankov/acmap/internal/filter"
	"github.com/ppiankov/acmap/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleAccidents() []model.Accident {
	return []model.Accident{
		{Operator: "Delta", AircraftType: "Boeing 737-800", Fatalities: 5, Categories: []string{"Fire"}},
		{Operator: "air France", AircraftType: "Airbus A330", Fatalities: 228, Categories: []string{"Weather", "Fire"}},
		{Operator: "Delta", AircraftType: "Boeing 767", Fatalities: 0, Categories: []string{"Runway"}},
	}
}

type countingSource struct {
	calls     atomic.Int32
	accidents []model.Accident
	err       error
	delay     time.Duration
}

func (s *countingSource) FetchAccidents(ctx context.Context) ([]model.Accident, error) {
	s.calls.Add(1)
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	return s.accidents, s.err
}

func TestStoreNotLoaded(t *testing.T) {
	s := New(&countingSource{}, nil)

	assert.False(t, s.Loaded())

	_, err := s.All()
	assert.ErrorIs(t, err, ErrNotLoaded)

	_, err = s.Filter(model.Criteria{})
	assert.ErrorIs(t, err, ErrNotLoaded)

	_, err = s.Operators()
	assert.ErrorIs(t, err, ErrNotLoaded)
}

func TestStoreLoadOnce(t *testing.T) {
	src := &countingSource{accidents: sampleAccidents()}
	s := New(src, nil)

	first, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, first, 3)

	second, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, second)

	assert.Equal(t, int32(1), src.calls.Load())
	assert.True(t, s.Loaded())
}

func TestStoreConcurrentLoadSharesFetch(t *testing.T) {
	src := &countingSource{accidents: sampleAccidents(), delay: 50 * time.Millisecond}
	s := New(src, nil)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			accidents, err := s.Load(context.Background())
			assert.NoError(t, err)
			assert.Len(t, accidents, 3)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), src.calls.Load())
}

func TestStoreCancelledCallerDoesNotFailJoinedLoad(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var fetchErr atomic.Value

	s := New(SourceFunc(func(ctx context.Context) ([]model.Accident, error) {
		close(started)
		<-release
		if err := ctx.Err(); err != nil {
			fetchErr.Store(err)
			return nil, err
		}
		return sampleAccidents(), nil
	}), nil)

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := s.Load(firstCtx)
		firstErr <- err
	}()

	<-started
	cancelFirst()
	assert.ErrorIs(t, <-firstErr, context.Canceled)

	second := make(chan []model.Accident, 1)
	go func() {
		accidents, err := s.Load(context.Background())
		assert.NoError(t, err)
		second <- accidents
	}()

	close(release)
	assert.Len(t, <-second, 3)
	assert.Nil(t, fetchErr.Load())
	assert.True(t, s.Loaded())
}

func TestStoreLoadTimeout(t *testing.T) {
	s := New(SourceFunc(func(ctx context.Context) ([]model.Accident, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}), nil)
	s.SetLoadTimeout(20 * time.Millisecond)

	_, err := s.Load(context.Background())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestStoreLoadError(t *testing.T) {
	src := &countingSource{err: errors.New("boom")}
	s := New(src, nil)

	_, err := s.Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
	assert.False(t, s.Loaded())

	// A failed load is retried on the next call
	src.err = nil
	src.accidents = sampleAccidents()
	_, err = s.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), src.calls.Load())
}

func TestStoreFilterAndFacets(t *testing.T) {
	s := New(&countingSource{accidents: sampleAccidents()}, nil)
	_, err := s.Load(context.Background())
	require.NoError(t, err)

	got, err := s.Filter(model.Criteria{Operator: "Delta", MinFatalities: 1})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Boeing 737-800", got[0].AircraftType)

	operators, err := s.Operators()
	require.NoError(t, err)
	assert.Equal(t, []string{"air France", "Delta"}, operators)

	categories, err := s.Facet(filter.FacetCategory)
	require.NoError(t, err)
	assert.Equal(t, []string{"Fire", "Runway", "Weather"}, categories)

	aircraft, err := s.AircraftTypes()
	require.NoError(t, err)
	assert.Len(t, aircraft, 3)

	_, err = s.Facet(filter.Facet("bogus"))
	assert.Error(t, err)
}

func TestStoreAllReturnsCopy(t *testing.T) {
	s := New(&countingSource{accidents: sampleAccidents()}, nil)
	_, err := s.Load(context.Background())
	require.NoError(t, err)

	all, err := s.All()
	require.NoError(t, err)
	all[0] = model.Accident{Operator: "changed"}

	again, err := s.All()
	require.NoError(t, err)
	assert.Equal(t, "Delta", again[0].Operator)
}

func TestFallbackSource(t *testing.T) {
	primary := SourceFunc(func(ctx context.Context) ([]model.Accident, error) {
		return nil, errors.New("api down")
	})
	snapshot := SourceFunc(func(ctx context.Context) ([]model.Accident, error) {
		return sampleAccidents()[:1], nil
	})

	f := NewFallbackSource(nil, NamedSource{Name: "api", Source: primary}, NamedSource{Name: "snapshot", Source: snapshot})
	got, err := f.FetchAccidents(context.Background())
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestFallbackSourceAllFail(t *testing.T) {
	failing := func(msg string) Source {
		return SourceFunc(func(ctx context.Context) ([]model.Accident, error) {
			return nil, errors.New(msg)
		})
	}

	f := NewFallbackSource(nil, NamedSource{Name: "api", Source: failing("api down")}, NamedSource{Name: "snapshot", Source: failing("no snapshot")})
	_, err := f.FetchAccidents(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api: api down")
	assert.Contains(t, err.Error(), "snapshot: no snapshot")

	_, err = NewFallbackSource(nil).FetchAccidents(context.Background())
	assert.Error(t, err)
}
