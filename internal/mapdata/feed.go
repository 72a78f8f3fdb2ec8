// Package mapdata publishes the displayed accident list and map signals
// to every connected map view.
package mapdata

import (
	"sync"

	"github.com/ppiankov/acmap/internal/model"
)

// EventType names a feed event
type EventType string

const (
	// EventAccidents carries a new displayed list
	EventAccidents EventType = "accidents"
	// EventResetZoom asks views to return to the initial viewport
	EventResetZoom EventType = "reset-zoom"
	// EventLoading toggles the loading indicator
	EventLoading EventType = "loading"
)

// DefaultBuffer is the per-subscriber event buffer
const DefaultBuffer = 16

// Event is delivered to subscribers
type Event struct {
	Type      EventType
	Accidents []model.Accident
	Loading   bool
}

// Feed is a latest-value publisher. New subscribers first receive the
// current list and loading state. A subscriber that falls behind keeps only
// the newest pending list and loading state; older reset-zoom signals go first.
type Feed struct {
	mu      sync.Mutex
	buffer  int
	current []model.Accident
	hasList bool
	loading int
	nextID  int
	subs    map[int]chan Event
	closed  bool
}

// NewFeed creates a feed with the given per-subscriber buffer
func NewFeed(buffer int) *Feed {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Feed{
		buffer: buffer,
		subs:   make(map[int]chan Event),
	}
}

// Update replaces the displayed list and notifies subscribers
func (f *Feed) Update(accidents []model.Accident) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.current = accidents
	f.hasList = true
	f.broadcast(Event{Type: EventAccidents, Accidents: accidents})
}

// Init publishes accidents only when no list has been published yet.
// It reports whether the list was published.
func (f *Feed) Init(accidents []model.Accident) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.hasList {
		return false
	}
	f.current = accidents
	f.hasList = true
	f.broadcast(Event{Type: EventAccidents, Accidents: accidents})
	return true
}

// Current returns the displayed list and whether one was published
func (f *Feed) Current() ([]model.Accident, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current, f.hasList
}

// ResetZoom signals views to reset their viewport
func (f *Feed) ResetZoom() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.broadcast(Event{Type: EventResetZoom})
}

// ShowSpinner marks one more operation in progress. The indicator turns on
// with the first one.
func (f *Feed) ShowSpinner() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.loading++
	if f.loading == 1 {
		f.broadcast(Event{Type: EventLoading, Loading: true})
	}
}

// HideSpinner marks one operation done. The indicator turns off when none
// remain.
func (f *Feed) HideSpinner() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.loading == 0 {
		return
	}
	f.loading--
	if f.loading == 0 {
		f.broadcast(Event{Type: EventLoading, Loading: false})
	}
}

// Loading reports the loading indicator state
func (f *Feed) Loading() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loading > 0
}

// Subscribe registers a subscriber. The returned cancel func is idempotent
// and closes the channel.
func (f *Feed) Subscribe() (<-chan Event, func()) {
	f.mu.Lock()
	defer f.mu.Unlock()

	ch := make(chan Event, f.buffer)
	if f.closed {
		close(ch)
		return ch, func() {}
	}

	if f.hasList {
		ch <- Event{Type: EventAccidents, Accidents: f.current}
	}
	if f.loading > 0 {
		send(ch, Event{Type: EventLoading, Loading: true})
	}

	id := f.nextID
	f.nextID++
	f.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			f.mu.Lock()
			defer f.mu.Unlock()

			if sub, ok := f.subs[id]; ok {
				delete(f.subs, id)
				close(sub)
			}
		})
	}
	return ch, cancel
}

// Subscribers returns the number of active subscribers
func (f *Feed) Subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

// Close closes every subscriber channel. Later subscriptions receive a closed channel.
func (f *Feed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return
	}
	f.closed = true
	for id, ch := range f.subs {
		delete(f.subs, id)
		close(ch)
	}
}

// broadcast must be called with f.mu held
func (f *Feed) broadcast(ev Event) {
	for _, ch := range f.subs {
		send(ch, ev)
	}
}

// send never blocks. When the buffer is full the pending events are
// compacted: superseded lists and loading states are dropped, then the
// oldest remaining events until the newest list and loading state fit.
// Only the publisher sends, under f.mu, so the refill cannot block.
func send(ch chan Event, ev Event) {
	select {
	case ch <- ev:
		return
	default:
	}

	pending := []Event{}
	for drained := false; !drained; {
		select {
		case old := <-ch:
			pending = append(pending, old)
		default:
			drained = true
		}
	}
	pending = compact(append(pending, ev), cap(ch))

	for _, p := range pending {
		select {
		case ch <- p:
		default:
		}
	}
}

// compact keeps the last event of each latest-value type, then drops the
// oldest other events until at most size remain. Order is preserved.
func compact(events []Event, size int) []Event {
	last := map[EventType]int{}
	for i, ev := range events {
		if ev.Type != EventResetZoom {
			last[ev.Type] = i
		}
	}

	kept := make([]Event, 0, len(events))
	keep := make([]bool, 0, len(events))
	for i, ev := range events {
		if ev.Type != EventResetZoom && last[ev.Type] != i {
			continue
		}
		kept = append(kept, ev)
		keep = append(keep, ev.Type != EventResetZoom)
	}

	for excess := len(kept) - size; excess > 0; excess-- {
		drop := -1
		for i := range kept {
			if !keep[i] {
				drop = i
				break
			}
		}
		if drop < 0 {
			drop = 0
		}
		kept = append(kept[:drop], kept[drop+1:]...)
		keep = append(keep[:drop], keep[drop+1:]...)
	}
	return kept
}
