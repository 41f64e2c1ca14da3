// Package runtime evaluates validated treatments against live
// participant data: reference resolution, comparator application,
// condition verdicts, and per-participant visibility decisions.
// Every evaluation is a pure read of a point-in-time snapshot; the only
// mutable state is the scope registry, which is owned by one session.
package runtime

import (
	"strconv"
	"sync"

	"github.com/civiclab/deliberation-engine/internal/treatment"
)

// scopeSet holds one subject's data, keyed first by reference domain.
// Name-bearing domains (prompt/survey/submitButton/qualtrics) key their
// second level by element name; path-only domains store one record.
type scopeSet struct {
	responses map[treatment.ReferenceDomain]map[string]interface{}
	env       map[treatment.ReferenceDomain]interface{}
}

func newScopeSet() *scopeSet {
	return &scopeSet{
		responses: make(map[treatment.ReferenceDomain]map[string]interface{}),
		env:       make(map[treatment.ReferenceDomain]interface{}),
	}
}

// Registry is the explicit resource registry holding every data scope a
// reference can read from, for one running game. It replaces any
// process-wide cache: components that resolve references receive a
// *Registry and its lifecycle is tied to a single session.
type Registry struct {
	mu     sync.RWMutex
	seats  map[int]*scopeSet
	shared *scopeSet
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		seats:  make(map[int]*scopeSet),
		shared: newScopeSet(),
	}
}

// SharedSeat addresses the shared group scope in Set/Resolve calls.
const SharedSeat = -1

func (g *Registry) scope(seat int) *scopeSet {
	if seat == SharedSeat {
		return g.shared
	}
	s, ok := g.seats[seat]
	if !ok {
		s = newScopeSet()
		g.seats[seat] = s
	}
	return s
}

// SetResponse records a participant's (or the shared scope's) response
// for a named element in one of the name-bearing domains.
func (g *Registry) SetResponse(seat int, domain treatment.ReferenceDomain, name string, value interface{}) {
	g.mu.Lock()
	defer g.mu.Unlock()

	s := g.scope(seat)
	store, ok := s.responses[domain]
	if !ok {
		store = make(map[string]interface{})
		s.responses[domain] = store
	}
	store[name] = value
}

// SetEnvironment records a snapshot for one of the path-only domains
// (urlParams, connectionInfo, browserInfo).
func (g *Registry) SetEnvironment(seat int, domain treatment.ReferenceDomain, snapshot interface{}) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.scope(seat).env[domain] = snapshot
}

// Resolve fetches the live value a parsed reference points at, for the
// given subject seat. A missing value resolves to (nil, false) rather
// than an error, so exists/doesNotExist conditions can express "not yet
// available".
func (g *Registry) Resolve(ref treatment.Reference, seat int) (interface{}, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var s *scopeSet
	if seat == SharedSeat {
		s = g.shared
	} else if s = g.seats[seat]; s == nil {
		return nil, false
	}

	if ref.Domain.NameBearing() {
		store, ok := s.responses[ref.Domain]
		if !ok {
			return nil, false
		}
		value, ok := store[ref.Name]
		if !ok {
			return nil, false
		}
		if len(ref.Path) == 0 {
			return value, true
		}
		return lookupPath(value, ref.Path)
	}

	snapshot, ok := s.env[ref.Domain]
	if !ok {
		return nil, false
	}
	return lookupPath(snapshot, ref.Path)
}

// lookupPath walks a decoded JSON/YAML value by successive segments.
// Maps are keyed by segment; slices index by decimal segment.
func lookupPath(value interface{}, path []string) (interface{}, bool) {
	current := value
	for _, segment := range path {
		switch v := current.(type) {
		case map[string]interface{}:
			next, ok := v[segment]
			if !ok {
				return nil, false
			}
			current = next
		case map[interface{}]interface{}:
			next, ok := v[segment]
			if !ok {
				return nil, false
			}
			current = next
		case []interface{}:
			idx, err := strconv.Atoi(segment)
			if err != nil || idx < 0 || idx >= len(v) {
				return nil, false
			}
			current = v[idx]
		default:
			return nil, false
		}
	}
	return current, true
}
