// Package variables models the named values ptzlink publishes to the host:
// a write-once set of definitions and a value map refreshed every poll.
package variables

import (
	"regexp"
	"strings"
	"sync"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Definition names one published value
type Definition struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Publisher receives definitions and values. SetDefinitions replaces the
// whole definition set; SetValues merges into the current values.
type Publisher interface {
	SetDefinitions(defs []Definition)
	SetValues(values map[string]string)
}

var nonWord = regexp.MustCompile(`[^a-z0-9]+`)

// ID turns a device field name into a variable id, e.g. "Tally-Mode" -> "tally_mode"
func ID(prefix, key string) string {
	id := strings.Trim(nonWord.ReplaceAllString(strings.ToLower(key), "_"), "_")
	if prefix != "" {
		id = prefix + "_" + id
	}
	return id
}

// DisplayName turns a device field name into a label, e.g. "tally_mode" -> "Tally Mode"
func DisplayName(prefix, key string) string {
	words := strings.Fields(nonWord.ReplaceAllString(strings.ToLower(key), " "))
	// Casers are stateful, so each call gets its own
	name := cases.Title(language.English).String(strings.Join(words, " "))
	if prefix != "" {
		name = prefix + ": " + name
	}
	return name
}

// Store is an in-memory Publisher that keeps the latest definitions and values
type Store struct {
	mu     sync.RWMutex
	defs   []Definition
	values map[string]string

	// defWrites counts SetDefinitions calls
	defWrites int
}

// NewStore returns an empty Store
func NewStore() *Store {
	return &Store{values: make(map[string]string)}
}

// SetDefinitions implements Publisher. A new definition set starts a new
// session, so values from the previous one are dropped.
func (s *Store) SetDefinitions(defs []Definition) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.defs = append([]Definition(nil), defs...)
	s.values = make(map[string]string)
	s.defWrites++
}

// SetValues implements Publisher
func (s *Store) SetValues(values map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range values {
		s.values[k] = v
	}
}

// Definitions returns a copy of the current definitions
func (s *Store) Definitions() []Definition {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Definition(nil), s.defs...)
}

// Values returns a copy of the current values
func (s *Store) Values() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

// DefinitionWrites returns how many times SetDefinitions was called
func (s *Store) DefinitionWrites() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.defWrites
}

// Reset drops all definitions and values
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.defs = nil
	s.values = make(map[string]string)
}

// Fanout forwards every call to each of its publishers in order
type Fanout []Publisher

// SetDefinitions implements Publisher
func (f Fanout) SetDefinitions(defs []Definition) {
	for _, p := range f {
		p.SetDefinitions(defs)
	}
}

// SetValues implements Publisher
func (f Fanout) SetValues(values map[string]string) {
	for _, p := range f {
		p.SetValues(values)
	}
}
