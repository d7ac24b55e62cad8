// Package census caches tract-level population data fetched from an external
// source and answers GEOID → population lookups for the analysis engine.
package census

import (
	"context"
	"sync"
)

// geoidLen is the fixed length of a census tract GEOID:
// 2 state + 3 county + 6 tract digits.
const geoidLen = 11

// Record is the demographic metadata for one boundary unit.
type Record struct {
	GEOID      string `json:"geoid"`
	Population int64  `json:"population"`
	StateFIPS  string `json:"state_fips"`
	CountyFIPS string `json:"county_fips"`
	TractCE    string `json:"tract_ce"`
}

// Source supplies the full population table in one bulk call. The call may
// be slow; callers are expected to cache the result.
type Source interface {
	FetchAll(ctx context.Context) (map[string]Record, error)
}

// ValidGEOID reports whether id is a fixed-length numeric tract GEOID.
// Invalid identifiers are excluded from aggregates, contributing zero.
func ValidGEOID(id string) bool {
	if len(id) != geoidLen {
		return false
	}
	for _, r := range id {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// StaticSource is an in-memory Source for tests and demos.
type StaticSource struct {
	Records map[string]Record

	mu      sync.Mutex
	err     error
	fetches int
}

// FetchAll returns a copy of the configured records.
func (s *StaticSource) FetchAll(ctx context.Context) (map[string]Record, error) {
	s.mu.Lock()
	s.fetches++
	err := s.err
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	out := make(map[string]Record, len(s.Records))
	for k, v := range s.Records {
		out[k] = v
	}
	return out, nil
}

// SetErr makes subsequent FetchAll calls fail with err (nil to clear).
func (s *StaticSource) SetErr(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

// Fetches reports how many times FetchAll has been invoked.
func (s *StaticSource) Fetches() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetches
}
