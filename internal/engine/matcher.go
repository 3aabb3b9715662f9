// Package engine implements the tech message matching and
// recommendation engine: regex pattern matching with variable
// extraction, keyword ranking, and frequency-tiered action selection.
package engine

import (
	"log"
	"regexp"
	"sync"

	"github.com/fleetdesk/fleetdesk/internal/models"
)

// MatchResult is one pattern hit: the record whose pattern matched, the
// exact substring that matched, and the named capture group values.
type MatchResult struct {
	Record      *models.TechMessageRecord
	MatchedText string
	Variables   map[string]string
}

// PatternMatcher tests catalog patterns against input text. Compiled
// patterns are cached keyed by the pattern string, since compilation is
// the dominant cost; the cache is safe for concurrent searches and is
// invalidated per key when a record's pattern is edited.
type PatternMatcher struct {
	mu    sync.RWMutex
	cache map[string]*regexp.Regexp
}

func NewPatternMatcher() *PatternMatcher {
	return &PatternMatcher{
		cache: make(map[string]*regexp.Regexp),
	}
}

// Match evaluates every catalog record's pattern against text, anywhere
// in the string. Each record yields at most one result (first match
// wins); records whose pattern fails to compile are skipped with a log
// line so one bad pattern cannot deny results for the rest.
func (m *PatternMatcher) Match(text string, catalog []*models.TechMessageRecord) []MatchResult {
	var results []MatchResult

	for _, record := range catalog {
		re, err := m.compile(record.Pattern)
		if err != nil {
			log.Printf("Skipping record %s: pattern %q does not compile: %v", record.ID, record.Pattern, err)
			continue
		}

		submatch := re.FindStringSubmatch(text)
		if submatch == nil {
			continue
		}

		variables := make(map[string]string)
		for i, name := range re.SubexpNames() {
			if name == "" || i >= len(submatch) {
				continue
			}
			variables[name] = submatch[i]
		}

		results = append(results, MatchResult{
			Record:      record,
			MatchedText: submatch[0],
			Variables:   variables,
		})
	}

	return results
}

// Invalidate drops the compiled form of a pattern. Called when a
// catalog record's pattern is edited or the record is deleted.
func (m *PatternMatcher) Invalidate(pattern string) {
	m.mu.Lock()
	delete(m.cache, pattern)
	m.mu.Unlock()
}

func (m *PatternMatcher) compile(pattern string) (*regexp.Regexp, error) {
	m.mu.RLock()
	re, ok := m.cache[pattern]
	m.mu.RUnlock()
	if ok {
		return re, nil
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.cache[pattern] = re
	m.mu.Unlock()

	return re, nil
}
