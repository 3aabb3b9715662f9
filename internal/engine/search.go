package engine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fleetdesk/fleetdesk/internal/models"
)

// MinSearchTextLength is the shortest accepted query after trimming.
const MinSearchTextLength = 3

var (
	// ErrSearchTextTooShort - query text under the minimum is a client
	// error, never coerced into an empty result.
	ErrSearchTextTooShort = errors.New("engine: search text must be at least 3 characters")

	// ErrInvalidMatchMode - unknown match mode value in the request.
	ErrInvalidMatchMode = errors.New("engine: invalid match mode")
)

// Query is one search invocation.
type Query struct {
	Text            string
	OccurrenceCount *int
	Mode            models.MatchMode
}

// Searcher orchestrates a search over an immutable catalog snapshot:
// exact pattern matching, fuzzy keyword ranking, merge/dedupe, and the
// per-result tier recommendation. It is stateless per call; the only
// shared state is the matcher's compiled-pattern cache.
type Searcher struct {
	matcher *PatternMatcher
	ranker  *FuzzyRanker
}

func NewSearcher() *Searcher {
	return &Searcher{
		matcher: NewPatternMatcher(),
		ranker:  NewFuzzyRanker(),
	}
}

// InvalidatePattern drops a pattern from the compiled cache. Wired to
// catalog change events so edited patterns recompile on next use.
func (s *Searcher) InvalidatePattern(pattern string) {
	s.matcher.Invalidate(pattern)
}

// Search runs the query against the catalog snapshot and returns the
// ordered result list. An empty list is a valid outcome, not an error.
//
// Ordering: exact matches first (catalog order, all scored 1.0), then
// fuzzy matches by descending score. A record hit by both paths appears
// once, tagged EXACT.
func (s *Searcher) Search(query Query, catalog []*models.TechMessageRecord) ([]*models.SearchMatch, error) {
	text := strings.TrimSpace(query.Text)
	if len([]rune(text)) < MinSearchTextLength {
		return nil, ErrSearchTextTooShort
	}

	mode := query.Mode
	if mode == "" {
		mode = models.MatchModeBoth
	}
	if !mode.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMatchMode, query.Mode)
	}

	var matches []*models.SearchMatch
	seen := make(map[string]bool)

	if mode == models.MatchModeExact || mode == models.MatchModeBoth {
		for _, hit := range s.matcher.Match(text, catalog) {
			matches = append(matches, &models.SearchMatch{
				Record:             hit.Record,
				MatchType:          models.MatchTypeExact,
				MatchScore:         1.0,
				MatchedText:        hit.MatchedText,
				ExtractedVariables: hit.Variables,
			})
			seen[hit.Record.ID] = true
		}
	}

	if mode == models.MatchModeFuzzy || mode == models.MatchModeBoth {
		keywords := Tokenize(text)
		for _, scored := range s.ranker.Rank(keywords, catalog) {
			// Exact result for the same record wins the dedupe.
			if seen[scored.Record.ID] {
				continue
			}
			matches = append(matches, &models.SearchMatch{
				Record:     scored.Record,
				MatchType:  models.MatchTypeFuzzy,
				MatchScore: scored.Score,
			})
		}
	}

	for _, match := range matches {
		match.RecommendedAction = SelectTier(match.Record.ActionTiers, query.OccurrenceCount)
		match.AllActionTiers = match.Record.ActionTiers
	}

	return matches, nil
}

