package engine

import (
	"sort"
	"strings"

	"github.com/fleetdesk/fleetdesk/internal/models"
)

// MaxKeywords bounds per-query cost: callers supplying more keywords
// only have the first MaxKeywords honoured.
const MaxKeywords = 3

// Tokenize splits free text into at most MaxKeywords trimmed keywords,
// dropping empties.
func Tokenize(text string) []string {
	fields := strings.Fields(strings.TrimSpace(text))
	if len(fields) > MaxKeywords {
		fields = fields[:MaxKeywords]
	}
	return fields
}

// ScoredRecord pairs a catalog record with its fuzzy score.
type ScoredRecord struct {
	Record *models.TechMessageRecord
	Score  float64
}

// FuzzyRanker scores catalog records against keywords using a
// field-weighted substring policy.
type FuzzyRanker struct {
	policy ScoringPolicy
}

func NewFuzzyRanker() *FuzzyRanker {
	return &FuzzyRanker{policy: DefaultScoringPolicy()}
}

func NewFuzzyRankerWithPolicy(policy ScoringPolicy) *FuzzyRanker {
	return &FuzzyRanker{policy: policy}
}

// Rank returns the qualifying records ordered by descending score.
// Equal scores keep catalog order, so identical queries against an
// unchanged catalog return identical orderings.
func (r *FuzzyRanker) Rank(keywords []string, catalog []*models.TechMessageRecord) []ScoredRecord {
	var scored []ScoredRecord
	for _, record := range catalog {
		score, ok := r.policy.Score(keywords, record)
		if !ok {
			continue
		}
		scored = append(scored, ScoredRecord{Record: record, Score: score})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	return scored
}
