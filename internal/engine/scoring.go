package engine

import (
	"strings"

	"github.com/fleetdesk/fleetdesk/internal/models"
)

// FieldWeights is the per-field contribution table for fuzzy scoring.
// Only the single best-matching field counts for each keyword.
type FieldWeights struct {
	CategoryExact        float64
	CategorySubstring    float64
	DescriptionSubstring float64
	PatternSubstring     float64
}

// ScoringPolicy turns (keywords, record) into a fuzzy score. The policy
// is a value so weightings can be tuned without touching the ranking
// control flow.
type ScoringPolicy struct {
	Weights       FieldWeights
	SeverityBonus map[models.Severity]float64

	// MaxScore caps the final score. Keeping it below 1.0 guarantees
	// fuzzy results never outrank an exact pattern match.
	MaxScore float64
}

func DefaultScoringPolicy() ScoringPolicy {
	return ScoringPolicy{
		Weights: FieldWeights{
			CategoryExact:        0.5,
			CategorySubstring:    0.3,
			DescriptionSubstring: 0.2,
			PatternSubstring:     0.2,
		},
		SeverityBonus: map[models.Severity]float64{
			models.SeverityCritical: 0.1,
			models.SeverityHigh:     0.075,
			models.SeverityMedium:   0.05,
			models.SeverityLow:      0.025,
		},
		MaxScore: 0.9,
	}
}

// Score returns the record's fuzzy score for the keywords, or false if
// the record does not qualify. Every keyword must individually match at
// least one field (AND semantics); partial keyword overlap is not a
// match.
func (p ScoringPolicy) Score(keywords []string, record *models.TechMessageRecord) (float64, bool) {
	if len(keywords) == 0 {
		return 0, false
	}

	total := 0.0
	for _, keyword := range keywords {
		weight, ok := p.keywordWeight(keyword, record)
		if !ok {
			return 0, false
		}
		total += weight
	}

	total += p.SeverityBonus[record.Severity]
	if total > p.MaxScore {
		total = p.MaxScore
	}

	return total, true
}

// keywordWeight returns the highest weight among the fields the keyword
// matches, case-insensitively.
func (p ScoringPolicy) keywordWeight(keyword string, record *models.TechMessageRecord) (float64, bool) {
	kw := strings.ToLower(keyword)
	category := strings.ToLower(record.Category)

	best := 0.0
	matched := false

	if kw == category {
		best, matched = p.Weights.CategoryExact, true
	} else if strings.Contains(category, kw) {
		best, matched = p.Weights.CategorySubstring, true
	}

	if strings.Contains(strings.ToLower(record.Description), kw) {
		if !matched || p.Weights.DescriptionSubstring > best {
			best = p.Weights.DescriptionSubstring
		}
		matched = true
	}

	if strings.Contains(strings.ToLower(record.Pattern), kw) {
		if !matched || p.Weights.PatternSubstring > best {
			best = p.Weights.PatternSubstring
		}
		matched = true
	}

	return best, matched
}
