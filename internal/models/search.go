package models

// MatchMode selects which search paths run for a query.
type MatchMode string

const (
	MatchModeExact MatchMode = "EXACT"
	MatchModeFuzzy MatchMode = "FUZZY"
	MatchModeBoth  MatchMode = "BOTH"
)

func (m MatchMode) Valid() bool {
	switch m {
	case MatchModeExact, MatchModeFuzzy, MatchModeBoth:
		return true
	}
	return false
}

// MatchType tags how a result was found.
type MatchType string

const (
	MatchTypeExact MatchType = "EXACT"
	MatchTypeFuzzy MatchType = "FUZZY"
)

// SearchMatch is one transient search result. It is produced fresh per
// query and never persisted. Exact matches score exactly 1.0; fuzzy
// scores stay strictly below 1.0 so exact results always rank first.
type SearchMatch struct {
	Record             *TechMessageRecord `json:"record"`
	MatchType          MatchType          `json:"matchType"`
	MatchScore         float64            `json:"matchScore"`
	MatchedText        string             `json:"matchedText,omitempty"`
	ExtractedVariables map[string]string  `json:"extractedVariables,omitempty"`
	RecommendedAction  *ActionTier        `json:"recommendedAction,omitempty"`
	AllActionTiers     []ActionTier       `json:"allActionTiers"`
}

// SearchRequest is the wire body of POST /api/tech-messages/search.
type SearchRequest struct {
	SearchText      string    `json:"searchText"`
	OccurrenceCount *int      `json:"occurrenceCount,omitempty"`
	MatchMode       MatchMode `json:"matchMode,omitempty"`
}

// SearchResponse distinguishes "no matches" from an error: an empty
// match list is a normal outcome and reported explicitly.
type SearchResponse struct {
	Matches   []*SearchMatch `json:"matches"`
	NoMatches bool           `json:"noMatches"`
}
