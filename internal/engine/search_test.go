package engine_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fleetdesk/fleetdesk/internal/engine"
	"github.com/fleetdesk/fleetdesk/internal/models"
)

func timeoutCatalog() []*models.TechMessageRecord {
	record := catalogRecord("Database", models.SeverityHigh, "connection timeout", "db connectivity issues")
	record.ActionTiers = []models.ActionTier{
		{OccurrenceMin: 1, OccurrenceMax: intPtr(5), ActionText: "check server", Priority: 1},
		{OccurrenceMin: 6, OccurrenceMax: nil, ActionText: "escalate", Priority: 2},
	}
	return []*models.TechMessageRecord{record}
}

func TestSearch_ExactMatchWithRecommendation(t *testing.T) {
	searcher := engine.NewSearcher()

	matches, err := searcher.Search(engine.Query{
		Text:            "connection timeout error on db1",
		OccurrenceCount: intPtr(7),
	}, timeoutCatalog())

	assert.NoError(t, err)
	assert.Len(t, matches, 1)
	assert.Equal(t, models.MatchTypeExact, matches[0].MatchType)
	assert.Equal(t, 1.0, matches[0].MatchScore)
	assert.Equal(t, "connection timeout", matches[0].MatchedText)
	assert.NotNil(t, matches[0].RecommendedAction)
	assert.Equal(t, "escalate", matches[0].RecommendedAction.ActionText)
	assert.Len(t, matches[0].AllActionTiers, 2, "Full tier list always attached for display")
}

func TestSearch_RejectsShortText(t *testing.T) {
	searcher := engine.NewSearcher()

	_, err := searcher.Search(engine.Query{
		Text: "db",
		Mode: models.MatchModeFuzzy,
	}, timeoutCatalog())

	assert.ErrorIs(t, err, engine.ErrSearchTextTooShort,
		"Text under 3 trimmed characters is a client error regardless of mode")

	_, err = searcher.Search(engine.Query{Text: "  ab   "}, timeoutCatalog())
	assert.ErrorIs(t, err, engine.ErrSearchTextTooShort)
}

func TestSearch_RejectsUnknownMode(t *testing.T) {
	searcher := engine.NewSearcher()

	_, err := searcher.Search(engine.Query{
		Text: "connection timeout",
		Mode: models.MatchMode("REGEX"),
	}, timeoutCatalog())

	assert.ErrorIs(t, err, engine.ErrInvalidMatchMode)
}

func TestSearch_NoMatchesIsNotAnError(t *testing.T) {
	searcher := engine.NewSearcher()

	matches, err := searcher.Search(engine.Query{
		Text: "nothing matches this anywhere",
	}, timeoutCatalog())

	assert.NoError(t, err)
	assert.Empty(t, matches)
}

func TestSearch_EmptyCatalogIsNotAnError(t *testing.T) {
	searcher := engine.NewSearcher()

	matches, err := searcher.Search(engine.Query{Text: "connection timeout"}, nil)

	assert.NoError(t, err)
	assert.Empty(t, matches)
}

func TestSearch_DedupeKeepsExactEntry(t *testing.T) {
	// "connection timeout" hits the record both ways in BOTH mode: the
	// regex matches and both keywords are pattern substrings.
	catalog := timeoutCatalog()
	searcher := engine.NewSearcher()

	matches, err := searcher.Search(engine.Query{Text: "connection timeout"}, catalog)

	assert.NoError(t, err)
	assert.Len(t, matches, 1, "Same record from both paths must appear once")
	assert.Equal(t, models.MatchTypeExact, matches[0].MatchType)
	assert.Equal(t, 1.0, matches[0].MatchScore)
}

func TestSearch_ExactModeSkipsFuzzy(t *testing.T) {
	catalog := timeoutCatalog()
	searcher := engine.NewSearcher()

	matches, err := searcher.Search(engine.Query{
		Text: "database",
		Mode: models.MatchModeExact,
	}, catalog)

	assert.NoError(t, err)
	assert.Empty(t, matches, "EXACT mode must not fall back to keyword matching")
}

func TestSearch_FuzzyModeSkipsPatterns(t *testing.T) {
	catalog := timeoutCatalog()
	searcher := engine.NewSearcher()

	matches, err := searcher.Search(engine.Query{
		Text: "connection timeout",
		Mode: models.MatchModeFuzzy,
	}, catalog)

	assert.NoError(t, err)
	assert.Len(t, matches, 1)
	assert.Equal(t, models.MatchTypeFuzzy, matches[0].MatchType)
	assert.Less(t, matches[0].MatchScore, 1.0)
	assert.Empty(t, matches[0].MatchedText)
}

func TestSearch_ExactResultsOrderBeforeFuzzy(t *testing.T) {
	exactHit := catalogRecord("Storage", models.SeverityLow, "disk failure", "")
	fuzzyHit := catalogRecord("disk", models.SeverityCritical, "unrelated pattern", "failure events on disks")
	catalog := []*models.TechMessageRecord{fuzzyHit, exactHit}

	searcher := engine.NewSearcher()
	matches, err := searcher.Search(engine.Query{Text: "disk failure"}, catalog)

	assert.NoError(t, err)
	assert.Len(t, matches, 2)
	assert.Equal(t, models.MatchTypeExact, matches[0].MatchType)
	assert.Equal(t, exactHit.ID, matches[0].Record.ID)
	assert.Equal(t, models.MatchTypeFuzzy, matches[1].MatchType)
}

func TestSearch_NoRecommendationWithoutCount(t *testing.T) {
	searcher := engine.NewSearcher()

	matches, err := searcher.Search(engine.Query{Text: "connection timeout"}, timeoutCatalog())

	assert.NoError(t, err)
	assert.Len(t, matches, 1)
	assert.Nil(t, matches[0].RecommendedAction)
	assert.Len(t, matches[0].AllActionTiers, 2)
}

func TestSearch_IdenticalQueriesReturnIdenticalResults(t *testing.T) {
	catalog := []*models.TechMessageRecord{
		catalogRecord("network", models.SeverityLow, "p-one", ""),
		catalogRecord("network switch", models.SeverityLow, "p-two", ""),
		catalogRecord("network router", models.SeverityHigh, "p-three", ""),
	}
	searcher := engine.NewSearcher()

	first, err := searcher.Search(engine.Query{Text: "network"}, catalog)
	assert.NoError(t, err)

	for i := 0; i < 5; i++ {
		again, err := searcher.Search(engine.Query{Text: "network"}, catalog)
		assert.NoError(t, err)
		assert.Equal(t, len(first), len(again))
		for j := range first {
			assert.Equal(t, first[j].Record.ID, again[j].Record.ID, "Result order must be stable")
			assert.Equal(t, first[j].MatchScore, again[j].MatchScore)
		}
	}
}
