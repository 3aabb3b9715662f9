package engine_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fleetdesk/fleetdesk/internal/engine"
	"github.com/fleetdesk/fleetdesk/internal/models"
)

func TestTokenize_CapsAtThreeKeywords(t *testing.T) {
	keywords := engine.Tokenize("  alpha   beta gamma delta epsilon ")

	assert.Equal(t, []string{"alpha", "beta", "gamma"}, keywords)
}

func TestTokenize_DropsEmpties(t *testing.T) {
	assert.Empty(t, engine.Tokenize("   "))
	assert.Equal(t, []string{"alpha"}, engine.Tokenize("\talpha\n"))
}

func TestFuzzyRanker_AllKeywordsMustMatch(t *testing.T) {
	ranker := engine.NewFuzzyRanker()
	record := catalogRecord("alpha", models.SeverityLow, "some pattern", "a description")

	scored := ranker.Rank([]string{"alpha", "zzz-no-such-token"},
		[]*models.TechMessageRecord{record})

	assert.Empty(t, scored, "AND semantics: one unmatched keyword disqualifies the record")
}

func TestFuzzyRanker_CategoryExactOutweighsSubstring(t *testing.T) {
	policy := engine.DefaultScoringPolicy()
	exact := catalogRecord("database", models.SeverityLow, "p1", "")
	substring := catalogRecord("database cluster", models.SeverityLow, "p2", "")

	ranker := engine.NewFuzzyRanker()
	scored := ranker.Rank([]string{"database"},
		[]*models.TechMessageRecord{substring, exact})

	assert.Len(t, scored, 2)
	assert.Equal(t, exact.ID, scored[0].Record.ID, "Exact category equality should rank first")
	assert.InDelta(t, policy.Weights.CategoryExact+policy.SeverityBonus[models.SeverityLow],
		scored[0].Score, 1e-9)
	assert.InDelta(t, policy.Weights.CategorySubstring+policy.SeverityBonus[models.SeverityLow],
		scored[1].Score, 1e-9)
}

func TestFuzzyRanker_BestFieldOnlyCountsPerKeyword(t *testing.T) {
	// Keyword hits category substring (0.3) and description substring
	// (0.2); only the higher weight may count.
	record := catalogRecord("database cluster", models.SeverityLow, "p", "database notes")

	ranker := engine.NewFuzzyRanker()
	scored := ranker.Rank([]string{"database"}, []*models.TechMessageRecord{record})

	policy := engine.DefaultScoringPolicy()
	assert.Len(t, scored, 1)
	assert.InDelta(t, policy.Weights.CategorySubstring+policy.SeverityBonus[models.SeverityLow],
		scored[0].Score, 1e-9)
}

func TestFuzzyRanker_MatchingIsCaseInsensitive(t *testing.T) {
	record := catalogRecord("Database", models.SeverityLow, "Connection Timeout", "")

	ranker := engine.NewFuzzyRanker()
	scored := ranker.Rank([]string{"DATABASE", "timeout"}, []*models.TechMessageRecord{record})

	assert.Len(t, scored, 1)
}

func TestFuzzyRanker_ScoreCeilingHoldsWithCriticalSeverity(t *testing.T) {
	// Three exact category hits plus the CRITICAL bonus would sum to
	// 1.6 unclamped; the ceiling keeps fuzzy below the exact 1.0.
	record := catalogRecord("failover", models.SeverityCritical, "failover", "failover")

	ranker := engine.NewFuzzyRanker()
	scored := ranker.Rank([]string{"failover", "failover", "failover"},
		[]*models.TechMessageRecord{record})

	assert.Len(t, scored, 1)
	assert.InDelta(t, 0.9, scored[0].Score, 1e-9, "Fuzzy score must clamp at 0.9")
	assert.Less(t, scored[0].Score, 1.0)
}

func TestFuzzyRanker_SeverityBonusBreaksTies(t *testing.T) {
	low := catalogRecord("network", models.SeverityLow, "p1", "")
	critical := catalogRecord("network", models.SeverityCritical, "p2", "")

	ranker := engine.NewFuzzyRanker()
	scored := ranker.Rank([]string{"network"}, []*models.TechMessageRecord{low, critical})

	assert.Len(t, scored, 2)
	assert.Equal(t, critical.ID, scored[0].Record.ID)
}

func TestFuzzyRanker_EqualScoresKeepCatalogOrder(t *testing.T) {
	first := catalogRecord("network", models.SeverityLow, "p1", "")
	second := catalogRecord("network", models.SeverityLow, "p2", "")

	ranker := engine.NewFuzzyRanker()
	scored := ranker.Rank([]string{"network"}, []*models.TechMessageRecord{first, second})

	assert.Len(t, scored, 2)
	assert.Equal(t, first.ID, scored[0].Record.ID)
	assert.Equal(t, second.ID, scored[1].Record.ID)
}

func TestFuzzyRanker_PatternSubstringQualifies(t *testing.T) {
	record := catalogRecord("Database", models.SeverityLow, "connection timeout", "")

	ranker := engine.NewFuzzyRanker()
	scored := ranker.Rank([]string{"timeout"}, []*models.TechMessageRecord{record})

	policy := engine.DefaultScoringPolicy()
	assert.Len(t, scored, 1)
	assert.InDelta(t, policy.Weights.PatternSubstring+policy.SeverityBonus[models.SeverityLow],
		scored[0].Score, 1e-9)
}
