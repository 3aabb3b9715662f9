package engine_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fleetdesk/fleetdesk/internal/engine"
	"github.com/fleetdesk/fleetdesk/internal/models"
)

func intPtr(v int) *int {
	return &v
}

func TestSelectTier_NoCountGivesNoRecommendation(t *testing.T) {
	tiers := []models.ActionTier{
		{OccurrenceMin: 1, OccurrenceMax: intPtr(5), ActionText: "check server", Priority: 1},
	}

	assert.Nil(t, engine.SelectTier(tiers, nil), "Absent count should yield no recommendation")
}

func TestSelectTier_ZeroCountQualifiesNothing(t *testing.T) {
	tiers := []models.ActionTier{
		{OccurrenceMin: 1, OccurrenceMax: intPtr(5), ActionText: "check server", Priority: 1},
	}

	assert.Nil(t, engine.SelectTier(tiers, intPtr(0)), "Count below every min should yield nothing")
}

func TestSelectTier_SingleQualifyingTier(t *testing.T) {
	tiers := []models.ActionTier{
		{OccurrenceMin: 1, OccurrenceMax: intPtr(5), ActionText: "check server", Priority: 1},
		{OccurrenceMin: 6, OccurrenceMax: nil, ActionText: "escalate", Priority: 2},
	}

	tier := engine.SelectTier(tiers, intPtr(3))

	assert.NotNil(t, tier)
	assert.Equal(t, "check server", tier.ActionText)
}

func TestSelectTier_UnboundedUpperRange(t *testing.T) {
	tiers := []models.ActionTier{
		{OccurrenceMin: 1, OccurrenceMax: intPtr(5), ActionText: "check server", Priority: 1},
		{OccurrenceMin: 6, OccurrenceMax: nil, ActionText: "escalate", Priority: 2},
	}

	tier := engine.SelectTier(tiers, intPtr(7))

	assert.NotNil(t, tier)
	assert.Equal(t, "escalate", tier.ActionText, "Nil max means unbounded above")
}

func TestSelectTier_OverlapResolvedByPriority(t *testing.T) {
	tiers := []models.ActionTier{
		{OccurrenceMin: 1, OccurrenceMax: intPtr(5), ActionText: "low priority", Priority: 1},
		{OccurrenceMin: 3, OccurrenceMax: intPtr(10), ActionText: "high priority", Priority: 5},
	}

	tier := engine.SelectTier(tiers, intPtr(4))

	assert.NotNil(t, tier)
	assert.Equal(t, "high priority", tier.ActionText, "Overlap should resolve to the highest priority")
}

func TestSelectTier_PriorityTieResolvedBySmallestMin(t *testing.T) {
	tiers := []models.ActionTier{
		{OccurrenceMin: 3, OccurrenceMax: intPtr(10), ActionText: "wider", Priority: 2},
		{OccurrenceMin: 1, OccurrenceMax: intPtr(10), ActionText: "smallest min", Priority: 2},
	}

	tier := engine.SelectTier(tiers, intPtr(4))

	assert.NotNil(t, tier)
	assert.Equal(t, "smallest min", tier.ActionText)
}

func TestSelectTier_FullTieKeepsCreationOrder(t *testing.T) {
	tiers := []models.ActionTier{
		{OccurrenceMin: 1, OccurrenceMax: intPtr(10), ActionText: "first created", Priority: 2},
		{OccurrenceMin: 1, OccurrenceMax: intPtr(10), ActionText: "second created", Priority: 2},
	}

	for i := 0; i < 10; i++ {
		tier := engine.SelectTier(tiers, intPtr(4))
		assert.NotNil(t, tier)
		assert.Equal(t, "first created", tier.ActionText,
			"Identical keys must deterministically keep the earliest tier")
	}
}

func TestSelectTier_NoQualifyingTier(t *testing.T) {
	tiers := []models.ActionTier{
		{OccurrenceMin: 10, OccurrenceMax: intPtr(20), ActionText: "escalate", Priority: 1},
	}

	assert.Nil(t, engine.SelectTier(tiers, intPtr(5)))
}
