package engine

import "github.com/fleetdesk/fleetdesk/internal/models"

// SelectTier picks the single action tier that applies for the supplied
// occurrence count. A tier applies when occurrenceMin <= count and
// count <= occurrenceMax (nil max means unbounded above).
//
// When ranges overlap, the highest priority wins; equal priority falls
// back to the smallest occurrenceMin; if that still ties the earliest
// tier in creation order is kept, so identical input always yields the
// same tier.
//
// A nil count returns nil: callers display the full tier list instead.
func SelectTier(tiers []models.ActionTier, occurrenceCount *int) *models.ActionTier {
	if occurrenceCount == nil {
		return nil
	}
	count := *occurrenceCount

	var best *models.ActionTier
	for i := range tiers {
		tier := &tiers[i]
		if count < tier.OccurrenceMin {
			continue
		}
		if tier.OccurrenceMax != nil && count > *tier.OccurrenceMax {
			continue
		}
		if best == nil || betterTier(tier, best) {
			best = tier
		}
	}

	return best
}

// betterTier reports whether a strictly outranks b. Ties on every key
// return false, keeping the earlier tier.
func betterTier(a, b *models.ActionTier) bool {
	if a.Priority != b.Priority {
		return a.Priority > b.Priority
	}
	return a.OccurrenceMin < b.OccurrenceMin
}
