package models

import (
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
)

// Severity indicates how urgent a tech message is. It is used for
// display and ranking bonuses only, never for matching.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

func (s Severity) Valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

const (
	MaxCategoryLength    = 100
	MaxDescriptionLength = 500
	MaxActionTextLength  = 500
)

var (
	ErrCategoryRequired = errors.New("models: category is required")
	ErrInvalidSeverity  = errors.New("models: invalid severity")
	ErrInvalidPattern   = errors.New("models: pattern does not compile")
	ErrInvalidTier      = errors.New("models: invalid action tier")
)

// ActionTier is one row of a frequency-tiered remediation table. A tier
// applies when the occurrence count falls inside [OccurrenceMin,
// OccurrenceMax]; a nil OccurrenceMax means unbounded above. Tiers are
// owned by exactly one TechMessageRecord and keep their creation order.
type ActionTier struct {
	ID            string `json:"id"`
	OccurrenceMin int    `json:"occurrence_min"`
	OccurrenceMax *int   `json:"occurrence_max,omitempty"`
	ActionText    string `json:"action_text"`
	Priority      int    `json:"priority"`
}

func (t *ActionTier) Validate() error {
	if t.OccurrenceMin < 1 {
		return fmt.Errorf("%w: occurrence_min must be >= 1", ErrInvalidTier)
	}
	if t.OccurrenceMax != nil && *t.OccurrenceMax < t.OccurrenceMin {
		return fmt.Errorf("%w: occurrence_max must be >= occurrence_min", ErrInvalidTier)
	}
	if t.ActionText == "" {
		return fmt.Errorf("%w: action_text is required", ErrInvalidTier)
	}
	if len(t.ActionText) > MaxActionTextLength {
		return fmt.Errorf("%w: action_text exceeds %d characters", ErrInvalidTier, MaxActionTextLength)
	}
	if t.Priority < 1 {
		return fmt.Errorf("%w: priority must be >= 1", ErrInvalidTier)
	}
	return nil
}

// TechMessageRecord is one catalog entry of the knowledge base: a regex
// pattern that recognises an operational message plus its tiered
// remediation table. The search path reads records and never mutates them.
type TechMessageRecord struct {
	ID          string       `json:"id"`
	Category    string       `json:"category"`
	Severity    Severity     `json:"severity"`
	Pattern     string       `json:"pattern"`
	Description string       `json:"description,omitempty"`
	ActionTiers []ActionTier `json:"action_tiers"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

func NewTechMessageRecord(category string, severity Severity, pattern string) *TechMessageRecord {
	now := time.Now().UTC()
	return &TechMessageRecord{
		ID:        uuid.NewString(),
		Category:  category,
		Severity:  severity,
		Pattern:   pattern,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Validate enforces the write-time contract: a record with a pattern
// that does not compile is rejected at the edit, so the search path can
// treat stored patterns as compilable.
func (r *TechMessageRecord) Validate() error {
	if r.Category == "" {
		return ErrCategoryRequired
	}
	if len(r.Category) > MaxCategoryLength {
		return fmt.Errorf("%w: exceeds %d characters", ErrCategoryRequired, MaxCategoryLength)
	}
	if !r.Severity.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidSeverity, r.Severity)
	}
	if _, err := regexp.Compile(r.Pattern); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPattern, err)
	}
	if len(r.Description) > MaxDescriptionLength {
		return fmt.Errorf("models: description exceeds %d characters", MaxDescriptionLength)
	}
	for i := range r.ActionTiers {
		if err := r.ActionTiers[i].Validate(); err != nil {
			return fmt.Errorf("tier %d: %w", i+1, err)
		}
	}
	return nil
}
