package routing

import (
	"time"

	"github.com/spec-kit/case-routing-service/internal/domain"
)

// Classification is the outcome of priority classification at intake.
type Classification struct {
	HighValue      bool
	ExclusiveUntil *time.Time
}

// Classifier decides whether a case is high-value and, if so, the end of
// the elite-only exclusivity window. Pure and deterministic given a clock.
type Classifier struct {
	budgetThresholdCents int64
	exclusivityWindow    time.Duration
}

// NewClassifier builds a classifier from the configured constants.
func NewClassifier(budgetThresholdCents int64, exclusivityWindow time.Duration) Classifier {
	return Classifier{
		budgetThresholdCents: budgetThresholdCents,
		exclusivityWindow:    exclusivityWindow,
	}
}

// Classify computes the high-value flag and exclusivity window for a case.
// A case is high-value when complexity is HIGH or the estimated budget
// strictly exceeds the threshold; a budget exactly at the threshold does
// not qualify on its own.
func (c Classifier) Classify(complexity domain.CaseComplexity, amountCents int64, now time.Time) Classification {
	highValue := complexity == domain.CaseComplexityHigh || amountCents > c.budgetThresholdCents
	if !highValue {
		return Classification{}
	}
	until := now.Add(c.exclusivityWindow)
	return Classification{HighValue: true, ExclusiveUntil: &until}
}
