package domain

import "time"

// CaseStatus enumerates lifecycle states for legal cases.
type CaseStatus string

const (
	CaseStatusOpen     CaseStatus = "OPEN"
	CaseStatusAssigned CaseStatus = "ASSIGNED"
	CaseStatusClosed   CaseStatus = "CLOSED"
)

// CaseComplexity is the ordinal complexity classification assigned at intake.
type CaseComplexity string

const (
	CaseComplexityLow    CaseComplexity = "LOW"
	CaseComplexityMedium CaseComplexity = "MEDIUM"
	CaseComplexityHigh   CaseComplexity = "HIGH"
)

// ValidComplexity reports whether the value is a known complexity level.
func ValidComplexity(c CaseComplexity) bool {
	switch c {
	case CaseComplexityLow, CaseComplexityMedium, CaseComplexityHigh:
		return true
	default:
		return false
	}
}

// Case is the aggregate for a unit of legal work awaiting allocation.
// ExclusiveUntil, when set, reserves the case for elite-tier viewers
// until that instant. Version is bumped on every persisted mutation.
type Case struct {
	ID             string
	Title          string
	Description    string
	PracticeArea   string
	Complexity     CaseComplexity
	AmountCents    int64
	Status         CaseStatus
	International  bool
	ExclusiveUntil *time.Time
	Version        int
	CreatedAt      time.Time
	UpdatedAt      time.Time
	ClosedAt       *time.Time
}
