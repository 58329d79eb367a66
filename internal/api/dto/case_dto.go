package dto

import (
	"time"

	"github.com/spec-kit/case-routing-service/internal/domain"
)

// CreateCaseRequest payload.
type CreateCaseRequest struct {
	Title        string                `json:"title"`
	Description  string                `json:"description"`
	PracticeArea string                `json:"practice_area"`
	Complexity   domain.CaseComplexity `json:"complexity"`
	AmountCents  int64                 `json:"amount_cents"`
}

// CaseSummary response.
type CaseSummary struct {
	ID             string                `json:"id"`
	Title          string                `json:"title"`
	PracticeArea   string                `json:"practice_area"`
	Complexity     domain.CaseComplexity `json:"complexity"`
	AmountCents    int64                 `json:"amount_cents"`
	Status         domain.CaseStatus     `json:"status"`
	International  bool                  `json:"international"`
	ExclusiveUntil *time.Time            `json:"exclusive_until,omitempty"`
	CreatedAt      time.Time             `json:"created_at"`
}

// CaseDetailResponse provides full case info.
type CaseDetailResponse struct {
	ID             string                `json:"id"`
	Title          string                `json:"title"`
	Description    string                `json:"description"`
	PracticeArea   string                `json:"practice_area"`
	Complexity     domain.CaseComplexity `json:"complexity"`
	AmountCents    int64                 `json:"amount_cents"`
	Status         domain.CaseStatus     `json:"status"`
	International  bool                  `json:"international"`
	ExclusiveUntil *time.Time            `json:"exclusive_until,omitempty"`
	CreatedAt      time.Time             `json:"created_at"`
	UpdatedAt      time.Time             `json:"updated_at"`
	ClosedAt       *time.Time            `json:"closed_at,omitempty"`
}
