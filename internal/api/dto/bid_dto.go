package dto

import (
	"time"

	"github.com/spec-kit/case-routing-service/internal/domain"
)

// SubmitBidRequest payload.
type SubmitBidRequest struct {
	BidderName         string  `json:"bidder_name"`
	AmountCents        int64   `json:"amount_cents"`
	ProposedFeePercent float64 `json:"proposed_fee_percent"`
	EstimatedDuration  string  `json:"estimated_duration"`
	Notes              string  `json:"notes,omitempty"`
}

// BidResponse represents a bid.
type BidResponse struct {
	ID                 string           `json:"id"`
	CaseID             string           `json:"case_id"`
	BidderID           string           `json:"bidder_id"`
	BidderName         string           `json:"bidder_name"`
	AmountCents        int64            `json:"amount_cents"`
	ProposedFeePercent float64          `json:"proposed_fee_percent"`
	EstimatedDuration  string           `json:"estimated_duration"`
	Notes              string           `json:"notes,omitempty"`
	Status             domain.BidStatus `json:"status"`
	SubmittedAt        time.Time        `json:"submitted_at"`
}
