package domain

import "time"

// BidStatus enumerates lifecycle states for auction bids.
type BidStatus string

const (
	BidStatusPending  BidStatus = "PENDING"
	BidStatusAccepted BidStatus = "ACCEPTED"
	BidStatusRejected BidStatus = "REJECTED"
)

// Bid is a sealed offer submitted while a case is in open bidding.
// Bids are never deleted; losing bids are moved to REJECTED when a
// winner is selected so the audit trail stays complete.
type Bid struct {
	ID                 string
	CaseID             string
	BidderID           string
	BidderName         string
	AmountCents        int64
	ProposedFeePercent float64
	EstimatedDuration  string
	Notes              string
	Status             BidStatus
	SubmittedAt        time.Time
}
