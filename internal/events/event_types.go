package events

import (
	"time"

	"github.com/spec-kit/case-routing-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventCaseClassified          EventType = "case_classified"
	EventCaseRoutedInternational EventType = "case_routed_international"
	EventPriorityResponse        EventType = "priority_response_recorded"
	EventPanelResponse           EventType = "panel_response_recorded"
	EventAuctionOpened           EventType = "auction_opened"
	EventBidReceived             EventType = "bid_received"
	EventAuctionWinnerSelected   EventType = "auction_winner_selected"
	EventAuctionExpired          EventType = "auction_expired"
)

// Actor encapsulates actor metadata for an event. System-initiated events
// (lazy expiry, sweeps) carry neither id nor tier.
type Actor struct {
	ID   *string            `json:"id,omitempty"`
	Tier *domain.AccessTier `json:"tier,omitempty"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	CaseID    string      `json:"case_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// CaseClassifiedPayload payload.
type CaseClassifiedPayload struct {
	Complexity     domain.CaseComplexity `json:"complexity"`
	AmountCents    int64                 `json:"amount_cents"`
	HighValue      bool                  `json:"high_value"`
	ExclusiveUntil *time.Time            `json:"exclusive_until,omitempty"`
}

// CaseRoutedPayload payload.
type CaseRoutedPayload struct {
	PriorityAssigneeID string   `json:"priority_assignee_id"`
	PanelSize          int      `json:"panel_size"`
	CountriesInvolved  []string `json:"countries_involved"`
}

// PriorityResponsePayload payload.
type PriorityResponsePayload struct {
	AssigneeID string                 `json:"assignee_id"`
	Response   domain.HandlerResponse `json:"response"`
	NextStage  domain.FunnelStage     `json:"next_stage"`
}

// PanelResponsePayload payload.
type PanelResponsePayload struct {
	MemberID     string               `json:"member_id"`
	Decision     domain.PanelDecision `json:"decision"`
	PendingLeft  int                  `json:"pending_left"`
	CurrentStage domain.FunnelStage   `json:"current_stage"`
}

// AuctionOpenedPayload payload.
type AuctionOpenedPayload struct {
	EndsAt time.Time `json:"ends_at"`
}

// BidReceivedPayload payload.
type BidReceivedPayload struct {
	BidID       string `json:"bid_id"`
	BidderID    string `json:"bidder_id"`
	AmountCents int64  `json:"amount_cents"`
}

// AuctionWinnerSelectedPayload payload.
type AuctionWinnerSelectedPayload struct {
	BidID         string `json:"bid_id"`
	BidderID      string `json:"bidder_id"`
	AmountCents   int64  `json:"amount_cents"`
	RejectedCount int    `json:"rejected_count"`
}

// AuctionExpiredPayload payload.
type AuctionExpiredPayload struct {
	EndedAt  time.Time `json:"ended_at"`
	BidCount int       `json:"bid_count"`
}
