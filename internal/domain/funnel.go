package domain

import "time"

// FunnelStage enumerates the allocation funnel states for an international case.
type FunnelStage string

const (
	StagePriorityPending  FunnelStage = "PRIORITY_PENDING"
	StagePriorityAccepted FunnelStage = "PRIORITY_ACCEPTED"
	StagePriorityDeclined FunnelStage = "PRIORITY_DECLINED"
	StagePanelPending     FunnelStage = "PANEL_PENDING"
	StagePanelExhausted   FunnelStage = "PANEL_EXHAUSTED"
	StageAuctionOpen      FunnelStage = "AUCTION_OPEN"
	StageAuctionClosed    FunnelStage = "AUCTION_CLOSED"
	StageResolved         FunnelStage = "RESOLVED"
)

// HandlerResponse is an accept/decline answer from a candidate handler.
type HandlerResponse string

const (
	ResponseAccepted HandlerResponse = "ACCEPTED"
	ResponseDeclined HandlerResponse = "DECLINED"
)

// ValidHandlerResponse reports whether the value is a known response.
func ValidHandlerResponse(r HandlerResponse) bool {
	return r == ResponseAccepted || r == ResponseDeclined
}

// PanelDecision is the recorded state of a single panel member's slot.
type PanelDecision string

const (
	PanelPending  PanelDecision = "PENDING"
	PanelAccepted PanelDecision = "ACCEPTED"
	PanelDeclined PanelDecision = "DECLINED"
)

// PanelEntry is one slot in the fixed, ordered candidate panel. Position is
// assigned once when the case is routed and never reordered afterwards.
type PanelEntry struct {
	MemberID    string
	Position    int
	Decision    PanelDecision
	Notes       string
	RespondedAt *time.Time
}

// InternationalCase carries the funnel state attached to a routed case.
// Exactly one funnel stage is active at a time; once RESOLVED no further
// transitions are permitted. Version is bumped on every persisted mutation.
type InternationalCase struct {
	CaseID             string
	CountriesInvolved  []string
	LanguagesRequired  []string
	FunnelStage        FunnelStage
	PriorityAssigneeID string
	PriorityResponse   *HandlerResponse
	PriorityNotes      string
	Panel              []PanelEntry
	FinalHandlerID     *string
	AuctionEndsAt      *time.Time
	Version            int
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// funnelTransitions encodes the legal stage graph. The funnel never skips
// stages and never reverts; intermediate stages (PRIORITY_ACCEPTED,
// PRIORITY_DECLINED, PANEL_EXHAUSTED, AUCTION_CLOSED) are passed through
// immediately by the services but remain legal persisted states.
var funnelTransitions = map[FunnelStage][]FunnelStage{
	StagePriorityPending:  {StagePriorityAccepted, StagePriorityDeclined},
	StagePriorityAccepted: {StageResolved},
	StagePriorityDeclined: {StagePanelPending},
	StagePanelPending:     {StageResolved, StagePanelExhausted},
	StagePanelExhausted:   {StageAuctionOpen},
	StageAuctionOpen:      {StageAuctionClosed},
	StageAuctionClosed:    {StageResolved},
	StageResolved:         {},
}

// CanTransition reports whether moving from the current stage to next is legal.
func (s FunnelStage) CanTransition(next FunnelStage) bool {
	for _, candidate := range funnelTransitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// PanelEntryFor returns the panel slot for the given member, if present.
func (ic *InternationalCase) PanelEntryFor(memberID string) *PanelEntry {
	for i := range ic.Panel {
		if ic.Panel[i].MemberID == memberID {
			return &ic.Panel[i]
		}
	}
	return nil
}

// AllPanelDeclined reports whether every panel slot is DECLINED.
func (ic *InternationalCase) AllPanelDeclined() bool {
	if len(ic.Panel) == 0 {
		return false
	}
	for i := range ic.Panel {
		if ic.Panel[i].Decision != PanelDeclined {
			return false
		}
	}
	return true
}

// PendingPanelCount returns the number of panel slots still PENDING.
func (ic *InternationalCase) PendingPanelCount() int {
	count := 0
	for i := range ic.Panel {
		if ic.Panel[i].Decision == PanelPending {
			count++
		}
	}
	return count
}
