package dto

import (
	"time"

	"github.com/spec-kit/case-routing-service/internal/domain"
)

// RouteInternationalRequest payload.
type RouteInternationalRequest struct {
	CountriesInvolved  []string `json:"countries_involved"`
	LanguagesRequired  []string `json:"languages_required"`
	PriorityAssigneeID string   `json:"priority_assignee_id"`
	PanelMemberIDs     []string `json:"panel_member_ids"`
}

// HandlerResponseRequest payload for priority and panel responses.
type HandlerResponseRequest struct {
	MemberID string                 `json:"member_id,omitempty"`
	Response domain.HandlerResponse `json:"response"`
	Notes    string                 `json:"notes,omitempty"`
}

// PanelEntryResponse represents one panel slot.
type PanelEntryResponse struct {
	MemberID    string               `json:"member_id"`
	Position    int                  `json:"position"`
	Decision    domain.PanelDecision `json:"decision"`
	Notes       string               `json:"notes,omitempty"`
	RespondedAt *time.Time           `json:"responded_at,omitempty"`
}

// FunnelStateResponse is the read-only funnel projection.
type FunnelStateResponse struct {
	CaseID             string                  `json:"case_id"`
	CountriesInvolved  []string                `json:"countries_involved"`
	LanguagesRequired  []string                `json:"languages_required"`
	FunnelStage        domain.FunnelStage      `json:"funnel_stage"`
	PriorityAssigneeID string                  `json:"priority_assignee_id"`
	PriorityResponse   *domain.HandlerResponse `json:"priority_response,omitempty"`
	PriorityNotes      string                  `json:"priority_notes,omitempty"`
	Panel              []PanelEntryResponse    `json:"panel"`
	FinalHandlerID     *string                 `json:"final_handler_id,omitempty"`
	AuctionEndsAt      *time.Time              `json:"auction_ends_at,omitempty"`
	CreatedAt          time.Time               `json:"created_at"`
	UpdatedAt          time.Time               `json:"updated_at"`
}
