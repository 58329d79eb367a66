package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/case-routing-service/internal/domain"
	"github.com/spec-kit/case-routing-service/internal/events"
	"github.com/spec-kit/case-routing-service/internal/repository"
	"github.com/spec-kit/case-routing-service/internal/routing"
	apperrors "github.com/spec-kit/case-routing-service/pkg/util"
)

// FunnelService sequences candidate handlers for international cases:
// priority assignee, then the fixed panel, then open bidding. All mutations
// for one case are serialized through the per-case lock.
type FunnelService struct {
	cases               repository.CaseRepository
	funnels             repository.FunnelRepository
	bids                repository.BidRepository
	locks               *caseLocks
	dispatcher          events.Dispatcher
	minInternationalAmt int64
	auctionDuration     time.Duration
	now                 func() time.Time
}

// FunnelDependencies bundles collaborators for the funnel service.
type FunnelDependencies struct {
	CaseRepo                    repository.CaseRepository
	FunnelRepo                  repository.FunnelRepository
	BidRepo                     repository.BidRepository
	Dispatcher                  events.Dispatcher
	MinInternationalAmountCents int64
	AuctionDuration             time.Duration
	Now                         func() time.Time
}

// RouteInternationalInput describes entry of a case into the funnel.
type RouteInternationalInput struct {
	CountriesInvolved  []string
	LanguagesRequired  []string
	PriorityAssigneeID string
	PanelMemberIDs     []string
}

// NewFunnelService constructs the service.
func NewFunnelService(deps FunnelDependencies) *FunnelService {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &FunnelService{
		cases:               deps.CaseRepo,
		funnels:             deps.FunnelRepo,
		bids:                deps.BidRepo,
		locks:               newCaseLocks(),
		dispatcher:          deps.Dispatcher,
		minInternationalAmt: deps.MinInternationalAmountCents,
		auctionDuration:     deps.AuctionDuration,
		now:                 now,
	}
}

// Locks exposes the per-case lock table so the auction service shares the
// same serialization point.
func (s *FunnelService) Locks() *caseLocks {
	return s.locks
}

// RouteInternational enters an eligible case into the allocation funnel at
// PRIORITY_PENDING. The panel roster is fixed here, in priority order, and
// every slot starts PENDING.
func (s *FunnelService) RouteInternational(ctx context.Context, actorID, caseID string, input RouteInternationalInput) (*domain.InternationalCase, error) {
	if len(input.CountriesInvolved) == 0 {
		return nil, apperrors.NewValidationError("countries_involved required", nil)
	}
	if strings.TrimSpace(input.PriorityAssigneeID) == "" {
		return nil, apperrors.NewValidationError("priority_assignee_id required", nil)
	}
	if len(input.PanelMemberIDs) == 0 {
		return nil, apperrors.NewValidationError("panel_member_ids required", nil)
	}
	seen := make(map[string]struct{}, len(input.PanelMemberIDs))
	for _, memberID := range input.PanelMemberIDs {
		if strings.TrimSpace(memberID) == "" {
			return nil, apperrors.NewValidationError("panel member ids must be non-empty", nil)
		}
		if _, dup := seen[memberID]; dup {
			return nil, apperrors.NewValidationError("panel member ids must be unique", map[string]any{"member_id": memberID})
		}
		seen[memberID] = struct{}{}
	}

	unlock := s.locks.lock(caseID)
	defer unlock()

	c, err := s.cases.GetByID(ctx, caseID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("case", map[string]any{"case_id": caseID})
		}
		return nil, apperrors.MapError(err)
	}
	if c.Status != domain.CaseStatusOpen {
		return nil, apperrors.NewStateConflict("case is not open", map[string]any{"status": c.Status})
	}
	if c.AmountCents < s.minInternationalAmt {
		return nil, apperrors.NewValidationError("case below international minimum amount", map[string]any{
			"amount_cents":  c.AmountCents,
			"minimum_cents": s.minInternationalAmt,
		})
	}
	if _, err := s.funnels.GetByCaseID(ctx, caseID); err == nil {
		return nil, apperrors.NewConflict("case already routed", map[string]any{"case_id": caseID})
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.MapError(err)
	}

	panel := make([]domain.PanelEntry, 0, len(input.PanelMemberIDs))
	for i, memberID := range input.PanelMemberIDs {
		panel = append(panel, domain.PanelEntry{
			MemberID: memberID,
			Position: i + 1,
			Decision: domain.PanelPending,
		})
	}

	ic := &domain.InternationalCase{
		CaseID:             caseID,
		CountriesInvolved:  input.CountriesInvolved,
		LanguagesRequired:  input.LanguagesRequired,
		FunnelStage:        domain.StagePriorityPending,
		PriorityAssigneeID: input.PriorityAssigneeID,
		Panel:              panel,
	}
	if err := s.funnels.Create(ctx, ic); err != nil {
		return nil, apperrors.MapError(err)
	}

	c.International = true
	if err := s.cases.Update(ctx, c); err != nil {
		return nil, s.mapRepoError(err, caseID)
	}

	s.publish(ctx, events.Event{
		Type:   events.EventCaseRoutedInternational,
		CaseID: caseID,
		Actor:  events.Actor{ID: &actorID},
		Payload: events.CaseRoutedPayload{
			PriorityAssigneeID: ic.PriorityAssigneeID,
			PanelSize:          len(ic.Panel),
			CountriesInvolved:  ic.CountriesInvolved,
		},
	})
	return ic, nil
}

// GetFunnelState returns the funnel projection, applying lazy auction
// expiry on behalf of the caller before it is returned.
func (s *FunnelService) GetFunnelState(ctx context.Context, caseID string) (*domain.InternationalCase, error) {
	unlock := s.locks.lock(caseID)
	defer unlock()

	ic, c, err := s.load(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if _, err := s.expireIfDue(ctx, ic, c); err != nil {
		return nil, err
	}
	return ic, nil
}

// RecordPriorityResponse records the priority assignee's accept or decline.
// Accept resolves the case with the assignee as final handler; decline
// activates the panel. Legal only while PRIORITY_PENDING.
func (s *FunnelService) RecordPriorityResponse(ctx context.Context, actorID, caseID string, response domain.HandlerResponse, notes string) (*domain.InternationalCase, error) {
	if !domain.ValidHandlerResponse(response) {
		return nil, apperrors.NewValidationError("response must be ACCEPTED or DECLINED", map[string]any{"response": response})
	}

	unlock := s.locks.lock(caseID)
	defer unlock()

	ic, c, err := s.load(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if actorID != "" && actorID != ic.PriorityAssigneeID {
		return nil, apperrors.NewForbidden("only the priority assignee may respond")
	}
	if ic.FunnelStage != domain.StagePriorityPending {
		if ic.PriorityResponse != nil && *ic.PriorityResponse == response {
			return nil, apperrors.NewConflict("priority response already recorded", map[string]any{"response": *ic.PriorityResponse})
		}
		return nil, apperrors.NewStateConflict("priority response not accepted in current stage", map[string]any{"stage": ic.FunnelStage})
	}

	recorded := response
	ic.PriorityResponse = &recorded
	ic.PriorityNotes = strings.TrimSpace(notes)

	if response == domain.ResponseAccepted {
		if err := s.advance(ic, domain.StagePriorityAccepted, domain.StageResolved); err != nil {
			return nil, err
		}
		assignee := ic.PriorityAssigneeID
		ic.FinalHandlerID = &assignee
		c.Status = domain.CaseStatusAssigned
	} else {
		if err := s.advance(ic, domain.StagePriorityDeclined, domain.StagePanelPending); err != nil {
			return nil, err
		}
	}

	if err := s.funnels.Update(ctx, ic); err != nil {
		return nil, s.mapRepoError(err, caseID)
	}
	if response == domain.ResponseAccepted {
		if err := s.cases.Update(ctx, c); err != nil {
			return nil, s.mapRepoError(err, caseID)
		}
	}

	s.publish(ctx, events.Event{
		Type:   events.EventPriorityResponse,
		CaseID: caseID,
		Actor:  events.Actor{ID: &ic.PriorityAssigneeID},
		Payload: events.PriorityResponsePayload{
			AssigneeID: ic.PriorityAssigneeID,
			Response:   response,
			NextStage:  ic.FunnelStage,
		},
	})
	return ic, nil
}

// RecordPanelResponse records one panel member's accept or decline. The
// first accept wins and resolves the case; once every member has declined
// the funnel opens the auction with its deadline fixed at now + duration.
func (s *FunnelService) RecordPanelResponse(ctx context.Context, caseID, memberID string, response domain.HandlerResponse, notes string) (*domain.InternationalCase, error) {
	if !domain.ValidHandlerResponse(response) {
		return nil, apperrors.NewValidationError("response must be ACCEPTED or DECLINED", map[string]any{"response": response})
	}

	unlock := s.locks.lock(caseID)
	defer unlock()

	ic, c, err := s.load(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if ic.FunnelStage == domain.StageResolved {
		return nil, apperrors.NewStateConflict("case already resolved", map[string]any{"stage": ic.FunnelStage})
	}
	if ic.FunnelStage != domain.StagePanelPending {
		return nil, apperrors.NewStateConflict("panel response not accepted in current stage", map[string]any{"stage": ic.FunnelStage})
	}

	entry := ic.PanelEntryFor(memberID)
	if entry == nil {
		return nil, apperrors.NewNotFound("panel member", map[string]any{"member_id": memberID})
	}
	if entry.Decision != domain.PanelPending {
		return nil, apperrors.NewConflict("panel response already recorded", map[string]any{
			"member_id": memberID,
			"decision":  entry.Decision,
		})
	}

	now := s.now()
	entry.Notes = strings.TrimSpace(notes)
	respondedAt := now
	entry.RespondedAt = &respondedAt

	if response == domain.ResponseAccepted {
		entry.Decision = domain.PanelAccepted
		if err := s.advance(ic, domain.StageResolved); err != nil {
			return nil, err
		}
		handler := memberID
		ic.FinalHandlerID = &handler
		c.Status = domain.CaseStatusAssigned
	} else {
		entry.Decision = domain.PanelDeclined
		if ic.AllPanelDeclined() {
			if err := s.advance(ic, domain.StagePanelExhausted, domain.StageAuctionOpen); err != nil {
				return nil, err
			}
			endsAt := now.Add(s.auctionDuration)
			ic.AuctionEndsAt = &endsAt
		}
	}

	if err := s.funnels.Update(ctx, ic); err != nil {
		return nil, s.mapRepoError(err, caseID)
	}
	if response == domain.ResponseAccepted {
		if err := s.cases.Update(ctx, c); err != nil {
			return nil, s.mapRepoError(err, caseID)
		}
	}

	s.publish(ctx, events.Event{
		Type:   events.EventPanelResponse,
		CaseID: caseID,
		Actor:  events.Actor{ID: &memberID},
		Payload: events.PanelResponsePayload{
			MemberID:     memberID,
			Decision:     entry.Decision,
			PendingLeft:  ic.PendingPanelCount(),
			CurrentStage: ic.FunnelStage,
		},
	})
	if ic.FunnelStage == domain.StageAuctionOpen {
		s.publish(ctx, events.Event{
			Type:    events.EventAuctionOpened,
			CaseID:  caseID,
			Payload: events.AuctionOpenedPayload{EndsAt: *ic.AuctionEndsAt},
		})
	}
	return ic, nil
}

// advance walks the stage chain validating each hop against the transition
// table, so illegal sequences fail loudly instead of writing bad state.
func (s *FunnelService) advance(ic *domain.InternationalCase, stages ...domain.FunnelStage) error {
	for _, next := range stages {
		if !ic.FunnelStage.CanTransition(next) {
			return apperrors.NewStateConflict("illegal funnel transition", map[string]any{
				"from": ic.FunnelStage,
				"to":   next,
			})
		}
		ic.FunnelStage = next
	}
	return nil
}

func (s *FunnelService) load(ctx context.Context, caseID string) (*domain.InternationalCase, *domain.Case, error) {
	ic, err := s.funnels.GetByCaseID(ctx, caseID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, apperrors.NewNotFound("international case", map[string]any{"case_id": caseID})
		}
		return nil, nil, apperrors.MapError(err)
	}
	c, err := s.cases.GetByID(ctx, caseID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, apperrors.NewNotFound("case", map[string]any{"case_id": caseID})
		}
		return nil, nil, apperrors.MapError(err)
	}
	return ic, c, nil
}

// expireIfDue applies lazy auction expiry, persisting and announcing the
// closure when the deadline has passed with no winner.
func (s *FunnelService) expireIfDue(ctx context.Context, ic *domain.InternationalCase, c *domain.Case) (bool, error) {
	now := s.now()
	if !routing.Tick(ic, c, now) {
		return false, nil
	}
	if err := s.funnels.Update(ctx, ic); err != nil {
		return false, s.mapRepoError(err, ic.CaseID)
	}
	if err := s.cases.Update(ctx, c); err != nil {
		return false, s.mapRepoError(err, ic.CaseID)
	}
	bidCount, err := s.bids.CountByCase(ctx, ic.CaseID)
	if err != nil {
		bidCount = 0
	}
	s.publish(ctx, events.Event{
		Type:   events.EventAuctionExpired,
		CaseID: ic.CaseID,
		Payload: events.AuctionExpiredPayload{
			EndedAt:  *ic.AuctionEndsAt,
			BidCount: bidCount,
		},
	})
	return true, nil
}

func (s *FunnelService) mapRepoError(err error, caseID string) error {
	if errors.Is(err, repository.ErrVersionConflict) {
		return apperrors.NewStateConflict("case was modified concurrently", map[string]any{"case_id": caseID})
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewNotFound("case", map[string]any{"case_id": caseID})
	}
	return apperrors.MapError(err)
}

func (s *FunnelService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}
