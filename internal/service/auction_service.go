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

const maxBidNotesLen = 2000

// AuctionService collects sealed bids and performs explicit winner
// selection for cases that fell through the funnel to open bidding.
// It imposes no ranking: picking a winner is an administrative act.
type AuctionService struct {
	cases      repository.CaseRepository
	funnels    repository.FunnelRepository
	bids       repository.BidRepository
	locks      *caseLocks
	dispatcher events.Dispatcher
	adminTier  domain.AccessTier
	now        func() time.Time
}

// AuctionDependencies bundles collaborators for the auction service.
// Locks must be the same table the funnel service uses so transitions for
// one case stay serialized across both services.
type AuctionDependencies struct {
	CaseRepo   repository.CaseRepository
	FunnelRepo repository.FunnelRepository
	BidRepo    repository.BidRepository
	Locks      *caseLocks
	Dispatcher events.Dispatcher
	AdminTier  domain.AccessTier
	Now        func() time.Time
}

// SubmitBidInput describes a bid submission.
type SubmitBidInput struct {
	BidderID           string
	BidderName         string
	AmountCents        int64
	ProposedFeePercent float64
	EstimatedDuration  string
	Notes              string
}

// NewAuctionService constructs the service.
func NewAuctionService(deps AuctionDependencies) *AuctionService {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	locks := deps.Locks
	if locks == nil {
		locks = newCaseLocks()
	}
	return &AuctionService{
		cases:      deps.CaseRepo,
		funnels:    deps.FunnelRepo,
		bids:       deps.BidRepo,
		locks:      locks,
		dispatcher: deps.Dispatcher,
		adminTier:  deps.AdminTier,
		now:        now,
	}
}

// SubmitBid appends a PENDING bid while the case is AUCTION_OPEN and the
// deadline has not passed. Multiple bids per bidder are permitted; earlier
// bids stay visible.
func (s *AuctionService) SubmitBid(ctx context.Context, caseID string, input SubmitBidInput) (*domain.Bid, error) {
	if strings.TrimSpace(input.BidderID) == "" {
		return nil, apperrors.NewValidationError("bidder_id required", nil)
	}
	if input.AmountCents <= 0 {
		return nil, apperrors.NewValidationError("amount must be positive", map[string]any{"amount_cents": input.AmountCents})
	}
	if input.ProposedFeePercent < 0 || input.ProposedFeePercent > 100 {
		return nil, apperrors.NewValidationError("fee percent must be within [0,100]", map[string]any{"proposed_fee_percent": input.ProposedFeePercent})
	}
	if strings.TrimSpace(input.EstimatedDuration) == "" {
		return nil, apperrors.NewValidationError("estimated_duration required", nil)
	}
	if len(input.Notes) > maxBidNotesLen {
		return nil, apperrors.NewValidationError("notes too long", map[string]any{"max_len": maxBidNotesLen})
	}

	unlock := s.locks.lock(caseID)
	defer unlock()

	ic, c, err := s.load(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if expired, err := s.expireIfDue(ctx, ic, c); err != nil {
		return nil, err
	} else if expired {
		return nil, apperrors.NewValidationError("auction deadline has passed", map[string]any{"ended_at": *ic.AuctionEndsAt})
	}
	if ic.FunnelStage != domain.StageAuctionOpen {
		return nil, apperrors.NewStateConflict("case is not in open bidding", map[string]any{"stage": ic.FunnelStage})
	}

	now := s.now()
	bid := &domain.Bid{
		CaseID:             caseID,
		BidderID:           input.BidderID,
		BidderName:         strings.TrimSpace(input.BidderName),
		AmountCents:        input.AmountCents,
		ProposedFeePercent: input.ProposedFeePercent,
		EstimatedDuration:  strings.TrimSpace(input.EstimatedDuration),
		Notes:              strings.TrimSpace(input.Notes),
		Status:             domain.BidStatusPending,
		SubmittedAt:        now,
	}
	if err := s.bids.Create(ctx, bid); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publish(ctx, events.Event{
		Type:   events.EventBidReceived,
		CaseID: caseID,
		Actor:  events.Actor{ID: &bid.BidderID},
		Payload: events.BidReceivedPayload{
			BidID:       bid.ID,
			BidderID:    bid.BidderID,
			AmountCents: bid.AmountCents,
		},
	})
	return bid, nil
}

// ListBids returns all bids for a case ordered by descending amount.
// Presentation ordering only.
func (s *AuctionService) ListBids(ctx context.Context, caseID string) ([]domain.Bid, error) {
	if _, err := s.funnels.GetByCaseID(ctx, caseID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("international case", map[string]any{"case_id": caseID})
		}
		return nil, apperrors.MapError(err)
	}
	bids, err := s.bids.ListByCase(ctx, caseID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return bids, nil
}

// SelectWinner accepts the chosen bid, rejects the remaining PENDING bids
// and resolves the case with the winning bidder as final handler. Requires
// the administrative tier.
func (s *AuctionService) SelectWinner(ctx context.Context, caseID, bidID string, selectorID string, selectorTier domain.AccessTier) (*domain.Bid, error) {
	if !selectorTier.AtLeast(s.adminTier) {
		return nil, apperrors.NewForbidden("insufficient tier for winner selection")
	}

	unlock := s.locks.lock(caseID)
	defer unlock()

	ic, c, err := s.load(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if expired, err := s.expireIfDue(ctx, ic, c); err != nil {
		return nil, err
	} else if expired {
		return nil, apperrors.NewStateConflict("auction already closed", map[string]any{"stage": ic.FunnelStage})
	}
	if ic.FunnelStage != domain.StageAuctionOpen {
		return nil, apperrors.NewStateConflict("case is not in open bidding", map[string]any{"stage": ic.FunnelStage})
	}

	bid, err := s.bids.GetByID(ctx, bidID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("bid", map[string]any{"bid_id": bidID})
		}
		return nil, apperrors.MapError(err)
	}
	if bid.CaseID != caseID {
		return nil, apperrors.NewStateConflict("bid does not belong to case", map[string]any{"bid_id": bidID, "case_id": caseID})
	}
	if bid.Status != domain.BidStatusPending {
		return nil, apperrors.NewStateConflict("bid is not pending", map[string]any{"bid_id": bidID, "status": bid.Status})
	}

	for _, next := range []domain.FunnelStage{domain.StageAuctionClosed, domain.StageResolved} {
		if !ic.FunnelStage.CanTransition(next) {
			return nil, apperrors.NewStateConflict("illegal funnel transition", map[string]any{"from": ic.FunnelStage, "to": next})
		}
		ic.FunnelStage = next
	}
	handler := bid.BidderID
	ic.FinalHandlerID = &handler
	if err := s.funnels.Update(ctx, ic); err != nil {
		return nil, s.mapRepoError(err, caseID)
	}

	if err := s.bids.UpdateStatus(ctx, bid.ID, domain.BidStatusAccepted); err != nil {
		return nil, apperrors.MapError(err)
	}
	bid.Status = domain.BidStatusAccepted
	rejected, err := s.bids.RejectPending(ctx, caseID, bid.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	c.Status = domain.CaseStatusAssigned
	if err := s.cases.Update(ctx, c); err != nil {
		return nil, s.mapRepoError(err, caseID)
	}

	s.publish(ctx, events.Event{
		Type:   events.EventAuctionWinnerSelected,
		CaseID: caseID,
		Actor:  events.Actor{ID: &selectorID, Tier: &selectorTier},
		Payload: events.AuctionWinnerSelectedPayload{
			BidID:         bid.ID,
			BidderID:      bid.BidderID,
			AmountCents:   bid.AmountCents,
			RejectedCount: rejected,
		},
	})
	return bid, nil
}

// CloseExpired sweeps auctions whose deadline has passed and closes them.
// An optimization over lazy expiry, not a correctness requirement.
func (s *AuctionService) CloseExpired(ctx context.Context) (int, error) {
	ids, err := s.funnels.ListExpiredAuctions(ctx, s.now())
	if err != nil {
		return 0, apperrors.MapError(err)
	}
	closed := 0
	for _, caseID := range ids {
		unlock := s.locks.lock(caseID)
		ic, c, err := s.load(ctx, caseID)
		if err != nil {
			unlock()
			continue
		}
		expired, err := s.expireIfDue(ctx, ic, c)
		unlock()
		if err != nil {
			continue
		}
		if expired {
			closed++
		}
	}
	return closed, nil
}

func (s *AuctionService) load(ctx context.Context, caseID string) (*domain.InternationalCase, *domain.Case, error) {
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

func (s *AuctionService) expireIfDue(ctx context.Context, ic *domain.InternationalCase, c *domain.Case) (bool, error) {
	if !routing.Tick(ic, c, s.now()) {
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

func (s *AuctionService) mapRepoError(err error, caseID string) error {
	if errors.Is(err, repository.ErrVersionConflict) {
		return apperrors.NewStateConflict("case was modified concurrently", map[string]any{"case_id": caseID})
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewNotFound("case", map[string]any{"case_id": caseID})
	}
	return apperrors.MapError(err)
}

func (s *AuctionService) publish(ctx context.Context, event events.Event) {
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
