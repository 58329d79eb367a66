package service

import (
	"context"
	"testing"
	"time"

	"github.com/spec-kit/case-routing-service/internal/domain"
	"github.com/spec-kit/case-routing-service/internal/events"
	apperrors "github.com/spec-kit/case-routing-service/pkg/util"
)

func newFunnelFixture(t *testing.T, now time.Time) (*FunnelService, *fakeCaseRepo, *fakeFunnelRepo, *fakeBidRepo, *recordingDispatcher) {
	t.Helper()
	caseRepo := newFakeCaseRepo()
	funnelRepo := newFakeFunnelRepo()
	bidRepo := newFakeBidRepo()
	dispatcher := &recordingDispatcher{}
	svc := NewFunnelService(FunnelDependencies{
		CaseRepo:                    caseRepo,
		FunnelRepo:                  funnelRepo,
		BidRepo:                     bidRepo,
		Dispatcher:                  dispatcher,
		MinInternationalAmountCents: 500_000,
		AuctionDuration:             72 * time.Hour,
		Now:                         fixedClock(now),
	})
	return svc, caseRepo, funnelRepo, bidRepo, dispatcher
}

func openCase(id string, amountCents int64) domain.Case {
	return domain.Case{
		ID:           id,
		Title:        "Cross-border arbitration",
		PracticeArea: "arbitration",
		Complexity:   domain.CaseComplexityHigh,
		AmountCents:  amountCents,
		Status:       domain.CaseStatusOpen,
		Version:      1,
	}
}

func routedFunnel(caseID string, stage domain.FunnelStage, panel ...string) domain.InternationalCase {
	entries := make([]domain.PanelEntry, 0, len(panel))
	for i, memberID := range panel {
		entries = append(entries, domain.PanelEntry{MemberID: memberID, Position: i + 1, Decision: domain.PanelPending})
	}
	return domain.InternationalCase{
		CaseID:             caseID,
		CountriesInvolved:  []string{"DE", "FR"},
		FunnelStage:        stage,
		PriorityAssigneeID: "assignee-1",
		Panel:              entries,
		Version:            1,
	}
}

func TestRouteInternational_CreatesFunnelAtPriorityPending(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	svc, caseRepo, _, _, dispatcher := newFunnelFixture(t, now)
	caseRepo.put(openCase("case-1", 900_000))

	ic, err := svc.RouteInternational(context.Background(), "admin-1", "case-1", RouteInternationalInput{
		CountriesInvolved:  []string{"DE", "FR"},
		LanguagesRequired:  []string{"de", "fr"},
		PriorityAssigneeID: "assignee-1",
		PanelMemberIDs:     []string{"panel-1", "panel-2", "panel-3"},
	})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if ic.FunnelStage != domain.StagePriorityPending {
		t.Errorf("expected PRIORITY_PENDING, got %s", ic.FunnelStage)
	}
	if len(ic.Panel) != 3 {
		t.Fatalf("expected 3 panel entries, got %d", len(ic.Panel))
	}
	for i, entry := range ic.Panel {
		if entry.Position != i+1 {
			t.Errorf("panel position %d: got %d", i+1, entry.Position)
		}
		if entry.Decision != domain.PanelPending {
			t.Errorf("panel entry %s: expected PENDING, got %s", entry.MemberID, entry.Decision)
		}
	}

	stored, err := caseRepo.GetByID(context.Background(), "case-1")
	if err != nil {
		t.Fatalf("case lookup: %v", err)
	}
	if !stored.International {
		t.Errorf("expected case marked international")
	}
	if got := dispatcher.published(events.EventCaseRoutedInternational); len(got) != 1 {
		t.Errorf("expected 1 routed event, got %d", len(got))
	}
}

func TestRouteInternational_RejectsBelowMinimumAmount(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	svc, caseRepo, _, _, _ := newFunnelFixture(t, now)
	caseRepo.put(openCase("case-1", 100_000))

	_, err := svc.RouteInternational(context.Background(), "admin-1", "case-1", RouteInternationalInput{
		CountriesInvolved:  []string{"DE"},
		PriorityAssigneeID: "assignee-1",
		PanelMemberIDs:     []string{"panel-1"},
	})
	if !apperrors.IsCode(err, "VALIDATION_FAILED") {
		t.Fatalf("expected VALIDATION_FAILED, got %v", err)
	}
}

func TestRouteInternational_RejectsDuplicatePanelMembers(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	svc, caseRepo, _, _, _ := newFunnelFixture(t, now)
	caseRepo.put(openCase("case-1", 900_000))

	_, err := svc.RouteInternational(context.Background(), "admin-1", "case-1", RouteInternationalInput{
		CountriesInvolved:  []string{"DE"},
		PriorityAssigneeID: "assignee-1",
		PanelMemberIDs:     []string{"panel-1", "panel-1"},
	})
	if !apperrors.IsCode(err, "VALIDATION_FAILED") {
		t.Fatalf("expected VALIDATION_FAILED, got %v", err)
	}
}

func TestRouteInternational_ConflictWhenAlreadyRouted(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	svc, caseRepo, funnelRepo, _, _ := newFunnelFixture(t, now)
	caseRepo.put(openCase("case-1", 900_000))
	funnelRepo.put(routedFunnel("case-1", domain.StagePriorityPending, "panel-1"))

	_, err := svc.RouteInternational(context.Background(), "admin-1", "case-1", RouteInternationalInput{
		CountriesInvolved:  []string{"DE"},
		PriorityAssigneeID: "assignee-1",
		PanelMemberIDs:     []string{"panel-1"},
	})
	if !apperrors.IsCode(err, "CONFLICT") {
		t.Fatalf("expected CONFLICT, got %v", err)
	}
}

func TestRecordPriorityResponse_AcceptResolvesCase(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	svc, caseRepo, funnelRepo, _, _ := newFunnelFixture(t, now)
	caseRepo.put(openCase("case-1", 900_000))
	funnelRepo.put(routedFunnel("case-1", domain.StagePriorityPending, "panel-1", "panel-2"))

	ic, err := svc.RecordPriorityResponse(context.Background(), "assignee-1", "case-1", domain.ResponseAccepted, "taking it")
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if ic.FunnelStage != domain.StageResolved {
		t.Errorf("expected RESOLVED, got %s", ic.FunnelStage)
	}
	if ic.FinalHandlerID == nil || *ic.FinalHandlerID != "assignee-1" {
		t.Errorf("expected assignee as final handler, got %v", ic.FinalHandlerID)
	}

	stored, _ := caseRepo.GetByID(context.Background(), "case-1")
	if stored.Status != domain.CaseStatusAssigned {
		t.Errorf("expected case ASSIGNED, got %s", stored.Status)
	}
}

func TestRecordPriorityResponse_DeclineActivatesPanel(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	svc, caseRepo, funnelRepo, _, _ := newFunnelFixture(t, now)
	caseRepo.put(openCase("case-1", 900_000))
	funnelRepo.put(routedFunnel("case-1", domain.StagePriorityPending, "panel-1", "panel-2"))

	ic, err := svc.RecordPriorityResponse(context.Background(), "assignee-1", "case-1", domain.ResponseDeclined, "conflict of interest")
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if ic.FunnelStage != domain.StagePanelPending {
		t.Errorf("expected PANEL_PENDING, got %s", ic.FunnelStage)
	}
	if ic.FinalHandlerID != nil {
		t.Errorf("expected no final handler after decline")
	}

	stored, _ := caseRepo.GetByID(context.Background(), "case-1")
	if stored.Status != domain.CaseStatusOpen {
		t.Errorf("expected case still OPEN, got %s", stored.Status)
	}
}

func TestRecordPriorityResponse_ForbiddenForOtherActor(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	svc, caseRepo, funnelRepo, _, _ := newFunnelFixture(t, now)
	caseRepo.put(openCase("case-1", 900_000))
	funnelRepo.put(routedFunnel("case-1", domain.StagePriorityPending, "panel-1"))

	_, err := svc.RecordPriorityResponse(context.Background(), "someone-else", "case-1", domain.ResponseAccepted, "")
	if !apperrors.IsCode(err, "FORBIDDEN") {
		t.Fatalf("expected FORBIDDEN, got %v", err)
	}
}

func TestRecordPriorityResponse_DuplicateIsConflict(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	svc, caseRepo, funnelRepo, _, _ := newFunnelFixture(t, now)
	caseRepo.put(openCase("case-1", 900_000))
	funnelRepo.put(routedFunnel("case-1", domain.StagePriorityPending, "panel-1"))

	if _, err := svc.RecordPriorityResponse(context.Background(), "assignee-1", "case-1", domain.ResponseDeclined, ""); err != nil {
		t.Fatalf("first response: %v", err)
	}
	_, err := svc.RecordPriorityResponse(context.Background(), "assignee-1", "case-1", domain.ResponseDeclined, "")
	if !apperrors.IsCode(err, "CONFLICT") {
		t.Fatalf("expected CONFLICT on repeat, got %v", err)
	}
}

func TestRecordPanelResponse_FirstAcceptWins(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	svc, caseRepo, funnelRepo, _, _ := newFunnelFixture(t, now)
	caseRepo.put(openCase("case-1", 900_000))
	funnelRepo.put(routedFunnel("case-1", domain.StagePanelPending, "panel-1", "panel-2", "panel-3"))

	ic, err := svc.RecordPanelResponse(context.Background(), "case-1", "panel-2", domain.ResponseAccepted, "available")
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if ic.FunnelStage != domain.StageResolved {
		t.Errorf("expected RESOLVED, got %s", ic.FunnelStage)
	}
	if ic.FinalHandlerID == nil || *ic.FinalHandlerID != "panel-2" {
		t.Errorf("expected panel-2 as final handler, got %v", ic.FinalHandlerID)
	}

	_, err = svc.RecordPanelResponse(context.Background(), "case-1", "panel-1", domain.ResponseAccepted, "")
	if !apperrors.IsCode(err, "STATE_CONFLICT") {
		t.Fatalf("expected STATE_CONFLICT after resolution, got %v", err)
	}
}

func TestRecordPanelResponse_AllDeclinedOpensAuctionOnce(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	svc, caseRepo, funnelRepo, _, dispatcher := newFunnelFixture(t, now)
	caseRepo.put(openCase("case-1", 900_000))
	funnelRepo.put(routedFunnel("case-1", domain.StagePanelPending, "panel-1", "panel-2", "panel-3"))

	// Declines arrive out of roster order; only the final one opens bidding.
	for _, memberID := range []string{"panel-3", "panel-1"} {
		ic, err := svc.RecordPanelResponse(context.Background(), "case-1", memberID, domain.ResponseDeclined, "")
		if err != nil {
			t.Fatalf("decline %s: %v", memberID, err)
		}
		if ic.FunnelStage != domain.StagePanelPending {
			t.Errorf("after %s declined: expected PANEL_PENDING, got %s", memberID, ic.FunnelStage)
		}
	}

	ic, err := svc.RecordPanelResponse(context.Background(), "case-1", "panel-2", domain.ResponseDeclined, "")
	if err != nil {
		t.Fatalf("final decline: %v", err)
	}
	if ic.FunnelStage != domain.StageAuctionOpen {
		t.Fatalf("expected AUCTION_OPEN, got %s", ic.FunnelStage)
	}
	if ic.AuctionEndsAt == nil {
		t.Fatal("expected auction deadline to be set")
	}
	if want := now.Add(72 * time.Hour); !ic.AuctionEndsAt.Equal(want) {
		t.Errorf("expected deadline %v, got %v", want, *ic.AuctionEndsAt)
	}
	if got := dispatcher.published(events.EventAuctionOpened); len(got) != 1 {
		t.Errorf("expected exactly 1 auction opened event, got %d", len(got))
	}
}

func TestRecordPanelResponse_DuplicateIsConflict(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	svc, caseRepo, funnelRepo, _, _ := newFunnelFixture(t, now)
	caseRepo.put(openCase("case-1", 900_000))
	funnelRepo.put(routedFunnel("case-1", domain.StagePanelPending, "panel-1", "panel-2"))

	if _, err := svc.RecordPanelResponse(context.Background(), "case-1", "panel-1", domain.ResponseDeclined, ""); err != nil {
		t.Fatalf("first response: %v", err)
	}
	_, err := svc.RecordPanelResponse(context.Background(), "case-1", "panel-1", domain.ResponseAccepted, "")
	if !apperrors.IsCode(err, "CONFLICT") {
		t.Fatalf("expected CONFLICT on repeat, got %v", err)
	}
}

func TestRecordPanelResponse_UnknownMemberNotFound(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	svc, caseRepo, funnelRepo, _, _ := newFunnelFixture(t, now)
	caseRepo.put(openCase("case-1", 900_000))
	funnelRepo.put(routedFunnel("case-1", domain.StagePanelPending, "panel-1"))

	_, err := svc.RecordPanelResponse(context.Background(), "case-1", "stranger", domain.ResponseDeclined, "")
	if !apperrors.IsCode(err, "NOT_FOUND") {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

func TestRecordPanelResponse_RejectedDuringPriorityStage(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	svc, caseRepo, funnelRepo, _, _ := newFunnelFixture(t, now)
	caseRepo.put(openCase("case-1", 900_000))
	funnelRepo.put(routedFunnel("case-1", domain.StagePriorityPending, "panel-1"))

	_, err := svc.RecordPanelResponse(context.Background(), "case-1", "panel-1", domain.ResponseAccepted, "")
	if !apperrors.IsCode(err, "STATE_CONFLICT") {
		t.Fatalf("expected STATE_CONFLICT, got %v", err)
	}
}

func TestGetFunnelState_AppliesLazyExpiry(t *testing.T) {
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	svc, caseRepo, funnelRepo, _, dispatcher := newFunnelFixture(t, start.Add(80*time.Hour))
	caseRepo.put(openCase("case-1", 900_000))
	ic := routedFunnel("case-1", domain.StageAuctionOpen)
	endsAt := start.Add(72 * time.Hour)
	ic.AuctionEndsAt = &endsAt
	funnelRepo.put(ic)

	got, err := svc.GetFunnelState(context.Background(), "case-1")
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if got.FunnelStage != domain.StageAuctionClosed {
		t.Errorf("expected AUCTION_CLOSED, got %s", got.FunnelStage)
	}

	stored, _ := caseRepo.GetByID(context.Background(), "case-1")
	if stored.Status != domain.CaseStatusClosed {
		t.Errorf("expected case CLOSED, got %s", stored.Status)
	}
	if stored.ClosedAt == nil {
		t.Errorf("expected closed timestamp to be set")
	}
	if got := dispatcher.published(events.EventAuctionExpired); len(got) != 1 {
		t.Errorf("expected 1 expiry event, got %d", len(got))
	}
}
