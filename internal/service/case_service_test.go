package service

import (
	"context"
	"testing"
	"time"

	"github.com/spec-kit/case-routing-service/internal/domain"
	"github.com/spec-kit/case-routing-service/internal/events"
	"github.com/spec-kit/case-routing-service/internal/routing"
	apperrors "github.com/spec-kit/case-routing-service/pkg/util"
)

func newCaseFixture(t *testing.T, now time.Time) (*CaseService, *fakeCaseRepo, *recordingDispatcher) {
	t.Helper()
	caseRepo := newFakeCaseRepo()
	dispatcher := &recordingDispatcher{}
	svc := NewCaseService(CaseDependencies{
		CaseRepo:   caseRepo,
		Classifier: routing.NewClassifier(1_000_000, 24*time.Hour),
		TierPolicy: routing.NewTierPolicy(domain.TierVerified, domain.TierElitePartner),
		Dispatcher: dispatcher,
		Now:        fixedClock(now),
	})
	return svc, caseRepo, dispatcher
}

func intakeInput(complexity domain.CaseComplexity, amountCents int64) CaseIntakeInput {
	return CaseIntakeInput{
		Title:        "Contract dispute",
		Description:  "Supplier breach of delivery terms",
		PracticeArea: "commercial",
		Complexity:   complexity,
		AmountCents:  amountCents,
	}
}

func TestIntakeCase_HighComplexityGetsExclusivityWindow(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	svc, _, dispatcher := newCaseFixture(t, now)

	c, err := svc.IntakeCase(context.Background(), "client-1", intakeInput(domain.CaseComplexityHigh, 50_000))
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if c.ExclusiveUntil == nil {
		t.Fatal("expected exclusivity window for HIGH complexity")
	}
	if want := now.Add(24 * time.Hour); !c.ExclusiveUntil.Equal(want) {
		t.Errorf("expected window end %v, got %v", want, *c.ExclusiveUntil)
	}
	if c.Status != domain.CaseStatusOpen {
		t.Errorf("expected OPEN, got %s", c.Status)
	}
	if got := dispatcher.published(events.EventCaseClassified); len(got) != 1 {
		t.Errorf("expected 1 classification event, got %d", len(got))
	}
}

func TestIntakeCase_BudgetAtThresholdIsNotHighValue(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	svc, _, _ := newCaseFixture(t, now)

	c, err := svc.IntakeCase(context.Background(), "client-1", intakeInput(domain.CaseComplexityLow, 1_000_000))
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if c.ExclusiveUntil != nil {
		t.Errorf("budget exactly at threshold must not open a window, got %v", *c.ExclusiveUntil)
	}
}

func TestIntakeCase_ValidatesInput(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	svc, _, _ := newCaseFixture(t, now)

	missingTitle := intakeInput(domain.CaseComplexityLow, 1000)
	missingTitle.Title = "  "
	if _, err := svc.IntakeCase(context.Background(), "client-1", missingTitle); !apperrors.IsCode(err, "VALIDATION_FAILED") {
		t.Errorf("missing title: expected VALIDATION_FAILED, got %v", err)
	}

	badComplexity := intakeInput("EXTREME", 1000)
	if _, err := svc.IntakeCase(context.Background(), "client-1", badComplexity); !apperrors.IsCode(err, "VALIDATION_FAILED") {
		t.Errorf("bad complexity: expected VALIDATION_FAILED, got %v", err)
	}

	zeroAmount := intakeInput(domain.CaseComplexityLow, 0)
	if _, err := svc.IntakeCase(context.Background(), "client-1", zeroAmount); !apperrors.IsCode(err, "VALIDATION_FAILED") {
		t.Errorf("zero amount: expected VALIDATION_FAILED, got %v", err)
	}
}

func TestListVisibleCases_FiltersByTier(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	svc, caseRepo, _ := newCaseFixture(t, now)

	exclusive := openCase("case-exclusive", 2_000_000)
	windowEnd := now.Add(time.Hour)
	exclusive.ExclusiveUntil = &windowEnd
	caseRepo.put(exclusive)
	caseRepo.put(openCase("case-plain", 50_000))

	partnerView, err := svc.ListVisibleCases(context.Background(), domain.TierPartner)
	if err != nil {
		t.Fatalf("partner view: %v", err)
	}
	if len(partnerView) != 1 || partnerView[0].ID != "case-plain" {
		t.Errorf("partner should only see the plain case, got %v", partnerView)
	}

	eliteView, err := svc.ListVisibleCases(context.Background(), domain.TierElitePartner)
	if err != nil {
		t.Fatalf("elite view: %v", err)
	}
	if len(eliteView) != 2 {
		t.Errorf("elite should see both cases, got %d", len(eliteView))
	}

	unverifiedView, err := svc.ListVisibleCases(context.Background(), domain.TierUnverified)
	if err != nil {
		t.Fatalf("unverified view: %v", err)
	}
	if len(unverifiedView) != 0 {
		t.Errorf("unverified should see nothing, got %d", len(unverifiedView))
	}
}

func TestGetCase_InvisibleReportsNotFound(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	svc, caseRepo, _ := newCaseFixture(t, now)

	exclusive := openCase("case-exclusive", 2_000_000)
	windowEnd := now.Add(time.Hour)
	exclusive.ExclusiveUntil = &windowEnd
	caseRepo.put(exclusive)

	if _, err := svc.GetCase(context.Background(), domain.TierPartner, "case-exclusive"); !apperrors.IsCode(err, "NOT_FOUND") {
		t.Errorf("expected NOT_FOUND for non-elite during window, got %v", err)
	}
	if _, err := svc.GetCase(context.Background(), domain.TierElitePartner, "case-exclusive"); err != nil {
		t.Errorf("elite should see the case, got %v", err)
	}
}
