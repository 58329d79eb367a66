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

// CaseService handles case intake, classification and tier-scoped reads.
type CaseService struct {
	cases      repository.CaseRepository
	board      *repository.CaseBoardCache
	classifier routing.Classifier
	policy     routing.TierPolicy
	dispatcher events.Dispatcher
	now        func() time.Time
}

// CaseDependencies bundles collaborators for the case service.
type CaseDependencies struct {
	CaseRepo   repository.CaseRepository
	BoardCache *repository.CaseBoardCache
	Classifier routing.Classifier
	TierPolicy routing.TierPolicy
	Dispatcher events.Dispatcher
	Now        func() time.Time
}

// CaseIntakeInput describes a new case supplied by case intake.
type CaseIntakeInput struct {
	Title        string
	Description  string
	PracticeArea string
	Complexity   domain.CaseComplexity
	AmountCents  int64
}

// NewCaseService constructs the service.
func NewCaseService(deps CaseDependencies) *CaseService {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &CaseService{
		cases:      deps.CaseRepo,
		board:      deps.BoardCache,
		classifier: deps.Classifier,
		policy:     deps.TierPolicy,
		dispatcher: deps.Dispatcher,
		now:        now,
	}
}

// IntakeCase creates a case and classifies it exactly once. High-value
// cases receive their exclusivity window here; it is never recomputed.
func (s *CaseService) IntakeCase(ctx context.Context, actorID string, input CaseIntakeInput) (*domain.Case, error) {
	title := strings.TrimSpace(input.Title)
	description := strings.TrimSpace(input.Description)
	practiceArea := strings.TrimSpace(input.PracticeArea)
	if title == "" || description == "" || practiceArea == "" {
		return nil, apperrors.NewValidationError("title, description, practice_area required", nil)
	}
	if !domain.ValidComplexity(input.Complexity) {
		return nil, apperrors.NewValidationError("unknown complexity", map[string]any{"complexity": input.Complexity})
	}
	if input.AmountCents <= 0 {
		return nil, apperrors.NewValidationError("amount must be positive", map[string]any{"amount_cents": input.AmountCents})
	}

	now := s.now()
	classification := s.classifier.Classify(input.Complexity, input.AmountCents, now)

	c := &domain.Case{
		Title:          title,
		Description:    description,
		PracticeArea:   practiceArea,
		Complexity:     input.Complexity,
		AmountCents:    input.AmountCents,
		Status:         domain.CaseStatusOpen,
		ExclusiveUntil: classification.ExclusiveUntil,
	}
	if err := s.cases.Create(ctx, c); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publish(ctx, events.Event{
		Type:   events.EventCaseClassified,
		CaseID: c.ID,
		Actor:  events.Actor{ID: &actorID},
		Payload: events.CaseClassifiedPayload{
			Complexity:     c.Complexity,
			AmountCents:    c.AmountCents,
			HighValue:      classification.HighValue,
			ExclusiveUntil: c.ExclusiveUntil,
		},
	})
	return c, nil
}

// ListVisibleCases returns the OPEN cases the requester tier may see right
// now, newest-first. The board read goes through the Redis cache; the tier
// filter is always applied per request.
func (s *CaseService) ListVisibleCases(ctx context.Context, requesterTier domain.AccessTier) ([]domain.Case, error) {
	cases, hit := s.board.GetOpen(ctx)
	if !hit {
		var err error
		cases, err = s.cases.ListOpen(ctx)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		s.board.SetOpen(ctx, cases)
	}
	return s.policy.FilterVisible(cases, requesterTier, s.now()), nil
}

// GetCase fetches a case enforcing tier visibility. Invisible cases are
// reported as not found so exclusivity windows leak nothing.
func (s *CaseService) GetCase(ctx context.Context, requesterTier domain.AccessTier, caseID string) (*domain.Case, error) {
	c, err := s.cases.GetByID(ctx, caseID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("case", map[string]any{"case_id": caseID})
		}
		return nil, apperrors.MapError(err)
	}
	if !s.policy.IsVisible(c, requesterTier, s.now()) {
		return nil, apperrors.NewNotFound("case", map[string]any{"case_id": caseID})
	}
	return c, nil
}

func (s *CaseService) publish(ctx context.Context, event events.Event) {
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
