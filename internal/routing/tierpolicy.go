package routing

import (
	"time"

	"github.com/spec-kit/case-routing-service/internal/domain"
)

// TierPolicy projects which cases a requester tier may currently see.
// Purely a projection: no mutation, stable under an advancing clock.
type TierPolicy struct {
	minParticipationTier domain.AccessTier
	eliteTier            domain.AccessTier
}

// NewTierPolicy builds the policy from the configured tier thresholds.
func NewTierPolicy(minParticipationTier, eliteTier domain.AccessTier) TierPolicy {
	return TierPolicy{
		minParticipationTier: minParticipationTier,
		eliteTier:            eliteTier,
	}
}

// IsVisible reports whether the case may be shown to a prospective handler
// at the given tier. Non-OPEN cases are never visible to applicants. While
// now is before the exclusivity window end only elite-tier requesters see
// the case; at and after the window end every participating tier does.
func (p TierPolicy) IsVisible(c *domain.Case, requesterTier domain.AccessTier, now time.Time) bool {
	if c == nil || c.Status != domain.CaseStatusOpen {
		return false
	}
	if !requesterTier.AtLeast(p.minParticipationTier) {
		return false
	}
	if c.ExclusiveUntil != nil && now.Before(*c.ExclusiveUntil) {
		return requesterTier.AtLeast(p.eliteTier)
	}
	return true
}

// FilterVisible applies IsVisible to each case, preserving input ordering.
// Callers own sort order.
func (p TierPolicy) FilterVisible(cases []domain.Case, requesterTier domain.AccessTier, now time.Time) []domain.Case {
	visible := make([]domain.Case, 0, len(cases))
	for i := range cases {
		if p.IsVisible(&cases[i], requesterTier, now) {
			visible = append(visible, cases[i])
		}
	}
	return visible
}
