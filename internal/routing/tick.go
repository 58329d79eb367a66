package routing

import (
	"time"

	"github.com/spec-kit/case-routing-service/internal/domain"
)

// Tick applies lazy auction expiry to a funnel record. If the auction
// deadline has passed with no winner selected, the funnel moves to
// AUCTION_CLOSED and the case closes unresolved. Returns true when a
// transition was applied; the caller is responsible for persisting both
// records and emitting the expiry event.
//
// Any accessor that observes an expired auction performs this transition
// on behalf of the caller; a background sweep calling it periodically is
// an optimization, not a correctness requirement.
func Tick(ic *domain.InternationalCase, c *domain.Case, now time.Time) bool {
	if ic == nil || c == nil {
		return false
	}
	if ic.FunnelStage != domain.StageAuctionOpen {
		return false
	}
	if ic.AuctionEndsAt == nil || !now.After(*ic.AuctionEndsAt) {
		return false
	}
	ic.FunnelStage = domain.StageAuctionClosed
	c.Status = domain.CaseStatusClosed
	closedAt := now
	c.ClosedAt = &closedAt
	return true
}
