package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/case-routing-service/internal/domain"
	"github.com/spec-kit/case-routing-service/internal/events"
	"github.com/spec-kit/case-routing-service/internal/repository"
)

type fakeCaseRepo struct {
	mu      sync.Mutex
	cases   map[string]domain.Case
	updates int
}

func newFakeCaseRepo() *fakeCaseRepo {
	return &fakeCaseRepo{cases: map[string]domain.Case{}}
}

func (f *fakeCaseRepo) put(c domain.Case) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cases[c.ID] = c
}

func (f *fakeCaseRepo) Create(ctx context.Context, c *domain.Case) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c.ID == "" {
		c.ID = fmt.Sprintf("case-%d", len(f.cases)+1)
	}
	c.Version = 1
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt
	f.cases[c.ID] = *c
	return nil
}

func (f *fakeCaseRepo) Update(ctx context.Context, c *domain.Case) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.cases[c.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	if stored.Version != c.Version {
		return repository.ErrVersionConflict
	}
	c.Version++
	f.cases[c.ID] = *c
	f.updates++
	return nil
}

func (f *fakeCaseRepo) GetByID(ctx context.Context, id string) (*domain.Case, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.cases[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	c := stored
	return &c, nil
}

func (f *fakeCaseRepo) ListOpen(ctx context.Context) ([]domain.Case, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Case
	for _, c := range f.cases {
		if c.Status == domain.CaseStatusOpen {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeCaseRepo) ListWithFilter(ctx context.Context, filter repository.CaseFilter) ([]domain.Case, error) {
	return f.ListOpen(ctx)
}

type fakeFunnelRepo struct {
	mu      sync.Mutex
	funnels map[string]domain.InternationalCase
	updates int
}

func newFakeFunnelRepo() *fakeFunnelRepo {
	return &fakeFunnelRepo{funnels: map[string]domain.InternationalCase{}}
}

func cloneFunnel(ic domain.InternationalCase) domain.InternationalCase {
	out := ic
	out.Panel = make([]domain.PanelEntry, len(ic.Panel))
	copy(out.Panel, ic.Panel)
	return out
}

func (f *fakeFunnelRepo) put(ic domain.InternationalCase) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.funnels[ic.CaseID] = cloneFunnel(ic)
}

func (f *fakeFunnelRepo) Create(ctx context.Context, ic *domain.InternationalCase) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	ic.Version = 1
	ic.CreatedAt = time.Now()
	ic.UpdatedAt = ic.CreatedAt
	f.funnels[ic.CaseID] = cloneFunnel(*ic)
	return nil
}

func (f *fakeFunnelRepo) Update(ctx context.Context, ic *domain.InternationalCase) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.funnels[ic.CaseID]
	if !ok {
		return pgx.ErrNoRows
	}
	if stored.Version != ic.Version {
		return repository.ErrVersionConflict
	}
	ic.Version++
	f.funnels[ic.CaseID] = cloneFunnel(*ic)
	f.updates++
	return nil
}

func (f *fakeFunnelRepo) GetByCaseID(ctx context.Context, caseID string) (*domain.InternationalCase, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.funnels[caseID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	ic := cloneFunnel(stored)
	return &ic, nil
}

func (f *fakeFunnelRepo) ListExpiredAuctions(ctx context.Context, now time.Time) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, ic := range f.funnels {
		if ic.FunnelStage == domain.StageAuctionOpen && ic.AuctionEndsAt != nil && now.After(*ic.AuctionEndsAt) {
			out = append(out, ic.CaseID)
		}
	}
	return out, nil
}

type fakeBidRepo struct {
	mu   sync.Mutex
	bids []domain.Bid
}

func newFakeBidRepo() *fakeBidRepo {
	return &fakeBidRepo{}
}

func (f *fakeBidRepo) Create(ctx context.Context, bid *domain.Bid) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	bid.ID = fmt.Sprintf("bid-%d", len(f.bids)+1)
	f.bids = append(f.bids, *bid)
	return nil
}

func (f *fakeBidRepo) GetByID(ctx context.Context, id string) (*domain.Bid, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, b := range f.bids {
		if b.ID == id {
			out := b
			return &out, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeBidRepo) ListByCase(ctx context.Context, caseID string) ([]domain.Bid, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Bid
	for _, b := range f.bids {
		if b.CaseID == caseID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeBidRepo) CountByCase(ctx context.Context, caseID string) (int, error) {
	bids, _ := f.ListByCase(ctx, caseID)
	return len(bids), nil
}

func (f *fakeBidRepo) UpdateStatus(ctx context.Context, id string, status domain.BidStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.bids {
		if f.bids[i].ID == id {
			f.bids[i].Status = status
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (f *fakeBidRepo) RejectPending(ctx context.Context, caseID, exceptBidID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rejected := 0
	for i := range f.bids {
		if f.bids[i].CaseID == caseID && f.bids[i].ID != exceptBidID && f.bids[i].Status == domain.BidStatusPending {
			f.bids[i].Status = domain.BidStatusRejected
			rejected++
		}
	}
	return rejected, nil
}

type recordingDispatcher struct {
	mu     sync.Mutex
	events []events.Event
}

func (d *recordingDispatcher) Publish(ctx context.Context, event events.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
	return nil
}

func (d *recordingDispatcher) Subscribe(eventType events.EventType, handler events.EventHandler) {}

func (d *recordingDispatcher) published(eventType events.EventType) []events.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []events.Event
	for _, e := range d.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
