package events

import (
	"context"
	"testing"
)

func TestInMemoryDispatcher_RoutesByType(t *testing.T) {
	d := NewInMemoryDispatcher()

	var opened, received int
	d.Subscribe(EventAuctionOpened, func(ctx context.Context, e Event) error {
		opened++
		return nil
	})
	d.Subscribe(EventBidReceived, func(ctx context.Context, e Event) error {
		received++
		return nil
	})

	if err := d.Publish(context.Background(), Event{Type: EventAuctionOpened, CaseID: "case-1"}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if err := d.Publish(context.Background(), Event{Type: EventAuctionOpened, CaseID: "case-2"}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	if opened != 2 {
		t.Errorf("opened handler calls = %d, want 2", opened)
	}
	if received != 0 {
		t.Errorf("bid handler must not run for auction events, got %d", received)
	}
}

func TestInMemoryDispatcher_NoSubscribers(t *testing.T) {
	d := NewInMemoryDispatcher()
	if err := d.Publish(context.Background(), Event{Type: EventCaseClassified}); err != nil {
		t.Fatalf("publish without subscribers: %v", err)
	}
}
