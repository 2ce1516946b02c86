package realtime

import (
	"testing"

	"snafleshub/internal/queue"
)

func testEvent(id uint) queue.NegotiationEvent {
	return queue.NegotiationEvent{
		EventID:       "e",
		Type:          queue.EventOfferSubmitted,
		NegotiationID: id,
		ProductID:     1,
		BuyerID:       2,
		SellerID:      3,
		Amount:        100,
		Status:        "pending",
	}
}

func TestRegistry_PublishToSubscriber(t *testing.T) {
	r := NewRegistry()
	ch, cancel := r.Subscribe(2)
	defer cancel()

	r.Publish(2, testEvent(7))
	select {
	case evt := <-ch:
		if evt.NegotiationID != 7 {
			t.Errorf("got negotiation %d, want 7", evt.NegotiationID)
		}
	default:
		t.Fatal("expected buffered event")
	}
}

func TestRegistry_PublishToOtherUserNotDelivered(t *testing.T) {
	r := NewRegistry()
	ch, cancel := r.Subscribe(2)
	defer cancel()

	r.Publish(3, testEvent(1))
	select {
	case evt := <-ch:
		t.Fatalf("unexpected event for other user: %+v", evt)
	default:
	}
}

func TestRegistry_MultipleSubscriptionsPerUser(t *testing.T) {
	r := NewRegistry()
	ch1, cancel1 := r.Subscribe(5)
	ch2, cancel2 := r.Subscribe(5)
	defer cancel1()
	defer cancel2()

	if got := r.Subscribers(5); got != 2 {
		t.Fatalf("Subscribers = %d, want 2", got)
	}
	r.Publish(5, testEvent(1))
	if len(ch1) != 1 || len(ch2) != 1 {
		t.Errorf("fanout lens = %d/%d, want 1/1", len(ch1), len(ch2))
	}
}

func TestRegistry_CancelClosesAndRemoves(t *testing.T) {
	r := NewRegistry()
	ch, cancel := r.Subscribe(5)
	cancel()

	if _, open := <-ch; open {
		t.Error("channel should be closed after cancel")
	}
	if got := r.Subscribers(5); got != 0 {
		t.Errorf("Subscribers = %d, want 0", got)
	}
	// Double cancel must be safe.
	cancel()
	// Publishing to a user with no subscribers is a no-op.
	r.Publish(5, testEvent(1))
}

func TestRegistry_SlowSubscriberDropsNotBlocks(t *testing.T) {
	r := NewRegistry()
	ch, cancel := r.Subscribe(9)
	defer cancel()

	// Overfill the buffer; extra events are dropped, Publish never blocks.
	for i := 0; i < subscriberBuffer+10; i++ {
		r.Publish(9, testEvent(uint(i+1)))
	}
	if len(ch) != subscriberBuffer {
		t.Errorf("buffered = %d, want %d", len(ch), subscriberBuffer)
	}
}
