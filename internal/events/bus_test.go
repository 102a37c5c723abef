package events

import "testing"

func TestPublishDeliversToEachSubscriber(t *testing.T) {
	b := NewBus[string](4)
	s1 := b.Subscribe()
	s2 := b.Subscribe()
	t.Cleanup(s1.Close)
	t.Cleanup(s2.Close)

	b.Publish("hello")

	for _, s := range []*Subscription[string]{s1, s2} {
		select {
		case v := <-s.C():
			if v != "hello" {
				t.Fatalf("got %q, want hello", v)
			}
		default:
			t.Fatal("expected a queued value")
		}
	}
}

func TestPublishDropsOldestWhenFull(t *testing.T) {
	b := NewBus[int](1)
	s := b.Subscribe()
	t.Cleanup(s.Close)

	b.Publish(1)
	b.Publish(2)
	b.Publish(3)

	select {
	case v := <-s.C():
		if v != 3 {
			t.Fatalf("got %d, want 3 (oldest dropped)", v)
		}
	default:
		t.Fatal("expected a queued value")
	}

	select {
	case v := <-s.C():
		t.Fatalf("unexpected second value %v, capacity is 1", v)
	default:
	}
}

func TestPublishNeverBlocksOnFullUnreadChannel(t *testing.T) {
	b := NewBus[int](1)
	s := b.Subscribe()
	t.Cleanup(s.Close)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			b.Publish(i)
		}
		close(done)
	}()
	<-done
}

func TestCloseDetachesSubscriber(t *testing.T) {
	b := NewBus[int](1)
	s := b.Subscribe()
	if got := b.SubscriberCount(); got != 1 {
		t.Fatalf("SubscriberCount = %d, want 1", got)
	}
	s.Close()
	if got := b.SubscriberCount(); got != 0 {
		t.Fatalf("SubscriberCount after Close = %d, want 0", got)
	}
	b.Publish(42) // must not panic or deliver to the closed subscription
}
