package bus

import (
	"testing"
	"time"
)

func TestBroadcastReachesAllSubscribers(t *testing.T) {
	b := NewBroker()
	a := b.Subscribe()
	c := b.Subscribe()
	defer b.Unsubscribe(a)
	defer b.Unsubscribe(c)

	b.Broadcast(Event{Name: "session_joined", Subject: "m1"})

	for _, ch := range []chan Event{a, c} {
		select {
		case ev := <-ch:
			if ev.Name != "session_joined" || ev.Subject != "m1" {
				t.Errorf("event = %+v", ev)
			}
			if ev.Timestamp.IsZero() {
				t.Error("broadcast must stamp a missing timestamp")
			}
		case <-time.After(time.Second):
			t.Fatal("subscriber never received the event")
		}
	}
}

func TestBroadcastNeverBlocksOnSlowSubscriber(t *testing.T) {
	b := NewBroker()
	slow := b.Subscribe()
	defer b.Unsubscribe(slow)

	// Nobody drains; well past the buffer size must still return.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 200; i++ {
			b.Broadcast(Event{Name: "audio_chunk_complete", Subject: "m1"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Broadcast blocked on a lagging subscriber")
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	b := NewBroker()
	ch := b.Subscribe()
	b.Unsubscribe(ch)

	if _, open := <-ch; open {
		t.Error("channel still open after Unsubscribe")
	}
	// Double unsubscribe is a no-op, not a panic.
	b.Unsubscribe(ch)

	b.Broadcast(Event{Name: "meeting_summary", Subject: "m1"})
}
