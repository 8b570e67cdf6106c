package events

import (
	"testing"
	"time"

	"toolscout/internal/core"
)

func collect(ch <-chan core.ProgressEvent) []core.ProgressEvent {
	var out []core.ProgressEvent
	for evt := range ch {
		out = append(out, evt)
	}
	return out
}

func TestPublishPreservesOrder(t *testing.T) {
	bus := NewBus(16)
	ch, cancel := bus.Subscribe()
	defer cancel()

	bus.Progress("one")
	bus.Progress("two")
	bus.Progress("three")
	bus.Complete("done")

	got := collect(ch)
	want := []string{"one", "two", "three", "done"}
	if len(got) != len(want) {
		t.Fatalf("expected %d events, got %d", len(want), len(got))
	}
	for i, msg := range want {
		if got[i].Message != msg {
			t.Errorf("event %d: expected %q, got %q", i, msg, got[i].Message)
		}
	}
	if got[len(got)-1].Type != core.EventComplete {
		t.Errorf("expected terminal complete event, got %q", got[len(got)-1].Type)
	}
}

func TestCompleteIsTerminal(t *testing.T) {
	bus := NewBus(16)
	ch, cancel := bus.Subscribe()
	defer cancel()

	bus.Progress("working")
	bus.Complete("done")
	bus.Progress("after the end")

	got := collect(ch)
	if len(got) != 2 {
		t.Fatalf("expected exactly 2 events, got %d", len(got))
	}
	if !bus.Finished() {
		t.Error("expected bus to report finished")
	}
	if len(bus.History()) != 2 {
		t.Errorf("post-terminal events must not enter history, got %d entries", len(bus.History()))
	}
}

func TestSubscribeReplaysHistory(t *testing.T) {
	bus := NewBus(16)

	bus.Progress("early")
	bus.Progress("also early")

	ch, cancel := bus.Subscribe()
	defer cancel()

	bus.Error("boom")

	got := collect(ch)
	if len(got) != 3 {
		t.Fatalf("expected history replay plus live event, got %d events", len(got))
	}
	if got[0].Message != "early" || got[2].Message != "boom" {
		t.Errorf("unexpected event sequence: %+v", got)
	}
}

func TestSubscribeAfterTerminal(t *testing.T) {
	bus := NewBus(16)
	bus.Complete("done")

	ch, cancel := bus.Subscribe()
	defer cancel()

	got := collect(ch)
	if len(got) != 1 || got[0].Type != core.EventComplete {
		t.Fatalf("late subscriber should see closed replay ending in complete, got %+v", got)
	}
}

func TestSlowSubscriberDoesNotBlock(t *testing.T) {
	bus := NewBus(1)
	_, cancel := bus.Subscribe()
	defer cancel()

	done := make(chan struct{})
	go func() {
		// Nobody drains the subscriber; publishing must still return.
		for i := 0; i < 50; i++ {
			bus.Progress("flood")
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
}

func TestReset(t *testing.T) {
	bus := NewBus(16)
	bus.Progress("old run")
	bus.Complete("old done")

	bus.Reset()

	if bus.Finished() {
		t.Error("expected finished flag cleared after reset")
	}
	if len(bus.History()) != 0 {
		t.Errorf("expected empty history after reset, got %d entries", len(bus.History()))
	}

	ch, cancel := bus.Subscribe()
	defer cancel()
	bus.Complete("new done")

	got := collect(ch)
	if len(got) != 1 || got[0].Message != "new done" {
		t.Errorf("unexpected events after reset: %+v", got)
	}
}

func TestCancelStopsDelivery(t *testing.T) {
	bus := NewBus(16)
	ch, cancel := bus.Subscribe()
	cancel()

	bus.Progress("never seen")

	if got := collect(ch); len(got) != 0 {
		t.Errorf("expected no events after cancel, got %+v", got)
	}
}
