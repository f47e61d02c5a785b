package events_test

import (
	"testing"
	"time"

	"sbsconv/internal/events"
)

func TestFormatETA(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "00:00:00"},
		{-time.Second, "00:00:00"},
		{59 * time.Second, "00:00:59"},
		{61*time.Minute + 5*time.Second, "01:01:05"},
		{26*time.Hour + 1500*time.Millisecond, "26:00:02"},
	}
	for _, tt := range tests {
		if got := events.FormatETA(tt.in); got != tt.want {
			t.Fatalf("FormatETA(%s) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestProgressPercent(t *testing.T) {
	if (events.Progress{}).Percent() != 0 {
		t.Fatal("zero total should report 0%")
	}
	if got := (events.Progress{Done: 1, Total: 4}).Percent(); got != 25 {
		t.Fatalf("Percent = %v", got)
	}
}

func TestBusFanOutAndUnsubscribe(t *testing.T) {
	var first, second []events.Kind
	bus := events.NewBus(events.SinkFunc(func(e events.Event) { first = append(first, e.Kind) }))
	unsubscribe := bus.Subscribe(events.SinkFunc(func(e events.Event) { second = append(second, e.Kind) }))

	bus.Publish(events.Event{Kind: events.JobCompleted})
	unsubscribe()
	bus.Publish(events.Event{Kind: events.JobFailed})

	if len(first) != 2 {
		t.Fatalf("first sink got %v", first)
	}
	if len(second) != 1 || second[0] != events.JobCompleted {
		t.Fatalf("second sink got %v", second)
	}
}

func TestBusDrainReturnsRunFinished(t *testing.T) {
	ch := make(chan events.Event, 3)
	ch <- events.Event{Kind: events.JobCompleted}
	ch <- events.Event{Kind: events.RunFinished, Summary: events.Summary{Done: 1}}
	close(ch)

	count := 0
	bus := events.NewBus(events.SinkFunc(func(events.Event) { count++ }))
	last, ok := bus.Drain(ch)
	if !ok || last.Summary.Done != 1 {
		t.Fatalf("unexpected drain result: %+v %v", last, ok)
	}
	if count != 2 {
		t.Fatalf("expected 2 published events, got %d", count)
	}
}
