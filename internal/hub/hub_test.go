package hub

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"bobbin/internal/logevent"
)

func testEvent(message string) logevent.Event {
	return logevent.Event{
		Identifier: "WCCILpmon",
		Timestamp:  "2024.03.15 09:30:00.125",
		Scope:      "SYS",
		Severity:   logevent.SeverityInfo,
		Message:    message,
		RawLines:   []string{message},
	}
}

func TestPublishAssignsMonotonicSequences(t *testing.T) {
	h := New(8)
	h.Publish(testEvent("first"))
	h.Publish(testEvent("second"))

	entries, next := h.Tail(10)
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Seq != 1 || entries[1].Seq != 2 {
		t.Fatalf("unexpected sequences: %d, %d", entries[0].Seq, entries[1].Seq)
	}
	if next != 2 {
		t.Fatalf("expected next sequence 2, got %d", next)
	}
}

func TestRingDropsOldestWhenFull(t *testing.T) {
	h := New(3)
	for i := 1; i <= 5; i++ {
		h.Publish(testEvent(fmt.Sprintf("event %d", i)))
	}

	entries, _ := h.Tail(10)
	if len(entries) != 3 {
		t.Fatalf("expected 3 buffered entries, got %d", len(entries))
	}
	if entries[0].Event.Message != "event 3" || entries[2].Event.Message != "event 5" {
		t.Fatalf("unexpected window: %q .. %q", entries[0].Event.Message, entries[2].Event.Message)
	}
	if entries[0].Seq != 3 {
		t.Fatalf("expected first buffered sequence 3, got %d", entries[0].Seq)
	}
}

func TestTailReturnsMostRecent(t *testing.T) {
	h := New(16)
	for i := 1; i <= 6; i++ {
		h.Publish(testEvent(fmt.Sprintf("event %d", i)))
	}

	entries, _ := h.Tail(2)
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Event.Message != "event 5" || entries[1].Event.Message != "event 6" {
		t.Fatalf("unexpected tail: %q, %q", entries[0].Event.Message, entries[1].Event.Message)
	}
}

func TestFetchReturnsEntriesAfterSince(t *testing.T) {
	h := New(16)
	for i := 1; i <= 4; i++ {
		h.Publish(testEvent(fmt.Sprintf("event %d", i)))
	}

	entries, next, err := h.Fetch(context.Background(), 2, 10, false)
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries after seq 2, got %d", len(entries))
	}
	if entries[0].Seq != 3 || entries[1].Seq != 4 {
		t.Fatalf("unexpected sequences: %d, %d", entries[0].Seq, entries[1].Seq)
	}
	if next != 4 {
		t.Fatalf("expected next 4, got %d", next)
	}
}

func TestFetchWithoutWaitReturnsEmptyWhenCaughtUp(t *testing.T) {
	h := New(16)
	h.Publish(testEvent("only"))

	entries, next, err := h.Fetch(context.Background(), 1, 10, false)
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no entries, got %d", len(entries))
	}
	if next != 1 {
		t.Fatalf("expected next 1, got %d", next)
	}
}

func TestFetchWaitWakesOnPublish(t *testing.T) {
	h := New(8)
	type result struct {
		entries []Entry
		err     error
	}
	done := make(chan result, 1)
	go func() {
		entries, _, err := h.Fetch(context.Background(), 0, 10, true)
		done <- result{entries: entries, err: err}
	}()

	// Give the fetcher a moment to block before publishing.
	time.Sleep(20 * time.Millisecond)
	h.Publish(testEvent("wake"))

	select {
	case res := <-done:
		if res.err != nil {
			t.Fatalf("Fetch returned error: %v", res.err)
		}
		if len(res.entries) != 1 || res.entries[0].Event.Message != "wake" {
			t.Fatalf("unexpected entries: %+v", res.entries)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Fetch did not wake after publish")
	}
}

func TestFetchWaitHonorsContextCancel(t *testing.T) {
	h := New(8)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, _, err := h.Fetch(ctx, 0, 10, true)
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Fetch did not observe cancellation")
	}
}

type recordingSink struct {
	mu      sync.Mutex
	entries []Entry
}

func (s *recordingSink) Consume(entry Entry) {
	s.mu.Lock()
	s.entries = append(s.entries, entry)
	s.mu.Unlock()
}

func (s *recordingSink) snapshot() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Entry(nil), s.entries...)
}

func TestSinksReceiveEveryEntry(t *testing.T) {
	h := New(2)
	sink := &recordingSink{}
	h.AddSink(sink)

	// More events than the ring holds; the sink still sees all of them.
	for i := 1; i <= 4; i++ {
		h.Publish(testEvent(fmt.Sprintf("event %d", i)))
	}

	got := sink.snapshot()
	if len(got) != 4 {
		t.Fatalf("expected sink to receive 4 entries, got %d", len(got))
	}
	for i, entry := range got {
		if entry.Seq != uint64(i+1) {
			t.Fatalf("entry %d has sequence %d", i, entry.Seq)
		}
	}
}

func TestNilHubIsSafe(t *testing.T) {
	var h *Hub
	h.Publish(testEvent("ignored"))
	h.AddSink(&recordingSink{})
	if entries, _ := h.Tail(5); entries != nil {
		t.Fatalf("expected nil entries from nil hub, got %v", entries)
	}
	if _, _, err := h.Fetch(context.Background(), 0, 5, false); err != nil {
		t.Fatalf("nil hub Fetch returned error: %v", err)
	}
}
