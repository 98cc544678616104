package feed

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"slotmarket/internal/app/dto"
)

var pollBase = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func feedItem(id string, minute int) dto.FeedMessage {
	return dto.FeedMessage{
		ID:        id,
		ThreadID:  "req-1",
		SenderID:  "buyer-1",
		Kind:      "plain_message",
		Text:      "hello " + id,
		CreatedAt: pollBase.Add(time.Duration(minute) * time.Minute),
	}
}

func TestPollerRequiresSource(t *testing.T) {
	p := &Poller{RequestID: "req-1"}
	if err := p.Run(context.Background()); !errors.Is(err, ErrPollerNotConfigured) {
		t.Fatalf("Run() = %v, want %v", err, ErrPollerNotConfigured)
	}
}

func TestSeedDeduplicates(t *testing.T) {
	p := &Poller{}
	p.Seed([]dto.FeedMessage{feedItem("m1", 0), feedItem("m2", 1)})
	p.Seed([]dto.FeedMessage{feedItem("m2", 1), feedItem("m3", 2)})

	got := p.Snapshot()
	if len(got) != 3 {
		t.Fatalf("snapshot length = %d, want 3", len(got))
	}
	for i, want := range []string{"m1", "m2", "m3"} {
		if got[i].ID != want {
			t.Errorf("snapshot[%d] = %s, want %s", i, got[i].ID, want)
		}
	}
	if !p.Watermark().Equal(pollBase.Add(2 * time.Minute)) {
		t.Errorf("watermark = %v, want %v", p.Watermark(), pollBase.Add(2*time.Minute))
	}
}

func TestSeedKeepsFirstOccurrence(t *testing.T) {
	p := &Poller{}
	p.Seed([]dto.FeedMessage{feedItem("m1", 0)})

	changed := feedItem("m1", 0)
	changed.Text = "edited"
	p.Seed([]dto.FeedMessage{changed})

	got := p.Snapshot()
	if len(got) != 1 {
		t.Fatalf("snapshot length = %d, want 1", len(got))
	}
	if got[0].Text != "hello m1" {
		t.Errorf("text = %q, the first occurrence must win", got[0].Text)
	}
}

func TestPollerMergesOverlappingBatches(t *testing.T) {
	var calls atomic.Int64
	source := SourceFunc(func(ctx context.Context, requestID, viewerID string, after time.Time, limit int) (dto.ThreadFeed, error) {
		// every batch overlaps the previous one, as a real poll after a
		// conservative watermark would
		switch calls.Add(1) {
		case 1:
			return dto.ThreadFeed{Items: []dto.FeedMessage{feedItem("m1", 0), feedItem("m2", 1)}}, nil
		case 2:
			return dto.ThreadFeed{Items: []dto.FeedMessage{feedItem("m2", 1), feedItem("m3", 2)}}, nil
		default:
			return dto.ThreadFeed{}, nil
		}
	})

	updates := make(chan []dto.FeedMessage, 8)
	p := &Poller{
		Source:    source,
		Interval:  time.Millisecond,
		RequestID: "req-1",
		ViewerID:  "buyer-1",
		OnUpdate:  func(items []dto.FeedMessage) { updates <- items },
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	var last []dto.FeedMessage
	for i := 0; i < 2; i++ {
		select {
		case last = <-updates:
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for poll updates")
		}
	}
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("Run() = %v, want context.Canceled", err)
	}

	if len(last) != 3 {
		t.Fatalf("merged view has %d items, want 3: %+v", len(last), last)
	}
	for i, want := range []string{"m1", "m2", "m3"} {
		if last[i].ID != want {
			t.Errorf("merged[%d] = %s, want %s", i, last[i].ID, want)
		}
	}
}

func TestPollerKeepsGoingAfterFetchError(t *testing.T) {
	var calls atomic.Int64
	source := SourceFunc(func(ctx context.Context, requestID, viewerID string, after time.Time, limit int) (dto.ThreadFeed, error) {
		if calls.Add(1) == 1 {
			return dto.ThreadFeed{}, errors.New("transient")
		}
		return dto.ThreadFeed{Items: []dto.FeedMessage{feedItem("m1", 0)}}, nil
	})

	updates := make(chan []dto.FeedMessage, 1)
	p := &Poller{
		Source:    source,
		Interval:  time.Millisecond,
		RequestID: "req-1",
		OnUpdate:  func(items []dto.FeedMessage) { updates <- items },
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = p.Run(ctx) }()

	select {
	case got := <-updates:
		if len(got) != 1 || got[0].ID != "m1" {
			t.Fatalf("update after error = %+v, want [m1]", got)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("poller never recovered from the fetch error")
	}
}
