package feed

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"slotmarket/internal/app/dto"
)

var ErrPollerNotConfigured = errors.New("feed: poller missing dependencies")

// Source fetches thread messages created after the given watermark.
type Source interface {
	Fetch(ctx context.Context, requestID, viewerID string, after time.Time, limit int) (dto.ThreadFeed, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context, requestID, viewerID string, after time.Time, limit int) (dto.ThreadFeed, error)

func (f SourceFunc) Fetch(ctx context.Context, requestID, viewerID string, after time.Time, limit int) (dto.ThreadFeed, error) {
	return f(ctx, requestID, viewerID, after, limit)
}

// Poller periodically fetches new thread messages and merges them into a
// local view. Messages already present are skipped so that delayed or
// overlapping fetches never duplicate or reorder entries the caller has
// already seen.
type Poller struct {
	Source   Source
	Interval time.Duration
	Limit    int
	Logger   *slog.Logger

	RequestID string
	ViewerID  string

	// OnUpdate fires after a tick that appended at least one message. The
	// slice is a snapshot the callback may keep.
	OnUpdate func(items []dto.FeedMessage)

	mu        sync.Mutex
	items     []dto.FeedMessage
	seen      map[string]struct{}
	watermark time.Time
}

// Run polls until the context is cancelled. Fetch errors are logged and the
// loop keeps going; the next tick retries from the same watermark.
func (p *Poller) Run(ctx context.Context) error {
	if p.Source == nil || p.RequestID == "" {
		return ErrPollerNotConfigured
	}
	ticker := time.NewTicker(p.interval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := p.pollOnce(ctx); err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return err
				}
				p.logger().WarnContext(ctx, "feed poll failed",
					slog.String("request_id", p.RequestID),
					slog.Any("error", err))
			}
		}
	}
}

func (p *Poller) pollOnce(ctx context.Context) error {
	p.mu.Lock()
	after := p.watermark
	p.mu.Unlock()

	batch, err := p.Source.Fetch(ctx, p.RequestID, p.ViewerID, after, p.Limit)
	if err != nil {
		return err
	}

	p.mu.Lock()
	appended := p.mergeLocked(batch)
	var snapshot []dto.FeedMessage
	if appended > 0 && p.OnUpdate != nil {
		snapshot = p.snapshotLocked()
	}
	p.mu.Unlock()

	if snapshot != nil {
		p.OnUpdate(snapshot)
	}
	return nil
}

// Seed installs an initial message set, typically the full history loaded
// before polling starts.
func (p *Poller) Seed(items []dto.FeedMessage) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.mergeLocked(dto.ThreadFeed{Items: items})
}

// Snapshot returns a copy of the merged view.
func (p *Poller) Snapshot() []dto.FeedMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshotLocked()
}

// Watermark returns the newest message time observed so far.
func (p *Poller) Watermark() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.watermark
}

// mergeLocked appends unseen messages in batch order. Existing entries keep
// their position; a message with a known id is dropped even if its payload
// changed.
func (p *Poller) mergeLocked(batch dto.ThreadFeed) int {
	if p.seen == nil {
		p.seen = make(map[string]struct{})
	}
	appended := 0
	for _, item := range batch.Items {
		if _, ok := p.seen[item.ID]; ok {
			continue
		}
		p.seen[item.ID] = struct{}{}
		p.items = append(p.items, item)
		appended++
		if item.CreatedAt.After(p.watermark) {
			p.watermark = item.CreatedAt
		}
	}
	if batch.Watermark.After(p.watermark) {
		p.watermark = batch.Watermark
	}
	return appended
}

func (p *Poller) snapshotLocked() []dto.FeedMessage {
	out := make([]dto.FeedMessage, len(p.items))
	copy(out, p.items)
	return out
}

func (p *Poller) interval() time.Duration {
	if p.Interval <= 0 {
		return 2 * time.Second
	}
	return p.Interval
}

func (p *Poller) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}
