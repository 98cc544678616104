package slot

import (
	"context"
	"errors"
	"strings"
	"time"

	"slotmarket/internal/domain/shared/events"
)

var (
	ErrSlotNotFound     = errors.New("slot: not found")
	ErrInvalidState     = errors.New("slot: invalid state transition")
	ErrProviderRequired = errors.New("slot: provider id is required")
	ErrCampaignRequired = errors.New("slot: campaign name is required")
	ErrKeywordRequired  = errors.New("slot: keyword is required")
	ErrReasonRequired   = errors.New("slot: rejection reason is required")
)

type SlotID string

// SlotState is the approval lifecycle of a campaign slot submission.
type SlotState string

const (
	StatePending  SlotState = "PENDING"
	StateApproved SlotState = "APPROVED"
	StateRejected SlotState = "REJECTED"
	StateLive     SlotState = "LIVE"
	StateEnded    SlotState = "ENDED"
)

// Slot is a campaign slot submitted by a provider for admin review.
type Slot struct {
	ID           SlotID
	ProviderID   string
	CampaignName string
	Keyword      string
	ProductURL   string
	ReviewNote   string
	State        SlotState
	StartDate    time.Time
	EndDate      time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Version      int64
	events.EventRecorder
}

type CreateParams struct {
	ID           SlotID
	ProviderID   string
	CampaignName string
	Keyword      string
	ProductURL   string
	StartDate    time.Time
	EndDate      time.Time
	CreatedAt    time.Time
}

// NewSlot builds a pending submission.
func NewSlot(params CreateParams) (*Slot, error) {
	provider := strings.TrimSpace(params.ProviderID)
	if provider == "" {
		return nil, ErrProviderRequired
	}
	campaign := strings.TrimSpace(params.CampaignName)
	if campaign == "" {
		return nil, ErrCampaignRequired
	}
	keyword := strings.TrimSpace(params.Keyword)
	if keyword == "" {
		return nil, ErrKeywordRequired
	}
	now := params.CreatedAt
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()
	s := &Slot{
		ID:           params.ID,
		ProviderID:   provider,
		CampaignName: campaign,
		Keyword:      keyword,
		ProductURL:   strings.TrimSpace(params.ProductURL),
		State:        StatePending,
		StartDate:    params.StartDate,
		EndDate:      params.EndDate,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.Record(SlotSubmitted{SlotID: s.ID, ProviderID: provider, CampaignName: campaign, At: now})
	return s, nil
}

// Approve marks the submission reviewed and accepted.
func (s *Slot) Approve(reviewerID string, note string, now time.Time) error {
	if s.State != StatePending {
		return ErrInvalidState
	}
	s.State = StateApproved
	s.ReviewNote = strings.TrimSpace(note)
	s.UpdatedAt = now.UTC()
	s.Record(SlotApproved{SlotID: s.ID, ReviewerID: reviewerID, At: s.UpdatedAt})
	return nil
}

// Reject turns the submission down with a mandatory reason.
func (s *Slot) Reject(reviewerID string, reason string, now time.Time) error {
	if s.State != StatePending {
		return ErrInvalidState
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return ErrReasonRequired
	}
	s.State = StateRejected
	s.ReviewNote = reason
	s.UpdatedAt = now.UTC()
	s.Record(SlotRejected{SlotID: s.ID, ReviewerID: reviewerID, Reason: reason, At: s.UpdatedAt})
	return nil
}

// GoLive activates an approved slot once its campaign starts serving.
func (s *Slot) GoLive(now time.Time) error {
	if s.State != StateApproved {
		return ErrInvalidState
	}
	s.State = StateLive
	s.UpdatedAt = now.UTC()
	s.Record(SlotWentLive{SlotID: s.ID, At: s.UpdatedAt})
	return nil
}

// End closes out a live slot.
func (s *Slot) End(now time.Time) error {
	if s.State != StateLive {
		return ErrInvalidState
	}
	s.State = StateEnded
	s.UpdatedAt = now.UTC()
	s.Record(SlotEnded{SlotID: s.ID, At: s.UpdatedAt})
	return nil
}

// Repository persists slot submissions.
type Repository interface {
	ByID(ctx context.Context, id SlotID) (*Slot, error)
	Save(ctx context.Context, slot *Slot) error
	ListByState(ctx context.Context, state SlotState) ([]*Slot, error)
	ListByProvider(ctx context.Context, providerID string) ([]*Slot, error)
}
