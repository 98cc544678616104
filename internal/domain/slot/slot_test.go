package slot

import (
	"errors"
	"testing"
	"time"
)

var testNow = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func pendingSlot(t *testing.T) *Slot {
	t.Helper()
	s, err := NewSlot(CreateParams{
		ID:           "slot-1",
		ProviderID:   "seller-1",
		CampaignName: "spring-sale",
		Keyword:      "wireless earbuds",
		CreatedAt:    testNow,
	})
	if err != nil {
		t.Fatalf("NewSlot: %v", err)
	}
	return s
}

func TestNewSlot(t *testing.T) {
	tests := []struct {
		name    string
		params  CreateParams
		wantErr error
	}{
		{"missing provider", CreateParams{CampaignName: "c", Keyword: "k"}, ErrProviderRequired},
		{"missing campaign", CreateParams{ProviderID: "p", Keyword: "k"}, ErrCampaignRequired},
		{"missing keyword", CreateParams{ProviderID: "p", CampaignName: "c"}, ErrKeywordRequired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewSlot(tt.params); !errors.Is(err, tt.wantErr) {
				t.Fatalf("NewSlot() = %v, want %v", err, tt.wantErr)
			}
		})
	}

	s := pendingSlot(t)
	if s.State != StatePending {
		t.Fatalf("state = %s, want %s", s.State, StatePending)
	}
	if len(s.PendingEvents()) != 1 {
		t.Fatalf("pending events = %d, want 1", len(s.PendingEvents()))
	}
}

func TestSlotApprovalFlow(t *testing.T) {
	s := pendingSlot(t)
	if err := s.Approve("admin-1", "looks good", testNow); err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if s.State != StateApproved {
		t.Fatalf("state = %s, want %s", s.State, StateApproved)
	}
	if err := s.Approve("admin-1", "", testNow); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("second Approve = %v, want %v", err, ErrInvalidState)
	}
}

func TestSlotRejectRequiresReason(t *testing.T) {
	s := pendingSlot(t)
	if err := s.Reject("admin-1", "  ", testNow); !errors.Is(err, ErrReasonRequired) {
		t.Fatalf("Reject without reason = %v, want %v", err, ErrReasonRequired)
	}
	if err := s.Reject("admin-1", "keyword too broad", testNow); err != nil {
		t.Fatalf("Reject: %v", err)
	}
	if s.State != StateRejected || s.ReviewNote != "keyword too broad" {
		t.Fatalf("state/note = %s/%q", s.State, s.ReviewNote)
	}
}

func TestSlotServingLifecycle(t *testing.T) {
	s := pendingSlot(t)

	if err := s.GoLive(testNow); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("GoLive from pending = %v, want %v", err, ErrInvalidState)
	}

	if err := s.Approve("admin-1", "", testNow); err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if err := s.End(testNow); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("End from approved = %v, want %v", err, ErrInvalidState)
	}
	if err := s.GoLive(testNow); err != nil {
		t.Fatalf("GoLive: %v", err)
	}
	if s.State != StateLive {
		t.Fatalf("state = %s, want %s", s.State, StateLive)
	}
	if err := s.End(testNow); err != nil {
		t.Fatalf("End: %v", err)
	}
	if s.State != StateEnded {
		t.Fatalf("state = %s, want %s", s.State, StateEnded)
	}
	if err := s.GoLive(testNow); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("GoLive after end = %v, want %v", err, ErrInvalidState)
	}
}
