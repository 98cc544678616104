package negotiation

import (
	"errors"
	"testing"
	"time"

	"slotmarket/internal/domain/shared/money"
)

func validRequestParams() CreateRequestParams {
	return CreateRequestParams{
		ID:              "req-1",
		SlotID:          "slot-1",
		RequesterID:     "buyer-1",
		ProviderID:      "seller-1",
		TargetRank:      3,
		GuaranteeCount:  5,
		GuaranteePeriod: 10,
		InitialBudget:   money.Won(50000),
		BudgetType:      BudgetDaily,
		CreatedAt:       time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
}

func TestNewRequest(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(p *CreateRequestParams)
		wantErr error
	}{
		{"valid", func(p *CreateRequestParams) {}, nil},
		{"missing requester", func(p *CreateRequestParams) { p.RequesterID = "  " }, ErrPartiesRequired},
		{"missing provider", func(p *CreateRequestParams) { p.ProviderID = "" }, ErrPartiesRequired},
		{"same party", func(p *CreateRequestParams) { p.ProviderID = p.RequesterID }, ErrSameParty},
		{"guarantee zero", func(p *CreateRequestParams) { p.GuaranteeCount = 0 }, ErrGuaranteeRequired},
		{"period shorter than guarantee", func(p *CreateRequestParams) { p.GuaranteePeriod = 3 }, ErrPeriodTooShort},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := validRequestParams()
			tt.mutate(&params)
			request, err := NewRequest(params)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("NewRequest() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr != nil {
				return
			}
			if request.Status != StatusRequested {
				t.Errorf("status = %s, want %s", request.Status, StatusRequested)
			}
			if len(request.PendingEvents()) != 1 {
				t.Errorf("pending events = %d, want 1", len(request.PendingEvents()))
			}
		})
	}
}

func TestNewRequestDefaultsBudgetType(t *testing.T) {
	params := validRequestParams()
	params.BudgetType = ""
	request, err := NewRequest(params)
	if err != nil {
		t.Fatalf("NewRequest() error = %v", err)
	}
	if request.BudgetType != BudgetDaily {
		t.Fatalf("budget type = %s, want %s", request.BudgetType, BudgetDaily)
	}
}

func TestRequestThreadSharesID(t *testing.T) {
	request, err := NewRequest(validRequestParams())
	if err != nil {
		t.Fatalf("NewRequest() error = %v", err)
	}
	if request.Thread() != ThreadID(request.ID) {
		t.Fatalf("Thread() = %s, want %s", request.Thread(), request.ID)
	}
}

func TestRequestRoleOf(t *testing.T) {
	request, _ := NewRequest(validRequestParams())
	if got := request.RoleOf("buyer-1"); got != RoleRequester {
		t.Errorf("RoleOf(buyer) = %s, want %s", got, RoleRequester)
	}
	if got := request.RoleOf("seller-1"); got != RoleProvider {
		t.Errorf("RoleOf(seller) = %s, want %s", got, RoleProvider)
	}
	if got := request.RoleOf("stranger"); got != "" {
		t.Errorf("RoleOf(stranger) = %q, want empty", got)
	}
}

func TestRequestLifecycle(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	terms := Terms{
		DailyAmount: money.Won(90000),
		TotalAmount: money.Won(900000),
		WorkPeriod:  10,
		BudgetType:  BudgetDaily,
	}

	t.Run("happy path to purchased", func(t *testing.T) {
		request, _ := NewRequest(validRequestParams())
		if err := request.BeginNegotiation(now); err != nil {
			t.Fatalf("BeginNegotiation: %v", err)
		}
		if err := request.MarkAccepted(now); err != nil {
			t.Fatalf("MarkAccepted: %v", err)
		}
		if err := request.Purchase(terms, now); err != nil {
			t.Fatalf("Purchase: %v", err)
		}
		if request.Status != StatusPurchased {
			t.Fatalf("status = %s, want %s", request.Status, StatusPurchased)
		}
		if request.FinalTerms == nil || request.FinalTerms.TotalAmount.Amount != 900000 {
			t.Fatalf("final terms not recorded: %+v", request.FinalTerms)
		}
	})

	t.Run("begin negotiation twice is a no-op", func(t *testing.T) {
		request, _ := NewRequest(validRequestParams())
		_ = request.BeginNegotiation(now)
		if err := request.BeginNegotiation(now.Add(time.Hour)); err != nil {
			t.Fatalf("second BeginNegotiation: %v", err)
		}
	})

	t.Run("purchase straight from negotiating", func(t *testing.T) {
		request, _ := NewRequest(validRequestParams())
		_ = request.BeginNegotiation(now)
		if err := request.Purchase(terms, now); err != nil {
			t.Fatalf("Purchase from negotiating: %v", err)
		}
	})

	t.Run("purchase requires positive total", func(t *testing.T) {
		request, _ := NewRequest(validRequestParams())
		_ = request.BeginNegotiation(now)
		if err := request.Purchase(Terms{}, now); !errors.Is(err, ErrFinalTermsMissing) {
			t.Fatalf("Purchase(zero terms) = %v, want %v", err, ErrFinalTermsMissing)
		}
	})

	t.Run("purchased request is terminal", func(t *testing.T) {
		request, _ := NewRequest(validRequestParams())
		_ = request.BeginNegotiation(now)
		_ = request.Purchase(terms, now)
		if err := request.Reject("changed my mind", now); !errors.Is(err, ErrInvalidTransition) {
			t.Fatalf("Reject after purchase = %v, want %v", err, ErrInvalidTransition)
		}
		if err := request.Reopen(now); !errors.Is(err, ErrInvalidTransition) {
			t.Fatalf("Reopen after purchase = %v, want %v", err, ErrInvalidTransition)
		}
	})

	t.Run("reject closes from any open state", func(t *testing.T) {
		request, _ := NewRequest(validRequestParams())
		if err := request.Reject("no budget", now); err != nil {
			t.Fatalf("Reject from requested: %v", err)
		}
		if request.Status != StatusRejected {
			t.Fatalf("status = %s, want %s", request.Status, StatusRejected)
		}
		if err := request.BeginNegotiation(now); !errors.Is(err, ErrInvalidTransition) {
			t.Fatalf("BeginNegotiation after reject = %v, want %v", err, ErrInvalidTransition)
		}
	})

	t.Run("reopen reverts acceptance", func(t *testing.T) {
		request, _ := NewRequest(validRequestParams())
		_ = request.BeginNegotiation(now)
		_ = request.MarkAccepted(now)
		if err := request.Reopen(now); err != nil {
			t.Fatalf("Reopen: %v", err)
		}
		if request.Status != StatusNegotiating {
			t.Fatalf("status = %s, want %s", request.Status, StatusNegotiating)
		}
	})
}
