package negotiation

import (
	"context"
	"errors"
	"strings"
	"time"

	"slotmarket/internal/domain/shared/events"
	"slotmarket/internal/domain/shared/money"
	"slotmarket/internal/domain/slot"
)

var (
	ErrRequestNotFound   = errors.New("negotiation: request not found")
	ErrInvalidTransition = errors.New("negotiation: invalid status transition")
	ErrPartiesRequired   = errors.New("negotiation: requester and provider ids required")
	ErrSameParty         = errors.New("negotiation: requester and provider must differ")
	ErrFinalTermsMissing = errors.New("negotiation: final terms required to purchase")
	ErrNotParticipant    = errors.New("negotiation: sender is not a thread participant")
	ErrActionNotAllowed  = errors.New("negotiation: action not permitted in current thread state")
)

type RequestID string

// RequestStatus is the externally visible lifecycle of a guarantee request.
type RequestStatus string

const (
	StatusRequested   RequestStatus = "requested"
	StatusNegotiating RequestStatus = "negotiating"
	StatusAccepted    RequestStatus = "accepted"
	StatusRejected    RequestStatus = "rejected"
	StatusPurchased   RequestStatus = "purchased"
)

// Request holds the originating terms of a guaranteed-slot purchase and the
// negotiation status driven by the thread. The thread shares the request id.
type Request struct {
	ID              RequestID
	SlotID          slot.SlotID
	RequesterID     string
	ProviderID      string
	TargetRank      int
	GuaranteeCount  int
	GuaranteePeriod int
	InitialBudget   money.Money
	BudgetType      BudgetType
	Status          RequestStatus
	FinalTerms      *Terms
	CreatedAt       time.Time
	UpdatedAt       time.Time
	Version         int64
	events.EventRecorder
}

// Thread returns the negotiation thread identifier for this request.
func (r *Request) Thread() ThreadID {
	return ThreadID(r.ID)
}

// RoleOf maps a party id onto its negotiation role, or "" for strangers.
func (r *Request) RoleOf(partyID string) Role {
	switch partyID {
	case r.RequesterID:
		return RoleRequester
	case r.ProviderID:
		return RoleProvider
	default:
		return ""
	}
}

type CreateRequestParams struct {
	ID              RequestID
	SlotID          slot.SlotID
	RequesterID     string
	ProviderID      string
	TargetRank      int
	GuaranteeCount  int
	GuaranteePeriod int
	InitialBudget   money.Money
	BudgetType      BudgetType
	CreatedAt       time.Time
}

// NewRequest opens a negotiation in the requested state.
func NewRequest(params CreateRequestParams) (*Request, error) {
	requester := strings.TrimSpace(params.RequesterID)
	provider := strings.TrimSpace(params.ProviderID)
	if requester == "" || provider == "" {
		return nil, ErrPartiesRequired
	}
	if requester == provider {
		return nil, ErrSameParty
	}
	if params.GuaranteeCount <= 0 {
		return nil, ErrGuaranteeRequired
	}
	if params.GuaranteePeriod > 0 && params.GuaranteePeriod < params.GuaranteeCount {
		return nil, ErrPeriodTooShort
	}
	budgetType := params.BudgetType
	if budgetType == "" {
		budgetType = BudgetDaily
	}
	now := params.CreatedAt
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()
	r := &Request{
		ID:              params.ID,
		SlotID:          params.SlotID,
		RequesterID:     requester,
		ProviderID:      provider,
		TargetRank:      params.TargetRank,
		GuaranteeCount:  params.GuaranteeCount,
		GuaranteePeriod: params.GuaranteePeriod,
		InitialBudget:   params.InitialBudget,
		BudgetType:      budgetType,
		Status:          StatusRequested,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	r.Record(RequestOpened{RequestID: r.ID, SlotID: r.SlotID, RequesterID: requester, ProviderID: provider, At: now})
	return r, nil
}

// BeginNegotiation moves a fresh request into active negotiation. Called when
// the first proposal or renegotiation lands; a no-op when already negotiating.
func (r *Request) BeginNegotiation(now time.Time) error {
	switch r.Status {
	case StatusNegotiating:
		return nil
	case StatusRequested, StatusAccepted:
	default:
		return ErrInvalidTransition
	}
	r.Status = StatusNegotiating
	r.UpdatedAt = now.UTC()
	r.Record(NegotiationStarted{RequestID: r.ID, At: r.UpdatedAt})
	return nil
}

// MarkAccepted records mutual acceptance of the current terms.
func (r *Request) MarkAccepted(now time.Time) error {
	if r.Status != StatusRequested && r.Status != StatusNegotiating {
		return ErrInvalidTransition
	}
	r.Status = StatusAccepted
	r.UpdatedAt = now.UTC()
	r.Record(NegotiationAccepted{RequestID: r.ID, At: r.UpdatedAt})
	return nil
}

// Purchase records the binding agreement. Permitted from the accepted state
// (the regular dual-acceptance path) and from negotiating, which covers the
// provider finalizing in the same call that observed dual acceptance.
func (r *Request) Purchase(terms Terms, now time.Time) error {
	if r.Status != StatusAccepted && r.Status != StatusNegotiating {
		return ErrInvalidTransition
	}
	if !terms.TotalAmount.IsPositive() {
		return ErrFinalTermsMissing
	}
	t := terms
	r.FinalTerms = &t
	r.Status = StatusPurchased
	r.UpdatedAt = now.UTC()
	r.Record(NegotiationFinalized{
		RequestID:   r.ID,
		SlotID:      r.SlotID,
		DailyAmount: terms.DailyAmount,
		TotalAmount: terms.TotalAmount,
		WorkPeriod:  terms.WorkPeriod,
		At:          r.UpdatedAt,
	})
	return nil
}

// Reject closes the negotiation without agreement.
func (r *Request) Reject(reason string, now time.Time) error {
	switch r.Status {
	case StatusRequested, StatusNegotiating, StatusAccepted:
	default:
		return ErrInvalidTransition
	}
	r.Status = StatusRejected
	r.UpdatedAt = now.UTC()
	r.Record(NegotiationRejected{RequestID: r.ID, Reason: reason, At: r.UpdatedAt})
	return nil
}

// Reopen reverts an accepted request back to negotiating after a
// renegotiation marker.
func (r *Request) Reopen(now time.Time) error {
	if r.Status != StatusAccepted && r.Status != StatusNegotiating {
		return ErrInvalidTransition
	}
	r.Status = StatusNegotiating
	r.UpdatedAt = now.UTC()
	r.Record(RenegotiationRequested{RequestID: r.ID, At: r.UpdatedAt})
	return nil
}

// Repository persists negotiation requests.
type Repository interface {
	ByID(ctx context.Context, id RequestID) (*Request, error)
	Save(ctx context.Context, request *Request) error
	ListByParty(ctx context.Context, partyID string) ([]*Request, error)
	ListByStatus(ctx context.Context, status RequestStatus) ([]*Request, error)
}
