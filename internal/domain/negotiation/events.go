package negotiation

import (
	"time"

	"slotmarket/internal/domain/shared/money"
	"slotmarket/internal/domain/slot"
)

type RequestOpened struct {
	RequestID   RequestID
	SlotID      slot.SlotID
	RequesterID string
	ProviderID  string
	At          time.Time
}

func (e RequestOpened) EventName() string     { return "negotiation.request_opened" }
func (e RequestOpened) AggregateID() string   { return string(e.RequestID) }
func (e RequestOpened) OccurredAt() time.Time { return e.At }

type NegotiationStarted struct {
	RequestID RequestID
	At        time.Time
}

func (e NegotiationStarted) EventName() string     { return "negotiation.started" }
func (e NegotiationStarted) AggregateID() string   { return string(e.RequestID) }
func (e NegotiationStarted) OccurredAt() time.Time { return e.At }

type ProposalSubmitted struct {
	RequestID   RequestID
	MessageID   MessageID
	SenderRole  Role
	DailyAmount money.Money
	TotalAmount money.Money
	WorkPeriod  int
	At          time.Time
}

func (e ProposalSubmitted) EventName() string     { return "negotiation.proposal_submitted" }
func (e ProposalSubmitted) AggregateID() string   { return string(e.RequestID) }
func (e ProposalSubmitted) OccurredAt() time.Time { return e.At }

type NegotiationAccepted struct {
	RequestID RequestID
	At        time.Time
}

func (e NegotiationAccepted) EventName() string     { return "negotiation.accepted" }
func (e NegotiationAccepted) AggregateID() string   { return string(e.RequestID) }
func (e NegotiationAccepted) OccurredAt() time.Time { return e.At }

type NegotiationFinalized struct {
	RequestID   RequestID
	SlotID      slot.SlotID
	DailyAmount money.Money
	TotalAmount money.Money
	WorkPeriod  int
	At          time.Time
}

func (e NegotiationFinalized) EventName() string     { return "negotiation.finalized" }
func (e NegotiationFinalized) AggregateID() string   { return string(e.RequestID) }
func (e NegotiationFinalized) OccurredAt() time.Time { return e.At }

type NegotiationRejected struct {
	RequestID RequestID
	Reason    string
	At        time.Time
}

func (e NegotiationRejected) EventName() string     { return "negotiation.rejected" }
func (e NegotiationRejected) AggregateID() string   { return string(e.RequestID) }
func (e NegotiationRejected) OccurredAt() time.Time { return e.At }

type RenegotiationRequested struct {
	RequestID RequestID
	At        time.Time
}

func (e RenegotiationRequested) EventName() string     { return "negotiation.renegotiation_requested" }
func (e RenegotiationRequested) AggregateID() string   { return string(e.RequestID) }
func (e RenegotiationRequested) OccurredAt() time.Time { return e.At }
