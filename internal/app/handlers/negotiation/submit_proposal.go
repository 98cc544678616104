package negotiation

import (
	"context"
	"time"

	"slotmarket/internal/app/commands"
	"slotmarket/internal/app/middleware"
	"slotmarket/internal/app/outbox"
	"slotmarket/internal/app/uow"
	domainnegotiation "slotmarket/internal/domain/negotiation"
	"slotmarket/internal/domain/shared/money"
)

const submitProposalKey = "negotiation.submit_proposal"

// SubmitProposalCommand appends a price_proposal or counter_offer. Terms are
// validated locally before any store write happens.
type SubmitProposalCommand struct {
	CommandID       string
	RequestID       string
	SenderID        string
	Text            string
	DailyAmount     int64
	TotalAmount     int64
	GuaranteeCount  int
	TargetRank      int
	WorkPeriod      int
	BudgetType      domainnegotiation.BudgetType
	CounterOffer    bool
	IdempotencyKeyV string
}

func (c SubmitProposalCommand) Key() string { return submitProposalKey }

func (c SubmitProposalCommand) IdempotencyKey() string { return c.IdempotencyKeyV }

func (c SubmitProposalCommand) ResultPrototype() any { return &SubmitMessageResult{} }

type SubmitProposalHandler struct {
	UoWFactory uow.UoWFactory
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
}

func (h *SubmitProposalHandler) Handle(ctx context.Context, cmd SubmitProposalCommand) (*SubmitMessageResult, error) {
	proposal := domainnegotiation.Proposal{
		DailyAmount:    money.Won(cmd.DailyAmount),
		TotalAmount:    money.Won(cmd.TotalAmount),
		GuaranteeCount: cmd.GuaranteeCount,
		TargetRank:     cmd.TargetRank,
		WorkPeriod:     cmd.WorkPeriod,
		BudgetType:     cmd.BudgetType,
	}
	if err := proposal.Validate(); err != nil {
		return nil, err
	}

	m, err := beginUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	result, err := h.handle(m.ctx, m.unit, cmd, proposal)
	return result, m.finish(err)
}

func (h *SubmitProposalHandler) handle(ctx context.Context, unit uow.UnitOfWork, cmd SubmitProposalCommand, proposal domainnegotiation.Proposal) (*SubmitMessageResult, error) {
	request, err := unit.Requests().ByID(ctx, domainnegotiation.RequestID(cmd.RequestID))
	if err != nil {
		return nil, err
	}
	role := request.RoleOf(cmd.SenderID)
	if role == "" {
		return nil, domainnegotiation.ErrNotParticipant
	}

	now := time.Now().UTC()
	kind := domainnegotiation.KindPriceProposal
	if cmd.CounterOffer {
		kind = domainnegotiation.KindCounterOffer
	}
	msg, err := domainnegotiation.NewMessage(domainnegotiation.NewMessageParams{
		ID:         domainnegotiation.MessageID(cmd.CommandID),
		ThreadID:   request.Thread(),
		SenderID:   cmd.SenderID,
		SenderRole: role,
		Kind:       kind,
		Text:       cmd.Text,
		Proposal:   &proposal,
		CreatedAt:  now,
	})
	if err != nil {
		return nil, err
	}
	if err := unit.Messages().Append(ctx, msg); err != nil {
		return nil, err
	}

	if err := request.BeginNegotiation(now); err != nil {
		return nil, err
	}
	request.Record(domainnegotiation.ProposalSubmitted{
		RequestID:   request.ID,
		MessageID:   msg.ID,
		SenderRole:  role,
		DailyAmount: proposal.DailyAmount,
		TotalAmount: proposal.TotalAmount,
		WorkPeriod:  proposal.WorkPeriod,
		At:          now,
	})
	if err := unit.Requests().Save(ctx, request); err != nil {
		return nil, err
	}
	if err := drainEvents(ctx, h.Outbox, h.encoder(), request); err != nil {
		return nil, err
	}
	return newSubmitResult(msg), nil
}

func (h *SubmitProposalHandler) encoder() outbox.EventEncoder {
	if h.Encoder != nil {
		return h.Encoder
	}
	return outbox.JSONEventEncoder{}
}

var _ commands.Handler[SubmitProposalCommand, *SubmitMessageResult] = (*SubmitProposalHandler)(nil)
var _ middleware.IdempotentCommand = (*SubmitProposalCommand)(nil)
