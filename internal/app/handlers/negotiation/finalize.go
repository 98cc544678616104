package negotiation

import (
	"context"
	"fmt"
	"time"

	"slotmarket/internal/app/commands"
	"slotmarket/internal/app/middleware"
	"slotmarket/internal/app/outbox"
	"slotmarket/internal/app/uow"
	domainnegotiation "slotmarket/internal/domain/negotiation"
)

const finalizeKey = "negotiation.finalize"

// FinalizeCommand records the binding agreement. Only the provider may
// finalize, and only after both parties accepted the latest proposal.
type FinalizeCommand struct {
	CommandID       string
	RequestID       string
	SenderID        string
	IdempotencyKeyV string
}

func (c FinalizeCommand) Key() string { return finalizeKey }

func (c FinalizeCommand) IdempotencyKey() string { return c.IdempotencyKeyV }

func (c FinalizeCommand) ResultPrototype() any { return &FinalizeResult{} }

type FinalizeResult struct {
	RequestID string                          `json:"request_id"`
	Terms     domainnegotiation.Terms         `json:"terms"`
	Status    domainnegotiation.RequestStatus `json:"status"`
}

type FinalizeHandler struct {
	UoWFactory uow.UoWFactory
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
}

func (h *FinalizeHandler) Handle(ctx context.Context, cmd FinalizeCommand) (*FinalizeResult, error) {
	m, err := beginUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	result, err := h.handle(m.ctx, m.unit, cmd)
	return result, m.finish(err)
}

func (h *FinalizeHandler) handle(ctx context.Context, unit uow.UnitOfWork, cmd FinalizeCommand) (*FinalizeResult, error) {
	request, messages, err := loadThread(ctx, unit, domainnegotiation.RequestID(cmd.RequestID))
	if err != nil {
		return nil, err
	}
	role := request.RoleOf(cmd.SenderID)
	if role == "" {
		return nil, domainnegotiation.ErrNotParticipant
	}
	latest, _, action := domainnegotiation.Resolve(messages, role)
	if action != domainnegotiation.ActionFinalize {
		return nil, domainnegotiation.ErrActionNotAllowed
	}
	terms, err := domainnegotiation.FinalTerms(latest, request)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if err := request.Purchase(terms, now); err != nil {
		return nil, err
	}
	if err := unit.Requests().Save(ctx, request); err != nil {
		return nil, err
	}

	// explanatory follow-up so the thread itself records the agreement
	summary := fmt.Sprintf("guarantee confirmed: rank %d, %d slots over %d days, %d/day (%d total)",
		terms.TargetRank, terms.GuaranteeCount, terms.WorkPeriod,
		terms.DailyAmount.Amount, terms.TotalAmount.Amount)
	msg, err := domainnegotiation.NewMessage(domainnegotiation.NewMessageParams{
		ID:         domainnegotiation.MessageID(cmd.CommandID),
		ThreadID:   request.Thread(),
		SenderID:   cmd.SenderID,
		SenderRole: role,
		Kind:       domainnegotiation.KindPlain,
		Text:       summary,
		CreatedAt:  now,
	})
	if err != nil {
		return nil, err
	}
	if err := unit.Messages().Append(ctx, msg); err != nil {
		return nil, err
	}
	if err := drainEvents(ctx, h.Outbox, h.encoder(), request); err != nil {
		return nil, err
	}
	return &FinalizeResult{
		RequestID: string(request.ID),
		Terms:     terms,
		Status:    request.Status,
	}, nil
}

func (h *FinalizeHandler) encoder() outbox.EventEncoder {
	if h.Encoder != nil {
		return h.Encoder
	}
	return outbox.JSONEventEncoder{}
}

var _ commands.Handler[FinalizeCommand, *FinalizeResult] = (*FinalizeHandler)(nil)
var _ middleware.IdempotentCommand = (*FinalizeCommand)(nil)
