package negotiation

import (
	"context"
	"time"

	"slotmarket/internal/app/commands"
	"slotmarket/internal/app/middleware"
	"slotmarket/internal/app/outbox"
	"slotmarket/internal/app/uow"
	domainnegotiation "slotmarket/internal/domain/negotiation"
)

const rejectKey = "negotiation.reject"

// RejectCommand closes the negotiation without agreement.
type RejectCommand struct {
	CommandID       string
	RequestID       string
	SenderID        string
	Reason          string
	IdempotencyKeyV string
}

func (c RejectCommand) Key() string { return rejectKey }

func (c RejectCommand) IdempotencyKey() string { return c.IdempotencyKeyV }

func (c RejectCommand) ResultPrototype() any { return &SubmitMessageResult{} }

type RejectHandler struct {
	UoWFactory uow.UoWFactory
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
}

func (h *RejectHandler) Handle(ctx context.Context, cmd RejectCommand) (*SubmitMessageResult, error) {
	m, err := beginUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	result, err := h.handle(m.ctx, m.unit, cmd)
	return result, m.finish(err)
}

func (h *RejectHandler) handle(ctx context.Context, unit uow.UnitOfWork, cmd RejectCommand) (*SubmitMessageResult, error) {
	request, err := unit.Requests().ByID(ctx, domainnegotiation.RequestID(cmd.RequestID))
	if err != nil {
		return nil, err
	}
	role := request.RoleOf(cmd.SenderID)
	if role == "" {
		return nil, domainnegotiation.ErrNotParticipant
	}

	now := time.Now().UTC()
	if err := request.Reject(cmd.Reason, now); err != nil {
		return nil, err
	}
	if err := unit.Requests().Save(ctx, request); err != nil {
		return nil, err
	}

	text := cmd.Reason
	if text == "" {
		text = "negotiation declined"
	}
	msg, err := domainnegotiation.NewMessage(domainnegotiation.NewMessageParams{
		ID:         domainnegotiation.MessageID(cmd.CommandID),
		ThreadID:   request.Thread(),
		SenderID:   cmd.SenderID,
		SenderRole: role,
		Kind:       domainnegotiation.KindPlain,
		Text:       text,
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
	return newSubmitResult(msg), nil
}

func (h *RejectHandler) encoder() outbox.EventEncoder {
	if h.Encoder != nil {
		return h.Encoder
	}
	return outbox.JSONEventEncoder{}
}

var _ commands.Handler[RejectCommand, *SubmitMessageResult] = (*RejectHandler)(nil)
var _ middleware.IdempotentCommand = (*RejectCommand)(nil)
