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

const renegotiateKey = "negotiation.renegotiate"

// RenegotiateCommand reopens terms after acceptance. The thread stays blocked
// until a fresh proposal lands.
type RenegotiateCommand struct {
	CommandID       string
	RequestID       string
	SenderID        string
	Text            string
	IdempotencyKeyV string
}

func (c RenegotiateCommand) Key() string { return renegotiateKey }

func (c RenegotiateCommand) IdempotencyKey() string { return c.IdempotencyKeyV }

func (c RenegotiateCommand) ResultPrototype() any { return &SubmitMessageResult{} }

type RenegotiateHandler struct {
	UoWFactory uow.UoWFactory
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
}

func (h *RenegotiateHandler) Handle(ctx context.Context, cmd RenegotiateCommand) (*SubmitMessageResult, error) {
	m, err := beginUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	result, err := h.handle(m.ctx, m.unit, cmd)
	return result, m.finish(err)
}

func (h *RenegotiateHandler) handle(ctx context.Context, unit uow.UnitOfWork, cmd RenegotiateCommand) (*SubmitMessageResult, error) {
	request, err := unit.Requests().ByID(ctx, domainnegotiation.RequestID(cmd.RequestID))
	if err != nil {
		return nil, err
	}
	role := request.RoleOf(cmd.SenderID)
	if role == "" {
		return nil, domainnegotiation.ErrNotParticipant
	}

	now := time.Now().UTC()
	if err := request.Reopen(now); err != nil {
		return nil, err
	}
	if err := unit.Requests().Save(ctx, request); err != nil {
		return nil, err
	}

	msg, err := domainnegotiation.NewMessage(domainnegotiation.NewMessageParams{
		ID:         domainnegotiation.MessageID(cmd.CommandID),
		ThreadID:   request.Thread(),
		SenderID:   cmd.SenderID,
		SenderRole: role,
		Kind:       domainnegotiation.KindRenegotiation,
		Text:       cmd.Text,
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

func (h *RenegotiateHandler) encoder() outbox.EventEncoder {
	if h.Encoder != nil {
		return h.Encoder
	}
	return outbox.JSONEventEncoder{}
}

var _ commands.Handler[RenegotiateCommand, *SubmitMessageResult] = (*RenegotiateHandler)(nil)
var _ middleware.IdempotentCommand = (*RenegotiateCommand)(nil)
