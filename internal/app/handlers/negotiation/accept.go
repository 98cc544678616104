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

const acceptKey = "negotiation.accept"

// AcceptCommand records the caller's acceptance of the latest proposal.
type AcceptCommand struct {
	CommandID       string
	RequestID       string
	SenderID        string
	Text            string
	IdempotencyKeyV string
}

func (c AcceptCommand) Key() string { return acceptKey }

func (c AcceptCommand) IdempotencyKey() string { return c.IdempotencyKeyV }

func (c AcceptCommand) ResultPrototype() any { return &SubmitMessageResult{} }

type AcceptHandler struct {
	UoWFactory uow.UoWFactory
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
}

func (h *AcceptHandler) Handle(ctx context.Context, cmd AcceptCommand) (*SubmitMessageResult, error) {
	m, err := beginUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	result, err := h.handle(m.ctx, m.unit, cmd)
	return result, m.finish(err)
}

func (h *AcceptHandler) handle(ctx context.Context, unit uow.UnitOfWork, cmd AcceptCommand) (*SubmitMessageResult, error) {
	request, messages, err := loadThread(ctx, unit, domainnegotiation.RequestID(cmd.RequestID))
	if err != nil {
		return nil, err
	}
	role := request.RoleOf(cmd.SenderID)
	if role == "" {
		return nil, domainnegotiation.ErrNotParticipant
	}
	latest, acc, action := domainnegotiation.Resolve(messages, role)
	if action != domainnegotiation.ActionAccept {
		return nil, domainnegotiation.ErrActionNotAllowed
	}

	now := time.Now().UTC()
	msg, err := domainnegotiation.NewMessage(domainnegotiation.NewMessageParams{
		ID:         domainnegotiation.MessageID(cmd.CommandID),
		ThreadID:   request.Thread(),
		SenderID:   cmd.SenderID,
		SenderRole: role,
		Kind:       domainnegotiation.KindAcceptance,
		Text:       cmd.Text,
		Proposal:   latest.Proposal,
		CreatedAt:  now,
	})
	if err != nil {
		return nil, err
	}
	if err := unit.Messages().Append(ctx, msg); err != nil {
		return nil, err
	}

	// the caller's acceptance plus an existing one from the other side
	// means the terms are now mutually agreed
	otherAccepted := (role == domainnegotiation.RoleRequester && acc.Provider) ||
		(role == domainnegotiation.RoleProvider && acc.Requester)
	if otherAccepted {
		if err := request.MarkAccepted(now); err != nil {
			return nil, err
		}
	} else if err := request.BeginNegotiation(now); err != nil {
		return nil, err
	}
	if err := unit.Requests().Save(ctx, request); err != nil {
		return nil, err
	}
	if err := drainEvents(ctx, h.Outbox, h.encoder(), request); err != nil {
		return nil, err
	}
	return newSubmitResult(msg), nil
}

func (h *AcceptHandler) encoder() outbox.EventEncoder {
	if h.Encoder != nil {
		return h.Encoder
	}
	return outbox.JSONEventEncoder{}
}

var _ commands.Handler[AcceptCommand, *SubmitMessageResult] = (*AcceptHandler)(nil)
var _ middleware.IdempotentCommand = (*AcceptCommand)(nil)
