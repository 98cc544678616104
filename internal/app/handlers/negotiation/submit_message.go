package negotiation

import (
	"context"
	"time"

	"slotmarket/internal/app/commands"
	"slotmarket/internal/app/middleware"
	"slotmarket/internal/app/uow"
	domainnegotiation "slotmarket/internal/domain/negotiation"
)

const submitMessageKey = "negotiation.submit_message"

// SubmitMessageCommand appends a plain message, optionally with attachments
// already uploaded to object storage.
type SubmitMessageCommand struct {
	CommandID       string
	RequestID       string
	SenderID        string
	Text            string
	Attachments     []domainnegotiation.Attachment
	IdempotencyKeyV string
}

func (c SubmitMessageCommand) Key() string { return submitMessageKey }

func (c SubmitMessageCommand) IdempotencyKey() string { return c.IdempotencyKeyV }

func (c SubmitMessageCommand) ResultPrototype() any { return &SubmitMessageResult{} }

// SubmitMessageResult echoes the persisted row so callers can append it to
// their local view without waiting for the next poll.
type SubmitMessageResult struct {
	MessageID string                        `json:"message_id"`
	Kind      domainnegotiation.MessageKind `json:"kind"`
	CreatedAt time.Time                     `json:"created_at"`
	Proposal  *domainnegotiation.Proposal   `json:"proposal,omitempty"`
	Terms     *domainnegotiation.Terms      `json:"terms,omitempty"`
	Action    domainnegotiation.Action      `json:"action,omitempty"`
}

func newSubmitResult(msg *domainnegotiation.Message) *SubmitMessageResult {
	return &SubmitMessageResult{
		MessageID: string(msg.ID),
		Kind:      msg.Kind,
		CreatedAt: msg.CreatedAt,
		Proposal:  msg.Proposal,
	}
}

type SubmitMessageHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *SubmitMessageHandler) Handle(ctx context.Context, cmd SubmitMessageCommand) (*SubmitMessageResult, error) {
	m, err := beginUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	result, err := h.handle(m.ctx, m.unit, cmd)
	return result, m.finish(err)
}

func (h *SubmitMessageHandler) handle(ctx context.Context, unit uow.UnitOfWork, cmd SubmitMessageCommand) (*SubmitMessageResult, error) {
	request, err := unit.Requests().ByID(ctx, domainnegotiation.RequestID(cmd.RequestID))
	if err != nil {
		return nil, err
	}
	role := request.RoleOf(cmd.SenderID)
	if role == "" {
		return nil, domainnegotiation.ErrNotParticipant
	}
	msg, err := domainnegotiation.NewMessage(domainnegotiation.NewMessageParams{
		ID:          domainnegotiation.MessageID(cmd.CommandID),
		ThreadID:    request.Thread(),
		SenderID:    cmd.SenderID,
		SenderRole:  role,
		Kind:        domainnegotiation.KindPlain,
		Text:        cmd.Text,
		Attachments: cmd.Attachments,
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		return nil, err
	}
	if err := unit.Messages().Append(ctx, msg); err != nil {
		return nil, err
	}
	return newSubmitResult(msg), nil
}

var _ commands.Handler[SubmitMessageCommand, *SubmitMessageResult] = (*SubmitMessageHandler)(nil)
var _ middleware.IdempotentCommand = (*SubmitMessageCommand)(nil)
