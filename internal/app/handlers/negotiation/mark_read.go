package negotiation

import (
	"context"
	"time"

	"slotmarket/internal/app/commands"
	"slotmarket/internal/app/uow"
	domainnegotiation "slotmarket/internal/domain/negotiation"
)

const markReadKey = "negotiation.mark_read"

// MarkReadCommand records read receipts for messages the caller did not
// author. Fire-and-forget semantics: callers ignore the result.
type MarkReadCommand struct {
	RequestID string
	ReaderID  string
	Messages  []string
}

func (c MarkReadCommand) Key() string { return markReadKey }

type MarkReadResult struct {
	Updated int `json:"updated"`
}

type MarkReadHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *MarkReadHandler) Handle(ctx context.Context, cmd MarkReadCommand) (*MarkReadResult, error) {
	m, err := beginUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	result, err := h.handle(m.ctx, m.unit, cmd)
	return result, m.finish(err)
}

func (h *MarkReadHandler) handle(ctx context.Context, unit uow.UnitOfWork, cmd MarkReadCommand) (*MarkReadResult, error) {
	request, messages, err := loadThread(ctx, unit, domainnegotiation.RequestID(cmd.RequestID))
	if err != nil {
		return nil, err
	}
	if request.RoleOf(cmd.ReaderID) == "" {
		return nil, domainnegotiation.ErrNotParticipant
	}

	requested := make(map[domainnegotiation.MessageID]struct{}, len(cmd.Messages))
	for _, id := range cmd.Messages {
		requested[domainnegotiation.MessageID(id)] = struct{}{}
	}
	ids := make([]domainnegotiation.MessageID, 0, len(requested))
	for _, msg := range messages {
		if msg.SenderID == cmd.ReaderID || msg.Read() {
			continue
		}
		if len(requested) > 0 {
			if _, ok := requested[msg.ID]; !ok {
				continue
			}
		}
		ids = append(ids, msg.ID)
	}
	if len(ids) == 0 {
		return &MarkReadResult{}, nil
	}
	if err := unit.Messages().MarkRead(ctx, ids, time.Now().UTC()); err != nil {
		return nil, err
	}
	return &MarkReadResult{Updated: len(ids)}, nil
}

var _ commands.Handler[MarkReadCommand, *MarkReadResult] = (*MarkReadHandler)(nil)
