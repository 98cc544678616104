package slots

import (
	"context"
	"time"

	"slotmarket/internal/app/commands"
	"slotmarket/internal/app/middleware"
	"slotmarket/internal/app/outbox"
	"slotmarket/internal/app/uow"
	domainslot "slotmarket/internal/domain/slot"
)

const (
	approveSlotKey = "slots.approve"
	rejectSlotKey  = "slots.reject"
)

// ReviewResult is shared by approve and reject.
type ReviewResult struct {
	SlotID string `json:"slot_id"`
	State  string `json:"state"`
}

// ApproveSlotCommand accepts a pending submission. Admin only.
type ApproveSlotCommand struct {
	SlotID          string
	ReviewerID      string
	Note            string
	IdempotencyKeyV string
}

func (c ApproveSlotCommand) Key() string { return approveSlotKey }

func (c ApproveSlotCommand) IdempotencyKey() string { return c.IdempotencyKeyV }

func (c ApproveSlotCommand) ResultPrototype() any { return &ReviewResult{} }

type ApproveSlotHandler struct {
	UoWFactory uow.UoWFactory
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
}

func (h *ApproveSlotHandler) Handle(ctx context.Context, cmd ApproveSlotCommand) (*ReviewResult, error) {
	m, err := beginUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	result, err := h.handle(m.ctx, m.unit, cmd)
	return result, m.finish(err)
}

func (h *ApproveSlotHandler) handle(ctx context.Context, unit uow.UnitOfWork, cmd ApproveSlotCommand) (*ReviewResult, error) {
	if err := requireAdmin(ctx, unit, cmd.ReviewerID); err != nil {
		return nil, err
	}
	adSlot, err := unit.Slots().ByID(ctx, domainslot.SlotID(cmd.SlotID))
	if err != nil {
		return nil, err
	}
	if err := adSlot.Approve(cmd.ReviewerID, cmd.Note, time.Now()); err != nil {
		return nil, err
	}
	if err := unit.Slots().Save(ctx, adSlot); err != nil {
		return nil, err
	}
	if err := drainEvents(ctx, h.Outbox, encoderOrDefault(h.Encoder), adSlot); err != nil {
		return nil, err
	}
	return &ReviewResult{SlotID: string(adSlot.ID), State: string(adSlot.State)}, nil
}

// RejectSlotCommand turns a pending submission down. The reason is mandatory
// and stored as the review note.
type RejectSlotCommand struct {
	SlotID          string
	ReviewerID      string
	Reason          string
	IdempotencyKeyV string
}

func (c RejectSlotCommand) Key() string { return rejectSlotKey }

func (c RejectSlotCommand) IdempotencyKey() string { return c.IdempotencyKeyV }

func (c RejectSlotCommand) ResultPrototype() any { return &ReviewResult{} }

type RejectSlotHandler struct {
	UoWFactory uow.UoWFactory
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
}

func (h *RejectSlotHandler) Handle(ctx context.Context, cmd RejectSlotCommand) (*ReviewResult, error) {
	m, err := beginUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	result, err := h.handle(m.ctx, m.unit, cmd)
	return result, m.finish(err)
}

func (h *RejectSlotHandler) handle(ctx context.Context, unit uow.UnitOfWork, cmd RejectSlotCommand) (*ReviewResult, error) {
	if err := requireAdmin(ctx, unit, cmd.ReviewerID); err != nil {
		return nil, err
	}
	adSlot, err := unit.Slots().ByID(ctx, domainslot.SlotID(cmd.SlotID))
	if err != nil {
		return nil, err
	}
	if err := adSlot.Reject(cmd.ReviewerID, cmd.Reason, time.Now()); err != nil {
		return nil, err
	}
	if err := unit.Slots().Save(ctx, adSlot); err != nil {
		return nil, err
	}
	if err := drainEvents(ctx, h.Outbox, encoderOrDefault(h.Encoder), adSlot); err != nil {
		return nil, err
	}
	return &ReviewResult{SlotID: string(adSlot.ID), State: string(adSlot.State)}, nil
}

func encoderOrDefault(encoder outbox.EventEncoder) outbox.EventEncoder {
	if encoder != nil {
		return encoder
	}
	return outbox.JSONEventEncoder{}
}

var _ commands.Handler[ApproveSlotCommand, *ReviewResult] = (*ApproveSlotHandler)(nil)
var _ commands.Handler[RejectSlotCommand, *ReviewResult] = (*RejectSlotHandler)(nil)
var _ middleware.IdempotentCommand = (*ApproveSlotCommand)(nil)
var _ middleware.IdempotentCommand = (*RejectSlotCommand)(nil)
