package slots

import (
	"context"
	"time"

	"slotmarket/internal/app/commands"
	"slotmarket/internal/app/outbox"
	"slotmarket/internal/app/uow"
	domainslot "slotmarket/internal/domain/slot"
)

const (
	goLiveKey  = "slots.go_live"
	endSlotKey = "slots.end"
)

// GoLiveCommand activates an approved slot once its campaign starts serving.
// Triggered by the scheduler or by an admin.
type GoLiveCommand struct {
	SlotID  string
	ActorID string
}

func (c GoLiveCommand) Key() string { return goLiveKey }

// EndSlotCommand closes out a live slot.
type EndSlotCommand struct {
	SlotID  string
	ActorID string
}

func (c EndSlotCommand) Key() string { return endSlotKey }

type LifecycleHandler struct {
	UoWFactory uow.UoWFactory
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
}

func (h *LifecycleHandler) HandleGoLive(ctx context.Context, cmd GoLiveCommand) (*ReviewResult, error) {
	m, err := beginUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	result, err := h.transition(m.ctx, m.unit, cmd.SlotID, func(s *domainslot.Slot) error {
		return s.GoLive(time.Now())
	})
	return result, m.finish(err)
}

func (h *LifecycleHandler) HandleEnd(ctx context.Context, cmd EndSlotCommand) (*ReviewResult, error) {
	m, err := beginUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	result, err := h.transition(m.ctx, m.unit, cmd.SlotID, func(s *domainslot.Slot) error {
		return s.End(time.Now())
	})
	return result, m.finish(err)
}

func (h *LifecycleHandler) transition(ctx context.Context, unit uow.UnitOfWork, slotID string, apply func(*domainslot.Slot) error) (*ReviewResult, error) {
	adSlot, err := unit.Slots().ByID(ctx, domainslot.SlotID(slotID))
	if err != nil {
		return nil, err
	}
	if err := apply(adSlot); err != nil {
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

// goLiveAdapter and endAdapter expose LifecycleHandler on the command bus.
type goLiveAdapter struct{ *LifecycleHandler }

func (a goLiveAdapter) Handle(ctx context.Context, cmd GoLiveCommand) (*ReviewResult, error) {
	return a.HandleGoLive(ctx, cmd)
}

type endAdapter struct{ *LifecycleHandler }

func (a endAdapter) Handle(ctx context.Context, cmd EndSlotCommand) (*ReviewResult, error) {
	return a.HandleEnd(ctx, cmd)
}

func (h *LifecycleHandler) GoLiveHandler() commands.Handler[GoLiveCommand, *ReviewResult] {
	return goLiveAdapter{h}
}

func (h *LifecycleHandler) EndHandler() commands.Handler[EndSlotCommand, *ReviewResult] {
	return endAdapter{h}
}
