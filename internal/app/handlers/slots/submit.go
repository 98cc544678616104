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

const submitSlotKey = "slots.submit"

// SubmitSlotCommand registers a new campaign slot for admin review.
type SubmitSlotCommand struct {
	CommandID       string
	ProviderID      string
	CampaignName    string
	Keyword         string
	ProductURL      string
	StartDate       time.Time
	EndDate         time.Time
	IdempotencyKeyV string
}

func (c SubmitSlotCommand) Key() string { return submitSlotKey }

func (c SubmitSlotCommand) IdempotencyKey() string { return c.IdempotencyKeyV }

func (c SubmitSlotCommand) ResultPrototype() any { return &SubmitSlotResult{} }

type SubmitSlotResult struct {
	SlotID string `json:"slot_id"`
	State  string `json:"state"`
}

type SubmitSlotHandler struct {
	UoWFactory uow.UoWFactory
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
}

func (h *SubmitSlotHandler) Handle(ctx context.Context, cmd SubmitSlotCommand) (*SubmitSlotResult, error) {
	m, err := beginUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	result, err := h.handle(m.ctx, m.unit, cmd)
	return result, m.finish(err)
}

func (h *SubmitSlotHandler) handle(ctx context.Context, unit uow.UnitOfWork, cmd SubmitSlotCommand) (*SubmitSlotResult, error) {
	adSlot, err := domainslot.NewSlot(domainslot.CreateParams{
		ID:           domainslot.SlotID(cmd.CommandID),
		ProviderID:   cmd.ProviderID,
		CampaignName: cmd.CampaignName,
		Keyword:      cmd.Keyword,
		ProductURL:   cmd.ProductURL,
		StartDate:    cmd.StartDate,
		EndDate:      cmd.EndDate,
		CreatedAt:    time.Now().UTC(),
	})
	if err != nil {
		return nil, err
	}
	if err := unit.Slots().Save(ctx, adSlot); err != nil {
		return nil, err
	}
	if err := drainEvents(ctx, h.Outbox, h.encoder(), adSlot); err != nil {
		return nil, err
	}
	return &SubmitSlotResult{SlotID: string(adSlot.ID), State: string(adSlot.State)}, nil
}

func (h *SubmitSlotHandler) encoder() outbox.EventEncoder {
	if h.Encoder != nil {
		return h.Encoder
	}
	return outbox.JSONEventEncoder{}
}

var _ commands.Handler[SubmitSlotCommand, *SubmitSlotResult] = (*SubmitSlotHandler)(nil)
var _ middleware.IdempotentCommand = (*SubmitSlotCommand)(nil)
