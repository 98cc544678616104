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
	domainslot "slotmarket/internal/domain/slot"
)

const openRequestKey = "negotiation.open_request"

// OpenRequestCommand starts a guarantee negotiation for an approved slot.
type OpenRequestCommand struct {
	CommandID       string
	SlotID          string
	RequesterID     string
	TargetRank      int
	GuaranteeCount  int
	GuaranteePeriod int
	InitialBudget   int64
	BudgetType      domainnegotiation.BudgetType
	Message         string
	IdempotencyKeyV string
}

func (c OpenRequestCommand) Key() string { return openRequestKey }

func (c OpenRequestCommand) IdempotencyKey() string { return c.IdempotencyKeyV }

func (c OpenRequestCommand) ResultPrototype() any { return &OpenRequestResult{} }

type OpenRequestResult struct {
	RequestID string `json:"request_id"`
}

type OpenRequestHandler struct {
	UoWFactory uow.UoWFactory
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
}

func (h *OpenRequestHandler) Handle(ctx context.Context, cmd OpenRequestCommand) (*OpenRequestResult, error) {
	m, err := beginUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	result, err := h.handle(m.ctx, m.unit, cmd)
	return result, m.finish(err)
}

func (h *OpenRequestHandler) handle(ctx context.Context, unit uow.UnitOfWork, cmd OpenRequestCommand) (*OpenRequestResult, error) {
	adSlot, err := unit.Slots().ByID(ctx, domainslot.SlotID(cmd.SlotID))
	if err != nil {
		return nil, err
	}
	if adSlot.State != domainslot.StateApproved && adSlot.State != domainslot.StateLive {
		return nil, domainslot.ErrInvalidState
	}

	now := time.Now().UTC()
	request, err := domainnegotiation.NewRequest(domainnegotiation.CreateRequestParams{
		ID:              domainnegotiation.RequestID(cmd.CommandID),
		SlotID:          adSlot.ID,
		RequesterID:     cmd.RequesterID,
		ProviderID:      adSlot.ProviderID,
		TargetRank:      cmd.TargetRank,
		GuaranteeCount:  cmd.GuaranteeCount,
		GuaranteePeriod: cmd.GuaranteePeriod,
		InitialBudget:   money.Won(cmd.InitialBudget),
		BudgetType:      cmd.BudgetType,
		CreatedAt:       now,
	})
	if err != nil {
		return nil, err
	}
	if err := unit.Requests().Save(ctx, request); err != nil {
		return nil, err
	}

	if text := cmd.Message; text != "" {
		msg, err := domainnegotiation.NewMessage(domainnegotiation.NewMessageParams{
			ID:         newMessageID(),
			ThreadID:   request.Thread(),
			SenderID:   cmd.RequesterID,
			SenderRole: domainnegotiation.RoleRequester,
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
	}

	if err := drainEvents(ctx, h.Outbox, h.encoder(), request); err != nil {
		return nil, err
	}
	return &OpenRequestResult{RequestID: string(request.ID)}, nil
}

func (h *OpenRequestHandler) encoder() outbox.EventEncoder {
	if h.Encoder != nil {
		return h.Encoder
	}
	return outbox.JSONEventEncoder{}
}

var _ commands.Handler[OpenRequestCommand, *OpenRequestResult] = (*OpenRequestHandler)(nil)
var _ middleware.IdempotentCommand = (*OpenRequestCommand)(nil)
