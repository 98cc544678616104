package slots

import (
	"context"

	"slotmarket/internal/app/dto"
	"slotmarket/internal/app/handlers/support"
	"slotmarket/internal/app/queries"
	"slotmarket/internal/app/uow"
	domainslot "slotmarket/internal/domain/slot"
)

const (
	slotByIDKey  = "slots.by_id"
	listSlotsKey = "slots.list"
)

// SlotByIDQuery fetches one slot.
type SlotByIDQuery struct {
	SlotID string
}

func (q SlotByIDQuery) Key() string { return slotByIDKey }

type SlotByIDHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *SlotByIDHandler) Handle(ctx context.Context, query SlotByIDQuery) (dto.Slot, error) {
	unit, execCtx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.Slot{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	adSlot, err := unit.Slots().ByID(execCtx, domainslot.SlotID(query.SlotID))
	if err != nil {
		return dto.Slot{}, err
	}
	return toSlotDTO(adSlot), nil
}

// ListSlotsQuery lists slots by state, by provider, or both.
type ListSlotsQuery struct {
	State      domainslot.SlotState
	ProviderID string
}

func (q ListSlotsQuery) Key() string { return listSlotsKey }

type ListSlotsHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *ListSlotsHandler) Handle(ctx context.Context, query ListSlotsQuery) (dto.SlotList, error) {
	unit, execCtx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.SlotList{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}

	var items []*domainslot.Slot
	if query.ProviderID != "" {
		items, err = unit.Slots().ListByProvider(execCtx, query.ProviderID)
	} else {
		items, err = unit.Slots().ListByState(execCtx, query.State)
	}
	if err != nil {
		return dto.SlotList{}, err
	}

	list := dto.SlotList{Items: make([]dto.Slot, 0, len(items))}
	for _, adSlot := range items {
		if query.ProviderID != "" && query.State != "" && adSlot.State != query.State {
			continue
		}
		list.Items = append(list.Items, toSlotDTO(adSlot))
	}
	list.Total = len(list.Items)
	return list, nil
}

func toSlotDTO(s *domainslot.Slot) dto.Slot {
	return dto.Slot{
		ID:           string(s.ID),
		ProviderID:   s.ProviderID,
		CampaignName: s.CampaignName,
		Keyword:      s.Keyword,
		ProductURL:   s.ProductURL,
		ReviewNote:   s.ReviewNote,
		State:        string(s.State),
		StartDate:    s.StartDate,
		EndDate:      s.EndDate,
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
	}
}

var _ queries.Handler[SlotByIDQuery, dto.Slot] = (*SlotByIDHandler)(nil)
var _ queries.Handler[ListSlotsQuery, dto.SlotList] = (*ListSlotsHandler)(nil)
