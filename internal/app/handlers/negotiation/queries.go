package negotiation

import (
	"context"
	"time"

	"slotmarket/internal/app/dto"
	"slotmarket/internal/app/handlers/support"
	"slotmarket/internal/app/queries"
	"slotmarket/internal/app/uow"
	domainnegotiation "slotmarket/internal/domain/negotiation"
	domainuser "slotmarket/internal/domain/user"
)

const (
	threadFeedKey   = "negotiation.thread_feed"
	resolveStateKey = "negotiation.resolve_state"
	listRequestsKey = "negotiation.list_requests"
)

// ThreadFeedQuery returns messages created after the caller's watermark with
// sender display fields joined on.
type ThreadFeedQuery struct {
	RequestID string
	ViewerID  string
	After     time.Time
	Limit     int
}

func (q ThreadFeedQuery) Key() string { return threadFeedKey }

type ThreadFeedHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *ThreadFeedHandler) Handle(ctx context.Context, query ThreadFeedQuery) (dto.ThreadFeed, error) {
	unit, execCtx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.ThreadFeed{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}

	request, err := unit.Requests().ByID(execCtx, domainnegotiation.RequestID(query.RequestID))
	if err != nil {
		return dto.ThreadFeed{}, err
	}
	if request.RoleOf(query.ViewerID) == "" {
		if viewer, err := unit.Users().ByID(execCtx, domainuser.ID(query.ViewerID)); err != nil || !viewer.HasRole(domainuser.RoleAdmin) {
			return dto.ThreadFeed{}, domainnegotiation.ErrNotParticipant
		}
	}

	messages, err := unit.Messages().ListByThread(execCtx, request.Thread(), query.After, query.Limit)
	if err != nil {
		return dto.ThreadFeed{}, err
	}
	domainnegotiation.SortByCreatedAt(messages)

	senders := senderIndex(execCtx, unit, messages)
	feed := dto.ThreadFeed{Items: make([]dto.FeedMessage, 0, len(messages)), Watermark: query.After}
	for _, msg := range messages {
		item := toFeedMessage(msg)
		if sender, ok := senders[msg.SenderID]; ok {
			item.SenderName = sender.Name
			item.SenderEmail = sender.Email
		}
		feed.Items = append(feed.Items, item)
		if msg.CreatedAt.After(feed.Watermark) {
			feed.Watermark = msg.CreatedAt
		}
	}
	return feed, nil
}

// NegotiationStateQuery runs the resolver for a viewer.
type NegotiationStateQuery struct {
	RequestID string
	ViewerID  string
}

func (q NegotiationStateQuery) Key() string { return resolveStateKey }

type NegotiationStateHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *NegotiationStateHandler) Handle(ctx context.Context, query NegotiationStateQuery) (dto.NegotiationState, error) {
	unit, execCtx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.NegotiationState{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}

	request, messages, err := loadThread(execCtx, unit, domainnegotiation.RequestID(query.RequestID))
	if err != nil {
		return dto.NegotiationState{}, err
	}
	role := request.RoleOf(query.ViewerID)
	if role == "" {
		return dto.NegotiationState{}, domainnegotiation.ErrNotParticipant
	}
	latest, acc, action := domainnegotiation.Resolve(messages, role)

	state := dto.NegotiationState{
		RequestID:         string(request.ID),
		Status:            string(request.Status),
		Action:            string(action),
		RequesterAccepted: acc.Requester,
		ProviderAccepted:  acc.Provider,
		Blocked:           acc.Blocked,
	}
	if latest != nil && latest.Proposal != nil {
		state.LatestProposal = toProposalTerms(*latest.Proposal)
	}
	if request.FinalTerms != nil {
		state.FinalTerms = termsToDTO(*request.FinalTerms)
	}
	return state, nil
}

// ListRequestsQuery lists negotiations a party participates in.
type ListRequestsQuery struct {
	PartyID string
	Status  domainnegotiation.RequestStatus
}

func (q ListRequestsQuery) Key() string { return listRequestsKey }

type ListRequestsHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *ListRequestsHandler) Handle(ctx context.Context, query ListRequestsQuery) (dto.RequestList, error) {
	unit, execCtx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.RequestList{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}

	var items []*domainnegotiation.Request
	if query.Status != "" {
		items, err = unit.Requests().ListByStatus(execCtx, query.Status)
	} else {
		items, err = unit.Requests().ListByParty(execCtx, query.PartyID)
	}
	if err != nil {
		return dto.RequestList{}, err
	}

	list := dto.RequestList{Items: make([]dto.RequestSummary, 0, len(items)), Total: len(items)}
	for _, request := range items {
		if query.PartyID != "" && request.RoleOf(query.PartyID) == "" {
			continue
		}
		list.Items = append(list.Items, toRequestSummary(request))
	}
	list.Total = len(list.Items)
	return list, nil
}

func senderIndex(ctx context.Context, unit uow.UnitOfWork, messages []*domainnegotiation.Message) map[string]*domainuser.User {
	seen := make(map[string]struct{}, 2)
	ids := make([]domainuser.ID, 0, 2)
	for _, msg := range messages {
		if _, ok := seen[msg.SenderID]; ok {
			continue
		}
		seen[msg.SenderID] = struct{}{}
		ids = append(ids, domainuser.ID(msg.SenderID))
	}
	index := make(map[string]*domainuser.User, len(ids))
	if len(ids) == 0 {
		return index
	}
	users, err := unit.Users().ByIDs(ctx, ids)
	if err != nil {
		// display fields are cosmetic; the feed still renders without them
		return index
	}
	for _, u := range users {
		index[string(u.ID)] = u
	}
	return index
}

func toFeedMessage(msg *domainnegotiation.Message) dto.FeedMessage {
	item := dto.FeedMessage{
		ID:         string(msg.ID),
		ThreadID:   string(msg.ThreadID),
		SenderID:   msg.SenderID,
		SenderRole: string(msg.SenderRole),
		Kind:       string(msg.Kind),
		Text:       msg.Text,
		CreatedAt:  msg.CreatedAt,
		Read:       msg.Read(),
	}
	if msg.Proposal != nil {
		item.Proposal = toProposalTerms(*msg.Proposal)
	}
	for _, att := range msg.Attachments {
		item.Attachments = append(item.Attachments, dto.FeedAttachment{
			Name:     att.Name,
			URL:      att.URL,
			Size:     att.Size,
			MimeType: att.MimeType,
		})
	}
	return item
}

func toProposalTerms(p domainnegotiation.Proposal) *dto.ProposalTerms {
	return &dto.ProposalTerms{
		DailyAmount:    p.DailyAmount.Amount,
		TotalAmount:    p.TotalAmount.Amount,
		GuaranteeCount: p.GuaranteeCount,
		TargetRank:     p.TargetRank,
		WorkPeriod:     p.WorkPeriod,
		BudgetType:     string(p.BudgetType),
	}
}

func termsToDTO(t domainnegotiation.Terms) *dto.ProposalTerms {
	return &dto.ProposalTerms{
		DailyAmount:    t.DailyAmount.Amount,
		TotalAmount:    t.TotalAmount.Amount,
		GuaranteeCount: t.GuaranteeCount,
		TargetRank:     t.TargetRank,
		WorkPeriod:     t.WorkPeriod,
		BudgetType:     string(t.BudgetType),
	}
}

func toRequestSummary(r *domainnegotiation.Request) dto.RequestSummary {
	summary := dto.RequestSummary{
		ID:              string(r.ID),
		SlotID:          string(r.SlotID),
		RequesterID:     r.RequesterID,
		ProviderID:      r.ProviderID,
		TargetRank:      r.TargetRank,
		GuaranteeCount:  r.GuaranteeCount,
		GuaranteePeriod: r.GuaranteePeriod,
		InitialBudget:   r.InitialBudget.Amount,
		BudgetType:      string(r.BudgetType),
		Status:          string(r.Status),
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
	if r.FinalTerms != nil {
		summary.FinalTerms = termsToDTO(*r.FinalTerms)
	}
	return summary
}

var _ queries.Handler[ThreadFeedQuery, dto.ThreadFeed] = (*ThreadFeedHandler)(nil)
var _ queries.Handler[NegotiationStateQuery, dto.NegotiationState] = (*NegotiationStateHandler)(nil)
var _ queries.Handler[ListRequestsQuery, dto.RequestList] = (*ListRequestsHandler)(nil)
