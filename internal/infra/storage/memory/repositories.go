package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	domainnegotiation "slotmarket/internal/domain/negotiation"
	domainslot "slotmarket/internal/domain/slot"
)

// RequestRepository is an in-memory implementation for demo and test use.
type RequestRepository struct {
	mu    sync.RWMutex
	items map[domainnegotiation.RequestID]*domainnegotiation.Request
}

// NewRequestRepository builds an empty repository.
func NewRequestRepository() *RequestRepository {
	return &RequestRepository{
		items: make(map[domainnegotiation.RequestID]*domainnegotiation.Request),
	}
}

// ByID returns a request or ErrRequestNotFound.
func (r *RequestRepository) ByID(ctx context.Context, id domainnegotiation.RequestID) (*domainnegotiation.Request, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	request, ok := r.items[id]
	if !ok {
		return nil, domainnegotiation.ErrRequestNotFound
	}
	return cloneRequest(request), nil
}

// Save stores the current request state.
func (r *RequestRepository) Save(ctx context.Context, request *domainnegotiation.Request) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	request.Version++
	r.items[request.ID] = cloneRequest(request)
	return nil
}

func (r *RequestRepository) ListByParty(ctx context.Context, partyID string) ([]*domainnegotiation.Request, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id := strings.TrimSpace(partyID)
	matches := make([]*domainnegotiation.Request, 0)
	for _, request := range r.items {
		if id != "" && request.RequesterID != id && request.ProviderID != id {
			continue
		}
		matches = append(matches, cloneRequest(request))
	}
	sortRequests(matches)
	return matches, nil
}

func (r *RequestRepository) ListByStatus(ctx context.Context, status domainnegotiation.RequestStatus) ([]*domainnegotiation.Request, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	matches := make([]*domainnegotiation.Request, 0)
	for _, request := range r.items {
		if status != "" && request.Status != status {
			continue
		}
		matches = append(matches, cloneRequest(request))
	}
	sortRequests(matches)
	return matches, nil
}

func sortRequests(items []*domainnegotiation.Request) {
	sort.Slice(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].ID < items[j].ID
		}
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
}

func cloneRequest(r *domainnegotiation.Request) *domainnegotiation.Request {
	if r == nil {
		return nil
	}
	copyRequest := *r
	if r.FinalTerms != nil {
		terms := *r.FinalTerms
		copyRequest.FinalTerms = &terms
	}
	copyRequest.ClearEvents()
	return &copyRequest
}

// MessageRepository keeps thread entries in memory, append-only.
type MessageRepository struct {
	mu      sync.RWMutex
	byID    map[domainnegotiation.MessageID]*domainnegotiation.Message
	threads map[domainnegotiation.ThreadID][]domainnegotiation.MessageID
}

// NewMessageRepository builds an empty message store.
func NewMessageRepository() *MessageRepository {
	return &MessageRepository{
		byID:    make(map[domainnegotiation.MessageID]*domainnegotiation.Message),
		threads: make(map[domainnegotiation.ThreadID][]domainnegotiation.MessageID),
	}
}

// Append stores a new thread entry. Existing ids are overwritten in place so
// retried appends stay idempotent.
func (r *MessageRepository) Append(ctx context.Context, msg *domainnegotiation.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[msg.ID]; !ok {
		r.threads[msg.ThreadID] = append(r.threads[msg.ThreadID], msg.ID)
	}
	r.byID[msg.ID] = cloneMessage(msg)
	return nil
}

// ListByThread returns entries created strictly after the watermark, oldest
// first. A zero watermark returns the full history; limit 0 means unbounded.
func (r *MessageRepository) ListByThread(ctx context.Context, thread domainnegotiation.ThreadID, after time.Time, limit int) ([]*domainnegotiation.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := r.threads[thread]
	matches := make([]*domainnegotiation.Message, 0, len(ids))
	for _, id := range ids {
		msg, ok := r.byID[id]
		if !ok {
			continue
		}
		if !after.IsZero() && !msg.CreatedAt.After(after) {
			continue
		}
		matches = append(matches, cloneMessage(msg))
	}
	domainnegotiation.SortByCreatedAt(matches)
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// MarkRead stamps read receipts. Missing ids are skipped.
func (r *MessageRepository) MarkRead(ctx context.Context, ids []domainnegotiation.MessageID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	at = at.UTC()
	for _, id := range ids {
		msg, ok := r.byID[id]
		if !ok || msg.Read() {
			continue
		}
		msg.ReadAt = at
	}
	return nil
}

func cloneMessage(m *domainnegotiation.Message) *domainnegotiation.Message {
	if m == nil {
		return nil
	}
	copyMessage := *m
	if m.Proposal != nil {
		p := *m.Proposal
		copyMessage.Proposal = &p
	}
	copyMessage.Attachments = append([]domainnegotiation.Attachment(nil), m.Attachments...)
	return &copyMessage
}

// SlotRepository stores campaign slots in memory.
type SlotRepository struct {
	mu    sync.RWMutex
	items map[domainslot.SlotID]*domainslot.Slot
}

// NewSlotRepository builds an empty slot repo.
func NewSlotRepository() *SlotRepository {
	return &SlotRepository{items: make(map[domainslot.SlotID]*domainslot.Slot)}
}

// ByID fetches a slot.
func (r *SlotRepository) ByID(ctx context.Context, id domainslot.SlotID) (*domainslot.Slot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	adSlot, ok := r.items[id]
	if !ok {
		return nil, domainslot.ErrSlotNotFound
	}
	return cloneSlot(adSlot), nil
}

// Save stores the current slot state.
func (r *SlotRepository) Save(ctx context.Context, adSlot *domainslot.Slot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	adSlot.Version++
	r.items[adSlot.ID] = cloneSlot(adSlot)
	return nil
}

func (r *SlotRepository) ListByState(ctx context.Context, state domainslot.SlotState) ([]*domainslot.Slot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	matches := make([]*domainslot.Slot, 0)
	for _, adSlot := range r.items {
		if state != "" && adSlot.State != state {
			continue
		}
		matches = append(matches, cloneSlot(adSlot))
	}
	sortSlots(matches)
	return matches, nil
}

func (r *SlotRepository) ListByProvider(ctx context.Context, providerID string) ([]*domainslot.Slot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id := strings.TrimSpace(providerID)
	matches := make([]*domainslot.Slot, 0)
	for _, adSlot := range r.items {
		if id != "" && adSlot.ProviderID != id {
			continue
		}
		matches = append(matches, cloneSlot(adSlot))
	}
	sortSlots(matches)
	return matches, nil
}

func sortSlots(items []*domainslot.Slot) {
	sort.Slice(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].ID < items[j].ID
		}
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
}

func cloneSlot(s *domainslot.Slot) *domainslot.Slot {
	if s == nil {
		return nil
	}
	copySlot := *s
	copySlot.ClearEvents()
	return &copySlot
}

var _ domainnegotiation.Repository = (*RequestRepository)(nil)
var _ domainnegotiation.MessageRepository = (*MessageRepository)(nil)
var _ domainslot.Repository = (*SlotRepository)(nil)
