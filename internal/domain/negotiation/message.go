package negotiation

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"
)

var (
	ErrMessageNotFound = errors.New("negotiation: message not found")
	ErrEmptyMessage    = errors.New("negotiation: message text or terms required")
	ErrSenderRequired  = errors.New("negotiation: sender id is required")
	ErrThreadRequired  = errors.New("negotiation: thread id is required")
	ErrInvalidRole     = errors.New("negotiation: invalid sender role")
	ErrInvalidKind     = errors.New("negotiation: invalid message kind")
)

type MessageID string

type ThreadID string

// Role identifies which side of the negotiation a party sits on.
type Role string

const (
	RoleRequester Role = "requester"
	RoleProvider  Role = "provider"
)

// MessageKind discriminates thread entries.
type MessageKind string

const (
	KindPlain         MessageKind = "plain_message"
	KindPriceProposal MessageKind = "price_proposal"
	KindCounterOffer  MessageKind = "counter_offer"
	KindAcceptance    MessageKind = "acceptance"
	KindRenegotiation MessageKind = "renegotiation_request"
)

// Attachment references a file stored outside the thread.
type Attachment struct {
	Name     string
	URL      string
	Size     int64
	MimeType string
}

// Message is an immutable append-only thread entry. Proposal terms are
// present only on price_proposal, counter_offer and acceptance kinds.
type Message struct {
	ID          MessageID
	ThreadID    ThreadID
	SenderID    string
	SenderRole  Role
	Kind        MessageKind
	Text        string
	Proposal    *Proposal
	Attachments []Attachment
	CreatedAt   time.Time
	ReadAt      time.Time
}

// IsProposal reports whether the message carries binding candidate terms.
func (m Message) IsProposal() bool {
	return m.Kind == KindPriceProposal || m.Kind == KindCounterOffer
}

// Read reports whether a read receipt has been recorded.
func (m Message) Read() bool {
	return !m.ReadAt.IsZero()
}

type NewMessageParams struct {
	ID          MessageID
	ThreadID    ThreadID
	SenderID    string
	SenderRole  Role
	Kind        MessageKind
	Text        string
	Proposal    *Proposal
	Attachments []Attachment
	CreatedAt   time.Time
}

// NewMessage validates and builds a thread entry. Proposal kinds require
// terms that already passed Proposal.Validate.
func NewMessage(params NewMessageParams) (*Message, error) {
	if strings.TrimSpace(string(params.ThreadID)) == "" {
		return nil, ErrThreadRequired
	}
	if strings.TrimSpace(params.SenderID) == "" {
		return nil, ErrSenderRequired
	}
	switch params.SenderRole {
	case RoleRequester, RoleProvider:
	default:
		return nil, ErrInvalidRole
	}
	switch params.Kind {
	case KindPlain:
		if strings.TrimSpace(params.Text) == "" && len(params.Attachments) == 0 {
			return nil, ErrEmptyMessage
		}
	case KindPriceProposal, KindCounterOffer:
		if params.Proposal == nil {
			return nil, ErrTermsRequired
		}
		if err := params.Proposal.Validate(); err != nil {
			return nil, err
		}
	case KindAcceptance, KindRenegotiation:
	default:
		return nil, ErrInvalidKind
	}
	createdAt := params.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	msg := &Message{
		ID:          params.ID,
		ThreadID:    params.ThreadID,
		SenderID:    strings.TrimSpace(params.SenderID),
		SenderRole:  params.SenderRole,
		Kind:        params.Kind,
		Text:        strings.TrimSpace(params.Text),
		Attachments: append([]Attachment(nil), params.Attachments...),
		CreatedAt:   createdAt.UTC(),
	}
	if params.Proposal != nil {
		p := *params.Proposal
		msg.Proposal = &p
	}
	return msg, nil
}

// SortByCreatedAt orders messages chronologically, oldest first. The sort is
// stable so equal timestamps keep their insertion order.
func SortByCreatedAt(messages []*Message) {
	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].CreatedAt.Before(messages[j].CreatedAt)
	})
}

// MessageRepository stores thread entries ordered by creation time.
type MessageRepository interface {
	Append(ctx context.Context, msg *Message) error
	ListByThread(ctx context.Context, thread ThreadID, after time.Time, limit int) ([]*Message, error)
	MarkRead(ctx context.Context, ids []MessageID, at time.Time) error
}
