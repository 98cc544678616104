package dto

import "time"

// FeedAttachment mirrors a stored file reference.
type FeedAttachment struct {
	Name     string `json:"name"`
	URL      string `json:"url"`
	Size     int64  `json:"size"`
	MimeType string `json:"mime_type"`
}

// ProposalTerms carries candidate or resolved terms over the wire.
type ProposalTerms struct {
	DailyAmount    int64  `json:"daily_amount,omitempty"`
	TotalAmount    int64  `json:"total_amount,omitempty"`
	GuaranteeCount int    `json:"guarantee_count,omitempty"`
	TargetRank     int    `json:"target_rank,omitempty"`
	WorkPeriod     int    `json:"work_period,omitempty"`
	BudgetType     string `json:"budget_type,omitempty"`
}

// FeedMessage is a thread entry with sender display fields joined on.
type FeedMessage struct {
	ID          string           `json:"id"`
	ThreadID    string           `json:"thread_id"`
	SenderID    string           `json:"sender_id"`
	SenderName  string           `json:"sender_name,omitempty"`
	SenderEmail string           `json:"sender_email,omitempty"`
	SenderRole  string           `json:"sender_role"`
	Kind        string           `json:"kind"`
	Text        string           `json:"text,omitempty"`
	Proposal    *ProposalTerms   `json:"proposal,omitempty"`
	Attachments []FeedAttachment `json:"attachments,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	Read        bool             `json:"read"`
}

// ThreadFeed is the poll response: messages after the caller's watermark.
type ThreadFeed struct {
	Items     []FeedMessage `json:"items"`
	Watermark time.Time     `json:"watermark"`
}

// NegotiationState is the resolver output for a viewer.
type NegotiationState struct {
	RequestID         string         `json:"request_id"`
	Status            string         `json:"status"`
	Action            string         `json:"action"`
	RequesterAccepted bool           `json:"requester_accepted"`
	ProviderAccepted  bool           `json:"provider_accepted"`
	Blocked           bool           `json:"blocked"`
	LatestProposal    *ProposalTerms `json:"latest_proposal,omitempty"`
	FinalTerms        *ProposalTerms `json:"final_terms,omitempty"`
}

// RequestSummary lists a negotiation request.
type RequestSummary struct {
	ID              string         `json:"id"`
	SlotID          string         `json:"slot_id"`
	RequesterID     string         `json:"requester_id"`
	ProviderID      string         `json:"provider_id"`
	TargetRank      int            `json:"target_rank"`
	GuaranteeCount  int            `json:"guarantee_count"`
	GuaranteePeriod int            `json:"guarantee_period"`
	InitialBudget   int64          `json:"initial_budget"`
	BudgetType      string         `json:"budget_type"`
	Status          string         `json:"status"`
	FinalTerms      *ProposalTerms `json:"final_terms,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// RequestList is a collection of request summaries.
type RequestList struct {
	Items []RequestSummary `json:"items"`
	Total int              `json:"total"`
}
