package dto

import "time"

// Slot describes a campaign slot submission.
type Slot struct {
	ID           string    `json:"id"`
	ProviderID   string    `json:"provider_id"`
	CampaignName string    `json:"campaign_name"`
	Keyword      string    `json:"keyword"`
	ProductURL   string    `json:"product_url,omitempty"`
	ReviewNote   string    `json:"review_note,omitempty"`
	State        string    `json:"state"`
	StartDate    time.Time `json:"start_date,omitempty"`
	EndDate      time.Time `json:"end_date,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// SlotList is a collection of slots.
type SlotList struct {
	Items []Slot `json:"items"`
	Total int    `json:"total"`
}
