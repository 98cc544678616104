package slot

import "time"

type SlotSubmitted struct {
	SlotID       SlotID
	ProviderID   string
	CampaignName string
	At           time.Time
}

func (e SlotSubmitted) EventName() string     { return "slot.submitted" }
func (e SlotSubmitted) AggregateID() string   { return string(e.SlotID) }
func (e SlotSubmitted) OccurredAt() time.Time { return e.At }

type SlotApproved struct {
	SlotID     SlotID
	ReviewerID string
	At         time.Time
}

func (e SlotApproved) EventName() string     { return "slot.approved" }
func (e SlotApproved) AggregateID() string   { return string(e.SlotID) }
func (e SlotApproved) OccurredAt() time.Time { return e.At }

type SlotRejected struct {
	SlotID     SlotID
	ReviewerID string
	Reason     string
	At         time.Time
}

func (e SlotRejected) EventName() string     { return "slot.rejected" }
func (e SlotRejected) AggregateID() string   { return string(e.SlotID) }
func (e SlotRejected) OccurredAt() time.Time { return e.At }

type SlotWentLive struct {
	SlotID SlotID
	At     time.Time
}

func (e SlotWentLive) EventName() string     { return "slot.live" }
func (e SlotWentLive) AggregateID() string   { return string(e.SlotID) }
func (e SlotWentLive) OccurredAt() time.Time { return e.At }

type SlotEnded struct {
	SlotID SlotID
	At     time.Time
}

func (e SlotEnded) EventName() string     { return "slot.ended" }
func (e SlotEnded) AggregateID() string   { return string(e.SlotID) }
func (e SlotEnded) OccurredAt() time.Time { return e.At }
