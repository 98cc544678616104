package negotiation

import (
	"testing"
	"time"

	"slotmarket/internal/domain/shared/money"
)

var resolverBase = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func threadMsg(id string, role Role, kind MessageKind, minute int) *Message {
	msg := &Message{
		ID:         MessageID(id),
		ThreadID:   "thread-1",
		SenderID:   "sender-" + string(role),
		SenderRole: role,
		Kind:       kind,
		CreatedAt:  resolverBase.Add(time.Duration(minute) * time.Minute),
	}
	if msg.IsProposal() {
		msg.Proposal = &Proposal{
			DailyAmount:    money.Won(50000),
			GuaranteeCount: 5,
			WorkPeriod:     10,
			BudgetType:     BudgetDaily,
		}
	}
	return msg
}

func TestLatestProposal(t *testing.T) {
	tests := []struct {
		name     string
		messages []*Message
		want     MessageID
	}{
		{
			name:     "no proposal yet",
			messages: []*Message{threadMsg("m1", RoleRequester, KindPlain, 0)},
			want:     "",
		},
		{
			name: "plain messages never shadow terms",
			messages: []*Message{
				threadMsg("m1", RoleRequester, KindPriceProposal, 0),
				threadMsg("m2", RoleProvider, KindPlain, 1),
				threadMsg("m3", RoleRequester, KindPlain, 2),
			},
			want: "m1",
		},
		{
			name: "counter offer supersedes proposal",
			messages: []*Message{
				threadMsg("m1", RoleRequester, KindPriceProposal, 0),
				threadMsg("m2", RoleProvider, KindCounterOffer, 1),
			},
			want: "m2",
		},
		{
			name: "acceptance does not replace the binding terms",
			messages: []*Message{
				threadMsg("m1", RoleProvider, KindPriceProposal, 0),
				threadMsg("m2", RoleRequester, KindAcceptance, 1),
			},
			want: "m1",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := LatestProposal(tt.messages)
			if tt.want == "" {
				if got != nil {
					t.Fatalf("LatestProposal() = %v, want nil", got.ID)
				}
				return
			}
			if got == nil || got.ID != tt.want {
				t.Fatalf("LatestProposal() = %v, want %s", got, tt.want)
			}
		})
	}
}

func TestResolveAcceptancesIgnoresStaleAcceptance(t *testing.T) {
	messages := []*Message{
		threadMsg("m1", RoleProvider, KindPriceProposal, 0),
		threadMsg("m2", RoleRequester, KindAcceptance, 1),
		threadMsg("m3", RoleProvider, KindCounterOffer, 2),
	}
	acc := ResolveAcceptances(messages, LatestProposal(messages))
	if acc.Requester || acc.Provider {
		t.Fatalf("acceptance before the latest proposal must not count: %+v", acc)
	}
}

func TestResolveAcceptancesCountsBothSides(t *testing.T) {
	messages := []*Message{
		threadMsg("m1", RoleProvider, KindPriceProposal, 0),
		threadMsg("m2", RoleRequester, KindAcceptance, 1),
		threadMsg("m3", RoleProvider, KindAcceptance, 2),
	}
	acc := ResolveAcceptances(messages, LatestProposal(messages))
	if !acc.Requester || !acc.Provider {
		t.Fatalf("expected dual acceptance, got %+v", acc)
	}
	if !acc.Both() {
		t.Fatal("Both() = false after dual acceptance")
	}
}

func TestResolveAcceptancesRenegotiationBlocks(t *testing.T) {
	messages := []*Message{
		threadMsg("m1", RoleProvider, KindPriceProposal, 0),
		threadMsg("m2", RoleRequester, KindAcceptance, 1),
		threadMsg("m3", RoleRequester, KindRenegotiation, 2),
	}
	acc := ResolveAcceptances(messages, LatestProposal(messages))
	if !acc.Blocked {
		t.Fatal("renegotiation after the proposal must block the thread")
	}
}

func TestDecide(t *testing.T) {
	proposalFromProvider := threadMsg("p", RoleProvider, KindPriceProposal, 0)
	proposalFromRequester := threadMsg("p", RoleRequester, KindPriceProposal, 0)

	tests := []struct {
		name   string
		viewer Role
		latest *Message
		acc    Acceptances
		want   Action
	}{
		{"no proposal", RoleRequester, nil, Acceptances{}, ActionNone},
		{"blocked thread", RoleProvider, proposalFromRequester, Acceptances{Blocked: true}, ActionNone},
		{"requester may accept provider terms", RoleRequester, proposalFromProvider, Acceptances{}, ActionAccept},
		{"requester waits on own terms", RoleRequester, proposalFromRequester, Acceptances{}, ActionNone},
		{"provider may accept requester terms", RoleProvider, proposalFromRequester, Acceptances{}, ActionAccept},
		{"provider waits on own terms", RoleProvider, proposalFromProvider, Acceptances{}, ActionNone},
		{"provider may accept after requester accepted", RoleProvider, proposalFromProvider, Acceptances{Requester: true}, ActionAccept},
		{"requester done after accepting", RoleRequester, proposalFromProvider, Acceptances{Requester: true}, ActionNone},
		{"dual acceptance hands finalize to provider", RoleProvider, proposalFromRequester, Acceptances{Requester: true, Provider: true}, ActionFinalize},
		{"dual acceptance leaves requester idle", RoleRequester, proposalFromRequester, Acceptances{Requester: true, Provider: true}, ActionNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Decide(tt.viewer, tt.latest, tt.acc); got != tt.want {
				t.Fatalf("Decide(%s) = %s, want %s", tt.viewer, got, tt.want)
			}
		})
	}
}

func TestResolveFullFlow(t *testing.T) {
	messages := []*Message{
		threadMsg("m1", RoleRequester, KindPlain, 0),
		threadMsg("m2", RoleRequester, KindPriceProposal, 1),
		threadMsg("m3", RoleProvider, KindCounterOffer, 2),
		threadMsg("m4", RoleRequester, KindAcceptance, 3),
		threadMsg("m5", RoleProvider, KindAcceptance, 4),
	}

	latest, acc, action := Resolve(messages, RoleProvider)
	if latest == nil || latest.ID != "m3" {
		t.Fatalf("latest = %v, want m3", latest)
	}
	if !acc.Both() {
		t.Fatalf("expected dual acceptance, got %+v", acc)
	}
	if action != ActionFinalize {
		t.Fatalf("provider action = %s, want %s", action, ActionFinalize)
	}

	if _, _, action := Resolve(messages, RoleRequester); action != ActionNone {
		t.Fatalf("requester action = %s, want %s", action, ActionNone)
	}
}
