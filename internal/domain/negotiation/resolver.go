package negotiation

// Action is the resolved capability of a viewer against the current thread.
type Action string

const (
	ActionNone     Action = "cannot_act"
	ActionAccept   Action = "can_accept"
	ActionFinalize Action = "can_finalize"
)

// Acceptances summarizes which parties validly accepted the latest proposal.
type Acceptances struct {
	Requester bool
	Provider  bool
	// Blocked is set when a renegotiation request follows the latest
	// proposal: no action is possible until fresh terms are submitted.
	Blocked bool
}

// Both reports dual acceptance.
func (a Acceptances) Both() bool {
	return a.Requester && a.Provider
}

// LatestProposal returns the chronologically last price_proposal or
// counter_offer, or nil when no proposal exists yet. The input is expected to
// be ordered by CreatedAt; scanning runs from the tail so later plain
// messages never shadow the binding terms.
func LatestProposal(messages []*Message) *Message {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].IsProposal() {
			return messages[i]
		}
	}
	return nil
}

// ResolveAcceptances partitions acceptance messages that occur strictly after
// the latest proposal by sender role. Acceptances created before the proposal
// are stale and never counted. A renegotiation_request after the proposal
// blocks all further action.
func ResolveAcceptances(messages []*Message, latest *Message) Acceptances {
	if latest == nil {
		return Acceptances{}
	}
	var acc Acceptances
	seenLatest := false
	for _, msg := range messages {
		if !seenLatest {
			if msg.ID == latest.ID {
				seenLatest = true
			}
			continue
		}
		switch msg.Kind {
		case KindAcceptance:
			switch msg.SenderRole {
			case RoleRequester:
				acc.Requester = true
			case RoleProvider:
				acc.Provider = true
			}
		case KindRenegotiation:
			acc.Blocked = true
		}
	}
	return acc
}

// Decide derives what the viewer may do right now.
//
// Dual acceptance hands the finalize action to the provider alone. Otherwise
// a party that has not yet accepted may accept once the other side has either
// put terms on the table or accepted them. A blocked thread (renegotiation
// pending fresh terms) permits nothing.
func Decide(viewer Role, latest *Message, acc Acceptances) Action {
	if latest == nil || acc.Blocked {
		return ActionNone
	}
	if acc.Both() {
		if viewer == RoleProvider {
			return ActionFinalize
		}
		return ActionNone
	}
	switch viewer {
	case RoleProvider:
		if !acc.Provider && (latest.SenderRole == RoleRequester || acc.Requester) {
			return ActionAccept
		}
	case RoleRequester:
		if !acc.Requester && (latest.SenderRole == RoleProvider || acc.Provider) {
			return ActionAccept
		}
	}
	return ActionNone
}

// Resolve runs the full derivation for a viewer: latest binding proposal,
// valid acceptances and the permitted action.
func Resolve(messages []*Message, viewer Role) (latest *Message, acc Acceptances, action Action) {
	latest = LatestProposal(messages)
	acc = ResolveAcceptances(messages, latest)
	action = Decide(viewer, latest, acc)
	return latest, acc, action
}
