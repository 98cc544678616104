package negotiation

import (
	"context"
	"errors"
	"testing"
	"time"

	domainnegotiation "slotmarket/internal/domain/negotiation"
	domainslot "slotmarket/internal/domain/slot"
	domainuser "slotmarket/internal/domain/user"
	"slotmarket/internal/infra/storage/memory"
)

type fixture struct {
	factory memory.Factory
	outbox  *memory.Outbox
	slots   *memory.SlotRepository
	users   *memory.UserRepository
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	fx := fixture{
		outbox: memory.NewOutbox(),
		slots:  memory.NewSlotRepository(),
		users:  memory.NewUserRepository(),
	}
	fx.factory = memory.Factory{
		RequestRepo: memory.NewRequestRepository(),
		MessageRepo: memory.NewMessageRepository(),
		SlotRepo:    fx.slots,
		UserRepo:    fx.users,
	}

	ctx := context.Background()
	for _, u := range []struct {
		id    string
		name  string
		roles []domainuser.Role
	}{
		{"buyer-1", "Kim Buyer", []domainuser.Role{domainuser.RoleRequester}},
		{"seller-1", "Lee Seller", []domainuser.Role{domainuser.RoleProvider}},
		{"admin-1", "Park Admin", []domainuser.Role{domainuser.RoleAdmin}},
	} {
		user, err := domainuser.NewUser(domainuser.CreateParams{
			ID:           domainuser.ID(u.id),
			Email:        u.id + "@example.com",
			Name:         u.name,
			PasswordHash: "x",
			Roles:        u.roles,
		})
		if err != nil {
			t.Fatalf("fixture user %s: %v", u.id, err)
		}
		if err := fx.users.Save(ctx, user); err != nil {
			t.Fatalf("save user %s: %v", u.id, err)
		}
	}

	adSlot, err := domainslot.NewSlot(domainslot.CreateParams{
		ID:           "slot-1",
		ProviderID:   "seller-1",
		CampaignName: "spring-sale",
		Keyword:      "wireless earbuds",
	})
	if err != nil {
		t.Fatalf("fixture slot: %v", err)
	}
	if err := adSlot.Approve("admin-1", "", time.Now()); err != nil {
		t.Fatalf("approve fixture slot: %v", err)
	}
	if err := fx.slots.Save(ctx, adSlot); err != nil {
		t.Fatalf("save fixture slot: %v", err)
	}
	return fx
}

func (fx fixture) openRequest(t *testing.T, ctx context.Context) string {
	t.Helper()
	handler := &OpenRequestHandler{UoWFactory: fx.factory, Outbox: fx.outbox}
	result, err := handler.Handle(ctx, OpenRequestCommand{
		CommandID:       "req-1",
		SlotID:          "slot-1",
		RequesterID:     "buyer-1",
		TargetRank:      3,
		GuaranteeCount:  5,
		GuaranteePeriod: 10,
		InitialBudget:   50000,
		BudgetType:      domainnegotiation.BudgetDaily,
		Message:         "interested in a rank guarantee",
	})
	if err != nil {
		t.Fatalf("open request: %v", err)
	}
	return result.RequestID
}

func (fx fixture) state(t *testing.T, ctx context.Context, requestID, viewerID string) (domainnegotiation.RequestStatus, domainnegotiation.Action) {
	t.Helper()
	handler := &NegotiationStateHandler{UoWFactory: fx.factory}
	state, err := handler.Handle(ctx, NegotiationStateQuery{RequestID: requestID, ViewerID: viewerID})
	if err != nil {
		t.Fatalf("resolve state for %s: %v", viewerID, err)
	}
	return domainnegotiation.RequestStatus(state.Status), domainnegotiation.Action(state.Action)
}

func TestNegotiationHappyPath(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t)
	requestID := fx.openRequest(t, ctx)

	if status, action := fx.state(t, ctx, requestID, "buyer-1"); status != domainnegotiation.StatusRequested || action != domainnegotiation.ActionNone {
		t.Fatalf("fresh request: status=%s action=%s", status, action)
	}

	proposal := &SubmitProposalHandler{UoWFactory: fx.factory, Outbox: fx.outbox}
	if _, err := proposal.Handle(ctx, SubmitProposalCommand{
		CommandID:      "msg-prop",
		RequestID:      requestID,
		SenderID:       "seller-1",
		DailyAmount:    90000,
		GuaranteeCount: 5,
		TargetRank:     3,
		WorkPeriod:     10,
		BudgetType:     domainnegotiation.BudgetDaily,
	}); err != nil {
		t.Fatalf("submit proposal: %v", err)
	}

	if status, action := fx.state(t, ctx, requestID, "buyer-1"); status != domainnegotiation.StatusNegotiating || action != domainnegotiation.ActionAccept {
		t.Fatalf("after proposal: buyer status=%s action=%s", status, action)
	}
	if _, action := fx.state(t, ctx, requestID, "seller-1"); action != domainnegotiation.ActionNone {
		t.Fatalf("seller may not act on own terms, got %s", action)
	}

	accept := &AcceptHandler{UoWFactory: fx.factory, Outbox: fx.outbox}
	if _, err := accept.Handle(ctx, AcceptCommand{CommandID: "msg-acc-buyer", RequestID: requestID, SenderID: "buyer-1"}); err != nil {
		t.Fatalf("buyer accept: %v", err)
	}
	if _, action := fx.state(t, ctx, requestID, "seller-1"); action != domainnegotiation.ActionAccept {
		t.Fatalf("seller should be able to accept now, got %s", action)
	}
	if _, err := accept.Handle(ctx, AcceptCommand{CommandID: "msg-acc-seller", RequestID: requestID, SenderID: "seller-1"}); err != nil {
		t.Fatalf("seller accept: %v", err)
	}

	if status, action := fx.state(t, ctx, requestID, "seller-1"); status != domainnegotiation.StatusAccepted || action != domainnegotiation.ActionFinalize {
		t.Fatalf("after dual acceptance: status=%s action=%s", status, action)
	}

	finalize := &FinalizeHandler{UoWFactory: fx.factory, Outbox: fx.outbox}
	if _, err := finalize.Handle(ctx, FinalizeCommand{CommandID: "msg-final", RequestID: requestID, SenderID: "buyer-1"}); !errors.Is(err, domainnegotiation.ErrActionNotAllowed) {
		t.Fatalf("buyer finalize = %v, want %v", err, domainnegotiation.ErrActionNotAllowed)
	}
	result, err := finalize.Handle(ctx, FinalizeCommand{CommandID: "msg-final", RequestID: requestID, SenderID: "seller-1"})
	if err != nil {
		t.Fatalf("seller finalize: %v", err)
	}
	if result.Status != domainnegotiation.StatusPurchased {
		t.Fatalf("status = %s, want %s", result.Status, domainnegotiation.StatusPurchased)
	}
	if result.Terms.TotalAmount.Amount != 900000 {
		t.Fatalf("total = %d, want 900000", result.Terms.TotalAmount.Amount)
	}

	if len(fx.outbox.Pending()) == 0 {
		t.Fatal("no events reached the outbox")
	}
}

func TestAcceptRequiresResolvedPermission(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t)
	requestID := fx.openRequest(t, ctx)

	accept := &AcceptHandler{UoWFactory: fx.factory, Outbox: fx.outbox}
	if _, err := accept.Handle(ctx, AcceptCommand{CommandID: "m1", RequestID: requestID, SenderID: "buyer-1"}); !errors.Is(err, domainnegotiation.ErrActionNotAllowed) {
		t.Fatalf("accept without proposal = %v, want %v", err, domainnegotiation.ErrActionNotAllowed)
	}
	if _, err := accept.Handle(ctx, AcceptCommand{CommandID: "m2", RequestID: requestID, SenderID: "stranger"}); !errors.Is(err, domainnegotiation.ErrNotParticipant) {
		t.Fatalf("stranger accept = %v, want %v", err, domainnegotiation.ErrNotParticipant)
	}
}

func TestRenegotiationBlocksUntilFreshTerms(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t)
	requestID := fx.openRequest(t, ctx)

	proposal := &SubmitProposalHandler{UoWFactory: fx.factory, Outbox: fx.outbox}
	if _, err := proposal.Handle(ctx, SubmitProposalCommand{
		CommandID: "m-prop", RequestID: requestID, SenderID: "seller-1",
		DailyAmount: 90000, GuaranteeCount: 5, WorkPeriod: 10,
		BudgetType: domainnegotiation.BudgetDaily,
	}); err != nil {
		t.Fatalf("submit proposal: %v", err)
	}
	accept := &AcceptHandler{UoWFactory: fx.factory, Outbox: fx.outbox}
	if _, err := accept.Handle(ctx, AcceptCommand{CommandID: "m-acc", RequestID: requestID, SenderID: "buyer-1"}); err != nil {
		t.Fatalf("accept: %v", err)
	}

	renegotiate := &RenegotiateHandler{UoWFactory: fx.factory, Outbox: fx.outbox}
	if _, err := renegotiate.Handle(ctx, RenegotiateCommand{CommandID: "m-rene", RequestID: requestID, SenderID: "buyer-1", Text: "need a better rate"}); err != nil {
		t.Fatalf("renegotiate: %v", err)
	}

	if status, action := fx.state(t, ctx, requestID, "seller-1"); status != domainnegotiation.StatusNegotiating || action != domainnegotiation.ActionNone {
		t.Fatalf("blocked thread: status=%s action=%s", status, action)
	}

	// fresh terms lift the block
	if _, err := proposal.Handle(ctx, SubmitProposalCommand{
		CommandID: "m-prop2", RequestID: requestID, SenderID: "seller-1",
		DailyAmount: 80000, GuaranteeCount: 5, WorkPeriod: 10,
		BudgetType: domainnegotiation.BudgetDaily, CounterOffer: true,
	}); err != nil {
		t.Fatalf("counter offer: %v", err)
	}
	if _, action := fx.state(t, ctx, requestID, "buyer-1"); action != domainnegotiation.ActionAccept {
		t.Fatalf("buyer action after fresh terms = %s, want %s", action, domainnegotiation.ActionAccept)
	}
}

func TestRejectClosesThread(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t)
	requestID := fx.openRequest(t, ctx)

	reject := &RejectHandler{UoWFactory: fx.factory, Outbox: fx.outbox}
	if _, err := reject.Handle(ctx, RejectCommand{CommandID: "m-rej", RequestID: requestID, SenderID: "seller-1", Reason: "keyword out of scope"}); err != nil {
		t.Fatalf("reject: %v", err)
	}
	if status, _ := fx.state(t, ctx, requestID, "buyer-1"); status != domainnegotiation.StatusRejected {
		t.Fatalf("status = %s, want %s", status, domainnegotiation.StatusRejected)
	}

	message := &SubmitMessageHandler{UoWFactory: fx.factory}
	if _, err := message.Handle(ctx, SubmitMessageCommand{CommandID: "m-late", RequestID: requestID, SenderID: "buyer-1", Text: "wait"}); err != nil {
		// plain chat on a closed thread is still allowed
		t.Fatalf("message after reject: %v", err)
	}
}

func TestThreadFeedWatermarkAndReadReceipts(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t)
	requestID := fx.openRequest(t, ctx)

	message := &SubmitMessageHandler{UoWFactory: fx.factory}
	if _, err := message.Handle(ctx, SubmitMessageCommand{CommandID: "m-hello", RequestID: requestID, SenderID: "seller-1", Text: "hello"}); err != nil {
		t.Fatalf("send message: %v", err)
	}

	feedHandler := &ThreadFeedHandler{UoWFactory: fx.factory}
	feed, err := feedHandler.Handle(ctx, ThreadFeedQuery{RequestID: requestID, ViewerID: "buyer-1"})
	if err != nil {
		t.Fatalf("thread feed: %v", err)
	}
	if len(feed.Items) != 2 {
		t.Fatalf("feed items = %d, want 2", len(feed.Items))
	}
	if feed.Items[1].SenderName != "Lee Seller" {
		t.Errorf("sender name = %q, want joined display name", feed.Items[1].SenderName)
	}
	if feed.Watermark.IsZero() {
		t.Error("watermark not advanced")
	}

	// polling after the watermark returns nothing new
	next, err := feedHandler.Handle(ctx, ThreadFeedQuery{RequestID: requestID, ViewerID: "buyer-1", After: feed.Watermark})
	if err != nil {
		t.Fatalf("second poll: %v", err)
	}
	if len(next.Items) != 0 {
		t.Fatalf("second poll items = %d, want 0", len(next.Items))
	}

	markRead := &MarkReadHandler{UoWFactory: fx.factory}
	result, err := markRead.Handle(ctx, MarkReadCommand{RequestID: requestID, ReaderID: "buyer-1"})
	if err != nil {
		t.Fatalf("mark read: %v", err)
	}
	// only the seller's message qualifies; the buyer's own is skipped
	if result.Updated != 1 {
		t.Fatalf("updated = %d, want 1", result.Updated)
	}

	if _, err := feedHandler.Handle(ctx, ThreadFeedQuery{RequestID: requestID, ViewerID: "stranger"}); !errors.Is(err, domainnegotiation.ErrNotParticipant) {
		t.Fatalf("stranger feed = %v, want %v", err, domainnegotiation.ErrNotParticipant)
	}
	if _, err := feedHandler.Handle(ctx, ThreadFeedQuery{RequestID: requestID, ViewerID: "admin-1"}); err != nil {
		t.Fatalf("admin feed should bypass participant check: %v", err)
	}
}

func TestOpenRequestRequiresServableSlot(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t)

	pending, err := domainslot.NewSlot(domainslot.CreateParams{
		ID:           "slot-pending",
		ProviderID:   "seller-1",
		CampaignName: "fall-sale",
		Keyword:      "keyboard",
	})
	if err != nil {
		t.Fatalf("fixture slot: %v", err)
	}
	if err := fx.slots.Save(ctx, pending); err != nil {
		t.Fatalf("save slot: %v", err)
	}

	handler := &OpenRequestHandler{UoWFactory: fx.factory, Outbox: fx.outbox}
	_, err = handler.Handle(ctx, OpenRequestCommand{
		CommandID:      "req-x",
		SlotID:         "slot-pending",
		RequesterID:    "buyer-1",
		GuaranteeCount: 5,
		InitialBudget:  50000,
	})
	if !errors.Is(err, domainslot.ErrInvalidState) {
		t.Fatalf("open on pending slot = %v, want %v", err, domainslot.ErrInvalidState)
	}
}
