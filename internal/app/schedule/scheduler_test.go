package schedule

import (
	"context"
	"errors"
	"testing"
	"time"

	"slotmarket/internal/app/commands"
	"slotmarket/internal/app/handlers/slots"
	domainslot "slotmarket/internal/domain/slot"
	"slotmarket/internal/infra/storage/memory"
)

type recordingBus struct {
	dispatched []commands.Command
	err        error
}

func (b *recordingBus) Dispatch(ctx context.Context, cmd commands.Command) (any, error) {
	b.dispatched = append(b.dispatched, cmd)
	return nil, b.err
}

func seedSlot(t *testing.T, repo *memory.SlotRepository, id string, state domainslot.SlotState, start, end time.Time) {
	t.Helper()
	ctx := context.Background()
	adSlot, err := domainslot.NewSlot(domainslot.CreateParams{
		ID:           domainslot.SlotID(id),
		ProviderID:   "seller-1",
		CampaignName: "spring-sale",
		Keyword:      "wireless earbuds",
		ProductURL:   "https://shop.example.com/p/42",
		StartDate:    start,
		EndDate:      end,
	})
	if err != nil {
		t.Fatalf("seed slot %s: %v", id, err)
	}
	switch state {
	case domainslot.StatePending:
	case domainslot.StateApproved:
		if err := adSlot.Approve("admin-1", "", time.Now().UTC()); err != nil {
			t.Fatalf("approve %s: %v", id, err)
		}
	case domainslot.StateLive:
		if err := adSlot.Approve("admin-1", "", time.Now().UTC()); err != nil {
			t.Fatalf("approve %s: %v", id, err)
		}
		if err := adSlot.GoLive(time.Now().UTC()); err != nil {
			t.Fatalf("go live %s: %v", id, err)
		}
	default:
		t.Fatalf("seedSlot does not support state %s", state)
	}
	adSlot.ClearEvents()
	if err := repo.Save(ctx, adSlot); err != nil {
		t.Fatalf("save %s: %v", id, err)
	}
}

func newSchedulerFixture() (memory.Factory, *memory.SlotRepository) {
	slotsRepo := memory.NewSlotRepository()
	return memory.Factory{
		RequestRepo: memory.NewRequestRepository(),
		MessageRepo: memory.NewMessageRepository(),
		SlotRepo:    slotsRepo,
		UserRepo:    memory.NewUserRepository(),
	}, slotsRepo
}

func TestRunRequiresDependencies(t *testing.T) {
	s := &CampaignScheduler{}
	if err := s.Run(context.Background()); !errors.Is(err, ErrSchedulerNotConfigured) {
		t.Fatalf("Run() = %v, want %v", err, ErrSchedulerNotConfigured)
	}
}

func TestCollectDue(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	factory, repo := newSchedulerFixture()

	// approved with a start date in the past: should go live
	seedSlot(t, repo, "slot-due", domainslot.StateApproved, now.Add(-time.Hour), now.Add(72*time.Hour))
	// approved but the campaign has not started yet
	seedSlot(t, repo, "slot-early", domainslot.StateApproved, now.Add(time.Hour), now.Add(72*time.Hour))
	// approved without campaign dates: manual transitions only
	seedSlot(t, repo, "slot-manual", domainslot.StateApproved, time.Time{}, time.Time{})
	// live past its end date: should end
	seedSlot(t, repo, "slot-over", domainslot.StateLive, now.Add(-72*time.Hour), now.Add(-time.Hour))
	// live and still running
	seedSlot(t, repo, "slot-running", domainslot.StateLive, now.Add(-time.Hour), now.Add(time.Hour))

	s := &CampaignScheduler{Commands: &recordingBus{}, UoWFactory: factory}
	due, err := s.collectDue(context.Background(), now)
	if err != nil {
		t.Fatalf("collectDue: %v", err)
	}
	if len(due) != 2 {
		t.Fatalf("due commands = %d, want 2: %+v", len(due), due)
	}

	goLive, ok := due[0].(slots.GoLiveCommand)
	if !ok || goLive.SlotID != "slot-due" || goLive.ActorID != SystemActorID {
		t.Fatalf("first command = %+v, want go-live for slot-due", due[0])
	}
	end, ok := due[1].(slots.EndSlotCommand)
	if !ok || end.SlotID != "slot-over" || end.ActorID != SystemActorID {
		t.Fatalf("second command = %+v, want end for slot-over", due[1])
	}
}

func TestTickDispatchesAndSurvivesErrors(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	factory, repo := newSchedulerFixture()
	seedSlot(t, repo, "slot-a", domainslot.StateApproved, now.Add(-time.Hour), time.Time{})
	seedSlot(t, repo, "slot-b", domainslot.StateLive, now.Add(-72*time.Hour), now.Add(-time.Hour))

	bus := &recordingBus{err: errors.New("already moved")}
	s := &CampaignScheduler{Commands: bus, UoWFactory: factory}
	s.tick(context.Background(), now)

	if len(bus.dispatched) != 2 {
		t.Fatalf("dispatched = %d, want every due command even when dispatch fails", len(bus.dispatched))
	}
}
