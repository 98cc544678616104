package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	domainnegotiation "slotmarket/internal/domain/negotiation"
	"slotmarket/internal/domain/shared/money"
)

var repoBase = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func threadEntry(t *testing.T, id string, minute int) *domainnegotiation.Message {
	t.Helper()
	msg, err := domainnegotiation.NewMessage(domainnegotiation.NewMessageParams{
		ID:         domainnegotiation.MessageID(id),
		ThreadID:   "req-1",
		SenderID:   "buyer-1",
		SenderRole: domainnegotiation.RoleRequester,
		Kind:       domainnegotiation.KindPlain,
		Text:       "hello " + id,
		CreatedAt:  repoBase.Add(time.Duration(minute) * time.Minute),
	})
	if err != nil {
		t.Fatalf("build message %s: %v", id, err)
	}
	return msg
}

func TestMessageListByThreadWatermark(t *testing.T) {
	ctx := context.Background()
	repo := NewMessageRepository()
	for i, id := range []string{"m1", "m2", "m3"} {
		if err := repo.Append(ctx, threadEntry(t, id, i)); err != nil {
			t.Fatalf("append %s: %v", id, err)
		}
	}

	all, err := repo.ListByThread(ctx, "req-1", time.Time{}, 0)
	if err != nil {
		t.Fatalf("full history: %v", err)
	}
	if len(all) != 3 || all[0].ID != "m1" || all[2].ID != "m3" {
		t.Fatalf("full history out of order: %+v", all)
	}

	// strictly after: the entry at the watermark itself is excluded
	tail, err := repo.ListByThread(ctx, "req-1", repoBase.Add(time.Minute), 0)
	if err != nil {
		t.Fatalf("tail: %v", err)
	}
	if len(tail) != 1 || tail[0].ID != "m3" {
		t.Fatalf("tail = %+v, want just m3", tail)
	}

	limited, err := repo.ListByThread(ctx, "req-1", time.Time{}, 2)
	if err != nil {
		t.Fatalf("limited: %v", err)
	}
	if len(limited) != 2 || limited[1].ID != "m2" {
		t.Fatalf("limit must keep the oldest entries: %+v", limited)
	}
}

func TestMessageAppendIsIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := NewMessageRepository()
	if err := repo.Append(ctx, threadEntry(t, "m1", 0)); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := repo.Append(ctx, threadEntry(t, "m1", 0)); err != nil {
		t.Fatalf("retried append: %v", err)
	}
	all, err := repo.ListByThread(ctx, "req-1", time.Time{}, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("retried append duplicated the entry: %+v", all)
	}
}

func TestMessageMarkRead(t *testing.T) {
	ctx := context.Background()
	repo := NewMessageRepository()
	if err := repo.Append(ctx, threadEntry(t, "m1", 0)); err != nil {
		t.Fatalf("append: %v", err)
	}

	first := repoBase.Add(time.Hour)
	if err := repo.MarkRead(ctx, []domainnegotiation.MessageID{"m1", "missing"}, first); err != nil {
		t.Fatalf("MarkRead: %v", err)
	}
	// a second receipt must not move the original timestamp
	if err := repo.MarkRead(ctx, []domainnegotiation.MessageID{"m1"}, first.Add(time.Hour)); err != nil {
		t.Fatalf("repeat MarkRead: %v", err)
	}

	all, err := repo.ListByThread(ctx, "req-1", time.Time{}, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !all[0].Read() || !all[0].ReadAt.Equal(first) {
		t.Fatalf("read receipt = %v, want %v", all[0].ReadAt, first)
	}
}

func TestRequestSaveBumpsVersionAndIsolates(t *testing.T) {
	ctx := context.Background()
	repo := NewRequestRepository()
	request, err := domainnegotiation.NewRequest(domainnegotiation.CreateRequestParams{
		ID:              "req-1",
		SlotID:          "slot-1",
		RequesterID:     "buyer-1",
		ProviderID:      "seller-1",
		TargetRank:      3,
		GuaranteeCount:  5,
		GuaranteePeriod: 10,
		InitialBudget:   money.Won(50000),
		BudgetType:      domainnegotiation.BudgetDaily,
		CreatedAt:       repoBase,
	})
	if err != nil {
		t.Fatalf("build request: %v", err)
	}

	if err := repo.Save(ctx, request); err != nil {
		t.Fatalf("save: %v", err)
	}
	if request.Version != 1 {
		t.Fatalf("version = %d, want 1", request.Version)
	}
	if err := repo.Save(ctx, request); err != nil {
		t.Fatalf("second save: %v", err)
	}
	if request.Version != 2 {
		t.Fatalf("version = %d, want 2", request.Version)
	}

	loaded, err := repo.ByID(ctx, "req-1")
	if err != nil {
		t.Fatalf("by id: %v", err)
	}
	loaded.Status = domainnegotiation.StatusRejected
	again, err := repo.ByID(ctx, "req-1")
	if err != nil {
		t.Fatalf("by id: %v", err)
	}
	if again.Status == domainnegotiation.StatusRejected {
		t.Fatal("mutating a loaded copy must not leak into the store")
	}

	if _, err := repo.ByID(ctx, "missing"); !errors.Is(err, domainnegotiation.ErrRequestNotFound) {
		t.Fatalf("missing request = %v, want %v", err, domainnegotiation.ErrRequestNotFound)
	}
}
