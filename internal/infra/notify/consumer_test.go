package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/IBM/sarama"
)

type fakeNotifier struct {
	sent []sentNotification
	err  error
}

type sentNotification struct {
	to       string
	template string
	data     any
}

func (n *fakeNotifier) Send(ctx context.Context, to string, template string, data any) error {
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, sentNotification{to: to, template: template, data: data})
	return nil
}

type fakeDedup struct {
	seen map[string]bool
	err  error
}

func (d fakeDedup) Seen(ctx context.Context, eventID string) (bool, error) {
	return d.seen[eventID], d.err
}

func consumerMessage(value string) *sarama.ConsumerMessage {
	return &sarama.ConsumerMessage{
		Topic: "slotmarket.negotiation.events.v1",
		Key:   []byte("req-1"),
		Value: []byte(value),
	}
}

func TestHandleSendsNotification(t *testing.T) {
	notifier := &fakeNotifier{}
	h := EventHandler{Inbox: fakeDedup{}, Notifier: notifier}

	msg := consumerMessage(`{"id":"evt-1","type":"negotiation.proposal_submitted.v1","data":{"request_id":"req-1"}}`)
	if err := h.Handle(context.Background(), msg); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(notifier.sent) != 1 {
		t.Fatalf("sent = %d, want 1", len(notifier.sent))
	}
	got := notifier.sent[0]
	if got.to != "req-1" || got.template != "negotiation.proposal_submitted.v1" {
		t.Fatalf("notification = %+v", got)
	}
	payload, ok := got.data.(map[string]any)
	if !ok || payload["request_id"] != "req-1" {
		t.Fatalf("data = %+v", got.data)
	}
}

func TestHandleSkipsSeenEvents(t *testing.T) {
	notifier := &fakeNotifier{}
	h := EventHandler{
		Inbox:    fakeDedup{seen: map[string]bool{"evt-1": true}},
		Notifier: notifier,
	}
	msg := consumerMessage(`{"id":"evt-1","type":"negotiation.accepted.v1"}`)
	if err := h.Handle(context.Background(), msg); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(notifier.sent) != 0 {
		t.Fatalf("redelivered event must not notify again: %+v", notifier.sent)
	}
}

func TestHandleDropsMalformedPayload(t *testing.T) {
	notifier := &fakeNotifier{}
	h := EventHandler{Notifier: notifier}
	if err := h.Handle(context.Background(), consumerMessage(`{not json`)); err != nil {
		t.Fatalf("malformed payload must be dropped, got %v", err)
	}
	if len(notifier.sent) != 0 {
		t.Fatalf("malformed payload must not notify: %+v", notifier.sent)
	}
}

func TestHandlePropagatesDedupError(t *testing.T) {
	boom := errors.New("inbox down")
	h := EventHandler{Inbox: fakeDedup{err: boom}, Notifier: &fakeNotifier{}}
	msg := consumerMessage(`{"id":"evt-1","type":"negotiation.accepted.v1"}`)
	if err := h.Handle(context.Background(), msg); !errors.Is(err, boom) {
		t.Fatalf("Handle = %v, want %v", err, boom)
	}
}

func TestHandleRequiresNotifier(t *testing.T) {
	h := EventHandler{}
	if err := h.Handle(context.Background(), consumerMessage(`{}`)); !errors.Is(err, ErrHandlerNotConfigured) {
		t.Fatalf("Handle = %v, want %v", err, ErrHandlerNotConfigured)
	}
}
