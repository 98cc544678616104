package notify

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/IBM/sarama"

	"slotmarket/internal/app/policies"
	"slotmarket/internal/infra/broker/kafka"
)

// Dedup filters events this consumer already processed. Satisfied by the inbox store.
type Dedup interface {
	Seen(ctx context.Context, eventID string) (bool, error)
}

var ErrHandlerNotConfigured = errors.New("notify: event handler missing dependencies")

type cloudEvent struct {
	ID   string          `json:"id"`
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// EventHandler consumes domain events off the broker and fans them out as
// notifications. The partition key carries the aggregate ID, which doubles as
// the notification address until user preferences exist.
type EventHandler struct {
	Inbox    Dedup
	Notifier policies.Notifier
	Logger   *slog.Logger
}

func (h EventHandler) Handle(ctx context.Context, msg *sarama.ConsumerMessage) error {
	if h.Notifier == nil {
		return ErrHandlerNotConfigured
	}
	var evt cloudEvent
	if err := json.Unmarshal(msg.Value, &evt); err != nil {
		// malformed payloads are dropped, redelivery cannot fix them
		if h.Logger != nil {
			h.Logger.WarnContext(ctx, "dropping malformed event", "topic", msg.Topic, "error", err)
		}
		return nil
	}
	if h.Inbox != nil && evt.ID != "" {
		seen, err := h.Inbox.Seen(ctx, evt.ID)
		if err != nil {
			return err
		}
		if seen {
			return nil
		}
	}

	var data map[string]any
	if len(evt.Data) > 0 {
		if err := json.Unmarshal(evt.Data, &data); err != nil {
			data = nil
		}
	}
	return h.Notifier.Send(ctx, string(msg.Key), evt.Type, data)
}

var _ kafka.MessageHandler = EventHandler{}
