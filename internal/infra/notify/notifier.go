package notify

import (
	"context"
	"log/slog"

	"slotmarket/internal/app/policies"
)

// SlogNotifier writes notifications to the application log. It stands in for a
// real delivery channel (email, push) behind the policies.Notifier port.
type SlogNotifier struct {
	Logger *slog.Logger
}

func (n SlogNotifier) Send(ctx context.Context, to string, template string, data any) error {
	if n.Logger != nil {
		n.Logger.InfoContext(ctx, "notification", "to", to, "template", template, "data", data)
	}
	return nil
}

var _ policies.Notifier = SlogNotifier{}
