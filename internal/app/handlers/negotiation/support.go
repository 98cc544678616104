package negotiation

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"slotmarket/internal/app/outbox"
	"slotmarket/internal/app/uow"
	domainnegotiation "slotmarket/internal/domain/negotiation"
	"slotmarket/internal/domain/shared/events"
)

var ErrUnitOfWorkRequired = errors.New("negotiation: unit of work required")

// managedUnit resolves the ambient unit of work or starts one owned by the
// handler. The returned finish func commits only when the handler owns the
// unit; middleware-provided units are committed by the pipeline.
type managedUnit struct {
	unit    uow.UnitOfWork
	ctx     context.Context
	managed bool
}

func beginUnit(ctx context.Context, factory uow.UoWFactory) (managedUnit, error) {
	if unit, ok := uow.FromContext(ctx); ok {
		return managedUnit{unit: unit, ctx: ctx}, nil
	}
	if factory == nil {
		return managedUnit{}, ErrUnitOfWorkRequired
	}
	unit, err := factory.Begin(ctx, uow.TxOptions{})
	if err != nil {
		return managedUnit{}, err
	}
	return managedUnit{unit: unit, ctx: uow.ContextWithUnitOfWork(ctx, unit), managed: true}, nil
}

func (m managedUnit) finish(err error) error {
	if !m.managed {
		return err
	}
	if err != nil {
		_ = m.unit.Rollback(m.ctx)
		return err
	}
	return m.unit.Commit(m.ctx)
}

// drainEvents moves pending aggregate events into the outbox.
func drainEvents(ctx context.Context, box outbox.Outbox, encoder outbox.EventEncoder, recorders ...interface {
	PendingEvents() []events.DomainEvent
	ClearEvents()
}) error {
	for _, rec := range recorders {
		pending := rec.PendingEvents()
		rec.ClearEvents()
		if err := outbox.RecordDomainEvents(ctx, box, encoder, pending); err != nil {
			return err
		}
	}
	return nil
}

func newMessageID() domainnegotiation.MessageID {
	return domainnegotiation.MessageID(uuid.NewString())
}

// loadThread fetches the request and its full ordered message history.
func loadThread(ctx context.Context, unit uow.UnitOfWork, id domainnegotiation.RequestID) (*domainnegotiation.Request, []*domainnegotiation.Message, error) {
	request, err := unit.Requests().ByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	messages, err := unit.Messages().ListByThread(ctx, request.Thread(), time.Time{}, 0)
	if err != nil {
		return nil, nil, err
	}
	domainnegotiation.SortByCreatedAt(messages)
	return request, messages, nil
}
