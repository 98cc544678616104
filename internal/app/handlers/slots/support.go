package slots

import (
	"context"
	"errors"

	"slotmarket/internal/app/outbox"
	"slotmarket/internal/app/uow"
	"slotmarket/internal/domain/shared/events"
	domainuser "slotmarket/internal/domain/user"
)

var (
	ErrUnitOfWorkRequired = errors.New("slots: unit of work required")
	ErrReviewerForbidden  = errors.New("slots: reviewer must be an admin")
)

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

// requireAdmin gates review operations behind the admin role.
func requireAdmin(ctx context.Context, unit uow.UnitOfWork, reviewerID string) error {
	reviewer, err := unit.Users().ByID(ctx, domainuser.ID(reviewerID))
	if err != nil {
		return err
	}
	if !reviewer.HasRole(domainuser.RoleAdmin) {
		return ErrReviewerForbidden
	}
	return nil
}
