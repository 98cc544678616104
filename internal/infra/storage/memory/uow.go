package memory

import (
	"context"
	"errors"

	"slotmarket/internal/app/uow"
	domainnegotiation "slotmarket/internal/domain/negotiation"
	domainslot "slotmarket/internal/domain/slot"
	domainuser "slotmarket/internal/domain/user"
)

// Factory wires in-memory repositories into a unit-of-work boundary.
type Factory struct {
	RequestRepo domainnegotiation.Repository
	MessageRepo domainnegotiation.MessageRepository
	SlotRepo    domainslot.Repository
	UserRepo    domainuser.Repository
}

// ErrFactoryMisconfigured indicates missing repositories.
var ErrFactoryMisconfigured = errors.New("memory: unit of work factory misconfigured")

// Begin starts a lightweight transaction boundary. No isolation is provided but
// the abstraction matches the application ports.
func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.RequestRepo == nil || f.MessageRepo == nil || f.SlotRepo == nil || f.UserRepo == nil {
		return nil, ErrFactoryMisconfigured
	}
	return &Unit{
		requests: f.RequestRepo,
		messages: f.MessageRepo,
		slots:    f.SlotRepo,
		users:    f.UserRepo,
	}, nil
}

// Unit is a lightweight uow.UnitOfWork backed by in-memory stores.
type Unit struct {
	requests domainnegotiation.Repository
	messages domainnegotiation.MessageRepository
	slots    domainslot.Repository
	users    domainuser.Repository
}

func (u *Unit) Requests() domainnegotiation.Repository {
	return u.requests
}

func (u *Unit) Messages() domainnegotiation.MessageRepository {
	return u.messages
}

func (u *Unit) Slots() domainslot.Repository {
	return u.slots
}

func (u *Unit) Users() domainuser.Repository {
	return u.users
}

func (u *Unit) Commit(ctx context.Context) error {
	return nil
}

func (u *Unit) Rollback(ctx context.Context) error {
	return nil
}
