package uow

import (
	"context"

	domainnegotiation "slotmarket/internal/domain/negotiation"
	domainslot "slotmarket/internal/domain/slot"
	domainuser "slotmarket/internal/domain/user"
)

// UnitOfWork coordinates repositories inside a transaction boundary.
type UnitOfWork interface {
	Requests() domainnegotiation.Repository
	Messages() domainnegotiation.MessageRepository
	Slots() domainslot.Repository
	Users() domainuser.Repository

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// UoWFactory starts unit of work instances.
type UoWFactory interface {
	Begin(ctx context.Context, opts TxOptions) (UnitOfWork, error)
}

// TxOptions configure transaction boundaries.
type TxOptions struct {
	ReadOnly bool
}
