package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"slotmarket/internal/app/uow"
	domainnegotiation "slotmarket/internal/domain/negotiation"
	domainslot "slotmarket/internal/domain/slot"
	domainuser "slotmarket/internal/domain/user"
)

// Factory wires Mongo transactions into the generic UnitOfWork interface.
type Factory struct {
	DB *mongo.Database

	RequestRepo domainnegotiation.Repository
	MessageRepo domainnegotiation.MessageRepository
	SlotRepo    domainslot.Repository
	UserRepo    domainuser.Repository
}

var ErrUnitOfWorkNotConfigured = errors.New("mongo: unit of work factory missing database")

// Begin starts a MongoDB session/transaction.
func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.DB == nil {
		return nil, ErrUnitOfWorkNotConfigured
	}
	session, err := f.DB.Client().StartSession()
	if err != nil {
		return nil, err
	}
	txnOpts := options.Transaction().SetReadConcern(f.DB.ReadConcern()).SetWriteConcern(f.DB.WriteConcern())
	if err := session.StartTransaction(txnOpts); err != nil {
		session.EndSession(ctx)
		return nil, err
	}
	return &Unit{
		db:       f.DB,
		session:  session,
		requests: f.RequestRepo,
		messages: f.MessageRepo,
		slots:    f.SlotRepo,
		users:    f.UserRepo,
	}, nil
}

type Unit struct {
	db      *mongo.Database
	session mongo.Session

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
	defer u.session.EndSession(ctx)
	if err := u.session.CommitTransaction(ctx); err != nil {
		return err
	}
	return nil
}

func (u *Unit) Rollback(ctx context.Context) error {
	defer u.session.EndSession(ctx)
	return u.session.AbortTransaction(ctx)
}

// InjectContext ensures Mongo session is available in context for downstream repos.
func (u *Unit) InjectContext(ctx context.Context) context.Context {
	return mongo.NewSessionContext(ctx, u.session)
}
