package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainnegotiation "slotmarket/internal/domain/negotiation"
	"slotmarket/internal/domain/shared/money"
	domainslot "slotmarket/internal/domain/slot"
)

var ErrConcurrentUpdate = errors.New("mongo: concurrent update detected")

type RequestRepository struct {
	col *mongo.Collection
}

func NewRequestRepository(db *mongo.Database) *RequestRepository {
	return &RequestRepository{col: db.Collection("agg_request")}
}

func (r *RequestRepository) ByID(ctx context.Context, id domainnegotiation.RequestID) (*domainnegotiation.Request, error) {
	var doc requestDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainnegotiation.ErrRequestNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *RequestRepository) Save(ctx context.Context, req *domainnegotiation.Request) error {
	doc := newRequestDocument(req)
	filter := bson.M{"_id": doc.ID, "version": req.Version}
	doc.Version = req.Version + 1
	update := bson.M{"$set": doc}
	opts := options.Update().SetUpsert(true)
	res, err := r.col.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrConcurrentUpdate
		}
		return err
	}
	if res.MatchedCount == 0 && res.UpsertedCount == 0 {
		return ErrConcurrentUpdate
	}
	req.Version = doc.Version
	return nil
}

func (r *RequestRepository) ListByParty(ctx context.Context, partyID string) ([]*domainnegotiation.Request, error) {
	filter := bson.M{"$or": bson.A{
		bson.M{"requester_id": partyID},
		bson.M{"provider_id": partyID},
	}}
	return r.list(ctx, filter)
}

func (r *RequestRepository) ListByStatus(ctx context.Context, status domainnegotiation.RequestStatus) ([]*domainnegotiation.Request, error) {
	filter := bson.M{}
	if status != "" {
		filter["status"] = string(status)
	}
	return r.list(ctx, filter)
}

func (r *RequestRepository) list(ctx context.Context, filter bson.M) ([]*domainnegotiation.Request, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	var items []*domainnegotiation.Request
	for cursor.Next(ctx) {
		var doc requestDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		items = append(items, doc.toAggregate())
	}
	return items, cursor.Err()
}

type requestDocument struct {
	ID              string         `bson:"_id"`
	SlotID          string         `bson:"slot_id"`
	RequesterID     string         `bson:"requester_id"`
	ProviderID      string         `bson:"provider_id"`
	TargetRank      int            `bson:"target_rank"`
	GuaranteeCount  int            `bson:"guarantee_count"`
	GuaranteePeriod int            `bson:"guarantee_period"`
	InitialBudget   int64          `bson:"initial_budget"`
	Currency        string         `bson:"currency"`
	BudgetType      string         `bson:"budget_type"`
	Status          string         `bson:"status"`
	FinalTerms      *termsDocument `bson:"final_terms,omitempty"`
	CreatedAt       int64          `bson:"created_at"`
	UpdatedAt       int64          `bson:"updated_at"`
	Version         int64          `bson:"version"`
}

type termsDocument struct {
	DailyAmount    int64  `bson:"daily_amount"`
	TotalAmount    int64  `bson:"total_amount"`
	Currency       string `bson:"currency"`
	GuaranteeCount int    `bson:"guarantee_count"`
	TargetRank     int    `bson:"target_rank"`
	WorkPeriod     int    `bson:"work_period"`
	BudgetType     string `bson:"budget_type"`
}

func newRequestDocument(r *domainnegotiation.Request) requestDocument {
	doc := requestDocument{
		ID:              string(r.ID),
		SlotID:          string(r.SlotID),
		RequesterID:     r.RequesterID,
		ProviderID:      r.ProviderID,
		TargetRank:      r.TargetRank,
		GuaranteeCount:  r.GuaranteeCount,
		GuaranteePeriod: r.GuaranteePeriod,
		InitialBudget:   r.InitialBudget.Amount,
		Currency:        r.InitialBudget.Currency,
		BudgetType:      string(r.BudgetType),
		Status:          string(r.Status),
		CreatedAt:       r.CreatedAt.UnixMilli(),
		UpdatedAt:       r.UpdatedAt.UnixMilli(),
		Version:         r.Version,
	}
	if r.FinalTerms != nil {
		terms := newTermsDocument(*r.FinalTerms)
		doc.FinalTerms = &terms
	}
	return doc
}

func newTermsDocument(t domainnegotiation.Terms) termsDocument {
	return termsDocument{
		DailyAmount:    t.DailyAmount.Amount,
		TotalAmount:    t.TotalAmount.Amount,
		Currency:       currencyOf(t.DailyAmount, t.TotalAmount),
		GuaranteeCount: t.GuaranteeCount,
		TargetRank:     t.TargetRank,
		WorkPeriod:     t.WorkPeriod,
		BudgetType:     string(t.BudgetType),
	}
}

func (d requestDocument) toAggregate() *domainnegotiation.Request {
	currency := d.Currency
	if currency == "" {
		currency = money.DefaultCurrency
	}
	agg := &domainnegotiation.Request{
		ID:              domainnegotiation.RequestID(d.ID),
		SlotID:          domainslot.SlotID(d.SlotID),
		RequesterID:     d.RequesterID,
		ProviderID:      d.ProviderID,
		TargetRank:      d.TargetRank,
		GuaranteeCount:  d.GuaranteeCount,
		GuaranteePeriod: d.GuaranteePeriod,
		InitialBudget:   money.Money{Amount: d.InitialBudget, Currency: currency},
		BudgetType:      domainnegotiation.BudgetType(d.BudgetType),
		Status:          domainnegotiation.RequestStatus(d.Status),
		CreatedAt:       timestampToTime(d.CreatedAt),
		UpdatedAt:       timestampToTime(d.UpdatedAt),
		Version:         d.Version,
	}
	if d.FinalTerms != nil {
		terms := d.FinalTerms.toTerms()
		agg.FinalTerms = &terms
	}
	return agg
}

func (d termsDocument) toTerms() domainnegotiation.Terms {
	currency := d.Currency
	if currency == "" {
		currency = money.DefaultCurrency
	}
	return domainnegotiation.Terms{
		DailyAmount:    money.Money{Amount: d.DailyAmount, Currency: currency},
		TotalAmount:    money.Money{Amount: d.TotalAmount, Currency: currency},
		GuaranteeCount: d.GuaranteeCount,
		TargetRank:     d.TargetRank,
		WorkPeriod:     d.WorkPeriod,
		BudgetType:     domainnegotiation.BudgetType(d.BudgetType),
	}
}

func currencyOf(candidates ...money.Money) string {
	for _, m := range candidates {
		if m.Currency != "" {
			return m.Currency
		}
	}
	return money.DefaultCurrency
}

func timestampToTime(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
