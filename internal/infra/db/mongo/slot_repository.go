package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainslot "slotmarket/internal/domain/slot"
)

type SlotRepository struct {
	col *mongo.Collection
}

func NewSlotRepository(db *mongo.Database) *SlotRepository {
	return &SlotRepository{col: db.Collection("agg_slot")}
}

func (r *SlotRepository) ByID(ctx context.Context, id domainslot.SlotID) (*domainslot.Slot, error) {
	var doc slotDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainslot.ErrSlotNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *SlotRepository) Save(ctx context.Context, s *domainslot.Slot) error {
	doc := newSlotDocument(s)
	filter := bson.M{"_id": doc.ID, "version": s.Version}
	doc.Version = s.Version + 1
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
	s.Version = doc.Version
	return nil
}

func (r *SlotRepository) ListByState(ctx context.Context, state domainslot.SlotState) ([]*domainslot.Slot, error) {
	filter := bson.M{}
	if state != "" {
		filter["state"] = string(state)
	}
	return r.list(ctx, filter)
}

func (r *SlotRepository) ListByProvider(ctx context.Context, providerID string) ([]*domainslot.Slot, error) {
	return r.list(ctx, bson.M{"provider_id": providerID})
}

func (r *SlotRepository) list(ctx context.Context, filter bson.M) ([]*domainslot.Slot, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	var items []*domainslot.Slot
	for cursor.Next(ctx) {
		var doc slotDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		items = append(items, doc.toAggregate())
	}
	return items, cursor.Err()
}

type slotDocument struct {
	ID           string `bson:"_id"`
	ProviderID   string `bson:"provider_id"`
	CampaignName string `bson:"campaign_name"`
	Keyword      string `bson:"keyword"`
	ProductURL   string `bson:"product_url,omitempty"`
	ReviewNote   string `bson:"review_note,omitempty"`
	State        string `bson:"state"`
	StartDate    int64  `bson:"start_date"`
	EndDate      int64  `bson:"end_date"`
	CreatedAt    int64  `bson:"created_at"`
	UpdatedAt    int64  `bson:"updated_at"`
	Version      int64  `bson:"version"`
}

func newSlotDocument(s *domainslot.Slot) slotDocument {
	doc := slotDocument{
		ID:           string(s.ID),
		ProviderID:   s.ProviderID,
		CampaignName: s.CampaignName,
		Keyword:      s.Keyword,
		ProductURL:   s.ProductURL,
		ReviewNote:   s.ReviewNote,
		State:        string(s.State),
		CreatedAt:    s.CreatedAt.UnixMilli(),
		UpdatedAt:    s.UpdatedAt.UnixMilli(),
		Version:      s.Version,
	}
	if !s.StartDate.IsZero() {
		doc.StartDate = s.StartDate.UnixMilli()
	}
	if !s.EndDate.IsZero() {
		doc.EndDate = s.EndDate.UnixMilli()
	}
	return doc
}

func (d slotDocument) toAggregate() *domainslot.Slot {
	agg := &domainslot.Slot{
		ID:           domainslot.SlotID(d.ID),
		ProviderID:   d.ProviderID,
		CampaignName: d.CampaignName,
		Keyword:      d.Keyword,
		ProductURL:   d.ProductURL,
		ReviewNote:   d.ReviewNote,
		State:        domainslot.SlotState(d.State),
		CreatedAt:    timestampToTime(d.CreatedAt),
		UpdatedAt:    timestampToTime(d.UpdatedAt),
		Version:      d.Version,
	}
	if d.StartDate > 0 {
		agg.StartDate = timestampToTime(d.StartDate)
	}
	if d.EndDate > 0 {
		agg.EndDate = timestampToTime(d.EndDate)
	}
	return agg
}
