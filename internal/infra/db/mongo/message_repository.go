package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainnegotiation "slotmarket/internal/domain/negotiation"
	"slotmarket/internal/domain/shared/money"
)

type MessageRepository struct {
	col *mongo.Collection
}

func NewMessageRepository(db *mongo.Database) *MessageRepository {
	return &MessageRepository{col: db.Collection("thread_messages")}
}

// Append upserts by id so a retried write cannot duplicate a thread entry.
func (r *MessageRepository) Append(ctx context.Context, msg *domainnegotiation.Message) error {
	doc := newMessageDocument(msg)
	opts := options.Replace().SetUpsert(true)
	_, err := r.col.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, opts)
	return err
}

func (r *MessageRepository) ListByThread(ctx context.Context, thread domainnegotiation.ThreadID, after time.Time, limit int) ([]*domainnegotiation.Message, error) {
	filter := bson.M{"thread_id": string(thread)}
	if !after.IsZero() {
		filter["created_at"] = bson.M{"$gt": after.UnixMilli()}
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	if limit > 0 {
		opts = opts.SetLimit(int64(limit))
	}
	cursor, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	var items []*domainnegotiation.Message
	for cursor.Next(ctx) {
		var doc messageDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		items = append(items, doc.toMessage())
	}
	return items, cursor.Err()
}

func (r *MessageRepository) MarkRead(ctx context.Context, ids []domainnegotiation.MessageID, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, string(id))
	}
	filter := bson.M{"_id": bson.M{"$in": keys}, "read_at": 0}
	update := bson.M{"$set": bson.M{"read_at": at.UTC().UnixMilli()}}
	_, err := r.col.UpdateMany(ctx, filter, update)
	return err
}

type messageDocument struct {
	ID          string               `bson:"_id"`
	ThreadID    string               `bson:"thread_id"`
	SenderID    string               `bson:"sender_id"`
	SenderRole  string               `bson:"sender_role"`
	Kind        string               `bson:"kind"`
	Text        string               `bson:"text,omitempty"`
	Proposal    *proposalDocument    `bson:"proposal,omitempty"`
	Attachments []attachmentDocument `bson:"attachments,omitempty"`
	CreatedAt   int64                `bson:"created_at"`
	ReadAt      int64                `bson:"read_at"`
}

type proposalDocument struct {
	DailyAmount    int64  `bson:"daily_amount"`
	TotalAmount    int64  `bson:"total_amount"`
	Currency       string `bson:"currency"`
	GuaranteeCount int    `bson:"guarantee_count"`
	TargetRank     int    `bson:"target_rank"`
	WorkPeriod     int    `bson:"work_period"`
	BudgetType     string `bson:"budget_type"`
}

type attachmentDocument struct {
	Name     string `bson:"name"`
	URL      string `bson:"url"`
	Size     int64  `bson:"size"`
	MimeType string `bson:"mime_type"`
}

func newMessageDocument(m *domainnegotiation.Message) messageDocument {
	doc := messageDocument{
		ID:         string(m.ID),
		ThreadID:   string(m.ThreadID),
		SenderID:   m.SenderID,
		SenderRole: string(m.SenderRole),
		Kind:       string(m.Kind),
		Text:       m.Text,
		CreatedAt:  m.CreatedAt.UnixMilli(),
	}
	if !m.ReadAt.IsZero() {
		doc.ReadAt = m.ReadAt.UnixMilli()
	}
	if m.Proposal != nil {
		doc.Proposal = &proposalDocument{
			DailyAmount:    m.Proposal.DailyAmount.Amount,
			TotalAmount:    m.Proposal.TotalAmount.Amount,
			Currency:       currencyOf(m.Proposal.DailyAmount, m.Proposal.TotalAmount),
			GuaranteeCount: m.Proposal.GuaranteeCount,
			TargetRank:     m.Proposal.TargetRank,
			WorkPeriod:     m.Proposal.WorkPeriod,
			BudgetType:     string(m.Proposal.BudgetType),
		}
	}
	for _, att := range m.Attachments {
		doc.Attachments = append(doc.Attachments, attachmentDocument(att))
	}
	return doc
}

func (d messageDocument) toMessage() *domainnegotiation.Message {
	msg := &domainnegotiation.Message{
		ID:         domainnegotiation.MessageID(d.ID),
		ThreadID:   domainnegotiation.ThreadID(d.ThreadID),
		SenderID:   d.SenderID,
		SenderRole: domainnegotiation.Role(d.SenderRole),
		Kind:       domainnegotiation.MessageKind(d.Kind),
		Text:       d.Text,
		CreatedAt:  timestampToTime(d.CreatedAt),
	}
	if d.ReadAt > 0 {
		msg.ReadAt = timestampToTime(d.ReadAt)
	}
	if d.Proposal != nil {
		currency := d.Proposal.Currency
		if currency == "" {
			currency = money.DefaultCurrency
		}
		msg.Proposal = &domainnegotiation.Proposal{
			DailyAmount:    money.Money{Amount: d.Proposal.DailyAmount, Currency: currency},
			TotalAmount:    money.Money{Amount: d.Proposal.TotalAmount, Currency: currency},
			GuaranteeCount: d.Proposal.GuaranteeCount,
			TargetRank:     d.Proposal.TargetRank,
			WorkPeriod:     d.Proposal.WorkPeriod,
			BudgetType:     domainnegotiation.BudgetType(d.Proposal.BudgetType),
		}
	}
	for _, att := range d.Attachments {
		msg.Attachments = append(msg.Attachments, domainnegotiation.Attachment(att))
	}
	return msg
}
