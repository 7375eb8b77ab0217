package mongo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/lilohq/lilo-bookings/internal/observability"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// EmailLog keeps a record of every confirmation email the notifier attempted,
// so support can answer "did the guest get their email" without touching the
// provider dashboard.
type EmailLog struct {
	coll   *mongo.Collection
	logger observability.Logger
}

func NewEmailLog(db *mongo.Database, logger observability.Logger) *EmailLog {
	return &EmailLog{
		coll:   db.Collection("sent_emails"),
		logger: logger,
	}
}

type SentEmailDoc struct {
	ID         uuid.UUID `bson:"_id"`
	BookingID  uuid.UUID `bson:"booking_id"`
	Recipient  string    `bson:"recipient"`
	Subject    string    `bson:"subject"`
	ProviderID string    `bson:"provider_id,omitempty"`
	SentAt     time.Time `bson:"sent_at"`
}

func (e *EmailLog) Record(ctx context.Context, doc SentEmailDoc) error {
	doc.ID = uuid.New()
	doc.SentAt = time.Now()
	_, err := e.coll.InsertOne(ctx, doc)
	if err != nil {
		e.logger.Error("failed to record sent email", err)
		return err
	}
	return nil
}

func (e *EmailLog) HasSent(ctx context.Context, bookingID uuid.UUID) (bool, error) {
	count, err := e.coll.CountDocuments(ctx, bson.M{"booking_id": bookingID})
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
