package mongo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/lilohq/lilo-bookings/internal/domain"
	"github.com/lilohq/lilo-bookings/internal/observability"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type AuditLogger struct {
	coll   *mongo.Collection
	logger observability.Logger
}

func NewAuditLogger(db *mongo.Database, logger observability.Logger) *AuditLogger {
	return &AuditLogger{
		coll:   db.Collection("audit_logs"),
		logger: logger,
	}
}

type AuditLog struct {
	ID        uuid.UUID `bson:"_id"`
	Action    string    `bson:"action"`
	UserID    uuid.UUID `bson:"user_id"`
	Timestamp time.Time `bson:"timestamp"`
	Data      bson.M    `bson:"data"`
}

func (a *AuditLogger) LogEvent(ctx context.Context, action string, userID uuid.UUID, data map[string]interface{}) error {
	log := AuditLog{
		ID:        uuid.New(),
		Action:    action,
		UserID:    userID,
		Timestamp: time.Now(),
		Data:      bson.M(data),
	}
	_, err := a.coll.InsertOne(ctx, log)
	if err != nil {
		a.logger.Error("failed to insert audit log", err)
		return err
	}
	return nil
}

// LogBooking records a booking lifecycle action (booking.created,
// booking.confirmed, booking.cancelled) against the guest.
func (a *AuditLogger) LogBooking(ctx context.Context, action string, b domain.Booking) error {
	data := map[string]interface{}{
		"booking_id":        b.ID,
		"experience_id":     b.ExperienceID,
		"status":            b.Status,
		"guest_count":       b.GuestCount,
		"total_price_cents": b.TotalPriceCents,
	}
	if b.PaymentSessionID != nil {
		data["payment_session_id"] = *b.PaymentSessionID
	}
	return a.LogEvent(ctx, action, b.GuestID, data)
}
