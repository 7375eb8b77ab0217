package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	mongoadapter "github.com/lilohq/lilo-bookings/internal/adapters/mongo"
	"github.com/lilohq/lilo-bookings/internal/adapters/postgres"
	"github.com/lilohq/lilo-bookings/internal/adapters/rabbit"
	"github.com/lilohq/lilo-bookings/internal/config"
	"github.com/lilohq/lilo-bookings/internal/email"
	"github.com/lilohq/lilo-bookings/internal/observability"
)

const notificationsQueue = "notifications.q"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	shutdownOtel, err := observability.SetupOTel(context.Background(), cfg.OTLPEndpoint)
	if err != nil {
		log.Fatalf("failed to setup otel: %v", err)
	}
	defer shutdownOtel()

	logger := observability.NewLogger()

	pool, err := pgxpool.New(context.Background(), cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()
	repo := postgres.NewRepository(pool)

	mongoClient, err := mongo.Connect(context.Background(), options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatalf("failed to connect to mongo: %v", err)
	}
	defer mongoClient.Disconnect(context.Background())
	emailLog := mongoadapter.NewEmailLog(mongoClient.Database("lilo"), logger)

	conn, err := amqp.Dial(cfg.RabbitURL)
	if err != nil {
		log.Fatalf("failed to connect to rabbitmq: %v", err)
	}
	defer conn.Close()
	consumer, err := rabbit.NewConsumer(conn, notificationsQueue, "booking.confirmed")
	if err != nil {
		log.Fatalf("failed to create consumer: %v", err)
	}

	sender := email.NewClient(cfg.EmailAPIKey, cfg.EmailFrom, emailOptions(cfg)...)

	notifier := NewNotifier(repo, sender, emailLog, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go notifier.Run(ctx, consumer)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("Shutdown notifier")
}

func emailOptions(cfg *config.Config) []email.Option {
	if cfg.EmailBaseURL == "" {
		return nil
	}
	return []email.Option{email.WithBaseURL(cfg.EmailBaseURL)}
}

// Notifier turns booking.confirmed events into confirmation emails. It sits
// behind the broker so an email outage can never fail a payment verification.
type Notifier struct {
	repo     *postgres.Repository
	sender   *email.Client
	emailLog *mongoadapter.EmailLog
	logger   observability.Logger
}

func NewNotifier(repo *postgres.Repository, sender *email.Client, emailLog *mongoadapter.EmailLog, logger observability.Logger) *Notifier {
	return &Notifier{repo: repo, sender: sender, emailLog: emailLog, logger: logger}
}

func (n *Notifier) Run(ctx context.Context, consumer *rabbit.Consumer) {
	deliveries, err := consumer.Consume(ctx)
	if err != nil {
		n.logger.Error("failed to start consuming", err)
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-deliveries:
			if !ok {
				return
			}
			n.handle(ctx, d)
		}
	}
}

func (n *Notifier) handle(ctx context.Context, d amqp.Delivery) {
	var event struct {
		BookingID uuid.UUID `json:"booking_id"`
	}
	if err := json.Unmarshal(d.Body, &event); err != nil {
		n.logger.Error("malformed event payload", err)
		d.Ack(false)
		return
	}

	logger := n.logger.WithField("booking_id", event.BookingID)

	// Outbox delivery is at-least-once; the email log is the dedupe.
	sent, err := n.emailLog.HasSent(ctx, event.BookingID)
	if err == nil && sent {
		d.Ack(false)
		return
	}

	bc, err := n.repo.GetBookingContext(ctx, event.BookingID)
	if err != nil {
		logger.Error("failed to load booking context", err)
		n.retryOrDrop(d, logger)
		return
	}

	msg := email.ConfirmationMessage(
		bc.Guest.Email, bc.Guest.FullName, bc.Experience.Title, bc.Host.FullName,
		bc.Booking.GuestCount, bc.Booking.TotalPriceCents, bc.Booking.BookingDate,
	)
	providerID, err := n.sender.Send(ctx, msg)
	if err != nil {
		observability.EmailsSentTotal.WithLabelValues("error").Inc()
		logger.Error("failed to send confirmation email", err)
		n.retryOrDrop(d, logger)
		return
	}
	observability.EmailsSentTotal.WithLabelValues("ok").Inc()

	n.emailLog.Record(ctx, mongoadapter.SentEmailDoc{
		BookingID:  event.BookingID,
		Recipient:  bc.Guest.Email,
		Subject:    msg.Subject,
		ProviderID: providerID,
	})
	d.Ack(false)
}

// retryOrDrop requeues once; a redelivered message that fails again is
// dropped so a poison event cannot wedge the queue.
func (n *Notifier) retryOrDrop(d amqp.Delivery, logger observability.Logger) {
	if d.Redelivered {
		logger.Warn("dropping notification after redelivery")
		d.Ack(false)
		return
	}
	d.Nack(false, true)
}
