package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	redisclient "github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	mongoadapter "github.com/lilohq/lilo-bookings/internal/adapters/mongo"
	"github.com/lilohq/lilo-bookings/internal/adapters/postgres"
	"github.com/lilohq/lilo-bookings/internal/adapters/rabbit"
	redisadapter "github.com/lilohq/lilo-bookings/internal/adapters/redis"
	"github.com/lilohq/lilo-bookings/internal/booking"
	"github.com/lilohq/lilo-bookings/internal/config"
	httphandler "github.com/lilohq/lilo-bookings/internal/http"
	"github.com/lilohq/lilo-bookings/internal/idempotency"
	"github.com/lilohq/lilo-bookings/internal/observability"
	"github.com/lilohq/lilo-bookings/internal/payments"
	"github.com/lilohq/lilo-bookings/internal/ratelimit"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	shutdown, err := observability.SetupOTel(context.Background(), cfg.OTLPEndpoint)
	if err != nil {
		log.Fatalf("failed to setup otel: %v", err)
	}
	defer shutdown()

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
	audit := mongoadapter.NewAuditLogger(mongoClient.Database("lilo"), logger)

	redisClient := redisclient.NewClient(&redisclient.Options{Addr: cfg.RedisAddr})
	redisCache := redisadapter.NewCache(redisClient)
	redisIdemp := redisadapter.NewIdempotency(redisClient)
	idemp := idempotency.New(redisIdemp, time.Hour)
	rl := ratelimit.NewRedisLimiter(redisCache)

	// The API itself does not publish; events flow through the outbox. The
	// connection check at startup catches a misconfigured broker early.
	rabbitConn, err := amqp.Dial(cfg.RabbitURL)
	if err != nil {
		log.Fatalf("failed to connect to rabbitmq: %v", err)
	}
	defer rabbitConn.Close()
	if _, err := rabbit.NewPublisher(rabbitConn); err != nil {
		log.Fatalf("failed to declare events exchange: %v", err)
	}

	provider := payments.NewClient(cfg.PaymentSecretKey, paymentOptions(cfg)...)

	svc := booking.NewService(repo, provider, audit, logger, cfg.CheckoutSuccessURL, cfg.CheckoutCancelURL)
	handlers := httphandler.NewHandlers(svc, idemp)
	r := httphandler.SetupRouter(handlers, logger, rl, cfg.JWTSecret)

	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutdown Server ...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server Shutdown:", err)
	}
	logger.Info("Server exiting")
}

func paymentOptions(cfg *config.Config) []payments.Option {
	if cfg.PaymentBaseURL == "" {
		return nil
	}
	return []payments.Option{payments.WithBaseURL(cfg.PaymentBaseURL)}
}
