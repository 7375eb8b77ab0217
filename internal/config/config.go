package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr    string
	PostgresDSN string
	MongoURI    string
	RedisAddr   string
	RabbitURL   string

	JWTSecret string

	PaymentSecretKey string
	PaymentBaseURL   string

	EmailAPIKey  string
	EmailBaseURL string
	EmailFrom    string

	CheckoutSuccessURL string
	CheckoutCancelURL  string

	// PendingTTL bounds how long an abandoned checkout may keep a booking in
	// pending before the expiry worker cancels it.
	PendingTTL time.Duration

	OTLPEndpoint string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	pendingTTL, _ := time.ParseDuration(os.Getenv("PENDING_TTL"))
	if pendingTTL == 0 {
		pendingTTL = 24 * time.Hour
	}

	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	return &Config{
		HTTPAddr:           addr,
		PostgresDSN:        os.Getenv("POSTGRES_DSN"),
		MongoURI:           os.Getenv("MONGO_URI"),
		RedisAddr:          os.Getenv("REDIS_ADDR"),
		RabbitURL:          os.Getenv("RABBIT_URL"),
		JWTSecret:          os.Getenv("JWT_SECRET"),
		PaymentSecretKey:   os.Getenv("PAYMENT_SECRET_KEY"),
		PaymentBaseURL:     os.Getenv("PAYMENT_BASE_URL"),
		EmailAPIKey:        os.Getenv("EMAIL_API_KEY"),
		EmailBaseURL:       os.Getenv("EMAIL_BASE_URL"),
		EmailFrom:          os.Getenv("EMAIL_FROM"),
		CheckoutSuccessURL: os.Getenv("CHECKOUT_SUCCESS_URL"),
		CheckoutCancelURL:  os.Getenv("CHECKOUT_CANCEL_URL"),
		PendingTTL:         pendingTTL,
		OTLPEndpoint:       os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}, nil
}
