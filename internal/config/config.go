package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	arasTestURL = "https://customerservicestest.araskargo.com.tr/arascargoservice/arascargoservice.asmx"
	arasProdURL = "https://customerws.araskargo.com.tr/arascargoservice.asmx"
)

type Config struct {
	HTTPPort        string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration

	MongoURI string
	MongoDB  string

	RedisAddr string

	KafkaBrokers    []string
	KafkaOrderTopic string

	Aras ArasConfig

	WebhookSecret string

	AutoLabel        bool
	AutoPickup       bool
	PickupTimeWindow string
	PickupDaysOffset int

	LabelPublic     bool
	LabelURLExpires time.Duration
	Minio           MinioConfig

	SyncInterval time.Duration

	JWTSecret    string
	StripeAPIKey string
}

type ArasConfig struct {
	Env                  string
	BaseURL              string
	Username             string
	Password             string
	CustomerCode         string
	Timeout              time.Duration
	TrackingLinkTemplate string
}

type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// Load reads configuration from the environment, loading a .env file first
// when one is present.
func Load() *Config {
	_ = godotenv.Load()

	arasEnv := getEnv("ARAS_ENV", "test")
	baseURL := arasTestURL
	if arasEnv == "prod" {
		baseURL = arasProdURL
	}

	return &Config{
		HTTPPort:        getEnv("HTTP_PORT", "8080"),
		RequestTimeout:  60 * time.Second,
		ShutdownTimeout: 10 * time.Second,

		MongoURI: getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:  getEnv("MONGO_DB", "ics_app"),

		RedisAddr: getEnv("REDIS_ADDR", "localhost:6379"),

		KafkaBrokers:    strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),
		KafkaOrderTopic: getEnv("KAFKA_ORDER_TOPIC", "order-events"),

		Aras: ArasConfig{
			Env:          arasEnv,
			BaseURL:      baseURL,
			Username:     getEnv("ARAS_USERNAME", ""),
			Password:     getEnv("ARAS_PASSWORD", ""),
			CustomerCode: getEnv("ARAS_CUSTOMER_CODE", ""),
			Timeout:      time.Duration(getEnvInt("ARAS_TIMEOUT_SECONDS", 15)) * time.Second,
			TrackingLinkTemplate: getEnv("ARAS_TRACKING_LINK_TEMPLATE",
				"https://kargotakip.araskargo.com.tr/mainpage.aspx?code={tracking_number}"),
		},

		WebhookSecret: getEnv("ARAS_WEBHOOK_SECRET", ""),

		AutoLabel:        getEnvBool("AUTO_LABEL", false),
		AutoPickup:       getEnvBool("AUTO_PICKUP", false),
		PickupTimeWindow: getEnv("PICKUP_TIME_WINDOW", "13:00-17:00"),
		PickupDaysOffset: getEnvInt("PICKUP_DAYS_OFFSET", 0),

		LabelPublic:     getEnvBool("LABEL_PUBLIC", false),
		LabelURLExpires: time.Duration(getEnvInt("LABEL_URL_EXPIRES_HOURS", 24)) * time.Hour,
		Minio: MinioConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", ""),
			AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey: getEnv("MINIO_SECRET_KEY", ""),
			Bucket:    getEnv("MINIO_BUCKET", "shipment-labels"),
			UseSSL:    getEnvBool("MINIO_USE_SSL", false),
		},

		SyncInterval: getEnvDuration("SYNC_INTERVAL", 2*time.Minute),

		JWTSecret:    getEnv("JWT_SECRET", ""),
		StripeAPIKey: getEnv("STRIPE_API_KEY", ""),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
