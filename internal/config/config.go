package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port string

	// WhatsApp Cloud API
	VerifyToken               string
	WhatsAppToken             string
	PhoneNumberID             string
	WhatsAppBusinessAccountID string
	AppSecret                 string
	APIVersion                string
	HTTPTimeout               time.Duration

	// Database. DBDriver is "sqlite" or "postgres".
	DBDriver   string
	DBPath     string
	DBHost     string
	DBUser     string
	DBPassword string
	DBName     string
	DBPort     string
	DBSSLMode  string

	// Redis backs inbound webhook de-duplication. Empty RedisAddr keeps it in memory.
	RedisAddr     string
	RedisPassword string
	DedupTTL      time.Duration

	LogLevel string

	// Conversation
	RegistrationFlowID string
	NewPatientFlowID   string
	CatalogTTL         time.Duration
	CheckinWindow      time.Duration
	PaymentLinkBase    string
}

func LoadConfig() *Config {
	err := godotenv.Load()
	if err != nil {
		log.Println("Warning: Error loading .env file")
	}

	return &Config{
		Port:                      getEnv("PORT", "8080"),
		VerifyToken:               getEnv("VERIFY_TOKEN", ""),
		WhatsAppToken:             getEnv("WHATSAPP_TOKEN", ""),
		PhoneNumberID:             getEnv("PHONE_NUMBER_ID", ""),
		WhatsAppBusinessAccountID: getEnv("WABA_ID", ""),
		AppSecret:                 getEnv("WHATSAPP_APP_SECRET", ""),
		APIVersion:                getEnv("WHATSAPP_API_VERSION", "v19.0"),
		HTTPTimeout:               getDuration("WHATSAPP_HTTP_TIMEOUT", 15*time.Second),
		DBDriver:                  getEnv("DB_DRIVER", "sqlite"),
		DBPath:                    getEnv("DB_PATH", "./hospital.db"),
		DBHost:                    getEnv("DB_HOST", "localhost"),
		DBUser:                    getEnv("DB_USER", "postgres"),
		DBPassword:                getEnv("DB_PASSWORD", ""),
		DBName:                    getEnv("DB_NAME", "hospital"),
		DBPort:                    getEnv("DB_PORT", "5432"),
		DBSSLMode:                 getEnv("DB_SSLMODE", "disable"),
		RedisAddr:                 getEnv("REDIS_ADDR", ""),
		RedisPassword:             getEnv("REDIS_PASSWORD", ""),
		DedupTTL:                  getDuration("DEDUP_TTL", 24*time.Hour),
		LogLevel:                  getEnv("LOG_LEVEL", "info"),
		RegistrationFlowID:        getEnv("REGISTRATION_FLOW_ID", "737535792667128"),
		NewPatientFlowID:          getEnv("NEW_PATIENT_FLOW_ID", "1366099374850695"),
		CatalogTTL:                getDuration("CATALOG_TTL", 24*time.Hour),
		CheckinWindow:             getDuration("CHECKIN_WINDOW", 6*time.Hour),
		PaymentLinkBase:           getEnv("PAYMENT_LINK_BASE", "https://pay.hospital.com/"),
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	// plain integers are read as seconds
	if n, err := strconv.Atoi(raw); err == nil {
		return time.Duration(n) * time.Second
	}
	log.Printf("Warning: invalid duration %s=%q, using %s", key, raw, fallback)
	return fallback
}
