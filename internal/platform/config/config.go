package config

import (
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	DatabaseURL   string
	Port          string
	IsProduction  bool
	EnableDBCheck bool
	JWTSecret     string
	JWTIssuer     string

	CORSAllowedOrigins []string
	RateLimit          string

	// Duplicate submission guard
	RedisAddr          string
	SubmissionGuardTTL time.Duration

	// Notifications
	NATSURL               string
	NATSSubjectPrefix     string
	SendGridAPIKey        string
	NotifyFromEmail       string
	NotifyFromName        string
	NotifyAccountingEmail string
	NotifyDirectorEmail   string

	ReferenceDataFile  string
	UsageResetSchedule string
}

// LoadConfig loads configuration from environment variables and .env file if present.
func LoadConfig() (*Config, error) {
	// Attempt to load .env file, ignore error if it doesn't exist
	_ = godotenv.Load()

	viper.SetDefault("PGSQL_URL", "")
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("IS_PRODUCTION", false)
	viper.SetDefault("ENABLE_DB_CHECK", false)
	viper.SetDefault("JWT_SECRET", "a-very-secret-key-should-be-longer-and-random")
	viper.SetDefault("JWT_ISSUER", "transfer-backoffice")
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000")
	viper.SetDefault("RATE_LIMIT", "100-M")
	viper.SetDefault("REDIS_ADDR", "")
	viper.SetDefault("SUBMISSION_GUARD_TTL", "30s")
	viper.SetDefault("NATS_URL", "")
	viper.SetDefault("NATS_SUBJECT_PREFIX", "backoffice")
	viper.SetDefault("SENDGRID_API_KEY", "")
	viper.SetDefault("NOTIFY_FROM_EMAIL", "no-reply@localhost")
	viper.SetDefault("NOTIFY_FROM_NAME", "Back-office")
	viper.SetDefault("NOTIFY_ACCOUNTING_EMAIL", "")
	viper.SetDefault("NOTIFY_DIRECTOR_EMAIL", "")
	viper.SetDefault("REFERENCE_DATA_FILE", "")
	viper.SetDefault("USAGE_RESET_SCHEDULE", "")

	viper.AutomaticEnv()

	cfg := &Config{}

	cfg.DatabaseURL = viper.GetString("PGSQL_URL")
	if cfg.DatabaseURL == "" {
		log.Println("Warning: PGSQL_URL environment variable not set.")
	}

	cfg.Port = viper.GetString("PORT")
	if cfg.Port == "" {
		cfg.Port = "8080"
		log.Printf("Warning: PORT environment variable not set. Defaulting to %s\n", cfg.Port)
	}

	cfg.JWTSecret = viper.GetString("JWT_SECRET")
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = "a-very-secret-key-should-be-longer-and-random" // !! CHANGE IN PRODUCTION !!
		log.Println("Warning: JWT_SECRET environment variable not set. Using default insecure key.")
	}

	cfg.JWTIssuer = viper.GetString("JWT_ISSUER")

	guardTTLStr := viper.GetString("SUBMISSION_GUARD_TTL")
	guardTTL, err := time.ParseDuration(guardTTLStr)
	if err != nil || guardTTL <= 0 {
		guardTTL = 30 * time.Second
		log.Printf("Warning: Invalid value for SUBMISSION_GUARD_TTL ('%s'). Defaulting to %s.\n", guardTTLStr, guardTTL.String())
	}
	cfg.SubmissionGuardTTL = guardTTL

	cfg.CORSAllowedOrigins = splitList(viper.GetString("CORS_ALLOWED_ORIGINS"))
	cfg.RateLimit = viper.GetString("RATE_LIMIT")
	cfg.IsProduction = viper.GetBool("IS_PRODUCTION")
	cfg.EnableDBCheck = viper.GetBool("ENABLE_DB_CHECK")
	cfg.RedisAddr = viper.GetString("REDIS_ADDR")
	cfg.NATSURL = viper.GetString("NATS_URL")
	cfg.NATSSubjectPrefix = viper.GetString("NATS_SUBJECT_PREFIX")
	cfg.SendGridAPIKey = viper.GetString("SENDGRID_API_KEY")
	cfg.NotifyFromEmail = viper.GetString("NOTIFY_FROM_EMAIL")
	cfg.NotifyFromName = viper.GetString("NOTIFY_FROM_NAME")
	cfg.NotifyAccountingEmail = viper.GetString("NOTIFY_ACCOUNTING_EMAIL")
	cfg.NotifyDirectorEmail = viper.GetString("NOTIFY_DIRECTOR_EMAIL")
	cfg.ReferenceDataFile = viper.GetString("REFERENCE_DATA_FILE")
	cfg.UsageResetSchedule = viper.GetString("USAGE_RESET_SCHEDULE")

	if cfg.RedisAddr == "" {
		log.Println("Warning: REDIS_ADDR not set. Idempotency-Key submissions will be refused.")
	}

	return cfg, nil
}

func splitList(raw string) []string {
	out := []string{}
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
