// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the HTTP server listens on (e.g. :8080).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// DatabaseURL is the Postgres DSN.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// JWTPrivateKey is the PEM-encoded private key (RSA or ECDSA) or path to file; used with JWT_PUBLIC_KEY for RS256/ES256.
	JWTPrivateKey string `mapstructure:"JWT_PRIVATE_KEY"`
	// JWTPublicKey is the PEM-encoded public key or path to file; used with JWT_PRIVATE_KEY.
	JWTPublicKey string `mapstructure:"JWT_PUBLIC_KEY"`
	// JWTIssuer is the iss claim (e.g. "motorello-auth").
	JWTIssuer string `mapstructure:"JWT_ISSUER"`
	// JWTAudience is the aud claim (e.g. "motorello-api").
	JWTAudience string `mapstructure:"JWT_AUDIENCE"`
	// JWTAccessTTL is the access token lifetime (e.g. "1h").
	JWTAccessTTL string `mapstructure:"JWT_ACCESS_TTL"`
	// JWTRefreshTTL is the refresh token lifetime (e.g. "168h").
	JWTRefreshTTL string `mapstructure:"JWT_REFRESH_TTL"`
	// JWTResetTTL is the password reset token lifetime (e.g. "15m").
	JWTResetTTL string `mapstructure:"JWT_RESET_TTL"`
	// BcryptCost is the bcrypt cost factor (4–31); default 12.
	BcryptCost int `mapstructure:"BCRYPT_COST"`

	// Fast2SMSAPIKey is the API key for the Fast2SMS gateway. Required for phone OTP delivery.
	Fast2SMSAPIKey string `mapstructure:"FAST2SMS_API_KEY"`
	// Fast2SMSBaseURL is the Fast2SMS API base URL (default https://www.fast2sms.com/dev/bulkV2).
	Fast2SMSBaseURL string `mapstructure:"FAST2SMS_BASE_URL"`

	// SMTPHost is the mail relay host (e.g. smtp-relay.brevo.com).
	SMTPHost string `mapstructure:"SMTP_HOST"`
	// SMTPPort is the mail relay port (default 587).
	SMTPPort int `mapstructure:"SMTP_PORT"`
	// SMTPUser is the mail relay login.
	SMTPUser string `mapstructure:"SMTP_USER"`
	// SMTPPassword is the mail relay password or token.
	SMTPPassword string `mapstructure:"SMTP_PASSWORD"`
	// SMTPFrom is the sender address on outgoing mail.
	SMTPFrom string `mapstructure:"SMTP_FROM"`

	// S3Bucket is the object storage bucket for face reference images.
	S3Bucket string `mapstructure:"S3_BUCKET"`
	// S3Region is the object storage region.
	S3Region string `mapstructure:"S3_REGION"`
	// S3Endpoint is an optional S3-compatible endpoint override (e.g. MinIO).
	S3Endpoint string `mapstructure:"S3_ENDPOINT"`
	// S3AccessKey and S3SecretKey are static credentials; empty means the default chain.
	S3AccessKey string `mapstructure:"S3_ACCESS_KEY"`
	S3SecretKey string `mapstructure:"S3_SECRET_KEY"`

	// FaceExtractorURL is the base URL of the face-embedding extractor service.
	FaceExtractorURL string `mapstructure:"FACE_EXTRACTOR_URL"`
	// FaceMatchThreshold is the max Euclidean distance accepted as a match (default 0.6, inclusive).
	FaceMatchThreshold float64 `mapstructure:"FACE_MATCH_THRESHOLD"`

	// RedisAddr enables the Redis OTP-send rate limiter when set (e.g. localhost:6379).
	RedisAddr string `mapstructure:"REDIS_ADDR"`

	// OTPReturnToClient when true enables dev OTP mode: OTP stored for GET /dev/otp instead of
	// relying on delivery; for local development only. Must not be true when Env is production.
	OTPReturnToClient bool `mapstructure:"OTP_RETURN_TO_CLIENT"`
	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`

	// OTLPEndpoint enables OpenTelemetry export when set (e.g. http://localhost:4317).
	OTLPEndpoint string `mapstructure:"OTLP_ENDPOINT"`
	// OTLPInsecure forces plaintext OTLP export regardless of endpoint scheme.
	OTLPInsecure bool `mapstructure:"OTLP_INSECURE"`

	// Audit pipeline (optional). When Kafka brokers are set, auth events are emitted to Kafka.
	// AuditKafkaBrokers is a comma-separated list of Kafka broker addresses (e.g. "localhost:9092").
	AuditKafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	// AuditKafkaTopic is the Kafka topic for audit events (default motorello-audit).
	AuditKafkaTopic string `mapstructure:"AUDIT_KAFKA_TOPIC"`

	// Worker-only: Loki URL for the audit worker to push logs (e.g. http://localhost:3100).
	LokiURL string `mapstructure:"LOKI_URL"`
	// KafkaGroupID is the consumer group ID for the audit worker.
	KafkaGroupID string `mapstructure:"KAFKA_GROUP_ID"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("JWT_ISSUER", "motorello-auth")
	v.SetDefault("JWT_AUDIENCE", "motorello-api")
	v.SetDefault("JWT_ACCESS_TTL", "1h")
	v.SetDefault("JWT_REFRESH_TTL", "168h") // 7d
	v.SetDefault("JWT_RESET_TTL", "15m")
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("FAST2SMS_BASE_URL", "https://www.fast2sms.com/dev/bulkV2")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("FACE_MATCH_THRESHOLD", 0.6)
	v.SetDefault("OTP_RETURN_TO_CLIENT", false)
	v.SetDefault("APP_ENV", "")
	v.SetDefault("AUDIT_KAFKA_TOPIC", "motorello-audit")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("LOKI_URL", "")
	v.SetDefault("KAFKA_GROUP_ID", "motorello-audit-worker")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.HTTPAddr == "" {
		return nil, errors.New("config: HTTP_ADDR must be set")
	}

	if cfg.OTPReturnToClient && cfg.Env == "production" {
		return nil, errors.New("config: OTP_RETURN_TO_CLIENT must not be true when APP_ENV=production")
	}

	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = 12
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		return nil, errors.New("config: BCRYPT_COST must be between 4 and 31")
	}

	if cfg.FaceMatchThreshold <= 0 || cfg.FaceMatchThreshold >= 2 {
		return nil, errors.New("config: FACE_MATCH_THRESHOLD must be in (0, 2)")
	}

	return &cfg, nil
}

// AccessTTL parses JWTAccessTTL as a time.Duration. Returns 1h if unset or invalid.
func (c *Config) AccessTTL() time.Duration {
	d, err := time.ParseDuration(c.JWTAccessTTL)
	if err != nil || d <= 0 {
		return time.Hour
	}
	return d
}

// RefreshTTL parses JWTRefreshTTL as a time.Duration. Returns 168h if unset or invalid.
func (c *Config) RefreshTTL() time.Duration {
	d, err := time.ParseDuration(c.JWTRefreshTTL)
	if err != nil || d <= 0 {
		return 168 * time.Hour
	}
	return d
}

// ResetTTL parses JWTResetTTL as a time.Duration. Returns 15m if unset or invalid.
func (c *Config) ResetTTL() time.Duration {
	d, err := time.ParseDuration(c.JWTResetTTL)
	if err != nil || d <= 0 {
		return 15 * time.Minute
	}
	return d
}

// AuditKafkaBrokersList returns Kafka broker addresses from the comma-separated config.
// Used to decide if the audit pipeline is enabled (non-empty list) and to create the producer.
func (c *Config) AuditKafkaBrokersList() []string {
	if c == nil || c.AuditKafkaBrokers == "" {
		return nil
	}
	parts := strings.Split(c.AuditKafkaBrokers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
