// Package config provides centralized configuration management for the application.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"strconv"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server    ServerConfig
	Sheets    SheetsConfig
	Payment   PaymentConfig
	Auth      AuthConfig
	Audit     AuditConfig
	Blob      BlobConfig
	Mail      MailConfig
	Jobs      JobsConfig
	Billing   BillingConfig
	Rate      RateLimitConfig
	Security  SecurityConfig
	Logging   LoggingConfig
	Reporting ReportingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing response (default: 30s)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"30s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 60s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// SheetsConfig selects and configures the spreadsheet backend.
type SheetsConfig struct {
	// Backend is one of: google, xlsx, memory (default: xlsx)
	Backend string `env:"SHEETS_BACKEND" default:"xlsx"`

	// SpreadsheetID is the Google spreadsheet id (google backend only)
	SpreadsheetID string `env:"SHEETS_SPREADSHEET_ID" envAlt:"SPREADSHEET_ID"`

	// CredentialsFile is the service account JSON key (google backend only)
	CredentialsFile string `env:"SHEETS_CREDENTIALS_FILE" envAlt:"GOOGLE_APPLICATION_CREDENTIALS" default:"credentials.json"`

	// WorkbookPath is the local workbook file (xlsx backend only)
	WorkbookPath string `env:"SHEETS_WORKBOOK_PATH" default:"data/rwa.xlsx"`

	// MaxConcurrent is the maximum number of in-flight spreadsheet calls (default: 4)
	MaxConcurrent int `env:"SHEETS_MAX_CONCURRENT" default:"4"`

	// MaxWaitTime is how long a call waits for a slot (default: 10s)
	MaxWaitTime time.Duration `env:"SHEETS_MAX_WAIT_TIME" default:"10s"`

	// CallTimeout bounds a single spreadsheet call (default: 20s)
	CallTimeout time.Duration `env:"SHEETS_CALL_TIMEOUT" default:"20s"`
}

// PaymentConfig holds payment gateway settings.
type PaymentConfig struct {
	// Gateway is one of: razorpay, fake (default: fake)
	Gateway string `env:"PAYMENT_GATEWAY" default:"fake"`

	// KeyID is the gateway public key id
	KeyID string `env:"PAYMENT_KEY_ID" envAlt:"RAZORPAY_KEY_ID"`

	// KeySecret is the gateway secret used for order creation and signatures
	KeySecret string `env:"PAYMENT_KEY_SECRET" envAlt:"RAZORPAY_KEY_SECRET"`

	// Currency is the ISO currency code for orders (default: INR)
	Currency string `env:"PAYMENT_CURRENCY" default:"INR"`
}

// AuthConfig holds session token settings.
type AuthConfig struct {
	// SecretKey signs session tokens (required)
	SecretKey string `env:"AUTH_SECRET_KEY" envAlt:"SECRET_KEY" required:"true"`

	// TokenTTL is the lifetime of a session token (default: 12h)
	TokenTTL time.Duration `env:"AUTH_TOKEN_TTL" default:"12h"`

	// Issuer is the token issuer claim (default: rwa)
	Issuer string `env:"AUTH_ISSUER" default:"rwa"`

	// CookieName is the session cookie name (default: rwa_session)
	CookieName string `env:"AUTH_COOKIE_NAME" default:"rwa_session"`
}

// AuditConfig selects where the audit trail is written.
type AuditConfig struct {
	// Driver is one of: postgres, sqlite, memory (default: sqlite)
	Driver string `env:"AUDIT_DRIVER" default:"sqlite"`

	// DatabaseURL is the PostgreSQL connection string (postgres driver only)
	DatabaseURL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	// SQLitePath is the SQLite database file (sqlite driver only)
	SQLitePath string `env:"AUDIT_SQLITE_PATH" default:"data/audit.db"`

	// MaxConns is the maximum number of pooled connections (default: 5)
	MaxConns int `env:"DB_MAX_CONNS" default:"5"`
}

// BlobConfig selects where receipts and backups are stored.
type BlobConfig struct {
	// Driver is one of: fs, s3, memory (default: fs)
	Driver string `env:"BLOB_DRIVER" default:"fs"`

	// Root is the filesystem root (fs driver only)
	Root string `env:"BLOB_ROOT" default:"data/blobs"`

	// Bucket is the S3 bucket (s3 driver only)
	Bucket string `env:"BLOB_S3_BUCKET"`

	// Region is the S3 region (default: ap-south-1)
	Region string `env:"BLOB_S3_REGION" default:"ap-south-1"`

	// Endpoint overrides the S3 endpoint (MinIO)
	Endpoint string `env:"BLOB_S3_ENDPOINT"`

	// PathStyle forces path-style S3 addressing (default: false)
	PathStyle bool `env:"BLOB_S3_PATH_STYLE" default:"false"`

	// AccessKeyID and SecretAccessKey are optional static S3 credentials
	AccessKeyID     string `env:"BLOB_S3_ACCESS_KEY_ID"`
	SecretAccessKey string `env:"BLOB_S3_SECRET_ACCESS_KEY"`
}

// MailConfig holds outbound email settings.
type MailConfig struct {
	// Driver is one of: sendgrid, console (default: console)
	Driver string `env:"MAIL_DRIVER" default:"console"`

	// SendgridAPIKey is required for the sendgrid driver
	SendgridAPIKey string `env:"SENDGRID_API_KEY"`

	// FromName and FromAddress form the sender address
	FromName    string `env:"MAIL_FROM_NAME" default:"RWA Office"`
	FromAddress string `env:"MAIL_FROM_ADDRESS" default:"office@rwa.local"`
}

// JobsConfig holds background job settings.
type JobsConfig struct {
	// Enabled controls whether background jobs run (default: true)
	Enabled bool `env:"JOBS_ENABLED" default:"true"`

	// CheckInterval is how often jobs run (default: 6h)
	CheckInterval time.Duration `env:"JOBS_CHECK_INTERVAL" default:"6h"`

	// ReminderDay is the day of month from which dues reminders go out (default: 10)
	ReminderDay int `env:"JOBS_REMINDER_DAY" default:"10"`

	// BackupEnabled copies the local workbook to blob storage (default: true)
	BackupEnabled bool `env:"JOBS_BACKUP_ENABLED" default:"true"`

	// BackupRetain is the number of workbook backups kept (default: 30)
	BackupRetain int `env:"JOBS_BACKUP_RETAIN" default:"30"`
}

// BillingConfig holds maintenance fee settings.
type BillingConfig struct {
	// StartMonth is the first billable month in YYYY-MM (default: 2024-01)
	StartMonth string `env:"BILLING_START_MONTH" default:"2024-01"`

	// DefaultFee is used when a member row carries no fee (default: 1500)
	DefaultFee string `env:"BILLING_DEFAULT_FEE" default:"1500"`

	// AssociationName is printed on receipts
	AssociationName string `env:"BILLING_ASSOCIATION_NAME" default:"Residents' Welfare Association"`
}

// RateLimitConfig holds rate limiting settings per time window.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 100)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`

	// LoginLimit is requests per minute for the login endpoint (default: 10)
	LoginLimit int `env:"RATE_LIMIT_LOGIN" default:"10"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// EnableCSP enables Content-Security-Policy headers (default: true)
	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`

	// RollbarToken enables error reporting when set
	RollbarToken string `env:"ROLLBAR_TOKEN"`

	// Environment is reported alongside errors (default: development)
	Environment string `env:"APP_ENV" default:"development"`
}

// ReportingConfig holds report settings.
type ReportingConfig struct {
	// MaxMonths caps the span of a summary report (default: 36)
	MaxMonths int `env:"REPORT_MAX_MONTHS" default:"36"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}
