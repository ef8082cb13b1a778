package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// Load reads configuration from environment variables.
// It applies defaults for unset values and validates the result.
// Returns an error if required values are missing or validation fails.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := loadStruct(reflect.ValueOf(cfg).Elem()); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration and panics on error.
// Use this only in main() where early termination is desired.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}

// loadStruct recursively populates struct fields from environment variables.
func loadStruct(v reflect.Value) error {
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		fieldVal := v.Field(i)

		// Skip unexported fields
		if !fieldVal.CanSet() {
			continue
		}

		// Recurse into nested structs
		if field.Type.Kind() == reflect.Struct && field.Type != reflect.TypeOf(time.Time{}) {
			if err := loadStruct(fieldVal); err != nil {
				return err
			}
			continue
		}

		// Get tags
		envName := field.Tag.Get("env")
		envAlt := field.Tag.Get("envAlt")
		defaultVal := field.Tag.Get("default")
		required := field.Tag.Get("required") == "true"

		if envName == "" {
			continue
		}

		// Try primary env var, then alternate
		value := os.Getenv(envName)
		if value == "" && envAlt != "" {
			value = os.Getenv(envAlt)
		}

		// Apply default if not set
		if value == "" {
			if required {
				return fmt.Errorf("required environment variable %s is not set", envName)
			}
			value = defaultVal
		}

		if value == "" {
			continue
		}

		// Set the field value
		if err := setField(fieldVal, value); err != nil {
			return fmt.Errorf("invalid value for %s=%q: %w", envName, value, err)
		}
	}

	return nil
}

// setField sets a reflect.Value from a string based on its type.
func setField(field reflect.Value, value string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int64:
		// Handle time.Duration specially
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return fmt.Errorf("invalid duration: %w", err)
			}
			field.Set(reflect.ValueOf(d))
		} else {
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer: %w", err)
			}
			field.SetInt(i)
		}

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean: %w", err)
		}
		field.SetBool(b)

	case reflect.Slice:
		if field.Type().Elem().Kind() == reflect.String {
			// Split comma-separated values, trim whitespace
			parts := strings.Split(value, ",")
			result := make([]string, 0, len(parts))
			for _, p := range parts {
				p = strings.TrimSpace(p)
				if p != "" {
					result = append(result, p)
				}
			}
			field.Set(reflect.ValueOf(result))
		} else {
			return fmt.Errorf("unsupported slice type: %s", field.Type().Elem().Kind())
		}

	default:
		return fmt.Errorf("unsupported field type: %s", field.Kind())
	}

	return nil
}

// Validate checks that the configuration is valid.
// Returns an error describing all validation failures.
func (c *Config) Validate() error {
	var errs []string

	// Server validation
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("SERVER_PORT (%d) must be 1-65535", c.Server.Port))
	}
	if c.Server.ReadTimeout < 0 {
		errs = append(errs, "SERVER_READ_TIMEOUT must be non-negative")
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, "SERVER_SHUTDOWN_TIMEOUT must be positive")
	}

	// Sheets validation
	switch strings.ToLower(c.Sheets.Backend) {
	case "google":
		if c.Sheets.SpreadsheetID == "" {
			errs = append(errs, "SHEETS_SPREADSHEET_ID is required for the google backend")
		}
	case "xlsx":
		if c.Sheets.WorkbookPath == "" {
			errs = append(errs, "SHEETS_WORKBOOK_PATH is required for the xlsx backend")
		}
	case "memory":
	default:
		errs = append(errs, fmt.Sprintf("SHEETS_BACKEND (%q) must be one of: google, xlsx, memory", c.Sheets.Backend))
	}
	if c.Sheets.MaxConcurrent <= 0 {
		errs = append(errs, "SHEETS_MAX_CONCURRENT must be positive")
	}
	if c.Sheets.MaxWaitTime <= 0 {
		errs = append(errs, "SHEETS_MAX_WAIT_TIME must be positive")
	}

	// Payment validation
	switch strings.ToLower(c.Payment.Gateway) {
	case "razorpay":
		if c.Payment.KeyID == "" || c.Payment.KeySecret == "" {
			errs = append(errs, "PAYMENT_KEY_ID and PAYMENT_KEY_SECRET are required for the razorpay gateway")
		}
	case "fake":
	default:
		errs = append(errs, fmt.Sprintf("PAYMENT_GATEWAY (%q) must be one of: razorpay, fake", c.Payment.Gateway))
	}

	// Auth validation
	if len(c.Auth.SecretKey) < 16 {
		errs = append(errs, "AUTH_SECRET_KEY must be at least 16 characters")
	}
	if c.Auth.TokenTTL <= 0 {
		errs = append(errs, "AUTH_TOKEN_TTL must be positive")
	}

	// Audit validation
	switch strings.ToLower(c.Audit.Driver) {
	case "postgres":
		if c.Audit.DatabaseURL == "" {
			errs = append(errs, "DATABASE_URL is required for the postgres audit driver")
		}
	case "sqlite", "memory":
	default:
		errs = append(errs, fmt.Sprintf("AUDIT_DRIVER (%q) must be one of: postgres, sqlite, memory", c.Audit.Driver))
	}
	if c.Audit.MaxConns <= 0 {
		errs = append(errs, "DB_MAX_CONNS must be positive")
	}

	// Blob validation
	switch strings.ToLower(c.Blob.Driver) {
	case "s3":
		if c.Blob.Bucket == "" {
			errs = append(errs, "BLOB_S3_BUCKET is required for the s3 blob driver")
		}
	case "fs", "memory":
	default:
		errs = append(errs, fmt.Sprintf("BLOB_DRIVER (%q) must be one of: fs, s3, memory", c.Blob.Driver))
	}

	// Mail validation
	switch strings.ToLower(c.Mail.Driver) {
	case "sendgrid":
		if c.Mail.SendgridAPIKey == "" {
			errs = append(errs, "SENDGRID_API_KEY is required for the sendgrid mail driver")
		}
	case "console":
	default:
		errs = append(errs, fmt.Sprintf("MAIL_DRIVER (%q) must be one of: sendgrid, console", c.Mail.Driver))
	}

	// Jobs validation
	if c.Jobs.CheckInterval <= 0 {
		errs = append(errs, "JOBS_CHECK_INTERVAL must be positive")
	}
	if c.Jobs.ReminderDay < 1 || c.Jobs.ReminderDay > 28 {
		errs = append(errs, fmt.Sprintf("JOBS_REMINDER_DAY (%d) must be 1-28", c.Jobs.ReminderDay))
	}

	// Billing validation
	if _, err := time.Parse("2006-01", c.Billing.StartMonth); err != nil {
		errs = append(errs, fmt.Sprintf("BILLING_START_MONTH (%q) must be YYYY-MM", c.Billing.StartMonth))
	}
	if fee, err := strconv.ParseFloat(c.Billing.DefaultFee, 64); err != nil || fee < 0 {
		errs = append(errs, fmt.Sprintf("BILLING_DEFAULT_FEE (%q) must be a non-negative number", c.Billing.DefaultFee))
	}

	// Rate limit validation
	if c.Rate.Enabled && c.Rate.RequestsPerMinute <= 0 {
		errs = append(errs, "RATE_LIMIT_REQUESTS_PER_MINUTE must be positive when rate limiting is enabled")
	}
	if c.Rate.Enabled && c.Rate.LoginLimit <= 0 {
		errs = append(errs, "RATE_LIMIT_LOGIN must be positive when rate limiting is enabled")
	}

	// Reporting validation
	if c.Reporting.MaxMonths <= 0 {
		errs = append(errs, "REPORT_MAX_MONTHS must be positive")
	}

	// Logging validation
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Sprintf("LOG_LEVEL (%q) must be one of: debug, info, warn, error", c.Logging.Level))
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, fmt.Sprintf("LOG_FORMAT (%q) must be one of: text, json", c.Logging.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// String returns a safe string representation of the config for logging.
// Secrets are never included.
func (c *Config) String() string {
	var b strings.Builder
	b.WriteString("Config{")
	b.WriteString(fmt.Sprintf("Server: {Host: %q, Port: %d}, ", c.Server.Host, c.Server.Port))
	b.WriteString(fmt.Sprintf("Sheets: {Backend: %q, MaxConcurrent: %d}, ", c.Sheets.Backend, c.Sheets.MaxConcurrent))
	b.WriteString(fmt.Sprintf("Payment: {Gateway: %q, Currency: %q}, ", c.Payment.Gateway, c.Payment.Currency))
	b.WriteString(fmt.Sprintf("Audit: {Driver: %q}, Blob: {Driver: %q}, Mail: {Driver: %q}, ",
		c.Audit.Driver, c.Blob.Driver, c.Mail.Driver))
	b.WriteString(fmt.Sprintf("Rate: {Enabled: %v, RequestsPerMinute: %d}, ",
		c.Rate.Enabled, c.Rate.RequestsPerMinute))
	b.WriteString(fmt.Sprintf("Logging: {Level: %q, Format: %q}",
		c.Logging.Level, c.Logging.Format))
	b.WriteString("}")
	return b.String()
}
