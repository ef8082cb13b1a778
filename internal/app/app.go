// Package app builds the service and its collaborators from configuration.
// Both the HTTP server and the rwactl tool start from here.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/JonMunkholm/rwa/internal/audit"
	"github.com/JonMunkholm/rwa/internal/blob"
	"github.com/JonMunkholm/rwa/internal/config"
	"github.com/JonMunkholm/rwa/internal/core"
	"github.com/JonMunkholm/rwa/internal/metrics"
	"github.com/JonMunkholm/rwa/internal/notify"
	"github.com/JonMunkholm/rwa/internal/payment"
	"github.com/JonMunkholm/rwa/internal/sheets"
)

// App owns everything opened for a Service.
type App struct {
	Service *core.Service
	Store   *sheets.Guarded
	Metrics *metrics.Metrics

	closers []func() error
}

// Open wires the configured backends into a Service. m may be nil.
func Open(ctx context.Context, cfg *config.Config, m *metrics.Metrics) (*App, error) {
	a := &App{Metrics: m}

	billing, err := BillingFromConfig(cfg)
	if err != nil {
		return nil, err
	}

	raw, err := a.openSheets(cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	limiter := sheets.NewCallLimiter(cfg.Sheets.MaxConcurrent, cfg.Sheets.MaxWaitTime)
	a.Store = sheets.NewGuarded(raw, limiter, cfg.Sheets.CallTimeout, m)

	auditStore, err := audit.Open(ctx, audit.Config{
		Driver:      cfg.Audit.Driver,
		DatabaseURL: cfg.Audit.DatabaseURL,
		SQLitePath:  cfg.Audit.SQLitePath,
		MaxConns:    cfg.Audit.MaxConns,
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("open audit store: %w", err)
	}
	a.closers = append(a.closers, auditStore.Close)

	blobs, err := blob.Open(ctx, blob.Config{
		Driver:          cfg.Blob.Driver,
		Root:            cfg.Blob.Root,
		Bucket:          cfg.Blob.Bucket,
		Region:          cfg.Blob.Region,
		Endpoint:        cfg.Blob.Endpoint,
		PathStyle:       cfg.Blob.PathStyle,
		AccessKeyID:     cfg.Blob.AccessKeyID,
		SecretAccessKey: cfg.Blob.SecretAccessKey,
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("open blob store: %w", err)
	}

	a.Service = core.NewService(a.Store, core.Options{
		Gateway:   newGateway(cfg),
		Mailer:    newMailer(cfg),
		Blobs:     blobs,
		Audit:     auditStore,
		Metrics:   m,
		Billing:   billing,
		MaxMonths: cfg.Reporting.MaxMonths,
	})

	slog.Info("backends ready",
		"sheets", cfg.Sheets.Backend,
		"audit", cfg.Audit.Driver,
		"blob", blobs.Driver(),
		"mail", cfg.Mail.Driver,
		"gateway", cfg.Payment.Gateway,
	)
	return a, nil
}

func (a *App) openSheets(cfg *config.Config) (sheets.Store, error) {
	switch strings.ToLower(cfg.Sheets.Backend) {
	case "google":
		return sheets.NewGoogleStore(cfg.Sheets.SpreadsheetID, cfg.Sheets.CredentialsFile), nil
	case "xlsx", "":
		wb, err := sheets.OpenWorkbook(cfg.Sheets.WorkbookPath)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, wb.Close)
		return wb, nil
	case "memory":
		return sheets.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown sheets backend %q", cfg.Sheets.Backend)
	}
}

func newGateway(cfg *config.Config) payment.Gateway {
	switch strings.ToLower(cfg.Payment.Gateway) {
	case "razorpay":
		return payment.NewRazorpay(cfg.Payment.KeyID, cfg.Payment.KeySecret)
	case "fake":
		secret := cfg.Payment.KeySecret
		if secret == "" {
			secret = cfg.Auth.SecretKey
		}
		return payment.NewFake(secret)
	default:
		return nil
	}
}

func newMailer(cfg *config.Config) notify.Mailer {
	if strings.ToLower(cfg.Mail.Driver) == "sendgrid" {
		return notify.NewSendGrid(cfg.Mail.SendgridAPIKey, cfg.Mail.FromName, cfg.Mail.FromAddress)
	}
	return notify.NewConsole(slog.Default())
}

// BillingFromConfig parses the fee settings.
func BillingFromConfig(cfg *config.Config) (core.Billing, error) {
	start, err := core.ParseMonth(cfg.Billing.StartMonth)
	if err != nil {
		return core.Billing{}, fmt.Errorf("billing start month: %w", err)
	}
	fee, err := core.ParseAmount(cfg.Billing.DefaultFee)
	if err != nil {
		return core.Billing{}, fmt.Errorf("billing default fee: %w", err)
	}
	return core.Billing{
		StartMonth:      start,
		DefaultFee:      fee,
		AssociationName: cfg.Billing.AssociationName,
		Currency:        cfg.Payment.Currency,
	}, nil
}

// JobsConfig converts the job settings for the scheduler.
func JobsConfig(cfg *config.Config) core.JobsConfig {
	return core.JobsConfig{
		CheckInterval: cfg.Jobs.CheckInterval,
		ReminderDay:   cfg.Jobs.ReminderDay,
		Backup:        cfg.Jobs.BackupEnabled,
		BackupRetain:  cfg.Jobs.BackupRetain,
	}
}

// Close releases everything Open acquired, last opened first.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
