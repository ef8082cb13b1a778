package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/JonMunkholm/rwa/internal/config"
	"github.com/JonMunkholm/rwa/internal/core"
)

func memoryConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Sheets.Backend = "memory"
	cfg.Sheets.MaxConcurrent = 2
	cfg.Sheets.MaxWaitTime = time.Second
	cfg.Audit.Driver = "memory"
	cfg.Blob.Driver = "memory"
	cfg.Mail.Driver = "console"
	cfg.Payment.Gateway = "fake"
	cfg.Payment.Currency = "INR"
	cfg.Auth.SecretKey = "0123456789abcdef"
	cfg.Billing.StartMonth = "2024-01"
	cfg.Billing.DefaultFee = "1500"
	cfg.Billing.AssociationName = "Green Park RWA"
	cfg.Reporting.MaxMonths = 36
	return cfg
}

func TestOpen_Memory(t *testing.T) {
	ctx := context.Background()
	a, err := Open(ctx, memoryConfig(), nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer a.Close()

	if err := a.Service.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	if err := a.Service.Ping(ctx); err != nil {
		t.Errorf("Ping: %v", err)
	}
	if got := a.Store.Limiter().MaxConcurrent(); got != 2 {
		t.Errorf("MaxConcurrent = %d, want 2", got)
	}
	if got := a.Service.Billing().AssociationName; got != "Green Park RWA" {
		t.Errorf("AssociationName = %q", got)
	}
}

func TestOpen_Workbook(t *testing.T) {
	ctx := context.Background()
	cfg := memoryConfig()
	cfg.Sheets.Backend = "xlsx"
	cfg.Sheets.WorkbookPath = filepath.Join(t.TempDir(), "data", "rwa.xlsx")

	a, err := Open(ctx, cfg, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := a.Service.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	if err := a.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}

func TestOpen_UnknownBackend(t *testing.T) {
	cfg := memoryConfig()
	cfg.Sheets.Backend = "csv"
	if _, err := Open(context.Background(), cfg, nil); err == nil {
		t.Error("expected error for unknown backend")
	}
}

func TestBillingFromConfig(t *testing.T) {
	tests := []struct {
		name    string
		start   string
		fee     string
		wantErr bool
	}{
		{"valid", "2024-04", "1,250.50", false},
		{"bad month", "April", "1500", true},
		{"bad fee", "2024-04", "lots", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := memoryConfig()
			cfg.Billing.StartMonth = tt.start
			cfg.Billing.DefaultFee = tt.fee
			b, err := BillingFromConfig(cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if b.StartMonth != core.MustParseMonth("2024-04") {
				t.Errorf("StartMonth = %v", b.StartMonth)
			}
			if !b.DefaultFee.Equal(decimal.RequireFromString("1250.50")) {
				t.Errorf("DefaultFee = %v", b.DefaultFee)
			}
			if b.Currency != "INR" {
				t.Errorf("Currency = %q", b.Currency)
			}
		})
	}
}
