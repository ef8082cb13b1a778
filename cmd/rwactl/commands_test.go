package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/JonMunkholm/rwa/internal/auth"
	"github.com/JonMunkholm/rwa/internal/core"
)

func TestHashPasswordCmd(t *testing.T) {
	cmd := hashPasswordCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"s3cret-pass"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	hash := strings.TrimSpace(out.String())
	if err := auth.CheckPassword(hash, "s3cret-pass"); err != nil {
		t.Errorf("hash does not verify: %v", err)
	}
}

func TestHashPasswordCmd_Stdin(t *testing.T) {
	cmd := hashPasswordCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetIn(strings.NewReader("from-stdin\n"))
	cmd.SetArgs([]string{})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if err := auth.CheckPassword(strings.TrimSpace(out.String()), "from-stdin"); err != nil {
		t.Errorf("hash does not verify: %v", err)
	}
}

func TestWriteTable(t *testing.T) {
	report := core.DefaulterReport{
		Month: core.MustParseMonth("2024-03"),
		Defaulters: []core.Defaulter{{
			FlatNo:       "B-202",
			Name:         "Bala K",
			MonthlyFee:   decimal.NewFromInt(2000),
			UnpaidMonths: []core.Month{core.MustParseMonth("2024-03")},
			AmountDue:    decimal.NewFromInt(2000),
		}},
		TotalDue: decimal.NewFromInt(2000),
	}

	var out bytes.Buffer
	if err := writeTable(&out, "", core.DefaulterTable(report)); err != nil {
		t.Fatalf("csv: %v", err)
	}
	if !strings.Contains(out.String(), "B-202") {
		t.Errorf("csv output = %q", out.String())
	}

	out.Reset()
	path := filepath.Join(t.TempDir(), "defaulters.xlsx")
	if err := writeTable(&out, path, core.DefaulterTable(report)); err != nil {
		t.Fatalf("xlsx: %v", err)
	}
	if !strings.Contains(out.String(), path) {
		t.Errorf("output = %q", out.String())
	}
}
