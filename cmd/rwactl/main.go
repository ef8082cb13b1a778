// Command rwactl administers the association's spreadsheet from a shell.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/rwa/internal/app"
	"github.com/JonMunkholm/rwa/internal/config"
	"github.com/JonMunkholm/rwa/internal/core"
	"github.com/JonMunkholm/rwa/internal/logging"
)

func main() {
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:           "rwactl",
		Short:         "Administer the RWA portal spreadsheet",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.AddCommand(
		initWorkbookCmd(),
		addMemberCmd(),
		defaultersCmd(),
		summaryCmd(),
		backupCmd(),
		remindCmd(),
		hashPasswordCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		msg := core.MapError(err)
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		if msg.Code != "ERR000" {
			fmt.Fprintf(os.Stderr, "%s [%s]: %s\n", msg.Message, msg.Code, msg.Action)
		}
		os.Exit(1)
	}
}

// withService loads configuration, opens the backends and runs fn with a
// context that attributes audit entries to rwactl.
func withService(fn func(ctx context.Context, cfg *config.Config, svc *core.Service) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	ctx := core.ContextWithActor(context.Background(), "rwactl")
	a, err := app.Open(ctx, cfg, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			slog.Warn("close backends", "error", err)
		}
	}()
	return fn(ctx, cfg, a.Service)
}

// writeTable writes t as CSV to out, or as a workbook to path when set.
func writeTable(out io.Writer, path string, t core.Table) error {
	if path == "" {
		return core.WriteCSV(out, t)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := core.WriteXLSX(f, t); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(out, "wrote %s\n", path)
	return nil
}
