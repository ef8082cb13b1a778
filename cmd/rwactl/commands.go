package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/rwa/internal/app"
	"github.com/JonMunkholm/rwa/internal/auth"
	"github.com/JonMunkholm/rwa/internal/config"
	"github.com/JonMunkholm/rwa/internal/core"
)

func initWorkbookCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init-workbook",
		Short: "Create any missing tabs with their header rows",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(func(ctx context.Context, _ *config.Config, svc *core.Service) error {
				if err := svc.EnsureSchema(ctx); err != nil {
					return err
				}
				for _, def := range svc.ListTabs() {
					fmt.Fprintf(cmd.OutOrStdout(), "%-14s %d columns\n", def.Name, def.Width())
				}
				return nil
			})
		},
	}
}

func addMemberCmd() *cobra.Command {
	var (
		nm     core.NewMember
		joined string
		fee    string
	)
	cmd := &cobra.Command{
		Use:   "add-member",
		Short: "Register the occupant of a flat",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if joined != "" {
				d, err := core.ParseDate(joined)
				if err != nil {
					return err
				}
				nm.JoinedOn = d
			}
			if fee != "" {
				amount, err := core.ParseAmount(fee)
				if err != nil {
					return err
				}
				nm.MonthlyFee = amount
			}
			if nm.Password == "" {
				pwd, err := readPassword(cmd)
				if err != nil {
					return err
				}
				nm.Password = pwd
			}
			return withService(func(ctx context.Context, _ *config.Config, svc *core.Service) error {
				m, err := svc.AddMember(ctx, nm)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "added %s (%s, %s) from %s\n", m.FlatNo, m.Name, m.Role, m.JoinedOn)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&nm.FlatNo, "flat", "", "flat number (required)")
	cmd.Flags().StringVar(&nm.Name, "name", "", "member name (required)")
	cmd.Flags().StringVar(&nm.Phone, "phone", "", "phone number")
	cmd.Flags().StringVar(&nm.Email, "email", "", "email address for reminders")
	cmd.Flags().StringVar(&nm.Role, "role", "resident", "resident or admin")
	cmd.Flags().StringVar(&nm.Password, "password", "", "initial password (prompted when omitted)")
	cmd.Flags().StringVar(&joined, "joined", "", "joining date, DD/MM/YYYY (default today)")
	cmd.Flags().StringVar(&fee, "fee", "", "monthly fee (default billing fee)")
	_ = cmd.MarkFlagRequired("flat")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func defaultersCmd() *cobra.Command {
	var month, xlsx string
	cmd := &cobra.Command{
		Use:   "defaulters",
		Short: "List members with unpaid months",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var m core.Month
			if month != "" {
				var err error
				if m, err = core.ParseMonth(month); err != nil {
					return err
				}
			}
			return withService(func(ctx context.Context, _ *config.Config, svc *core.Service) error {
				report, err := svc.Defaulters(ctx, m)
				if err != nil {
					return err
				}
				return writeTable(cmd.OutOrStdout(), xlsx, core.DefaulterTable(report))
			})
		},
	}
	cmd.Flags().StringVar(&month, "month", "", "last month counted, YYYY-MM (default this month)")
	cmd.Flags().StringVar(&xlsx, "xlsx", "", "write a workbook to this path instead of CSV to stdout")
	return cmd
}

func summaryCmd() *cobra.Command {
	var from, to, xlsx string
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Monthly collections, expenditure and balance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var fromM, toM core.Month
			var err error
			if from != "" {
				if fromM, err = core.ParseMonth(from); err != nil {
					return err
				}
			}
			if to != "" {
				if toM, err = core.ParseMonth(to); err != nil {
					return err
				}
			}
			return withService(func(ctx context.Context, _ *config.Config, svc *core.Service) error {
				s, err := svc.Summary(ctx, fromM, toM)
				if err != nil {
					return err
				}
				return writeTable(cmd.OutOrStdout(), xlsx, core.SummaryTable(s))
			})
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "first month, YYYY-MM (default billing start, capped to the reporting window)")
	cmd.Flags().StringVar(&to, "to", "", "last month, YYYY-MM (default this month)")
	cmd.Flags().StringVar(&xlsx, "xlsx", "", "write a workbook to this path instead of CSV to stdout")
	return cmd
}

func backupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backup",
		Short: "Copy the workbook to blob storage now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(func(ctx context.Context, cfg *config.Config, svc *core.Service) error {
				key, err := svc.BackupWorkbook(ctx, app.JobsConfig(cfg).BackupRetain)
				if err != nil {
					return err
				}
				if key == "" {
					fmt.Fprintln(cmd.OutOrStdout(), "nothing to back up for this backend")
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "stored %s\n", key)
				return nil
			})
		},
	}
}

func remindCmd() *cobra.Command {
	var now bool
	cmd := &cobra.Command{
		Use:   "remind",
		Short: "Email dues reminders to defaulters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(func(ctx context.Context, cfg *config.Config, svc *core.Service) error {
				day := cfg.Jobs.ReminderDay
				if now {
					day = 1
				}
				sent, err := svc.SendDuesReminders(ctx, day)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "sent %d reminders\n", sent)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&now, "now", false, "ignore the configured reminder day")
	return cmd
}

func hashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password [password]",
		Short: "Print a bcrypt hash for pasting into the Members tab",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var pwd string
			if len(args) == 1 {
				pwd = args[0]
			} else {
				var err error
				if pwd, err = readPassword(cmd); err != nil {
					return err
				}
			}
			hash, err := auth.HashPassword(pwd)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}

// readPassword reads one line from stdin.
func readPassword(cmd *cobra.Command) (string, error) {
	fmt.Fprint(os.Stderr, "password: ")
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimSpace(line), nil
}
