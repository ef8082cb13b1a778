package core

// scheduler.go runs the association's background jobs:
//  1. Dues reminder: from the reminder day of each month, post one notice
//     for the month and email every defaulter with an address
//  2. Workbook backup: copy the local workbook to blob storage and prune
//     old copies
//
// The scheduler is long-running and stops with its context. Job failures
// are logged and counted; they never stop the application.

import (
	"bytes"
	"context"
	"fmt"
	"net/mail"
	"sort"
	"strings"
	"time"

	"github.com/JonMunkholm/rwa/internal/audit"
	"github.com/JonMunkholm/rwa/internal/blob"
	"github.com/JonMunkholm/rwa/internal/logging"
	"github.com/JonMunkholm/rwa/internal/notify"
	"github.com/JonMunkholm/rwa/internal/sheets"
)

// JobsConfig holds configuration for the scheduler.
type JobsConfig struct {
	CheckInterval time.Duration // How often to run (default: 6h)
	ReminderDay   int           // Day of month reminders start (default: 10)
	Backup        bool          // Copy the workbook to blob storage
	BackupRetain  int           // Backups kept (default: 30)
}

// BackupPrefix is the blob key prefix of workbook backups.
const BackupPrefix = "backups/"

// StartScheduler runs the jobs immediately, then every CheckInterval,
// until ctx is cancelled.
func (s *Service) StartScheduler(ctx context.Context, cfg JobsConfig) {
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = 6 * time.Hour
	}
	ctx = ContextWithActor(ctx, "scheduler")
	log := logging.FromContext(ctx)
	log.Info("job scheduler started",
		"interval", cfg.CheckInterval.String(),
		"reminder_day", cfg.ReminderDay,
		"backup", cfg.Backup,
	)

	s.runJobs(ctx, cfg)

	ticker := time.NewTicker(cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("job scheduler stopped")
			return
		case <-ticker.C:
			s.runJobs(ctx, cfg)
		}
	}
}

// runJobs performs one reminder + backup cycle.
func (s *Service) runJobs(ctx context.Context, cfg JobsConfig) {
	log := logging.FromContext(ctx)
	start := time.Now()

	reminderStart := time.Now()
	sent, err := s.SendDuesReminders(ctx, cfg.ReminderDay)
	s.metrics.ObserveJob("dues_reminder", err)
	if err != nil {
		log.Error("dues reminder failed", "error", err)
	} else {
		log.Info("dues reminder checked",
			"emails_sent", sent,
			"duration_ms", time.Since(reminderStart).Milliseconds(),
		)
	}

	if cfg.Backup {
		backupStart := time.Now()
		key, err := s.BackupWorkbook(ctx, cfg.BackupRetain)
		s.metrics.ObserveJob("workbook_backup", err)
		if err != nil {
			log.Error("workbook backup failed", "error", err)
		} else if key != "" {
			log.Info("workbook backed up",
				"key", key,
				"duration_ms", time.Since(backupStart).Milliseconds(),
			)
		}
	}

	log.Debug("jobs completed", "duration_ms", time.Since(start).Milliseconds())
}

// ReminderTitle is the notice title used for a month's dues reminder.
func ReminderTitle(m Month) string {
	return "Maintenance due for " + m.Label()
}

// SendDuesReminders posts the month's reminder notice and emails the
// defaulters, once per month and only from reminderDay onwards. It returns
// the number of emails sent.
func (s *Service) SendDuesReminders(ctx context.Context, reminderDay int) (int, error) {
	if reminderDay <= 0 {
		reminderDay = 10
	}
	now := s.now()
	if now.Day() < reminderDay {
		return 0, nil
	}
	month := MonthOf(now)
	title := ReminderTitle(month)

	posted, err := s.hasNotificationTitled(ctx, title)
	if err != nil {
		return 0, err
	}
	if posted {
		return 0, nil
	}

	report, err := s.Defaulters(ctx, month)
	if err != nil {
		return 0, err
	}
	if len(report.Defaulters) == 0 {
		return 0, nil
	}

	ctx = ContextWithActor(ctx, "scheduler")
	_, err = s.PostNotification(ctx, NewNotification{
		Title: title,
		Message: fmt.Sprintf(
			"Maintenance for %s is due. %d flats have pending dues. Please pay online or at the association office.",
			month.Label(), len(report.Defaulters)),
		ExpiresOn: NewDate(month.AddMonths(1).Start()),
		PostedBy:  "scheduler",
	})
	if err != nil {
		return 0, fmt.Errorf("post reminder: %w", err)
	}

	sent := 0
	if s.mailer != nil {
		for _, d := range report.Defaulters {
			addr, ok := notify.ParseAddress(d.Name, d.Email)
			if !ok {
				continue
			}
			if err := s.mailer.Send(ctx, reminderMessage(s.billing, d, addr)); err != nil {
				logging.FromContext(ctx).Warn("reminder email failed", "defaulter", d.FlatNo, "error", err)
				continue
			}
			sent++
		}
	}

	s.logAudit(ctx, audit.Params{
		Action:       audit.ActionReminderSent,
		Tab:          MustGet(TabNotifications).Name,
		RowKey:       month.String(),
		NewValue:     FormatAmount(report.TotalDue),
		RowsAffected: sent,
	})
	return sent, nil
}

func reminderMessage(b Billing, d Defaulter, to mail.Address) notify.Message {
	months := make([]string, len(d.UnpaidMonths))
	for i, m := range d.UnpaidMonths {
		months[i] = m.Label()
	}
	var text strings.Builder
	fmt.Fprintf(&text, "Dear %s,\n\n", d.Name)
	fmt.Fprintf(&text, "Maintenance for flat %s is pending for: %s.\n", d.FlatNo, strings.Join(months, ", "))
	fmt.Fprintf(&text, "Amount due: %s %s\n\n", b.Currency, FormatAmount(d.AmountDue))
	fmt.Fprintf(&text, "Please pay online through the portal or at the office.\n\n%s\n", b.AssociationName)
	return notify.Message{
		To:      []mail.Address{to},
		Subject: "Maintenance due: " + b.Currency + " " + FormatAmount(d.AmountDue),
		Text:    text.String(),
	}
}

// BackupWorkbook copies the workbook to blob storage under BackupPrefix
// and keeps the newest retain copies. It returns "" when the backend has
// no snapshot or no blob store is configured.
func (s *Service) BackupWorkbook(ctx context.Context, retain int) (string, error) {
	snap, ok := s.store.(sheets.Snapshotter)
	if !ok || s.blobs == nil {
		return "", nil
	}
	data, err := snap.Snapshot(ctx)
	if err != nil {
		return "", fmt.Errorf("snapshot workbook: %w", err)
	}
	if len(data) == 0 {
		return "", nil
	}

	key := BackupPrefix + s.now().UTC().Format("20060102T150405Z") + ".xlsx"
	_, err = s.blobs.Put(ctx, key, bytes.NewReader(data), blob.PutOptions{
		ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	})
	if err != nil {
		return "", fmt.Errorf("store backup %s: %w", key, err)
	}
	s.logAudit(ContextWithActor(ctx, "scheduler"), audit.Params{
		Action:   audit.ActionBackup,
		RowKey:   key,
		NewValue: fmt.Sprintf("%d bytes", len(data)),
	})

	if retain <= 0 {
		retain = 30
	}
	if err := s.pruneBackups(ctx, retain); err != nil {
		logging.FromContext(ctx).Warn("backup prune failed", "error", err)
	}
	return key, nil
}

func (s *Service) pruneBackups(ctx context.Context, retain int) error {
	infos, err := s.blobs.List(ctx, BackupPrefix)
	if err != nil {
		return err
	}
	if len(infos) <= retain {
		return nil
	}
	// Keys embed a sortable timestamp.
	sort.Slice(infos, func(i, j int) bool { return infos[i].Key < infos[j].Key })
	for _, info := range infos[:len(infos)-retain] {
		if _, err := s.blobs.Delete(ctx, info.Key); err != nil {
			return fmt.Errorf("delete %s: %w", info.Key, err)
		}
	}
	return nil
}
