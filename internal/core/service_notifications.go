package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/JonMunkholm/rwa/internal/audit"
)

// ActiveOn reports whether the notification is shown on day. A notification
// stays up through the day before ExpiresOn.
func (n Notification) ActiveOn(day Date) bool {
	return n.ExpiresOn.IsZero() || day.Before(n.ExpiresOn.Time)
}

func (s *Service) readNotifications(ctx context.Context) ([]Notification, [][]string, TabDefinition, error) {
	rows, def, err := s.readTab(ctx, TabNotifications)
	if err != nil {
		return nil, nil, def, err
	}
	out := make([]Notification, 0, len(rows))
	for i, row := range rows {
		if cell(row, ntfTitle) == "" && cell(row, ntfMessage) == "" {
			continue
		}
		out = append(out, notificationFromRow(i, row))
	}
	return out, rows, def, nil
}

// PostNotification adds a notice to the board.
func (s *Service) PostNotification(ctx context.Context, nn NewNotification) (Notification, error) {
	title := strings.TrimSpace(nn.Title)
	if title == "" || strings.TrimSpace(nn.Message) == "" {
		return Notification{}, fmt.Errorf("%w: title and message are required", ErrInvalidInput)
	}
	today := s.today()
	if !nn.ExpiresOn.IsZero() && !today.Before(nn.ExpiresOn.Time) {
		return Notification{}, fmt.Errorf("%w: expiry %s is not in the future", ErrInvalidInput, nn.ExpiresOn)
	}
	postedBy := nn.PostedBy
	if postedBy == "" {
		postedBy = GetActorFromContext(ctx)
	}

	unlock := s.lock(TabNotifications)
	defer unlock()

	_, rows, def, err := s.readNotifications(ctx)
	if err != nil {
		return Notification{}, err
	}
	n := Notification{
		Row:       len(rows),
		ID:        formatID(def.IDPrefix, nextSequence(rows, ntfID, def.IDPrefix)),
		Title:     title,
		Message:   strings.TrimSpace(nn.Message),
		PostedOn:  today,
		ExpiresOn: nn.ExpiresOn,
		PostedBy:  postedBy,
	}
	if err := s.appendRows(ctx, def, n.row()); err != nil {
		return Notification{}, err
	}

	s.logAudit(ctx, audit.Params{
		Action:   audit.ActionNotificationPost,
		Tab:      def.Name,
		RowKey:   n.ID,
		NewValue: n.Title,
	})
	return n, nil
}

// ListNotifications returns notices newest first. Expired notices are
// left out unless includeExpired is set.
func (s *Service) ListNotifications(ctx context.Context, day Date, includeExpired bool) ([]Notification, error) {
	all, _, _, err := s.readNotifications(ctx)
	if err != nil {
		return nil, err
	}
	if day.IsZero() {
		day = s.today()
	}
	out := make([]Notification, 0, len(all))
	for i := len(all) - 1; i >= 0; i-- {
		if includeExpired || all[i].ActiveOn(day) {
			out = append(out, all[i])
		}
	}
	return out, nil
}

// ExpireNotification takes a notice down from day onwards.
func (s *Service) ExpireNotification(ctx context.Context, id string, day Date) (Notification, error) {
	id = strings.ToUpper(strings.TrimSpace(id))
	if day.IsZero() {
		day = s.today()
	}

	unlock := s.lock(TabNotifications)
	defer unlock()

	all, _, def, err := s.readNotifications(ctx)
	if err != nil {
		return Notification{}, err
	}
	for _, n := range all {
		if n.ID != id {
			continue
		}
		if !n.ActiveOn(day) {
			return n, nil
		}
		old := n.ExpiresOn.String()
		n.ExpiresOn = day
		if err := s.updateRow(ctx, def, n.Row, ntfExpires, []string{day.String()}); err != nil {
			return Notification{}, err
		}
		s.logAudit(ctx, audit.Params{
			Action:   audit.ActionNotificationExpire,
			Tab:      def.Name,
			RowKey:   n.ID,
			OldValue: old,
			NewValue: day.String(),
		})
		return n, nil
	}
	return Notification{}, fmt.Errorf("notification %s: %w", id, ErrNotFound)
}

// hasNotificationTitled reports whether any notice carries title.
func (s *Service) hasNotificationTitled(ctx context.Context, title string) (bool, error) {
	all, _, _, err := s.readNotifications(ctx)
	if err != nil {
		return false, err
	}
	for _, n := range all {
		if strings.EqualFold(n.Title, title) {
			return true, nil
		}
	}
	return false, nil
}
