package core

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/JonMunkholm/rwa/internal/audit"
	"github.com/JonMunkholm/rwa/internal/auth"
)

func (s *Service) readMembers(ctx context.Context) ([]Member, error) {
	rows, _, err := s.readTab(ctx, TabMembers)
	if err != nil {
		return nil, err
	}
	out := make([]Member, 0, len(rows))
	for i, row := range rows {
		if cell(row, memFlat) == "" {
			continue
		}
		out = append(out, memberFromRow(i, row, s.billing.DefaultFee))
	}
	return out, nil
}

// findActive returns the active row for flatNo. When only vacated rows
// exist it returns ErrVacated; when none exist, ErrNotFound.
func findActive(members []Member, flatNo string) (Member, error) {
	vacated := false
	for _, m := range members {
		if !sameFlat(m.FlatNo, flatNo) {
			continue
		}
		if m.Active() {
			return m, nil
		}
		vacated = true
	}
	if vacated {
		return Member{}, ErrVacated
	}
	return Member{}, ErrNotFound
}

// Login checks a flat's password and returns the active member. Unknown
// and vacated flats fail the same way as a wrong password.
func (s *Service) Login(ctx context.Context, flatNo, password string) (Member, error) {
	members, err := s.readMembers(ctx)
	if err != nil {
		return Member{}, err
	}
	m, err := findActive(members, flatNo)
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrVacated) {
		return Member{}, ErrInvalidCredentials
	}
	if err != nil {
		return Member{}, err
	}
	if err := auth.CheckPassword(m.PasswordHash, password); err != nil {
		return Member{}, ErrInvalidCredentials
	}
	s.logAudit(ctx, audit.Params{Action: audit.ActionLogin, Tab: "Members", Flat: m.FlatNo, Actor: m.FlatNo, RowKey: m.FlatNo})
	return m, nil
}

// GetMember returns the active member of a flat.
func (s *Service) GetMember(ctx context.Context, flatNo string) (Member, error) {
	members, err := s.readMembers(ctx)
	if err != nil {
		return Member{}, err
	}
	m, err := findActive(members, flatNo)
	if err != nil {
		return Member{}, fmt.Errorf("member %s: %w", NormalizeFlat(flatNo), err)
	}
	return m, nil
}

// ListMembers returns members sorted by flat number, active rows first
// within a flat.
func (s *Service) ListMembers(ctx context.Context, f MemberFilter) ([]Member, error) {
	members, err := s.readMembers(ctx)
	if err != nil {
		return nil, err
	}
	out := members[:0]
	for _, m := range members {
		if f.Status != "" && m.Status != f.Status {
			continue
		}
		out = append(out, m)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].FlatNo != out[j].FlatNo {
			return out[i].FlatNo < out[j].FlatNo
		}
		return out[i].Active() && !out[j].Active()
	})
	return out, nil
}

// AddMember appends a new active member. A flat may have only one active
// member at a time.
func (s *Service) AddMember(ctx context.Context, nm NewMember) (Member, error) {
	flat := NormalizeFlat(nm.FlatNo)
	if flat == "" || strings.TrimSpace(nm.Name) == "" {
		return Member{}, fmt.Errorf("%w: flat number and name are required", ErrInvalidInput)
	}
	role := strings.ToLower(strings.TrimSpace(nm.Role))
	if role == "" {
		role = auth.RoleResident
	}
	if role != auth.RoleResident && role != auth.RoleAdmin {
		return Member{}, fmt.Errorf("%w: unknown role %q", ErrInvalidInput, nm.Role)
	}
	if nm.MonthlyFee.IsNegative() {
		return Member{}, fmt.Errorf("%w: monthly fee cannot be negative", ErrInvalidInput)
	}
	hash, err := auth.HashPassword(nm.Password)
	if err != nil {
		return Member{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	unlock := s.lock(TabMembers)
	defer unlock()

	rows, def, err := s.readTab(ctx, TabMembers)
	if err != nil {
		return Member{}, err
	}
	for i, row := range rows {
		if sameFlat(cell(row, memFlat), flat) && memberFromRow(i, row, s.billing.DefaultFee).Active() {
			return Member{}, fmt.Errorf("%w: %s", ErrFlatTaken, flat)
		}
	}

	joined := nm.JoinedOn
	if joined.IsZero() {
		joined = s.today()
	}
	m := Member{
		FlatNo:       flat,
		Name:         strings.TrimSpace(nm.Name),
		Phone:        strings.TrimSpace(nm.Phone),
		Email:        strings.TrimSpace(nm.Email),
		PasswordHash: hash,
		Role:         role,
		Status:       StatusActive,
		JoinedOn:     joined,
		MonthlyFee:   nm.MonthlyFee,
	}
	if err := s.appendRows(ctx, def, m.row()); err != nil {
		return Member{}, err
	}
	m.Row = len(rows)
	if m.MonthlyFee.IsZero() {
		m.MonthlyFee = s.billing.DefaultFee
	}

	s.logAudit(ctx, audit.Params{
		Action:   audit.ActionMemberAdd,
		Tab:      def.Name,
		Flat:     flat,
		RowKey:   flat,
		NewValue: m.Name,
		RowData:  map[string]interface{}{"role": role, "joined_on": joined.String()},
	})
	return m, nil
}

// VacateMember marks the flat's active membership as vacated. The
// transition happens once; a vacated row is never reactivated.
func (s *Service) VacateMember(ctx context.Context, flatNo string, on Date) (Member, error) {
	unlock := s.lock(TabMembers)
	defer unlock()

	rows, def, err := s.readTab(ctx, TabMembers)
	if err != nil {
		return Member{}, err
	}
	var members []Member
	for i, row := range rows {
		if cell(row, memFlat) != "" {
			members = append(members, memberFromRow(i, row, s.billing.DefaultFee))
		}
	}
	m, err := findActive(members, flatNo)
	if errors.Is(err, ErrVacated) {
		return Member{}, fmt.Errorf("%w: %s is already vacated", ErrInvalidTransition, NormalizeFlat(flatNo))
	}
	if err != nil {
		return Member{}, fmt.Errorf("member %s: %w", NormalizeFlat(flatNo), err)
	}

	if on.IsZero() {
		on = s.today()
	}
	if !m.JoinedOn.IsZero() && on.Before(m.JoinedOn.Time) {
		return Member{}, fmt.Errorf("%w: vacated date is before joining date", ErrInvalidInput)
	}

	// Columns G..I: status, joined on (unchanged), vacated on.
	raw := rows[m.Row]
	if err := s.updateRow(ctx, def, m.Row, memStatus, []string{
		string(StatusVacated), cell(raw, memJoined), on.String(),
	}); err != nil {
		return Member{}, err
	}
	m.Status = StatusVacated
	m.VacatedOn = on

	s.logAudit(ctx, audit.Params{
		Action:   audit.ActionMemberVacate,
		Tab:      def.Name,
		Flat:     m.FlatNo,
		RowKey:   m.FlatNo,
		OldValue: string(StatusActive),
		NewValue: string(StatusVacated),
	})
	return m, nil
}

// ChangePassword replaces a member's password after checking the old one.
func (s *Service) ChangePassword(ctx context.Context, flatNo, oldPassword, newPassword string) error {
	return s.setPassword(ctx, flatNo, &oldPassword, newPassword)
}

// ResetPassword sets a member's password without the old one (committee
// and CLI use).
func (s *Service) ResetPassword(ctx context.Context, flatNo, newPassword string) error {
	return s.setPassword(ctx, flatNo, nil, newPassword)
}

func (s *Service) setPassword(ctx context.Context, flatNo string, oldPassword *string, newPassword string) error {
	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	unlock := s.lock(TabMembers)
	defer unlock()

	members, err := s.readMembers(ctx)
	if err != nil {
		return err
	}
	m, err := findActive(members, flatNo)
	if err != nil {
		return fmt.Errorf("member %s: %w", NormalizeFlat(flatNo), err)
	}
	if oldPassword != nil {
		if err := auth.CheckPassword(m.PasswordHash, *oldPassword); err != nil {
			return ErrInvalidCredentials
		}
	}
	if err := s.updateRow(ctx, MustGet(TabMembers), m.Row, memPassword, []string{hash}); err != nil {
		return err
	}

	action := audit.ActionPasswordChange
	if oldPassword == nil {
		action = audit.ActionPasswordReset
	}
	s.logAudit(ctx, audit.Params{Action: action, Tab: "Members", Flat: m.FlatNo, RowKey: m.FlatNo})
	return nil
}
