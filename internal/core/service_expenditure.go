package core

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/JonMunkholm/rwa/internal/audit"
)

func (s *Service) readExpenditures(ctx context.Context) ([]Expenditure, [][]string, TabDefinition, error) {
	rows, def, err := s.readTab(ctx, TabExpenditure)
	if err != nil {
		return nil, nil, def, err
	}
	out := make([]Expenditure, 0, len(rows))
	for i, row := range rows {
		if cell(row, expAmount) == "" && cell(row, expDescription) == "" {
			continue
		}
		out = append(out, expenditureFromRow(i, row))
	}
	return out, rows, def, nil
}

// RecordExpenditure appends an expense paid by the association.
func (s *Service) RecordExpenditure(ctx context.Context, ne NewExpenditure) (Expenditure, error) {
	if !ne.Amount.IsPositive() {
		return Expenditure{}, fmt.Errorf("%w: amount must be positive", ErrInvalidInput)
	}
	if strings.TrimSpace(ne.Category) == "" || strings.TrimSpace(ne.Description) == "" {
		return Expenditure{}, fmt.Errorf("%w: category and description are required", ErrInvalidInput)
	}
	date := ne.Date
	if date.IsZero() {
		date = s.today()
	}
	if date.After(s.today().Time) {
		return Expenditure{}, fmt.Errorf("%w: date %s is in the future", ErrInvalidInput, date)
	}
	recordedBy := ne.RecordedBy
	if recordedBy == "" {
		recordedBy = GetActorFromContext(ctx)
	}

	unlock := s.lock(TabExpenditure)
	defer unlock()

	_, rows, def, err := s.readExpenditures(ctx)
	if err != nil {
		return Expenditure{}, err
	}
	e := Expenditure{
		Row:         len(rows),
		ID:          formatID(def.IDPrefix, nextSequence(rows, expID, def.IDPrefix)),
		Date:        date,
		Category:    strings.TrimSpace(ne.Category),
		Description: strings.TrimSpace(ne.Description),
		Amount:      ne.Amount.Round(2),
		PaidTo:      strings.TrimSpace(ne.PaidTo),
		Mode:        strings.TrimSpace(ne.Mode),
		RecordedBy:  recordedBy,
	}
	if err := s.appendRows(ctx, def, e.row()); err != nil {
		return Expenditure{}, err
	}

	s.logAudit(ctx, audit.Params{
		Action:   audit.ActionExpenditureRecord,
		Tab:      def.Name,
		RowKey:   e.ID,
		NewValue: FormatAmount(e.Amount),
		RowData:  map[string]interface{}{"category": e.Category, "date": e.Date.String()},
	})
	return e, nil
}

// ListExpenditures returns expenses by date. A zero month returns all.
func (s *Service) ListExpenditures(ctx context.Context, month Month) ([]Expenditure, error) {
	all, _, _, err := s.readExpenditures(ctx)
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, e := range all {
		if month.IsZero() || e.Date.Month() == month {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date.Time) })
	return out, nil
}
