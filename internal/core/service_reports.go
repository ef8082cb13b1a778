package core

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// Summary totals collections and expenditure per month from `from` to `to`
// inclusive. Collections count under the month they pay for; expenditure
// under the month it was spent. The opening balance carries everything
// before `from`. A zero `from` starts at the billing start, or at the
// earliest month that keeps the window within the reporting limit.
func (s *Service) Summary(ctx context.Context, from, to Month) (Summary, error) {
	if to.IsZero() {
		to = MonthOf(s.now())
	}
	if from.IsZero() {
		from = maxMonth(s.billing.StartMonth, to.AddMonths(-(s.maxMonths - 1)))
	}
	if to.Before(from) {
		return Summary{}, fmt.Errorf("%w: %s is after %s", ErrInvalidInput, from, to)
	}
	if span := from.MonthSpan(to); span > s.maxMonths {
		return Summary{}, fmt.Errorf("%w: %d months requested, at most %d allowed", ErrInvalidInput, span, s.maxMonths)
	}

	payments, _, _, err := s.readPayments(ctx)
	if err != nil {
		return Summary{}, err
	}
	expenses, _, _, err := s.readExpenditures(ctx)
	if err != nil {
		return Summary{}, err
	}

	out := Summary{From: from, To: to, Opening: decimal.Zero}
	lines := make(map[Month]*SummaryMonth)
	payers := make(map[Month]map[string]bool)
	for _, m := range from.MonthsThrough(to) {
		line := SummaryMonth{Month: m, Collected: decimal.Zero, Expenditure: decimal.Zero}
		out.Months = append(out.Months, line)
		payers[m] = make(map[string]bool)
	}
	for i := range out.Months {
		lines[out.Months[i].Month] = &out.Months[i]
	}

	for _, p := range payments {
		if !p.Confirmed() || p.Month.IsZero() {
			continue
		}
		if p.Month.Before(from) {
			out.Opening = out.Opening.Add(p.Amount)
			continue
		}
		if line, ok := lines[p.Month]; ok {
			line.Collected = line.Collected.Add(p.Amount)
			payers[p.Month][p.FlatNo] = true
		}
	}
	for _, e := range expenses {
		if e.Date.IsZero() {
			continue
		}
		m := e.Date.Month()
		if m.Before(from) {
			out.Opening = out.Opening.Sub(e.Amount)
			continue
		}
		if line, ok := lines[m]; ok {
			line.Expenditure = line.Expenditure.Add(e.Amount)
		}
	}

	balance := out.Opening
	for i := range out.Months {
		line := &out.Months[i]
		line.Payers = len(payers[line.Month])
		line.Net = line.Collected.Sub(line.Expenditure)
		balance = balance.Add(line.Net)
		line.Balance = balance
	}
	out.TotalCollected = sumAmounts(out.Months, func(l SummaryMonth) decimal.Decimal { return l.Collected })
	out.TotalExpenditure = sumAmounts(out.Months, func(l SummaryMonth) decimal.Decimal { return l.Expenditure })
	out.Net = out.TotalCollected.Sub(out.TotalExpenditure)
	out.Closing = balance
	return out, nil
}

// Defaulters lists active members with unpaid months up to and including
// month. Billing for a member starts at the later of their joining month
// and the association's billing start.
func (s *Service) Defaulters(ctx context.Context, month Month) (DefaulterReport, error) {
	if month.IsZero() {
		month = MonthOf(s.now())
	}
	members, err := s.readMembers(ctx)
	if err != nil {
		return DefaulterReport{}, err
	}
	payments, _, _, err := s.readPayments(ctx)
	if err != nil {
		return DefaulterReport{}, err
	}

	report := DefaulterReport{Month: month, Defaulters: []Defaulter{}, TotalDue: decimal.Zero}
	for _, m := range members {
		if !m.Active() {
			continue
		}
		start := s.billing.StartMonth
		if !m.JoinedOn.IsZero() {
			start = maxMonth(start, m.JoinedOn.Month())
		}
		if start.After(month) {
			continue
		}
		paid := paidMonths(payments, m.FlatNo)
		var unpaid []Month
		for _, due := range start.MonthsThrough(month) {
			if !paid[due] {
				unpaid = append(unpaid, due)
			}
		}
		if len(unpaid) == 0 {
			continue
		}
		d := Defaulter{
			FlatNo:       m.FlatNo,
			Name:         m.Name,
			Phone:        m.Phone,
			Email:        m.Email,
			MonthlyFee:   m.MonthlyFee,
			UnpaidMonths: unpaid,
			AmountDue:    m.MonthlyFee.Mul(decimal.NewFromInt(int64(len(unpaid)))),
		}
		report.Defaulters = append(report.Defaulters, d)
		report.TotalDue = report.TotalDue.Add(d.AmountDue)
	}
	sort.Slice(report.Defaulters, func(i, j int) bool {
		return report.Defaulters[i].FlatNo < report.Defaulters[j].FlatNo
	})
	return report, nil
}
