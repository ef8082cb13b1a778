package core

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/JonMunkholm/rwa/internal/audit"
	"github.com/JonMunkholm/rwa/internal/auth"
	"github.com/JonMunkholm/rwa/internal/blob"
	"github.com/JonMunkholm/rwa/internal/payment"
)

// DuplicateRemark marks an online payment confirmed for a month that was
// already paid by other means.
const DuplicateRemark = "duplicate: month already paid"

func (s *Service) readPayments(ctx context.Context) ([]Payment, [][]string, TabDefinition, error) {
	rows, def, err := s.readTab(ctx, TabMaintenance)
	if err != nil {
		return nil, nil, def, err
	}
	out := make([]Payment, 0, len(rows))
	for i, row := range rows {
		if cell(row, payFlat) == "" {
			continue
		}
		out = append(out, paymentFromRow(i, row))
	}
	return out, rows, def, nil
}

// paidMonths returns the months with a confirmed row for flatNo.
func paidMonths(payments []Payment, flatNo string) map[Month]bool {
	paid := make(map[Month]bool)
	for _, p := range payments {
		if p.Confirmed() && sameFlat(p.FlatNo, flatNo) {
			paid[p.Month] = true
		}
	}
	return paid
}

// uniqueMonths drops zero and repeated months and sorts the rest.
func uniqueMonths(months []Month) []Month {
	seen := make(map[Month]bool, len(months))
	out := make([]Month, 0, len(months))
	for _, m := range months {
		if m.IsZero() || seen[m] {
			continue
		}
		seen[m] = true
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

func (s *Service) checkPayable(months []Month) ([]Month, error) {
	months = uniqueMonths(months)
	if len(months) == 0 {
		return nil, fmt.Errorf("%w: at least one month is required", ErrInvalidInput)
	}
	if months[0].Before(s.billing.StartMonth) {
		return nil, fmt.Errorf("%w: %s is before billing starts (%s)", ErrInvalidInput, months[0], s.billing.StartMonth)
	}
	return months, nil
}

// RecordCashPayment records an offline payment: one confirmed row with its
// own receipt number per month. A month already paid by the flat is
// rejected and nothing is written.
func (s *Service) RecordCashPayment(ctx context.Context, cp CashPayment) ([]Payment, error) {
	months, err := s.checkPayable(cp.Months)
	if err != nil {
		return nil, err
	}
	mode, ok := ParsePaymentMode(cp.Mode)
	if !ok || mode == ModeOnline {
		return nil, fmt.Errorf("%w: unsupported payment mode %q", ErrInvalidInput, cp.Mode)
	}
	member, err := s.GetMember(ctx, cp.FlatNo)
	if err != nil {
		return nil, err
	}
	amount := cp.Amount
	if amount.IsZero() {
		amount = member.MonthlyFee
	}
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be positive", ErrInvalidInput)
	}
	paidOn := cp.PaidOn
	if paidOn.IsZero() {
		paidOn = s.today()
	}

	unlock := s.lock(TabMaintenance)
	defer unlock()

	payments, rows, def, err := s.readPayments(ctx)
	if err != nil {
		return nil, err
	}
	paid := paidMonths(payments, member.FlatNo)
	for _, m := range months {
		if paid[m] {
			return nil, fmt.Errorf("%w: %s for %s", ErrAlreadyPaid, member.FlatNo, m.Label())
		}
	}

	next := nextSequence(rows, payReceipt, ReceiptPrefix)
	out := make([]Payment, 0, len(months))
	newRows := make([][]string, 0, len(months))
	for i, m := range months {
		p := Payment{
			Row:       len(rows) + i,
			ReceiptNo: formatID(ReceiptPrefix, next+i),
			FlatNo:    member.FlatNo,
			Month:     m,
			Amount:    amount,
			PaidOn:    paidOn,
			Mode:      mode,
			Remarks:   strings.TrimSpace(cp.Remarks),
		}
		out = append(out, p)
		newRows = append(newRows, p.row())
	}
	if err := s.appendRows(ctx, def, newRows...); err != nil {
		return nil, err
	}

	s.metrics.ObservePayment(strings.ToLower(string(mode)), "recorded")
	s.logAudit(ctx, audit.Params{
		Action:       audit.ActionPaymentCash,
		Tab:          def.Name,
		Flat:         member.FlatNo,
		RowKey:       member.FlatNo,
		NewValue:     FormatAmount(amount.Mul(decimal.NewFromInt(int64(len(months))))),
		RowsAffected: len(out),
		RowData:      map[string]interface{}{"receipts": receiptNumbers(out), "mode": string(mode)},
	})
	return out, nil
}

func receiptNumbers(payments []Payment) []string {
	out := make([]string, 0, len(payments))
	for _, p := range payments {
		out = append(out, p.ReceiptNo)
	}
	return out
}

// CreateOnlineOrder creates a gateway order for the member's fee times the
// number of months, and appends one unconfirmed row per month.
func (s *Service) CreateOnlineOrder(ctx context.Context, flatNo string, months []Month) (OnlineOrder, error) {
	if s.gateway == nil {
		return OnlineOrder{}, ErrGatewayUnavailable
	}
	months, err := s.checkPayable(months)
	if err != nil {
		return OnlineOrder{}, err
	}
	member, err := s.GetMember(ctx, flatNo)
	if err != nil {
		return OnlineOrder{}, err
	}
	if !member.MonthlyFee.IsPositive() {
		return OnlineOrder{}, fmt.Errorf("%w: no monthly fee set for %s", ErrInvalidInput, member.FlatNo)
	}
	total := member.MonthlyFee.Mul(decimal.NewFromInt(int64(len(months))))

	unlock := s.lock(TabMaintenance)
	defer unlock()

	payments, _, def, err := s.readPayments(ctx)
	if err != nil {
		return OnlineOrder{}, err
	}
	paid := paidMonths(payments, member.FlatNo)
	for _, m := range months {
		if paid[m] {
			return OnlineOrder{}, fmt.Errorf("%w: %s for %s", ErrAlreadyPaid, member.FlatNo, m.Label())
		}
	}

	order, err := s.gateway.CreateOrder(ctx, payment.OrderRequest{
		Amount:   total,
		Currency: s.billing.Currency,
		Receipt:  "rwa-" + uuid.NewString()[:8],
		Notes: map[string]string{
			"flat_no": member.FlatNo,
			"months":  joinMonths(months),
		},
	})
	if err != nil {
		s.metrics.ObservePayment("online", "order_failed")
		return OnlineOrder{}, fmt.Errorf("create %s order: %w: %v", s.gateway.Name(), ErrGatewayFailed, err)
	}

	newRows := make([][]string, 0, len(months))
	for _, m := range months {
		p := Payment{
			FlatNo:  member.FlatNo,
			Month:   m,
			Amount:  member.MonthlyFee,
			Mode:    ModeOnline,
			OrderID: order.ID,
		}
		newRows = append(newRows, p.row())
	}
	if err := s.appendRows(ctx, def, newRows...); err != nil {
		return OnlineOrder{}, err
	}

	s.metrics.ObservePayment("online", "ordered")
	s.logAudit(ctx, audit.Params{
		Action:       audit.ActionPaymentOrder,
		Tab:          def.Name,
		Flat:         member.FlatNo,
		RowKey:       order.ID,
		NewValue:     FormatAmount(total),
		RowsAffected: len(months),
		RowData:      map[string]interface{}{"months": joinMonths(months)},
	})
	return OnlineOrder{
		OrderID:  order.ID,
		Amount:   total,
		Currency: s.billing.Currency,
		KeyID:    order.KeyID,
		FlatNo:   member.FlatNo,
		Months:   months,
	}, nil
}

func joinMonths(months []Month) string {
	parts := make([]string, len(months))
	for i, m := range months {
		parts[i] = m.String()
	}
	return strings.Join(parts, ",")
}

// ConfirmOnlinePayment verifies the checkout signature and writes receipt
// numbers, the payment id and today's date to the order's pending rows.
// Confirming an order twice returns the existing receipts.
func (s *Service) ConfirmOnlinePayment(ctx context.Context, c Confirmation) (ConfirmResult, error) {
	if s.gateway == nil {
		return ConfirmResult{}, ErrGatewayUnavailable
	}
	orderID := strings.TrimSpace(c.OrderID)
	paymentID := strings.TrimSpace(c.PaymentID)
	if err := s.gateway.VerifySignature(orderID, paymentID, strings.TrimSpace(c.Signature)); err != nil {
		s.metrics.ObservePayment("online", "bad_signature")
		return ConfirmResult{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	unlock := s.lock(TabMaintenance)
	defer unlock()

	payments, rows, def, err := s.readPayments(ctx)
	if err != nil {
		return ConfirmResult{}, err
	}

	var order []Payment
	for _, p := range payments {
		if p.OrderID == orderID {
			order = append(order, p)
		}
	}
	if len(order) == 0 {
		return ConfirmResult{}, fmt.Errorf("order %s: %w", orderID, ErrNotFound)
	}
	if pr, ok := auth.PrincipalFrom(ctx); ok && !pr.IsAdmin() {
		for _, p := range order {
			if !sameFlat(p.FlatNo, pr.FlatNo) {
				return ConfirmResult{}, fmt.Errorf("order %s: %w", orderID, ErrForbidden)
			}
		}
	}

	result := ConfirmResult{OrderID: orderID}
	next := nextSequence(rows, payReceipt, ReceiptPrefix)
	today := s.today()
	confirmed := 0
	for _, p := range order {
		if p.Confirmed() {
			result.Payments = append(result.Payments, p)
			continue
		}
		// Months paid by another receipt since the order was created are
		// still receipted; the money was taken.
		paid := paidMonths(payments, p.FlatNo)
		p.ReceiptNo = formatID(ReceiptPrefix, next)
		p.PaymentID = paymentID
		p.PaidOn = today
		if paid[p.Month] {
			p.Remarks = DuplicateRemark
		}
		if err := s.updateRow(ctx, def, p.Row, payReceipt, p.row()); err != nil {
			return ConfirmResult{}, err
		}
		next++
		confirmed++
		payments[indexOfRow(payments, p.Row)] = p
		result.Payments = append(result.Payments, p)
	}
	result.AlreadyConfirmed = confirmed == 0

	if confirmed > 0 {
		s.metrics.ObservePayment("online", "confirmed")
		s.logAudit(ctx, audit.Params{
			Action:       audit.ActionPaymentConfirm,
			Tab:          def.Name,
			Flat:         order[0].FlatNo,
			RowKey:       orderID,
			NewValue:     paymentID,
			RowsAffected: confirmed,
			RowData:      map[string]interface{}{"receipts": receiptNumbers(result.Payments)},
		})
	}
	return result, nil
}

func indexOfRow(payments []Payment, row int) int {
	for i, p := range payments {
		if p.Row == row {
			return i
		}
	}
	return -1
}

// ListPayments returns payments for a flat, or all payments when flatNo is
// blank, ordered by month then receipt number.
func (s *Service) ListPayments(ctx context.Context, flatNo string) ([]Payment, error) {
	payments, _, _, err := s.readPayments(ctx)
	if err != nil {
		return nil, err
	}
	out := payments[:0]
	for _, p := range payments {
		if flatNo == "" || sameFlat(p.FlatNo, flatNo) {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Month != out[j].Month {
			return out[i].Month.Before(out[j].Month)
		}
		return out[i].Row < out[j].Row
	})
	return out, nil
}

// PendingOnlinePayments returns online rows still awaiting confirmation.
func (s *Service) PendingOnlinePayments(ctx context.Context) ([]Payment, error) {
	payments, _, _, err := s.readPayments(ctx)
	if err != nil {
		return nil, err
	}
	var out []Payment
	for _, p := range payments {
		if p.Pending() {
			out = append(out, p)
		}
	}
	return out, nil
}

// GetReceipt returns the printable view of a confirmed payment.
func (s *Service) GetReceipt(ctx context.Context, receiptNo string) (Receipt, error) {
	receiptNo = strings.ToUpper(strings.TrimSpace(receiptNo))
	if receiptNo == "" {
		return Receipt{}, fmt.Errorf("receipt: %w", ErrNotFound)
	}
	payments, _, _, err := s.readPayments(ctx)
	if err != nil {
		return Receipt{}, err
	}
	for _, p := range payments {
		if p.ReceiptNo != receiptNo {
			continue
		}
		r := Receipt{Payment: p, Association: s.billing.AssociationName, Currency: s.billing.Currency}
		members, err := s.readMembers(ctx)
		if err != nil {
			return Receipt{}, err
		}
		// The member at the time of payment; later occupants come after
		// in the tab, so the last row joined on or before PaidOn wins.
		for _, m := range members {
			if !sameFlat(m.FlatNo, p.FlatNo) {
				continue
			}
			if r.MemberName == "" || m.JoinedOn.IsZero() || !m.JoinedOn.After(p.PaidOn.Time) {
				r.MemberName = m.Name
			}
		}
		return r, nil
	}
	return Receipt{}, fmt.Errorf("receipt %s: %w", receiptNo, ErrNotFound)
}

// ReceiptKey is the blob key of an archived receipt.
func ReceiptKey(receiptNo string) string {
	return "receipts/" + strings.ToUpper(receiptNo) + ".html"
}

// ArchiveReceipt stores the rendered receipt the first time it is shown.
// Receipts are immutable, so an existing copy is kept.
func (s *Service) ArchiveReceipt(ctx context.Context, receiptNo string, html []byte) error {
	if s.blobs == nil {
		return nil
	}
	key := ReceiptKey(receiptNo)
	if _, err := s.blobs.Head(ctx, key); err == nil {
		return nil
	} else if !errors.Is(err, blob.ErrNotFound) {
		return fmt.Errorf("archive receipt %s: %w", receiptNo, err)
	}
	_, err := s.blobs.Put(ctx, key, bytes.NewReader(html), blob.PutOptions{
		ContentType: "text/html; charset=utf-8",
		Metadata:    map[string]string{"receipt": strings.ToUpper(receiptNo)},
	})
	if err != nil && !errors.Is(err, blob.ErrExists) {
		return fmt.Errorf("archive receipt %s: %w", receiptNo, err)
	}
	return nil
}
