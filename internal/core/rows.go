package core

// rows.go converts between tab rows and domain types, and derives the
// sequential IDs stored in column A.

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/JonMunkholm/rwa/internal/auth"
)

var flatHyphen = regexp.MustCompile(`\s*-\s*`)

// NormalizeFlat canonicalises a flat number for comparison: trimmed,
// upper-case, inner whitespace collapsed and dropped around hyphens
// ("a - 101", "A -101" -> "A-101").
func NormalizeFlat(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	s = strings.Join(strings.Fields(s), " ")
	return flatHyphen.ReplaceAllString(s, "-")
}

func sameFlat(a, b string) bool { return NormalizeFlat(a) == NormalizeFlat(b) }

func cell(row []string, i int) string {
	if i < len(row) {
		return strings.TrimSpace(row[i])
	}
	return ""
}

var sequenceRe = regexp.MustCompile(`(\d+)\s*$`)

// nextSequence returns one more than the largest numeric suffix found in
// column col among values carrying prefix (case-insensitive).
func nextSequence(rows [][]string, col int, prefix string) int {
	max := 0
	p := strings.ToUpper(prefix)
	for _, row := range rows {
		v := strings.ToUpper(cell(row, col))
		if !strings.HasPrefix(v, p) {
			continue
		}
		m := sequenceRe.FindStringSubmatch(v[len(p):])
		if m == nil {
			continue
		}
		if n, err := strconv.Atoi(m[1]); err == nil && n > max {
			max = n
		}
	}
	return max + 1
}

func formatID(prefix string, n int) string {
	return fmt.Sprintf("%s%d", prefix, n)
}

// --- Members ---

func memberFromRow(i int, row []string, defaultFee decimal.Decimal) Member {
	m := Member{
		Row:          i,
		FlatNo:       NormalizeFlat(cell(row, memFlat)),
		Name:         cell(row, memName),
		Phone:        cell(row, memPhone),
		Email:        cell(row, memEmail),
		PasswordHash: cell(row, memPassword),
		Role:         strings.ToLower(cell(row, memRole)),
		Status:       StatusActive,
		JoinedOn:     readDate(cell(row, memJoined)),
		VacatedOn:    readDate(cell(row, memVacated)),
		MonthlyFee:   defaultFee,
	}
	if strings.EqualFold(cell(row, memStatus), string(StatusVacated)) {
		m.Status = StatusVacated
	}
	if m.Role == "" {
		m.Role = auth.RoleResident
	}
	if fee, err := ParseAmount(cell(row, memFee)); err == nil {
		m.MonthlyFee = fee
	}
	return m
}

func (m Member) row() []string {
	fee := ""
	if !m.MonthlyFee.IsZero() {
		fee = FormatAmount(m.MonthlyFee)
	}
	return []string{
		m.FlatNo, m.Name, m.Phone, m.Email, m.PasswordHash,
		m.Role, string(m.Status), m.JoinedOn.String(), m.VacatedOn.String(), fee,
	}
}

// --- Maintenance ---

func paymentFromRow(i int, row []string) Payment {
	month, _ := ParseMonth(cell(row, payMonth))
	mode, ok := ParsePaymentMode(cell(row, payMode))
	if !ok {
		mode = PaymentMode(cell(row, payMode))
	}
	return Payment{
		Row:       i,
		ReceiptNo: strings.ToUpper(cell(row, payReceipt)),
		FlatNo:    NormalizeFlat(cell(row, payFlat)),
		Month:     month,
		Amount:    readAmount(cell(row, payAmount)),
		PaidOn:    readDate(cell(row, payPaidOn)),
		Mode:      mode,
		OrderID:   cell(row, payOrderID),
		PaymentID: cell(row, payPaymentID),
		Remarks:   cell(row, payRemarks),
	}
}

func (p Payment) row() []string {
	return []string{
		p.ReceiptNo, p.FlatNo, p.Month.String(), FormatAmount(p.Amount), p.PaidOn.String(),
		string(p.Mode), p.OrderID, p.PaymentID, p.Remarks,
	}
}

// --- Complaints ---

func complaintFromRow(i int, row []string) Complaint {
	kind, ok := ParseComplaintKind(cell(row, cmpKind))
	if !ok {
		kind = ComplaintKind(cell(row, cmpKind))
	}
	status, ok := ParseComplaintStatus(cell(row, cmpStatus))
	if !ok {
		status = ComplaintStatus(cell(row, cmpStatus))
	}
	return Complaint{
		Row:         i,
		ID:          strings.ToUpper(cell(row, cmpID)),
		FlatNo:      NormalizeFlat(cell(row, cmpFlat)),
		Kind:        kind,
		Category:    cell(row, cmpCategory),
		Description: cell(row, cmpDescription),
		Status:      status,
		RaisedOn:    readDate(cell(row, cmpRaised)),
		UpdatedOn:   readDate(cell(row, cmpUpdated)),
		Remarks:     cell(row, cmpRemarks),
	}
}

func (c Complaint) row() []string {
	return []string{
		c.ID, c.FlatNo, string(c.Kind), c.Category, c.Description,
		string(c.Status), c.RaisedOn.String(), c.UpdatedOn.String(), c.Remarks,
	}
}

// --- Expenditure ---

func expenditureFromRow(i int, row []string) Expenditure {
	return Expenditure{
		Row:         i,
		ID:          strings.ToUpper(cell(row, expID)),
		Date:        readDate(cell(row, expDate)),
		Category:    cell(row, expCategory),
		Description: cell(row, expDescription),
		Amount:      readAmount(cell(row, expAmount)),
		PaidTo:      cell(row, expPaidTo),
		Mode:        cell(row, expMode),
		RecordedBy:  cell(row, expRecordedBy),
	}
}

func (e Expenditure) row() []string {
	return []string{
		e.ID, e.Date.String(), e.Category, e.Description, FormatAmount(e.Amount),
		e.PaidTo, e.Mode, e.RecordedBy,
	}
}

// --- Notifications ---

func notificationFromRow(i int, row []string) Notification {
	return Notification{
		Row:       i,
		ID:        strings.ToUpper(cell(row, ntfID)),
		Title:     cell(row, ntfTitle),
		Message:   cell(row, ntfMessage),
		PostedOn:  readDate(cell(row, ntfPosted)),
		ExpiresOn: readDate(cell(row, ntfExpires)),
		PostedBy:  cell(row, ntfPostedBy),
	}
}

func (n Notification) row() []string {
	return []string{n.ID, n.Title, n.Message, n.PostedOn.String(), n.ExpiresOn.String(), n.PostedBy}
}
