package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// MemberStatus is column G of the Members tab.
type MemberStatus string

const (
	StatusActive  MemberStatus = "Active"
	StatusVacated MemberStatus = "Vacated"
)

// Member is one row of the Members tab.
type Member struct {
	Row          int             `json:"-"`
	FlatNo       string          `json:"flat_no"`
	Name         string          `json:"name"`
	Phone        string          `json:"phone,omitempty"`
	Email        string          `json:"email,omitempty"`
	PasswordHash string          `json:"-"`
	Role         string          `json:"role"`
	Status       MemberStatus    `json:"status"`
	JoinedOn     Date            `json:"joined_on"`
	VacatedOn    Date            `json:"vacated_on"`
	MonthlyFee   decimal.Decimal `json:"monthly_fee"`
}

// Active reports whether the membership is current.
func (m Member) Active() bool { return m.Status == StatusActive }

// NewMember is the input to AddMember.
type NewMember struct {
	FlatNo     string          `json:"flat_no" validate:"required,max=20"`
	Name       string          `json:"name" validate:"required,max=100"`
	Phone      string          `json:"phone" validate:"omitempty,max=20"`
	Email      string          `json:"email" validate:"omitempty,email"`
	Password   string          `json:"password" validate:"required,min=8"`
	Role       string          `json:"role" validate:"omitempty,oneof=resident admin"`
	JoinedOn   Date            `json:"joined_on"`
	MonthlyFee decimal.Decimal `json:"monthly_fee"`
}

// MemberFilter narrows ListMembers. A blank Status matches all rows.
type MemberFilter struct {
	Status MemberStatus
}

// PaymentMode is column F of the Maintenance tab.
type PaymentMode string

const (
	ModeCash     PaymentMode = "Cash"
	ModeCheque   PaymentMode = "Cheque"
	ModeTransfer PaymentMode = "Bank Transfer"
	ModeOnline   PaymentMode = "Online"
)

// ParsePaymentMode normalises a typed mode; blank means cash.
func ParsePaymentMode(s string) (PaymentMode, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "cash":
		return ModeCash, true
	case "cheque", "check":
		return ModeCheque, true
	case "bank transfer", "transfer", "neft", "imps", "upi":
		return ModeTransfer, true
	case "online":
		return ModeOnline, true
	}
	return "", false
}

// Payment is one row of the Maintenance tab: one flat, one month.
type Payment struct {
	Row       int             `json:"-"`
	ReceiptNo string          `json:"receipt_no"`
	FlatNo    string          `json:"flat_no"`
	Month     Month           `json:"month"`
	Amount    decimal.Decimal `json:"amount"`
	PaidOn    Date            `json:"paid_on"`
	Mode      PaymentMode     `json:"mode"`
	OrderID   string          `json:"order_id,omitempty"`
	PaymentID string          `json:"payment_id,omitempty"`
	Remarks   string          `json:"remarks,omitempty"`
}

// Confirmed reports whether the row has a receipt number.
func (p Payment) Confirmed() bool { return p.ReceiptNo != "" }

// Pending reports whether the row is an online payment awaiting confirmation.
func (p Payment) Pending() bool { return p.ReceiptNo == "" && p.OrderID != "" }

// CashPayment is the input to RecordCashPayment. One row and receipt is
// written per month. A zero Amount charges the member's monthly fee.
type CashPayment struct {
	FlatNo  string          `json:"flat_no" validate:"required"`
	Months  []Month         `json:"months" validate:"required,min=1,max=24"`
	Amount  decimal.Decimal `json:"amount"`
	Mode    string          `json:"mode"`
	PaidOn  Date            `json:"paid_on"`
	Remarks string          `json:"remarks" validate:"max=200"`
}

// OnlineOrder is returned by CreateOnlineOrder for the browser checkout.
type OnlineOrder struct {
	OrderID  string          `json:"order_id"`
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
	KeyID    string          `json:"key_id,omitempty"`
	FlatNo   string          `json:"flat_no"`
	Months   []Month         `json:"months"`
}

// Confirmation is what the checkout posts back after payment.
type Confirmation struct {
	OrderID   string `json:"order_id" validate:"required"`
	PaymentID string `json:"payment_id" validate:"required"`
	Signature string `json:"signature" validate:"required"`
}

// ConfirmResult lists the rows of a confirmed order.
type ConfirmResult struct {
	OrderID          string    `json:"order_id"`
	Payments         []Payment `json:"payments"`
	AlreadyConfirmed bool      `json:"already_confirmed"`
}

// Receipt is the printable view of a confirmed payment.
type Receipt struct {
	Payment
	MemberName  string `json:"member_name"`
	Association string `json:"association"`
	Currency    string `json:"currency"`
}

// ComplaintKind is column C of the Complaints tab.
type ComplaintKind string

const (
	KindComplaint  ComplaintKind = "Complaint"
	KindSuggestion ComplaintKind = "Suggestion"
)

// ParseComplaintKind normalises a kind; blank means complaint.
func ParseComplaintKind(s string) (ComplaintKind, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "complaint":
		return KindComplaint, true
	case "suggestion":
		return KindSuggestion, true
	}
	return "", false
}

// ComplaintStatus is column F of the Complaints tab.
type ComplaintStatus string

const (
	ComplaintOpen       ComplaintStatus = "Open"
	ComplaintInProgress ComplaintStatus = "InProgress"
	ComplaintResolved   ComplaintStatus = "Resolved"
	ComplaintClosed     ComplaintStatus = "Closed"
)

// ParseComplaintStatus accepts "in progress", "In-Progress" and the like.
func ParseComplaintStatus(s string) (ComplaintStatus, bool) {
	key := strings.NewReplacer(" ", "", "-", "", "_", "").Replace(strings.ToLower(strings.TrimSpace(s)))
	switch key {
	case "open", "":
		return ComplaintOpen, true
	case "inprogress":
		return ComplaintInProgress, true
	case "resolved":
		return ComplaintResolved, true
	case "closed":
		return ComplaintClosed, true
	}
	return "", false
}

// Complaint is one row of the Complaints tab.
type Complaint struct {
	Row         int             `json:"-"`
	ID          string          `json:"id"`
	FlatNo      string          `json:"flat_no"`
	Kind        ComplaintKind   `json:"kind"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	Status      ComplaintStatus `json:"status"`
	RaisedOn    Date            `json:"raised_on"`
	UpdatedOn   Date            `json:"updated_on"`
	Remarks     string          `json:"remarks,omitempty"`
}

// NewComplaint is the input to RaiseComplaint.
type NewComplaint struct {
	FlatNo      string `json:"-"`
	Kind        string `json:"kind" validate:"omitempty,oneof=complaint suggestion Complaint Suggestion"`
	Category    string `json:"category" validate:"required,max=50"`
	Description string `json:"description" validate:"required,max=2000"`
}

// ComplaintFilter narrows ListComplaints. Zero fields match everything.
type ComplaintFilter struct {
	FlatNo string
	Status ComplaintStatus
	Kind   ComplaintKind
}

// Expenditure is one row of the Expenditure tab.
type Expenditure struct {
	Row         int             `json:"-"`
	ID          string          `json:"id"`
	Date        Date            `json:"date"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	PaidTo      string          `json:"paid_to"`
	Mode        string          `json:"mode"`
	RecordedBy  string          `json:"recorded_by"`
}

// NewExpenditure is the input to RecordExpenditure.
type NewExpenditure struct {
	Date        Date            `json:"date"`
	Category    string          `json:"category" validate:"required,max=50"`
	Description string          `json:"description" validate:"required,max=500"`
	Amount      decimal.Decimal `json:"amount"`
	PaidTo      string          `json:"paid_to" validate:"max=100"`
	Mode        string          `json:"mode" validate:"max=30"`
	RecordedBy  string          `json:"-"`
}

// Notification is one row of the Notifications tab.
type Notification struct {
	Row       int    `json:"-"`
	ID        string `json:"id"`
	Title     string `json:"title"`
	Message   string `json:"message"`
	PostedOn  Date   `json:"posted_on"`
	ExpiresOn Date   `json:"expires_on"`
	PostedBy  string `json:"posted_by"`
}

// NewNotification is the input to PostNotification. A zero ExpiresOn
// never expires.
type NewNotification struct {
	Title     string `json:"title" validate:"required,max=120"`
	Message   string `json:"message" validate:"required,max=4000"`
	ExpiresOn Date   `json:"expires_on"`
	PostedBy  string `json:"-"`
}

// SummaryMonth is one line of the collection/expenditure summary.
type SummaryMonth struct {
	Month       Month           `json:"month"`
	Collected   decimal.Decimal `json:"collected"`
	Payers      int             `json:"payers"`
	Expenditure decimal.Decimal `json:"expenditure"`
	Net         decimal.Decimal `json:"net"`
	Balance     decimal.Decimal `json:"balance"`
}

// Summary is the result of the Summary report.
type Summary struct {
	From             Month           `json:"from"`
	To               Month           `json:"to"`
	Opening          decimal.Decimal `json:"opening_balance"`
	Months           []SummaryMonth  `json:"months"`
	TotalCollected   decimal.Decimal `json:"total_collected"`
	TotalExpenditure decimal.Decimal `json:"total_expenditure"`
	Net              decimal.Decimal `json:"net"`
	Closing          decimal.Decimal `json:"closing_balance"`
}

// Defaulter is an active member with unpaid months.
type Defaulter struct {
	FlatNo       string          `json:"flat_no"`
	Name         string          `json:"name"`
	Phone        string          `json:"phone,omitempty"`
	Email        string          `json:"email,omitempty"`
	MonthlyFee   decimal.Decimal `json:"monthly_fee"`
	UnpaidMonths []Month         `json:"unpaid_months"`
	AmountDue    decimal.Decimal `json:"amount_due"`
}

// DefaulterReport is the result of the Defaulters report.
type DefaulterReport struct {
	Month      Month           `json:"month"`
	Defaulters []Defaulter     `json:"defaulters"`
	TotalDue   decimal.Decimal `json:"total_due"`
}
