package core

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/JonMunkholm/rwa/internal/audit"
	"github.com/JonMunkholm/rwa/internal/auth"
	"github.com/JonMunkholm/rwa/internal/blob"
	"github.com/JonMunkholm/rwa/internal/notify"
	"github.com/JonMunkholm/rwa/internal/payment"
	"github.com/JonMunkholm/rwa/internal/sheets"
)

const testPassword = "correct-horse"

// fixture is a Service over an in-memory workbook with fake collaborators.
type fixture struct {
	svc    *Service
	store  *sheets.MemoryStore
	fake   *payment.Fake
	audit  *audit.Memory
	blobs  *blob.Memory
	mailer *notify.Console
	clock  *time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	clock := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	f := &fixture{
		store:  sheets.NewMemoryStore(),
		fake:   payment.NewFake("test-secret"),
		audit:  audit.NewMemory(),
		blobs:  blob.NewMemory(),
		mailer: notify.NewConsole(slog.New(slog.NewTextHandler(io.Discard, nil))),
		clock:  &clock,
	}
	f.svc = NewService(f.store, Options{
		Gateway: f.fake,
		Mailer:  f.mailer,
		Blobs:   f.blobs,
		Audit:   f.audit,
		Billing: Billing{
			StartMonth:      MustParseMonth("2024-01"),
			DefaultFee:      decimal.NewFromInt(1500),
			AssociationName: "Green Park RWA",
		},
		Now: func() time.Time { return *f.clock },
	})
	if err := f.svc.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	return f
}

// seedMembers writes a small Members tab:
//
//	A-101 Old Owner  vacated 2023-05-31
//	A-101 Asha Rao   active since 2023-06-01, admin, default fee
//	B-202 Bala K     active since 2024-02-10, fee 2000, no email
//	C-303 Chitra     vacated 2024-02-29
func (f *fixture) seedMembers(t *testing.T) {
	t.Helper()
	hash, err := auth.HashPassword(testPassword)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	def := MustGet(TabMembers)
	f.store.Seed(def.Name, def.Columns,
		[]string{"A-101", "Old Owner", "", "", hash, "resident", "Vacated", "01/01/2020", "31/05/2023", ""},
		[]string{"A-101", "Asha Rao", "98450 00001", "asha@example.com", hash, "admin", "Active", "01/06/2023", "", ""},
		[]string{"b-202", "Bala K", "98450 00002", "", hash, "", "Active", "10/02/2024", "", "2,000"},
		[]string{"C-303", "Chitra", "", "chitra@example.com", hash, "", "Vacated", "01/01/2022", "29/02/2024", ""},
	)
}

// seedLedger writes Maintenance and Expenditure rows used by the report tests.
func (f *fixture) seedLedger() {
	pay := MustGet(TabMaintenance)
	f.store.Seed(pay.Name, pay.Columns,
		[]string{"RCPT-1", "A-101", "2023-12", "1500", "10/12/2023", "Cash", "", "", ""},
		[]string{"RCPT-2", "A-101", "2024-01", "1,500", "05/01/2024", "Cash", "", "", ""},
		[]string{"RCPT-3", "B-202", "Jan-2024", "2000", "06/01/2024", "Cheque", "", "", ""},
		[]string{"RCPT-4", "A-101", "2024-02", "1500.00", "03/02/2024", "Online", "order_a", "pay_a", ""},
		[]string{"", "A-101", "2024-03", "1500.00", "", "Online", "order_b", "", ""},
	)
	exp := MustGet(TabExpenditure)
	f.store.Seed(exp.Name, exp.Columns,
		[]string{"EXP-1", "20/12/2023", "Security", "Guard salary", "500", "Guard", "Cash", "A-101"},
		[]string{"EXP-2", "15/01/2024", "Electricity", "Common area", "1,200", "BESCOM", "Online", "A-101"},
		[]string{"EXP-3", "05/02/2024", "Cleaning", "Supplies", "300", "Shop", "Cash", "A-101"},
		[]string{"EXP-4", "25/02/2024", "Repairs", "Gate hinge", "700", "Welder", "Cash", "A-101"},
	)
}

func (f *fixture) auditCount(t *testing.T, action audit.Action) int {
	t.Helper()
	entries, err := f.audit.List(context.Background(), audit.Filter{Action: action})
	if err != nil {
		t.Fatalf("audit List: %v", err)
	}
	return len(entries)
}

func months(s ...string) []Month {
	out := make([]Month, len(s))
	for i, v := range s {
		out[i] = MustParseMonth(v)
	}
	return out
}

// ----------------------------------------------------------------------------
// Members
// ----------------------------------------------------------------------------

func TestLogin(t *testing.T) {
	f := newFixture(t)
	f.seedMembers(t)
	ctx := context.Background()

	m, err := f.svc.Login(ctx, " a-101 ", testPassword)
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if m.Name != "Asha Rao" || m.Role != auth.RoleAdmin {
		t.Errorf("Login returned %+v, want the active admin row", m)
	}

	tests := []struct {
		name     string
		flat     string
		password string
		want     error
	}{
		{"wrong password", "A-101", "nope-nope", ErrInvalidCredentials},
		{"unknown flat", "Z-999", testPassword, ErrInvalidCredentials},
		{"vacated member", "C-303", testPassword, ErrInvalidCredentials},
		{"vacated member wrong password", "C-303", "nope-nope", ErrInvalidCredentials},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.svc.Login(ctx, tt.flat, tt.password); !errors.Is(err, tt.want) {
				t.Errorf("Login error = %v, want %v", err, tt.want)
			}
		})
	}

	if got := f.auditCount(t, audit.ActionLogin); got != 1 {
		t.Errorf("login audit entries = %d, want 1", got)
	}
}

func TestListMembers(t *testing.T) {
	f := newFixture(t)
	f.seedMembers(t)

	all, err := f.svc.ListMembers(context.Background(), MemberFilter{})
	if err != nil {
		t.Fatalf("ListMembers: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("len = %d, want 4", len(all))
	}
	if all[0].Name != "Asha Rao" {
		t.Errorf("active row should sort before vacated row of the same flat, got %q", all[0].Name)
	}

	active, _ := f.svc.ListMembers(context.Background(), MemberFilter{Status: StatusActive})
	if len(active) != 2 {
		t.Errorf("active members = %d, want 2", len(active))
	}
	if !active[1].MonthlyFee.Equal(decimal.NewFromInt(2000)) {
		t.Errorf("B-202 fee = %s, want 2000", active[1].MonthlyFee)
	}
}

func TestAddMember(t *testing.T) {
	f := newFixture(t)
	f.seedMembers(t)
	ctx := context.Background()

	_, err := f.svc.AddMember(ctx, NewMember{FlatNo: "a-101", Name: "Someone", Password: testPassword})
	if !errors.Is(err, ErrFlatTaken) {
		t.Fatalf("duplicate active flat: err = %v, want ErrFlatTaken", err)
	}
	for _, flat := range []string{"A -101", "A- 101", "b - 202"} {
		if _, err := f.svc.AddMember(ctx, NewMember{FlatNo: flat, Name: "Someone", Password: testPassword}); !errors.Is(err, ErrFlatTaken) {
			t.Errorf("AddMember(%q): err = %v, want ErrFlatTaken", flat, err)
		}
	}

	_, err = f.svc.AddMember(ctx, NewMember{FlatNo: "D-404", Name: "Dev", Password: "short"})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("short password: err = %v, want ErrInvalidInput", err)
	}

	// A vacated flat takes a new occupant on a new row.
	m, err := f.svc.AddMember(ctx, NewMember{FlatNo: "c-303", Name: "New Tenant", Email: "tenant@example.com", Password: testPassword})
	if err != nil {
		t.Fatalf("AddMember: %v", err)
	}
	if m.FlatNo != "C-303" || m.Role != auth.RoleResident || m.JoinedOn.String() != "2024-03-15" {
		t.Errorf("member = %+v", m)
	}
	if !m.MonthlyFee.Equal(decimal.NewFromInt(1500)) {
		t.Errorf("fee = %s, want default 1500", m.MonthlyFee)
	}

	rows := f.store.Rows("Members")
	if len(rows) != 6 {
		t.Fatalf("Members rows = %d, want header + 5", len(rows))
	}
	last := rows[5]
	if last[memFlat] != "C-303" || last[memStatus] != "Active" || last[memPassword] == testPassword {
		t.Errorf("appended row = %v", last)
	}

	if _, err := f.svc.Login(ctx, "C-303", testPassword); err != nil {
		t.Errorf("new occupant cannot log in: %v", err)
	}
	if got := f.auditCount(t, audit.ActionMemberAdd); got != 1 {
		t.Errorf("member_add audit entries = %d, want 1", got)
	}
}

func TestVacateMember(t *testing.T) {
	f := newFixture(t)
	f.seedMembers(t)
	ctx := context.Background()

	m, err := f.svc.VacateMember(ctx, "B-202", Date{})
	if err != nil {
		t.Fatalf("VacateMember: %v", err)
	}
	if m.Status != StatusVacated || m.VacatedOn.String() != "2024-03-15" {
		t.Errorf("member = %+v", m)
	}
	row := f.store.Rows("Members")[3]
	if row[memStatus] != "Vacated" || row[memVacated] != "2024-03-15" || row[memJoined] != "10/02/2024" {
		t.Errorf("row = %v", row)
	}

	if _, err := f.svc.VacateMember(ctx, "B-202", Date{}); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("second vacate: err = %v, want ErrInvalidTransition", err)
	}
	if _, err := f.svc.VacateMember(ctx, "Z-1", Date{}); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown flat: err = %v, want ErrNotFound", err)
	}
	early, _ := ParseDate("2023-01-01")
	if _, err := f.svc.VacateMember(ctx, "A-101", early); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("vacate before joining: err = %v, want ErrInvalidInput", err)
	}
	if got := f.auditCount(t, audit.ActionMemberVacate); got != 1 {
		t.Errorf("vacate audit entries = %d, want 1", got)
	}
}

func TestChangePassword(t *testing.T) {
	f := newFixture(t)
	f.seedMembers(t)
	ctx := context.Background()

	if err := f.svc.ChangePassword(ctx, "A-101", "wrong-old", "brand-new-pass"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong old password: err = %v", err)
	}
	if err := f.svc.ChangePassword(ctx, "A-101", testPassword, "brand-new-pass"); err != nil {
		t.Fatalf("ChangePassword: %v", err)
	}
	if _, err := f.svc.Login(ctx, "A-101", "brand-new-pass"); err != nil {
		t.Errorf("login with new password: %v", err)
	}
	if _, err := f.svc.Login(ctx, "A-101", testPassword); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("old password still works")
	}
	if err := f.svc.ResetPassword(ctx, "B-202", "reset-by-admin"); err != nil {
		t.Fatalf("ResetPassword: %v", err)
	}
	if got := f.auditCount(t, audit.ActionPasswordReset); got != 1 {
		t.Errorf("password_reset audit entries = %d, want 1", got)
	}
}

// ----------------------------------------------------------------------------
// Payments
// ----------------------------------------------------------------------------

func TestRecordCashPayment(t *testing.T) {
	f := newFixture(t)
	f.seedMembers(t)
	ctx := context.Background()

	got, err := f.svc.RecordCashPayment(ctx, CashPayment{FlatNo: "a-101", Months: months("2024-02", "2024-01", "2024-02")})
	if err != nil {
		t.Fatalf("RecordCashPayment: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("payments = %d, want 2 (duplicates collapsed)", len(got))
	}
	if got[0].ReceiptNo != "RCPT-1" || got[0].Month.String() != "2024-01" || got[1].ReceiptNo != "RCPT-2" {
		t.Errorf("receipts = %s %s / %s %s", got[0].ReceiptNo, got[0].Month, got[1].ReceiptNo, got[1].Month)
	}
	if !got[0].Amount.Equal(decimal.NewFromInt(1500)) || got[0].Mode != ModeCash || got[0].PaidOn.String() != "2024-03-15" {
		t.Errorf("payment = %+v", got[0])
	}
	rows := f.store.Rows("Maintenance")
	if len(rows) != 3 || rows[1][payAmount] != "1500.00" {
		t.Errorf("Maintenance rows = %v", rows)
	}

	tests := []struct {
		name string
		cp   CashPayment
		want error
	}{
		{"month already paid", CashPayment{FlatNo: "A-101", Months: months("2024-02", "2024-03")}, ErrAlreadyPaid},
		{"before billing start", CashPayment{FlatNo: "A-101", Months: months("2023-12")}, ErrInvalidInput},
		{"no months", CashPayment{FlatNo: "A-101"}, ErrInvalidInput},
		{"online mode", CashPayment{FlatNo: "A-101", Months: months("2024-03"), Mode: "online"}, ErrInvalidInput},
		{"vacated flat", CashPayment{FlatNo: "C-303", Months: months("2024-03")}, ErrVacated},
		{"negative amount", CashPayment{FlatNo: "B-202", Months: months("2024-03"), Amount: decimal.NewFromInt(-5)}, ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.svc.RecordCashPayment(ctx, tt.cp); !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
	if n := len(f.store.Rows("Maintenance")); n != 3 {
		t.Errorf("failed payments wrote rows: %d rows", n)
	}

	cheque, err := f.svc.RecordCashPayment(ctx, CashPayment{
		FlatNo: "B-202", Months: months("2024-03"), Amount: decimal.NewFromInt(2000), Mode: "cheque", Remarks: "chq 1234",
	})
	if err != nil {
		t.Fatalf("cheque payment: %v", err)
	}
	if cheque[0].ReceiptNo != "RCPT-3" || cheque[0].Mode != ModeCheque {
		t.Errorf("cheque = %+v", cheque[0])
	}
	if got := f.auditCount(t, audit.ActionPaymentCash); got != 2 {
		t.Errorf("payment_cash audit entries = %d, want 2", got)
	}
}

func TestOnlinePaymentFlow(t *testing.T) {
	f := newFixture(t)
	f.seedMembers(t)
	ctx := context.Background()

	order, err := f.svc.CreateOnlineOrder(ctx, "B-202", months("2024-02", "2024-03"))
	if err != nil {
		t.Fatalf("CreateOnlineOrder: %v", err)
	}
	if !order.Amount.Equal(decimal.NewFromInt(4000)) || order.Currency != "INR" || order.OrderID == "" {
		t.Errorf("order = %+v", order)
	}
	pending, _ := f.svc.PendingOnlinePayments(ctx)
	if len(pending) != 2 {
		t.Fatalf("pending = %d, want 2", len(pending))
	}

	// Another flat's resident cannot confirm the order.
	asA := auth.WithPrincipal(ctx, auth.Principal{FlatNo: "A-101", Role: auth.RoleResident})
	sig := f.fake.Pay(order.OrderID, "pay_123")
	if _, err := f.svc.ConfirmOnlinePayment(asA, Confirmation{OrderID: order.OrderID, PaymentID: "pay_123", Signature: sig}); !errors.Is(err, ErrForbidden) {
		t.Errorf("foreign confirm: err = %v, want ErrForbidden", err)
	}

	bad := Confirmation{OrderID: order.OrderID, PaymentID: "pay_123", Signature: "deadbeef"}
	if _, err := f.svc.ConfirmOnlinePayment(ctx, bad); !errors.Is(err, ErrInvalidSignature) {
		t.Errorf("bad signature: err = %v, want ErrInvalidSignature", err)
	}

	asB := auth.WithPrincipal(ctx, auth.Principal{FlatNo: "B-202", Role: auth.RoleResident})
	conf := Confirmation{OrderID: order.OrderID, PaymentID: "pay_123", Signature: sig}
	res, err := f.svc.ConfirmOnlinePayment(asB, conf)
	if err != nil {
		t.Fatalf("ConfirmOnlinePayment: %v", err)
	}
	if res.AlreadyConfirmed || len(res.Payments) != 2 {
		t.Fatalf("result = %+v", res)
	}
	if res.Payments[0].ReceiptNo != "RCPT-1" || res.Payments[1].ReceiptNo != "RCPT-2" || res.Payments[0].PaymentID != "pay_123" {
		t.Errorf("payments = %+v", res.Payments)
	}

	again, err := f.svc.ConfirmOnlinePayment(asB, conf)
	if err != nil {
		t.Fatalf("second confirm: %v", err)
	}
	if !again.AlreadyConfirmed || again.Payments[0].ReceiptNo != "RCPT-1" {
		t.Errorf("second confirm = %+v, want the same receipts", again)
	}
	if pending, _ := f.svc.PendingOnlinePayments(ctx); len(pending) != 0 {
		t.Errorf("pending after confirm = %d", len(pending))
	}
	if _, err := f.svc.CreateOnlineOrder(ctx, "B-202", months("2024-03")); !errors.Is(err, ErrAlreadyPaid) {
		t.Errorf("order for paid month: err = %v, want ErrAlreadyPaid", err)
	}
	if got := f.auditCount(t, audit.ActionPaymentConfirm); got != 1 {
		t.Errorf("payment_confirm audit entries = %d, want 1", got)
	}
	byFlat, _ := f.audit.List(ctx, audit.Filter{Flat: "B-202"})
	if len(byFlat) != 2 || byFlat[0].Action != audit.ActionPaymentConfirm || byFlat[1].Action != audit.ActionPaymentOrder {
		t.Errorf("B-202 audit entries = %+v", byFlat)
	}

	unknown := Confirmation{OrderID: "order_nope", PaymentID: "pay_1", Signature: f.fake.Pay("order_nope", "pay_1")}
	if _, err := f.svc.ConfirmOnlinePayment(ctx, unknown); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown order: err = %v, want ErrNotFound", err)
	}
}

func TestConfirmOnlinePayment_MonthPaidMeanwhile(t *testing.T) {
	f := newFixture(t)
	f.seedMembers(t)
	ctx := context.Background()

	order, err := f.svc.CreateOnlineOrder(ctx, "A-101", months("2024-03"))
	if err != nil {
		t.Fatalf("CreateOnlineOrder: %v", err)
	}
	// A pending order does not block a cash payment for the same month.
	if _, err := f.svc.RecordCashPayment(ctx, CashPayment{FlatNo: "A-101", Months: months("2024-03")}); err != nil {
		t.Fatalf("RecordCashPayment: %v", err)
	}

	res, err := f.svc.ConfirmOnlinePayment(ctx, Confirmation{
		OrderID: order.OrderID, PaymentID: "pay_9", Signature: f.fake.Pay(order.OrderID, "pay_9"),
	})
	if err != nil {
		t.Fatalf("ConfirmOnlinePayment: %v", err)
	}
	if res.Payments[0].ReceiptNo != "RCPT-2" || res.Payments[0].Remarks != DuplicateRemark {
		t.Errorf("payment = %+v, want RCPT-2 marked duplicate", res.Payments[0])
	}
}

func TestOnlinePayments_NoGateway(t *testing.T) {
	svc := NewService(sheets.NewMemoryStore(), Options{})
	if _, err := svc.CreateOnlineOrder(context.Background(), "A-101", months("2024-03")); !errors.Is(err, ErrGatewayUnavailable) {
		t.Errorf("CreateOnlineOrder err = %v, want ErrGatewayUnavailable", err)
	}
	if _, err := svc.ConfirmOnlinePayment(context.Background(), Confirmation{}); !errors.Is(err, ErrGatewayUnavailable) {
		t.Errorf("ConfirmOnlinePayment err = %v, want ErrGatewayUnavailable", err)
	}
}

// downGateway fails every order, like a gateway that cannot be reached.
type downGateway struct{ *payment.Fake }

func (downGateway) Name() string { return "razorpay" }

func (downGateway) CreateOrder(ctx context.Context, req payment.OrderRequest) (payment.Order, error) {
	return payment.Order{}, errors.New("Post https://api.razorpay.com/v1/orders: connection refused")
}

func TestCreateOnlineOrder_GatewayFailure(t *testing.T) {
	f := newFixture(t)
	f.seedMembers(t)
	f.svc.gateway = downGateway{f.fake}

	_, err := f.svc.CreateOnlineOrder(context.Background(), "B-202", months("2024-03"))
	if !errors.Is(err, ErrGatewayFailed) {
		t.Fatalf("err = %v, want ErrGatewayFailed", err)
	}
	if msg := MapError(err); msg.Code != "PAY004" {
		t.Errorf("code = %s, want PAY004", msg.Code)
	}
	if rows := f.store.Rows("Maintenance"); len(rows) != 1 {
		t.Errorf("Maintenance rows = %d, want only the header", len(rows))
	}
}

func TestReceipts(t *testing.T) {
	f := newFixture(t)
	f.seedMembers(t)
	f.seedLedger()
	ctx := context.Background()

	r, err := f.svc.GetReceipt(ctx, "rcpt-2")
	if err != nil {
		t.Fatalf("GetReceipt: %v", err)
	}
	if r.MemberName != "Asha Rao" || r.Association != "Green Park RWA" || r.Month.String() != "2024-01" {
		t.Errorf("receipt = %+v", r)
	}
	if _, err := f.svc.GetReceipt(ctx, "RCPT-99"); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown receipt: err = %v", err)
	}

	if err := f.svc.ArchiveReceipt(ctx, "RCPT-2", []byte("<p>first</p>")); err != nil {
		t.Fatalf("ArchiveReceipt: %v", err)
	}
	if err := f.svc.ArchiveReceipt(ctx, "RCPT-2", []byte("<p>second</p>")); err != nil {
		t.Fatalf("second ArchiveReceipt: %v", err)
	}
	_, rc, err := f.blobs.Get(ctx, ReceiptKey("RCPT-2"))
	if err != nil {
		t.Fatalf("Get archived receipt: %v", err)
	}
	defer rc.Close()
	body, _ := io.ReadAll(rc)
	if string(body) != "<p>first</p>" {
		t.Errorf("archived = %q, want the first rendering", body)
	}

	list, _ := f.svc.ListPayments(ctx, "a-101")
	if len(list) != 4 || list[0].Month.String() != "2023-12" {
		t.Errorf("ListPayments(A-101) = %d rows", len(list))
	}
}

// ----------------------------------------------------------------------------
// Complaints
// ----------------------------------------------------------------------------

func TestComplaints(t *testing.T) {
	f := newFixture(t)
	f.seedMembers(t)
	ctx := context.Background()

	c, err := f.svc.RaiseComplaint(ctx, NewComplaint{FlatNo: "B-202", Category: "Water", Description: "Low pressure"})
	if err != nil {
		t.Fatalf("RaiseComplaint: %v", err)
	}
	if c.ID != "CMP-1" || c.Status != ComplaintOpen || c.Kind != KindComplaint {
		t.Errorf("complaint = %+v", c)
	}
	s, err := f.svc.RaiseComplaint(ctx, NewComplaint{FlatNo: "A-101", Kind: "suggestion", Category: "Garden", Description: "More benches"})
	if err != nil {
		t.Fatalf("RaiseComplaint suggestion: %v", err)
	}
	if s.ID != "CMP-2" || s.Kind != KindSuggestion {
		t.Errorf("suggestion = %+v", s)
	}
	if _, err := f.svc.RaiseComplaint(ctx, NewComplaint{FlatNo: "C-303", Category: "x", Description: "y"}); !errors.Is(err, ErrVacated) {
		t.Errorf("vacated member complaint: err = %v", err)
	}

	mine, _ := f.svc.ListComplaints(ctx, ComplaintFilter{FlatNo: "b-202"})
	if len(mine) != 1 || mine[0].ID != "CMP-1" {
		t.Errorf("ListComplaints(B-202) = %+v", mine)
	}
	all, _ := f.svc.ListComplaints(ctx, ComplaintFilter{})
	if len(all) != 2 || all[0].ID != "CMP-2" {
		t.Errorf("ListComplaints should be newest first: %+v", all)
	}

	steps := []struct {
		to   ComplaintStatus
		want error
	}{
		{ComplaintResolved, ErrInvalidTransition},
		{ComplaintInProgress, nil},
		{ComplaintOpen, ErrInvalidTransition},
		{ComplaintResolved, nil},
		{ComplaintClosed, nil},
		{ComplaintInProgress, ErrInvalidTransition},
	}
	for _, st := range steps {
		_, err := f.svc.UpdateComplaintStatus(ctx, "cmp-1", st.to, "step "+string(st.to))
		if !errors.Is(err, st.want) {
			t.Errorf("-> %s: err = %v, want %v", st.to, err, st.want)
		}
	}
	row := f.store.Rows("Complaints")[1]
	if row[cmpStatus] != "Closed" || row[cmpRemarks] != "step InProgress; step Resolved; step Closed" {
		t.Errorf("row = %v", row)
	}

	if _, err := f.svc.UpdateComplaintStatus(ctx, "CMP-2", ComplaintClosed, ""); err != nil {
		t.Errorf("Open -> Closed should be allowed: %v", err)
	}
	if _, err := f.svc.UpdateComplaintStatus(ctx, "CMP-9", ComplaintClosed, ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown complaint: err = %v", err)
	}
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to ComplaintStatus
		want     bool
	}{
		{ComplaintOpen, ComplaintInProgress, true},
		{ComplaintOpen, ComplaintClosed, true},
		{ComplaintOpen, ComplaintResolved, false},
		{ComplaintInProgress, ComplaintResolved, true},
		{ComplaintResolved, ComplaintClosed, true},
		{ComplaintClosed, ComplaintOpen, false},
		{ComplaintOpen, ComplaintOpen, false},
	}
	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

// ----------------------------------------------------------------------------
// Expenditure and notifications
// ----------------------------------------------------------------------------

func TestExpenditure(t *testing.T) {
	f := newFixture(t)
	f.seedLedger()
	ctx := ContextWithActor(context.Background(), "A-101")

	on, _ := ParseDate("10/03/2024")
	e, err := f.svc.RecordExpenditure(ctx, NewExpenditure{
		Date: on, Category: "Lift", Description: "AMC", Amount: decimal.RequireFromString("2500.456"), PaidTo: "Otis",
	})
	if err != nil {
		t.Fatalf("RecordExpenditure: %v", err)
	}
	if e.ID != "EXP-5" || e.RecordedBy != "A-101" || e.Amount.String() != "2500.46" {
		t.Errorf("expenditure = %+v", e)
	}

	future, _ := ParseDate("2024-04-01")
	bad := []NewExpenditure{
		{Category: "x", Description: "y"},
		{Category: "x", Description: "y", Amount: decimal.NewFromInt(-1)},
		{Category: "", Description: "y", Amount: decimal.NewFromInt(1)},
		{Date: future, Category: "x", Description: "y", Amount: decimal.NewFromInt(1)},
	}
	for i, ne := range bad {
		if _, err := f.svc.RecordExpenditure(ctx, ne); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("case %d: err = %v, want ErrInvalidInput", i, err)
		}
	}

	feb, _ := f.svc.ListExpenditures(ctx, MustParseMonth("2024-02"))
	if len(feb) != 2 || feb[0].ID != "EXP-3" {
		t.Errorf("February = %+v", feb)
	}
	all, _ := f.svc.ListExpenditures(ctx, Month{})
	if len(all) != 5 {
		t.Errorf("all = %d, want 5", len(all))
	}
}

func TestNotifications(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	expires, _ := ParseDate("2024-03-20")
	n, err := f.svc.PostNotification(ctx, NewNotification{Title: "Water cut", Message: "Tank cleaning on Sunday", ExpiresOn: expires, PostedBy: "A-101"})
	if err != nil {
		t.Fatalf("PostNotification: %v", err)
	}
	if n.ID != "NTF-1" || n.PostedOn.String() != "2024-03-15" {
		t.Errorf("notification = %+v", n)
	}
	if _, err := f.svc.PostNotification(ctx, NewNotification{Title: "AGM", Message: "Sunday 10am"}); err != nil {
		t.Fatalf("PostNotification without expiry: %v", err)
	}
	past, _ := ParseDate("2024-03-15")
	if _, err := f.svc.PostNotification(ctx, NewNotification{Title: "x", Message: "y", ExpiresOn: past}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expiry today: err = %v, want ErrInvalidInput", err)
	}

	active, _ := f.svc.ListNotifications(ctx, Date{}, false)
	if len(active) != 2 || active[0].Title != "AGM" {
		t.Errorf("active = %+v", active)
	}
	later, _ := ParseDate("2024-03-20")
	if got, _ := f.svc.ListNotifications(ctx, later, false); len(got) != 1 {
		t.Errorf("on expiry day = %d notices, want 1", len(got))
	}

	if _, err := f.svc.ExpireNotification(ctx, "ntf-2", Date{}); err != nil {
		t.Fatalf("ExpireNotification: %v", err)
	}
	if got, _ := f.svc.ListNotifications(ctx, Date{}, false); len(got) != 1 || got[0].ID != "NTF-1" {
		t.Errorf("after expire = %+v", got)
	}
	if got, _ := f.svc.ListNotifications(ctx, Date{}, true); len(got) != 2 {
		t.Errorf("includeExpired = %d, want 2", len(got))
	}
	if _, err := f.svc.ExpireNotification(ctx, "NTF-7", Date{}); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown notice: err = %v", err)
	}
}

// ----------------------------------------------------------------------------
// Reports
// ----------------------------------------------------------------------------

func TestSummary(t *testing.T) {
	f := newFixture(t)
	f.seedLedger()
	ctx := context.Background()

	s, err := f.svc.Summary(ctx, MustParseMonth("2024-01"), MustParseMonth("2024-03"))
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}

	dec := func(v string) decimal.Decimal { return decimal.RequireFromString(v) }
	if !s.Opening.Equal(dec("1000")) {
		t.Errorf("Opening = %s, want 1000", s.Opening)
	}
	want := []struct {
		collected, expenditure, net, balance string
		payers                               int
	}{
		{"3500", "1200", "2300", "3300", 2},
		{"1500", "1000", "500", "3800", 1},
		{"0", "0", "0", "3800", 0},
	}
	if len(s.Months) != len(want) {
		t.Fatalf("months = %d, want %d", len(s.Months), len(want))
	}
	for i, w := range want {
		m := s.Months[i]
		if !m.Collected.Equal(dec(w.collected)) || !m.Expenditure.Equal(dec(w.expenditure)) ||
			!m.Net.Equal(dec(w.net)) || !m.Balance.Equal(dec(w.balance)) || m.Payers != w.payers {
			t.Errorf("%s = %+v, want %+v", m.Month, m, w)
		}
	}
	if !s.TotalCollected.Equal(dec("5000")) || !s.TotalExpenditure.Equal(dec("2200")) ||
		!s.Net.Equal(dec("2800")) || !s.Closing.Equal(dec("3800")) {
		t.Errorf("totals = %s %s %s %s", s.TotalCollected, s.TotalExpenditure, s.Net, s.Closing)
	}

	if _, err := f.svc.Summary(ctx, MustParseMonth("2024-03"), MustParseMonth("2024-01")); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("reversed range: err = %v", err)
	}
	if _, err := f.svc.Summary(ctx, MustParseMonth("2020-01"), MustParseMonth("2024-03")); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("range too long: err = %v", err)
	}
}

func TestSummary_DefaultWindow(t *testing.T) {
	ctx := context.Background()

	t.Run("starts at billing start", func(t *testing.T) {
		f := newFixture(t)
		s, err := f.svc.Summary(ctx, Month{}, Month{})
		if err != nil {
			t.Fatalf("Summary: %v", err)
		}
		if s.From.String() != "2024-01" || s.To.String() != "2024-03" {
			t.Errorf("window = %s..%s, want 2024-01..2024-03", s.From, s.To)
		}
	})

	t.Run("long running association is capped", func(t *testing.T) {
		f := newFixture(t)
		f.seedLedger()
		f.svc.billing.StartMonth = MustParseMonth("2020-01")
		*f.clock = time.Date(2024, 6, 15, 9, 0, 0, 0, time.UTC)

		s, err := f.svc.Summary(ctx, Month{}, Month{})
		if err != nil {
			t.Fatalf("Summary: %v", err)
		}
		if s.From.String() != "2021-07" || s.To.String() != "2024-06" {
			t.Errorf("window = %s..%s, want 2021-07..2024-06", s.From, s.To)
		}
		if len(s.Months) != 36 {
			t.Errorf("months = %d, want 36", len(s.Months))
		}
	})

	t.Run("explicit long range rejected", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.Summary(ctx, MustParseMonth("2020-01"), MustParseMonth("2024-06"))
		if !errors.Is(err, ErrInvalidInput) {
			t.Errorf("err = %v, want ErrInvalidInput", err)
		}
	})
}

func TestDefaulters(t *testing.T) {
	f := newFixture(t)
	f.seedMembers(t)
	f.seedLedger()
	ctx := context.Background()

	r, err := f.svc.Defaulters(ctx, MustParseMonth("2024-03"))
	if err != nil {
		t.Fatalf("Defaulters: %v", err)
	}
	if len(r.Defaulters) != 2 {
		t.Fatalf("defaulters = %+v", r.Defaulters)
	}
	a, b := r.Defaulters[0], r.Defaulters[1]
	if a.FlatNo != "A-101" || len(a.UnpaidMonths) != 1 || a.UnpaidMonths[0].String() != "2024-03" || !a.AmountDue.Equal(decimal.NewFromInt(1500)) {
		t.Errorf("A-101 = %+v", a)
	}
	// Billing for B-202 starts the month they joined.
	if b.FlatNo != "B-202" || len(b.UnpaidMonths) != 2 || b.UnpaidMonths[0].String() != "2024-02" || !b.AmountDue.Equal(decimal.NewFromInt(4000)) {
		t.Errorf("B-202 = %+v", b)
	}
	if !r.TotalDue.Equal(decimal.NewFromInt(5500)) {
		t.Errorf("TotalDue = %s, want 5500", r.TotalDue)
	}

	jan, _ := f.svc.Defaulters(ctx, MustParseMonth("2024-01"))
	if len(jan.Defaulters) != 0 {
		t.Errorf("January defaulters = %+v, want none", jan.Defaulters)
	}
}

// ----------------------------------------------------------------------------
// Jobs
// ----------------------------------------------------------------------------

func TestSendDuesReminders(t *testing.T) {
	f := newFixture(t)
	f.seedMembers(t)
	f.seedLedger()
	ctx := context.Background()

	sent, err := f.svc.SendDuesReminders(ctx, 20)
	if err != nil || sent != 0 {
		t.Fatalf("before reminder day: sent=%d err=%v", sent, err)
	}
	if got, _ := f.svc.ListNotifications(ctx, Date{}, true); len(got) != 0 {
		t.Fatalf("notice posted before reminder day")
	}

	sent, err = f.svc.SendDuesReminders(ctx, 10)
	if err != nil {
		t.Fatalf("SendDuesReminders: %v", err)
	}
	if sent != 1 {
		t.Errorf("sent = %d, want 1 (only A-101 has an email)", sent)
	}
	msgs := f.mailer.Sent()
	if len(msgs) != 1 || msgs[0].To[0].Address != "asha@example.com" {
		t.Fatalf("mail = %+v", msgs)
	}
	notices, _ := f.svc.ListNotifications(ctx, Date{}, false)
	if len(notices) != 1 || notices[0].Title != ReminderTitle(MustParseMonth("2024-03")) {
		t.Errorf("notices = %+v", notices)
	}

	sent, err = f.svc.SendDuesReminders(ctx, 10)
	if err != nil || sent != 0 {
		t.Errorf("second run: sent=%d err=%v, want no resend", sent, err)
	}
	if got := len(f.mailer.Sent()); got != 1 {
		t.Errorf("emails after second run = %d, want 1", got)
	}
}

func TestBackupWorkbook(t *testing.T) {
	wb, err := sheets.OpenWorkbook(filepath.Join(t.TempDir(), "rwa.xlsx"))
	if err != nil {
		t.Fatalf("OpenWorkbook: %v", err)
	}
	defer wb.Close()

	clock := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	blobs := blob.NewMemory()
	svc := NewService(wb, Options{Blobs: blobs, Now: func() time.Time { return clock }})
	ctx := context.Background()
	if err := svc.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}

	var keys []string
	for i := 0; i < 3; i++ {
		key, err := svc.BackupWorkbook(ctx, 2)
		if err != nil {
			t.Fatalf("BackupWorkbook: %v", err)
		}
		keys = append(keys, key)
		clock = clock.Add(time.Hour)
	}
	if keys[0] != "backups/20240315T100000Z.xlsx" {
		t.Errorf("key = %q", keys[0])
	}

	infos, _ := blobs.List(ctx, BackupPrefix)
	if len(infos) != 2 || infos[0].Key != keys[1] || infos[1].Key != keys[2] {
		t.Errorf("kept backups = %+v, want the newest two", infos)
	}

	// The in-memory store has nothing to snapshot.
	mem := NewService(sheets.NewMemoryStore(), Options{Blobs: blobs})
	if key, err := mem.BackupWorkbook(ctx, 2); key != "" || err != nil {
		t.Errorf("memory backup = %q, %v; want skipped", key, err)
	}
}
