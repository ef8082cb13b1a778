package core

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/JonMunkholm/rwa/internal/audit"
	"github.com/JonMunkholm/rwa/internal/blob"
	"github.com/JonMunkholm/rwa/internal/logging"
	"github.com/JonMunkholm/rwa/internal/metrics"
	"github.com/JonMunkholm/rwa/internal/notify"
	"github.com/JonMunkholm/rwa/internal/payment"
	"github.com/JonMunkholm/rwa/internal/sheets"
)

// Billing holds the association's fee settings.
type Billing struct {
	StartMonth      Month           // first billable month
	DefaultFee      decimal.Decimal // used when a member row has no fee
	AssociationName string
	Currency        string
}

// Options are the optional collaborators of a Service. Nil fields disable
// the feature that needs them.
type Options struct {
	Gateway   payment.Gateway
	Mailer    notify.Mailer
	Blobs     blob.Store
	Audit     audit.Store
	Metrics   *metrics.Metrics
	Billing   Billing
	MaxMonths int // longest Summary range (default 36)
	Now       func() time.Time
}

// Service provides the association's business operations on top of a
// spreadsheet store.
type Service struct {
	store     sheets.Store
	gateway   payment.Gateway
	mailer    notify.Mailer
	blobs     blob.Store
	audit     audit.Store
	metrics   *metrics.Metrics
	billing   Billing
	maxMonths int
	now       func() time.Time

	// One lock per tab serialises scan-then-write sequences in this process.
	locks map[string]*sync.Mutex
}

// NewService creates a new Service instance.
func NewService(store sheets.Store, opts Options) *Service {
	s := &Service{
		store:     store,
		gateway:   opts.Gateway,
		mailer:    opts.Mailer,
		blobs:     opts.Blobs,
		audit:     opts.Audit,
		metrics:   opts.Metrics,
		billing:   opts.Billing,
		maxMonths: opts.MaxMonths,
		now:       opts.Now,
		locks:     make(map[string]*sync.Mutex),
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.maxMonths <= 0 {
		s.maxMonths = 36
	}
	if s.billing.Currency == "" {
		s.billing.Currency = "INR"
	}
	if s.billing.StartMonth.IsZero() {
		s.billing.StartMonth = MonthOf(s.now())
	}
	for _, def := range All() {
		s.locks[def.Key] = &sync.Mutex{}
	}
	return s
}

// Billing returns the fee settings.
func (s *Service) Billing() Billing { return s.billing }

// Store returns the underlying spreadsheet store.
func (s *Service) Store() sheets.Store { return s.store }

// CallLimiterStatus returns the state of the spreadsheet call limiter.
// ok is false when the store is not wrapped in one.
func (s *Service) CallLimiterStatus() (status sheets.LimiterStatus, ok bool) {
	g, ok := s.store.(interface{ Limiter() *sheets.CallLimiter })
	if !ok || g.Limiter() == nil {
		return sheets.LimiterStatus{}, false
	}
	return g.Limiter().Status(), true
}

// ListTabs returns all tab definitions.
func (s *Service) ListTabs() []TabDefinition { return All() }

// EnsureSchema creates any missing tab with its header row.
func (s *Service) EnsureSchema(ctx context.Context) error {
	for _, def := range All() {
		if err := s.store.EnsureTab(ctx, def.Name, def.Columns); err != nil {
			return fmt.Errorf("ensure tab %s: %w", def.Name, err)
		}
	}
	return nil
}

// Ping checks the spreadsheet is reachable by reading the Members tab.
func (s *Service) Ping(ctx context.Context) error {
	_, _, err := s.readTab(ctx, TabMembers)
	return err
}

func (s *Service) today() Date { return NewDate(s.now()) }

// lock takes the tab's write lock and returns its unlock func.
func (s *Service) lock(key string) func() {
	mu := s.locks[key]
	mu.Lock()
	return mu.Unlock
}

func (s *Service) readTab(ctx context.Context, key string) ([][]string, TabDefinition, error) {
	def := MustGet(key)
	rows, err := s.store.Read(ctx, def.Name, def.Width())
	if err != nil {
		return nil, def, fmt.Errorf("read %s: %w", def.Name, err)
	}
	return rows, def, nil
}

func (s *Service) appendRows(ctx context.Context, def TabDefinition, rows ...[]string) error {
	if err := s.store.Append(ctx, def.Name, rows); err != nil {
		return fmt.Errorf("append %s: %w", def.Name, err)
	}
	return nil
}

func (s *Service) updateRow(ctx context.Context, def TabDefinition, row, col int, values []string) error {
	if err := s.store.Update(ctx, def.Name, row, col, values); err != nil {
		return fmt.Errorf("update %s row %d: %w", def.Name, row, err)
	}
	return nil
}

// logAudit writes an audit entry, filling actor, IP and user agent from
// ctx. Failures are logged and never fail the operation.
func (s *Service) logAudit(ctx context.Context, p audit.Params) {
	if s.audit == nil {
		return
	}
	if p.Actor == "" {
		p.Actor = GetActorFromContext(ctx)
	}
	p.IPAddress = GetIPAddressFromContext(ctx)
	p.UserAgent = GetUserAgentFromContext(ctx)
	if _, err := s.audit.Insert(ctx, p); err != nil {
		logging.FromContext(ctx).Warn("audit log write failed", "action", p.Action, "error", err)
	}
}

// AuditLog lists audit entries.
func (s *Service) AuditLog(ctx context.Context, f audit.Filter) ([]audit.Entry, error) {
	if s.audit == nil {
		return nil, nil
	}
	return s.audit.List(ctx, f)
}
