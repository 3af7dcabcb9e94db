package reconciliation

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/mspdesk/billing-engine/internal/domain/audit"
	"github.com/mspdesk/billing-engine/internal/domain/billing"
	"github.com/mspdesk/billing-engine/internal/domain/customer"
	"github.com/mspdesk/billing-engine/internal/domain/entry"
	"github.com/mspdesk/billing-engine/internal/domain/outbox"
	"github.com/mspdesk/billing-engine/internal/platform/accounting"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

type MockEntryStore struct {
	mock.Mock
}

func (m *MockEntryStore) Create(ctx context.Context, e *entry.TimeEntry) error {
	args := m.Called(ctx, e)
	return args.Error(0)
}

func (m *MockEntryStore) GetByID(ctx context.Context, id uuid.UUID) (*entry.TimeEntry, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entry.TimeEntry), args.Error(1)
}

func (m *MockEntryStore) ListUnbilled(ctx context.Context, start, end time.Time) ([]*entry.TimeEntry, error) {
	args := m.Called(ctx, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entry.TimeEntry), args.Error(1)
}

func (m *MockEntryStore) ListUnbilledForCustomer(ctx context.Context, customerID uuid.UUID, start, end time.Time) ([]*entry.TimeEntry, error) {
	args := m.Called(ctx, customerID, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entry.TimeEntry), args.Error(1)
}

func (m *MockEntryStore) MarkBilled(ctx context.Context, ids []uuid.UUID, customerID, exportID uuid.UUID) (int64, error) {
	args := m.Called(ctx, ids, customerID, exportID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockEntryStore) WithTx(tx pgx.Tx) entry.Store {
	m.Called(tx)
	return m
}

type MockDirectory struct {
	mock.Mock
}

func (m *MockDirectory) Resolve(ctx context.Context, customerID uuid.UUID) (*customer.BillingProfile, error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*customer.BillingProfile), args.Error(1)
}

func (m *MockDirectory) ResolveAll(ctx context.Context, customerIDs []uuid.UUID) (map[uuid.UUID]*customer.BillingProfile, error) {
	args := m.Called(ctx, customerIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[uuid.UUID]*customer.BillingProfile), args.Error(1)
}

type MockLedgerRepository struct {
	mock.Mock
}

func (m *MockLedgerRepository) Create(ctx context.Context, record *billing.ExportRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockLedgerRepository) GetByInvoiceID(ctx context.Context, invoiceID string) (*billing.ExportRecord, error) {
	args := m.Called(ctx, invoiceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.ExportRecord), args.Error(1)
}

func (m *MockLedgerRepository) GetByID(ctx context.Context, id uuid.UUID) (*billing.ExportRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.ExportRecord), args.Error(1)
}

func (m *MockLedgerRepository) ListRecent(ctx context.Context, limit int) ([]*billing.ExportRecord, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*billing.ExportRecord), args.Error(1)
}

func (m *MockLedgerRepository) ListRefreshable(ctx context.Context, limit int) ([]*billing.ExportRecord, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*billing.ExportRecord), args.Error(1)
}

func (m *MockLedgerRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status billing.ExportStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockLedgerRepository) WithTx(tx pgx.Tx) billing.LedgerRepository {
	m.Called(tx)
	return m
}

type MockOutboxRepository struct {
	mock.Mock
}

func (m *MockOutboxRepository) Create(ctx context.Context, message *outbox.Message) error {
	args := m.Called(ctx, message)
	return args.Error(0)
}

func (m *MockOutboxRepository) GetPending(ctx context.Context, limit int) ([]*outbox.Message, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*outbox.Message), args.Error(1)
}

func (m *MockOutboxRepository) UpdateStatus(ctx context.Context, id int64, status outbox.Status) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockOutboxRepository) IncrementAttempts(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockOutboxRepository) WithTx(tx pgx.Tx) outbox.Repository {
	m.Called(tx)
	return m
}

type MockAccountingGateway struct {
	mock.Mock
}

func (m *MockAccountingGateway) CreateInvoice(ctx context.Context, customerExternalID string, items []accounting.LineItem, period billing.Period) (string, error) {
	args := m.Called(ctx, customerExternalID, items, period)
	return args.String(0), args.Error(1)
}

func (m *MockAccountingGateway) InvoiceStatus(ctx context.Context, invoiceID string) (billing.ExportStatus, error) {
	args := m.Called(ctx, invoiceID)
	return args.Get(0).(billing.ExportStatus), args.Error(1)
}

type MockAuditRepository struct {
	mock.Mock
}

func (m *MockAuditRepository) Create(ctx context.Context, record *audit.Record) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockAuditRepository) ListRecent(ctx context.Context, limit int) ([]*audit.Record, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*audit.Record), args.Error(1)
}

func (m *MockAuditRepository) ListByCustomer(ctx context.Context, customerID uuid.UUID, limit int) ([]*audit.Record, error) {
	args := m.Called(ctx, customerID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*audit.Record), args.Error(1)
}

type MockExportLedger struct {
	mock.Mock
}

func (m *MockExportLedger) Record(ctx context.Context, group *billing.Group, entryIDs []uuid.UUID, period billing.Period, invoiceID *string) (*billing.ExportRecord, error) {
	args := m.Called(ctx, group, entryIDs, period, invoiceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.ExportRecord), args.Error(1)
}

func (m *MockExportLedger) ListRecent(ctx context.Context, limit int) ([]*billing.ExportRecord, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*billing.ExportRecord), args.Error(1)
}

// fakeTxRunner executes the transaction body directly with a nil tx. The
// repository mocks accept the nil tx through WithTx and return themselves.
type fakeTxRunner struct{}

func (fakeTxRunner) ExecuteTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	return fn(nil)
}

func ratePtr(v int64) *decimal.Decimal {
	d := decimal.NewFromInt(v)
	return &d
}

func strPtr(s string) *string {
	return &s
}
