package reconciliation

import (
	"context"

	"github.com/google/uuid"
	"github.com/mspdesk/billing-engine/internal/domain/billing"
	"github.com/mspdesk/billing-engine/internal/platform/accounting"
	"github.com/shopspring/decimal"
)

// AggregatorService builds the per-customer read model of unbilled work
type AggregatorService interface {
	// Aggregate groups unbilled entries by customer for the period and
	// classifies each group's eligibility. Pure read; safe to call
	// concurrently and repeatedly. Groups come back in stable display-name
	// order so repeated calls without intervening mutation are deterministic.
	Aggregate(ctx context.Context, period billing.Period) ([]*billing.Group, error)
}

// ExportLedgerService is the single write path for billing results. Record
// persists the export record, flips the billed flags and stages the billing
// event as one atomic unit.
type ExportLedgerService interface {
	// Record bills the group's entries. A non-nil invoiceID makes the call
	// idempotent: a retry that finds an existing record with the same
	// invoice id is a no-op success. Fails with ErrAlreadyBilled, without
	// partial effect, if any targeted entry was claimed concurrently.
	Record(ctx context.Context, group *billing.Group, entryIDs []uuid.UUID, period billing.Period, invoiceID *string) (*billing.ExportRecord, error)

	// ListRecent returns export records newest-first, bounded by limit
	ListRecent(ctx context.Context, limit int) ([]*billing.ExportRecord, error)
}

// CoordinatorService orchestrates invoice creation and manual export against
// the aggregator's output and the export ledger.
type CoordinatorService interface {
	// CreateInvoice creates an external invoice for the selected entries and
	// records the result. Fails with ErrNotLinked unless the customer has
	// both an accounting link and an hourly rate. No local state changes on
	// external failure; the whole call is safely retryable.
	CreateInvoice(ctx context.Context, customerID uuid.UUID, entryIDs []uuid.UUID, period billing.Period) (*billing.ExportRecord, error)

	// RecordManualExport marks the selected entries as billed without
	// touching the external system. Allowed regardless of eligibility;
	// this is the fallback path for unlinked customers, and deliberately
	// remains available for linked ones. callerAmount is used only when the
	// customer has no configured rate.
	RecordManualExport(ctx context.Context, customerID uuid.UUID, entryIDs []uuid.UUID, period billing.Period, callerAmount *decimal.Decimal) (*billing.ExportRecord, error)
}

// AccountingGateway is the engine's view of the external accounting system
type AccountingGateway interface {
	CreateInvoice(ctx context.Context, customerExternalID string, items []accounting.LineItem, period billing.Period) (string, error)
	InvoiceStatus(ctx context.Context, invoiceID string) (billing.ExportStatus, error)
}
