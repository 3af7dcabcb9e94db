package billing

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// LedgerRepository defines export record persistence operations. Only the
// export ledger service writes through this interface; records are
// append-only apart from status refresh.
type LedgerRepository interface {
	Create(ctx context.Context, record *ExportRecord) error

	// GetByInvoiceID returns the export record carrying the given external
	// invoice id, or nil if none exists. This is the idempotency lookup for
	// retried automated billing.
	GetByInvoiceID(ctx context.Context, invoiceID string) (*ExportRecord, error)

	GetByID(ctx context.Context, id uuid.UUID) (*ExportRecord, error)

	// ListRecent returns export records newest-first, bounded by limit
	ListRecent(ctx context.Context, limit int) ([]*ExportRecord, error)

	// ListRefreshable returns records whose external invoice status may
	// still change (invoice id present, not yet PAID).
	ListRefreshable(ctx context.Context, limit int) ([]*ExportRecord, error)

	// UpdateStatus records a status transition pulled from the external system
	UpdateStatus(ctx context.Context, id uuid.UUID, status ExportStatus) error

	WithTx(tx pgx.Tx) LedgerRepository
}
