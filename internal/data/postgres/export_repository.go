package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/mspdesk/billing-engine/internal/domain/billing"
	"github.com/mspdesk/billing-engine/internal/platform/persistence"
	"github.com/shopspring/decimal"
)

// ExportRepository implements the billing.LedgerRepository interface for PostgreSQL
type ExportRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewExportRepository creates a new PostgreSQL export ledger repository
func NewExportRepository(logger *slog.Logger, db *persistence.PostgresDB) billing.LedgerRepository {
	return &ExportRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction. This keeps export record
// creation atomic with the billed flag transition on the covered entries.
func (r *ExportRepository) WithTx(tx pgx.Tx) billing.LedgerRepository {
	return &ExportRepository{
		querier: tx,
		logger:  r.logger,
	}
}

const exportColumns = `id, customer_id, period_start, period_end, entry_ids, total_hours, total_amount, invoice_id, status, created_at`

// Create stores a new export record. Records are append-only; there is no
// update path besides UpdateStatus.
func (r *ExportRepository) Create(ctx context.Context, record *billing.ExportRecord) error {
	query := `
		INSERT INTO export_records (id, customer_id, period_start, period_end, entry_ids, total_hours, total_amount, invoice_id, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.querier.Exec(ctx, query,
		record.ID,
		record.CustomerID,
		record.PeriodStart,
		record.PeriodEnd,
		record.EntryIDs,
		record.TotalHours,
		record.TotalAmount,
		record.InvoiceID,
		record.Status,
		record.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create export record", "export_id", record.ID.String(), "error", err)
		return fmt.Errorf("failed to create export record: %w", err)
	}

	return nil
}

// GetByInvoiceID retrieves the export record carrying the given external
// invoice id. Returns nil, nil when no record exists, enabling idempotent
// retries of the automated billing path.
func (r *ExportRepository) GetByInvoiceID(ctx context.Context, invoiceID string) (*billing.ExportRecord, error) {
	query := `
		SELECT ` + exportColumns + `
		FROM export_records
		WHERE invoice_id = $1
	`

	record, err := scanExport(r.querier.QueryRow(ctx, query, invoiceID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // No record found for this invoice id
		}
		r.logger.Error("Failed to get export record by invoice ID", "invoice_id", invoiceID, "error", err)
		return nil, fmt.Errorf("failed to get export record by invoice ID: %w", err)
	}

	return record, nil
}

// GetByID retrieves an export record by its ID
func (r *ExportRepository) GetByID(ctx context.Context, id uuid.UUID) (*billing.ExportRecord, error) {
	query := `
		SELECT ` + exportColumns + `
		FROM export_records
		WHERE id = $1
	`

	record, err := scanExport(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, billing.ErrExportNotFound{ExportID: id}
		}
		r.logger.Error("Failed to get export record", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get export record: %w", err)
	}

	return record, nil
}

// ListRecent retrieves export records newest-first, bounded by limit
func (r *ExportRepository) ListRecent(ctx context.Context, limit int) ([]*billing.ExportRecord, error) {
	query := `
		SELECT ` + exportColumns + `
		FROM export_records
		ORDER BY created_at DESC
		LIMIT $1
	`

	rows, err := r.querier.Query(ctx, query, limit)
	if err != nil {
		r.logger.Error("Failed to list recent export records", "error", err)
		return nil, fmt.Errorf("failed to list recent export records: %w", err)
	}
	defer rows.Close()

	return scanExports(rows)
}

// ListRefreshable retrieves records whose external invoice status may still
// change: an invoice id is present and the status has not reached PAID.
func (r *ExportRepository) ListRefreshable(ctx context.Context, limit int) ([]*billing.ExportRecord, error) {
	query := `
		SELECT ` + exportColumns + `
		FROM export_records
		WHERE invoice_id IS NOT NULL AND status NOT IN ($1, $2)
		ORDER BY created_at ASC
		LIMIT $3
	`

	rows, err := r.querier.Query(ctx, query, billing.ExportStatusPaid, billing.ExportStatusRecorded, limit)
	if err != nil {
		r.logger.Error("Failed to list refreshable export records", "error", err)
		return nil, fmt.Errorf("failed to list refreshable export records: %w", err)
	}
	defer rows.Close()

	return scanExports(rows)
}

// UpdateStatus records a status transition mirrored from the external system.
// Returns ErrExportNotFound if the record doesn't exist.
func (r *ExportRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status billing.ExportStatus) error {
	query := `
		UPDATE export_records
		SET status = $1
		WHERE id = $2
	`

	result, err := r.querier.Exec(ctx, query, status, id)
	if err != nil {
		r.logger.Error("Failed to update export record status", "id", id.String(), "status", string(status), "error", err)
		return fmt.Errorf("failed to update export record status: %w", err)
	}

	if result.RowsAffected() == 0 {
		return billing.ErrExportNotFound{ExportID: id}
	}

	return nil
}

func scanExport(row pgx.Row) (*billing.ExportRecord, error) {
	var (
		record      billing.ExportRecord
		totalAmount decimal.NullDecimal
		invoiceID   *string
	)
	err := row.Scan(
		&record.ID,
		&record.CustomerID,
		&record.PeriodStart,
		&record.PeriodEnd,
		&record.EntryIDs,
		&record.TotalHours,
		&totalAmount,
		&invoiceID,
		&record.Status,
		&record.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if totalAmount.Valid {
		amount := totalAmount.Decimal
		record.TotalAmount = &amount
	}
	record.InvoiceID = invoiceID

	return &record, nil
}

func scanExports(rows pgx.Rows) ([]*billing.ExportRecord, error) {
	var records []*billing.ExportRecord
	for rows.Next() {
		record, err := scanExport(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan export record: %w", err)
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over export records: %w", err)
	}

	return records, nil
}
