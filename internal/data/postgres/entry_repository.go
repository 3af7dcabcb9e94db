// Package postgres provides PostgreSQL implementations of the domain
// repositories. It handles all database operations while maintaining
// transaction safety and proper error handling for the billing engine.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/mspdesk/billing-engine/internal/domain/entry"
	"github.com/mspdesk/billing-engine/internal/platform/persistence"
)

// EntryRepository implements the entry.Store interface for PostgreSQL
type EntryRepository struct {
	querier persistence.Querier // Can be *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

// NewEntryRepository creates a new PostgreSQL time entry repository.
// It expects db.Pool() to satisfy persistence.Querier.
func NewEntryRepository(logger *slog.Logger, db *persistence.PostgresDB) entry.Store {
	return &EntryRepository{
		querier: db.Pool(), // Initialize with the pool
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction, allowing for atomic
// operations across multiple repository calls.
func (r *EntryRepository) WithTx(tx pgx.Tx) entry.Store {
	return &EntryRepository{
		querier: tx, // Use the transaction
		logger:  r.logger,
	}
}

// Create stores a new time entry in the database
func (r *EntryRepository) Create(ctx context.Context, e *entry.TimeEntry) error {
	query := `
		INSERT INTO time_entries (id, customer_id, duration_seconds, description, ticket_id, occurred_at, billed, export_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.querier.Exec(ctx, query,
		e.ID,
		e.CustomerID,
		e.DurationSeconds,
		e.Description,
		e.TicketID,
		e.OccurredAt,
		e.Billed,
		e.ExportID,
	)
	if err != nil {
		r.logger.Error("Failed to create time entry", "error", err)
		return fmt.Errorf("failed to create time entry: %w", err)
	}

	return nil
}

// GetByID retrieves a time entry by its ID
func (r *EntryRepository) GetByID(ctx context.Context, id uuid.UUID) (*entry.TimeEntry, error) {
	query := `
		SELECT id, customer_id, duration_seconds, description, ticket_id, occurred_at, billed, export_id
		FROM time_entries
		WHERE id = $1
	`

	var e entry.TimeEntry
	err := r.querier.QueryRow(ctx, query, id).Scan(
		&e.ID,
		&e.CustomerID,
		&e.DurationSeconds,
		&e.Description,
		&e.TicketID,
		&e.OccurredAt,
		&e.Billed,
		&e.ExportID,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, entry.ErrEntryNotFound{EntryID: id}
		}
		r.logger.Error("Failed to get time entry", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get time entry: %w", err)
	}

	return &e, nil
}

// ListUnbilled retrieves unbilled entries in the half-open [start, end) range
func (r *EntryRepository) ListUnbilled(ctx context.Context, start, end time.Time) ([]*entry.TimeEntry, error) {
	query := `
		SELECT id, customer_id, duration_seconds, description, ticket_id, occurred_at, billed, export_id
		FROM time_entries
		WHERE billed = false AND occurred_at >= $1 AND occurred_at < $2
		ORDER BY occurred_at ASC, id ASC
	`

	rows, err := r.querier.Query(ctx, query, start, end)
	if err != nil {
		r.logger.Error("Failed to list unbilled entries", "error", err)
		return nil, fmt.Errorf("failed to list unbilled entries: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// ListUnbilledForCustomer narrows ListUnbilled to a single customer
func (r *EntryRepository) ListUnbilledForCustomer(ctx context.Context, customerID uuid.UUID, start, end time.Time) ([]*entry.TimeEntry, error) {
	query := `
		SELECT id, customer_id, duration_seconds, description, ticket_id, occurred_at, billed, export_id
		FROM time_entries
		WHERE billed = false AND customer_id = $1 AND occurred_at >= $2 AND occurred_at < $3
		ORDER BY occurred_at ASC, id ASC
	`

	rows, err := r.querier.Query(ctx, query, customerID, start, end)
	if err != nil {
		r.logger.Error("Failed to list unbilled entries for customer", "customer_id", customerID.String(), "error", err)
		return nil, fmt.Errorf("failed to list unbilled entries for customer: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// MarkBilled atomically flips the billed flag and sets the export reference on
// every entry in ids that is still unbilled and belongs to customerID,
// returning the number of rows updated. The billed = false guard means an
// entry claimed by a concurrent billing operation is silently skipped rather
// than rebilled; callers compare the count against len(ids) to detect the
// lost race.
func (r *EntryRepository) MarkBilled(ctx context.Context, ids []uuid.UUID, customerID, exportID uuid.UUID) (int64, error) {
	query := `
		UPDATE time_entries
		SET billed = true, export_id = $1
		WHERE id = ANY($2) AND customer_id = $3 AND billed = false
	`

	result, err := r.querier.Exec(ctx, query, exportID, ids, customerID)
	if err != nil {
		r.logger.Error("Failed to mark entries billed", "export_id", exportID.String(), "error", err)
		return 0, fmt.Errorf("failed to mark entries billed: %w", err)
	}

	return result.RowsAffected(), nil
}

func scanEntries(rows pgx.Rows) ([]*entry.TimeEntry, error) {
	var entries []*entry.TimeEntry
	for rows.Next() {
		var e entry.TimeEntry
		err := rows.Scan(
			&e.ID,
			&e.CustomerID,
			&e.DurationSeconds,
			&e.Description,
			&e.TicketID,
			&e.OccurredAt,
			&e.Billed,
			&e.ExportID,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan time entry: %w", err)
		}
		entries = append(entries, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over time entries: %w", err)
	}

	return entries, nil
}
