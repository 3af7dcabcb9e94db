package reconciliation

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/mspdesk/billing-engine/internal/domain/billing"
	"github.com/mspdesk/billing-engine/internal/domain/entry"
	"github.com/mspdesk/billing-engine/internal/domain/outbox"
)

// TxRunner runs a function inside a database transaction. Satisfied by
// persistence.PostgresDB.
type TxRunner interface {
	ExecuteTx(ctx context.Context, fn func(tx pgx.Tx) error) error
}

// ExportLedgerImpl implements the ExportLedgerService interface. It owns the
// only transaction in the engine: export record creation, the billed flag
// transition and the outbox write commit or roll back together.
type ExportLedgerImpl struct {
	db         TxRunner
	entries    entry.Store
	exports    billing.LedgerRepository
	outboxRepo outbox.Repository
	logger     *slog.Logger
}

// NewExportLedger creates a new export ledger service
func NewExportLedger(
	logger *slog.Logger,
	db TxRunner,
	entries entry.Store,
	exports billing.LedgerRepository,
	outboxRepo outbox.Repository,
) ExportLedgerService {
	return &ExportLedgerImpl{
		db:         db,
		entries:    entries,
		exports:    exports,
		outboxRepo: outboxRepo,
		logger:     logger,
	}
}

// Record bills the group's entries as one atomic unit.
//
// The operation re-checks, at write time, that every targeted entry is still
// unbilled and belongs to the group's customer: the UPDATE only touches rows
// with billed = false, so a concurrent writer that claimed any entry first
// makes the affected-row count come up short, and the whole batch rolls back
// with ErrAlreadyBilled. The aggregator's read model is advisory only; this
// is where correctness is enforced. At most one writer wins per entry.
func (l *ExportLedgerImpl) Record(ctx context.Context, group *billing.Group, entryIDs []uuid.UUID, period billing.Period, invoiceID *string) (*billing.ExportRecord, error) {
	if len(entryIDs) == 0 {
		return nil, errors.New("record requires at least one entry")
	}

	var record *billing.ExportRecord
	err := l.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		exports := l.exports.WithTx(tx)

		// Idempotency guard for the automated path: a retry after an
		// ambiguous failure finds the record created by the first attempt
		// and succeeds without touching anything.
		if invoiceID != nil {
			existing, err := exports.GetByInvoiceID(ctx, *invoiceID)
			if err != nil {
				return err
			}
			if existing != nil {
				l.logger.Info("export already recorded for invoice, treating as no-op success",
					"invoice_id", *invoiceID,
					"export_id", existing.ID.String(),
				)
				record = existing
				return nil
			}
		}

		rec := billing.NewExportRecord(group, entryIDs, period, group.TotalHours(), group.TotalAmount, invoiceID)
		if err := exports.Create(ctx, rec); err != nil {
			return err
		}

		updated, err := l.entries.WithTx(tx).MarkBilled(ctx, entryIDs, group.CustomerID, rec.ID)
		if err != nil {
			return err
		}
		if updated != int64(len(entryIDs)) {
			return billing.ErrAlreadyBilled{
				CustomerID: group.CustomerID,
				Requested:  len(entryIDs),
				Claimed:    int(updated),
			}
		}

		message, err := outbox.NewMessage(rec)
		if err != nil {
			return err
		}
		if err := l.outboxRepo.WithTx(tx).Create(ctx, message); err != nil {
			return err
		}

		record = rec
		return nil
	})
	if err != nil {
		var alreadyBilled billing.ErrAlreadyBilled
		if errors.As(err, &alreadyBilled) {
			l.logger.Warn("concurrent billing detected, batch rolled back",
				"customer_id", group.CustomerID.String(),
				"requested", alreadyBilled.Requested,
				"claimed", alreadyBilled.Claimed,
			)
			return nil, alreadyBilled
		}
		return nil, billing.ErrPersistence{Err: err}
	}

	l.logger.Info("recorded billing export",
		"export_id", record.ID.String(),
		"customer_id", record.CustomerID.String(),
		"entries", len(record.EntryIDs),
		"automated", invoiceID != nil,
	)

	return record, nil
}

// ListRecent returns export records newest-first, bounded by limit
func (l *ExportLedgerImpl) ListRecent(ctx context.Context, limit int) ([]*billing.ExportRecord, error) {
	return l.exports.ListRecent(ctx, limit)
}
