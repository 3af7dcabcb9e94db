// Package statusrefresh pulls invoice lifecycle transitions from the
// external accounting system into the export ledger. Status is the only
// mutable field on an export record and the external system is its only
// source; the refresher never pushes anything outward.
package statusrefresh

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mspdesk/billing-engine/internal/config"
	"github.com/mspdesk/billing-engine/internal/domain/billing"
	"github.com/mspdesk/billing-engine/internal/reconciliation"
	"github.com/panjf2000/ants/v2"
)

// Refresher periodically mirrors external invoice statuses onto export records
type Refresher struct {
	ledger     billing.LedgerRepository
	accounting reconciliation.AccountingGateway
	pool       *ants.Pool
	logger     *slog.Logger
	interval   time.Duration
	batchSize  int
}

// NewRefresher creates a status refresher backed by a bounded worker pool
func NewRefresher(
	cfg *config.StatusRefreshConfig,
	poolCfg *config.WorkerPoolConfig,
	ledger billing.LedgerRepository,
	gateway reconciliation.AccountingGateway,
	logger *slog.Logger,
) (*Refresher, error) {
	pool, err := ants.NewPool(poolCfg.Size)
	if err != nil {
		return nil, fmt.Errorf("failed to create status refresh worker pool: %w", err)
	}

	return &Refresher{
		ledger:     ledger,
		accounting: gateway,
		pool:       pool,
		logger:     logger,
		interval:   cfg.Interval,
		batchSize:  cfg.BatchSize,
	}, nil
}

// Start begins the refresh loop until context is canceled
func (r *Refresher) Start(ctx context.Context) {
	r.logger.Info("Starting invoice status refresher",
		"interval", r.interval.String(),
		"batch_size", r.batchSize,
		"workers", r.pool.Cap(),
	)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("Invoice status refresher stopping due to context cancellation.")
			return
		case <-ticker.C:
			if err := r.refreshBatch(ctx); err != nil {
				r.logger.Error("Error during invoice status refresh", "error", err)
			}
		}
	}
}

// Shutdown releases the worker pool
func (r *Refresher) Shutdown() {
	r.logger.Info("Shutting down status refresh worker pool", "running_workers", r.pool.Running())
	r.pool.Release()
}

// refreshBatch fans one batch of refreshable records out over the pool and
// waits for the batch to settle before the next tick.
func (r *Refresher) refreshBatch(ctx context.Context) error {
	records, err := r.ledger.ListRefreshable(ctx, r.batchSize)
	if err != nil {
		return fmt.Errorf("failed to list refreshable export records: %w", err)
	}
	if len(records) == 0 {
		return nil
	}

	r.logger.Debug("Refreshing invoice statuses", "count", len(records))

	var wg sync.WaitGroup
	for _, record := range records {
		record := record
		wg.Add(1)
		if err := r.pool.Submit(func() {
			defer wg.Done()
			r.refreshOne(ctx, record)
		}); err != nil {
			wg.Done()
			r.logger.Error("Failed to submit status refresh task", "export_id", record.ID.String(), "error", err)
		}
	}
	wg.Wait()

	return nil
}

func (r *Refresher) refreshOne(ctx context.Context, record *billing.ExportRecord) {
	status, err := r.accounting.InvoiceStatus(ctx, *record.InvoiceID)
	if err != nil {
		r.logger.Warn("Failed to fetch invoice status",
			"export_id", record.ID.String(),
			"invoice_id", *record.InvoiceID,
			"error", err,
		)
		return
	}

	if status == record.Status {
		return
	}

	if err := r.ledger.UpdateStatus(ctx, record.ID, status); err != nil {
		r.logger.Error("Failed to update export record status",
			"export_id", record.ID.String(),
			"from", string(record.Status),
			"to", string(status),
			"error", err,
		)
		return
	}

	r.logger.Info("Invoice status transitioned",
		"export_id", record.ID.String(),
		"invoice_id", *record.InvoiceID,
		"from", string(record.Status),
		"to", string(status),
	)
}
