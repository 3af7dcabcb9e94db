package reconciliation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/mspdesk/billing-engine/internal/domain/audit"
	"github.com/mspdesk/billing-engine/internal/domain/billing"
	"github.com/mspdesk/billing-engine/internal/domain/customer"
	"github.com/mspdesk/billing-engine/internal/domain/entry"
	"github.com/mspdesk/billing-engine/internal/platform/accounting"
	"github.com/shopspring/decimal"
)

// recordTimeout bounds the local write that follows a successful external
// invoice creation. That write runs on a context detached from the request:
// once the invoice exists on the other side, abandoning the local record
// because the caller went away would leave entries billable twice.
const recordTimeout = 10 * time.Second

// CoordinatorImpl implements the CoordinatorService interface
type CoordinatorImpl struct {
	entries    entry.Store
	directory  customer.Directory
	ledger     ExportLedgerService
	accounting AccountingGateway
	auditTrail audit.Repository
	logger     *slog.Logger
}

// NewCoordinator creates a new reconciliation coordinator
func NewCoordinator(
	logger *slog.Logger,
	entries entry.Store,
	directory customer.Directory,
	ledger ExportLedgerService,
	gateway AccountingGateway,
	auditTrail audit.Repository,
) CoordinatorService {
	return &CoordinatorImpl{
		entries:    entries,
		directory:  directory,
		ledger:     ledger,
		accounting: gateway,
		auditTrail: auditTrail,
		logger:     logger,
	}
}

// CreateInvoice drives the automated billing path: eligibility check,
// external invoice creation, then the atomic local record. The external call
// happens strictly before any local mutation, so a failure there leaves
// nothing to clean up and the whole call can simply be retried.
func (c *CoordinatorImpl) CreateInvoice(ctx context.Context, customerID uuid.UUID, entryIDs []uuid.UUID, period billing.Period) (*billing.ExportRecord, error) {
	if err := validateSelection(customerID, entryIDs, period); err != nil {
		return nil, err
	}

	profile, err := c.directory.Resolve(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if !profile.Linked() || profile.HourlyRate == nil {
		c.audit(ctx, audit.OperationCreateInvoice, customerID, period, len(entryIDs), nil, billing.ErrNotLinked{CustomerID: customerID})
		return nil, billing.ErrNotLinked{CustomerID: customerID}
	}

	selected, err := c.loadSelection(ctx, customerID, entryIDs, period)
	if err != nil {
		c.audit(ctx, audit.OperationCreateInvoice, customerID, period, len(entryIDs), nil, err)
		return nil, err
	}
	group := buildGroup(customerID, profile, selected)

	items := lineItems(selected, *profile.HourlyRate)
	invoiceID, err := c.accounting.CreateInvoice(ctx, *profile.AccountingID, items, period)
	if err != nil {
		c.audit(ctx, audit.OperationCreateInvoice, customerID, period, len(entryIDs), nil, err)
		return nil, billing.ErrExternalService{Err: err}
	}

	// The invoice now exists externally. Finish the local record even if the
	// request context is cancelled while we were waiting on the API.
	recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()

	record, err := c.ledger.Record(recordCtx, group, group.EntryIDs, period, &invoiceID)
	if err != nil {
		c.logger.Error("invoice created externally but local record failed, retry will be idempotent",
			"invoice_id", invoiceID,
			"customer_id", customerID.String(),
			"error", err,
		)
		c.audit(recordCtx, audit.OperationCreateInvoice, customerID, period, len(entryIDs), nil, err)
		return nil, err
	}

	c.audit(recordCtx, audit.OperationCreateInvoice, customerID, period, len(entryIDs), &record.ID, nil)
	return record, nil
}

// RecordManualExport marks the selected entries as billed without any
// external call. This path stays available regardless of eligibility: it is
// the only option for unlinked customers and a deliberate escape hatch for
// linked ones.
func (c *CoordinatorImpl) RecordManualExport(ctx context.Context, customerID uuid.UUID, entryIDs []uuid.UUID, period billing.Period, callerAmount *decimal.Decimal) (*billing.ExportRecord, error) {
	if err := validateSelection(customerID, entryIDs, period); err != nil {
		return nil, err
	}

	profile, err := c.directory.Resolve(ctx, customerID)
	if err != nil {
		var notFound customer.ErrCustomerNotFound
		if !errors.As(err, &notFound) {
			return nil, err
		}
		// Unknown to the directory but the entries are real; proceed with
		// the same degraded group the aggregator would have produced.
		profile = nil
	}

	selected, err := c.loadSelection(ctx, customerID, entryIDs, period)
	if err != nil {
		c.audit(ctx, audit.OperationRecordExport, customerID, period, len(entryIDs), nil, err)
		return nil, err
	}
	group := buildGroup(customerID, profile, selected)

	// The configured rate always wins; the caller-supplied amount only
	// fills the gap when no rate exists.
	if group.TotalAmount == nil && callerAmount != nil {
		group.TotalAmount = callerAmount
	}

	record, err := c.ledger.Record(ctx, group, group.EntryIDs, period, nil)
	if err != nil {
		c.audit(ctx, audit.OperationRecordExport, customerID, period, len(entryIDs), nil, err)
		return nil, err
	}

	c.audit(ctx, audit.OperationRecordExport, customerID, period, len(entryIDs), &record.ID, nil)
	return record, nil
}

// loadSelection fetches the customer's unbilled entries for the period and
// narrows them to the requested ids. A requested id that is absent means the
// entry was billed since aggregation (or never belonged here); the selection
// fails as a lost race rather than silently billing a subset.
func (c *CoordinatorImpl) loadSelection(ctx context.Context, customerID uuid.UUID, entryIDs []uuid.UUID, period billing.Period) ([]*entry.TimeEntry, error) {
	available, err := c.entries.ListUnbilledForCustomer(ctx, customerID, period.Start, period.EndExclusive())
	if err != nil {
		return nil, billing.ErrPersistence{Err: err}
	}

	byID := make(map[uuid.UUID]*entry.TimeEntry, len(available))
	for _, e := range available {
		byID[e.ID] = e
	}

	selected := make([]*entry.TimeEntry, 0, len(entryIDs))
	for _, id := range entryIDs {
		e, ok := byID[id]
		if !ok {
			return nil, billing.ErrAlreadyBilled{
				CustomerID: customerID,
				Requested:  len(entryIDs),
				Claimed:    len(selected),
			}
		}
		selected = append(selected, e)
	}
	return selected, nil
}

// lineItems maps entries to invoice lines one to one
func lineItems(entries []*entry.TimeEntry, rate decimal.Decimal) []accounting.LineItem {
	items := make([]accounting.LineItem, 0, len(entries))
	for _, e := range entries {
		description := e.Description
		if description == "" {
			description = fmt.Sprintf("Support work on %s", e.OccurredAt.Format(billing.DateLayout))
		}
		hours := decimal.NewFromInt(e.DurationSeconds).Div(secondsPerHour)
		items = append(items, accounting.LineItem{
			Description: description,
			Hours:       hours,
			UnitPrice:   rate,
			Amount:      hours.Mul(rate),
		})
	}
	return items
}

var secondsPerHour = decimal.NewFromInt(3600)

func validateSelection(customerID uuid.UUID, entryIDs []uuid.UUID, period billing.Period) error {
	if customerID == uuid.Nil {
		return errors.New("customer id is required")
	}
	if len(entryIDs) == 0 {
		return errors.New("at least one entry must be selected")
	}
	if period.Start.After(period.End) {
		return billing.ErrInvalidRange{Start: period.Start, End: period.End}
	}
	return nil
}

// audit writes one trail record for the attempt. Best-effort: a failed audit
// write is logged and swallowed, never surfaced to the caller.
func (c *CoordinatorImpl) audit(ctx context.Context, op audit.Operation, customerID uuid.UUID, period billing.Period, entryCount int, exportID *uuid.UUID, opErr error) {
	record := &audit.Record{
		ID:            uuid.New(),
		Operation:     op,
		CustomerID:    customerID,
		PeriodStart:   period.Start,
		PeriodEnd:     period.End,
		EntryCount:    entryCount,
		ExportID:      exportID,
		Outcome:       audit.OutcomeSucceeded,
		CorrelationID: audit.CorrelationIDFromContext(ctx),
		CreatedAt:     time.Now().UTC(),
	}
	if opErr != nil {
		record.Outcome = audit.OutcomeFailed
		record.FailureReason = opErr.Error()
	}

	if err := c.auditTrail.Create(ctx, record); err != nil {
		c.logger.Warn("audit record write failed",
			"operation", string(op),
			"customer_id", customerID.String(),
			"error", err,
		)
	}
}
