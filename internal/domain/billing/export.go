package billing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ExportStatus tracks an export record through the external invoice
// lifecycle. Manual exports are created in the terminal RECORDED state.
type ExportStatus string

const (
	ExportStatusDraft    ExportStatus = "DRAFT"
	ExportStatusSent     ExportStatus = "SENT"
	ExportStatusPaid     ExportStatus = "PAID"
	ExportStatusRecorded ExportStatus = "RECORDED"
)

// ExportRecord is the durable, append-only proof that a set of entries has
// been billed. Records are never deleted or mutated after creation, except
// for status transitions mirrored from the external accounting system.
// Disjointness of covered entries across records is enforced by the billed
// flag transition, not by scanning the ledger.
type ExportRecord struct {
	ID          uuid.UUID        `json:"id"`
	CustomerID  uuid.UUID        `json:"customer_id"`
	PeriodStart time.Time        `json:"period_start"`
	PeriodEnd   time.Time        `json:"period_end"`
	EntryIDs    []uuid.UUID      `json:"entry_ids"`
	TotalHours  decimal.Decimal  `json:"total_hours"`
	TotalAmount *decimal.Decimal `json:"total_amount,omitempty"`
	InvoiceID   *string          `json:"invoice_id,omitempty"` // Present only for the auto-invoice path
	Status      ExportStatus     `json:"status"`
	CreatedAt   time.Time        `json:"created_at"`
}

// NewExportRecord creates an export record for a billed group. A non-nil
// invoiceID marks the automated path and starts the record in DRAFT;
// otherwise the record is created in the terminal RECORDED state.
func NewExportRecord(group *Group, entryIDs []uuid.UUID, period Period, totalHours decimal.Decimal, totalAmount *decimal.Decimal, invoiceID *string) *ExportRecord {
	status := ExportStatusRecorded
	if invoiceID != nil {
		status = ExportStatusDraft
	}

	return &ExportRecord{
		ID:          uuid.New(),
		CustomerID:  group.CustomerID,
		PeriodStart: period.Start,
		PeriodEnd:   period.End,
		EntryIDs:    entryIDs,
		TotalHours:  totalHours,
		TotalAmount: totalAmount,
		InvoiceID:   invoiceID,
		Status:      status,
		CreatedAt:   time.Now().UTC(),
	}
}

// Refreshable reports whether the record's status can still change from the
// external system's lifecycle.
func (r *ExportRecord) Refreshable() bool {
	return r.InvoiceID != nil && r.Status != ExportStatusPaid && r.Status != ExportStatusRecorded
}
