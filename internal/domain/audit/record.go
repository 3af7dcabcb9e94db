// Package audit holds the reconciliation audit trail: one record per billing
// attempt, successful or not. The trail is non-authoritative; the export
// ledger and the billed flag remain the only sources of truth, and writes
// are best-effort: losing an audit record never fails the operation it
// describes.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Operation identifies which billing path an attempt took
type Operation string

const (
	OperationCreateInvoice Operation = "CREATE_INVOICE"
	OperationRecordExport  Operation = "RECORD_EXPORT"
)

// Outcome classifies the result of an attempt
type Outcome string

const (
	OutcomeSucceeded Outcome = "SUCCEEDED"
	OutcomeFailed    Outcome = "FAILED"
)

// Record describes one reconciliation attempt
type Record struct {
	ID            uuid.UUID  `json:"id" bson:"_id"`
	Operation     Operation  `json:"operation" bson:"operation"`
	CustomerID    uuid.UUID  `json:"customer_id" bson:"customer_id"`
	PeriodStart   time.Time  `json:"period_start" bson:"period_start"`
	PeriodEnd     time.Time  `json:"period_end" bson:"period_end"`
	EntryCount    int        `json:"entry_count" bson:"entry_count"`
	ExportID      *uuid.UUID `json:"export_id,omitempty" bson:"export_id,omitempty"`
	Outcome       Outcome    `json:"outcome" bson:"outcome"`
	FailureReason string     `json:"failure_reason,omitempty" bson:"failure_reason,omitempty"`
	CorrelationID string     `json:"correlation_id,omitempty" bson:"correlation_id,omitempty"`
	CreatedAt     time.Time  `json:"created_at" bson:"created_at"`
}

// Repository defines audit trail persistence operations
type Repository interface {
	Create(ctx context.Context, record *Record) error
	ListRecent(ctx context.Context, limit int) ([]*Record, error)
	ListByCustomer(ctx context.Context, customerID uuid.UUID, limit int) ([]*Record, error)
}
