package billing

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidRange indicates a billing period whose start is after its end.
// Bad input; never retried.
type ErrInvalidRange struct {
	Start time.Time
	End   time.Time
}

func (e ErrInvalidRange) Error() string {
	return fmt.Sprintf("invalid billing period: start %s is after end %s",
		e.Start.Format(DateLayout), e.End.Format(DateLayout))
}

// ErrNotLinked indicates the customer cannot be auto-invoiced: it has no
// external accounting link, no hourly rate, or both. The operator must link
// the customer (or use the manual export path) before retrying.
type ErrNotLinked struct {
	CustomerID uuid.UUID
}

func (e ErrNotLinked) Error() string {
	return "customer not eligible for automated invoicing: " + e.CustomerID.String()
}

// ErrAlreadyBilled indicates at least one targeted entry was claimed by a
// concurrent billing operation since the group was aggregated. The caller
// must re-aggregate before retrying; no partial effect took place.
type ErrAlreadyBilled struct {
	CustomerID uuid.UUID
	Requested  int
	Claimed    int
}

func (e ErrAlreadyBilled) Error() string {
	return fmt.Sprintf("entries already billed for customer %s: %d of %d targeted entries were claimed concurrently",
		e.CustomerID.String(), e.Requested-e.Claimed, e.Requested)
}

// ErrExternalService wraps a failure of the external accounting system.
// Transient; the whole operation is safe to retry since no local state was
// mutated before the external call.
type ErrExternalService struct {
	Err error
}

func (e ErrExternalService) Error() string {
	return "accounting system call failed: " + e.Err.Error()
}

func (e ErrExternalService) Unwrap() error {
	return e.Err
}

// ErrPersistence wraps a failed local write. Retry is idempotent: the record
// path keys on the invoice id when present and re-checks the billed flag
// otherwise.
type ErrPersistence struct {
	Err error
}

func (e ErrPersistence) Error() string {
	return "billing persistence failed: " + e.Err.Error()
}

func (e ErrPersistence) Unwrap() error {
	return e.Err
}

// ErrExportNotFound indicates a missing export record
type ErrExportNotFound struct {
	ExportID uuid.UUID
}

func (e ErrExportNotFound) Error() string {
	return "export record not found: " + e.ExportID.String()
}
