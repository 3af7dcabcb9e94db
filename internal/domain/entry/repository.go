package entry

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Store defines time entry persistence operations. The billed flag is the
// single source of truth for whether an entry is still available for billing.
type Store interface {
	Create(ctx context.Context, e *TimeEntry) error
	GetByID(ctx context.Context, id uuid.UUID) (*TimeEntry, error)

	// ListUnbilled returns unbilled entries whose occurred_at falls within
	// the half-open [start, end) range, ordered by occurrence. Callers
	// working with inclusive calendar periods pass the day after the period
	// end as the upper bound.
	ListUnbilled(ctx context.Context, start, end time.Time) ([]*TimeEntry, error)

	// ListUnbilledForCustomer narrows ListUnbilled to a single customer.
	ListUnbilledForCustomer(ctx context.Context, customerID uuid.UUID, start, end time.Time) ([]*TimeEntry, error)

	// MarkBilled flips billed = true and sets the export reference on every
	// entry in ids that is still unbilled and belongs to customerID,
	// returning the number of rows updated. Callers are responsible for
	// treating updated < len(ids) as a lost race: the statement itself never
	// touches an already billed row or another customer's entries.
	MarkBilled(ctx context.Context, ids []uuid.UUID, customerID, exportID uuid.UUID) (int64, error)

	WithTx(tx pgx.Tx) Store
}

// ErrEntryNotFound indicates a missing time entry
type ErrEntryNotFound struct {
	EntryID uuid.UUID
}

func (e ErrEntryNotFound) Error() string {
	return "time entry not found: " + e.EntryID.String()
}
