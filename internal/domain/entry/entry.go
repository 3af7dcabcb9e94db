package entry

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Common errors
var (
	ErrNegativeDuration = errors.New("duration must not be negative")
	ErrMissingCustomer  = errors.New("entry must reference a customer")
)

// TimeEntry represents an atomic unit of billable work recorded by the
// time-tracking subsystem. An entry transitions exactly once from unbilled
// to billed; once billed, duration and customer reference are immutable.
type TimeEntry struct {
	ID              uuid.UUID  `json:"id"`
	CustomerID      uuid.UUID  `json:"customer_id"`
	DurationSeconds int64      `json:"duration_seconds"`
	Description     string     `json:"description,omitempty"`
	TicketID        *uuid.UUID `json:"ticket_id,omitempty"`
	OccurredAt      time.Time  `json:"occurred_at"`
	Billed          bool       `json:"billed"`
	ExportID        *uuid.UUID `json:"export_id,omitempty"` // Set exactly once, when billed
}

// NewTimeEntry creates an unbilled time entry with the given parameters
func NewTimeEntry(customerID uuid.UUID, durationSeconds int64, description string, occurredAt time.Time) (*TimeEntry, error) {
	if customerID == uuid.Nil {
		return nil, ErrMissingCustomer
	}
	if durationSeconds < 0 {
		return nil, ErrNegativeDuration
	}

	return &TimeEntry{
		ID:              uuid.New(),
		CustomerID:      customerID,
		DurationSeconds: durationSeconds,
		Description:     description,
		OccurredAt:      occurredAt,
		Billed:          false,
	}, nil
}
