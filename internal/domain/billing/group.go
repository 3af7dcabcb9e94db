package billing

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Eligibility classifies how a billing group may be billed
type Eligibility string

const (
	// EligibilityAutoInvoiceable allows automated invoice creation against
	// the external accounting system. Requires both an accounting link and
	// a configured hourly rate.
	EligibilityAutoInvoiceable Eligibility = "AUTO_INVOICEABLE"

	// EligibilityManualOnly restricts the group to the manual export path
	EligibilityManualOnly Eligibility = "MANUAL_ONLY"
)

var secondsPerHour = decimal.NewFromInt(3600)

// Group is the aggregated view of one customer's unbilled entries within a
// period. It is derived read-side state: recomputed on every aggregation,
// never persisted, and advisory only. Correctness is enforced at the write
// boundary by the billed-flag guard.
type Group struct {
	CustomerID   uuid.UUID        `json:"customer_id"`
	CustomerName string           `json:"customer_name"`
	AccountingID *string          `json:"accounting_id,omitempty"`
	HourlyRate   *decimal.Decimal `json:"hourly_rate,omitempty"`
	EntryIDs     []uuid.UUID      `json:"entry_ids"`
	TotalSeconds int64            `json:"total_seconds"`
	TotalAmount  *decimal.Decimal `json:"total_amount,omitempty"` // nil iff HourlyRate is nil
	Eligibility  Eligibility      `json:"eligibility"`
}

// TotalHours converts the group's total duration to hours
func (g *Group) TotalHours() decimal.Decimal {
	return decimal.NewFromInt(g.TotalSeconds).Div(secondsPerHour)
}

// HoursToAmount computes totalSeconds/3600 × rate
func HoursToAmount(totalSeconds int64, rate decimal.Decimal) decimal.Decimal {
	return decimal.NewFromInt(totalSeconds).Div(secondsPerHour).Mul(rate)
}
