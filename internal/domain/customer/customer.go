package customer

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BillingProfile is the directory's view of a customer for billing purposes.
// AccountingID is the customer's identifier in the external accounting system,
// nil when the customer has not been linked. HourlyRate is nil when no rate
// has been configured.
type BillingProfile struct {
	CustomerID   uuid.UUID        `json:"customer_id"`
	DisplayName  string           `json:"display_name"`
	AccountingID *string          `json:"accounting_id,omitempty"`
	HourlyRate   *decimal.Decimal `json:"hourly_rate,omitempty"`
}

// Linked reports whether the customer is linked to the external accounting system
func (p *BillingProfile) Linked() bool {
	return p.AccountingID != nil && *p.AccountingID != ""
}

// Directory resolves local customers to their billing profiles
type Directory interface {
	// Resolve returns the billing profile for a customer.
	// Returns ErrCustomerNotFound if the customer doesn't exist.
	Resolve(ctx context.Context, customerID uuid.UUID) (*BillingProfile, error)

	// ResolveAll resolves a batch of customers in one round trip. Unknown
	// ids are simply absent from the result map.
	ResolveAll(ctx context.Context, customerIDs []uuid.UUID) (map[uuid.UUID]*BillingProfile, error)
}

// ErrCustomerNotFound indicates a missing customer
type ErrCustomerNotFound struct {
	CustomerID uuid.UUID
}

func (e ErrCustomerNotFound) Error() string {
	return "customer not found: " + e.CustomerID.String()
}
