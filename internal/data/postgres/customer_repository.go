package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/mspdesk/billing-engine/internal/domain/customer"
	"github.com/mspdesk/billing-engine/internal/platform/persistence"
	"github.com/shopspring/decimal"
)

// CustomerRepository implements the customer.Directory interface for PostgreSQL
type CustomerRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewCustomerRepository creates a new PostgreSQL customer directory
func NewCustomerRepository(logger *slog.Logger, db *persistence.PostgresDB) customer.Directory {
	return &CustomerRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// Resolve returns the billing profile for a customer
func (r *CustomerRepository) Resolve(ctx context.Context, customerID uuid.UUID) (*customer.BillingProfile, error) {
	query := `
		SELECT id, display_name, accounting_id, hourly_rate
		FROM customers
		WHERE id = $1
	`

	profile, err := scanProfile(r.querier.QueryRow(ctx, query, customerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, customer.ErrCustomerNotFound{CustomerID: customerID}
		}
		r.logger.Error("Failed to resolve customer", "customer_id", customerID.String(), "error", err)
		return nil, fmt.Errorf("failed to resolve customer: %w", err)
	}

	return profile, nil
}

// ResolveAll resolves a batch of customers in one round trip. Unknown ids are
// simply absent from the result map.
func (r *CustomerRepository) ResolveAll(ctx context.Context, customerIDs []uuid.UUID) (map[uuid.UUID]*customer.BillingProfile, error) {
	query := `
		SELECT id, display_name, accounting_id, hourly_rate
		FROM customers
		WHERE id = ANY($1)
	`

	rows, err := r.querier.Query(ctx, query, customerIDs)
	if err != nil {
		r.logger.Error("Failed to resolve customers", "error", err)
		return nil, fmt.Errorf("failed to resolve customers: %w", err)
	}
	defer rows.Close()

	profiles := make(map[uuid.UUID]*customer.BillingProfile, len(customerIDs))
	for rows.Next() {
		profile, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan customer profile: %w", err)
		}
		profiles[profile.CustomerID] = profile
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over customer profiles: %w", err)
	}

	return profiles, nil
}

func scanProfile(row pgx.Row) (*customer.BillingProfile, error) {
	var (
		profile      customer.BillingProfile
		accountingID *string
		hourlyRate   decimal.NullDecimal
	)
	if err := row.Scan(&profile.CustomerID, &profile.DisplayName, &accountingID, &hourlyRate); err != nil {
		return nil, err
	}

	profile.AccountingID = accountingID
	if hourlyRate.Valid {
		rate := hourlyRate.Decimal
		profile.HourlyRate = &rate
	}

	return &profile, nil
}
