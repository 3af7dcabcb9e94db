// Package reconciliation implements the billing reconciliation engine: the
// aggregator that projects unbilled work into per-customer billing groups,
// the export ledger that is the single write path for billing results, and
// the coordinator that drives invoice creation against the external
// accounting system. Correctness rests on one rule: the billed flag on a
// time entry transitions exactly once, at the write boundary, regardless of
// what any previously computed read model claimed.
package reconciliation

import (
	"context"
	"log/slog"
	"sort"

	"github.com/google/uuid"
	"github.com/mspdesk/billing-engine/internal/domain/billing"
	"github.com/mspdesk/billing-engine/internal/domain/customer"
	"github.com/mspdesk/billing-engine/internal/domain/entry"
)

// AggregatorImpl implements the AggregatorService interface
type AggregatorImpl struct {
	entries   entry.Store
	directory customer.Directory
	logger    *slog.Logger
}

// NewAggregator creates a new aggregator
func NewAggregator(logger *slog.Logger, entries entry.Store, directory customer.Directory) AggregatorService {
	return &AggregatorImpl{
		entries:   entries,
		directory: directory,
		logger:    logger,
	}
}

// Aggregate groups unbilled entries by customer for the period. Customers
// with zero unbilled entries never appear; a customer whose rate was removed
// mid-period still appears, with a nil amount and manual-only eligibility.
func (a *AggregatorImpl) Aggregate(ctx context.Context, period billing.Period) ([]*billing.Group, error) {
	if period.Start.After(period.End) {
		return nil, billing.ErrInvalidRange{Start: period.Start, End: period.End}
	}

	entries, err := a.entries.ListUnbilled(ctx, period.Start, period.EndExclusive())
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}

	// Group by customer, preserving entry order within each group
	byCustomer := make(map[uuid.UUID][]*entry.TimeEntry)
	var customerIDs []uuid.UUID
	for _, e := range entries {
		if _, seen := byCustomer[e.CustomerID]; !seen {
			customerIDs = append(customerIDs, e.CustomerID)
		}
		byCustomer[e.CustomerID] = append(byCustomer[e.CustomerID], e)
	}

	profiles, err := a.directory.ResolveAll(ctx, customerIDs)
	if err != nil {
		return nil, err
	}

	groups := make([]*billing.Group, 0, len(customerIDs))
	for _, customerID := range customerIDs {
		groups = append(groups, buildGroup(customerID, profiles[customerID], byCustomer[customerID]))
	}

	// Stable order: the read model drives a selection UI that must not
	// reorder itself between renders.
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].CustomerName != groups[j].CustomerName {
			return groups[i].CustomerName < groups[j].CustomerName
		}
		return groups[i].CustomerID.String() < groups[j].CustomerID.String()
	})

	a.logger.Debug("aggregated unbilled entries",
		"period_start", period.Start.Format(billing.DateLayout),
		"period_end", period.End.Format(billing.DateLayout),
		"entries", len(entries),
		"groups", len(groups),
	)

	return groups, nil
}

// buildGroup assembles the billing group for one customer's unbilled entries.
// profile may be nil when the directory no longer knows the customer; the
// group still appears (the work is real) but is restricted to manual export.
func buildGroup(customerID uuid.UUID, profile *customer.BillingProfile, entries []*entry.TimeEntry) *billing.Group {
	group := &billing.Group{
		CustomerID:   customerID,
		CustomerName: customerID.String(),
		EntryIDs:     make([]uuid.UUID, 0, len(entries)),
		Eligibility:  billing.EligibilityManualOnly,
	}

	for _, e := range entries {
		group.EntryIDs = append(group.EntryIDs, e.ID)
		group.TotalSeconds += e.DurationSeconds
	}

	if profile == nil {
		return group
	}

	group.CustomerName = profile.DisplayName
	group.AccountingID = profile.AccountingID
	group.HourlyRate = profile.HourlyRate

	// Total amount is nil iff no rate is configured; never zero-by-default
	if profile.HourlyRate != nil {
		amount := billing.HoursToAmount(group.TotalSeconds, *profile.HourlyRate)
		group.TotalAmount = &amount
	}

	if profile.Linked() && profile.HourlyRate != nil {
		group.Eligibility = billing.EligibilityAutoInvoiceable
	}

	return group
}
