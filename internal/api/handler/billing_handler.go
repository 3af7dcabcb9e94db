package handler

import (
	"errors"
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/mspdesk/billing-engine/internal/domain/billing"
	"github.com/mspdesk/billing-engine/internal/domain/customer"
	"github.com/mspdesk/billing-engine/internal/reconciliation"
)

// BillingHandler handles HTTP requests for billing operations
type BillingHandler struct {
	aggregator  reconciliation.AggregatorService
	ledger      reconciliation.ExportLedgerService
	coordinator reconciliation.CoordinatorService
	logger      *slog.Logger
}

// NewBillingHandler creates a new billing handler
func NewBillingHandler(
	logger *slog.Logger,
	aggregator reconciliation.AggregatorService,
	ledger reconciliation.ExportLedgerService,
	coordinator reconciliation.CoordinatorService,
) *BillingHandler {
	return &BillingHandler{
		aggregator:  aggregator,
		ledger:      ledger,
		coordinator: coordinator,
		logger:      logger,
	}
}

// Summary returns the per-customer aggregation of unbilled work for a period
func (h *BillingHandler) Summary(c *gin.Context) {
	var params SummaryParams
	if err := c.ShouldBindQuery(&params); err != nil {
		h.logger.Error("Invalid summary parameters", "error", err)
		RespondBadRequest(c, "Invalid query parameters: "+err.Error())
		return
	}

	period, err := billing.ParsePeriod(params.PeriodStart, params.PeriodEnd)
	if err != nil {
		h.logger.Error("Invalid billing period", "period_start", params.PeriodStart, "period_end", params.PeriodEnd, "error", err)
		RespondBadRequest(c, err.Error())
		return
	}

	groups, err := h.aggregator.Aggregate(c.Request.Context(), period)
	if err != nil {
		h.respondBillingError(c, err)
		return
	}

	response := make([]BillingGroupResponse, 0, len(groups))
	for _, group := range groups {
		response = append(response, mapGroupToResponse(group))
	}

	RespondOK(c, response)
}

// CreateInvoice creates an external invoice for the selected entries and
// returns the resulting export record
func (h *BillingHandler) CreateInvoice(c *gin.Context) {
	var req CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	customerID, entryIDs, period, ok := h.parseSelection(c, req.CustomerID, req.EntryIDs, req.PeriodStart, req.PeriodEnd)
	if !ok {
		return
	}

	record, err := h.coordinator.CreateInvoice(c.Request.Context(), customerID, entryIDs, period)
	if err != nil {
		h.respondBillingError(c, err)
		return
	}

	RespondCreated(c, InvoiceResponse{
		InvoiceID: *record.InvoiceID,
		Export:    mapExportToResponse(record),
	})
}

// RecordExport records a manual billing export for the selected entries
func (h *BillingHandler) RecordExport(c *gin.Context) {
	var req RecordExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	customerID, entryIDs, period, ok := h.parseSelection(c, req.CustomerID, req.EntryIDs, req.PeriodStart, req.PeriodEnd)
	if !ok {
		return
	}

	record, err := h.coordinator.RecordManualExport(c.Request.Context(), customerID, entryIDs, period, req.TotalAmount)
	if err != nil {
		h.respondBillingError(c, err)
		return
	}

	RespondCreated(c, mapExportToResponse(record))
}

// ListExports returns recent export records, newest first
func (h *BillingHandler) ListExports(c *gin.Context) {
	var params ListExportsParams
	if err := c.ShouldBindQuery(&params); err != nil {
		h.logger.Error("Invalid export listing parameters", "error", err)
		RespondBadRequest(c, "Invalid query parameters: "+err.Error())
		return
	}

	records, err := h.ledger.ListRecent(c.Request.Context(), params.Limit)
	if err != nil {
		h.respondBillingError(c, err)
		return
	}

	response := make([]ExportRecordResponse, 0, len(records))
	for _, record := range records {
		response = append(response, mapExportToResponse(record))
	}

	RespondOK(c, response)
}

// parseSelection validates and converts the shared selection fields of the
// two billing mutations
func (h *BillingHandler) parseSelection(c *gin.Context, rawCustomerID string, rawEntryIDs []string, periodStart, periodEnd string) (uuid.UUID, []uuid.UUID, billing.Period, bool) {
	customerID, err := uuid.Parse(rawCustomerID)
	if err != nil {
		h.logger.Error("Invalid customer ID", "customer_id", rawCustomerID, "error", err)
		RespondBadRequest(c, "Invalid customer ID")
		return uuid.Nil, nil, billing.Period{}, false
	}

	entryIDs := make([]uuid.UUID, 0, len(rawEntryIDs))
	for _, raw := range rawEntryIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			h.logger.Error("Invalid entry ID", "entry_id", raw, "error", err)
			RespondBadRequest(c, "Invalid entry ID: "+raw)
			return uuid.Nil, nil, billing.Period{}, false
		}
		entryIDs = append(entryIDs, id)
	}

	period, err := billing.ParsePeriod(periodStart, periodEnd)
	if err != nil {
		h.logger.Error("Invalid billing period", "period_start", periodStart, "period_end", periodEnd, "error", err)
		RespondBadRequest(c, err.Error())
		return uuid.Nil, nil, billing.Period{}, false
	}

	return customerID, entryIDs, period, true
}

// respondBillingError maps the billing error taxonomy onto HTTP statuses
func (h *BillingHandler) respondBillingError(c *gin.Context, err error) {
	var (
		invalidRange  billing.ErrInvalidRange
		notLinked     billing.ErrNotLinked
		alreadyBilled billing.ErrAlreadyBilled
		external      billing.ErrExternalService
		notFound      customer.ErrCustomerNotFound
	)

	switch {
	case errors.As(err, &invalidRange):
		RespondBadRequest(c, invalidRange.Error())
	case errors.As(err, &notFound):
		RespondNotFound(c, notFound.Error())
	case errors.As(err, &notLinked):
		RespondUnprocessable(c, "NOT_LINKED", notLinked.Error())
	case errors.As(err, &alreadyBilled):
		RespondConflict(c, "ALREADY_BILLED", alreadyBilled.Error())
	case errors.As(err, &external):
		h.logger.Error("Accounting system failure", "error", err)
		RespondBadGateway(c, external.Error())
	default:
		h.logger.Error("Billing operation failed", "error", err)
		RespondInternalError(c)
	}
}

func uuidsToStrings(ids []uuid.UUID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.String())
	}
	return out
}
