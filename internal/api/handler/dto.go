package handler

import (
	"time"

	"github.com/mspdesk/billing-engine/internal/domain/billing"
	"github.com/shopspring/decimal"
)

// SummaryParams represents the query parameters for the billing summary
type SummaryParams struct {
	PeriodStart string `form:"period_start" binding:"required"`
	PeriodEnd   string `form:"period_end" binding:"required"`
}

// CreateInvoiceRequest represents a request to invoice selected entries
type CreateInvoiceRequest struct {
	CustomerID  string   `json:"customer_id" binding:"required,uuid"`
	EntryIDs    []string `json:"entry_ids" binding:"required,min=1,dive,uuid"`
	PeriodStart string   `json:"period_start" binding:"required"`
	PeriodEnd   string   `json:"period_end" binding:"required"`
}

// RecordExportRequest represents a request to record a manual export.
// TotalHours and TotalAmount are caller-reported figures; hours are always
// recomputed from the entries themselves and the amount is only honored when
// the customer has no configured rate.
type RecordExportRequest struct {
	CustomerID  string           `json:"customer_id" binding:"required,uuid"`
	EntryIDs    []string         `json:"entry_ids" binding:"required,min=1,dive,uuid"`
	PeriodStart string           `json:"period_start" binding:"required"`
	PeriodEnd   string           `json:"period_end" binding:"required"`
	TotalHours  *decimal.Decimal `json:"total_hours,omitempty"`
	TotalAmount *decimal.Decimal `json:"total_amount,omitempty"`
}

// ListExportsParams represents pagination for the export listing
type ListExportsParams struct {
	Limit int `form:"limit,default=50" binding:"min=1,max=500"`
}

// BillingGroupResponse represents one customer's unbilled work in API responses
type BillingGroupResponse struct {
	CustomerID   string   `json:"customer_id"`
	CustomerName string   `json:"customer_name"`
	AccountingID *string  `json:"accounting_id,omitempty"`
	HourlyRate   *string  `json:"hourly_rate,omitempty"`
	EntryIDs     []string `json:"entry_ids"`
	TotalSeconds int64    `json:"total_seconds"`
	TotalHours   string   `json:"total_hours"`
	TotalAmount  *string  `json:"total_amount,omitempty"`
	Eligibility  string   `json:"eligibility"`
}

// ExportRecordResponse represents an export record in API responses
type ExportRecordResponse struct {
	ID          string   `json:"id"`
	CustomerID  string   `json:"customer_id"`
	PeriodStart string   `json:"period_start"`
	PeriodEnd   string   `json:"period_end"`
	EntryIDs    []string `json:"entry_ids"`
	TotalHours  string   `json:"total_hours"`
	TotalAmount *string  `json:"total_amount,omitempty"`
	InvoiceID   *string  `json:"invoice_id,omitempty"`
	Status      string   `json:"status"`
	CreatedAt   string   `json:"created_at"`
}

// InvoiceResponse pairs the external invoice reference with the export record
type InvoiceResponse struct {
	InvoiceID string               `json:"invoice_id"`
	Export    ExportRecordResponse `json:"export"`
}

func mapGroupToResponse(group *billing.Group) BillingGroupResponse {
	response := BillingGroupResponse{
		CustomerID:   group.CustomerID.String(),
		CustomerName: group.CustomerName,
		AccountingID: group.AccountingID,
		EntryIDs:     uuidsToStrings(group.EntryIDs),
		TotalSeconds: group.TotalSeconds,
		TotalHours:   group.TotalHours().String(),
		Eligibility:  string(group.Eligibility),
	}

	if group.HourlyRate != nil {
		rate := group.HourlyRate.String()
		response.HourlyRate = &rate
	}
	if group.TotalAmount != nil {
		amount := group.TotalAmount.String()
		response.TotalAmount = &amount
	}

	return response
}

func mapExportToResponse(record *billing.ExportRecord) ExportRecordResponse {
	response := ExportRecordResponse{
		ID:          record.ID.String(),
		CustomerID:  record.CustomerID.String(),
		PeriodStart: record.PeriodStart.Format(billing.DateLayout),
		PeriodEnd:   record.PeriodEnd.Format(billing.DateLayout),
		EntryIDs:    uuidsToStrings(record.EntryIDs),
		TotalHours:  record.TotalHours.String(),
		InvoiceID:   record.InvoiceID,
		Status:      string(record.Status),
		CreatedAt:   record.CreatedAt.Format(time.RFC3339),
	}

	if record.TotalAmount != nil {
		amount := record.TotalAmount.String()
		response.TotalAmount = &amount
	}

	return response
}
