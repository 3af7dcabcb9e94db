// Package accounting provides the HTTP client for the external accounting
// system. The engine treats it as an opaque service: invoice creation either
// returns an invoice identifier or fails; invoice numbering, PDF rendering
// and tax calculation happen entirely on the other side.
package accounting

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/mspdesk/billing-engine/internal/config"
	"github.com/mspdesk/billing-engine/internal/domain/billing"
	"github.com/shopspring/decimal"
)

// LineItem is one invoice line derived from a time entry
type LineItem struct {
	Description string          `json:"description"`
	Hours       decimal.Decimal `json:"hours"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Amount      decimal.Decimal `json:"amount"`
}

// Client talks to the external accounting system's REST API
type Client struct {
	baseURL  string
	apiKey   string
	currency string
	http     *http.Client
	log      *slog.Logger
}

func NewClient(cfg *config.AccountingConfig, log *slog.Logger) *Client {
	return &Client{
		baseURL:  cfg.BaseURL,
		apiKey:   cfg.APIKey,
		currency: cfg.Currency,
		http: &http.Client{
			Timeout: cfg.Timeout,
		},
		log: log,
	}
}

// createInvoiceRequest mirrors the accounting API's invoice creation payload
type createInvoiceRequest struct {
	CustomerID  string     `json:"customer_id"`
	Currency    string     `json:"currency"`
	PeriodStart string     `json:"period_start"`
	PeriodEnd   string     `json:"period_end"`
	LineItems   []LineItem `json:"line_items"`
}

type invoiceResponse struct {
	ID     string `json:"id"`
	Number string `json:"number"`
	Status string `json:"status"`
}

// CreateInvoice creates an invoice for the linked customer and returns the
// external invoice identifier. Any failure leaves no state behind on this
// side; callers decide whether and how to retry.
func (c *Client) CreateInvoice(ctx context.Context, customerExternalID string, items []LineItem, period billing.Period) (string, error) {
	if c.apiKey == "" {
		return "", errors.New("missing accounting api key")
	}
	if len(items) == 0 {
		return "", errors.New("cannot create an invoice without line items")
	}

	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", err
	}
	u.Path = "/api/v1/invoices"

	payload := createInvoiceRequest{
		CustomerID:  customerExternalID,
		Currency:    c.currency,
		PeriodStart: period.Start.Format(billing.DateLayout),
		PeriodEnd:   period.End.Format(billing.DateLayout),
		LineItems:   items,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("accounting: unexpected status %d: %s", resp.StatusCode, string(errBody))
	}

	var created invoiceResponse
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return "", err
	}
	if created.ID == "" {
		return "", errors.New("accounting: invoice created without an id")
	}

	c.log.Info("created external invoice",
		"invoice_id", created.ID,
		"customer_external_id", customerExternalID,
		"line_items", len(items),
		"latency", time.Since(start),
	)

	return created.ID, nil
}

// InvoiceStatus fetches the current lifecycle status of an invoice
func (c *Client) InvoiceStatus(ctx context.Context, invoiceID string) (billing.ExportStatus, error) {
	if c.apiKey == "" {
		return "", errors.New("missing accounting api key")
	}

	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", err
	}
	u.Path = "/api/v1/invoices/" + url.PathEscape(invoiceID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("accounting: unexpected status %d: %s", resp.StatusCode, string(errBody))
	}

	var inv invoiceResponse
	if err := json.NewDecoder(resp.Body).Decode(&inv); err != nil {
		return "", err
	}

	return mapInvoiceStatus(inv.Status)
}

// mapInvoiceStatus maps the accounting system's lifecycle states onto export
// record statuses.
func mapInvoiceStatus(s string) (billing.ExportStatus, error) {
	switch s {
	case "draft":
		return billing.ExportStatusDraft, nil
	case "sent", "open":
		return billing.ExportStatusSent, nil
	case "paid":
		return billing.ExportStatusPaid, nil
	default:
		return "", fmt.Errorf("accounting: unknown invoice status %q", s)
	}
}
