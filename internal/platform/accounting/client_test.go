package accounting

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/mspdesk/billing-engine/internal/config"
	"github.com/mspdesk/billing-engine/internal/domain/billing"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(baseURL string) *Client {
	return NewClient(&config.AccountingConfig{
		BaseURL:  baseURL,
		APIKey:   "test-key",
		Currency: "EUR",
		Timeout:  5 * time.Second,
	}, slog.New(slog.NewJSONHandler(os.Stdout, nil)))
}

func testPeriod(t *testing.T) billing.Period {
	t.Helper()
	period, err := billing.ParsePeriod("2025-03-01", "2025-03-31")
	require.NoError(t, err)
	return period
}

func testLineItems() []LineItem {
	return []LineItem{
		{
			Description: "Mail server maintenance",
			Hours:       decimal.NewFromFloat(1.5),
			UnitPrice:   decimal.NewFromInt(100),
			Amount:      decimal.NewFromInt(150),
		},
	}
}

func TestClient_CreateInvoice(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		var captured createInvoiceRequest
		var authHeader string

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/api/v1/invoices", r.URL.Path)
			authHeader = r.Header.Get("Authorization")
			require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(invoiceResponse{ID: "inv-2025-0042", Number: "2025-0042", Status: "draft"})
		}))
		defer server.Close()

		client := newTestClient(server.URL)

		invoiceID, err := client.CreateInvoice(context.Background(), "acct-77", testLineItems(), testPeriod(t))
		require.NoError(t, err)
		assert.Equal(t, "inv-2025-0042", invoiceID)

		assert.Equal(t, "Bearer test-key", authHeader)
		assert.Equal(t, "acct-77", captured.CustomerID)
		assert.Equal(t, "EUR", captured.Currency)
		assert.Equal(t, "2025-03-01", captured.PeriodStart)
		assert.Equal(t, "2025-03-31", captured.PeriodEnd)
		require.Len(t, captured.LineItems, 1)
		assert.Equal(t, "Mail server maintenance", captured.LineItems[0].Description)
	})

	t.Run("NonSuccessStatus", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"error":"rate limited"}`, http.StatusTooManyRequests)
		}))
		defer server.Close()

		client := newTestClient(server.URL)

		_, err := client.CreateInvoice(context.Background(), "acct-77", testLineItems(), testPeriod(t))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unexpected status 429")
	})

	t.Run("MissingInvoiceID", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{}`))
		}))
		defer server.Close()

		client := newTestClient(server.URL)

		_, err := client.CreateInvoice(context.Background(), "acct-77", testLineItems(), testPeriod(t))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "without an id")
	})

	t.Run("EmptyLineItems", func(t *testing.T) {
		client := newTestClient("http://accounting.invalid")

		_, err := client.CreateInvoice(context.Background(), "acct-77", nil, testPeriod(t))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "without line items")
	})

	t.Run("MissingAPIKey", func(t *testing.T) {
		client := NewClient(&config.AccountingConfig{
			BaseURL: "http://accounting.invalid",
			Timeout: time.Second,
		}, slog.Default())

		_, err := client.CreateInvoice(context.Background(), "acct-77", testLineItems(), testPeriod(t))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "missing accounting api key")
	})
}

func TestClient_InvoiceStatus(t *testing.T) {
	statusCases := []struct {
		external string
		mapped   billing.ExportStatus
	}{
		{"draft", billing.ExportStatusDraft},
		{"sent", billing.ExportStatusSent},
		{"open", billing.ExportStatusSent},
		{"paid", billing.ExportStatusPaid},
	}

	for _, tc := range statusCases {
		t.Run("Maps_"+tc.external, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodGet, r.Method)
				assert.Equal(t, "/api/v1/invoices/inv-1", r.URL.Path)
				_ = json.NewEncoder(w).Encode(invoiceResponse{ID: "inv-1", Status: tc.external})
			}))
			defer server.Close()

			client := newTestClient(server.URL)

			status, err := client.InvoiceStatus(context.Background(), "inv-1")
			require.NoError(t, err)
			assert.Equal(t, tc.mapped, status)
		})
	}

	t.Run("UnknownStatus", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(invoiceResponse{ID: "inv-1", Status: "voided"})
		}))
		defer server.Close()

		client := newTestClient(server.URL)

		_, err := client.InvoiceStatus(context.Background(), "inv-1")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown invoice status")
	})

	t.Run("NotFound", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
		}))
		defer server.Close()

		client := newTestClient(server.URL)

		_, err := client.InvoiceStatus(context.Background(), "inv-1")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unexpected status 404")
	})
}
