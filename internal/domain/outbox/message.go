package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/mspdesk/billing-engine/internal/domain/billing"
)

// Status defines message publishing states
type Status string

const (
	StatusPending         Status = "PENDING"
	StatusProcessed       Status = "PROCESSED"
	StatusFailedToPublish Status = "FAILED_TO_PUBLISH"
)

// Message stores a billing event for reliable publication. It is written in
// the same database transaction as the export record it describes, so a
// committed export always has exactly one pending event.
type Message struct {
	ID            int64           `json:"id"`
	ExportID      uuid.UUID       `json:"export_id"`
	CustomerID    uuid.UUID       `json:"customer_id"`
	Payload       json.RawMessage `json:"payload"`
	Status        Status          `json:"status"`
	Attempts      int             `json:"attempts"`
	CreatedAt     time.Time       `json:"created_at"`
	LastAttemptAt *time.Time      `json:"last_attempt_at,omitempty"`
}

// NewMessage builds a pending outbox message from an export record
func NewMessage(record *billing.ExportRecord) (*Message, error) {
	payload, err := json.Marshal(record)
	if err != nil {
		return nil, err
	}

	return &Message{
		ExportID:   record.ID,
		CustomerID: record.CustomerID,
		Payload:    payload,
		Status:     StatusPending,
		Attempts:   0,
		CreatedAt:  time.Now(),
	}, nil
}

// GetExportRecord extracts the export record from the payload
func (m *Message) GetExportRecord() (*billing.ExportRecord, error) {
	var record billing.ExportRecord
	if err := json.Unmarshal(m.Payload, &record); err != nil {
		return nil, err
	}
	return &record, nil
}
