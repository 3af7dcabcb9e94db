package outbox

import (
	"context"
	"strconv"

	"github.com/jackc/pgx/v5"
)

// Repository defines outbox message persistence operations
type Repository interface {
	Create(ctx context.Context, message *Message) error

	// GetPending retrieves a batch of pending messages in FIFO order
	GetPending(ctx context.Context, limit int) ([]*Message, error)

	UpdateStatus(ctx context.Context, id int64, status Status) error
	IncrementAttempts(ctx context.Context, id int64) error

	WithTx(tx pgx.Tx) Repository
}

// ErrMessageNotFound indicates a missing outbox message
type ErrMessageNotFound struct {
	ID int64
}

func (e ErrMessageNotFound) Error() string {
	return "outbox message not found: " + strconv.FormatInt(e.ID, 10)
}
