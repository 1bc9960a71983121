package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/orders-intake/constants"
)

// Job represents a batch job for data transfer between layers.
type Job struct {
	ID              uuid.UUID           `json:"id"`
	Status          constants.JobStatus `json:"status"`
	Progress        int                 `json:"progress"`
	ProgressMessage string              `json:"progress_message,omitempty"`
	OrdersSucceeded int                 `json:"orders_succeeded"`
	OrdersFailed    int                 `json:"orders_failed"`
	ErrorMessage    *string             `json:"error_message,omitempty"`
	FailureContext  []FailureContext    `json:"failure_context,omitempty"`
	FailureSummary  *string             `json:"failure_summary,omitempty"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
	CompletedAt     *time.Time          `json:"completed_at,omitempty"`
}
