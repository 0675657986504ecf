package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskLedgerIntegrity replays every product ledger and flags anomalies.
	TaskLedgerIntegrity = "ledger:integrity"
)

// LedgerIntegrityPayload scopes an integrity scan. A zero ProductID scans
// every product with ledger activity.
type LedgerIntegrityPayload struct {
	ProductID int64 `json:"product_id,omitempty"`
}

// NewLedgerIntegrityTask constructs the scan task.
func NewLedgerIntegrityTask(payload LedgerIntegrityPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLedgerIntegrity, data), nil
}
