package jobs

import (
	"context"
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeSendEmail is the task type for sending transactional emails.
	TaskTypeSendEmail = "mail:send"
	// TaskLowStockScan scans every owner's products and emails low-stock alerts.
	TaskLowStockScan = "inventory:low_stock_scan"
)

// SendEmailPayload describes the information required to send an email.
type SendEmailPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// NewSendEmailTask constructs an Asynq task.
func NewSendEmailTask(payload SendEmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeSendEmail, data), nil
}

// SendEmailHandler returns the handler for TaskTypeSendEmail tasks.
func SendEmailHandler(mailer Mailer) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload SendEmailPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil || payload.To == "" {
			return asynq.SkipRetry
		}
		return mailer.Send(ctx, Mail{To: []string{payload.To}, Subject: payload.Subject, Text: payload.Body})
	}
}

// LowStockScanPayload tunes a scan run.
type LowStockScanPayload struct {
	// DryRun logs what would be sent without sending mail.
	DryRun bool `json:"dry_run,omitempty"`
}

// NewLowStockScanTask constructs the scan task.
func NewLowStockScanTask(payload LowStockScanPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLowStockScan, data), nil
}
