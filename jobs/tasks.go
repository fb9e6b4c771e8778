// Package jobs holds the background worker: periodic re-sync tasks that
// re-fetch and re-normalize backend data into the response cache, so list
// reads stay warm between user-triggered refreshes.
package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskInvoiceResync re-fetches purchase invoices into the cache.
	TaskInvoiceResync = "console:invoice_resync"
)

// InvoiceResyncPayload describes one re-sync run.
type InvoiceResyncPayload struct {
	Reason string `json:"reason"`
}

// NewInvoiceResyncTask constructs an Asynq task.
func NewInvoiceResyncTask(reason string) (*asynq.Task, error) {
	data, err := json.Marshal(InvoiceResyncPayload{Reason: reason})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskInvoiceResync, data), nil
}

// Resyncer is the slice of the console service the worker needs.
type Resyncer interface {
	RefreshInvoices(ctx context.Context) error
}

// InvoiceResyncJob handles TaskInvoiceResync tasks.
type InvoiceResyncJob struct {
	service Resyncer
	logger  *slog.Logger
}

// NewInvoiceResyncJob constructs the job.
func NewInvoiceResyncJob(service Resyncer, logger *slog.Logger) *InvoiceResyncJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &InvoiceResyncJob{service: service, logger: logger}
}

// Handle processes one re-sync task.
func (j *InvoiceResyncJob) Handle(ctx context.Context, t *asynq.Task) error {
	var payload InvoiceResyncPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if err := j.service.RefreshInvoices(ctx); err != nil {
		j.logger.Warn("invoice resync failed", slog.String("reason", payload.Reason), slog.Any("error", err))
		return err
	}
	j.logger.Info("invoice resync complete", slog.String("reason", payload.Reason))
	return nil
}
