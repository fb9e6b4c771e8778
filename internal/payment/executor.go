// Package payment executes monetary payments against invoices and payroll
// records. It is the console's only write path besides transfer
// submission; callers are expected to re-fetch the owning list after a
// successful payment rather than patching local state.
package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidAmount indicates a non-positive payment amount. Checked
	// before anything reaches the network.
	ErrInvalidAmount = errors.New("payment: amount must be greater than zero")
	// ErrMissingTarget indicates no invoice or payroll identifier.
	ErrMissingTarget = errors.New("payment: target id is required")
)

// Receipt is the backend's acknowledgement payload, already normalized.
// It may be nil when the backend answered with an empty ack.
type Receipt map[string]any

// Backend is the slice of the upstream client the executor needs.
type Backend interface {
	PayInvoice(ctx context.Context, id string, amount decimal.Decimal, idempotencyKey string) (map[string]any, error)
	PayPayroll(ctx context.Context, id string, amount decimal.Decimal, idempotencyKey string) (map[string]any, error)
}

// Executor validates and submits payments.
type Executor struct {
	backend Backend
	logger  *slog.Logger
	// newKey is swappable for tests.
	newKey func() string
}

// NewExecutor constructs an Executor.
func NewExecutor(backend Backend, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{backend: backend, logger: logger, newKey: uuid.NewString}
}

// PayInvoice applies amount against a purchase invoice. Each call carries
// a fresh idempotency key so a duplicate submit can be deduplicated by a
// backend that honours the header.
func (e *Executor) PayInvoice(ctx context.Context, targetID string, amount decimal.Decimal) (Receipt, error) {
	if err := validate(targetID, amount); err != nil {
		return nil, err
	}
	key := e.newKey()
	receipt, err := e.backend.PayInvoice(ctx, targetID, amount, key)
	if err != nil {
		return nil, fmt.Errorf("pay invoice %s: %w", targetID, err)
	}
	e.logger.Info("invoice payment applied",
		slog.String("invoice", targetID),
		slog.String("amount", amount.String()),
		slog.String("idempotency_key", key),
	)
	return receipt, nil
}

// PayPayroll applies amount against a payroll record.
func (e *Executor) PayPayroll(ctx context.Context, targetID string, amount decimal.Decimal) (Receipt, error) {
	if err := validate(targetID, amount); err != nil {
		return nil, err
	}
	key := e.newKey()
	receipt, err := e.backend.PayPayroll(ctx, targetID, amount, key)
	if err != nil {
		return nil, fmt.Errorf("pay payroll %s: %w", targetID, err)
	}
	e.logger.Info("payroll payment applied",
		slog.String("payroll", targetID),
		slog.String("amount", amount.String()),
		slog.String("idempotency_key", key),
	)
	return receipt, nil
}

func validate(targetID string, amount decimal.Decimal) error {
	if targetID == "" {
		return ErrMissingTarget
	}
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	return nil
}
