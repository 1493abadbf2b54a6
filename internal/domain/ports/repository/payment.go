package repository

import (
	"context"
	"time"

	"telegram-club-subscription/internal/domain/model"
)

// -----------------------------
// Payments
// -----------------------------

type PaymentRepository interface {
	Save(ctx context.Context, p *model.Payment) error
	FindByInvoiceID(ctx context.Context, invoiceID string) (*model.Payment, error)
	// MarkSucceeded atomically flips pending -> success and reports whether
	// this call actually changed the row. Only the caller that wins the flip
	// may run the grant; everyone else sees false (duplicate delivery).
	MarkSucceeded(ctx context.Context, invoiceID string) (bool, error)
	// SumSince totals successful payment amounts from t onward (stats).
	SumSince(ctx context.Context, t time.Time) (int64, error)
}
