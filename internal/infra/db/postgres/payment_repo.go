package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"telegram-club-subscription/internal/domain"
	"telegram-club-subscription/internal/domain/model"
	"telegram-club-subscription/internal/domain/ports/repository"
)

// Postgres unique_violation, raised when an invoice id is inserted twice.
const uniqueViolation = "23505"

var _ repository.PaymentRepository = (*PaymentRepo)(nil)

type PaymentRepo struct {
	pool *pgxpool.Pool
}

func NewPaymentRepo(pool *pgxpool.Pool) *PaymentRepo {
	return &PaymentRepo{pool: pool}
}

func (r *PaymentRepo) Save(ctx context.Context, p *model.Payment) error {
	const q = `
INSERT INTO payments (id, invoice_id, telegram_id, product_id, amount_rub, status, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$7);`
	if _, err := r.pool.Exec(ctx, q, p.ID, p.InvoiceID, p.TelegramID, p.ProductID, p.AmountRUB, string(p.Status), p.CreatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domain.ErrAlreadyProcessed
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *PaymentRepo) FindByInvoiceID(ctx context.Context, invoiceID string) (*model.Payment, error) {
	const q = `
SELECT id, invoice_id, telegram_id, product_id, amount_rub, status, created_at, updated_at, paid_at
  FROM payments WHERE invoice_id=$1;`
	var p model.Payment
	var status string
	row := r.pool.QueryRow(ctx, q, invoiceID)
	if err := row.Scan(&p.ID, &p.InvoiceID, &p.TelegramID, &p.ProductID, &p.AmountRUB, &status, &p.CreatedAt, &p.UpdatedAt, &p.PaidAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	p.Status = model.PaymentStatus(status)
	return &p, nil
}

// MarkSucceeded flips pending -> success as a single conditional update.
// Two concurrent deliveries of the same notification both run this; exactly
// one sees a changed row and proceeds to the grant.
func (r *PaymentRepo) MarkSucceeded(ctx context.Context, invoiceID string) (bool, error) {
	const q = `
UPDATE payments
   SET status='success', paid_at=NOW(), updated_at=NOW()
 WHERE invoice_id=$1 AND status='pending';`
	tag, err := r.pool.Exec(ctx, q, invoiceID)
	if err != nil {
		return false, domain.ErrOperationFailed
	}
	return tag.RowsAffected() == 1, nil
}

func (r *PaymentRepo) SumSince(ctx context.Context, t time.Time) (int64, error) {
	const q = `
SELECT COALESCE(SUM(amount_rub),0) FROM payments WHERE status='success' AND paid_at >= $1;`
	var n int64
	if err := r.pool.QueryRow(ctx, q, t).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
