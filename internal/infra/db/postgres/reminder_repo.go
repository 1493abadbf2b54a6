package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"

	"telegram-club-subscription/internal/domain"
	"telegram-club-subscription/internal/domain/model"
	"telegram-club-subscription/internal/domain/ports/repository"
)

var _ repository.ReminderRepository = (*ReminderRepo)(nil)

type ReminderRepo struct {
	pool *pgxpool.Pool
}

func NewReminderRepo(pool *pgxpool.Pool) *ReminderRepo {
	return &ReminderRepo{pool: pool}
}

func (r *ReminderRepo) Upsert(ctx context.Context, tgID int64, productID string, dueAt time.Time) error {
	const q = `
INSERT INTO reminders (telegram_id, product_id, due_at, reminder_sent)
VALUES ($1,$2,$3,FALSE)
ON CONFLICT (telegram_id, product_id) DO UPDATE SET
  due_at=EXCLUDED.due_at, reminder_sent=FALSE;`
	if _, err := r.pool.Exec(ctx, q, tgID, productID, dueAt); err != nil {
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *ReminderRepo) MarkSent(ctx context.Context, tgID int64, productID string) error {
	const q = `
UPDATE reminders SET reminder_sent=TRUE WHERE telegram_id=$1 AND product_id=$2;`
	if _, err := r.pool.Exec(ctx, q, tgID, productID); err != nil {
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *ReminderRepo) ListDue(ctx context.Context, now time.Time) ([]*model.Reminder, error) {
	const q = `
SELECT telegram_id, product_id, reminder_sent, due_at
  FROM reminders
 WHERE reminder_sent=FALSE AND due_at <= $1;`
	rows, err := r.pool.Query(ctx, q, now)
	if err != nil {
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()
	var out []*model.Reminder
	for rows.Next() {
		var rem model.Reminder
		if err := rows.Scan(&rem.TelegramID, &rem.ProductID, &rem.Sent, &rem.DueAt); err != nil {
			return nil, err
		}
		out = append(out, &rem)
	}
	return out, rows.Err()
}
