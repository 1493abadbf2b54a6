package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"telegram-club-subscription/internal/domain"
	"telegram-club-subscription/internal/domain/model"
	"telegram-club-subscription/internal/domain/ports/repository"
)

var _ repository.SubscriptionRepository = (*SubscriptionRepo)(nil)

type SubscriptionRepo struct {
	pool *pgxpool.Pool
}

func NewSubscriptionRepo(pool *pgxpool.Pool) *SubscriptionRepo {
	return &SubscriptionRepo{pool: pool}
}

const subColumns = `telegram_id, product_id, is_active, method, start_at, end_at, created_at`

func (r *SubscriptionRepo) Upsert(ctx context.Context, s *model.Subscription) error {
	const q = `
INSERT INTO subscriptions (telegram_id, product_id, is_active, method, start_at, end_at)
VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (telegram_id, product_id) DO UPDATE SET
  is_active=EXCLUDED.is_active, method=EXCLUDED.method,
  start_at=EXCLUDED.start_at, end_at=EXCLUDED.end_at;`
	if _, err := r.pool.Exec(ctx, q, s.TelegramID, s.ProductID, s.Active, string(s.Method), s.StartAt, s.EndAt); err != nil {
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *SubscriptionRepo) FindActive(ctx context.Context, tgID int64, productID string) (*model.Subscription, error) {
	const q = `
SELECT ` + subColumns + `
  FROM subscriptions
 WHERE telegram_id=$1 AND product_id=$2 AND is_active=TRUE
 ORDER BY end_at DESC LIMIT 1;`
	return r.queryOne(ctx, q, tgID, productID)
}

func (r *SubscriptionRepo) ListByUser(ctx context.Context, tgID int64) ([]*model.Subscription, error) {
	const q = `
SELECT ` + subColumns + `
  FROM subscriptions
 WHERE telegram_id=$1
 ORDER BY end_at DESC;`
	return r.queryMany(ctx, q, tgID)
}

func (r *SubscriptionRepo) Deactivate(ctx context.Context, tgID int64, productID string) error {
	const q = `
UPDATE subscriptions SET is_active=FALSE WHERE telegram_id=$1 AND product_id=$2;`
	if _, err := r.pool.Exec(ctx, q, tgID, productID); err != nil {
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *SubscriptionRepo) EverHad(ctx context.Context, tgID int64, productID string) (bool, error) {
	const q = `
SELECT COUNT(*) FROM subscriptions WHERE telegram_id=$1 AND product_id=$2;`
	var n int
	if err := r.pool.QueryRow(ctx, q, tgID, productID).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *SubscriptionRepo) FindExpiringTrials(ctx context.Context, now time.Time, window time.Duration) ([]*model.Subscription, error) {
	const q = `
SELECT ` + subColumns + `
  FROM subscriptions
 WHERE is_active=TRUE AND method='trial' AND end_at BETWEEN $1 AND $2
 ORDER BY end_at ASC;`
	return r.queryMany(ctx, q, now, now.Add(window))
}

func (r *SubscriptionRepo) FindExpiredTrials(ctx context.Context, now time.Time) ([]*model.Subscription, error) {
	const q = `
SELECT ` + subColumns + `
  FROM subscriptions
 WHERE is_active=TRUE AND method='trial' AND end_at < $1
 ORDER BY end_at ASC;`
	return r.queryMany(ctx, q, now)
}

func (r *SubscriptionRepo) CountActiveByProduct(ctx context.Context) (map[string]int, error) {
	const q = `
SELECT product_id, COUNT(*) FROM subscriptions WHERE is_active=TRUE GROUP BY product_id;`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()
	m := make(map[string]int)
	for rows.Next() {
		var productID string
		var c int
		if err := rows.Scan(&productID, &c); err != nil {
			return nil, err
		}
		m[productID] = c
	}
	return m, rows.Err()
}

func (r *SubscriptionRepo) queryOne(ctx context.Context, q string, args ...interface{}) (*model.Subscription, error) {
	row := r.pool.QueryRow(ctx, q, args...)
	s, err := scanSub(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return s, nil
}

func (r *SubscriptionRepo) queryMany(ctx context.Context, q string, args ...interface{}) ([]*model.Subscription, error) {
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()
	var out []*model.Subscription
	for rows.Next() {
		s, err := scanSub(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func scanSub(row pgx.Row) (*model.Subscription, error) {
	var s model.Subscription
	var method string
	if err := row.Scan(&s.TelegramID, &s.ProductID, &s.Active, &method, &s.StartAt, &s.EndAt, &s.CreatedAt); err != nil {
		return nil, err
	}
	s.Method = model.SubscriptionMethod(method)
	return &s, nil
}
