package postgres

import (
	"context"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"telegram-club-subscription/internal/domain"
	"telegram-club-subscription/internal/domain/model"
	"telegram-club-subscription/internal/domain/ports/repository"
)

var _ repository.UserRepository = (*UserRepo)(nil)

type UserRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

func (r *UserRepo) Save(ctx context.Context, u *model.User) error {
	const q = `
INSERT INTO users (telegram_id, username, first_name, last_name)
VALUES ($1,$2,$3,$4)
ON CONFLICT (telegram_id) DO UPDATE SET
  username=EXCLUDED.username, first_name=EXCLUDED.first_name, last_name=EXCLUDED.last_name;`
	if _, err := r.pool.Exec(ctx, q, u.TelegramID, u.Username, u.FirstName, u.LastName); err != nil {
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *UserRepo) FindByTelegramID(ctx context.Context, tgID int64) (*model.User, error) {
	const q = `
SELECT telegram_id, username, first_name, last_name, gift_received, created_at
  FROM users WHERE telegram_id=$1;`
	var u model.User
	row := r.pool.QueryRow(ctx, q, tgID)
	if err := row.Scan(&u.TelegramID, &u.Username, &u.FirstName, &u.LastName, &u.GiftReceived, &u.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) MarkGiftReceived(ctx context.Context, tgID int64) error {
	const q = `UPDATE users SET gift_received = TRUE WHERE telegram_id=$1;`
	tag, err := r.pool.Exec(ctx, q, tgID)
	if err != nil {
		return domain.ErrOperationFailed
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *UserRepo) CountUsers(ctx context.Context) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users;`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
