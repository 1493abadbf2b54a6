package repository

import (
	"context"

	"telegram-club-subscription/internal/domain/model"
)

// -----------------------------
// Users
// -----------------------------

type UserRepository interface {
	// Save upserts by telegram id. Display fields are overwritten,
	// the gift flag is preserved.
	Save(ctx context.Context, u *model.User) error
	FindByTelegramID(ctx context.Context, tgID int64) (*model.User, error)
	MarkGiftReceived(ctx context.Context, tgID int64) error
	CountUsers(ctx context.Context) (int, error)
}
