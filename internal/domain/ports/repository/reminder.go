package repository

import (
	"context"
	"time"

	"telegram-club-subscription/internal/domain/model"
)

// -----------------------------
// Reminders
// -----------------------------

type ReminderRepository interface {
	// Upsert schedules the reminder for (user, product), resetting the sent
	// flag if a reminder row already exists.
	Upsert(ctx context.Context, tgID int64, productID string, dueAt time.Time) error
	MarkSent(ctx context.Context, tgID int64, productID string) error
	// ListDue returns unsent reminders with due date at or before now.
	ListDue(ctx context.Context, now time.Time) ([]*model.Reminder, error)
}
