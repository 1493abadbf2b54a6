package repository

import (
	"context"
	"time"

	"telegram-club-subscription/internal/domain/model"
)

// -----------------------------
// Subscriptions
// -----------------------------

type SubscriptionRepository interface {
	// Upsert writes the single row for (user, product), overwriting
	// method, dates and the active flag if a row already exists.
	Upsert(ctx context.Context, s *model.Subscription) error
	// FindActive returns the active subscription for the pair, most recent
	// by end date, or domain.ErrNotFound.
	FindActive(ctx context.Context, tgID int64, productID string) (*model.Subscription, error)
	ListByUser(ctx context.Context, tgID int64) ([]*model.Subscription, error)
	Deactivate(ctx context.Context, tgID int64, productID string) error
	// EverHad reports whether a row exists for the pair regardless of active.
	EverHad(ctx context.Context, tgID int64, productID string) (bool, error)
	// FindExpiringTrials returns active trial subscriptions ending within
	// the window after now.
	FindExpiringTrials(ctx context.Context, now time.Time, window time.Duration) ([]*model.Subscription, error)
	// FindExpiredTrials returns active trial subscriptions whose end date
	// has passed. Paid subscriptions are managed by renewal overwrites and
	// are excluded here.
	FindExpiredTrials(ctx context.Context, now time.Time) ([]*model.Subscription, error)
	CountActiveByProduct(ctx context.Context) (map[string]int, error)
}
