package model

import "time"

type SubscriptionMethod string

const (
	MethodTrial SubscriptionMethod = "trial" // free one-time gift period
	MethodPaid  SubscriptionMethod = "paid"  // purchased through the gateway
)

// Subscription is the single current membership row per (user, product).
// A new grant overwrites method and dates in place; past periods are not kept.
type Subscription struct {
	TelegramID int64
	ProductID  string
	Active     bool
	Method     SubscriptionMethod
	StartAt    time.Time
	EndAt      time.Time
	CreatedAt  time.Time
}

// DaysLeft reports whole days remaining until expiry, never negative.
func (s *Subscription) DaysLeft(now time.Time) int {
	if !s.EndAt.After(now) {
		return 0
	}
	return int(s.EndAt.Sub(now).Hours() / 24)
}

func (s *Subscription) Expired(now time.Time) bool {
	return s.EndAt.Before(now)
}
