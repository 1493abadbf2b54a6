package model

import "time"

// Reminder schedules one pre-expiry notification per (user, product).
// Re-granting a subscription re-creates the reminder and resets the sent flag.
type Reminder struct {
	TelegramID int64
	ProductID  string
	Sent       bool
	DueAt      time.Time
}
