package model

import (
	"time"

	"telegram-club-subscription/internal/domain"
)

// User is a Telegram user known to the bot. The gift flag is user-level,
// not per-product: the free trial can be received at most once, ever.
type User struct {
	TelegramID   int64
	Username     string
	FirstName    string
	LastName     string
	GiftReceived bool
	CreatedAt    time.Time
}

func NewUser(tgID int64, username, firstName, lastName string) (*User, error) {
	if tgID <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	return &User{
		TelegramID: tgID,
		Username:   username,
		FirstName:  firstName,
		LastName:   lastName,
		CreatedAt:  time.Now(),
	}, nil
}
