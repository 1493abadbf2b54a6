package adapter

import "context"

// Keyboard is an opaque affordance set attached to an outgoing message.
// The Telegram adapter maps names to inline keyboards; tests use plain strings.
type Keyboard string

const (
	KeyboardNone     Keyboard = ""
	KeyboardMainMenu Keyboard = "main_menu"
	KeyboardBack     Keyboard = "back"
	KeyboardRenew    Keyboard = "renew" // carries the product id as payload
	KeyboardExpired  Keyboard = "expired"
)

// Messenger sends user-facing texts. Implementations are best-effort: callers
// log failures and never roll back ledger state because a message was lost.
type Messenger interface {
	Send(ctx context.Context, tgID int64, text string, kb Keyboard, kbProduct string) error
}

// ChannelAccess is the remote access-control capability over the private
// channels. Both operations can fail transiently; callers treat them as
// best-effort and rely on the sweeper for eventual convergence.
type ChannelAccess interface {
	Grant(ctx context.Context, channelID int64, tgID int64) error
	Revoke(ctx context.Context, channelID int64, tgID int64) error
}
