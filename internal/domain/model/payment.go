package model

import "time"

type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending" // link issued; awaiting gateway notification
	PaymentStatusSuccess PaymentStatus = "success" // verified notification received; terminal
)

// Payment records one issued payment link and its eventual outcome.
// InvoiceID is the gateway-side correlation key; it is generated on our side
// and must be unique across the merchant account.
type Payment struct {
	ID         string // internal UUID
	InvoiceID  string
	TelegramID int64
	ProductID  string
	AmountRUB  int64
	Status     PaymentStatus
	CreatedAt  time.Time
	UpdatedAt  time.Time
	PaidAt     *time.Time // set when status flips to success
}
