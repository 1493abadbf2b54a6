package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound            = errors.New("entity not found")
	ErrInvalidArgument     = errors.New("invalid argument")
	ErrOperationFailed     = errors.New("operation failed")
	ErrUnknownProduct      = errors.New("unknown product")
	ErrGiftAlreadyReceived = errors.New("free trial already received")
	ErrInvalidSignature    = errors.New("notification signature mismatch")
	ErrAlreadyProcessed    = errors.New("payment already processed")
)
