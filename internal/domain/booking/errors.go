package booking

import "errors"

var (
	ErrBookingNotFound     = errors.New("booking not found")
	ErrInvalidTransition   = errors.New("status transition not allowed")
	ErrInvalidStatus       = errors.New("unknown booking status")
	ErrUnknownSessionType  = errors.New("unknown session type")
	ErrSlotUnavailable     = errors.New("slot is no longer available")
	ErrConcurrentUpdate    = errors.New("booking was modified concurrently")
	ErrClientNameRequired  = errors.New("client name is required")
	ErrClientEmailRequired = errors.New("client email is required")
	ErrSessionDateRequired = errors.New("session date is required")
)
