package availability

import "errors"

var (
	ErrWindowNotFound      = errors.New("availability window not found")
	ErrBlockedDateNotFound = errors.New("blocked date not found")
	ErrDateAlreadyBlocked  = errors.New("date is already blocked")
	ErrInvalidDayOfWeek    = errors.New("day of week must be between 0 (Sunday) and 6 (Saturday)")
	ErrInvalidTime         = errors.New("invalid time, use HH:MM")
	ErrInvalidWindow       = errors.New("window start must be before its end")
	ErrInvalidDate         = errors.New("invalid date, use YYYY-MM-DD")
	ErrInvalidMonth        = errors.New("invalid month, use YYYY-MM")
	ErrInvalidDateRange    = errors.New("range start must not be after its end")
)
