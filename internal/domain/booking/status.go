package booking

import "fmt"

// Status is a booking lifecycle state.
type Status string

const (
	StatusPendingPayment Status = "pending_payment"
	StatusConfirmed      Status = "confirmed"
	StatusScheduled      Status = "scheduled"
	StatusCompleted      Status = "completed"
	StatusCancelled      Status = "cancelled"
	StatusExpired        Status = "expired"
	StatusNoShow         Status = "no_show"
)

// transitions lists the allowed targets per state. States without an entry
// are terminal.
var transitions = map[Status][]Status{
	StatusPendingPayment: {StatusConfirmed, StatusExpired, StatusCancelled, StatusScheduled},
	StatusConfirmed:      {StatusCompleted, StatusCancelled, StatusNoShow, StatusScheduled},
	StatusScheduled:      {StatusCompleted, StatusCancelled, StatusNoShow},
}

// BindingStatuses occupy a calendar slot.
var BindingStatuses = []Status{StatusConfirmed, StatusPendingPayment, StatusScheduled}

var allStatuses = []Status{
	StatusPendingPayment, StatusConfirmed, StatusScheduled,
	StatusCompleted, StatusCancelled, StatusExpired, StatusNoShow,
}

func ParseStatus(s string) (Status, error) {
	for _, st := range allStatuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
}

// IsBinding reports whether a booking in s blocks its time range.
func (s Status) IsBinding() bool {
	for _, b := range BindingStatuses {
		if s == b {
			return true
		}
	}
	return false
}

func (s Status) IsTerminal() bool {
	_, ok := transitions[s]
	return !ok
}

// CanTransition reports whether from → to is in the transition table.
func CanTransition(from, to Status) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

func (s Status) String() string { return string(s) }
