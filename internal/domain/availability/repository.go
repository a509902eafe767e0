package availability

import "context"

// Repository stores availability windows and blocked dates.
type Repository interface {
	ListWindows(ctx context.Context) ([]*Window, error)
	ListActiveWindows(ctx context.Context) ([]*Window, error)
	GetWindow(ctx context.Context, id string) (*Window, error)
	CreateWindow(ctx context.Context, w *Window) error
	UpdateWindow(ctx context.Context, w *Window) error
	DeleteWindow(ctx context.Context, id string) error

	// ListBlockedDates returns blocked dates inside r, ordered by date.
	ListBlockedDates(ctx context.Context, r DateRange) ([]*BlockedDate, error)
	// CreateBlockedDate returns ErrDateAlreadyBlocked when the date exists.
	CreateBlockedDate(ctx context.Context, b *BlockedDate) error
	DeleteBlockedDate(ctx context.Context, id string) error
}
