package domain

import "context"

type Repositories interface {
	Bookings() BookingRepository
	Payments() PaymentRepository
	Listings() ListingRepository
	Users() UserRepository
	Notifications() NotificationRepository
}

// Store hands out repositories bound to the connection pool, or to a single transaction inside
// RunInTx. The transaction commits when fn returns nil and rolls back otherwise.
type Store interface {
	Repositories
	RunInTx(ctx context.Context, fn func(tx Repositories) error) error
}
