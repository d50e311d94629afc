package manager

import "errors"

// Resource errors. All are local, typed outcomes of a single operation;
// none are fatal. Callers use errors.Is to distinguish them.
var (
	// ErrResourceNotFound is returned when no resource has the requested id or name.
	ErrResourceNotFound = errors.New("resource not found")

	// ErrResourceAlreadyLocked is returned when locking a resource that already holds a lease.
	ErrResourceAlreadyLocked = errors.New("resource is already locked")

	// ErrResourceAlreadyUnlocked is returned when unlocking or extending a resource that holds no lease.
	ErrResourceAlreadyUnlocked = errors.New("resource is already unlocked")

	// ErrInvalidLockToken is returned when the presented token does not match the active lease.
	ErrInvalidLockToken = errors.New("lock token is not valid")

	// ErrInvalidTTL is returned when a requested lease duration is zero or negative.
	ErrInvalidTTL = errors.New("ttl must be positive")

	// ErrTTLExceedsMax is returned when a lease, initial or extended, would
	// exceed the resource's maximum lock duration.
	ErrTTLExceedsMax = errors.New("ttl exceeds maximum allowed duration")

	// ErrNoAvailableResource is returned by criteria locking when every matching resource is locked.
	ErrNoAvailableResource = errors.New("no available resource matches the criteria")

	// ErrInsufficientResources is returned by multi-resource locking when
	// fewer than the requested number of matching resources are available.
	ErrInsufficientResources = errors.New("not enough resources available")
)

// Reservation errors.
var (
	// ErrInvalidQuantity is returned when a reservation requests zero or fewer resources.
	ErrInvalidQuantity = errors.New("quantity must be positive")

	// ErrInvalidReservationTags is returned when a reservation has an empty tag list.
	ErrInvalidReservationTags = errors.New("tags list cannot be empty")

	// ErrImpossibleTTL rejects a reservation at admission: even with every
	// matching resource free, fewer than the requested quantity can hold a
	// lease of the requested ttl.
	ErrImpossibleTTL = errors.New("not enough resources can satisfy the requested ttl")

	// ErrReservationNotFound is returned when no reservation has the requested id.
	ErrReservationNotFound = errors.New("reservation not found")

	// ErrReservationNotFulfilled is returned when claiming a reservation that is still pending.
	ErrReservationNotFulfilled = errors.New("reservation is not yet fulfilled")

	// ErrReservationAlreadyClaimed is returned when claiming a reservation a second time.
	ErrReservationAlreadyClaimed = errors.New("reservation is already claimed")

	// ErrReservationCancelled is returned when claiming a cancelled reservation.
	ErrReservationCancelled = errors.New("reservation is cancelled")

	// ErrReservationExpired is returned when claiming a reservation that
	// expired while waiting in the queue.
	ErrReservationExpired = errors.New("reservation has expired")

	// ErrClaimWindowExpired is returned when claiming a fulfilled
	// reservation after its claim window has closed.
	ErrClaimWindowExpired = errors.New("claim window has expired")

	// ErrReservationNotCancellable is returned when cancelling a
	// reservation that is no longer pending; the caller should claim it
	// (or let it run out) instead.
	ErrReservationNotCancellable = errors.New("only pending reservations can be cancelled")
)
