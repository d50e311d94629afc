package models

import "time"

// ReservationStatus is the lifecycle state of a reservation.
type ReservationStatus string

const (
	// ReservationPending means the reservation is waiting in the FIFO queue.
	ReservationPending ReservationStatus = "pending"

	// ReservationFulfilled means resources have been allocated and locked,
	// and the claim window is running.
	ReservationFulfilled ReservationStatus = "fulfilled"

	// ReservationClaimed means the client has taken ownership of the
	// allocated resources. Terminal.
	ReservationClaimed ReservationStatus = "claimed"

	// ReservationCancelled means the client cancelled the reservation while
	// it was still pending. Terminal.
	ReservationCancelled ReservationStatus = "cancelled"

	// ReservationExpired means the reservation timed out, either waiting in
	// the queue or unclaimed at the end of its claim window. Terminal.
	ReservationExpired ReservationStatus = "expired"
)

// Terminal reports whether the status can never change again.
func (s ReservationStatus) Terminal() bool {
	return s == ReservationClaimed || s == ReservationCancelled || s == ReservationExpired
}

// Reservation is a queued request for exclusive access to a number of
// resources matching a tag set. ResourceIDs and LockTokens are populated
// together at fulfillment time and have exactly Quantity elements from then
// on; the tokens handed out at claim time are the ones minted here.
type Reservation struct {
	// ID is the reservation identifier, "res_" followed by a unique token.
	ID string

	Tags     []string
	Quantity int

	// ClientID identifies the requesting client. Informational; the
	// coordinator performs no authentication.
	ClientID string

	// TTL is the lease duration applied to every allocated resource when
	// the reservation is fulfilled.
	TTL time.Duration

	CreatedAt time.Time

	// ExpiresAt is the queue-wait deadline: a reservation still pending at
	// this point transitions to expired.
	ExpiresAt time.Time

	FulfilledAt    *time.Time
	ClaimExpiresAt *time.Time
	ClaimedAt      *time.Time
	CancelledAt    *time.Time

	Status ReservationStatus

	ResourceIDs []int
	LockTokens  []string
}

// Clone returns a deep copy of the reservation.
func (r *Reservation) Clone() *Reservation {
	clone := *r

	clone.Tags = append([]string(nil), r.Tags...)
	clone.ResourceIDs = append([]int(nil), r.ResourceIDs...)
	clone.LockTokens = append([]string(nil), r.LockTokens...)

	copyTime := func(t *time.Time) *time.Time {
		if t == nil {
			return nil
		}
		c := *t
		return &c
	}

	clone.FulfilledAt = copyTime(r.FulfilledAt)
	clone.ClaimExpiresAt = copyTime(r.ClaimExpiresAt)
	clone.ClaimedAt = copyTime(r.ClaimedAt)
	clone.CancelledAt = copyTime(r.CancelledAt)

	return &clone
}
