package client

import "time"

// Resource is the wire shape of a coordinator resource.
type Resource struct {
	ID              int        `json:"id"`
	Name            string     `json:"name"`
	Description     string     `json:"description"`
	Endpoint        string     `json:"endpoint"`
	Tags            string     `json:"tags"`
	LockToken       string     `json:"lock-token"`
	LockDetails     string     `json:"lock-details"`
	LockAcquiredAt  *time.Time `json:"lock-acquired-at,omitempty"`
	LockExpiresAt   *time.Time `json:"lock-expires-at,omitempty"`
	MaxLockDuration int64      `json:"max-lock-duration"`
}

// LockResult is returned by the lock operations: the credential plus a
// snapshot of the locked resource.
type LockResult struct {
	Message   string     `json:"message"`
	LockToken string     `json:"lock-token"`
	Resource  *Resource  `json:"resource"`
	LockedAt  *time.Time `json:"locked-at"`
	ExpiresAt *time.Time `json:"expires-at"`
}

// ExtendResult is returned by Extend.
type ExtendResult struct {
	Message           string     `json:"message"`
	NewExpiresAt      *time.Time `json:"new-expires-at"`
	TotalLockDuration int64      `json:"total-lock-duration"`
	Resource          *Resource  `json:"resource"`
}

// Reservation is the wire shape of a coordinator reservation. Durations are
// integer seconds.
type Reservation struct {
	ReservationID   string     `json:"reservation_id"`
	Status          string     `json:"status"`
	Tags            []string   `json:"tags"`
	Quantity        int        `json:"quantity"`
	ClientID        string     `json:"client_id,omitempty"`
	TTL             int64      `json:"ttl"`
	PositionInQueue *int       `json:"position_in_queue,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	ExpiresAt       time.Time  `json:"expires_at"`
	FulfilledAt     *time.Time `json:"fulfilled_at,omitempty"`
	ClaimExpiresAt  *time.Time `json:"claim_expires_at,omitempty"`
	ClaimedAt       *time.Time `json:"claimed_at,omitempty"`
	CancelledAt     *time.Time `json:"cancelled_at,omitempty"`
	ResourceIDs     []int      `json:"resource_ids"`
	LockTokens      []string   `json:"lock_tokens"`
}

// ClaimResult is a claimed reservation together with snapshots of the
// allocated resources.
type ClaimResult struct {
	Reservation
	Resources []Resource `json:"resources"`
}

// ReservationRequest describes a reservation to create. Durations are in
// seconds; zero values take the server's defaults.
type ReservationRequest struct {
	Tags        []string `json:"tags"`
	Quantity    int      `json:"quantity"`
	TTL         int64    `json:"ttl"`
	MaxWaitTime int64    `json:"max_wait_time"`
	ClientID    string   `json:"client_id"`
}
