package manager

import (
	"sort"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/segmentio/ksuid"

	"github.com/rentabot/rentabot/common"
)

// ReleaseReason records why a lease was released.
type ReleaseReason string

const (
	// ReleaseReasonClient marks a client-initiated unlock.
	ReleaseReasonClient ReleaseReason = "client"

	// ReleaseReasonExpired marks an auto-expiration by the background sweeper.
	ReleaseReasonExpired ReleaseReason = "auto-expired"

	// ReleaseReasonClaimWindow marks a release of resources allocated to a
	// reservation whose claim window closed unclaimed.
	ReleaseReasonClaimWindow ReleaseReason = "claim-window-expired"
)

// ReleaseEvent is one entry in the lock-release audit trail.
type ReleaseEvent struct {
	ID            string        `json:"id"`
	ResourceID    int           `json:"resource_id"`
	ResourceName  string        `json:"resource_name"`
	ReservationID string        `json:"reservation_id,omitempty"`
	Reason        ReleaseReason `json:"reason"`
	Details       string        `json:"details"`
	ReleasedAt    time.Time     `json:"released_at"`
}

// AuditTrail retains recent lock-release events for an external audit
// collaborator to query. Events expire out of the trail after the configured
// retention; the trail is advisory and never part of any locking invariant.
type AuditTrail struct {
	events    *gocache.Cache
	retention time.Duration
	clock     common.Clock
}

// NewAuditTrail creates an AuditTrail keeping events for the given retention.
func NewAuditTrail(retention time.Duration, clock common.Clock) *AuditTrail {
	return &AuditTrail{
		events:    gocache.New(retention, retention/2),
		retention: retention,
		clock:     clock,
	}
}

// Record adds a release event to the trail, assigning it a unique id.
func (a *AuditTrail) Record(event ReleaseEvent) {
	if event.ID == "" {
		event.ID = ksuid.New().String()
	}

	if event.ReleasedAt.IsZero() {
		event.ReleasedAt = a.clock.Now().UTC()
	}

	a.events.Set(event.ID, event, gocache.DefaultExpiration)
}

// Recent returns the retained release events, oldest first.
func (a *AuditTrail) Recent() []ReleaseEvent {
	items := a.events.Items()

	events := make([]ReleaseEvent, 0, len(items))

	for _, item := range items {
		event, ok := item.Object.(ReleaseEvent)
		if !ok {
			continue
		}

		events = append(events, event)
	}

	sort.Slice(events, func(i, j int) bool {
		if events[i].ReleasedAt.Equal(events[j].ReleasedAt) {
			return events[i].ID < events[j].ID
		}

		return events[i].ReleasedAt.Before(events[j].ReleasedAt)
	})

	return events
}
