package manager

import (
	"errors"
	"fmt"

	"github.com/rentabot/rentabot/models"
)

// FulfillReservations runs one fulfillment pass over the pending queue,
// oldest first, and returns the number of reservations fulfilled. Pending
// reservations past their wait deadline expire. A reservation that cannot be
// satisfied right now stays pending and the scan continues: a later
// reservation with different tags may still be fulfillable, so an
// unfulfillable head never blocks the queue.
func (m *Manager) FulfillReservations() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	fulfilled := 0

	for _, id := range m.reservationOrder {
		reservation := m.reservations[id]

		if reservation.Status != models.ReservationPending {
			continue
		}

		if !reservation.ExpiresAt.After(now) {
			reservation.Status = models.ReservationExpired

			m.logger.WithField("reservation_id", reservation.ID).Info("Reservation expired waiting in queue")

			continue
		}

		resources, err := m.lockManyLocked(reservation.Tags, reservation.Quantity, reservation.TTL)
		if err != nil {
			if !errors.Is(err, ErrInsufficientResources) {
				m.logger.WithField("reservation_id", reservation.ID).Warnf("Fulfillment attempt failed: %s", err)
			}

			continue
		}

		fulfilledAt := m.now()
		claimExpires := fulfilledAt.Add(m.cfg.ClaimWindow)

		reservation.Status = models.ReservationFulfilled
		reservation.FulfilledAt = &fulfilledAt
		reservation.ClaimExpiresAt = &claimExpires
		reservation.ResourceIDs = reservation.ResourceIDs[:0]
		reservation.LockTokens = reservation.LockTokens[:0]

		for _, resource := range resources {
			reservation.ResourceIDs = append(reservation.ResourceIDs, resource.ID)
			reservation.LockTokens = append(reservation.LockTokens, resource.LockToken)

			if live, ok := m.resources[resource.ID]; ok {
				live.LockDetails = fmt.Sprintf("Locked by reservation %s", reservation.ID)
			}
		}

		m.logger.
			WithField("reservation_id", reservation.ID).
			Infof("Reservation fulfilled with %d resource(s), claim window closes %s",
				len(reservation.ResourceIDs), claimExpires.Format("15:04:05"))

		fulfilled++
	}

	return fulfilled
}

// ReleaseUnclaimed expires fulfilled reservations whose claim window has
// closed, force-unlocking their resources back into the pool. Returns the
// number of reservations expired. Freed resources are reconsidered by the
// next fulfillment pass.
func (m *Manager) ReleaseUnclaimed() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	released := 0

	for _, id := range m.reservationOrder {
		reservation := m.reservations[id]

		if reservation.Status != models.ReservationFulfilled {
			continue
		}

		if reservation.ClaimExpiresAt == nil || reservation.ClaimExpiresAt.After(now) {
			continue
		}

		m.expireFulfilledLocked(reservation)

		released++
	}

	return released
}

// expireFulfilledLocked transitions a fulfilled reservation to expired and
// releases every resource it held. Callers must hold m.mu.
func (m *Manager) expireFulfilledLocked(reservation *models.Reservation) {
	for _, resourceID := range reservation.ResourceIDs {
		resource, ok := m.resources[resourceID]
		if !ok || !resource.Locked() {
			// Already released elsewhere; nothing to undo.
			continue
		}

		m.releaseLocked(resource, ReleaseReasonClaimWindow, "Resource available", reservation.ID)
	}

	reservation.Status = models.ReservationExpired

	m.logger.
		WithField("reservation_id", reservation.ID).
		Infof("Reservation claim window expired, released %d resource(s)", len(reservation.ResourceIDs))
}
