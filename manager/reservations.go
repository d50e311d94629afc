package manager

import (
	"fmt"
	"time"

	"github.com/rentabot/rentabot/models"
)

// CreateReservation validates and enqueues a reservation for quantity
// resources matching tags. Admission checks feasibility by construction:
// if fewer than quantity resources matching the tags could ever hold a
// lease of the requested ttl, the reservation is rejected with
// ErrImpossibleTTL instead of queuing forever. Zero durations take the
// configured defaults. The queue is strict FIFO by creation time, ties
// broken by insertion order; no priority exists.
func (m *Manager) CreateReservation(tags []string, quantity int, ttl, maxWait time.Duration, clientID string) (*models.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(tags) == 0 {
		return nil, ErrInvalidReservationTags
	}

	if quantity <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidQuantity, quantity)
	}

	if ttl == 0 {
		ttl = m.cfg.DefaultReservationTTL
	}

	if maxWait == 0 {
		maxWait = m.cfg.DefaultMaxWaitTime
	}

	if ttl < 0 {
		return nil, fmt.Errorf("%w: got %v", ErrInvalidTTL, ttl)
	}

	if maxWait < 0 {
		return nil, fmt.Errorf("%w: max wait time %v", ErrInvalidTTL, maxWait)
	}

	matches := m.matchLocked(tags)
	if len(matches) == 0 {
		return nil, fmt.Errorf("%w: no resources match tags %v", ErrResourceNotFound, tags)
	}

	compatible := 0
	for _, resource := range matches {
		if ttl <= resource.MaxLockDuration {
			compatible++
		}
	}

	if compatible < quantity {
		return nil, fmt.Errorf("%w: need %d compatible resources, found %d (ttl %v)",
			ErrImpossibleTTL, quantity, compatible, ttl)
	}

	now := m.now()

	reservation := &models.Reservation{
		ID:        "res_" + m.tokens(),
		Tags:      append([]string(nil), tags...),
		Quantity:  quantity,
		ClientID:  clientID,
		TTL:       ttl,
		CreatedAt: now,
		ExpiresAt: now.Add(maxWait),
		Status:    models.ReservationPending,
	}

	m.reservations[reservation.ID] = reservation
	m.reservationOrder = append(m.reservationOrder, reservation.ID)

	m.logger.
		WithField("reservation_id", reservation.ID).
		Infof("Reservation created: %d resource(s) tagged %v for client %q", quantity, tags, clientID)

	return reservation.Clone(), nil
}

// Reservation returns the reservation with the given id together with its
// 1-based position in the pending queue. Position is 0 for reservations
// that are no longer pending.
func (m *Manager) Reservation(id string) (*models.Reservation, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	reservation, ok := m.reservations[id]
	if !ok {
		return nil, 0, fmt.Errorf("%w: id %q", ErrReservationNotFound, id)
	}

	return reservation.Clone(), m.queuePositionLocked(id), nil
}

// Reservations returns all reservations in creation order. The returned
// positions parallel the reservations; non-pending entries have position 0.
func (m *Manager) Reservations() ([]*models.Reservation, []int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	reservations := make([]*models.Reservation, 0, len(m.reservationOrder))
	positions := make([]int, 0, len(m.reservationOrder))

	for _, id := range m.reservationOrder {
		reservations = append(reservations, m.reservations[id].Clone())
		positions = append(positions, m.queuePositionLocked(id))
	}

	return reservations, positions
}

// ClaimReservation transfers ownership of a fulfilled reservation's
// resources to the client. It returns the claimed reservation, carrying the
// lock tokens minted at fulfillment time, and snapshots of the allocated
// resources.
func (m *Manager) ClaimReservation(id string) (*models.Reservation, []*models.Resource, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	reservation, ok := m.reservations[id]
	if !ok {
		return nil, nil, fmt.Errorf("%w: id %q", ErrReservationNotFound, id)
	}

	switch reservation.Status {
	case models.ReservationPending:
		return nil, nil, fmt.Errorf("%w: id %q", ErrReservationNotFulfilled, id)
	case models.ReservationClaimed:
		return nil, nil, fmt.Errorf("%w: id %q", ErrReservationAlreadyClaimed, id)
	case models.ReservationCancelled:
		return nil, nil, fmt.Errorf("%w: id %q", ErrReservationCancelled, id)
	case models.ReservationExpired:
		return nil, nil, fmt.Errorf("%w: id %q", ErrReservationExpired, id)
	case models.ReservationFulfilled:
		// Claimable, handled below.
	}

	now := m.now()

	// The claim window may have lapsed between scheduler passes; the claim
	// itself is the observation point, so release here rather than hand out
	// dead locks.
	if reservation.ClaimExpiresAt != nil && !reservation.ClaimExpiresAt.After(now) {
		m.expireFulfilledLocked(reservation)

		return nil, nil, fmt.Errorf("%w: id %q", ErrClaimWindowExpired, id)
	}

	reservation.Status = models.ReservationClaimed
	reservation.ClaimedAt = &now

	resources := make([]*models.Resource, 0, len(reservation.ResourceIDs))

	for _, resourceID := range reservation.ResourceIDs {
		if resource, ok := m.resources[resourceID]; ok {
			resources = append(resources, resource.Clone())
		}
	}

	m.logger.
		WithField("reservation_id", reservation.ID).
		Infof("Reservation claimed: %d resource(s) now owned by client %q", len(resources), reservation.ClientID)

	return reservation.Clone(), resources, nil
}

// CancelReservation cancels a reservation that is still pending. Fulfilled
// reservations cannot be cancelled; the caller should claim instead. The
// cancelled reservation stays queryable as a terminal record.
func (m *Manager) CancelReservation(id string) (*models.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	reservation, ok := m.reservations[id]
	if !ok {
		return nil, fmt.Errorf("%w: id %q", ErrReservationNotFound, id)
	}

	if reservation.Status != models.ReservationPending {
		return nil, fmt.Errorf("%w: id %q is %s", ErrReservationNotCancellable, id, reservation.Status)
	}

	now := m.now()
	reservation.Status = models.ReservationCancelled
	reservation.CancelledAt = &now

	m.logger.WithField("reservation_id", reservation.ID).Info("Reservation cancelled")

	return reservation.Clone(), nil
}

// queuePositionLocked computes the 1-based FIFO position among pending
// reservations, or 0 when the reservation is not pending. Callers must hold
// m.mu.
func (m *Manager) queuePositionLocked(id string) int {
	reservation, ok := m.reservations[id]
	if !ok || reservation.Status != models.ReservationPending {
		return 0
	}

	position := 0

	for _, queuedID := range m.reservationOrder {
		if m.reservations[queuedID].Status != models.ReservationPending {
			continue
		}

		position++

		if queuedID == id {
			return position
		}
	}

	return 0
}
