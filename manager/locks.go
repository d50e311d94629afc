package manager

import (
	"fmt"
	"time"

	"github.com/rentabot/rentabot/models"
)

// Criteria selects a resource for LockByCriteria. Exactly one of the fields
// is used: ID takes priority over Name, Name over Tags.
type Criteria struct {
	ID   int
	Name string
	Tags []string
}

// Lock acquires an exclusive lease on the resource for the given ttl. It
// returns the freshly generated lock token and a snapshot of the locked
// resource.
func (m *Manager) Lock(id int, ttl time.Duration) (string, *models.Resource, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	resource, err := m.resourceLocked(id)
	if err != nil {
		return "", nil, err
	}

	if err := m.lockLocked(resource, ttl); err != nil {
		return "", nil, err
	}

	m.logger.WithField("resource_id", resource.ID).Infof("Resource %q locked for %v", resource.Name, ttl)

	return resource.LockToken, resource.Clone(), nil
}

// LockByCriteria resolves a candidate set (id over name over tags) and locks
// the first available candidate in registration order. With tag criteria it
// returns ErrResourceNotFound when nothing matches at all and
// ErrNoAvailableResource when every match is already locked.
func (m *Manager) LockByCriteria(criteria Criteria, ttl time.Duration) (string, *models.Resource, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var candidate *models.Resource

	switch {
	case criteria.ID != 0:
		resource, err := m.resourceLocked(criteria.ID)
		if err != nil {
			return "", nil, err
		}

		candidate = resource

	case criteria.Name != "":
		id, ok := m.resourcesByName[criteria.Name]
		if !ok {
			return "", nil, fmt.Errorf("%w: name %q", ErrResourceNotFound, criteria.Name)
		}

		candidate = m.resources[id]

	case len(criteria.Tags) > 0:
		matches := m.matchLocked(criteria.Tags)
		if len(matches) == 0 {
			return "", nil, fmt.Errorf("%w: tags %v", ErrResourceNotFound, criteria.Tags)
		}

		for _, resource := range matches {
			if !resource.Locked() {
				candidate = resource
				break
			}
		}

		if candidate == nil {
			return "", nil, fmt.Errorf("%w: tags %v", ErrNoAvailableResource, criteria.Tags)
		}

	default:
		return "", nil, fmt.Errorf("%w: no criteria given", ErrNoAvailableResource)
	}

	if err := m.lockLocked(candidate, ttl); err != nil {
		return "", nil, err
	}

	m.logger.WithField("resource_id", candidate.ID).Infof("Resource %q locked by criteria for %v", candidate.Name, ttl)

	return candidate.LockToken, candidate.Clone(), nil
}

// Unlock releases the lease identified by token and returns a snapshot of
// the freed resource.
func (m *Manager) Unlock(id int, token string) (*models.Resource, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	resource, err := m.resourceLocked(id)
	if err != nil {
		return nil, err
	}

	if !resource.Locked() {
		return nil, fmt.Errorf("%w: id %d", ErrResourceAlreadyUnlocked, id)
	}

	if resource.LockToken != token {
		return nil, fmt.Errorf("%w: id %d", ErrInvalidLockToken, id)
	}

	m.releaseLocked(resource, ReleaseReasonClient, "Resource available", "")

	m.logger.WithField("resource_id", resource.ID).Infof("Resource %q unlocked", resource.Name)

	return resource.Clone(), nil
}

// Extend pushes the lease deadline to now + additional, keeping the original
// acquisition time. The new cumulative duration from acquisition may not
// exceed the resource's maximum lock duration.
func (m *Manager) Extend(id int, token string, additional time.Duration) (*models.Resource, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	resource, err := m.resourceLocked(id)
	if err != nil {
		return nil, err
	}

	if !resource.Locked() {
		return nil, fmt.Errorf("%w: id %d", ErrResourceAlreadyUnlocked, id)
	}

	if resource.LockToken != token {
		return nil, fmt.Errorf("%w: id %d", ErrInvalidLockToken, id)
	}

	if additional <= 0 {
		return nil, fmt.Errorf("%w: got %v", ErrInvalidTTL, additional)
	}

	now := m.now()
	newExpiry := now.Add(additional)

	if newExpiry.Sub(*resource.LockAcquiredAt) > resource.MaxLockDuration {
		return nil, fmt.Errorf("%w: extending by %v would exceed maximum allowed %v for resource %d",
			ErrTTLExceedsMax, additional, resource.MaxLockDuration, id)
	}

	resource.LockExpiresAt = &newExpiry

	m.logger.WithField("resource_id", resource.ID).Infof("Resource %q lock extended until %s", resource.Name, newExpiry.Format(time.RFC3339))

	return resource.Clone(), nil
}

// LockMany atomically acquires quantity resources matching tags, each with
// the given ttl. The whole attempt runs in one critical section: either
// exactly quantity resources end up locked, or every acquisition made by
// this call is rolled back and ErrInsufficientResources is returned.
func (m *Manager) LockMany(tags []string, quantity int, ttl time.Duration) ([]*models.Resource, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.lockManyLocked(tags, quantity, ttl)
}

// lockManyLocked is LockMany inside an already-held critical section, for
// the fulfillment scheduler. Callers must hold m.mu.
func (m *Manager) lockManyLocked(tags []string, quantity int, ttl time.Duration) ([]*models.Resource, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidQuantity, quantity)
	}

	// Candidates come back in registration order, so acquisition order is
	// ascending id for every multi-lock attempt.
	matches := m.matchLocked(tags)

	acquired := make([]*models.Resource, 0, quantity)

	for _, resource := range matches {
		if len(acquired) == quantity {
			break
		}

		if resource.Locked() {
			continue
		}

		if err := m.lockLocked(resource, ttl); err != nil {
			// Resource cannot hold this ttl; try the next candidate.
			continue
		}

		acquired = append(acquired, resource)
	}

	if len(acquired) < quantity {
		// Full rollback: no resource stays locked from a failed attempt.
		for _, resource := range acquired {
			resource.LockToken = ""
			resource.LockDetails = "Resource is available"
			resource.LockAcquiredAt = nil
			resource.LockExpiresAt = nil
		}

		return nil, fmt.Errorf("%w: need %d matching tags %v, locked %d before rollback",
			ErrInsufficientResources, quantity, tags, len(acquired))
	}

	clones := make([]*models.Resource, 0, quantity)
	for _, resource := range acquired {
		clones = append(clones, resource.Clone())
	}

	return clones, nil
}

// lockLocked validates the ttl and writes the lease onto a live resource.
// Callers must hold m.mu.
func (m *Manager) lockLocked(resource *models.Resource, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("%w: got %v", ErrInvalidTTL, ttl)
	}

	if ttl > resource.MaxLockDuration {
		return fmt.Errorf("%w: requested %v exceeds maximum allowed duration %v for resource %d",
			ErrTTLExceedsMax, ttl, resource.MaxLockDuration, resource.ID)
	}

	if resource.Locked() {
		return fmt.Errorf("%w: id %d", ErrResourceAlreadyLocked, resource.ID)
	}

	now := m.now()
	expires := now.Add(ttl)

	resource.LockToken = m.tokens()
	resource.LockDetails = "Resource locked"
	resource.LockAcquiredAt = &now
	resource.LockExpiresAt = &expires

	return nil
}

// releaseLocked clears the lease on a live resource and records the release
// in the audit trail. The reservation id is empty unless the release stems
// from a reservation's claim window. Callers must hold m.mu.
func (m *Manager) releaseLocked(resource *models.Resource, reason ReleaseReason, details, reservationID string) {
	resource.LockToken = ""
	resource.LockDetails = details
	resource.LockAcquiredAt = nil
	resource.LockExpiresAt = nil

	m.audit.Record(ReleaseEvent{
		ResourceID:    resource.ID,
		ResourceName:  resource.Name,
		ReservationID: reservationID,
		Reason:        reason,
		Details:       details,
		ReleasedAt:    m.now(),
	})
}
