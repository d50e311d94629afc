package manager

import (
	"fmt"
	"time"
)

// SweepExpiredLocks releases every lease whose deadline has passed and
// returns the number of resources freed. A lease released by a concurrent
// client unlock is simply not seen here; the sweep is idempotent per
// resource and a failure on one resource never stops the scan.
func (m *Manager) SweepExpiredLocks() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	expired := 0

	for _, id := range m.resourceOrder {
		resource := m.resources[id]

		if !resource.Locked() || resource.LockExpiresAt == nil {
			continue
		}

		if resource.LockExpiresAt.After(now) {
			continue
		}

		details := fmt.Sprintf("Auto-expired at %s", now.Format(time.RFC3339))
		m.releaseLocked(resource, ReleaseReasonExpired, details, "")

		m.logger.WithField("resource_id", resource.ID).Infof("Lock on resource %q auto-expired", resource.Name)

		expired++
	}

	return expired
}
