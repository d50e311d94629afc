package manager

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSweepExpiredLocks(t *testing.T) {
	t.Parallel()

	m, clock := newTestManager(t)

	_, _, err := m.Lock(1, 10*time.Minute)
	require.NoError(t, err)

	_, _, err = m.Lock(2, time.Hour)
	require.NoError(t, err)

	// Nothing has expired yet.
	assert.Equal(t, 0, m.SweepExpiredLocks())

	clock.Advance(10 * time.Minute)

	// The deadline itself counts as expired; only the short lease goes.
	assert.Equal(t, 1, m.SweepExpiredLocks())

	alpha, err := m.Resource(1)
	require.NoError(t, err)
	assert.False(t, alpha.Locked())
	assert.Contains(t, alpha.LockDetails, "Auto-expired at")

	bravo, err := m.Resource(2)
	require.NoError(t, err)
	assert.True(t, bravo.Locked())
}

func TestSweepExpiredLocks_StaleTokenRejectedAfterSweep(t *testing.T) {
	t.Parallel()

	m, clock := newTestManager(t)

	token, _, err := m.Lock(1, 10*time.Minute)
	require.NoError(t, err)

	clock.Advance(11 * time.Minute)
	require.Equal(t, 1, m.SweepExpiredLocks())

	// The old credential is worthless once the lease is gone.
	_, err = m.Unlock(1, token)
	require.ErrorIs(t, err, ErrResourceAlreadyUnlocked)

	_, err = m.Extend(1, token, time.Hour)
	require.ErrorIs(t, err, ErrResourceAlreadyUnlocked)
}

func TestSweepExpiredLocks_FreedResourceLockableAgain(t *testing.T) {
	t.Parallel()

	m, clock := newTestManager(t)

	oldToken, _, err := m.Lock(1, 10*time.Minute)
	require.NoError(t, err)

	clock.Advance(11 * time.Minute)
	require.Equal(t, 1, m.SweepExpiredLocks())

	newToken, resource, err := m.Lock(1, time.Hour)
	require.NoError(t, err)
	assert.NotEqual(t, oldToken, newToken)
	assert.True(t, resource.Locked())
}

func TestSweepExpiredLocks_Idempotent(t *testing.T) {
	t.Parallel()

	m, clock := newTestManager(t)

	_, _, err := m.Lock(1, 10*time.Minute)
	require.NoError(t, err)

	clock.Advance(11 * time.Minute)
	assert.Equal(t, 1, m.SweepExpiredLocks())
	assert.Equal(t, 0, m.SweepExpiredLocks())
}
