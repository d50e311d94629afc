package config

import (
	"fmt"
	"time"
)

// Validation constants for ManagerConfig interval fields.
const (
	// MinSweepInterval is the minimum allowed background sweep interval.
	// Sweeping more often than once per second buys no precision (lease
	// deadlines are second-granular on the wire) and keeps the registry
	// mutex needlessly busy.
	MinSweepInterval = time.Second

	// MaxSweepInterval is the maximum allowed background sweep interval.
	// Expired leases and fulfillable reservations are only observed on
	// sweep, so a long interval directly delays both.
	MaxSweepInterval = 5 * time.Minute

	// DefaultSweepInterval is the default interval for the expiration
	// sweeper and the fulfillment scheduler. Both run on the same tick.
	DefaultSweepInterval = 10 * time.Second

	// MinClaimWindow is the minimum allowed claim window.
	MinClaimWindow = 5 * time.Second

	// MaxClaimWindow is the maximum allowed claim window. A fulfilled
	// reservation holds real locks on real resources; an unclaimed one
	// must give them back within a bounded time.
	MaxClaimWindow = 15 * time.Minute

	// DefaultClaimWindow is the grace period a client has to claim a
	// fulfilled reservation before its resources return to the pool.
	DefaultClaimWindow = 60 * time.Second
)

// Default lease durations.
const (
	// DefaultLockTTL is applied when a lock request carries no ttl.
	DefaultLockTTL = time.Hour

	// DefaultReservationTTL is applied when a reservation carries no ttl.
	DefaultReservationTTL = time.Hour

	// DefaultMaxWaitTime is applied when a reservation carries no
	// max-wait-time. A reservation still pending after this long expires.
	DefaultMaxWaitTime = time.Hour

	// DefaultMaxLockDuration is the per-resource lease ceiling applied to
	// descriptor entries that do not set their own.
	DefaultMaxLockDuration = 24 * time.Hour

	// DefaultAuditRetention is how long release events are kept in the
	// audit trail before they are evicted.
	DefaultAuditRetention = 24 * time.Hour
)

// ManagerConfig holds configuration for the resource coordinator core:
// the background sweep cadence, the claim window, and the defaults applied
// to requests that omit their optional durations. These settings cannot be
// changed after startup.
type ManagerConfig struct {
	// SweepInterval is how often the background loop runs the expiration
	// sweep, the fulfillment scan, and the claim-window check.
	SweepInterval time.Duration `json:"sweepInterval" yaml:"sweepInterval"`

	// ClaimWindow is how long a client has to claim a fulfilled
	// reservation before it expires and its resources are released.
	ClaimWindow time.Duration `json:"claimWindow" yaml:"claimWindow"`

	// DefaultLockTTL is the lease duration applied to lock requests that
	// do not specify one.
	DefaultLockTTL time.Duration `json:"defaultLockTtl" yaml:"defaultLockTtl"`

	// DefaultReservationTTL is the lease duration applied to reservations
	// that do not specify one.
	DefaultReservationTTL time.Duration `json:"defaultReservationTtl" yaml:"defaultReservationTtl"`

	// DefaultMaxWaitTime is the queue-wait deadline applied to
	// reservations that do not specify one.
	DefaultMaxWaitTime time.Duration `json:"defaultMaxWaitTime" yaml:"defaultMaxWaitTime"`

	// DefaultMaxLockDuration is the per-resource lease ceiling applied to
	// descriptor entries without an explicit max-lock-duration.
	DefaultMaxLockDuration time.Duration `json:"defaultMaxLockDuration" yaml:"defaultMaxLockDuration"`

	// AuditRetention is how long lock-release events stay queryable in the
	// audit trail.
	AuditRetention time.Duration `json:"auditRetention" yaml:"auditRetention"`
}

// NewManagerConfig returns a ManagerConfig with every field at its default.
func NewManagerConfig() *ManagerConfig {
	return &ManagerConfig{
		SweepInterval:          DefaultSweepInterval,
		ClaimWindow:            DefaultClaimWindow,
		DefaultLockTTL:         DefaultLockTTL,
		DefaultReservationTTL:  DefaultReservationTTL,
		DefaultMaxWaitTime:     DefaultMaxWaitTime,
		DefaultMaxLockDuration: DefaultMaxLockDuration,
		AuditRetention:         DefaultAuditRetention,
	}
}

// ApplyDefaults fills in zero-valued fields with their defaults.
func (c *ManagerConfig) ApplyDefaults() {
	defaults := NewManagerConfig()

	if c.SweepInterval == 0 {
		c.SweepInterval = defaults.SweepInterval
	}

	if c.ClaimWindow == 0 {
		c.ClaimWindow = defaults.ClaimWindow
	}

	if c.DefaultLockTTL == 0 {
		c.DefaultLockTTL = defaults.DefaultLockTTL
	}

	if c.DefaultReservationTTL == 0 {
		c.DefaultReservationTTL = defaults.DefaultReservationTTL
	}

	if c.DefaultMaxWaitTime == 0 {
		c.DefaultMaxWaitTime = defaults.DefaultMaxWaitTime
	}

	if c.DefaultMaxLockDuration == 0 {
		c.DefaultMaxLockDuration = defaults.DefaultMaxLockDuration
	}

	if c.AuditRetention == 0 {
		c.AuditRetention = defaults.AuditRetention
	}
}

// Validate validates the ManagerConfig and returns an error if any fields
// are invalid.
func (c *ManagerConfig) Validate() error {
	if c.SweepInterval < MinSweepInterval || c.SweepInterval > MaxSweepInterval {
		return fmt.Errorf("sweep interval must be between %v and %v", MinSweepInterval, MaxSweepInterval)
	}

	if c.ClaimWindow < MinClaimWindow || c.ClaimWindow > MaxClaimWindow {
		return fmt.Errorf("claim window must be between %v and %v", MinClaimWindow, MaxClaimWindow)
	}

	if c.DefaultLockTTL <= 0 {
		return fmt.Errorf("default lock ttl must be positive, got %v", c.DefaultLockTTL)
	}

	if c.DefaultReservationTTL <= 0 {
		return fmt.Errorf("default reservation ttl must be positive, got %v", c.DefaultReservationTTL)
	}

	if c.DefaultMaxWaitTime <= 0 {
		return fmt.Errorf("default max wait time must be positive, got %v", c.DefaultMaxWaitTime)
	}

	if c.DefaultMaxLockDuration <= 0 {
		return fmt.Errorf("default max lock duration must be positive, got %v", c.DefaultMaxLockDuration)
	}

	if c.AuditRetention <= 0 {
		return fmt.Errorf("audit retention must be positive, got %v", c.AuditRetention)
	}

	return nil
}
