package manager

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rentabot/rentabot/common"
	"github.com/rentabot/rentabot/config"
	"github.com/rentabot/rentabot/models"
)

// Manager is the single in-process authority for resource and reservation
// state. Every mutating path, client operations as well as the background
// sweep and fulfillment scan, serializes through one mutex, so each
// operation's read-check-then-write sequence is atomic with respect to every
// other mutator. Read operations take the same mutex briefly and return
// copies.
type Manager struct {
	mu sync.Mutex

	resources       map[int]*models.Resource
	resourceOrder   []int
	resourcesByName map[string]int
	nextResourceID  int

	reservations     map[string]*models.Reservation
	reservationOrder []string

	clock  common.Clock
	tokens common.TokenSource
	logger common.Logger
	audit  *AuditTrail
	cfg    *config.ManagerConfig
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock replaces the wall clock, for deterministic tests.
func WithClock(clock common.Clock) Option {
	return func(m *Manager) {
		m.clock = clock
	}
}

// WithTokenSource replaces the lock-token and reservation-id generator.
func WithTokenSource(tokens common.TokenSource) Option {
	return func(m *Manager) {
		m.tokens = tokens
	}
}

// New creates a Manager. The configuration is validated after defaults are
// applied; the logger cannot be nil.
func New(cfg *config.ManagerConfig, logger common.Logger, opts ...Option) (*Manager, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	if cfg == nil {
		cfg = config.NewManagerConfig()
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid manager configuration: %w", err)
	}

	m := &Manager{
		resources:       make(map[int]*models.Resource),
		resourcesByName: make(map[string]int),
		nextResourceID:  1,
		reservations:    make(map[string]*models.Reservation),
		clock:           common.SystemClock(),
		tokens:          common.KSUIDTokenSource(),
		logger:          logger,
		cfg:             cfg,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.audit = NewAuditTrail(cfg.AuditRetention, m.clock)

	return m, nil
}

// Seed registers the given resource specs, in order, assigning sequential
// ids starting at 1. Seed is called once at startup, before any client
// traffic; resources are never added or removed afterwards.
func (m *Manager) Seed(specs []models.ResourceSpec) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, spec := range specs {
		if spec.Name == "" {
			return errors.New("resource name cannot be empty")
		}

		if _, exists := m.resourcesByName[spec.Name]; exists {
			return fmt.Errorf("duplicate resource name %q", spec.Name)
		}

		maxLockDuration := spec.MaxLockDuration
		if maxLockDuration == 0 {
			maxLockDuration = m.cfg.DefaultMaxLockDuration
		}

		resource := &models.Resource{
			ID:              m.nextResourceID,
			Name:            spec.Name,
			Description:     spec.Description,
			Endpoint:        spec.Endpoint,
			Tags:            spec.Tags,
			LockDetails:     "Resource is available",
			MaxLockDuration: maxLockDuration,
		}

		m.resources[resource.ID] = resource
		m.resourceOrder = append(m.resourceOrder, resource.ID)
		m.resourcesByName[resource.Name] = resource.ID
		m.nextResourceID++

		m.logger.WithField("resource_id", resource.ID).Debugf("Registered resource %q", resource.Name)
	}

	m.logger.Infof("Registered %d resource(s)", len(specs))

	return nil
}

// Audit returns the lock-release audit trail.
func (m *Manager) Audit() *AuditTrail {
	return m.audit
}

// Run drives the background tasks until the context is cancelled: the
// expiration sweeper, the claim-window check, and the fulfillment scheduler,
// in that order on every tick. The first pass runs immediately. Per-item
// failures are logged and never abort a pass.
func (m *Manager) Run(ctx context.Context) error {
	m.logger.Infof("Background sweep started (interval %v)", m.cfg.SweepInterval)
	defer m.logger.Info("Background sweep stopped")

	ticker := time.NewTicker(m.cfg.SweepInterval)
	defer ticker.Stop()

	m.runOnce()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			m.runOnce()
		}
	}
}

// runOnce performs a single pass of all background work. Expired leases and
// abandoned claim windows are released first so the fulfillment scan sees
// the freed resources in the same pass.
func (m *Manager) runOnce() {
	expired := m.SweepExpiredLocks()
	released := m.ReleaseUnclaimed()
	fulfilled := m.FulfillReservations()

	if expired > 0 || released > 0 || fulfilled > 0 {
		m.logger.
			WithField("expired_locks", expired).
			WithField("released_reservations", released).
			WithField("fulfilled_reservations", fulfilled).
			Info("Background sweep pass")
	}
}

// now returns the current time from the injected clock, in UTC.
func (m *Manager) now() time.Time {
	return m.clock.Now().UTC()
}
