package manager

import (
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rentabot/rentabot/common"
	"github.com/rentabot/rentabot/config"
	"github.com/rentabot/rentabot/models"
)

// testLogger implements common.Logger for testing.
type testLogger struct{}

func (l *testLogger) Debug(msg string)                                       {}
func (l *testLogger) Debugf(format string, args ...interface{})              {}
func (l *testLogger) Info(msg string)                                        {}
func (l *testLogger) Infof(format string, args ...interface{})               {}
func (l *testLogger) Warnf(format string, args ...interface{})               {}
func (l *testLogger) Errorf(format string, args ...interface{})              {}
func (l *testLogger) WithField(key string, value interface{}) common.Logger { return l }
func (l *testLogger) HTTPLoggingHandler() io.Writer                          { return nil }

// fakeClock is a manually advanced clock for driving expiry deterministically.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = c.now.Add(d)
}

// sequentialTokens returns a TokenSource producing token-1, token-2, ...
func sequentialTokens() common.TokenSource {
	counter := 0

	return func() string {
		counter++

		return fmt.Sprintf("token-%d", counter)
	}
}

func testSpecs() []models.ResourceSpec {
	return []models.ResourceSpec{
		{Name: "alpha", Description: "build agent", Endpoint: "ssh://alpha", Tags: "linux,docker"},
		{Name: "bravo", Tags: "linux"},
		{Name: "charlie", Tags: "windows,docker"},
		{Name: "delta"},
		{Name: "echo", Tags: "linux,ephemeral", MaxLockDuration: 30 * time.Minute},
	}
}

func newTestManager(t *testing.T, opts ...Option) (*Manager, *fakeClock) {
	t.Helper()

	clock := newFakeClock()

	allOpts := append([]Option{WithClock(clock), WithTokenSource(sequentialTokens())}, opts...)

	m, err := New(config.NewManagerConfig(), &testLogger{}, allOpts...)
	require.NoError(t, err)
	require.NoError(t, m.Seed(testSpecs()))

	return m, clock
}

func TestNew_NilLogger(t *testing.T) {
	t.Parallel()

	_, err := New(config.NewManagerConfig(), nil)
	require.EqualError(t, err, "logger cannot be nil")
}

func TestNew_NilConfigUsesDefaults(t *testing.T) {
	t.Parallel()

	m, err := New(nil, &testLogger{})
	require.NoError(t, err)
	assert.Equal(t, config.DefaultSweepInterval, m.cfg.SweepInterval)
	assert.Equal(t, config.DefaultClaimWindow, m.cfg.ClaimWindow)
}

func TestNew_InvalidConfig(t *testing.T) {
	t.Parallel()

	cfg := config.NewManagerConfig()
	cfg.SweepInterval = -time.Second

	_, err := New(cfg, &testLogger{})
	require.ErrorContains(t, err, "invalid manager configuration")
}

func TestSeed_AssignsSequentialIDs(t *testing.T) {
	t.Parallel()

	m, _ := newTestManager(t)

	resources := m.Resources()
	require.Len(t, resources, 5)

	for i, resource := range resources {
		assert.Equal(t, i+1, resource.ID)
		assert.False(t, resource.Locked())
		assert.Equal(t, "Resource is available", resource.LockDetails)
	}

	assert.Equal(t, "alpha", resources[0].Name)
	assert.Equal(t, "echo", resources[4].Name)
}

func TestSeed_DefaultMaxLockDuration(t *testing.T) {
	t.Parallel()

	m, _ := newTestManager(t)

	alpha, err := m.FindResource("alpha")
	require.NoError(t, err)
	assert.Equal(t, config.DefaultMaxLockDuration, alpha.MaxLockDuration)

	echo, err := m.FindResource("echo")
	require.NoError(t, err)
	assert.Equal(t, 30*time.Minute, echo.MaxLockDuration)
}

func TestSeed_DuplicateName(t *testing.T) {
	t.Parallel()

	m, err := New(config.NewManagerConfig(), &testLogger{})
	require.NoError(t, err)

	err = m.Seed([]models.ResourceSpec{{Name: "alpha"}, {Name: "alpha"}})
	require.ErrorContains(t, err, `duplicate resource name "alpha"`)
}

func TestSeed_EmptyName(t *testing.T) {
	t.Parallel()

	m, err := New(config.NewManagerConfig(), &testLogger{})
	require.NoError(t, err)

	err = m.Seed([]models.ResourceSpec{{Name: ""}})
	require.EqualError(t, err, "resource name cannot be empty")
}

func TestResource_NotFound(t *testing.T) {
	t.Parallel()

	m, _ := newTestManager(t)

	_, err := m.Resource(42)
	require.ErrorIs(t, err, ErrResourceNotFound)
}

func TestFindResource_NotFound(t *testing.T) {
	t.Parallel()

	m, _ := newTestManager(t)

	_, err := m.FindResource("zulu")
	require.ErrorIs(t, err, ErrResourceNotFound)
}

func TestMatchResources(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		tags      []string
		wantNames []string
	}{
		{
			name:      "single tag",
			tags:      []string{"linux"},
			wantNames: []string{"alpha", "bravo", "echo"},
		},
		{
			name:      "multiple tags narrow the match",
			tags:      []string{"linux", "docker"},
			wantNames: []string{"alpha"},
		},
		{
			name:      "no match",
			tags:      []string{"macos"},
			wantNames: nil,
		},
		{
			name:      "untagged resources never match",
			tags:      []string{""},
			wantNames: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			m, _ := newTestManager(t)

			matches := m.MatchResources(tt.tags)

			names := make([]string, 0, len(matches))
			for _, resource := range matches {
				names = append(names, resource.Name)
			}

			if tt.wantNames == nil {
				assert.Empty(t, names)
			} else {
				assert.Equal(t, tt.wantNames, names)
			}
		})
	}
}

func TestResources_ReturnsCopies(t *testing.T) {
	t.Parallel()

	m, _ := newTestManager(t)

	first := m.Resources()[0]
	first.Name = "mutated"
	first.LockToken = "stolen"

	again := m.Resources()[0]
	assert.Equal(t, "alpha", again.Name)
	assert.False(t, again.Locked())
}
