package client_test

import (
	"context"
	"fmt"
	"io"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rentabot/rentabot/api"
	"github.com/rentabot/rentabot/client"
	"github.com/rentabot/rentabot/common"
	"github.com/rentabot/rentabot/config"
	"github.com/rentabot/rentabot/manager"
	"github.com/rentabot/rentabot/models"
)

// testLogger implements common.Logger for testing.
type testLogger struct{}

func (l *testLogger) Debug(msg string)                                      {}
func (l *testLogger) Debugf(format string, args ...interface{})             {}
func (l *testLogger) Info(msg string)                                       {}
func (l *testLogger) Infof(format string, args ...interface{})              {}
func (l *testLogger) Warnf(format string, args ...interface{})              {}
func (l *testLogger) Errorf(format string, args ...interface{})             {}
func (l *testLogger) WithField(key string, value interface{}) common.Logger { return l }
func (l *testLogger) HTTPLoggingHandler() io.Writer                         { return nil }

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

func sequentialTokens() common.TokenSource {
	counter := 0

	return func() string {
		counter++

		return fmt.Sprintf("token-%d", counter)
	}
}

// newTestCoordinator starts an in-process coordinator API and returns a
// connected client plus the manager driving it.
func newTestCoordinator(t *testing.T) (*client.Client, *manager.Manager, *fakeClock) {
	t.Helper()

	clock := newFakeClock()

	mgr, err := manager.New(config.NewManagerConfig(), &testLogger{},
		manager.WithClock(clock), manager.WithTokenSource(sequentialTokens()))
	require.NoError(t, err)

	require.NoError(t, mgr.Seed([]models.ResourceSpec{
		{Name: "coffee-machine", Endpoint: "tcp://192.168.1.50", Tags: "coffee, kitchen"},
		{Name: "sofa", Tags: "relax, kitchen"},
	}))

	server := httptest.NewServer(api.New(mgr, nil, &testLogger{}, config.NewAPIConfig()).Handler())
	t.Cleanup(server.Close)

	c, err := client.Connect(context.Background(), server.URL, &client.NoopLogger{}, client.RetryCount(0))
	require.NoError(t, err)

	return c, mgr, clock
}

func TestConnect_UnreachableServer(t *testing.T) {
	t.Parallel()

	_, err := client.Connect(context.Background(), "http://127.0.0.1:1", &client.NoopLogger{},
		client.RetryCount(0), client.RequestTimeout(time.Second))
	require.ErrorContains(t, err, "failed to ping coordinator API")
}

func TestConnect_EmptyBaseURL(t *testing.T) {
	t.Parallel()

	_, err := client.Connect(context.Background(), "", &client.NoopLogger{})
	require.ErrorContains(t, err, "base URL must be set")
}

func TestClient_Resources(t *testing.T) {
	t.Parallel()

	c, _, _ := newTestCoordinator(t)
	ctx := context.Background()

	resources, err := c.ListResources(ctx)
	require.NoError(t, err)
	require.Len(t, resources, 2)
	assert.Equal(t, "coffee-machine", resources[0].Name)
	assert.Equal(t, "tcp://192.168.1.50", resources[0].Endpoint)

	resource, err := c.GetResource(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "sofa", resource.Name)

	_, err = c.GetResource(ctx, 42)
	require.ErrorContains(t, err, "status code 404")

	matched, err := c.MatchResources(ctx, []string{"kitchen"})
	require.NoError(t, err)
	assert.Len(t, matched, 2)
}

func TestClient_LockLifecycle(t *testing.T) {
	t.Parallel()

	c, _, _ := newTestCoordinator(t)
	ctx := context.Background()

	locked, err := c.Lock(ctx, 1, 10*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "Resource locked", locked.Message)
	assert.NotEmpty(t, locked.LockToken)
	require.NotNil(t, locked.Resource)
	assert.Equal(t, locked.LockToken, locked.Resource.LockToken)

	// Locking an already-locked resource is definitive, not retried.
	_, err = c.Lock(ctx, 1, 10*time.Minute)
	require.ErrorContains(t, err, "status code 403")

	extended, err := c.Extend(ctx, 1, locked.LockToken, 20*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "Lock extended", extended.Message)
	assert.Equal(t, int64(1200), extended.TotalLockDuration)

	freed, err := c.Unlock(ctx, 1, locked.LockToken)
	require.NoError(t, err)
	assert.Empty(t, freed.LockToken)
}

func TestClient_LockByNameAndTags(t *testing.T) {
	t.Parallel()

	c, _, _ := newTestCoordinator(t)
	ctx := context.Background()

	byName, err := c.LockByName(ctx, "sofa", 10*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 2, byName.Resource.ID)

	byTags, err := c.LockByTags(ctx, []string{"kitchen"}, 10*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "coffee-machine", byTags.Resource.Name)

	_, err = c.LockByTags(ctx, []string{"kitchen"}, 10*time.Minute)
	require.ErrorContains(t, err, "status code 403")
}

func TestClient_ReservationLifecycle(t *testing.T) {
	t.Parallel()

	c, mgr, _ := newTestCoordinator(t)
	ctx := context.Background()

	reservation, err := c.CreateReservation(ctx, client.ReservationRequest{
		Tags:     []string{"kitchen"},
		Quantity: 2,
		TTL:      600,
		ClientID: "party",
	})
	require.NoError(t, err)
	assert.Equal(t, "pending", reservation.Status)
	require.NotNil(t, reservation.PositionInQueue)
	assert.Equal(t, 1, *reservation.PositionInQueue)

	listed, err := c.ListReservations(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, reservation.ReservationID, listed[0].ReservationID)

	require.Equal(t, 1, mgr.FulfillReservations())

	fetched, err := c.GetReservation(ctx, reservation.ReservationID)
	require.NoError(t, err)
	assert.Equal(t, "fulfilled", fetched.Status)
	assert.Len(t, fetched.LockTokens, 2)

	claimed, err := c.ClaimReservation(ctx, reservation.ReservationID)
	require.NoError(t, err)
	assert.Equal(t, "claimed", claimed.Status)
	require.Len(t, claimed.Resources, 2)
	assert.Equal(t, claimed.LockTokens[0], claimed.Resources[0].LockToken)

	// The claimed tokens unlock the resources like any client lock.
	freed, err := c.Unlock(ctx, claimed.Resources[0].ID, claimed.LockTokens[0])
	require.NoError(t, err)
	assert.Empty(t, freed.LockToken)
}

func TestClient_CancelReservation(t *testing.T) {
	t.Parallel()

	c, _, _ := newTestCoordinator(t)
	ctx := context.Background()

	reservation, err := c.CreateReservation(ctx, client.ReservationRequest{
		Tags:     []string{"kitchen"},
		Quantity: 1,
	})
	require.NoError(t, err)

	require.NoError(t, c.CancelReservation(ctx, reservation.ReservationID))

	cancelled, err := c.GetReservation(ctx, reservation.ReservationID)
	require.NoError(t, err)
	assert.Equal(t, "cancelled", cancelled.Status)

	err = c.CancelReservation(ctx, "res_missing")
	require.ErrorContains(t, err, "status code 404")
}

func TestClient_WaitForReservation(t *testing.T) {
	t.Parallel()

	c, mgr, _ := newTestCoordinator(t)
	ctx := context.Background()

	reservation, err := c.CreateReservation(ctx, client.ReservationRequest{
		Tags:     []string{"kitchen"},
		Quantity: 1,
	})
	require.NoError(t, err)

	// Fulfill in the background, as the coordinator's sweep loop would.
	go func() {
		time.Sleep(50 * time.Millisecond)
		mgr.FulfillReservations()
	}()

	claimed, err := c.WaitForReservation(ctx, reservation.ReservationID, 20*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, "claimed", claimed.Status)
	require.Len(t, claimed.Resources, 1)
}

func TestClient_WaitForReservation_TerminalState(t *testing.T) {
	t.Parallel()

	c, _, _ := newTestCoordinator(t)
	ctx := context.Background()

	reservation, err := c.CreateReservation(ctx, client.ReservationRequest{
		Tags:     []string{"kitchen"},
		Quantity: 1,
	})
	require.NoError(t, err)
	require.NoError(t, c.CancelReservation(ctx, reservation.ReservationID))

	_, err = c.WaitForReservation(ctx, reservation.ReservationID, 10*time.Millisecond)
	require.ErrorContains(t, err, "can no longer be claimed")
}
