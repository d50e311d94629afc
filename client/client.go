// Package client is a Go client for the rentabot resource coordinator API.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"
)

// Client talks to a running coordinator.
type Client struct {
	rest *restClient
}

// Connect creates a Client for the coordinator at baseURL and verifies
// connectivity with a ping.
func Connect(ctx context.Context, baseURL string, logger Logger, clientOptions ...Options) (*Client, error) {
	options := newClientOptions()

	for _, o := range clientOptions {
		o(options)
	}

	rest, err := newRestClient(baseURL, logger, options)
	if err != nil {
		return nil, fmt.Errorf("failed to create rest client: %w", err)
	}

	if err := rest.ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping coordinator API: %w", err)
	}

	return &Client{rest: rest}, nil
}

// ListResources returns every resource in the pool.
func (c *Client) ListResources(ctx context.Context) ([]Resource, error) {
	body, err := c.rest.get(ctx, "api/v1/resources", nil)
	if err != nil {
		return nil, err
	}

	response := struct {
		Resources []Resource `json:"resources"`
	}{}

	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to unmarshal resource list: %w", err)
	}

	return response.Resources, nil
}

// GetResource returns the resource with the given id.
func (c *Client) GetResource(ctx context.Context, id int) (*Resource, error) {
	body, err := c.rest.get(ctx, "api/v1/resources/"+strconv.Itoa(id), nil)
	if err != nil {
		return nil, err
	}

	response := struct {
		Resource *Resource `json:"resource"`
	}{}

	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to unmarshal resource: %w", err)
	}

	return response.Resource, nil
}

// MatchResources returns the resources whose tags contain every given tag.
func (c *Client) MatchResources(ctx context.Context, tags []string) ([]Resource, error) {
	body, err := c.rest.get(ctx, "api/v1/resources/match", url.Values{"tag": tags})
	if err != nil {
		return nil, err
	}

	response := struct {
		Resources []Resource `json:"resources"`
	}{}

	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to unmarshal matched resources: %w", err)
	}

	return response.Resources, nil
}

// Lock acquires a lease on the resource with the given id. A zero ttl takes
// the server default.
func (c *Client) Lock(ctx context.Context, id int, ttl time.Duration) (*LockResult, error) {
	return c.lock(ctx, "api/v1/resources/"+strconv.Itoa(id)+"/lock", nil, ttl)
}

// LockByName locks the resource with the given name.
func (c *Client) LockByName(ctx context.Context, name string, ttl time.Duration) (*LockResult, error) {
	return c.lock(ctx, "api/v1/resources/lock", url.Values{"name": {name}}, ttl)
}

// LockByTags locks the first available resource matching every given tag.
func (c *Client) LockByTags(ctx context.Context, tags []string, ttl time.Duration) (*LockResult, error) {
	return c.lock(ctx, "api/v1/resources/lock", url.Values{"tag": tags}, ttl)
}

func (c *Client) lock(ctx context.Context, path string, queryParams url.Values, ttl time.Duration) (*LockResult, error) {
	var body interface{}

	if ttl > 0 {
		body = map[string]int64{"ttl": int64(ttl / time.Second)}
	}

	data, err := c.rest.post(ctx, path, queryParams, body)
	if err != nil {
		return nil, err
	}

	result := &LockResult{}

	if err := json.Unmarshal(data, result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal lock result: %w", err)
	}

	return result, nil
}

// Unlock releases the lease identified by token.
func (c *Client) Unlock(ctx context.Context, id int, token string) (*Resource, error) {
	path := "api/v1/resources/" + strconv.Itoa(id) + "/unlock"

	data, err := c.rest.post(ctx, path, url.Values{"lock-token": {token}}, nil)
	if err != nil {
		return nil, err
	}

	response := struct {
		Resource *Resource `json:"resource"`
	}{}

	if err := json.Unmarshal(data, &response); err != nil {
		return nil, fmt.Errorf("failed to unmarshal unlock result: %w", err)
	}

	return response.Resource, nil
}

// Extend pushes the lease deadline to now + additional.
func (c *Client) Extend(ctx context.Context, id int, token string, additional time.Duration) (*ExtendResult, error) {
	path := "api/v1/resources/" + strconv.Itoa(id) + "/extend"

	queryParams := url.Values{
		"lock-token":     {token},
		"additional-ttl": {strconv.FormatInt(int64(additional/time.Second), 10)},
	}

	data, err := c.rest.post(ctx, path, queryParams, nil)
	if err != nil {
		return nil, err
	}

	result := &ExtendResult{}

	if err := json.Unmarshal(data, result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal extend result: %w", err)
	}

	return result, nil
}

// CreateReservation queues a reservation and returns it, pending.
func (c *Client) CreateReservation(ctx context.Context, request ReservationRequest) (*Reservation, error) {
	data, err := c.rest.post(ctx, "api/v1/reservations", nil, request)
	if err != nil {
		return nil, err
	}

	reservation := &Reservation{}

	if err := json.Unmarshal(data, reservation); err != nil {
		return nil, fmt.Errorf("failed to unmarshal reservation: %w", err)
	}

	return reservation, nil
}

// GetReservation returns the reservation with the given id.
func (c *Client) GetReservation(ctx context.Context, id string) (*Reservation, error) {
	data, err := c.rest.get(ctx, "api/v1/reservations/"+id, nil)
	if err != nil {
		return nil, err
	}

	reservation := &Reservation{}

	if err := json.Unmarshal(data, reservation); err != nil {
		return nil, fmt.Errorf("failed to unmarshal reservation: %w", err)
	}

	return reservation, nil
}

// ListReservations returns all reservations, oldest first.
func (c *Client) ListReservations(ctx context.Context) ([]Reservation, error) {
	data, err := c.rest.get(ctx, "api/v1/reservations", nil)
	if err != nil {
		return nil, err
	}

	response := struct {
		Reservations []Reservation `json:"reservations"`
	}{}

	if err := json.Unmarshal(data, &response); err != nil {
		return nil, fmt.Errorf("failed to unmarshal reservation list: %w", err)
	}

	return response.Reservations, nil
}

// ClaimReservation claims a fulfilled reservation, transferring the lock
// tokens to the caller.
func (c *Client) ClaimReservation(ctx context.Context, id string) (*ClaimResult, error) {
	data, err := c.rest.post(ctx, "api/v1/reservations/"+id+"/claim", nil, nil)
	if err != nil {
		return nil, err
	}

	result := &ClaimResult{}

	if err := json.Unmarshal(data, result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal claim result: %w", err)
	}

	return result, nil
}

// CancelReservation cancels a pending reservation.
func (c *Client) CancelReservation(ctx context.Context, id string) error {
	return c.rest.delete(ctx, "api/v1/reservations/"+id)
}

// WaitForReservation polls until the reservation is fulfilled and then
// claims it. It returns an error when the reservation reaches a terminal
// state without being claimable, or when the context is cancelled.
func (c *Client) WaitForReservation(ctx context.Context, id string, pollInterval time.Duration) (*ClaimResult, error) {
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		reservation, err := c.GetReservation(ctx, id)
		if err != nil {
			return nil, err
		}

		switch reservation.Status {
		case "fulfilled":
			return c.ClaimReservation(ctx, id)
		case "pending":
			// Keep polling.
		default:
			return nil, fmt.Errorf("reservation %s is %s and can no longer be claimed", id, reservation.Status)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
