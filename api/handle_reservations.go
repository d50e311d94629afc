package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/rentabot/rentabot/manager"
)

// createReservationRequest is the JSON body for reservation creation.
// Durations are in seconds; zero values take the configured defaults.
type createReservationRequest struct {
	Tags        []string `json:"tags"`
	Quantity    int      `json:"quantity"`
	TTL         int64    `json:"ttl"`
	MaxWaitTime int64    `json:"max_wait_time"`
	ClientID    string   `json:"client_id"`
}

func (s *Server) createReservation(w http.ResponseWriter, r *http.Request) {
	if !s.allowRequest(r) {
		s.writeTooManyRequests(w)
		return
	}

	request := createReservationRequest{}

	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		s.writeErrorResponse(w, fmt.Errorf("%w: malformed request body", manager.ErrInvalidReservationTags))
		return
	}

	if request.ClientID == "" {
		request.ClientID = r.Header.Get("X-Client-Id")
	}

	reservation, err := s.manager.CreateReservation(
		request.Tags,
		request.Quantity,
		time.Duration(request.TTL)*time.Second,
		time.Duration(request.MaxWaitTime)*time.Second,
		request.ClientID,
	)
	if err != nil {
		s.writeErrorResponse(w, err)
		return
	}

	// A freshly created reservation is the pending tail of the queue.
	_, position, err := s.manager.Reservation(reservation.ID)
	if err != nil {
		position = 0
	}

	s.writeJSON(w, http.StatusCreated, newReservationView(reservation, position))
}

func (s *Server) getReservation(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["reservationId"]

	// Terminal reservations never change, so their serialized responses are
	// served from cache.
	if data, ok := s.reservationCache.Get(r.Context(), id); ok {
		s.writeJSONBytes(w, http.StatusOK, data)
		return
	}

	reservation, position, err := s.manager.Reservation(id)
	if err != nil {
		s.writeErrorResponse(w, err)
		return
	}

	view := newReservationView(reservation, position)

	data, err := json.MarshalIndent(view, "", "  ")
	if err != nil {
		s.logger.Errorf("Failed to marshal reservation: %s", err)
		w.WriteHeader(http.StatusInternalServerError)

		return
	}

	if reservation.Status.Terminal() {
		s.reservationCache.Set(r.Context(), id, data, terminalReservationCacheTTL)
	}

	s.writeJSONBytes(w, http.StatusOK, data)
}

func (s *Server) listReservations(w http.ResponseWriter, _ *http.Request) {
	reservations, positions := s.manager.Reservations()

	views := make([]reservationView, 0, len(reservations))
	for i, reservation := range reservations {
		views = append(views, newReservationView(reservation, positions[i]))
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{"reservations": views})
}

// claimResponse is a reservation view extended with the allocated resource
// snapshots, so a claiming client gets its endpoints and tokens in one round
// trip.
type claimResponse struct {
	reservationView
	Resources []resourceView `json:"resources"`
}

func (s *Server) claimReservation(w http.ResponseWriter, r *http.Request) {
	if !s.allowRequest(r) {
		s.writeTooManyRequests(w)
		return
	}

	id := mux.Vars(r)["reservationId"]

	reservation, resources, err := s.manager.ClaimReservation(id)
	if err != nil {
		s.writeErrorResponse(w, err)
		return
	}

	response := claimResponse{
		reservationView: newReservationView(reservation, 0),
		Resources:       make([]resourceView, 0, len(resources)),
	}

	for _, resource := range resources {
		response.Resources = append(response.Resources, newResourceView(resource))
	}

	s.writeJSON(w, http.StatusOK, response)
}

func (s *Server) cancelReservation(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["reservationId"]

	if _, err := s.manager.CancelReservation(id); err != nil {
		s.writeErrorResponse(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
