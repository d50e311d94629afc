package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/rentabot/rentabot/manager"
	"github.com/rentabot/rentabot/models"
)

// resourceView is the wire shape of a resource. Field names keep the
// hyphenated keys of the original API.
type resourceView struct {
	ID              int        `json:"id"`
	Name            string     `json:"name"`
	Description     string     `json:"description"`
	Endpoint        string     `json:"endpoint"`
	Tags            string     `json:"tags"`
	LockToken       string     `json:"lock-token"`
	LockDetails     string     `json:"lock-details"`
	LockAcquiredAt  *time.Time `json:"lock-acquired-at,omitempty"`
	LockExpiresAt   *time.Time `json:"lock-expires-at,omitempty"`
	MaxLockDuration int64      `json:"max-lock-duration"`
}

func newResourceView(resource *models.Resource) resourceView {
	return resourceView{
		ID:              resource.ID,
		Name:            resource.Name,
		Description:     resource.Description,
		Endpoint:        resource.Endpoint,
		Tags:            resource.Tags,
		LockToken:       resource.LockToken,
		LockDetails:     resource.LockDetails,
		LockAcquiredAt:  resource.LockAcquiredAt,
		LockExpiresAt:   resource.LockExpiresAt,
		MaxLockDuration: int64(resource.MaxLockDuration / time.Second),
	}
}

// reservationView is the wire shape of a reservation. Durations are integer
// seconds.
type reservationView struct {
	ReservationID   string     `json:"reservation_id"`
	Status          string     `json:"status"`
	Tags            []string   `json:"tags"`
	Quantity        int        `json:"quantity"`
	ClientID        string     `json:"client_id,omitempty"`
	TTL             int64      `json:"ttl"`
	PositionInQueue *int       `json:"position_in_queue,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	ExpiresAt       time.Time  `json:"expires_at"`
	FulfilledAt     *time.Time `json:"fulfilled_at,omitempty"`
	ClaimExpiresAt  *time.Time `json:"claim_expires_at,omitempty"`
	ClaimedAt       *time.Time `json:"claimed_at,omitempty"`
	CancelledAt     *time.Time `json:"cancelled_at,omitempty"`
	ResourceIDs     []int      `json:"resource_ids"`
	LockTokens      []string   `json:"lock_tokens"`
}

func newReservationView(reservation *models.Reservation, position int) reservationView {
	view := reservationView{
		ReservationID:  reservation.ID,
		Status:         string(reservation.Status),
		Tags:           reservation.Tags,
		Quantity:       reservation.Quantity,
		ClientID:       reservation.ClientID,
		TTL:            int64(reservation.TTL / time.Second),
		CreatedAt:      reservation.CreatedAt,
		ExpiresAt:      reservation.ExpiresAt,
		FulfilledAt:    reservation.FulfilledAt,
		ClaimExpiresAt: reservation.ClaimExpiresAt,
		ClaimedAt:      reservation.ClaimedAt,
		CancelledAt:    reservation.CancelledAt,
		ResourceIDs:    reservation.ResourceIDs,
		LockTokens:     reservation.LockTokens,
	}

	if view.ResourceIDs == nil {
		view.ResourceIDs = []int{}
	}

	if view.LockTokens == nil {
		view.LockTokens = []string{}
	}

	if position > 0 {
		view.PositionInQueue = &position
	}

	return view
}

func (s *Server) writeJSON(w http.ResponseWriter, statusCode int, body interface{}) {
	data, err := json.MarshalIndent(body, "", "  ")
	if err != nil {
		s.logger.Errorf("Failed to marshal response: %s", err)
		w.WriteHeader(http.StatusInternalServerError)

		return
	}

	s.writeJSONBytes(w, statusCode, data)
}

func (s *Server) writeJSONBytes(w http.ResponseWriter, statusCode int, data []byte) {
	w.Header().Add("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if _, err := w.Write(data); err != nil {
		s.logger.Errorf("Failed to write response: %s", err)
	}
}

// writeErrorResponse maps a core error to its HTTP status and writes the
// JSON error body.
func (s *Server) writeErrorResponse(w http.ResponseWriter, clientErr error) {
	statusCode := statusCodeFor(clientErr)

	errText := clientErr.Error()
	if len(errText) > 1 {
		errText = strings.ToUpper(string(errText[0])) + errText[1:]
	}

	if statusCode < 500 {
		s.logger.Infof("Request failed: %s", errText)
	} else {
		s.logger.Errorf("Request failed: %s", errText)
	}

	s.writeJSON(w, statusCode, map[string]string{"message": errText})
}

func statusCodeFor(err error) int {
	switch {
	case errors.Is(err, manager.ErrResourceNotFound),
		errors.Is(err, manager.ErrReservationNotFound):
		return http.StatusNotFound

	case errors.Is(err, manager.ErrResourceAlreadyLocked),
		errors.Is(err, manager.ErrResourceAlreadyUnlocked),
		errors.Is(err, manager.ErrInvalidLockToken),
		errors.Is(err, manager.ErrNoAvailableResource):
		return http.StatusForbidden

	case errors.Is(err, manager.ErrInsufficientResources),
		errors.Is(err, manager.ErrReservationNotFulfilled),
		errors.Is(err, manager.ErrReservationAlreadyClaimed),
		errors.Is(err, manager.ErrReservationCancelled),
		errors.Is(err, manager.ErrReservationNotCancellable):
		return http.StatusConflict

	case errors.Is(err, manager.ErrClaimWindowExpired),
		errors.Is(err, manager.ErrReservationExpired):
		return http.StatusGone

	case errors.Is(err, manager.ErrInvalidTTL),
		errors.Is(err, manager.ErrTTLExceedsMax),
		errors.Is(err, manager.ErrInvalidQuantity),
		errors.Is(err, manager.ErrInvalidReservationTags),
		errors.Is(err, manager.ErrImpossibleTTL):
		return http.StatusBadRequest

	default:
		return http.StatusInternalServerError
	}
}
