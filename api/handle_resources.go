package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/rentabot/rentabot/config"
	"github.com/rentabot/rentabot/manager"
)

// lockRequest is the optional JSON body of lock requests. TTL is in
// seconds; zero means the configured default.
type lockRequest struct {
	TTL int64 `json:"ttl"`
}

func (s *Server) listResources(w http.ResponseWriter, _ *http.Request) {
	resources := s.manager.Resources()

	views := make([]resourceView, 0, len(resources))
	for _, resource := range resources {
		views = append(views, newResourceView(resource))
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{"resources": views})
}

func (s *Server) getResource(w http.ResponseWriter, r *http.Request) {
	id, err := resourceID(r)
	if err != nil {
		s.writeErrorResponse(w, err)
		return
	}

	resource, err := s.manager.Resource(id)
	if err != nil {
		s.writeErrorResponse(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{"resource": newResourceView(resource)})
}

func (s *Server) matchResources(w http.ResponseWriter, r *http.Request) {
	tags := r.URL.Query()["tag"]
	if len(tags) == 0 {
		s.writeErrorResponse(w, fmt.Errorf("%w: at least one tag query parameter is required", manager.ErrInvalidReservationTags))
		return
	}

	resources := s.manager.MatchResources(tags)

	views := make([]resourceView, 0, len(resources))
	for _, resource := range resources {
		views = append(views, newResourceView(resource))
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{"resources": views})
}

func (s *Server) lockResource(w http.ResponseWriter, r *http.Request) {
	if !s.allowRequest(r) {
		s.writeTooManyRequests(w)
		return
	}

	id, err := resourceID(r)
	if err != nil {
		s.writeErrorResponse(w, err)
		return
	}

	ttl, err := s.lockTTL(r)
	if err != nil {
		s.writeErrorResponse(w, err)
		return
	}

	token, resource, err := s.manager.Lock(id, ttl)
	if err != nil {
		s.writeErrorResponse(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":    "Resource locked",
		"lock-token": token,
		"resource":   newResourceView(resource),
		"locked-at":  resource.LockAcquiredAt,
		"expires-at": resource.LockExpiresAt,
	})
}

func (s *Server) lockByCriteria(w http.ResponseWriter, r *http.Request) {
	if !s.allowRequest(r) {
		s.writeTooManyRequests(w)
		return
	}

	query := r.URL.Query()

	criteria := manager.Criteria{
		Name: query.Get("name"),
		Tags: query["tag"],
	}

	if rawID := query.Get("id"); rawID != "" {
		id, err := strconv.Atoi(rawID)
		if err != nil {
			s.writeErrorResponse(w, fmt.Errorf("%w: id %q is not a number", manager.ErrResourceNotFound, rawID))
			return
		}

		criteria.ID = id
	}

	ttl, err := s.lockTTL(r)
	if err != nil {
		s.writeErrorResponse(w, err)
		return
	}

	token, resource, err := s.manager.LockByCriteria(criteria, ttl)
	if err != nil {
		s.writeErrorResponse(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":    "Resource locked",
		"lock-token": token,
		"resource":   newResourceView(resource),
		"locked-at":  resource.LockAcquiredAt,
		"expires-at": resource.LockExpiresAt,
	})
}

func (s *Server) unlockResource(w http.ResponseWriter, r *http.Request) {
	id, err := resourceID(r)
	if err != nil {
		s.writeErrorResponse(w, err)
		return
	}

	token := r.URL.Query().Get("lock-token")

	resource, err := s.manager.Unlock(id, token)
	if err != nil {
		s.writeErrorResponse(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":  "Resource unlocked",
		"resource": newResourceView(resource),
	})
}

func (s *Server) extendLock(w http.ResponseWriter, r *http.Request) {
	id, err := resourceID(r)
	if err != nil {
		s.writeErrorResponse(w, err)
		return
	}

	query := r.URL.Query()
	token := query.Get("lock-token")

	additionalSeconds, err := strconv.ParseInt(query.Get("additional-ttl"), 10, 64)
	if err != nil {
		s.writeErrorResponse(w, fmt.Errorf("%w: additional-ttl must be a number of seconds", manager.ErrInvalidTTL))
		return
	}

	resource, err := s.manager.Extend(id, token, time.Duration(additionalSeconds)*time.Second)
	if err != nil {
		s.writeErrorResponse(w, err)
		return
	}

	totalDuration := int64(0)
	if resource.LockAcquiredAt != nil && resource.LockExpiresAt != nil {
		totalDuration = int64(resource.LockExpiresAt.Sub(*resource.LockAcquiredAt) / time.Second)
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":             "Lock extended",
		"new-expires-at":      resource.LockExpiresAt,
		"total-lock-duration": totalDuration,
		"resource":            newResourceView(resource),
	})
}

func (s *Server) listAuditEvents(w http.ResponseWriter, _ *http.Request) {
	events := s.manager.Audit().Recent()

	s.writeJSON(w, http.StatusOK, map[string]interface{}{"events": events})
}

// lockTTL reads the optional ttl from the request body, falling back to the
// configured default for an absent body or a zero ttl.
func (s *Server) lockTTL(r *http.Request) (time.Duration, error) {
	request := lockRequest{}

	if r.Body != nil {
		if err := json.NewDecoder(r.Body).Decode(&request); err != nil && !errors.Is(err, io.EOF) {
			return 0, fmt.Errorf("%w: malformed request body", manager.ErrInvalidTTL)
		}
	}

	if request.TTL == 0 {
		return config.DefaultLockTTL, nil
	}

	return time.Duration(request.TTL) * time.Second, nil
}

func (s *Server) writeTooManyRequests(w http.ResponseWriter) {
	s.writeJSON(w, http.StatusTooManyRequests, map[string]string{"message": "Rate limit exceeded"})
}

func resourceID(r *http.Request) (int, error) {
	raw := mux.Vars(r)["resourceId"]

	id, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: id %q is not a number", manager.ErrResourceNotFound, raw)
	}

	return id, nil
}
