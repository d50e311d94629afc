package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	cachestore "github.com/eko/gocache/lib/v4/store"
	gocache_store "github.com/eko/gocache/store/go_cache/v4"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/rentabot/rentabot/common"
	"github.com/rentabot/rentabot/config"
	"github.com/rentabot/rentabot/internal"
	"github.com/rentabot/rentabot/manager"
)

const (
	apiPrefix = "/api/v1"

	// legacyAPIPrefix is the route prefix of the first-generation API.
	// Requests under it are still served, with a Deprecation header.
	legacyAPIPrefix = "/rentabot/api/v1.0"

	// terminalReservationCacheTTL is how long serialized responses for
	// terminal reservations are cached. Terminal states never mutate, so
	// the cached body is exact for the lifetime of the entry.
	terminalReservationCacheTTL = time.Hour
)

// Server is the coordinator REST API.
type Server struct {
	manager          *manager.Manager
	limitersByClient map[string]*rate.Limiter
	limitersLock     *sync.Mutex
	reservationCache *internal.Cache[[]byte]
	logger           common.Logger
	cfg              *config.APIConfig
}

// New creates a Server for the given manager. If cacheStore is nil an
// in-process store is used.
func New(mgr *manager.Manager, cacheStore cachestore.StoreInterface, logger common.Logger, cfg *config.APIConfig) *Server {
	if cacheStore == nil {
		gocacheClient := gocache.New(terminalReservationCacheTTL, 10*time.Minute)
		cacheStore = gocache_store.NewGoCache(gocacheClient)
	}

	if cfg == nil {
		cfg = config.NewAPIConfig()
	}

	cfg.ApplyDefaults()

	return &Server{
		manager:          mgr,
		limitersByClient: make(map[string]*rate.Limiter),
		limitersLock:     &sync.Mutex{},
		reservationCache: internal.NewCache[[]byte](cacheStore, "reservation:", logger),
		logger:           logger,
		cfg:              cfg,
	}
}

// Run starts the server and handles incoming requests. This method blocks
// until the context is cancelled, or a server error occurs.
func (s *Server) Run(ctx context.Context) error {
	if err := s.cfg.Validate(); err != nil {
		return fmt.Errorf("failed to validate configuration: %w", err)
	}

	router := s.buildRouter()

	readHeaderTimeout := 2 * time.Second
	requestTimeout := s.cfg.RequestTimeout
	timeoutWiggleRoom := time.Second

	var handler http.Handler = router

	if loggingHandler := s.logger.HTTPLoggingHandler(); loggingHandler != nil {
		handler = handlers.LoggingHandler(loggingHandler, router)
	}

	timeoutHandler := http.TimeoutHandler(handler, requestTimeout, "Handler timeout")
	listenAddr := fmt.Sprintf(":%s", s.cfg.RestPort)

	srv := &http.Server{
		Handler:           timeoutHandler,
		Addr:              listenAddr,
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readHeaderTimeout + requestTimeout + timeoutWiggleRoom,
		WriteTimeout:      requestTimeout + timeoutWiggleRoom,
		IdleTimeout:       60 * time.Second,
	}

	s.logger.
		WithField("request_timeout", fmt.Sprintf("%v", requestTimeout)).
		Infof("API available on port %s", s.cfg.RestPort)

	errg, ctx := errgroup.WithContext(ctx)

	errg.Go(func() error {
		return srv.ListenAndServe()
	})

	errg.Go(func() error {
		<-ctx.Done()
		if err := srv.Close(); err != nil {
			s.logger.Errorf("Failed to close http server: %s", err)
		}
		return nil
	})

	if err := errg.Wait(); err != nil {
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}

	return nil
}

// Handler returns the routed handler without starting a listener, for tests.
func (s *Server) Handler() http.Handler {
	return s.buildRouter()
}

func (s *Server) buildRouter() *mux.Router {
	router := mux.NewRouter()

	api := router.PathPrefix(apiPrefix).Subrouter()

	// Resource queries
	api.HandleFunc("/resources", s.listResources).Methods("GET")
	api.HandleFunc("/resources/match", s.matchResources).Methods("GET")
	api.HandleFunc("/resources/{resourceId:[0-9]+}", s.getResource).Methods("GET")

	// Locking. The criteria route must not be shadowed by the id routes.
	api.HandleFunc("/resources/lock", s.lockByCriteria).Methods("POST")
	api.HandleFunc("/resources/{resourceId:[0-9]+}/lock", s.lockResource).Methods("POST")
	api.HandleFunc("/resources/{resourceId:[0-9]+}/unlock", s.unlockResource).Methods("POST")
	api.HandleFunc("/resources/{resourceId:[0-9]+}/extend", s.extendLock).Methods("POST")

	// Reservations
	api.HandleFunc("/reservations", s.createReservation).Methods("POST")
	api.HandleFunc("/reservations", s.listReservations).Methods("GET")
	api.HandleFunc("/reservations/{reservationId}", s.getReservation).Methods("GET")
	api.HandleFunc("/reservations/{reservationId}/claim", s.claimReservation).Methods("POST")
	api.HandleFunc("/reservations/{reservationId}", s.cancelReservation).Methods("DELETE")

	// Audit trail of lock releases
	api.HandleFunc("/audit", s.listAuditEvents).Methods("GET")

	// Health & status
	router.HandleFunc("/health", s.health).Methods("GET")
	router.HandleFunc("/readiness", s.readiness).Methods("GET")
	router.HandleFunc("/ping", s.ping).Methods("GET")

	// Legacy prefix, forwarded to the current API with deprecation headers.
	router.PathPrefix(legacyAPIPrefix).Handler(s.legacyHandler(router))

	return router
}

// legacyHandler rewrites legacy-prefixed requests onto the current API and
// attaches Deprecation/Link headers so clients can migrate.
func (s *Server) legacyHandler(router *mux.Router) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		newPath := apiPrefix + strings.TrimPrefix(r.URL.Path, legacyAPIPrefix)

		s.logger.Warnf("Deprecated API path %q used, please migrate to %q", r.URL.Path, newPath)

		w.Header().Set("Deprecation", "true")
		w.Header().Set("Link", fmt.Sprintf("<%s>; rel=alternate", newPath))

		r2 := r.Clone(r.Context())
		r2.URL.Path = newPath

		router.ServeHTTP(w, r2)
	})
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readiness(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) ping(w http.ResponseWriter, _ *http.Request) {
	w.Header().Add("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)

	if _, err := w.Write([]byte("pong")); err != nil {
		s.logger.Errorf("Failed to write ping response: %s", err)
	}
}

// allowRequest applies per-client rate limiting to mutating endpoints. The
// client key is the X-Client-Id header when present, the remote address
// otherwise.
func (s *Server) allowRequest(r *http.Request) bool {
	if s.cfg.RateLimitPerClient == nil {
		return true
	}

	client := r.Header.Get("X-Client-Id")
	if client == "" {
		client = r.RemoteAddr
	}

	return s.getRateLimiter(client).Allow()
}

func (s *Server) getRateLimiter(client string) *rate.Limiter {
	s.limitersLock.Lock()
	defer s.limitersLock.Unlock()

	limiter, ok := s.limitersByClient[client]

	if !ok {
		limiter = rate.NewLimiter(rate.Limit(s.cfg.RateLimitPerClient.RequestsPerSecond), s.cfg.RateLimitPerClient.AllowedBurst)
		s.limitersByClient[client] = limiter
	}

	return limiter
}
