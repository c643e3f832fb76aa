package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"wagernotify/events"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

const maxTriggerBodyBytes = 1 << 20

// HealthCheck reports whether a dependency is usable
type HealthCheck func(ctx context.Context) error

// API accepts document mutations over HTTP for hosts that push triggers as webhooks
type API struct {
	router *mux.Router
	bus    *events.Bus
	checks map[string]HealthCheck
	server *http.Server
}

// New creates the HTTP API. checks are run by the health endpoint.
func New(addr string, bus *events.Bus, checks map[string]HealthCheck) *API {
	a := &API{
		router: mux.NewRouter(),
		bus:    bus,
		checks: checks,
	}
	a.setupRoutes()

	a.server = &http.Server{
		Addr:              addr,
		Handler:           a.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return a
}

func (a *API) setupRoutes() {
	a.router.Use(requestLogger)

	a.router.HandleFunc("/healthz", a.handleHealth).Methods(http.MethodGet)

	v1 := a.router.PathPrefix("/v1").Subrouter()
	v1.HandleFunc("/triggers/{kind}", a.handleTrigger).Methods(http.MethodPost)
}

// Handler exposes the router, mainly for tests
func (a *API) Handler() http.Handler {
	return a.router
}

// Start serves until ctx is done, then shuts down gracefully
func (a *API) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", a.server.Addr).Info("HTTP trigger server listening")
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("failed to serve HTTP: %w", err)
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down HTTP server: %w", err)
	}
	log.Info("HTTP trigger server stopped")
	return nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.WithError(err).Warn("Failed to write response")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		log.WithFields(log.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   rec.status,
			"duration": time.Since(start),
		}).Debug("Handled HTTP request")
	})
}
