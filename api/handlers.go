package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"wagernotify/events"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

type triggerResponse struct {
	EventID  string `json:"event_id"`
	Kind     string `json:"event_type"`
	Handlers int    `json:"handlers"`
}

// handleTrigger runs the pipeline for one mutation. Any decodable mutation is
// accepted regardless of delivery outcome so the host never retries it.
func (a *API) handleTrigger(w http.ResponseWriter, r *http.Request) {
	kind := events.MutationKind(mux.Vars(r)["kind"])
	if !kind.IsKnown() {
		writeError(w, http.StatusNotFound, "unknown trigger kind")
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxTriggerBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "failed to read body")
		return
	}

	m, err := events.DecodeMutationAs(body, kind)
	if err != nil {
		log.WithFields(log.Fields{
			"mutationKind": kind,
			"error":        err,
		}).Info("Rejected undecodable trigger")
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if m.EventID == "" {
		m.EventID = uuid.NewString()
	}
	if m.Timestamp.IsZero() {
		m.Timestamp = time.Now().UTC()
	}

	handled := a.bus.Emit(r.Context(), m)

	writeJSON(w, http.StatusAccepted, triggerResponse{
		EventID:  m.EventID,
		Kind:     string(m.Kind),
		Handlers: handled,
	})
}

// handleHealth runs every registered check
func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	status := http.StatusOK
	results := make(map[string]string, len(a.checks))
	for name, check := range a.checks {
		if err := check(ctx); err != nil {
			status = http.StatusServiceUnavailable
			results[name] = err.Error()
			continue
		}
		results[name] = "ok"
	}

	body := map[string]any{"status": "ok", "checks": results}
	if status != http.StatusOK {
		body["status"] = "degraded"
	}
	writeJSON(w, status, body)
}
