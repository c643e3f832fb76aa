package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"wagernotify/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAPI(checks map[string]HealthCheck) (*API, *[]events.Mutation) {
	bus := events.NewBus()
	received := &[]events.Mutation{}
	for _, kind := range events.AllMutationKinds() {
		bus.Subscribe(kind, func(ctx context.Context, m events.Mutation) {
			*received = append(*received, m)
		})
	}
	return New(":0", bus, checks), received
}

func TestHandleTrigger(t *testing.T) {
	t.Run("accepts a decodable mutation", func(t *testing.T) {
		a, received := newTestAPI(nil)
		body := `{"event_id":"e1","before":{"id":"w1","status":"open"},"after":{"id":"w1","status":"settled"}}`

		req := httptest.NewRequest(http.MethodPost, "/v1/triggers/wager.updated", strings.NewReader(body))
		rec := httptest.NewRecorder()
		a.Handler().ServeHTTP(rec, req)

		require.Equal(t, http.StatusAccepted, rec.Code)
		var resp triggerResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "e1", resp.EventID)
		assert.Equal(t, "wager.updated", resp.Kind)
		assert.Equal(t, 1, resp.Handlers)

		require.Len(t, *received, 1)
		assert.Equal(t, events.MutationWagerUpdated, (*received)[0].Kind)
		assert.True(t, (*received)[0].HasBefore())
	})

	t.Run("assigns an event id", func(t *testing.T) {
		a, received := newTestAPI(nil)

		req := httptest.NewRequest(http.MethodPost, "/v1/triggers/reminder.created", strings.NewReader(`{"after":{"id":"r1"}}`))
		rec := httptest.NewRecorder()
		a.Handler().ServeHTTP(rec, req)

		require.Equal(t, http.StatusAccepted, rec.Code)
		require.Len(t, *received, 1)
		assert.Len(t, (*received)[0].EventID, 36)
		assert.False(t, (*received)[0].Timestamp.IsZero())
	})

	t.Run("unknown kind", func(t *testing.T) {
		a, received := newTestAPI(nil)

		req := httptest.NewRequest(http.MethodPost, "/v1/triggers/group.deleted", strings.NewReader(`{}`))
		rec := httptest.NewRecorder()
		a.Handler().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Empty(t, *received)
	})

	t.Run("malformed body", func(t *testing.T) {
		a, received := newTestAPI(nil)

		req := httptest.NewRequest(http.MethodPost, "/v1/triggers/group.updated", strings.NewReader(`{"before":`))
		rec := httptest.NewRecorder()
		a.Handler().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Empty(t, *received)
	})

	t.Run("kind mismatch", func(t *testing.T) {
		a, _ := newTestAPI(nil)

		req := httptest.NewRequest(http.MethodPost, "/v1/triggers/group.updated", strings.NewReader(`{"event_type":"wager.created"}`))
		rec := httptest.NewRecorder()
		a.Handler().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("wrong method", func(t *testing.T) {
		a, _ := newTestAPI(nil)

		req := httptest.NewRequest(http.MethodGet, "/v1/triggers/group.updated", nil)
		rec := httptest.NewRecorder()
		a.Handler().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})
}

func TestHandleHealth(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		a, _ := newTestAPI(map[string]HealthCheck{
			"database": func(ctx context.Context) error { return nil },
		})

		rec := httptest.NewRecorder()
		a.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"database":"ok"`)
	})

	t.Run("failing dependency", func(t *testing.T) {
		a, _ := newTestAPI(map[string]HealthCheck{
			"nats": func(ctx context.Context) error { return errors.New("disconnected") },
		})

		rec := httptest.NewRecorder()
		a.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Contains(t, rec.Body.String(), "degraded")
	})
}
