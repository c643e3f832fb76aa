package cmd

import (
	"testing"

	"wagernotify/config"
	"wagernotify/events"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrepareEnvelope(t *testing.T) {
	t.Run("fills id and timestamp", func(t *testing.T) {
		payload, m, err := prepareEnvelope([]byte(`{"after":{"id":"w1","group_id":"g1"}}`), events.MutationWagerCreated)
		require.NoError(t, err)

		assert.NotEmpty(t, m.EventID)
		assert.False(t, m.Timestamp.IsZero())

		decoded, err := events.DecodeMutation(payload)
		require.NoError(t, err)
		assert.Equal(t, events.MutationWagerCreated, decoded.Kind)
		assert.Equal(t, m.EventID, decoded.EventID)
		assert.JSONEq(t, `{"id":"w1","group_id":"g1"}`, string(decoded.After))
	})

	t.Run("keeps an existing id", func(t *testing.T) {
		_, m, err := prepareEnvelope([]byte(`{"event_id":"e-42"}`), events.MutationGroupUpdated)
		require.NoError(t, err)
		assert.Equal(t, "e-42", m.EventID)
	})

	t.Run("rejects a conflicting kind", func(t *testing.T) {
		_, _, err := prepareEnvelope([]byte(`{"event_type":"group.updated"}`), events.MutationReminderCreated)
		assert.Error(t, err)
	})
}

func TestConfigureLogging(t *testing.T) {
	t.Cleanup(func() {
		log.SetLevel(log.InfoLevel)
		log.SetFormatter(&log.TextFormatter{})
	})

	cfg := config.NewTestConfig()
	cfg.LogLevel = "warn"
	cfg.LogFormat = "json"
	ConfigureLogging(cfg)

	assert.Equal(t, log.WarnLevel, log.GetLevel())
	_, isJSON := log.StandardLogger().Formatter.(*log.JSONFormatter)
	assert.True(t, isJSON)

	cfg.LogLevel = "chatty"
	ConfigureLogging(cfg)
	assert.Equal(t, log.InfoLevel, log.GetLevel())
}
