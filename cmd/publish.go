package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"wagernotify/config"
	"wagernotify/events"
	"wagernotify/infrastructure"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// Publish sends a mutation envelope read from path ("-" for stdin) to the
// document stream, for replaying or hand-testing triggers
func Publish(ctx context.Context, kind events.MutationKind, path string) error {
	cfg := config.Get()
	ConfigureLogging(cfg)

	if !kind.IsKnown() {
		return fmt.Errorf("unknown mutation kind: %s", kind)
	}
	if cfg.NATSServers == "" {
		return fmt.Errorf("NATS_SERVERS is required to publish")
	}

	data, err := readEnvelope(path)
	if err != nil {
		return err
	}

	payload, m, err := prepareEnvelope(data, kind)
	if err != nil {
		return err
	}

	client := infrastructure.NewNATSClient(cfg.NATSServers)
	if err := client.Connect(ctx); err != nil {
		return err
	}
	defer client.Close()

	if err := client.EnsureStream(infrastructure.DocumentStream, infrastructure.AllSubjects()); err != nil {
		return err
	}
	if err := client.Publish(ctx, infrastructure.SubjectForKind(kind), payload); err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"mutationKind": kind,
		"eventId":      m.EventID,
	}).Info("Published mutation")
	return nil
}

func readEnvelope(path string) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		return data, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}

// prepareEnvelope validates the envelope and fills in a missing id and timestamp
func prepareEnvelope(data []byte, kind events.MutationKind) ([]byte, events.Mutation, error) {
	m, err := events.DecodeMutationAs(data, kind)
	if err != nil {
		return nil, events.Mutation{}, err
	}
	if m.EventID == "" {
		m.EventID = uuid.NewString()
	}
	if m.Timestamp.IsZero() {
		m.Timestamp = time.Now().UTC()
	}

	payload, err := json.Marshal(m)
	if err != nil {
		return nil, events.Mutation{}, fmt.Errorf("failed to encode mutation: %w", err)
	}
	return payload, m, nil
}
