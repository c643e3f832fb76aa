package infrastructure

import (
	"context"
	"fmt"
	"sync/atomic"

	"wagernotify/models"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// LogSender logs notifications instead of delivering them. Every token
// succeeds, which makes it useful for local runs and dry runs.
type LogSender struct {
	sent atomic.Int64
}

// NewLogSender creates a new logging sender
func NewLogSender() *LogSender {
	return &LogSender{}
}

// SendMulticast logs the shared notification once
func (s *LogSender) SendMulticast(ctx context.Context, msg models.BatchMessage) (*models.BatchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("failed to send multicast: %w", err)
	}

	result := &models.BatchResult{Responses: make([]models.SendResponse, 0, len(msg.Tokens))}
	for _, token := range msg.Tokens {
		result.Responses = append(result.Responses, models.SendResponse{
			Token:     token,
			Success:   true,
			MessageID: uuid.NewString(),
		})
	}
	result.SuccessCount = len(msg.Tokens)
	s.sent.Add(int64(len(msg.Tokens)))

	log.WithFields(log.Fields{
		"tokenCount": len(msg.Tokens),
		"title":      msg.Title,
		"body":       msg.Body,
		"data":       msg.Data,
	}).Info("Dispatching multicast notification")

	return result, nil
}

// Send logs a single notification
func (s *LogSender) Send(ctx context.Context, msg models.Message) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("failed to send notification: %w", err)
	}
	s.sent.Add(1)

	log.WithFields(log.Fields{
		"token": msg.Token,
		"title": msg.Title,
		"body":  msg.Body,
		"data":  msg.Data,
	}).Info("Dispatching notification")
	return nil
}

// Sent returns how many token deliveries have been logged
func (s *LogSender) Sent() int64 {
	return s.sent.Load()
}
