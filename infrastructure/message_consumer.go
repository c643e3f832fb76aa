package infrastructure

import (
	"context"
	"fmt"
	"sync"

	"wagernotify/events"

	log "github.com/sirupsen/logrus"
)

// MessageHandler defines a function that handles raw message bytes
type MessageHandler func(ctx context.Context, data []byte) error

// subscriber is the part of NATSClient the consumer depends on
type subscriber interface {
	Connect(ctx context.Context) error
	EnsureStream(streamName string, subjects []string) error
	Subscribe(subject string, handler func(data []byte) error) error
	Close() error
}

// MessageConsumer subscribes to the document subjects and forwards each
// mutation to the bus
type MessageConsumer struct {
	client   subscriber
	bus      *events.Bus
	handlers map[string]MessageHandler
	mu       sync.RWMutex

	ctx    context.Context
	cancel context.CancelFunc
}

// NewMessageConsumer creates a consumer with a handler for every mutation kind
func NewMessageConsumer(client subscriber, bus *events.Bus) *MessageConsumer {
	ctx, cancel := context.WithCancel(context.Background())

	mc := &MessageConsumer{
		client:   client,
		bus:      bus,
		handlers: make(map[string]MessageHandler),
		ctx:      ctx,
		cancel:   cancel,
	}

	for _, kind := range events.AllMutationKinds() {
		mc.RegisterHandler(SubjectForKind(kind), mc.mutationHandler(kind))
	}
	return mc
}

// RegisterHandler registers a handler for a specific subject
func (mc *MessageConsumer) RegisterHandler(subject string, handler MessageHandler) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.handlers[subject] = handler
	log.WithField("subject", subject).Debug("Registered message handler")
}

// Start connects, subscribes to every registered subject and blocks until
// ctx is done or Stop is called
func (mc *MessageConsumer) Start(ctx context.Context) error {
	log.Info("Starting message consumer")

	if err := mc.client.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}

	if err := mc.client.EnsureStream(DocumentStream, AllSubjects()); err != nil {
		_ = mc.client.Close()
		return fmt.Errorf("failed to ensure document stream: %w", err)
	}

	mc.mu.RLock()
	subjects := make([]string, 0, len(mc.handlers))
	for subject := range mc.handlers {
		subjects = append(subjects, subject)
	}
	mc.mu.RUnlock()

	for _, subject := range subjects {
		if err := mc.subscribe(subject); err != nil {
			_ = mc.client.Close()
			return fmt.Errorf("failed to subscribe to %s: %w", subject, err)
		}
	}

	log.WithField("subjects", subjects).Info("Message consumer started")

	select {
	case <-ctx.Done():
		mc.cancel()
	case <-mc.ctx.Done():
	}

	return mc.client.Close()
}

// Stop gracefully shuts down the consumer
func (mc *MessageConsumer) Stop() {
	log.Info("Stopping message consumer")
	mc.cancel()
}

func (mc *MessageConsumer) subscribe(subject string) error {
	return mc.client.Subscribe(subject, func(data []byte) error {
		return mc.dispatch(subject, data)
	})
}

// dispatch runs the handler registered for subject
func (mc *MessageConsumer) dispatch(subject string, data []byte) error {
	mc.mu.RLock()
	handler, exists := mc.handlers[subject]
	mc.mu.RUnlock()

	if !exists {
		return fmt.Errorf("%w: no handler registered for subject %s", ErrPermanent, subject)
	}
	return handler(mc.ctx, data)
}

// mutationHandler decodes an envelope and emits it on the bus. Delivery
// outcomes never cause redelivery; only undecodable messages are rejected.
func (mc *MessageConsumer) mutationHandler(kind events.MutationKind) MessageHandler {
	return func(ctx context.Context, data []byte) error {
		m, err := events.DecodeMutationAs(data, kind)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrPermanent, err)
		}

		if handled := mc.bus.Emit(ctx, m); handled == 0 {
			log.WithFields(log.Fields{
				"mutationKind": kind,
				"eventId":      m.EventID,
			}).Warn("No handler subscribed for mutation")
		}
		return nil
	}
}
