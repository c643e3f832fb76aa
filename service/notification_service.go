package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"wagernotify/events"
	"wagernotify/models"

	log "github.com/sirupsen/logrus"
)

// Options tunes the notification pipeline
type Options struct {
	// Concurrency bounds simultaneous token lookups and single-mode sends
	Concurrency int

	// RatePerSecond caps single-mode sends; 0 means unlimited
	RatePerSecond float64

	// LookupTimeout bounds each user lookup; 0 means no per-lookup timeout
	LookupTimeout time.Duration

	// Receipts enables duplicate suppression when set
	Receipts ReceiptRepository

	Metrics MetricsRecorder
}

type notificationService struct {
	recipients *RecipientResolver
	tokens     *TokenResolver
	dispatcher *Dispatcher
	receipts   ReceiptRepository
	metrics    MetricsRecorder
}

// NewNotificationService creates a new notification service
func NewNotificationService(groups GroupRepository, wagers WagerRepository, users UserRepository, sender PushSender, opts Options) NotificationService {
	metrics := opts.Metrics
	if metrics == nil {
		metrics = nopMetrics{}
	}

	return &notificationService{
		recipients: NewRecipientResolver(groups, wagers),
		tokens:     NewTokenResolver(users, opts.Concurrency, opts.LookupTimeout),
		dispatcher: NewDispatcher(sender, opts.Concurrency, opts.RatePerSecond, metrics),
		receipts:   opts.Receipts,
		metrics:    metrics,
	}
}

// Register subscribes every handler to the bus
func (s *notificationService) Register(bus *events.Bus) {
	bus.Subscribe(events.MutationGroupUpdated, func(ctx context.Context, m events.Mutation) { s.HandleGroupUpdated(ctx, m) })
	bus.Subscribe(events.MutationWagerCreated, func(ctx context.Context, m events.Mutation) { s.HandleWagerCreated(ctx, m) })
	bus.Subscribe(events.MutationWagerUpdated, func(ctx context.Context, m events.Mutation) { s.HandleWagerUpdated(ctx, m) })
	bus.Subscribe(events.MutationReminderCreated, func(ctx context.Context, m events.Mutation) { s.HandleReminderCreated(ctx, m) })
}

// HandleGroupUpdated notifies active members about the newest chat entry
func (s *notificationService) HandleGroupUpdated(ctx context.Context, m events.Mutation) Result {
	start := s.begin(m)
	defer s.finish(m, start)

	before, err := decodeSnapshot[models.Group](m.Before)
	if err != nil {
		return s.halt(m, "", snapshotHaltReason(err), log.Fields{"side": "before", "error": err})
	}
	after, err := decodeSnapshot[models.Group](m.After)
	if err != nil {
		return s.halt(m, "", snapshotHaltReason(err), log.Fields{"side": "after", "error": err})
	}

	ev, ok := ClassifyGroupUpdate(before, after)
	if !ok {
		return s.halt(m, "", HaltIrrelevant, log.Fields{"groupId": after.ID})
	}
	eventType := ev.Type()
	fields := log.Fields{"groupId": ev.GroupID, "messageId": ev.MessageID, "senderId": ev.SenderID}

	recipientIDs, err := s.recipients.ChatRecipients(ctx, ev.GroupID, ev.SenderID)
	if err != nil {
		return s.halt(m, eventType, HaltLookupFailed, withError(fields, err))
	}

	return s.deliverBatch(ctx, m, eventType, fields, recipientIDs, ChatPayload(*ev),
		idempotencyKey(eventType, ev.GroupID, ev.MessageID))
}

// HandleWagerCreated notifies the group's members about a new wager
func (s *notificationService) HandleWagerCreated(ctx context.Context, m events.Mutation) Result {
	start := s.begin(m)
	defer s.finish(m, start)

	after, err := decodeSnapshot[models.Wager](m.After)
	if err != nil {
		return s.halt(m, "", snapshotHaltReason(err), log.Fields{"side": "after", "error": err})
	}

	ev, ok := ClassifyWagerCreated(after)
	if !ok {
		return s.halt(m, "", HaltIrrelevant, log.Fields{"wagerId": after.ID})
	}
	eventType := ev.Type()
	fields := log.Fields{"wagerId": ev.WagerID, "groupId": ev.GroupID}

	group, recipientIDs, err := s.recipients.NewWagerRecipients(ctx, ev.GroupID)
	if err != nil {
		return s.halt(m, eventType, HaltLookupFailed, withError(fields, err))
	}
	if group == nil {
		return s.halt(m, eventType, HaltNoRecipients, withReason(fields, "group not found"))
	}

	return s.deliverBatch(ctx, m, eventType, fields, recipientIDs, WagerCreatedPayload(group.Name, *ev),
		idempotencyKey(eventType, ev.WagerID))
}

// HandleWagerUpdated notifies participants when a wager is settled or voided
func (s *notificationService) HandleWagerUpdated(ctx context.Context, m events.Mutation) Result {
	start := s.begin(m)
	defer s.finish(m, start)

	before, err := decodeSnapshot[models.Wager](m.Before)
	if err != nil {
		return s.halt(m, "", snapshotHaltReason(err), log.Fields{"side": "before", "error": err})
	}
	after, err := decodeSnapshot[models.Wager](m.After)
	if err != nil {
		return s.halt(m, "", snapshotHaltReason(err), log.Fields{"side": "after", "error": err})
	}

	ev, ok := ClassifyWagerUpdate(before, after)
	if !ok {
		return s.halt(m, "", HaltIrrelevant, log.Fields{
			"wagerId":        after.ID,
			"previousStatus": before.Status,
			"status":         after.Status,
		})
	}
	eventType := ev.Type()
	fields := log.Fields{"wagerId": after.ID, "groupId": after.GroupID}

	participations, err := s.recipients.Participants(ctx, after.ID)
	if err != nil {
		return s.halt(m, eventType, HaltLookupFailed, withError(fields, err))
	}

	var build func(p *models.Participation) models.Notification
	switch e := ev.(type) {
	case events.WagerSettledEvent:
		build = func(p *models.Participation) models.Notification { return SettledPayload(e, p) }
	case events.WagerVoidedEvent:
		build = func(p *models.Participation) models.Notification { return VoidedPayload(e, p) }
	}

	return s.deliverEach(ctx, m, eventType, fields, participantIDs(participations),
		func(tokens map[string]string) []Delivery {
			deliveries := make([]Delivery, 0, len(participations))
			for _, p := range participations {
				deliveries = append(deliveries, Delivery{
					UserID:       p.UserID,
					Token:        tokens[p.UserID],
					Notification: build(p),
				})
			}
			return deliveries
		},
		idempotencyKey(eventType, after.ID))
}

// HandleReminderCreated notifies the user addressed by a settle reminder
func (s *notificationService) HandleReminderCreated(ctx context.Context, m events.Mutation) Result {
	start := s.begin(m)
	defer s.finish(m, start)

	after, err := decodeSnapshot[models.Reminder](m.After)
	if err != nil {
		return s.halt(m, "", snapshotHaltReason(err), log.Fields{"side": "after", "error": err})
	}

	ev, ok := ClassifyReminder(after)
	if !ok {
		return s.halt(m, "", HaltIrrelevant, log.Fields{"reminderId": after.ID, "reminderType": after.Type})
	}
	eventType := ev.Type()
	fields := log.Fields{"reminderId": ev.ReminderID, "userId": ev.UserID}

	notification := ReminderPayload(*ev)
	return s.deliverEach(ctx, m, eventType, fields, s.recipients.ReminderRecipients(ev.UserID),
		func(tokens map[string]string) []Delivery {
			return []Delivery{{UserID: ev.UserID, Token: tokens[ev.UserID], Notification: notification}}
		},
		idempotencyKey(eventType, ev.ReminderID))
}

// deliverBatch resolves tokens and sends one shared notification to all of them
func (s *notificationService) deliverBatch(ctx context.Context, m events.Mutation, eventType events.EventType, fields log.Fields, recipientIDs []string, n models.Notification, key string) Result {
	result := Result{EventType: eventType, Recipients: len(recipientIDs)}
	if len(recipientIDs) == 0 {
		return s.halt(m, eventType, HaltNoRecipients, fields)
	}

	tokens := s.tokens.Resolve(ctx, recipientIDs)
	if ctx.Err() != nil {
		return s.halt(m, eventType, HaltCancelled, withError(fields, ctx.Err()))
	}
	result.Tokens = len(tokens)
	if len(tokens) == 0 {
		halted := s.halt(m, eventType, HaltNoTokens, fields)
		halted.Recipients = result.Recipients
		return halted
	}

	if !s.claim(ctx, eventType, key, fields) {
		halted := s.halt(m, eventType, HaltDuplicate, fields)
		halted.Recipients, halted.Tokens = result.Recipients, result.Tokens
		return halted
	}

	result.Sent, result.Failed = s.dispatcher.SendBatch(ctx, eventType, n, tokenValues(tokens))
	s.logDelivered(fields, result)
	return result
}

// deliverEach resolves tokens and sends every recipient its own notification
func (s *notificationService) deliverEach(ctx context.Context, m events.Mutation, eventType events.EventType, fields log.Fields, recipientIDs []string, build func(tokens map[string]string) []Delivery, key string) Result {
	result := Result{EventType: eventType, Recipients: len(recipientIDs)}
	if len(recipientIDs) == 0 {
		return s.halt(m, eventType, HaltNoRecipients, fields)
	}

	tokens := s.tokens.Resolve(ctx, recipientIDs)
	if ctx.Err() != nil {
		return s.halt(m, eventType, HaltCancelled, withError(fields, ctx.Err()))
	}
	result.Tokens = len(tokens)
	if len(tokens) == 0 {
		halted := s.halt(m, eventType, HaltNoTokens, fields)
		halted.Recipients = result.Recipients
		return halted
	}

	if !s.claim(ctx, eventType, key, fields) {
		halted := s.halt(m, eventType, HaltDuplicate, fields)
		halted.Recipients, halted.Tokens = result.Recipients, result.Tokens
		return halted
	}

	result.Sent, result.Failed, result.Skipped = s.dispatcher.SendEach(ctx, eventType, build(tokensByUser(tokens)))
	s.logDelivered(fields, result)
	return result
}

// claim records the event in the receipt ledger. Without a ledger, or when the
// ledger cannot be reached, the event is allowed through.
func (s *notificationService) claim(ctx context.Context, eventType events.EventType, key string, fields log.Fields) bool {
	if s.receipts == nil {
		return true
	}

	first, err := s.receipts.Claim(ctx, key, eventType)
	if err != nil {
		log.WithFields(withError(fields, err)).Warn("Failed to claim notification receipt, delivering anyway")
		return true
	}
	return first
}

func (s *notificationService) begin(m events.Mutation) time.Time {
	s.metrics.RecordMutationReceived(m.Kind)
	return time.Now()
}

func (s *notificationService) finish(m events.Mutation, start time.Time) {
	s.metrics.RecordPipelineDuration(m.Kind, time.Since(start))
}

// halt logs why the pipeline stopped and returns the matching result.
// Irrelevant transitions are routine and only logged at debug.
func (s *notificationService) halt(m events.Mutation, eventType events.EventType, reason HaltReason, fields log.Fields) Result {
	s.metrics.RecordEventHalted(m.Kind, reason)

	entry := log.WithFields(fields).WithFields(log.Fields{
		"mutationKind": m.Kind,
		"eventId":      m.EventID,
		"haltReason":   reason,
	})
	if eventType != "" {
		entry = entry.WithField("eventType", eventType)
	}

	if reason == HaltIrrelevant {
		entry.Debug("Mutation is not notify-worthy")
	} else {
		entry.Info("Notification pipeline halted")
	}

	return Result{EventType: eventType, Halted: reason}
}

func (s *notificationService) logDelivered(fields log.Fields, result Result) {
	log.WithFields(fields).WithFields(log.Fields{
		"eventType":  result.EventType,
		"recipients": result.Recipients,
		"tokens":     result.Tokens,
		"sent":       result.Sent,
		"failed":     result.Failed,
		"skipped":    result.Skipped,
	}).Info("Notification pipeline completed")
}

func snapshotHaltReason(err error) HaltReason {
	if errors.Is(err, ErrMissingSnapshot) {
		return HaltMissingInput
	}
	return HaltInvalidInput
}

func withError(fields log.Fields, err error) log.Fields {
	return withField(fields, "error", err)
}

func withReason(fields log.Fields, reason string) log.Fields {
	return withField(fields, "reason", reason)
}

func withField(fields log.Fields, key string, value any) log.Fields {
	out := make(log.Fields, len(fields)+1)
	for k, v := range fields {
		out[k] = v
	}
	out[key] = value
	return out
}

// idempotencyKey hashes the event type and identifying ids into a ledger key
func idempotencyKey(eventType events.EventType, ids ...string) string {
	parts := append([]string{string(eventType)}, ids...)
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}
