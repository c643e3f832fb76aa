package service

import (
	"context"
	"time"

	"wagernotify/events"
	"wagernotify/models"
)

// GroupRepository defines read access to groups and their memberships
type GroupRepository interface {
	// GetByID retrieves a group by its ID, returning nil when it does not exist
	GetByID(ctx context.Context, groupID string) (*models.Group, error)

	// GetActiveMemberIDs returns the user IDs holding an active membership in the group
	GetActiveMemberIDs(ctx context.Context, groupID string) ([]string, error)
}

// WagerRepository defines read access to wager participation
type WagerRepository interface {
	// GetParticipations returns every participation record for a wager
	GetParticipations(ctx context.Context, wagerID string) ([]*models.Participation, error)
}

// UserRepository defines read access to users
type UserRepository interface {
	// GetByID retrieves a user by its ID, returning nil when it does not exist
	GetByID(ctx context.Context, userID string) (*models.User, error)
}

// ReceiptRepository records which events have already been fanned out
type ReceiptRepository interface {
	// Claim records the idempotency key and reports whether this caller was first
	Claim(ctx context.Context, key string, eventType events.EventType) (bool, error)
}

// PushSender delivers notifications to device tokens
type PushSender interface {
	// SendMulticast delivers one notification to many tokens and reports per-token results
	SendMulticast(ctx context.Context, msg models.BatchMessage) (*models.BatchResult, error)

	// Send delivers one notification to a single token
	Send(ctx context.Context, msg models.Message) error
}

// MetricsRecorder receives pipeline counters
type MetricsRecorder interface {
	RecordMutationReceived(kind events.MutationKind)
	RecordEventHalted(kind events.MutationKind, reason HaltReason)
	RecordDelivery(eventType events.EventType, mode DeliveryMode, success, failure int)
	RecordPipelineDuration(kind events.MutationKind, d time.Duration)
}

// NotificationService turns document mutations into push notifications
type NotificationService interface {
	// HandleGroupUpdated notifies group members about the newest chat entry
	HandleGroupUpdated(ctx context.Context, m events.Mutation) Result

	// HandleWagerCreated notifies the group's members about a new wager
	HandleWagerCreated(ctx context.Context, m events.Mutation) Result

	// HandleWagerUpdated notifies participants when a wager is settled or voided
	HandleWagerUpdated(ctx context.Context, m events.Mutation) Result

	// HandleReminderCreated notifies the user addressed by a settle reminder
	HandleReminderCreated(ctx context.Context, m events.Mutation) Result

	// Register subscribes every handler to the bus
	Register(bus *events.Bus)
}
