package service

import (
	"context"
	"sync"
	"time"

	"wagernotify/events"
	"wagernotify/models"

	"github.com/stretchr/testify/mock"
)

// MockGroupRepository is a mock implementation of GroupRepository
type MockGroupRepository struct {
	mock.Mock
}

func (m *MockGroupRepository) GetByID(ctx context.Context, groupID string) (*models.Group, error) {
	args := m.Called(ctx, groupID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Group), args.Error(1)
}

func (m *MockGroupRepository) GetActiveMemberIDs(ctx context.Context, groupID string) ([]string, error) {
	args := m.Called(ctx, groupID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

// MockWagerRepository is a mock implementation of WagerRepository
type MockWagerRepository struct {
	mock.Mock
}

func (m *MockWagerRepository) GetParticipations(ctx context.Context, wagerID string) ([]*models.Participation, error) {
	args := m.Called(ctx, wagerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Participation), args.Error(1)
}

// MockUserRepository is a mock implementation of UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) GetByID(ctx context.Context, userID string) (*models.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

// MockReceiptRepository is a mock implementation of ReceiptRepository
type MockReceiptRepository struct {
	mock.Mock
}

func (m *MockReceiptRepository) Claim(ctx context.Context, key string, eventType events.EventType) (bool, error) {
	args := m.Called(ctx, key, eventType)
	return args.Bool(0), args.Error(1)
}

// MockPushSender is a mock implementation of PushSender
type MockPushSender struct {
	mock.Mock
}

func (m *MockPushSender) SendMulticast(ctx context.Context, msg models.BatchMessage) (*models.BatchResult, error) {
	args := m.Called(ctx, msg)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.BatchResult), args.Error(1)
}

func (m *MockPushSender) Send(ctx context.Context, msg models.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

// RecordingMetrics captures what the pipeline reports
type RecordingMetrics struct {
	mu        sync.Mutex
	Received  map[events.MutationKind]int
	Halted    map[HaltReason]int
	Succeeded map[DeliveryMode]int
	Failed    map[DeliveryMode]int
	Durations int
}

// NewRecordingMetrics creates an empty recorder
func NewRecordingMetrics() *RecordingMetrics {
	return &RecordingMetrics{
		Received:  make(map[events.MutationKind]int),
		Halted:    make(map[HaltReason]int),
		Succeeded: make(map[DeliveryMode]int),
		Failed:    make(map[DeliveryMode]int),
	}
}

func (r *RecordingMetrics) RecordMutationReceived(kind events.MutationKind) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Received[kind]++
}

func (r *RecordingMetrics) RecordEventHalted(_ events.MutationKind, reason HaltReason) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Halted[reason]++
}

func (r *RecordingMetrics) RecordDelivery(_ events.EventType, mode DeliveryMode, success, failure int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Succeeded[mode] += success
	r.Failed[mode] += failure
}

func (r *RecordingMetrics) RecordPipelineDuration(events.MutationKind, time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Durations++
}
