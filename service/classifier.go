package service

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"wagernotify/events"
	"wagernotify/models"
)

// ErrInvalidSnapshot is returned when a trigger snapshot cannot be decoded or validated
var ErrInvalidSnapshot = errors.New("invalid snapshot")

// ErrMissingSnapshot is returned when a trigger lacks a snapshot the rule needs
var ErrMissingSnapshot = errors.New("missing snapshot")

type validatable interface {
	Validate() error
}

// decodeSnapshot decodes and validates one side of a mutation
func decodeSnapshot[T any, PT interface {
	*T
	validatable
}](raw json.RawMessage) (PT, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, ErrMissingSnapshot
	}

	var doc T
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
	}
	ptr := PT(&doc)
	if err := ptr.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
	}
	return ptr, nil
}

// ClassifyGroupUpdate returns the newest chat entry added between two group
// snapshots. Only the most recent new entry is reported even when several
// arrived in the same mutation.
func ClassifyGroupUpdate(before, after *models.Group) (*events.ChatMessageEvent, bool) {
	if before == nil || after == nil {
		return nil, false
	}

	entries := NewChatEntries(before.ChatLog, after.ChatLog)
	if len(entries) == 0 {
		return nil, false
	}

	latest := entries[len(entries)-1]
	return &events.ChatMessageEvent{
		GroupID:    after.ID,
		GroupName:  after.Name,
		MessageID:  latest.ID,
		SenderID:   latest.SenderID,
		SenderName: latest.SenderName,
		Text:       latest.Text,
	}, true
}

// ClassifyWagerCreated reports a wager created under a group
func ClassifyWagerCreated(after *models.Wager) (*events.WagerCreatedEvent, bool) {
	if after == nil || after.GroupID == "" {
		return nil, false
	}
	return &events.WagerCreatedEvent{
		WagerID: after.ID,
		GroupID: after.GroupID,
		Title:   after.Title,
	}, true
}

// ClassifyWagerUpdate reports a wager that has just become settled or voided.
// Re-observing a terminal status does not fire because the previous status
// must differ from the current one.
func ClassifyWagerUpdate(before, after *models.Wager) (events.Event, bool) {
	if before == nil || after == nil {
		return nil, false
	}
	if before.Status == after.Status {
		return nil, false
	}

	switch after.Status {
	case models.WagerStatusSettled:
		winning := ""
		if after.WinningOption != nil {
			winning = *after.WinningOption
		}
		return events.WagerSettledEvent{
			WagerID:       after.ID,
			GroupID:       after.GroupID,
			GroupName:     after.GroupName,
			Title:         after.Title,
			WinningOption: winning,
		}, true
	case models.WagerStatusVoided:
		return events.WagerVoidedEvent{
			WagerID:   after.ID,
			GroupID:   after.GroupID,
			GroupName: after.GroupName,
			Title:     after.Title,
		}, true
	default:
		return nil, false
	}
}

// ClassifyReminder reports a settle reminder addressed to a user
func ClassifyReminder(after *models.Reminder) (*events.ReminderEvent, bool) {
	if after == nil || after.Type != models.ReminderTypeRemindSettle {
		return nil, false
	}
	return &events.ReminderEvent{
		ReminderID: after.ID,
		UserID:     after.UserID,
		Message:    after.Message,
		GroupID:    after.GroupID,
		GroupName:  after.GroupName,
		WagerID:    after.WagerID,
	}, true
}
