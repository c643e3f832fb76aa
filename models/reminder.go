package models

import (
	"fmt"
	"time"
)

// ReminderType tags the kind of reminder record
type ReminderType string

const (
	// ReminderTypeRemindSettle asks a wager creator to settle their bet
	ReminderTypeRemindSettle ReminderType = "remind_settle"
)

// Reminder is a transient notification record addressed to one user
type Reminder struct {
	ID        string       `json:"id"`
	Type      ReminderType `json:"type"`
	UserID    string       `json:"user_id"`
	Message   string       `json:"message"`
	GroupID   string       `json:"group_id,omitempty"`
	GroupName string       `json:"group_name,omitempty"`
	WagerID   string       `json:"wager_id,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
}

// Validate checks the fields the notification pipeline relies on
func (r *Reminder) Validate() error {
	if r == nil {
		return fmt.Errorf("%w: reminder is nil", ErrInvalidDocument)
	}
	if r.ID == "" {
		return fmt.Errorf("%w: reminder id is required", ErrInvalidDocument)
	}
	return nil
}
