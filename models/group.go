package models

import (
	"fmt"
	"time"
)

// Group represents a chat group whose members share wagers
type Group struct {
	ID      string                 `json:"id" db:"id"`
	Name    string                 `json:"name" db:"name"`
	Members []string               `json:"members" db:"members"`
	ChatLog map[string]ChatMessage `json:"chat_log" db:"-"`
}

// ChatMessage is a single entry in a group's chat log
type ChatMessage struct {
	ID         string    `json:"id"`
	SenderID   string    `json:"sender_id"`
	SenderName string    `json:"sender_name"`
	Text       string    `json:"text"`
	CreatedAt  time.Time `json:"created_at"`
	Type       string    `json:"type"`
}

// Membership links a user to a group
type Membership struct {
	GroupID string `json:"group_id" db:"group_id"`
	UserID  string `json:"user_id" db:"user_id"`
	Active  bool   `json:"active" db:"active"`
}

// Validate checks the fields the notification pipeline relies on.
// Chat log entries missing an ID inherit their map key.
func (g *Group) Validate() error {
	if g == nil {
		return fmt.Errorf("%w: group is nil", ErrInvalidDocument)
	}
	if g.ID == "" {
		return fmt.Errorf("%w: group id is required", ErrInvalidDocument)
	}
	for key, msg := range g.ChatLog {
		if key == "" {
			return fmt.Errorf("%w: chat log key is empty", ErrInvalidDocument)
		}
		if msg.ID == "" {
			msg.ID = key
			g.ChatLog[key] = msg
		}
	}
	return nil
}

// DisplayName returns the group name, or fallback when it is blank
func (g *Group) DisplayName(fallback string) string {
	if g == nil || g.Name == "" {
		return fallback
	}
	return g.Name
}
