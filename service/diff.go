package service

import (
	"sort"

	"wagernotify/models"
)

// NewChatEntries returns the chat log entries whose key is in after but not in
// before, oldest first. Entries with equal timestamps are ordered by key so the
// result is deterministic. A nil or empty before makes every entry new.
func NewChatEntries(before, after map[string]models.ChatMessage) []models.ChatMessage {
	keys := make([]string, 0, len(after))
	for key := range after {
		if _, seen := before[key]; !seen {
			keys = append(keys, key)
		}
	}

	sort.Slice(keys, func(i, j int) bool {
		ti, tj := after[keys[i]].CreatedAt, after[keys[j]].CreatedAt
		if !ti.Equal(tj) {
			return ti.Before(tj)
		}
		return keys[i] < keys[j]
	})

	entries := make([]models.ChatMessage, 0, len(keys))
	for _, key := range keys {
		msg := after[key]
		if msg.ID == "" {
			msg.ID = key
		}
		entries = append(entries, msg)
	}
	return entries
}
