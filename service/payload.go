package service

import (
	"fmt"

	"wagernotify/events"
	"wagernotify/models"

	"github.com/dustin/go-humanize"
)

const (
	// DefaultTitle is shown when the group name cannot be resolved
	DefaultTitle = "Wager Group"

	maxChatPreview   = 50
	chatPreviewCut   = 47
	chatPreviewTrail = "..."
)

// Data payload keys read by the mobile client
const (
	DataKeyType           = "type"
	DataKeyGroupID        = "groupId"
	DataKeyMessageID      = "messageId"
	DataKeyWagerID        = "wagerId"
	DataKeyNotificationID = "notificationId"
)

// TruncateText caps chat previews at 50 characters: longer text keeps its
// first 47 characters followed by "...".
func TruncateText(text string) string {
	runes := []rune(text)
	if len(runes) <= maxChatPreview {
		return text
	}
	return string(runes[:chatPreviewCut]) + chatPreviewTrail
}

// FormatPoints renders an amount with comma grouping, independent of locale
func FormatPoints(amount int64) string {
	return humanize.Comma(amount)
}

func titleOr(name string) string {
	if name == "" {
		return DefaultTitle
	}
	return name
}

// ChatPayload builds the shared notification for a new chat entry
func ChatPayload(ev events.ChatMessageEvent) models.Notification {
	return models.Notification{
		Title: titleOr(ev.GroupName),
		Body:  fmt.Sprintf("%s: %s", ev.SenderName, TruncateText(ev.Text)),
		Data: map[string]string{
			DataKeyType:      string(events.EventTypeChatMessage),
			DataKeyGroupID:   ev.GroupID,
			DataKeyMessageID: ev.MessageID,
		},
	}
}

// WagerCreatedPayload builds the shared notification for a new wager
func WagerCreatedPayload(groupName string, ev events.WagerCreatedEvent) models.Notification {
	return models.Notification{
		Title: titleOr(groupName),
		Body:  fmt.Sprintf("New bet: %s", ev.Title),
		Data: map[string]string{
			DataKeyType:    string(events.EventTypeWagerCreated),
			DataKeyGroupID: ev.GroupID,
			DataKeyWagerID: ev.WagerID,
		},
	}
}

// SettledPayload builds one participant's notification for a settled wager
func SettledPayload(ev events.WagerSettledEvent, p *models.Participation) models.Notification {
	var body string
	if p.IsWinner(ev.WinningOption) {
		body = fmt.Sprintf("You won %s on '%s'", FormatPoints(p.DisplayAmount()), ev.Title)
	} else {
		body = fmt.Sprintf("Your bet on '%s' has been settled", ev.Title)
	}

	return models.Notification{
		Title: titleOr(ev.GroupName),
		Body:  body,
		Data: map[string]string{
			DataKeyType:    string(events.EventTypeWagerSettled),
			DataKeyGroupID: ev.GroupID,
			DataKeyWagerID: ev.WagerID,
		},
	}
}

// VoidedPayload builds one participant's notification for a voided wager
func VoidedPayload(ev events.WagerVoidedEvent, p *models.Participation) models.Notification {
	return models.Notification{
		Title: titleOr(ev.GroupName),
		Body: fmt.Sprintf(
			"Your bet on '%s' was voided due to lack of opposing wagers. You've been refunded %s points.",
			ev.Title, FormatPoints(p.StakeAmount),
		),
		Data: map[string]string{
			DataKeyType:    string(events.EventTypeWagerVoided),
			DataKeyGroupID: ev.GroupID,
			DataKeyWagerID: ev.WagerID,
		},
	}
}

// ReminderPayload builds the notification for a settle reminder
func ReminderPayload(ev events.ReminderEvent) models.Notification {
	data := map[string]string{
		DataKeyType:           string(events.EventTypeRemindSettle),
		DataKeyNotificationID: ev.ReminderID,
	}
	if ev.GroupID != "" {
		data[DataKeyGroupID] = ev.GroupID
	}
	if ev.WagerID != "" {
		data[DataKeyWagerID] = ev.WagerID
	}

	return models.Notification{
		Title: titleOr(ev.GroupName),
		Body:  ev.Message,
		Data:  data,
	}
}
