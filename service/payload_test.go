package service

import (
	"strings"
	"testing"
	"unicode/utf8"

	"wagernotify/events"
	"wagernotify/models"

	"github.com/stretchr/testify/assert"
)

func TestTruncateText(t *testing.T) {
	t.Run("exactly fifty characters is unchanged", func(t *testing.T) {
		text := strings.Repeat("a", 50)
		assert.Equal(t, text, TruncateText(text))
	})

	t.Run("fifty one characters is cut to forty seven plus ellipsis", func(t *testing.T) {
		text := strings.Repeat("a", 46) + "bcdef"
		got := TruncateText(text)
		assert.Equal(t, strings.Repeat("a", 46)+"b...", got)
		assert.Len(t, got, 50)
	})

	t.Run("short text", func(t *testing.T) {
		assert.Equal(t, "hello", TruncateText("hello"))
		assert.Equal(t, "", TruncateText(""))
	})

	t.Run("counts characters not bytes", func(t *testing.T) {
		text := strings.Repeat("é", 50)
		assert.Equal(t, text, TruncateText(text))

		got := TruncateText(strings.Repeat("é", 60))
		assert.Equal(t, 50, utf8.RuneCountInString(got))
		assert.True(t, strings.HasSuffix(got, "..."))
	})
}

func TestFormatPoints(t *testing.T) {
	cases := map[int64]string{
		0:       "0",
		100:     "100",
		1000:    "1,000",
		1234567: "1,234,567",
		-2500:   "-2,500",
	}
	for amount, want := range cases {
		assert.Equal(t, want, FormatPoints(amount))
	}
}

func TestChatPayload(t *testing.T) {
	n := ChatPayload(events.ChatMessageEvent{
		GroupID: "g1", GroupName: "Poker Night", MessageID: "m9",
		SenderID: "a", SenderName: "Alice", Text: "who's in?",
	})

	assert.Equal(t, "Poker Night", n.Title)
	assert.Equal(t, "Alice: who's in?", n.Body)
	assert.Equal(t, map[string]string{
		"type": "chat_message", "groupId": "g1", "messageId": "m9",
	}, n.Data)
}

func TestChatPayload_FallbackTitleAndTruncation(t *testing.T) {
	n := ChatPayload(events.ChatMessageEvent{SenderName: "Bob", Text: strings.Repeat("x", 80)})
	assert.Equal(t, DefaultTitle, n.Title)
	assert.Equal(t, "Bob: "+strings.Repeat("x", 47)+"...", n.Body)
}

func TestWagerCreatedPayload(t *testing.T) {
	n := WagerCreatedPayload("Poker Night", events.WagerCreatedEvent{WagerID: "w1", GroupID: "g1", Title: "Rain tomorrow"})
	assert.Equal(t, "Poker Night", n.Title)
	assert.Equal(t, "New bet: Rain tomorrow", n.Body)
	assert.Equal(t, "new_bet", n.Data["type"])
	assert.Equal(t, "w1", n.Data["wagerId"])
	assert.Equal(t, "g1", n.Data["groupId"])
}

func TestSettledPayload(t *testing.T) {
	ev := events.WagerSettledEvent{WagerID: "w1", GroupID: "g1", GroupName: "Poker", Title: "Rain", WinningOption: "yes"}

	t.Run("winner without payout sees stake", func(t *testing.T) {
		n := SettledPayload(ev, &models.Participation{ChosenOption: "yes", StakeAmount: 100})
		assert.Equal(t, "You won 100 on 'Rain'", n.Body)
	})

	t.Run("winner with payout sees grouped payout", func(t *testing.T) {
		payout := int64(12500)
		n := SettledPayload(ev, &models.Participation{ChosenOption: "yes", StakeAmount: 100, FinalPayout: &payout})
		assert.Equal(t, "You won 12,500 on 'Rain'", n.Body)
	})

	t.Run("loser", func(t *testing.T) {
		n := SettledPayload(ev, &models.Participation{ChosenOption: "no", StakeAmount: 100})
		assert.Equal(t, "Your bet on 'Rain' has been settled", n.Body)
		assert.Equal(t, "Poker", n.Title)
		assert.Equal(t, map[string]string{"type": "bet_settled", "groupId": "g1", "wagerId": "w1"}, n.Data)
	})
}

func TestVoidedPayload(t *testing.T) {
	n := VoidedPayload(
		events.WagerVoidedEvent{WagerID: "w1", GroupID: "g1", Title: "Rain"},
		&models.Participation{StakeAmount: 1500},
	)
	assert.Equal(t, DefaultTitle, n.Title)
	assert.Equal(t, "Your bet on 'Rain' was voided due to lack of opposing wagers. You've been refunded 1,500 points.", n.Body)
	assert.Equal(t, "bet_voided", n.Data["type"])
}

func TestReminderPayload(t *testing.T) {
	t.Run("with wager context", func(t *testing.T) {
		n := ReminderPayload(events.ReminderEvent{
			ReminderID: "n1", UserID: "u1", Message: "Time to settle 'Rain'",
			GroupID: "g1", GroupName: "Poker", WagerID: "w1",
		})
		assert.Equal(t, "Poker", n.Title)
		assert.Equal(t, "Time to settle 'Rain'", n.Body)
		assert.Equal(t, map[string]string{
			"type": "remind_settle", "notificationId": "n1", "groupId": "g1", "wagerId": "w1",
		}, n.Data)
	})

	t.Run("bare reminder", func(t *testing.T) {
		n := ReminderPayload(events.ReminderEvent{ReminderID: "n2", Message: "Settle up"})
		assert.Equal(t, DefaultTitle, n.Title)
		assert.Equal(t, map[string]string{"type": "remind_settle", "notificationId": "n2"}, n.Data)
	})
}
