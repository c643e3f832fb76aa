package testutil

import (
	"time"

	"wagernotify/models"

	"github.com/google/uuid"
)

// NewID returns a random document ID
func NewID() string {
	return uuid.NewString()
}

// CreateTestUser creates a test user with a device token
func CreateTestUser(displayName string) *models.User {
	token := "fcm-" + uuid.NewString()
	return CreateTestUserWithToken(displayName, &token)
}

// CreateTestUserWithToken creates a test user with a specific token, which may be nil
func CreateTestUserWithToken(displayName string, token *string) *models.User {
	now := time.Now()
	return &models.User{
		ID:          NewID(),
		DisplayName: displayName,
		DeviceToken: token,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// CreateTestGroup creates a test group with the given members
func CreateTestGroup(name string, memberIDs ...string) *models.Group {
	return &models.Group{
		ID:      NewID(),
		Name:    name,
		Members: memberIDs,
		ChatLog: map[string]models.ChatMessage{},
	}
}

// CreateTestWager creates an open wager in a group
func CreateTestWager(groupID, title string) *models.Wager {
	return &models.Wager{
		ID:        NewID(),
		GroupID:   groupID,
		Title:     title,
		Status:    models.WagerStatusOpen,
		CreatedAt: time.Now(),
	}
}

// CreateTestParticipation creates a participation without a final payout
func CreateTestParticipation(wagerID, userID, option string, stake int64) *models.Participation {
	return &models.Participation{
		WagerID:      wagerID,
		UserID:       userID,
		ChosenOption: option,
		StakeAmount:  stake,
	}
}
