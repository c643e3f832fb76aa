package service

import (
	"context"
	"errors"
	"testing"

	"wagernotify/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestRecipientResolver_ChatRecipients(t *testing.T) {
	ctx := context.Background()

	t.Run("excludes the sender", func(t *testing.T) {
		groups := new(MockGroupRepository)
		groups.On("GetActiveMemberIDs", ctx, "g1").Return([]string{"a", "b", "c"}, nil)

		resolver := NewRecipientResolver(groups, new(MockWagerRepository))
		recipients, err := resolver.ChatRecipients(ctx, "g1", "a")

		require.NoError(t, err)
		assert.Equal(t, []string{"b", "c"}, recipients)
		groups.AssertExpectations(t)
	})

	t.Run("sender is the only member", func(t *testing.T) {
		groups := new(MockGroupRepository)
		groups.On("GetActiveMemberIDs", ctx, "g1").Return([]string{"a"}, nil)

		resolver := NewRecipientResolver(groups, new(MockWagerRepository))
		recipients, err := resolver.ChatRecipients(ctx, "g1", "a")

		require.NoError(t, err)
		assert.Empty(t, recipients)
	})

	t.Run("repository error", func(t *testing.T) {
		groups := new(MockGroupRepository)
		groups.On("GetActiveMemberIDs", ctx, "g1").Return(nil, errors.New("connection refused"))

		resolver := NewRecipientResolver(groups, new(MockWagerRepository))
		_, err := resolver.ChatRecipients(ctx, "g1", "a")

		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to get active members")
	})
}

func TestRecipientResolver_NewWagerRecipients(t *testing.T) {
	ctx := context.Background()

	t.Run("uses the fixed member list without exclusion", func(t *testing.T) {
		groups := new(MockGroupRepository)
		groups.On("GetByID", ctx, "g1").Return(&models.Group{ID: "g1", Name: "Friday Picks", Members: []string{"a", "b"}}, nil)

		resolver := NewRecipientResolver(groups, new(MockWagerRepository))
		group, recipients, err := resolver.NewWagerRecipients(ctx, "g1")

		require.NoError(t, err)
		require.NotNil(t, group)
		assert.Equal(t, "Friday Picks", group.Name)
		assert.Equal(t, []string{"a", "b"}, recipients)
	})

	t.Run("missing group", func(t *testing.T) {
		groups := new(MockGroupRepository)
		groups.On("GetByID", ctx, "gone").Return(nil, nil)

		resolver := NewRecipientResolver(groups, new(MockWagerRepository))
		group, recipients, err := resolver.NewWagerRecipients(ctx, "gone")

		require.NoError(t, err)
		assert.Nil(t, group)
		assert.Nil(t, recipients)
	})
}

func TestRecipientResolver_Participants(t *testing.T) {
	ctx := context.Background()
	wagers := new(MockWagerRepository)
	wagers.On("GetParticipations", ctx, "w1").Return([]*models.Participation{
		{WagerID: "w1", UserID: "a"},
		{WagerID: "w1", UserID: "b"},
	}, nil)
	wagers.On("GetParticipations", ctx, "w2").Return(nil, errors.New("timeout"))

	resolver := NewRecipientResolver(new(MockGroupRepository), wagers)

	participations, err := resolver.Participants(ctx, "w1")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, participantIDs(participations))

	_, err = resolver.Participants(ctx, "w2")
	assert.Error(t, err)
	wagers.AssertNumberOfCalls(t, "GetParticipations", 2)
	wagers.AssertCalled(t, "GetParticipations", mock.Anything, "w2")
}

func TestRecipientResolver_ReminderRecipients(t *testing.T) {
	resolver := NewRecipientResolver(nil, nil)

	assert.Equal(t, []string{"u1"}, resolver.ReminderRecipients("u1"))
	assert.Nil(t, resolver.ReminderRecipients(""))
}
