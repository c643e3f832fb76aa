package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"wagernotify/events"
	"wagernotify/models"
	"wagernotify/repository/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroupRepository(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	repo := NewGroupRepository(testDB.DB)
	ctx := context.Background()

	t.Run("group not found", func(t *testing.T) {
		group, err := repo.GetByID(ctx, testutil.NewID())
		require.NoError(t, err)
		assert.Nil(t, group)
	})

	t.Run("round trips members", func(t *testing.T) {
		original := testutil.CreateTestGroup("Friday Picks", "a", "b", "c")
		require.NoError(t, repo.Upsert(ctx, original))

		group, err := repo.GetByID(ctx, original.ID)
		require.NoError(t, err)
		require.NotNil(t, group)
		assert.Equal(t, "Friday Picks", group.Name)
		assert.Equal(t, []string{"a", "b", "c"}, group.Members)
	})

	t.Run("active members only", func(t *testing.T) {
		group := testutil.CreateTestGroup("Office Pool")
		require.NoError(t, repo.Upsert(ctx, group))

		for _, m := range []models.Membership{
			{GroupID: group.ID, UserID: "u2", Active: true},
			{GroupID: group.ID, UserID: "u1", Active: true},
			{GroupID: group.ID, UserID: "u3", Active: false},
		} {
			require.NoError(t, repo.SetMembership(ctx, &m))
		}

		memberIDs, err := repo.GetActiveMemberIDs(ctx, group.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"u1", "u2"}, memberIDs)

		require.NoError(t, repo.SetMembership(ctx, &models.Membership{GroupID: group.ID, UserID: "u1", Active: false}))
		memberIDs, err = repo.GetActiveMemberIDs(ctx, group.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"u2"}, memberIDs)
	})
}

func TestWagerRepository_GetParticipations(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	groups := NewGroupRepository(testDB.DB)
	repo := NewWagerRepository(testDB.DB)
	ctx := context.Background()

	group := testutil.CreateTestGroup("Friday Picks")
	require.NoError(t, groups.Upsert(ctx, group))

	wager := testutil.CreateTestWager(group.ID, "Rain tomorrow")
	require.NoError(t, repo.Create(ctx, wager))

	t.Run("no participants", func(t *testing.T) {
		participations, err := repo.GetParticipations(ctx, wager.ID)
		require.NoError(t, err)
		assert.Empty(t, participations)
	})

	t.Run("returns stakes and payouts", func(t *testing.T) {
		winner := testutil.CreateTestParticipation(wager.ID, "a", "yes", 100)
		payout := int64(250)
		winner.FinalPayout = &payout
		require.NoError(t, repo.SaveParticipation(ctx, winner))
		require.NoError(t, repo.SaveParticipation(ctx, testutil.CreateTestParticipation(wager.ID, "b", "no", 150)))

		participations, err := repo.GetParticipations(ctx, wager.ID)
		require.NoError(t, err)
		require.Len(t, participations, 2)

		byUser := map[string]*models.Participation{}
		for _, p := range participations {
			byUser[p.UserID] = p
		}
		require.NotNil(t, byUser["a"].FinalPayout)
		assert.Equal(t, int64(250), *byUser["a"].FinalPayout)
		assert.Nil(t, byUser["b"].FinalPayout)
		assert.Equal(t, int64(150), byUser["b"].StakeAmount)
	})
}

func TestUserRepository(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	repo := NewUserRepository(testDB.DB)
	ctx := context.Background()

	t.Run("user not found", func(t *testing.T) {
		user, err := repo.GetByID(ctx, testutil.NewID())
		require.NoError(t, err)
		assert.Nil(t, user)
	})

	t.Run("token can be cleared", func(t *testing.T) {
		user := testutil.CreateTestUser("Ana")
		require.NoError(t, repo.Upsert(ctx, user))

		stored, err := repo.GetByID(ctx, user.ID)
		require.NoError(t, err)
		token, ok := stored.Token()
		assert.True(t, ok)
		assert.Equal(t, *user.DeviceToken, token)

		user.DeviceToken = nil
		require.NoError(t, repo.Upsert(ctx, user))

		stored, err = repo.GetByID(ctx, user.ID)
		require.NoError(t, err)
		_, ok = stored.Token()
		assert.False(t, ok)
	})
}

func TestReceiptRepository_Claim(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	repo := NewReceiptRepository(testDB.DB)
	ctx := context.Background()

	first, err := repo.Claim(ctx, "key-1", events.EventTypeChatMessage)
	require.NoError(t, err)
	assert.True(t, first)

	again, err := repo.Claim(ctx, "key-1", events.EventTypeChatMessage)
	require.NoError(t, err)
	assert.False(t, again)

	pruned, err := repo.DeleteOlderThan(ctx, time.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), pruned)

	reclaimed, err := repo.Claim(ctx, "key-1", events.EventTypeChatMessage)
	require.NoError(t, err)
	assert.True(t, reclaimed)
}

func TestRunInTransaction(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()

	t.Run("commits every write", func(t *testing.T) {
		user := testutil.CreateTestUser("Ana")
		group := testutil.CreateTestGroup("Friday Picks", user.ID)

		err := RunInTransaction(ctx, testDB.DB, func(uow *UnitOfWork) error {
			if err := uow.Users().Upsert(ctx, user); err != nil {
				return err
			}
			if err := uow.Groups().Upsert(ctx, group); err != nil {
				return err
			}
			return uow.Groups().SetMembership(ctx, &models.Membership{GroupID: group.ID, UserID: user.ID, Active: true})
		})
		require.NoError(t, err)

		memberIDs, err := NewGroupRepository(testDB.DB).GetActiveMemberIDs(ctx, group.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{user.ID}, memberIDs)
	})

	t.Run("rolls back on error", func(t *testing.T) {
		group := testutil.CreateTestGroup("Abandoned")
		boom := errors.New("boom")

		err := RunInTransaction(ctx, testDB.DB, func(uow *UnitOfWork) error {
			if err := uow.Groups().Upsert(ctx, group); err != nil {
				return err
			}
			return boom
		})
		assert.ErrorIs(t, err, boom)

		stored, err := NewGroupRepository(testDB.DB).GetByID(ctx, group.ID)
		require.NoError(t, err)
		assert.Nil(t, stored)
	})
}
