package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"wagernotify/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func userWithToken(id string, token *string) *models.User {
	return &models.User{ID: id, DisplayName: id, DeviceToken: token}
}

func TestTokenResolver_Resolve(t *testing.T) {
	ctx := context.Background()

	t.Run("drops tokenless and missing users in recipient order", func(t *testing.T) {
		users := new(MockUserRepository)
		users.On("GetByID", mock.Anything, "a").Return(userWithToken("a", strPtr("tok-a")), nil)
		users.On("GetByID", mock.Anything, "b").Return(userWithToken("b", nil), nil)
		users.On("GetByID", mock.Anything, "c").Return(userWithToken("c", strPtr("")), nil)
		users.On("GetByID", mock.Anything, "d").Return(nil, nil)
		users.On("GetByID", mock.Anything, "e").Return(userWithToken("e", strPtr("tok-e")), nil)

		resolver := NewTokenResolver(users, 2, time.Second)
		tokens := resolver.Resolve(ctx, []string{"a", "b", "c", "d", "e"})

		assert.Equal(t, []RecipientToken{
			{UserID: "a", Token: "tok-a"},
			{UserID: "e", Token: "tok-e"},
		}, tokens)
		users.AssertNumberOfCalls(t, "GetByID", 5)
	})

	t.Run("failed lookup does not affect siblings", func(t *testing.T) {
		users := new(MockUserRepository)
		users.On("GetByID", mock.Anything, "a").Return(nil, errors.New("deadline exceeded"))
		users.On("GetByID", mock.Anything, "b").Return(userWithToken("b", strPtr("tok-b")), nil)

		resolver := NewTokenResolver(users, 0, 0)
		tokens := resolver.Resolve(ctx, []string{"a", "b"})

		assert.Equal(t, []RecipientToken{{UserID: "b", Token: "tok-b"}}, tokens)
	})

	t.Run("all lookups fail", func(t *testing.T) {
		users := new(MockUserRepository)
		users.On("GetByID", mock.Anything, mock.Anything).Return(nil, errors.New("unavailable"))

		resolver := NewTokenResolver(users, 4, 0)
		assert.Empty(t, resolver.Resolve(ctx, []string{"a", "b", "c"}))
	})

	t.Run("lookups run concurrently", func(t *testing.T) {
		var inFlight, peak atomic.Int32
		users := new(MockUserRepository)
		users.On("GetByID", mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) {
				n := inFlight.Add(1)
				for {
					p := peak.Load()
					if n <= p || peak.CompareAndSwap(p, n) {
						break
					}
				}
				time.Sleep(20 * time.Millisecond)
				inFlight.Add(-1)
			}).
			Return(userWithToken("x", strPtr("tok")), nil)

		resolver := NewTokenResolver(users, 3, 0)
		tokens := resolver.Resolve(ctx, []string{"a", "b", "c", "d", "e", "f"})

		assert.Len(t, tokens, 6)
		assert.Greater(t, peak.Load(), int32(1))
		assert.LessOrEqual(t, peak.Load(), int32(3))
	})

	t.Run("cancelled context starts no lookups", func(t *testing.T) {
		users := new(MockUserRepository)
		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		resolver := NewTokenResolver(users, 2, 0)
		assert.Empty(t, resolver.Resolve(cancelled, []string{"a", "b"}))
		users.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
	})
}

func TestTokenHelpers(t *testing.T) {
	tokens := []RecipientToken{{UserID: "a", Token: "t1"}, {UserID: "b", Token: "t2"}}

	assert.Equal(t, []string{"t1", "t2"}, tokenValues(tokens))
	assert.Equal(t, map[string]string{"a": "t1", "b": "t2"}, tokensByUser(tokens))
}
