package service

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// RecipientToken pairs a user with their current device token
type RecipientToken struct {
	UserID string
	Token  string
}

// tokenLookup is the outcome of one user lookup; Token is nil when the user
// cannot be reached.
type tokenLookup struct {
	UserID string
	Token  *string
}

// TokenResolver fetches device tokens for recipients concurrently
type TokenResolver struct {
	users         UserRepository
	maxInFlight   int
	lookupTimeout time.Duration
}

// NewTokenResolver creates a new token resolver. maxInFlight <= 0 means no
// limit; lookupTimeout <= 0 means lookups only stop with the parent context.
func NewTokenResolver(users UserRepository, maxInFlight int, lookupTimeout time.Duration) *TokenResolver {
	return &TokenResolver{
		users:         users,
		maxInFlight:   maxInFlight,
		lookupTimeout: lookupTimeout,
	}
}

// Resolve looks up every recipient and returns those with a device token,
// preserving recipient order.
func (r *TokenResolver) Resolve(ctx context.Context, userIDs []string) []RecipientToken {
	return presentTokens(r.lookupAll(ctx, userIDs))
}

// lookupAll issues one lookup per user and waits for all of them. A failed
// lookup yields no token and never cancels its siblings.
func (r *TokenResolver) lookupAll(ctx context.Context, userIDs []string) []tokenLookup {
	results := make([]tokenLookup, len(userIDs))

	var g errgroup.Group
	if r.maxInFlight > 0 {
		g.SetLimit(r.maxInFlight)
	}
	for i, userID := range userIDs {
		g.Go(func() error {
			results[i] = tokenLookup{UserID: userID, Token: r.lookup(ctx, userID)}
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (r *TokenResolver) lookup(ctx context.Context, userID string) *string {
	if err := ctx.Err(); err != nil {
		return nil
	}

	if r.lookupTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.lookupTimeout)
		defer cancel()
	}

	user, err := r.users.GetByID(ctx, userID)
	if err != nil {
		log.WithFields(log.Fields{
			"userId": userID,
			"error":  err,
		}).Warn("Failed to look up recipient, skipping")
		return nil
	}

	token, ok := user.Token()
	if !ok {
		return nil
	}
	return &token
}

// presentTokens drops lookups that produced no token
func presentTokens(lookups []tokenLookup) []RecipientToken {
	tokens := make([]RecipientToken, 0, len(lookups))
	for _, l := range lookups {
		if l.Token == nil {
			continue
		}
		tokens = append(tokens, RecipientToken{UserID: l.UserID, Token: *l.Token})
	}
	return tokens
}

// tokenValues returns just the token strings
func tokenValues(tokens []RecipientToken) []string {
	values := make([]string, 0, len(tokens))
	for _, t := range tokens {
		values = append(values, t.Token)
	}
	return values
}

// tokensByUser indexes tokens by user ID
func tokensByUser(tokens []RecipientToken) map[string]string {
	byUser := make(map[string]string, len(tokens))
	for _, t := range tokens {
		byUser[t.UserID] = t.Token
	}
	return byUser
}
