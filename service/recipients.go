package service

import (
	"context"
	"fmt"

	"wagernotify/models"
)

// RecipientResolver looks up the audience for each event type
type RecipientResolver struct {
	groups GroupRepository
	wagers WagerRepository
}

// NewRecipientResolver creates a new recipient resolver
func NewRecipientResolver(groups GroupRepository, wagers WagerRepository) *RecipientResolver {
	return &RecipientResolver{
		groups: groups,
		wagers: wagers,
	}
}

// ChatRecipients returns the active members of a group other than the sender
func (r *RecipientResolver) ChatRecipients(ctx context.Context, groupID, senderID string) ([]string, error) {
	memberIDs, err := r.groups.GetActiveMemberIDs(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to get active members of group %s: %w", groupID, err)
	}

	recipients := make([]string, 0, len(memberIDs))
	for _, id := range memberIDs {
		if id == senderID {
			continue
		}
		recipients = append(recipients, id)
	}
	return recipients, nil
}

// NewWagerRecipients returns the group and its fixed member list. The group is
// nil when it no longer exists.
func (r *RecipientResolver) NewWagerRecipients(ctx context.Context, groupID string) (*models.Group, []string, error) {
	group, err := r.groups.GetByID(ctx, groupID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get group %s: %w", groupID, err)
	}
	if group == nil {
		return nil, nil, nil
	}
	return group, group.Members, nil
}

// Participants returns every participation record for a wager
func (r *RecipientResolver) Participants(ctx context.Context, wagerID string) ([]*models.Participation, error) {
	participations, err := r.wagers.GetParticipations(ctx, wagerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get participations for wager %s: %w", wagerID, err)
	}
	return participations, nil
}

// ReminderRecipients returns the single user a reminder is addressed to
func (r *RecipientResolver) ReminderRecipients(userID string) []string {
	if userID == "" {
		return nil
	}
	return []string{userID}
}

// participantIDs extracts user IDs from participation records
func participantIDs(participations []*models.Participation) []string {
	ids := make([]string, 0, len(participations))
	for _, p := range participations {
		ids = append(ids, p.UserID)
	}
	return ids
}
