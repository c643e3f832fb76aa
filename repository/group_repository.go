package repository

import (
	"context"
	"errors"
	"fmt"

	"wagernotify/database"
	"wagernotify/models"

	"github.com/jackc/pgx/v5"
)

// GroupRepository implements the GroupRepository interface
type GroupRepository struct {
	q queryable
}

// NewGroupRepository creates a new group repository
func NewGroupRepository(db *database.DB) *GroupRepository {
	return &GroupRepository{q: db.Pool}
}

// newGroupRepositoryWithTx creates a new group repository with a transaction
func newGroupRepositoryWithTx(tx queryable) *GroupRepository {
	return &GroupRepository{q: tx}
}

// GetByID retrieves a group by its ID
func (r *GroupRepository) GetByID(ctx context.Context, groupID string) (*models.Group, error) {
	query := `
		SELECT id, name, members
		FROM groups
		WHERE id = $1
	`

	var group models.Group
	err := r.q.QueryRow(ctx, query, groupID).Scan(
		&group.ID,
		&group.Name,
		&group.Members,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group %s: %w", groupID, err)
	}

	return &group, nil
}

// GetActiveMemberIDs returns the users holding an active membership, ordered by user ID
func (r *GroupRepository) GetActiveMemberIDs(ctx context.Context, groupID string) ([]string, error) {
	query := `
		SELECT user_id
		FROM group_memberships
		WHERE group_id = $1 AND active
		ORDER BY user_id
	`

	rows, err := r.q.Query(ctx, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to query active members of group %s: %w", groupID, err)
	}

	memberIDs, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to scan active members of group %s: %w", groupID, err)
	}
	return memberIDs, nil
}

// Upsert creates or replaces a group's name and member list
func (r *GroupRepository) Upsert(ctx context.Context, group *models.Group) error {
	query := `
		INSERT INTO groups (id, name, members)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name, members = EXCLUDED.members, updated_at = NOW()
	`

	members := group.Members
	if members == nil {
		members = []string{}
	}

	if _, err := r.q.Exec(ctx, query, group.ID, group.Name, members); err != nil {
		return fmt.Errorf("failed to upsert group %s: %w", group.ID, err)
	}
	return nil
}

// SetMembership records whether a user is an active member of a group
func (r *GroupRepository) SetMembership(ctx context.Context, membership *models.Membership) error {
	query := `
		INSERT INTO group_memberships (group_id, user_id, active)
		VALUES ($1, $2, $3)
		ON CONFLICT (group_id, user_id) DO UPDATE
		SET active = EXCLUDED.active
	`

	if _, err := r.q.Exec(ctx, query, membership.GroupID, membership.UserID, membership.Active); err != nil {
		return fmt.Errorf("failed to set membership of user %s in group %s: %w", membership.UserID, membership.GroupID, err)
	}
	return nil
}
