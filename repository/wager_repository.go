package repository

import (
	"context"
	"fmt"

	"wagernotify/database"
	"wagernotify/models"

	"github.com/jackc/pgx/v5"
)

// WagerRepository implements the WagerRepository interface
type WagerRepository struct {
	q queryable
}

// NewWagerRepository creates a new wager repository
func NewWagerRepository(db *database.DB) *WagerRepository {
	return &WagerRepository{q: db.Pool}
}

// newWagerRepositoryWithTx creates a new wager repository with a transaction
func newWagerRepositoryWithTx(tx queryable) *WagerRepository {
	return &WagerRepository{q: tx}
}

// GetParticipations returns every participation record for a wager
func (r *WagerRepository) GetParticipations(ctx context.Context, wagerID string) ([]*models.Participation, error) {
	query := `
		SELECT wager_id, user_id, chosen_option, stake_amount, final_payout
		FROM wager_participations
		WHERE wager_id = $1
		ORDER BY created_at, user_id
	`

	rows, err := r.q.Query(ctx, query, wagerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query participations for wager %s: %w", wagerID, err)
	}

	participations, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*models.Participation, error) {
		var p models.Participation
		err := row.Scan(
			&p.WagerID,
			&p.UserID,
			&p.ChosenOption,
			&p.StakeAmount,
			&p.FinalPayout,
		)
		return &p, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan participations for wager %s: %w", wagerID, err)
	}

	return participations, nil
}

// Create inserts a new wager
func (r *WagerRepository) Create(ctx context.Context, wager *models.Wager) error {
	query := `
		INSERT INTO wagers (id, group_id, title, status, winning_option)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`

	status := wager.Status
	if status == "" {
		status = models.WagerStatusOpen
	}

	err := r.q.QueryRow(ctx, query, wager.ID, wager.GroupID, wager.Title, status, wager.WinningOption).
		Scan(&wager.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create wager %s: %w", wager.ID, err)
	}
	wager.Status = status
	return nil
}

// SaveParticipation creates or replaces a user's position on a wager
func (r *WagerRepository) SaveParticipation(ctx context.Context, p *models.Participation) error {
	query := `
		INSERT INTO wager_participations (wager_id, user_id, chosen_option, stake_amount, final_payout)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (wager_id, user_id) DO UPDATE
		SET chosen_option = EXCLUDED.chosen_option,
		    stake_amount = EXCLUDED.stake_amount,
		    final_payout = EXCLUDED.final_payout
	`

	if _, err := r.q.Exec(ctx, query, p.WagerID, p.UserID, p.ChosenOption, p.StakeAmount, p.FinalPayout); err != nil {
		return fmt.Errorf("failed to save participation of user %s in wager %s: %w", p.UserID, p.WagerID, err)
	}
	return nil
}
