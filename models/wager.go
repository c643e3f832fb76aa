package models

import (
	"fmt"
	"time"
)

// WagerStatus represents the lifecycle state of a wager
type WagerStatus string

const (
	WagerStatusOpen    WagerStatus = "open"
	WagerStatusSettled WagerStatus = "settled"
	WagerStatusVoided  WagerStatus = "voided"
)

// Wager represents a bet created inside a group
type Wager struct {
	ID            string      `json:"id" db:"id"`
	GroupID       string      `json:"group_id" db:"group_id"`
	GroupName     string      `json:"group_name" db:"group_name"`
	Title         string      `json:"title" db:"title"`
	Status        WagerStatus `json:"status" db:"status"`
	WinningOption *string     `json:"winning_option" db:"winning_option"`
	CreatedAt     time.Time   `json:"created_at" db:"created_at"`
}

// Participation is a single user's position on a wager
type Participation struct {
	WagerID      string `json:"wager_id" db:"wager_id"`
	UserID       string `json:"user_id" db:"user_id"`
	ChosenOption string `json:"chosen_option" db:"chosen_option"`
	StakeAmount  int64  `json:"stake_amount" db:"stake_amount"`
	FinalPayout  *int64 `json:"final_payout" db:"final_payout"`
}

// Validate checks the fields the notification pipeline relies on.
// A blank status is treated as open.
func (w *Wager) Validate() error {
	if w == nil {
		return fmt.Errorf("%w: wager is nil", ErrInvalidDocument)
	}
	if w.ID == "" {
		return fmt.Errorf("%w: wager id is required", ErrInvalidDocument)
	}
	switch w.Status {
	case "":
		w.Status = WagerStatusOpen
	case WagerStatusOpen, WagerStatusSettled, WagerStatusVoided:
	default:
		return fmt.Errorf("%w: unknown wager status %q", ErrInvalidDocument, w.Status)
	}
	return nil
}

// IsTerminal reports whether the status can no longer change
func (s WagerStatus) IsTerminal() bool {
	return s == WagerStatusSettled || s == WagerStatusVoided
}

// IsWinner checks if the participant picked the winning option
func (p *Participation) IsWinner(winningOption string) bool {
	return p.ChosenOption == winningOption
}

// DisplayAmount returns the final payout when present, otherwise the stake
func (p *Participation) DisplayAmount() int64 {
	if p.FinalPayout != nil {
		return *p.FinalPayout
	}
	return p.StakeAmount
}
