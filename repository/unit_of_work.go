package repository

import (
	"context"

	"wagernotify/database"

	"github.com/jackc/pgx/v5"
)

// UnitOfWork groups repository writes that must land together
type UnitOfWork struct {
	groups *GroupRepository
	wagers *WagerRepository
	users  *UserRepository
}

// Groups returns the group repository bound to this unit of work
func (u *UnitOfWork) Groups() *GroupRepository { return u.groups }

// Wagers returns the wager repository bound to this unit of work
func (u *UnitOfWork) Wagers() *WagerRepository { return u.wagers }

// Users returns the user repository bound to this unit of work
func (u *UnitOfWork) Users() *UserRepository { return u.users }

// RunInTransaction executes fn with repositories sharing one transaction
func RunInTransaction(ctx context.Context, db *database.DB, fn func(uow *UnitOfWork) error) error {
	return db.WithTransaction(ctx, func(tx pgx.Tx) error {
		return fn(&UnitOfWork{
			groups: newGroupRepositoryWithTx(tx),
			wagers: newWagerRepositoryWithTx(tx),
			users:  newUserRepositoryWithTx(tx),
		})
	})
}
