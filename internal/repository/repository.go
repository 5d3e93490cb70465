package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/prperemyshlev/guild-rejoin/pkg/database"
)

// dbtx is satisfied by both *sql.DB and *sql.Tx
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Repositories holds all repository interfaces
type Repositories struct {
	User        UserRepository
	Credential  CredentialRepository
	JoinAttempt JoinAttemptRepository

	db *sql.DB
}

var _ Transactor = (*Repositories)(nil)

// NewRepositories creates all repositories
func NewRepositories(db *database.Postgres) *Repositories {
	repos := newRepositories(db.DB)
	repos.db = db.DB
	return repos
}

func newRepositories(q dbtx) *Repositories {
	return &Repositories{
		User:        NewUserRepository(q),
		Credential:  NewCredentialRepository(q),
		JoinAttempt: NewJoinAttemptRepository(q),
	}
}

// RunInTx implements Transactor
func (r *Repositories) RunInTx(ctx context.Context, fn func(repos *Repositories) error) error {
	if r.db == nil {
		return fmt.Errorf("repositories are already bound to a transaction")
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(newRepositories(tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Join(err, fmt.Errorf("failed to roll back transaction: %w", rbErr))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
