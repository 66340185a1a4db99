package repository

import (
	"context"
	"database/sql"

	"piiwatch/internal/db"
	"piiwatch/internal/identity/domain"
	userdomain "piiwatch/internal/user/domain"
	userrepo "piiwatch/internal/user/repository"
)

// TxLinker writes a new user and its first provider identity in one transaction.
type TxLinker struct {
	db *sql.DB
}

// NewTxLinker returns a TxLinker over conn.
func NewTxLinker(conn *sql.DB) *TxLinker {
	return &TxLinker{db: conn}
}

// CreateAndLink inserts u and i atomically. A taken email surfaces as
// userrepo.ErrDuplicateEmail and a taken provider account as ErrAlreadyLinked;
// either way nothing is committed.
func (l *TxLinker) CreateAndLink(ctx context.Context, u *userdomain.User, i *domain.Identity) error {
	return db.WithTx(ctx, l.db, func(ctx context.Context, tx db.DBTX) error {
		if err := userrepo.NewPostgresRepository(tx).Create(ctx, u); err != nil {
			return err
		}
		return NewPostgresRepository(tx).Create(ctx, i)
	})
}
