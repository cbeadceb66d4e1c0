package accounts

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// RepositoryManager exposes all repositories
type RepositoryManager interface {
	repository.Validator
	repository.TransactionManager
	Accounts() Accounts
	RevokedTokens() RevokedTokens
}

// RevokedTokens is the session denylist. A token's jti lands here when the
// session is revoked before its signed expiry.
type RevokedTokens interface {
	repository.Repository[*RevokedToken]

	Revoke(ctx context.Context, tokenID, accountID uuid.UUID, expiresAt time.Time) error
	IsRevoked(ctx context.Context, tokenID uuid.UUID) (bool, error)
	PurgeExpired(ctx context.Context) (int64, error)
}

type revokedTokensRepo struct {
	repository.Repository[*RevokedToken]
	db *bun.DB
}

func NewRevokedTokensRepository(db *bun.DB) RevokedTokens {
	handlers := repository.ModelHandlers[*RevokedToken]{
		NewRecord: func() *RevokedToken {
			return &RevokedToken{}
		},
		GetID: func(record *RevokedToken) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return record.ID
		},
		SetID: func(record *RevokedToken, id uuid.UUID) {
			record.ID = id
		},
	}

	return &revokedTokensRepo{
		Repository: repository.NewRepository(db, handlers),
		db:         db,
	}
}

func (r *revokedTokensRepo) Revoke(ctx context.Context, tokenID, accountID uuid.UUID, expiresAt time.Time) error {
	record := &RevokedToken{
		ID:        tokenID,
		ExpiresAt: expiresAt,
	}
	if accountID != uuid.Nil {
		record.AccountID = &accountID
	}

	_, err := r.Repository.Create(ctx, record)
	if err != nil && isUniqueViolation(err) {
		// revoking an already revoked token is a no-op
		return nil
	}
	return err
}

func (r *revokedTokensRepo) IsRevoked(ctx context.Context, tokenID uuid.UUID) (bool, error) {
	record := &RevokedToken{}
	err := r.db.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", tokenID).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return false, nil
		}
		return false, err
	}

	return true, nil
}

func (r *revokedTokensRepo) PurgeExpired(ctx context.Context) (int64, error) {
	res, err := r.db.NewDelete().
		Model((*RevokedToken)(nil)).
		Where("expires_at < ?", time.Now()).
		Exec(ctx)

	if err != nil {
		return 0, err
	}

	return res.RowsAffected()
}

type mngr struct {
	db            *bun.DB
	accounts      Accounts
	revokedTokens RevokedTokens
}

func NewRepositoryManager(db *bun.DB) RepositoryManager {
	return &mngr{
		db:            db,
		accounts:      NewAccountsRepository(db),
		revokedTokens: NewRevokedTokensRepository(db),
	}
}

func (m mngr) Validate() error {
	if m.accounts == nil {
		return errors.New("repository accounts should be initialized")
	}

	if m.revokedTokens == nil {
		return errors.New("repository revokedTokens should be initialized")
	}

	return nil
}

func (m mngr) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

func (m mngr) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return m.db.RunInTx(ctx, opts, f)
	}
}

func (m mngr) Accounts() Accounts {
	return m.accounts
}

func (m mngr) RevokedTokens() RevokedTokens {
	return m.revokedTokens
}
