package accounts

import (
	"context"
	"strings"

	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// BulkAction names an admin operation applied to a selection of accounts
type BulkAction string

const (
	BulkActionBlock            BulkAction = "block"
	BulkActionUnblock          BulkAction = "unblock"
	BulkActionDelete           BulkAction = "delete"
	BulkActionDeleteUnverified BulkAction = "delete_unverified"
)

// ParseBulkAction maps a form value to a BulkAction
func ParseBulkAction(raw string) (BulkAction, error) {
	switch BulkAction(strings.ToLower(strings.TrimSpace(raw))) {
	case BulkActionBlock:
		return BulkActionBlock, nil
	case BulkActionUnblock:
		return BulkActionUnblock, nil
	case BulkActionDelete:
		return BulkActionDelete, nil
	case BulkActionDeleteUnverified:
		return BulkActionDeleteUnverified, nil
	default:
		return "", errors.New("unknown bulk action", errors.CategoryValidation).
			WithCode(errors.CodeBadRequest).
			WithMetadata(map[string]any{"action": raw})
	}
}

// BulkOperator applies admin actions to many accounts at once. Each call runs
// in a single transaction: either every selected account changes or none do,
// and a failure surfaces as an error instead of a silent partial write.
//
// Unknown ids in the selection are skipped, not errors; the returned count
// says how many rows actually changed. DeleteUnverified ignores the selection
// entirely and is idempotent: a second run finds nothing to delete and
// reports zero.
type BulkOperator struct {
	repo   RepositoryManager
	cache  StatusCache
	logger Logger
}

type BulkOperatorOption func(*BulkOperator)

func WithBulkLogger(logger Logger) BulkOperatorOption {
	return func(o *BulkOperator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithBulkStatusCache makes the operator invalidate cached statuses after the
// transaction commits, so the guard sees the new state on the next request.
func WithBulkStatusCache(cache StatusCache) BulkOperatorOption {
	return func(o *BulkOperator) {
		if cache != nil {
			o.cache = cache
		}
	}
}

func NewBulkOperator(repo RepositoryManager, opts ...BulkOperatorOption) *BulkOperator {
	o := &BulkOperator{
		repo:   repo,
		logger: defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}

	return o
}

// Apply runs the action against the selected ids and returns how many
// accounts were affected.
func (o *BulkOperator) Apply(ctx context.Context, action BulkAction, ids []uuid.UUID) (int64, error) {
	if action != BulkActionDeleteUnverified && len(ids) == 0 {
		return 0, nil
	}

	var affected int64

	err := o.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error

		switch action {
		case BulkActionBlock:
			affected, err = o.repo.Accounts().UpdateStatusMany(ctx, tx, ids, AccountStatusBlocked)
		case BulkActionUnblock:
			affected, err = o.repo.Accounts().UpdateStatusMany(ctx, tx, ids, AccountStatusActive)
		case BulkActionDelete:
			affected, err = o.repo.Accounts().DeleteAccountsByID(ctx, tx, ids)
		case BulkActionDeleteUnverified:
			affected, err = o.repo.Accounts().DeleteUnverified(ctx, tx)
		default:
			return errors.New("unknown bulk action", errors.CategoryValidation).
				WithCode(errors.CodeBadRequest).
				WithMetadata(map[string]any{"action": string(action)})
		}

		return err
	})

	if err != nil {
		var richErr *errors.Error
		if errors.As(err, &richErr) {
			return 0, richErr
		}
		return 0, errors.Wrap(err, errors.CategoryOperation, "bulk account operation failed").
			WithMetadata(map[string]any{
				"action":   string(action),
				"selected": len(ids),
			})
	}

	o.invalidateStatuses(ctx, action, ids)

	o.logger.Info(
		"bulk account action applied",
		"action", string(action),
		"selected", len(ids),
		"affected", affected,
	)

	return affected, nil
}

// invalidateStatuses drops cached statuses after a commit. delete_unverified
// has no selection; a deleted account still fails the store lookup on its
// next request regardless of any cached status.
func (o *BulkOperator) invalidateStatuses(ctx context.Context, action BulkAction, ids []uuid.UUID) {
	if o.cache == nil || len(ids) == 0 {
		return
	}

	if err := o.cache.Invalidate(ctx, ids...); err != nil {
		o.logger.Warn("status cache invalidation failed: %s", err)
	}
}
