package accounts

import (
	"context"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/uptrace/bun"
)

// RegisterAccountMessage carries the registration form input
type RegisterAccountMessage struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	UseHashid bool
}

func (e RegisterAccountMessage) Type() string { return "account.register" }

// AccountManager owns the account lifecycle operations: registration and the
// credential check. Status transitions beyond that belong to BulkOperator.
type AccountManager struct {
	repo   RepositoryManager
	logger Logger
}

// NewAccountManager creates a new AccountManager
func NewAccountManager(repo RepositoryManager) *AccountManager {
	return &AccountManager{
		repo:   repo,
		logger: defLogger{},
	}
}

func (m *AccountManager) WithLogger(logger Logger) *AccountManager {
	if logger != nil {
		m.logger = logger
	}
	return m
}

// Register creates a new account in the unverified state. Name, email, and
// password must be non empty after trimming. A duplicate email surfaces as
// ErrEmailTaken; the caller renders it as a field error, not a crash.
func (m *AccountManager) Register(ctx context.Context, msg RegisterAccountMessage) (*Account, error) {
	name := strings.TrimSpace(msg.Name)
	email := NormalizeEmail(msg.Email)
	password := strings.TrimSpace(msg.Password)

	if name == "" || email == "" || password == "" {
		return nil, goerrors.New("name, email, and password are required", goerrors.CategoryValidation).
			WithCode(goerrors.CodeBadRequest)
	}

	account := &Account{}
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := m.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		hash, err := HashPassword(password)
		if err != nil {
			var richErr *goerrors.Error
			if goerrors.As(err, &richErr) {
				return goerrors.Wrap(richErr, goerrors.CategoryValidation, "invalid password provided")
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
		}

		account.Name = name
		account.Email = email
		account.PasswordHash = hash
		account.Status = AccountStatusUnverified
		account.RegisteredAt = time.Now()
		if msg.UseHashid {
			if id, err := hashid.NewUUID(email); err == nil {
				account.ID = id
			}
		}

		if account, err = m.repo.Accounts().RegisterTx(ctx, tx, account); err != nil {
			return err
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, richErr
		}

		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "account registration transaction failed")
	}

	return account, nil
}

// Authenticate checks the credential pair and records the login time. An
// unknown email and a wrong password return the same error so the response
// cannot be used to probe which addresses have accounts. Blocked accounts get
// a distinct error and no last_login_at update. Unverified accounts may log
// in; there is no verification gate.
func (m *AccountManager) Authenticate(ctx context.Context, email, password string) (*Account, error) {
	account, err := m.repo.Accounts().GetByEmail(ctx, email)
	if err != nil {
		if goerrors.IsNotFound(err) {
			// burn a hash comparison so the miss costs the same as a mismatch
			ComparePasswordAndHash(password, RandomPasswordHash())
			return nil, ErrInvalidCredentials
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve account during verification")
	}

	if err := ComparePasswordAndHash(password, account.PasswordHash); err != nil {
		return nil, ErrInvalidCredentials
	}

	account.EnsureStatus()
	if account.Blocked() {
		return nil, ErrAccountBlocked
	}

	if err := m.repo.Accounts().TrackSuccessfulLogin(ctx, account); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to record login time")
	}

	return account, nil
}
