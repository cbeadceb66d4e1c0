package accounts_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/goliatone/go-accounts"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// setupTestDB gives each test its own in-memory sqlite store with the schema
// applied.
func setupTestDB(t *testing.T) *bun.DB {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	// a single connection keeps the in-memory database alive for the test
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())

	ctx := context.Background()

	_, err = db.NewCreateTable().
		Model((*accounts.Account)(nil)).
		IfNotExists().
		Exec(ctx)
	require.NoError(t, err)

	_, err = db.NewCreateTable().
		Model((*accounts.RevokedToken)(nil)).
		IfNotExists().
		Exec(ctx)
	require.NoError(t, err)

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

func setupRepoManager(t *testing.T) accounts.RepositoryManager {
	t.Helper()
	return accounts.NewRepositoryManager(setupTestDB(t))
}

// testConfig implements accounts.Config
type testConfig struct {
	signingKey         string
	issuer             string
	audience           []string
	contextKey         string
	sessionDuration    int
	rememberDuration   int
	maxSessionLifetime int
	loginPath          string
	exemptPaths        []string
}

func newTestConfig() *testConfig {
	return &testConfig{
		signingKey:         "test-signing-key",
		issuer:             "test-issuer",
		audience:           []string{"test-audience"},
		contextKey:         "account",
		sessionDuration:    24,
		rememberDuration:   168,
		maxSessionLifetime: 720,
		loginPath:          "/account/login",
		exemptPaths:        []string{"/account/login", "/account/register", "/public"},
	}
}

func (c *testConfig) GetSigningKey() string      { return c.signingKey }
func (c *testConfig) GetIssuer() string          { return c.issuer }
func (c *testConfig) GetAudience() []string      { return c.audience }
func (c *testConfig) GetContextKey() string      { return c.contextKey }
func (c *testConfig) GetSessionDuration() int    { return c.sessionDuration }
func (c *testConfig) GetRememberDuration() int   { return c.rememberDuration }
func (c *testConfig) GetMaxSessionLifetime() int { return c.maxSessionLifetime }
func (c *testConfig) GetLoginPath() string       { return c.loginPath }
func (c *testConfig) GetExemptPaths() []string   { return c.exemptPaths }

func newUUID(t *testing.T) uuid.UUID {
	t.Helper()
	return uuid.New()
}

// notFoundErr mirrors the not-found error the repositories return
func notFoundErr() error {
	return repository.NewRecordNotFound()
}

// seedAccount inserts an account directly, skipping the bcrypt work, for
// tests that never check the password.
func seedAccount(t *testing.T, repo accounts.RepositoryManager, account *accounts.Account) *accounts.Account {
	t.Helper()

	if account.PasswordHash == "" {
		account.PasswordHash = "not-a-real-hash"
	}

	created, err := repo.Accounts().Register(context.Background(), account)
	require.NoError(t, err)

	return created
}

// registerTestAccount creates an account through the lifecycle manager so
// defaults and hashing match production writes.
func registerTestAccount(t *testing.T, repo accounts.RepositoryManager, name, email, password string) *accounts.Account {
	t.Helper()

	manager := accounts.NewAccountManager(repo)
	account, err := manager.Register(context.Background(), accounts.RegisterAccountMessage{
		Name:     name,
		Email:    email,
		Password: password,
	})
	require.NoError(t, err)
	require.NotNil(t, account)

	return account
}
