package accounts_test

import (
	"testing"
	"time"

	"github.com/goliatone/go-accounts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionObject(t *testing.T) {
	issued := time.Now().Add(-time.Hour)
	first := issued.Add(-24 * time.Hour)
	expires := issued.Add(7 * 24 * time.Hour)

	id := newUUID(t)

	session := &accounts.SessionObject{
		AccountID:      id.String(),
		TokenID:        newUUID(t).String(),
		Remember:       true,
		IssuedAt:       &issued,
		FirstIssuedAt:  &first,
		ExpirationDate: &expires,
	}

	assert.Equal(t, id.String(), session.GetAccountID())
	assert.True(t, session.GetRemember())
	assert.Equal(t, &issued, session.GetIssuedAt())
	assert.Equal(t, &expires, session.GetExpiration())

	parsed, err := session.GetAccountUUID()
	require.NoError(t, err)
	assert.Equal(t, id, parsed)

	t.Run("bad account id fails uuid parsing", func(t *testing.T) {
		bad := &accounts.SessionObject{AccountID: "not-a-uuid"}
		_, err := bad.GetAccountUUID()
		assert.Error(t, err)
	})

	t.Run("String carries the identifying fields", func(t *testing.T) {
		out := session.String()
		assert.Contains(t, out, session.AccountID)
		assert.Contains(t, out, session.TokenID)
	})
}
