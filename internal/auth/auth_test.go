package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "farm-monitor-test-secret"

func TestIssueAndParse(t *testing.T) {
	a := NewAuthenticator(testSecret, "farm-monitor", 1)

	token, err := a.IssueToken("u-42", "Farm Operator", "Operator")
	require.NoError(t, err)

	id, err := a.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "u-42", id.Subject)
	assert.Equal(t, RoleOperator, id.Role)
	assert.Equal(t, "Farm Operator", id.Actor())
}

func TestParse_Rejects(t *testing.T) {
	a := NewAuthenticator(testSecret, "farm-monitor", 1)

	_, err := a.Parse("")
	assert.ErrorIs(t, err, ErrMissingToken)

	other := NewAuthenticator("another-secret-value", "farm-monitor", 1)
	token, err := other.IssueToken("u-1", "", RoleAdmin)
	require.NoError(t, err)
	_, err = a.Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	wrongIssuer := NewAuthenticator(testSecret, "someone-else", 1)
	token, err = wrongIssuer.IssueToken("u-1", "", RoleAdmin)
	require.NoError(t, err)
	_, err = a.Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	badRole := mustToken(t, Claims{
		Role: "farmer",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u-1",
			Issuer:    "farm-monitor",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	_, err = a.Parse(badRole)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParse_Expired(t *testing.T) {
	a := NewAuthenticator(testSecret, "", 1)
	a.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, err := a.IssueToken("u-1", "", RoleViewer)
	require.NoError(t, err)

	a.now = time.Now
	_, err = a.Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestRoleAllows(t *testing.T) {
	assert.True(t, RoleAdmin.Allows(RoleOperator))
	assert.True(t, RoleOperator.Allows(RoleOperator))
	assert.False(t, RoleViewer.Allows(RoleOperator))
	assert.False(t, Role("").Allows(RoleViewer))

	r, ok := NormalizeRole(" ADMIN ")
	assert.True(t, ok)
	assert.Equal(t, RoleAdmin, r)
}

func TestBearerToken(t *testing.T) {
	assert.Equal(t, "abc", BearerToken("Bearer abc"))
	assert.Equal(t, "abc", BearerToken("bearer  abc "))
	assert.Empty(t, BearerToken("Basic abc"))
	assert.Empty(t, BearerToken(""))
}

func TestContext(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)

	ctx := WithIdentity(context.Background(), Identity{Subject: "u", Role: RoleViewer})
	id, ok := FromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, "u", id.Actor())
}

func mustToken(t *testing.T, claims Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}
