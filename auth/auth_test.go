package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleBustamante/moviereviews/models"
)

func testUser() models.User {
	return models.User{ID: "u-1", Username: "ana", Email: "ana@example.com", Role: models.RoleAdmin}
}

func TestIssueAndVerify(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", time.Hour)

	token, err := issuer.Issue(testUser())
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := issuer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.ID)
	assert.Equal(t, "ana", claims.Username)
	assert.Equal(t, "ana@example.com", claims.Email)
	assert.True(t, claims.IsAdmin())
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, 5*time.Second)
}

func TestDefaultTTL(t *testing.T) {
	issuer := NewTokenIssuer("s", 0)
	token, err := issuer.Issue(testUser())
	require.NoError(t, err)

	claims, err := issuer.Verify(token)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(7*24*time.Hour), claims.ExpiresAt.Time, 5*time.Second)
}

func TestVerifyRejects(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", time.Hour)

	t.Run("empty", func(t *testing.T) {
		_, err := issuer.Verify("")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("malformed", func(t *testing.T) {
		_, err := issuer.Verify("not.a.token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong key", func(t *testing.T) {
		other := NewTokenIssuer("other-secret", time.Hour)
		token, err := other.Issue(testUser())
		require.NoError(t, err)
		_, err = issuer.Verify(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		past := NewTokenIssuer("test-secret", time.Hour)
		past.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
		token, err := past.Issue(testUser())
		require.NoError(t, err)
		_, err = issuer.Verify(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("unsigned", func(t *testing.T) {
		token, err := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{
			ID: "u-1",
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		}).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = issuer.Verify(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("no expiry", func(t *testing.T) {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{ID: "u-1"}).
			SignedString([]byte("test-secret"))
		require.NoError(t, err)
		_, err = issuer.Verify(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestParseTTL(t *testing.T) {
	cases := map[string]time.Duration{
		"":    DefaultTokenTTL,
		"7d":  7 * 24 * time.Hour,
		"1d":  24 * time.Hour,
		"36h": 36 * time.Hour,
	}
	for raw, want := range cases {
		got, err := ParseTTL(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}

	for _, bad := range []string{"xd", "0d", "-1h", "soon"} {
		_, err := ParseTTL(bad)
		assert.Error(t, err, bad)
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("secret123")
	require.NoError(t, err)
	assert.NotEqual(t, "secret123", hash)
	assert.True(t, CheckPassword(hash, "secret123"))
	assert.False(t, CheckPassword(hash, "wrong"))
}

func TestAdminPolicy(t *testing.T) {
	policy := NewAdminPolicy("letmein", []string{"Boss@Example.com"})

	assert.Equal(t, models.RoleAdmin, policy.RoleFor("boss@example.com", ""))
	assert.Equal(t, models.RoleAdmin, policy.RoleFor("x@example.com", "letmein"))
	assert.Equal(t, models.RoleUser, policy.RoleFor("x@example.com", "wrong"))
	assert.Equal(t, models.RoleUser, policy.RoleFor("x@example.com", ""))

	noCode := NewAdminPolicy("", nil)
	assert.Equal(t, models.RoleUser, noCode.RoleFor("x@example.com", ""))
}
