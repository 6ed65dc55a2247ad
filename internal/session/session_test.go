package session

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emilythestrangee/ballotbox/backend/internal/apperr"
	"github.com/emilythestrangee/ballotbox/backend/internal/models"
)

const secret = "0123456789abcdef0123"

func TestContext(t *testing.T) {
	assert.Nil(t, FromContext(context.Background()))

	s := &Session{UserID: "u1", Role: models.DefaultRole}
	ctx := NewContext(context.Background(), s)
	assert.Same(t, s, FromContext(ctx))
	assert.True(t, FromContext(ctx).CanVote())
	assert.False(t, FromContext(ctx).IsAdmin())

	var none *Session
	assert.False(t, none.CanVote())
	assert.False(t, none.IsAdmin())
}

func TestIssueAndParse(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	issuer := NewIssuer(secret, time.Hour).WithClock(func() time.Time { return now })

	token, err := issuer.Issue(&models.User{ID: "u1", Email: "a@example.com"})
	require.NoError(t, err)

	claims, err := issuer.Parse("Bearer " + token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.Subject)
	assert.Equal(t, "a@example.com", claims.Email)

	later := issuer.WithClock(func() time.Time { return now.Add(2 * time.Hour) })
	_, err = later.Parse(token)
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)

	other := NewIssuer("another-secret-value-xx", time.Hour).WithClock(func() time.Time { return now })
	_, err = other.Parse(token)
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)
}

func TestParseRejects(t *testing.T) {
	issuer := NewIssuer(secret, time.Hour)

	_, err := issuer.Parse("")
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)

	_, err = issuer.Parse("not-a-token")
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)

	// Tokens without a subject are refused even when correctly signed.
	noSub := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	raw, err := noSub.SignedString([]byte(secret))
	require.NoError(t, err)
	_, err = issuer.Parse(raw)
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "u1"},
	})
	raw, err = none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = issuer.Parse(raw)
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)
}
