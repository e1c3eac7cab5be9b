package utils

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	tok, err := NewAccessToken("s3cret", "member-1", "MEMBER", 15)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), tok.Exp, 5*time.Second)

	claims, err := ParseAccessToken("s3cret", tok.Token)
	require.NoError(t, err)
	assert.Equal(t, "member-1", claims.Subject)
	assert.Equal(t, "MEMBER", claims.Role)

	_, err = ParseAccessToken("other", tok.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseAccessToken_RejectsExpiredAndNone(t *testing.T) {
	expired, err := NewAccessToken("s3cret", "member-1", "MEMBER", -1)
	require.NoError(t, err)
	_, err = ParseAccessToken("s3cret", expired.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "x", "exp": time.Now().Add(time.Hour).Unix()})
	raw, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = ParseAccessToken("s3cret", raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRefreshToken(t *testing.T) {
	rt, err := NewRefreshToken(7)
	require.NoError(t, err)
	assert.Len(t, rt.Raw, 96)
	assert.Len(t, HashRefreshRaw(rt.Raw), 64)
	assert.NotEqual(t, rt.Raw, HashRefreshRaw(rt.Raw))
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("MemberSecret1!", 4)
	require.NoError(t, err)
	assert.True(t, VerifyPassword(hash, "MemberSecret1!"))
	assert.False(t, VerifyPassword(hash, "wrong"))

	_, err = HashPassword(strings.Repeat("x", MaxPasswordBytes+1), 4)
	assert.ErrorIs(t, err, ErrPasswordTooLong)

	hash, err = HashPassword("MemberSecret1!", 0)
	require.NoError(t, err)
	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.DefaultCost, cost)
}

func TestPayloadSignature(t *testing.T) {
	body := []byte(`{"payment_id":"p1"}`)
	sig := SignPayload("whsec", body)
	assert.True(t, VerifyPayload("whsec", body, sig))
	assert.False(t, VerifyPayload("whsec", []byte(`{"payment_id":"p2"}`), sig))
	assert.False(t, VerifyPayload("", body, SignPayload("", body)))
	assert.False(t, VerifyPayload("whsec", body, "zz"))
}
