package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"playledger/internal/model"
)

func sign(t *testing.T, method jwt.SigningMethod, key any, claims jwt.RegisteredClaims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return signed
}

func TestVerify(t *testing.T) {
	a := NewAuthenticator("secret", "playledger")
	exp := jwt.NewNumericDate(time.Now().Add(time.Hour))

	caller, err := a.VerifyHeader("Bearer " + sign(t, jwt.SigningMethodHS256, []byte("secret"),
		jwt.RegisteredClaims{Subject: "x", Issuer: "playledger", ExpiresAt: exp}))
	require.NoError(t, err)
	require.Equal(t, model.Address("x"), caller)

	cases := map[string]string{
		"wrong secret": sign(t, jwt.SigningMethodHS256, []byte("other"),
			jwt.RegisteredClaims{Subject: "x", Issuer: "playledger", ExpiresAt: exp}),
		"wrong issuer": sign(t, jwt.SigningMethodHS256, []byte("secret"),
			jwt.RegisteredClaims{Subject: "x", Issuer: "someone", ExpiresAt: exp}),
		"no subject": sign(t, jwt.SigningMethodHS256, []byte("secret"),
			jwt.RegisteredClaims{Issuer: "playledger", ExpiresAt: exp}),
		"expired": sign(t, jwt.SigningMethodHS256, []byte("secret"),
			jwt.RegisteredClaims{Subject: "x", Issuer: "playledger", ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour))}),
		"garbage": "not-a-token",
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := a.Verify(raw)
			require.Error(t, err)
		})
	}
}

func TestVerifyWithoutSecretRejects(t *testing.T) {
	a := NewAuthenticator("", "")
	_, err := a.Verify(sign(t, jwt.SigningMethodHS256, []byte("secret"), jwt.RegisteredClaims{Subject: "admin"}))
	require.Error(t, err)
}

func TestBearerToken(t *testing.T) {
	tok, err := BearerToken("bearer abc ")
	require.NoError(t, err)
	require.Equal(t, "abc", tok)

	for _, h := range []string{"", "abc", "Basic abc", "Bearer "} {
		_, err := BearerToken(h)
		require.ErrorIs(t, err, ErrMissingToken, h)
	}
}

func TestCheckSecret(t *testing.T) {
	require.NoError(t, CheckSecret("s3cret", "s3cret"))
	require.ErrorIs(t, CheckSecret("s3cret", "guess"), ErrBadSecret)
	require.ErrorIs(t, CheckSecret("", ""), ErrBadSecret)
}

func TestCallerContext(t *testing.T) {
	_, ok := CallerFrom(context.Background())
	require.False(t, ok)

	caller, ok := CallerFrom(WithCaller(context.Background(), "x"))
	require.True(t, ok)
	require.Equal(t, model.Address("x"), caller)
}
