// Package auth verifies the bearer tokens every transport accepts and carries
// the authenticated caller through request contexts.
package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"playledger/internal/model"
)

type contextKey string

const contextKeyCaller contextKey = "caller"

var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrBadSecret    = errors.New("invalid shared secret")
)

// Authenticator verifies HS256 bearer tokens. The token subject is the
// caller identity handed to the ledger.
type Authenticator struct {
	secret []byte
	issuer string
	now    func() time.Time
}

func NewAuthenticator(secret, issuer string) *Authenticator {
	return &Authenticator{secret: []byte(secret), issuer: issuer, now: time.Now}
}

func (a *Authenticator) Verify(raw string) (model.Address, error) {
	if len(a.secret) == 0 {
		return "", errors.New("verify token: no signing secret configured")
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(a.now),
		jwt.WithLeeway(30 * time.Second),
	}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}

	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, opts...)
	if err != nil {
		return "", fmt.Errorf("verify token: %w", err)
	}
	subject := strings.TrimSpace(claims.Subject)
	if subject == "" {
		return "", errors.New("verify token: subject required")
	}
	return model.Address(subject), nil
}

// VerifyHeader verifies an "Authorization: Bearer <token>" header value.
func (a *Authenticator) VerifyHeader(header string) (model.Address, error) {
	raw, err := BearerToken(header)
	if err != nil {
		return "", err
	}
	return a.Verify(raw)
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", ErrMissingToken
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", ErrMissingToken
	}
	return strings.TrimSpace(token), nil
}

// CheckSecret compares a presented shared secret in constant time. An empty
// expected secret rejects everything.
func CheckSecret(expected, presented string) error {
	if expected == "" || subtle.ConstantTimeCompare([]byte(expected), []byte(presented)) != 1 {
		return ErrBadSecret
	}
	return nil
}

// WithCaller stores the authenticated caller in ctx.
func WithCaller(ctx context.Context, caller model.Address) context.Context {
	return context.WithValue(ctx, contextKeyCaller, caller)
}

// CallerFrom returns the authenticated caller stored by WithCaller.
func CallerFrom(ctx context.Context) (model.Address, bool) {
	caller, ok := ctx.Value(contextKeyCaller).(model.Address)
	return caller, ok && !caller.IsZero()
}
