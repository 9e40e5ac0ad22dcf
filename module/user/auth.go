package user

import (
	"context"
	"time"

	"duochat/tools/errs"
	"duochat/tools/security"
)

// JWTAuthenticator is the auth collaborator: it resolves a token to an
// authenticated user id and issues tokens after login.
type JWTAuthenticator struct {
	opts security.Options
}

func NewJWTAuthenticator(secret []byte, ttl time.Duration) *JWTAuthenticator {
	opts := security.DefaultOptions(secret)
	if ttl > 0 {
		opts.TTL = ttl
	}
	return &JWTAuthenticator{opts: opts}
}

func (a *JWTAuthenticator) ResolveUserID(token string) (string, error) {
	if token == "" {
		return "", errs.ErrUnauthorized.WrapMsg("missing token")
	}
	userID, err := security.Verify(a.opts, token)
	if err != nil {
		return "", errs.ErrTokenInvalid.WrapMsg("verify", "err", err)
	}
	return userID, nil
}

func (a *JWTAuthenticator) IssueToken(userID string) (string, time.Time, error) {
	return security.Generate(a.opts, userID)
}

// CredentialVerifier checks a login credential. Credential storage and
// verification live outside this service; implementations adapt whatever
// directory the deployment uses.
type CredentialVerifier interface {
	Verify(ctx context.Context, userID, password string) error
}

// DevVerifier accepts any non-empty id/password pair. Development only.
type DevVerifier struct{}

func (DevVerifier) Verify(_ context.Context, userID, password string) error {
	if userID == "" || password == "" {
		return errs.ErrInvalidInput.WrapMsg("missing credentials")
	}
	return nil
}
