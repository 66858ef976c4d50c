package services

import (
	"context"
	"errors"

	"github.com/harentsoaR/vetclinic-api/internal/apperr"
	"github.com/harentsoaR/vetclinic-api/internal/models"
	"github.com/harentsoaR/vetclinic-api/internal/repository"
	"github.com/harentsoaR/vetclinic-api/internal/utils"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	errInvalidCredentials = apperr.Unauthorized("invalid credentials")
	errInvalidSession     = apperr.Unauthorized("invalid or expired session token")
	errInvalidToken       = apperr.Invalid("invalid or expired token")
)

// Session is returned by a successful login.
type Session[T models.Identity] struct {
	Token    string `json:"token"`
	Identity T      `json:"identity"`
}

// Authenticator runs the credential flows of one identity kind: login, session
// resolution and the one-time token password flows.
type Authenticator[T models.Identity] struct {
	kind          models.Kind
	store         repository.IdentityStore[T]
	deps          Deps
	resetPurposes []models.TokenPurpose
	log           zerolog.Logger
}

// NewAuthenticator builds the authenticator of kind. resetPurposes are the token
// purposes accepted when setting a password through a link.
func NewAuthenticator[T models.Identity](kind models.Kind, store repository.IdentityStore[T], d Deps, resetPurposes ...models.TokenPurpose) *Authenticator[T] {
	return &Authenticator[T]{
		kind:          kind,
		store:         store,
		deps:          d,
		resetPurposes: resetPurposes,
		log:           d.Log.With().Str("component", "auth").Str("kind", string(kind)).Logger(),
	}
}

func (a *Authenticator[T]) Kind() models.Kind { return a.kind }

func (a *Authenticator[T]) resource() string {
	if a.kind == models.KindClient {
		return "client"
	}
	return "user"
}

// Login verifies the password first, then the kind specific sign-in rules.
func (a *Authenticator[T]) Login(ctx context.Context, email, password string) (*Session[T], error) {
	identity, err := a.store.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			a.recordLogin("invalid")
			return nil, errInvalidCredentials
		}
		return nil, storeErr(err, a.resource())
	}
	if !identity.Creds().VerifyPassword(password) {
		a.recordLogin("invalid")
		return nil, errInvalidCredentials
	}
	if err := identity.SignInCheck(); err != nil {
		a.recordLogin("denied")
		return nil, err
	}

	token, err := a.deps.Sessions.Generate(identity.IdentityID().Hex(), string(a.kind))
	if err != nil {
		return nil, apperr.Internal("could not generate token", err)
	}
	a.recordLogin("success")
	a.log.Info().Str("identity_id", identity.IdentityID().Hex()).Msg("Login successful")

	*identity.Creds() = models.Credentials{}
	return &Session[T]{Token: token, Identity: identity}, nil
}

// Resolve turns a session token into the identity it was issued for, loaded
// without credentials.
func (a *Authenticator[T]) Resolve(ctx context.Context, token string) (T, error) {
	var zero T
	claims, err := a.deps.Sessions.Validate(token, string(a.kind))
	if err != nil {
		if errors.Is(err, utils.ErrMissingSecret) {
			return zero, apperr.Internal("", err)
		}
		return zero, errInvalidSession
	}
	id, err := primitive.ObjectIDFromHex(claims.Subject)
	if err != nil {
		return zero, errInvalidSession
	}
	identity, err := a.store.FindProfile(ctx, id)
	if err != nil {
		return zero, storeErr(err, a.resource())
	}
	if err := identity.AccessCheck(); err != nil {
		return zero, err
	}
	return identity, nil
}

// Redeem loads the identity holding token, provided the token is live and
// tagged with one of purposes. It does not consume the token.
func (a *Authenticator[T]) Redeem(ctx context.Context, token string, purposes ...models.TokenPurpose) (T, error) {
	var zero T
	identity, err := a.store.FindByToken(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return zero, errInvalidToken
		}
		return zero, storeErr(err, a.resource())
	}
	if !identity.Creds().OneTimeToken.Allows(a.deps.Now(), purposes...) {
		return zero, errInvalidToken
	}
	return identity, nil
}

// CheckToken reports whether token may be used to set a password.
func (a *Authenticator[T]) CheckToken(ctx context.Context, token string) error {
	_, err := a.Redeem(ctx, token, a.resetPurposes...)
	return err
}

// ResetPassword sets a new password through a one-time token and consumes it.
func (a *Authenticator[T]) ResetPassword(ctx context.Context, token, password string) error {
	identity, err := a.Redeem(ctx, token, a.resetPurposes...)
	if err != nil {
		return err
	}
	creds := identity.Creds()
	if err := creds.SetPassword(password); err != nil {
		return apperr.Internal("failed to hash password", err)
	}
	identity.PasswordReset()
	creds.ClearToken()
	identity.Touch(a.deps.Now())
	if err := a.store.Replace(ctx, identity); err != nil {
		return storeErr(err, a.resource())
	}
	a.log.Info().Str("identity_id", identity.IdentityID().Hex()).Msg("Password reset")
	return nil
}

// RequestPasswordReset issues a reset token and queues the email. Unknown or
// deactivated accounts get the same silent success.
func (a *Authenticator[T]) RequestPasswordReset(ctx context.Context, email string) error {
	identity, err := a.store.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			a.log.Debug().Msg("Password reset requested for unknown email")
			return nil
		}
		return storeErr(err, a.resource())
	}
	if !identity.IsActive() {
		return nil
	}

	now := a.deps.Now()
	token, err := identity.Creds().IssueToken(models.PurposePasswordReset, a.deps.Tokens.Reset, now)
	if err != nil {
		return apperr.Internal("failed to generate token", err)
	}
	identity.Touch(now)
	if err := a.store.Replace(ctx, identity); err != nil {
		return storeErr(err, a.resource())
	}
	a.deps.Notifications.SendPasswordReset(ctx, a.kind, identity.Contact(), token)
	return nil
}

// ChangePassword replaces the password of id after checking the current one.
func (a *Authenticator[T]) ChangePassword(ctx context.Context, id primitive.ObjectID, current, next string) error {
	identity, err := a.store.FindByID(ctx, id)
	if err != nil {
		return storeErr(err, a.resource())
	}
	creds := identity.Creds()
	if !creds.VerifyPassword(current) {
		return apperr.Invalid("current password is incorrect")
	}
	if err := creds.SetPassword(next); err != nil {
		return apperr.Internal("failed to hash password", err)
	}
	identity.Touch(a.deps.Now())
	return storeErr(a.store.Replace(ctx, identity), a.resource())
}

func (a *Authenticator[T]) recordLogin(result string) {
	if a.deps.Metrics != nil {
		a.deps.Metrics.LoginAttempts.WithLabelValues(string(a.kind), result).Inc()
	}
}
