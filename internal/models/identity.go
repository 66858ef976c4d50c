package models

import (
	"strings"
	"time"

	"github.com/harentsoaR/vetclinic-api/internal/utils"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Kind separates the two identity namespaces. A session token carries its kind
// and is only accepted by the resolver of the same kind.
type Kind string

const (
	KindStaff  Kind = "staff"
	KindClient Kind = "client"
)

// TokenPurpose tags a one-time token with the single action it may authorize.
type TokenPurpose string

const (
	PurposeAccountConfirmation TokenPurpose = "account_confirmation"
	PurposeEmailVerification   TokenPurpose = "email_verification"
	PurposePasswordSetup       TokenPurpose = "password_setup"
	PurposePasswordReset       TokenPurpose = "password_reset"
)

type OneTimeToken struct {
	Value     string       `bson:"value" json:"-"`
	Purpose   TokenPurpose `bson:"purpose" json:"-"`
	ExpiresAt time.Time    `bson:"expiresAt" json:"-"`
}

// Allows reports whether the token is still valid at now for one of purposes.
func (t *OneTimeToken) Allows(now time.Time, purposes ...TokenPurpose) bool {
	if t == nil || t.Value == "" || !now.Before(t.ExpiresAt) {
		return false
	}
	for _, p := range purposes {
		if t.Purpose == p {
			return true
		}
	}
	return false
}

// Credentials is the shared credential record of both identity kinds.
// It is never serialized to JSON.
type Credentials struct {
	PasswordHash string        `bson:"passwordHash,omitempty"`
	OneTimeToken *OneTimeToken `bson:"oneTimeToken,omitempty"`
}

// SetPassword replaces the stored hash. Call it only when the password changes.
func (c *Credentials) SetPassword(plaintext string) error {
	hash, err := utils.HashPassword(plaintext)
	if err != nil {
		return err
	}
	c.PasswordHash = hash
	return nil
}

// VerifyPassword is false when no password has been set yet.
func (c *Credentials) VerifyPassword(plaintext string) bool {
	return utils.CheckPasswordHash(plaintext, c.PasswordHash)
}

func (c *Credentials) HasPassword() bool { return c.PasswordHash != "" }

// IssueToken overwrites any pending token, so at most one is outstanding.
func (c *Credentials) IssueToken(purpose TokenPurpose, ttl time.Duration, now time.Time) (string, error) {
	value, err := utils.NewOneTimeToken()
	if err != nil {
		return "", err
	}
	c.OneTimeToken = &OneTimeToken{Value: value, Purpose: purpose, ExpiresAt: now.Add(ttl)}
	return value, nil
}

// Retag keeps the current token value alive under a new purpose and lifetime.
func (c *Credentials) Retag(purpose TokenPurpose, ttl time.Duration, now time.Time) {
	if c.OneTimeToken == nil {
		return
	}
	c.OneTimeToken.Purpose = purpose
	c.OneTimeToken.ExpiresAt = now.Add(ttl)
}

func (c *Credentials) ClearToken() { c.OneTimeToken = nil }

// Contact is who notifications about an identity are addressed to.
type Contact struct {
	Email string
	Name  string
	Phone string
}

// Identity is the capability shared by staff and client accounts.
type Identity interface {
	IdentityID() primitive.ObjectID
	IdentityKind() Kind
	Creds() *Credentials
	Contact() Contact
	// SignInCheck gates login once the password has matched.
	SignInCheck() error
	// AccessCheck gates every authenticated request.
	AccessCheck() error
	// PasswordReset runs after a password was set through a one-time token.
	PasswordReset()
	IsActive() bool
	Touch(now time.Time)
}

// NormalizeEmail lowercases and trims an address; emails are unique case-insensitively.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
