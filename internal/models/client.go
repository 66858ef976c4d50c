package models

import (
	"strings"
	"time"

	"github.com/harentsoaR/vetclinic-api/internal/apperr"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ClientIdentity is a pet owner with access to the client portal.
type ClientIdentity struct {
	ID            primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Name          string              `bson:"name" json:"name"`
	Surname       string              `bson:"surname" json:"surname"`
	NationalID    string              `bson:"nationalId" json:"nationalId"`
	Email         string              `bson:"email" json:"email"`
	Phone         string              `bson:"phone" json:"phone"`
	Address       string              `bson:"address,omitempty" json:"address,omitempty"`
	City          string              `bson:"city,omitempty" json:"city,omitempty"`
	District      string              `bson:"district,omitempty" json:"district,omitempty"`
	EmailVerified bool                `bson:"emailVerified" json:"emailVerified"`
	Active        bool                `bson:"active" json:"active"`
	RegisteredBy  *primitive.ObjectID `bson:"registeredBy,omitempty" json:"registeredBy,omitempty"`
	RegisteredAt  time.Time           `bson:"registeredAt" json:"registeredAt"`
	Notes         string              `bson:"notes,omitempty" json:"notes,omitempty"`
	Credentials   `bson:",inline" json:"-"`
	CreatedAt     time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time `bson:"updatedAt" json:"updatedAt"`
}

func (c *ClientIdentity) IdentityID() primitive.ObjectID { return c.ID }
func (c *ClientIdentity) IdentityKind() Kind             { return KindClient }
func (c *ClientIdentity) Creds() *Credentials            { return &c.Credentials }
func (c *ClientIdentity) IsActive() bool                 { return c.Active }
func (c *ClientIdentity) Touch(now time.Time)            { c.UpdatedAt = now }

func (c *ClientIdentity) Contact() Contact {
	return Contact{Email: c.Email, Name: c.Name, Phone: c.Phone}
}

func (c *ClientIdentity) SignInCheck() error {
	return c.AccessCheck()
}

func (c *ClientIdentity) AccessCheck() error {
	if !c.Active {
		return apperr.Forbidden("your account is deactivated, contact the clinic")
	}
	if !c.EmailVerified {
		return apperr.Forbidden("you must verify your email before signing in")
	}
	return nil
}

// PasswordReset marks the email as verified: the token arrived by email.
func (c *ClientIdentity) PasswordReset() { c.EmailVerified = true }

// TemporaryPassword derives the initial portal password from a national id
// by stripping dots and dashes.
func TemporaryPassword(nationalID string) string {
	return strings.NewReplacer(".", "", "-", "").Replace(strings.TrimSpace(nationalID))
}
