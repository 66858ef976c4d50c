package models

import (
	"time"

	"github.com/harentsoaR/vetclinic-api/internal/apperr"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Role string

const (
	RoleAdmin        Role = "admin"
	RoleVeterinarian Role = "veterinarian"
	RoleReceptionist Role = "receptionist"
	DefaultStaffRole      = RoleVeterinarian
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleVeterinarian, RoleReceptionist:
		return true
	}
	return false
}

type StaffIdentity struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	DisplayName string             `bson:"displayName" json:"displayName"`
	Email       string             `bson:"email" json:"email"`
	Phone       string             `bson:"phone,omitempty" json:"phone,omitempty"`
	Role        Role               `bson:"role" json:"role"`
	Active      bool               `bson:"active" json:"active"`
	Confirmed   bool               `bson:"confirmed" json:"confirmed"`
	Credentials `bson:",inline" json:"-"`
	CreatedAt   time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time `bson:"updatedAt" json:"updatedAt"`
}

func (s *StaffIdentity) IdentityID() primitive.ObjectID { return s.ID }
func (s *StaffIdentity) IdentityKind() Kind             { return KindStaff }
func (s *StaffIdentity) Creds() *Credentials            { return &s.Credentials }
func (s *StaffIdentity) IsActive() bool                 { return s.Active }
func (s *StaffIdentity) Touch(now time.Time)            { s.UpdatedAt = now }

func (s *StaffIdentity) Contact() Contact {
	return Contact{Email: s.Email, Name: s.DisplayName, Phone: s.Phone}
}

func (s *StaffIdentity) SignInCheck() error {
	if !s.Confirmed {
		return apperr.Forbidden("your account has not been confirmed")
	}
	return s.AccessCheck()
}

func (s *StaffIdentity) AccessCheck() error {
	if !s.Active {
		return apperr.Forbidden("your account is deactivated, contact an administrator")
	}
	return nil
}

// PasswordReset confirms the account: the reset token arrived by email, which
// replaces any pending confirmation token.
func (s *StaffIdentity) PasswordReset() { s.Confirmed = true }
