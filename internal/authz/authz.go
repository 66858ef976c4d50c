// Package authz holds the pure authorization predicates applied to staff identities.
package authz

import (
	"fmt"
	"strings"

	"github.com/harentsoaR/vetclinic-api/internal/apperr"
	"github.com/harentsoaR/vetclinic-api/internal/models"
)

// RoleSet is a named group of roles a route accepts.
type RoleSet []models.Role

var (
	AdminOnly        = RoleSet{models.RoleAdmin}
	VetOrAdmin       = RoleSet{models.RoleVeterinarian, models.RoleAdmin}
	ReceptionOrAdmin = RoleSet{models.RoleReceptionist, models.RoleAdmin}
	AnyStaff         = RoleSet{models.RoleAdmin, models.RoleVeterinarian, models.RoleReceptionist}
)

func (rs RoleSet) Contains(role models.Role) bool {
	for _, r := range rs {
		if r == role {
			return true
		}
	}
	return false
}

func (rs RoleSet) String() string {
	names := make([]string, len(rs))
	for i, r := range rs {
		names[i] = string(r)
	}
	return strings.Join(names, ", ")
}

// IsActive denies a missing or deactivated identity.
func IsActive(identity models.Identity) error {
	if identity == nil {
		return apperr.Unauthorized("authentication required")
	}
	if !identity.IsActive() {
		return apperr.Forbidden("your account is deactivated")
	}
	return nil
}

// HasRole requires an active staff identity whose role is in roles.
func HasRole(staff *models.StaffIdentity, roles RoleSet) error {
	if staff == nil {
		return apperr.Unauthorized("authentication required")
	}
	if err := IsActive(staff); err != nil {
		return err
	}
	if !roles.Contains(staff.Role) {
		return apperr.Forbidden(fmt.Sprintf("access denied: requires role %s", roles))
	}
	return nil
}

// SelfOrAdmin allows an admin, or the staff member acting on their own record.
func SelfOrAdmin(staff *models.StaffIdentity, ownerID string) error {
	if staff == nil {
		return apperr.Unauthorized("authentication required")
	}
	if err := IsActive(staff); err != nil {
		return err
	}
	if staff.Role == models.RoleAdmin || staff.ID.Hex() == ownerID {
		return nil
	}
	return apperr.Forbidden("you can only modify your own records")
}
