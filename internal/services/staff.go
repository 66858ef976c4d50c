package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/harentsoaR/vetclinic-api/internal/apperr"
	"github.com/harentsoaR/vetclinic-api/internal/authz"
	"github.com/harentsoaR/vetclinic-api/internal/models"
	"github.com/harentsoaR/vetclinic-api/internal/repository"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type RegisterStaffInput struct {
	DisplayName   string      `json:"displayName" binding:"required"`
	Email         string      `json:"email" binding:"required,email"`
	Phone         string      `json:"phone"`
	Role          models.Role `json:"role" binding:"omitempty,oneof=admin veterinarian receptionist"`
	Password      string      `json:"password" binding:"omitempty,min=6"`
	Specialty     string      `json:"specialty"`
	LicenseNumber string      `json:"licenseNumber"`
}

// UpdateStaffInput is a merge patch: nil fields are left untouched.
type UpdateStaffInput struct {
	DisplayName   *string `json:"displayName" binding:"omitempty,min=1"`
	Email         *string `json:"email" binding:"omitempty,email"`
	Phone         *string `json:"phone"`
	Specialty     *string `json:"specialty"`
	LicenseNumber *string `json:"licenseNumber"`
}

type StaffService struct {
	deps Deps
	auth *Authenticator[*models.StaffIdentity]
}

// Register creates a staff account awaiting confirmation. Veterinarians also
// get their satellite record.
func (s *StaffService) Register(ctx context.Context, in RegisterStaffInput) (*models.StaffIdentity, error) {
	role := in.Role
	if role == "" {
		role = models.DefaultStaffRole
	}
	if !role.Valid() {
		return nil, apperr.Invalidf("invalid role %q", role)
	}

	email := models.NormalizeEmail(in.Email)
	if err := s.ensureEmailFree(ctx, email, primitive.NilObjectID); err != nil {
		return nil, err
	}

	now := s.deps.Now()
	staff := &models.StaffIdentity{
		ID:          primitive.NewObjectID(),
		DisplayName: strings.TrimSpace(in.DisplayName),
		Email:       email,
		Phone:       in.Phone,
		Role:        role,
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if in.Password != "" {
		if err := staff.SetPassword(in.Password); err != nil {
			return nil, apperr.Internal("failed to hash password", err)
		}
	}
	token, err := staff.IssueToken(models.PurposeAccountConfirmation, s.deps.Tokens.Confirmation, now)
	if err != nil {
		return nil, apperr.Internal("failed to generate token", err)
	}
	if err := s.deps.Store.Staff.Insert(ctx, staff); err != nil {
		return nil, storeErr(err, "user")
	}

	if role == models.RoleVeterinarian {
		vet := &models.Veterinarian{
			ID:            primitive.NewObjectID(),
			StaffID:       staff.ID,
			Specialty:     in.Specialty,
			LicenseNumber: strings.TrimSpace(in.LicenseNumber),
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := s.deps.Store.Veterinarians.Insert(ctx, vet); err != nil {
			// The account exists; the record can be completed through a profile update.
			s.deps.Log.Error().Err(err).Str("staff_id", staff.ID.Hex()).Msg("Failed to create veterinarian record")
			return nil, storeErr(err, "veterinarian")
		}
	}

	s.deps.Notifications.SendStaffConfirmation(ctx, staff, token)
	s.deps.Log.Info().Str("staff_id", staff.ID.Hex()).Str("role", string(role)).Msg("Staff member registered")
	staff.Credentials = models.Credentials{}
	return staff, nil
}

// Confirm consumes an account confirmation token.
func (s *StaffService) Confirm(ctx context.Context, token string) error {
	staff, err := s.auth.Redeem(ctx, token, models.PurposeAccountConfirmation)
	if err != nil {
		return err
	}
	staff.Confirmed = true
	staff.ClearToken()
	staff.Touch(s.deps.Now())
	return storeErr(s.deps.Store.Staff.Replace(ctx, staff), "user")
}

func (s *StaffService) Get(ctx context.Context, id primitive.ObjectID) (*models.StaffIdentity, error) {
	staff, err := s.deps.Store.Staff.FindProfile(ctx, id)
	return staff, storeErr(err, "user")
}

func (s *StaffService) List(ctx context.Context, filter repository.StaffFilter) ([]*models.StaffIdentity, error) {
	staff, err := s.deps.Store.Staff.List(ctx, filter)
	return staff, storeErr(err, "user")
}

// ListVeterinarians returns the active, confirmed veterinarians with their records.
func (s *StaffService) ListVeterinarians(ctx context.Context) ([]*models.VeterinarianProfile, error) {
	profiles, err := s.deps.Store.Veterinarians.ListProfiles(ctx)
	if err != nil {
		return nil, storeErr(err, "veterinarian")
	}
	out := make([]*models.VeterinarianProfile, 0, len(profiles))
	for _, p := range profiles {
		if p.Staff != nil && p.Staff.Active && p.Staff.Confirmed && p.Staff.Role == models.RoleVeterinarian {
			out = append(out, p)
		}
	}
	return out, nil
}

// UpdateProfile applies a merge patch to a staff member. Only the member
// themself or an admin may do it.
func (s *StaffService) UpdateProfile(ctx context.Context, actor *models.StaffIdentity, id primitive.ObjectID, in UpdateStaffInput) (*models.StaffIdentity, error) {
	if err := authz.SelfOrAdmin(actor, id.Hex()); err != nil {
		return nil, err
	}
	staff, err := s.deps.Store.Staff.FindByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, "user")
	}

	if in.Email != nil {
		email := models.NormalizeEmail(*in.Email)
		if email != staff.Email {
			if err := s.ensureEmailFree(ctx, email, staff.ID); err != nil {
				return nil, err
			}
			staff.Email = email
		}
	}
	setString(&staff.DisplayName, in.DisplayName)
	setString(&staff.Phone, in.Phone)

	now := s.deps.Now()
	staff.Touch(now)
	if err := s.deps.Store.Staff.Replace(ctx, staff); err != nil {
		return nil, storeErr(err, "user")
	}

	if staff.Role == models.RoleVeterinarian && (in.Specialty != nil || in.LicenseNumber != nil) {
		if err := s.upsertVeterinarian(ctx, staff.ID, in.Specialty, in.LicenseNumber, now); err != nil {
			return nil, err
		}
	}
	staff.Credentials = models.Credentials{}
	return staff, nil
}

func (s *StaffService) upsertVeterinarian(ctx context.Context, staffID primitive.ObjectID, specialty, license *string, now time.Time) error {
	vet, err := s.deps.Store.Veterinarians.FindByStaffID(ctx, staffID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		vet = &models.Veterinarian{ID: primitive.NewObjectID(), StaffID: staffID, CreatedAt: now}
		applyVeterinarianPatch(vet, specialty, license, now)
		return storeErr(s.deps.Store.Veterinarians.Insert(ctx, vet), "veterinarian")
	case err != nil:
		return storeErr(err, "veterinarian")
	}
	applyVeterinarianPatch(vet, specialty, license, now)
	return storeErr(s.deps.Store.Veterinarians.Replace(ctx, vet), "veterinarian")
}

// SetActive deactivates or restores a staff member. Admins cannot deactivate themselves.
func (s *StaffService) SetActive(ctx context.Context, actor *models.StaffIdentity, id primitive.ObjectID, active bool) (*models.StaffIdentity, error) {
	if !active && actor != nil && actor.ID == id {
		return nil, apperr.Invalid("you cannot deactivate your own account")
	}
	staff, err := s.deps.Store.Staff.FindByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, "user")
	}
	staff.Active = active
	staff.Touch(s.deps.Now())
	if err := s.deps.Store.Staff.Replace(ctx, staff); err != nil {
		return nil, storeErr(err, "user")
	}
	s.deps.Log.Info().Str("staff_id", id.Hex()).Bool("active", active).Msg("Staff member activation changed")
	staff.Credentials = models.Credentials{}
	return staff, nil
}

func (s *StaffService) ensureEmailFree(ctx context.Context, email string, self primitive.ObjectID) error {
	existing, err := s.deps.Store.Staff.FindByEmail(ctx, email)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return nil
	case err != nil:
		return storeErr(err, "user")
	case existing.ID != self:
		return apperr.Conflict("email already registered")
	}
	return nil
}
