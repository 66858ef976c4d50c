package services

import (
	"context"
	"strings"
	"time"

	"github.com/harentsoaR/vetclinic-api/internal/authz"
	"github.com/harentsoaR/vetclinic-api/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type UpdateVeterinarianInput struct {
	Specialty     *string `json:"specialty"`
	LicenseNumber *string `json:"licenseNumber"`
}

type VeterinarianService struct {
	deps Deps
}

func (s *VeterinarianService) List(ctx context.Context) ([]*models.VeterinarianProfile, error) {
	profiles, err := s.deps.Store.Veterinarians.ListProfiles(ctx)
	return profiles, storeErr(err, "veterinarian")
}

// Get returns the veterinarian joined with its staff profile.
func (s *VeterinarianService) Get(ctx context.Context, id primitive.ObjectID) (*models.VeterinarianProfile, error) {
	vet, err := s.deps.Store.Veterinarians.FindByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, "veterinarian")
	}
	profile := &models.VeterinarianProfile{Veterinarian: *vet}
	if staff, err := s.deps.Store.Staff.FindProfile(ctx, vet.StaffID); err == nil {
		profile.Staff = staff
	}
	return profile, nil
}

// Update patches specialty and license. Only an admin or the linked staff member may do it.
func (s *VeterinarianService) Update(ctx context.Context, actor *models.StaffIdentity, id primitive.ObjectID, in UpdateVeterinarianInput) (*models.Veterinarian, error) {
	vet, err := s.deps.Store.Veterinarians.FindByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, "veterinarian")
	}
	if err := authz.SelfOrAdmin(actor, vet.StaffID.Hex()); err != nil {
		return nil, err
	}
	applyVeterinarianPatch(vet, in.Specialty, in.LicenseNumber, s.deps.Now())
	if err := s.deps.Store.Veterinarians.Replace(ctx, vet); err != nil {
		return nil, storeErr(err, "veterinarian")
	}
	return vet, nil
}

func applyVeterinarianPatch(vet *models.Veterinarian, specialty, license *string, now time.Time) {
	setString(&vet.Specialty, specialty)
	if license != nil {
		vet.LicenseNumber = strings.TrimSpace(*license)
	}
	vet.UpdatedAt = now
}
