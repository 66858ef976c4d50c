package services

import (
	"context"
	"fmt"
	"time"

	"github.com/harentsoaR/vetclinic-api/internal/models"
	"github.com/harentsoaR/vetclinic-api/internal/repository"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AdminAccount describes the administrator created on an empty system.
type AdminAccount struct {
	Name     string
	Email    string
	Password string
}

// EnsureDefaultAdmin creates a confirmed, active admin when no admin exists.
// It is check-then-create: concurrent first starts may both create one.
func EnsureDefaultAdmin(ctx context.Context, staff repository.StaffRepository, account AdminAccount, log zerolog.Logger) (bool, error) {
	n, err := staff.CountByRole(ctx, models.RoleAdmin)
	if err != nil {
		return false, fmt.Errorf("failed to count admins: %w", err)
	}
	if n > 0 {
		log.Info().Msg("Admin already exists, skipping bootstrap")
		return false, nil
	}

	now := time.Now()
	admin := &models.StaffIdentity{
		ID:          primitive.NewObjectID(),
		DisplayName: account.Name,
		Email:       models.NormalizeEmail(account.Email),
		Role:        models.RoleAdmin,
		Active:      true,
		Confirmed:   true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := admin.SetPassword(account.Password); err != nil {
		return false, fmt.Errorf("failed to hash admin password: %w", err)
	}
	if err := staff.Insert(ctx, admin); err != nil {
		return false, fmt.Errorf("failed to create default admin: %w", err)
	}

	log.Warn().Str("email", admin.Email).Msg("Default admin created, change its password after the first login")
	return true, nil
}
