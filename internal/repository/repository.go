// Package repository declares the persistence contracts used by the services.
// Implementations live in mongostore and memory.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/harentsoaR/vetclinic-api/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var ErrNotFound = errors.New("document not found")

// DuplicateKeyError reports a unique index violation on Field.
type DuplicateKeyError struct {
	Field string
	Err   error
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("duplicate value for %s", e.Field)
}

func (e *DuplicateKeyError) Unwrap() error { return e.Err }

// DuplicateField returns the violated field when err is a *DuplicateKeyError.
func DuplicateField(err error) (string, bool) {
	var dup *DuplicateKeyError
	if errors.As(err, &dup) {
		return dup.Field, true
	}
	return "", false
}

type (
	// IdentityStore is the storage an Authenticator needs for one identity kind.
	IdentityStore[T models.Identity] interface {
		FindByID(ctx context.Context, id primitive.ObjectID) (T, error)
		// FindProfile loads the identity without its credentials.
		FindProfile(ctx context.Context, id primitive.ObjectID) (T, error)
		FindByEmail(ctx context.Context, email string) (T, error)
		FindByToken(ctx context.Context, token string) (T, error)
		Replace(ctx context.Context, identity T) error
	}

	StaffRepository interface {
		IdentityStore[*models.StaffIdentity]
		Insert(ctx context.Context, staff *models.StaffIdentity) error
		List(ctx context.Context, filter StaffFilter) ([]*models.StaffIdentity, error)
		CountByRole(ctx context.Context, role models.Role) (int64, error)
	}

	ClientRepository interface {
		IdentityStore[*models.ClientIdentity]
		Insert(ctx context.Context, client *models.ClientIdentity) error
		FindByNationalID(ctx context.Context, nationalID string) (*models.ClientIdentity, error)
		List(ctx context.Context, filter ClientFilter) ([]*models.ClientIdentity, error)
	}

	VeterinarianRepository interface {
		Insert(ctx context.Context, vet *models.Veterinarian) error
		FindByID(ctx context.Context, id primitive.ObjectID) (*models.Veterinarian, error)
		FindByStaffID(ctx context.Context, staffID primitive.ObjectID) (*models.Veterinarian, error)
		// ListProfiles joins every veterinarian with its staff identity, credentials excluded.
		ListProfiles(ctx context.Context) ([]*models.VeterinarianProfile, error)
		Replace(ctx context.Context, vet *models.Veterinarian) error
	}

	PatientRepository interface {
		Insert(ctx context.Context, patient *models.Patient) error
		FindByID(ctx context.Context, id primitive.ObjectID) (*models.Patient, error)
		FindByRecordNumber(ctx context.Context, number string) (*models.Patient, error)
		List(ctx context.Context, filter PatientFilter) ([]*models.Patient, error)
		Replace(ctx context.Context, patient *models.Patient) error
	}

	AppointmentRepository interface {
		Insert(ctx context.Context, appointment *models.Appointment) error
		FindByID(ctx context.Context, id primitive.ObjectID) (*models.Appointment, error)
		List(ctx context.Context, filter AppointmentFilter) ([]*models.Appointment, error)
		Replace(ctx context.Context, appointment *models.Appointment) error
	}

	ConsultationRepository interface {
		Insert(ctx context.Context, consultation *models.Consultation) error
		FindByID(ctx context.Context, id primitive.ObjectID) (*models.Consultation, error)
		List(ctx context.Context, filter ConsultationFilter) ([]*models.Consultation, error)
		Replace(ctx context.Context, consultation *models.Consultation) error
		Statistics(ctx context.Context) (*models.ConsultationStats, error)
	}

	// Counters hands out monotonically increasing sequence values per name.
	Counters interface {
		Next(ctx context.Context, name string) (int64, error)
	}

	Pinger interface {
		Ping(ctx context.Context) error
	}
)

type (
	StaffFilter struct {
		Role   models.Role
		Active *bool
	}

	ClientFilter struct {
		Active *bool
		// Query matches name, surname, email or national id, case-insensitively.
		Query string
	}

	PatientFilter struct {
		OwnerID *primitive.ObjectID
		Species models.Species
		Active  *bool
		Query   string
	}

	AppointmentFilter struct {
		From           *time.Time
		To             *time.Time
		Statuses       []models.AppointmentStatus
		VeterinarianID *primitive.ObjectID
		ClientID       *primitive.ObjectID
		PatientID      *primitive.ObjectID
		// Descending sorts newest first; the default is chronological.
		Descending bool
	}

	ConsultationFilter struct {
		PatientID      *primitive.ObjectID
		ClientID       *primitive.ObjectID
		VeterinarianID *primitive.ObjectID
	}
)

// Store groups every repository behind one value for wiring.
type Store struct {
	Staff         StaffRepository
	Clients       ClientRepository
	Veterinarians VeterinarianRepository
	Patients      PatientRepository
	Appointments  AppointmentRepository
	Consultations ConsultationRepository
	Counters      Counters
	Pinger        Pinger
}

// Bool is a helper for the optional boolean filters.
func Bool(v bool) *bool { return &v }
