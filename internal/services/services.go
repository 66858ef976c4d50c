// Package services implements the clinic's business operations on top of the
// repository contracts. Every error returned is an *apperr.Error.
package services

import (
	"errors"
	"time"

	"github.com/harentsoaR/vetclinic-api/internal/apperr"
	"github.com/harentsoaR/vetclinic-api/internal/metrics"
	"github.com/harentsoaR/vetclinic-api/internal/models"
	"github.com/harentsoaR/vetclinic-api/internal/repository"
	"github.com/harentsoaR/vetclinic-api/internal/utils"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TokenTTLs are the lifetimes of one-time tokens.
type TokenTTLs struct {
	Confirmation time.Duration
	Reset        time.Duration
}

// Deps are the collaborators shared by every service.
type Deps struct {
	Store         *repository.Store
	Sessions      *utils.SessionIssuer
	Notifications *NotificationService
	Tokens        TokenTTLs
	Log           zerolog.Logger
	Metrics       *metrics.Metrics
	// Now defaults to time.Now.
	Now func() time.Time
}

// Services bundles every service for the handlers.
type Services struct {
	StaffAuth     *Authenticator[*models.StaffIdentity]
	ClientAuth    *Authenticator[*models.ClientIdentity]
	Staff         *StaffService
	Clients       *ClientService
	Veterinarians *VeterinarianService
	Patients      *PatientService
	Appointments  *AppointmentService
	Consultations *ConsultationService
	Store         *repository.Store
}

func New(d Deps) *Services {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Tokens.Confirmation <= 0 {
		d.Tokens.Confirmation = 72 * time.Hour
	}
	if d.Tokens.Reset <= 0 {
		d.Tokens.Reset = time.Hour
	}

	staffAuth := NewAuthenticator[*models.StaffIdentity](models.KindStaff, d.Store.Staff, d,
		models.PurposePasswordReset)
	clientAuth := NewAuthenticator[*models.ClientIdentity](models.KindClient, d.Store.Clients, d,
		models.PurposePasswordReset, models.PurposePasswordSetup)
	patients := &PatientService{deps: d}
	return &Services{
		StaffAuth:     staffAuth,
		ClientAuth:    clientAuth,
		Staff:         &StaffService{deps: d, auth: staffAuth},
		Clients:       &ClientService{deps: d, auth: clientAuth, patients: patients},
		Veterinarians: &VeterinarianService{deps: d},
		Patients:      patients,
		Appointments:  &AppointmentService{deps: d},
		Consultations: &ConsultationService{deps: d},
		Store:         d.Store,
	}
}

var duplicateMessages = map[string]string{
	"email":                "email already registered",
	"nationalId":           "national id already registered",
	"licenseNumber":        "license number already registered",
	"staffId":              "staff member already has a veterinarian record",
	"clinicalRecordNumber": "clinical record number already assigned",
	"oneTimeToken":         "token collision, try again",
}

// storeErr translates a repository error into the application taxonomy.
func storeErr(err error, resource string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound(resource)
	}
	if field, ok := repository.DuplicateField(err); ok {
		msg, known := duplicateMessages[field]
		if !known {
			msg = field + " already exists"
		}
		return &apperr.Error{Kind: apperr.KindConflict, Message: msg, Err: err}
	}
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return apperr.Internal("", err)
}

// ParseID parses a hex ObjectID, naming the parameter in the error.
func ParseID(hex, name string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return primitive.NilObjectID, apperr.Invalidf("invalid %s", name)
	}
	return id, nil
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}
