package services

import (
	"context"
	"errors"
	"strings"

	"github.com/harentsoaR/vetclinic-api/internal/apperr"
	"github.com/harentsoaR/vetclinic-api/internal/models"
	"github.com/harentsoaR/vetclinic-api/internal/repository"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type RegisterClientInput struct {
	Name       string         `json:"name" binding:"required"`
	Surname    string         `json:"surname" binding:"required"`
	NationalID string         `json:"nationalId" binding:"required,nationalid"`
	Email      string         `json:"email" binding:"required,email"`
	Phone      string         `json:"phone" binding:"required"`
	Address    string         `json:"address"`
	City       string         `json:"city"`
	District   string         `json:"district"`
	Notes      string         `json:"notes"`
	Patients   []PatientInput `json:"patients" binding:"omitempty,dive"`
}

type UpdateClientInput struct {
	Name       *string `json:"name" binding:"omitempty,min=1"`
	Surname    *string `json:"surname" binding:"omitempty,min=1"`
	NationalID *string `json:"nationalId" binding:"omitempty,nationalid"`
	Email      *string `json:"email" binding:"omitempty,email"`
	Phone      *string `json:"phone"`
	Address    *string `json:"address"`
	City       *string `json:"city"`
	District   *string `json:"district"`
	Notes      *string `json:"notes"`
	Active     *bool   `json:"active"`
}

// ClientRegistration is a new client with the patients registered alongside.
type ClientRegistration struct {
	Client   *models.ClientIdentity `json:"client"`
	Patients []*models.Patient      `json:"patients"`
	// FailedPatients names the embedded patients that could not be stored.
	// The client itself is registered either way.
	FailedPatients []string `json:"failedPatients,omitempty"`
}

type ClientService struct {
	deps     Deps
	auth     *Authenticator[*models.ClientIdentity]
	patients *PatientService
}

// Register creates a client whose temporary password is the national id without
// dots or dashes, and queues the welcome email carrying the verification link.
func (s *ClientService) Register(ctx context.Context, actor *models.StaffIdentity, in RegisterClientInput) (*ClientRegistration, error) {
	nationalID := strings.TrimSpace(in.NationalID)
	email := models.NormalizeEmail(in.Email)
	if err := s.ensureUnique(ctx, primitive.NilObjectID, nationalID, email); err != nil {
		return nil, err
	}

	now := s.deps.Now()
	client := &models.ClientIdentity{
		ID:           primitive.NewObjectID(),
		Name:         strings.TrimSpace(in.Name),
		Surname:      strings.TrimSpace(in.Surname),
		NationalID:   nationalID,
		Email:        email,
		Phone:        in.Phone,
		Address:      in.Address,
		City:         in.City,
		District:     in.District,
		Notes:        in.Notes,
		Active:       true,
		RegisteredAt: now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if actor != nil {
		by := actor.ID
		client.RegisteredBy = &by
	}

	tempPassword := models.TemporaryPassword(nationalID)
	if err := client.SetPassword(tempPassword); err != nil {
		return nil, apperr.Internal("failed to hash password", err)
	}
	token, err := client.IssueToken(models.PurposeEmailVerification, s.deps.Tokens.Confirmation, now)
	if err != nil {
		return nil, apperr.Internal("failed to generate token", err)
	}
	if err := s.deps.Store.Clients.Insert(ctx, client); err != nil {
		return nil, storeErr(err, "client")
	}

	s.deps.Notifications.SendClientWelcome(ctx, client, tempPassword, token)

	out := &ClientRegistration{Client: client, Patients: []*models.Patient{}}
	for _, p := range in.Patients {
		patient, err := s.patients.insert(ctx, client.ID, p)
		if err != nil {
			s.deps.Log.Error().Err(err).Str("client_id", client.ID.Hex()).Str("patient", p.Name).Msg("Failed to register patient with client")
			out.FailedPatients = append(out.FailedPatients, strings.TrimSpace(p.Name))
			continue
		}
		out.Patients = append(out.Patients, patient)
	}

	s.deps.Log.Info().Str("client_id", client.ID.Hex()).Int("patients", len(out.Patients)).Int("failed_patients", len(out.FailedPatients)).Msg("Client registered")
	client.Credentials = models.Credentials{}
	return out, nil
}

func (s *ClientService) Get(ctx context.Context, id primitive.ObjectID) (*models.ClientIdentity, error) {
	client, err := s.deps.Store.Clients.FindProfile(ctx, id)
	return client, storeErr(err, "client")
}

func (s *ClientService) GetByNationalID(ctx context.Context, nationalID string) (*models.ClientIdentity, error) {
	client, err := s.deps.Store.Clients.FindByNationalID(ctx, strings.TrimSpace(nationalID))
	return client, storeErr(err, "client")
}

func (s *ClientService) List(ctx context.Context, filter repository.ClientFilter) ([]*models.ClientIdentity, error) {
	clients, err := s.deps.Store.Clients.List(ctx, filter)
	return clients, storeErr(err, "client")
}

func (s *ClientService) Update(ctx context.Context, id primitive.ObjectID, in UpdateClientInput) (*models.ClientIdentity, error) {
	client, err := s.deps.Store.Clients.FindByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, "client")
	}

	var nationalID, email string
	if in.NationalID != nil && strings.TrimSpace(*in.NationalID) != client.NationalID {
		nationalID = strings.TrimSpace(*in.NationalID)
	}
	if in.Email != nil && models.NormalizeEmail(*in.Email) != client.Email {
		email = models.NormalizeEmail(*in.Email)
	}
	if err := s.ensureUnique(ctx, client.ID, nationalID, email); err != nil {
		return nil, err
	}
	if nationalID != "" {
		client.NationalID = nationalID
	}
	if email != "" {
		client.Email = email
	}

	setString(&client.Name, in.Name)
	setString(&client.Surname, in.Surname)
	setString(&client.Phone, in.Phone)
	setString(&client.Address, in.Address)
	setString(&client.City, in.City)
	setString(&client.District, in.District)
	setString(&client.Notes, in.Notes)
	if in.Active != nil {
		client.Active = *in.Active
	}
	client.Touch(s.deps.Now())
	if err := s.deps.Store.Clients.Replace(ctx, client); err != nil {
		return nil, storeErr(err, "client")
	}
	client.Credentials = models.Credentials{}
	return client, nil
}

// Deactivate soft deletes a client.
func (s *ClientService) Deactivate(ctx context.Context, id primitive.ObjectID) error {
	client, err := s.deps.Store.Clients.FindByID(ctx, id)
	if err != nil {
		return storeErr(err, "client")
	}
	client.Active = false
	client.Touch(s.deps.Now())
	return storeErr(s.deps.Store.Clients.Replace(ctx, client), "client")
}

// EnablePortal sets the portal password chosen at the desk and sends a fresh
// verification link.
func (s *ClientService) EnablePortal(ctx context.Context, id primitive.ObjectID, password string) error {
	client, err := s.deps.Store.Clients.FindByID(ctx, id)
	if err != nil {
		return storeErr(err, "client")
	}
	if err := client.SetPassword(password); err != nil {
		return apperr.Internal("failed to hash password", err)
	}
	now := s.deps.Now()
	token, err := client.IssueToken(models.PurposeEmailVerification, s.deps.Tokens.Confirmation, now)
	if err != nil {
		return apperr.Internal("failed to generate token", err)
	}
	client.Touch(now)
	if err := s.deps.Store.Clients.Replace(ctx, client); err != nil {
		return storeErr(err, "client")
	}
	s.deps.Notifications.SendPortalAccess(ctx, client, token)
	return nil
}

// ConfirmEmail verifies the client's email. The token stays alive, re-tagged for
// the password setup step, and is returned to the caller.
func (s *ClientService) ConfirmEmail(ctx context.Context, token string) (string, error) {
	client, err := s.auth.Redeem(ctx, token, models.PurposeEmailVerification)
	if err != nil {
		return "", err
	}
	now := s.deps.Now()
	client.EmailVerified = true
	client.Retag(models.PurposePasswordSetup, s.deps.Tokens.Confirmation, now)
	client.Touch(now)
	if err := s.deps.Store.Clients.Replace(ctx, client); err != nil {
		return "", storeErr(err, "client")
	}
	return token, nil
}

// ensureUnique pre-checks the unique fields being set; empty values are skipped.
// The unique indexes stay authoritative.
func (s *ClientService) ensureUnique(ctx context.Context, self primitive.ObjectID, nationalID, email string) error {
	if nationalID != "" {
		existing, err := s.deps.Store.Clients.FindByNationalID(ctx, nationalID)
		if err := uniqueCheck(existing, err, self, "national id already registered"); err != nil {
			return err
		}
	}
	if email != "" {
		existing, err := s.deps.Store.Clients.FindByEmail(ctx, email)
		if err := uniqueCheck(existing, err, self, "email already registered"); err != nil {
			return err
		}
	}
	return nil
}

func uniqueCheck(existing *models.ClientIdentity, err error, self primitive.ObjectID, msg string) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return nil
	case err != nil:
		return storeErr(err, "client")
	case existing.ID != self:
		return apperr.Conflict(msg)
	}
	return nil
}
