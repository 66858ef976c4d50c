package services

import (
	"context"
	"strings"
	"time"

	"github.com/harentsoaR/vetclinic-api/internal/apperr"
	"github.com/harentsoaR/vetclinic-api/internal/models"
	"github.com/harentsoaR/vetclinic-api/internal/repository"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// patientSequence names the counter behind clinical record numbers.
const patientSequence = "patients"

type PatientInput struct {
	Name       string         `json:"name" binding:"required"`
	Species    models.Species `json:"species" binding:"required,oneof=Canine Feline Bird Reptile Rodent Other"`
	Breed      string         `json:"breed"`
	BirthDate  *time.Time     `json:"birthDate"`
	Sex        models.Sex     `json:"sex" binding:"omitempty,oneof=Male Female"`
	Color      string         `json:"color"`
	Weight     float64        `json:"weight" binding:"gte=0"`
	OwnerID    string         `json:"ownerId" binding:"omitempty,objectid"`
	Microchip  string         `json:"microchip"`
	Sterilized bool           `json:"sterilized"`
	Allergies  []string       `json:"allergies"`
	Conditions []string       `json:"conditions"`
	PhotoURL   string         `json:"photoUrl" binding:"omitempty,url"`
}

type UpdatePatientInput struct {
	Name       *string         `json:"name" binding:"omitempty,min=1"`
	Species    *models.Species `json:"species" binding:"omitempty,oneof=Canine Feline Bird Reptile Rodent Other"`
	Breed      *string         `json:"breed"`
	BirthDate  *time.Time      `json:"birthDate"`
	Sex        *models.Sex     `json:"sex" binding:"omitempty,oneof=Male Female"`
	Color      *string         `json:"color"`
	Weight     *float64        `json:"weight" binding:"omitempty,gte=0"`
	OwnerID    *string         `json:"ownerId" binding:"omitempty,objectid"`
	Microchip  *string         `json:"microchip"`
	Sterilized *bool           `json:"sterilized"`
	Allergies  []string        `json:"allergies"`
	Conditions []string        `json:"conditions"`
	PhotoURL   *string         `json:"photoUrl"`
}

type PatientService struct {
	deps Deps
}

// Create registers a patient. The owner must exist; nothing is written otherwise.
func (s *PatientService) Create(ctx context.Context, in PatientInput) (*models.Patient, error) {
	ownerID, err := ParseID(in.OwnerID, "ownerId")
	if err != nil {
		return nil, err
	}
	if _, err := s.deps.Store.Clients.FindProfile(ctx, ownerID); err != nil {
		return nil, storeErr(err, "client")
	}
	return s.insert(ctx, ownerID, in)
}

// insert assigns the record number and saves the patient of an already checked owner.
func (s *PatientService) insert(ctx context.Context, ownerID primitive.ObjectID, in PatientInput) (*models.Patient, error) {
	n, err := s.deps.Store.Counters.Next(ctx, patientSequence)
	if err != nil {
		return nil, apperr.Internal("failed to assign clinical record number", err)
	}
	now := s.deps.Now()
	patient := &models.Patient{
		ID:                   primitive.NewObjectID(),
		Name:                 strings.TrimSpace(in.Name),
		ClinicalRecordNumber: models.ClinicalRecordNumber(n),
		Species:              in.Species,
		Breed:                in.Breed,
		BirthDate:            in.BirthDate,
		Sex:                  in.Sex,
		Color:                in.Color,
		Weight:               in.Weight,
		OwnerID:              ownerID,
		Microchip:            in.Microchip,
		Sterilized:           in.Sterilized,
		Allergies:            nonNil(in.Allergies),
		Conditions:           nonNil(in.Conditions),
		PhotoURL:             in.PhotoURL,
		Active:               true,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if err := s.deps.Store.Patients.Insert(ctx, patient); err != nil {
		return nil, storeErr(err, "patient")
	}
	return patient, nil
}

func (s *PatientService) Get(ctx context.Context, id primitive.ObjectID) (*models.Patient, error) {
	patient, err := s.deps.Store.Patients.FindByID(ctx, id)
	return patient, storeErr(err, "patient")
}

func (s *PatientService) GetByRecordNumber(ctx context.Context, number string) (*models.Patient, error) {
	patient, err := s.deps.Store.Patients.FindByRecordNumber(ctx, strings.ToUpper(strings.TrimSpace(number)))
	return patient, storeErr(err, "patient")
}

func (s *PatientService) List(ctx context.Context, filter repository.PatientFilter) ([]*models.Patient, error) {
	patients, err := s.deps.Store.Patients.List(ctx, filter)
	return patients, storeErr(err, "patient")
}

// ListByOwner returns the active patients of a client.
func (s *PatientService) ListByOwner(ctx context.Context, ownerID primitive.ObjectID) ([]*models.Patient, error) {
	return s.List(ctx, repository.PatientFilter{OwnerID: &ownerID, Active: repository.Bool(true)})
}

func (s *PatientService) Update(ctx context.Context, id primitive.ObjectID, in UpdatePatientInput) (*models.Patient, error) {
	patient, err := s.deps.Store.Patients.FindByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, "patient")
	}
	if in.OwnerID != nil {
		ownerID, err := ParseID(*in.OwnerID, "ownerId")
		if err != nil {
			return nil, err
		}
		if ownerID != patient.OwnerID {
			if _, err := s.deps.Store.Clients.FindProfile(ctx, ownerID); err != nil {
				return nil, storeErr(err, "client")
			}
			patient.OwnerID = ownerID
		}
	}
	setString(&patient.Name, in.Name)
	setString(&patient.Breed, in.Breed)
	setString(&patient.Color, in.Color)
	setString(&patient.Microchip, in.Microchip)
	setString(&patient.PhotoURL, in.PhotoURL)
	if in.Species != nil {
		patient.Species = *in.Species
	}
	if in.Sex != nil {
		patient.Sex = *in.Sex
	}
	if in.BirthDate != nil {
		patient.BirthDate = in.BirthDate
	}
	if in.Weight != nil {
		patient.Weight = *in.Weight
	}
	if in.Sterilized != nil {
		patient.Sterilized = *in.Sterilized
	}
	if in.Allergies != nil {
		patient.Allergies = in.Allergies
	}
	if in.Conditions != nil {
		patient.Conditions = in.Conditions
	}
	patient.UpdatedAt = s.deps.Now()
	if err := s.deps.Store.Patients.Replace(ctx, patient); err != nil {
		return nil, storeErr(err, "patient")
	}
	return patient, nil
}

// SetActive soft deletes or reactivates a patient.
func (s *PatientService) SetActive(ctx context.Context, id primitive.ObjectID, active bool) (*models.Patient, error) {
	patient, err := s.deps.Store.Patients.FindByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, "patient")
	}
	patient.Active = active
	patient.UpdatedAt = s.deps.Now()
	if err := s.deps.Store.Patients.Replace(ctx, patient); err != nil {
		return nil, storeErr(err, "patient")
	}
	return patient, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
