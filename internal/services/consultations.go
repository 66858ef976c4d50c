package services

import (
	"context"
	"time"

	"github.com/harentsoaR/vetclinic-api/internal/apperr"
	"github.com/harentsoaR/vetclinic-api/internal/models"
	"github.com/harentsoaR/vetclinic-api/internal/repository"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ConsultationInput struct {
	PatientID            string                    `json:"patientId" binding:"required,objectid"`
	ClientID             string                    `json:"clientId" binding:"required,objectid"`
	AppointmentID        string                    `json:"appointmentId" binding:"omitempty,objectid"`
	Date                 *time.Time                `json:"date"`
	Reason               string                    `json:"reason" binding:"required"`
	Anamnesis            string                    `json:"anamnesis"`
	Vitals               models.Vitals             `json:"vitals"`
	PhysicalExam         string                    `json:"physicalExam"`
	Diagnosis            string                    `json:"diagnosis" binding:"required"`
	PresumptiveDiagnosis string                    `json:"presumptiveDiagnosis"`
	DefinitiveDiagnosis  string                    `json:"definitiveDiagnosis"`
	Treatment            string                    `json:"treatment" binding:"required"`
	Medications          []models.Medication       `json:"medications" binding:"omitempty,dive"`
	Exams                []models.Exam             `json:"exams" binding:"omitempty,dive"`
	Procedures           []models.Procedure        `json:"procedures" binding:"omitempty,dive"`
	Vaccinations         []models.Vaccination      `json:"vaccinations" binding:"omitempty,dive"`
	Observations         string                    `json:"observations"`
	Recommendations      string                    `json:"recommendations"`
	NextVisit            *time.Time                `json:"nextVisit"`
	Attachments          []models.Attachment       `json:"attachments" binding:"omitempty,dive"`
	Status               models.ConsultationStatus `json:"status" binding:"omitempty,oneof=InProgress Completed"`
}

// UpdateConsultationInput is a merge patch. Slices replace the stored ones when present.
type UpdateConsultationInput struct {
	Reason               *string                    `json:"reason" binding:"omitempty,min=1"`
	Anamnesis            *string                    `json:"anamnesis"`
	Vitals               *models.Vitals             `json:"vitals"`
	PhysicalExam         *string                    `json:"physicalExam"`
	Diagnosis            *string                    `json:"diagnosis" binding:"omitempty,min=1"`
	PresumptiveDiagnosis *string                    `json:"presumptiveDiagnosis"`
	DefinitiveDiagnosis  *string                    `json:"definitiveDiagnosis"`
	Treatment            *string                    `json:"treatment" binding:"omitempty,min=1"`
	Medications          []models.Medication        `json:"medications" binding:"omitempty,dive"`
	Exams                []models.Exam              `json:"exams" binding:"omitempty,dive"`
	Procedures           []models.Procedure         `json:"procedures" binding:"omitempty,dive"`
	Vaccinations         []models.Vaccination       `json:"vaccinations" binding:"omitempty,dive"`
	Observations         *string                    `json:"observations"`
	Recommendations      *string                    `json:"recommendations"`
	NextVisit            *time.Time                 `json:"nextVisit"`
	Attachments          []models.Attachment        `json:"attachments" binding:"omitempty,dive"`
	Status               *models.ConsultationStatus `json:"status" binding:"omitempty,oneof=InProgress Completed"`
}

type ConsultationService struct {
	deps Deps
}

// Create records a consultation by actor. A linked appointment must belong to
// the same patient and be able to complete; it is completed after the insert.
// The two writes are not atomic.
func (s *ConsultationService) Create(ctx context.Context, actor *models.StaffIdentity, in ConsultationInput) (*models.Consultation, error) {
	patientID, err := ParseID(in.PatientID, "patientId")
	if err != nil {
		return nil, err
	}
	clientID, err := ParseID(in.ClientID, "clientId")
	if err != nil {
		return nil, err
	}
	if _, _, err := ownedPatient(ctx, s.deps.Store, patientID, clientID); err != nil {
		return nil, err
	}

	var apt *models.Appointment
	if in.AppointmentID != "" {
		aptID, err := ParseID(in.AppointmentID, "appointmentId")
		if err != nil {
			return nil, err
		}
		if apt, err = s.deps.Store.Appointments.FindByID(ctx, aptID); err != nil {
			return nil, storeErr(err, "appointment")
		}
		if apt.PatientID != patientID {
			return nil, apperr.Invalid("appointment belongs to another patient")
		}
		if err := models.CanTransition(apt.Status, models.StatusCompleted); err != nil {
			return nil, transitionErr(err)
		}
	}

	now := s.deps.Now()
	date := now
	if in.Date != nil {
		date = *in.Date
	}
	status := in.Status
	if status == "" {
		status = models.ConsultationCompleted
	}
	c := &models.Consultation{
		ID:                   primitive.NewObjectID(),
		PatientID:            patientID,
		ClientID:             clientID,
		VeterinarianID:       actor.ID,
		Date:                 date,
		Reason:               in.Reason,
		Anamnesis:            in.Anamnesis,
		Vitals:               in.Vitals,
		PhysicalExam:         in.PhysicalExam,
		Diagnosis:            in.Diagnosis,
		PresumptiveDiagnosis: in.PresumptiveDiagnosis,
		DefinitiveDiagnosis:  in.DefinitiveDiagnosis,
		Treatment:            in.Treatment,
		Medications:          nonNil(in.Medications),
		Exams:                nonNil(in.Exams),
		Procedures:           nonNil(in.Procedures),
		Vaccinations:         nonNil(in.Vaccinations),
		Observations:         in.Observations,
		Recommendations:      in.Recommendations,
		NextVisit:            in.NextVisit,
		Attachments:          nonNil(in.Attachments),
		Status:               status,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if apt != nil {
		c.AppointmentID = &apt.ID
	}
	if err := s.deps.Store.Consultations.Insert(ctx, c); err != nil {
		return nil, storeErr(err, "consultation")
	}

	if apt != nil {
		if err := apt.Complete(&c.ID); err != nil {
			return nil, transitionErr(err)
		}
		apt.UpdatedAt = now
		if err := s.deps.Store.Appointments.Replace(ctx, apt); err != nil {
			s.deps.Log.Error().Err(err).
				Str("consultation_id", c.ID.Hex()).
				Str("appointment_id", apt.ID.Hex()).
				Msg("Consultation saved but appointment could not be completed")
			return nil, apperr.Internal("consultation saved but the appointment could not be completed", err)
		}
	}
	return c, nil
}

func (s *ConsultationService) Get(ctx context.Context, id primitive.ObjectID) (*models.Consultation, error) {
	c, err := s.deps.Store.Consultations.FindByID(ctx, id)
	return c, storeErr(err, "consultation")
}

// List returns consultations newest first.
func (s *ConsultationService) List(ctx context.Context, filter repository.ConsultationFilter) ([]*models.Consultation, error) {
	cs, err := s.deps.Store.Consultations.List(ctx, filter)
	return cs, storeErr(err, "consultation")
}

func (s *ConsultationService) Statistics(ctx context.Context) (*models.ConsultationStats, error) {
	stats, err := s.deps.Store.Consultations.Statistics(ctx)
	return stats, storeErr(err, "consultation")
}

// ListForClientPatient returns the history of a patient, provided client owns it.
func (s *ConsultationService) ListForClientPatient(ctx context.Context, client *models.ClientIdentity, patientID primitive.ObjectID) ([]*models.Consultation, error) {
	patient, err := s.deps.Store.Patients.FindByID(ctx, patientID)
	if err != nil {
		return nil, storeErr(err, "patient")
	}
	if patient.OwnerID != client.ID {
		return nil, apperr.Forbidden("you do not have access to this patient")
	}
	return s.List(ctx, repository.ConsultationFilter{PatientID: &patientID})
}

// Update applies a merge patch. Only the creating veterinarian or an admin may edit.
func (s *ConsultationService) Update(ctx context.Context, actor *models.StaffIdentity, id primitive.ObjectID, in UpdateConsultationInput) (*models.Consultation, error) {
	return s.modify(ctx, actor, id, func(c *models.Consultation) {
		setString(&c.Reason, in.Reason)
		setString(&c.Anamnesis, in.Anamnesis)
		setString(&c.PhysicalExam, in.PhysicalExam)
		setString(&c.Diagnosis, in.Diagnosis)
		setString(&c.PresumptiveDiagnosis, in.PresumptiveDiagnosis)
		setString(&c.DefinitiveDiagnosis, in.DefinitiveDiagnosis)
		setString(&c.Treatment, in.Treatment)
		setString(&c.Observations, in.Observations)
		setString(&c.Recommendations, in.Recommendations)
		if in.Vitals != nil {
			c.Vitals = *in.Vitals
		}
		if in.NextVisit != nil {
			c.NextVisit = in.NextVisit
		}
		if in.Status != nil {
			c.Status = *in.Status
		}
		if in.Medications != nil {
			c.Medications = in.Medications
		}
		if in.Exams != nil {
			c.Exams = in.Exams
		}
		if in.Procedures != nil {
			c.Procedures = in.Procedures
		}
		if in.Vaccinations != nil {
			c.Vaccinations = in.Vaccinations
		}
		if in.Attachments != nil {
			c.Attachments = in.Attachments
		}
	})
}

func (s *ConsultationService) AddMedication(ctx context.Context, actor *models.StaffIdentity, id primitive.ObjectID, m models.Medication) (*models.Consultation, error) {
	return s.modify(ctx, actor, id, func(c *models.Consultation) { c.Medications = append(c.Medications, m) })
}

func (s *ConsultationService) AddExam(ctx context.Context, actor *models.StaffIdentity, id primitive.ObjectID, e models.Exam) (*models.Consultation, error) {
	return s.modify(ctx, actor, id, func(c *models.Consultation) { c.Exams = append(c.Exams, e) })
}

func (s *ConsultationService) AddVaccination(ctx context.Context, actor *models.StaffIdentity, id primitive.ObjectID, v models.Vaccination) (*models.Consultation, error) {
	return s.modify(ctx, actor, id, func(c *models.Consultation) { c.Vaccinations = append(c.Vaccinations, v) })
}

func (s *ConsultationService) modify(ctx context.Context, actor *models.StaffIdentity, id primitive.ObjectID, apply func(*models.Consultation)) (*models.Consultation, error) {
	c, err := s.deps.Store.Consultations.FindByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, "consultation")
	}
	if err := canEditConsultation(actor, c); err != nil {
		return nil, err
	}
	apply(c)
	c.UpdatedAt = s.deps.Now()
	if err := s.deps.Store.Consultations.Replace(ctx, c); err != nil {
		return nil, storeErr(err, "consultation")
	}
	return c, nil
}

func canEditConsultation(actor *models.StaffIdentity, c *models.Consultation) error {
	if actor == nil {
		return apperr.Unauthorized("authentication required")
	}
	if actor.Role == models.RoleAdmin || actor.ID == c.VeterinarianID {
		return nil
	}
	return apperr.Forbidden("only the veterinarian who created the consultation can edit it")
}
