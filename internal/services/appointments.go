package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/harentsoaR/vetclinic-api/internal/apperr"
	"github.com/harentsoaR/vetclinic-api/internal/models"
	"github.com/harentsoaR/vetclinic-api/internal/repository"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type AppointmentInput struct {
	PatientID      string                 `json:"patientId" binding:"required,objectid"`
	ClientID       string                 `json:"clientId" binding:"required,objectid"`
	VeterinarianID string                 `json:"veterinarianId" binding:"required,objectid"`
	ScheduledDate  time.Time              `json:"scheduledDate" binding:"required"`
	ScheduledTime  string                 `json:"scheduledTime" binding:"required"`
	Type           models.AppointmentType `json:"type" binding:"required,oneof=Consultation Vaccination Surgery Emergency Checkup Other"`
	Reason         string                 `json:"reason" binding:"required"`
	Notes          string                 `json:"notes"`
}

// UpdateAppointmentInput is a merge patch. Status goes through the transition table.
type UpdateAppointmentInput struct {
	VeterinarianID *string                   `json:"veterinarianId" binding:"omitempty,objectid"`
	ScheduledDate  *time.Time                `json:"scheduledDate"`
	ScheduledTime  *string                   `json:"scheduledTime" binding:"omitempty,min=1"`
	Type           *models.AppointmentType   `json:"type" binding:"omitempty,oneof=Consultation Vaccination Surgery Emergency Checkup Other"`
	Reason         *string                   `json:"reason" binding:"omitempty,min=1"`
	Notes          *string                   `json:"notes"`
	Status         *models.AppointmentStatus `json:"status"`
}

type AppointmentService struct {
	deps Deps
}

// Create books an appointment after checking every reference; nothing is
// written when one is missing. Double booking is not prevented.
func (s *AppointmentService) Create(ctx context.Context, actor *models.StaffIdentity, in AppointmentInput) (*models.Appointment, error) {
	patientID, err := ParseID(in.PatientID, "patientId")
	if err != nil {
		return nil, err
	}
	clientID, err := ParseID(in.ClientID, "clientId")
	if err != nil {
		return nil, err
	}
	vetID, err := ParseID(in.VeterinarianID, "veterinarianId")
	if err != nil {
		return nil, err
	}

	patient, client, err := ownedPatient(ctx, s.deps.Store, patientID, clientID)
	if err != nil {
		return nil, err
	}
	if err := s.checkVeterinarian(ctx, vetID); err != nil {
		return nil, err
	}

	now := s.deps.Now()
	apt := &models.Appointment{
		ID:             primitive.NewObjectID(),
		PatientID:      patientID,
		ClientID:       clientID,
		VeterinarianID: vetID,
		ScheduledDate:  in.ScheduledDate,
		ScheduledTime:  strings.TrimSpace(in.ScheduledTime),
		Type:           in.Type,
		Reason:         in.Reason,
		Notes:          in.Notes,
		Status:         models.StatusPending,
		BookedBy:       actor.ID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.deps.Store.Appointments.Insert(ctx, apt); err != nil {
		return nil, storeErr(err, "appointment")
	}

	s.deps.Notifications.SendAppointmentBooked(ctx, client, patient, apt)
	return apt, nil
}

func (s *AppointmentService) Get(ctx context.Context, id primitive.ObjectID) (*models.Appointment, error) {
	apt, err := s.deps.Store.Appointments.FindByID(ctx, id)
	return apt, storeErr(err, "appointment")
}

func (s *AppointmentService) List(ctx context.Context, filter repository.AppointmentFilter) ([]*models.Appointment, error) {
	apts, err := s.deps.Store.Appointments.List(ctx, filter)
	return apts, storeErr(err, "appointment")
}

// ListByDate returns the appointments scheduled on the calendar day of date.
func (s *AppointmentService) ListByDate(ctx context.Context, date time.Time) ([]*models.Appointment, error) {
	from, to := DayBounds(date)
	return s.List(ctx, repository.AppointmentFilter{From: &from, To: &to})
}

// ListUpcomingForVeterinarian returns the Pending and Confirmed appointments of a veterinarian.
func (s *AppointmentService) ListUpcomingForVeterinarian(ctx context.Context, vetID primitive.ObjectID) ([]*models.Appointment, error) {
	return s.List(ctx, repository.AppointmentFilter{
		VeterinarianID: &vetID,
		Statuses:       []models.AppointmentStatus{models.StatusPending, models.StatusConfirmed},
	})
}

func (s *AppointmentService) ListForClient(ctx context.Context, clientID primitive.ObjectID) ([]*models.Appointment, error) {
	return s.List(ctx, repository.AppointmentFilter{ClientID: &clientID, Descending: true})
}

func (s *AppointmentService) ListForPatient(ctx context.Context, patientID primitive.ObjectID) ([]*models.Appointment, error) {
	return s.List(ctx, repository.AppointmentFilter{PatientID: &patientID, Descending: true})
}

// Update applies a merge patch. Terminal appointments cannot be modified.
func (s *AppointmentService) Update(ctx context.Context, id primitive.ObjectID, in UpdateAppointmentInput) (*models.Appointment, error) {
	apt, err := s.deps.Store.Appointments.FindByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, "appointment")
	}
	if apt.Status.Terminal() {
		return nil, apperr.Conflict("a " + strings.ToLower(string(apt.Status)) + " appointment cannot be modified")
	}

	if in.VeterinarianID != nil {
		vetID, err := ParseID(*in.VeterinarianID, "veterinarianId")
		if err != nil {
			return nil, err
		}
		if vetID != apt.VeterinarianID {
			if err := s.checkVeterinarian(ctx, vetID); err != nil {
				return nil, err
			}
			apt.VeterinarianID = vetID
		}
	}
	cancelled := false
	if in.Status != nil {
		if err := s.move(apt, *in.Status, ""); err != nil {
			return nil, err
		}
		cancelled = *in.Status == models.StatusCancelled
	}
	if in.ScheduledDate != nil {
		apt.ScheduledDate = *in.ScheduledDate
	}
	if in.Type != nil {
		apt.Type = *in.Type
	}
	setString(&apt.ScheduledTime, in.ScheduledTime)
	setString(&apt.Reason, in.Reason)
	setString(&apt.Notes, in.Notes)

	if apt, err = s.save(ctx, apt); err != nil {
		return nil, err
	}
	if cancelled {
		s.notifyCancelled(ctx, apt)
	}
	return apt, nil
}

// Cancel moves the appointment to Cancelled and texts the client.
func (s *AppointmentService) Cancel(ctx context.Context, id primitive.ObjectID, reason string) (*models.Appointment, error) {
	apt, err := s.deps.Store.Appointments.FindByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, "appointment")
	}
	if err := s.move(apt, models.StatusCancelled, reason); err != nil {
		return nil, err
	}
	if apt, err = s.save(ctx, apt); err != nil {
		return nil, err
	}
	s.notifyCancelled(ctx, apt)
	return apt, nil
}

// Complete moves the appointment to Completed, linking a consultation when given.
func (s *AppointmentService) Complete(ctx context.Context, id primitive.ObjectID, consultationID string) (*models.Appointment, error) {
	apt, err := s.deps.Store.Appointments.FindByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, "appointment")
	}

	var link *primitive.ObjectID
	if consultationID != "" {
		cid, err := ParseID(consultationID, "consultationId")
		if err != nil {
			return nil, err
		}
		if _, err := s.deps.Store.Consultations.FindByID(ctx, cid); err != nil {
			return nil, storeErr(err, "consultation")
		}
		link = &cid
	}
	if err := apt.Complete(link); err != nil {
		return nil, transitionErr(err)
	}
	return s.save(ctx, apt)
}

// ChangeStatus moves the appointment along the transition table.
func (s *AppointmentService) ChangeStatus(ctx context.Context, id primitive.ObjectID, status models.AppointmentStatus) (*models.Appointment, error) {
	if !status.Valid() {
		return nil, apperr.Invalidf("invalid status %q", status)
	}
	apt, err := s.deps.Store.Appointments.FindByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, "appointment")
	}
	if err := s.move(apt, status, ""); err != nil {
		return nil, err
	}
	if apt, err = s.save(ctx, apt); err != nil {
		return nil, err
	}
	if status == models.StatusCancelled {
		s.notifyCancelled(ctx, apt)
	}
	return apt, nil
}

// move applies a transition. Every path into Cancelled records the
// cancellation date and reason.
func (s *AppointmentService) move(apt *models.Appointment, to models.AppointmentStatus, reason string) error {
	var err error
	if to == models.StatusCancelled {
		err = apt.Cancel(reason, s.deps.Now())
	} else {
		err = apt.Transition(to)
	}
	if err != nil {
		return transitionErr(err)
	}
	return nil
}

// notifyCancelled texts the client. Missing references skip the message.
func (s *AppointmentService) notifyCancelled(ctx context.Context, apt *models.Appointment) {
	client, cerr := s.deps.Store.Clients.FindProfile(ctx, apt.ClientID)
	patient, perr := s.deps.Store.Patients.FindByID(ctx, apt.PatientID)
	if cerr == nil && perr == nil {
		s.deps.Notifications.SendAppointmentCancelled(ctx, client, patient, apt)
	}
}

func (s *AppointmentService) save(ctx context.Context, apt *models.Appointment) (*models.Appointment, error) {
	apt.UpdatedAt = s.deps.Now()
	if err := s.deps.Store.Appointments.Replace(ctx, apt); err != nil {
		return nil, storeErr(err, "appointment")
	}
	return apt, nil
}

// checkVeterinarian requires a staff identity with the veterinarian role.
func (s *AppointmentService) checkVeterinarian(ctx context.Context, id primitive.ObjectID) error {
	staff, err := s.deps.Store.Staff.FindProfile(ctx, id)
	if err != nil {
		return storeErr(err, "veterinarian")
	}
	if staff.Role != models.RoleVeterinarian {
		return apperr.NotFound("veterinarian")
	}
	return nil
}

// ownedPatient loads patient and client and checks that the client owns the patient.
func ownedPatient(ctx context.Context, store *repository.Store, patientID, clientID primitive.ObjectID) (*models.Patient, *models.ClientIdentity, error) {
	patient, err := store.Patients.FindByID(ctx, patientID)
	if err != nil {
		return nil, nil, storeErr(err, "patient")
	}
	client, err := store.Clients.FindProfile(ctx, clientID)
	if err != nil {
		return nil, nil, storeErr(err, "client")
	}
	if patient.OwnerID != client.ID {
		return nil, nil, apperr.Invalid("patient does not belong to the client")
	}
	return patient, client, nil
}

// transitionErr maps appointment state machine errors: an unknown status is
// invalid input, a refused move conflicts with the current state.
func transitionErr(err error) error {
	switch {
	case errors.Is(err, models.ErrUnknownStatus):
		return &apperr.Error{Kind: apperr.KindInvalid, Message: err.Error(), Err: err}
	case errors.Is(err, models.ErrTerminalStatus), errors.Is(err, models.ErrInvalidTransition):
		return &apperr.Error{Kind: apperr.KindConflict, Message: err.Error(), Err: err}
	}
	return apperr.Internal("", err)
}

// DayBounds returns the first and last instant of the calendar day of t, in t's location.
func DayBounds(t time.Time) (time.Time, time.Time) {
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return start, start.AddDate(0, 0, 1).Add(-time.Nanosecond)
}
