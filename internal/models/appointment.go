package models

import (
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type AppointmentType string

const (
	AppointmentConsultation AppointmentType = "Consultation"
	AppointmentVaccination  AppointmentType = "Vaccination"
	AppointmentSurgery      AppointmentType = "Surgery"
	AppointmentEmergency    AppointmentType = "Emergency"
	AppointmentCheckup      AppointmentType = "Checkup"
	AppointmentOther        AppointmentType = "Other"
)

func (t AppointmentType) Valid() bool {
	switch t {
	case AppointmentConsultation, AppointmentVaccination, AppointmentSurgery,
		AppointmentEmergency, AppointmentCheckup, AppointmentOther:
		return true
	}
	return false
}

type AppointmentStatus string

const (
	StatusPending    AppointmentStatus = "Pending"
	StatusConfirmed  AppointmentStatus = "Confirmed"
	StatusInProgress AppointmentStatus = "InProgress"
	StatusCompleted  AppointmentStatus = "Completed"
	StatusCancelled  AppointmentStatus = "Cancelled"
	StatusNoShow     AppointmentStatus = "NoShow"
)

var (
	ErrUnknownStatus     = errors.New("unknown appointment status")
	ErrInvalidTransition = errors.New("invalid appointment status transition")
	ErrTerminalStatus    = errors.New("appointment is in a terminal status")
)

// appointmentTransitions lists the statuses reachable from each status.
// Completed and Cancelled have no outgoing edges.
var appointmentTransitions = map[AppointmentStatus][]AppointmentStatus{
	StatusPending:    {StatusConfirmed, StatusInProgress, StatusCompleted, StatusCancelled, StatusNoShow},
	StatusConfirmed:  {StatusPending, StatusInProgress, StatusCompleted, StatusCancelled, StatusNoShow},
	StatusInProgress: {StatusCompleted, StatusCancelled},
	StatusNoShow:     {StatusPending, StatusConfirmed, StatusCancelled},
	StatusCompleted:  {},
	StatusCancelled:  {},
}

func (s AppointmentStatus) Valid() bool {
	_, ok := appointmentTransitions[s]
	return ok
}

func (s AppointmentStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// CanTransition reports whether from may move to to. A same-state move is allowed
// for non-terminal statuses and is a no-op.
func CanTransition(from, to AppointmentStatus) error {
	if !to.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownStatus, to)
	}
	if !from.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownStatus, from)
	}
	if from.Terminal() {
		return fmt.Errorf("%w: %s", ErrTerminalStatus, from)
	}
	if from == to {
		return nil
	}
	for _, next := range appointmentTransitions[from] {
		if next == to {
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}

type Appointment struct {
	ID                 primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	PatientID          primitive.ObjectID  `bson:"patientId" json:"patientId"`
	ClientID           primitive.ObjectID  `bson:"clientId" json:"clientId"`
	VeterinarianID     primitive.ObjectID  `bson:"veterinarianId" json:"veterinarianId"`
	ScheduledDate      time.Time           `bson:"scheduledDate" json:"scheduledDate"`
	ScheduledTime      string              `bson:"scheduledTime" json:"scheduledTime"`
	Type               AppointmentType     `bson:"type" json:"type"`
	Reason             string              `bson:"reason" json:"reason"`
	Notes              string              `bson:"notes,omitempty" json:"notes,omitempty"`
	Status             AppointmentStatus   `bson:"status" json:"status"`
	BookedBy           primitive.ObjectID  `bson:"bookedBy" json:"bookedBy"`
	CancelledAt        *time.Time          `bson:"cancelledAt,omitempty" json:"cancelledAt,omitempty"`
	CancellationReason string              `bson:"cancellationReason,omitempty" json:"cancellationReason,omitempty"`
	ConsultationID     *primitive.ObjectID `bson:"consultationId,omitempty" json:"consultationId,omitempty"`
	CreatedAt          time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt          time.Time           `bson:"updatedAt" json:"updatedAt"`
}

// Transition moves the appointment to status when the table allows it.
func (a *Appointment) Transition(to AppointmentStatus) error {
	if err := CanTransition(a.Status, to); err != nil {
		return err
	}
	a.Status = to
	return nil
}

// Cancel moves the appointment to Cancelled and records when and why.
func (a *Appointment) Cancel(reason string, now time.Time) error {
	if err := a.Transition(StatusCancelled); err != nil {
		return err
	}
	a.CancelledAt = &now
	a.CancellationReason = reason
	return nil
}

// Complete moves the appointment to Completed, linking the consultation when given.
func (a *Appointment) Complete(consultationID *primitive.ObjectID) error {
	if err := a.Transition(StatusCompleted); err != nil {
		return err
	}
	if consultationID != nil {
		id := *consultationID
		a.ConsultationID = &id
	}
	return nil
}
