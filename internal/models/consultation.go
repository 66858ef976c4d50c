package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ConsultationStatus string

const (
	ConsultationInProgress ConsultationStatus = "InProgress"
	ConsultationCompleted  ConsultationStatus = "Completed"
)

func (s ConsultationStatus) Valid() bool {
	return s == ConsultationInProgress || s == ConsultationCompleted
}

type BodyCondition string

const (
	BodyCachectic  BodyCondition = "Cachectic"
	BodyThin       BodyCondition = "Thin"
	BodyIdeal      BodyCondition = "Ideal"
	BodyOverweight BodyCondition = "Overweight"
	BodyObese      BodyCondition = "Obese"
)

type Vitals struct {
	Temperature     *float64      `bson:"temperature,omitempty" json:"temperature,omitempty"`
	HeartRate       *int          `bson:"heartRate,omitempty" json:"heartRate,omitempty"`
	RespiratoryRate *int          `bson:"respiratoryRate,omitempty" json:"respiratoryRate,omitempty"`
	Weight          *float64      `bson:"weight,omitempty" json:"weight,omitempty"`
	BodyCondition   BodyCondition `bson:"bodyCondition,omitempty" json:"bodyCondition,omitempty" binding:"omitempty,oneof=Cachectic Thin Ideal Overweight Obese"`
}

type Medication struct {
	Name         string `bson:"name" json:"name" binding:"required"`
	Dose         string `bson:"dose" json:"dose" binding:"required"`
	Frequency    string `bson:"frequency" json:"frequency" binding:"required"`
	Duration     string `bson:"duration" json:"duration" binding:"required"`
	Route        string `bson:"route,omitempty" json:"route,omitempty" binding:"omitempty,oneof=Oral Subcutaneous Intramuscular Intravenous Topical Ophthalmic Otic Other"`
	Instructions string `bson:"instructions,omitempty" json:"instructions,omitempty"`
}

type Exam struct {
	Type         string `bson:"type" json:"type" binding:"required,oneof=Laboratory Radiography Ultrasound Electrocardiogram Biopsy Other"`
	Name         string `bson:"name" json:"name" binding:"required"`
	Result       string `bson:"result,omitempty" json:"result,omitempty"`
	File         string `bson:"file,omitempty" json:"file,omitempty"`
	Observations string `bson:"observations,omitempty" json:"observations,omitempty"`
}

type Procedure struct {
	Name        string `bson:"name" json:"name" binding:"required"`
	Description string `bson:"description,omitempty" json:"description,omitempty"`
}

type Vaccination struct {
	Name     string     `bson:"name" json:"name" binding:"required"`
	Lot      string     `bson:"lot,omitempty" json:"lot,omitempty"`
	Lab      string     `bson:"lab,omitempty" json:"lab,omitempty"`
	NextDose *time.Time `bson:"nextDose,omitempty" json:"nextDose,omitempty"`
}

type Attachment struct {
	Name string `bson:"name" json:"name" binding:"required"`
	URL  string `bson:"url" json:"url" binding:"required"`
	Type string `bson:"type,omitempty" json:"type,omitempty" binding:"omitempty,oneof=Image Document Video Other"`
}

type Consultation struct {
	ID                   primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	PatientID            primitive.ObjectID  `bson:"patientId" json:"patientId"`
	ClientID             primitive.ObjectID  `bson:"clientId" json:"clientId"`
	VeterinarianID       primitive.ObjectID  `bson:"veterinarianId" json:"veterinarianId"`
	AppointmentID        *primitive.ObjectID `bson:"appointmentId,omitempty" json:"appointmentId,omitempty"`
	Date                 time.Time           `bson:"date" json:"date"`
	Reason               string              `bson:"reason" json:"reason"`
	Anamnesis            string              `bson:"anamnesis,omitempty" json:"anamnesis,omitempty"`
	Vitals               Vitals              `bson:"vitals" json:"vitals"`
	PhysicalExam         string              `bson:"physicalExam,omitempty" json:"physicalExam,omitempty"`
	Diagnosis            string              `bson:"diagnosis" json:"diagnosis"`
	PresumptiveDiagnosis string              `bson:"presumptiveDiagnosis,omitempty" json:"presumptiveDiagnosis,omitempty"`
	DefinitiveDiagnosis  string              `bson:"definitiveDiagnosis,omitempty" json:"definitiveDiagnosis,omitempty"`
	Treatment            string              `bson:"treatment" json:"treatment"`
	Medications          []Medication        `bson:"medications" json:"medications"`
	Exams                []Exam              `bson:"exams" json:"exams"`
	Procedures           []Procedure         `bson:"procedures" json:"procedures"`
	Vaccinations         []Vaccination       `bson:"vaccinations" json:"vaccinations"`
	Observations         string              `bson:"observations,omitempty" json:"observations,omitempty"`
	Recommendations      string              `bson:"recommendations,omitempty" json:"recommendations,omitempty"`
	NextVisit            *time.Time          `bson:"nextVisit,omitempty" json:"nextVisit,omitempty"`
	Attachments          []Attachment        `bson:"attachments" json:"attachments"`
	Status               ConsultationStatus  `bson:"status" json:"status"`
	CreatedAt            time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt            time.Time           `bson:"updatedAt" json:"updatedAt"`
}

// CountByKey is one bucket of a grouped count; Key is empty for documents without the field.
type CountByKey struct {
	Key   string `bson:"_id" json:"key"`
	Total int64  `bson:"total" json:"total"`
}

type ConsultationStats struct {
	Total     int64        `json:"total"`
	ByType    []CountByKey `json:"byAppointmentType"`
	BySpecies []CountByKey `json:"bySpecies"`
}
