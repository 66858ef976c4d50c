package memory

import (
	"context"
	"errors"
	"sort"

	"github.com/harentsoaR/vetclinic-api/internal/models"
	"github.com/harentsoaR/vetclinic-api/internal/repository"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type veterinarianRepository struct {
	db *database
}

func (r *veterinarianRepository) Insert(_ context.Context, vet *models.Veterinarian) error {
	return r.db.vets.insert(vet)
}

func (r *veterinarianRepository) FindByID(_ context.Context, id primitive.ObjectID) (*models.Veterinarian, error) {
	return r.db.vets.get(id)
}

func (r *veterinarianRepository) FindByStaffID(_ context.Context, staffID primitive.ObjectID) (*models.Veterinarian, error) {
	return r.db.vets.first(func(v *models.Veterinarian) bool { return v.StaffID == staffID })
}

func (r *veterinarianRepository) Replace(_ context.Context, vet *models.Veterinarian) error {
	return r.db.vets.replace(vet)
}

func (r *veterinarianRepository) ListProfiles(_ context.Context) ([]*models.VeterinarianProfile, error) {
	vets, err := r.db.vets.filter(nil)
	if err != nil {
		return nil, err
	}
	sortBy(vets, func(a, b *models.Veterinarian) bool { return a.CreatedAt.Before(b.CreatedAt) })

	profiles := make([]*models.VeterinarianProfile, 0, len(vets))
	for _, v := range vets {
		p := &models.VeterinarianProfile{Veterinarian: *v}
		staff, err := r.db.staff.get(v.StaffID)
		switch {
		case err == nil:
			staff.Credentials = models.Credentials{}
			p.Staff = staff
		case !errors.Is(err, repository.ErrNotFound):
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, nil
}

type patientRepository struct {
	t *table[models.Patient]
}

func (r *patientRepository) Insert(_ context.Context, patient *models.Patient) error {
	return r.t.insert(patient)
}

func (r *patientRepository) FindByID(_ context.Context, id primitive.ObjectID) (*models.Patient, error) {
	return r.t.get(id)
}

func (r *patientRepository) FindByRecordNumber(_ context.Context, number string) (*models.Patient, error) {
	return r.t.first(func(p *models.Patient) bool { return p.ClinicalRecordNumber == number })
}

func (r *patientRepository) Replace(_ context.Context, patient *models.Patient) error {
	return r.t.replace(patient)
}

func (r *patientRepository) List(_ context.Context, filter repository.PatientFilter) ([]*models.Patient, error) {
	docs, err := r.t.filter(func(p *models.Patient) bool {
		if filter.OwnerID != nil && p.OwnerID != *filter.OwnerID {
			return false
		}
		if filter.Species != "" && p.Species != filter.Species {
			return false
		}
		if filter.Active != nil && p.Active != *filter.Active {
			return false
		}
		if filter.Query != "" {
			return contains(p.Name, filter.Query) || contains(p.ClinicalRecordNumber, filter.Query) || contains(p.Microchip, filter.Query)
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	sortBy(docs, func(a, b *models.Patient) bool { return a.Name < b.Name })
	return docs, nil
}

type appointmentRepository struct {
	t *table[models.Appointment]
}

func (r *appointmentRepository) Insert(_ context.Context, appointment *models.Appointment) error {
	return r.t.insert(appointment)
}

func (r *appointmentRepository) FindByID(_ context.Context, id primitive.ObjectID) (*models.Appointment, error) {
	return r.t.get(id)
}

func (r *appointmentRepository) Replace(_ context.Context, appointment *models.Appointment) error {
	return r.t.replace(appointment)
}

func (r *appointmentRepository) List(_ context.Context, filter repository.AppointmentFilter) ([]*models.Appointment, error) {
	docs, err := r.t.filter(func(a *models.Appointment) bool {
		if filter.From != nil && a.ScheduledDate.Before(*filter.From) {
			return false
		}
		if filter.To != nil && a.ScheduledDate.After(*filter.To) {
			return false
		}
		if len(filter.Statuses) > 0 && !hasStatus(filter.Statuses, a.Status) {
			return false
		}
		if filter.VeterinarianID != nil && a.VeterinarianID != *filter.VeterinarianID {
			return false
		}
		if filter.ClientID != nil && a.ClientID != *filter.ClientID {
			return false
		}
		return filter.PatientID == nil || a.PatientID == *filter.PatientID
	})
	if err != nil {
		return nil, err
	}
	sortBy(docs, func(a, b *models.Appointment) bool {
		if filter.Descending {
			a, b = b, a
		}
		if !a.ScheduledDate.Equal(b.ScheduledDate) {
			return a.ScheduledDate.Before(b.ScheduledDate)
		}
		return a.ScheduledTime < b.ScheduledTime
	})
	return docs, nil
}

func hasStatus(statuses []models.AppointmentStatus, s models.AppointmentStatus) bool {
	for _, st := range statuses {
		if st == s {
			return true
		}
	}
	return false
}

type consultationRepository struct {
	db *database
}

func (r *consultationRepository) Insert(_ context.Context, consultation *models.Consultation) error {
	return r.db.consultations.insert(consultation)
}

func (r *consultationRepository) FindByID(_ context.Context, id primitive.ObjectID) (*models.Consultation, error) {
	return r.db.consultations.get(id)
}

func (r *consultationRepository) Replace(_ context.Context, consultation *models.Consultation) error {
	return r.db.consultations.replace(consultation)
}

func (r *consultationRepository) List(_ context.Context, filter repository.ConsultationFilter) ([]*models.Consultation, error) {
	docs, err := r.db.consultations.filter(func(c *models.Consultation) bool {
		if filter.PatientID != nil && c.PatientID != *filter.PatientID {
			return false
		}
		if filter.ClientID != nil && c.ClientID != *filter.ClientID {
			return false
		}
		return filter.VeterinarianID == nil || c.VeterinarianID == *filter.VeterinarianID
	})
	if err != nil {
		return nil, err
	}
	sortBy(docs, func(a, b *models.Consultation) bool { return a.Date.After(b.Date) })
	return docs, nil
}

func (r *consultationRepository) Statistics(_ context.Context) (*models.ConsultationStats, error) {
	docs, err := r.db.consultations.filter(nil)
	if err != nil {
		return nil, err
	}

	byType := newCounter()
	bySpecies := newCounter()
	for _, c := range docs {
		key := ""
		if c.AppointmentID != nil {
			if a, err := r.db.appointments.get(*c.AppointmentID); err == nil {
				key = string(a.Type)
			}
		}
		byType.add(key)

		// Consultations whose patient is gone are left out, like an inner join.
		if p, err := r.db.patients.get(c.PatientID); err == nil {
			bySpecies.add(string(p.Species))
		}
	}
	return &models.ConsultationStats{
		Total:     int64(len(docs)),
		ByType:    byType.sorted(),
		BySpecies: bySpecies.sorted(),
	}, nil
}

type counter struct {
	totals map[string]int64
}

func newCounter() *counter { return &counter{totals: make(map[string]int64)} }

func (c *counter) add(key string) { c.totals[key]++ }

// sorted orders buckets by total descending, then key.
func (c *counter) sorted() []models.CountByKey {
	out := make([]models.CountByKey, 0, len(c.totals))
	for k, n := range c.totals {
		out = append(out, models.CountByKey{Key: k, Total: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Total != out[j].Total {
			return out[i].Total > out[j].Total
		}
		return out[i].Key < out[j].Key
	})
	return out
}
