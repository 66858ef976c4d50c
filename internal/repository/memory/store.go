package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/harentsoaR/vetclinic-api/internal/models"
	"github.com/harentsoaR/vetclinic-api/internal/repository"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NewStore returns a repository.Store whose repositories share one in-memory database.
func NewStore() *repository.Store {
	db := &database{
		staff: newTable(func(s *models.StaffIdentity) primitive.ObjectID { return s.ID },
			uniqueKey[models.StaffIdentity]{"email", func(s *models.StaffIdentity) string { return s.Email }},
			uniqueKey[models.StaffIdentity]{"oneTimeToken", func(s *models.StaffIdentity) string { return tokenValue(&s.Credentials) }},
		),
		clients: newTable(func(c *models.ClientIdentity) primitive.ObjectID { return c.ID },
			uniqueKey[models.ClientIdentity]{"email", func(c *models.ClientIdentity) string { return c.Email }},
			uniqueKey[models.ClientIdentity]{"nationalId", func(c *models.ClientIdentity) string { return c.NationalID }},
			uniqueKey[models.ClientIdentity]{"oneTimeToken", func(c *models.ClientIdentity) string { return tokenValue(&c.Credentials) }},
		),
		vets: newTable(func(v *models.Veterinarian) primitive.ObjectID { return v.ID },
			uniqueKey[models.Veterinarian]{"staffId", func(v *models.Veterinarian) string { return v.StaffID.Hex() }},
			uniqueKey[models.Veterinarian]{"licenseNumber", func(v *models.Veterinarian) string { return v.LicenseNumber }},
		),
		patients: newTable(func(p *models.Patient) primitive.ObjectID { return p.ID },
			uniqueKey[models.Patient]{"clinicalRecordNumber", func(p *models.Patient) string { return p.ClinicalRecordNumber }},
		),
		appointments:  newTable(func(a *models.Appointment) primitive.ObjectID { return a.ID }),
		consultations: newTable(func(c *models.Consultation) primitive.ObjectID { return c.ID }),
		counters:      make(map[string]int64),
	}

	return &repository.Store{
		Staff:         &staffRepository{identityTable[models.StaffIdentity, *models.StaffIdentity]{db.staff}},
		Clients:       &clientRepository{identityTable[models.ClientIdentity, *models.ClientIdentity]{db.clients}},
		Veterinarians: &veterinarianRepository{db: db},
		Patients:      &patientRepository{db.patients},
		Appointments:  &appointmentRepository{db.appointments},
		Consultations: &consultationRepository{db: db},
		Counters:      db,
		Pinger:        db,
	}
}

type database struct {
	staff         *table[models.StaffIdentity]
	clients       *table[models.ClientIdentity]
	vets          *table[models.Veterinarian]
	patients      *table[models.Patient]
	appointments  *table[models.Appointment]
	consultations *table[models.Consultation]

	mu       sync.Mutex
	counters map[string]int64
}

func (db *database) Next(_ context.Context, name string) (int64, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.counters[name]++
	return db.counters[name], nil
}

func (db *database) Ping(context.Context) error { return nil }

func tokenValue(c *models.Credentials) string {
	if c.OneTimeToken == nil {
		return ""
	}
	return c.OneTimeToken.Value
}

func contains(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}
