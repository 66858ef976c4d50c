package memory

import (
	"context"
	"testing"
	"time"

	"github.com/harentsoaR/vetclinic-api/internal/models"
	"github.com/harentsoaR/vetclinic-api/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newClient(nationalID, email string) *models.ClientIdentity {
	return &models.ClientIdentity{
		ID:         primitive.NewObjectID(),
		Name:       "Ana",
		Surname:    "Rojas",
		NationalID: nationalID,
		Email:      email,
		Active:     true,
	}
}

func TestClients_UniqueNationalID(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	require.NoError(t, store.Clients.Insert(ctx, newClient("11111111-1", "a@x.com")))
	err := store.Clients.Insert(ctx, newClient("11111111-1", "b@x.com"))
	field, ok := repository.DuplicateField(err)
	require.True(t, ok)
	assert.Equal(t, "nationalId", field)

	err = store.Clients.Insert(ctx, newClient("22222222-2", "a@x.com"))
	field, _ = repository.DuplicateField(err)
	assert.Equal(t, "email", field)

	all, err := store.Clients.List(ctx, repository.ClientFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestClients_ReplaceKeepsUniques(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	a := newClient("1-9", "a@x.com")
	b := newClient("2-7", "b@x.com")
	require.NoError(t, store.Clients.Insert(ctx, a))
	require.NoError(t, store.Clients.Insert(ctx, b))

	b.Email = "a@x.com"
	_, ok := repository.DuplicateField(store.Clients.Replace(ctx, b))
	assert.True(t, ok)

	a.Phone = "+56911111111"
	assert.NoError(t, store.Clients.Replace(ctx, a), "replacing itself is not a conflict")

	assert.ErrorIs(t, store.Clients.Replace(ctx, newClient("3-5", "c@x.com")), repository.ErrNotFound)
}

func TestIdentity_FindByTokenAndProfile(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	staff := &models.StaffIdentity{ID: primitive.NewObjectID(), Email: "vet@x.com", Role: models.RoleVeterinarian, Active: true}
	require.NoError(t, staff.SetPassword("secret-pass"))
	token, err := staff.IssueToken(models.PurposeAccountConfirmation, time.Hour, time.Now())
	require.NoError(t, err)
	require.NoError(t, store.Staff.Insert(ctx, staff))

	found, err := store.Staff.FindByToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, staff.ID, found.ID)
	assert.True(t, found.VerifyPassword("secret-pass"))

	_, err = store.Staff.FindByToken(ctx, "")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	profile, err := store.Staff.FindProfile(ctx, staff.ID)
	require.NoError(t, err)
	assert.False(t, profile.HasPassword())
	assert.Nil(t, profile.OneTimeToken)

	byEmail, err := store.Staff.FindByEmail(ctx, "VET@x.com ")
	require.NoError(t, err)
	assert.Equal(t, staff.ID, byEmail.ID)
}

func TestTable_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	p := &models.Patient{ID: primitive.NewObjectID(), Name: "Toby", ClinicalRecordNumber: "HC-000001", Active: true}
	require.NoError(t, store.Patients.Insert(ctx, p))

	got, err := store.Patients.FindByID(ctx, p.ID)
	require.NoError(t, err)
	got.Name = "Changed"

	again, err := store.Patients.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Toby", again.Name)
}

func TestAppointments_ListOrdering(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	vet := primitive.NewObjectID()
	day := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	for _, a := range []*models.Appointment{
		{ID: primitive.NewObjectID(), VeterinarianID: vet, ScheduledDate: day.AddDate(0, 0, 1), ScheduledTime: "09:00", Status: models.StatusPending},
		{ID: primitive.NewObjectID(), VeterinarianID: vet, ScheduledDate: day, ScheduledTime: "11:00", Status: models.StatusConfirmed},
		{ID: primitive.NewObjectID(), VeterinarianID: vet, ScheduledDate: day, ScheduledTime: "09:30", Status: models.StatusCancelled},
	} {
		require.NoError(t, store.Appointments.Insert(ctx, a))
	}

	asc, err := store.Appointments.List(ctx, repository.AppointmentFilter{VeterinarianID: &vet})
	require.NoError(t, err)
	require.Len(t, asc, 3)
	assert.Equal(t, "09:30", asc[0].ScheduledTime)
	assert.Equal(t, "11:00", asc[1].ScheduledTime)

	desc, err := store.Appointments.List(ctx, repository.AppointmentFilter{
		Statuses:   []models.AppointmentStatus{models.StatusPending, models.StatusConfirmed},
		Descending: true,
	})
	require.NoError(t, err)
	require.Len(t, desc, 2)
	assert.Equal(t, models.StatusPending, desc[0].Status)

	to := day
	sameDay, err := store.Appointments.List(ctx, repository.AppointmentFilter{From: &day, To: &to})
	require.NoError(t, err)
	assert.Len(t, sameDay, 2)
}

func TestConsultations_Statistics(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	dog := &models.Patient{ID: primitive.NewObjectID(), Species: models.SpeciesCanine, ClinicalRecordNumber: "HC-000001"}
	cat := &models.Patient{ID: primitive.NewObjectID(), Species: models.SpeciesFeline, ClinicalRecordNumber: "HC-000002"}
	require.NoError(t, store.Patients.Insert(ctx, dog))
	require.NoError(t, store.Patients.Insert(ctx, cat))
	appt := &models.Appointment{ID: primitive.NewObjectID(), Type: models.AppointmentVaccination}
	require.NoError(t, store.Appointments.Insert(ctx, appt))

	require.NoError(t, store.Consultations.Insert(ctx, &models.Consultation{ID: primitive.NewObjectID(), PatientID: dog.ID, AppointmentID: &appt.ID}))
	require.NoError(t, store.Consultations.Insert(ctx, &models.Consultation{ID: primitive.NewObjectID(), PatientID: dog.ID}))
	require.NoError(t, store.Consultations.Insert(ctx, &models.Consultation{ID: primitive.NewObjectID(), PatientID: cat.ID}))

	stats, err := store.Consultations.Statistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.Total)
	assert.Equal(t, []models.CountByKey{{Key: "", Total: 2}, {Key: "Vaccination", Total: 1}}, stats.ByType)
	assert.Equal(t, []models.CountByKey{{Key: "Canine", Total: 2}, {Key: "Feline", Total: 1}}, stats.BySpecies)
}

func TestVeterinarians_UniqueLicenseAndProfiles(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	staff := &models.StaffIdentity{ID: primitive.NewObjectID(), DisplayName: "Dr. Vega", Email: "vega@x.com", Role: models.RoleVeterinarian}
	require.NoError(t, staff.SetPassword("secret-pass"))
	require.NoError(t, store.Staff.Insert(ctx, staff))

	require.NoError(t, store.Veterinarians.Insert(ctx, &models.Veterinarian{ID: primitive.NewObjectID(), StaffID: staff.ID, LicenseNumber: "LIC-1"}))
	err := store.Veterinarians.Insert(ctx, &models.Veterinarian{ID: primitive.NewObjectID(), StaffID: primitive.NewObjectID(), LicenseNumber: "LIC-1"})
	field, _ := repository.DuplicateField(err)
	assert.Equal(t, "licenseNumber", field)

	// Empty licenses are not indexed.
	require.NoError(t, store.Veterinarians.Insert(ctx, &models.Veterinarian{ID: primitive.NewObjectID(), StaffID: primitive.NewObjectID()}))
	require.NoError(t, store.Veterinarians.Insert(ctx, &models.Veterinarian{ID: primitive.NewObjectID(), StaffID: primitive.NewObjectID()}))

	profiles, err := store.Veterinarians.ListProfiles(ctx)
	require.NoError(t, err)
	require.Len(t, profiles, 3)
	require.NotNil(t, profiles[0].Staff)
	assert.Equal(t, "Dr. Vega", profiles[0].Staff.DisplayName)
	assert.False(t, profiles[0].Staff.HasPassword())
}

func TestCounters(t *testing.T) {
	store := NewStore()
	for want := int64(1); want <= 3; want++ {
		n, err := store.Counters.Next(context.Background(), "patients")
		require.NoError(t, err)
		assert.Equal(t, want, n)
	}
}
