package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/harentsoaR/vetclinic-api/internal/apperr"
	"github.com/harentsoaR/vetclinic-api/internal/metrics"
	"github.com/harentsoaR/vetclinic-api/internal/models"
	"github.com/harentsoaR/vetclinic-api/internal/notify"
	"github.com/harentsoaR/vetclinic-api/internal/repository"
	"github.com/harentsoaR/vetclinic-api/internal/repository/memory"
	"github.com/harentsoaR/vetclinic-api/internal/utils"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const testSecret = "test-secret-0123456789"

type testEnv struct {
	svc   *Services
	store *repository.Store
	queue *notify.MemoryQueue
	now   time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		store: memory.NewStore(),
		queue: notify.NewMemoryQueue(100),
		now:   time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC),
	}
	clock := func() time.Time { return env.now }
	m := metrics.New()
	env.svc = New(Deps{
		Store:         env.store,
		Sessions:      utils.NewSessionIssuer(testSecret, 24*time.Hour).WithClock(clock),
		Notifications: NewNotificationService(env.queue, "http://front.test/", zerolog.Nop(), m),
		Tokens:        TokenTTLs{Confirmation: 72 * time.Hour, Reset: time.Hour},
		Log:           zerolog.Nop(),
		Metrics:       m,
		Now:           clock,
	})
	return env
}

// jobs drains the notification queue.
func (e *testEnv) jobs(t *testing.T) []notify.Job {
	t.Helper()
	var out []notify.Job
	for e.queue.Len() > 0 {
		job, err := e.queue.Dequeue(context.Background())
		require.NoError(t, err)
		out = append(out, job)
	}
	return out
}

func (e *testEnv) staffToken(t *testing.T, id primitive.ObjectID) string {
	t.Helper()
	staff, err := e.store.Staff.FindByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, staff.OneTimeToken)
	return staff.OneTimeToken.Value
}

func (e *testEnv) clientToken(t *testing.T, id primitive.ObjectID) string {
	t.Helper()
	client, err := e.store.Clients.FindByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, client.OneTimeToken)
	return client.OneTimeToken.Value
}

// seedStaff inserts a confirmed, active staff member with password "secret-pass".
func (e *testEnv) seedStaff(t *testing.T, role models.Role, email string) *models.StaffIdentity {
	t.Helper()
	staff := &models.StaffIdentity{
		ID:          primitive.NewObjectID(),
		DisplayName: strings.Split(email, "@")[0],
		Email:       email,
		Role:        role,
		Active:      true,
		Confirmed:   true,
	}
	require.NoError(t, staff.SetPassword("secret-pass"))
	require.NoError(t, e.store.Staff.Insert(context.Background(), staff))
	return staff
}

func (e *testEnv) seedClientWithPatient(t *testing.T, admin *models.StaffIdentity, nationalID, email string) (*models.ClientIdentity, *models.Patient) {
	t.Helper()
	reg, err := e.svc.Clients.Register(context.Background(), admin, RegisterClientInput{
		Name: "Ana", Surname: "Rojas", NationalID: nationalID, Email: email, Phone: "+56911111111",
		Patients: []PatientInput{{Name: "Toby", Species: models.SpeciesCanine}},
	})
	require.NoError(t, err)
	require.Len(t, reg.Patients, 1)
	e.jobs(t)
	return reg.Client, reg.Patients[0]
}

func TestStaff_RegisterConfirmLogin(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	staff, err := env.svc.Staff.Register(ctx, RegisterStaffInput{
		DisplayName: "Dr. Vega", Email: " Vega@Clinic.com ", Password: "secret-pass",
		Specialty: "Surgery", LicenseNumber: "LIC-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "vega@clinic.com", staff.Email)
	assert.Equal(t, models.RoleVeterinarian, staff.Role)
	assert.False(t, staff.Confirmed)

	vet, err := env.store.Veterinarians.FindByStaffID(ctx, staff.ID)
	require.NoError(t, err)
	assert.Equal(t, "LIC-1", vet.LicenseNumber)

	jobs := env.jobs(t)
	require.Len(t, jobs, 1)
	assert.Equal(t, KindStaffConfirmation, jobs[0].Kind)
	token := env.staffToken(t, staff.ID)
	assert.Contains(t, jobs[0].Body, "http://front.test/confirm/"+token)

	_, err = env.svc.StaffAuth.Login(ctx, "vega@clinic.com", "secret-pass")
	assert.True(t, errorsIsKind(err, apperr.KindForbidden), "unconfirmed login is forbidden")

	require.NoError(t, env.svc.Staff.Confirm(ctx, token))
	assert.True(t, errorsIsKind(env.svc.Staff.Confirm(ctx, token), apperr.KindInvalid), "token is single use")

	session, err := env.svc.StaffAuth.Login(ctx, "VEGA@clinic.com", "secret-pass")
	require.NoError(t, err)
	assert.NotEmpty(t, session.Token)
	assert.False(t, session.Identity.HasPassword())

	_, err = env.svc.StaffAuth.Login(ctx, "vega@clinic.com", "wrong-pass")
	assert.True(t, errorsIsKind(err, apperr.KindUnauthorized))
	_, err = env.svc.StaffAuth.Login(ctx, "nobody@clinic.com", "secret-pass")
	assert.True(t, errorsIsKind(err, apperr.KindUnauthorized))
}

func TestStaff_RegisterDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.seedStaff(t, models.RoleAdmin, "admin@clinic.com")

	_, err := env.svc.Staff.Register(ctx, RegisterStaffInput{DisplayName: "X", Email: "ADMIN@clinic.com", Role: models.RoleReceptionist})
	assert.True(t, errorsIsKind(err, apperr.KindConflict))

	_, err = env.svc.Staff.Register(ctx, RegisterStaffInput{DisplayName: "X", Email: "x@clinic.com", Role: "janitor"})
	assert.True(t, errorsIsKind(err, apperr.KindInvalid))
}

func TestAuthenticator_Resolve(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	staff := env.seedStaff(t, models.RoleVeterinarian, "vet@clinic.com")

	session, err := env.svc.StaffAuth.Login(ctx, "vet@clinic.com", "secret-pass")
	require.NoError(t, err)

	got, err := env.svc.StaffAuth.Resolve(ctx, session.Token)
	require.NoError(t, err)
	assert.Equal(t, staff.ID, got.ID)
	assert.False(t, got.HasPassword(), "resolved identity carries no credentials")

	t.Run("other secret", func(t *testing.T) {
		forged, err := utils.NewSessionIssuer("another-secret-0123456", time.Hour).Generate(staff.ID.Hex(), string(models.KindStaff))
		require.NoError(t, err)
		_, err = env.svc.StaffAuth.Resolve(ctx, forged)
		assert.True(t, errorsIsKind(err, apperr.KindUnauthorized))
	})

	t.Run("wrong kind", func(t *testing.T) {
		_, err := env.svc.ClientAuth.Resolve(ctx, session.Token)
		assert.True(t, errorsIsKind(err, apperr.KindUnauthorized))
	})

	t.Run("unknown identity", func(t *testing.T) {
		ghost, err := utils.NewSessionIssuer(testSecret, time.Hour).WithClock(func() time.Time { return env.now }).
			Generate(primitive.NewObjectID().Hex(), string(models.KindStaff))
		require.NoError(t, err)
		_, err = env.svc.StaffAuth.Resolve(ctx, ghost)
		assert.True(t, errorsIsKind(err, apperr.KindNotFound))
	})

	t.Run("deactivated", func(t *testing.T) {
		admin := env.seedStaff(t, models.RoleAdmin, "admin@clinic.com")
		_, err := env.svc.Staff.SetActive(ctx, admin, staff.ID, false)
		require.NoError(t, err)
		_, err = env.svc.StaffAuth.Resolve(ctx, session.Token)
		assert.True(t, errorsIsKind(err, apperr.KindForbidden))

		_, err = env.svc.Staff.SetActive(ctx, admin, staff.ID, true)
		require.NoError(t, err)
	})

	t.Run("expired", func(t *testing.T) {
		env.now = env.now.Add(25 * time.Hour)
		_, err := env.svc.StaffAuth.Resolve(ctx, session.Token)
		assert.True(t, errorsIsKind(err, apperr.KindUnauthorized))
	})
}

func TestAuthenticator_PasswordResetTokens(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	staff := env.seedStaff(t, models.RoleReceptionist, "desk@clinic.com")

	require.NoError(t, env.svc.StaffAuth.RequestPasswordReset(ctx, "desk@clinic.com"))
	first := env.staffToken(t, staff.ID)
	require.NoError(t, env.svc.StaffAuth.RequestPasswordReset(ctx, "desk@clinic.com"))
	second := env.staffToken(t, staff.ID)
	assert.NotEqual(t, first, second)

	assert.True(t, errorsIsKind(env.svc.StaffAuth.CheckToken(ctx, first), apperr.KindInvalid), "older token no longer works")
	require.NoError(t, env.svc.StaffAuth.CheckToken(ctx, second))

	jobs := env.jobs(t)
	require.Len(t, jobs, 2)
	assert.Contains(t, jobs[1].Body, "http://front.test/forgot-password/"+second)

	require.NoError(t, env.svc.StaffAuth.ResetPassword(ctx, second, "brand-new-pass"))
	_, err := env.svc.StaffAuth.Login(ctx, "desk@clinic.com", "secret-pass")
	assert.True(t, errorsIsKind(err, apperr.KindUnauthorized), "old password no longer verifies")
	_, err = env.svc.StaffAuth.Login(ctx, "desk@clinic.com", "brand-new-pass")
	require.NoError(t, err)

	assert.True(t, errorsIsKind(env.svc.StaffAuth.ResetPassword(ctx, second, "again-pass"), apperr.KindInvalid))

	// Unknown accounts get the same answer and no email.
	require.NoError(t, env.svc.StaffAuth.RequestPasswordReset(ctx, "ghost@clinic.com"))
	assert.Empty(t, env.jobs(t))
}

func TestAuthenticator_ResetTokenExpires(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	staff := env.seedStaff(t, models.RoleReceptionist, "desk@clinic.com")

	require.NoError(t, env.svc.StaffAuth.RequestPasswordReset(ctx, "desk@clinic.com"))
	token := env.staffToken(t, staff.ID)
	env.now = env.now.Add(2 * time.Hour)
	assert.True(t, errorsIsKind(env.svc.StaffAuth.CheckToken(ctx, token), apperr.KindInvalid))
}

func TestAuthenticator_ChangePassword(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	staff := env.seedStaff(t, models.RoleVeterinarian, "vet@clinic.com")

	err := env.svc.StaffAuth.ChangePassword(ctx, staff.ID, "wrong", "next-pass-1")
	assert.True(t, errorsIsKind(err, apperr.KindInvalid))

	require.NoError(t, env.svc.StaffAuth.ChangePassword(ctx, staff.ID, "secret-pass", "next-pass-1"))
	_, err = env.svc.StaffAuth.Login(ctx, "vet@clinic.com", "next-pass-1")
	assert.NoError(t, err)
}

func TestClient_PortalVerificationFlow(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	admin := env.seedStaff(t, models.RoleAdmin, "admin@clinic.com")

	reg, err := env.svc.Clients.Register(ctx, admin, RegisterClientInput{
		Name: "Ana", Surname: "Rojas", NationalID: "11111111-1", Email: "a@x.com", Phone: "+56911111111",
	})
	require.NoError(t, err)
	client := reg.Client
	assert.Equal(t, admin.ID, *client.RegisteredBy)
	assert.False(t, client.EmailVerified)

	jobs := env.jobs(t)
	require.Len(t, jobs, 1)
	assert.Equal(t, KindClientWelcome, jobs[0].Kind)
	assert.Contains(t, jobs[0].Body, "111111111")
	token := env.clientToken(t, client.ID)
	assert.Contains(t, jobs[0].Body, "http://front.test/portal/confirm/"+token)

	_, err = env.svc.ClientAuth.Login(ctx, "a@x.com", "111111111")
	assert.True(t, errorsIsKind(err, apperr.KindForbidden), "login before verification is forbidden")

	setup, err := env.svc.Clients.ConfirmEmail(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, token, setup)

	session, err := env.svc.ClientAuth.Login(ctx, "a@x.com", "111111111")
	require.NoError(t, err)
	assert.NotEmpty(t, session.Token)

	// The re-tagged token can set a password but not verify again.
	_, err = env.svc.Clients.ConfirmEmail(ctx, token)
	assert.True(t, errorsIsKind(err, apperr.KindInvalid))
	require.NoError(t, env.svc.ClientAuth.CheckToken(ctx, setup))
	require.NoError(t, env.svc.ClientAuth.ResetPassword(ctx, setup, "my-own-pass"))

	stored, err := env.store.Clients.FindByID(ctx, client.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.OneTimeToken)
	_, err = env.svc.ClientAuth.Login(ctx, "a@x.com", "my-own-pass")
	assert.NoError(t, err)
}

func TestClient_ResetMarksEmailVerified(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	admin := env.seedStaff(t, models.RoleAdmin, "admin@clinic.com")
	client, _ := env.seedClientWithPatient(t, admin, "12.345.678-9", "b@x.com")

	require.NoError(t, env.svc.ClientAuth.RequestPasswordReset(ctx, "b@x.com"))
	jobs := env.jobs(t)
	require.Len(t, jobs, 1)
	token := env.clientToken(t, client.ID)
	assert.Contains(t, jobs[0].Body, "http://front.test/portal/forgot-password/"+token)

	require.NoError(t, env.svc.ClientAuth.ResetPassword(ctx, token, "reset-pass"))
	_, err := env.svc.ClientAuth.Login(ctx, "b@x.com", "reset-pass")
	assert.NoError(t, err)
}

func TestClient_DuplicateNationalID(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	admin := env.seedStaff(t, models.RoleAdmin, "admin@clinic.com")
	env.seedClientWithPatient(t, admin, "11111111-1", "a@x.com")

	_, err := env.svc.Clients.Register(ctx, admin, RegisterClientInput{
		Name: "Otra", Surname: "Persona", NationalID: "11111111-1", Email: "other@x.com", Phone: "1",
	})
	assert.True(t, errorsIsKind(err, apperr.KindConflict))

	all, err := env.store.Clients.List(ctx, repository.ClientFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestClient_UpdateAndPortalAccess(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	admin := env.seedStaff(t, models.RoleAdmin, "admin@clinic.com")
	a, _ := env.seedClientWithPatient(t, admin, "1-9", "a@x.com")
	env.seedClientWithPatient(t, admin, "2-7", "b@x.com")

	taken := "B@x.com"
	_, err := env.svc.Clients.Update(ctx, a.ID, UpdateClientInput{Email: &taken})
	assert.True(t, errorsIsKind(err, apperr.KindConflict))

	city := "Valdivia"
	updated, err := env.svc.Clients.Update(ctx, a.ID, UpdateClientInput{City: &city})
	require.NoError(t, err)
	assert.Equal(t, "Valdivia", updated.City)
	assert.Equal(t, "a@x.com", updated.Email)

	require.NoError(t, env.svc.Clients.EnablePortal(ctx, a.ID, "desk-pass"))
	jobs := env.jobs(t)
	require.Len(t, jobs, 1)
	assert.Equal(t, KindPortalAccess, jobs[0].Kind)

	require.NoError(t, env.svc.Clients.Deactivate(ctx, a.ID))
	got, err := env.svc.Clients.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.False(t, got.Active)
}

func TestPatients_UnknownOwnerWritesNothing(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	_, err := env.svc.Patients.Create(ctx, PatientInput{Name: "Michi", Species: models.SpeciesFeline, OwnerID: primitive.NewObjectID().Hex()})
	require.Error(t, err)
	assert.True(t, errorsIsKind(err, apperr.KindNotFound))
	assert.Contains(t, err.Error(), "client")

	all, err := env.store.Patients.List(ctx, repository.PatientFilter{})
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestPatients_RecordNumbersAndSoftDelete(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	admin := env.seedStaff(t, models.RoleAdmin, "admin@clinic.com")
	client, first := env.seedClientWithPatient(t, admin, "1-9", "a@x.com")
	assert.Equal(t, "HC-000001", first.ClinicalRecordNumber)

	second, err := env.svc.Patients.Create(ctx, PatientInput{Name: "Michi", Species: models.SpeciesFeline, OwnerID: client.ID.Hex()})
	require.NoError(t, err)
	assert.Equal(t, "HC-000002", second.ClinicalRecordNumber)

	found, err := env.svc.Patients.GetByRecordNumber(ctx, "hc-000002")
	require.NoError(t, err)
	assert.Equal(t, second.ID, found.ID)

	_, err = env.svc.Patients.SetActive(ctx, first.ID, false)
	require.NoError(t, err)
	mine, err := env.svc.Patients.ListByOwner(ctx, client.ID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "Michi", mine[0].Name)

	ghost := primitive.NewObjectID().Hex()
	_, err = env.svc.Patients.Update(ctx, second.ID, UpdatePatientInput{OwnerID: &ghost})
	assert.True(t, errorsIsKind(err, apperr.KindNotFound))
}

func TestAppointments_CreateValidatesReferences(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	admin := env.seedStaff(t, models.RoleAdmin, "admin@clinic.com")
	vet := env.seedStaff(t, models.RoleVeterinarian, "vet@clinic.com")
	client, patient := env.seedClientWithPatient(t, admin, "1-9", "a@x.com")
	other, _ := env.seedClientWithPatient(t, admin, "2-7", "b@x.com")

	in := AppointmentInput{
		PatientID: patient.ID.Hex(), ClientID: client.ID.Hex(), VeterinarianID: vet.ID.Hex(),
		ScheduledDate: time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC), ScheduledTime: "10:30",
		Type: models.AppointmentCheckup, Reason: "Annual checkup",
	}

	bad := in
	bad.ClientID = other.ID.Hex()
	_, err := env.svc.Appointments.Create(ctx, admin, bad)
	assert.True(t, errorsIsKind(err, apperr.KindInvalid), "patient must belong to client")

	bad = in
	bad.VeterinarianID = admin.ID.Hex()
	_, err = env.svc.Appointments.Create(ctx, admin, bad)
	assert.True(t, errorsIsKind(err, apperr.KindNotFound), "veterinarian must have the veterinarian role")

	bad = in
	bad.PatientID = primitive.NewObjectID().Hex()
	_, err = env.svc.Appointments.Create(ctx, admin, bad)
	assert.True(t, errorsIsKind(err, apperr.KindNotFound))

	all, err := env.store.Appointments.List(ctx, repository.AppointmentFilter{})
	require.NoError(t, err)
	assert.Empty(t, all)

	apt, err := env.svc.Appointments.Create(ctx, admin, in)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, apt.Status)
	assert.Equal(t, admin.ID, apt.BookedBy)

	jobs := env.jobs(t)
	require.Len(t, jobs, 1)
	assert.Equal(t, notify.ChannelSMS, jobs[0].Channel)
	assert.Equal(t, "+56911111111", jobs[0].To)
	assert.Contains(t, jobs[0].Body, "Toby")

	sameDay, err := env.svc.Appointments.ListByDate(ctx, time.Date(2025, 3, 12, 15, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Len(t, sameDay, 1)
}

func TestAppointments_StatusLifecycle(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	admin := env.seedStaff(t, models.RoleAdmin, "admin@clinic.com")
	vet := env.seedStaff(t, models.RoleVeterinarian, "vet@clinic.com")
	client, patient := env.seedClientWithPatient(t, admin, "1-9", "a@x.com")

	apt, err := env.svc.Appointments.Create(ctx, admin, AppointmentInput{
		PatientID: patient.ID.Hex(), ClientID: client.ID.Hex(), VeterinarianID: vet.ID.Hex(),
		ScheduledDate: env.now, ScheduledTime: "09:00", Type: models.AppointmentVaccination, Reason: "Rabies",
	})
	require.NoError(t, err)

	_, err = env.svc.Appointments.ChangeStatus(ctx, apt.ID, "Sleeping")
	assert.True(t, errorsIsKind(err, apperr.KindInvalid))

	apt, err = env.svc.Appointments.ChangeStatus(ctx, apt.ID, models.StatusInProgress)
	require.NoError(t, err)
	_, err = env.svc.Appointments.ChangeStatus(ctx, apt.ID, models.StatusPending)
	assert.True(t, errorsIsKind(err, apperr.KindConflict), "InProgress cannot go back to Pending")

	apt, err = env.svc.Appointments.Cancel(ctx, apt.ID, "Owner traveling")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, apt.Status)
	require.NotNil(t, apt.CancelledAt)
	assert.Equal(t, "Owner traveling", apt.CancellationReason)

	_, err = env.svc.Appointments.Cancel(ctx, apt.ID, "again")
	assert.True(t, errorsIsKind(err, apperr.KindConflict))
	_, err = env.svc.Appointments.ChangeStatus(ctx, apt.ID, models.StatusConfirmed)
	assert.True(t, errorsIsKind(err, apperr.KindConflict), "cancelled is terminal for the status endpoint too")

	sms := 0
	for _, j := range env.jobs(t) {
		if j.Kind == KindAppointmentCanceled {
			sms++
		}
	}
	assert.Equal(t, 1, sms)
}

func TestAppointments_CancelThroughStatusRecordsCancellation(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	admin := env.seedStaff(t, models.RoleAdmin, "admin@clinic.com")
	vet := env.seedStaff(t, models.RoleVeterinarian, "vet@clinic.com")
	client, patient := env.seedClientWithPatient(t, admin, "1-9", "a@x.com")

	book := func() *models.Appointment {
		apt, err := env.svc.Appointments.Create(ctx, admin, AppointmentInput{
			PatientID: patient.ID.Hex(), ClientID: client.ID.Hex(), VeterinarianID: vet.ID.Hex(),
			ScheduledDate: env.now, ScheduledTime: "10:00", Type: models.AppointmentCheckup, Reason: "Yearly",
		})
		require.NoError(t, err)
		return apt
	}
	countCancelled := func() int {
		n := 0
		for _, j := range env.jobs(t) {
			if j.Kind == KindAppointmentCanceled {
				n++
			}
		}
		return n
	}

	apt, err := env.svc.Appointments.ChangeStatus(ctx, book().ID, models.StatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, apt.Status)
	require.NotNil(t, apt.CancelledAt)
	assert.Equal(t, env.now, *apt.CancelledAt)
	stored, err := env.store.Appointments.FindByID(ctx, apt.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.CancelledAt)
	assert.Equal(t, 1, countCancelled())

	cancelled := models.StatusCancelled
	apt, err = env.svc.Appointments.Update(ctx, book().ID, UpdateAppointmentInput{Status: &cancelled})
	require.NoError(t, err)
	require.NotNil(t, apt.CancelledAt)
	assert.Equal(t, 1, countCancelled())

	// Other transitions leave the cancellation fields alone.
	apt, err = env.svc.Appointments.ChangeStatus(ctx, book().ID, models.StatusConfirmed)
	require.NoError(t, err)
	assert.Nil(t, apt.CancelledAt)
	assert.Zero(t, countCancelled())
}

type failingPatients struct {
	repository.PatientRepository
	failName string
}

func (f failingPatients) Insert(ctx context.Context, patient *models.Patient) error {
	if patient.Name == f.failName {
		return errors.New("write failed")
	}
	return f.PatientRepository.Insert(ctx, patient)
}

func TestClient_RegisterReportsFailedPatients(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	admin := env.seedStaff(t, models.RoleAdmin, "admin@clinic.com")
	env.store.Patients = failingPatients{PatientRepository: env.store.Patients, failName: "Luna"}

	reg, err := env.svc.Clients.Register(ctx, admin, RegisterClientInput{
		Name: "Ana", Surname: "Rojas", NationalID: "1-9", Email: "a@x.com", Phone: "+56911111111",
		Patients: []PatientInput{
			{Name: "Luna", Species: models.SpeciesFeline},
			{Name: "Toby", Species: models.SpeciesCanine},
		},
	})
	require.NoError(t, err)
	require.Len(t, reg.Patients, 1)
	assert.Equal(t, "Toby", reg.Patients[0].Name)
	assert.Equal(t, []string{"Luna"}, reg.FailedPatients)

	_, err = env.store.Clients.FindByID(ctx, reg.Client.ID)
	require.NoError(t, err)
	jobs := env.jobs(t)
	require.Len(t, jobs, 1, "welcome email is queued even when a patient fails")
	assert.Equal(t, KindClientWelcome, jobs[0].Kind)
}

func TestStaff_ResetBeforeConfirmationConfirms(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	staff, err := env.svc.Staff.Register(ctx, RegisterStaffInput{
		DisplayName: "Desk", Email: "desk@clinic.com", Password: "secret-pass", Role: models.RoleReceptionist,
	})
	require.NoError(t, err)
	env.jobs(t)

	require.NoError(t, env.svc.StaffAuth.RequestPasswordReset(ctx, "desk@clinic.com"))
	token := env.staffToken(t, staff.ID)
	require.NoError(t, env.svc.StaffAuth.ResetPassword(ctx, token, "new-secret-pass"))

	stored, err := env.store.Staff.FindByID(ctx, staff.ID)
	require.NoError(t, err)
	assert.True(t, stored.Confirmed)
	_, err = env.svc.StaffAuth.Login(ctx, "desk@clinic.com", "new-secret-pass")
	assert.NoError(t, err)
}

func TestConsultations_CompleteLinkedAppointment(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	admin := env.seedStaff(t, models.RoleAdmin, "admin@clinic.com")
	vet := env.seedStaff(t, models.RoleVeterinarian, "vet@clinic.com")
	client, patient := env.seedClientWithPatient(t, admin, "1-9", "a@x.com")

	apt, err := env.svc.Appointments.Create(ctx, admin, AppointmentInput{
		PatientID: patient.ID.Hex(), ClientID: client.ID.Hex(), VeterinarianID: vet.ID.Hex(),
		ScheduledDate: env.now, ScheduledTime: "09:00", Type: models.AppointmentConsultation, Reason: "Limping",
	})
	require.NoError(t, err)

	c, err := env.svc.Consultations.Create(ctx, vet, ConsultationInput{
		PatientID: patient.ID.Hex(), ClientID: client.ID.Hex(), AppointmentID: apt.ID.Hex(),
		Reason: "Limping", Diagnosis: "Sprain", Treatment: "Rest",
	})
	require.NoError(t, err)
	assert.Equal(t, vet.ID, c.VeterinarianID)
	assert.Equal(t, models.ConsultationCompleted, c.Status)

	stored, err := env.svc.Appointments.Get(ctx, apt.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, stored.Status)
	require.NotNil(t, stored.ConsultationID)
	assert.Equal(t, c.ID, *stored.ConsultationID)

	notes := "late"
	_, err = env.svc.Appointments.Update(ctx, apt.ID, UpdateAppointmentInput{Notes: &notes})
	assert.True(t, errorsIsKind(err, apperr.KindConflict))

	// A completed appointment cannot back a second consultation.
	_, err = env.svc.Consultations.Create(ctx, vet, ConsultationInput{
		PatientID: patient.ID.Hex(), ClientID: client.ID.Hex(), AppointmentID: apt.ID.Hex(),
		Reason: "Again", Diagnosis: "-", Treatment: "-",
	})
	assert.True(t, errorsIsKind(err, apperr.KindConflict))

	all, err := env.svc.Consultations.List(ctx, repository.ConsultationFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestConsultations_EditRights(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	admin := env.seedStaff(t, models.RoleAdmin, "admin@clinic.com")
	vet := env.seedStaff(t, models.RoleVeterinarian, "vet@clinic.com")
	otherVet := env.seedStaff(t, models.RoleVeterinarian, "other@clinic.com")
	client, patient := env.seedClientWithPatient(t, admin, "1-9", "a@x.com")

	c, err := env.svc.Consultations.Create(ctx, vet, ConsultationInput{
		PatientID: patient.ID.Hex(), ClientID: client.ID.Hex(), Reason: "Cough", Diagnosis: "Cold", Treatment: "Syrup",
	})
	require.NoError(t, err)

	_, err = env.svc.Consultations.AddMedication(ctx, otherVet, c.ID, models.Medication{Name: "X", Dose: "1", Frequency: "1", Duration: "1"})
	assert.True(t, errorsIsKind(err, apperr.KindForbidden))

	c, err = env.svc.Consultations.AddMedication(ctx, vet, c.ID, models.Medication{Name: "Amoxicillin", Dose: "250mg", Frequency: "12h", Duration: "7d"})
	require.NoError(t, err)
	assert.Len(t, c.Medications, 1)

	diagnosis := "Bronchitis"
	c, err = env.svc.Consultations.Update(ctx, admin, c.ID, UpdateConsultationInput{Diagnosis: &diagnosis})
	require.NoError(t, err)
	assert.Equal(t, "Bronchitis", c.Diagnosis)
	assert.Equal(t, "Syrup", c.Treatment)
	assert.Len(t, c.Medications, 1)
}

func TestConsultations_PortalOwnership(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	admin := env.seedStaff(t, models.RoleAdmin, "admin@clinic.com")
	vet := env.seedStaff(t, models.RoleVeterinarian, "vet@clinic.com")
	a, patient := env.seedClientWithPatient(t, admin, "1-9", "a@x.com")
	b, _ := env.seedClientWithPatient(t, admin, "2-7", "b@x.com")

	_, err := env.svc.Consultations.Create(ctx, vet, ConsultationInput{
		PatientID: patient.ID.Hex(), ClientID: a.ID.Hex(), Reason: "Checkup", Diagnosis: "Healthy", Treatment: "None",
	})
	require.NoError(t, err)

	history, err := env.svc.Consultations.ListForClientPatient(ctx, a, patient.ID)
	require.NoError(t, err)
	assert.Len(t, history, 1)

	_, err = env.svc.Consultations.ListForClientPatient(ctx, b, patient.ID)
	assert.True(t, errorsIsKind(err, apperr.KindForbidden))
}

func TestStaff_CannotDeactivateSelf(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	admin := env.seedStaff(t, models.RoleAdmin, "admin@clinic.com")

	_, err := env.svc.Staff.SetActive(ctx, admin, admin.ID, false)
	assert.True(t, errorsIsKind(err, apperr.KindInvalid))
}

func TestStaff_UpdateProfileRights(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	admin := env.seedStaff(t, models.RoleAdmin, "admin@clinic.com")
	vet := env.seedStaff(t, models.RoleVeterinarian, "vet@clinic.com")
	desk := env.seedStaff(t, models.RoleReceptionist, "desk@clinic.com")

	name := "Dr. Who"
	_, err := env.svc.Staff.UpdateProfile(ctx, desk, vet.ID, UpdateStaffInput{DisplayName: &name})
	assert.True(t, errorsIsKind(err, apperr.KindForbidden))

	email := "admin@clinic.com"
	_, err = env.svc.Staff.UpdateProfile(ctx, vet, vet.ID, UpdateStaffInput{Email: &email})
	assert.True(t, errorsIsKind(err, apperr.KindConflict))

	specialty := "Dermatology"
	updated, err := env.svc.Staff.UpdateProfile(ctx, admin, vet.ID, UpdateStaffInput{DisplayName: &name, Specialty: &specialty})
	require.NoError(t, err)
	assert.Equal(t, "Dr. Who", updated.DisplayName)

	rec, err := env.store.Veterinarians.FindByStaffID(ctx, vet.ID)
	require.NoError(t, err)
	assert.Equal(t, "Dermatology", rec.Specialty)
}

func TestEnsureDefaultAdmin(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	account := AdminAccount{Name: "Super Admin", Email: "Admin@VetClinic.com", Password: "Admin123!"}

	created, err := EnsureDefaultAdmin(ctx, store.Staff, account, zerolog.Nop())
	require.NoError(t, err)
	assert.True(t, created)

	created, err = EnsureDefaultAdmin(ctx, store.Staff, account, zerolog.Nop())
	require.NoError(t, err)
	assert.False(t, created)

	admin, err := store.Staff.FindByEmail(ctx, "admin@vetclinic.com")
	require.NoError(t, err)
	assert.True(t, admin.Confirmed)
	assert.True(t, admin.VerifyPassword("Admin123!"))
}

func TestNotifications_SkipMissingPhone(t *testing.T) {
	env := newTestEnv(t)
	client := &models.ClientIdentity{Name: "Ana", Email: "a@x.com"}
	env.svc.Clients.deps.Notifications.SendAppointmentBooked(context.Background(), client, &models.Patient{Name: "Toby"}, &models.Appointment{ScheduledDate: env.now})
	assert.Empty(t, env.jobs(t))
}

func errorsIsKind(err error, kind apperr.Kind) bool {
	return err != nil && apperr.KindOf(err) == kind
}
