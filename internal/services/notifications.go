package services

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"strings"

	"github.com/harentsoaR/vetclinic-api/internal/metrics"
	"github.com/harentsoaR/vetclinic-api/internal/models"
	"github.com/harentsoaR/vetclinic-api/internal/notify"
	"github.com/rs/zerolog"
)

// Notification kinds, used as the job kind and metrics label.
const (
	KindStaffConfirmation   = "staff_confirmation"
	KindClientWelcome       = "client_welcome"
	KindPortalAccess        = "portal_access"
	KindPasswordReset       = "password_reset"
	KindAppointmentBooked   = "appointment_booked"
	KindAppointmentCanceled = "appointment_cancelled"
)

const emailLayout = `<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px;">
<h1 style="color: #2d3748;">{{.Title}}</h1>
<p>Hello <strong>{{.Name}}</strong>,</p>
{{block "content" .}}{{end}}
{{if .Link}}<p style="text-align: center; margin: 30px 0;"><a href="{{.Link}}" style="background-color: #84cc16; color: white; padding: 15px 30px; text-decoration: none; border-radius: 5px;">{{.Action}}</a></p>
<p style="color: #718096; font-size: 14px;">If the button does not work, copy this link into your browser:<br>{{.Link}}</p>{{end}}
<p style="color: #718096; font-size: 14px;">If you did not expect this email, you can ignore it.</p>
</div>`

var emailTemplates = map[string]string{
	KindStaffConfirmation: `{{define "content"}}<p>An account was created for you at the clinic. Confirm it to sign in.</p>{{end}}`,
	KindClientWelcome: `{{define "content"}}<p>Your client portal account was created. Verify your email to access it.</p>
<p><strong>Email:</strong> {{.Email}}<br><strong>Temporary password:</strong> <code>{{.Password}}</code></p>
<p>Your temporary password is your national id without dots or dashes. You can change it after verifying your email.</p>{{end}}`,
	KindPortalAccess:  `{{define "content"}}<p>The clinic enabled your access to the client portal. Verify your email to start using it.</p>{{end}}`,
	KindPasswordReset: `{{define "content"}}<p>You asked to reset your password. The link below is valid for a limited time.</p>{{end}}`,
}

type emailData struct {
	Title    string
	Name     string
	Email    string
	Password string
	Link     string
	Action   string
}

// NotificationService renders notifications and hands them to the queue.
// Delivery happens in the background; failures to enqueue are logged, never returned.
type NotificationService struct {
	queue       notify.Queue
	frontendURL string
	templates   map[string]*template.Template
	log         zerolog.Logger
	metrics     *metrics.Metrics
}

func NewNotificationService(queue notify.Queue, frontendURL string, log zerolog.Logger, m *metrics.Metrics) *NotificationService {
	tpls := make(map[string]*template.Template, len(emailTemplates))
	for kind, content := range emailTemplates {
		tpls[kind] = template.Must(template.Must(template.New(kind).Parse(emailLayout)).Parse(content))
	}
	return &NotificationService{
		queue:       queue,
		frontendURL: strings.TrimRight(frontendURL, "/"),
		templates:   tpls,
		log:         log.With().Str("component", "notifications").Logger(),
		metrics:     m,
	}
}

func (s *NotificationService) SendStaffConfirmation(ctx context.Context, staff *models.StaffIdentity, token string) {
	s.email(ctx, KindStaffConfirmation, staff.Contact(), "Confirm your clinic account", emailData{
		Title:  "Welcome to the clinic",
		Link:   s.link("/confirm/", token),
		Action: "Confirm my account",
	})
}

func (s *NotificationService) SendClientWelcome(ctx context.Context, client *models.ClientIdentity, tempPassword, token string) {
	s.email(ctx, KindClientWelcome, client.Contact(), "Welcome - verify your account", emailData{
		Title:    "Welcome to the clinic",
		Email:    client.Email,
		Password: tempPassword,
		Link:     s.link("/portal/confirm/", token),
		Action:   "Verify my account",
	})
}

func (s *NotificationService) SendPortalAccess(ctx context.Context, client *models.ClientIdentity, token string) {
	s.email(ctx, KindPortalAccess, client.Contact(), "Your client portal access", emailData{
		Title:  "Client portal access",
		Link:   s.link("/portal/confirm/", token),
		Action: "Verify my account",
	})
}

// SendPasswordReset links to the reset page of the identity kind's frontend.
func (s *NotificationService) SendPasswordReset(ctx context.Context, kind models.Kind, contact models.Contact, token string) {
	prefix := "/forgot-password/"
	if kind == models.KindClient {
		prefix = "/portal/forgot-password/"
	}
	s.email(ctx, KindPasswordReset, contact, "Reset your password", emailData{
		Title:  "Password reset",
		Link:   s.link(prefix, token),
		Action: "Reset my password",
	})
}

func (s *NotificationService) SendAppointmentBooked(ctx context.Context, client *models.ClientIdentity, patient *models.Patient, apt *models.Appointment) {
	body := fmt.Sprintf("Appointment booked: %s for %s on %s at %s.",
		apt.Type, patient.Name, apt.ScheduledDate.Format("Jan 2"), apt.ScheduledTime)
	s.sms(ctx, KindAppointmentBooked, client.Contact(), body)
}

func (s *NotificationService) SendAppointmentCancelled(ctx context.Context, client *models.ClientIdentity, patient *models.Patient, apt *models.Appointment) {
	body := fmt.Sprintf("Appointment cancelled: %s for %s on %s at %s.",
		apt.Type, patient.Name, apt.ScheduledDate.Format("Jan 2"), apt.ScheduledTime)
	s.sms(ctx, KindAppointmentCanceled, client.Contact(), body)
}

func (s *NotificationService) link(prefix, token string) string {
	return s.frontendURL + prefix + token
}

func (s *NotificationService) email(ctx context.Context, kind string, to models.Contact, subject string, data emailData) {
	if to.Email == "" {
		s.log.Warn().Str("kind", kind).Msg("Email not sent: recipient has no address")
		return
	}
	data.Name = to.Name

	var buf bytes.Buffer
	if err := s.templates[kind].Execute(&buf, data); err != nil {
		s.log.Error().Err(err).Str("kind", kind).Msg("Failed to render email")
		return
	}
	s.enqueue(ctx, notify.NewJob(notify.ChannelEmail, kind, to.Email, to.Name, subject, buf.String()))
}

func (s *NotificationService) sms(ctx context.Context, kind string, to models.Contact, body string) {
	if to.Phone == "" {
		s.log.Info().Str("kind", kind).Msg("SMS not sent: recipient has no phone number")
		return
	}
	s.enqueue(ctx, notify.NewJob(notify.ChannelSMS, kind, to.Phone, to.Name, "", body))
}

func (s *NotificationService) enqueue(ctx context.Context, job notify.Job) {
	// The request may finish before the queue answers; enqueue on a detached context.
	if err := s.queue.Enqueue(context.WithoutCancel(ctx), job); err != nil {
		s.log.Error().Err(err).Str("kind", job.Kind).Str("job_id", job.ID).Msg("Failed to queue notification")
		return
	}
	if s.metrics != nil {
		s.metrics.NotificationsQueued.WithLabelValues(string(job.Channel), job.Kind).Inc()
	}
}
