package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
	"gopkg.in/gomail.v2"
)

// Sender is the part of gomail.Dialer the email transport uses.
type Sender interface {
	DialAndSend(m ...*gomail.Message) error
}

// EmailTransport sends HTML email over SMTP.
type EmailTransport struct {
	sender Sender
	from   string
}

func NewEmailTransport(host string, port int, user, pass, from string) *EmailTransport {
	return &EmailTransport{sender: gomail.NewDialer(host, port, user, pass), from: from}
}

func NewEmailTransportWithSender(sender Sender, from string) *EmailTransport {
	return &EmailTransport{sender: sender, from: from}
}

func (t *EmailTransport) Send(ctx context.Context, job Job) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m := gomail.NewMessage()
	m.SetHeader("From", t.from)
	m.SetAddressHeader("To", job.To, job.ToName)
	m.SetHeader("Subject", job.Subject)
	m.SetBody("text/html", job.Body)

	if err := t.sender.DialAndSend(m); err != nil {
		return fmt.Errorf("smtp send to %s: %w", job.To, err)
	}
	return nil
}

type textbeltResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	TextID  string `json:"textId"`
}

// SMSTransport sends text messages through the Textbelt HTTP API.
type SMSTransport struct {
	client *resty.Client
	url    string
	key    string
}

func NewSMSTransport(url, key string) *SMSTransport {
	client := resty.New().
		SetTimeout(10*time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	return &SMSTransport{client: client, url: url, key: key}
}

func (t *SMSTransport) Send(ctx context.Context, job Job) error {
	var result textbeltResponse
	resp, err := t.client.R().
		SetContext(ctx).
		SetBody(map[string]string{
			"phone":   job.To,
			"message": job.Body,
			"key":     t.key,
		}).
		SetResult(&result).
		Post(t.url)
	if err != nil {
		return fmt.Errorf("textbelt request for %s: %w", job.To, err)
	}
	if resp.IsError() {
		return fmt.Errorf("textbelt returned status %d", resp.StatusCode())
	}
	if !result.Success {
		return fmt.Errorf("textbelt rejected message to %s: %s", job.To, result.Error)
	}
	return nil
}

// LogTransport stands in when a channel is not configured: it only logs the job.
type LogTransport struct {
	log zerolog.Logger
}

func NewLogTransport(log zerolog.Logger) *LogTransport {
	return &LogTransport{log: log}
}

func (t *LogTransport) Send(_ context.Context, job Job) error {
	t.log.Info().
		Str("job_id", job.ID).
		Str("channel", string(job.Channel)).
		Str("kind", job.Kind).
		Str("to", job.To).
		Str("subject", job.Subject).
		Msg("Notification transport not configured, logging instead of sending")
	return nil
}
