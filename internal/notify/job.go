// Package notify delivers outbound email and SMS notifications through a queue
// drained by a background worker.
package notify

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
)

var (
	ErrQueueFull   = errors.New("notification queue is full")
	ErrQueueClosed = errors.New("notification queue is closed")
)

// Job is one rendered notification waiting for delivery.
type Job struct {
	ID         string    `json:"id"`
	Channel    Channel   `json:"channel"`
	Kind       string    `json:"kind"`
	To         string    `json:"to"`
	ToName     string    `json:"toName,omitempty"`
	Subject    string    `json:"subject,omitempty"`
	Body       string    `json:"body"`
	EnqueuedAt time.Time `json:"enqueuedAt"`

	// raw is the encoded form a Redis queue needs to acknowledge the job.
	raw string
}

// NewJob stamps a job with an id and enqueue time.
func NewJob(channel Channel, kind, to, toName, subject, body string) Job {
	return Job{
		ID:         uuid.NewString(),
		Channel:    channel,
		Kind:       kind,
		To:         to,
		ToName:     toName,
		Subject:    subject,
		Body:       body,
		EnqueuedAt: time.Now().UTC(),
	}
}

// Queue hands jobs from request handlers to the worker. Dequeue blocks until a
// job is available or ctx is done; Ack removes a delivered or abandoned job.
type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Dequeue(ctx context.Context) (Job, error)
	Ack(ctx context.Context, job Job) error
	Close() error
}

// Transport delivers a job over one channel.
type Transport interface {
	Send(ctx context.Context, job Job) error
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(ctx context.Context, job Job) error

func (f TransportFunc) Send(ctx context.Context, job Job) error { return f(ctx, job) }
