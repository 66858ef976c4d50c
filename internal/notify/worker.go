package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/harentsoaR/vetclinic-api/internal/metrics"
	"github.com/rs/zerolog"
)

type WorkerConfig struct {
	MaxAttempts int
	Backoff     time.Duration
}

// Worker drains a Queue and delivers each job through the transport of its channel.
// A job is retried with linear backoff and acknowledged once delivered or given up on.
type Worker struct {
	queue      Queue
	transports map[Channel]Transport
	cfg        WorkerConfig
	log        zerolog.Logger
	metrics    *metrics.Metrics
	sleep      func(ctx context.Context, d time.Duration) error
}

func NewWorker(queue Queue, transports map[Channel]Transport, cfg WorkerConfig, log zerolog.Logger, m *metrics.Metrics) *Worker {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	return &Worker{
		queue:      queue,
		transports: transports,
		cfg:        cfg,
		log:        log.With().Str("component", "notify_worker").Logger(),
		metrics:    m,
		sleep:      sleepCtx,
	}
}

// Run processes jobs until ctx is cancelled or the queue is closed.
func (w *Worker) Run(ctx context.Context) error {
	w.log.Info().Int("max_attempts", w.cfg.MaxAttempts).Msg("Notification worker started")
	for {
		job, err := w.queue.Dequeue(ctx)
		switch {
		case err == nil:
			w.Process(ctx, job)
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded), errors.Is(err, ErrQueueClosed):
			w.log.Info().Msg("Notification worker stopped")
			return nil
		default:
			w.log.Error().Err(err).Msg("Failed to dequeue notification")
			if err := w.sleep(ctx, time.Second); err != nil {
				return nil
			}
		}
	}
}

// Process delivers one job and acknowledges it. It returns the last delivery error, if any.
func (w *Worker) Process(ctx context.Context, job Job) error {
	logger := w.log.With().
		Str("job_id", job.ID).
		Str("channel", string(job.Channel)).
		Str("kind", job.Kind).
		Logger()

	err := w.deliver(ctx, job, logger)
	if err != nil {
		logger.Error().Err(err).Int("attempts", w.cfg.MaxAttempts).Msg("Notification dropped after final attempt")
		if w.metrics != nil {
			w.metrics.NotificationsFailed.WithLabelValues(string(job.Channel), job.Kind).Inc()
		}
	} else {
		logger.Info().Msg("Notification delivered")
		if w.metrics != nil {
			w.metrics.NotificationsDelivered.WithLabelValues(string(job.Channel), job.Kind).Inc()
			if !job.EnqueuedAt.IsZero() {
				w.metrics.NotificationLatency.WithLabelValues(string(job.Channel)).Observe(time.Since(job.EnqueuedAt).Seconds())
			}
		}
	}

	// Jobs interrupted by shutdown stay unacknowledged so a durable queue redelivers them.
	if ctx.Err() != nil {
		return err
	}
	if ackErr := w.queue.Ack(ctx, job); ackErr != nil {
		logger.Error().Err(ackErr).Msg("Failed to acknowledge notification")
	}
	return err
}

func (w *Worker) deliver(ctx context.Context, job Job, logger zerolog.Logger) error {
	transport, ok := w.transports[job.Channel]
	if !ok {
		return fmt.Errorf("unsupported channel: %s", job.Channel)
	}

	var err error
	for attempt := 1; attempt <= w.cfg.MaxAttempts; attempt++ {
		if attempt > 1 {
			if w.metrics != nil {
				w.metrics.NotificationRetries.WithLabelValues(string(job.Channel)).Inc()
			}
			if sleepErr := w.sleep(ctx, time.Duration(attempt-1)*w.cfg.Backoff); sleepErr != nil {
				return sleepErr
			}
		}
		if err = transport.Send(ctx, job); err == nil {
			return nil
		}
		logger.Warn().Err(err).Int("attempt", attempt).Msg("Notification delivery failed")
	}
	return err
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
