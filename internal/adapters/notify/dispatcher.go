package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"eventroster/internal/domain"
)

// Job is one queued notice.
type Job struct {
	ID       string         `json:"id"`
	EventID  string         `json:"event_id"`
	Message  domain.Message `json:"message"`
	Enqueued time.Time      `json:"enqueued"`
}

// Delivery is a job handed to a worker. Ack must be called once the job is
// finished, successfully or not; unacknowledged jobs may be delivered again.
type Delivery struct {
	Job Job
	ack func(ctx context.Context) error
}

// Ack marks the delivery as processed.
func (d *Delivery) Ack(ctx context.Context) error {
	if d.ack == nil {
		return nil
	}
	return d.ack(ctx)
}

// Queue stores jobs between Enqueue and the workers.
type Queue interface {
	Push(ctx context.Context, job Job) error
	// Pop waits for the next job. It returns (nil, nil) when nothing arrived
	// in time, and ctx.Err() once ctx is done.
	Pop(ctx context.Context) (*Delivery, error)
}

// Metrics counts delivery outcomes.
type Metrics interface {
	IncNotification(mode, result string)
}

type nopMetrics struct{}

func (nopMetrics) IncNotification(string, string) {}

// Options tunes the dispatcher.
type Options struct {
	Workers     int
	MaxAttempts int
	// Backoff returns the wait before retry number attempt (1-based).
	Backoff func(attempt int) time.Duration
	Metrics Metrics
}

// Dispatcher delivers notices through a mailer. Enqueued notices go through
// the queue to a pool of workers and are retried with backoff; SendNow
// delivers on the caller's goroutine.
type Dispatcher struct {
	mailer domain.Mailer
	queue  Queue
	opts   Options
	logger *slog.Logger

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

var _ domain.Dispatcher = (*Dispatcher)(nil)

// NewDispatcher returns a dispatcher. Call Start to run the workers.
func NewDispatcher(mailer domain.Mailer, queue Queue, opts Options, logger *slog.Logger) *Dispatcher {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 1
	}
	if opts.Backoff == nil {
		opts.Backoff = ExponentialBackoff(time.Second, time.Minute)
	}
	if opts.Metrics == nil {
		opts.Metrics = nopMetrics{}
	}
	return &Dispatcher{mailer: mailer, queue: queue, opts: opts, logger: logger}
}

// ExponentialBackoff doubles base on every attempt, capped at max.
func ExponentialBackoff(base, max time.Duration) func(int) time.Duration {
	return func(attempt int) time.Duration {
		d := base
		for i := 1; i < attempt && d < max; i++ {
			d *= 2
		}
		if d > max {
			d = max
		}
		return d
	}
}

// Enqueue queues msg for asynchronous delivery. Without a queue the notice is
// delivered inline, which suits one-shot commands that exit right after.
func (d *Dispatcher) Enqueue(ctx context.Context, eventID string, msg *domain.Message) error {
	if msg == nil || len(msg.To) == 0 {
		return fmt.Errorf("%w: notice has no recipient", domain.ErrInvalidInput)
	}
	if d.queue == nil {
		err := d.deliver(ctx, msg)
		d.record("inline", err)
		return err
	}
	job := Job{ID: uuid.NewString(), EventID: eventID, Message: *msg, Enqueued: time.Now()}
	if err := d.queue.Push(ctx, job); err != nil {
		d.opts.Metrics.IncNotification("async", "enqueue_failed")
		return fmt.Errorf("enqueue notice: %w", err)
	}
	return nil
}

// SendNow delivers msg before returning, retrying like the workers do.
func (d *Dispatcher) SendNow(ctx context.Context, msg *domain.Message) error {
	if msg == nil || len(msg.To) == 0 {
		return fmt.Errorf("%w: notice has no recipient", domain.ErrInvalidInput)
	}
	err := d.deliver(ctx, msg)
	d.record("sync", err)
	return err
}

// Start runs the workers until ctx is done or Stop is called. It does nothing
// for an inline dispatcher.
func (d *Dispatcher) Start(ctx context.Context) {
	if d.queue == nil {
		return
	}
	ctx, d.cancel = context.WithCancel(ctx)
	for i := 0; i < d.opts.Workers; i++ {
		d.wg.Add(1)
		go d.work(ctx, i)
	}
}

// Stop stops the workers and waits for in-flight deliveries.
func (d *Dispatcher) Stop() {
	if d.cancel != nil {
		d.cancel()
	}
	d.wg.Wait()
}

func (d *Dispatcher) work(ctx context.Context, id int) {
	defer d.wg.Done()
	for {
		delivery, err := d.queue.Pop(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			d.logger.Error("notify: pop job", "worker", id, "error", err)
			if !sleep(ctx, time.Second) {
				return
			}
			continue
		}
		if delivery == nil {
			continue
		}

		job := delivery.Job
		err = d.deliver(ctx, &job.Message)
		if err != nil && ctx.Err() != nil {
			// Leave the job unacknowledged so it can be delivered again.
			return
		}
		d.record("async", err)
		if err != nil {
			d.logger.Error("notify: giving up on notice", "job", job.ID, "event_id", job.EventID, "subject", job.Message.Subject, "error", err)
		}
		if err := delivery.Ack(ctx); err != nil {
			d.logger.Error("notify: ack job", "job", job.ID, "error", err)
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, msg *domain.Message) error {
	var err error
	for attempt := 1; attempt <= d.opts.MaxAttempts; attempt++ {
		if err = d.mailer.Send(ctx, msg); err == nil {
			return nil
		}
		if errors.Is(err, domain.ErrInvalidInput) || attempt == d.opts.MaxAttempts {
			break
		}
		d.logger.Warn("notify: delivery failed, retrying", "attempt", attempt, "subject", msg.Subject, "error", err)
		if !sleep(ctx, d.opts.Backoff(attempt)) {
			return ctx.Err()
		}
	}
	return err
}

func (d *Dispatcher) record(mode string, err error) {
	if err != nil {
		d.opts.Metrics.IncNotification(mode, "failed")
		return
	}
	d.opts.Metrics.IncNotification(mode, "sent")
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
