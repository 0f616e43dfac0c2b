// Package sender runs outbound Bot API calls on a bounded worker pool with
// retries, so handlers return before Telegram answers.
package sender

import (
	"cmp"
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/errgroup"

	"github.com/m3rciful/eldersbot/core/logger"
)

var (
	// ErrQueueClosed is returned by Enqueue after Close.
	ErrQueueClosed = errors.New("telegram sender: queue closed")
	// ErrQueueFull means the job was not accepted.
	ErrQueueFull = errors.New("telegram sender: queue full")
)

// Options sizes the pool. Zero values take the defaults noted per field.
type Options struct {
	QueueSize    int           // 256
	Workers      int           // 4
	MaxRetries   int           // 0, negative is 0
	RetryBackoff time.Duration // 2s, first retry delay
	// MaxDuration bounds one job including retries; 12s.
	MaxDuration time.Duration
}

func (o Options) withDefaults() Options {
	o.QueueSize = cmp.Or(max(o.QueueSize, 0), 256)
	o.Workers = cmp.Or(max(o.Workers, 0), 4)
	o.MaxRetries = max(o.MaxRetries, 0)
	o.RetryBackoff = cmp.Or(max(o.RetryBackoff, 0), 2*time.Second)
	o.MaxDuration = cmp.Or(max(o.MaxDuration, 0), 12*time.Second)
	return o
}

type job struct {
	ctx      context.Context
	action   string
	endpoint string
	run      func() error
}

// Dispatcher is a fixed pool of workers draining a bounded queue.
type Dispatcher struct {
	opts Options
	jobs chan job

	mu     sync.RWMutex
	closed bool
	once   sync.Once
	pool   errgroup.Group

	errs atomic.Uint64
	sent atomic.Uint64
}

// NewDispatcher starts the workers.
func NewDispatcher(opts Options) *Dispatcher {
	opts = opts.withDefaults()
	d := &Dispatcher{opts: opts, jobs: make(chan job, opts.QueueSize)}
	for range opts.Workers {
		d.pool.Go(func() error {
			for j := range d.jobs {
				d.handleJob(j)
			}
			return nil
		})
	}
	return d
}

// Enqueue hands run to the pool without blocking. run may execute more than
// once, so it must be safe to repeat.
func (d *Dispatcher) Enqueue(ctx context.Context, action, endpoint string, run func() error) error {
	if run == nil {
		return errors.New("telegram sender: nil run function")
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrQueueClosed
	}
	select {
	case d.jobs <- job{ctx: ctx, action: action, endpoint: endpoint, run: run}:
		return nil
	default:
		return ErrQueueFull
	}
}

// ErrorCount is the number of jobs that failed for good.
func (d *Dispatcher) ErrorCount() uint64 { return d.errs.Load() }

// SentCount is the number of jobs that eventually succeeded.
func (d *Dispatcher) SentCount() uint64 { return d.sent.Load() }

// Close stops accepting jobs and waits for the queue to drain.
func (d *Dispatcher) Close() {
	d.once.Do(func() {
		d.mu.Lock()
		d.closed = true
		close(d.jobs)
		d.mu.Unlock()
		_ = d.pool.Wait()
	})
}

func (d *Dispatcher) handleJob(j job) {
	ctx := j.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	runCtx, cancel := context.WithTimeout(ctx, d.opts.MaxDuration)
	defer cancel()

	start := time.Now()
	logger.Debug(ctx, "tg.sender", "send.start", sendLogAttrs(j)...)

	policy := &floodAware{BackOff: d.policy()}
	attempts := 0
	op := func() error {
		attempts++
		err := j.run()
		if err == nil {
			return nil
		}
		if !retryable(err) {
			return backoff.Permanent(err)
		}
		policy.hint = floodDelay(err)
		return err
	}
	onRetry := func(err error, delay time.Duration) {
		logger.Debug(ctx, "tg.sender", "send.retry.backoff",
			append(sendLogAttrs(j),
				slog.Int("attempt", attempts),
				slog.Duration("delay", delay),
				slog.String("error_kind", classifyError(err)),
			)...,
		)
	}

	b := backoff.WithContext(backoff.WithMaxRetries(policy, uint64(d.opts.MaxRetries)), runCtx)
	if err := backoff.RetryNotify(op, b, onRetry); err != nil {
		d.errs.Add(1)
		logSendFailure(ctx, j, err, attempts, time.Since(start))
		return
	}
	d.sent.Add(1)
	logSendSuccess(ctx, j, attempts, time.Since(start))
}

func (d *Dispatcher) policy() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = d.opts.RetryBackoff
	b.MaxInterval = d.opts.MaxDuration
	b.MaxElapsedTime = 0
	return b
}

// floodAware replaces the next delay with the retry_after hint of a Telegram
// flood error when one was seen.
type floodAware struct {
	backoff.BackOff
	hint time.Duration
}

func (f *floodAware) NextBackOff() time.Duration {
	next := f.BackOff.NextBackOff()
	if next != backoff.Stop && f.hint > 0 {
		next, f.hint = f.hint, 0
	}
	return next
}

// sendLogAttrs omits request ids; the logger adds them from ctx.
func sendLogAttrs(j job) []slog.Attr {
	attrs := []slog.Attr{slog.String("action", j.action)}
	if j.endpoint != "" {
		attrs = append(attrs, slog.String("endpoint", j.endpoint))
	}
	return attrs
}

func logSendSuccess(ctx context.Context, j job, attempts int, elapsed time.Duration) {
	attrs := sendLogAttrs(j)
	if attempts > 1 {
		attrs = append(attrs, slog.Int("attempt", attempts))
	}
	attrs = append(attrs, slog.Int64("elapsed_ms", logger.RoundMS(elapsed).Milliseconds()))
	logger.Debug(ctx, "tg.sender", "send.success", attrs...)
}

func logSendFailure(ctx context.Context, j job, err error, attempts int, elapsed time.Duration) {
	attrs := append(sendLogAttrs(j),
		slog.String("error", sanitizeErrorMessage(err)),
		slog.String("error_kind", classifyError(err)),
		slog.Int("attempts", attempts),
		slog.Int64("elapsed_ms", logger.RoundMS(elapsed).Milliseconds()),
	)
	logger.Error(ctx, "tg.sender", "send.fail", attrs...)
}
