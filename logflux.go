package logflux

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/logflux/logflux-go/config"
	"github.com/logflux/logflux-go/crypto"
	"github.com/logflux/logflux-go/internal/queue"
	"github.com/logflux/logflux-go/internal/retry"
	"github.com/logflux/logflux-go/pkg/types"
	"github.com/logflux/logflux-go/transport"
)

// Errors surfaced by the facade. Worker-side delivery failures never
// reach the caller; they are visible only through Stats.
var (
	// ErrClosed is returned by Submit on a closed pipeline in strict
	// mode.
	ErrClosed = errors.New("logflux: pipeline is closed")

	// ErrQueueFull is returned by Submit in strict mode when the queue
	// did not accept the entry within the enqueue timeout.
	ErrQueueFull = errors.New("logflux: queue is full")

	// ErrFlushTimeout is returned by Flush when the queue did not
	// empty before the deadline.
	ErrFlushTimeout = errors.New("logflux: flush timed out")

	// ErrNotInitialized is returned by Default before Init.
	ErrNotInitialized = errors.New("logflux: not initialized, call Init first")
)

const (
	// pollTimeout bounds each worker's wait on an empty queue, which
	// also bounds how long shutdown can lag behind cancellation.
	pollTimeout = time.Second

	// drainTimeout bounds the implicit flush performed by Close.
	drainTimeout = 10 * time.Second

	// workerGrace bounds how long Close waits for workers to finish
	// their in-flight entries after cancellation.
	workerGrace = 5 * time.Second

	// flushPoll is the interval Flush re-checks the queue size at.
	flushPoll = 10 * time.Millisecond
)

// Pipeline is the resilient delivery pipeline: submit on one side,
// background encrypted delivery on the other. Create with New, release
// with Close. Safe for concurrent use.
type Pipeline struct {
	cfg    *config.Config
	enc    *crypto.Encryptor
	q      queue.Queue
	policy retry.Policy
	sender transport.Sender
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error

	totalSent   atomic.Uint64
	totalFailed atomic.Uint64
}

// Option customizes a Pipeline at construction.
type Option func(*Pipeline)

// WithSender replaces the default HTTP sender with a custom delivery
// port. The sender must be safe for concurrent use by all workers.
func WithSender(s transport.Sender) Option {
	return func(p *Pipeline) { p.sender = s }
}

// WithLogger sets the logger used for worker-side diagnostics.
// Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// New creates a Pipeline and starts its workers. The config must come
// from one of the config constructors (Default, Load, FromEnv), which
// validate it.
func New(cfg *config.Config, opts ...Option) (*Pipeline, error) {
	if cfg == nil {
		return nil, fmt.Errorf("logflux: config is nil")
	}

	enc, err := crypto.NewEncryptor(cfg.Secret)
	if err != nil {
		return nil, fmt.Errorf("logflux: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &Pipeline{
		cfg: cfg,
		enc: enc,
		q:   queue.New(cfg.QueueSize, cfg.Failsafe),
		policy: retry.Policy{
			MaxRetries:    cfg.MaxRetries,
			InitialDelay:  cfg.InitialDelay,
			MaxDelay:      cfg.MaxDelay,
			BackoffFactor: cfg.BackoffFactor,
			Jitter:        cfg.Jitter,
		},
		logger: slog.Default(),
		ctx:    ctx,
		cancel: cancel,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.sender == nil {
		p.sender = transport.NewHTTPSender(transport.Options{
			ServerURL: cfg.ServerURL,
			APIKey:    cfg.APIKey,
			Timeout:   cfg.Timeout,
			Compress:  cfg.Compress,
			RateLimit: cfg.RateLimit,
			Burst:     cfg.RateBurst,
		})
	}

	p.start()
	return p, nil
}

// NewFromEnv builds the config from LOGFLUX_* environment variables
// and creates a Pipeline from it.
func NewFromEnv(node, secret string, opts ...Option) (*Pipeline, error) {
	cfg, err := config.FromEnv(node, secret)
	if err != nil {
		return nil, err
	}
	return New(cfg, opts...)
}

// Submit encrypts message and enqueues it for delivery at the current
// time.
func (p *Pipeline) Submit(message string, level types.Level) error {
	return p.SubmitAt(message, level, time.Now())
}

// SubmitAt encrypts message and enqueues it with an explicit
// timestamp. In strict mode a closed pipeline, an encryption failure,
// or a full queue surfaces as an error; in failsafe mode all of these
// are swallowed and reflected only in Stats (for queue drops) or logs.
func (p *Pipeline) SubmitAt(message string, level types.Level, at time.Time) error {
	if p.closed.Load() {
		if p.cfg.Failsafe {
			return nil
		}
		return ErrClosed
	}

	res, err := p.enc.Encrypt(message)
	if err != nil {
		if p.cfg.Failsafe {
			p.logger.Debug("logflux: submit dropped, encryption failed", "err", err)
			return nil
		}
		return fmt.Errorf("logflux: encrypt: %w", err)
	}

	entry, err := types.NewEntry(p.cfg.Node, res.Payload, level, at, int(res.Mode), res.IV, res.Salt)
	if err != nil {
		if p.cfg.Failsafe {
			p.logger.Debug("logflux: submit dropped, invalid entry", "err", err)
			return nil
		}
		return fmt.Errorf("logflux: %w", err)
	}

	return p.offer(entry)
}

// SubmitBatch submits each message at the current time. In strict mode
// it stops at the first failure; in failsafe mode it always succeeds.
func (p *Pipeline) SubmitBatch(messages []string, level types.Level) error {
	for _, m := range messages {
		if err := p.Submit(m, level); err != nil {
			return err
		}
	}
	return nil
}

// offer admits entry under the configured policy.
func (p *Pipeline) offer(entry *types.Entry) error {
	if p.cfg.Failsafe {
		// Drops are counted by the queue; the caller never sees them.
		p.q.Offer(entry)
		return nil
	}
	if p.cfg.EnqueueTimeout > 0 {
		if !p.q.OfferTimeout(entry, p.cfg.EnqueueTimeout) {
			return ErrQueueFull
		}
		return nil
	}
	p.q.Offer(entry)
	return nil
}

// Level helpers mirroring the severity names accepted on the wire.

// Debug submits message at DEBUG.
func (p *Pipeline) Debug(message string) error { return p.Submit(message, types.LevelDebug) }

// Info submits message at INFO.
func (p *Pipeline) Info(message string) error { return p.Submit(message, types.LevelInfo) }

// Notice submits message at INFO (syslog alias).
func (p *Pipeline) Notice(message string) error { return p.Submit(message, types.LevelNotice) }

// Warn submits message at WARN.
func (p *Pipeline) Warn(message string) error { return p.Submit(message, types.LevelWarn) }

// Error submits message at ERROR.
func (p *Pipeline) Error(message string) error { return p.Submit(message, types.LevelError) }

// Critical submits message at ERROR (syslog alias).
func (p *Pipeline) Critical(message string) error { return p.Submit(message, types.LevelCritical) }

// Alert submits message at FATAL (syslog alias).
func (p *Pipeline) Alert(message string) error { return p.Submit(message, types.LevelAlert) }

// Fatal submits message at FATAL.
func (p *Pipeline) Fatal(message string) error { return p.Submit(message, types.LevelFatal) }

// Flush waits until the queue is empty or timeout elapses. It does not
// wait for entries already picked up by workers to finish delivery,
// only for them to leave the queue.
func (p *Pipeline) Flush(timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for p.q.Size() > 0 {
		if time.Now().After(deadline) {
			return ErrFlushTimeout
		}
		time.Sleep(flushPoll)
	}
	return nil
}

// Stats returns a point-in-time snapshot of the pipeline's counters.
func (p *Pipeline) Stats() types.Stats {
	return types.Stats{
		TotalSent:     p.totalSent.Load(),
		TotalFailed:   p.totalFailed.Load(),
		TotalDropped:  p.q.Dropped(),
		QueueSize:     p.q.Size(),
		QueueCapacity: p.q.Capacity(),
	}
}

// Running reports whether the pipeline accepts submissions.
func (p *Pipeline) Running() bool { return !p.closed.Load() }

// Config returns the pipeline's configuration.
func (p *Pipeline) Config() *config.Config { return p.cfg }

// Close drains and stops the pipeline: it refuses new submissions,
// attempts a bounded flush, cancels the workers, waits up to a grace
// period for them to finish in-flight deliveries, clears the
// encryption key cache, and releases the sender. Idempotent.
func (p *Pipeline) Close() error {
	p.closeOnce.Do(func() {
		p.closed.Store(true)

		if err := p.Flush(drainTimeout); err != nil {
			p.logger.Warn("logflux: close: queue not fully drained", "remaining", p.q.Size())
		}

		p.cancel()

		done := make(chan struct{})
		go func() {
			p.wg.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(workerGrace):
			p.logger.Warn("logflux: close: workers did not stop within grace period")
		}

		p.enc.ClearCache()
		p.closeErr = p.sender.Close()
	})
	return p.closeErr
}
