package request

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"podgen/internal/logging"
	"podgen/internal/podcast"
	"podgen/internal/services"
	"podgen/internal/services/generator"
)

// DefaultTimeout is the ceiling applied to a submission when none is configured.
const DefaultTimeout = 3 * time.Minute

// ErrClosed is returned by Submit after Close.
var ErrClosed = errors.New("request controller closed")

// Generator performs the remote generation call.
type Generator interface {
	Generate(ctx context.Context, params podcast.Parameters) (generator.Result, error)
}

// Config tunes the controller.
type Config struct {
	// Timeout bounds how long a submission may stay in Submitting.
	Timeout time.Duration
	// MaxDurationMinutes caps the requested duration.
	MaxDurationMinutes int
}

// Controller tracks the generation request of one session.
type Controller struct {
	gen    Generator
	cfg    Config
	logger *slog.Logger

	mu       sync.Mutex
	status   Status
	current  *Handle
	outcome  *Outcome
	sink     func(Outcome)
	closed   bool
	inflight sync.WaitGroup

	baseCtx    context.Context
	cancelBase context.CancelFunc
	now        func() time.Time
}

// NewController constructs a controller in Idle.
func NewController(gen Generator, cfg Config, logger *slog.Logger) *Controller {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxDurationMinutes < podcast.MinDurationMinutes {
		cfg.MaxDurationMinutes = podcast.DefaultMaxDurationMinutes
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		gen:        gen,
		cfg:        cfg,
		logger:     logging.NewComponentLogger(logger, "request"),
		status:     StatusIdle,
		baseCtx:    ctx,
		cancelBase: cancel,
		now:        time.Now,
	}
}

// OnOutcome registers the sink that receives terminal outcomes. The sink runs
// on the request goroutine without any controller lock held.
func (c *Controller) OnOutcome(sink func(Outcome)) {
	c.mu.Lock()
	c.sink = sink
	c.mu.Unlock()
}

// MaxDurationMinutes returns the configured duration cap.
func (c *Controller) MaxDurationMinutes() int {
	return c.cfg.MaxDurationMinutes
}

// Submit validates params and, when valid, starts a new submission. Invalid
// parameters return a *podcast.ValidationError and leave the state unchanged.
// A submission already in flight becomes stale.
func (c *Controller) Submit(params podcast.Parameters) (*Handle, error) {
	params = params.Normalized()
	if err := params.Validate(c.cfg.MaxDurationMinutes); err != nil {
		c.logger.Debug("submission rejected",
			logging.String("reason", err.Error()),
			logging.String(logging.FieldEventType, "request_invalid"),
		)
		return nil, err
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	handle := &Handle{ID: uuid.NewString(), Parameters: params, SubmittedAt: c.now()}
	if c.status == StatusSubmitting && c.current != nil {
		c.logger.Info("superseding in-flight request",
			logging.String("stale_request_id", c.current.ID),
			logging.String(logging.FieldRequestID, handle.ID),
			logging.String(logging.FieldEventType, "request_superseded"),
		)
	}
	c.current = handle
	c.status = StatusSubmitting
	c.outcome = nil
	ctx, cancel := context.WithTimeout(services.WithRequestID(c.baseCtx, handle.ID), c.cfg.Timeout)
	c.inflight.Add(1)
	c.mu.Unlock()

	logging.WithContext(ctx, c.logger).Info("generation request submitted",
		logging.String("topic", params.Topic),
		logging.String("voice", string(params.Voice)),
		logging.String("tone", string(params.Tone)),
		logging.Int("duration_minutes", params.DurationMinutes),
		logging.String(logging.FieldEventType, "request_submitted"),
	)

	go c.run(ctx, cancel, handle)
	return handle, nil
}

type callResult struct {
	result generator.Result
	err    error
}

func (c *Controller) run(ctx context.Context, cancel context.CancelFunc, handle *Handle) {
	defer c.inflight.Done()
	defer cancel()

	done := make(chan callResult, 1)
	go func() {
		result, err := c.gen.Generate(ctx, handle.Parameters)
		done <- callResult{result: result, err: err}
	}()

	var res callResult
	select {
	case res = <-done:
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			res.err = services.Wrap(services.ErrTimeout, "request", "generate",
				fmt.Sprintf("no response within %s", c.cfg.Timeout), ctx.Err())
		} else {
			res.err = services.Wrap(services.ErrRequestFailure, "request", "generate", "cancelled", ctx.Err())
		}
	}
	if res.err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) && !errors.Is(res.err, services.ErrTimeout) {
		res.err = services.Wrap(services.ErrTimeout, "request", "generate",
			fmt.Sprintf("no response within %s", c.cfg.Timeout), res.err)
	}
	c.complete(ctx, handle, res)
}

func (c *Controller) complete(ctx context.Context, handle *Handle, res callResult) {
	logger := logging.WithContext(ctx, c.logger)

	c.mu.Lock()
	if c.current != handle || c.status != StatusSubmitting {
		c.mu.Unlock()
		logger.Debug("dropping response for stale request",
			logging.Bool("success", res.err == nil),
			logging.String(logging.FieldEventType, "request_stale_response"),
		)
		return
	}

	outcome := Outcome{Handle: handle, FinishedAt: c.now()}
	if res.err == nil && res.result.ArtifactRef == "" {
		res.err = services.Wrap(services.ErrRequestFailure, "request", "generate", "empty artifact reference", nil)
	}
	if res.err == nil {
		outcome.Status = StatusSucceeded
		outcome.ArtifactRef = res.result.ArtifactRef
		outcome.Result = res.result
	} else {
		err := res.err
		if !services.IsRequestFailure(err) {
			err = services.Wrap(services.ErrRequestFailure, "request", "generate", "", err)
		}
		outcome.Status = StatusFailed
		outcome.Err = err
		outcome.Message = failureMessage(err)
	}
	c.status = outcome.Status
	c.outcome = &outcome
	sink := c.sink
	c.mu.Unlock()

	if outcome.Status == StatusSucceeded {
		logger.Info("generation succeeded",
			logging.String("artifact", outcome.ArtifactRef),
			logging.Seconds("audio_seconds", outcome.Result.DurationSeconds),
			logging.Duration("elapsed", outcome.FinishedAt.Sub(handle.SubmittedAt)),
			logging.String(logging.FieldEventType, "request_succeeded"),
		)
	} else {
		logging.WarnWithContext(logger, "generation failed", "request_failed",
			logging.Error(outcome.Err),
			logging.String(logging.FieldErrorHint, "check the generation service logs or retry"),
			logging.String(logging.FieldImpact, "no podcast audio was produced"),
		)
	}

	if sink != nil {
		sink(outcome)
	}
}

func failureMessage(err error) string {
	var rejected *generator.RejectedError
	if errors.As(err, &rejected) {
		if rejected.Message != "" && rejected.Message != "generation rejected" {
			return "Failed to generate podcast: " + rejected.Message
		}
		return "Failed to generate podcast. Try again."
	}
	return services.UserMessage(err)
}

// Reset makes any in-flight handle stale and returns to Idle. It is
// idempotent and never aborts the underlying call.
func (c *Controller) Reset() {
	c.mu.Lock()
	prev := c.current
	prevStatus := c.status
	c.current = nil
	c.outcome = nil
	c.status = StatusIdle
	c.mu.Unlock()

	if prev != nil {
		c.logger.Debug("request reset",
			logging.String(logging.FieldRequestID, prev.ID),
			logging.String("previous_status", string(prevStatus)),
			logging.String(logging.FieldEventType, "request_reset"),
		)
	}
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap := Snapshot{Status: c.status, Handle: c.current}
	if c.outcome != nil {
		snap.ArtifactRef = c.outcome.ArtifactRef
		snap.Result = c.outcome.Result
		snap.ErrorMessage = c.outcome.Message
		snap.Err = c.outcome.Err
		snap.FinishedAt = c.outcome.FinishedAt
	}
	return snap
}

// Status returns the current lifecycle state.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// IsCurrent reports whether handle is the live submission.
func (c *Controller) IsCurrent(handle *Handle) bool {
	if handle == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current == handle
}

// Wait blocks until every dispatched submission has completed or been
// abandoned, or ctx ends.
func (c *Controller) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		c.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close tears the controller down: the in-flight handle becomes stale and its
// context is cancelled. Close is idempotent.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.current = nil
	c.outcome = nil
	c.status = StatusIdle
	c.mu.Unlock()

	c.cancelBase()
	c.inflight.Wait()
}
