package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"podgen/internal/history"
	"podgen/internal/logging"
	"podgen/internal/notifications"
	"podgen/internal/playback"
	"podgen/internal/podcast"
	"podgen/internal/request"
	"podgen/internal/services"
)

const sideEffectTimeout = 15 * time.Second

// ErrClosed is returned by Submit after Close.
var ErrClosed = errors.New("session closed")

// Resolver turns an artifact reference into a playable download URL.
type Resolver interface {
	DownloadURL(ref string) (string, error)
}

// Recorder persists finished generations.
type Recorder interface {
	Record(ctx context.Context, entry history.Entry) (history.Entry, error)
}

// Options configures a Coordinator. Zero values disable the optional
// collaborators.
type Options struct {
	Defaults podcast.Parameters
	Autoplay bool
	// Headless resolves the download URL of a successful outcome without
	// loading it into playback.
	Headless bool
	History  Recorder
	Notifier notifications.Service
	Logger   *slog.Logger
}

// Coordinator drives one interactive session.
type Coordinator struct {
	id       string
	req      *request.Controller
	play     *playback.Controller
	resolver Resolver
	history  Recorder
	notifier notifications.Service
	autoplay bool
	headless bool
	defaults podcast.Parameters
	logger   *slog.Logger

	// mu serializes Submit, ResetAll and outcome application.
	mu     sync.Mutex
	closed bool

	// stateMu guards presentation fields; it is never held while calling
	// into a controller.
	stateMu         sync.Mutex
	form            podcast.Parameters
	message         string
	downloadURL     string
	loadErr         error
	lastPlayState   playback.State
	lastPlaySeq     uint64
	autoplayPending bool
	listener        func(View)

	ctx    context.Context
	cancel context.CancelFunc
	bg     sync.WaitGroup
}

// New wires req and play together. The coordinator registers itself as the
// request outcome sink and the playback change listener.
func New(req *request.Controller, play *playback.Controller, resolver Resolver, opts Options) *Coordinator {
	defaults := opts.Defaults
	if defaults == (podcast.Parameters{}) {
		defaults = podcast.Defaults()
	}
	notifier := opts.Notifier
	if notifier == nil {
		notifier = notifications.NewService(nil)
	}
	id := uuid.NewString()
	ctx, cancel := context.WithCancel(services.WithSessionID(context.Background(), id))
	c := &Coordinator{
		id:            id,
		req:           req,
		play:          play,
		resolver:      resolver,
		history:       opts.History,
		notifier:      notifier,
		autoplay:      opts.Autoplay && !opts.Headless,
		headless:      opts.Headless,
		defaults:      defaults,
		logger:        logging.NewComponentLogger(opts.Logger, "session").With(logging.String(logging.FieldSessionID, id)),
		form:          defaults,
		lastPlayState: playback.StateEmpty,
		ctx:           ctx,
		cancel:        cancel,
	}
	req.OnOutcome(c.handleOutcome)
	play.OnChange(c.handlePlayback)
	return c
}

// ID returns the session identifier.
func (c *Coordinator) ID() string {
	return c.id
}

// OnChange registers a listener receiving the view after every change. The
// listener runs on the goroutine that caused the change and must not call
// Submit, ResetAll or Close synchronously.
func (c *Coordinator) OnChange(fn func(View)) {
	c.stateMu.Lock()
	c.listener = fn
	c.stateMu.Unlock()
}

// Form returns the current form parameters.
func (c *Coordinator) Form() podcast.Parameters {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	return c.form
}

// UpdateForm applies edit to the form.
func (c *Coordinator) UpdateForm(edit func(*podcast.Parameters)) {
	c.stateMu.Lock()
	edit(&c.form)
	c.stateMu.Unlock()
	c.emit()
}

// Submit validates params, releases any playback and starts a new generation
// request. Invalid parameters leave both controllers untouched.
func (c *Coordinator) Submit(params podcast.Parameters) (*request.Handle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrClosed
	}

	params = params.Normalized()
	c.stateMu.Lock()
	c.form = params
	c.stateMu.Unlock()

	if err := params.Validate(c.req.MaxDurationMinutes()); err != nil {
		c.setMessage(validationMessage(err))
		c.emit()
		return nil, err
	}

	c.play.Release()
	c.stateMu.Lock()
	c.downloadURL = ""
	c.loadErr = nil
	c.message = ""
	c.autoplayPending = false
	c.stateMu.Unlock()

	handle, err := c.req.Submit(params)
	if err != nil {
		c.setMessage(services.UserMessage(err))
		c.emit()
		return nil, err
	}
	c.logger.Info("podcast requested",
		logging.String(logging.FieldRequestID, handle.ID),
		logging.String(logging.FieldEventType, "session_submit"),
	)
	c.emit()
	return handle, nil
}

// SubmitForm submits the current form.
func (c *Coordinator) SubmitForm() (*request.Handle, error) {
	return c.Submit(c.Form())
}

// ResetAll returns the request, playback and form to their initial state.
// It is callable in any state.
func (c *Coordinator) ResetAll() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.req.Reset()
	c.play.Release()

	c.stateMu.Lock()
	c.form = c.defaults
	c.message = ""
	c.downloadURL = ""
	c.loadErr = nil
	c.autoplayPending = false
	c.stateMu.Unlock()

	c.logger.Info("session reset", logging.String(logging.FieldEventType, "session_reset"))
	c.emit()
}

// Toggle flips between playing and paused.
func (c *Coordinator) Toggle() error {
	return c.surface(c.play.Toggle())
}

// Play starts or resumes playback.
func (c *Coordinator) Play() error {
	return c.surface(c.play.Play())
}

// Pause pauses playback.
func (c *Coordinator) Pause() error {
	return c.surface(c.play.Pause())
}

// Seek moves the playback position, clamped to the track.
func (c *Coordinator) Seek(seconds float64) error {
	return c.surface(c.play.Seek(seconds))
}

// SeekBy moves the playback position relative to the current one.
func (c *Coordinator) SeekBy(deltaSeconds float64) error {
	return c.surface(c.play.SeekBy(deltaSeconds))
}

// DownloadURL returns the resolved URL of the current artifact, or "".
func (c *Coordinator) DownloadURL() string {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	return c.downloadURL
}

// View derives the current presentation state.
func (c *Coordinator) View() View {
	reqSnap := c.req.Snapshot()
	playSnap := c.play.Snapshot()

	view := Derive(reqSnap.Status, playSnap.State)
	view.SessionID = c.id
	view.RequestID = reqSnap.HandleID()
	view.ArtifactRef = reqSnap.ArtifactRef
	view.Playback = playSnap

	c.stateMu.Lock()
	view.Form = c.form
	view.Message = c.message
	view.DownloadURL = c.downloadURL
	if c.loadErr != nil {
		view.LoadError = services.UserMessage(c.loadErr)
	}
	c.stateMu.Unlock()
	return view
}

// Wait blocks until the in-flight request and background side effects have
// finished, or ctx ends.
func (c *Coordinator) Wait(ctx context.Context) error {
	if err := c.req.Wait(ctx); err != nil {
		return err
	}
	done := make(chan struct{})
	go func() {
		c.bg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close tears the session down. It is idempotent.
func (c *Coordinator) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	c.req.Close()
	c.play.Close()
	c.cancel()
	c.bg.Wait()
	c.logger.Debug("session closed")
}

func (c *Coordinator) handleOutcome(outcome request.Outcome) {
	c.mu.Lock()
	defer c.mu.Unlock()

	logger := c.logger.With(logging.String(logging.FieldRequestID, outcome.Handle.ID))
	if c.closed || !c.req.IsCurrent(outcome.Handle) {
		logger.Debug("ignoring outcome for inactive request",
			logging.String(logging.FieldEventType, "session_stale_outcome"),
		)
		return
	}

	switch outcome.Status {
	case request.StatusSucceeded:
		c.applySuccess(logger, outcome)
	case request.StatusFailed:
		c.setMessage(outcome.Message)
		c.publish(notifications.EventGenerationFailed, notifications.Payload{
			"topic": outcome.Handle.Parameters.Topic,
			"error": outcome.Message,
		})
		c.record(outcome)
	}
	c.emit()
}

func (c *Coordinator) applySuccess(logger *slog.Logger, outcome request.Outcome) {
	params := outcome.Handle.Parameters
	c.record(outcome)

	url, err := c.resolver.DownloadURL(outcome.ArtifactRef)
	if err != nil {
		// Only the playback marker classifies this error; the resolver's own
		// marker describes the reference, not the form.
		err = services.Wrap(services.ErrPlaybackLoad, "session", "resolve artifact", err.Error(), nil)
		logging.WarnWithContext(logger, "artifact could not be resolved", "session_resolve_failed",
			logging.Error(err),
			logging.String("artifact_ref", outcome.ArtifactRef),
			logging.String(logging.FieldErrorHint, "check service.base_url"),
			logging.String(logging.FieldImpact, "the podcast cannot be played"),
		)
		c.stateMu.Lock()
		c.loadErr = err
		c.message = services.UserMessage(err)
		c.stateMu.Unlock()
		c.publish(notifications.EventPlaybackFailed, notifications.Payload{"error": err.Error()})
		return
	}

	c.stateMu.Lock()
	c.downloadURL = url
	c.autoplayPending = c.autoplay
	c.message = fmt.Sprintf("Podcast ready: %s", params.Topic)
	c.stateMu.Unlock()

	c.publish(notifications.EventPodcastReady, notifications.Payload{
		"topic":    params.Topic,
		"voice":    string(params.Voice),
		"tone":     string(params.Tone),
		"duration": params.DurationMinutes,
		"url":      url,
	})

	if c.headless {
		return
	}
	// Load failures surface through handlePlayback.
	_ = c.play.Load(url)
}

func (c *Coordinator) handlePlayback(snap playback.Snapshot) {
	c.stateMu.Lock()
	if snap.Seq <= c.lastPlaySeq {
		c.stateMu.Unlock()
		return
	}
	c.lastPlaySeq = snap.Seq
	prev := c.lastPlayState
	c.lastPlayState = snap.State
	failed := prev != playback.StateEmpty && snap.State == playback.StateEmpty && snap.Err != nil
	autoplay := prev == playback.StateLoading && snap.State == playback.StateReady && c.autoplayPending
	if autoplay || failed {
		c.autoplayPending = false
	}
	if failed {
		c.loadErr = snap.Err
		c.message = services.UserMessage(snap.Err)
	}
	c.stateMu.Unlock()

	if failed {
		c.publish(notifications.EventPlaybackFailed, notifications.Payload{"error": snap.Err.Error()})
	}
	if autoplay {
		c.background(func(context.Context) {
			if err := c.play.Play(); err != nil {
				c.logger.Debug("autoplay failed", logging.Error(err))
			}
		})
	}
	c.emit()
}

func (c *Coordinator) record(outcome request.Outcome) {
	if c.history == nil {
		return
	}
	params := outcome.Handle.Parameters
	entry := history.Entry{
		RequestID:       outcome.Handle.ID,
		Topic:           params.Topic,
		Voice:           string(params.Voice),
		Tone:            string(params.Tone),
		DurationMinutes: params.DurationMinutes,
		AudioSeconds:    outcome.Result.DurationSeconds,
		Success:         outcome.Status == request.StatusSucceeded,
		ArtifactRef:     outcome.ArtifactRef,
		ErrorMessage:    outcome.Message,
		CreatedAt:       outcome.FinishedAt,
	}
	c.background(func(ctx context.Context) {
		if _, err := c.history.Record(ctx, entry); err != nil {
			c.logger.Warn("history record failed",
				logging.Error(err),
				logging.String(logging.FieldEventType, "history_record_failed"),
			)
		}
	})
}

func (c *Coordinator) publish(event notifications.Event, payload notifications.Payload) {
	c.background(func(ctx context.Context) {
		if err := c.notifier.Publish(ctx, event, payload); err != nil {
			c.logger.Debug("notification failed",
				logging.String("event", string(event)),
				logging.Error(err),
			)
		}
	})
}

func (c *Coordinator) background(fn func(context.Context)) {
	c.bg.Add(1)
	go func() {
		defer c.bg.Done()
		ctx, cancel := context.WithTimeout(c.ctx, sideEffectTimeout)
		defer cancel()
		fn(ctx)
	}()
}

func (c *Coordinator) surface(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, playback.ErrEnded) {
		c.setMessage("Playback finished. Seek to replay.")
	} else {
		c.setMessage(services.UserMessage(err))
	}
	c.emit()
	return err
}

func (c *Coordinator) setMessage(msg string) {
	c.stateMu.Lock()
	c.message = msg
	c.stateMu.Unlock()
}

func (c *Coordinator) emit() {
	c.stateMu.Lock()
	listener := c.listener
	c.stateMu.Unlock()
	if listener != nil {
		listener(c.View())
	}
}

func validationMessage(err error) string {
	var verr *podcast.ValidationError
	if errors.As(err, &verr) {
		return verr.Error()
	}
	return services.UserMessage(err)
}
