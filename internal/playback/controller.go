package playback

import (
	"errors"
	"log/slog"
	"strings"
	"sync"

	"podgen/internal/logging"
	"podgen/internal/services"
)

// ErrEnded is returned by Play when playback has reached the end. Seek to
// rewind before playing again.
var ErrEnded = errors.New("playback ended; seek before playing again")

// Controller owns one playback session.
type Controller struct {
	media  Media
	logger *slog.Logger

	// cmdMu serializes commands so track calls keep the order in which state
	// transitions were decided. Callbacks never take it.
	cmdMu sync.Mutex

	mu       sync.Mutex
	state    State
	source   string
	position float64
	duration float64
	lastErr  error
	track    Track
	binding  uint64
	seq      uint64
	onChange func(Snapshot)
}

// NewController constructs an Empty controller.
func NewController(media Media, logger *slog.Logger) *Controller {
	return &Controller{
		media:  media,
		logger: logging.NewComponentLogger(logger, "playback"),
		state:  StateEmpty,
	}
}

// OnChange registers a function receiving a snapshot after every transition.
// It runs without controller locks held.
func (c *Controller) OnChange(fn func(Snapshot)) {
	c.mu.Lock()
	c.onChange = fn
	c.mu.Unlock()
}

// Snapshot returns a copy of the session state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) snapshotLocked() Snapshot {
	c.seq++
	return Snapshot{
		State:           c.state,
		Source:          c.source,
		PositionSeconds: c.position,
		DurationSeconds: c.duration,
		Err:             c.lastErr,
		Seq:             c.seq,
	}
}

// Load tears down the active session and opens source. The controller is
// Loading until the primitive resolves metadata or reports a load failure.
func (c *Controller) Load(source string) error {
	source = strings.TrimSpace(source)
	if source == "" {
		return services.Wrap(services.ErrValidation, "playback", "load", "empty source", nil)
	}

	c.cmdMu.Lock()
	defer c.cmdMu.Unlock()

	c.mu.Lock()
	old := c.detachLocked()
	c.state = StateLoading
	c.source = source
	gen := c.binding
	snap, notify := c.snapshotLocked(), c.onChange
	c.mu.Unlock()

	c.closeTrack(old, "replaced")
	emit(notify, snap)

	c.logger.Info("loading audio",
		logging.String("source", source),
		logging.String(logging.FieldEventType, "playback_load"),
	)

	track, err := c.media.Open(source, &binding{c: c, gen: gen})

	c.mu.Lock()
	if err != nil {
		if gen == c.binding {
			c.binding++
			c.state = StateEmpty
			c.lastErr = services.Wrap(services.ErrPlaybackLoad, "playback", "open", source, err)
			err = c.lastErr
		}
		snap, notify = c.snapshotLocked(), c.onChange
		c.mu.Unlock()
		logging.WarnWithContext(c.logger, "audio load failed", "playback_load_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "verify the artifact URL is reachable and ffprobe is installed"),
			logging.String(logging.FieldImpact, "the generated podcast cannot be played"),
		)
		emit(notify, snap)
		return err
	}
	if gen != c.binding {
		// A load failure arrived before Open returned.
		c.mu.Unlock()
		c.closeTrack(track, "failed before open returned")
		return c.Snapshot().Err
	}
	c.track = track
	c.mu.Unlock()
	return nil
}

// Play starts or resumes playback. It is a no-op before Ready and while
// already Playing. At Ended it returns ErrEnded.
func (c *Controller) Play() error {
	c.cmdMu.Lock()
	defer c.cmdMu.Unlock()

	c.mu.Lock()
	switch c.state {
	case StateReady, StatePaused:
	case StateEnded:
		c.mu.Unlock()
		return ErrEnded
	default:
		c.mu.Unlock()
		return nil
	}
	prev := c.state
	c.state = StatePlaying
	track, gen := c.track, c.binding
	snap, notify := c.snapshotLocked(), c.onChange
	c.mu.Unlock()
	emit(notify, snap)

	if track == nil {
		return nil
	}
	if err := track.Play(); err != nil {
		c.revert(gen, StatePlaying, prev)
		return services.Wrap(services.ErrPlaybackLoad, "playback", "play", "", err)
	}
	return nil
}

// Pause pauses playback. It is a no-op unless Playing.
func (c *Controller) Pause() error {
	c.cmdMu.Lock()
	defer c.cmdMu.Unlock()

	c.mu.Lock()
	if c.state != StatePlaying {
		c.mu.Unlock()
		return nil
	}
	c.state = StatePaused
	track, gen := c.track, c.binding
	snap, notify := c.snapshotLocked(), c.onChange
	c.mu.Unlock()
	emit(notify, snap)

	if track == nil {
		return nil
	}
	if err := track.Pause(); err != nil {
		c.revert(gen, StatePaused, StatePlaying)
		return services.Wrap(services.ErrPlaybackLoad, "playback", "pause", "", err)
	}
	return nil
}

// Toggle pauses when Playing and plays otherwise.
func (c *Controller) Toggle() error {
	if c.State() == StatePlaying {
		return c.Pause()
	}
	return c.Play()
}

// Seek moves the playback position to seconds, clamped to [0, duration].
// The position updates immediately. Seeking before the duration is known is
// ignored; seeking at Ended moves to Paused.
func (c *Controller) Seek(seconds float64) error {
	if !finite(seconds) {
		return services.Wrap(services.ErrValidation, "playback", "seek", "position must be finite", nil)
	}

	c.cmdMu.Lock()
	defer c.cmdMu.Unlock()

	c.mu.Lock()
	if !c.state.Seekable() {
		c.mu.Unlock()
		return nil
	}
	target := clamp(seconds, 0, c.duration)
	c.position = target
	if c.state == StateEnded {
		c.state = StatePaused
	}
	track := c.track
	snap, notify := c.snapshotLocked(), c.onChange
	c.mu.Unlock()
	emit(notify, snap)

	if track == nil {
		return nil
	}
	if err := track.Seek(target); err != nil {
		return services.Wrap(services.ErrPlaybackLoad, "playback", "seek", "", err)
	}
	return nil
}

// SeekBy moves the position relative to the current one.
func (c *Controller) SeekBy(deltaSeconds float64) error {
	return c.Seek(c.Snapshot().PositionSeconds + deltaSeconds)
}

// Release stops playback, closes the track and returns to Empty. It is safe
// to call in any state and repeatedly.
func (c *Controller) Release() {
	c.cmdMu.Lock()
	defer c.cmdMu.Unlock()

	c.mu.Lock()
	if c.state == StateEmpty && c.track == nil && c.lastErr == nil {
		c.mu.Unlock()
		return
	}
	old := c.detachLocked()
	snap, notify := c.snapshotLocked(), c.onChange
	c.mu.Unlock()

	c.closeTrack(old, "released")
	emit(notify, snap)
}

// Close releases the session.
func (c *Controller) Close() {
	c.Release()
}

// OnMetadataResolved applies a metadata callback to the current load.
func (c *Controller) OnMetadataResolved(durationSeconds float64) {
	c.metadataResolved(c.currentBinding(), durationSeconds)
}

// OnTimeUpdate applies a time update to the current load.
func (c *Controller) OnTimeUpdate(positionSeconds float64) {
	c.timeUpdate(c.currentBinding(), positionSeconds)
}

// OnEnded applies an end-of-media callback to the current load.
func (c *Controller) OnEnded() {
	c.ended(c.currentBinding())
}

// OnLoadError applies a load failure to the current load.
func (c *Controller) OnLoadError(err error) {
	c.loadFailed(c.currentBinding(), err)
}

func (c *Controller) currentBinding() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.binding
}

// detachLocked invalidates the current binding and resets to Empty,
// returning the track the caller must close.
func (c *Controller) detachLocked() Track {
	old := c.track
	c.track = nil
	c.binding++
	c.state = StateEmpty
	c.source = ""
	c.position = 0
	c.duration = 0
	c.lastErr = nil
	return old
}

func (c *Controller) revert(gen uint64, from, to State) {
	c.mu.Lock()
	if gen != c.binding || c.state != from {
		c.mu.Unlock()
		return
	}
	c.state = to
	snap, notify := c.snapshotLocked(), c.onChange
	c.mu.Unlock()
	emit(notify, snap)
}

func (c *Controller) metadataResolved(gen uint64, durationSeconds float64) {
	c.mu.Lock()
	if !c.acceptLocked(gen, "metadata_resolved") {
		c.mu.Unlock()
		return
	}
	if c.state != StateLoading {
		state := c.state
		c.mu.Unlock()
		c.inconsistent("metadata resolved outside loading", state)
		return
	}
	if !finite(durationSeconds) || durationSeconds < 0 {
		durationSeconds = 0
	}
	c.duration = durationSeconds
	c.position = 0
	c.state = StateReady
	snap, notify := c.snapshotLocked(), c.onChange
	c.mu.Unlock()

	c.logger.Info("audio ready",
		logging.Seconds("duration_seconds", durationSeconds),
		logging.String(logging.FieldEventType, "playback_ready"),
	)
	emit(notify, snap)
}

func (c *Controller) timeUpdate(gen uint64, positionSeconds float64) {
	if !finite(positionSeconds) {
		return
	}
	c.mu.Lock()
	if !c.acceptLocked(gen, "time_update") {
		c.mu.Unlock()
		return
	}
	switch c.state {
	case StateReady, StatePlaying, StatePaused:
	default:
		c.mu.Unlock()
		return
	}
	c.position = clamp(positionSeconds, 0, c.duration)
	snap, notify := c.snapshotLocked(), c.onChange
	c.mu.Unlock()
	emit(notify, snap)
}

func (c *Controller) ended(gen uint64) {
	c.mu.Lock()
	if !c.acceptLocked(gen, "ended") {
		c.mu.Unlock()
		return
	}
	// Paused covers an exit that raced a pause.
	switch c.state {
	case StatePlaying, StatePaused:
	case StateEnded:
		c.mu.Unlock()
		return
	default:
		state := c.state
		c.mu.Unlock()
		c.inconsistent("ended while not playing", state)
		return
	}
	c.state = StateEnded
	c.position = c.duration
	snap, notify := c.snapshotLocked(), c.onChange
	c.mu.Unlock()

	c.logger.Info("playback ended", logging.String(logging.FieldEventType, "playback_ended"))
	emit(notify, snap)
}

func (c *Controller) loadFailed(gen uint64, cause error) {
	c.mu.Lock()
	if !c.acceptLocked(gen, "load_failed") {
		c.mu.Unlock()
		return
	}
	if c.state == StateEmpty || c.state == StateEnded {
		state := c.state
		c.mu.Unlock()
		c.inconsistent("load error outside an active load", state)
		return
	}
	source := c.source
	old := c.detachLocked()
	c.lastErr = services.Wrap(services.ErrPlaybackLoad, "playback", "load", source, cause)
	err := c.lastErr
	snap, notify := c.snapshotLocked(), c.onChange
	c.mu.Unlock()

	logging.WarnWithContext(c.logger, "audio load failed", "playback_load_failed",
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "verify the artifact URL is reachable and the player is installed"),
		logging.String(logging.FieldImpact, "the generated podcast cannot be played"),
	)
	// Callbacks may arrive on the track's own goroutine; close asynchronously
	// so Close can wait for that goroutine.
	if old != nil {
		go c.closeTrack(old, "load failed")
	}
	emit(notify, snap)
}

// acceptLocked reports whether a callback from binding gen may be applied.
func (c *Controller) acceptLocked(gen uint64, event string) bool {
	if gen == c.binding {
		return true
	}
	c.logger.Debug("dropping callback from released load",
		logging.String("callback", event),
		logging.Error(services.ErrInconsistency),
		logging.String(logging.FieldEventType, "playback_stale_callback"),
	)
	return false
}

func (c *Controller) inconsistent(msg string, state State) {
	logging.WarnWithContext(c.logger, msg, "playback_inconsistency",
		logging.String(logging.FieldState, string(state)),
		logging.Error(services.ErrInconsistency),
		logging.String(logging.FieldErrorHint, "the media player reported events out of order"),
		logging.String(logging.FieldImpact, "event ignored"),
	)
}

func (c *Controller) closeTrack(track Track, reason string) {
	if track == nil {
		return
	}
	if err := track.Close(); err != nil {
		c.logger.Debug("track close failed",
			logging.String("reason", reason),
			logging.Error(err),
		)
	}
}

func emit(fn func(Snapshot), snap Snapshot) {
	if fn != nil {
		fn(snap)
	}
}

// binding routes primitive callbacks to the load that created it.
type binding struct {
	c   *Controller
	gen uint64
}

func (b *binding) MetadataResolved(durationSeconds float64) { b.c.metadataResolved(b.gen, durationSeconds) }

func (b *binding) TimeUpdate(positionSeconds float64) { b.c.timeUpdate(b.gen, positionSeconds) }

func (b *binding) Ended() { b.c.ended(b.gen) }

func (b *binding) LoadFailed(err error) { b.c.loadFailed(b.gen, err) }
