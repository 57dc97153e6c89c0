package player

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"os/exec"
	"sync"
	"time"

	"podgen/internal/logging"
	"podgen/internal/media/ffprobe"
	"podgen/internal/playback"
	"podgen/internal/services"
)

type track struct {
	player *Player
	source string
	events playback.Events
	cancel context.CancelFunc
	logger *slog.Logger

	mu        sync.Mutex
	closed    bool
	duration  float64
	position  float64
	startedAt time.Time
	cmd       *exec.Cmd
	stop      chan struct{}
	// run identifies the current process; watchers of older runs stay quiet.
	run uint64
}

func (t *track) probe(ctx context.Context) {
	probeCtx, cancel := context.WithTimeout(ctx, t.player.cfg.ProbeTimeout)
	defer cancel()

	duration, err := ffprobe.Duration(probeCtx, t.player.cfg.FFprobeBinary, t.source)
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		t.logger.Warn("probe failed",
			logging.String(logging.FieldEventType, "probe_failed"),
			logging.String(logging.FieldErrorHint, "check that the artifact exists and ffprobe is installed"),
			logging.Error(err),
		)
		t.events.LoadFailed(services.Wrap(services.ErrPlaybackLoad, "player", "probe", "Audio could not be loaded", err))
		return
	}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	if !math.IsNaN(duration) && !math.IsInf(duration, 0) && duration > 0 {
		t.duration = duration
	}
	t.mu.Unlock()

	t.logger.Debug("probe complete", logging.Seconds("duration_seconds", duration))
	t.events.MetadataResolved(duration)
}

func (t *track) Play() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrClosed
	}
	if t.cmd != nil {
		return nil
	}
	return t.startLocked()
}

func (t *track) Pause() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrClosed
	}
	if t.cmd == nil {
		return nil
	}
	t.position = t.currentLocked()
	t.stopLocked()
	return nil
}

func (t *track) Seek(positionSeconds float64) error {
	if math.IsNaN(positionSeconds) || math.IsInf(positionSeconds, 0) {
		return fmt.Errorf("seek: invalid position %v", positionSeconds)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrClosed
	}
	t.position = t.clampLocked(positionSeconds)
	if t.cmd == nil {
		return nil
	}
	t.stopLocked()
	return t.startLocked()
}

func (t *track) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	t.cancel()
	if t.cmd != nil {
		t.stopLocked()
	}
	return nil
}

func (t *track) startLocked() error {
	if t.duration > 0 && t.position >= t.duration {
		t.position = 0
	}
	cmd := exec.Command(t.player.argv[0], t.player.args(t.source, t.position)...)
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = os.Stderr
	configureProcess(cmd)
	if err := cmd.Start(); err != nil {
		return services.Wrap(services.ErrPlaybackLoad, "player", "start", "Player could not be started", err)
	}

	t.run++
	t.cmd = cmd
	t.startedAt = time.Now()
	t.stop = make(chan struct{})
	t.logger.Debug("player started",
		logging.Int("pid", cmd.Process.Pid),
		logging.Seconds("offset_seconds", t.position),
	)

	go t.watch(cmd, t.run)
	go t.tick(t.run, t.stop)
	return nil
}

// stopLocked terminates the running process. Its watcher sees a newer run
// and exits without reporting.
func (t *track) stopLocked() {
	cmd := t.cmd
	t.run++
	t.cmd = nil
	close(t.stop)
	if err := terminate(cmd); err != nil {
		t.logger.Debug("terminate player", logging.Error(err))
	}
}

func (t *track) watch(cmd *exec.Cmd, run uint64) {
	err := cmd.Wait()

	t.mu.Lock()
	if t.run != run || t.closed {
		t.mu.Unlock()
		return
	}
	t.run++
	t.cmd = nil
	close(t.stop)
	duration := t.duration
	t.position = 0
	t.mu.Unlock()

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			err = fmt.Errorf("player exited with status %d", exitErr.ExitCode())
		}
		t.events.LoadFailed(services.Wrap(services.ErrPlaybackLoad, "player", "play", "Audio playback failed", err))
		return
	}
	if duration > 0 {
		t.events.TimeUpdate(duration)
	}
	t.events.Ended()
}

func (t *track) tick(run uint64, stop <-chan struct{}) {
	ticker := time.NewTicker(t.player.cfg.TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			t.mu.Lock()
			if t.run != run {
				t.mu.Unlock()
				return
			}
			position := t.currentLocked()
			t.mu.Unlock()
			t.events.TimeUpdate(position)
		}
	}
}

func (t *track) currentLocked() float64 {
	position := t.position
	if t.cmd != nil {
		position += time.Since(t.startedAt).Seconds()
	}
	return t.clampLocked(position)
}

func (t *track) clampLocked(position float64) float64 {
	if position < 0 {
		return 0
	}
	if t.duration > 0 && position > t.duration {
		return t.duration
	}
	return position
}
