package player

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/mattn/go-shellwords"

	"podgen/internal/logging"
	"podgen/internal/playback"
	"podgen/internal/services"
)

const (
	defaultProbeTimeout = 30 * time.Second
	defaultTickInterval = 250 * time.Millisecond
)

// ErrClosed is returned by track commands issued after Close.
var ErrClosed = errors.New("track closed")

// Config controls how the player launches processes.
type Config struct {
	// Command is split with shell quoting rules. The seek offset and the
	// source are appended.
	Command       string
	FFprobeBinary string
	ProbeTimeout  time.Duration
	TickInterval  time.Duration
}

// Player opens tracks backed by an external player process.
type Player struct {
	argv   []string
	cfg    Config
	logger *slog.Logger
}

// New parses the player command and returns a Player.
func New(cfg Config, logger *slog.Logger) (*Player, error) {
	parser := shellwords.NewParser()
	argv, err := parser.Parse(strings.TrimSpace(cfg.Command))
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "player", "parse command", "Player command could not be parsed", err)
	}
	if len(argv) == 0 {
		return nil, services.Wrap(services.ErrConfiguration, "player", "parse command", "Player command is empty", nil)
	}
	if strings.TrimSpace(cfg.FFprobeBinary) == "" {
		cfg.FFprobeBinary = "ffprobe"
	}
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = defaultProbeTimeout
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = defaultTickInterval
	}
	return &Player{
		argv:   argv,
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "player"),
	}, nil
}

// Open starts probing source and returns a track in the stopped state.
// Metadata or a load failure is reported to events from a background
// goroutine.
func (p *Player) Open(source string, events playback.Events) (playback.Track, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return nil, services.Wrap(services.ErrPlaybackLoad, "player", "open", "Audio source is empty", nil)
	}
	if events == nil {
		return nil, errors.New("player open: nil events")
	}
	ctx, cancel := context.WithCancel(context.Background())
	t := &track{
		player: p,
		source: source,
		events: events,
		cancel: cancel,
		logger: p.logger.With(slog.String("source", source)),
	}
	go t.probe(ctx)
	return t, nil
}

// Command returns the parsed player command.
func (p *Player) Command() []string {
	return append([]string(nil), p.argv...)
}

func (p *Player) args(source string, offset float64) []string {
	args := append([]string(nil), p.argv[1:]...)
	if offset > 0 {
		args = append(args, "-ss", formatOffset(offset))
	}
	return append(args, source)
}

func formatOffset(seconds float64) string {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%.3f", seconds)
}
