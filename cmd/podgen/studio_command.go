package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"

	"github.com/mattn/go-shellwords"
	"github.com/spf13/cobra"

	"podgen/internal/playback"
	"podgen/internal/podcast"
	"podgen/internal/request"
	"podgen/internal/session"
)

const studioHelp = `Commands:
  topic <text>        set the topic
  voice <name>        set the voice
  tone <name>         set the tone
  duration <minutes>  set the target length
  form                show the current form
  submit [topic]      generate a podcast from the form
  wait                block until the request and its side effects finish
  play | pause | toggle
  seek <sec|+sec|-sec>
  reset               clear the request, the player and the form
  download            print the download URL
  status              show the session state
  help                show this help
  quit                leave the studio`

var (
	errQuit          = errors.New("quit")
	errSubmitPending = errors.New("a podcast is already being generated; reset to start over")
)

func newStudioCommand(ctx *commandContext) *cobra.Command {
	var noAutoplay bool

	cmd := &cobra.Command{
		Use:   "studio",
		Short: "Interactive session: edit the form, generate and control playback",
		RunE: func(cmd *cobra.Command, args []string) error {
			defer ctx.close()

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			lock, err := session.AcquireLock(cfg.SessionLockPath())
			if err != nil {
				return err
			}
			defer lock.Release()

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			coord, err := ctx.newSession(sessionOptions{autoplay: cfg.Playback.Autoplay && !noAutoplay})
			if err != nil {
				return err
			}
			defer coord.Close()

			out := &syncWriter{w: cmd.OutOrStdout()}
			s := &studio{coord: coord, out: out}
			coord.OnChange(s.observe)

			fmt.Fprintf(out, "podgen studio (session %s). Type \"help\" for commands.\n", coord.ID())
			return s.run(runCtx, cmd.InOrStdin())
		},
	}
	cmd.Flags().BoolVar(&noAutoplay, "no-autoplay", false, "Do not start playback automatically when a podcast is ready")
	return cmd
}

type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

type studio struct {
	coord *session.Coordinator
	out   io.Writer

	mu          sync.Mutex
	lastStatus  request.Status
	lastState   playback.State
	lastSeq     uint64
	lastMessage string
	lastURL     string
}

// observe prints request and playback transitions as they happen.
func (s *studio) observe(view session.View) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if view.RequestStatus != s.lastStatus {
		if view.Placeholder {
			fmt.Fprintln(s.out, "Generating your podcast...")
		}
		s.lastStatus = view.RequestStatus
	}
	if view.DownloadURL != s.lastURL {
		if view.DownloadURL != "" {
			fmt.Fprintf(s.out, "Audio: %s\n", view.DownloadURL)
		}
		s.lastURL = view.DownloadURL
	}
	if view.Playback.Seq >= s.lastSeq && view.Playback.State != s.lastState {
		if view.Playback.State != playback.StateEmpty || s.lastState != "" {
			fmt.Fprintf(s.out, "player: %s %s / %s\n", view.Playback.State,
				playback.FormatTime(view.Playback.PositionSeconds), playback.FormatTime(view.Playback.DurationSeconds))
		}
		s.lastState = view.Playback.State
	}
	if view.Playback.Seq > s.lastSeq {
		s.lastSeq = view.Playback.Seq
	}
	if view.Message != s.lastMessage {
		if view.Message != "" {
			fmt.Fprintln(s.out, view.Message)
		}
		s.lastMessage = view.Message
	}
}

func (s *studio) run(ctx context.Context, in io.Reader) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if err := s.exec(ctx, line); err != nil {
				if errors.Is(err, errQuit) {
					return nil
				}
				fmt.Fprintf(s.out, "error: %v\n", err)
			}
		}
	}
}

func (s *studio) exec(ctx context.Context, line string) error {
	args, err := shellwords.Parse(strings.TrimSpace(line))
	if err != nil {
		return err
	}
	if len(args) == 0 {
		return nil
	}
	name, rest := strings.ToLower(args[0]), args[1:]
	text := strings.Join(rest, " ")

	switch name {
	case "help", "?":
		fmt.Fprintln(s.out, studioHelp)
	case "quit", "exit", "q":
		return errQuit
	case "topic":
		s.coord.UpdateForm(func(p *podcast.Parameters) { p.Topic = text })
	case "voice":
		voice, err := podcast.ParseVoice(text)
		if err != nil {
			return err
		}
		s.coord.UpdateForm(func(p *podcast.Parameters) { p.Voice = voice })
	case "tone":
		tone, err := podcast.ParseTone(text)
		if err != nil {
			return err
		}
		s.coord.UpdateForm(func(p *podcast.Parameters) { p.Tone = tone })
	case "duration":
		minutes, err := strconv.Atoi(text)
		if err != nil {
			return fmt.Errorf("duration must be a whole number of minutes")
		}
		s.coord.UpdateForm(func(p *podcast.Parameters) { p.DurationMinutes = minutes })
	case "form":
		form := s.coord.Form()
		fmt.Fprintf(s.out, "topic=%q voice=%s tone=%s duration=%d\n", form.Topic, form.Voice, form.Tone, form.DurationMinutes)
	case "submit", "generate":
		if !s.coord.View().CanSubmit {
			return errSubmitPending
		}
		if text != "" {
			s.coord.UpdateForm(func(p *podcast.Parameters) { p.Topic = text })
		}
		_, err := s.coord.SubmitForm()
		var verr *podcast.ValidationError
		if errors.As(err, &verr) {
			// Already surfaced as the session message.
			return nil
		}
		return err
	case "wait":
		return s.coord.Wait(ctx)
	case "play":
		return s.coord.Play()
	case "pause":
		return s.coord.Pause()
	case "toggle", "space":
		return s.coord.Toggle()
	case "seek":
		return s.seek(text)
	case "reset":
		s.coord.ResetAll()
		fmt.Fprintln(s.out, "Session reset.")
	case "download":
		url := s.coord.DownloadURL()
		if url == "" {
			return errors.New("no podcast available to download")
		}
		fmt.Fprintln(s.out, url)
	case "status":
		s.printStatus()
	default:
		return fmt.Errorf("unknown command %q (type \"help\")", name)
	}
	return nil
}

func (s *studio) seek(arg string) error {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return errors.New("seek needs a position in seconds")
	}
	value, err := strconv.ParseFloat(arg, 64)
	if err != nil {
		return fmt.Errorf("invalid seek position %q", arg)
	}
	if strings.HasPrefix(arg, "+") || strings.HasPrefix(arg, "-") {
		return s.coord.SeekBy(value)
	}
	return s.coord.Seek(value)
}

func (s *studio) printStatus() {
	view := s.coord.View()
	lines := []string{
		fmt.Sprintf("request:  %s", view.RequestStatus),
		fmt.Sprintf("playback: %s", renderProgress(view.Playback)),
		fmt.Sprintf("form:     %q %s/%s %d min", view.Form.Topic, view.Form.Voice, view.Form.Tone, view.Form.DurationMinutes),
	}
	if view.Placeholder {
		lines = append(lines, "Generating your podcast...")
	}
	if view.DownloadURL != "" {
		lines = append(lines, "download: "+view.DownloadURL)
	}
	if view.Message != "" {
		lines = append(lines, "message:  "+view.Message)
	}
	fmt.Fprintln(s.out, strings.Join(lines, "\n"))
}
