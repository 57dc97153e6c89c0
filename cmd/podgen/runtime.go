package main

import (
	"errors"
	"strings"
	"time"

	"podgen/internal/logging"
	"podgen/internal/notifications"
	"podgen/internal/playback"
	"podgen/internal/player"
	"podgen/internal/podcast"
	"podgen/internal/request"
	"podgen/internal/session"
)

var timeNow = time.Now

var errHeadless = errors.New("playback is disabled for this session")

// sessionOptions tweaks how newSession wires the coordinator.
type sessionOptions struct {
	autoplay bool
	headless bool
}

// newSession builds the controllers and the coordinator from the loaded
// configuration. Callers own the returned coordinator and must Close it.
func (c *commandContext) newSession(opts sessionOptions) (*session.Coordinator, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger := c.loggerValue()

	client, err := c.generatorClient()
	if err != nil {
		return nil, err
	}

	var media playback.Media = detachedMedia{}
	if !opts.headless {
		p, err := player.New(player.Config{
			Command:       cfg.Playback.PlayerCommand,
			FFprobeBinary: cfg.Playback.FFprobeBinary,
			ProbeTimeout:  cfg.ProbeTimeout(),
			TickInterval:  cfg.TimeUpdateInterval(),
		}, logger)
		if err != nil {
			return nil, err
		}
		media = p
	}

	req := request.NewController(client, request.Config{
		Timeout:            cfg.RequestTimeout(),
		MaxDurationMinutes: cfg.Generation.MaxDurationMinutes,
	}, logger)
	play := playback.NewController(media, logger)

	sessionOpts := session.Options{
		Defaults: formDefaults(cfg.Generation.DefaultVoice, cfg.Generation.DefaultTone, cfg.Generation.DefaultDurationMinutes),
		Autoplay: opts.autoplay,
		Headless: opts.headless,
		Notifier: notifications.NewService(cfg),
		Logger:   logger,
	}
	store, err := c.historyValue()
	if err != nil {
		logger.Warn("history unavailable; generations will not be recorded", logging.Error(err))
	} else if store != nil {
		sessionOpts.History = store
	}
	return session.New(req, play, client, sessionOpts), nil
}

func formDefaults(voice, tone string, duration int) podcast.Parameters {
	params := podcast.Defaults()
	if v := podcast.Voice(strings.ToLower(strings.TrimSpace(voice))); v.Valid() {
		params.Voice = v
	}
	if t := podcast.Tone(strings.ToLower(strings.TrimSpace(tone))); t.Valid() {
		params.Tone = t
	}
	if duration > 0 {
		params.DurationMinutes = duration
	}
	return params
}

// detachedMedia backs headless sessions, which never load playback.
type detachedMedia struct{}

func (detachedMedia) Open(string, playback.Events) (playback.Track, error) {
	return nil, errHeadless
}
