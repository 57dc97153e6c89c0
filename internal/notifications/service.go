package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"podgen/internal/config"
)

const userAgent = "podgen/0.1.0"

// Event identifies a notification type.
type Event string

const (
	EventPodcastReady     Event = "podcast_ready"
	EventGenerationFailed Event = "generation_failed"
	EventPlaybackFailed   Event = "playback_failed"
	EventTest             Event = "test"
)

// Payload carries event fields. Recognised keys: topic, voice, tone,
// duration, error, url.
type Payload map[string]any

// Service publishes events.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
		ready:    cfg.Notifications.Ready,
		failures: cfg.Notifications.Failures,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	ready    bool
	failures bool
}

func (n *ntfyService) Publish(ctx context.Context, event Event, data Payload) error {
	if n == nil {
		return nil
	}
	msg, ok := n.format(event, data)
	if !ok {
		return nil
	}
	return n.send(ctx, msg)
}

func (n *ntfyService) format(event Event, data Payload) (payload, bool) {
	switch event {
	case EventPodcastReady:
		if !n.ready {
			return payload{}, false
		}
		message := fmt.Sprintf("🎧 Podcast ready: %s", textValue(data, "topic", "untitled"))
		if details := describeParameters(data); details != "" {
			message = fmt.Sprintf("%s (%s)", message, details)
		}
		if url := textValue(data, "url", ""); url != "" {
			message = fmt.Sprintf("%s\n%s", message, url)
		}
		return payload{
			title:   "Podgen - Ready",
			message: message,
			tags:    []string{"podgen", "podcast", "ready"},
		}, true
	case EventGenerationFailed:
		if !n.failures {
			return payload{}, false
		}
		return payload{
			title:    "Podgen - Generation Failed",
			message:  fmt.Sprintf("❌ Could not generate %q: %s", textValue(data, "topic", "untitled"), textValue(data, "error", "unknown error")),
			tags:     []string{"podgen", "generation", "failed"},
			priority: "high",
		}, true
	case EventPlaybackFailed:
		if !n.failures {
			return payload{}, false
		}
		return payload{
			title:   "Podgen - Playback Failed",
			message: fmt.Sprintf("⚠️ Playback failed: %s", textValue(data, "error", "unknown error")),
			tags:    []string{"podgen", "playback", "failed"},
		}, true
	case EventTest:
		return payload{
			title:    "Podgen - Test",
			message:  "🧪 Notification system test",
			tags:     []string{"podgen", "test"},
			priority: "low",
		}, true
	default:
		return payload{}, false
	}
}

func describeParameters(data Payload) string {
	var parts []string
	if voice := textValue(data, "voice", ""); voice != "" {
		parts = append(parts, voice)
	}
	if tone := textValue(data, "tone", ""); tone != "" {
		parts = append(parts, tone)
	}
	if duration := textValue(data, "duration", ""); duration != "" {
		parts = append(parts, duration+" min")
	}
	return strings.Join(parts, ", ")
}

func textValue(data Payload, key, fallback string) string {
	if data == nil {
		return fallback
	}
	value, ok := data[key]
	if !ok || value == nil {
		return fallback
	}
	text := strings.TrimSpace(fmt.Sprint(value))
	if text == "" {
		return fallback
	}
	return text
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
