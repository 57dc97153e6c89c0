package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"podgen/internal/podcast"
	"podgen/internal/services"
	"podgen/internal/textutil"
)

const (
	generatePath       = "api/v1/generate-podcast"
	downloadPath       = "api/v1/download"
	voicesPath         = "api/v1/voices"
	tonesPath          = "api/v1/tones"
	defaultHTTPTimeout = 180 * time.Second
	defaultUserAgent   = "podgen/dev"
	snippetLimit       = 256
)

// Config captures the runtime settings required to talk to the service.
type Config struct {
	BaseURL   string
	UserAgent string
	// Timeout bounds a single HTTP exchange. The request controller applies
	// its own ceiling on top through the context.
	Timeout time.Duration
}

// Client talks to the podcast generation service.
type Client struct {
	cfg        Config
	httpClient *http.Client
	tokens     TokenSource
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTokenSource attaches credentials sent as a bearer token.
func WithTokenSource(tokens TokenSource) Option {
	return func(c *Client) {
		c.tokens = tokens
	}
}

// NewClient constructs a generation client using the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	client := &Client{
		cfg: Config{
			BaseURL:   strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
			UserAgent: strings.TrimSpace(cfg.UserAgent),
			Timeout:   timeout,
		},
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.cfg.UserAgent == "" {
		client.cfg.UserAgent = defaultUserAgent
	}
	return client
}

// Result describes a successful generation.
type Result struct {
	ArtifactRef     string
	DurationSeconds float64
	Topic           string
	VoiceUsed       string
}

type generateRequest struct {
	Topic           string `json:"topic"`
	Tone            string `json:"tone"`
	Voice           string `json:"voice"`
	DurationMinutes int    `json:"duration_minutes"`
}

type generateResponse struct {
	Success         *bool    `json:"success"`
	AudioFilePath   *string  `json:"audio_file_path"`
	DurationSeconds *float64 `json:"duration_seconds"`
	ErrorMessage    *string  `json:"error_message"`
	Topic           *string  `json:"topic"`
	VoiceUsed       *string  `json:"voice_used"`
}

// Generate issues a single generation request. It never retries. Rejections,
// malformed payloads and transport failures carry services.ErrRequestFailure;
// an expired context deadline carries services.ErrTimeout.
func (c *Client) Generate(ctx context.Context, params podcast.Parameters) (Result, error) {
	var empty Result
	payload := generateRequest{
		Topic:           params.Topic,
		Tone:            string(params.Tone),
		Voice:           string(params.Voice),
		DurationMinutes: params.DurationMinutes,
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return empty, services.Wrap(services.ErrRequestFailure, "generator", "encode", "encode body", err)
	}
	body, err := c.do(ctx, http.MethodPost, generatePath, bytes.NewReader(encoded))
	if err != nil {
		return empty, err
	}

	var decoded generateResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return empty, services.Wrap(services.ErrRequestFailure, "generator", "decode",
			"malformed response "+summarizePayloadSnippet(string(body)), err)
	}
	if decoded.Success == nil {
		return empty, services.Wrap(services.ErrRequestFailure, "generator", "decode", "response missing success flag", nil)
	}
	if !*decoded.Success {
		message := "generation rejected"
		if decoded.ErrorMessage != nil && strings.TrimSpace(*decoded.ErrorMessage) != "" {
			message = strings.TrimSpace(*decoded.ErrorMessage)
		}
		return empty, &RejectedError{Message: message}
	}
	if decoded.AudioFilePath == nil || strings.TrimSpace(*decoded.AudioFilePath) == "" {
		return empty, services.Wrap(services.ErrRequestFailure, "generator", "decode", "success without audio_file_path", nil)
	}

	result := Result{ArtifactRef: strings.TrimSpace(*decoded.AudioFilePath)}
	if decoded.DurationSeconds != nil {
		result.DurationSeconds = *decoded.DurationSeconds
	}
	if decoded.Topic != nil {
		result.Topic = *decoded.Topic
	}
	if decoded.VoiceUsed != nil {
		result.VoiceUsed = *decoded.VoiceUsed
	}
	return result, nil
}

// RejectedError reports a response with success=false. It matches
// services.ErrRequestFailure with errors.Is.
type RejectedError struct {
	Message string
}

func (e *RejectedError) Error() string {
	return "generator: rejected: " + e.Message
}

func (e *RejectedError) Unwrap() error {
	return services.ErrRequestFailure
}

// DownloadURL resolves an artifact reference to the URL serving its audio.
// Only the final path element of ref is used.
func (c *Client) DownloadURL(ref string) (string, error) {
	name := artifactName(ref)
	if name == "" {
		return "", services.Wrap(services.ErrValidation, "generator", "download url", "empty artifact reference", nil)
	}
	endpoint, err := url.JoinPath(c.cfg.BaseURL, downloadPath, name)
	if err != nil {
		return "", services.Wrap(services.ErrConfiguration, "generator", "download url", "build url", err)
	}
	return endpoint, nil
}

// Download streams the artifact into w and returns the number of bytes copied.
func (c *Client) Download(ctx context.Context, ref string, w io.Writer) (int64, error) {
	name := artifactName(ref)
	if name == "" {
		return 0, services.Wrap(services.ErrValidation, "generator", "download", "empty artifact reference", nil)
	}
	resp, err := c.send(ctx, http.MethodGet, path.Join(downloadPath, name), nil)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, services.Wrap(services.ErrRequestFailure, "generator", "download", "read body", err)
	}
	return n, nil
}

// Voices fetches the voice catalog published by the service.
func (c *Client) Voices(ctx context.Context) ([]podcast.Entry, error) {
	return c.catalog(ctx, voicesPath)
}

// Tones fetches the tone catalog published by the service.
func (c *Client) Tones(ctx context.Context) ([]podcast.Entry, error) {
	return c.catalog(ctx, tonesPath)
}

func (c *Client) catalog(ctx context.Context, endpoint string) ([]podcast.Entry, error) {
	body, err := c.do(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	var entries []podcast.Entry
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, services.Wrap(services.ErrRequestFailure, "generator", "catalog", "decode "+endpoint, err)
	}
	return entries, nil
}

// Ping checks that the service answers its catalog endpoint.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodGet, voicesPath, nil)
	return err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body io.Reader) ([]byte, error) {
	resp, err := c.send(ctx, method, endpoint, body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, c.transportError(ctx, "read body", err)
	}
	return data, nil
}

// send performs the exchange and converts non-2xx statuses into errors. The
// caller owns the response body on success.
func (c *Client) send(ctx context.Context, method, endpoint string, body io.Reader) (*http.Response, error) {
	target, err := url.JoinPath(c.cfg.BaseURL, endpoint)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "generator", "build url", c.cfg.BaseURL, err)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, services.Wrap(services.ErrRequestFailure, "generator", "new request", "", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	if c.tokens != nil {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return nil, services.Wrap(services.ErrConfiguration, "generator", "credentials", "read token", err)
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, c.transportError(ctx, "http error", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		defer resp.Body.Close()
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return nil, services.Wrap(services.ErrRequestFailure, "generator", method+" "+endpoint, "",
			&httpStatusError{StatusCode: resp.StatusCode, Detail: extractDetail(data)})
	}
	return resp, nil
}

func (c *Client) transportError(ctx context.Context, op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || (ctx.Err() != nil && errors.Is(ctx.Err(), context.DeadlineExceeded)) {
		return services.Wrap(services.ErrTimeout, "generator", op, "deadline exceeded", err)
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return services.Wrap(services.ErrTimeout, "generator", op, fmt.Sprintf("timeout=%s", c.cfg.Timeout), err)
	}
	return services.Wrap(services.ErrRequestFailure, "generator", op, "", err)
}

type httpStatusError struct {
	StatusCode int
	Detail     string
}

func (e *httpStatusError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("http %d", e.StatusCode)
	}
	return fmt.Sprintf("http %d: %s", e.StatusCode, e.Detail)
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var statusErr *httpStatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode
	}
	return 0
}

// extractDetail reads FastAPI style {"detail": ...} bodies, falling back to a
// snippet of the raw body.
func extractDetail(body []byte) string {
	var parsed struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil && len(parsed.Detail) > 0 {
		var text string
		if err := json.Unmarshal(parsed.Detail, &text); err == nil {
			return strings.TrimSpace(text)
		}
		var items []struct {
			Msg string `json:"msg"`
		}
		if err := json.Unmarshal(parsed.Detail, &items); err == nil && len(items) > 0 {
			msgs := make([]string, 0, len(items))
			for _, item := range items {
				if msg := strings.TrimSpace(item.Msg); msg != "" {
					msgs = append(msgs, msg)
				}
			}
			return strings.Join(msgs, "; ")
		}
	}
	return summarizePayloadSnippet(string(body))
}

func artifactName(ref string) string {
	ref = strings.TrimSpace(strings.ReplaceAll(ref, "\\", "/"))
	if idx := strings.LastIndex(ref, "/"); idx >= 0 {
		ref = ref[idx+1:]
	}
	if ref == "." || ref == ".." {
		return ""
	}
	return ref
}

func summarizePayloadSnippet(body string) string {
	return textutil.Truncate(strings.Join(strings.Fields(body), " "), snippetLimit)
}
