package request_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"podgen/internal/logging"
	"podgen/internal/podcast"
	"podgen/internal/request"
	"podgen/internal/services"
	"podgen/internal/services/generator"
)

type reply struct {
	result generator.Result
	err    error
}

type pendingCall struct {
	params podcast.Parameters
	reply  chan reply
}

type fakeGenerator struct {
	calls chan *pendingCall
}

func newFakeGenerator() *fakeGenerator {
	return &fakeGenerator{calls: make(chan *pendingCall, 8)}
}

func (f *fakeGenerator) Generate(ctx context.Context, params podcast.Parameters) (generator.Result, error) {
	call := &pendingCall{params: params, reply: make(chan reply, 1)}
	f.calls <- call
	select {
	case r := <-call.reply:
		return r.result, r.err
	case <-ctx.Done():
		return generator.Result{}, ctx.Err()
	}
}

func (f *fakeGenerator) next(t *testing.T) *pendingCall {
	t.Helper()
	select {
	case call := <-f.calls:
		return call
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for generator call")
		return nil
	}
}

func (f *fakeGenerator) assertNoCall(t *testing.T) {
	t.Helper()
	select {
	case call := <-f.calls:
		t.Fatalf("unexpected generator call %+v", call.params)
	default:
	}
}

type outcomeRecorder struct {
	mu       sync.Mutex
	outcomes []request.Outcome
	ch       chan request.Outcome
}

func newRecorder(c *request.Controller) *outcomeRecorder {
	r := &outcomeRecorder{ch: make(chan request.Outcome, 8)}
	c.OnOutcome(func(o request.Outcome) {
		r.mu.Lock()
		r.outcomes = append(r.outcomes, o)
		r.mu.Unlock()
		r.ch <- o
	})
	return r
}

func (r *outcomeRecorder) next(t *testing.T) request.Outcome {
	t.Helper()
	select {
	case o := <-r.ch:
		return o
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for outcome")
		return request.Outcome{}
	}
}

func (r *outcomeRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.outcomes)
}

func validParams() podcast.Parameters {
	return podcast.Parameters{Topic: "History of tea", Voice: podcast.VoiceFable, Tone: podcast.ToneStorytelling, DurationMinutes: 5}
}

func newController(t *testing.T, gen request.Generator, cfg request.Config) *request.Controller {
	t.Helper()
	c := request.NewController(gen, cfg, logging.NewNop())
	t.Cleanup(c.Close)
	return c
}

func waitIdle(t *testing.T, c *request.Controller) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := c.Wait(ctx); err != nil {
		t.Fatalf("wait for in-flight requests: %v", err)
	}
}

func TestSubmitSucceeds(t *testing.T) {
	gen := newFakeGenerator()
	c := newController(t, gen, request.Config{})
	rec := newRecorder(c)

	handle, err := c.Submit(validParams())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if got := c.Status(); got != request.StatusSubmitting {
		t.Fatalf("expected submitting immediately after submit, got %s", got)
	}
	if !c.IsCurrent(handle) {
		t.Fatal("expected handle to be current")
	}

	call := gen.next(t)
	if call.params.Topic != "History of tea" {
		t.Fatalf("unexpected params %+v", call.params)
	}
	call.reply <- reply{result: generator.Result{ArtifactRef: "tea.mp3", DurationSeconds: 300}}

	outcome := rec.next(t)
	if outcome.Status != request.StatusSucceeded || outcome.ArtifactRef != "tea.mp3" || outcome.Handle != handle {
		t.Fatalf("unexpected outcome %+v", outcome)
	}
	waitIdle(t, c)
	snap := c.Snapshot()
	if snap.Status != request.StatusSucceeded || snap.ArtifactRef != "tea.mp3" || snap.ErrorMessage != "" {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
	if rec.count() != 1 {
		t.Fatalf("expected exactly one outcome, got %d", rec.count())
	}
}

func TestSubmitNormalizesTopic(t *testing.T) {
	gen := newFakeGenerator()
	c := newController(t, gen, request.Config{})
	params := validParams()
	params.Topic = "  History   of tea "
	if _, err := c.Submit(params); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	call := gen.next(t)
	if call.params.Topic != "History of tea" {
		t.Fatalf("expected normalized topic, got %q", call.params.Topic)
	}
	call.reply <- reply{result: generator.Result{ArtifactRef: "x.mp3"}}
}

func TestSubmitInvalidLeavesStateUntouched(t *testing.T) {
	gen := newFakeGenerator()
	c := newController(t, gen, request.Config{})

	params := validParams()
	params.Topic = "   "
	if _, err := c.Submit(params); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if c.Status() != request.StatusIdle {
		t.Fatalf("expected idle, got %s", c.Status())
	}
	gen.assertNoCall(t)

	rec := newRecorder(c)
	if _, err := c.Submit(validParams()); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	gen.next(t).reply <- reply{result: generator.Result{ArtifactRef: "a.mp3"}}
	rec.next(t)

	params = validParams()
	params.DurationMinutes = 11
	if _, err := c.Submit(params); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if snap := c.Snapshot(); snap.Status != request.StatusSucceeded || snap.ArtifactRef != "a.mp3" {
		t.Fatalf("invalid submit must not disturb succeeded state, got %+v", snap)
	}
}

func TestConfiguredDurationCap(t *testing.T) {
	gen := newFakeGenerator()
	c := newController(t, gen, request.Config{MaxDurationMinutes: 30})
	params := validParams()
	params.DurationMinutes = 30
	if _, err := c.Submit(params); err != nil {
		t.Fatalf("expected 30 minutes accepted with cap 30, got %v", err)
	}
	gen.next(t).reply <- reply{result: generator.Result{ArtifactRef: "long.mp3"}}
}

func TestRejectedResponseFails(t *testing.T) {
	gen := newFakeGenerator()
	c := newController(t, gen, request.Config{})
	rec := newRecorder(c)

	if _, err := c.Submit(validParams()); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	gen.next(t).reply <- reply{err: &generator.RejectedError{Message: "TTS quota exhausted"}}

	outcome := rec.next(t)
	if outcome.Status != request.StatusFailed {
		t.Fatalf("expected failed, got %s", outcome.Status)
	}
	if !errors.Is(outcome.Err, services.ErrRequestFailure) {
		t.Fatalf("expected request failure marker, got %v", outcome.Err)
	}
	if outcome.Message != "Failed to generate podcast: TTS quota exhausted" {
		t.Fatalf("unexpected message %q", outcome.Message)
	}
	waitIdle(t, c)
	if snap := c.Snapshot(); snap.Status != request.StatusFailed || snap.ArtifactRef != "" || snap.ErrorMessage == "" {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
}

func TestUnclassifiedErrorBecomesRequestFailure(t *testing.T) {
	gen := newFakeGenerator()
	c := newController(t, gen, request.Config{})
	rec := newRecorder(c)
	if _, err := c.Submit(validParams()); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	gen.next(t).reply <- reply{err: errors.New("connection reset")}
	outcome := rec.next(t)
	if outcome.Status != request.StatusFailed || !errors.Is(outcome.Err, services.ErrRequestFailure) {
		t.Fatalf("unexpected outcome %+v", outcome)
	}
	if outcome.Message != "Error generating podcast. Please try again." {
		t.Fatalf("unexpected message %q", outcome.Message)
	}
}

func TestEmptyArtifactIsFailure(t *testing.T) {
	gen := newFakeGenerator()
	c := newController(t, gen, request.Config{})
	rec := newRecorder(c)
	if _, err := c.Submit(validParams()); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	gen.next(t).reply <- reply{result: generator.Result{}}
	if outcome := rec.next(t); outcome.Status != request.StatusFailed {
		t.Fatalf("expected failed outcome, got %+v", outcome)
	}
}

func TestSupersededResponseIsDropped(t *testing.T) {
	gen := newFakeGenerator()
	c := newController(t, gen, request.Config{})
	rec := newRecorder(c)

	first, err := c.Submit(validParams())
	if err != nil {
		t.Fatalf("Submit first: %v", err)
	}
	firstCall := gen.next(t)

	second, err := c.Submit(validParams())
	if err != nil {
		t.Fatalf("Submit second: %v", err)
	}
	secondCall := gen.next(t)
	if c.IsCurrent(first) || !c.IsCurrent(second) {
		t.Fatal("expected second handle to supersede the first")
	}

	secondCall.reply <- reply{result: generator.Result{ArtifactRef: "second.mp3"}}
	outcome := rec.next(t)
	if outcome.Handle != second || outcome.ArtifactRef != "second.mp3" {
		t.Fatalf("unexpected outcome %+v", outcome)
	}

	firstCall.reply <- reply{result: generator.Result{ArtifactRef: "first.mp3"}}
	waitIdle(t, c)

	if rec.count() != 1 {
		t.Fatalf("expected stale response to be dropped, got %d outcomes", rec.count())
	}
	if snap := c.Snapshot(); snap.ArtifactRef != "second.mp3" {
		t.Fatalf("stale response overwrote state: %+v", snap)
	}
}

func TestResetDuringSubmittingDropsLateResponse(t *testing.T) {
	gen := newFakeGenerator()
	c := newController(t, gen, request.Config{})
	rec := newRecorder(c)

	handle, err := c.Submit(validParams())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	call := gen.next(t)

	c.Reset()
	if c.Status() != request.StatusIdle {
		t.Fatalf("expected idle after reset, got %s", c.Status())
	}
	if c.IsCurrent(handle) {
		t.Fatal("expected handle to be stale after reset")
	}

	call.reply <- reply{result: generator.Result{ArtifactRef: "late.mp3"}}
	waitIdle(t, c)

	if rec.count() != 0 {
		t.Fatalf("expected no outcome, got %d", rec.count())
	}
	if snap := c.Snapshot(); snap.Status != request.StatusIdle || snap.ArtifactRef != "" {
		t.Fatalf("late response changed state: %+v", snap)
	}
}

func TestResetIsIdempotent(t *testing.T) {
	c := newController(t, newFakeGenerator(), request.Config{})
	c.Reset()
	c.Reset()
	if snap := c.Snapshot(); snap.Status != request.StatusIdle || snap.Handle != nil {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
}

func TestTimeoutFailsRequest(t *testing.T) {
	gen := newFakeGenerator()
	c := newController(t, gen, request.Config{Timeout: 30 * time.Millisecond})
	rec := newRecorder(c)

	if _, err := c.Submit(validParams()); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	gen.next(t)

	outcome := rec.next(t)
	if outcome.Status != request.StatusFailed {
		t.Fatalf("expected failed, got %s", outcome.Status)
	}
	if !errors.Is(outcome.Err, services.ErrTimeout) {
		t.Fatalf("expected timeout marker, got %v", outcome.Err)
	}
	if !services.IsRequestFailure(outcome.Err) {
		t.Fatal("expected timeout to classify as request failure")
	}
}

type stubbornGenerator struct {
	started chan struct{}
	release chan struct{}
}

func (g *stubbornGenerator) Generate(context.Context, podcast.Parameters) (generator.Result, error) {
	g.started <- struct{}{}
	<-g.release
	return generator.Result{ArtifactRef: "ignored.mp3"}, nil
}

func TestTimeoutHoldsEvenWhenGeneratorIgnoresContext(t *testing.T) {
	gen := &stubbornGenerator{started: make(chan struct{}, 1), release: make(chan struct{})}
	defer close(gen.release)
	c := newController(t, gen, request.Config{Timeout: 30 * time.Millisecond})
	rec := newRecorder(c)

	if _, err := c.Submit(validParams()); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	<-gen.started
	if outcome := rec.next(t); !errors.Is(outcome.Err, services.ErrTimeout) {
		t.Fatalf("expected timeout outcome, got %+v", outcome)
	}
}

func TestCloseMakesHandleStaleAndRejectsSubmit(t *testing.T) {
	gen := newFakeGenerator()
	c := request.NewController(gen, request.Config{}, nil)
	rec := newRecorder(c)

	handle, err := c.Submit(validParams())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	gen.next(t)
	c.Close()
	c.Close()

	if c.IsCurrent(handle) {
		t.Fatal("expected handle stale after close")
	}
	if rec.count() != 0 {
		t.Fatalf("expected no outcome after close, got %d", rec.count())
	}
	if _, err := c.Submit(validParams()); !errors.Is(err, request.ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}
