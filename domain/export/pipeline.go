// Package export drives periodic, cancellable capture-and-save cycles
// against a frame source.
//
// A Pipeline owns at most one running session. Each cycle waits for the
// source to be active, sleeps half the configured interval, copies the
// current frame into a private working buffer, flips it vertically, encodes
// it and stores it under a timestamp name. With mirror copies enabled the
// cycle sleeps the second half and stores the same working buffer flipped
// horizontally, so the mirrored file is the source rotated by 180 degrees.
// Sessions end on Stop, Close, or when the image limit is reached.
package export

import (
	"context"
	"image"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"

	"github.com/soocke/capture-export/domain/capture"
	"github.com/soocke/capture-export/domain/transform"
	"github.com/soocke/capture-export/storage"
)

// maxNameAttempts bounds the suffix search when a timestamp name is taken.
const maxNameAttempts = 16

// Encoder compresses a frame for storage.
type Encoder interface {
	Encode(img image.Image) ([]byte, error)
	Ext() string
}

// Option customises a Pipeline.
type Option func(*Pipeline)

// WithClock replaces the wall clock used for throttling and file names.
func WithClock(c clock.Clock) Option { return func(p *Pipeline) { p.clock = c } }

// WithErrorHandler registers fn to receive save failures. Cancellation is
// never reported.
func WithErrorHandler(fn func(error)) Option { return func(p *Pipeline) { p.onError = fn } }

// WithSavedHandler registers fn to run after each stored frame.
func WithSavedHandler(fn func(name string)) Option { return func(p *Pipeline) { p.onSaved = fn } }

// Pipeline exports frames from a capture.FrameSource into a storage.Sink.
type Pipeline struct {
	source      capture.FrameSource
	encoder     Encoder
	sink        storage.Sink
	clock       clock.Clock
	logger      *slog.Logger
	transformer *transform.Transformer
	onError     func(error)
	onSaved     func(string)

	mu        sync.Mutex
	opts      Options
	sess      *session
	running   bool
	closed    bool
	unsubOnce sync.Once
	unsub     func()

	state     atomic.Int32
	lastSaved atomic.Value // string
	wake      chan struct{}

	lmu       sync.Mutex
	listeners []StateListener
}

// NewPipeline wires a pipeline to source and subscribes to its activation
// notification. With opts.AutoStart a session starts now if the source is
// already active, and again on every later activation.
func NewPipeline(logger *slog.Logger, source capture.FrameSource, encoder Encoder, sink storage.Sink, opts Options, options ...Option) *Pipeline {
	p := &Pipeline{
		source:      source,
		encoder:     encoder,
		sink:        sink,
		clock:       clock.New(),
		logger:      logger,
		transformer: transform.NewTransformer(),
		opts:        opts.normalized(),
		wake:        make(chan struct{}, 1),
	}
	for _, o := range options {
		o(p)
	}
	if p.logger == nil {
		p.logger = slog.New(slog.DiscardHandler)
	}
	p.lastSaved.Store("")
	p.unsub = source.OnActivated(p.sourceActivated)
	if opts.AutoStart && source.Active() {
		p.Start()
	}
	return p
}

func (p *Pipeline) sourceActivated() {
	select {
	case p.wake <- struct{}{}:
	default:
	}
	p.mu.Lock()
	auto := p.opts.AutoStart
	p.mu.Unlock()
	if auto {
		p.Start()
	}
}

// AddListener registers l for state transitions.
func (p *Pipeline) AddListener(l StateListener) {
	p.lmu.Lock()
	p.listeners = append(p.listeners, l)
	p.lmu.Unlock()
}

// Current returns the pipeline state.
func (p *Pipeline) Current() State { return State(p.state.Load()) }

// Running reports whether a session loop is live.
func (p *Pipeline) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Reconfigure replaces the options used by the next session. A running
// session keeps the options it started with.
func (p *Pipeline) Reconfigure(opts Options) {
	p.mu.Lock()
	p.opts = opts.normalized()
	p.mu.Unlock()
	p.logger.Info("export options updated", "interval", opts.Interval, "mirror_copy", opts.MirrorCopy, "image_limit", opts.ImageLimit)
}

// Start begins a session. It is a no-op while a session is running, after
// Close, and after a session ended by reaching its image limit until Stop
// resets it.
func (p *Pipeline) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed || p.running {
		return
	}
	if p.sess != nil {
		p.logger.Debug("export session spent, stop to reset", "session", p.sess.id.String())
		return
	}
	s := newSession(context.Background(), p.opts, p.clock.Now())
	p.sess = s
	p.running = true
	go p.run(s)
}

// Stop cancels the running session, waits for its loop to exit and discards
// the session. An in-flight encode or write finishes first. Called from a
// listener or handler while the loop is inside it, Stop cancels without
// waiting and the loop discards the session on exit.
func (p *Pipeline) Stop() {
	p.mu.Lock()
	s := p.sess
	p.mu.Unlock()
	if s == nil {
		return
	}
	s.stopped.Store(true)
	s.cancel()
	if s.inCallback.Load() > 0 {
		return
	}
	<-s.done

	p.mu.Lock()
	if p.sess == s {
		p.sess = nil
	}
	p.mu.Unlock()
}

// Close stops the pipeline and detaches it from the source. Start is a no-op afterwards.
func (p *Pipeline) Close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	p.unsubOnce.Do(func() {
		if p.unsub != nil {
			p.unsub()
		}
	})
	p.Stop()
}

// Stats returns counters for the current or most recent session.
func (p *Pipeline) Stats() Stats {
	p.mu.Lock()
	s := p.sess
	running := p.running
	p.mu.Unlock()
	st := Stats{State: p.Current(), Running: running, LastSaved: p.lastSaved.Load().(string)}
	if s != nil {
		st.SessionID = s.id.String()
		st.Started = s.started
		st.Saved = s.saved.Load()
		st.Failed = s.failed.Load()
	}
	return st
}

func (p *Pipeline) setState(s *session, next State) {
	prev := State(p.state.Swap(int32(next)))
	if prev == next {
		return
	}
	p.lmu.Lock()
	ls := append([]StateListener(nil), p.listeners...)
	p.lmu.Unlock()
	for _, l := range ls {
		s.callback(func() { l(prev, next) })
	}
}

func (p *Pipeline) run(s *session) {
	defer p.finish(s)

	w, h := p.source.Size()
	work := image.NewRGBA(image.Rect(0, 0, w, h))
	half := s.opts.Interval / 2
	p.logger.Info("export session started",
		"session", s.id.String(),
		"interval", s.opts.Interval,
		"mirror_copy", s.opts.MirrorCopy,
		"image_limit", s.opts.ImageLimit,
	)

	for {
		if s.limitReached() {
			p.logger.Info("export image limit reached", "session", s.id.String(), "saved", s.saved.Load())
			s.cancel()
		}
		if s.ctx.Err() != nil {
			return
		}
		if !p.source.Active() {
			p.setState(s, StateWaitingForSource)
			if !p.waitForSource(s.ctx) {
				return
			}
		}

		p.setState(s, StateThrottling)
		if !p.sleep(s.ctx, half) {
			return
		}
		p.setState(s, StateSaving)
		if err := p.source.CopyTo(work); err != nil {
			p.fail(s, errors.Wrap(err, "export: copy frame"))
			continue
		}
		if err := p.save(s, work, transform.ModeVertical); err != nil {
			continue
		}

		if !s.opts.MirrorCopy || s.limitReached() {
			continue
		}
		p.setState(s, StateThrottling)
		if !p.sleep(s.ctx, half) {
			return
		}
		p.setState(s, StateSaving)
		_ = p.save(s, work, transform.ModeHorizontal)
	}
}

func (p *Pipeline) finish(s *session) {
	s.cancel()
	p.setState(s, StateCancelled)
	p.logger.Info("export session ended", "session", s.id.String(), "saved", s.saved.Load(), "failed", s.failed.Load())
	p.mu.Lock()
	p.running = false
	if s.stopped.Load() && p.sess == s {
		p.sess = nil
	}
	p.mu.Unlock()
	p.setState(s, StateIdle)
	close(s.done)
}

// waitForSource parks until the source is active. It returns false on cancellation.
func (p *Pipeline) waitForSource(ctx context.Context) bool {
	for !p.source.Active() {
		select {
		case <-ctx.Done():
			return false
		case <-p.wake:
		}
	}
	return true
}

// sleep waits d on the pipeline clock. It returns false on cancellation,
// including a cancellation that races the timer.
func (p *Pipeline) sleep(ctx context.Context, d time.Duration) bool {
	if d > 0 {
		t := p.clock.Timer(d)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return false
		case <-t.C:
		}
	}
	return ctx.Err() == nil
}

// save flips work in place, encodes it and stores it.
func (p *Pipeline) save(s *session, work *image.RGBA, mode transform.FlipMode) error {
	p.transformer.Apply(mode, transform.Pixels(work), work.Rect.Dx(), work.Rect.Dy())

	data, err := p.encoder.Encode(work)
	if err != nil {
		p.fail(s, errors.Wrap(err, "export: encode"))
		return err
	}
	// A started write is never preempted by Stop.
	name, err := p.write(context.WithoutCancel(s.ctx), data)
	if err != nil {
		p.fail(s, err)
		return err
	}
	n := s.saved.Add(1)
	p.lastSaved.Store(name)
	p.logger.Debug("frame saved", "session", s.id.String(), "name", name, "flip", mode.String(), "count", n)
	if p.onSaved != nil {
		s.callback(func() { p.onSaved(name) })
	}
	return nil
}

func (p *Pipeline) write(ctx context.Context, data []byte) (string, error) {
	now := p.clock.Now()
	for attempt := 0; attempt < maxNameAttempts; attempt++ {
		name := FrameName(now, attempt, p.encoder.Ext())
		err := p.sink.Write(ctx, name, data)
		if err == nil {
			return name, nil
		}
		if !errors.Is(err, storage.ErrExist) {
			return "", errors.Wrapf(err, "export: store %s", name)
		}
	}
	return "", errors.Errorf("export: no free name after %d attempts", maxNameAttempts)
}

func (p *Pipeline) fail(s *session, err error) {
	s.failed.Add(1)
	p.logger.Error("export save failed", "session", s.id.String(), "error", err)
	if p.onError != nil {
		s.callback(func() { p.onError(err) })
	}
}
