package capture

import (
	"image"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	"github.com/soocke/capture-export/domain/transform"
)

// ErrSizeMismatch is returned when a frame does not match the session size.
var ErrSizeMismatch = errors.New("capture: frame size mismatch")

// BufferSource holds the latest frame pushed by a capture owner and fans out
// activation changes to listeners. The frame size is fixed at construction.
type BufferSource struct {
	width, height int
	flip          transform.FlipMode
	transformer   *transform.Transformer
	logger        *slog.Logger

	mu    sync.RWMutex
	frame *image.RGBA
	info  FrameInfo

	active atomic.Bool

	lmu       sync.Mutex
	nextID    int
	onStarted map[int]func()
	onStopped map[int]func()
}

var (
	_ FrameSource    = (*BufferSource)(nil)
	_ FramePublisher = (*BufferSource)(nil)
)

// NewBufferSource returns an inactive source for width x height frames.
// Every published frame is reoriented with flip before it becomes visible.
func NewBufferSource(width, height int, flip transform.FlipMode, logger *slog.Logger) *BufferSource {
	if width < 0 || height < 0 {
		panic("capture: negative frame size")
	}
	return &BufferSource{
		width:       width,
		height:      height,
		flip:        flip,
		transformer: transform.NewTransformer(),
		logger:      logger,
		frame:       image.NewRGBA(image.Rect(0, 0, width, height)),
		onStarted:   make(map[int]func()),
		onStopped:   make(map[int]func()),
	}
}

func (s *BufferSource) Size() (int, int) { return s.width, s.height }

func (s *BufferSource) Active() bool { return s.active.Load() }

// Info returns metadata for the current frame.
func (s *BufferSource) Info() FrameInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.info
}

// Publish loads a raw RGBA8888 frame. pix must hold exactly width*height*4 bytes.
func (s *BufferSource) Publish(pix []byte) error {
	if len(pix) != len(s.frame.Pix) {
		return errors.Wrapf(ErrSizeMismatch, "got %d bytes, want %d", len(pix), len(s.frame.Pix))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	copy(s.frame.Pix, pix)
	if s.flip != transform.ModeNone {
		s.transformer.Apply(s.flip, transform.Pixels(s.frame), s.width, s.height)
	}
	s.info.Sequence++
	s.info.PublishedAt = time.Now()
	return nil
}

// CopyTo copies the current frame into dst.
func (s *BufferSource) CopyTo(dst *image.RGBA) error {
	if dst == nil || dst.Rect.Dx() != s.width || dst.Rect.Dy() != s.height || len(dst.Pix) != len(s.frame.Pix) {
		return errors.Wrap(ErrSizeMismatch, "copy destination")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	copy(dst.Pix, s.frame.Pix)
	return nil
}

// SetActive flips the capture state. Listeners only run on an actual change,
// after the new state is visible through Active.
func (s *BufferSource) SetActive(active bool) {
	if s.active.Swap(active) == active {
		return
	}
	if s.logger != nil {
		s.logger.Info("capture state changed", "active", active)
	}
	listeners := s.onStopped
	if active {
		listeners = s.onStarted
	}
	for _, fn := range s.snapshot(listeners) {
		fn()
	}
}

// OnActivated registers fn for inactive to active transitions.
func (s *BufferSource) OnActivated(fn func()) func() { return s.register(s.onStarted, fn) }

// OnDeactivated registers fn for active to inactive transitions.
func (s *BufferSource) OnDeactivated(fn func()) func() { return s.register(s.onStopped, fn) }

func (s *BufferSource) register(set map[int]func(), fn func()) func() {
	if fn == nil {
		return func() {}
	}
	s.lmu.Lock()
	id := s.nextID
	s.nextID++
	set[id] = fn
	s.lmu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			s.lmu.Lock()
			delete(set, id)
			s.lmu.Unlock()
		})
	}
}

// snapshot copies listeners in registration order so callbacks run without the lock held.
func (s *BufferSource) snapshot(set map[int]func()) []func() {
	s.lmu.Lock()
	defer s.lmu.Unlock()
	out := make([]func(), 0, len(set))
	for id := 0; id < s.nextID; id++ {
		if fn, ok := set[id]; ok {
			out = append(out, fn)
		}
	}
	return out
}
