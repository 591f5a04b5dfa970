package capture

import (
	"image"
	"image/draw"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/vova616/screenshot"
)

const captureStatsLogInterval = 5 * time.Second

// Grabber captures the given screen rectangle.
type Grabber func(image.Rectangle) (*image.RGBA, error)

// CaptureService grabs a fixed region of the desktop at an interval and
// publishes it into a BufferSource. Use NewCaptureService to construct an
// instance.
type CaptureService interface {
	ServiceContract
	Stats() CaptureStats
}

type captureService struct {
	running  atomic.Bool
	mu       sync.Mutex
	done     chan struct{}
	exited   chan struct{}
	source   *BufferSource
	grab     Grabber
	interval time.Duration
	logger   *slog.Logger
	staging  *image.RGBA

	captures     atomic.Uint64
	skipped      atomic.Uint64
	captureNanos atomic.Uint64
	lastCapture  atomic.Int64 // unix nanos
}

// NewCaptureService constructs a capture service feeding source. A nil grab
// captures the primary screen with the screenshot package.
func NewCaptureService(logger *slog.Logger, source *BufferSource, interval time.Duration, grab Grabber) CaptureService {
	if grab == nil {
		grab = GrabScreen
	}
	if interval <= 0 {
		interval = 33 * time.Millisecond
	}
	w, h := source.Size()
	return &captureService{
		source:   source,
		grab:     grab,
		interval: interval,
		logger:   logger,
		staging:  image.NewRGBA(image.Rect(0, 0, w, h)),
	}
}

// GrabScreen captures rect clipped to the primary screen.
func GrabScreen(rect image.Rectangle) (*image.RGBA, error) {
	screen, err := screenshot.ScreenRect()
	if err != nil {
		return nil, errors.Wrap(err, "capture: screen rect")
	}
	r := rect.Intersect(screen)
	if r.Empty() {
		return nil, errors.Errorf("capture: region %v outside screen %v", rect, screen)
	}
	img, err := screenshot.CaptureRect(r)
	if err != nil {
		return nil, errors.Wrap(err, "capture: grab")
	}
	return img, nil
}

func (s *captureService) Running() bool { return s.running.Load() }

func (s *captureService) Stats() CaptureStats {
	captures := s.captures.Load()
	total := s.captureNanos.Load()
	var avg time.Duration
	avgMicros := 0.0
	if captures > 0 && total > 0 {
		avg = time.Duration(total / captures)
		avgMicros = float64(avg) / float64(time.Microsecond)
	}
	var last time.Time
	age := time.Duration(0)
	if ns := s.lastCapture.Load(); ns != 0 {
		last = time.Unix(0, ns)
		age = time.Since(last)
	}
	return CaptureStats{
		Captures:         captures,
		Skipped:          s.skipped.Load(),
		AvgCapture:       avg,
		AvgCaptureMicros: avgMicros,
		LastCapture:      last,
		LatestFrameAge:   age,
		Sequence:         s.source.Info().Sequence,
	}
}

func (s *captureService) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running.Load() {
		return
	}
	s.running.Store(true)
	s.done = make(chan struct{})
	s.exited = make(chan struct{})
	go s.loop(s.done, s.exited)
}

// Stop ends the capture loop and marks the source inactive. It blocks until
// the loop has exited.
func (s *captureService) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running.Load() {
		return
	}
	close(s.done)
	<-s.exited
	s.running.Store(false)
	s.source.SetActive(false)
}

func (s *captureService) loop(done <-chan struct{}, exited chan<- struct{}) {
	defer close(exited)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	logTicker := time.NewTicker(captureStatsLogInterval)
	defer logTicker.Stop()

	region := s.staging.Bounds()
	for {
		start := time.Now()
		if img, err := s.grab(region); err != nil {
			s.skipped.Add(1)
			if s.logger != nil {
				s.logger.Error("capture grab", "error", err)
			}
		} else {
			// The grab may be smaller than the session size when the screen is;
			// the remainder keeps its previous contents.
			draw.Draw(s.staging, img.Bounds().Sub(img.Bounds().Min), img, img.Bounds().Min, draw.Src)
			if err := s.source.Publish(s.staging.Pix); err != nil {
				s.skipped.Add(1)
				if s.logger != nil {
					s.logger.Error("capture publish", "error", err)
				}
			} else {
				s.captureNanos.Add(uint64(time.Since(start).Nanoseconds()))
				s.captures.Add(1)
				s.lastCapture.Store(time.Now().UnixNano())
				// Active only once a real frame is in place.
				s.source.SetActive(true)
			}
		}

		select {
		case <-done:
			return
		case <-logTicker.C:
			s.logStats()
		case <-ticker.C:
		}
	}
}

func (s *captureService) logStats() {
	if s.logger == nil {
		return
	}
	stats := s.Stats()
	s.logger.Debug("capture.stats",
		"captures", stats.Captures,
		"skipped", stats.Skipped,
		"avg_capture", stats.AvgCapture,
		"age", stats.LatestFrameAge,
	)
}
