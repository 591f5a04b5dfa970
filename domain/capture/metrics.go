package capture

import "time"

// FrameInfo describes the frame currently held by a BufferSource.
type FrameInfo struct {
	PublishedAt time.Time
	Sequence    uint64
}

// CaptureStats summarises capture loop behaviour for instrumentation.
type CaptureStats struct {
	Captures         uint64
	Skipped          uint64
	AvgCapture       time.Duration
	AvgCaptureMicros float64
	LastCapture      time.Time
	LatestFrameAge   time.Duration
	Sequence         uint64
}
