package export

import "time"

// Options configures an export session.
type Options struct {
	// Interval is the time between cycle starts. Each cycle waits half of it
	// before the primary save and, with MirrorCopy, the other half before the
	// mirrored save.
	Interval time.Duration
	// MirrorCopy adds a horizontally flipped second save per cycle.
	MirrorCopy bool
	// ImageLimit stops the session once this many frames are saved. 0 means unlimited.
	ImageLimit int
	// AutoStart starts a session whenever the source becomes active.
	AutoStart bool
}

// DefaultOptions mirror the stock capture settings: one cycle per second,
// mirrored copies on, at most 200 frames.
func DefaultOptions() Options {
	return Options{Interval: time.Second, MirrorCopy: true, ImageLimit: 200, AutoStart: true}
}

func (o Options) normalized() Options {
	if o.Interval < 0 {
		o.Interval = 0
	}
	if o.ImageLimit < 0 {
		o.ImageLimit = 0
	}
	return o
}
