package export

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// session is the state of one run of the export loop. It is created by Start
// and discarded by Stop.
type session struct {
	id      uuid.UUID
	opts    Options
	started time.Time
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}

	saved  atomic.Int64
	failed atomic.Int64

	stopped    atomic.Bool
	inCallback atomic.Int32 // >0 while the loop runs a caller callback
}

func newSession(parent context.Context, opts Options, now time.Time) *session {
	ctx, cancel := context.WithCancel(parent)
	return &session{
		id:      uuid.New(),
		opts:    opts,
		started: now,
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
}

// callback runs fn marked as inside a caller callback so Stop does not wait
// on the goroutine running it.
func (s *session) callback(fn func()) {
	s.inCallback.Add(1)
	defer s.inCallback.Add(-1)
	fn()
}

func (s *session) limitReached() bool {
	return s.opts.ImageLimit > 0 && s.saved.Load() >= int64(s.opts.ImageLimit)
}

// Stats is a point-in-time view of the pipeline.
type Stats struct {
	State     State
	Running   bool
	SessionID string
	Started   time.Time
	Saved     int64
	Failed    int64
	LastSaved string
}
