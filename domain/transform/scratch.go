package transform

import "sync"

// Reusable scratch buffers for flip snapshots. A capture session keeps the
// same frame size for its whole lifetime, so every flip asks for the same
// length and the pool settles on one or two live slices instead of a fresh
// width*height allocation per frame.
//
// Pools are keyed by pixel count. Callers must not retain a scratch slice
// after handing it back with release.

type scratchPool struct {
	mu    sync.Mutex
	pools map[int]*sync.Pool // stores *[]uint32
}

func newScratchPool() *scratchPool {
	return &scratchPool{pools: make(map[int]*sync.Pool)}
}

func (p *scratchPool) poolFor(n int) *sync.Pool {
	p.mu.Lock()
	defer p.mu.Unlock()
	sp, ok := p.pools[n]
	if !ok {
		sp = &sync.Pool{New: func() any {
			s := make([]uint32, n)
			return &s
		}}
		p.pools[n] = sp
	}
	return sp
}

// acquire returns a scratch slice holding exactly n pixels. Its contents are
// unspecified.
func (p *scratchPool) acquire(n int) *[]uint32 {
	return p.poolFor(n).Get().(*[]uint32)
}

// release hands the scratch slice back for reuse.
func (p *scratchPool) release(s *[]uint32) {
	if s == nil || len(*s) == 0 {
		return
	}
	p.poolFor(len(*s)).Put(s)
}
