// Package transform reorients fixed-size RGBA8888 pixel buffers in place.
//
// A buffer is a row-major []uint32 with one element per pixel and
// len == width*height. Every flip reads the whole original buffer through a
// pooled scratch copy before writing back, so the result never depends on the
// order pixels are visited in. All flips are involutions.
package transform

import "fmt"

// FlipMode selects which reorientation to apply.
type FlipMode int

const (
	ModeNone FlipMode = iota
	ModeVertical
	ModeHorizontal
	ModeBoth
)

func (m FlipMode) String() string {
	switch m {
	case ModeNone:
		return "none"
	case ModeVertical:
		return "vertical"
	case ModeHorizontal:
		return "horizontal"
	case ModeBoth:
		return "both"
	default:
		return "unknown"
	}
}

// ParseFlipMode maps a config string to a FlipMode. The empty string is ModeNone.
func ParseFlipMode(s string) (FlipMode, error) {
	switch s {
	case "", "none":
		return ModeNone, nil
	case "vertical":
		return ModeVertical, nil
	case "horizontal":
		return ModeHorizontal, nil
	case "both":
		return ModeBoth, nil
	}
	return ModeNone, fmt.Errorf("transform: unknown flip mode %q", s)
}

// Transformer applies flips using its own scratch pool. The zero value is not
// usable; construct with NewTransformer. Safe for concurrent use on distinct
// buffers.
type Transformer struct {
	scratch *scratchPool
}

// NewTransformer returns a Transformer with an empty scratch pool.
func NewTransformer() *Transformer {
	return &Transformer{scratch: newScratchPool()}
}

var defaultTransformer = NewTransformer()

// Apply runs the flip selected by mode on buf using the shared scratch pool.
func Apply(mode FlipMode, buf []uint32, width, height int) {
	defaultTransformer.Apply(mode, buf, width, height)
}

// FlipVertical turns buf upside down: dst(x, y) = src(x, height-1-y).
func FlipVertical(buf []uint32, width, height int) {
	defaultTransformer.FlipVertical(buf, width, height)
}

// FlipHorizontal mirrors buf left to right: dst(x, y) = src(width-1-x, y).
func FlipHorizontal(buf []uint32, width, height int) {
	defaultTransformer.FlipHorizontal(buf, width, height)
}

// FlipBoth rotates buf by 180 degrees: dst(x, y) = src(width-1-x, height-1-y).
func FlipBoth(buf []uint32, width, height int) {
	defaultTransformer.FlipBoth(buf, width, height)
}

// Apply runs the flip selected by mode. ModeNone leaves buf untouched.
func (t *Transformer) Apply(mode FlipMode, buf []uint32, width, height int) {
	switch mode {
	case ModeNone:
		checkDims(buf, width, height)
	case ModeVertical:
		t.FlipVertical(buf, width, height)
	case ModeHorizontal:
		t.FlipHorizontal(buf, width, height)
	case ModeBoth:
		t.FlipBoth(buf, width, height)
	default:
		panic(fmt.Sprintf("transform: unknown flip mode %d", int(mode)))
	}
}

// FlipVertical is the pooled-scratch form of the package FlipVertical.
func (t *Transformer) FlipVertical(buf []uint32, width, height int) {
	checkDims(buf, width, height)
	if len(buf) == 0 {
		return
	}
	sp := t.scratch.acquire(len(buf))
	defer t.scratch.release(sp)
	src := *sp
	copy(src, buf)

	// Whole rows move unchanged, so copy them as slices.
	for newY := 0; newY < height; newY++ {
		oldY := height - newY - 1
		copy(buf[newY*width:(newY+1)*width], src[oldY*width:(oldY+1)*width])
	}
}

// FlipHorizontal is the pooled-scratch form of the package FlipHorizontal.
func (t *Transformer) FlipHorizontal(buf []uint32, width, height int) {
	checkDims(buf, width, height)
	if len(buf) == 0 {
		return
	}
	sp := t.scratch.acquire(len(buf))
	defer t.scratch.release(sp)
	src := *sp
	copy(src, buf)

	address := 0
	for y := 0; y < height; y++ {
		row := src[y*width : (y+1)*width]
		for newX := 0; newX < width; newX++ {
			buf[address] = row[width-newX-1]
			address++
		}
	}
}

// FlipBoth is the pooled-scratch form of the package FlipBoth.
func (t *Transformer) FlipBoth(buf []uint32, width, height int) {
	checkDims(buf, width, height)
	if len(buf) == 0 {
		return
	}
	sp := t.scratch.acquire(len(buf))
	defer t.scratch.release(sp)
	src := *sp
	copy(src, buf)

	// (width-1-x, height-1-y) in row-major order is the buffer read backwards.
	last := len(src) - 1
	for i := range buf {
		buf[i] = src[last-i]
	}
}

// checkDims panics when buf cannot hold a width x height frame. A mismatch is
// a caller bug and is never corrected silently.
func checkDims(buf []uint32, width, height int) {
	if width < 0 || height < 0 {
		panic(fmt.Sprintf("transform: negative dimensions %dx%d", width, height))
	}
	if len(buf) != width*height {
		panic(fmt.Sprintf("transform: buffer length %d does not match %dx%d", len(buf), width, height))
	}
}
