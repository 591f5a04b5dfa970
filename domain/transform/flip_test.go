package transform

import (
	"image"
	"image/color"
	"math/rand"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	pA uint32 = 0xA
	pB uint32 = 0xB
	pC uint32 = 0xC
	pD uint32 = 0xD
)

func TestFlip_TwoByTwoFixtures(t *testing.T) {
	tests := []struct {
		name string
		mode FlipMode
		want []uint32
	}{
		{"none", ModeNone, []uint32{pA, pB, pC, pD}},
		{"vertical", ModeVertical, []uint32{pC, pD, pA, pB}},
		{"horizontal", ModeHorizontal, []uint32{pB, pA, pD, pC}},
		{"both", ModeBoth, []uint32{pD, pC, pB, pA}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := []uint32{pA, pB, pC, pD}
			Apply(tt.mode, buf, 2, 2)
			assert.Equal(t, tt.want, buf)
		})
	}
}

func TestFlip_NonSquare(t *testing.T) {
	// 3 wide, 2 tall:
	// 1 2 3
	// 4 5 6
	buf := []uint32{1, 2, 3, 4, 5, 6}
	FlipVertical(buf, 3, 2)
	assert.Equal(t, []uint32{4, 5, 6, 1, 2, 3}, buf)

	buf = []uint32{1, 2, 3, 4, 5, 6}
	FlipHorizontal(buf, 3, 2)
	assert.Equal(t, []uint32{3, 2, 1, 6, 5, 4}, buf)

	buf = []uint32{1, 2, 3, 4, 5, 6}
	FlipBoth(buf, 3, 2)
	assert.Equal(t, []uint32{6, 5, 4, 3, 2, 1}, buf)
}

func randomBuffer(r *rand.Rand, w, h int) []uint32 {
	buf := make([]uint32, w*h)
	for i := range buf {
		buf[i] = r.Uint32()
	}
	return buf
}

func TestFlip_Involution(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	sizes := [][2]int{{1, 1}, {1, 7}, {7, 1}, {4, 4}, {5, 3}, {16, 9}, {33, 64}}
	for _, mode := range []FlipMode{ModeNone, ModeVertical, ModeHorizontal, ModeBoth} {
		for _, sz := range sizes {
			orig := randomBuffer(r, sz[0], sz[1])
			buf := append([]uint32(nil), orig...)
			Apply(mode, buf, sz[0], sz[1])
			Apply(mode, buf, sz[0], sz[1])
			require.Equal(t, orig, buf, "mode=%v size=%v", mode, sz)
		}
	}
}

func TestFlip_BothIsComposition(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	w, h := 13, 6
	orig := randomBuffer(r, w, h)

	both := append([]uint32(nil), orig...)
	FlipBoth(both, w, h)

	vh := append([]uint32(nil), orig...)
	FlipVertical(vh, w, h)
	FlipHorizontal(vh, w, h)

	hv := append([]uint32(nil), orig...)
	FlipHorizontal(hv, w, h)
	FlipVertical(hv, w, h)

	assert.Equal(t, both, vh)
	assert.Equal(t, both, hv)
}

func TestFlip_MatchesImaging(t *testing.T) {
	// imaging works on NRGBA; with opaque pixels the bytes are identical to RGBA.
	w, h := 9, 5
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{R: uint8(x * 20), G: uint8(y * 40), B: uint8(x + y), A: 255})
		}
	}

	cases := []struct {
		mode   FlipMode
		oracle func(image.Image) *image.NRGBA
	}{
		{ModeVertical, func(i image.Image) *image.NRGBA { return imaging.FlipV(i) }},
		{ModeHorizontal, func(i image.Image) *image.NRGBA { return imaging.FlipH(i) }},
		{ModeBoth, func(i image.Image) *image.NRGBA { return imaging.Rotate180(i) }},
	}
	for _, c := range cases {
		t.Run(c.mode.String(), func(t *testing.T) {
			got := image.NewRGBA(img.Rect)
			copy(got.Pix, img.Pix)
			Apply(c.mode, Pixels(got), w, h)
			assert.Equal(t, c.oracle(img).Pix, got.Pix)
		})
	}
}

func TestFlip_LengthMismatchPanics(t *testing.T) {
	assert.Panics(t, func() { FlipVertical(make([]uint32, 5), 2, 2) })
	assert.Panics(t, func() { FlipHorizontal(make([]uint32, 4), 3, 1) })
	assert.Panics(t, func() { FlipBoth(make([]uint32, 4), -2, -2) })
	assert.Panics(t, func() { Apply(ModeNone, make([]uint32, 3), 2, 2) })
	assert.Panics(t, func() { Apply(FlipMode(99), make([]uint32, 4), 2, 2) })
}

func TestFlip_Empty(t *testing.T) {
	assert.NotPanics(t, func() {
		FlipVertical(nil, 0, 0)
		FlipHorizontal([]uint32{}, 0, 5)
		FlipBoth(nil, 3, 0)
	})
}

func TestParseFlipMode(t *testing.T) {
	for _, m := range []FlipMode{ModeNone, ModeVertical, ModeHorizontal, ModeBoth} {
		got, err := ParseFlipMode(m.String())
		require.NoError(t, err)
		assert.Equal(t, m, got)
	}
	got, err := ParseFlipMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeNone, got)

	_, err = ParseFlipMode("sideways")
	assert.Error(t, err)
}

func TestTransformer_ReusesScratch(t *testing.T) {
	tr := NewTransformer()
	buf := []uint32{pA, pB, pC, pD}
	for i := 0; i < 10; i++ {
		tr.FlipVertical(buf, 2, 2)
	}
	// Even number of flips.
	assert.Equal(t, []uint32{pA, pB, pC, pD}, buf)
	assert.Len(t, tr.scratch.pools, 1)
}

func TestPixels_SharesBacking(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 1))
	img.SetRGBA(0, 0, color.RGBA{1, 2, 3, 4})
	img.SetRGBA(1, 0, color.RGBA{5, 6, 7, 8})
	FlipHorizontal(Pixels(img), 2, 1)
	assert.Equal(t, []uint8{5, 6, 7, 8, 1, 2, 3, 4}, img.Pix)
	assert.Nil(t, Pixels(nil))
}
