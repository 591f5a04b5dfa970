// Package images encodes captured frames for storage.
package images

import (
	"bytes"
	"image"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"github.com/nfnt/resize"
	"github.com/pkg/errors"
)

// DefaultQuality matches the usual JPEG default.
const DefaultQuality = 75

// Encoder turns a frame into compressed bytes. The zero value encodes JPEG at
// DefaultQuality without resizing.
type Encoder struct {
	Format  Format
	Quality int // 1-100, JPEG and lossy WebP only
	// MaxSize bounds the longer edge of the encoded image; 0 keeps the frame size.
	MaxSize int
}

// Ext returns the file extension for the encoder's format.
func (e Encoder) Ext() string { return e.format().Ext() }

func (e Encoder) format() Format {
	if e.Format == "" {
		return FormatJPEG
	}
	return e.Format
}

func (e Encoder) quality() int {
	if e.Quality <= 0 || e.Quality > 100 {
		return DefaultQuality
	}
	return e.Quality
}

// Encode compresses img. The frame is read, never modified.
func (e Encoder) Encode(img image.Image) ([]byte, error) {
	if img == nil {
		return nil, errors.New("images: nil frame")
	}
	src := ScaleToFit(img, e.MaxSize, e.MaxSize)

	var buf bytes.Buffer
	var err error
	switch f := e.format(); f {
	case FormatJPEG:
		err = imaging.Encode(&buf, src, imaging.JPEG, imaging.JPEGQuality(e.quality()))
	case FormatPNG:
		err = imaging.Encode(&buf, src, imaging.PNG)
	case FormatWebP:
		err = webp.Encode(&buf, src, &webp.Options{Quality: float32(e.quality())})
	default:
		return nil, errors.Errorf("images: unsupported format %q", f)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "images: encode %s", e.format())
	}
	return buf.Bytes(), nil
}

// ScaleToFit returns src shrunk so both edges fit within maxW x maxH,
// preserving aspect ratio. Non-positive bounds, or a source that already fits,
// return src unchanged.
func ScaleToFit(src image.Image, maxW, maxH int) image.Image {
	if src == nil || maxW <= 0 || maxH <= 0 {
		return src
	}
	b := src.Bounds()
	if b.Dx() <= maxW && b.Dy() <= maxH {
		return src
	}
	return resize.Thumbnail(uint(maxW), uint(maxH), src, resize.Bilinear)
}
