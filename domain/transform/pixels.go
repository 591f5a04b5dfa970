package transform

import (
	"image"
	"unsafe"
)

// Pixels views the Pix slice of img as one uint32 per RGBA8888 pixel, without
// copying. Writes through the returned slice are visible in img. The image
// must be tightly packed (Stride == 4*width), which holds for anything built
// by image.NewRGBA.
func Pixels(img *image.RGBA) []uint32 {
	if img == nil || len(img.Pix) == 0 {
		return nil
	}
	w := img.Rect.Dx()
	if img.Stride != w*4 {
		panic("transform: RGBA image is not tightly packed")
	}
	return unsafe.Slice((*uint32)(unsafe.Pointer(&img.Pix[0])), len(img.Pix)/4)
}
