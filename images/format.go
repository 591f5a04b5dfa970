package images

import "fmt"

// Format is an export image encoding.
type Format string

const (
	FormatJPEG Format = "jpeg"
	FormatPNG  Format = "png"
	FormatWebP Format = "webp"
)

// ParseFormat accepts the config spelling of a format; "jpg" is an alias for jpeg.
func ParseFormat(s string) (Format, error) {
	switch s {
	case "", "jpeg", "jpg":
		return FormatJPEG, nil
	case "png":
		return FormatPNG, nil
	case "webp":
		return FormatWebP, nil
	}
	return "", fmt.Errorf("images: unsupported format %q", s)
}

// Ext is the file extension, including the dot, used for saved frames.
func (f Format) Ext() string {
	switch f {
	case FormatPNG:
		return ".png"
	case FormatWebP:
		return ".webp"
	default:
		return ".jpg"
	}
}
