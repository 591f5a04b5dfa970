package capture

import "image"

// FrameSource is the read side of a capture bridge. It exposes a fixed-size
// RGBA8888 frame, whether capture is active, and a notification fired when
// capture becomes active.
type FrameSource interface {
	// Size reports the fixed frame dimensions for the capture session.
	Size() (width, height int)
	Active() bool
	// CopyTo copies the current frame into dst, which must match Size.
	CopyTo(dst *image.RGBA) error
	// OnActivated registers fn to run each time capture turns active and
	// returns a function that removes the registration.
	OnActivated(fn func()) (remove func())
}

// FramePublisher is the write side used by whatever owns the capture device.
type FramePublisher interface {
	Publish(pix []byte) error
	SetActive(active bool)
}

// ServiceContract exposes basic lifecycle control for capture services.
type ServiceContract interface {
	Start()
	Stop()
	Running() bool
}
