package capture

import (
	"context"
	"image"
)

// Camera opens the default video input device.
type Camera interface {
	Open(ctx context.Context) (Stream, error)
}

// Stream is a live video feed acquired from a [Camera].
type Stream interface {
	// Frame returns the current video frame. The image must remain valid after the call returns.
	Frame(ctx context.Context) (image.Image, error)
	Close() error
}
