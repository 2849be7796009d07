//go:build !linux

package capture

import (
	"context"
	"fmt"
	"runtime"

	"github.com/desertthunder/moodtunes/internal/shared"
)

type unsupportedCamera struct{}

// NewDeviceCamera returns a [Camera] that always fails: device capture needs the V4L2 driver.
func NewDeviceCamera(string, int, int) Camera {
	return unsupportedCamera{}
}

func (unsupportedCamera) Open(context.Context) (Stream, error) {
	return nil, fmt.Errorf("%w: camera capture is not supported on %s", shared.ErrMediaAccess, runtime.GOOS)
}
