//go:build linux

package capture

import (
	"context"
	"fmt"
	"image"

	"github.com/desertthunder/moodtunes/internal/shared"
	"github.com/pion/mediadevices"
	_ "github.com/pion/mediadevices/pkg/driver/camera"
	"github.com/pion/mediadevices/pkg/frame"
	"github.com/pion/mediadevices/pkg/io/video"
	"github.com/pion/mediadevices/pkg/prop"
	xdraw "golang.org/x/image/draw"
)

// deviceCamera captures from a V4L2 device through pion/mediadevices.
type deviceCamera struct {
	deviceID string
	width    int
	height   int
}

// NewDeviceCamera returns a [Camera] for deviceID, or the first available camera when deviceID is empty.
//
// width and height cap the requested capture resolution.
func NewDeviceCamera(deviceID string, width, height int) Camera {
	return &deviceCamera{deviceID: deviceID, width: width, height: height}
}

func (c *deviceCamera) Open(ctx context.Context) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	stream, err := mediadevices.GetUserMedia(mediadevices.MediaStreamConstraints{
		Video: func(mc *mediadevices.MediaTrackConstraints) {
			mc.FrameFormat = prop.FrameFormatOneOf{
				frame.FormatYUYV,
				frame.FormatI420,
				frame.FormatMJPEG,
			}
			if c.width > 0 {
				mc.Width = prop.IntRanged{Max: c.width}
			}
			if c.height > 0 {
				mc.Height = prop.IntRanged{Max: c.height}
			}
			if c.deviceID != "" {
				mc.DeviceID = prop.StringExact(c.deviceID)
			}
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrMediaAccess, err)
	}

	tracks := stream.GetVideoTracks()
	if len(tracks) == 0 {
		return nil, fmt.Errorf("%w: no video input found", shared.ErrMediaAccess)
	}

	track, ok := tracks[0].(*mediadevices.VideoTrack)
	if !ok {
		for _, t := range tracks {
			t.Close()
		}
		return nil, fmt.Errorf("%w: unexpected track type %T", shared.ErrMediaAccess, tracks[0])
	}

	for _, extra := range tracks[1:] {
		extra.Close()
	}

	return &deviceStream{track: track, reader: track.NewReader(false)}, nil
}

// deviceStream reads raw frames from a mediadevices video track.
type deviceStream struct {
	track  *mediadevices.VideoTrack
	reader video.Reader
}

func (s *deviceStream) Frame(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	img, release, err := s.reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read frame: %w", err)
	}
	defer release()

	// frames are recycled by the driver after release
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	xdraw.Copy(out, image.Point{}, img, b, xdraw.Src, nil)
	return out, nil
}

func (s *deviceStream) Close() error {
	return s.track.Close()
}
