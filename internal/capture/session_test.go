package capture

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/moodtunes/internal/shared"
)

type fakeStream struct {
	frame    image.Image
	frameErr error
	closeErr error
	closed   int
}

func (f *fakeStream) Frame(ctx context.Context) (image.Image, error) {
	if f.frameErr != nil {
		return nil, f.frameErr
	}
	return f.frame, nil
}

func (f *fakeStream) Close() error {
	f.closed++
	return f.closeErr
}

type fakeCamera struct {
	streams []*fakeStream
	err     error
	opened  int
}

func (f *fakeCamera) Open(ctx context.Context) (Stream, error) {
	if f.err != nil {
		return nil, f.err
	}
	s := &fakeStream{frame: solid(320, 240, color.RGBA{R: 200, A: 255})}
	f.streams = append(f.streams, s)
	f.opened++
	return s, nil
}

// slowCamera blocks Open and Frame until release is closed.
type slowCamera struct {
	entered chan struct{}
	release chan struct{}
}

func (c *slowCamera) Open(ctx context.Context) (Stream, error) {
	c.entered <- struct{}{}
	<-c.release
	return &slowStream{camera: c}, nil
}

type slowStream struct{ camera *slowCamera }

func (s *slowStream) Frame(ctx context.Context) (image.Image, error) {
	s.camera.entered <- struct{}{}
	<-s.camera.release
	return solid(4, 4, color.White), nil
}

func (s *slowStream) Close() error { return nil }

func solid(w, h int, c color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestSession(t *testing.T) {
	ctx := context.Background()

	t.Run("RequestCameraAccess", func(t *testing.T) {
		t.Run("acquires stream", func(t *testing.T) {
			cam := &fakeCamera{}
			s := NewSession(cam, Options{})

			if err := s.RequestCameraAccess(ctx); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !s.Active() {
				t.Error("expected active stream")
			}
		})

		t.Run("releases previous stream before reacquiring", func(t *testing.T) {
			cam := &fakeCamera{}
			s := NewSession(cam, Options{})

			_ = s.RequestCameraAccess(ctx)
			_ = s.RequestCameraAccess(ctx)

			if cam.opened != 2 {
				t.Fatalf("expected 2 opens, got %d", cam.opened)
			}
			if cam.streams[0].closed != 1 {
				t.Errorf("expected first stream closed once, got %d", cam.streams[0].closed)
			}
			if cam.streams[1].closed != 0 {
				t.Error("expected second stream to stay open")
			}
		})

		t.Run("denied access keeps pending image", func(t *testing.T) {
			cam := &fakeCamera{err: errors.New("permission denied")}
			s := NewSession(cam, Options{})
			s.SelectFile([]byte("abc"), "image/jpeg")

			err := s.RequestCameraAccess(ctx)
			if !errors.Is(err, shared.ErrMediaAccess) {
				t.Fatalf("expected ErrMediaAccess, got %v", err)
			}
			if s.Active() {
				t.Error("expected no active stream")
			}
			if p := s.Pending(); p == nil || string(p.Data) != "abc" {
				t.Errorf("expected pending image to be untouched, got %+v", p)
			}
		})

		t.Run("nil camera", func(t *testing.T) {
			s := NewSession(nil, Options{})
			if err := s.RequestCameraAccess(ctx); !errors.Is(err, shared.ErrMediaAccess) {
				t.Errorf("expected ErrMediaAccess, got %v", err)
			}
		})

		t.Run("does not double wrap media errors", func(t *testing.T) {
			s := NewSession(&fakeCamera{err: shared.ErrMediaAccess}, Options{})
			err := s.RequestCameraAccess(ctx)
			if err != shared.ErrMediaAccess {
				t.Errorf("expected bare ErrMediaAccess, got %v", err)
			}
		})
	})

	t.Run("CaptureFrame", func(t *testing.T) {
		t.Run("without stream", func(t *testing.T) {
			s := NewSession(&fakeCamera{}, Options{})
			s.SelectFile([]byte("keep"), "image/png")

			if _, err := s.CaptureFrame(ctx); !errors.Is(err, shared.ErrNoActiveStream) {
				t.Fatalf("expected ErrNoActiveStream, got %v", err)
			}
			if string(s.Pending().Data) != "keep" {
				t.Error("expected pending image to be unchanged")
			}
		})

		t.Run("encodes fixed size png", func(t *testing.T) {
			s := NewSession(&fakeCamera{}, Options{Width: 64, Height: 48})
			if err := s.RequestCameraAccess(ctx); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			img, err := s.CaptureFrame(ctx)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if img.MIMEType != "image/png" {
				t.Errorf("expected image/png, got %s", img.MIMEType)
			}
			if img.Filename() != "capture.png" {
				t.Errorf("expected capture.png, got %s", img.Filename())
			}

			decoded, err := png.Decode(bytes.NewReader(img.Data))
			if err != nil {
				t.Fatalf("captured data is not png: %v", err)
			}
			if b := decoded.Bounds(); b.Dx() != 64 || b.Dy() != 48 {
				t.Errorf("expected 64x48, got %dx%d", b.Dx(), b.Dy())
			}
			if s.Pending() != img {
				t.Error("expected captured frame to become pending")
			}
		})

		t.Run("frame error", func(t *testing.T) {
			cam := &fakeCamera{}
			s := NewSession(cam, Options{})
			_ = s.RequestCameraAccess(ctx)
			cam.streams[0].frameErr = errors.New("device gone")

			if _, err := s.CaptureFrame(ctx); !errors.Is(err, shared.ErrMediaAccess) {
				t.Errorf("expected ErrMediaAccess, got %v", err)
			}
		})
	})

	t.Run("SelectFile replaces pending", func(t *testing.T) {
		s := NewSession(nil, Options{})
		s.SelectFile([]byte("one"), "image/png")
		second := s.SelectFile([]byte("two"), "image/webp")

		if s.Pending() != second {
			t.Fatal("expected latest selection to be pending")
		}
		if second.MIMEType != "image/webp" {
			t.Errorf("expected image/webp, got %s", second.MIMEType)
		}
	})

	t.Run("SelectPath", func(t *testing.T) {
		dir := t.TempDir()

		var buf bytes.Buffer
		_ = png.Encode(&buf, solid(2, 2, color.White))
		pngPath := filepath.Join(dir, "face.png")
		if err := os.WriteFile(pngPath, buf.Bytes(), 0644); err != nil {
			t.Fatal(err)
		}

		textPath := filepath.Join(dir, "notes.txt")
		if err := os.WriteFile(textPath, []byte("hello"), 0644); err != nil {
			t.Fatal(err)
		}

		s := NewSession(nil, Options{})

		img, err := s.SelectPath(pngPath)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if img.MIMEType != "image/png" || img.Name != "face.png" {
			t.Errorf("unexpected image: %s %s", img.MIMEType, img.Name)
		}

		if _, err := s.SelectPath(textPath); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
		if _, err := s.SelectPath(filepath.Join(dir, "missing.png")); err == nil {
			t.Error("expected error for missing file")
		}
		if s.Pending() != img {
			t.Error("expected failed selections to keep previous pending image")
		}
	})

	t.Run("PreviewURL", func(t *testing.T) {
		s := NewSession(nil, Options{})
		if _, ok := s.PreviewURL(); ok {
			t.Error("expected no preview without pending image")
		}

		s.SelectFile([]byte("xyz"), "image/jpeg")
		url, ok := s.PreviewURL()
		if !ok {
			t.Fatal("expected preview")
		}

		want := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString([]byte("xyz"))
		if url != want {
			t.Errorf("expected %s, got %s", want, url)
		}
	})

	t.Run("Close keeps pending image", func(t *testing.T) {
		cam := &fakeCamera{}
		s := NewSession(cam, Options{})
		_ = s.RequestCameraAccess(ctx)
		s.SelectFile([]byte("a"), "image/png")

		if err := s.Close(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if s.Active() || s.Pending() == nil {
			t.Error("expected inactive stream with pending image")
		}
		if err := s.Close(); err != nil {
			t.Errorf("second close should be a no-op, got %v", err)
		}
	})
}

func TestDetectImageType(t *testing.T) {
	tests := []struct {
		name string
		path string
		data []byte
		want string
	}{
		{name: "png signature", path: "x.bin", data: []byte("\x89PNG\r\n\x1a\n0000"), want: "image/png"},
		{name: "jpeg signature", path: "x", data: []byte{0xFF, 0xD8, 0xFF, 0xE0}, want: "image/jpeg"},
		{name: "extension fallback", path: "x.JPG", data: []byte("junk"), want: "image/jpeg"},
		{name: "not an image", path: "x.txt", data: []byte("plain text"), want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectImageType(tt.path, tt.data); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestRasterize(t *testing.T) {
	t.Run("letterboxes wide frames", func(t *testing.T) {
		dst := Rasterize(solid(200, 50, color.White), 100, 100)

		if b := dst.Bounds(); b.Dx() != 100 || b.Dy() != 100 {
			t.Fatalf("expected 100x100, got %v", b)
		}

		top := dst.RGBAAt(50, 5)
		if top.R != 0 || top.G != 0 || top.B != 0 {
			t.Errorf("expected black bar, got %v", top)
		}
		center := dst.RGBAAt(50, 50)
		if center.R < 200 {
			t.Errorf("expected scaled content at center, got %v", center)
		}
	})

	t.Run("empty source", func(t *testing.T) {
		dst := Rasterize(image.NewRGBA(image.Rect(0, 0, 0, 0)), 4, 4)
		if !strings.Contains(dst.Bounds().String(), "(4,4)") {
			t.Errorf("unexpected bounds %v", dst.Bounds())
		}
	})
}

func TestSessionReadsDuringDeviceCalls(t *testing.T) {
	ctx := context.Background()

	// readable fails the test when the state accessors block.
	readable := func(t *testing.T, s *Session) {
		t.Helper()
		done := make(chan struct{})
		go func() {
			s.Active()
			s.Pending()
			s.PreviewURL()
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("state accessors blocked on the device")
		}
	}

	camera := &slowCamera{entered: make(chan struct{}), release: make(chan struct{})}
	s := NewSession(camera, Options{Width: 8, Height: 8})
	s.SelectFile([]byte("img"), "image/png")

	t.Run("while opening", func(t *testing.T) {
		errs := make(chan error, 1)
		go func() { errs <- s.RequestCameraAccess(ctx) }()

		<-camera.entered
		readable(t, s)
		if s.Active() {
			t.Error("expected no stream before Open returns")
		}

		camera.release <- struct{}{}
		if err := <-errs; err != nil {
			t.Fatalf("RequestCameraAccess failed: %v", err)
		}
		if !s.Active() {
			t.Error("expected stream after Open returns")
		}
	})

	t.Run("while capturing", func(t *testing.T) {
		errs := make(chan error, 1)
		go func() {
			_, err := s.CaptureFrame(ctx)
			errs <- err
		}()

		<-camera.entered
		readable(t, s)
		if s.Pending().Name == captureName {
			t.Error("expected previous image until the frame is encoded")
		}

		camera.release <- struct{}{}
		if err := <-errs; err != nil {
			t.Fatalf("CaptureFrame failed: %v", err)
		}
		if s.Pending().Name != captureName {
			t.Errorf("expected captured image, got %q", s.Pending().Name)
		}
	})
}
