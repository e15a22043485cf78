package device

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/blackjack/webcam"
)

// ErrNoFrame is returned by Capture when the camera produced nothing.
var ErrNoFrame = errors.New("no camera frame")

func fourcc(code string) webcam.PixelFormat {
	return webcam.PixelFormat(uint32(code[0]) |
		uint32(code[1])<<8 |
		uint32(code[2])<<16 |
		uint32(code[3])<<24)
}

// Camera is a V4L2 camera streaming MJPEG. The latest frame is kept so a
// capture is one file write.
type Camera struct {
	path string

	mu     sync.Mutex
	cam    *webcam.Webcam
	frame  []byte
	stop   chan struct{}
	done   chan struct{}
	frames chan struct{}
}

// NewCamera returns a camera for a device path such as /dev/video0. The
// device is opened by Start.
func NewCamera(path string) *Camera {
	return &Camera{path: path}
}

// Start opens the device at its largest JPEG frame size and begins
// streaming. Starting a running camera is a no-op.
func (c *Camera) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cam != nil {
		return nil
	}

	cam, err := webcam.Open(c.path)
	if err != nil {
		return fmt.Errorf("open %s: %w", c.path, err)
	}
	formats := cam.GetSupportedFormats()
	var pxfmt webcam.PixelFormat
	for _, f := range []webcam.PixelFormat{fourcc("MJPG"), fourcc("JPEG")} {
		if formats[f] != "" {
			pxfmt = f
		}
	}
	if pxfmt == 0 {
		cam.Close()
		return fmt.Errorf("%s: no JPEG pixel format", c.path)
	}
	sizes := cam.GetSupportedFrameSizes(pxfmt)
	if len(sizes) == 0 {
		cam.Close()
		return fmt.Errorf("%s: no frame sizes", c.path)
	}
	sort.Slice(sizes, func(i, j int) bool {
		return uint64(sizes[i].MaxWidth)*uint64(sizes[i].MaxHeight) >
			uint64(sizes[j].MaxWidth)*uint64(sizes[j].MaxHeight)
	})
	if _, _, _, err := cam.SetImageFormat(pxfmt, sizes[0].MaxWidth, sizes[0].MaxHeight); err != nil {
		cam.Close()
		return fmt.Errorf("%s: set format: %w", c.path, err)
	}
	if err := cam.StartStreaming(); err != nil {
		cam.Close()
		return fmt.Errorf("%s: start streaming: %w", c.path, err)
	}

	c.cam = cam
	c.frame = nil
	c.stop = make(chan struct{})
	c.done = make(chan struct{})
	c.frames = make(chan struct{}, 1)
	go c.read(cam, c.stop, c.done, c.frames)
	return nil
}

func (c *Camera) read(cam *webcam.Webcam, stop, done, frames chan struct{}) {
	defer close(done)
	for {
		select {
		case <-stop:
			return
		default:
		}
		if err := cam.WaitForFrame(1); err != nil {
			var timeout *webcam.Timeout
			if errors.As(err, &timeout) {
				continue
			}
			return
		}
		data, err := cam.ReadFrame()
		if err != nil || len(data) == 0 {
			continue
		}
		frame := make([]byte, len(data))
		copy(frame, data)

		c.mu.Lock()
		c.frame = frame
		c.mu.Unlock()
		select {
		case frames <- struct{}{}:
		default:
		}
	}
}

// Stop ends streaming and closes the device.
func (c *Camera) Stop() error {
	c.mu.Lock()
	cam, stop, done := c.cam, c.stop, c.done
	c.cam = nil
	c.mu.Unlock()
	if cam == nil {
		return nil
	}

	close(stop)
	<-done
	err := cam.StopStreaming()
	if cerr := cam.Close(); err == nil {
		err = cerr
	}
	return err
}

// Frame returns the most recent JPEG frame, or nil.
func (c *Camera) Frame() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.frame
}

// Capture writes the latest frame to filename. If the camera is off it
// is started for the shot and stopped again.
func (c *Camera) Capture(filename string) error {
	c.mu.Lock()
	running := c.cam != nil
	c.mu.Unlock()

	if !running {
		if err := c.Start(); err != nil {
			return err
		}
		defer c.Stop()
	}

	frame, err := c.waitFrame(5 * time.Second)
	if err != nil {
		return err
	}
	return os.WriteFile(filename, frame, 0644)
}

func (c *Camera) waitFrame(timeout time.Duration) ([]byte, error) {
	c.mu.Lock()
	frame, frames := c.frame, c.frames
	c.mu.Unlock()
	if frame != nil {
		return frame, nil
	}
	select {
	case <-frames:
		return c.Frame(), nil
	case <-time.After(timeout):
		return nil, ErrNoFrame
	}
}
